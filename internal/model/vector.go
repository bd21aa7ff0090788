package model

// VectorRecord is the vector-store's unit of storage, 1:1 with an Image
// id (modulo async-indexing lag), per spec.md §3.
type VectorRecord struct {
	ID      string
	Vector  []float64
	Payload map[string]any
}

// Payload field names projected from Image.Metadata, per spec.md §3.
const (
	PayloadTags        = "tags"
	PayloadCreatedAt   = "created_at"
	PayloadFilename    = "filename"
	PayloadDescription = "description"
)

// VectorNormTolerance bounds how far a unit vector's L2 norm may drift
// from 1.0 and still be considered normalised, per spec.md §8.
const VectorNormTolerance = 1e-3
