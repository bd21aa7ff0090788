package embedding

import (
	"context"
	"crypto/sha256"
	"math"
	"os"

	"github.com/lingxi-album/backend/internal/errs"
)

// LocalBackend wraps a local multimodal model instance, per spec.md
// §4.1. No real local multimodal embedding library exists anywhere in
// the retrieval pack (the teacher and its siblings only ship remote
// provider SDKs), so this backend is a deterministic, content-addressed
// stand-in: it hashes the normalised input into D dimensions rather than
// running inference. Wiring a real model here is an integration concern
// (swap the body of embedOne), not a change to the Provider contract.
type LocalBackend struct {
	dimension int64
}

// NewLocalBackend creates a LocalBackend producing vectors of the given
// dimension.
func NewLocalBackend(dimension int64) *LocalBackend {
	return &LocalBackend{dimension: dimension}
}

func (l *LocalBackend) Dimension() int64 { return l.dimension }

func (l *LocalBackend) Embed(_ context.Context, in Input) ([]float64, error) {
	if !in.HasContent() {
		return nil, errs.New(errs.InvalidInput, "embedding: at least one of text/image is required")
	}

	content, err := l.contentFor(in)
	if err != nil {
		return nil, err
	}

	vec := hashToVector(content, l.dimension)
	normalize := in.Normalize
	if normalize {
		vec = Normalize(vec)
	}
	return vec, nil
}

func (l *LocalBackend) EmbedBatch(ctx context.Context, inputs []Input) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		vec, err := l.Embed(ctx, in)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// contentFor builds the byte stream the stub hashes into a vector,
// applying the RGBA-to-white-RGB compositing contract when an image is
// supplied, per spec.md §4.1.
func (l *LocalBackend) contentFor(in Input) ([]byte, error) {
	var buf []byte
	buf = append(buf, []byte(in.Instruction)...)
	buf = append(buf, []byte(in.Text)...)

	imageBytes := in.ImageBytes
	if len(imageBytes) == 0 && in.ImagePath != "" {
		content, err := os.ReadFile(in.ImagePath)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidInput, err, "embedding: read image path %s", in.ImagePath)
		}
		imageBytes = content
	}

	if len(imageBytes) > 0 {
		rgb, err := toOpaqueRGBJPEG(imageBytes)
		if err != nil {
			return nil, err
		}
		buf = append(buf, rgb...)
	}

	return buf, nil
}

// hashToVector expands a SHA-256 digest of content into a D-dimensional
// vector by repeated re-hashing, giving a stable, content-sensitive
// pseudo-embedding with no external dependency.
func hashToVector(content []byte, dimension int64) []float64 {
	vec := make([]float64, dimension)
	block := sha256.Sum256(content)
	seed := block[:]
	idx := 0
	for int64(idx) < dimension {
		next := sha256.Sum256(seed)
		seed = next[:]
		for i := 0; i+1 < len(seed) && int64(idx) < dimension; i += 2 {
			// Map a pair of bytes to a signed value in [-√2, √2].
			raw := int(seed[i])<<8 | int(seed[i+1])
			vec[idx] = (float64(raw)/32767.5 - 1) * math.Sqrt2
			idx++
		}
	}
	return vec
}
