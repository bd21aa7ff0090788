// Package vectorstore implements C2: a keyed collection of
// (id, vector[D], payload) records supporting cosine-similarity top-K
// search with payload filters, per spec.md §4.3.
package vectorstore

import (
	"context"
	"math"
	"time"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/pkg/sets"
)

// Filter composes as a conjunction over its non-zero fields, per
// spec.md §4.3.
type Filter struct {
	TagsAny       []string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	IDsAllowlist  []string
	FieldEquals   map[string]any
}

// Matches reports whether the record (id, payload) satisfies every
// non-zero field of f.
func (f Filter) Matches(id string, payload map[string]any) bool {
	if len(f.TagsAny) > 0 && !tagsIntersect(payload, f.TagsAny) {
		return false
	}
	if f.CreatedAfter != nil || f.CreatedBefore != nil {
		createdAt, ok := createdAtOf(payload)
		if !ok {
			return false
		}
		if f.CreatedAfter != nil && createdAt.Before(*f.CreatedAfter) {
			return false
		}
		if f.CreatedBefore != nil && createdAt.After(*f.CreatedBefore) {
			return false
		}
	}
	if len(f.IDsAllowlist) > 0 && !sets.FromSlice(f.IDsAllowlist).Has(id) {
		return false
	}
	for k, want := range f.FieldEquals {
		got, ok := payload[k]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

func tagsIntersect(payload map[string]any, wanted []string) bool {
	raw, ok := payload[model.PayloadTags]
	if !ok {
		return false
	}
	tags, ok := raw.([]string)
	if !ok {
		return false
	}
	have := sets.FromSlice(tags)
	want := sets.FromSlice(wanted)
	return have.Intersects(want)
}

func createdAtOf(payload map[string]any) (time.Time, bool) {
	raw, ok := payload[model.PayloadCreatedAt]
	if !ok {
		return time.Time{}, false
	}
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

func equalValue(a, b any) bool {
	return a == b
}

// SearchRequest specifies parameters for a similarity search, per
// spec.md §4.3. Grounded on Tangerg-lynx's RetrievalRequest, adapted
// from text-query-only to a raw query vector plus the spec's typed
// filter shape.
type SearchRequest struct {
	QueryVector    []float64
	TopK           int
	ScoreThreshold float64
	Filter         Filter
}

// Validate checks TopK and vector presence. ScoreThreshold has no
// lower/upper bound check: spec.md leaves it an open threshold that
// simply prunes results, unlike Tangerg-lynx's bounded [0,1] MinScore.
func (r *SearchRequest) Validate() error {
	if r == nil {
		return errs.New(errs.InvalidInput, "vectorstore: search request is nil")
	}
	if len(r.QueryVector) == 0 {
		return errs.New(errs.InvalidInput, "vectorstore: query vector is empty")
	}
	if r.TopK <= 0 {
		return errs.New(errs.InvalidInput, "vectorstore: topK must be > 0")
	}
	return nil
}

// ScoredRecord is one search/scroll result.
type ScoredRecord struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Info describes a collection, per spec.md §4.3 info().
type Info struct {
	Name         string
	VectorsCount int64
	PointsCount  int64
	Status       string
	Dimension    int64
}

// Store is the C2 contract: upsert/get/set-payload/delete/search/
// scroll/count/info over typed vector records.
type Store interface {
	Upsert(ctx context.Context, record model.VectorRecord) error
	UpsertBatch(ctx context.Context, records []model.VectorRecord) error
	Get(ctx context.Context, id string) (*model.VectorRecord, error)
	GetBatch(ctx context.Context, ids []string) ([]model.VectorRecord, error)
	SetPayload(ctx context.Context, id string, partial map[string]any) error
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) error
	Search(ctx context.Context, req SearchRequest) ([]ScoredRecord, error)
	Scroll(ctx context.Context, limit int, offset int, filter Filter) ([]model.VectorRecord, *int, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Info(ctx context.Context) (Info, error)
}

// CosineSimilarity computes the cosine similarity of two equal-length
// vectors. Returns 0 if either vector has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
