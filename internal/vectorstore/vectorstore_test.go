package vectorstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatchesConjunction(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"tags":       []string{"beach", "sunset"},
		"created_at": time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		"favorite":   true,
	}

	f := Filter{
		TagsAny:      []string{"sunset"},
		CreatedAfter: &after,
		FieldEquals:  map[string]any{"favorite": true},
	}
	assert.True(t, f.Matches("img-1", payload))

	f.FieldEquals["favorite"] = false
	assert.False(t, f.Matches("img-1", payload))
}

func TestFilterIDsAllowlist(t *testing.T) {
	f := Filter{IDsAllowlist: []string{"a", "b"}}
	assert.True(t, f.Matches("a", nil))
	assert.False(t, f.Matches("c", nil))
}

func TestSearchRequestValidate(t *testing.T) {
	assert.Error(t, (&SearchRequest{}).Validate())
	assert.Error(t, (&SearchRequest{QueryVector: []float64{1}, TopK: 0}).Validate())
	assert.NoError(t, (&SearchRequest{QueryVector: []float64{1}, TopK: 1}).Validate())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 0}))
}
