package qdrant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/vectorstore"
)

func TestToFilterEmptyReturnsNil(t *testing.T) {
	assert.Nil(t, ToFilter(vectorstore.Filter{}))
}

func TestToFilterCombinesConditionsAsConjunction(t *testing.T) {
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := vectorstore.Filter{
		TagsAny:      []string{"beach", "sunset"},
		CreatedAfter: &after,
		IDsAllowlist: []string{"a", "b"},
		FieldEquals:  map[string]any{"favorite": true},
	}

	filter := ToFilter(f)
	require.NotNil(t, filter)
	assert.Len(t, filter.Must, 4)
}
