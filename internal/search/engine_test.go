package search

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/embedding"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/vectorstore"
	"github.com/lingxi-album/backend/internal/vectorstore/localfs"
)

type fakeImages struct{}

func (fakeImages) Get(id string) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}

func newEngine(t *testing.T) (*Engine, *localfs.Store) {
	t.Helper()
	store, err := localfs.New(8, "photos", filepath.Join(t.TempDir(), "snap.json"))
	require.NoError(t, err)
	provider := embedding.NewLocalBackend(8)
	return New(provider, store, fakeImages{}), store
}

func seed(t *testing.T, store *localfs.Store, id string, text string, createdAt time.Time, tags []string) {
	t.Helper()
	provider := embedding.NewLocalBackend(8)
	vec, err := provider.Embed(context.Background(), embedding.Input{Text: text, Instruction: embedding.DefaultIndexInstruction, Normalize: true})
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), model.VectorRecord{
		ID:     id,
		Vector: vec,
		Payload: map[string]any{
			model.PayloadTags:      tags,
			model.PayloadCreatedAt: createdAt.Format(time.RFC3339),
		},
	}))
}

func TestSearchByTextDecoratesPreviewURL(t *testing.T) {
	engine, store := newEngine(t)
	seed(t, store, "img-1", "a red bicycle", time.Now(), []string{"bikes"})

	results, err := engine.SearchByText(context.Background(), "a red bicycle", 5, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/images/img-1", results[0].PreviewURL)
	require.NotNil(t, results[0].Score)
}

func TestSearchByMetaWithExactDateFiltersByRange(t *testing.T) {
	engine, store := newEngine(t)
	seed(t, store, "in-range", "beach", time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), nil)
	seed(t, store, "out-of-range", "beach", time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), nil)

	results, err := engine.SearchByMeta(context.Background(), "2024-03-05", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "in-range", results[0].ID)
	assert.Nil(t, results[0].Score)
}

func TestSearchByMetaMonthDayOnlyScansAcrossYears(t *testing.T) {
	engine, store := newEngine(t)
	seed(t, store, "year-2023", "beach", time.Date(2023, 3, 5, 12, 0, 0, 0, time.UTC), nil)
	seed(t, store, "year-2024", "beach", time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), nil)
	seed(t, store, "different-day", "beach", time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), nil)

	results, err := engine.SearchByMeta(context.Background(), "3/5", nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "year-2024", results[0].ID)
	assert.Equal(t, "year-2023", results[1].ID)
}

func TestSearchByImageExcludesQueryIDForIDBasedQueries(t *testing.T) {
	engine, store := newEngine(t)
	seed(t, store, "self", "a photo", time.Now(), nil)
	seed(t, store, "other", "a photo", time.Now(), nil)

	results, err := engine.SearchByImage(context.Background(), ImageQuery{ID: "self"}, 10, 0, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "self", r.ID)
	}
}
