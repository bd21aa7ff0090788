package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/embedding"
	"github.com/lingxi-album/backend/internal/objectstore"
	"github.com/lingxi-album/backend/internal/pkg/xsync"
	"github.com/lingxi-album/backend/internal/vectorstore/localfs"
)

func redSquarePNG() []byte {
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xDE, 0x00, 0x00, 0x00, 0x0C, 0x49, 0x44, 0x41, 0x54, 0x08, 0xD7, 0x63, 0xF8, 0xCF, 0xC0, 0x00,
		0x00, 0x03, 0x01, 0x01, 0x00, 0x18, 0xDD, 0x8D, 0xB0, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E,
		0x44, 0xAE, 0x42, 0x60, 0x82,
	}
}

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	dir := t.TempDir()
	objects, err := objectstore.New(filepath.Join(dir, "images"))
	require.NoError(t, err)
	vectors, err := localfs.New(8, "photos", filepath.Join(dir, "vectors.json"))
	require.NoError(t, err)
	provider := embedding.NewLocalBackend(8)
	return New(objects, provider, vectors, xsync.NoPool())
}

func TestIngestSyncIndexesImmediately(t *testing.T) {
	ix := newTestIndexer(t)
	img, outcome, err := ix.Ingest(context.Background(), redSquarePNG(), "beach.png", Options{AutoIndex: true})
	require.NoError(t, err)
	assert.Equal(t, IndexedDone, outcome.Indexed)
	assert.Equal(t, ModeSync, outcome.Mode)

	_, err = ix.vectors.Get(context.Background(), img.ID)
	require.NoError(t, err)
}

func TestIngestWithoutAutoIndexSkipsIndexing(t *testing.T) {
	ix := newTestIndexer(t)
	img, outcome, err := ix.Ingest(context.Background(), redSquarePNG(), "beach.png", Options{AutoIndex: false})
	require.NoError(t, err)
	assert.Equal(t, ModeNone, outcome.Mode)

	_, err = ix.vectors.Get(context.Background(), img.ID)
	require.Error(t, err)
}

func TestIngestAsyncMarksProcessingThenDone(t *testing.T) {
	ix := newTestIndexer(t)
	img, outcome, err := ix.Ingest(context.Background(), redSquarePNG(), "beach.png", Options{AutoIndex: true, AsyncIndex: true})
	require.NoError(t, err)
	assert.Equal(t, IndexedProcessing, outcome.Indexed)
	assert.Equal(t, ModeAsync, outcome.Mode)

	status, ok := ix.Status(img.ID)
	require.True(t, ok)
	assert.Equal(t, IndexedProcessing, status.State)

	assert.Eventually(t, func() bool {
		s, ok := ix.Status(img.ID)
		return ok && s.State == IndexedDone
	}, time.Second, 5*time.Millisecond)
}

func TestReindexAllSkipsAlreadyIndexed(t *testing.T) {
	ix := newTestIndexer(t)
	_, _, err := ix.Ingest(context.Background(), redSquarePNG(), "a.png", Options{AutoIndex: true})
	require.NoError(t, err)
	_, _, err = ix.Ingest(context.Background(), redSquarePNG(), "b.png", Options{AutoIndex: false})
	require.NoError(t, err)

	reindexed, err := ix.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, reindexed)
}
