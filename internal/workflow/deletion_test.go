package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/objectstore"
	"github.com/lingxi-album/backend/internal/vectorstore/localfs"
)

func newTestDeletionService(t *testing.T) (*DeletionService, *objectstore.Store, *localfs.Store) {
	t.Helper()
	dir := t.TempDir()
	objects, err := objectstore.New(filepath.Join(dir, "images"))
	require.NoError(t, err)
	vectors, err := localfs.New(4, "photos", filepath.Join(dir, "snap.json"))
	require.NoError(t, err)
	return NewDeletionService(objects, vectors), objects, vectors
}

func TestDeletePreviewSkipsMissingIDs(t *testing.T) {
	svc, objects, _ := newTestDeletionService(t)
	img, err := objects.Put([]byte{0xff, 0xd8, 0xff, 0xe0}, "a.jpg")
	require.NoError(t, err)

	items := svc.Preview([]string{img.ID, "missing-id"})
	require.Len(t, items, 1)
	assert.Equal(t, img.ID, items[0].ID)
}

func TestDeleteRequiresNonEmptyIDs(t *testing.T) {
	svc, _, _ := newTestDeletionService(t)
	_, err := svc.Delete(context.Background(), nil, true, "")
	require.Error(t, err)
	assert.Equal(t, errs.EmptyInput, errs.KindOf(err))
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	svc, objects, _ := newTestDeletionService(t)
	img, err := objects.Put([]byte{0xff, 0xd8, 0xff, 0xe0}, "a.jpg")
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), []string{img.ID}, false, "")
	require.Error(t, err)
	assert.Equal(t, errs.NotConfirmed, errs.KindOf(err))
}

func TestDeleteRemovesObjectAndVector(t *testing.T) {
	svc, objects, vectors := newTestDeletionService(t)
	img, err := objects.Put([]byte{0xff, 0xd8, 0xff, 0xe0}, "a.jpg")
	require.NoError(t, err)
	require.NoError(t, vectors.Upsert(context.Background(), model.VectorRecord{
		ID: img.ID, Vector: []float64{1, 0, 0, 0}, Payload: map[string]any{},
	}))

	outcome, err := svc.Delete(context.Background(), []string{img.ID}, true, "cleanup")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.DeletedCount)
	assert.Equal(t, 0, outcome.FailedCount)
	assert.Equal(t, []string{img.ID}, outcome.DeletedIDs)

	_, err = objects.Stat(img.ID)
	assert.Error(t, err)
}

func TestDeleteIsIdempotentForMissingID(t *testing.T) {
	// Deleting an id that never existed in either store succeeds
	// trivially: both C2.Delete and C3.Delete treat "not found" as a
	// no-op rather than an error, so the cascade reports it deleted.
	svc, _, _ := newTestDeletionService(t)
	outcome, err := svc.Delete(context.Background(), []string{"does-not-exist"}, true, "")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.DeletedCount)
	assert.Equal(t, 0, outcome.FailedCount)
	assert.Equal(t, []string{"does-not-exist"}, outcome.DeletedIDs)
}
