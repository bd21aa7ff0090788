package workflow

import (
	"context"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/objectstore"
	"github.com/lingxi-album/backend/internal/vectorstore"
)

const deletionConcurrency = 4

// PreviewItem is one image's summary shown to the caller before a
// confirmed deletion, per spec.md §4.9/§8 scenario 6.
type PreviewItem struct {
	ID        string
	Filename  string
	FileSize  int64
	Width     int
	Height    int
	CreatedAt string
}

// DeleteOutcome reports the per-id results of a confirmed deletion.
type DeleteOutcome struct {
	DeletedCount int
	FailedCount  int
	DeletedIDs   []string
	FailedIDs    []string
}

// DeletionService implements the confirmed-deletion workflow: a
// preview step that never mutates state, and a delete step gated on
// explicit confirmation. Grounded on spec.md §8 scenario 6's
// preview-then-confirm contract.
type DeletionService struct {
	objects *objectstore.Store
	vectors vectorstore.Store
}

// NewDeletionService creates a DeletionService.
func NewDeletionService(objects *objectstore.Store, vectors vectorstore.Store) *DeletionService {
	return &DeletionService{objects: objects, vectors: vectors}
}

// Preview summarizes the images named by ids, silently dropping any id
// that does not resolve to an existing image.
func (s *DeletionService) Preview(ids []string) []PreviewItem {
	items := make([]PreviewItem, 0, len(ids))
	for _, id := range ids {
		img, err := s.objects.Stat(id)
		if err != nil {
			continue
		}
		items = append(items, PreviewItem{
			ID:        img.ID,
			Filename:  img.Metadata.Filename,
			FileSize:  img.Metadata.FileSize,
			Width:     img.Metadata.Width,
			Height:    img.Metadata.Height,
			CreatedAt: img.Metadata.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return items
}

// Delete removes the vector record and the object-store file for each
// id, only when confirmed is true. Per id, either sub-delete failing
// counts as that id failing; the operation is not transactional and
// partial outcomes are reported verbatim, per spec.md §4.9.
func (s *DeletionService) Delete(ctx context.Context, ids []string, confirmed bool, reason string) (*DeleteOutcome, error) {
	if len(ids) == 0 {
		return nil, errs.New(errs.EmptyInput, "workflow: delete_images requires at least one id")
	}
	if !confirmed {
		return nil, errs.New(errs.NotConfirmed, "workflow: delete_images requires confirmed=true")
	}

	results := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(deletionConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			ok, err := s.deleteOne(ctx, id)
			results[i] = ok
			return err
		})
	}
	// errgroup.Wait's error is informational only: per-id outcomes are
	// already captured in results regardless of any single goroutine's
	// returned error, since a cascade delete failure for one id must not
	// abort the others.
	_ = g.Wait()

	outcome := &DeleteOutcome{}
	for i, id := range ids {
		if results[i] {
			outcome.DeletedCount++
			outcome.DeletedIDs = append(outcome.DeletedIDs, id)
		} else {
			outcome.FailedCount++
			outcome.FailedIDs = append(outcome.FailedIDs, id)
		}
	}
	return outcome, nil
}

func (s *DeletionService) deleteOne(ctx context.Context, id string) (bool, error) {
	var combined error
	if vecErr := s.vectors.Delete(ctx, id); vecErr != nil {
		combined = multierr.Append(combined, vecErr)
	}
	if _, objErr := s.objects.Delete(id); objErr != nil {
		combined = multierr.Append(combined, objErr)
	}
	return combined == nil, combined
}
