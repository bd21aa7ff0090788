// Package indexer implements C5: orchestrating uploads by persisting
// bytes via the object store and then embedding/upserting them into
// the vector store, synchronously, asynchronously, or not at all, per
// spec.md §4.5. Grounded on the upload-then-index composition in
// original_source/app/services/image_edit_service.py's
// edit_image_and_save/_async_index_image.
package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/lingxi-album/backend/internal/embedding"
	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/objectstore"
	"github.com/lingxi-album/backend/internal/pkg/xsync"
	"github.com/lingxi-album/backend/internal/vectorstore"
)

// IndexedState reports how an ingest's indexing step resolved, per
// spec.md §4.5's {indexed, mode} envelope.
type IndexedState string

const (
	IndexedDone       IndexedState = "done"
	IndexedProcessing IndexedState = "processing"
	IndexedFailed     IndexedState = "false"
)

// Mode names which indexing path ingest took.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
	ModeNone  Mode = "none"
)

// Options controls one ingest call, per spec.md §4.5.
type Options struct {
	AutoIndex   bool
	AsyncIndex  bool
	Tags        []string
	Description string
	// Extra is merged into the vector record's payload verbatim, used by
	// derived images (e.g. edit_image's EditedImage extras) that carry
	// metadata beyond tags/description.
	Extra map[string]any
}

// Outcome describes the result of one ingest call.
type Outcome struct {
	Indexed IndexedState
	Mode    Mode
}

// Indexer wires C3 (object store), C1 (embedding provider), and C2
// (vector store) together under spec.md §4.5's ingest/reindex_all
// contract.
type Indexer struct {
	objects *objectstore.Store
	embed   embedding.Provider
	vectors vectorstore.Store
	pool    xsync.Pool

	mu     sync.Mutex
	status map[string]IndexStatus
}

// IndexStatus is the per-image indexing-status record spec.md §4.8
// asks deferred-indexing jobs to maintain.
type IndexStatus struct {
	State     IndexedState
	Error     string
	UpdatedAt time.Time
}

// New creates an Indexer. pool is used to run async_index jobs
// fire-and-forget; pass xsync.NoPool() when no dedicated worker pool
// is configured.
func New(objects *objectstore.Store, embed embedding.Provider, vectors vectorstore.Store, pool xsync.Pool) *Indexer {
	return &Indexer{
		objects: objects,
		embed:   embed,
		vectors: vectors,
		pool:    pool,
		status:  make(map[string]IndexStatus),
	}
}

// Status returns the last known indexing status for id, if any.
func (ix *Indexer) Status(id string) (IndexStatus, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	s, ok := ix.status[id]
	return s, ok
}

func (ix *Indexer) setStatus(id string, state IndexedState, errMsg string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.status[id] = IndexStatus{State: state, Error: errMsg, UpdatedAt: time.Now()}
}

// Ingest persists bytes via C3 then, depending on opts, indexes
// synchronously, asynchronously, or not at all. Indexing failures
// never roll back the persisted image, per spec.md §4.5's failure
// policy.
func (ix *Indexer) Ingest(ctx context.Context, content []byte, filename string, opts Options) (*model.Image, Outcome, error) {
	img, err := ix.objects.Put(content, filename)
	if err != nil {
		return nil, Outcome{}, err
	}

	img.Metadata.Description = opts.Description
	for _, tag := range opts.Tags {
		img.Metadata.Tags.Add(tag)
	}

	if !opts.AutoIndex || ix.embed == nil {
		return img, Outcome{Indexed: IndexedFailed, Mode: ModeNone}, nil
	}

	if opts.AsyncIndex {
		ix.setStatus(img.ID, IndexedProcessing, "")
		ix.pool.Submit(func() {
			ix.indexOne(context.Background(), img.ID, opts.Tags, opts.Description, opts.Extra)
		})
		return img, Outcome{Indexed: IndexedProcessing, Mode: ModeAsync}, nil
	}

	if err := ix.indexOne(ctx, img.ID, opts.Tags, opts.Description, opts.Extra); err != nil {
		return img, Outcome{Indexed: IndexedFailed, Mode: ModeSync}, nil
	}
	return img, Outcome{Indexed: IndexedDone, Mode: ModeSync}, nil
}

func (ix *Indexer) indexOne(ctx context.Context, id string, tags []string, description string, extra map[string]any) error {
	content, _, err := ix.objects.Get(id)
	if err != nil {
		ix.setStatus(id, IndexedFailed, err.Error())
		return err
	}

	vec, err := ix.embed.Embed(ctx, embedding.Input{ImageBytes: content, Instruction: embedding.DefaultIndexInstruction, Normalize: true})
	if err != nil {
		ix.setStatus(id, IndexedFailed, err.Error())
		return err
	}

	img, err := ix.objects.Stat(id)
	if err != nil {
		ix.setStatus(id, IndexedFailed, err.Error())
		return err
	}

	payload := map[string]any{
		model.PayloadFilename:  img.Metadata.Filename,
		model.PayloadCreatedAt: img.Metadata.CreatedAt.Format(time.RFC3339),
	}
	if len(tags) > 0 {
		payload[model.PayloadTags] = tags
	}
	if description != "" {
		payload[model.PayloadDescription] = description
	}
	for k, v := range extra {
		payload[k] = v
	}

	if err := ix.vectors.Upsert(ctx, model.VectorRecord{ID: id, Vector: vec, Payload: payload}); err != nil {
		ix.setStatus(id, IndexedFailed, err.Error())
		return err
	}

	ix.setStatus(id, IndexedDone, "")
	return nil
}

// ReindexAll iterates C3's full listing, skipping ids already present
// in C2, and embeds+upserts the remainder, per spec.md §4.5.
func (ix *Indexer) ReindexAll(ctx context.Context) (int, error) {
	const pageSize = 256
	reindexed := 0

	for page := 1; ; page++ {
		images, total, err := ix.objects.List(page, pageSize, objectstore.SortByCreatedAt, objectstore.SortAscending)
		if err != nil {
			return reindexed, err
		}
		if len(images) == 0 {
			break
		}

		for _, img := range images {
			if _, err := ix.vectors.Get(ctx, img.ID); err == nil {
				continue
			} else if errs.KindOf(err) != errs.NotFound {
				return reindexed, err
			}

			if err := ix.indexOne(ctx, img.ID, img.Metadata.Tags.ToSlice(), img.Metadata.Description, img.Metadata.Extra); err != nil {
				continue
			}
			reindexed++
		}

		if page*pageSize >= total {
			break
		}
	}

	return reindexed, nil
}
