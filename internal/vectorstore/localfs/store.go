// Package localfs implements the local-file vector store mode from
// spec.md §4.3: an in-memory collection backed by a JSON snapshot
// rewritten after every mutation, searched with a brute-force cosine
// scan. No ecosystem
// embedded vector index ships anywhere in the retrieval pack, so this
// mode is a justified stdlib implementation (encoding/json + linear
// scan), acceptable at the scale this spec targets.
package localfs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/vectorstore"
)

// Store is a single-collection, single-process vector store. Writes are
// serialised under mu and snapshotted to snapshotPath after every
// mutation, so a restart replays the last durable state.
type Store struct {
	mu           sync.RWMutex
	dimension    int64
	collection   string
	snapshotPath string
	records      map[string]model.VectorRecord
}

type snapshot struct {
	Collection string               `json:"collection"`
	Dimension  int64                `json:"dimension"`
	Records    []model.VectorRecord `json:"records"`
}

// New creates or loads a Store. If snapshotPath exists it is loaded;
// otherwise a fresh empty collection is created, per spec.md §4.3's
// initialize(D, collection_name, mode).
func New(dimension int64, collection, snapshotPath string) (*Store, error) {
	s := &Store{
		dimension:    dimension,
		collection:   collection,
		snapshotPath: snapshotPath,
		records:      make(map[string]model.VectorRecord),
	}

	content, err := os.ReadFile(snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, s.persist()
		}
		return nil, errs.Wrap(errs.Internal, err, "localfs: read snapshot %s", snapshotPath)
	}

	var snap snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, errs.Wrap(errs.CorruptPayload, err, "localfs: decode snapshot %s", snapshotPath)
	}
	for _, rec := range snap.Records {
		s.records[rec.ID] = rec
	}
	return s, nil
}

func (s *Store) persist() error {
	snap := snapshot{Collection: s.collection, Dimension: s.dimension}
	for _, rec := range s.records {
		snap.Records = append(snap.Records, rec)
	}
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].ID < snap.Records[j].ID })

	content, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errs.Wrap(errs.Internal, err, "localfs: encode snapshot")
	}

	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0o755); err != nil {
		return errs.Wrap(errs.Internal, err, "localfs: create snapshot dir")
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return errs.Wrap(errs.Internal, err, "localfs: write snapshot")
	}
	return os.Rename(tmp, s.snapshotPath)
}

func (s *Store) validateDimension(vec []float64) error {
	if int64(len(vec)) != s.dimension {
		return errs.New(errs.DimensionMismatch, "localfs: vector has %d dims, collection expects %d", len(vec), s.dimension)
	}
	return nil
}

func (s *Store) Upsert(_ context.Context, record model.VectorRecord) error {
	if err := s.validateDimension(record.Vector); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return s.persist()
}

func (s *Store) UpsertBatch(_ context.Context, records []model.VectorRecord) error {
	for _, r := range records {
		if err := s.validateDimension(r.Vector); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s.persist()
}

func (s *Store) Get(_ context.Context, id string) (*model.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "localfs: record %s not found", id)
	}
	return &rec, nil
}

func (s *Store) GetBatch(_ context.Context, ids []string) ([]model.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.VectorRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) SetPayload(_ context.Context, id string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return errs.New(errs.NotFound, "localfs: record %s not found", id)
	}
	if rec.Payload == nil {
		rec.Payload = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		rec.Payload[k] = v
	}
	s.records[id] = rec
	return s.persist()
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return s.persist()
}

func (s *Store) DeleteBatch(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return s.persist()
}

func (s *Store) Search(_ context.Context, req vectorstore.SearchRequest) ([]vectorstore.ScoredRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateDimension(req.QueryVector); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]vectorstore.ScoredRecord, 0, len(s.records))
	for id, rec := range s.records {
		if !req.Filter.Matches(id, rec.Payload) {
			continue
		}
		score := vectorstore.CosineSimilarity(req.QueryVector, rec.Vector)
		// A threshold of 0 or below applies no cutoff.
		if req.ScoreThreshold > 0 && score < req.ScoreThreshold {
			continue
		}
		matches = append(matches, vectorstore.ScoredRecord{ID: id, Score: score, Payload: rec.Payload})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

func (s *Store) Scroll(_ context.Context, limit int, offset int, filter vectorstore.Filter) ([]model.VectorRecord, *int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]model.VectorRecord, 0, len(s.records))
	for id, rec := range s.records {
		if filter.Matches(id, rec.Payload) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if offset >= len(matched) {
		return nil, nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[offset:end]

	var next *int
	if end < len(matched) {
		n := end
		next = &n
	}
	return page, next, nil
}

func (s *Store) Count(_ context.Context, filter vectorstore.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for id, rec := range s.records {
		if filter.Matches(id, rec.Payload) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Info(_ context.Context) (vectorstore.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorstore.Info{
		Name:         s.collection,
		VectorsCount: int64(len(s.records)),
		PointsCount:  int64(len(s.records)),
		Status:       "green",
		Dimension:    s.dimension,
	}, nil
}
