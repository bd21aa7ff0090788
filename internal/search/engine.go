package search

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/lingxi-album/backend/internal/embedding"
	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/vectorstore"
)

// Result is one decorated search hit. Score is nil for metadata-only
// results that carry no similarity score, per spec.md §4.4.
type Result struct {
	ID         string
	Score      *float64
	Payload    map[string]any
	PreviewURL string
}

const (
	metaScrollPageSize   = 256
	metaFetchCeiling     = 5000
	monthDayFetchCeiling = 20000
	monthDayIDCeiling    = 5000
)

// ImageBytesSource resolves a stored image id back to its bytes, so
// image-id queries can be embedded the same way as raw-byte queries.
// Satisfied by *internal/objectstore.Store.
type ImageBytesSource interface {
	Get(id string) ([]byte, string, error)
}

// Engine composes an embedding.Provider and a vectorstore.Store to
// serve the query kinds of spec.md §4.4.
type Engine struct {
	embed  embedding.Provider
	store  vectorstore.Store
	images ImageBytesSource
}

// New creates an Engine.
func New(embed embedding.Provider, store vectorstore.Store, images ImageBytesSource) *Engine {
	return &Engine{embed: embed, store: store, images: images}
}

func decorate(id string, score *float64, payload map[string]any) Result {
	return Result{ID: id, Score: score, Payload: payload, PreviewURL: "/images/" + id}
}

func decorateScored(records []vectorstore.ScoredRecord) []Result {
	return lo.Map(records, func(r vectorstore.ScoredRecord, _ int) Result {
		score := r.Score
		return decorate(r.ID, &score, r.Payload)
	})
}

// SearchByText computes a text embedding with the indexing instruction
// (spec.md §4.4 point 1: query and corpus vectors must share a space)
// and searches once.
func (e *Engine) SearchByText(ctx context.Context, query string, topK int, scoreThreshold float64, tags []string) ([]Result, error) {
	vec, err := e.embed.Embed(ctx, embedding.Input{Text: query, Instruction: embedding.DefaultIndexInstruction, Normalize: true})
	if err != nil {
		return nil, err
	}

	records, err := e.store.Search(ctx, vectorstore.SearchRequest{
		QueryVector:    vec,
		TopK:           topK,
		ScoreThreshold: scoreThreshold,
		Filter:         vectorstore.Filter{TagsAny: tags},
	})
	if err != nil {
		return nil, err
	}
	return decorateScored(records), nil
}

// ImageQuery supplies either raw bytes or the id of an already-stored
// image.
type ImageQuery struct {
	ID    string
	Bytes []byte
}

// SearchByImage embeds the query image with the indexing instruction
// and searches once. When the query originates from a stored id, that
// id is excluded from the result set.
func (e *Engine) SearchByImage(ctx context.Context, query ImageQuery, topK int, scoreThreshold float64, tags []string) ([]Result, error) {
	if query.ID == "" && len(query.Bytes) == 0 {
		return nil, errs.New(errs.InvalidInput, "search: image query requires an id or bytes")
	}

	imageBytes := query.Bytes
	if query.ID != "" && len(imageBytes) == 0 {
		content, _, err := e.images.Get(query.ID)
		if err != nil {
			return nil, err
		}
		imageBytes = content
	}

	vec, err := e.embed.Embed(ctx, embedding.Input{ImageBytes: imageBytes, Instruction: embedding.DefaultIndexInstruction, Normalize: true})
	if err != nil {
		return nil, err
	}

	records, err := e.store.Search(ctx, vectorstore.SearchRequest{
		QueryVector:    vec,
		TopK:           topK,
		ScoreThreshold: scoreThreshold,
		Filter:         vectorstore.Filter{TagsAny: tags},
	})
	if err != nil {
		return nil, err
	}

	results := decorateScored(records)
	if query.ID != "" {
		results = lo.Filter(results, func(r Result, _ int) bool { return r.ID != query.ID })
	}
	return results, nil
}

// SearchHybrid computes one multimodal embedding for the combined
// text+image input and searches once, per spec.md §4.4 point 3.
func (e *Engine) SearchHybrid(ctx context.Context, text string, imageBytes []byte, topK int, scoreThreshold float64, tags []string) ([]Result, error) {
	vec, err := e.embed.Embed(ctx, embedding.Input{
		Text:        text,
		ImageBytes:  imageBytes,
		Instruction: "Find images matching both the text description and visual content.",
		Normalize:   true,
	})
	if err != nil {
		return nil, err
	}

	records, err := e.store.Search(ctx, vectorstore.SearchRequest{
		QueryVector:    vec,
		TopK:           topK,
		ScoreThreshold: scoreThreshold,
		Filter:         vectorstore.Filter{TagsAny: tags},
	})
	if err != nil {
		return nil, err
	}
	return decorateScored(records), nil
}

// SearchByMeta resolves an optional date_text (§6 grammar) and tag
// filter purely at the metadata level, per spec.md §4.4 point 4.
func (e *Engine) SearchByMeta(ctx context.Context, dateText string, tags []string, topK int) ([]Result, error) {
	if dateText == "" {
		return e.scrollSortedByDate(ctx, vectorstore.Filter{TagsAny: tags}, topK)
	}

	parsed, ok := ParseDateText(dateText)
	if !ok {
		return nil, nil
	}

	if parsed.Year != nil {
		start := time.Date(*parsed.Year, time.Month(parsed.Month), parsed.Day, 0, 0, 0, 0, time.UTC)
		end := start.Add(24 * time.Hour)
		return e.scrollSortedByDate(ctx, vectorstore.Filter{TagsAny: tags, CreatedAfter: &start, CreatedBefore: &end}, topK)
	}

	return e.monthDayScan(ctx, parsed.Month, parsed.Day, tags, topK)
}

// SearchByTextWithMeta combines a text query vector with a metadata
// constraint, per spec.md §4.4 point 5: a fully-specified year becomes
// a store-level date range; a bare month/day becomes a pre-computed
// ids_allowlist from the month/day scan.
func (e *Engine) SearchByTextWithMeta(ctx context.Context, query, dateText string, tags []string, topK int, scoreThreshold float64) ([]Result, error) {
	filter := vectorstore.Filter{TagsAny: tags}

	if dateText != "" {
		if parsed, ok := ParseDateText(dateText); ok {
			if parsed.Year != nil {
				start := time.Date(*parsed.Year, time.Month(parsed.Month), parsed.Day, 0, 0, 0, 0, time.UTC)
				end := start.Add(24 * time.Hour)
				filter.CreatedAfter = &start
				filter.CreatedBefore = &end
			} else {
				ids, err := e.listIDsByMonthDay(ctx, parsed.Month, parsed.Day, tags)
				if err != nil {
					return nil, err
				}
				filter.IDsAllowlist = ids
			}
		}
	}

	vec, err := e.embed.Embed(ctx, embedding.Input{Text: query, Instruction: embedding.DefaultIndexInstruction, Normalize: true})
	if err != nil {
		return nil, err
	}

	records, err := e.store.Search(ctx, vectorstore.SearchRequest{
		QueryVector:    vec,
		TopK:           topK,
		ScoreThreshold: scoreThreshold,
		Filter:         filter,
	})
	if err != nil {
		return nil, err
	}
	return decorateScored(records), nil
}

// scrollSortedByDate pages through the store under filter, sorts by
// created_at descending (ties by id), and caps at topK.
func (e *Engine) scrollSortedByDate(ctx context.Context, filter vectorstore.Filter, topK int) ([]Result, error) {
	var all []model.VectorRecord
	offset := 0
	for fetched := 0; fetched < metaFetchCeiling; {
		page, next, err := e.store.Scroll(ctx, metaScrollPageSize, offset, filter)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		fetched += len(page)
		if next == nil {
			break
		}
		offset = *next
	}

	sortRecordsByDateDesc(all)
	if len(all) > topK {
		all = all[:topK]
	}

	return lo.Map(all, func(r model.VectorRecord, _ int) Result {
		return decorate(r.ID, nil, r.Payload)
	}), nil
}

// monthDayScan falls back to a bounded scroll over tag-filtered
// records, rejecting any whose created_at doesn't match month/day, per
// spec.md §4.4 point 4's hard fetch ceiling.
func (e *Engine) monthDayScan(ctx context.Context, month, day int, tags []string, topK int) ([]Result, error) {
	matches, err := e.scanMonthDay(ctx, month, day, tags, metaFetchCeiling)
	if err != nil {
		return nil, err
	}

	sortRecordsByDateDesc(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return lo.Map(matches, func(r model.VectorRecord, _ int) Result {
		return decorate(r.ID, nil, r.Payload)
	}), nil
}

func (e *Engine) listIDsByMonthDay(ctx context.Context, month, day int, tags []string) ([]string, error) {
	matches, err := e.scanMonthDay(ctx, month, day, tags, monthDayFetchCeiling)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(matches, func(r model.VectorRecord, _ int) string { return r.ID })
	if len(ids) > monthDayIDCeiling {
		ids = ids[:monthDayIDCeiling]
	}
	return ids, nil
}

func (e *Engine) scanMonthDay(ctx context.Context, month, day int, tags []string, fetchCeiling int) ([]model.VectorRecord, error) {
	var matches []model.VectorRecord
	offset := 0
	for fetched := 0; fetched < fetchCeiling && len(matches) < monthDayIDCeiling; {
		page, next, err := e.store.Scroll(ctx, metaScrollPageSize, offset, vectorstore.Filter{TagsAny: tags})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		fetched += len(page)
		for _, rec := range page {
			createdAt, ok := recordCreatedAt(rec)
			if !ok {
				continue
			}
			if int(createdAt.Month()) == month && createdAt.Day() == day {
				matches = append(matches, rec)
			}
		}
		if next == nil {
			break
		}
		offset = *next
	}
	return matches, nil
}

func recordCreatedAt(rec model.VectorRecord) (time.Time, bool) {
	raw, ok := rec.Payload[model.PayloadCreatedAt]
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

func sortRecordsByDateDesc(records []model.VectorRecord) {
	sort.Slice(records, func(i, j int) bool {
		ti, oki := recordCreatedAt(records[i])
		tj, okj := recordCreatedAt(records[j])
		if oki && okj && !ti.Equal(tj) {
			return ti.After(tj)
		}
		if oki != okj {
			return oki
		}
		return records[i].ID < records[j].ID
	})
}
