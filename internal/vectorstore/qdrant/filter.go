package qdrant

import (
	"time"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/lingxi-album/backend/internal/vectorstore"
)

// ToFilter converts the spec's plain vectorstore.Filter into a Qdrant
// filter. Unlike Tangerg-lynx's AST-driven Converter (this spec has no
// general filter DSL, per spec.md §4.3's fixed filter shape), every
// non-zero field simply becomes one Must condition; the result is nil
// when the filter is empty so callers can omit it.
func ToFilter(f vectorstore.Filter) *qc.Filter {
	var must []*qc.Condition

	if len(f.TagsAny) > 0 {
		must = append(must, qc.NewMatchKeywords(tagsIndexField, f.TagsAny...))
	}

	if f.CreatedAfter != nil || f.CreatedBefore != nil {
		must = append(must, qc.NewRange(createdAtIndexField, dateRange(f.CreatedAfter, f.CreatedBefore)))
	}

	if len(f.IDsAllowlist) > 0 {
		ids := make([]*qc.PointId, len(f.IDsAllowlist))
		for i, id := range f.IDsAllowlist {
			ids[i] = qc.NewID(id)
		}
		must = append(must, qc.NewHasID(ids...))
	}

	for key, value := range f.FieldEquals {
		if cond := matchCondition(key, value); cond != nil {
			must = append(must, cond)
		}
	}

	if len(must) == 0 {
		return nil
	}
	return &qc.Filter{Must: must}
}

func dateRange(after, before *time.Time) *qc.Range {
	r := &qc.Range{}
	if after != nil {
		v := float64(after.Unix())
		r.Gt = &v
	}
	if before != nil {
		v := float64(before.Unix())
		r.Lt = &v
	}
	return r
}

func matchCondition(key string, value any) *qc.Condition {
	switch v := value.(type) {
	case string:
		return qc.NewMatchKeyword(key, v)
	case bool:
		return qc.NewMatchBool(key, v)
	case int:
		return qc.NewMatchInt(key, int64(v))
	case int64:
		return qc.NewMatchInt(key, v)
	case float64:
		return qc.NewMatchInt(key, int64(v))
	default:
		return nil
	}
}
