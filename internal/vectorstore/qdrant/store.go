// Package qdrant implements the remote vector-store mode from
// spec.md §4.3 against a real Qdrant collection. Grounded on
// Tangerg-lynx's ai/providers/vectorstores/qdrant/store.go (collection
// init, point struct building, payload<->Qdrant value conversion),
// adapted from the document-batcher/embedding-model composition to the
// spec's plain (id, vector, payload) record shape.
package qdrant

import (
	"context"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/vectorstore"
)

const Provider = "qdrant"

const tagsIndexField = "tags"
const createdAtIndexField = "created_at"

// Store adapts *qdrant.Client to the vectorstore.Store contract.
type Store struct {
	client         *qc.Client
	collectionName string
	dimension      int64
}

// Open connects the collection, creating it with cosine distance and
// the tags/created_at payload indexes when absent, per spec.md §4.3's
// initialize(D, collection_name, mode).
func Open(ctx context.Context, client *qc.Client, collectionName string, dimension int64) (*Store, error) {
	if client == nil {
		return nil, errs.New(errs.Misconfigured, "qdrant: client is required")
	}
	if collectionName == "" {
		return nil, errs.New(errs.Misconfigured, "qdrant: collection name is required")
	}

	s := &Store{client: client, collectionName: collectionName, dimension: dimension}
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return errs.Wrap(errs.ProviderUnavailable, err, "qdrant: check collection existence")
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qc.Distance_Cosine,
		}),
	})
	if err != nil {
		return errs.Wrap(errs.ProviderUnavailable, err, "qdrant: create collection %s", s.collectionName)
	}

	for _, field := range []string{tagsIndexField, createdAtIndexField} {
		fieldType := qc.FieldType_FieldTypeKeyword
		if field == createdAtIndexField {
			fieldType = qc.FieldType_FieldTypeDatetime
		}
		_, err := s.client.CreateFieldIndex(ctx, &qc.CreateFieldIndexCollection{
			CollectionName: s.collectionName,
			FieldName:      field,
			FieldType:      &fieldType,
		})
		if err != nil {
			return errs.Wrap(errs.ProviderUnavailable, err, "qdrant: create field index %s", field)
		}
	}

	return nil
}

func (s *Store) validateDimension(vec []float64) error {
	if int64(len(vec)) != s.dimension {
		return errs.New(errs.DimensionMismatch, "qdrant: vector has %d dims, collection expects %d", len(vec), s.dimension)
	}
	return nil
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

func (s *Store) buildPoint(record model.VectorRecord) (*qc.PointStruct, error) {
	if err := s.validateDimension(record.Vector); err != nil {
		return nil, err
	}
	payload, err := qc.TryValueMap(record.Payload)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "qdrant: convert payload to value map")
	}
	return &qc.PointStruct{
		Id:      qc.NewID(record.ID),
		Vectors: qc.NewVectors(toFloat32(record.Vector)...),
		Payload: payload,
	}, nil
}

func (s *Store) Upsert(ctx context.Context, record model.VectorRecord) error {
	return s.UpsertBatch(ctx, []model.VectorRecord{record})
}

func (s *Store) UpsertBatch(ctx context.Context, records []model.VectorRecord) error {
	points := make([]*qc.PointStruct, 0, len(records))
	for _, r := range records {
		p, err := s.buildPoint(r)
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	_, err := s.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           qc.PtrOf(true),
	})
	if err != nil {
		return errs.Wrap(errs.ProviderUnavailable, err, "qdrant: upsert %d points", len(points))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.VectorRecord, error) {
	records, err := s.GetBatch(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errs.New(errs.NotFound, "qdrant: record %s not found", id)
	}
	return &records[0], nil
}

func (s *Store) GetBatch(ctx context.Context, ids []string) ([]model.VectorRecord, error) {
	qdrantIDs := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		qdrantIDs[i] = qc.NewID(id)
	}

	points, err := s.client.Get(ctx, &qc.GetPoints{
		CollectionName: s.collectionName,
		Ids:            qdrantIDs,
		WithVectors:    qc.NewWithVectors(true),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "qdrant: get %d points", len(ids))
	}

	out := make([]model.VectorRecord, 0, len(points))
	for _, p := range points {
		out = append(out, model.VectorRecord{
			ID:      p.GetId().GetUuid(),
			Vector:  fromQdrantVector(p.GetVectors()),
			Payload: convertPayload(p.GetPayload()),
		})
	}
	return out, nil
}

func (s *Store) SetPayload(ctx context.Context, id string, partial map[string]any) error {
	payload, err := qc.TryValueMap(partial)
	if err != nil {
		return errs.Wrap(errs.Internal, err, "qdrant: convert partial payload")
	}

	_, err = s.client.SetPayload(ctx, &qc.SetPayloadPoints{
		CollectionName: s.collectionName,
		Payload:        payload,
		PointsSelector: qc.NewPointsSelector(qc.NewID(id)),
	})
	if err != nil {
		return errs.Wrap(errs.ProviderUnavailable, err, "qdrant: set payload on %s", id)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.DeleteBatch(ctx, []string{id})
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) error {
	qdrantIDs := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		qdrantIDs[i] = qc.NewID(id)
	}

	_, err := s.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: s.collectionName,
		Points:         qc.NewPointsSelectorIDs(qdrantIDs),
	})
	if err != nil {
		return errs.Wrap(errs.ProviderUnavailable, err, "qdrant: delete %d points", len(ids))
	}
	return nil
}

func (s *Store) Search(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.ScoredRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateDimension(req.QueryVector); err != nil {
		return nil, err
	}

	query := &qc.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qc.NewQuery(toFloat32(req.QueryVector)...),
		Limit:          qc.PtrOf(uint64(req.TopK)),
		WithPayload:    qc.NewWithPayload(true),
	}
	if req.ScoreThreshold > 0 {
		query.ScoreThreshold = qc.PtrOf(float32(req.ScoreThreshold))
	}
	if filter := ToFilter(req.Filter); filter != nil {
		query.Filter = filter
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "qdrant: query collection %s", s.collectionName)
	}

	out := make([]vectorstore.ScoredRecord, 0, len(points))
	for _, p := range points {
		out = append(out, vectorstore.ScoredRecord{
			ID:      p.GetId().GetUuid(),
			Score:   float64(p.GetScore()),
			Payload: convertPayload(p.GetPayload()),
		})
	}
	return out, nil
}

func (s *Store) Scroll(ctx context.Context, limit int, offset int, filter vectorstore.Filter) ([]model.VectorRecord, *int, error) {
	scrollReq := &qc.ScrollPoints{
		CollectionName: s.collectionName,
		Limit:          qc.PtrOf(uint32(limit)),
		WithVectors:    qc.NewWithVectors(true),
		WithPayload:    qc.NewWithPayload(true),
	}
	if qf := ToFilter(filter); qf != nil {
		scrollReq.Filter = qf
	}
	if offset > 0 {
		scrollReq.Offset = qc.NewIDNum(uint64(offset))
	}

	points, nextOffset, err := s.client.Scroll(ctx, scrollReq)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ProviderUnavailable, err, "qdrant: scroll collection %s", s.collectionName)
	}

	out := make([]model.VectorRecord, 0, len(points))
	for _, p := range points {
		out = append(out, model.VectorRecord{
			ID:      p.GetId().GetUuid(),
			Vector:  fromQdrantVector(p.GetVectors()),
			Payload: convertPayload(p.GetPayload()),
		})
	}

	var next *int
	if nextOffset != nil {
		n := int(nextOffset.GetNum())
		next = &n
	}
	return out, next, nil
}

func (s *Store) Count(ctx context.Context, filter vectorstore.Filter) (int64, error) {
	req := &qc.CountPoints{CollectionName: s.collectionName}
	if qf := ToFilter(filter); qf != nil {
		req.Filter = qf
	}
	count, err := s.client.Count(ctx, req)
	if err != nil {
		return 0, errs.Wrap(errs.ProviderUnavailable, err, "qdrant: count collection %s", s.collectionName)
	}
	return int64(count), nil
}

func (s *Store) Info(ctx context.Context) (vectorstore.Info, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		return vectorstore.Info{}, errs.Wrap(errs.ProviderUnavailable, err, "qdrant: get collection info %s", s.collectionName)
	}
	return vectorstore.Info{
		Name:         s.collectionName,
		VectorsCount: int64(info.GetVectorsCount()),
		PointsCount:  int64(info.GetPointsCount()),
		Status:       info.GetStatus().String(),
		Dimension:    s.dimension,
	}, nil
}

func fromQdrantVector(v *qc.VectorOutput) []float64 {
	if v == nil {
		return nil
	}
	dense := v.GetDense()
	if dense == nil {
		return nil
	}
	out := make([]float64, len(dense.GetData()))
	for i, f := range dense.GetData() {
		out[i] = float64(f)
	}
	return out
}

func convertQdrantValue(value *qc.Value) any {
	if value == nil {
		return nil
	}
	switch kind := value.GetKind().(type) {
	case *qc.Value_DoubleValue:
		return kind.DoubleValue
	case *qc.Value_IntegerValue:
		return kind.IntegerValue
	case *qc.Value_StringValue:
		return kind.StringValue
	case *qc.Value_BoolValue:
		return kind.BoolValue
	case *qc.Value_StructValue:
		return convertStruct(kind.StructValue)
	case *qc.Value_ListValue:
		return convertList(kind.ListValue)
	default:
		return nil
	}
}

func convertStruct(s *qc.Struct) map[string]any {
	if s == nil {
		return nil
	}
	out := make(map[string]any, len(s.GetFields()))
	for k, v := range s.GetFields() {
		out[k] = convertQdrantValue(v)
	}
	return out
}

func convertList(l *qc.ListValue) []any {
	if l == nil {
		return nil
	}
	out := make([]any, len(l.GetValues()))
	for i, v := range l.GetValues() {
		out[i] = convertQdrantValue(v)
	}
	return out
}

func convertPayload(payload map[string]*qc.Value) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = convertQdrantValue(v)
	}
	return out
}
