package qdrantDB

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/domain/docModel"
	"github.com/plantdex/plantdex/internal/domain/faults"
	"github.com/plantdex/plantdex/internal/vectorStore"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

type ClientHolder struct {
	qObj   *qdrant.Client
	logger *logger_i.Logger
}

// New dials Qdrant over gRPC. The client is shut down when ctx is
// cancelled, mirroring the lifetime of every other external service.
func New(ctx context.Context, cfg config.Settings) (vectorStore.Store, error) {
	logger := logger_i.NewLogger("Qdrant")

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.VectorStoreHost,
		Port:     cfg.VectorStorePort,
		UseTLS:   cfg.VectorStoreTLS,
		PoolSize: uint(config.QdrantPoolSize),
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:    config.QdrantKeepAliveTimeout,
				Timeout: config.QdrantConnectionTimeout,
			}),
		},
	})
	if err != nil {
		return nil, faults.Wrap(faults.KindFatal, "could not instantiate qdrant client", err)
	}

	// grpc dials lazily; a bounded health check surfaces a dead endpoint now
	pingCtx, pingCancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer pingCancel()
	if _, err := client.HealthCheck(pingCtx); err != nil {
		return nil, faults.Wrap(faults.KindFatal, "qdrant is unreachable", err)
	}

	holder := &ClientHolder{qObj: client, logger: logger}
	go holder.closeOnDone(ctx)
	return holder, nil
}

func (db *ClientHolder) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	db.logger.Info("Shutting down Qdrant")
	if err := db.qObj.Close(); err != nil {
		db.logger.Error("could not close Qdrant: ", "error:", err)
	}
}

// PointID derives the deterministic UUID Qdrant needs from a chunk ID.
// Same chunk, same point: re-ingests upsert in place.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (db *ClientHolder) EnsureCollection(ctx context.Context, name string, dim uint64) error {
	if name == "" {
		return faults.New(faults.KindInput, "empty collection name")
	}

	exists, err := db.qObj.CollectionExists(ctx, name)
	if err != nil {
		return faults.Transient("collection existence check failed", err)
	}
	if exists {
		info, err := db.qObj.GetCollectionInfo(ctx, name)
		if err != nil {
			return faults.Transient("collection info fetch failed", err)
		}
		if existing := collectionDim(info); existing != 0 && existing != dim {
			return faults.Integrity("collection %s has dimension %d, embedder wants %d",
				name, existing, dim)
		}
		return nil
	}

	err = db.qObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		// concurrent first-touch: losing the create race is fine
		exists, checkErr := db.qObj.CollectionExists(ctx, name)
		if checkErr == nil && exists {
			return nil
		}
		return faults.Transient("collection creation failed", err)
	}
	return nil
}

func (db *ClientHolder) Upsert(ctx context.Context, collection string, points []vectorStore.Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payloadMap, err := payloadToMap(p.Payload)
		if err != nil {
			return faults.Wrap(faults.KindPerFile, "payload serialization failed", err)
		}
		payloadMap["content"] = p.Content
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payloadMap),
		}
	}

	_, err := db.qObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return faults.Transient("qdrant upsert failed", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, collection string, vector []float32, k int, filter vectorStore.Filter) ([]vectorStore.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	// every point carries a non-empty permissions list, so a caller with no
	// roles can never match anything
	if len(filter.RolesAny) == 0 {
		return nil, nil
	}

	result, err := db.qObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, faults.Transient("qdrant query failed", err)
	}

	hits := make([]vectorStore.Hit, 0, len(result))
	for _, scored := range result {
		payload, content, err := payloadFromValues(scored.Payload)
		if err != nil {
			db.logger.Warn("Dropping hit with unreadable payload", "error", err)
			continue
		}
		hits = append(hits, vectorStore.Hit{
			ID:      payload.ChunkID,
			Score:   scored.Score,
			Content: content,
			Payload: payload,
		})
	}
	return hits, nil
}

func (db *ClientHolder) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(PointID(id))
	}
	_, err := db.qObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return faults.Transient("qdrant delete failed", err)
	}
	return nil
}

// DeleteByDoc removes every chunk of a withdrawn document from one
// collection; the caller cascades over all collections.
func (db *ClientHolder) DeleteByDoc(ctx context.Context, collection string, docNo string) error {
	_, err := db.qObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("doc_no", docNo)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return faults.Transient("qdrant delete-by-doc failed", err)
	}
	return nil
}

func (db *ClientHolder) ListCollections(ctx context.Context) ([]vectorStore.CollectionInfo, error) {
	names, err := db.qObj.ListCollections(ctx)
	if err != nil {
		return nil, faults.Transient("qdrant list collections failed", err)
	}

	infos := make([]vectorStore.CollectionInfo, 0, len(names))
	for _, name := range names {
		info := vectorStore.CollectionInfo{Name: name}
		if detail, err := db.qObj.GetCollectionInfo(ctx, name); err == nil {
			info.Dim = collectionDim(detail)
			if detail.PointsCount != nil {
				info.Points = *detail.PointsCount
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (db *ClientHolder) Count(ctx context.Context, collection string) (uint64, error) {
	count, err := db.qObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, faults.Transient("qdrant count failed", err)
	}
	return count, nil
}

func buildFilter(filter vectorStore.Filter) *qdrant.Filter {
	var must []*qdrant.Condition

	addMatch := func(field, value string) {
		if value != "" {
			must = append(must, qdrant.NewMatch(field, value))
		}
	}
	addMatch("project_id", filter.ProjectID)
	addMatch("object_id", filter.ObjectID)
	addMatch("discipline", string(filter.Discipline))
	addMatch("doc_type", string(filter.DocType))
	addMatch("doc_no", filter.DocNo)
	addMatch("language", filter.Language)
	addMatch("rev", filter.Rev)
	addMatch("confidentiality", string(filter.Confidentiality))

	if len(filter.TagsAny) > 0 {
		must = append(must, qdrant.NewMatchKeywords("tags", filter.TagsAny...))
	}
	must = append(must, qdrant.NewMatchKeywords("permissions", filter.RolesAny...))
	for _, nr := range filter.Numeric {
		qr := &qdrant.Range{}
		if nr.Min != nil {
			qr.Gte = nr.Min
		}
		if nr.Max != nil {
			qr.Lte = nr.Max
		}
		must = append(must, qdrant.NewRange("numeric."+nr.Key, qr))
	}

	return &qdrant.Filter{Must: must}
}

func collectionDim(info *qdrant.CollectionInfo) uint64 {
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0
	}
	return params.Size
}

// payloadToMap flattens the closed payload record into the generic map the
// client wants. JSON is the bridge: the payload's json tags are the wire
// names the filters use.
func payloadToMap(payload docModel.Payload) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func payloadFromValues(values map[string]*qdrant.Value) (docModel.Payload, string, error) {
	var payload docModel.Payload
	m := make(map[string]any, len(values))
	for key, value := range values {
		m[key] = valueToAny(value)
	}
	content, _ := m["content"].(string)
	delete(m, "content")

	raw, err := json.Marshal(m)
	if err != nil {
		return payload, "", err
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, "", err
	}
	if payload.ChunkID == "" {
		return payload, "", errors.New("payload has no chunk_id")
	}
	return payload, content, nil
}

func valueToAny(value *qdrant.Value) any {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, valueToAny(item))
		}
		return out
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for k, v := range fields {
			out[k] = valueToAny(v)
		}
		return out
	default:
		return nil
	}
}
