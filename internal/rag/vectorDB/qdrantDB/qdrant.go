package qdrantDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ClientHolder struct {
	QObj      *qdrant.Client
	batchSize int
	logger    *logger_i.Logger
}

type Options struct {
	Host        string
	Port        int
	UseTLS      bool
	PoolSize    uint
	APIKey      string
	UpsertBatch int
}

func New(opts Options) (*ClientHolder, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     opts.Host,
		Port:     opts.Port,
		APIKey:   opts.APIKey,
		UseTLS:   opts.UseTLS,
		PoolSize: opts.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}
	return NewFromClient(client, opts.UpsertBatch), nil
}

func NewFromClient(client *qdrant.Client, upsertBatch int) *ClientHolder {
	if upsertBatch <= 0 {
		upsertBatch = config.UpsertBatchSize
	}
	return &ClientHolder{
		QObj:      client,
		batchSize: upsertBatch,
		logger:    logger_i.NewLogger("Qdrant"),
	}
}

func (db *ClientHolder) Close() error {
	db.logger.Info("Shutting down Qdrant")
	if err := db.QObj.Close(); err != nil {
		db.logger.Error("could not close Qdrant", "error", err)
		return err
	}
	return nil
}

func (db *ClientHolder) EnsureCollection(ctx context.Context, name string, dim int, distance vectorDB.Distance) error {
	if name == "" {
		return errors.New("empty collection name")
	}
	if distance != vectorDB.Cosine {
		return fmt.Errorf("unsupported distance %q", distance)
	}
	log := db.logger.With("traceId", ctx.Value(config.TraceIDKey), "collection", name)

	exists, err := db.QObj.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return db.checkDimension(ctx, name, dim)
	}

	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if status.Code(err) == codes.AlreadyExists {
		// another worker won the race
		return db.checkDimension(ctx, name, dim)
	}
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	log.Info("Created collection", "dimension", dim)

	for _, field := range []string{vectorDB.FieldDocId, vectorDB.FieldSection} {
		_, err = db.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeKeyword),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			// searches still work without the index, only slower
			log.Warn("could not create payload index", "field", field, "error", err)
		}
	}
	return nil
}

func (db *ClientHolder) checkDimension(ctx context.Context, name string, dim int) error {
	info, err := db.QObj.GetCollectionInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("read collection %s: %w", name, err)
	}
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && size != uint64(dim) {
		return fmt.Errorf("collection %s has dimension %d, embedder produces %d: %w", name, size, dim, embedding.ErrDimensionMismatch)
	}
	return nil
}

func (db *ClientHolder) Upsert(ctx context.Context, collectionName string, points []commonModels.IndexPoint) error {
	for start := 0; start < len(points); start += db.batchSize {
		end := min(start+db.batchSize, len(points))
		qdrantPoints := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
				Id:      qdrant.NewID(p.Id),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(vectorDB.PayloadMap(p.Payload)),
			})
		}

		_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collectionName,
			Points:         qdrantPoints,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("qdrant upsert of points %d-%d failed: %w", start, end-1, err)
		}
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, collection string, vector []float32, topK int, filter vectorDB.Filter) ([]vectorDB.Hit, error) {
	loggr := db.logger.With("traceId", ctx.Value(config.TraceIDKey), "collection", collection)
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if status.Code(err) == codes.NotFound {
		loggr.Debug("collection does not exist, no hits")
		return []vectorDB.Hit{}, nil
	}
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	hits := make([]vectorDB.Hit, 0, len(result))
	for _, point := range result {
		hits = append(hits, vectorDB.Hit{
			Id:      pointIdString(point.GetId()),
			Score:   point.GetScore(),
			Payload: fromQdrantPayload(point.GetPayload()),
		})
	}
	loggr.Debug("Found matches", "count", len(hits))
	return hits, nil
}

func (db *ClientHolder) DeleteByFilter(ctx context.Context, collection string, filter vectorDB.Filter) error {
	if len(filter) == 0 {
		return vectorDB.ErrEmptyFilter
	}
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(toQdrantFilter(filter)),
		Wait:           qdrant.PtrOf(true),
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("qdrant delete in %s failed: %w", collection, err)
	}
	return nil
}

func (db *ClientHolder) Count(ctx context.Context, collection string, filter vectorDB.Filter) (int, error) {
	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter:         toQdrantFilter(filter),
		Exact:          qdrant.PtrOf(true),
	})
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func toQdrantFilter(filter vectorDB.Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return &qdrant.Filter{}
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for _, m := range filter {
		switch v := m.Value.(type) {
		case int:
			must = append(must, qdrant.NewMatchInt(m.Field, int64(v)))
		case int64:
			must = append(must, qdrant.NewMatchInt(m.Field, v))
		default:
			must = append(must, qdrant.NewMatch(m.Field, fmt.Sprint(v)))
		}
	}
	return &qdrant.Filter{Must: must}
}

func fromQdrantPayload(payload map[string]*qdrant.Value) commonModels.Payload {
	return commonModels.Payload{
		DocId:       payload[vectorDB.FieldDocId].GetStringValue(),
		ChunkIndex:  int(payload[vectorDB.FieldChunkIndex].GetIntegerValue()),
		FileName:    payload[vectorDB.FieldFileName].GetStringValue(),
		Text:        payload[vectorDB.FieldText].GetStringValue(),
		KnowledgeId: payload[vectorDB.FieldKnowledgeId].GetStringValue(),
		Section:     payload[vectorDB.FieldSection].GetStringValue(),
		TokenCount:  int(payload[vectorDB.FieldTokenCount].GetIntegerValue()),
	}
}

func pointIdString(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprint(id.GetNum())
}
