package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"
	"unicode/utf8"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 1536

	// Newly created collections are polled until they report green status.
	readinessAttempts = 30
	readinessInterval = 2 * time.Second

	// Vector payloads carry a content preview, not the full chunk text.
	payloadContentLimit = 1000
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository handles vector operations with Qdrant
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantRepository creates a new QdrantRepository
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key)
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption

	// TLS is enabled if an API key is set or UseTLS is explicitly true
	useTLS := cfg.UseTLS || cfg.APIKey != ""

	if useTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		// Local mode: no TLS, no authentication
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist and waits for
// it to become ready. An existing collection with a mismatched vector size is
// reported as an error rather than recreated.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok {
			if size != uint64(r.vectorDimension) {
				return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
			}
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return r.waitUntilReady(ctx)
}

// waitUntilReady polls the collection status until it reports green.
func (r *QdrantRepository) waitUntilReady(ctx context.Context) error {
	for attempt := 0; attempt < readinessAttempts; attempt++ {
		info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
			CollectionName: r.collectionName,
		})
		if err == nil && info.GetResult().GetStatus() == pb.CollectionStatus_Green {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readinessInterval):
		}
	}
	return fmt.Errorf("collection %s not ready after %d attempts", r.collectionName, readinessAttempts)
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}

	config := info.GetConfig()
	if config == nil {
		return 0, false
	}

	params := config.GetParams()
	if params == nil {
		return 0, false
	}

	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}

	if paramsMap := vectors.GetParamsMap(); paramsMap != nil {
		for _, vectorParams := range paramsMap.GetMap() {
			if vectorParams == nil {
				continue
			}
			if size := vectorParams.GetSize(); size > 0 {
				return size, true
			}
		}
	}

	return 0, false
}

// ChunkPayload represents the payload stored with each chunk vector.
type ChunkPayload struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	TokenCount   int    `json:"token_count"`
	UserID       string `json:"user_id"`
	Content      string `json:"content"`
}

// ChunkPoint pairs a point ID and embedding with its payload for upsert.
type ChunkPoint struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// UpsertBatch upserts chunk points in fixed-size batches. A failed batch
// aborts the remainder so a retried document starts over cleanly.
func (r *QdrantRepository) UpsertBatch(ctx context.Context, points []ChunkPoint, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}

		batch := make([]*pb.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: p.Vector},
					},
				},
				Payload: buildChunkPayload(p.Payload),
			})
		}

		_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: r.collectionName,
			Points:         batch,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch at offset %d: %w", start, err)
		}
	}

	return nil
}

func buildChunkPayload(p ChunkPayload) map[string]*pb.Value {
	content := truncateUTF8(p.Content, payloadContentLimit)

	return map[string]*pb.Value{
		"document_id":   {Kind: &pb.Value_StringValue{StringValue: p.DocumentID}},
		"document_name": {Kind: &pb.Value_StringValue{StringValue: p.DocumentName}},
		"chunk_index":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
		"token_count":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.TokenCount)}},
		"user_id":       {Kind: &pb.Value_StringValue{StringValue: p.UserID}},
		"content":       {Kind: &pb.Value_StringValue{StringValue: content}},
	}
}

// truncateUTF8 shortens s to at most limit bytes without splitting a rune.
// Proto3 string fields must carry valid UTF-8.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// VectorSearchResult represents a scored chunk returned from Qdrant.
type VectorSearchResult struct {
	ID      string
	Score   float32
	Payload *ChunkPayload
}

// Search performs a vector similarity search scoped to a single user's chunks.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int, userID string) ([]VectorSearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}

	if userID != "" {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key: "user_id",
							Match: &pb.Match{
								MatchValue: &pb.Match_Keyword{Keyword: userID},
							},
						},
					},
				},
			},
		}
	}

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]VectorSearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = VectorSearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parseChunkPayload(scored.Payload),
		}
	}

	return results, nil
}

func parseChunkPayload(payload map[string]*pb.Value) *ChunkPayload {
	if payload == nil {
		return nil
	}

	p := &ChunkPayload{}
	if v, ok := payload["document_id"]; ok {
		p.DocumentID = v.GetStringValue()
	}
	if v, ok := payload["document_name"]; ok {
		p.DocumentName = v.GetStringValue()
	}
	if v, ok := payload["chunk_index"]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload["token_count"]; ok {
		p.TokenCount = int(v.GetIntegerValue())
	}
	if v, ok := payload["user_id"]; ok {
		p.UserID = v.GetStringValue()
	}
	if v, ok := payload["content"]; ok {
		p.Content = v.GetStringValue()
	}

	return p
}

// DeleteByIDs deletes points by ID. An empty set is a no-op.
func (r *QdrantRepository) DeleteByIDs(ctx context.Context, pointIDs []string) error {
	if len(pointIDs) == 0 {
		return nil
	}

	ids := make([]*pb.PointId, len(pointIDs))
	for i, id := range pointIDs {
		ids[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
	}

	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	return nil
}

// DeleteByDocument removes every vector belonging to a document.
func (r *QdrantRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						{
							ConditionOneOf: &pb.Condition_Field{
								Field: &pb.FieldCondition{
									Key: "document_id",
									Match: &pb.Match{
										MatchValue: &pb.Match_Keyword{Keyword: documentID},
									},
								},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete document points: %w", err)
	}

	return nil
}
