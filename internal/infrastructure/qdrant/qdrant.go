// Package qdrant implements the vector store over the official Qdrant Go
// SDK. Query embedding happens here so the retrieval core only deals in
// query text.
package qdrant

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/zhang-liz/Enterprise-rag-system/internal/domain/repository"
)

// vectorSize matches the embedding model's output dimension. 768 is the
// dimension of nomic-embed-text and other common local models.
const vectorSize = 768

// grpcMaxRecvBytes bounds responses from Qdrant; large payloads with full
// text can exceed the 4MB gRPC default.
const grpcMaxRecvBytes = 32 << 20

// payloadTextFields are stripped from hit metadata; the raw text travels in
// the result content instead.
var payloadTextFields = map[string]struct{}{
	"text": {}, "full_text": {}, "chunk_id": {}, "doc_id": {},
}

// Client implements repository.VectorRepository.
type Client struct {
	client     *pb.Client
	embedder   repository.EmbeddingClient
	collection string
}

// NewClient connects to Qdrant and ensures the target collection exists.
func NewClient(host string, port int, collection string, embedder repository.EmbeddingClient) (*Client, error) {
	client, err := pb.NewClient(&pb.Config{
		Host: host,
		Port: port,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(grpcMaxRecvBytes)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}

	c := &Client{
		client:     client,
		embedder:   embedder,
		collection: collection,
	}

	if err := c.ensureCollection(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure collection %q: %w", collection, err)
	}

	log.Printf("[Qdrant] Connected to %s:%d, collection=%s", host, port, collection)
	return c, nil
}

// ensureCollection creates the collection if it does not already exist.
func (c *Client) ensureCollection(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &pb.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
			Size:     vectorSize,
			Distance: pb.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	log.Printf("[Qdrant] Created collection %q", c.collection)
	return nil
}

// SemanticSearch embeds the query text and returns the nearest neighbours
// above scoreThreshold. A non-empty modality filters hits to that payload
// modality.
func (c *Client) SemanticSearch(ctx context.Context, query string, limit int, scoreThreshold float64, modality string) ([]repository.VectorHit, error) {
	if c.embedder == nil {
		return nil, fmt.Errorf("embedding client not configured")
	}

	vectors, err := c.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	req := &pb.QueryPoints{
		CollectionName: c.collection,
		Query:          pb.NewQueryDense(vectors[0]),
		Limit:          pb.PtrOf(uint64(limit)),
		ScoreThreshold: pb.PtrOf(float32(scoreThreshold)),
		WithPayload:    pb.NewWithPayload(true),
	}
	if modality != "" {
		req.Filter = &pb.Filter{
			Must: []*pb.Condition{pb.NewMatch("modality", modality)},
		}
	}

	points, err := c.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	hits := make([]repository.VectorHit, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()

		hit := repository.VectorHit{
			ID:       hitID(payload, point.GetId()),
			Text:     payload["text"].GetStringValue(),
			Score:    float64(point.GetScore()),
			Metadata: make(map[string]any, len(payload)),
		}
		for key, value := range payload {
			if _, drop := payloadTextFields[key]; drop {
				continue
			}
			hit.Metadata[key] = valueToAny(value)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// AddChunks embeds and upserts document chunks. Point IDs are stable for
// the same file and chunk index so re-ingestion overwrites.
func (c *Client) AddChunks(ctx context.Context, fileID string, chunks []string, metadata map[string]any) error {
	if c.embedder == nil {
		return fmt.Errorf("embedding client not configured")
	}

	var texts []string
	var indices []int
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		texts = append(texts, chunk)
		indices = append(indices, i)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("chunk embedding failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(texts), len(vectors))
	}

	points := make([]*pb.PointStruct, 0, len(texts))
	for n, text := range texts {
		chunkID := fmt.Sprintf("%s_chunk_%d", fileID, indices[n])

		payload := map[string]any{
			"chunk_id":    chunkID,
			"file_id":     fileID,
			"chunk_index": indices[n],
			"text":        text,
		}
		for k, v := range metadata {
			payload[k] = v
		}

		points = append(points, &pb.PointStruct{
			Id:      pb.NewIDUUID(pointID(chunkID)),
			Vectors: pb.NewVectors(vectors[n]...),
			Payload: pb.NewValueMap(payload),
		})
	}

	_, err = c.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	log.Printf("[Qdrant] Upserted %d points for file %s", len(points), fileID)
	return nil
}

// DeleteDocument deletes all points belonging to a file by payload filter.
func (c *Client) DeleteDocument(ctx context.Context, docID string) error {
	_, err := c.client.Delete(ctx, &pb.DeletePoints{
		CollectionName: c.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						pb.NewMatch("file_id", docID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed for doc %s: %w", docID, err)
	}

	log.Printf("[Qdrant] Deleted points for doc %s", docID)
	return nil
}

// Statistics reports the vector count and collection parameters.
func (c *Client) Statistics(ctx context.Context) (map[string]any, error) {
	count, err := c.client.Count(ctx, &pb.CountPoints{
		CollectionName: c.collection,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant count failed: %w", err)
	}

	return map[string]any{
		"num_vectors":     count,
		"vector_size":     vectorSize,
		"distance_metric": pb.Distance_Cosine.String(),
	}, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// pointID derives a stable, Qdrant-compatible UUID from a string ID.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(id)).String()
}

// hitID prefers the chunk or document ID stored in the payload and falls
// back to the point's own UUID.
func hitID(payload map[string]*pb.Value, id *pb.PointId) string {
	if v := payload["chunk_id"].GetStringValue(); v != "" {
		return v
	}
	if v := payload["doc_id"].GetStringValue(); v != "" {
		return v
	}
	return id.GetUuid()
}

// valueToAny converts a Qdrant payload value to a plain Go value. The
// closed set of kinds keeps downstream serialization deterministic.
func valueToAny(v *pb.Value) any {
	switch kind := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_StructValue:
		fields := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, fv := range kind.StructValue.GetFields() {
			fields[k] = valueToAny(fv)
		}
		return fields
	case *pb.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, 0, len(values))
		for _, lv := range values {
			list = append(list, valueToAny(lv))
		}
		return list
	default:
		return nil
	}
}
