// Package qdrant provides a VectorStore adapter backed by a Qdrant
// collection over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Config holds the Qdrant connection settings.
type Config struct {
	// Host is the Qdrant server hostname. Default "localhost".
	Host string

	// Port is the gRPC port, not the HTTP REST port. Default 6334.
	Port int

	// Collection is the collection all chunk points live in.
	Collection string

	// APIKey authenticates against a managed Qdrant. Empty for local.
	APIKey string

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool
}

// Store is a VectorStore backed by one Qdrant collection. Chunk IDs
// are UUIDs and double as the Qdrant point IDs, so upserts and deletes
// address points directly.
type Store struct {
	client     *qdrant.Client
	collection string
}

// New creates a Qdrant-backed vector store. The connection is lazy;
// call HealthCheck to verify the server is reachable.
func New(cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant collection name is required", domain.ErrInvalidInput)
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	return &Store{
		client:     client,
		collection: cfg.Collection,
	}, nil
}

// EnsureCollection verifies the collection exists with the given
// dimensions, creating it if absent. A dimension mismatch is fatal:
// stored vectors from another model cannot be compared against new
// ones, so startup must abort rather than mix them.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return s.createCollection(ctx, dimensions)
		}
		return wrapErr("inspecting collection", err)
	}

	existing := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if existing != uint64(dimensions) {
		return fmt.Errorf("%w: collection %s has %d dimensions, embedding model produces %d",
			domain.ErrDimensionMismatch, s.collection, existing, dimensions)
	}
	return nil
}

func (s *Store) createCollection(ctx context.Context, dimensions int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return wrapErr("creating collection", err)
	}
	return nil
}

// Upsert writes chunk points. Waits for durability so callers can
// record sync state immediately after.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: chunkPayload(chunk),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return wrapErr("upserting points", err)
	}
	return nil
}

// Delete removes points by chunk ID. Missing IDs are not an error.
func (s *Store) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = qdrant.NewIDUUID(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: ids},
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return wrapErr("deleting points", err)
	}
	return nil
}

// ExistingIDs returns the subset of chunk IDs that already have stored
// vectors.
func (s *Store) ExistingIDs(ctx context.Context, chunkIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return existing, nil
	}

	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = qdrant.NewIDUUID(id)
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(false),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, wrapErr("getting points", err)
	}

	for _, point := range points {
		if id := point.GetId().GetUuid(); id != "" {
			existing[id] = true
		}
	}
	return existing, nil
}

// Query finds the k nearest chunks to the query vector.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]driven.QueryHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildFilter(filter),
	})
	if err != nil {
		return nil, wrapErr("querying points", err)
	}

	hits := make([]driven.QueryHit, len(points))
	for i, point := range points {
		hits[i] = driven.QueryHit{
			ChunkID: point.GetId().GetUuid(),
			Score:   point.GetScore(),
			Payload: payloadStrings(point.GetPayload()),
		}
	}
	return hits, nil
}

// HealthCheck validates the store is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return wrapErr("qdrant health check", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// chunkPayload builds the point payload. Filterable identity fields
// first, then the chunk's own metadata. Metadata cannot overwrite an
// identity field.
func chunkPayload(chunk domain.Chunk) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"source_id":    stringValue(chunk.SourceID),
		"path":         stringValue(chunk.Path),
		"content_hash": stringValue(chunk.ContentHash),
		"chunk_index":  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(chunk.Index)}},
		"content":      stringValue(chunk.Content),
	}
	for key, value := range chunk.Metadata {
		if _, reserved := payload[key]; !reserved {
			payload[key] = stringValue(value)
		}
	}
	return payload
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

// buildFilter converts a string filter map into Must conditions.
func buildFilter(filter map[string]string) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: key,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: value},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

// payloadStrings flattens a point payload into the port's string map.
func payloadStrings(payload map[string]*qdrant.Value) map[string]string {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]string, len(payload))
	for key, value := range payload {
		switch kind := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[key] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = strconv.FormatInt(kind.IntegerValue, 10)
		case *qdrant.Value_DoubleValue:
			out[key] = strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64)
		case *qdrant.Value_BoolValue:
			out[key] = strconv.FormatBool(kind.BoolValue)
		}
	}
	return out
}

// wrapErr maps gRPC failure codes onto domain errors. Unavailability
// and deadline failures are retryable; everything else is not.
func wrapErr(op string, err error) error {
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrTransient, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
