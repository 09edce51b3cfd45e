package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantIndex implements VectorIndex against a Qdrant instance. Qdrant
// computes cosine similarity server-side, so vectors are stored as given.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig

	// mu guards nextID. Point IDs are assigned sequentially so repeated
	// Adds never collide.
	mu     sync.Mutex
	nextID uint64
}

// NewQdrantIndex creates a QdrantIndex, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use index.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}

	count, err := idx.Count(ctx)
	if err != nil {
		return nil, err
	}
	idx.nextID = uint64(count)

	return idx, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", q.cfg.Collection, err)
	}

	return nil
}

// Add upserts passages with their embeddings as sequentially numbered points.
func (q *QdrantIndex) Add(ctx context.Context, passages []Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return NewError(ClassDimensionMismatch,
			"qdrant: passages and vectors length mismatch")
	}
	for _, v := range vectors {
		if uint64(len(v)) != q.cfg.VectorSize {
			return NewError(ClassDimensionMismatch, "qdrant: vector dimensionality mismatch")
		}
	}

	q.mu.Lock()
	base := q.nextID
	q.nextID += uint64(len(passages))
	q.mu.Unlock()

	points := make([]*qdrant.PointStruct, 0, len(passages))
	for i, p := range passages {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(base + uint64(i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"text":        p.Text,
				"record_name": p.RecordName,
				"source_url":  p.SourceURL,
				"kind":        p.Kind,
				"field":       p.Field,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search performs a server-side cosine similarity search and returns the
// top-k passages.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int) ([]ScoredPassage, error) {
	if uint64(len(vector)) != q.cfg.VectorSize {
		return nil, NewError(ClassDimensionMismatch, "qdrant: query vector dimensionality mismatch")
	}

	limit := uint64(topK)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	scored := make([]ScoredPassage, 0, len(results))
	for _, r := range results {
		sp := ScoredPassage{
			Score:    r.Score,
			Distance: 1 - r.Score,
		}
		if p := r.Payload; p != nil {
			if v, ok := p["text"]; ok {
				sp.Text = v.GetStringValue()
			}
			if v, ok := p["record_name"]; ok {
				sp.RecordName = v.GetStringValue()
			}
			if v, ok := p["source_url"]; ok {
				sp.SourceURL = v.GetStringValue()
			}
			if v, ok := p["kind"]; ok {
				sp.Kind = v.GetStringValue()
			}
			if v, ok := p["field"]; ok {
				sp.Field = v.GetStringValue()
			}
		}
		scored = append(scored, sp)
	}

	return scored, nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	exact := true
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(count), nil
}

// Clear drops and recreates the collection.
func (q *QdrantIndex) Clear(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
		return fmt.Errorf("qdrant: failed to delete collection %q: %w", q.cfg.Collection, err)
	}
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}

	q.mu.Lock()
	q.nextID = 0
	q.mu.Unlock()

	return nil
}

// Client exposes the underlying gRPC client, for health probes.
func (q *QdrantIndex) Client() *qdrant.Client {
	return q.client
}

// Close closes the underlying Qdrant gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
