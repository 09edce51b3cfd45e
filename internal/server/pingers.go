package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/fundfaq/fundfaq-go/internal/catalog"
)

// CatalogPinger probes the catalog database behind the record source.
// It satisfies the Pinger interface and is used by GET /api/ready.
type CatalogPinger struct {
	// store is the catalog store to probe.
	store *catalog.SQLiteStore
}

// NewCatalogPinger constructs a CatalogPinger for the given store.
func NewCatalogPinger(store *catalog.SQLiteStore) *CatalogPinger {
	return &CatalogPinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *CatalogPinger) Name() string { return "catalog" }

// Ping verifies the catalog database connection.
func (p *CatalogPinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// Registered only when the qdrant index backend is configured.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
