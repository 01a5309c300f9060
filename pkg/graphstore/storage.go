// Package graphstore defines the session-partitioned graph storage contract
// and the Cypher statements that materialize a building model. The statement
// builders are pure functions over pkg/common records; the driver lives in
// the neo4j subpackage.
package graphstore

import (
	"context"

	"github.com/buildscope/bimgraph/pkg/common"
)

// Storage is the graph-side surface the worker and the mediator depend on.
type Storage interface {
	// VerifyConnectivity checks the database is reachable.
	VerifyConnectivity(ctx context.Context) error

	// EnsureSchema creates the uniqueness constraints and indexes. Individual
	// failures (already-existing equivalents, edition limits) are logged and
	// tolerated.
	EnsureSchema(ctx context.Context) error

	// PurgeSession detaches and deletes every node of the session.
	PurgeSession(ctx context.Context, sessionID string) error

	// ImportModel writes the extracted model into the session's partition.
	// Nodes are written strictly before relationships, so edges can only
	// bind nodes materialized in the same import.
	ImportModel(ctx context.Context, sessionID string, model *common.BuildingModel) (ImportStats, error)

	// ExecuteQuery runs a read query and returns the records as maps.
	ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

	// Close releases the underlying driver.
	Close(ctx context.Context) error
}

// ImportStats summarizes one import for the session registry.
type ImportStats struct {
	Nodes         int
	Relationships int
}
