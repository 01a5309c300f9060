// Package neo4j implements graphstore.Storage on the official Bolt driver.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/sync/errgroup"

	"github.com/buildscope/bimgraph/pkg/common"
	"github.com/buildscope/bimgraph/pkg/graphstore"
	"github.com/buildscope/bimgraph/pkg/logger"
)

// nodeWriteConcurrency bounds the parallel node batches during import. Edge
// batches always run sequentially after every node batch finished.
const nodeWriteConcurrency = 4

// Store wraps a Bolt driver and the target database name.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ graphstore.Storage = (*Store)(nil)

// NewStoreParams configures the connection.
type NewStoreParams struct {
	URI      string
	Username string
	Password string
	// Database is the target database, empty for the server default.
	Database string
}

// NewStore connects to the database. The caller owns the returned store and
// must Close it.
func NewStore(params NewStoreParams) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.Username, params.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	return &Store{driver: driver, database: params.Database}, nil
}

func (s *Store) VerifyConnectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph database unreachable: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// EnsureSchema applies the constraint and index statements one by one.
// Failures are logged and tolerated so community editions and pre-existing
// equivalent constraints do not block startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, ddl := range graphstore.SchemaStatements() {
		if _, err := session.Run(ctx, ddl, nil); err != nil {
			logger.Warn("schema statement failed", "statement", ddl, "error", err)
		}
	}
	return nil
}

func (s *Store) PurgeSession(ctx context.Context, sessionID string) error {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	stmt := graphstore.PurgeStatement(sessionID)
	if _, err := session.Run(ctx, stmt.Cypher, stmt.Params); err != nil {
		return fmt.Errorf("failed to purge session %s: %w", sessionID, err)
	}
	return nil
}

// ImportModel writes the node batches (bounded parallel, independent label
// groups) and then the edge batches (sequential). The two phases are strictly
// ordered so relationship MATCHes always see their endpoints.
func (s *Store) ImportModel(ctx context.Context, sessionID string, model *common.BuildingModel) (graphstore.ImportStats, error) {
	nodeStmts := graphstore.NodeStatements(sessionID, model)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(nodeWriteConcurrency)
	for _, stmt := range nodeStmts {
		eg.Go(func() error {
			return s.runWrite(egCtx, stmt)
		})
	}
	if err := eg.Wait(); err != nil {
		return graphstore.ImportStats{}, fmt.Errorf("node import failed: %w", err)
	}

	for _, stmt := range graphstore.EdgeStatements(sessionID, model) {
		if err := s.runWrite(ctx, stmt); err != nil {
			return graphstore.ImportStats{}, fmt.Errorf("relationship import failed: %w", err)
		}
	}

	stats := graphstore.CountModel(model)
	logger.Info("model imported",
		"session", sessionID,
		"nodes", stats.Nodes,
		"relationships", stats.Relationships,
	)
	return stats, nil
}

func (s *Store) runWrite(ctx context.Context, stmt graphstore.Statement) error {
	session := s.newSession(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// ExecuteQuery runs a read query and flattens the records to maps, matching
// what the mediator hands to the language model.
func (s *Store) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := s.newSession(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var rows []map[string]any
	for result.Next(ctx) {
		rows = append(rows, result.Record().AsMap())
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

func (s *Store) newSession(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}
