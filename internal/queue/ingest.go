package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/buildscope/bimgraph/internal/db"
	"github.com/buildscope/bimgraph/internal/storage"
	"github.com/buildscope/bimgraph/internal/util"
	"github.com/buildscope/bimgraph/pkg/extract"
	"github.com/buildscope/bimgraph/pkg/graphstore"
	"github.com/buildscope/bimgraph/pkg/ifc"
	"github.com/buildscope/bimgraph/pkg/leaselock"
	"github.com/buildscope/bimgraph/pkg/logger"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessIngestMessage runs the full import pipeline for one uploaded model:
// download, parse, extract, purge the session's partition, and import. The
// purge-then-import order makes redelivery of the same message idempotent.
func ProcessIngestMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	graphStore graphstore.Storage,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(IngestMessage)
	if err := decodeMessage(msg, data); err != nil {
		return err
	}
	if !util.IsSessionID(data.SessionID) {
		return fmt.Errorf("malformed session id: %q", data.SessionID)
	}

	q := db.New(conn)

	if err := q.MarkSessionProcessing(ctx, data.SessionID); err != nil {
		return err
	}

	fail := func(err error) error {
		markErr := q.MarkSessionFailed(ctx, db.MarkSessionFailedParams{
			ID:    data.SessionID,
			Error: util.SanitizePostgresText(err.Error()),
		})
		if markErr != nil {
			logger.Error("Failed to mark session failed", "session_id", data.SessionID, "err", markErr)
		}
		return err
	}

	start := time.Now()

	lockClient := leaselock.New(conn)
	lease, err := lockClient.Acquire(ctx, "session:"+data.SessionID, leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: fmt.Sprintf("ingest/%s/", data.SessionID),
	})
	if err != nil {
		return fail(err)
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()

	fileData, err := util.RetryWithContext(lease.Context, 3, func(ctx context.Context) ([]byte, error) {
		return storage.GetFile(ctx, s3Client, data.FileKey)
	})
	if err != nil {
		return fail(err)
	}

	model, err := ifc.Decode(fileData)
	if err != nil {
		return fail(fmt.Errorf("failed to parse model file %s: %w", data.Filename, err))
	}
	logger.Info("[Queue] Parsed model file",
		"session_id", data.SessionID,
		"schema", model.Header.Schema,
		"entities", model.Count(),
	)

	building := extract.FromModel(model)

	err = util.RetryErrWithContext(lease.Context, 3, func(ctx context.Context) error {
		return graphStore.PurgeSession(ctx, data.SessionID)
	})
	if err != nil {
		return fail(err)
	}

	stats, err := graphStore.ImportModel(lease.Context, data.SessionID, building)
	if err != nil {
		return fail(err)
	}

	err = q.MarkSessionReady(ctx, db.MarkSessionReadyParams{
		ID:                data.SessionID,
		SchemaVersion:     building.SchemaVersion,
		NodeCount:         int32(stats.Nodes),
		RelationshipCount: int32(stats.Relationships),
	})
	if err != nil {
		return err
	}

	logger.Info("[Queue] Ingest completed",
		"session_id", data.SessionID,
		"nodes", stats.Nodes,
		"relationships", stats.Relationships,
		"duration_sec", time.Since(start).Seconds(),
	)

	return nil
}
