package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/buildscope/bimgraph/internal/db"
	"github.com/buildscope/bimgraph/internal/storage"
	"github.com/buildscope/bimgraph/internal/util"
	"github.com/buildscope/bimgraph/pkg/graphstore"
	"github.com/buildscope/bimgraph/pkg/leaselock"
	"github.com/buildscope/bimgraph/pkg/logger"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessDeleteMessage removes everything belonging to a session: the graph
// partition, the uploaded files, and the registry row. The lease serializes
// deletion against a concurrent ingest of the same session.
func ProcessDeleteMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	graphStore graphstore.Storage,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(DeleteMessage)
	if err := decodeMessage(msg, data); err != nil {
		return err
	}
	if !util.IsSessionID(data.SessionID) {
		return fmt.Errorf("malformed session id: %q", data.SessionID)
	}

	start := time.Now()

	lockClient := leaselock.New(conn)
	lease, err := lockClient.Acquire(ctx, "session:"+data.SessionID, leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: fmt.Sprintf("delete/%s/", data.SessionID),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()

	err = util.RetryErrWithContext(lease.Context, 3, func(ctx context.Context) error {
		return graphStore.PurgeSession(ctx, data.SessionID)
	})
	if err != nil {
		return err
	}

	prefix := "sessions/" + data.SessionID + "/"
	if err := storage.DeleteFolder(lease.Context, s3Client, prefix); err != nil {
		return err
	}

	q := db.New(conn)
	if err := q.DeleteSession(ctx, data.SessionID); err != nil {
		return err
	}

	logger.Info("[Queue] Delete completed",
		"session_id", data.SessionID,
		"duration_sec", time.Since(start).Seconds(),
	)

	return nil
}
