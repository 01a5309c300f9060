// Command ingest manages model sessions from the command line: upload a
// file and enqueue its import, check progress, or delete a session.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buildscope/bimgraph/internal/db"
	"github.com/buildscope/bimgraph/internal/queue"
	"github.com/buildscope/bimgraph/internal/storage"
	"github.com/buildscope/bimgraph/internal/util"
	"github.com/buildscope/bimgraph/pkg/logger"
	"github.com/buildscope/bimgraph/pkg/logger/console"

	"github.com/spf13/cobra"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	}))

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Manage building model sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(uploadCmd(), statusCmd(), deleteCmd())

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a model file and enqueue its import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			sessionID, err := util.NewSessionID()
			if err != nil {
				return err
			}
			filename := filepath.Base(path)

			s3Client := storage.NewS3Client(ctx)
			key, err := storage.PutFile(ctx, s3Client, "sessions/"+sessionID, filename, sessionID, file)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			pgConn, err := db.Connect(ctx)
			if err != nil {
				return err
			}
			defer pgConn.Close()

			q := db.New(pgConn)
			err = q.CreateSession(ctx, db.CreateSessionParams{
				ID:       sessionID,
				Filename: filename,
				S3Key:    key,
			})
			if err != nil {
				return err
			}

			if err := publish(queue.IngestQueue, queue.IngestMessage{
				SessionID: sessionID,
				FileKey:   key,
				Filename:  filename,
			}); err != nil {
				return err
			}

			logger.Info("Upload enqueued", "session_id", sessionID, "file", filename)
			fmt.Println(sessionID)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessionID := args[0]
			if !util.IsSessionID(sessionID) {
				return fmt.Errorf("malformed session id: %q", sessionID)
			}

			pgConn, err := db.Connect(ctx)
			if err != nil {
				return err
			}
			defer pgConn.Close()

			session, err := db.New(pgConn).GetSession(ctx, sessionID)
			if err != nil {
				return err
			}

			fmt.Printf("session:       %s\n", session.ID)
			fmt.Printf("file:          %s\n", session.Filename)
			fmt.Printf("status:        %s\n", session.Status)
			if session.SchemaVersion != "" {
				fmt.Printf("schema:        %s\n", session.SchemaVersion)
			}
			if session.Status == db.StatusReady {
				fmt.Printf("nodes:         %d\n", session.NodeCount)
				fmt.Printf("relationships: %d\n", session.RelationshipCount)
			}
			if session.Error != "" {
				fmt.Printf("error:         %s\n", session.Error)
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Enqueue deletion of a session and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			if !util.IsSessionID(sessionID) {
				return fmt.Errorf("malformed session id: %q", sessionID)
			}

			if err := publish(queue.DeleteQueue, queue.DeleteMessage{
				SessionID: sessionID,
			}); err != nil {
				return err
			}

			logger.Info("Delete enqueued", "session_id", sessionID)
			return nil
		},
	}
}

func publish(queueName string, payload any) error {
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return util.RetryErr(3, func() error {
		return queue.PublishFIFO(ch, queueName, data)
	})
}
