package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Session statuses. A session moves pending -> processing -> ready, or to
// failed from any non-terminal state.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries wraps the session registry statements. It works against a pool, a
// connection, or a transaction.
type Queries struct {
	db dbConn
}

func New(db dbConn) *Queries {
	return &Queries{db: db}
}

type Session struct {
	ID                string
	Filename          string
	S3Key             string
	Status            string
	SchemaVersion     string
	NodeCount         int32
	RelationshipCount int32
	Error             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ChatMessage struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

type CreateSessionParams struct {
	ID       string
	Filename string
	S3Key    string
}

func (q *Queries) CreateSession(ctx context.Context, params CreateSessionParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO sessions (id, filename, s3_key, status) VALUES ($1, $2, $3, $4)`,
		params.ID, params.Filename, params.S3Key, StatusPending,
	)
	return err
}

func (q *Queries) GetSession(ctx context.Context, id string) (Session, error) {
	var s Session
	err := q.db.QueryRow(ctx,
		`SELECT id, filename, s3_key, status, schema_version, node_count, relationship_count, error, created_at, updated_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Filename, &s.S3Key, &s.Status, &s.SchemaVersion,
		&s.NodeCount, &s.RelationshipCount, &s.Error, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (q *Queries) MarkSessionProcessing(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE sessions SET status = $2, error = '', updated_at = now() WHERE id = $1`,
		id, StatusProcessing,
	)
	return err
}

type MarkSessionReadyParams struct {
	ID                string
	SchemaVersion     string
	NodeCount         int32
	RelationshipCount int32
}

func (q *Queries) MarkSessionReady(ctx context.Context, params MarkSessionReadyParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE sessions
		 SET status = $2, schema_version = $3, node_count = $4, relationship_count = $5, error = '', updated_at = now()
		 WHERE id = $1`,
		params.ID, StatusReady, params.SchemaVersion, params.NodeCount, params.RelationshipCount,
	)
	return err
}

type MarkSessionFailedParams struct {
	ID    string
	Error string
}

func (q *Queries) MarkSessionFailed(ctx context.Context, params MarkSessionFailedParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE sessions SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		params.ID, StatusFailed, params.Error,
	)
	return err
}

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

type SaveChatMessageParams struct {
	SessionID string
	Role      string
	Content   string
}

func (q *Queries) SaveChatMessage(ctx context.Context, params SaveChatMessageParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3) RETURNING id`,
		params.SessionID, params.Role, params.Content,
	).Scan(&id)
	return id, err
}

// GetChatHistory returns the most recent messages in chronological order.
func (q *Queries) GetChatHistory(ctx context.Context, sessionID string, limit int32) ([]ChatMessage, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM (
		     SELECT id, session_id, role, content, created_at
		     FROM chat_messages WHERE session_id = $1
		     ORDER BY id DESC LIMIT $2
		 ) recent
		 ORDER BY id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
