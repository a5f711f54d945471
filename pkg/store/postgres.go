package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaalnet/jaal/pkg/engine"
)

// Archiver writes terminated sessions to Postgres for offline analysis. It is
// append-only: the live pipeline never reads it back.
type Archiver struct {
	pool *pgxpool.Pool
}

// NewArchiver connects to Postgres and ensures the schema exists.
func NewArchiver(ctx context.Context, dsn string) (*Archiver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	a := &Archiver{pool: pool}
	if err := a.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archiver) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			scam_type TEXT,
			confidence DOUBLE PRECISION NOT NULL,
			phase TEXT NOT NULL,
			turn_count INTEGER NOT NULL,
			urgency_level TEXT,
			red_flags JSONB,
			end_reason TEXT,
			engagement_seconds INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			turn INTEGER NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_session_idx ON messages (session_id, turn)`,
		`CREATE TABLE IF NOT EXISTS intelligence (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (session_id, type, value)
		)`,
	}

	for _, stmt := range statements {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Archive writes the final snapshot of a terminated session. Re-archiving the
// same session replaces the previous record.
func (a *Archiver) Archive(ctx context.Context, sess *engine.Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive begin: %w", err)
	}
	defer tx.Rollback(ctx)

	flags, err := json.Marshal(sess.RedFlags)
	if err != nil {
		return fmt.Errorf("encode red flags: %w", err)
	}

	endedAt := sess.LastActivityAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions
			(id, scam_type, confidence, phase, turn_count, urgency_level,
			 red_flags, end_reason, engagement_seconds, created_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			scam_type = EXCLUDED.scam_type,
			confidence = EXCLUDED.confidence,
			phase = EXCLUDED.phase,
			turn_count = EXCLUDED.turn_count,
			urgency_level = EXCLUDED.urgency_level,
			red_flags = EXCLUDED.red_flags,
			end_reason = EXCLUDED.end_reason,
			engagement_seconds = EXCLUDED.engagement_seconds,
			ended_at = EXCLUDED.ended_at`,
		sess.ID, sess.ScamType, sess.Confidence, string(sess.Phase),
		sess.TurnCount, sess.UrgencyLevel, flags, sess.EndReason,
		sess.EngagementSeconds(), sess.CreatedAt, endedAt)
	if err != nil {
		return fmt.Errorf("archive session %s: %w", sess.ID, err)
	}

	// Replace child rows wholesale; simpler than diffing on re-archive.
	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, sess.ID); err != nil {
		return fmt.Errorf("archive messages %s: %w", sess.ID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM intelligence WHERE session_id = $1`, sess.ID); err != nil {
		return fmt.Errorf("archive intelligence %s: %w", sess.ID, err)
	}

	var rows [][]any
	for _, m := range sess.Messages {
		rows = append(rows, []any{sess.ID, m.Turn, string(m.Role), m.Text, m.Time})
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"messages"},
			[]string{"session_id", "turn", "role", "text", "sent_at"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("archive messages %s: %w", sess.ID, err)
		}
	}

	for _, byValue := range sess.Identifiers {
		for _, id := range byValue {
			_, err = tx.Exec(ctx, `
				INSERT INTO intelligence (session_id, type, value, confidence)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT DO NOTHING`,
				sess.ID, string(id.Type), id.Value, id.Confidence)
			if err != nil {
				return fmt.Errorf("archive intelligence %s: %w", sess.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive commit %s: %w", sess.ID, err)
	}
	return nil
}

// Close releases the connection pool.
func (a *Archiver) Close() {
	a.pool.Close()
}
