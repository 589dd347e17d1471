// Package sqlite persists recorded actions in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/adapters/storage/sqlite/migrations"
	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/pkg/metrics"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed action persistence.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; workers queue on the pool instead of racing for the lock.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append implements storage.Store.
func (s *Store) Append(ctx context.Context, a model.Action) error { //nolint:gocritic // hugeParam: matches storage.Store
	defer observe("append", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(a.ActionID) == "" {
		return fmt.Errorf("%w: empty action id", storage.ErrInvalidAction)
	}

	meta, err := encodeMetadata(a.Metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidAction, err)
	}

	var recipient sql.NullString
	if r, ok := a.Recipient(); ok {
		recipient = sql.NullString{String: r, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO actions (
	action_id,
	actor_id,
	recipient_id,
	action_type,
	context,
	ts,
	impact_score,
	metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(action_id) DO NOTHING
`,
		a.ActionID,
		a.ActorID,
		recipient,
		a.ActionType,
		a.Context,
		a.Timestamp.UTC().UnixMilli(),
		a.ImpactScore,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, a.ActionID)
	}
	return nil
}

// List implements storage.Store.
func (s *Store) List(ctx context.Context, q storage.Query) ([]model.Action, error) {
	defer observe("list", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if q.Context != "" {
		where = append(where, "context = ?")
		args = append(args, q.Context)
	}
	if q.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, q.ActorID)
	}
	if !q.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.Since.UTC().UnixMilli())
	}
	if !q.Until.IsZero() {
		where = append(where, "ts < ?")
		args = append(args, q.Until.UTC().UnixMilli())
	}

	query := `
SELECT action_id, actor_id, recipient_id, action_type, context, ts, impact_score, metadata
FROM actions`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY ts ASC, rowid ASC"
	if q.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Action, 0)
	for rows.Next() {
		var (
			a         model.Action
			recipient sql.NullString
			ts        int64
			meta      string
		)
		if err := rows.Scan(&a.ActionID, &a.ActorID, &recipient, &a.ActionType, &a.Context, &ts, &a.ImpactScore, &meta); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if recipient.Valid {
			r := recipient.String
			a.RecipientID = &r
		}
		a.Timestamp = time.UnixMilli(ts).UTC()
		if a.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", a.ActionID, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return out, nil
}

// Count implements storage.Store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]any, error) {
	m := map[string]any{}
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}
