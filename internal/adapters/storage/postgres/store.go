// Package postgres persists recorded actions in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/pkg/metrics"
)

//go:embed schema.sql
var schema string

// Store provides PostgreSQL-backed action persistence.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Connect opens a pool for dsn, checks it and ensures the schema exists.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.Ready(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// Ready checks that the database answers queries.
func (s *Store) Ready(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, "select 1").Scan(&one)
}

// Reset removes every stored action.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE actions`); err != nil {
		return fmt.Errorf("truncate actions: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Append implements storage.Store.
func (s *Store) Append(ctx context.Context, a model.Action) error { //nolint:gocritic // hugeParam: matches storage.Store
	defer observe("append", time.Now())
	if strings.TrimSpace(a.ActionID) == "" {
		return fmt.Errorf("%w: empty action id", storage.ErrInvalidAction)
	}
	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", storage.ErrInvalidAction, err)
	}

	tag, err := s.pool.Exec(ctx, `
INSERT INTO actions (action_id, actor_id, recipient_id, action_type, context, ts, impact_score, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (action_id) DO NOTHING`,
		a.ActionID, a.ActorID, a.RecipientID, a.ActionType, a.Context,
		a.Timestamp.UTC(), a.ImpactScore, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, a.ActionID)
	}
	return nil
}

// List implements storage.Store.
func (s *Store) List(ctx context.Context, q storage.Query) ([]model.Action, error) {
	defer observe("list", time.Now())

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.Context != "" {
		where = append(where, "context = "+arg(q.Context))
	}
	if q.ActorID != "" {
		where = append(where, "actor_id = "+arg(q.ActorID))
	}
	if !q.Since.IsZero() {
		where = append(where, "ts >= "+arg(q.Since.UTC()))
	}
	if !q.Until.IsZero() {
		where = append(where, "ts < "+arg(q.Until.UTC()))
	}

	query := `SELECT action_id, actor_id, recipient_id, action_type, context, ts, impact_score, metadata FROM actions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts ASC, seq ASC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Action, error) {
		var (
			a    model.Action
			meta []byte
		)
		if err := row.Scan(&a.ActionID, &a.ActorID, &a.RecipientID, &a.ActionType, &a.Context, &a.Timestamp, &a.ImpactScore, &meta); err != nil {
			return model.Action{}, err
		}
		a.Timestamp = a.Timestamp.UTC()
		a.Metadata = map[string]any{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &a.Metadata); err != nil {
				return model.Action{}, fmt.Errorf("decode metadata for %s: %w", a.ActionID, err)
			}
		}
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan actions: %w", err)
	}
	return out, nil
}

// Count implements storage.Store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return int(n), nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}
