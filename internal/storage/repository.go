// Package storage is the local SQLite layer: the parsed-transaction
// cache, the dedupe index of known source ids, and the durable sync
// queue that survives interrupted ingestion runs.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"moneymate/internal/core"

	_ "modernc.org/sqlite"
)

// Queue states for a known source id. A source id enters the index
// exactly once; only its state changes afterwards.
const (
	StateQueued       = "queued"
	StateProcessing   = "processing"
	StateAcknowledged = "acknowledged"
	StateFailed       = "failed"
)

type (
	Repository struct {
		db *sql.DB
	}

	// QueueItem is one pending submission.
	QueueItem struct {
		Attempts    int
		LastError   string
		Transaction core.Transaction
	}

	// QueueStats counts source ids per state.
	QueueStats struct {
		Queued       int64
		Processing   int64
		Acknowledged int64
		Failed       int64
	}
)

// dsn builds the connection string. The submitter runs several
// goroutines writing through this pool, so contending writers must wait
// for the lock (busy_timeout) instead of failing with SQLITE_BUSY, and
// WAL keeps readers out of the writer's way.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Enqueue records a candidate transaction for submission. The dedupe
// check and the queue insert are one critical section: the source id is
// claimed with a conditional insert, so two overlapping read passes can
// never both enqueue the same message. Returns false when the source id
// is already known (any state).
func (r *Repository) Enqueue(ctx context.Context, t core.Transaction) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, fmt.Errorf("enqueue %s: %w", t.SourceID, err)
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx,
		`INSERT INTO source_index (source_id, state) VALUES (?, ?) ON CONFLICT (source_id) DO NOTHING`,
		t.SourceID, StateQueued)
	if err != nil {
		return false, fmt.Errorf("claim source id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Already known: duplicate, drop silently.
		return false, nil
	}

	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO transactions (source_id, amount, direction, occurred_at, category, counterparty)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.SourceID, t.Amount.String(), string(t.Direction),
		t.Timestamp.UTC().Format(time.RFC3339Nano), t.Category, t.Counterparty)
	if err != nil {
		return false, fmt.Errorf("insert transaction: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return false, fmt.Errorf("commit enqueue: %w", err)
	}
	return true, nil
}

// SeedAcknowledged marks source ids the remote store already holds. The
// remote's authoritative id set is the source of truth for dedupe; the
// local index is the fast path in front of it.
func (r *Repository) SeedAcknowledged(ctx context.Context, sourceIDs []string) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer dbtx.Rollback()

	for _, id := range sourceIDs {
		_, err := dbtx.ExecContext(ctx,
			`INSERT INTO source_index (source_id, state) VALUES (?, ?)
			 ON CONFLICT (source_id) DO UPDATE SET state = excluded.state, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
			id, StateAcknowledged)
		if err != nil {
			return fmt.Errorf("seed source id %s: %w", id, err)
		}
	}
	return dbtx.Commit()
}

// Known reports whether a source id is already in the index.
func (r *Repository) Known(ctx context.Context, sourceID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM source_index WHERE source_id = ?`, sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup source id: %w", err)
	}
	return true, nil
}

// DequeueBatch returns up to limit queued items, oldest first. Items
// stay queued until ClaimProcessing succeeds for them.
func (r *Repository) DequeueBatch(ctx context.Context, limit int) ([]QueueItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT si.attempts, si.last_error, t.source_id, t.amount, t.direction, t.occurred_at, t.category, t.counterparty
		 FROM source_index si
		 JOIN transactions t ON t.source_id = si.source_id
		 WHERE si.state = ?
		 ORDER BY si.updated_at
		 LIMIT ?`, StateQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("query queued items: %w", err)
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var (
			item              QueueItem
			amount, direction string
			occurredAt        string
		)
		if err := rows.Scan(&item.Attempts, &item.LastError,
			&item.Transaction.SourceID, &amount, &direction, &occurredAt,
			&item.Transaction.Category, &item.Transaction.Counterparty); err != nil {
			return nil, fmt.Errorf("scan queued item: %w", err)
		}
		tx, err := hydrate(item.Transaction, amount, direction, occurredAt)
		if err != nil {
			// Corrupt stored row: skip it, never fault the batch.
			slog.WarnContext(ctx, "Skipping malformed queued transaction",
				"source_id", item.Transaction.SourceID, "error", err)
			continue
		}
		item.Transaction = tx
		items = append(items, item)
	}
	return items, rows.Err()
}

// ClaimProcessing moves one queued item to processing. Returns false
// when another run claimed it first; together with Enqueue this keeps
// per-source-id submission serialized.
func (r *Repository) ClaimProcessing(ctx context.Context, sourceID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE source_index SET state = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE source_id = ? AND state = ?`,
		StateProcessing, sourceID, StateQueued)
	if err != nil {
		return false, fmt.Errorf("claim processing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkAcknowledged records durable remote persistence. Terminal.
func (r *Repository) MarkAcknowledged(ctx context.Context, sourceID string) error {
	return r.setState(ctx, sourceID, StateAcknowledged, "")
}

// MarkFailed records a terminal failure with its reason.
func (r *Repository) MarkFailed(ctx context.Context, sourceID, reason string) error {
	return r.setState(ctx, sourceID, StateFailed, reason)
}

// Requeue puts an item back in the queue for a later run, keeping the
// failure reason and bumping the attempt counter.
func (r *Repository) Requeue(ctx context.Context, sourceID, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE source_index SET state = ?, attempts = attempts + 1, last_error = ?,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE source_id = ?`,
		StateQueued, reason, sourceID)
	if err != nil {
		return fmt.Errorf("requeue %s: %w", sourceID, err)
	}
	return nil
}

// ResetStaleProcessing re-queues items an interrupted run left in
// processing, so an aborted run leaves nothing in limbo.
func (r *Repository) ResetStaleProcessing(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE source_index SET state = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE state = ?`, StateQueued, StateProcessing)
	if err != nil {
		return 0, fmt.Errorf("reset stale processing: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed puts all terminally failed items back in the queue.
func (r *Repository) RetryFailed(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE source_index SET state = ?, attempts = 0, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE state = ?`, StateQueued, StateFailed)
	if err != nil {
		return fmt.Errorf("retry failed items: %w", err)
	}
	return nil
}

// Stats returns per-state counts for reporting.
func (r *Repository) Stats(ctx context.Context) (QueueStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM source_index GROUP BY state`)
	if err != nil {
		return QueueStats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var s QueueStats
	for rows.Next() {
		var state string
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			return QueueStats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch state {
		case StateQueued:
			s.Queued = n
		case StateProcessing:
			s.Processing = n
		case StateAcknowledged:
			s.Acknowledged = n
		case StateFailed:
			s.Failed = n
		}
	}
	return s, rows.Err()
}

// ListAcknowledged returns locally cached transactions the remote store
// has confirmed, oldest first.
func (r *Repository) ListAcknowledged(ctx context.Context) ([]core.Transaction, error) {
	return r.list(ctx,
		`SELECT t.source_id, t.amount, t.direction, t.occurred_at, t.category, t.counterparty
		 FROM transactions t
		 JOIN source_index si ON si.source_id = t.source_id
		 WHERE si.state = ?
		 ORDER BY t.occurred_at`, StateAcknowledged)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t                 core.Transaction
			amount, direction string
			occurredAt        string
		)
		if err := rows.Scan(&t.SourceID, &amount, &direction, &occurredAt, &t.Category, &t.Counterparty); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx, err := hydrate(t, amount, direction, occurredAt)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed stored transaction",
				"source_id", t.SourceID, "error", err)
			continue
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *Repository) setState(ctx context.Context, sourceID, state, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE source_index SET state = ?, last_error = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 WHERE source_id = ?`, state, lastError, sourceID)
	if err != nil {
		return fmt.Errorf("set state %s for %s: %w", state, sourceID, err)
	}
	return nil
}

func hydrate(t core.Transaction, amount, direction, occurredAt string) (core.Transaction, error) {
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, occurredAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse timestamp %q: %w", occurredAt, err)
	}
	t.Amount = a
	t.Timestamp = ts
	t.Direction = core.Direction(direction)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
