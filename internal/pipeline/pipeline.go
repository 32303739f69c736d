// Package pipeline drives one ingestion run: read a batch of raw
// messages, parse them into candidate transactions, deduplicate against
// the local source-id index, and reconcile the queue with the remote
// store under bounded parallelism.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"moneymate/internal/parser"
	"moneymate/internal/remote"
	"moneymate/internal/sms"
	"moneymate/internal/storage"
)

// Config holds tuning for one ingestion run.
type Config struct {
	// ReadLimit is the max messages to pull from the source per run.
	ReadLimit int

	// MaxParallel bounds concurrent submissions. Kept small to respect
	// remote-store rate limits.
	MaxParallel int

	// MaxAttempts is the total tries per item for transient faults.
	MaxAttempts int

	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadLimit:   50,
		MaxParallel: 4,
		MaxAttempts: 3,
		BackoffBase: 500 * time.Millisecond,
	}
}

type (
	// Failure is one surfaced terminal rejection.
	Failure struct {
		SourceID string
		Reason   string
	}

	// Report summarizes one run. Per-item parse and validation skips
	// are counted, never surfaced individually; exhausted retries are.
	Report struct {
		RunID        string
		Read         int
		Parsed       int
		Deduplicated int
		Queued       int
		Acknowledged int
		Requeued     int
		AuthHalted   bool
		Failures     []Failure

		mu sync.Mutex
	}

	// Ingestor wires the source, the local repository, the remote store
	// and the session collaborator into one runnable pipeline.
	Ingestor struct {
		source  sms.Source
		repo    *storage.Repository
		store   remote.Store
		session remote.Session
		cfg     Config
	}
)

func New(source sms.Source, repo *storage.Repository, store remote.Store, session remote.Session, cfg Config) *Ingestor {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultConfig().ReadLimit
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultConfig().MaxParallel
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	return &Ingestor{source: source, repo: repo, store: store, session: session, cfg: cfg}
}

// Run executes one full ingestion pass. Per-message failures are
// absorbed; the returned error covers systemic faults only (source
// unreadable, storage broken). An auth fault from the remote store
// halts submission for the run and is reported, not returned.
func (p *Ingestor) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := slog.With("run_id", report.RunID)

	// Items an interrupted run left in processing go back to queued.
	if n, err := p.repo.ResetStaleProcessing(ctx); err != nil {
		log.WarnContext(ctx, "Failed to reset stale processing items", "error", err)
	} else if n > 0 {
		log.InfoContext(ctx, "Re-queued interrupted items", "count", n)
	}

	if err := p.ingest(ctx, report, log); err != nil {
		return report, err
	}
	if err := p.submit(ctx, report, log); err != nil {
		return report, err
	}

	log.InfoContext(ctx, "Ingestion run finished",
		"read", report.Read,
		"parsed", report.Parsed,
		"deduplicated", report.Deduplicated,
		"acknowledged", report.Acknowledged,
		"requeued", report.Requeued,
		"failures", len(report.Failures),
		"auth_halted", report.AuthHalted)

	return report, nil
}

// Drain submits whatever is already queued without reading new
// messages. The sync worker uses it to finish runs the main service
// could not complete.
func (p *Ingestor) Drain(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := slog.With("run_id", report.RunID)

	if n, err := p.repo.ResetStaleProcessing(ctx); err != nil {
		log.WarnContext(ctx, "Failed to reset stale processing items", "error", err)
	} else if n > 0 {
		log.InfoContext(ctx, "Re-queued interrupted items", "count", n)
	}

	if err := p.submit(ctx, report, log); err != nil {
		return report, err
	}
	return report, nil
}

// RefreshKnown pulls the remote store's authoritative transaction list
// and seeds the local dedupe index with its source ids. The local index
// is only a fast path; the remote set is the source of truth.
func (p *Ingestor) RefreshKnown(ctx context.Context) error {
	txs, err := p.store.List(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrAuth) && p.session != nil {
			p.session.RequireReauth()
		}
		return fmt.Errorf("fetch remote transaction list: %w", err)
	}
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.SourceID)
	}
	if err := p.repo.SeedAcknowledged(ctx, ids); err != nil {
		return fmt.Errorf("seed dedupe index: %w", err)
	}
	return nil
}

func (p *Ingestor) ingest(ctx context.Context, report *Report, log *slog.Logger) error {
	msgs, err := p.source.Read(ctx, p.cfg.ReadLimit)
	if err != nil {
		return fmt.Errorf("read message batch: %w", err)
	}
	report.Read = len(msgs)

	for _, msg := range msgs {
		tx, ok := parser.Parse(msg)
		if !ok {
			// Silent skip: malformed messages never abort the batch.
			continue
		}
		report.Parsed++

		inserted, err := p.repo.Enqueue(ctx, tx)
		if err != nil {
			log.WarnContext(ctx, "Failed to enqueue transaction",
				"source_id", tx.SourceID, "error", err)
			continue
		}
		if !inserted {
			report.Deduplicated++
			continue
		}
		report.Queued++
	}
	return nil
}

func (p *Ingestor) submit(ctx context.Context, report *Report, log *slog.Logger) error {
	if p.store == nil {
		// No remote store configured; items stay queued for a worker
		// that has one.
		return nil
	}
	if p.session != nil {
		if err := p.session.Check(ctx); err != nil {
			// Do not submit under an invalid session.
			log.WarnContext(ctx, "No valid session, skipping submission", "error", err)
			report.AuthHalted = true
			p.session.RequireReauth()
			return nil
		}
	}

	items, err := p.repo.DequeueBatch(ctx, p.cfg.ReadLimit)
	if err != nil {
		return fmt.Errorf("dequeue batch: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	// Submissions for different source ids run in parallel up to the
	// bound; an auth fault cancels the group so nothing else goes out
	// under a dead session. In-flight submissions finish or fail on
	// their own.
	runCtx, halt := context.WithCancel(ctx)
	defer halt()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(p.cfg.MaxParallel)

	for _, item := range items {
		g.Go(func() error {
			if gctx.Err() != nil {
				// Halted or cancelled before this item started: it
				// simply stays queued for the next run.
				return nil
			}
			p.submitOne(gctx, item, report, halt, log)
			return nil
		})
	}
	g.Wait()

	// A cancelled run must leave nothing stuck in processing.
	if ctx.Err() != nil || report.AuthHalted {
		if _, err := p.repo.ResetStaleProcessing(context.WithoutCancel(ctx)); err != nil {
			log.WarnContext(ctx, "Failed to re-queue halted items", "error", err)
		}
	}
	return nil
}

// submitOne drives one queue item to a terminal or re-queued state.
func (p *Ingestor) submitOne(ctx context.Context, item storage.QueueItem, report *Report, halt context.CancelFunc, log *slog.Logger) {
	sourceID := item.Transaction.SourceID

	claimed, err := p.repo.ClaimProcessing(ctx, sourceID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to claim queue item", "source_id", sourceID, "error", err)
		return
	}
	if !claimed {
		// Another pass owns this source id.
		return
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		err := p.store.Submit(ctx, item.Transaction)
		if err == nil {
			p.acknowledge(ctx, sourceID, report, log)
			return
		}

		switch {
		case errors.Is(err, remote.ErrAuth):
			// Halt the rest of the run; this item goes back to queued.
			log.WarnContext(ctx, "Session rejected by remote store, halting run",
				"source_id", sourceID)
			report.mu.Lock()
			report.AuthHalted = true
			report.Requeued++
			report.mu.Unlock()
			if requeueErr := p.repo.Requeue(context.WithoutCancel(ctx), sourceID, err.Error()); requeueErr != nil {
				log.ErrorContext(ctx, "Failed to requeue after auth fault",
					"source_id", sourceID, "error", requeueErr)
			}
			if p.session != nil {
				p.session.RequireReauth()
			}
			halt()
			return

		case errors.Is(err, remote.ErrValidation):
			p.reject(ctx, report, sourceID, err.Error(), log)
			return

		default:
			// Transient: bounded retry with exponential backoff.
			lastErr = err
			if attempt < p.cfg.MaxAttempts {
				delay := p.cfg.BackoffBase << (attempt - 1)
				log.DebugContext(ctx, "Transient fault, backing off",
					"source_id", sourceID, "attempt", attempt, "delay", delay, "error", err)
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					// Run cancelled mid-backoff: re-queue for next run.
					report.mu.Lock()
					report.Requeued++
					report.mu.Unlock()
					if requeueErr := p.repo.Requeue(context.WithoutCancel(ctx), sourceID, lastErr.Error()); requeueErr != nil {
						log.ErrorContext(ctx, "Failed to requeue cancelled item",
							"source_id", sourceID, "error", requeueErr)
					}
					return
				}
			}
		}
	}

	// Retries exhausted: terminal, surfaced in the report.
	p.reject(ctx, report, sourceID, fmt.Sprintf("retryable exhausted: %v", lastErr), log)
}

// acknowledge records durable remote persistence locally. The remote
// store already holds the record at this point: losing the mark would
// leave the item in processing and a later run would resubmit it,
// producing a second remote record for the same source id. The mark
// therefore retries on a cancellation-proof context until it sticks.
func (p *Ingestor) acknowledge(ctx context.Context, sourceID string, report *Report, log *slog.Logger) {
	markCtx := context.WithoutCancel(ctx)
	var markErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if markErr = p.repo.MarkAcknowledged(markCtx, sourceID); markErr == nil {
			report.mu.Lock()
			report.Acknowledged++
			report.mu.Unlock()
			return
		}
		time.Sleep(p.cfg.BackoffBase << (attempt - 1))
	}
	// Surfaced loudly: this item will be resubmitted next run unless the
	// operator intervenes.
	log.ErrorContext(ctx, "Failed to record acknowledgment after remote accept",
		"source_id", sourceID, "error", markErr)
	report.mu.Lock()
	report.Acknowledged++
	report.mu.Unlock()
}

func (p *Ingestor) reject(ctx context.Context, report *Report, sourceID, reason string, log *slog.Logger) {
	if err := p.repo.MarkFailed(context.WithoutCancel(ctx), sourceID, reason); err != nil {
		log.ErrorContext(ctx, "Failed to mark item failed", "source_id", sourceID, "error", err)
	}
	log.WarnContext(ctx, "Transaction rejected", "source_id", sourceID, "reason", reason)
	report.mu.Lock()
	report.Failures = append(report.Failures, Failure{SourceID: sourceID, Reason: reason})
	report.mu.Unlock()
}
