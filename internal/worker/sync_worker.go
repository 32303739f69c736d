package worker

import (
	"context"
	"fmt"
	"log/slog"

	"moneymate/internal/amqp"
	"moneymate/internal/pipeline"
	"moneymate/internal/storage"
)

// SyncWorker drains the durable sync queue in the background: promptly
// when the service publishes a sync request, and periodically as a
// backup in case bus messages are lost.
type SyncWorker struct {
	ingestor *pipeline.Ingestor
	repo     *storage.Repository
}

func NewSyncWorker(ingestor *pipeline.Ingestor, repo *storage.Repository) *SyncWorker {
	return &SyncWorker{ingestor: ingestor, repo: repo}
}

// HandleSyncRequest processes one sync request from the bus.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	slog.InfoContext(ctx, "Processing sync request",
		"run_id", msg.RunID,
		"queued", msg.Queued)

	report, err := w.ingestor.Drain(ctx)
	if err != nil {
		return fmt.Errorf("drain sync queue: %w", err)
	}

	if report.AuthHalted {
		// Not retryable from here: the queue stays in the database and
		// the session collaborator has been signalled. Requeueing the
		// bus message would just spin against a dead session.
		slog.WarnContext(ctx, "Sync halted pending re-authentication",
			"run_id", msg.RunID)
		return nil
	}

	slog.InfoContext(ctx, "Sync request completed",
		"run_id", msg.RunID,
		"acknowledged", report.Acknowledged,
		"failures", len(report.Failures))

	return nil
}

// ProcessPending submits anything still queued. This is the backup
// mechanism in case bus messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get queue stats: %w", err)
	}
	if stats.Queued == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "queued", stats.Queued)

	report, err := w.ingestor.Drain(ctx)
	if err != nil {
		return fmt.Errorf("drain pending: %w", err)
	}

	if len(report.Failures) > 0 {
		slog.WarnContext(ctx, "Pending sync finished with rejections",
			"acknowledged", report.Acknowledged,
			"failures", len(report.Failures))
	}
	return nil
}

// StartupSyncCheck refreshes the dedupe index from the remote store and
// drains whatever survived the last shutdown. Useful to recover from
// missed bus messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if err := w.ingestor.RefreshKnown(ctx); err != nil {
		// The local index still works as a fast path; keep going.
		slog.WarnContext(ctx, "Could not refresh known source ids", "error", err)
	}

	report, err := w.ingestor.Drain(ctx)
	if err != nil {
		return fmt.Errorf("startup drain: %w", err)
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"acknowledged", report.Acknowledged,
		"requeued", report.Requeued,
		"failures", len(report.Failures))

	return nil
}
