package adapters

import (
	"context"
	"fmt"
	"log/slog"

	"tanklog/internal/services"
	"tanklog/internal/sheets"
)

// DirectExporter implements services.SyncPublisher by writing straight to the
// sheet backend, for deployments that run without a broker. Where the AMQP
// publisher only queues the ID, this adapter performs the export inline on
// the request path, so it trades latency for not needing a worker process.
type DirectExporter struct {
	repo    services.Repository
	writer  sheets.FillupWriter
	deleter sheets.FillupDeleter
}

func NewDirectExporter(repo services.Repository, writer sheets.FillupWriter, deleter sheets.FillupDeleter) *DirectExporter {
	return &DirectExporter{
		repo:    repo,
		writer:  writer,
		deleter: deleter,
	}
}

var _ services.SyncPublisher = (*DirectExporter)(nil)

// PublishFillupSync exports the fillup immediately instead of queueing it.
func (e *DirectExporter) PublishFillupSync(ctx context.Context, id, version int64) error {
	fillup, err := e.repo.GetFillup(ctx, id)
	if err != nil {
		return fmt.Errorf("get fillup for export: %w", err)
	}

	ref, err := e.writer.Append(ctx, fillup)
	if err != nil {
		if markErr := e.repo.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := e.repo.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.DebugContext(ctx, "Exported fillup directly",
		"id", id,
		"version", version,
		"sheet_ref", ref)
	return nil
}

// PublishFillupDelete removes the exported row immediately.
func (e *DirectExporter) PublishFillupDelete(ctx context.Context, id int64) error {
	if e.deleter == nil {
		slog.WarnContext(ctx, "No deleter configured, exported row kept", "id", id)
		return nil
	}
	if err := e.deleter.DeleteFillup(ctx, id); err != nil {
		return fmt.Errorf("delete from sheet: %w", err)
	}
	return nil
}
