package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tanklog/internal/amqp"
	"tanklog/internal/core"
	"tanklog/internal/services"
	"tanklog/internal/sheets"
	"tanklog/internal/storage"
)

// SyncWorker exports fillups from the local database to the configured sheet
// backend. It consumes AMQP sync messages and also sweeps the pending set as
// a recovery path for lost messages.
type SyncWorker struct {
	repo      services.Repository
	writer    sheets.FillupWriter
	deleter   sheets.FillupDeleter
	batchSize int
}

func NewSyncWorker(repo services.Repository, writer sheets.FillupWriter, deleter sheets.FillupDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		repo:      repo,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single fillup sync message from AMQP.
// Messages carry only the fillup ID; the current record is always fetched
// from the database so a stale message cannot resurrect old values.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.FillupSyncMessage) error {
	if msg.Deleted {
		return w.handleDelete(ctx, msg)
	}

	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	fillup, err := w.repo.GetFillup(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted between publish and consume. The delete message
			// will clean up the sheet.
			slog.WarnContext(ctx, "Fillup no longer exists, skipping sync", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get fillup from storage: %w", err)
	}

	if err := w.exportFillup(ctx, fillup.ID, fillup); err != nil {
		return fmt.Errorf("export fillup: %w", err)
	}
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, msg *amqp.FillupSyncMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No fillup deleter configured, skipping sheet deletion",
			"id", msg.ID)
		return nil
	}

	if err := w.deleter.DeleteFillup(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete fillup from sheet",
			"id", msg.ID,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete fillup from sheet: %w", err)
	}

	slog.InfoContext(ctx, "Deleted fillup from sheet",
		"id", msg.ID,
		"timestamp", msg.Timestamp)
	return nil
}

// ProcessPendingFillups exports any fillups that have not been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingFillups(ctx context.Context) error {
	pending, err := w.repo.GetPendingSyncFillups(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending fillups: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending fillups", "count", len(pending))
	w.exportBatch(ctx, pending)
	return nil
}

// StartupSyncCheck drains the pending set at worker startup, recovering from
// missed AMQP messages or worker downtime. It uses a larger batch than the
// periodic sweep.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.repo.GetPendingSyncFillups(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending fillups for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending fillups found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending fillups on startup, processing...",
		"count", len(pending))

	synced, failed := w.exportBatch(ctx, pending)

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) exportBatch(ctx context.Context, pending []storage.PendingSyncFillup) (synced, failed int) {
	for _, p := range pending {
		fillup, err := w.repo.GetFillup(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get fillup", "id", p.ID, "error", err)
			if err := w.repo.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			failed++
			continue
		}

		if err := w.exportFillup(ctx, p.ID, fillup); err != nil {
			slog.ErrorContext(ctx, "Failed to sync fillup", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed
}

func (w *SyncWorker) exportFillup(ctx context.Context, id int64, fillup core.Fillup) error {
	ref, err := w.writer.Append(ctx, fillup)
	if err != nil {
		if markErr := w.repo.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.repo.MarkSynced(ctx, id); err != nil {
		// The export itself worked, keep going.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Synced fillup",
		"id", id,
		"sheet_ref", ref,
		"date", fillup.Date.String())
	return nil
}
