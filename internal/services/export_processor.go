package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tanklog/internal/sheets"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to check for pending fillups (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of fillups to export per poll cycle (default: 10)
	BatchSize int
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
	}
}

// ExportProcessor periodically pushes pending fillups to the export target.
// It is the safety net behind the AMQP path: fillups whose sync message was
// lost are still picked up on the next poll.
type ExportProcessor struct {
	repo   Repository
	writer sheets.FillupWriter
	config ExportProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportProcessor creates a new export processor
func NewExportProcessor(repo Repository, writer sheets.FillupWriter, config ExportProcessorConfig) *ExportProcessor {
	return &ExportProcessor{
		repo:   repo,
		writer: writer,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Signal stop
	close(p.stopCh)

	// Wait for completion or context cancellation
	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

// processBatch exports one batch of pending fillups
func (p *ExportProcessor) processBatch(ctx context.Context) {
	pending, err := p.repo.GetPendingSyncFillups(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load pending fillups", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	slog.DebugContext(ctx, "Exporting pending fillups", "count", len(pending))

	for _, item := range pending {
		// Check if we should stop
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.exportOne(ctx, item.ID); err != nil {
			slog.WarnContext(ctx, "Fillup export failed",
				"id", item.ID, "error", err)
			if markErr := p.repo.MarkSyncError(ctx, item.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark fillup sync error",
					"id", item.ID, "error", markErr)
			}
		}
	}
}

func (p *ExportProcessor) exportOne(ctx context.Context, id int64) error {
	fillup, err := p.repo.GetFillup(ctx, id)
	if err != nil {
		return fmt.Errorf("get fillup %d: %w", id, err)
	}

	ref, err := p.writer.Append(ctx, fillup)
	if err != nil {
		return fmt.Errorf("append to export target: %w", err)
	}

	if err := p.repo.MarkSynced(ctx, id); err != nil {
		slog.WarnContext(ctx, "Failed to mark fillup as synced",
			"id", id, "error", err)
		// Don't fail - the export itself succeeded
	}

	slog.InfoContext(ctx, "Exported fillup",
		"id", id,
		"sheets_ref", ref)

	return nil
}
