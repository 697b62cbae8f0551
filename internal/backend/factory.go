package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tanklog/internal/adapters"
	"tanklog/internal/amqp"
	"tanklog/internal/services"
	gsheet "tanklog/internal/sheets/google"
	"tanklog/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional; without it fillups stay local and the export
	// processor picks them up if a worker runs against the same database.
	var publisher services.SyncPublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = amqpClient
		}
	}

	// Without a broker but with a spreadsheet configured, export inline on
	// the request path instead of queueing for a worker.
	if publisher == nil && config.GoogleSpreadsheetID != "" {
		sheetClient, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			f.logger.Warn("Failed to initialize Google Sheets client, export disabled", "error", err)
		} else {
			publisher = adapters.NewDirectExporter(repo, sheetClient, sheetClient)
			f.logger.Info("Initialized direct sheet export",
				"spreadsheet_id", config.GoogleSpreadsheetID)
		}
	}

	backend := f.buildServices(repo, publisher, config)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Backend: backend,
		Cleanup: backend.Fillups.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	repo := storage.NewMemoryRepository()
	backend := f.buildServices(repo, nil, config)

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Backend: backend,
		Cleanup: nil,
	}, nil
}

func (f *DefaultFactory) buildServices(repo services.Repository, publisher services.SyncPublisher, config Config) *Backend {
	return &Backend{
		Repo:     repo,
		Fillups:  services.NewFillupService(repo, publisher),
		Vehicles: services.NewVehicleService(repo),
		Imports:  services.NewImportService(repo, publisher, config.ImportMaxRows),
		Stats:    services.NewStatsService(repo),
	}
}
