package services

import (
	"context"

	"tanklog/internal/core"
	"tanklog/internal/storage"
)

// Repository is the persistence port the services operate against. The
// SQLite repository is the production implementation; the memory repository
// backs tests and the memory data backend.
type Repository interface {
	CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (core.Vehicle, error)
	ListVehicles(ctx context.Context) ([]core.Vehicle, error)
	RenameVehicle(ctx context.Context, id int64, name string) error

	CreateFillup(ctx context.Context, f core.Fillup) (core.Fillup, error)
	GetFillup(ctx context.Context, id int64) (core.Fillup, error)
	ListFillups(ctx context.Context, vehicleID int64) ([]core.Fillup, error)
	UpdateFillup(ctx context.Context, f core.Fillup) error
	UpdateDerived(ctx context.Context, id int64, distanceTraveled, consumption *float64) error
	DeleteFillup(ctx context.Context, id int64) error
	CreateFillupBatch(ctx context.Context, fillups []core.Fillup) ([]core.Fillup, error)

	GetPendingSyncFillups(ctx context.Context, limit int) ([]storage.PendingSyncFillup, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error

	GetVehicleStats(ctx context.Context, vehicleID int64) (storage.VehicleStats, error)

	Close() error
}

// SyncPublisher queues fillups for the export worker. The AMQP client is the
// production implementation; a nil publisher disables export entirely.
type SyncPublisher interface {
	PublishFillupSync(ctx context.Context, id, version int64) error
	PublishFillupDelete(ctx context.Context, id int64) error
}
