package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tanklog/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a vehicle or fillup does not exist.
var ErrNotFound = errors.New("record not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateVehicle stores a new vehicle and returns it with its assigned ID.
func (r *SQLiteRepository) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	row, err := r.queries.CreateVehicle(ctx, CreateVehicleParams{
		Name:            v.Name,
		InitialOdometer: v.InitialOdometer,
		MileageMode:     string(v.Mode),
	})
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}

	slog.InfoContext(ctx, "Vehicle saved to SQLite",
		"id", row.ID,
		"name", row.Name,
		"mileage_mode", row.MileageMode)

	return vehicleFromRow(row), nil
}

func (r *SQLiteRepository) GetVehicle(ctx context.Context, id int64) (core.Vehicle, error) {
	row, err := r.queries.GetVehicle(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Vehicle{}, fmt.Errorf("get vehicle: %w", err)
	}
	return vehicleFromRow(row), nil
}

func (r *SQLiteRepository) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	rows, err := r.queries.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	vehicles := make([]core.Vehicle, len(rows))
	for i, row := range rows {
		vehicles[i] = vehicleFromRow(row)
	}
	return vehicles, nil
}

// RenameVehicle changes the display name. Mileage mode and initial odometer
// stay fixed for the lifetime of the vehicle.
func (r *SQLiteRepository) RenameVehicle(ctx context.Context, id int64, name string) error {
	if _, err := r.GetVehicle(ctx, id); err != nil {
		return err
	}
	if err := r.queries.RenameVehicle(ctx, id, name); err != nil {
		return fmt.Errorf("rename vehicle: %w", err)
	}
	return nil
}

// CreateFillup stores a validated fillup and returns it with its assigned ID.
func (r *SQLiteRepository) CreateFillup(ctx context.Context, f core.Fillup) (core.Fillup, error) {
	row, err := r.queries.CreateFillup(ctx, createParamsFromFillup(f))
	if err != nil {
		return core.Fillup{}, fmt.Errorf("create fillup: %w", err)
	}

	slog.InfoContext(ctx, "Fillup saved to SQLite",
		"id", row.ID,
		"vehicle_id", row.VehicleID,
		"date", row.FillupDate,
		"fuel_amount", row.FuelAmount)

	return fillupFromRow(row)
}

func (r *SQLiteRepository) GetFillup(ctx context.Context, id int64) (core.Fillup, error) {
	row, err := r.queries.GetFillup(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Fillup{}, fmt.Errorf("fillup %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Fillup{}, fmt.Errorf("get fillup: %w", err)
	}
	return fillupFromRow(row)
}

// ListFillups returns a vehicle's fillups in chronological order, date ties
// broken by insertion order.
func (r *SQLiteRepository) ListFillups(ctx context.Context, vehicleID int64) ([]core.Fillup, error) {
	rows, err := r.queries.ListFillupsByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("list fillups: %w", err)
	}

	fillups := make([]core.Fillup, 0, len(rows))
	for _, row := range rows {
		f, err := fillupFromRow(row)
		if err != nil {
			return nil, err
		}
		fillups = append(fillups, f)
	}
	return fillups, nil
}

func (r *SQLiteRepository) UpdateFillup(ctx context.Context, f core.Fillup) error {
	err := r.queries.UpdateFillup(ctx, UpdateFillupParams{
		ID:               f.ID,
		FillupDate:       f.Date.String(),
		FuelAmount:       f.FuelAmount,
		TotalPrice:       f.TotalPrice,
		Odometer:         nullInt64(f.Odometer),
		Distance:         nullFloat64(f.Distance),
		DistanceTraveled: nullFloat64(f.DistanceTraveled),
		Consumption:      nullFloat64(f.Consumption),
		PricePerLiter:    f.PricePerLiter,
	})
	if err != nil {
		return fmt.Errorf("update fillup: %w", err)
	}
	return nil
}

// UpdateDerived rewrites the derived fields of a fillup whose chronological
// neighbor changed.
func (r *SQLiteRepository) UpdateDerived(ctx context.Context, id int64, distanceTraveled, consumption *float64) error {
	err := r.queries.UpdateFillupDerived(ctx, id, nullFloat64(distanceTraveled), nullFloat64(consumption))
	if err != nil {
		return fmt.Errorf("update derived fields: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteFillup(ctx context.Context, id int64) error {
	if _, err := r.GetFillup(ctx, id); err != nil {
		return err
	}
	if err := r.queries.SoftDeleteFillup(ctx, id); err != nil {
		return fmt.Errorf("delete fillup: %w", err)
	}
	slog.InfoContext(ctx, "Fillup deleted", "id", id)
	return nil
}

// CreateFillupBatch stores an imported batch in a single transaction. Either
// every fillup is committed or none are.
func (r *SQLiteRepository) CreateFillupBatch(ctx context.Context, fillups []core.Fillup) ([]core.Fillup, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	saved := make([]core.Fillup, 0, len(fillups))
	for _, f := range fillups {
		row, err := qtx.CreateFillup(ctx, createParamsFromFillup(f))
		if err != nil {
			return nil, fmt.Errorf("create imported fillup: %w", err)
		}
		sf, err := fillupFromRow(row)
		if err != nil {
			return nil, err
		}
		saved = append(saved, sf)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import transaction: %w", err)
	}

	slog.InfoContext(ctx, "Import batch committed", "row_count", len(saved))
	return saved, nil
}

// GetPendingSyncFillups returns fillups that still need to be exported.
func (r *SQLiteRepository) GetPendingSyncFillups(ctx context.Context, limit int) ([]PendingSyncFillup, error) {
	rows, err := r.queries.GetPendingSyncFillups(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync fillups: %w", err)
	}
	return rows, nil
}

// MarkSynced marks a fillup as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkFillupSynced(ctx, id); err != nil {
		return fmt.Errorf("mark fillup synced: %w", err)
	}
	slog.InfoContext(ctx, "Fillup marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a fillup as having export errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkFillupSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark fillup sync error: %w", err)
	}
	slog.WarnContext(ctx, "Fillup marked with sync error", "id", id)
	return nil
}

// VehicleStats aggregates a vehicle's fillups for the stats endpoints.
type VehicleStats struct {
	FillupCount        int64
	TotalFuel          float64
	TotalPrice         float64
	TotalDistance      float64
	AverageConsumption float64
}

func (r *SQLiteRepository) GetVehicleStats(ctx context.Context, vehicleID int64) (VehicleStats, error) {
	row, err := r.queries.GetVehicleStats(ctx, vehicleID)
	if err != nil {
		return VehicleStats{}, fmt.Errorf("get vehicle stats: %w", err)
	}

	stats := VehicleStats{
		FillupCount:   row.FillupCount,
		TotalFuel:     row.TotalFuel,
		TotalPrice:    row.TotalPrice,
		TotalDistance: row.TotalDistance,
	}
	if row.TotalDistance > 0 {
		stats.AverageConsumption = row.FuelOverDistance / row.TotalDistance * 100
	}
	return stats, nil
}

func vehicleFromRow(row Vehicle) core.Vehicle {
	return core.Vehicle{
		ID:              row.ID,
		Name:            row.Name,
		InitialOdometer: row.InitialOdometer,
		Mode:            core.MileageMode(row.MileageMode),
	}
}

func fillupFromRow(row Fillup) (core.Fillup, error) {
	date, err := core.ParseDate(row.FillupDate)
	if err != nil {
		return core.Fillup{}, fmt.Errorf("stored fillup %d has invalid date %q: %w", row.ID, row.FillupDate, err)
	}

	return core.Fillup{
		ID:               row.ID,
		VehicleID:        row.VehicleID,
		Date:             date,
		FuelAmount:       row.FuelAmount,
		TotalPrice:       row.TotalPrice,
		Odometer:         int64Ptr(row.Odometer),
		Distance:         float64Ptr(row.Distance),
		DistanceTraveled: float64Ptr(row.DistanceTraveled),
		Consumption:      float64Ptr(row.Consumption),
		PricePerLiter:    row.PricePerLiter,
	}, nil
}

func createParamsFromFillup(f core.Fillup) CreateFillupParams {
	return CreateFillupParams{
		VehicleID:        f.VehicleID,
		FillupDate:       f.Date.String(),
		FuelAmount:       f.FuelAmount,
		TotalPrice:       f.TotalPrice,
		Odometer:         nullInt64(f.Odometer),
		Distance:         nullFloat64(f.Distance),
		DistanceTraveled: nullFloat64(f.DistanceTraveled),
		Consumption:      nullFloat64(f.Consumption),
		PricePerLiter:    f.PricePerLiter,
	}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullFloat64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func float64Ptr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
