package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Vehicle is a vehicles table row.
type Vehicle struct {
	ID              int64
	Name            string
	InitialOdometer int64
	MileageMode     string
	CreatedAt       time.Time
}

// Fillup is a fillups table row. Dates are stored as ISO strings so that
// lexical and chronological order coincide.
type Fillup struct {
	ID               int64
	VehicleID        int64
	FillupDate       string
	FuelAmount       float64
	TotalPrice       float64
	Odometer         sql.NullInt64
	Distance         sql.NullFloat64
	DistanceTraveled sql.NullFloat64
	Consumption      sql.NullFloat64
	PricePerLiter    float64
	SyncStatus       string
	Version          int64
	CreatedAt        time.Time
}

type CreateVehicleParams struct {
	Name            string
	InitialOdometer int64
	MileageMode     string
}

func (q *Queries) CreateVehicle(ctx context.Context, arg CreateVehicleParams) (Vehicle, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO vehicles (name, initial_odometer, mileage_mode)
		VALUES (?, ?, ?)
		RETURNING id, name, initial_odometer, mileage_mode, created_at`,
		arg.Name, arg.InitialOdometer, arg.MileageMode)

	var v Vehicle
	err := row.Scan(&v.ID, &v.Name, &v.InitialOdometer, &v.MileageMode, &v.CreatedAt)
	return v, err
}

func (q *Queries) GetVehicle(ctx context.Context, id int64) (Vehicle, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, initial_odometer, mileage_mode, created_at
		FROM vehicles WHERE id = ?`, id)

	var v Vehicle
	err := row.Scan(&v.ID, &v.Name, &v.InitialOdometer, &v.MileageMode, &v.CreatedAt)
	return v, err
}

func (q *Queries) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, initial_odometer, mileage_mode, created_at
		FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.InitialOdometer, &v.MileageMode, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RenameVehicle updates the display name only. The mileage mode and initial
// odometer are immutable after creation; there is intentionally no query
// that touches them.
func (q *Queries) RenameVehicle(ctx context.Context, id int64, name string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE vehicles SET name = ? WHERE id = ?`, name, id)
	return err
}

type CreateFillupParams struct {
	VehicleID        int64
	FillupDate       string
	FuelAmount       float64
	TotalPrice       float64
	Odometer         sql.NullInt64
	Distance         sql.NullFloat64
	DistanceTraveled sql.NullFloat64
	Consumption      sql.NullFloat64
	PricePerLiter    float64
}

func (q *Queries) CreateFillup(ctx context.Context, arg CreateFillupParams) (Fillup, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO fillups (
			vehicle_id, fillup_date, fuel_amount, total_price,
			odometer, distance, distance_traveled, consumption, price_per_liter
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, vehicle_id, fillup_date, fuel_amount, total_price,
			odometer, distance, distance_traveled, consumption, price_per_liter,
			sync_status, version, created_at`,
		arg.VehicleID, arg.FillupDate, arg.FuelAmount, arg.TotalPrice,
		arg.Odometer, arg.Distance, arg.DistanceTraveled, arg.Consumption, arg.PricePerLiter)

	return scanFillupRow(row)
}

func (q *Queries) GetFillup(ctx context.Context, id int64) (Fillup, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, vehicle_id, fillup_date, fuel_amount, total_price,
			odometer, distance, distance_traveled, consumption, price_per_liter,
			sync_status, version, created_at
		FROM fillups WHERE id = ? AND deleted_at IS NULL`, id)

	return scanFillupRow(row)
}

// ListFillupsByVehicle returns the live fillups of a vehicle in chronological
// order, date ties broken by insertion order.
func (q *Queries) ListFillupsByVehicle(ctx context.Context, vehicleID int64) ([]Fillup, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, vehicle_id, fillup_date, fuel_amount, total_price,
			odometer, distance, distance_traveled, consumption, price_per_liter,
			sync_status, version, created_at
		FROM fillups
		WHERE vehicle_id = ? AND deleted_at IS NULL
		ORDER BY fillup_date, id`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fillup
	for rows.Next() {
		f, err := scanFillupRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type UpdateFillupParams struct {
	ID               int64
	FillupDate       string
	FuelAmount       float64
	TotalPrice       float64
	Odometer         sql.NullInt64
	Distance         sql.NullFloat64
	DistanceTraveled sql.NullFloat64
	Consumption      sql.NullFloat64
	PricePerLiter    float64
}

// UpdateFillup rewrites an edited record and queues it for re-export.
func (q *Queries) UpdateFillup(ctx context.Context, arg UpdateFillupParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fillups SET
			fillup_date = ?, fuel_amount = ?, total_price = ?,
			odometer = ?, distance = ?, distance_traveled = ?, consumption = ?,
			price_per_liter = ?, sync_status = 'pending', version = version + 1
		WHERE id = ? AND deleted_at IS NULL`,
		arg.FillupDate, arg.FuelAmount, arg.TotalPrice,
		arg.Odometer, arg.Distance, arg.DistanceTraveled, arg.Consumption,
		arg.PricePerLiter, arg.ID)
	return err
}

// UpdateFillupDerived rewrites just the derived fields of a record whose
// chronological neighbor changed.
func (q *Queries) UpdateFillupDerived(ctx context.Context, id int64, distanceTraveled, consumption sql.NullFloat64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fillups SET
			distance_traveled = ?, consumption = ?,
			sync_status = 'pending', version = version + 1
		WHERE id = ? AND deleted_at IS NULL`,
		distanceTraveled, consumption, id)
	return err
}

func (q *Queries) SoftDeleteFillup(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fillups SET deleted_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`, id)
	return err
}

// PendingSyncFillup is the minimal row shape queued for the export worker.
type PendingSyncFillup struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

func (q *Queries) GetPendingSyncFillups(ctx context.Context, limit int64) ([]PendingSyncFillup, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, version, created_at
		FROM fillups
		WHERE sync_status = 'pending' AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingSyncFillup
	for rows.Next() {
		var p PendingSyncFillup
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) MarkFillupSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fillups SET sync_status = 'synced' WHERE id = ?`, id)
	return err
}

func (q *Queries) MarkFillupSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fillups SET sync_status = 'error' WHERE id = ?`, id)
	return err
}

// VehicleStatsRow aggregates a vehicle's live fillups. Distance and fuel
// sums only cover records with a positive derived distance, so the average
// consumption they imply is well defined.
type VehicleStatsRow struct {
	FillupCount      int64
	TotalFuel        float64
	TotalPrice       float64
	TotalDistance    float64
	FuelOverDistance float64
}

func (q *Queries) GetVehicleStats(ctx context.Context, vehicleID int64) (VehicleStatsRow, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(fuel_amount), 0),
			COALESCE(SUM(total_price), 0),
			COALESCE(SUM(CASE WHEN distance_traveled > 0 THEN distance_traveled END), 0),
			COALESCE(SUM(CASE WHEN distance_traveled > 0 THEN fuel_amount END), 0)
		FROM fillups
		WHERE vehicle_id = ? AND deleted_at IS NULL`, vehicleID)

	var s VehicleStatsRow
	err := row.Scan(&s.FillupCount, &s.TotalFuel, &s.TotalPrice, &s.TotalDistance, &s.FuelOverDistance)
	return s, err
}

func scanFillupRow(row *sql.Row) (Fillup, error) {
	var f Fillup
	err := row.Scan(
		&f.ID, &f.VehicleID, &f.FillupDate, &f.FuelAmount, &f.TotalPrice,
		&f.Odometer, &f.Distance, &f.DistanceTraveled, &f.Consumption, &f.PricePerLiter,
		&f.SyncStatus, &f.Version, &f.CreatedAt)
	return f, err
}

func scanFillupRows(rows *sql.Rows) (Fillup, error) {
	var f Fillup
	err := rows.Scan(
		&f.ID, &f.VehicleID, &f.FillupDate, &f.FuelAmount, &f.TotalPrice,
		&f.Odometer, &f.Distance, &f.DistanceTraveled, &f.Consumption, &f.PricePerLiter,
		&f.SyncStatus, &f.Version, &f.CreatedAt)
	return f, err
}
