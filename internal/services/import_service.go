package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tanklog/internal/core"
)

// CSV import of fillup batches. The expected layout is a header row of
// date, fuel_amount, total_price and one mileage column matching the
// vehicle's mode (odometer or distance), followed by one row per fillup.

var (
	ErrEmptyImport   = errors.New("import file has no data rows")
	ErrTooManyRows   = errors.New("import file exceeds the row limit")
	ErrMissingHeader = errors.New("import file is missing required columns")
)

type ImportService struct {
	repo       Repository
	reconciler *core.Reconciler
	publisher  SyncPublisher
	maxRows    int
}

func NewImportService(repo Repository, publisher SyncPublisher, maxRows int) *ImportService {
	return &ImportService{
		repo:       repo,
		reconciler: core.NewReconciler(nil),
		publisher:  publisher,
		maxRows:    maxRows,
	}
}

// ImportCSV validates a whole batch against the vehicle's persisted history
// and commits it in one transaction. When any row fails field validation the
// batch is not committed at all and the per-row errors are returned in the
// result; warnings alone never block the commit.
func (s *ImportService) ImportCSV(ctx context.Context, vehicleID int64, r io.Reader) (core.ImportResult, error) {
	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return core.ImportResult{}, err
	}

	rows, err := s.parseCSV(r)
	if err != nil {
		return core.ImportResult{}, err
	}

	existing, err := s.repo.ListFillups(ctx, vehicleID)
	if err != nil {
		return core.ImportResult{}, fmt.Errorf("load fillup history: %w", err)
	}

	result := s.reconciler.Reconcile(vehicle, rows, existing)
	if !result.OK() {
		slog.InfoContext(ctx, "Import rejected",
			"vehicle_id", vehicleID,
			"row_count", len(rows),
			"error_count", len(result.Errors))
		return result, nil
	}

	for i := range result.Valid {
		result.Valid[i].VehicleID = vehicleID
	}

	saved, err := s.repo.CreateFillupBatch(ctx, result.Valid)
	if err != nil {
		return core.ImportResult{}, fmt.Errorf("commit import batch: %w", err)
	}
	result.Valid = saved

	s.recomputeAfterImport(ctx, vehicle)

	for _, f := range saved {
		if err := s.publishSyncMessage(ctx, f.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message for imported fillup",
				"id", f.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Import committed",
		"vehicle_id", vehicleID,
		"row_count", len(saved),
		"warning_count", len(result.Warnings))

	return result, nil
}

// parseCSV reads the header and data rows into raw fillups. Column order is
// free; unknown columns are ignored.
func (s *ImportService) parseCSV(r io.Reader) ([]core.RawFillup, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyImport
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{"date", "fuel_amount", "total_price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingHeader, required)
		}
	}
	_, hasOdometer := cols["odometer"]
	_, hasDistance := cols["distance"]
	if !hasOdometer && !hasDistance {
		return nil, fmt.Errorf("%w: odometer or distance", ErrMissingHeader)
	}

	get := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []core.RawFillup
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, core.RawFillup{
			Date:       get(record, "date"),
			FuelAmount: get(record, "fuel_amount"),
			TotalPrice: get(record, "total_price"),
			Odometer:   get(record, "odometer"),
			Distance:   get(record, "distance"),
		})
		if s.maxRows > 0 && len(rows) > s.maxRows {
			return nil, fmt.Errorf("%w (%d)", ErrTooManyRows, s.maxRows)
		}
	}

	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}
	return rows, nil
}

// recomputeAfterImport refreshes derived fields of records whose predecessor
// is now an imported row.
func (s *ImportService) recomputeAfterImport(ctx context.Context, vehicle core.Vehicle) {
	fillups, err := s.repo.ListFillups(ctx, vehicle.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload fillups after import",
			"vehicle_id", vehicle.ID, "error", err)
		return
	}

	validator := s.reconciler.Validator
	for _, changed := range validator.Recompute(vehicle, fillups) {
		if err := s.repo.UpdateDerived(ctx, changed.ID, changed.DistanceTraveled, changed.Consumption); err != nil {
			slog.ErrorContext(ctx, "Failed to update derived fields after import",
				"id", changed.ID, "error", err)
		}
	}
}

func (s *ImportService) publishSyncMessage(ctx context.Context, id int64) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishFillupSync(ctx, id, 1)
}
