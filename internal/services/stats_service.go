package services

import (
	"context"
	"fmt"

	"tanklog/internal/core"
	"tanklog/internal/storage"
)

// ClassifiedFillup pairs a fillup with its deviation level relative to the
// vehicle's historical average consumption.
type ClassifiedFillup struct {
	core.Fillup
	Level core.DeviationLevel
}

// VehicleReport is the aggregated view of one vehicle: totals, the running
// average and every fillup classified against that average.
type VehicleReport struct {
	Vehicle core.Vehicle
	Stats   storage.VehicleStats
	Fillups []ClassifiedFillup
}

// StatsService computes per-vehicle aggregates and consumption
// classifications.
type StatsService struct {
	repo Repository
}

func NewStatsService(repo Repository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) GetVehicleStats(ctx context.Context, vehicleID int64) (storage.VehicleStats, error) {
	if _, err := s.repo.GetVehicle(ctx, vehicleID); err != nil {
		return storage.VehicleStats{}, err
	}
	return s.repo.GetVehicleStats(ctx, vehicleID)
}

// Report lists a vehicle's fillups with each one's deviation level. With no
// computable average every level is unknown.
func (s *StatsService) Report(ctx context.Context, vehicleID int64) (VehicleReport, error) {
	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return VehicleReport{}, err
	}

	stats, err := s.repo.GetVehicleStats(ctx, vehicleID)
	if err != nil {
		return VehicleReport{}, fmt.Errorf("load vehicle stats: %w", err)
	}

	fillups, err := s.repo.ListFillups(ctx, vehicleID)
	if err != nil {
		return VehicleReport{}, fmt.Errorf("load fillups: %w", err)
	}

	report := VehicleReport{
		Vehicle: vehicle,
		Stats:   stats,
		Fillups: make([]ClassifiedFillup, len(fillups)),
	}
	for i, f := range fillups {
		report.Fillups[i] = ClassifiedFillup{
			Fillup: f,
			Level:  core.Classify(f.Consumption, stats.AverageConsumption),
		}
	}
	return report, nil
}
