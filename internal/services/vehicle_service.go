package services

import (
	"context"
	"strings"

	"tanklog/internal/core"
)

// VehicleService manages the vehicle registry. The mileage mode and initial
// odometer are fixed at creation; only the name can change afterwards.
type VehicleService struct {
	repo Repository
}

func NewVehicleService(repo Repository) *VehicleService {
	return &VehicleService{repo: repo}
}

func (s *VehicleService) CreateVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	v.Name = strings.TrimSpace(v.Name)
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	return s.repo.CreateVehicle(ctx, v)
}

func (s *VehicleService) GetVehicle(ctx context.Context, id int64) (core.Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

func (s *VehicleService) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	return s.repo.ListVehicles(ctx)
}

func (s *VehicleService) RenameVehicle(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	if len(name) > 100 {
		return core.ErrNameTooLong
	}
	return s.repo.RenameVehicle(ctx, id, name)
}
