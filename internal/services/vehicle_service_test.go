package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tanklog/internal/core"
	"tanklog/internal/storage"
)

func TestCreateVehicleValidation(t *testing.T) {
	tests := []struct {
		name    string
		vehicle core.Vehicle
		wantErr error
	}{
		{
			name:    "valid odometer mode",
			vehicle: core.Vehicle{Name: "Golf", Mode: core.OdometerMode, InitialOdometer: 42000},
		},
		{
			name:    "valid distance mode",
			vehicle: core.Vehicle{Name: "Golf", Mode: core.DistanceMode},
		},
		{
			name:    "trims name",
			vehicle: core.Vehicle{Name: "  Golf  ", Mode: core.OdometerMode},
		},
		{
			name:    "empty name",
			vehicle: core.Vehicle{Name: "   ", Mode: core.OdometerMode},
			wantErr: core.ErrEmptyName,
		},
		{
			name:    "name too long",
			vehicle: core.Vehicle{Name: strings.Repeat("x", 101), Mode: core.OdometerMode},
			wantErr: core.ErrNameTooLong,
		},
		{
			name:    "invalid mode",
			vehicle: core.Vehicle{Name: "Golf", Mode: "miles"},
			wantErr: core.ErrInvalidMode,
		},
		{
			name:    "negative initial odometer",
			vehicle: core.Vehicle{Name: "Golf", Mode: core.OdometerMode, InitialOdometer: -1},
			wantErr: core.ErrNegativeInitial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewVehicleService(storage.NewMemoryRepository())

			created, err := svc.CreateVehicle(context.Background(), tt.vehicle)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateVehicle() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateVehicle() error = %v", err)
			}
			if created.ID == 0 {
				t.Error("created vehicle should have an ID")
			}
			if created.Name != strings.TrimSpace(tt.vehicle.Name) {
				t.Errorf("Name = %q, want trimmed %q", created.Name, tt.vehicle.Name)
			}
		})
	}
}

func TestRenameVehicle(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	svc := NewVehicleService(repo)

	vehicle := newTestVehicle(t, repo, core.OdometerMode, 0)

	if err := svc.RenameVehicle(ctx, vehicle.ID, "  Passat  "); err != nil {
		t.Fatalf("RenameVehicle: %v", err)
	}

	got, err := svc.GetVehicle(ctx, vehicle.ID)
	if err != nil {
		t.Fatalf("GetVehicle: %v", err)
	}
	if got.Name != "Passat" {
		t.Errorf("Name = %q, want Passat", got.Name)
	}
	if got.Mode != core.OdometerMode {
		t.Errorf("Mode = %q, rename must not touch it", got.Mode)
	}

	if err := svc.RenameVehicle(ctx, vehicle.ID, " "); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("empty rename error = %v, want ErrEmptyName", err)
	}
	if err := svc.RenameVehicle(ctx, 999, "Ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown vehicle error = %v, want ErrNotFound", err)
	}
}
