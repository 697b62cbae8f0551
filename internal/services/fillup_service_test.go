package services

import (
	"context"
	"errors"
	"testing"

	"tanklog/internal/core"
	"tanklog/internal/storage"
)

type fakePublisher struct {
	syncs   []int64
	deletes []int64
	err     error
}

func (p *fakePublisher) PublishFillupSync(_ context.Context, id, _ int64) error {
	if p.err != nil {
		return p.err
	}
	p.syncs = append(p.syncs, id)
	return nil
}

func (p *fakePublisher) PublishFillupDelete(_ context.Context, id int64) error {
	if p.err != nil {
		return p.err
	}
	p.deletes = append(p.deletes, id)
	return nil
}

func newTestVehicle(t *testing.T, repo Repository, mode core.MileageMode, initial int64) core.Vehicle {
	t.Helper()
	v, err := repo.CreateVehicle(context.Background(), core.Vehicle{
		Name:            "Golf",
		InitialOdometer: initial,
		Mode:            mode,
	})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	return v
}

func TestCreateFillupPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	pub := &fakePublisher{}
	svc := NewFillupService(repo, pub)

	vehicle := newTestVehicle(t, repo, core.OdometerMode, 1000)

	saved, warnings, err := svc.CreateFillup(ctx, vehicle.ID, core.RawFillup{
		Date: "2025-06-01", FuelAmount: "40", TotalPrice: "70", Odometer: "1500",
	})
	if err != nil {
		t.Fatalf("CreateFillup: %v", err)
	}
	if saved.ID == 0 {
		t.Error("saved fillup should have an ID")
	}
	if saved.DistanceTraveled == nil || *saved.DistanceTraveled != 500 {
		t.Errorf("DistanceTraveled = %v, want 500", saved.DistanceTraveled)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(pub.syncs) == 0 || pub.syncs[0] != saved.ID {
		t.Errorf("expected sync message for %d, got %v", saved.ID, pub.syncs)
	}
}

func TestCreateFillupRejectionDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	pub := &fakePublisher{}
	svc := NewFillupService(repo, pub)

	vehicle := newTestVehicle(t, repo, core.OdometerMode, 0)

	_, _, err := svc.CreateFillup(ctx, vehicle.ID, core.RawFillup{
		Date: "not-a-date", FuelAmount: "-1", TotalPrice: "70", Odometer: "1000",
	})
	rej, ok := core.AsRejection(err)
	if !ok {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(rej.Fields) < 2 {
		t.Errorf("expected date and fuel_amount errors, got %v", rej.Fields)
	}

	fillups, err := svc.ListFillups(ctx, vehicle.ID)
	if err != nil {
		t.Fatalf("ListFillups: %v", err)
	}
	if len(fillups) != 0 {
		t.Errorf("rejected fillup must not be persisted, got %d records", len(fillups))
	}
	if len(pub.syncs) != 0 {
		t.Errorf("no sync message expected, got %v", pub.syncs)
	}
}

func TestCreateEarlierFillupRecomputesSuccessor(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	svc := NewFillupService(repo, &fakePublisher{})

	vehicle := newTestVehicle(t, repo, core.OdometerMode, 1000)

	later, _, err := svc.CreateFillup(ctx, vehicle.ID, core.RawFillup{
		Date: "2025-06-10", FuelAmount: "40", TotalPrice: "70", Odometer: "2000",
	})
	if err != nil {
		t.Fatalf("create later fillup: %v", err)
	}
	// 2000 - 1000 (initial) = 1000 km
	if later.DistanceTraveled == nil || *later.DistanceTraveled != 1000 {
		t.Fatalf("later DistanceTraveled = %v, want 1000", later.DistanceTraveled)
	}

	// Back-dated entry slots in between the initial reading and the first one.
	_, _, err = svc.CreateFillup(ctx, vehicle.ID, core.RawFillup{
		Date: "2025-06-01", FuelAmount: "35", TotalPrice: "60", Odometer: "1500",
	})
	if err != nil {
		t.Fatalf("create earlier fillup: %v", err)
	}

	refreshed, err := svc.GetFillup(ctx, later.ID)
	if err != nil {
		t.Fatalf("GetFillup: %v", err)
	}
	if refreshed.DistanceTraveled == nil || *refreshed.DistanceTraveled != 500 {
		t.Errorf("successor DistanceTraveled = %v, want 500", refreshed.DistanceTraveled)
	}
	if refreshed.Consumption == nil || *refreshed.Consumption != 8 {
		t.Errorf("successor Consumption = %v, want 8", refreshed.Consumption)
	}
}

func TestDeleteFillupRecomputesSuccessor(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	pub := &fakePublisher{}
	svc := NewFillupService(repo, pub)

	vehicle := newTestVehicle(t, repo, core.OdometerMode, 0)

	mustCreate := func(date, odo string) core.Fillup {
		t.Helper()
		f, _, err := svc.CreateFillup(ctx, vehicle.ID, core.RawFillup{
			Date: date, FuelAmount: "40", TotalPrice: "70", Odometer: odo,
		})
		if err != nil {
			t.Fatalf("create fillup: %v", err)
		}
		return f
	}

	first := mustCreate("2025-06-01", "1000")
	middle := mustCreate("2025-06-05", "1400")
	last := mustCreate("2025-06-10", "2000")

	if err := svc.DeleteFillup(ctx, middle.ID); err != nil {
		t.Fatalf("DeleteFillup: %v", err)
	}

	if len(pub.deletes) != 1 || pub.deletes[0] != middle.ID {
		t.Errorf("expected delete message for %d, got %v", middle.ID, pub.deletes)
	}

	refreshed, err := svc.GetFillup(ctx, last.ID)
	if err != nil {
		t.Fatalf("GetFillup: %v", err)
	}
	// Now derives against the first entry: 2000 - 1000.
	if refreshed.DistanceTraveled == nil || *refreshed.DistanceTraveled != 1000 {
		t.Errorf("DistanceTraveled = %v, want 1000", refreshed.DistanceTraveled)
	}

	if _, err := svc.GetFillup(ctx, middle.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted fillup lookup error = %v, want ErrNotFound", err)
	}

	// The first entry has no predecessor either way and stays untouched.
	unchanged, err := svc.GetFillup(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetFillup: %v", err)
	}
	if unchanged.DistanceTraveled != nil {
		t.Errorf("first DistanceTraveled = %v, want nil", unchanged.DistanceTraveled)
	}
}

func TestUpdateFillupRevalidates(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	svc := NewFillupService(repo, &fakePublisher{})

	vehicle := newTestVehicle(t, repo, core.OdometerMode, 1000)

	f, _, err := svc.CreateFillup(ctx, vehicle.ID, core.RawFillup{
		Date: "2025-06-01", FuelAmount: "40", TotalPrice: "70", Odometer: "1500",
	})
	if err != nil {
		t.Fatalf("CreateFillup: %v", err)
	}

	// A distance on an odometer vehicle is rejected.
	_, _, err = svc.UpdateFillup(ctx, f.ID, core.RawFillup{
		Date: "2025-06-01", FuelAmount: "40", TotalPrice: "70", Distance: "500",
	})
	if _, ok := core.AsRejection(err); !ok {
		t.Fatalf("expected rejection, got %v", err)
	}

	updated, _, err := svc.UpdateFillup(ctx, f.ID, core.RawFillup{
		Date: "2025-06-02", FuelAmount: "45", TotalPrice: "80", Odometer: "1600",
	})
	if err != nil {
		t.Fatalf("UpdateFillup: %v", err)
	}
	if updated.FuelAmount != 45 {
		t.Errorf("FuelAmount = %v, want 45", updated.FuelAmount)
	}
	if updated.DistanceTraveled == nil || *updated.DistanceTraveled != 600 {
		t.Errorf("DistanceTraveled = %v, want 600", updated.DistanceTraveled)
	}
}

func TestCreateFillupPublishFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	svc := NewFillupService(repo, &fakePublisher{err: errors.New("broker down")})

	vehicle := newTestVehicle(t, repo, core.DistanceMode, 0)

	saved, _, err := svc.CreateFillup(ctx, vehicle.ID, core.RawFillup{
		Date: "2025-06-01", FuelAmount: "40", TotalPrice: "70", Distance: "500",
	})
	if err != nil {
		t.Fatalf("CreateFillup should succeed despite publish failure: %v", err)
	}
	if saved.ID == 0 {
		t.Error("fillup should be persisted")
	}
}

func TestListFillupsUnknownVehicle(t *testing.T) {
	svc := NewFillupService(storage.NewMemoryRepository(), nil)

	_, err := svc.ListFillups(context.Background(), 99)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
