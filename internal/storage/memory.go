package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tanklog/internal/core"
)

// MemoryRepository is an in-memory implementation of the services repository
// port. It backs the memory data backend and the service tests; no state
// survives a restart.
type MemoryRepository struct {
	mu            sync.Mutex
	vehicles      map[int64]core.Vehicle
	fillups       map[int64]*memFillup
	nextVehicleID int64
	nextFillupID  int64
	clock         int64
}

type memFillup struct {
	fillup     core.Fillup
	syncStatus string
	version    int64
	createdAt  int64
	deleted    bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		vehicles:      make(map[int64]core.Vehicle),
		fillups:       make(map[int64]*memFillup),
		nextVehicleID: 1,
		nextFillupID:  1,
	}
}

func (r *MemoryRepository) CreateVehicle(_ context.Context, v core.Vehicle) (core.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = r.nextVehicleID
	r.nextVehicleID++
	r.vehicles[v.ID] = v
	return v, nil
}

func (r *MemoryRepository) GetVehicle(_ context.Context, id int64) (core.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return core.Vehicle{}, fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	return v, nil
}

func (r *MemoryRepository) ListVehicles(_ context.Context) ([]core.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) RenameVehicle(_ context.Context, id int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return fmt.Errorf("vehicle %d: %w", id, ErrNotFound)
	}
	v.Name = name
	r.vehicles[id] = v
	return nil
}

func (r *MemoryRepository) CreateFillup(_ context.Context, f core.Fillup) (core.Fillup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(f), nil
}

func (r *MemoryRepository) insertLocked(f core.Fillup) core.Fillup {
	f.ID = r.nextFillupID
	r.nextFillupID++
	r.clock++
	r.fillups[f.ID] = &memFillup{
		fillup:     f,
		syncStatus: "pending",
		version:    1,
		createdAt:  r.clock,
	}
	return f
}

func (r *MemoryRepository) GetFillup(_ context.Context, id int64) (core.Fillup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.fillups[id]
	if !ok || m.deleted {
		return core.Fillup{}, fmt.Errorf("fillup %d: %w", id, ErrNotFound)
	}
	return m.fillup, nil
}

func (r *MemoryRepository) ListFillups(_ context.Context, vehicleID int64) ([]core.Fillup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Fillup
	for _, m := range r.fillups {
		if m.deleted || m.fillup.VehicleID != vehicleID {
			continue
		}
		out = append(out, m.fillup)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) UpdateFillup(_ context.Context, f core.Fillup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.fillups[f.ID]
	if !ok || m.deleted {
		return fmt.Errorf("fillup %d: %w", f.ID, ErrNotFound)
	}
	f.VehicleID = m.fillup.VehicleID
	m.fillup = f
	m.version++
	m.syncStatus = "pending"
	return nil
}

func (r *MemoryRepository) UpdateDerived(_ context.Context, id int64, distanceTraveled, consumption *float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.fillups[id]
	if !ok || m.deleted {
		return fmt.Errorf("fillup %d: %w", id, ErrNotFound)
	}
	m.fillup.DistanceTraveled = distanceTraveled
	m.fillup.Consumption = consumption
	m.version++
	m.syncStatus = "pending"
	return nil
}

func (r *MemoryRepository) DeleteFillup(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.fillups[id]
	if !ok || m.deleted {
		return fmt.Errorf("fillup %d: %w", id, ErrNotFound)
	}
	m.deleted = true
	return nil
}

func (r *MemoryRepository) CreateFillupBatch(_ context.Context, fillups []core.Fillup) ([]core.Fillup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make([]core.Fillup, len(fillups))
	for i, f := range fillups {
		saved[i] = r.insertLocked(f)
	}
	return saved, nil
}

func (r *MemoryRepository) GetPendingSyncFillups(_ context.Context, limit int) ([]PendingSyncFillup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []*memFillup
	for _, m := range r.fillups {
		if m.deleted || m.syncStatus != "pending" {
			continue
		}
		pending = append(pending, m)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].createdAt < pending[j].createdAt })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]PendingSyncFillup, len(pending))
	for i, m := range pending {
		out[i] = PendingSyncFillup{
			ID:        m.fillup.ID,
			Version:   m.version,
			CreatedAt: time.Unix(m.createdAt, 0),
		}
	}
	return out, nil
}

func (r *MemoryRepository) MarkSynced(_ context.Context, id int64) error {
	return r.setSyncStatus(id, "synced")
}

func (r *MemoryRepository) MarkSyncError(_ context.Context, id int64) error {
	return r.setSyncStatus(id, "error")
}

func (r *MemoryRepository) setSyncStatus(id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.fillups[id]
	if !ok {
		return fmt.Errorf("fillup %d: %w", id, ErrNotFound)
	}
	m.syncStatus = status
	return nil
}

func (r *MemoryRepository) GetVehicleStats(_ context.Context, vehicleID int64) (VehicleStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stats VehicleStats
	var fuelOverDistance float64
	for _, m := range r.fillups {
		if m.deleted || m.fillup.VehicleID != vehicleID {
			continue
		}
		f := m.fillup
		stats.FillupCount++
		stats.TotalFuel += f.FuelAmount
		stats.TotalPrice += f.TotalPrice
		if f.DistanceTraveled != nil && *f.DistanceTraveled > 0 {
			stats.TotalDistance += *f.DistanceTraveled
			fuelOverDistance += f.FuelAmount
		}
	}
	if stats.TotalDistance > 0 {
		stats.AverageConsumption = fuelOverDistance / stats.TotalDistance * 100
	}
	return stats, nil
}

func (r *MemoryRepository) Close() error { return nil }
