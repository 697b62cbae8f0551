package services

import (
	"context"
	"fmt"
	"log/slog"

	"tanklog/internal/core"
)

// FillupService orchestrates fillup operations: validation against the
// vehicle's history, persistence, successor recomputation and async export.
type FillupService struct {
	repo      Repository
	validator *core.Validator
	publisher SyncPublisher
}

func NewFillupService(repo Repository, publisher SyncPublisher) *FillupService {
	return &FillupService{
		repo:      repo,
		validator: core.NewValidator(),
		publisher: publisher,
	}
}

// CreateFillup validates raw input against the vehicle's history, saves the
// record and publishes a sync message. Validation failures come back as a
// *core.Rejection; warnings never block the save.
func (s *FillupService) CreateFillup(ctx context.Context, vehicleID int64, raw core.RawFillup) (core.Fillup, []core.Warning, error) {
	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return core.Fillup{}, nil, err
	}

	history, err := s.repo.ListFillups(ctx, vehicleID)
	if err != nil {
		return core.Fillup{}, nil, fmt.Errorf("load fillup history: %w", err)
	}

	f, warnings, err := s.validator.Validate(vehicle, raw, history)
	if err != nil {
		return core.Fillup{}, nil, err
	}

	saved, err := s.repo.CreateFillup(ctx, f)
	if err != nil {
		return core.Fillup{}, nil, fmt.Errorf("save fillup: %w", err)
	}

	// The new record may have become the predecessor of an existing one.
	s.recomputeTimeline(ctx, vehicle)

	// Publish async sync message (non-blocking, version 1 for new fillup)
	if err := s.publishSyncMessage(ctx, saved.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", saved.ID, "error", err)
		// Don't fail the request - fillup is saved locally
	}

	return saved, warnings, nil
}

// UpdateFillup revalidates an edited fillup against the rest of the vehicle's
// history and rewrites it.
func (s *FillupService) UpdateFillup(ctx context.Context, id int64, raw core.RawFillup) (core.Fillup, []core.Warning, error) {
	existing, err := s.repo.GetFillup(ctx, id)
	if err != nil {
		return core.Fillup{}, nil, err
	}

	vehicle, err := s.repo.GetVehicle(ctx, existing.VehicleID)
	if err != nil {
		return core.Fillup{}, nil, err
	}

	history, err := s.repo.ListFillups(ctx, vehicle.ID)
	if err != nil {
		return core.Fillup{}, nil, fmt.Errorf("load fillup history: %w", err)
	}
	// The record under edit is not its own predecessor.
	others := make([]core.Fillup, 0, len(history))
	for _, h := range history {
		if h.ID != id {
			others = append(others, h)
		}
	}

	f, warnings, err := s.validator.Validate(vehicle, raw, others)
	if err != nil {
		return core.Fillup{}, nil, err
	}
	f.ID = id

	if err := s.repo.UpdateFillup(ctx, f); err != nil {
		return core.Fillup{}, nil, fmt.Errorf("update fillup: %w", err)
	}

	s.recomputeTimeline(ctx, vehicle)

	if err := s.publishSyncMessage(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}

	updated, err := s.repo.GetFillup(ctx, id)
	if err != nil {
		return core.Fillup{}, nil, err
	}
	return updated, warnings, nil
}

// DeleteFillup removes a fillup, recomputes its former successor and
// publishes a delete message.
func (s *FillupService) DeleteFillup(ctx context.Context, id int64) error {
	existing, err := s.repo.GetFillup(ctx, id)
	if err != nil {
		return err
	}

	vehicle, err := s.repo.GetVehicle(ctx, existing.VehicleID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteFillup(ctx, id); err != nil {
		return fmt.Errorf("delete fillup: %w", err)
	}

	s.recomputeTimeline(ctx, vehicle)

	// Publish async delete message (non-blocking)
	if err := s.publishDeleteMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request - fillup is deleted locally
	}

	return nil
}

func (s *FillupService) GetFillup(ctx context.Context, id int64) (core.Fillup, error) {
	return s.repo.GetFillup(ctx, id)
}

func (s *FillupService) ListFillups(ctx context.Context, vehicleID int64) ([]core.Fillup, error) {
	if _, err := s.repo.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.repo.ListFillups(ctx, vehicleID)
}

// recomputeTimeline re-derives the distance and consumption of every fillup
// of the vehicle and persists the ones whose values changed. Failures here
// are logged, not returned: the triggering mutation already succeeded.
func (s *FillupService) recomputeTimeline(ctx context.Context, vehicle core.Vehicle) {
	fillups, err := s.repo.ListFillups(ctx, vehicle.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload fillups for recomputation",
			"vehicle_id", vehicle.ID, "error", err)
		return
	}

	for _, changed := range s.validator.Recompute(vehicle, fillups) {
		if err := s.repo.UpdateDerived(ctx, changed.ID, changed.DistanceTraveled, changed.Consumption); err != nil {
			slog.ErrorContext(ctx, "Failed to update derived fields",
				"id", changed.ID, "error", err)
			continue
		}
		if err := s.publishSyncMessage(ctx, changed.ID, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message for recomputed fillup",
				"id", changed.ID, "error", err)
		}
	}
}

func (s *FillupService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishFillupSync(ctx, id, version)
}

func (s *FillupService) publishDeleteMessage(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Sync publisher not available, skipping delete message")
		return nil
	}
	return s.publisher.PublishFillupDelete(ctx, id)
}

// Close closes the repository and, when present, the publisher.
func (s *FillupService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if closer, ok := s.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close fillup service: %v", errs)
	}
	return nil
}
