package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"tanklog/internal/core"
	"tanklog/internal/log"
	"tanklog/internal/storage"
)

type fillupResponse struct {
	ID               int64    `json:"id"`
	VehicleID        int64    `json:"vehicle_id"`
	Date             string   `json:"date"`
	FuelAmount       float64  `json:"fuel_amount"`
	TotalPrice       float64  `json:"total_price"`
	Odometer         *int64   `json:"odometer,omitempty"`
	Distance         *float64 `json:"distance,omitempty"`
	DistanceTraveled *float64 `json:"distance_traveled,omitempty"`
	Consumption      *float64 `json:"consumption,omitempty"`
	PricePerLiter    float64  `json:"price_per_liter"`
}

// fillupWithWarnings is the create/update response: the stored record plus
// any advisory warnings the caller should surface before navigating away.
type fillupWithWarnings struct {
	Fillup   fillupResponse `json:"fillup"`
	Warnings []core.Warning `json:"warnings,omitempty"`
}

func fillupToResponse(f core.Fillup) fillupResponse {
	return fillupResponse{
		ID:               f.ID,
		VehicleID:        f.VehicleID,
		Date:             f.Date.String(),
		FuelAmount:       f.FuelAmount,
		TotalPrice:       f.TotalPrice,
		Odometer:         f.Odometer,
		Distance:         f.Distance,
		DistanceTraveled: f.DistanceTraveled,
		Consumption:      f.Consumption,
		PricePerLiter:    f.PricePerLiter,
	}
}

func (s *Server) handleListFillups(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	fillups, err := s.backend.Fillups.ListFillups(r.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("vehicle not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to list fillups",
			log.FieldVehicleID, vehicleID, log.FieldError, err)
		InternalServerError("failed to list fillups").Write(w)
		return
	}

	out := make([]fillupResponse, 0, len(fillups))
	for _, f := range fillups {
		out = append(out, fillupToResponse(f))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateFillup(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req fillupRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	created, warnings, err := s.backend.Fillups.CreateFillup(r.Context(), vehicleID, req.toRaw())
	if err != nil {
		s.writeFillupError(w, r, err, vehicleID)
		return
	}

	atomic.AddInt64(&s.appMetrics.totalFillups, 1)
	s.invalidateReport(vehicleID)

	s.logger.InfoContext(r.Context(), "Fillup created",
		log.FieldFillupID, created.ID,
		log.FieldVehicleID, vehicleID,
		log.FieldFillupDate, created.Date.String(),
		log.FieldFuelAmount, created.FuelAmount,
		log.FieldTotalPrice, created.TotalPrice,
		"warning_count", len(warnings))

	NewResponse().Status(http.StatusCreated).JSON(fillupWithWarnings{
		Fillup:   fillupToResponse(created),
		Warnings: warnings,
	}).Write(w)
}

func (s *Server) handleGetFillup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	fillup, err := s.backend.Fillups.GetFillup(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("fillup not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to get fillup",
			log.FieldFillupID, id, log.FieldError, err)
		InternalServerError("failed to get fillup").Write(w)
		return
	}
	NewResponse().JSON(fillupToResponse(fillup)).Write(w)
}

func (s *Server) handleUpdateFillup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req fillupRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	updated, warnings, err := s.backend.Fillups.UpdateFillup(r.Context(), id, req.toRaw())
	if err != nil {
		s.writeFillupError(w, r, err, id)
		return
	}

	s.invalidateReport(updated.VehicleID)

	s.logger.InfoContext(r.Context(), "Fillup updated",
		log.FieldFillupID, id,
		log.FieldVehicleID, updated.VehicleID,
		"warning_count", len(warnings))

	NewResponse().JSON(fillupWithWarnings{
		Fillup:   fillupToResponse(updated),
		Warnings: warnings,
	}).Write(w)
}

func (s *Server) handleDeleteFillup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	// Read first so the report cache of the owning vehicle can be dropped.
	fillup, err := s.backend.Fillups.GetFillup(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("fillup not found").Write(w)
			return
		}
		InternalServerError("failed to get fillup").Write(w)
		return
	}

	if err := s.backend.Fillups.DeleteFillup(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("fillup not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to delete fillup",
			log.FieldFillupID, id, log.FieldError, err)
		InternalServerError("failed to delete fillup").Write(w)
		return
	}

	s.invalidateReport(fillup.VehicleID)

	s.logger.InfoContext(r.Context(), "Fillup deleted",
		log.FieldFillupID, id,
		log.FieldVehicleID, fillup.VehicleID)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// writeFillupError maps service errors from fillup mutations to API
// responses. Validation rejections carry their field errors.
func (s *Server) writeFillupError(w http.ResponseWriter, r *http.Request, err error, id int64) {
	if rej, ok := core.AsRejection(err); ok {
		RejectionResponse(rej).Write(w)
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		NotFoundError("not found").Write(w)
		return
	}
	s.logger.ErrorContext(r.Context(), "Fillup operation failed",
		"id", id, log.FieldError, err)
	InternalServerError("fillup operation failed").Write(w)
}
