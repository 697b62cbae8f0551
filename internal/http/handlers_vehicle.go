package http

import (
	"errors"
	"net/http"

	"tanklog/internal/core"
	"tanklog/internal/log"
	"tanklog/internal/storage"
)

type vehicleResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Mode            string `json:"mode"`
	InitialOdometer int64  `json:"initial_odometer"`
}

func vehicleToResponse(v core.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:              v.ID,
		Name:            v.Name,
		Mode:            string(v.Mode),
		InitialOdometer: v.InitialOdometer,
	}
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.backend.Vehicles.ListVehicles(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list vehicles", log.FieldError, err)
		InternalServerError("failed to list vehicles").Write(w)
		return
	}

	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleToResponse(v))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	vehicle := core.Vehicle{
		Name:            sanitizeInput(req.Name),
		Mode:            core.MileageMode(req.Mode),
		InitialOdometer: req.InitialOdometer,
	}

	created, err := s.backend.Vehicles.CreateVehicle(r.Context(), vehicle)
	if err != nil {
		if isValidationError(err) {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to create vehicle",
			log.FieldError, err,
			log.FieldOperation, log.OpCreate)
		InternalServerError("failed to create vehicle").Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "Vehicle created",
		log.FieldVehicleID, created.ID,
		"name", created.Name,
		"mode", string(created.Mode))
	NewResponse().Status(http.StatusCreated).JSON(vehicleToResponse(created)).Write(w)
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	vehicle, err := s.backend.Vehicles.GetVehicle(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("vehicle not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to get vehicle",
			log.FieldVehicleID, id, log.FieldError, err)
		InternalServerError("failed to get vehicle").Write(w)
		return
	}
	NewResponse().JSON(vehicleToResponse(vehicle)).Write(w)
}

// handleRenameVehicle updates the vehicle name. Mode and initial odometer
// are fixed at creation; requests trying to change them are rejected by the
// unknown-field check in decodeJSON.
func (s *Server) handleRenameVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.backend.Vehicles.RenameVehicle(r.Context(), id, sanitizeInput(req.Name)); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			NotFoundError("vehicle not found").Write(w)
		case isValidationError(err):
			UnprocessableEntityError(err.Error()).Write(w)
		default:
			s.logger.ErrorContext(r.Context(), "Failed to rename vehicle",
				log.FieldVehicleID, id, log.FieldError, err)
			InternalServerError("failed to rename vehicle").Write(w)
		}
		return
	}

	s.invalidateReport(id)

	vehicle, err := s.backend.Vehicles.GetVehicle(r.Context(), id)
	if err != nil {
		InternalServerError("failed to load renamed vehicle").Write(w)
		return
	}
	NewResponse().JSON(vehicleToResponse(vehicle)).Write(w)
}

// isValidationError reports whether err is a domain validation failure
// rather than an infrastructure one.
func isValidationError(err error) bool {
	return errors.Is(err, core.ErrEmptyName) ||
		errors.Is(err, core.ErrNameTooLong) ||
		errors.Is(err, core.ErrInvalidMode) ||
		errors.Is(err, core.ErrNegativeInitial) ||
		errors.Is(err, core.ErrInvalidDate)
}
