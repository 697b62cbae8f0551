package http

import (
	"errors"
	"net/http"

	"tanklog/internal/core"
	"tanklog/internal/log"
	"tanklog/internal/storage"
)

type statsResponse struct {
	FillupCount        int64   `json:"fillup_count"`
	TotalFuel          float64 `json:"total_fuel"`
	TotalPrice         float64 `json:"total_price"`
	TotalDistance      float64 `json:"total_distance"`
	AverageConsumption float64 `json:"average_consumption"`
}

type classifiedFillupResponse struct {
	fillupResponse
	Level core.DeviationLevel `json:"level"`
}

type reportResponse struct {
	Vehicle vehicleResponse            `json:"vehicle"`
	Stats   statsResponse              `json:"stats"`
	Fillups []classifiedFillupResponse `json:"fillups"`
}

func statsToResponse(stats storage.VehicleStats) statsResponse {
	return statsResponse{
		FillupCount:        stats.FillupCount,
		TotalFuel:          stats.TotalFuel,
		TotalPrice:         stats.TotalPrice,
		TotalDistance:      stats.TotalDistance,
		AverageConsumption: stats.AverageConsumption,
	}
}

func (s *Server) handleVehicleStats(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	stats, err := s.backend.Stats.GetVehicleStats(r.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("vehicle not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to get vehicle stats",
			log.FieldVehicleID, vehicleID, log.FieldError, err)
		InternalServerError("failed to get vehicle stats").Write(w)
		return
	}
	NewResponse().JSON(statsToResponse(stats)).Write(w)
}

// handleVehicleReport returns the full fillup history with each record
// classified against the vehicle's average consumption. Responses are cached
// per vehicle until the next mutation.
func (s *Server) handleVehicleReport(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	report, err := s.cachedReport(r.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("vehicle not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to build vehicle report",
			log.FieldVehicleID, vehicleID, log.FieldError, err)
		InternalServerError("failed to build vehicle report").Write(w)
		return
	}

	resp := reportResponse{
		Vehicle: vehicleToResponse(report.Vehicle),
		Stats:   statsToResponse(report.Stats),
		Fillups: make([]classifiedFillupResponse, 0, len(report.Fillups)),
	}
	for _, f := range report.Fillups {
		resp.Fillups = append(resp.Fillups, classifiedFillupResponse{
			fillupResponse: fillupToResponse(f.Fillup),
			Level:          f.Level,
		})
	}
	NewResponse().JSON(resp).Write(w)
}
