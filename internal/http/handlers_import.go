package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"tanklog/internal/core"
	"tanklog/internal/log"
	"tanklog/internal/services"
	"tanklog/internal/storage"
)

// importResponse reports the outcome of a CSV import. Row numbers in errors
// and warnings are 1-based data-row indexes, matching what the user sees in
// a spreadsheet minus the header.
type importResponse struct {
	Imported bool               `json:"imported"`
	Fillups  []fillupResponse   `json:"fillups,omitempty"`
	Warnings []core.RowWarning  `json:"warnings,omitempty"`
	Errors   []core.ImportError `json:"errors,omitempty"`
}

// handleImport accepts a CSV body and imports it as one batch. The commit is
// all-or-nothing: any row error returns the full error list and nothing is
// saved.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	result, err := s.backend.Imports.ImportCSV(r.Context(), vehicleID, r.Body)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			NotFoundError("vehicle not found").Write(w)
		case errors.Is(err, services.ErrEmptyImport),
			errors.Is(err, services.ErrMissingHeader),
			errors.Is(err, services.ErrTooManyRows):
			BadRequestError(err.Error()).Write(w)
		default:
			s.logger.ErrorContext(r.Context(), "Import failed",
				log.FieldVehicleID, vehicleID,
				log.FieldError, err,
				log.FieldOperation, log.OpImport)
			InternalServerError("import failed").Write(w)
		}
		return
	}

	resp := importResponse{
		Imported: result.OK(),
		Warnings: result.Warnings,
		Errors:   result.Errors,
	}

	if !result.OK() {
		// Validation failures are reported per row; the batch was not saved.
		NewResponse().Status(http.StatusUnprocessableEntity).JSON(resp).Write(w)
		return
	}

	for _, f := range result.Valid {
		resp.Fillups = append(resp.Fillups, fillupToResponse(f))
	}

	atomic.AddInt64(&s.appMetrics.totalImports, 1)
	atomic.AddInt64(&s.appMetrics.totalFillups, int64(len(result.Valid)))
	s.invalidateReport(vehicleID)

	s.logger.InfoContext(r.Context(), "Import committed",
		log.FieldVehicleID, vehicleID,
		log.FieldRowCount, len(result.Valid),
		"warning_count", len(result.Warnings))

	NewResponse().Status(http.StatusCreated).JSON(resp).Write(w)
}
