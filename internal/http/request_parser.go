// Package http provides the JSON API server.
//
// This file implements utilities for parsing and validating request data:
// JSON body decoding with a size cap, path parameter extraction and input
// sanitization.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tanklog/internal/core"
)

// maxBodyBytes caps JSON request bodies. CSV imports have their own limit
// via the configured row cap.
const maxBodyBytes = 1 << 20

// decodeJSON parses the request body into dst, rejecting unknown fields and
// trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON body")
	}
	return nil
}

// pathID extracts a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// vehicleRequest is the create/rename payload.
type vehicleRequest struct {
	Name            string `json:"name"`
	Mode            string `json:"mode"`
	InitialOdometer int64  `json:"initial_odometer"`
}

// fillupRequest is the create/update payload. All values arrive as strings,
// exactly as the user typed them; normalization happens in validation so
// that error messages can point at the original input.
type fillupRequest struct {
	Date       string `json:"date"`
	FuelAmount string `json:"fuel_amount"`
	TotalPrice string `json:"total_price"`
	Odometer   string `json:"odometer,omitempty"`
	Distance   string `json:"distance,omitempty"`
}

func (req fillupRequest) toRaw() core.RawFillup {
	return core.RawFillup{
		Date:       sanitizeInput(req.Date),
		FuelAmount: sanitizeInput(req.FuelAmount),
		TotalPrice: sanitizeInput(req.TotalPrice),
		Odometer:   sanitizeInput(req.Odometer),
		Distance:   sanitizeInput(req.Distance),
	}
}
