// Package core implements the fillup validation and derived-statistics engine.
//
// This file contains functions for parsing numeric user input. Clients submit
// amounts as free text, so both dot (45.5) and comma (45,5) decimal separators
// are accepted and normalized here.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// parseDecimal converts a decimal string to a float64.
//
// It accepts both dot and comma decimal separators. Signs are rejected: every
// decimal field in a fillup (fuel amount, price, distance) is non-negative by
// construction, so a leading "-" or "+" is treated as malformed input rather
// than a range violation.
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidDecimal
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidDecimal
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return 0, ErrInvalidDecimal
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidDecimal
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidDecimal
	}
	return v, nil
}

// parseNonNegativeInt converts an integer string to an int64. Used for
// odometer readings, which are whole kilometres and never negative.
func parseNonNegativeInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidInteger
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidInteger
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidInteger
	}
	return v, nil
}
