package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// OdometerMode vehicles record absolute odometer readings on every fillup.
	OdometerMode MileageMode = "odometer"
	// DistanceMode vehicles record the point-to-point distance since the previous fillup.
	DistanceMode MileageMode = "distance"
)

// Validation bounds. These are shared with the web and mobile clients and must
// not drift from the values they display in their error messages.
const (
	MaxFuelAmountLiters = 2000.0
	MaxTotalPrice       = 100000.0
	HorizonYears        = 10

	// MinPlausibleDistanceKm is the distance below which a fillup is flagged
	// as suspiciously close to its predecessor.
	MinPlausibleDistanceKm = 1.0

	// Plausible absolute consumption range in L/100km. Values outside it are
	// accepted but flagged for review.
	MinPlausibleConsumption = 1.0
	MaxPlausibleConsumption = 50.0
)

type (
	// MileageMode is a vehicle's fixed choice of mileage input, set at
	// creation and immutable afterwards.
	MileageMode string

	// Date is a calendar date. The time-of-day component is always UTC
	// midnight; only the ordering of dates is meaningful.
	Date struct {
		time.Time
	}

	Vehicle struct {
		ID              int64
		Name            string
		InitialOdometer int64
		Mode            MileageMode
	}

	// RawFillup carries user input exactly as submitted, before any
	// normalization. Empty strings mean the field was not supplied.
	RawFillup struct {
		Date       string
		FuelAmount string
		TotalPrice string
		Odometer   string
		Distance   string
	}

	// Fillup is a normalized refueling record. Odometer and Distance mirror
	// the vehicle's mileage mode: exactly one of them is set. The derived
	// fields are never user-supplied; DistanceTraveled and Consumption are
	// nil when no reference to a predecessor exists.
	Fillup struct {
		ID         int64
		VehicleID  int64
		Date       Date
		FuelAmount float64 // litres
		TotalPrice float64
		Odometer   *int64
		Distance   *float64

		DistanceTraveled *float64
		Consumption      *float64 // L/100km
		PricePerLiter    float64
	}
)

var (
	ErrEmptyName       = errors.New("empty vehicle name")
	ErrNameTooLong     = errors.New("vehicle name too long (max 100 characters)")
	ErrInvalidMode     = errors.New("invalid mileage mode")
	ErrNegativeInitial = errors.New("negative initial odometer")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidDecimal  = errors.New("invalid decimal value")
	ErrInvalidInteger  = errors.New("invalid integer value")
)

// FieldError is a hard validation failure on a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Rejection collects every field error found in one submission, so the caller
// can highlight all invalid fields in a single pass rather than one at a time.
type Rejection struct {
	Fields []FieldError
}

func (r *Rejection) Error() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid fillup: " + strings.Join(parts, "; ")
}

func (r *Rejection) add(field, message string) {
	r.Fields = append(r.Fields, FieldError{Field: field, Message: message})
}

// AsRejection unwraps err into a *Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// Warning codes attached to otherwise-valid fillups.
const (
	WarnDistanceDecreasing WarningCode = "distance_decreasing"
	WarnDistanceTiny       WarningCode = "distance_tiny"
	WarnConsumptionOutlier WarningCode = "consumption_implausible"
)

type (
	WarningCode string

	// Warning is a non-blocking advisory attached to an accepted fillup.
	// The caller should persist the record but give the user a chance to
	// review before navigating away.
	Warning struct {
		Code    WarningCode `json:"code"`
		Message string      `json:"message"`
	}
)

// NewDate builds a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Valid reports whether m is a known mileage mode.
func (m MileageMode) Valid() bool {
	return m == OdometerMode || m == DistanceMode
}

func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	if len(v.Name) > 100 {
		return ErrNameTooLong
	}
	if v.InitialOdometer < 0 {
		return ErrNegativeInitial
	}
	if !v.Mode.Valid() {
		return ErrInvalidMode
	}
	return nil
}
