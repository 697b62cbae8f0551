package core

import (
	"fmt"
	"time"
)

// TieBreak orders two fillups that share the same calendar date. It reports
// whether a comes before b. The predecessor lookup uses it to decide which of
// several same-day entries is the chronological neighbor of a candidate.
//
// The upstream clients never agreed on a single rule here, so the comparator
// is an explicit parameter rather than a buried assumption.
type TieBreak func(a, b Fillup) bool

// InsertionOrder breaks date ties by database ID, oldest insertion first.
// This is the default.
func InsertionOrder(a, b Fillup) bool { return a.ID < b.ID }

// ReverseInsertionOrder breaks date ties by database ID, newest insertion
// first.
func ReverseInsertionOrder(a, b Fillup) bool { return a.ID > b.ID }

// Validator normalizes a raw fillup, checks it against the vehicle's history
// and computes the derived fields. It is a pure function over its inputs: the
// only ambient dependency is the clock used for the future-date check, which
// is injectable for tests.
type Validator struct {
	// Now supplies the current time for the future-date and horizon checks.
	// Defaults to time.Now.
	Now func() time.Time

	// TieBreak orders same-day fillups during predecessor lookup.
	// Defaults to InsertionOrder.
	TieBreak TieBreak

	// HorizonYears is how far back a fillup date may lie. Defaults to
	// HorizonYears (10).
	Horizon int
}

// NewValidator returns a Validator with the default clock, tie-break rule and
// horizon.
func NewValidator() *Validator {
	return &Validator{Now: time.Now, TieBreak: InsertionOrder, Horizon: HorizonYears}
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Validator) tieBreak() TieBreak {
	if v.TieBreak != nil {
		return v.TieBreak
	}
	return InsertionOrder
}

func (v *Validator) horizon() int {
	if v.Horizon > 0 {
		return v.Horizon
	}
	return HorizonYears
}

// Validate checks raw against the vehicle and its prior fillups.
//
// On hard failure it returns a *Rejection carrying one FieldError per invalid
// field; every field is checked before returning, never just the first. On
// success it returns the normalized fillup with all derived fields computed,
// plus zero or more advisory warnings. Warnings never block: the caller
// should persist the record and surface the warnings for user review.
func (v *Validator) Validate(vehicle Vehicle, raw RawFillup, history []Fillup) (Fillup, []Warning, error) {
	f, rej := v.normalize(vehicle, raw)
	if rej != nil {
		return Fillup{}, nil, rej
	}
	warnings := v.derive(vehicle, &f, history)
	return f, warnings, nil
}

// normalize parses and bounds-checks every field of raw, collecting all
// rejections. It does not touch the derived fields.
func (v *Validator) normalize(vehicle Vehicle, raw RawFillup) (Fillup, *Rejection) {
	rej := &Rejection{}
	f := Fillup{VehicleID: vehicle.ID}

	v.normalizeDate(raw, &f, rej)
	v.normalizeAmounts(raw, &f, rej)
	v.normalizeMileage(vehicle, raw, &f, rej)

	if len(rej.Fields) > 0 {
		return Fillup{}, rej
	}
	f.PricePerLiter = f.TotalPrice / f.FuelAmount
	return f, nil
}

func (v *Validator) normalizeDate(raw RawFillup, f *Fillup, rej *Rejection) {
	if raw.Date == "" {
		rej.add("date", "date is required")
		return
	}
	d, err := ParseDate(raw.Date)
	if err != nil {
		rej.add("date", "date must be in YYYY-MM-DD format")
		return
	}
	today := DateOf(v.now())
	if d.After(today.Time) {
		rej.add("date", "date cannot be in the future")
		return
	}
	oldest := Date{Time: today.AddDate(-v.horizon(), 0, 0)}
	if d.Before(oldest.Time) {
		rej.add("date", fmt.Sprintf("date cannot be more than %d years in the past", v.horizon()))
		return
	}
	f.Date = d
}

func (v *Validator) normalizeAmounts(raw RawFillup, f *Fillup, rej *Rejection) {
	if raw.FuelAmount == "" {
		rej.add("fuel_amount", "fuel amount is required")
	} else if amount, err := parseDecimal(raw.FuelAmount); err != nil {
		rej.add("fuel_amount", "fuel amount must be a number")
	} else if amount <= 0 {
		rej.add("fuel_amount", "fuel amount must be greater than zero")
	} else if amount > MaxFuelAmountLiters {
		rej.add("fuel_amount", fmt.Sprintf("fuel amount cannot exceed %.0f litres", MaxFuelAmountLiters))
	} else {
		f.FuelAmount = amount
	}

	if raw.TotalPrice == "" {
		rej.add("total_price", "total price is required")
	} else if price, err := parseDecimal(raw.TotalPrice); err != nil {
		rej.add("total_price", "total price must be a number")
	} else if price <= 0 {
		rej.add("total_price", "total price must be greater than zero")
	} else if price > MaxTotalPrice {
		rej.add("total_price", fmt.Sprintf("total price cannot exceed %.0f", MaxTotalPrice))
	} else {
		f.TotalPrice = price
	}
}

func (v *Validator) normalizeMileage(vehicle Vehicle, raw RawFillup, f *Fillup, rej *Rejection) {
	hasOdometer := raw.Odometer != ""
	hasDistance := raw.Distance != ""

	switch {
	case hasOdometer && hasDistance:
		rej.add("odometer", "supply either an odometer reading or a distance, not both")
		rej.add("distance", "supply either an odometer reading or a distance, not both")
		return
	case !hasOdometer && !hasDistance:
		rej.add("odometer", "either an odometer reading or a distance is required")
		rej.add("distance", "either an odometer reading or a distance is required")
		return
	}

	if hasOdometer {
		if vehicle.Mode != OdometerMode {
			rej.add("odometer", "this vehicle records distances, not odometer readings")
			return
		}
		odo, err := parseNonNegativeInt(raw.Odometer)
		if err != nil {
			rej.add("odometer", "odometer must be a non-negative whole number")
			return
		}
		f.Odometer = &odo
		return
	}

	if vehicle.Mode != DistanceMode {
		rej.add("distance", "this vehicle records odometer readings, not distances")
		return
	}
	dist, err := parseDecimal(raw.Distance)
	if err != nil {
		rej.add("distance", "distance must be a non-negative number")
		return
	}
	f.Distance = &dist
}

// derive computes DistanceTraveled and Consumption against the vehicle's
// history and returns the advisory warnings. f must already be normalized.
func (v *Validator) derive(vehicle Vehicle, f *Fillup, history []Fillup) []Warning {
	switch vehicle.Mode {
	case DistanceMode:
		if f.Distance != nil {
			d := *f.Distance
			f.DistanceTraveled = &d
		}
	default:
		pred := v.predecessor(*f, history)
		switch {
		case pred != nil && pred.Odometer != nil:
			d := float64(*f.Odometer - *pred.Odometer)
			f.DistanceTraveled = &d
		case pred == nil && vehicle.InitialOdometer > 0:
			// The creation-time reading is the implicit predecessor of the
			// first fillup.
			d := float64(*f.Odometer - vehicle.InitialOdometer)
			f.DistanceTraveled = &d
		}
		// First fillup of a vehicle registered at odometer zero: no
		// meaningful reference, leave DistanceTraveled nil.
	}

	if f.DistanceTraveled != nil && *f.DistanceTraveled > 0 {
		c := f.FuelAmount / *f.DistanceTraveled * 100
		f.Consumption = &c
	}

	return v.warnings(*f)
}

// Recompute re-derives DistanceTraveled and Consumption for every fillup in
// the list against the others, returning the entries whose derived fields
// changed. Callers run it after an insert, edit or delete so the chronological
// successor of the mutated record picks up its new predecessor.
func (v *Validator) Recompute(vehicle Vehicle, fillups []Fillup) []Fillup {
	var changed []Fillup
	for i := range fillups {
		f := fillups[i]
		f.DistanceTraveled = nil
		f.Consumption = nil

		others := make([]Fillup, 0, len(fillups)-1)
		for j := range fillups {
			if j != i {
				others = append(others, fillups[j])
			}
		}
		v.derive(vehicle, &f, others)

		if !floatPtrEqual(f.DistanceTraveled, fillups[i].DistanceTraveled) ||
			!floatPtrEqual(f.Consumption, fillups[i].Consumption) {
			changed = append(changed, f)
		}
	}
	return changed
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// predecessor finds the prior fillup with the latest date strictly before the
// candidate's. Entries sharing the candidate's date are not predecessors.
// Same-day ties among history entries are resolved by the tie-break rule: the
// entry ordered last wins.
func (v *Validator) predecessor(f Fillup, history []Fillup) *Fillup {
	tb := v.tieBreak()
	var best *Fillup
	for i := range history {
		h := &history[i]
		if !h.Date.Before(f.Date.Time) {
			continue
		}
		if best == nil || best.Date.Before(h.Date.Time) {
			best = h
			continue
		}
		if best.Date.Equal(h.Date.Time) && tb(*best, *h) {
			best = h
		}
	}
	return best
}

func (v *Validator) warnings(f Fillup) []Warning {
	var out []Warning
	if f.DistanceTraveled != nil {
		d := *f.DistanceTraveled
		if d < 0 {
			out = append(out, Warning{
				Code:    WarnDistanceDecreasing,
				Message: "odometer or distance is lower than the previous entry",
			})
		} else if d < MinPlausibleDistanceKm {
			out = append(out, Warning{
				Code:    WarnDistanceTiny,
				Message: "very short distance since the last fillup",
			})
		}
	}
	if f.Consumption != nil {
		c := *f.Consumption
		if c < MinPlausibleConsumption || c > MaxPlausibleConsumption {
			out = append(out, Warning{
				Code: WarnConsumptionOutlier,
				Message: fmt.Sprintf("consumption of %.1f L/100km is outside the plausible range (%.0f-%.0f)",
					c, MinPlausibleConsumption, MaxPlausibleConsumption),
			})
		}
	}
	return out
}
