package google

import (
	"fmt"
	"strconv"
	"strings"

	"tanklog/internal/core"
)

// fillupToRow renders a fillup as one sheet row. Optional fields that are
// not set become empty cells.
func fillupToRow(f core.Fillup) []any {
	row := make([]any, fillupColumns)
	row[0] = strconv.FormatInt(f.ID, 10)
	row[1] = strconv.FormatInt(f.VehicleID, 10)
	row[2] = f.Date.String()
	row[3] = formatFloat(f.FuelAmount)
	row[4] = formatFloat(f.TotalPrice)
	row[5] = cellInt64(f.Odometer)
	row[6] = cellFloat64(f.Distance)
	row[7] = cellFloat64(f.DistanceTraveled)
	row[8] = cellFloat64(f.Consumption)
	row[9] = formatFloat(f.PricePerLiter)
	return row
}

// parseFillupRow is the inverse of fillupToRow. Header rows and rows with a
// non-numeric ID report ok=false.
func parseFillupRow(row []any) (core.Fillup, bool) {
	cells := toStrings(row)
	if len(cells) < 5 {
		return core.Fillup{}, false
	}

	id, err := strconv.ParseInt(cells[0], 10, 64)
	if err != nil || id <= 0 {
		return core.Fillup{}, false
	}
	vehicleID, err := strconv.ParseInt(cells[1], 10, 64)
	if err != nil {
		return core.Fillup{}, false
	}
	date, err := core.ParseDate(cells[2])
	if err != nil {
		return core.Fillup{}, false
	}
	fuel, err := parseNumber(cells[3])
	if err != nil {
		return core.Fillup{}, false
	}
	price, err := parseNumber(cells[4])
	if err != nil {
		return core.Fillup{}, false
	}

	f := core.Fillup{
		ID:         id,
		VehicleID:  vehicleID,
		Date:       date,
		FuelAmount: fuel,
		TotalPrice: price,
	}
	f.Odometer = optionalInt64(cells, 5)
	f.Distance = optionalFloat64(cells, 6)
	f.DistanceTraveled = optionalFloat64(cells, 7)
	f.Consumption = optionalFloat64(cells, 8)
	if ppl := optionalFloat64(cells, 9); ppl != nil {
		f.PricePerLiter = *ppl
	}
	return f, true
}

// toStrings flattens a sheets value row into trimmed strings.
func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// parseNumber accepts both "12.5" and the "12,5" form sheets produce under
// European locales.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(s, 64)
}

func optionalInt64(cells []string, idx int) *int64 {
	if idx >= len(cells) || cells[idx] == "" {
		return nil
	}
	v, err := strconv.ParseInt(cells[idx], 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func optionalFloat64(cells []string, idx int) *float64 {
	if idx >= len(cells) || cells[idx] == "" {
		return nil
	}
	v, err := parseNumber(cells[idx])
	if err != nil {
		return nil
	}
	return &v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cellInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func cellFloat64(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
