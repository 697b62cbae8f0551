package core

import "math"

// DeviationLevel buckets how far a fillup's consumption deviates from the
// vehicle's historical average. The seven ordered levels drive a uniform
// color-coding scheme in every client, so the boundaries here are
// presentation-critical: both the web and mobile renderers map these exact
// values to their own styles.
type DeviationLevel int

const (
	// LevelUnknown means no deviation is computable: missing consumption,
	// a non-positive average, or a non-finite input.
	LevelUnknown DeviationLevel = iota
	LevelExtremelyLow
	LevelVeryLow
	LevelLow
	LevelNeutral
	LevelHigh
	LevelVeryHigh
	LevelExtremelyHigh
)

var deviationLevelNames = map[DeviationLevel]string{
	LevelUnknown:       "unknown",
	LevelExtremelyLow:  "extremely_low",
	LevelVeryLow:       "very_low",
	LevelLow:           "low",
	LevelNeutral:       "neutral",
	LevelHigh:          "high",
	LevelVeryHigh:      "very_high",
	LevelExtremelyHigh: "extremely_high",
}

func (l DeviationLevel) String() string {
	if name, ok := deviationLevelNames[l]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the level as its string name, which is what the
// clients key their style maps on.
func (l DeviationLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// Classify buckets the percentage deviation of consumption from average.
//
// The deviation is d = (consumption - average) / average * 100 and the
// boundaries are:
//
//	d <= -15        extremely_low
//	-15 < d <= -8   very_low
//	-8 < d < 0      low
//	0 <= d < 5      neutral
//	5 <= d < 10     high
//	10 <= d < 20    very_high
//	d >= 20         extremely_high
//
// A nil or non-finite consumption, or a non-positive or non-finite average,
// yields LevelUnknown. Deviation is always relative to the vehicle's own
// history; there is deliberately no absolute-range guard here.
func Classify(consumption *float64, average float64) DeviationLevel {
	if consumption == nil {
		return LevelUnknown
	}
	c := *consumption
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return LevelUnknown
	}
	if average <= 0 || math.IsNaN(average) || math.IsInf(average, 0) {
		return LevelUnknown
	}

	d := (c - average) / average * 100
	switch {
	case d <= -15:
		return LevelExtremelyLow
	case d <= -8:
		return LevelVeryLow
	case d < 0:
		return LevelLow
	case d < 5:
		return LevelNeutral
	case d < 10:
		return LevelHigh
	case d < 20:
		return LevelVeryHigh
	default:
		return LevelExtremelyHigh
	}
}
