package activity

import (
	"fmt"
	"strings"
)

// Unit identifies the physical unit a Statistic is expressed in.
type Unit int

const (
	UnitNone Unit = iota
	UnitMeters
	UnitKilometers
	UnitMiles
	UnitFeet
	UnitYards
	UnitMetersPerSecond
	UnitKilometersPerHour
	UnitMilesPerHour
	UnitHectometersPerHour
	UnitHundredYardsPerHour
	UnitDegreesCelsius
	UnitDegreesFahrenheit
	UnitKilocalories
	UnitKilojoules
	UnitBeatsPerMinute
	UnitStepsPerMinute
	UnitRevolutionsPerMinute
	UnitWatts
	UnitSeconds
)

type dimension int

const (
	dimNone dimension = iota
	dimDistance
	dimSpeed
	dimTemperature
	dimEnergy
	dimHeartRate
	dimStepCadence
	dimRevCadence
	dimPower
	dimTime
)

// unitInfo describes a unit by its dimension and its linear factor to the
// dimension's base unit (metres, m/s, kcal, ...). Temperature is affine and
// handled separately.
type unitInfo struct {
	name   string
	dim    dimension
	factor float64
}

var units = map[Unit]unitInfo{
	UnitNone:                 {"none", dimNone, 1},
	UnitMeters:               {"m", dimDistance, 1},
	UnitKilometers:           {"km", dimDistance, 1000},
	UnitMiles:                {"mi", dimDistance, 1609.344},
	UnitFeet:                 {"ft", dimDistance, 0.3048},
	UnitYards:                {"yd", dimDistance, 0.9144},
	UnitMetersPerSecond:      {"m/s", dimSpeed, 1},
	UnitKilometersPerHour:    {"km/h", dimSpeed, 1000.0 / 3600},
	UnitMilesPerHour:         {"mph", dimSpeed, 1609.344 / 3600},
	UnitHectometersPerHour:   {"hm/h", dimSpeed, 100.0 / 3600},
	UnitHundredYardsPerHour:  {"100yd/h", dimSpeed, 91.44 / 3600},
	UnitDegreesCelsius:       {"degC", dimTemperature, 1},
	UnitDegreesFahrenheit:    {"degF", dimTemperature, 1},
	UnitKilocalories:         {"kcal", dimEnergy, 1},
	UnitKilojoules:           {"kJ", dimEnergy, 1 / 4.184},
	UnitBeatsPerMinute:       {"bpm", dimHeartRate, 1},
	UnitStepsPerMinute:       {"spm", dimStepCadence, 1},
	UnitRevolutionsPerMinute: {"rpm", dimRevCadence, 1},
	UnitWatts:                {"W", dimPower, 1},
	UnitSeconds:              {"s", dimTime, 1},
}

// String returns the short unit label, e.g. "km/h".
func (u Unit) String() string {
	if info, ok := units[u]; ok {
		return info.name
	}
	return fmt.Sprintf("Unit(%d)", int(u))
}

// ParseUnit is the inverse of Unit.String.
func ParseUnit(s string) (Unit, error) {
	for u, info := range units {
		if strings.EqualFold(info.name, s) {
			return u, nil
		}
	}
	return UnitNone, fmt.Errorf("unknown unit %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(b []byte) error {
	parsed, err := ParseUnit(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Convert converts v from one unit to another of the same dimension.
func Convert(v float64, from, to Unit) (float64, error) {
	if from == to {
		return v, nil
	}
	fi, ok := units[from]
	if !ok {
		return 0, fmt.Errorf("unknown source unit %v", from)
	}
	ti, ok := units[to]
	if !ok {
		return 0, fmt.Errorf("unknown target unit %v", to)
	}
	if fi.dim != ti.dim || fi.dim == dimNone {
		return 0, fmt.Errorf("cannot convert %v to %v", from, to)
	}

	if fi.dim == dimTemperature {
		if from == UnitDegreesFahrenheit {
			return (v - 32) * 5 / 9, nil
		}
		return v*9/5 + 32, nil
	}

	return v * fi.factor / ti.factor, nil
}
