package garminconnect

import "github.com/fitglue/garminconnect/pkg/domain/activity"

// remoteUnits maps the "uom" tags of listing fields. "celcius" is the remote's spelling.
var remoteUnits = map[string]activity.Unit{
	"mph":            activity.UnitMilesPerHour,
	"kph":            activity.UnitKilometersPerHour,
	"hmph":           activity.UnitHectometersPerHour,
	"hydph":          activity.UnitHundredYardsPerHour,
	"celcius":        activity.UnitDegreesCelsius,
	"fahrenheit":     activity.UnitDegreesFahrenheit,
	"mile":           activity.UnitMiles,
	"kilometer":      activity.UnitKilometers,
	"foot":           activity.UnitFeet,
	"meter":          activity.UnitMeters,
	"yard":           activity.UnitYards,
	"kilocalorie":    activity.UnitKilocalories,
	"bpm":            activity.UnitBeatsPerMinute,
	"stepsPerMinute": activity.UnitStepsPerMinute,
	"rpm":            activity.UnitRevolutionsPerMinute,
	"watt":           activity.UnitWatts,
}

// fieldUnit returns the canonical unit of a listing field's "uom" tag.
func fieldUnit(field Record) (activity.Unit, bool) {
	uom, ok := field.String("uom")
	if !ok {
		return activity.UnitNone, false
	}
	u, ok := remoteUnits[uom]
	return u, ok
}
