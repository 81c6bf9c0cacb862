package garminconnect

import (
	"math"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

// statRule maps one listing field onto a facet of a canonical statistic.
// With SourceUnits the whole statistic is re-expressed in the field's unit,
// which keeps speed facets reversible for the pace correction.
type statRule struct {
	Field       string
	Stat        activity.StatKind
	Facet       activity.Facet
	SourceUnits bool
}

// statRules is applied in order. Speed comes first so later rules never see
// a speed statistic in anything but its source unit.
var statRules = []statRule{
	{"minSpeed", activity.StatSpeed, activity.FacetMin, true},
	{"maxSpeed", activity.StatSpeed, activity.FacetMax, true},
	{"weightedMeanSpeed", activity.StatSpeed, activity.FacetAverage, true},
	{"minAirTemperature", activity.StatTemperature, activity.FacetMin, false},
	{"maxAirTemperature", activity.StatTemperature, activity.FacetMax, false},
	{"weightedMeanAirTemperature", activity.StatTemperature, activity.FacetAverage, false},
	{"sumEnergy", activity.StatEnergy, activity.FacetValue, false},
	{"maxHeartRate", activity.StatHR, activity.FacetMax, false},
	{"weightedMeanHeartRate", activity.StatHR, activity.FacetAverage, false},
	{"maxRunCadence", activity.StatRunCadence, activity.FacetMax, false},
	{"weightedMeanRunCadence", activity.StatRunCadence, activity.FacetAverage, false},
	{"maxBikeCadence", activity.StatCadence, activity.FacetMax, false},
	{"weightedMeanBikeCadence", activity.StatCadence, activity.FacetAverage, false},
	{"minPower", activity.StatPower, activity.FacetMin, false},
	{"maxPower", activity.StatPower, activity.FacetMax, false},
	{"weightedMeanPower", activity.StatPower, activity.FacetAverage, false},
	{"minElevation", activity.StatElevation, activity.FacetMin, false},
	{"maxElevation", activity.StatElevation, activity.FacetMax, false},
	{"gainElevation", activity.StatElevation, activity.FacetGain, false},
	{"lossElevation", activity.StatElevation, activity.FacetLoss, false},
}

// apply maps the rule's field of raw into stats. A missing field, an
// unknown unit or a non-finite value leaves stats untouched.
func (r statRule) apply(raw Record, stats *activity.Stats) error {
	field, ok := raw.Object(r.Field)
	if !ok {
		return nil
	}
	v, ok := field.Float("value")
	if !ok || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	unit, ok := fieldUnit(field)
	if !ok {
		return nil
	}

	target := stats.Get(r.Stat)
	if r.SourceUnits && target.Unit != unit {
		converted, err := target.AsUnits(unit)
		if err != nil {
			return err
		}
		*target = converted
	}
	return target.Update(activity.NewStatistic(unit, r.Facet, v))
}

// applyStatRules runs every rule against raw.
func applyStatRules(raw Record, stats *activity.Stats) error {
	for _, rule := range statRules {
		if err := rule.apply(raw, stats); err != nil {
			return err
		}
	}
	return nil
}
