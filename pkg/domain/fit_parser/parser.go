package fit_parser

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

// FIT message order: FileId -> DeviceInfo -> Records -> Lap -> Session -> Activity
// Records come BEFORE Lap summaries, so everything is collected first and
// organized into laps once the stream is exhausted.

// semicircles per degree (2^31 / 180)
const semicircleConst = 11930464.7111

// ParseError reports a detail file that could not be turned into laps.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fit parse: %s: %v", e.Reason, e.Err)
	}
	return "fit parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser decodes FIT activity files into the laps and samples of an
// already-listed activity.
type Parser struct{}

// New returns a FIT detail parser.
func New() *Parser {
	return &Parser{}
}

// ParseDetail decodes data and replaces act.Laps with the decoded laps.
// act is left untouched when an error is returned.
func (p *Parser) ParseDetail(data []byte, act *activity.Activity) error {
	if act == nil {
		return errors.New("fit parse: nil activity")
	}
	if len(data) == 0 {
		return &ParseError{Reason: "empty FIT data"}
	}

	var (
		records  []activity.Waypoint
		lapInfos []lapInfo
		sport    = typedef.SportInvalid
		subSport = typedef.SubSportInvalid
	)

	fitDec := decoder.New(bytes.NewReader(data))
	for fitDec.Next() {
		fitData, err := fitDec.Decode()
		if err != nil {
			return &ParseError{Reason: "decode failed", Err: err}
		}

		for i := range fitData.Messages {
			msg := &fitData.Messages[i]
			switch msg.Num {
			case typedef.MesgNumRecord:
				if wp, ok := parseRecord(msg); ok {
					records = append(records, wp)
				}
			case typedef.MesgNumLap:
				if li, ok := parseLap(msg); ok {
					lapInfos = append(lapInfos, li)
				}
			case typedef.MesgNumSession:
				if sport == typedef.SportInvalid {
					session := mesgdef.NewSession(msg)
					sport, subSport = session.Sport, session.SubSport
				}
			}
		}
	}

	if len(records) == 0 && len(lapInfos) == 0 {
		return &ParseError{Reason: "no records or laps in FIT file"}
	}

	laps := buildLaps(records, lapInfos, act)
	for _, lap := range laps {
		if isRunning(act.Type, sport) {
			moveRunCadence(lap.Stats)
		}
	}

	if act.TZ != nil {
		for _, lap := range laps {
			lap.StartTime = lap.StartTime.In(act.TZ)
			lap.EndTime = lap.EndTime.In(act.TZ)
			for i := range lap.Waypoints {
				lap.Waypoints[i].Timestamp = lap.Waypoints[i].Timestamp.In(act.TZ)
			}
		}
	}
	if act.Type == activity.ActivityTypeUnspecified {
		act.Type = MapSport(sport, subSport)
	}
	act.Laps = laps
	return nil
}

type lapInfo struct {
	startTime time.Time
	endTime   time.Time
	stats     *activity.Stats
}

// buildLaps assigns records to laps by timestamp. Without lap messages a
// single lap spanning the listed activity (or the recorded samples) is made.
func buildLaps(records []activity.Waypoint, lapInfos []lapInfo, act *activity.Activity) []*activity.Lap {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	if len(lapInfos) == 0 {
		start, end := act.StartTime.UTC(), act.EndTime.UTC()
		if start.IsZero() || end.IsZero() {
			start = records[0].Timestamp
			end = records[len(records)-1].Timestamp
		}
		lap := activity.NewLap(start, end)
		lap.Waypoints = records
		return []*activity.Lap{lap}
	}

	sort.SliceStable(lapInfos, func(i, j int) bool {
		return lapInfos[i].startTime.Before(lapInfos[j].startTime)
	})

	laps := make([]*activity.Lap, len(lapInfos))
	for i, li := range lapInfos {
		laps[i] = &activity.Lap{StartTime: li.startTime, EndTime: li.endTime, Stats: li.stats}
	}

	for _, record := range records {
		// Last lap that has started by the sample's time; samples before the
		// first lap go to the first lap.
		idx := 0
		for i := len(lapInfos) - 1; i >= 0; i-- {
			if !record.Timestamp.Before(lapInfos[i].startTime) {
				idx = i
				break
			}
		}
		laps[idx].Waypoints = append(laps[idx].Waypoints, record)
	}
	return laps
}

// parseRecord extracts a waypoint from a record message
func parseRecord(msg *proto.Message) (activity.Waypoint, bool) {
	recordMsg := mesgdef.NewRecord(msg)

	ts := recordMsg.Timestamp
	if ts.IsZero() {
		return activity.Waypoint{}, false
	}
	wp := activity.Waypoint{Timestamp: ts.UTC()}

	if recordMsg.HeartRate != 0xFF {
		wp.HR = ptr(float64(recordMsg.HeartRate))
	}
	if recordMsg.Power != 0xFFFF {
		wp.Power = ptr(float64(recordMsg.Power))
	}
	if recordMsg.Cadence != 0xFF {
		wp.Cadence = ptr(float64(recordMsg.Cadence))
	}

	// Speed in mm/s; enhanced speed wins when present
	switch {
	case recordMsg.EnhancedSpeed != 0xFFFFFFFF:
		wp.Speed = ptr(float64(recordMsg.EnhancedSpeed) / 1000)
	case recordMsg.Speed != 0xFFFF:
		wp.Speed = ptr(float64(recordMsg.Speed) / 1000)
	}

	// Altitude uses a 5 * (altitude + 500) scale
	switch {
	case recordMsg.EnhancedAltitude != 0xFFFFFFFF:
		wp.Altitude = ptr(float64(recordMsg.EnhancedAltitude)/5 - 500)
	case recordMsg.Altitude != 0xFFFF:
		wp.Altitude = ptr(float64(recordMsg.Altitude)/5 - 500)
	}

	if recordMsg.Distance != 0xFFFFFFFF {
		wp.Distance = ptr(float64(recordMsg.Distance) / 100)
	}

	if recordMsg.PositionLat != 0x7FFFFFFF && recordMsg.PositionLong != 0x7FFFFFFF {
		wp.Latitude = ptr(float64(recordMsg.PositionLat) / semicircleConst)
		wp.Longitude = ptr(float64(recordMsg.PositionLong) / semicircleConst)
	}

	return wp, true
}

// parseLap turns a lap summary into lap bounds and statistics
func parseLap(msg *proto.Message) (lapInfo, bool) {
	lapMsg := mesgdef.NewLap(msg)
	if lapMsg.StartTime.IsZero() {
		return lapInfo{}, false
	}

	li := lapInfo{startTime: lapMsg.StartTime.UTC(), stats: activity.NewStats()}
	s := li.stats

	elapsed := 0.0
	if lapMsg.TotalElapsedTime != 0xFFFFFFFF {
		elapsed = float64(lapMsg.TotalElapsedTime) / 1000
	}
	li.endTime = li.startTime.Add(time.Duration(elapsed * float64(time.Second)))
	if !lapMsg.Timestamp.IsZero() && lapMsg.Timestamp.After(li.endTime) {
		li.endTime = lapMsg.Timestamp.UTC()
	}

	if lapMsg.TotalDistance != 0xFFFFFFFF {
		s.Distance.SetFacet(activity.FacetValue, float64(lapMsg.TotalDistance)/100)
	}
	if lapMsg.TotalTimerTime != 0xFFFFFFFF {
		s.TimerTime.SetFacet(activity.FacetValue, float64(lapMsg.TotalTimerTime)/1000)
	}

	if lapMsg.AvgHeartRate != 0xFF {
		s.HR.SetFacet(activity.FacetAverage, float64(lapMsg.AvgHeartRate))
	}
	if lapMsg.MaxHeartRate != 0xFF {
		s.HR.SetFacet(activity.FacetMax, float64(lapMsg.MaxHeartRate))
	}
	if lapMsg.AvgCadence != 0xFF {
		s.Cadence.SetFacet(activity.FacetAverage, float64(lapMsg.AvgCadence))
	}
	if lapMsg.MaxCadence != 0xFF {
		s.Cadence.SetFacet(activity.FacetMax, float64(lapMsg.MaxCadence))
	}
	if lapMsg.AvgPower != 0xFFFF {
		s.Power.SetFacet(activity.FacetAverage, float64(lapMsg.AvgPower))
	}
	if lapMsg.MaxPower != 0xFFFF {
		s.Power.SetFacet(activity.FacetMax, float64(lapMsg.MaxPower))
	}
	if lapMsg.AvgSpeed != 0xFFFF {
		setConverted(&s.Speed, activity.UnitMetersPerSecond, activity.FacetAverage, float64(lapMsg.AvgSpeed)/1000)
	}
	if lapMsg.MaxSpeed != 0xFFFF {
		setConverted(&s.Speed, activity.UnitMetersPerSecond, activity.FacetMax, float64(lapMsg.MaxSpeed)/1000)
	}
	if lapMsg.TotalAscent != 0xFFFF {
		s.Elevation.SetFacet(activity.FacetGain, float64(lapMsg.TotalAscent))
	}
	if lapMsg.TotalDescent != 0xFFFF {
		s.Elevation.SetFacet(activity.FacetLoss, float64(lapMsg.TotalDescent))
	}
	if lapMsg.TotalCalories != 0xFFFF {
		s.Energy.SetFacet(activity.FacetValue, float64(lapMsg.TotalCalories))
	}

	return li, true
}

// setConverted writes v (in unit u) into stat, converting into the stat's unit.
func setConverted(stat *activity.Statistic, u activity.Unit, f activity.Facet, v float64) {
	converted, err := activity.Convert(v, u, stat.Unit)
	if err != nil || math.IsNaN(converted) || math.IsInf(converted, 0) {
		return
	}
	stat.SetFacet(f, converted)
}

// moveRunCadence reinterprets FIT's strides per minute as steps per minute.
func moveRunCadence(s *activity.Stats) {
	if s.Cadence.IsEmpty() {
		return
	}
	for _, f := range activity.AllFacets {
		if v, ok := s.Cadence.Facet(f); ok {
			s.RunCadence.SetFacet(f, v*2)
		}
	}
	s.Cadence = activity.Statistic{Unit: activity.UnitRevolutionsPerMinute}
}

func isRunning(t activity.ActivityType, sport typedef.Sport) bool {
	if t != activity.ActivityTypeUnspecified {
		return t == activity.ActivityTypeRunning
	}
	return sport == typedef.SportRunning
}

func ptr(v float64) *float64 { return &v }

// MapSport converts a FIT sport pair to the canonical activity type.
func MapSport(sport typedef.Sport, subSport typedef.SubSport) activity.ActivityType {
	switch sport {
	case typedef.SportRunning:
		return activity.ActivityTypeRunning
	case typedef.SportCycling:
		if subSport == typedef.SubSportMountain || subSport == typedef.SubSportEBikeMountain {
			return activity.ActivityTypeMountainBiking
		}
		return activity.ActivityTypeCycling
	case typedef.SportWalking:
		return activity.ActivityTypeWalking
	case typedef.SportHiking:
		return activity.ActivityTypeHiking
	case typedef.SportAlpineSkiing:
		return activity.ActivityTypeDownhillSkiing
	case typedef.SportCrossCountrySkiing:
		return activity.ActivityTypeCrossCountrySkiing
	case typedef.SportSnowboarding:
		return activity.ActivityTypeSnowboarding
	case typedef.SportIceSkating, typedef.SportInlineSkating:
		return activity.ActivityTypeSkating
	case typedef.SportSwimming:
		return activity.ActivityTypeSwimming
	case typedef.SportRowing:
		return activity.ActivityTypeRowing
	case typedef.SportRockClimbing:
		return activity.ActivityTypeClimbing
	case typedef.SportFitnessEquipment:
		if subSport == typedef.SubSportElliptical {
			return activity.ActivityTypeElliptical
		}
		return activity.ActivityTypeGym
	case typedef.SportTraining:
		switch subSport {
		case typedef.SubSportStrengthTraining:
			return activity.ActivityTypeStrengthTraining
		case typedef.SubSportElliptical:
			return activity.ActivityTypeElliptical
		default:
			return activity.ActivityTypeGym
		}
	default:
		return activity.ActivityTypeOther
	}
}
