package file_generators

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

// semicircles per degree (2^31 / 180)
const semicircleConst = 11930464.7111

// Generator renders canonical activities as FIT activity files.
type Generator struct{}

// New returns a FIT file generator.
func New() *Generator {
	return &Generator{}
}

// DumpUpload encodes act as a FIT activity file: samples as records, one lap
// message per lap and a session carrying the activity totals.
func (g *Generator) DumpUpload(act *activity.Activity) ([]byte, error) {
	if act == nil {
		return nil, errors.New("activity cannot be nil")
	}
	if act.StartTime.IsZero() || act.EndTime.IsZero() {
		return nil, errors.New("activity must have start and end times")
	}
	if act.EndTime.Before(act.StartTime) {
		return nil, fmt.Errorf("activity ends before it starts: %v < %v", act.EndTime, act.StartTime)
	}

	start, end := act.StartTime.UTC(), act.EndTime.UTC()
	stats := act.Stats
	if stats == nil {
		stats = activity.NewStats()
	}
	laps := act.Laps
	if len(laps) == 0 {
		laps = []*activity.Lap{{StartTime: start, EndTime: end, Stats: stats}}
	}
	running := act.Type == activity.ActivityTypeRunning
	sport, subSport := MapActivityType(act.Type)

	fit := &proto.FIT{Messages: make([]proto.Message, 0, 8+len(laps))}

	// 1. FileId message
	fit.Messages = append(fit.Messages, mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetManufacturer(typedef.ManufacturerDevelopment).
		SetProduct(1).
		SetTimeCreated(start).
		ToMesg(nil))

	fit.Messages = append(fit.Messages, mesgdef.NewEvent(nil).
		SetTimestamp(start).
		SetEvent(typedef.EventTimer).
		SetEventType(typedef.EventTypeStart).
		ToMesg(nil))

	// 2. Records, in lap order
	for _, lap := range laps {
		for i := range lap.Waypoints {
			fit.Messages = append(fit.Messages, recordMesg(&lap.Waypoints[i]))
		}
	}

	fit.Messages = append(fit.Messages, mesgdef.NewEvent(nil).
		SetTimestamp(end).
		SetEvent(typedef.EventTimer).
		SetEventType(typedef.EventTypeStopAll).
		ToMesg(nil))

	// 3. Lap summaries
	for i, lap := range laps {
		fit.Messages = append(fit.Messages, lapMesg(lap, i, sport, running))
	}

	// 4. Session
	elapsed := u32(end.Sub(start).Seconds()*1000, true)
	timer, ok := read(stats.TimerTime, activity.UnitSeconds, activity.FacetValue, 1000)
	if !ok {
		timer = float64(elapsed)
	}
	r := newStatReader(stats, running)
	session := mesgdef.NewSession(nil).
		SetTimestamp(end).
		SetStartTime(start).
		SetSport(sport).
		SetSubSport(subSport).
		SetNumLaps(uint16(len(laps))).
		SetFirstLapIndex(0).
		SetTotalElapsedTime(elapsed).
		SetTotalTimerTime(u32(timer, true)).
		SetTotalDistance(u32(r.distance())).
		SetAvgHeartRate(u8(r.hr(activity.FacetAverage))).
		SetMaxHeartRate(u8(r.hr(activity.FacetMax))).
		SetAvgCadence(u8(r.cadence(activity.FacetAverage))).
		SetMaxCadence(u8(r.cadence(activity.FacetMax))).
		SetAvgPower(u16(r.power(activity.FacetAverage))).
		SetMaxPower(u16(r.power(activity.FacetMax))).
		SetAvgSpeed(u16(r.speed(activity.FacetAverage))).
		SetMaxSpeed(u16(r.speed(activity.FacetMax))).
		SetTotalAscent(u16(r.elevation(activity.FacetGain))).
		SetTotalDescent(u16(r.elevation(activity.FacetLoss))).
		SetTotalCalories(u16(r.energy()))
	fit.Messages = append(fit.Messages, session.ToMesg(nil))

	// 5. Activity
	fit.Messages = append(fit.Messages, mesgdef.NewActivity(nil).
		SetTimestamp(end).
		SetType(typedef.ActivityManual).
		SetTotalTimerTime(u32(timer, true)).
		SetNumSessions(1).
		ToMesg(nil))

	var buf bytes.Buffer
	enc := encoder.New(&buf)
	if err := enc.Encode(fit); err != nil {
		return nil, fmt.Errorf("failed to encode FIT file: %w", err)
	}
	return buf.Bytes(), nil
}

func recordMesg(wp *activity.Waypoint) proto.Message {
	rec := mesgdef.NewRecord(nil).SetTimestamp(wp.Timestamp.UTC())

	if wp.Latitude != nil && wp.Longitude != nil {
		rec.SetPositionLat(int32(math.Round(*wp.Latitude * semicircleConst)))
		rec.SetPositionLong(int32(math.Round(*wp.Longitude * semicircleConst)))
	}
	if wp.Altitude != nil {
		scaled := (*wp.Altitude + 500) * 5
		rec.SetAltitude(u16(scaled, true))
		rec.SetEnhancedAltitude(u32(scaled, true))
	}
	if wp.Speed != nil {
		rec.SetSpeed(u16(*wp.Speed*1000, true))
		rec.SetEnhancedSpeed(u32(*wp.Speed*1000, true))
	}
	if wp.Distance != nil {
		rec.SetDistance(u32(*wp.Distance*100, true))
	}
	if wp.HR != nil {
		rec.SetHeartRate(u8(*wp.HR, true))
	}
	if wp.Cadence != nil {
		rec.SetCadence(u8(*wp.Cadence, true))
	}
	if wp.Power != nil {
		rec.SetPower(u16(*wp.Power, true))
	}
	return rec.ToMesg(nil)
}

func lapMesg(lap *activity.Lap, index int, sport typedef.Sport, running bool) proto.Message {
	start, end := lap.StartTime.UTC(), lap.EndTime.UTC()
	elapsed := u32(end.Sub(start).Seconds()*1000, true)

	stats := lap.Stats
	if stats == nil {
		stats = activity.NewStats()
	}
	timer, ok := read(stats.TimerTime, activity.UnitSeconds, activity.FacetValue, 1000)
	if !ok {
		timer = float64(elapsed)
	}

	r := newStatReader(stats, running)
	return mesgdef.NewLap(nil).
		SetMessageIndex(typedef.MessageIndex(index)).
		SetTimestamp(end).
		SetStartTime(start).
		SetSport(sport).
		SetTotalElapsedTime(elapsed).
		SetTotalTimerTime(u32(timer, true)).
		SetTotalDistance(u32(r.distance())).
		SetAvgHeartRate(u8(r.hr(activity.FacetAverage))).
		SetMaxHeartRate(u8(r.hr(activity.FacetMax))).
		SetAvgCadence(u8(r.cadence(activity.FacetAverage))).
		SetMaxCadence(u8(r.cadence(activity.FacetMax))).
		SetAvgPower(u16(r.power(activity.FacetAverage))).
		SetMaxPower(u16(r.power(activity.FacetMax))).
		SetAvgSpeed(u16(r.speed(activity.FacetAverage))).
		SetMaxSpeed(u16(r.speed(activity.FacetMax))).
		SetTotalAscent(u16(r.elevation(activity.FacetGain))).
		SetTotalDescent(u16(r.elevation(activity.FacetLoss))).
		SetTotalCalories(u16(r.energy())).
		ToMesg(nil)
}

// statReader reads statistics in FIT base units and scales.
type statReader struct {
	s       *activity.Stats
	running bool
}

func newStatReader(s *activity.Stats, running bool) statReader {
	if s == nil {
		s = activity.NewStats()
	}
	return statReader{s: s, running: running}
}

func (r statReader) distance() (float64, bool) {
	return read(r.s.Distance, activity.UnitMeters, activity.FacetValue, 100)
}

func (r statReader) hr(f activity.Facet) (float64, bool) {
	return read(r.s.HR, activity.UnitBeatsPerMinute, f, 1)
}

// cadence is strides per minute for runs.
func (r statReader) cadence(f activity.Facet) (float64, bool) {
	if r.running {
		if v, ok := read(r.s.RunCadence, activity.UnitStepsPerMinute, f, 0.5); ok {
			return v, true
		}
	}
	return read(r.s.Cadence, activity.UnitRevolutionsPerMinute, f, 1)
}

func (r statReader) power(f activity.Facet) (float64, bool) {
	return read(r.s.Power, activity.UnitWatts, f, 1)
}

func (r statReader) speed(f activity.Facet) (float64, bool) {
	return read(r.s.Speed, activity.UnitMetersPerSecond, f, 1000)
}

func (r statReader) elevation(f activity.Facet) (float64, bool) {
	return read(r.s.Elevation, activity.UnitMeters, f, 1)
}

func (r statReader) energy() (float64, bool) {
	return read(r.s.Energy, activity.UnitKilocalories, activity.FacetValue, 1)
}

func read(stat activity.Statistic, u activity.Unit, f activity.Facet, scale float64) (float64, bool) {
	if stat.IsEmpty() {
		return 0, false
	}
	converted, err := stat.AsUnits(u)
	if err != nil {
		return 0, false
	}
	v, ok := converted.Facet(f)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v * scale, true
}

// Absent or out-of-range values map to the FIT invalid value, which the
// encoder leaves out of the message.

func u8(v float64, ok bool) uint8 {
	if !ok || v < 0 || v >= math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(math.Round(v))
}

func u16(v float64, ok bool) uint16 {
	if !ok || v < 0 || v >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(math.Round(v))
}

func u32(v float64, ok bool) uint32 {
	if !ok || v < 0 || v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}
