package fit_parser

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

var start = time.Date(2024, 5, 4, 7, 0, 0, 0, time.UTC)

func encodeFIT(t *testing.T, msgs ...proto.Message) []byte {
	t.Helper()
	fit := &proto.FIT{Messages: append([]proto.Message{
		mesgdef.NewFileId(nil).
			SetType(typedef.FileActivity).
			SetManufacturer(typedef.ManufacturerDevelopment).
			SetTimeCreated(start).
			ToMesg(nil),
	}, msgs...)}

	var buf bytes.Buffer
	if err := encoder.New(&buf).Encode(fit); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func semicircles(deg float64) int32 { return int32(deg * semicircleConst) }

func record(offset time.Duration, hr uint8) proto.Message {
	r := mesgdef.NewRecord(nil).
		SetTimestamp(start.Add(offset)).
		SetPositionLat(semicircles(51.5)).
		SetPositionLong(semicircles(-0.12)).
		SetSpeed(2500).
		SetDistance(uint32(offset.Seconds() * 250))
	if hr != 0 {
		r.SetHeartRate(hr)
	}
	return r.ToMesg(nil)
}

func lap(offset, elapsed time.Duration, distanceCm uint32) proto.Message {
	return mesgdef.NewLap(nil).
		SetStartTime(start.Add(offset)).
		SetTimestamp(start.Add(offset + elapsed)).
		SetTotalElapsedTime(uint32(elapsed.Milliseconds())).
		SetTotalTimerTime(uint32(elapsed.Milliseconds())).
		SetTotalDistance(distanceCm).
		SetAvgHeartRate(140).
		SetMaxHeartRate(171).
		SetAvgCadence(85).
		SetAvgSpeed(2500).
		ToMesg(nil)
}

func listed(t activity.ActivityType) *activity.Activity {
	act := activity.New()
	act.StartTime = start
	act.EndTime = start.Add(10 * time.Minute)
	act.Type = t
	return act
}

func TestParseDetail_LapsAndRecords(t *testing.T) {
	data := encodeFIT(t,
		record(0, 120),
		record(2*time.Minute, 0),
		record(6*time.Minute, 150),
		lap(0, 5*time.Minute, 75000),
		lap(5*time.Minute, 5*time.Minute, 75000),
		mesgdef.NewSession(nil).SetSport(typedef.SportCycling).SetStartTime(start).ToMesg(nil),
	)

	act := listed(activity.ActivityTypeCycling)
	if err := New().ParseDetail(data, act); err != nil {
		t.Fatalf("ParseDetail: %v", err)
	}

	if len(act.Laps) != 2 {
		t.Fatalf("expected 2 laps, got %d", len(act.Laps))
	}
	first, second := act.Laps[0], act.Laps[1]
	if len(first.Waypoints) != 2 || len(second.Waypoints) != 1 {
		t.Fatalf("records assigned %d/%d, expected 2/1", len(first.Waypoints), len(second.Waypoints))
	}
	if !first.EndTime.Equal(start.Add(5 * time.Minute)) {
		t.Errorf("lap end = %v", first.EndTime)
	}

	wp := first.Waypoints[0]
	if wp.HR == nil || *wp.HR != 120 {
		t.Errorf("expected HR 120, got %v", wp.HR)
	}
	if first.Waypoints[1].HR != nil {
		t.Errorf("invalid HR should stay unset")
	}
	if wp.Latitude == nil || *wp.Latitude < 51.49 || *wp.Latitude > 51.51 {
		t.Errorf("latitude not decoded: %v", wp.Latitude)
	}
	if wp.Speed == nil || *wp.Speed != 2.5 {
		t.Errorf("speed not decoded: %v", wp.Speed)
	}
	if wp.Power != nil || wp.Altitude != nil {
		t.Errorf("absent channels should be nil")
	}

	dist, _ := first.Stats.Distance.Facet(activity.FacetValue)
	if dist != 750 {
		t.Errorf("lap distance = %v, expected 750", dist)
	}
	maxHR, _ := first.Stats.HR.Facet(activity.FacetMax)
	if maxHR != 171 {
		t.Errorf("lap max HR = %v", maxHR)
	}
	cadence, _ := first.Stats.Cadence.Facet(activity.FacetAverage)
	if cadence != 85 {
		t.Errorf("cycling cadence = %v", cadence)
	}
	avgSpeed, ok := first.Stats.Speed.Facet(activity.FacetAverage)
	if !ok || avgSpeed < 8.99 || avgSpeed > 9.01 {
		t.Errorf("avg speed = %v km/h, expected 9", avgSpeed)
	}
}

func TestParseDetail_RunningCadenceIsSteps(t *testing.T) {
	data := encodeFIT(t, record(0, 130), lap(0, 10*time.Minute, 200000))

	act := listed(activity.ActivityTypeRunning)
	if err := New().ParseDetail(data, act); err != nil {
		t.Fatalf("ParseDetail: %v", err)
	}

	stats := act.Laps[0].Stats
	if !stats.Cadence.IsEmpty() {
		t.Errorf("running cadence left in cycling cadence")
	}
	steps, _ := stats.RunCadence.Facet(activity.FacetAverage)
	if steps != 170 {
		t.Errorf("run cadence = %v, expected 170", steps)
	}
}

func TestParseDetail_NoLapMessages(t *testing.T) {
	data := encodeFIT(t, record(0, 120), record(time.Minute, 121))

	act := listed(activity.ActivityTypeRunning)
	act.TZ = activity.FixedZone(120)
	if err := New().ParseDetail(data, act); err != nil {
		t.Fatalf("ParseDetail: %v", err)
	}

	if len(act.Laps) != 1 {
		t.Fatalf("expected a single synthesized lap, got %d", len(act.Laps))
	}
	l := act.Laps[0]
	if !l.StartTime.Equal(act.StartTime) || !l.EndTime.Equal(act.EndTime) {
		t.Errorf("lap should span the listed activity, got %v - %v", l.StartTime, l.EndTime)
	}
	if l.Waypoints[1].Timestamp.Location() != act.TZ {
		t.Errorf("waypoints not moved into the activity zone")
	}
}

func TestParseDetail_Failures(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not a FIT file at all")},
		{"no content", encodeFIT(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := listed(activity.ActivityTypeRunning)
			err := New().ParseDetail(tt.data, act)

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if act.Laps != nil {
				t.Errorf("activity modified on failure")
			}
		})
	}
}

func TestParseDetail_TypeFromSession(t *testing.T) {
	data := encodeFIT(t,
		record(0, 100),
		mesgdef.NewSession(nil).SetSport(typedef.SportCycling).SetSubSport(typedef.SubSportMountain).SetStartTime(start).ToMesg(nil),
	)

	act := listed(activity.ActivityTypeUnspecified)
	if err := New().ParseDetail(data, act); err != nil {
		t.Fatalf("ParseDetail: %v", err)
	}
	if act.Type != activity.ActivityTypeMountainBiking {
		t.Errorf("type = %v", act.Type)
	}
}

func TestMapSport(t *testing.T) {
	tests := []struct {
		sport    typedef.Sport
		subSport typedef.SubSport
		want     activity.ActivityType
	}{
		{typedef.SportRunning, typedef.SubSportTrail, activity.ActivityTypeRunning},
		{typedef.SportCycling, typedef.SubSportGeneric, activity.ActivityTypeCycling},
		{typedef.SportCycling, typedef.SubSportMountain, activity.ActivityTypeMountainBiking},
		{typedef.SportTraining, typedef.SubSportStrengthTraining, activity.ActivityTypeStrengthTraining},
		{typedef.SportFitnessEquipment, typedef.SubSportElliptical, activity.ActivityTypeElliptical},
		{typedef.SportAlpineSkiing, typedef.SubSportGeneric, activity.ActivityTypeDownhillSkiing},
		{typedef.SportGolf, typedef.SubSportGeneric, activity.ActivityTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := MapSport(tt.sport, tt.subSport); got != tt.want {
				t.Errorf("MapSport(%v, %v) = %v, want %v", tt.sport, tt.subSport, got, tt.want)
			}
		})
	}
}
