package activity

import (
	"encoding/json"
	"fmt"
	"time"
)

// activityJSON is the wire shape used when activities cross function boundaries.
type activityJSON struct {
	UID         string         `json:"uid"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Timezone    string         `json:"timezone,omitempty"`
	Stationary  bool           `json:"stationary"`
	Name        string         `json:"name,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	Type        ActivityType   `json:"type"`
	Stats       *Stats         `json:"stats"`
	Laps        []*Lap         `json:"laps,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`
}

// MarshalJSON encodes the zone by name so it survives the round trip.
func (a *Activity) MarshalJSON() ([]byte, error) {
	out := activityJSON{
		UID:         a.UID,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Stationary:  a.Stationary,
		Name:        a.Name,
		Notes:       a.Notes,
		Type:        a.Type,
		Stats:       a.Stats,
		Laps:        a.Laps,
		ServiceData: a.ServiceData,
	}
	if a.TZ != nil {
		out.Timezone = a.TZ.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the zone and re-applies it to every timestamp.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var in activityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = Activity{
		UID:         in.UID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Stationary:  in.Stationary,
		Name:        in.Name,
		Notes:       in.Notes,
		Type:        in.Type,
		Stats:       in.Stats,
		Laps:        in.Laps,
		ServiceData: in.ServiceData,
	}
	if a.Stats == nil {
		a.Stats = NewStats()
	}
	// A single lap shares its stats object with the activity.
	if len(a.Laps) == 1 && a.Stats.Equal(a.Laps[0].Stats) {
		a.Stats = a.Laps[0].Stats
	}
	if in.Timezone != "" {
		loc, err := ParseZone(in.Timezone)
		if err != nil {
			return fmt.Errorf("timezone %q: %w", in.Timezone, err)
		}
		a.TZ = loc
		a.AdjustTZ()
	}
	return nil
}
