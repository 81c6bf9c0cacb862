package activity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// uidNamespace scopes activity UIDs so they never collide with other UUIDv5 users.
var uidNamespace = uuid.MustParse("6f1c1d2e-4b8a-5c3f-9e07-2a1b3c4d5e6f")

// Activity is the canonical in-memory workout record shared by every adapter.
type Activity struct {
	UID        string
	StartTime  time.Time
	EndTime    time.Time
	TZ         *time.Location
	Stationary bool
	Name       string
	Notes      string
	Type       ActivityType
	Stats      *Stats
	Laps       []*Lap

	// ServiceData is an opaque back-reference owned by the adapter that produced the record.
	ServiceData map[string]any
}

// Lap is a contiguous section of an activity.
type Lap struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Stats     *Stats     `json:"stats"`
	Waypoints []Waypoint `json:"waypoints,omitempty"`
}

// Waypoint is a single sample. Optional channels are nil when absent.
type Waypoint struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  *float64  `json:"lat,omitempty"`
	Longitude *float64  `json:"lng,omitempty"`
	Altitude  *float64  `json:"alt,omitempty"`
	HR        *float64  `json:"hr,omitempty"`
	Cadence   *float64  `json:"cadence,omitempty"`
	Power     *float64  `json:"power,omitempty"`
	Speed     *float64  `json:"speed,omitempty"` // m/s
	Distance  *float64  `json:"distance,omitempty"`
}

// New returns an activity with an empty statistic set.
func New() *Activity {
	return &Activity{Stats: NewStats(), ServiceData: map[string]any{}}
}

// NewLap returns a lap with an empty statistic set.
func NewLap(start, end time.Time) *Lap {
	return &Lap{StartTime: start, EndTime: end, Stats: NewStats()}
}

// Duration is EndTime - StartTime.
func (a *Activity) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// CalculateUID derives the UID from the finalized record. The same start
// instant, type and distance always produce the same UID.
func (a *Activity) CalculateUID() {
	var b strings.Builder
	b.WriteString(a.StartTime.UTC().Truncate(time.Second).Format(time.RFC3339))
	b.WriteByte('|')
	b.WriteString(a.Type.String())
	if a.Stats != nil {
		if d, err := a.Stats.Distance.AsUnits(UnitMeters); err == nil {
			if v, ok := d.Facet(FacetValue); ok {
				fmt.Fprintf(&b, "|%.1f", math.Round(v*10)/10)
			}
		}
	}
	a.UID = uuid.NewSHA1(uidNamespace, []byte(b.String())).String()
}

// AdjustTZ re-expresses start, end and lap boundaries in TZ.
func (a *Activity) AdjustTZ() {
	if a.TZ == nil {
		return
	}
	a.StartTime = a.StartTime.In(a.TZ)
	a.EndTime = a.EndTime.In(a.TZ)
	for _, lap := range a.Laps {
		lap.StartTime = lap.StartTime.In(a.TZ)
		lap.EndTime = lap.EndTime.In(a.TZ)
	}
}

// EnsureTZ makes sure TZ is set, falling back to the start time's own zone
// and then UTC, and adjusts all timestamps into it.
func (a *Activity) EnsureTZ() {
	if a.TZ == nil {
		loc := a.StartTime.Location()
		if loc == nil || loc == time.Local {
			loc = time.UTC
		}
		a.TZ = loc
	}
	a.AdjustTZ()
}

// FixedZone returns a zone at a fixed offset from UTC, labelled so that
// ParseZone can recover it.
func FixedZone(offsetMinutes int) *time.Location {
	sign := '+'
	m := offsetMinutes
	if m < 0 {
		sign = '-'
		m = -m
	}
	return time.FixedZone(fmt.Sprintf("UTC%c%02d:%02d", sign, m/60, m%60), offsetMinutes*60)
}

// ParseZone resolves an IANA name or a label produced by FixedZone.
func ParseZone(name string) (*time.Location, error) {
	if strings.HasPrefix(name, "UTC") && len(name) == len("UTC+00:00") && name[6] == ':' {
		h, herr := strconv.Atoi(name[4:6])
		m, merr := strconv.Atoi(name[7:9])
		if herr == nil && merr == nil {
			offset := h*60 + m
			if name[3] == '-' {
				offset = -offset
			}
			return FixedZone(offset), nil
		}
	}
	return time.LoadLocation(name)
}
