package activity

import "fmt"

// StatKind addresses one statistic of a Stats set.
type StatKind int

const (
	StatDistance StatKind = iota
	StatMovingTime
	StatTimerTime
	StatSpeed
	StatElevation
	StatHR
	StatCadence
	StatRunCadence
	StatPower
	StatTemperature
	StatEnergy
)

var statKindNames = map[StatKind]string{
	StatDistance:    "distance",
	StatMovingTime:  "moving_time",
	StatTimerTime:   "timer_time",
	StatSpeed:       "speed",
	StatElevation:   "elevation",
	StatHR:          "hr",
	StatCadence:     "cadence",
	StatRunCadence:  "run_cadence",
	StatPower:       "power",
	StatTemperature: "temperature",
	StatEnergy:      "energy",
}

func (k StatKind) String() string {
	if n, ok := statKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("StatKind(%d)", int(k))
}

// AllStatKinds lists every kind in declaration order.
var AllStatKinds = []StatKind{
	StatDistance, StatMovingTime, StatTimerTime, StatSpeed, StatElevation, StatHR,
	StatCadence, StatRunCadence, StatPower, StatTemperature, StatEnergy,
}

// Stats is the per-metric statistic set of an activity or lap.
type Stats struct {
	Distance    Statistic `json:"distance"`
	MovingTime  Statistic `json:"moving_time"`
	TimerTime   Statistic `json:"timer_time"`
	Speed       Statistic `json:"speed"`
	Elevation   Statistic `json:"elevation"`
	HR          Statistic `json:"hr"`
	Cadence     Statistic `json:"cadence"`
	RunCadence  Statistic `json:"run_cadence"`
	Power       Statistic `json:"power"`
	Temperature Statistic `json:"temperature"`
	Energy      Statistic `json:"energy"`
}

// NewStats returns an empty set with each statistic in its default unit.
func NewStats() *Stats {
	return &Stats{
		Distance:    Statistic{Unit: UnitMeters},
		MovingTime:  Statistic{Unit: UnitSeconds},
		TimerTime:   Statistic{Unit: UnitSeconds},
		Speed:       Statistic{Unit: UnitKilometersPerHour},
		Elevation:   Statistic{Unit: UnitMeters},
		HR:          Statistic{Unit: UnitBeatsPerMinute},
		Cadence:     Statistic{Unit: UnitRevolutionsPerMinute},
		RunCadence:  Statistic{Unit: UnitStepsPerMinute},
		Power:       Statistic{Unit: UnitWatts},
		Temperature: Statistic{Unit: UnitDegreesCelsius},
		Energy:      Statistic{Unit: UnitKilocalories},
	}
}

// Get returns a pointer to the statistic of the given kind.
func (s *Stats) Get(kind StatKind) *Statistic {
	switch kind {
	case StatDistance:
		return &s.Distance
	case StatMovingTime:
		return &s.MovingTime
	case StatTimerTime:
		return &s.TimerTime
	case StatSpeed:
		return &s.Speed
	case StatElevation:
		return &s.Elevation
	case StatHR:
		return &s.HR
	case StatCadence:
		return &s.Cadence
	case StatRunCadence:
		return &s.RunCadence
	case StatPower:
		return &s.Power
	case StatTemperature:
		return &s.Temperature
	case StatEnergy:
		return &s.Energy
	}
	return nil
}

// Update overlays every set facet of other onto s.
func (s *Stats) Update(other *Stats) error {
	if other == nil {
		return nil
	}
	for _, kind := range AllStatKinds {
		if err := s.Get(kind).Update(*other.Get(kind)); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

// Equal compares every statistic by value.
func (s *Stats) Equal(other *Stats) bool {
	if s == nil || other == nil {
		return s == other
	}
	for _, kind := range AllStatKinds {
		if !s.Get(kind).Equal(*other.Get(kind)) {
			return false
		}
	}
	return true
}
