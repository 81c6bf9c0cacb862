package activity

import (
	"fmt"
	"strings"
)

// ActivityType is the platform's closed set of activity categories.
type ActivityType int

const (
	ActivityTypeUnspecified ActivityType = iota
	ActivityTypeRunning
	ActivityTypeCycling
	ActivityTypeMountainBiking
	ActivityTypeWalking
	ActivityTypeHiking
	ActivityTypeDownhillSkiing
	ActivityTypeCrossCountrySkiing
	ActivityTypeSnowboarding
	ActivityTypeSkating
	ActivityTypeSwimming
	ActivityTypeWheelchair
	ActivityTypeRowing
	ActivityTypeElliptical
	ActivityTypeGym
	ActivityTypeClimbing
	ActivityTypeStrengthTraining
	ActivityTypeOther
)

var activityTypeNames = map[ActivityType]string{
	ActivityTypeUnspecified:        "Unspecified",
	ActivityTypeRunning:            "Running",
	ActivityTypeCycling:            "Cycling",
	ActivityTypeMountainBiking:     "MountainBiking",
	ActivityTypeWalking:            "Walking",
	ActivityTypeHiking:             "Hiking",
	ActivityTypeDownhillSkiing:     "DownhillSkiing",
	ActivityTypeCrossCountrySkiing: "CrossCountrySkiing",
	ActivityTypeSnowboarding:       "Snowboarding",
	ActivityTypeSkating:            "Skating",
	ActivityTypeSwimming:           "Swimming",
	ActivityTypeWheelchair:         "Wheelchair",
	ActivityTypeRowing:             "Rowing",
	ActivityTypeElliptical:         "Elliptical",
	ActivityTypeGym:                "Gym",
	ActivityTypeClimbing:           "Climbing",
	ActivityTypeStrengthTraining:   "StrengthTraining",
	ActivityTypeOther:              "Other",
}

func (t ActivityType) String() string {
	if n, ok := activityTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ActivityType(%d)", int(t))
}

// ParseActivityType accepts the names produced by String, case-insensitively.
func ParseActivityType(s string) (ActivityType, error) {
	for t, n := range activityTypeNames {
		if strings.EqualFold(n, s) {
			return t, nil
		}
	}
	return ActivityTypeUnspecified, fmt.Errorf("unknown activity type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ActivityType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ActivityType) UnmarshalText(b []byte) error {
	parsed, err := ParseActivityType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
