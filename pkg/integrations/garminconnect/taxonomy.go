package garminconnect

import (
	"fmt"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

// maxTypeChainLength caps the parent walk so cyclic hierarchy data cannot loop forever.
const maxTypeChainLength = 50

// activityMappings maps remote category keys directly to canonical types.
// "all" is the hierarchy root, so every well-formed chain ends here.
var activityMappings = map[string]activity.ActivityType{
	"running":                         activity.ActivityTypeRunning,
	"cycling":                         activity.ActivityTypeCycling,
	"mountain_biking":                 activity.ActivityTypeMountainBiking,
	"walking":                         activity.ActivityTypeWalking,
	"hiking":                          activity.ActivityTypeHiking,
	"resort_skiing_snowboarding":      activity.ActivityTypeDownhillSkiing,
	"cross_country_skiing":            activity.ActivityTypeCrossCountrySkiing,
	"backcountry_skiing_snowboarding": activity.ActivityTypeCrossCountrySkiing,
	"skating":                         activity.ActivityTypeSkating,
	"swimming":                        activity.ActivityTypeSwimming,
	"rowing":                          activity.ActivityTypeRowing,
	"elliptical":                      activity.ActivityTypeElliptical,
	"all":                             activity.ActivityTypeOther,
}

// reverseActivityMappings picks one representative remote key per canonical type.
var reverseActivityMappings = map[activity.ActivityType]string{
	activity.ActivityTypeRunning:            "running",
	activity.ActivityTypeCycling:            "cycling",
	activity.ActivityTypeMountainBiking:     "mountain_biking",
	activity.ActivityTypeWalking:            "walking",
	activity.ActivityTypeHiking:             "hiking",
	activity.ActivityTypeDownhillSkiing:     "resort_skiing_snowboarding",
	activity.ActivityTypeCrossCountrySkiing: "cross_country_skiing",
	activity.ActivityTypeSkating:            "skating",
	activity.ActivityTypeSwimming:           "swimming",
	activity.ActivityTypeRowing:             "rowing",
	activity.ActivityTypeElliptical:         "elliptical",
	activity.ActivityTypeOther:              "other",
}

// SupportedActivityTypes lists the canonical types this adapter can produce.
func SupportedActivityTypes() []activity.ActivityType {
	seen := map[activity.ActivityType]bool{}
	var out []activity.ActivityType
	for _, t := range activityMappings {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Taxonomy resolves remote category keys through the remote hierarchy.
// It is immutable once built.
type Taxonomy struct {
	parents map[string]string
}

// NewTaxonomy builds a taxonomy from a child -> parent key forest.
func NewTaxonomy(parents map[string]string) *Taxonomy {
	cp := make(map[string]string, len(parents))
	for k, v := range parents {
		cp[k] = v
	}
	return &Taxonomy{parents: cp}
}

// ResolveType maps a remote key to a canonical type, walking up the
// hierarchy until a directly mapped ancestor is found.
func (t *Taxonomy) ResolveType(rawKey string) (activity.ActivityType, error) {
	key := rawKey
	for step := 0; step <= maxTypeChainLength; step++ {
		if at, ok := activityMappings[key]; ok {
			return at, nil
		}
		parent, ok := t.parents[key]
		if !ok {
			return activity.ActivityTypeUnspecified, &TypeResolutionError{
				Key:    rawKey,
				Reason: fmt.Sprintf("%q not found in activity hierarchy", key),
			}
		}
		key = parent
	}
	return activity.ActivityTypeUnspecified, &TypeResolutionError{
		Key:    rawKey,
		Reason: fmt.Sprintf("hierarchy chain exceeds %d steps", maxTypeChainLength),
	}
}

// ResolveKey returns the representative remote key for a canonical type.
// It reads only the static table, never the remote hierarchy.
func ResolveKey(at activity.ActivityType) (string, error) {
	if key, ok := reverseActivityMappings[at]; ok {
		return key, nil
	}
	return "", &UnsupportedTypeError{Type: at}
}

// ParseHierarchy reads the remote activity_types document into a child -> parent forest.
// Entries without a parent (roots) are omitted.
func ParseHierarchy(data []byte) (map[string]string, error) {
	doc, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decode activity hierarchy: %w", err)
	}
	entries, ok := doc.List("dictionary")
	if !ok {
		return nil, fmt.Errorf("activity hierarchy has no dictionary")
	}
	parents := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, ok := entry.String("key")
		if !ok {
			continue
		}
		if parent, ok := entry.String("parent", "key"); ok && parent != "" {
			parents[key] = parent
		}
	}
	return parents, nil
}
