package garminconnect

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
	"github.com/fitglue/garminconnect/pkg/observability"
)

const (
	listingPageSize = 50
	// maxListingPages stops a listing whose page count never converges.
	maxListingPages = 1000

	untitledName = "Untitled"
)

// speedFields are the listing fields whose display text may reveal a pace.
var speedFields = []struct {
	Field string
	Facet activity.Facet
}{
	{"minSpeed", activity.FacetMin},
	{"maxSpeed", activity.FacetMax},
	{"weightedMeanSpeed", activity.FacetAverage},
}

// ActivityID returns the remote id attached by ListActivities.
func ActivityID(act *activity.Activity) (int64, bool) {
	if act == nil || act.ServiceData == nil {
		return 0, false
	}
	switch v := act.ServiceData["ActivityID"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), v == math.Trunc(v)
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	}
	return 0, false
}

// ListActivities pages through the account's activities. A record that
// cannot be normalised is reported in the exclusions and the rest of the
// page carries on. With exhaustive unset only the first page is read.
func (c *Client) ListActivities(ctx context.Context, session *Session, exhaustive bool) ([]*activity.Activity, []*ExcludeActivityError, error) {
	taxonomy := c.taxonomy.Load()
	if taxonomy == nil {
		return nil, nil, fmt.Errorf("activity hierarchy not loaded")
	}

	var (
		activities []*activity.Activity
		exclusions []*ExcludeActivityError
	)
	for page := 1; page <= maxListingPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		query := url.Values{
			"start": {strconv.Itoa((page - 1) * listingPageSize)},
			"limit": {strconv.Itoa(listingPageSize)},
		}
		c.logger.Debug("requesting activity page", "page", page, "start", query.Get("start"))
		doc, err := c.getRecord(ctx, session, searchPath, query)
		if err != nil {
			return nil, nil, fmt.Errorf("list activities page %d: %w", page, err)
		}
		observability.PagesFetched.Inc()

		results, _ := doc.Object("results")
		entries, ok := results.List("activities")
		if !ok {
			// No activity collection at all: the account is empty.
			break
		}

		acts, excluded, err := normalizePage(entries, taxonomy)
		if err != nil {
			return nil, nil, err
		}
		for _, exclusion := range excluded {
			c.logger.Warn("excluding activity", "activity_id", exclusion.ActivityID, "reason", exclusion.Message)
			observability.RecordExclusion("listing")
		}
		observability.ActivitiesListed.Add(float64(len(acts)))
		activities = append(activities, acts...)
		exclusions = append(exclusions, excluded...)

		totalPages, _ := results.Int("search", "totalPages")
		c.logger.Debug("finished activity page", "page", page, "total_pages", totalPages)
		if !exhaustive || len(entries) == 0 || (totalPages > 0 && int64(page) >= totalPages) {
			break
		}
	}
	return activities, exclusions, nil
}

// ParseListingPage normalises a saved search response without any remote
// calls. Exclusions are returned alongside the activities.
func ParseListingPage(data []byte, taxonomy *Taxonomy) ([]*activity.Activity, []*ExcludeActivityError, error) {
	doc, err := decodeRecord(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode listing page: %w", err)
	}
	results, _ := doc.Object("results")
	entries, _ := results.List("activities")
	return normalizePage(entries, taxonomy)
}

// normalizePage maps the entries of one search page. Entries are either
// wrapped as {"activity": {...}} or the record itself.
func normalizePage(entries []Record, taxonomy *Taxonomy) ([]*activity.Activity, []*ExcludeActivityError, error) {
	var (
		activities []*activity.Activity
		exclusions []*ExcludeActivityError
	)
	for _, entry := range entries {
		raw, ok := entry.Object("activity")
		if !ok {
			raw = entry
		}
		act, exclusion, err := normalizeActivity(raw, taxonomy)
		if err != nil {
			return nil, nil, err
		}
		if exclusion != nil {
			exclusions = append(exclusions, exclusion)
			continue
		}
		activities = append(activities, act)
	}
	return activities, exclusions, nil
}

// normalizeActivity maps one listing record. A non-nil exclusion skips the
// record; a non-nil error (inconsistent hierarchy data) aborts the listing.
func normalizeActivity(raw Record, taxonomy *Taxonomy) (*activity.Activity, *ExcludeActivityError, error) {
	id, _ := raw.String("activityId")
	exclude := func(format string, args ...any) (*activity.Activity, *ExcludeActivityError, error) {
		return nil, &ExcludeActivityError{Message: fmt.Sprintf(format, args...), ActivityID: id}, nil
	}

	distanceField, ok := raw.Object("sumDistance")
	if !ok {
		return exclude("no distance")
	}
	distance, ok := distanceField.Float("value")
	if !ok {
		return exclude("no distance")
	}
	distanceUnit, ok := fieldUnit(distanceField)
	if !ok {
		uom, _ := distanceField.String("uom")
		return exclude("unknown distance unit %q", uom)
	}
	remoteID, ok := raw.Int("activityId")
	if !ok {
		return exclude("no activity id")
	}

	act := activity.New()
	act.Stationary = isStationary(raw)
	act.TZ = activityZone(raw)

	if name, ok := raw.String("activityName", "value"); ok && strings.TrimSpace(name) != "" && name != untitledName {
		act.Name = name
	}

	startMillis, ok := timeValue(raw, "beginTimestamp", "millis")
	if !ok {
		return exclude("no start time")
	}
	act.StartTime = time.UnixMilli(int64(startMillis)).UTC()
	end, ok := endTime(raw, act.StartTime)
	if !ok {
		return exclude("no end time")
	}
	act.EndTime = end
	act.AdjustTZ()

	act.Stats.Distance = activity.NewStatistic(distanceUnit, activity.FacetValue, distance)
	if moving, ok := raw.Float("sumMovingDuration", "value"); ok {
		act.Stats.MovingTime = activity.NewStatistic(activity.UnitSeconds, activity.FacetValue, moving)
	}

	if err := applyStatRules(raw, act.Stats); err != nil {
		return exclude("statistic mapping: %v", err)
	}
	fixPowerRange(&act.Stats.Power)
	doubleRunCadence(&act.Stats.RunCadence)
	correctPaceFacets(raw, &act.Stats.Speed)

	typeKey, ok := raw.String("activityType", "key")
	if !ok || typeKey == "" {
		typeKey, ok = raw.String("activityType", "parent", "key")
	}
	if !ok || typeKey == "" {
		return exclude("no activity type")
	}
	t, err := taxonomy.ResolveType(typeKey)
	if err != nil {
		return nil, nil, err
	}
	act.Type = t

	act.CalculateUID()
	act.ServiceData = map[string]any{"ActivityID": remoteID}
	return act, nil, nil
}

// coordinate reads a position field that is either a bare number or a {"value": n} object.
func coordinate(raw Record, field string) (float64, bool) {
	if v, ok := raw.Float(field, "value"); ok {
		return v, true
	}
	return raw.Float(field)
}

// isStationary reports whether the record has no usable track: a missing
// begin or end coordinate, or begin and end at exactly the same point.
func isStationary(raw Record) bool {
	beginLat, ok1 := coordinate(raw, "beginLatitude")
	beginLng, ok2 := coordinate(raw, "beginLongitude")
	endLat, ok3 := coordinate(raw, "endLatitude")
	endLng, ok4 := coordinate(raw, "endLongitude")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return true
	}
	return beginLat == endLat && beginLng == endLng
}

// activityZone prefers the IANA key and falls back to the offset, which the
// remote reports in hours.
func activityZone(raw Record) *time.Location {
	if key, ok := raw.String("activityTimeZone", "key"); ok && key != "" {
		if loc, err := time.LoadLocation(key); err == nil {
			return loc
		}
	}
	if hours, ok := raw.Float("activityTimeZone", "offset"); ok {
		return activity.FixedZone(int(math.Round(hours * 60)))
	}
	return time.UTC
}

// endTime derives the end from the elapsed duration, the "m:s" duration or
// the absolute end timestamp, in that order.
func endTime(raw Record, start time.Time) (time.Time, bool) {
	if secs, ok := timeValue(raw, "sumElapsedDuration", "value"); ok {
		return start.Add(time.Duration(math.Round(secs)) * time.Second), true
	}
	if ms, ok := raw.String("sumDuration", "minutesSeconds"); ok {
		if d, ok := parseMinutesSeconds(ms); ok {
			return start.Add(d), true
		}
	}
	if millis, ok := timeValue(raw, "endTimestamp", "millis"); ok {
		return time.UnixMilli(int64(millis)).UTC(), true
	}
	return time.Time{}, false
}

// timeValue reads a duration or epoch field. Infinite, NaN and negative
// values count as absent.
func timeValue(raw Record, path ...string) (float64, bool) {
	v, ok := raw.Float(path...)
	if !ok || !usableTime(v) {
		return 0, false
	}
	return v, true
}

func usableTime(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v) && v >= 0
}

func parseMinutesSeconds(s string) (time.Duration, bool) {
	minutes, seconds, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	m, err := strconv.ParseFloat(minutes, 64)
	if err != nil {
		return 0, false
	}
	sec, err := strconv.ParseFloat(seconds, 64)
	if err != nil || !usableTime(m) || !usableTime(sec) {
		return 0, false
	}
	return time.Duration((m*60 + sec) * float64(time.Second)), true
}

// fixPowerRange drops a power minimum above the maximum; the remote
// sometimes reports them inverted.
func fixPowerRange(power *activity.Statistic) {
	lo, okLo := power.Facet(activity.FacetMin)
	hi, okHi := power.Facet(activity.FacetMax)
	if okLo && okHi && lo > hi {
		power.ClearFacet(activity.FacetMin)
	}
}

// doubleRunCadence turns the remote's single-leg cadence into steps per minute.
func doubleRunCadence(cadence *activity.Statistic) {
	for _, f := range []activity.Facet{activity.FacetMax, activity.FacetAverage} {
		if v, ok := cadence.Facet(f); ok {
			cadence.SetFacet(f, v*2)
		}
	}
}

// correctPaceFacets repairs speed facets that are really paces. The remote
// tags them as speeds but its display text ("5:30") gives them away. A zero
// pace has no speed equivalent and is cleared.
func correctPaceFacets(raw Record, speed *activity.Statistic) {
	for _, sf := range speedFields {
		display, ok := raw.String(sf.Field, "withUnitAbbr")
		if !ok || !strings.Contains(display, ":") {
			continue
		}
		v, ok := speed.Facet(sf.Facet)
		if !ok {
			continue
		}
		if v == 0 {
			speed.ClearFacet(sf.Facet)
			continue
		}
		speed.SetFacet(sf.Facet, 60/v)
	}
}
