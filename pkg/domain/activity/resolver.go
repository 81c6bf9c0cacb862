package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	shared "github.com/fitglue/garminconnect/pkg"
)

// ActivityEvent is the message published for every activity pulled from a source.
// Either Activity is inline or ActivityDataURI points at the full event in GCS.
type ActivityEvent struct {
	UserID          string    `json:"user_id"`
	Source          string    `json:"source"`
	ExternalID      string    `json:"external_id"`
	Activity        *Activity `json:"activity,omitempty"`
	ActivityDataURI string    `json:"activity_data_uri,omitempty"`
}

// GCS URI pattern: gs://bucket/path
var gcsURIPattern = regexp.MustCompile(`^gs://([^/]+)/(.+)$`)

// ParseGCSURI extracts bucket and object path from a GCS URI.
func ParseGCSURI(uri string) (bucket, object string, ok bool) {
	matches := gcsURIPattern.FindStringSubmatch(uri)
	if len(matches) != 3 {
		return "", "", false
	}
	return matches[1], matches[2], true
}

// ActivityDataThreshold is the size above which activity data is offloaded
// to GCS instead of travelling inline. Pub/Sub caps messages at 10MB.
const ActivityDataThreshold = 5 * 1024 * 1024

// ShouldOffloadActivityData reports whether the encoded activity is too big to publish inline.
func ShouldOffloadActivityData(a *Activity) bool {
	if a == nil {
		return false
	}
	data, err := json.Marshal(a)
	if err != nil {
		return true
	}
	return len(data) > ActivityDataThreshold
}

// ResolveActivityData returns the inline activity or fetches the full event from GCS.
func ResolveActivityData(ctx context.Context, event *ActivityEvent, store shared.BlobStore) (*Activity, error) {
	if event.ActivityDataURI == "" {
		if event.Activity == nil {
			return nil, errors.New("event has neither activity nor activity_data_uri")
		}
		return event.Activity, nil
	}

	bucket, object, ok := ParseGCSURI(event.ActivityDataURI)
	if !ok {
		return nil, fmt.Errorf("invalid activity_data_uri: %s", event.ActivityDataURI)
	}

	data, err := store.Read(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity event from GCS: %w", err)
	}

	var full ActivityEvent
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity event: %w", err)
	}
	if full.Activity == nil {
		return nil, fmt.Errorf("activity event at %s has no activity", event.ActivityDataURI)
	}
	return full.Activity, nil
}

// PrepareForPublish writes the full event to GCS when the activity is too large
// and returns a slim copy pointing at it. The original event is not modified.
// Returns the event to publish and the number of bytes uploaded (0 if inline).
func PrepareForPublish(ctx context.Context, event *ActivityEvent, store shared.BlobStore, bucketName string) (*ActivityEvent, int, error) {
	if event.Activity == nil || bucketName == "" || !ShouldOffloadActivityData(event.Activity) {
		return event, 0, nil
	}

	gcsPath := fmt.Sprintf("raw_activities/%s/%s.json", event.UserID, event.Activity.UID)

	data, err := json.Marshal(event)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal activity event: %w", err)
	}

	if err := store.Write(ctx, bucketName, gcsPath, data); err != nil {
		return nil, 0, fmt.Errorf("failed to upload activity event to GCS: %w", err)
	}

	return &ActivityEvent{
		UserID:          event.UserID,
		Source:          event.Source,
		ExternalID:      event.ExternalID,
		ActivityDataURI: fmt.Sprintf("gs://%s/%s", bucketName, gcsPath),
	}, len(data), nil
}
