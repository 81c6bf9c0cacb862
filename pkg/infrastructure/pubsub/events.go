package pubsub

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// NewCloudEvent creates a standardized CloudEvent v1.0. subject is optional.
func NewCloudEvent(source, eventType, subject string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion("1.0")
	e.SetID(uuid.NewString())
	e.SetTime(time.Now().UTC())
	e.SetType(eventType)
	e.SetSource(source)
	if subject != "" {
		e.SetSubject(subject)
	}

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}

	return e, nil
}

// Attributes maps the event context onto Pub/Sub message attributes
// (CloudEvents Pub/Sub binding, binary content mode).
func Attributes(e cloudevents.Event) map[string]string {
	attrs := map[string]string{
		"ce-specversion": e.SpecVersion(),
		"ce-id":          e.ID(),
		"ce-type":        e.Type(),
		"ce-source":      e.Source(),
		"content-type":   e.DataContentType(),
	}
	if !e.Time().IsZero() {
		attrs["ce-time"] = e.Time().UTC().Format(time.RFC3339Nano)
	}
	if s := e.Subject(); s != "" {
		attrs["ce-subject"] = s
	}
	return attrs
}
