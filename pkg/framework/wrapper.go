package framework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/fitglue/garminconnect/pkg/bootstrap"
	"github.com/fitglue/garminconnect/pkg/infrastructure/sentry"
	"github.com/fitglue/garminconnect/pkg/types"
)

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service      *bootstrap.Service
	Logger       *slog.Logger
	InvocationID string
}

// HandlerFunc is the signature for a cloud function handler
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent wraps a handler with per-invocation logging and error capture.
// Pub/Sub envelopes are unwrapped so handlers always see the published event.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) (err error) {
		inner := unwrapEvent(e)
		userID, testRunID := extractEventMetadata(e, inner)

		invocationID := e.ID()
		if invocationID == "" {
			invocationID = uuid.NewString()
		}

		logHandler := slog.NewJSONHandler(os.Stdout, bootstrap.GetSlogHandlerOptions(bootstrap.ParseLevel(os.Getenv("LOG_LEVEL"))))
		logger := slog.New(&bootstrap.ComponentHandler{Handler: logHandler}).With(
			"service", serviceName,
			"invocation_id", invocationID,
		)
		if userID != "" {
			logger = logger.With("user_id", userID)
		}
		if testRunID != "" {
			logger = logger.With("test_run_id", testRunID)
		}

		tags := map[string]string{"service": serviceName, "user_id": userID}

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v", serviceName, r)
				logger.Error("Function panicked", "error", err)
				sentry.CaptureException(err, tags, logger)
				sentry.Flush(2 * time.Second)
			}
		}()

		started := time.Now()
		logger.Info("Function started", "event_type", inner.Type())

		fwCtx := &FrameworkContext{
			Service:      svc,
			Logger:       logger,
			InvocationID: invocationID,
		}

		outputs, handlerErr := handler(ctx, inner, fwCtx)
		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr, "duration_ms", time.Since(started).Milliseconds())
			sentry.CaptureException(handlerErr, tags, logger)
			sentry.Flush(2 * time.Second)
			return handlerErr
		}

		logger.Info("Function completed successfully",
			"status", outputStatus(outputs),
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return nil
	}
}

// outputStatus reads an optional "status" field from handler outputs.
func outputStatus(outputs interface{}) string {
	if m, ok := outputs.(map[string]interface{}); ok {
		if s, ok := m["status"].(string); ok && s != "" {
			return strings.ToUpper(s)
		}
	}
	return "SUCCESS"
}

// unwrapEvent returns the CloudEvent carried in a Pub/Sub envelope: either a
// structured-mode event in the message data or a binary-mode event described
// by ce-* attributes. A plain message keeps the envelope's context with the
// message data as payload; events that are not envelopes pass through.
func unwrapEvent(e event.Event) event.Event {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil || len(msg.Message.Data) == 0 {
		return e
	}

	var structured event.Event
	if err := json.Unmarshal(msg.Message.Data, &structured); err == nil && structured.Type() != "" {
		return structured
	}

	attrs := msg.Message.Attributes
	if attrs["ce-type"] == "" {
		plain := e.Clone()
		_ = plain.SetData(event.ApplicationJSON, msg.Message.Data)
		return plain
	}
	binary := event.New()
	binary.SetID(attrs["ce-id"])
	binary.SetType(attrs["ce-type"])
	binary.SetSource(attrs["ce-source"])
	if s := attrs["ce-subject"]; s != "" {
		binary.SetSubject(s)
	}
	if t, err := time.Parse(time.RFC3339Nano, attrs["ce-time"]); err == nil {
		binary.SetTime(t)
	}
	contentType := attrs["content-type"]
	if contentType == "" {
		contentType = event.ApplicationJSON
	}
	_ = binary.SetData(contentType, msg.Message.Data)
	return binary
}

// extractEventMetadata extracts user_id and test_run_id from the event
// Handles both Pub/Sub messages and HTTP requests
func extractEventMetadata(outer, inner event.Event) (userID string, testRunID string) {
	var payload map[string]interface{}
	if err := json.Unmarshal(inner.Data(), &payload); err == nil {
		if uid, ok := payload["user_id"].(string); ok {
			userID = uid
		}
	}
	if userID == "" {
		userID = inner.Subject()
	}

	var msg types.PubSubMessage
	if err := outer.DataAs(&msg); err == nil && msg.Message.Attributes != nil {
		testRunID = msg.Message.Attributes["test_run_id"]
	}

	// For HTTP requests, check CloudEvent extensions
	// (HTTP headers are mapped to extensions by Functions Framework)
	if testRunID == "" {
		extensions := outer.Extensions()
		if trid, ok := extensions["testrunid"].(string); ok {
			testRunID = trid
		}
	}

	return userID, testRunID
}
