package garminconnect_source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	shared "github.com/fitglue/garminconnect/pkg"
	"github.com/fitglue/garminconnect/pkg/bootstrap"
	"github.com/fitglue/garminconnect/pkg/domain/activity"
	"github.com/fitglue/garminconnect/pkg/framework"
	infrapubsub "github.com/fitglue/garminconnect/pkg/infrastructure/pubsub"
	"github.com/fitglue/garminconnect/pkg/integrations/garminconnect"
	"github.com/fitglue/garminconnect/pkg/observability"
	"github.com/fitglue/garminconnect/pkg/types"
)

const serviceName = "garminconnect-source"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("SyncGarminActivities", SyncGarminActivities)
	functions.HTTP("GarminSourceMetrics", observability.Handler().ServeHTTP)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx, serviceName)
	})
	return svc, svcErr
}

// SyncGarminActivities is triggered per user, by the scheduler fan-out or on demand.
func SyncGarminActivities(ctx context.Context, e cloudevents.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent(serviceName, svc, syncHandler())(ctx, e)
}

type syncRequest struct {
	UserID     string `json:"user_id"`
	Exhaustive bool   `json:"exhaustive"`
}

func syncHandler() framework.HandlerFunc {
	return func(ctx context.Context, e cloudevents.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
		var req syncRequest
		if err := e.DataAs(&req); err != nil {
			return nil, fmt.Errorf("decode sync request: %w", err)
		}
		if req.UserID == "" {
			req.UserID = e.Subject()
		}
		if req.UserID == "" {
			return nil, errors.New("sync request has no user_id")
		}

		user, err := fwCtx.Service.DB.GetUser(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		integration := garminconnect.LinkedIntegration(user)
		if integration == nil {
			fwCtx.Logger.Info("Garmin Connect not linked, skipping")
			return map[string]interface{}{"status": "SKIPPED", "reason": "not_linked"}, nil
		}
		if integration.NeedsReauth {
			fwCtx.Logger.Info("Garmin Connect needs re-authorization, skipping")
			return map[string]interface{}{"status": "SKIPPED", "reason": "needs_reauth"}, nil
		}

		account := garminconnect.AccountFor(req.UserID, integration)
		garmin := fwCtx.Service.Garmin

		acts, exclusions, err := garmin.ListActivities(ctx, account, req.Exhaustive)
		if err != nil {
			return nil, syncError(ctx, fwCtx, req.UserID, user, err)
		}
		fwCtx.Logger.Info("Listed activities", "count", len(acts), "excluded", len(exclusions), "exhaustive", req.Exhaustive)

		published, excluded := 0, len(exclusions)
		for _, act := range acts {
			detailed, err := garmin.FetchDetail(ctx, account, act)
			if err != nil {
				var exclude *garminconnect.ExcludeActivityError
				if errors.As(err, &exclude) {
					fwCtx.Logger.Warn("Excluding activity", "activity_id", exclude.ActivityID, "reason", exclude.Message)
					excluded++
					continue
				}
				return nil, syncError(ctx, fwCtx, req.UserID, user, err)
			}
			if err := publish(ctx, fwCtx, req.UserID, detailed); err != nil {
				return nil, err
			}
			published++
		}

		if err := fwCtx.Service.DB.UpdateUser(ctx, req.UserID, map[string]interface{}{
			"integrations.garmin.last_sync_at": time.Now().UTC(),
		}); err != nil {
			fwCtx.Logger.Warn("Failed to record sync time", "error", err)
		}

		return map[string]interface{}{
			"status":    "SUCCESS",
			"listed":    len(acts),
			"published": published,
			"excluded":  excluded,
		}, nil
	}
}

func publish(ctx context.Context, fwCtx *framework.FrameworkContext, userID string, act *activity.Activity) error {
	remoteID, _ := garminconnect.ActivityID(act)
	evt := &activity.ActivityEvent{
		UserID:     userID,
		Source:     shared.SourceGarminConnect,
		ExternalID: strconv.FormatInt(remoteID, 10),
		Activity:   act,
	}

	prepared, offloaded, err := activity.PrepareForPublish(ctx, evt, fwCtx.Service.Store, fwCtx.Service.Config.GCSArtifactBucket)
	if err != nil {
		return fmt.Errorf("prepare activity %s: %w", act.UID, err)
	}
	if offloaded > 0 {
		fwCtx.Logger.Debug("Activity data offloaded", "uid", act.UID, "bytes", offloaded)
	}

	ce, err := infrapubsub.NewCloudEvent(shared.EventSourceGarminConnect, shared.EventTypeActivityImported, userID, prepared)
	if err != nil {
		return fmt.Errorf("build event for %s: %w", act.UID, err)
	}
	msgID, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicRawActivity, ce)
	if err != nil {
		return fmt.Errorf("publish activity %s: %w", act.UID, err)
	}
	fwCtx.Logger.Info("Published activity", "uid", act.UID, "external_id", evt.ExternalID, "message_id", msgID)
	return nil
}

// syncError blocks further syncs when the credentials need the user's attention.
func syncError(ctx context.Context, fwCtx *framework.FrameworkContext, userID string, user *types.UserRecord, err error) error {
	garminconnect.BlockForReauth(ctx, err, fwCtx.Service.DB, fwCtx.Service.Notifications, user, userID, fwCtx.Logger)
	return err
}
