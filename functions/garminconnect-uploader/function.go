package garminconnect_uploader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/fitglue/garminconnect/pkg/bootstrap"
	"github.com/fitglue/garminconnect/pkg/domain/activity"
	"github.com/fitglue/garminconnect/pkg/framework"
	"github.com/fitglue/garminconnect/pkg/infrastructure/sentry"
	infrastorage "github.com/fitglue/garminconnect/pkg/infrastructure/storage"
	"github.com/fitglue/garminconnect/pkg/integrations/garminconnect"
	"github.com/fitglue/garminconnect/pkg/observability"
	"github.com/fitglue/garminconnect/pkg/types"
)

const serviceName = "garminconnect-uploader"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.CloudEvent("UploadToGarmin", UploadToGarmin)
	functions.HTTP("GarminUploaderMetrics", observability.Handler().ServeHTTP)
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

// UploadToGarmin receives an activity routed to Garmin Connect.
func UploadToGarmin(ctx context.Context, e cloudevents.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent(serviceName, svc, uploadHandler())(ctx, e)
}

func uploadHandler() framework.HandlerFunc {
	return func(ctx context.Context, e cloudevents.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
		var evt activity.ActivityEvent
		if err := e.DataAs(&evt); err != nil {
			return nil, fmt.Errorf("decode upload request: %w", err)
		}
		if evt.UserID == "" {
			evt.UserID = e.Subject()
		}
		if evt.UserID == "" {
			return nil, errors.New("upload request has no user_id")
		}

		act, err := activity.ResolveActivityData(ctx, &evt, fwCtx.Service.Store)
		if err != nil {
			return nil, fmt.Errorf("resolve activity: %w", err)
		}
		if act.UID == "" {
			act.CalculateUID()
		}
		logger := fwCtx.Logger.With("uid", act.UID)

		user, err := fwCtx.Service.DB.GetUser(ctx, evt.UserID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		integration := garminconnect.LinkedIntegration(user)
		if integration == nil {
			logger.Info("Garmin Connect not linked, skipping upload")
			return map[string]interface{}{"status": "SKIPPED", "reason": "not_linked"}, nil
		}
		if integration.NeedsReauth {
			logger.Info("Garmin Connect needs re-authorization, skipping upload")
			return map[string]interface{}{"status": "SKIPPED", "reason": "needs_reauth"}, nil
		}

		res, err := fwCtx.Service.Garmin.Upload(ctx, garminconnect.AccountFor(evt.UserID, integration), act)
		if err != nil {
			garminconnect.BlockForReauth(ctx, err, fwCtx.Service.DB, fwCtx.Service.Notifications, user, evt.UserID, logger)
			return nil, err
		}

		warnings := make([]string, 0, len(res.Warnings))
		for _, w := range res.Warnings {
			warnings = append(warnings, w.Error())
			sentry.CaptureWarning(w.Error(), map[string]string{
				"service": serviceName,
				"user_id": evt.UserID,
				"step":    w.Step,
			}, logger)
		}

		artifactURI := archive(ctx, fwCtx, evt.UserID, res)

		record := &types.UploadedActivityRecord{
			ActivityUID: act.UID,
			RemoteID:    res.RemoteID,
			FileName:    res.FileName,
			ArtifactURI: artifactURI,
			Warnings:    warnings,
			UploadedAt:  time.Now().UTC(),
		}
		// The upload has happened; a retry would duplicate it.
		if err := fwCtx.Service.DB.SetUploadedActivity(ctx, evt.UserID, record); err != nil {
			logger.Error("Failed to record uploaded activity", "remote_id", res.RemoteID, "error", err)
		}

		status := "SUCCESS"
		if len(warnings) > 0 {
			status = "SUCCESS_WITH_WARNINGS"
		}
		return map[string]interface{}{
			"status":       status,
			"remote_id":    strconv.FormatInt(res.RemoteID, 10),
			"file_name":    res.FileName,
			"artifact_uri": artifactURI,
			"warnings":     warnings,
		}, nil
	}
}

// archive keeps the generated file when an artifact bucket is configured.
func archive(ctx context.Context, fwCtx *framework.FrameworkContext, userID string, res *garminconnect.UploadResult) string {
	bucket := fwCtx.Service.Config.GCSArtifactBucket
	if bucket == "" || len(res.Payload) == 0 {
		return ""
	}
	object := infrastorage.UploadArtifactPath(userID, res.FileName)
	if err := fwCtx.Service.Store.Write(ctx, bucket, object, res.Payload); err != nil {
		fwCtx.Logger.Warn("Failed to archive uploaded file", "object", object, "error", err)
		return ""
	}
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}
