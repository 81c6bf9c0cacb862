package garminconnect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
	httputil "github.com/fitglue/garminconnect/pkg/infrastructure/http"
	"github.com/fitglue/garminconnect/pkg/observability"
)

// Upload follow-up steps, as reported in Warning.Step.
const (
	StepName  = "name"
	StepNotes = "notes"
	StepType  = "type"
)

// nativeUploadTypes survive the file upload without a type correction.
var nativeUploadTypes = map[activity.ActivityType]bool{
	activity.ActivityTypeRunning: true,
	activity.ActivityTypeCycling: true,
	activity.ActivityTypeOther:   true,
}

// UploadResult describes a completed upload.
type UploadResult struct {
	RemoteID int64
	FileName string
	// Payload is the generated file as sent.
	Payload  []byte
	Warnings []*Warning
}

// Upload sends act as a new remote activity and then sets the name, notes
// and type the file cannot carry. Only the file upload itself is fatal;
// follow-up failures are collected as warnings and the remaining steps run.
func (c *Client) Upload(ctx context.Context, session *Session, act *activity.Activity) (*UploadResult, error) {
	if c.dumper == nil {
		return nil, errors.New("no upload dumper configured")
	}
	act.EnsureTZ()

	payload, err := c.dumper.DumpUpload(act)
	if err != nil {
		observability.RecordUpload("failed", nil)
		return nil, &UploadError{Message: "encode activity", Err: err}
	}
	fileName := fmt.Sprintf("tap-sync-%d-%s.fit", os.Getpid(), act.UID)

	remoteID, err := c.uploadFile(ctx, session, fileName, payload)
	if err != nil {
		observability.RecordUpload("failed", nil)
		return nil, err
	}
	result := &UploadResult{RemoteID: remoteID, FileName: fileName, Payload: payload}
	idStr := strconv.FormatInt(remoteID, 10)

	if act.Name != "" {
		result.warn(c.setAndVerify(ctx, session, StepName, idStr, act.Name, "display", "value"))
	}
	if act.Notes != "" {
		result.warn(c.setAndVerify(ctx, session, "description", idStr, act.Notes, "display", "value"))
	}
	if !nativeUploadTypes[act.Type] {
		result.warn(c.correctType(ctx, session, idStr, act.Type))
	}

	steps := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		c.logger.Warn("upload follow-up failed", "remote_id", remoteID, "step", w.Step, "status", httputil.StatusCode(w), "error", w)
		steps = append(steps, w.Step)
	}
	observability.RecordUpload("success", steps)
	c.logger.Info("activity uploaded", "remote_id", remoteID, "uid", act.UID, "warnings", len(result.Warnings))
	return result, nil
}

func (r *UploadResult) warn(w *Warning) {
	if w != nil {
		r.Warnings = append(r.Warnings, w)
	}
}

// uploadFile posts the file and returns the id of the single imported activity.
func (c *Client) uploadFile(ctx context.Context, session *Session, fileName string, payload []byte) (int64, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("data", fileName)
	if err != nil {
		return 0, &UploadError{Message: "build upload form", Err: err}
	}
	if _, err := part.Write(payload); err != nil {
		return 0, &UploadError{Message: "build upload form", Err: err}
	}
	if err := mw.Close(); err != nil {
		return 0, &UploadError{Message: "build upload form", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(uploadPath, nil), &body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	respBody, err := c.do(req, session)
	if err != nil {
		return 0, &UploadError{Message: "upload request", Err: err}
	}
	rec, err := decodeRecord(respBody)
	if err != nil {
		return 0, &UploadError{Message: "decode upload response", Err: err}
	}

	successes, _ := rec.List("detailedImportResult", "successes")
	switch len(successes) {
	case 0:
		return 0, &UploadError{Message: "no activity was imported"}
	case 1:
	default:
		return 0, &UploadError{Message: fmt.Sprintf("upload produced %d activities", len(successes))}
	}
	id, ok := successes[0].Int("internalId")
	if !ok {
		return 0, &UploadError{Message: "import result has no internal id"}
	}
	return id, nil
}

// setAndVerify posts value to an activity property endpoint and checks the
// echoed value at echoPath.
func (c *Client) setAndVerify(ctx context.Context, session *Session, property, id, value string, echoPath ...string) *Warning {
	step := property
	if property == "description" {
		step = StepNotes
	}
	rec, err := c.postForm(ctx, session, activityPropPath+property+"/"+id, url.Values{"value": {value}})
	if err != nil {
		return &Warning{Step: step, Message: "unable to set activity " + step, Err: err}
	}
	echoed, ok := rec.String(echoPath...)
	if !ok || norm.NFC.String(echoed) != norm.NFC.String(value) {
		return &Warning{Step: step, Message: fmt.Sprintf("unable to set activity %s: remote kept %q", step, echoed)}
	}
	return nil
}

func (c *Client) correctType(ctx context.Context, session *Session, id string, t activity.ActivityType) *Warning {
	key, err := ResolveKey(t)
	if err != nil {
		return &Warning{Step: StepType, Message: err.Error(), Err: err}
	}
	return c.setAndVerify(ctx, session, StepType, id, key, "activityType", "key")
}
