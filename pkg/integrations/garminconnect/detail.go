package garminconnect

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
	"github.com/fitglue/garminconnect/pkg/observability"
)

// FetchDetail downloads the original file of a listed activity and parses
// laps and samples into act. A file that cannot be read excludes the activity.
func (c *Client) FetchDetail(ctx context.Context, session *Session, act *activity.Activity) (*activity.Activity, error) {
	if c.parser == nil {
		return nil, errors.New("no detail parser configured")
	}
	id, ok := ActivityID(act)
	if !ok {
		return nil, &ExcludeActivityError{Message: "no remote activity id"}
	}
	idStr := strconv.FormatInt(id, 10)

	body, err := c.get(ctx, session, downloadPath+idStr, nil)
	if err != nil {
		return nil, fmt.Errorf("download activity %s: %w", idStr, err)
	}

	payload, err := unwrapArchive(body)
	if err != nil {
		observability.RecordExclusion("detail")
		return nil, &ExcludeActivityError{Message: "unreadable archive", ActivityID: idStr, Err: err}
	}
	if err := c.parser.ParseDetail(payload, act); err != nil {
		observability.RecordExclusion("detail")
		c.logger.Warn("excluding activity", "activity_id", idStr, "error", err)
		return nil, &ExcludeActivityError{Message: "file parse error", ActivityID: idStr, Err: err}
	}

	// Listing stats are authoritative. With one lap they must also be the
	// lap's stats, as the same object, so summary and lap always agree.
	if len(act.Laps) == 1 {
		lap := act.Laps[0]
		if lap.Stats == nil {
			lap.Stats = activity.NewStats()
		}
		if err := lap.Stats.Update(act.Stats); err != nil {
			return nil, fmt.Errorf("reconcile lap stats: %w", err)
		}
		act.Stats = lap.Stats
	}
	c.logger.Debug("activity detail fetched", "activity_id", idStr, "laps", len(act.Laps))
	return act, nil
}

// unwrapArchive returns the first file of a zip archive, or data unchanged
// when it is not one.
func unwrapArchive(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte("PK")) {
		return data, nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(io.LimitReader(rc, maxResponseSize))
	}
	return nil, errors.New("archive is empty")
}
