package garminconnect

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

// stubParser records the payload and adds the configured number of laps.
type stubParser struct {
	laps int
	err  error
	got  []byte
}

func (p *stubParser) ParseDetail(data []byte, act *activity.Activity) error {
	p.got = data
	if p.err != nil {
		return p.err
	}
	for i := 0; i < p.laps; i++ {
		lap := activity.NewLap(act.StartTime.Add(time.Duration(i)*time.Minute), act.StartTime.Add(time.Duration(i+1)*time.Minute))
		lap.Stats.HR = activity.NewStatistic(activity.UnitBeatsPerMinute, activity.FacetMax, 200)
		lap.Stats.Cadence = activity.NewStatistic(activity.UnitRevolutionsPerMinute, activity.FacetAverage, 88)
		act.Laps = append(act.Laps, lap)
	}
	return nil
}

func listedActivity(id int64) *activity.Activity {
	act := activity.New()
	act.StartTime = time.Date(2024, 5, 4, 7, 0, 0, 0, time.UTC)
	act.EndTime = act.StartTime.Add(time.Hour)
	act.Stats.HR = activity.NewStatistic(activity.UnitBeatsPerMinute, activity.FacetMax, 175)
	act.Stats.Distance = activity.NewStatistic(activity.UnitKilometers, activity.FacetValue, 12)
	act.ServiceData["ActivityID"] = id
	return act
}

func zipped(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetchDetail_SingleLapSharesStats(t *testing.T) {
	f := newFakeGarmin(t)
	f.handle("GET "+downloadPath+"42", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("FITDATA"))
	})
	parser := &stubParser{laps: 1}
	c := newTestClient(f, WithDetailParser(parser))

	act, err := c.FetchDetail(context.Background(), testSession, listedActivity(42))
	require.NoError(t, err)
	require.Len(t, act.Laps, 1)

	assert.Same(t, act.Stats, act.Laps[0].Stats)
	hr, _ := act.Stats.HR.Facet(activity.FacetMax)
	assert.InDelta(t, 175, hr, 1e-9, "listing stats win over file stats")
	cad, ok := act.Stats.Cadence.Facet(activity.FacetAverage)
	require.True(t, ok, "file-only stats survive")
	assert.InDelta(t, 88, cad, 1e-9)
	dist, _ := act.Stats.Distance.Facet(activity.FacetValue)
	assert.InDelta(t, 12000, dist, 1e-6)
	assert.Equal(t, []byte("FITDATA"), parser.got)
}

func TestFetchDetail_MultipleLapsKeepTheirStats(t *testing.T) {
	f := newFakeGarmin(t)
	f.handle("GET "+downloadPath+"42", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("FITDATA"))
	})
	c := newTestClient(f, WithDetailParser(&stubParser{laps: 2}))

	act, err := c.FetchDetail(context.Background(), testSession, listedActivity(42))
	require.NoError(t, err)
	require.Len(t, act.Laps, 2)
	assert.NotSame(t, act.Stats, act.Laps[0].Stats)
	hr, _ := act.Laps[0].Stats.HR.Facet(activity.FacetMax)
	assert.InDelta(t, 200, hr, 1e-9)
}

func TestFetchDetail_UnwrapsArchive(t *testing.T) {
	archive := zipped(t, "7.fit", []byte("INNER"))
	f := newFakeGarmin(t)
	f.handle("GET "+downloadPath+"7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	parser := &stubParser{laps: 1}
	c := newTestClient(f, WithDetailParser(parser))

	_, err := c.FetchDetail(context.Background(), testSession, listedActivity(7))
	require.NoError(t, err)
	assert.Equal(t, []byte("INNER"), parser.got)
}

func TestFetchDetail_ParseErrorExcludes(t *testing.T) {
	f := newFakeGarmin(t)
	f.handle("GET "+downloadPath+"9", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("garbage"))
	})
	cause := errors.New("bad header")
	c := newTestClient(f, WithDetailParser(&stubParser{err: cause}))

	_, err := c.FetchDetail(context.Background(), testSession, listedActivity(9))
	var excl *ExcludeActivityError
	require.True(t, errors.As(err, &excl))
	assert.Equal(t, "9", excl.ActivityID)
	assert.ErrorIs(t, err, cause)
}

func TestFetchDetail_MissingRemoteID(t *testing.T) {
	f := newFakeGarmin(t)
	c := newTestClient(f, WithDetailParser(&stubParser{}))

	_, err := c.FetchDetail(context.Background(), testSession, activity.New())
	var excl *ExcludeActivityError
	assert.True(t, errors.As(err, &excl))
}

func TestFetchDetail_DownloadFailurePropagates(t *testing.T) {
	f := newFakeGarmin(t)
	c := newTestClient(f, WithDetailParser(&stubParser{}))

	_, err := c.FetchDetail(context.Background(), testSession, listedActivity(404))
	require.Error(t, err)
	var excl *ExcludeActivityError
	assert.False(t, errors.As(err, &excl))
}
