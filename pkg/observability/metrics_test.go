package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCacheLookup(t *testing.T) {
	beforeHit := testutil.ToFloat64(SessionCacheLookups.WithLabelValues("hit"))
	beforeMiss := testutil.ToFloat64(SessionCacheLookups.WithLabelValues("miss"))

	RecordCacheLookup(true)
	RecordCacheLookup(true)
	RecordCacheLookup(false)

	assert.Equal(t, beforeHit+2, testutil.ToFloat64(SessionCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, beforeMiss+1, testutil.ToFloat64(SessionCacheLookups.WithLabelValues("miss")))
}

func TestRecordUpload(t *testing.T) {
	beforeOK := testutil.ToFloat64(Uploads.WithLabelValues("success"))
	beforeName := testutil.ToFloat64(UploadWarnings.WithLabelValues("name"))
	beforeType := testutil.ToFloat64(UploadWarnings.WithLabelValues("type"))

	RecordUpload("success", []string{"name", "type"})

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(Uploads.WithLabelValues("success")))
	assert.Equal(t, beforeName+1, testutil.ToFloat64(UploadWarnings.WithLabelValues("name")))
	assert.Equal(t, beforeType+1, testutil.ToFloat64(UploadWarnings.WithLabelValues("type")))
}

func TestRecordExclusion(t *testing.T) {
	before := testutil.ToFloat64(ActivitiesExcluded.WithLabelValues("listing"))
	RecordExclusion("listing")
	assert.Equal(t, before+1, testutil.ToFloat64(ActivitiesExcluded.WithLabelValues("listing")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordLogin("success")
	RecordExclusion("detail")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "garminconnect_listing_activities_total")
	assert.Contains(t, body, "garminconnect_listing_pages_total")
	assert.Contains(t, body, `garminconnect_session_logins_total{outcome="success"}`)
	assert.Contains(t, body, `garminconnect_listing_exclusions_total{stage="detail"}`)
}
