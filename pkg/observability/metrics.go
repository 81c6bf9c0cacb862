// Package observability holds the Prometheus collectors for the Garmin Connect adapter.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActivitiesListed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "garminconnect",
		Subsystem: "listing",
		Name:      "activities_total",
		Help:      "Number of remote records normalised into canonical activities.",
	})

	ActivitiesExcluded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garminconnect",
		Subsystem: "listing",
		Name:      "exclusions_total",
		Help:      "Number of activities skipped, grouped by stage.",
	}, []string{"stage"})

	PagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "garminconnect",
		Subsystem: "listing",
		Name:      "pages_total",
		Help:      "Number of listing pages requested.",
	})

	SessionCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garminconnect",
		Subsystem: "session",
		Name:      "cache_lookups_total",
		Help:      "Session cache lookups grouped by result.",
	}, []string{"result"})

	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garminconnect",
		Subsystem: "session",
		Name:      "logins_total",
		Help:      "Login attempts grouped by outcome.",
	}, []string{"outcome"})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garminconnect",
		Subsystem: "upload",
		Name:      "uploads_total",
		Help:      "Uploads grouped by outcome.",
	}, []string{"outcome"})

	UploadWarnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garminconnect",
		Subsystem: "upload",
		Name:      "warnings_total",
		Help:      "Non-fatal upload follow-up failures grouped by step.",
	}, []string{"step"})
)

func init() {
	prometheus.MustRegister(
		ActivitiesListed,
		ActivitiesExcluded,
		PagesFetched,
		SessionCacheLookups,
		Logins,
		Uploads,
		UploadWarnings,
	)
}

// RecordExclusion counts one skipped activity.
func RecordExclusion(stage string) {
	ActivitiesExcluded.WithLabelValues(stage).Inc()
}

// RecordCacheLookup counts a session cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	SessionCacheLookups.WithLabelValues(result).Inc()
}

// RecordLogin counts a login attempt. outcome is one of "success", "rejected", "transient", "error".
func RecordLogin(outcome string) {
	Logins.WithLabelValues(outcome).Inc()
}

// RecordUpload counts an upload attempt and its warnings.
func RecordUpload(outcome string, warningSteps []string) {
	Uploads.WithLabelValues(outcome).Inc()
	for _, step := range warningSteps {
		UploadWarnings.WithLabelValues(step).Inc()
	}
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
