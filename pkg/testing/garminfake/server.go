// Package garminfake is an in-process stand-in for the Garmin Connect web
// API, for tests of code that drives the garminconnect client end to end.
package garminfake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

const (
	TypesPath    = "/proxy/activity-service-1.2/json/activity_types"
	SearchPath   = "/proxy/activity-search-service-1.0/json/activities"
	DownloadPath = "/proxy/download-service/files/activity/"
	UploadPath   = "/proxy/upload-service-1.1/json/upload/.fit"
	PropertyPath = "/proxy/activity-service-1.2/json/"
)

// Hierarchy is a small activity-type tree covering the common types.
var Hierarchy = map[string]string{
	"running":       "all",
	"trail_running": "running",
	"cycling":       "all",
	"hiking":        "all",
	"swimming":      "all",
	"other":         "all",
}

// Server answers requests from handlers keyed by "METHOD /path".
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	uploads  [][]byte
}

func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{handlers: map[string]http.HandlerFunc{}, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.hits[key]++
		h, ok := s.handlers[key]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Handle installs or replaces the handler for key.
func (s *Server) Handle(key string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[key] = h
}

// Hits is how many requests key received.
func (s *Server) Hits(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

// Uploads returns the files received by the upload endpoint.
func (s *Server) Uploads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.uploads...)
}

// AcceptLogin completes every sign-in with a session for username.
func (s *Server) AcceptLogin(username string) {
	s.Handle("GET /signin", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "pre"})
	})
	s.Handle("POST /signin", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("JSESSIONID"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "auth"})
		http.Redirect(w, r, "/modern", http.StatusFound)
	})
	s.Handle("GET /user/username", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, map[string]any{"username": username})
	})
}

// ServeTypes answers the activity hierarchy endpoint with parents.
func (s *Server) ServeTypes(parents map[string]string) {
	s.Handle("GET "+TypesPath, func(w http.ResponseWriter, r *http.Request) {
		entries := make([]map[string]any, 0, len(parents))
		for key, parent := range parents {
			entries = append(entries, map[string]any{"key": key, "parent": map[string]any{"key": parent}})
		}
		WriteJSON(w, map[string]any{"dictionary": entries})
	})
}

// RejectLogin answers every sign-in attempt with the login form again.
func (s *Server) RejectLogin() {
	s.Handle("GET /signin", func(w http.ResponseWriter, r *http.Request) {})
	s.Handle("POST /signin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ServeActivities answers the search endpoint with a single page of records.
func (s *Server) ServeActivities(records ...map[string]any) {
	s.Handle("GET "+SearchPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			WriteJSON(w, map[string]any{"results": map[string]any{"search": map[string]any{"totalPages": "1"}}})
			return
		}
		entries := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			entries = append(entries, map[string]any{"activity": rec})
		}
		WriteJSON(w, map[string]any{"results": map[string]any{
			"activities": entries,
			"search":     map[string]any{"totalPages": "1"},
		}})
	})
}

// ServeFile answers the download endpoint for one activity.
func (s *Server) ServeFile(id int64, data []byte) {
	s.Handle("GET "+DownloadPath+strconv.FormatInt(id, 10), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	})
}

// AcceptUploads imports every upload as remoteID and echoes follow-up
// property updates so they verify.
func (s *Server) AcceptUploads(remoteID int64) {
	s.Handle("POST "+UploadPath, func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("data")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		buf, err := io.ReadAll(file)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.uploads = append(s.uploads, buf)
		s.mu.Unlock()
		WriteJSON(w, map[string]any{"detailedImportResult": map[string]any{
			"successes": []map[string]any{{"internalId": remoteID}},
		}})
	})
	for _, prop := range []string{"name", "description"} {
		s.Handle(fmt.Sprintf("POST %s%s/%d", PropertyPath, prop, remoteID), func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			WriteJSON(w, map[string]any{"display": map[string]any{"value": r.PostForm.Get("value")}})
		})
	}
	s.Handle(fmt.Sprintf("POST %stype/%d", PropertyPath, remoteID), func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		WriteJSON(w, map[string]any{"activityType": map[string]any{"key": r.PostForm.Get("value")}})
	})
}

// ListingRecord builds a search result entry in the remote's shape.
func ListingRecord(id int64, typeKey string, start time.Time, duration time.Duration, km float64) map[string]any {
	return map[string]any{
		"activityId":         id,
		"activityName":       map[string]any{"value": fmt.Sprintf("Activity %d", id)},
		"activityType":       map[string]any{"key": typeKey},
		"activityTimeZone":   map[string]any{"key": "UTC", "offset": "0.0"},
		"beginTimestamp":     map[string]any{"millis": strconv.FormatInt(start.UnixMilli(), 10)},
		"endTimestamp":       map[string]any{"millis": strconv.FormatInt(start.Add(duration).UnixMilli(), 10)},
		"sumElapsedDuration": map[string]any{"value": strconv.FormatFloat(duration.Seconds(), 'f', -1, 64), "uom": "second"},
		"sumDistance":        map[string]any{"value": strconv.FormatFloat(km, 'f', -1, 64), "uom": "kilometer"},
		"beginLatitude":      map[string]any{"value": 51.5},
		"beginLongitude":     map[string]any{"value": -0.12},
	}
}

func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
