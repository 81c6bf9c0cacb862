package garminconnect

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fitglue/garminconnect/pkg/testing/garminfake"
)

// plainStore is a reversible stand-in for the credential store.
type plainStore struct{}

func (plainStore) Encrypt(s string) (string, error) { return "enc:" + s, nil }

func (plainStore) Decrypt(s string) (string, error) { return strings.TrimPrefix(s, "enc:"), nil }

// fakeGarmin wraps the shared fake server with the lower-case helpers the
// tests in this package use.
type fakeGarmin struct {
	*garminfake.Server
}

func newFakeGarmin(t *testing.T) *fakeGarmin {
	t.Helper()
	return &fakeGarmin{Server: garminfake.New(t)}
}

func (f *fakeGarmin) handle(key string, h http.HandlerFunc) { f.Handle(key, h) }

func (f *fakeGarmin) count(key string) int { return f.Hits(key) }

func (f *fakeGarmin) acceptLogin(username string) { f.AcceptLogin(username) }

func writeJSON(w http.ResponseWriter, v any) { garminfake.WriteJSON(w, v) }

func readForm(t *testing.T, r *http.Request) string {
	t.Helper()
	require.NoError(t, r.ParseForm())
	return r.PostForm.Get("value")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testHierarchy = map[string]string{
	"running":           "all",
	"trail_running":     "running",
	"street_running":    "running",
	"cycling":           "all",
	"road_biking":       "cycling",
	"hiking":            "all",
	"other":             "all",
	"yoga":              "fitness_equipment",
	"fitness_equipment": "other",
}

func newTestClient(f *fakeGarmin, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(f.URL),
		WithHTTPClient(f.Client()),
		WithLogger(discardLogger()),
		WithCredentialStore(plainStore{}),
		WithTaxonomy(NewTaxonomy(testHierarchy)),
	}
	return NewClient(append(base, opts...)...)
}

// testSession is a pre-authenticated session for calls that skip login.
var testSession = NewSession([]*http.Cookie{{Name: "SESSION", Value: "auth"}})

func decodeTestRecord(t *testing.T, v map[string]any) Record {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	rec, err := decodeRecord(data)
	require.NoError(t, err)
	return rec
}
