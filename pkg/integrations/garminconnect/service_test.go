package garminconnect

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Authorize(t *testing.T) {
	f := newFakeGarmin(t)
	f.acceptLogin("runner42")
	svc, err := NewService(context.Background(), newTestClient(f))
	require.NoError(t, err)

	username, profile, bundle, err := svc.Authorize(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "runner42", username)
	assert.Empty(t, profile)
	assert.Equal(t, map[string]string{AuthEmail: "enc:a@example.com", AuthPassword: "enc:secret"}, bundle)
}

func TestService_UsesCachedSessionAcrossCalls(t *testing.T) {
	f := newFakeGarmin(t)
	f.acceptLogin("runner42")
	servePages(f, 0)
	svc, err := NewService(context.Background(), newTestClient(f))
	require.NoError(t, err)

	account := Account{
		ExternalID:            "runner42",
		ExtendedAuthorization: map[string]string{AuthEmail: "enc:a@example.com", AuthPassword: "enc:secret"},
	}
	for i := 0; i < 3; i++ {
		acts, excl, err := svc.ListActivities(context.Background(), account, true)
		require.NoError(t, err)
		assert.Empty(t, acts)
		assert.Empty(t, excl)
	}
	assert.Equal(t, 1, f.count("POST /signin"))
	assert.Equal(t, 3, f.count("GET "+searchPath))

	assert.NoError(t, svc.RevokeAuthorization(context.Background(), account))
	assert.NoError(t, svc.PurgeCachedState(context.Background(), account))
}

func TestService_RejectedSessionIsDropped(t *testing.T) {
	tests := []struct {
		name   string
		status int
		logins int
	}{
		{"unauthorized", http.StatusUnauthorized, 2},
		{"forbidden", http.StatusForbidden, 2},
		{"server error keeps session", http.StatusBadGateway, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGarmin(t)
			f.acceptLogin("runner42")
			rejected := false
			f.handle("GET "+searchPath, func(w http.ResponseWriter, r *http.Request) {
				if !rejected {
					rejected = true
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, map[string]any{"results": map[string]any{"search": map[string]any{"totalPages": 0}}})
			})
			svc, err := NewService(context.Background(), newTestClient(f))
			require.NoError(t, err)
			account := Account{
				ExternalID:            "runner42",
				ExtendedAuthorization: map[string]string{AuthEmail: "enc:a@example.com", AuthPassword: "enc:secret"},
			}

			_, _, err = svc.ListActivities(context.Background(), account, true)
			require.Error(t, err)
			_, _, err = svc.ListActivities(context.Background(), account, true)
			require.NoError(t, err)
			assert.Equal(t, tt.logins, f.count("POST /signin"))
		})
	}
}

func TestNewService_LoadsHierarchy(t *testing.T) {
	f := newFakeGarmin(t)
	f.handle("GET "+activityTypesPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"dictionary": []map[string]any{
			{"key": "running", "parent": map[string]any{"key": "all"}},
		}})
	})
	c := NewClient(WithBaseURL(f.URL), WithLogger(discardLogger()))

	svc, err := NewService(context.Background(), c)
	require.NoError(t, err)
	assert.NotNil(t, svc.Client().Taxonomy())
	assert.Equal(t, 1, f.count("GET "+activityTypesPath))
}

func TestNewService_HierarchyUnavailable(t *testing.T) {
	f := newFakeGarmin(t)
	f.handle("GET "+activityTypesPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := NewClient(WithBaseURL(f.URL), WithLogger(discardLogger()))

	_, err := NewService(context.Background(), c)
	assert.Error(t, err)
}
