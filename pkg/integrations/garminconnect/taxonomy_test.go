package garminconnect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

func TestTaxonomy_ResolveType(t *testing.T) {
	taxonomy := NewTaxonomy(testHierarchy)

	tests := []struct {
		key  string
		want activity.ActivityType
	}{
		{"running", activity.ActivityTypeRunning},
		{"backcountry_skiing_snowboarding", activity.ActivityTypeCrossCountrySkiing},
		{"trail_running", activity.ActivityTypeRunning},
		{"road_biking", activity.ActivityTypeCycling},
		{"yoga", activity.ActivityTypeOther},
		{"all", activity.ActivityTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := taxonomy.ResolveType(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaxonomy_ResolveTypeFailures(t *testing.T) {
	t.Run("key missing from hierarchy", func(t *testing.T) {
		_, err := NewTaxonomy(testHierarchy).ResolveType("underwater_hockey")
		var typeErr *TypeResolutionError
		require.True(t, errors.As(err, &typeErr))
		assert.Equal(t, "underwater_hockey", typeErr.Key)
	})

	t.Run("broken chain", func(t *testing.T) {
		_, err := NewTaxonomy(map[string]string{"a": "b"}).ResolveType("a")
		var typeErr *TypeResolutionError
		assert.True(t, errors.As(err, &typeErr))
	})

	t.Run("cycle is detected", func(t *testing.T) {
		_, err := NewTaxonomy(map[string]string{"a": "b", "b": "c", "c": "a"}).ResolveType("a")
		var typeErr *TypeResolutionError
		require.True(t, errors.As(err, &typeErr))
		assert.Contains(t, typeErr.Reason, "exceeds")
	})
}

func TestTaxonomy_ChainCap(t *testing.T) {
	chain := func(n int) map[string]string {
		parents := map[string]string{}
		for i := 0; i < n; i++ {
			parents[fmt.Sprintf("k%d", i)] = fmt.Sprintf("k%d", i+1)
		}
		parents[fmt.Sprintf("k%d", n)] = "all"
		return parents
	}

	got, err := NewTaxonomy(chain(40)).ResolveType("k0")
	require.NoError(t, err)
	assert.Equal(t, activity.ActivityTypeOther, got)

	_, err = NewTaxonomy(chain(maxTypeChainLength + 5)).ResolveType("k0")
	var typeErr *TypeResolutionError
	assert.True(t, errors.As(err, &typeErr))
}

func TestResolveKey(t *testing.T) {
	key, err := ResolveKey(activity.ActivityTypeCrossCountrySkiing)
	require.NoError(t, err)
	assert.Equal(t, "cross_country_skiing", key)

	key, err = ResolveKey(activity.ActivityTypeOther)
	require.NoError(t, err)
	assert.Equal(t, "other", key)

	_, err = ResolveKey(activity.ActivityTypeClimbing)
	var unsupported *UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, activity.ActivityTypeClimbing, unsupported.Type)
}

func TestSupportedActivityTypes(t *testing.T) {
	types := SupportedActivityTypes()
	assert.Contains(t, types, activity.ActivityTypeRunning)
	assert.Contains(t, types, activity.ActivityTypeOther)
	assert.NotContains(t, types, activity.ActivityTypeClimbing)
	assert.Len(t, types, 12)
}

func TestParseHierarchy(t *testing.T) {
	doc := []byte(`{"dictionary": [
		{"key": "all", "display": "All"},
		{"key": "running", "parent": {"key": "all"}},
		{"key": "trail_running", "parent": {"key": "running"}},
		{"display": "keyless"}
	]}`)
	parents, err := ParseHierarchy(doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"running": "all", "trail_running": "running"}, parents)

	_, err = ParseHierarchy([]byte(`{"other": []}`))
	assert.Error(t, err)
	_, err = ParseHierarchy([]byte(`not json`))
	assert.Error(t, err)
}

func TestRefreshTaxonomy(t *testing.T) {
	f := newFakeGarmin(t)
	f.handle("GET "+activityTypesPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"dictionary": []map[string]any{
			{"key": "gravel_cycling", "parent": map[string]any{"key": "cycling"}},
		}})
	})
	c := NewClient(WithBaseURL(f.URL), WithLogger(discardLogger()))
	require.Nil(t, c.Taxonomy())

	require.NoError(t, c.RefreshTaxonomy(context.Background()))
	before := c.Taxonomy()
	got, err := before.ResolveType("gravel_cycling")
	require.NoError(t, err)
	assert.Equal(t, activity.ActivityTypeCycling, got)

	require.NoError(t, c.RefreshTaxonomy(context.Background()))
	assert.NotSame(t, before, c.Taxonomy())
}
