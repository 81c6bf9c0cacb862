package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitglue/garminconnect/pkg/types"
)

func TestUserConverters(t *testing.T) {
	linked := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	user := &types.UserRecord{
		UserID:    "u1",
		FCMTokens: []string{"tok-a", "tok-b"},
		CreatedAt: linked,
		Integrations: &types.UserIntegrations{Garmin: &types.GarminIntegration{
			Enabled:           true,
			Username:          "runner42",
			EncryptedEmail:    "enc-email",
			EncryptedPassword: "enc-pass",
			LinkedAt:          linked,
		}},
	}

	m := UserToFirestore(user)
	garmin := m["integrations"].(map[string]interface{})["garmin"].(map[string]interface{})
	assert.Equal(t, "enc-pass", garmin["encrypted_password"])
	assert.Equal(t, false, garmin["needs_reauth"])

	back := FirestoreToUser(m)
	assert.Equal(t, user, back)
}

func TestFirestoreToUser_FirestoreShapes(t *testing.T) {
	// Documents read back from Firestore carry []interface{} arrays.
	m := map[string]interface{}{
		"user_id":    "u2",
		"fcm_tokens": []interface{}{"tok", 7},
		"integrations": map[string]interface{}{
			"strava": map[string]interface{}{"enabled": true},
		},
	}

	u := FirestoreToUser(m)
	assert.Equal(t, []string{"tok"}, u.FCMTokens)
	require.NotNil(t, u.Integrations)
	assert.Nil(t, u.Integrations.Garmin)
	assert.True(t, u.CreatedAt.IsZero())
}

func TestUploadedActivityConverters(t *testing.T) {
	rec := &types.UploadedActivityRecord{
		ActivityUID: "uid-1",
		RemoteID:    987654321,
		FileName:    "tap-sync-1-uid-1.fit",
		Warnings:    []string{"type: unsupported"},
		UploadedAt:  time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC),
	}

	m := UploadedActivityToFirestore(rec)
	_, hasURI := m["artifact_uri"]
	assert.False(t, hasURI)

	m["warnings"] = []interface{}{"type: unsupported"}
	assert.Equal(t, rec, FirestoreToUploadedActivity(m))
}

func TestFieldUpdates(t *testing.T) {
	updates := FieldUpdates(map[string]interface{}{"integrations.garmin.needs_reauth": true})
	require.Len(t, updates, 1)
	assert.Equal(t, "integrations.garmin.needs_reauth", updates[0].Path)
	assert.Equal(t, true, updates[0].Value)
}
