package firestore

import (
	"time"

	"github.com/fitglue/garminconnect/pkg/types"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get bool from map
func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// Firestore returns integers as int64
func getInt64(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Firestore returns arrays as []interface{}
func getStrings(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// --- UserRecord Converters ---

func UserToFirestore(u *types.UserRecord) map[string]interface{} {
	m := map[string]interface{}{
		"user_id":    u.UserID,
		"created_at": u.CreatedAt,
	}
	if len(u.FCMTokens) > 0 {
		m["fcm_tokens"] = u.FCMTokens
	}

	if u.Integrations != nil && u.Integrations.Garmin != nil {
		g := u.Integrations.Garmin
		m["integrations"] = map[string]interface{}{
			"garmin": map[string]interface{}{
				"enabled":            g.Enabled,
				"username":           g.Username,
				"encrypted_email":    g.EncryptedEmail,
				"encrypted_password": g.EncryptedPassword,
				"needs_reauth":       g.NeedsReauth,
				"linked_at":          g.LinkedAt,
				"last_sync_at":       g.LastSyncAt,
			},
		}
	}
	return m
}

func FirestoreToUser(m map[string]interface{}) *types.UserRecord {
	u := &types.UserRecord{
		UserID:    getString(m, "user_id"),
		FCMTokens: getStrings(m, "fcm_tokens"),
		CreatedAt: getTime(m, "created_at"),
	}

	if integrations := getMap(m, "integrations"); integrations != nil {
		u.Integrations = &types.UserIntegrations{}
		if g := getMap(integrations, "garmin"); g != nil {
			u.Integrations.Garmin = &types.GarminIntegration{
				Enabled:           getBool(g, "enabled"),
				Username:          getString(g, "username"),
				EncryptedEmail:    getString(g, "encrypted_email"),
				EncryptedPassword: getString(g, "encrypted_password"),
				NeedsReauth:       getBool(g, "needs_reauth"),
				LinkedAt:          getTime(g, "linked_at"),
				LastSyncAt:        getTime(g, "last_sync_at"),
			}
		}
	}
	return u
}

// --- UploadedActivityRecord Converters ---

func UploadedActivityToFirestore(r *types.UploadedActivityRecord) map[string]interface{} {
	m := map[string]interface{}{
		"activity_uid": r.ActivityUID,
		"remote_id":    r.RemoteID,
		"file_name":    r.FileName,
		"uploaded_at":  r.UploadedAt,
	}
	if r.ArtifactURI != "" {
		m["artifact_uri"] = r.ArtifactURI
	}
	if len(r.Warnings) > 0 {
		m["warnings"] = r.Warnings
	}
	return m
}

func FirestoreToUploadedActivity(m map[string]interface{}) *types.UploadedActivityRecord {
	return &types.UploadedActivityRecord{
		ActivityUID: getString(m, "activity_uid"),
		RemoteID:    getInt64(m, "remote_id"),
		FileName:    getString(m, "file_name"),
		ArtifactURI: getString(m, "artifact_uri"),
		Warnings:    getStrings(m, "warnings"),
		UploadedAt:  getTime(m, "uploaded_at"),
	}
}
