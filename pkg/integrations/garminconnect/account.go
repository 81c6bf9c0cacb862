package garminconnect

import (
	"context"
	"log/slog"

	shared "github.com/fitglue/garminconnect/pkg"
	"github.com/fitglue/garminconnect/pkg/types"
)

// LinkedIntegration returns the user's Garmin Connect link, or nil when the
// account is not linked or has been switched off.
func LinkedIntegration(user *types.UserRecord) *types.GarminIntegration {
	if user == nil || user.Integrations == nil || user.Integrations.Garmin == nil {
		return nil
	}
	if !user.Integrations.Garmin.Enabled {
		return nil
	}
	return user.Integrations.Garmin
}

// AccountFor builds the Account for a stored link. The session cache is keyed
// by the remote username, falling back to the user id before one is known.
func AccountFor(userID string, g *types.GarminIntegration) Account {
	externalID := g.Username
	if externalID == "" {
		externalID = userID
	}
	return Account{
		ExternalID: externalID,
		ExtendedAuthorization: map[string]string{
			AuthEmail:    g.EncryptedEmail,
			AuthPassword: g.EncryptedPassword,
		},
	}
}

// BlockForReauth marks the link as needing re-authorization and pushes a
// notice to the user's devices. It reports whether err called for that.
func BlockForReauth(ctx context.Context, err error, db shared.Database, notifier shared.NotificationService, user *types.UserRecord, userID string, logger *slog.Logger) bool {
	if !RequiresIntervention(err) {
		return false
	}
	logger.Warn("Garmin Connect credentials rejected, marking for re-authorization", "error", err)
	if uerr := db.UpdateUser(ctx, userID, map[string]interface{}{
		"integrations.garmin.needs_reauth": true,
	}); uerr != nil {
		logger.Error("Failed to mark re-authorization", "error", uerr)
	}
	if notifier == nil || user == nil || len(user.FCMTokens) == 0 {
		return true
	}
	if nerr := notifier.SendPushNotification(ctx, userID,
		"Reconnect Garmin Connect",
		"We couldn't sign in to Garmin Connect. Please re-link your account to keep syncing.",
		user.FCMTokens,
		map[string]string{"type": "integration_reauth", "integration": ServiceID},
	); nerr != nil {
		logger.Warn("Failed to send re-authorization notification", "error", nerr)
	}
	return true
}
