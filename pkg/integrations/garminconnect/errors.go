package garminconnect

import (
	"errors"
	"fmt"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
)

// AuthenticationError means the stored credentials were rejected. When
// InterventionRequired is set the user has to re-link the account; syncing
// should be blocked until then.
type AuthenticationError struct {
	Message              string
	Block                bool
	InterventionRequired bool
	Err                  error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Err)
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TransientServiceError is a remote 5xx. Callers may retry later.
type TransientServiceError struct {
	StatusCode int
	Message    string
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("garmin connect unavailable (status %d): %s", e.StatusCode, e.Message)
}

// ExcludeActivityError skips a single activity without failing the batch.
type ExcludeActivityError struct {
	Message    string
	ActivityID string
	Err        error
}

func (e *ExcludeActivityError) Error() string {
	msg := "excluded"
	if e.ActivityID != "" {
		msg += " activity " + e.ActivityID
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExcludeActivityError) Unwrap() error { return e.Err }

// Warning is a non-fatal problem. The sync carries on.
type Warning struct {
	Step    string
	Message string
	Err     error
}

func (e *Warning) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("warning: %s: %v", e.Message, e.Err)
	}
	return "warning: " + e.Message
}

func (e *Warning) Unwrap() error { return e.Err }

// UploadError fails one upload.
type UploadError struct {
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed: %s: %v", e.Message, e.Err)
	}
	return "upload failed: " + e.Message
}

func (e *UploadError) Unwrap() error { return e.Err }

// TypeResolutionError means the remote category hierarchy is inconsistent.
type TypeResolutionError struct {
	Key    string
	Reason string
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve activity type %q: %s", e.Key, e.Reason)
}

// UnsupportedTypeError means no remote category represents a canonical type.
type UnsupportedTypeError struct {
	Type activity.ActivityType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("garmin connect does not support activity type %s", e.Type)
}

// RequiresIntervention reports whether err asks the user to re-link the account.
func RequiresIntervention(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr) && authErr.InterventionRequired
}

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	var transient *TransientServiceError
	return errors.As(err, &transient)
}
