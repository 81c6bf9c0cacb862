package types

import "time"

// UserRecord is the subset of the users/{id} document this service reads and writes.
type UserRecord struct {
	UserID       string
	FCMTokens    []string
	Integrations *UserIntegrations
	CreatedAt    time.Time
}

type UserIntegrations struct {
	Garmin *GarminIntegration
}

// GarminIntegration holds a linked Garmin Connect account. Credentials are
// stored encrypted by the credential store and never logged.
type GarminIntegration struct {
	Enabled           bool
	Username          string
	EncryptedEmail    string
	EncryptedPassword string
	NeedsReauth       bool
	LinkedAt          time.Time
	LastSyncAt        time.Time
}

// UploadedActivityRecord is written to users/{id}/uploaded_activities/{uid}
// after a successful upload to Garmin Connect.
type UploadedActivityRecord struct {
	ActivityUID string
	RemoteID    int64
	FileName    string
	ArtifactURI string
	Warnings    []string
	UploadedAt  time.Time
}

// PubSubMessage is the payload of a Pub/Sub event via Cloud Event.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}
