package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	storage "github.com/fitglue/garminconnect/pkg/storage/firestore"
	"github.com/fitglue/garminconnect/pkg/types"
)

// FirestoreAdapter provides database operations using Firestore
// It wraps our typed storage client
type FirestoreAdapter struct {
	storage *storage.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{storage: storage.NewClient(client)}
}

func (a *FirestoreAdapter) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	user, err := a.storage.Users().Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if user.UserID == "" {
		user.UserID = id
	}
	return user, nil
}

func (a *FirestoreAdapter) UpdateUser(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Users().Doc(id).Update(ctx, data)
}

func (a *FirestoreAdapter) SetUploadedActivity(ctx context.Context, userID string, record *types.UploadedActivityRecord) error {
	return a.storage.UploadedActivities(userID).Doc(record.ActivityUID).Set(ctx, record)
}
