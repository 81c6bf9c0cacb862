package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/fitglue/garminconnect/pkg"
	"github.com/fitglue/garminconnect/pkg/types"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) Users() *Collection[types.UserRecord] {
	return &Collection[types.UserRecord]{
		Ref:           c.fs.Collection(shared.CollectionUsers),
		ToFirestore:   UserToFirestore,
		FromFirestore: FirestoreToUser,
	}
}

// UploadedActivities are sub-collections of Users: users/{uid}/uploaded_activities/{activityUID}
func (c *Client) UploadedActivities(userID string) *Collection[types.UploadedActivityRecord] {
	return &Collection[types.UploadedActivityRecord]{
		Ref:           c.fs.Collection(shared.CollectionUsers).Doc(userID).Collection(shared.CollectionUploadedActivities),
		ToFirestore:   UploadedActivityToFirestore,
		FromFirestore: FirestoreToUploadedActivity,
	}
}
