package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitglue/garminconnect/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	GetUserFunc             func(ctx context.Context, id string) (*types.UserRecord, error)
	UpdateUserFunc          func(ctx context.Context, id string, data map[string]interface{}) error
	SetUploadedActivityFunc func(ctx context.Context, userID string, record *types.UploadedActivityRecord) error
}

func (m *MockDatabase) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, fmt.Errorf("user not found")
}

func (m *MockDatabase) UpdateUser(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, id, data)
	}
	return nil
}

func (m *MockDatabase) SetUploadedActivity(ctx context.Context, userID string, record *types.UploadedActivityRecord) error {
	if m.SetUploadedActivityFunc != nil {
		return m.SetUploadedActivityFunc(ctx, userID, record)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)

	mu        sync.Mutex
	Published []event.Event
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	m.mu.Lock()
	m.Published = append(m.Published, e)
	m.mu.Unlock()
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}

func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}

// --- Mock Credentials ---

// MockCredentialStore "encrypts" by prefixing, so blobs stay readable in tests.
type MockCredentialStore struct{}

func (MockCredentialStore) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (MockCredentialStore) Decrypt(blob string) (string, error) {
	if !strings.HasPrefix(blob, "enc:") {
		return "", fmt.Errorf("not a mock blob: %q", blob)
	}
	return strings.TrimPrefix(blob, "enc:"), nil
}

// --- Mock Notifications ---
type MockNotificationService struct {
	SendPushNotificationFunc func(ctx context.Context, userID, title, body string, tokens []string, data map[string]string) error

	mu    sync.Mutex
	Calls []NotificationCall
}

type NotificationCall struct {
	UserID string
	Title  string
	Body   string
	Tokens []string
	Data   map[string]string
}

func (m *MockNotificationService) SendPushNotification(ctx context.Context, userID string, title, body string, tokens []string, data map[string]string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, NotificationCall{UserID: userID, Title: title, Body: body, Tokens: tokens, Data: data})
	m.mu.Unlock()
	if m.SendPushNotificationFunc != nil {
		return m.SendPushNotificationFunc(ctx, userID, title, body, tokens, data)
	}
	return nil
}
