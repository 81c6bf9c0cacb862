package pubsub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloudEvent(t *testing.T) {
	e, err := NewCloudEvent("/integrations/garminconnect", "com.example.imported", "u1", map[string]string{"uid": "abc"})
	require.NoError(t, err)
	require.NoError(t, e.Validate())
	assert.NotEmpty(t, e.ID())
	assert.Equal(t, "u1", e.Subject())

	var data map[string]string
	require.NoError(t, json.Unmarshal(e.Data(), &data))
	assert.Equal(t, "abc", data["uid"])

	attrs := Attributes(e)
	assert.Equal(t, "1.0", attrs["ce-specversion"])
	assert.Equal(t, "com.example.imported", attrs["ce-type"])
	assert.Equal(t, "/integrations/garminconnect", attrs["ce-source"])
	assert.Equal(t, "u1", attrs["ce-subject"])
	assert.Equal(t, "application/json", attrs["content-type"])
	assert.NotEmpty(t, attrs["ce-time"])
}

func TestAttributes_NoSubject(t *testing.T) {
	e, err := NewCloudEvent("/src", "type", "", nil)
	require.NoError(t, err)
	_, ok := Attributes(e)["ce-subject"]
	assert.False(t, ok)
}

func TestLogPublisher(t *testing.T) {
	e, err := NewCloudEvent("/src", "type", "", map[string]int{"n": 1})
	require.NoError(t, err)

	p := &LogPublisher{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	id, err := p.PublishCloudEvent(context.Background(), "topic-raw-activity", e)
	require.NoError(t, err)
	assert.Equal(t, "mock-"+e.ID(), id)
}
