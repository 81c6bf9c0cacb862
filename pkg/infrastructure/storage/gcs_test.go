package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadArtifactPath(t *testing.T) {
	assert.Equal(t, "garmin_uploads/u1/tap-sync-7-abc.fit", UploadArtifactPath("u1", "tap-sync-7-abc.fit"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/vnd.ant.fit", contentType("garmin_uploads/u1/a.fit"))
	assert.Equal(t, "application/json", contentType("raw_activities/u1/a.json"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
