package secrets

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat(string(rune(b)), keySize)))
}

func TestSecretBoxStore_RoundTrip(t *testing.T) {
	store, err := NewSecretBoxStore(testKey('k'))
	require.NoError(t, err)

	blob, err := store.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, blob, "hunter2")

	again, err := store.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, blob, again, "fresh nonce per encryption")

	plain, err := store.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestSecretBoxStore_WrongKey(t *testing.T) {
	a, err := NewSecretBoxStore(testKey('a'))
	require.NoError(t, err)
	b, err := NewSecretBoxStore(testKey('b'))
	require.NoError(t, err)

	blob, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(blob)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestSecretBoxStore_BadBlobs(t *testing.T) {
	store, err := NewSecretBoxStore(testKey('k'))
	require.NoError(t, err)

	for _, blob := range []string{"", "not base64!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := store.Decrypt(blob)
		assert.ErrorIs(t, err, ErrDecrypt, blob)
	}
}

func TestNewSecretBoxStore_BadKey(t *testing.T) {
	_, err := NewSecretBoxStore("%%%")
	assert.Error(t, err)
	_, err = NewSecretBoxStore(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}
