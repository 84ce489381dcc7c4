package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawnbook-service/pkg/config"
)

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("images", "item", 12, "Front View.JPG")
	assert.True(t, strings.HasPrefix(key, "images/item/12/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, NewObjectKey("images", "item", 12, "Front View.JPG"))

	noExt := NewObjectKey("documents", "person", 3, "contract")
	assert.Len(t, strings.TrimPrefix(noExt, "documents/person/3/"), 36)
}

func TestDefaultNotConfigured(t *testing.T) {
	SetDefault(nil)
	_, err := Default()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMinioStoreURL(t *testing.T) {
	store, err := NewMinioStore(&config.StorageConfig{
		Endpoint:  "storage.example.com",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "attachments",
		UseSSL:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/attachments/a/b.png", store.URL("a/b.png"))

	public, err := NewMinioStore(&config.StorageConfig{
		Endpoint:      "storage.example.com",
		Bucket:        "attachments",
		PublicBaseURL: "https://cdn.example.com/files/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/files/a/b.png", public.URL("a/b.png"))
}
