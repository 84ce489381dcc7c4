package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when no object store has been set up
var ErrNotConfigured = errors.New("object storage is not configured")

// ObjectStore keeps attachment bytes outside the database; only the key and URL are persisted
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

var defaultStore ObjectStore

// SetDefault installs the object store used by the attachment handlers
func SetDefault(store ObjectStore) {
	defaultStore = store
}

// Default returns the configured object store or ErrNotConfigured
func Default() (ObjectStore, error) {
	if defaultStore == nil {
		return nil, ErrNotConfigured
	}
	return defaultStore, nil
}

// NewObjectKey builds a collision-free key grouped by owning entity, keeping the file extension
func NewObjectKey(kind, entityType string, entityID uint, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%s/%s/%d/%s%s", kind, entityType, entityID, uuid.New().String(), ext)
}
