package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"pawnbook-service/internal/attachment"
	"pawnbook-service/internal/storage"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"
	"pawnbook-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MaxUploadBytes caps a single attachment upload; main sets it from configuration
var MaxUploadBytes int64 = 10 << 20

// upload is a validated multipart attachment ready for storage
type upload struct {
	entityType  string
	entityID    uint
	fileName    string
	contentType string
	data        []byte
}

var errFileTooLarge = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file is too large")

// readUpload parses entity_type, entity_id and file from a multipart form.
// Errors are meant for attachmentFailed.
func readUpload(c echo.Context, userID uint) (*upload, error) {
	entityType, entityID, err := authorizedEntity(userID, c.FormValue("entity_type"), c.FormValue("entity_id"))
	if err != nil {
		return nil, err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > MaxUploadBytes {
		return nil, errFileTooLarge
	}
	data, err := readFormFile(fh)
	if err != nil {
		logger.FromContext(c).Error("Failed to read upload", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read file")
	}
	if int64(len(data)) > MaxUploadBytes {
		return nil, errFileTooLarge
	}

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = http.DetectContentType(data)
	}
	return &upload{
		entityType:  entityType,
		entityID:    entityID,
		fileName:    fh.Filename,
		contentType: contentType,
		data:        data,
	}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
}

// store puts the upload in object storage and returns key and URL
func (u *upload) store(ctx context.Context, kind string) (key, url string, err error) {
	store, err := storage.Default()
	if err != nil {
		return "", "", err
	}
	key = storage.NewObjectKey(kind, u.entityType, u.entityID, u.fileName)
	url, err = store.Put(ctx, key, bytes.NewReader(u.data), int64(len(u.data)), u.contentType)
	return key, url, err
}

// removeObject deletes a stored object, logging instead of failing
func removeObject(c echo.Context, key string) {
	if key == "" {
		return
	}
	store, err := storage.Default()
	if err != nil {
		return
	}
	if err := store.Delete(c.Request().Context(), key); err != nil {
		logger.FromContext(c).Warn("Failed to remove stored object", zap.String("storage_key", key), zap.Error(err))
	}
}

// entityFromQuery reads and authorizes ?entity_type=&entity_id=
func entityFromQuery(c echo.Context, userID uint) (string, uint, error) {
	return authorizedEntity(userID, c.QueryParam("entity_type"), c.QueryParam("entity_id"))
}

func authorizedEntity(userID uint, rawType, rawID string) (string, uint, error) {
	entityType := strings.ToLower(rawType)
	entityID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "invalid entity_id")
	}
	if err := attachment.VerifyOwnership(database.GetDB(), userID, entityType, uint(entityID)); err != nil {
		return "", 0, err
	}
	return entityType, uint(entityID), nil
}

// attachmentFailed maps attachment errors onto HTTP statuses
func attachmentFailed(c echo.Context, err error) error {
	log := logger.FromContext(c)
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		log.Warn("Rejected attachment request", zap.Int("status", httpErr.Code), zap.Any("reason", httpErr.Message))
		return jsonError(c, httpErr.Code, fmt.Sprint(httpErr.Message))
	case errors.Is(err, attachment.ErrInvalidEntityType):
		log.Warn("Invalid entity type", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, attachment.ErrEntityNotFound):
		log.Warn("Attachment entity not found", zap.Error(err))
		return jsonError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, attachment.ErrForbidden):
		log.Warn("Attachment access denied")
		prometheus.RecordAuthError("attachment_forbidden")
		return jsonError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, attachment.ErrImageNotFound), errors.Is(err, attachment.ErrDocumentNotFound):
		return jsonError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, attachment.ErrAlreadyDeleted):
		return jsonError(c, http.StatusConflict, err.Error())
	case errors.Is(err, attachment.ErrReorderMismatch):
		return jsonError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotConfigured):
		log.Warn("Upload attempted without object storage")
		return jsonError(c, http.StatusServiceUnavailable, "file storage is not configured")
	default:
		log.Error("Attachment operation failed", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Attachment operation failed")
	}
}
