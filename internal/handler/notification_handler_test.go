package handler_test

import (
	"net/http"
	"testing"

	"pawnbook-service/internal/model"
	"pawnbook-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationsReadFlow(t *testing.T) {
	en := newEnv(t)
	other, otherToken := en.otherUser(t)
	for _, n := range []model.Notification{
		{UserID: en.user.ID, Kind: model.NotificationPaymentFailed, Title: "Payment failed"},
		{UserID: en.user.ID, Kind: model.NotificationSubscriptionEnded, Title: "Canceled"},
		{UserID: other.ID, Kind: model.NotificationPaymentFailed, Title: "Not yours"},
	} {
		require.NoError(t, en.db.Create(&n).Error)
	}

	code, body := en.do(t, http.MethodGet, "/api/notifications", nil)
	requireStatus(t, http.StatusOK, code, body)
	var list []model.Notification
	decodeBytes(t, body, &list)
	require.Len(t, list, 2)

	code, body = en.do(t, http.MethodPost, "/api/notifications/"+uintStr(list[0].ID)+"/read", nil)
	requireStatus(t, http.StatusOK, code, body)
	var read model.Notification
	decodeBytes(t, body, &read)
	assert.True(t, read.Read)
	assert.NotNil(t, read.ReadAt)

	code, body = en.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	requireStatus(t, http.StatusOK, code, body)
	decodeBytes(t, body, &list)
	assert.Len(t, list, 1)

	rec := testutil.DoJSON(t, en.e, http.MethodPost, "/api/notifications/"+uintStr(list[0].ID)+"/read", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	code, body = en.do(t, http.MethodPost, "/api/notifications/read-all", nil)
	requireStatus(t, http.StatusOK, code, body)
	var resp struct {
		Updated int64 `json:"updated"`
	}
	decodeBytes(t, body, &resp)
	assert.Equal(t, int64(1), resp.Updated)

	code, body = en.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	requireStatus(t, http.StatusOK, code, body)
	decodeBytes(t, body, &list)
	assert.Empty(t, list)
}
