package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"pawnbook-service/internal/billing"
	"pawnbook-service/internal/handler"
	"pawnbook-service/internal/model"
	"pawnbook-service/internal/storage"
	"pawnbook-service/internal/testutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// env is one test server with its database and a signed-in user
type env struct {
	e     *echo.Echo
	db    *gorm.DB
	user  *model.User
	token string
	store *testutil.MemoryStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)

	store := testutil.NewMemoryStore()
	storage.SetDefault(store)
	t.Cleanup(func() { storage.SetDefault(nil) })

	e := echo.New()
	handler.RegisterRoutes(e)

	user := testutil.CreateUser(t, db, "owner@example.com")
	return &env{e: e, db: db, user: user, token: testutil.Token(t, user), store: store}
}

// otherUser creates a second account and returns it with its token
func (en *env) otherUser(t *testing.T) (*model.User, string) {
	t.Helper()
	u := testutil.CreateUser(t, en.db, "other@example.com")
	return u, testutil.Token(t, u)
}

func (en *env) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	rec := testutil.DoJSON(t, en.e, method, path, en.token, body)
	return rec.Code, rec.Body.Bytes()
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp.Error
}

var errProvider = errors.New("provider unavailable")

// fakeProvider accepts payloads signed "valid" and returns the queued event
type fakeProvider struct {
	event         *billing.Event
	subscriptions map[string]*billing.SubscriptionSnapshot
	checkouts     []billing.CheckoutRequest
	portalFor     string
	fail          bool
}

func (f *fakeProvider) ParseWebhook(_ []byte, signature string) (*billing.Event, error) {
	if signature != "valid" {
		return nil, billing.ErrInvalidSignature
	}
	return f.event, nil
}

func (f *fakeProvider) GetSubscription(_ context.Context, id string) (*billing.SubscriptionSnapshot, error) {
	if f.fail {
		return nil, errProvider
	}
	snap, ok := f.subscriptions[id]
	if !ok {
		return nil, errProvider
	}
	return snap, nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	if f.fail {
		return "", errProvider
	}
	f.checkouts = append(f.checkouts, req)
	return "https://checkout.test/session", nil
}

func (f *fakeProvider) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	if f.fail {
		return "", errProvider
	}
	f.portalFor = customerID
	return "https://portal.test/" + customerID, nil
}

func installProvider(t *testing.T, p billing.Provider) {
	t.Helper()
	billing.SetDefault(p)
	t.Cleanup(func() { billing.SetDefault(nil) })
}

func requireStatus(t *testing.T, want, got int, body []byte) {
	t.Helper()
	require.Equal(t, want, got, string(body))
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decodeBytes(t *testing.T, body []byte, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, v), string(body))
}
