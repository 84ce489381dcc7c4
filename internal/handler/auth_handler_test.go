package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndDuplicateEmail(t *testing.T) {
	en := newEnv(t)
	body := map[string]string{"email": "New@Example.com", "password": "long-enough-pw", "name": "New"}

	rec := testutil.DoJSON(t, en.e, http.MethodPost, "/auth/register", "", body)
	requireStatus(t, http.StatusCreated, rec.Code, rec.Body.Bytes())

	var resp struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "new@example.com", resp.User.Email)

	rec = testutil.DoJSON(t, en.e, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	en := newEnv(t)
	rec := testutil.DoJSON(t, en.e, http.MethodPost, "/auth/register", "",
		map[string]string{"email": "a@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	en := newEnv(t)

	rec := testutil.DoJSON(t, en.e, http.MethodPost, "/auth/login", "",
		map[string]string{"email": en.user.Email, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.DoJSON(t, en.e, http.MethodPost, "/auth/login", "",
		map[string]string{"email": en.user.Email, "password": testutil.TestPassword})
	requireStatus(t, http.StatusOK, rec.Code, rec.Body.Bytes())

	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(session)
	me := httptest.NewRecorder()
	en.e.ServeHTTP(me, req)
	requireStatus(t, http.StatusOK, me.Code, me.Body.Bytes())

	var user model.User
	testutil.DecodeJSON(t, me, &user)
	assert.Equal(t, en.user.ID, user.ID)
}

func TestAPIRequiresAuthentication(t *testing.T) {
	en := newEnv(t)

	rec := testutil.DoJSON(t, en.e, http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.DoJSON(t, en.e, http.MethodGet, "/api/books", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.DoJSON(t, en.e, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	en := newEnv(t)
	code, body := en.do(t, http.MethodPatch, "/api/users/me", map[string]string{"name": "  Pat  "})
	requireStatus(t, http.StatusOK, code, body)

	var stored model.User
	require.NoError(t, en.db.First(&stored, en.user.ID).Error)
	assert.Equal(t, "Pat", stored.Name)
}
