package handler_test

import (
	"net/http"
	"strings"
	"testing"

	"pawnbook-service/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestHealthAndMetrics(t *testing.T) {
	en := newEnv(t)

	rec := testutil.DoJSON(t, en.e, http.MethodGet, "/health?check=db", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	rec = testutil.DoJSON(t, en.e, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
