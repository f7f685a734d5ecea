package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callAdmin(t *testing.T, configured, sent string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	h := AdminKeyMiddleware(configured)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/reports/transactions", nil)
	if sent != "" {
		req.Header.Set("X-API-Key", sent)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestAdminKeyDisabledWhenUnset(t *testing.T) {
	rec := callAdmin(t, "", "anything")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "reports disabled")
}

func TestAdminKeyMissing(t *testing.T) {
	rec := callAdmin(t, "s3cret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminKeyMismatch(t *testing.T) {
	rec := callAdmin(t, "s3cret", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminKeyAccepted(t *testing.T) {
	rec := callAdmin(t, "s3cret", "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRateLimitPassthroughWithoutRedis(t *testing.T) {
	e := echo.New()
	h := RateLimitMiddleware(RateLimitConfig{RPS: 5})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	form := url.Values{"phoneNumber": {"+254711000001"}}
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
