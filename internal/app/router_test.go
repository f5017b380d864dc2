package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	_ "github.com/odyssey-erp/odyssey-wms/internal/testing/guard"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

func newTestRouter(t *testing.T, devSessions bool) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	directory := rbac.StaticDirectory{
		7: {PartnerID: 42, Groups: []string{"base.group_portal"}},
		9: {PartnerID: 1, Groups: []string{"stock.group_stock_user"}},
	}
	service := rbac.NewService(directory, rbac.DefaultGrants)

	return NewRouter(RouterParams{
		Config:          &Config{AppEnv: "development", DevSessions: devSessions},
		SessionManager:  shared.NewSessionManager(client, "wms_session", time.Hour, false),
		IdentityHandler: rbac.NewIdentityHandler(nil, service),
		JobHandler:      jobs.NewHandler(nil, nil, nil),
		RBACMiddleware:  rbac.Middleware{Service: service},
	})
}

func login(t *testing.T, router http.Handler, userID string) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/dev/session?user_id="+userID, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "wms_session", cookies[0].Name)
	return cookies[0]
}

func get(router http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthzAndSecureHeaders(t *testing.T) {
	rr := get(newTestRouter(t, false), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestIdentityThroughSession(t *testing.T) {
	router := newTestRouter(t, true)

	rr := get(router, "/warehouse/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	cookie := login(t, router, "7")
	rr = get(router, "/warehouse/me", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"user_id":7`)
	assert.Contains(t, rr.Body.String(), `"partner_id":42`)
	assert.NotEmpty(t, rr.Result().Cookies(), "session cookie is refreshed")
}

func TestJobsRequireStaffPermission(t *testing.T) {
	router := newTestRouter(t, true)

	assert.Equal(t, http.StatusForbidden, get(router, "/jobs/health", nil).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/jobs/health", login(t, router, "7")).Code)
	assert.Equal(t, http.StatusOK, get(router, "/jobs/health", login(t, router, "9")).Code)
}

func TestDevSessionsDisabledByDefault(t *testing.T) {
	router := newTestRouter(t, false)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/dev/session?user_id=7", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	router = newTestRouter(t, true)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/dev/session?user_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
