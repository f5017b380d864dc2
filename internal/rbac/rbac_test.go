package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

var directory = StaticDirectory{
	1: {PartnerID: 42, Groups: []string{"base.group_portal"}},
	2: {PartnerID: 3, Groups: []string{"base.group_user", "warehousing_system.group_inventory_admin"}},
	3: {Groups: []string{"unknown.group"}},
}

func TestEffectivePermissionsFromGroups(t *testing.T) {
	svc := NewService(directory, nil)

	perms, err := svc.EffectivePermissions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{shared.PermDashboardView}, perms)

	perms, err = svc.EffectivePermissions(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{shared.PermDashboardStaff, shared.PermDashboardView, shared.PermInventoryAdmin}, perms)

	perms, err = svc.EffectivePermissions(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, perms)

	_, err = svc.EffectivePermissions(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIdentify(t *testing.T) {
	id, err := NewService(directory, nil).Identify(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id.PartnerID)
	assert.True(t, id.Has("WAREHOUSE.INVENTORY.ADMIN"))
	assert.False(t, Identity{}.Has(shared.PermDashboardView))
}

type stubSource struct {
	perms []string
	err   error
}

func (s stubSource) EffectivePermissions(context.Context, int64) ([]string, error) {
	return s.perms, s.err
}

func serveWithUser(h http.Handler, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != "" {
		sess := &shared.Session{}
		sess.SetUser(user)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m := Middleware{Service: stubSource{perms: []string{"Warehouse.Dashboard.View"}}, Logger: logger}
	assert.Equal(t, http.StatusNoContent, serveWithUser(m.RequireAny(shared.PermDashboardView, shared.PermDashboardStaff)(ok), "5").Code)
	assert.Equal(t, http.StatusForbidden, serveWithUser(m.RequireAll(shared.PermDashboardView, shared.PermDashboardStaff)(ok), "5").Code)
	assert.Equal(t, http.StatusForbidden, serveWithUser(m.RequireAny(shared.PermDashboardView)(ok), "").Code)
	assert.Equal(t, http.StatusNoContent, serveWithUser(m.RequireAny()(ok), "").Code)

	failing := Middleware{Service: stubSource{err: errors.New("db down")}, Logger: logger}
	assert.Equal(t, http.StatusInternalServerError, serveWithUser(failing.RequireAny(shared.PermDashboardView)(ok), "5").Code)
}

func TestIdentityHandler(t *testing.T) {
	h := NewIdentityHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(directory, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := serveWithUser(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		req.URL.Path = "/me"
		r.ServeHTTP(w, req)
	}), "1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Identity
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(42), got.PartnerID)

	rec = serveWithUser(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		req.URL.Path = "/me"
		r.ServeHTTP(w, req)
	}), "77")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
