package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-wms/testing"
)

func TestTestModeIsDetected(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("WMS_BACKEND", "Memory")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, 200, cfg.DashboardDetailLimit)
	assert.True(t, cfg.DashboardStaffExpectedSwap)
	assert.Equal(t, "wms_session", cfg.SessionCookie)
	assert.Equal(t, "*/15 * * * *", cfg.DashboardSnapshotCron)
	assert.Zero(t, cfg.DashboardCacheTTL, "summary caching is opt-in")
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"unknown backend", map[string]string{"WMS_BACKEND": "sqlite"}, "unknown WMS_BACKEND"},
		{"odoo without url", map[string]string{"WMS_BACKEND": "odoo", "ODOO_URL": ""}, "ODOO_URL"},
		{"postgres without dsn", map[string]string{"WMS_BACKEND": "postgres", "PG_DSN": ""}, "PG_DSN"},
		{"detail limit too large", map[string]string{"WMS_BACKEND": "memory", "DASHBOARD_DETAIL_LIMIT": "500"}, "DASHBOARD_DETAIL_LIMIT"},
		{"dev sessions in production", map[string]string{"WMS_BACKEND": "memory", "APP_ENV": "production", "DEV_SESSIONS": "true"}, "DEV_SESSIONS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}
