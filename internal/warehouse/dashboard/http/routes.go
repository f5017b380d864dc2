package dashboardhttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard"
)

// MountRoutes registers the customer and staff dashboard endpoints. The
// router is expected to be mounted under /warehouse.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.exportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "")
		}),
	)

	r.Get("/dashboard/cards", h.handleCards)
	h.mountDashboard(r, "/dashboard", dashboard.AudienceCustomer, limiter)
	h.mountDashboard(r, "/staff/dashboard", dashboard.AudienceStaff, limiter)

	r.Get("/view/{viewType}", h.handleView)
	r.Get("/locations", h.handleLocations)
	r.Get("/shipments/{id}", h.handleShipment)
	r.Get("/shipments/{id}/lines/{lineID}/qr.png", h.handleLabel)
}

func (h *Handler) mountDashboard(r chi.Router, prefix string, audience dashboard.Audience, limiter func(http.Handler) http.Handler) {
	r.Get(prefix+"/summary", h.handleSummary(audience))
	r.Get(prefix+"/detail", h.handleDetail(audience))
	r.Get(prefix+"/action", h.handleAction(audience))
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get(prefix+"/summary.csv", h.handleSummaryCSV(audience))
		gr.Get(prefix+"/detail.csv", h.handleDetailCSV(audience))
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if userID, ok := shared.UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
