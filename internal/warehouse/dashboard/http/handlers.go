// Package dashboardhttp serves the warehouse dashboard over HTTP.
package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard/export"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/labels"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultExportLimit    = 10
)

// DashboardService defines the dashboard operations used by the handler.
type DashboardService interface {
	Summary(ctx context.Context, q dashboard.Query) (dashboard.Summary, error)
	Detail(ctx context.Context, q dashboard.Query, key string) (dashboard.Detail, error)
	Action(ctx context.Context, q dashboard.Query, key, title string) (dashboard.Action, error)
	Shipment(ctx context.Context, q dashboard.Query, id int64) (warehouse.Shipment, error)
	Locations(ctx context.Context) ([]warehouse.Location, error)
}

// CallerDirectory resolves permissions and the owning partner of a user.
type CallerDirectory interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
	PartnerID(ctx context.Context, userID int64) (int64, error)
}

// Observer records dashboard operation outcomes.
type Observer interface {
	ObserveDashboard(operation, audience string, start time.Time, err error)
}

// Config collects handler dependencies. Cache and Metrics are optional.
type Config struct {
	Logger         *slog.Logger
	Service        DashboardService
	Callers        CallerDirectory
	Cache          *dashboard.Cache
	Metrics        Observer
	RequestTimeout time.Duration
	// ExportLimit caps CSV downloads per caller and minute.
	ExportLimit int
}

// Handler coordinates HTTP requests for the warehouse dashboard.
type Handler struct {
	logger      *slog.Logger
	service     DashboardService
	callers     CallerDirectory
	cache       *dashboard.Cache
	metrics     Observer
	validator   *validator.Validate
	timeout     time.Duration
	exportLimit int
	csvPool     sync.Pool
	summaries   singleflight.Group
	now         func() time.Time
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ExportLimit <= 0 {
		cfg.ExportLimit = defaultExportLimit
	}
	h := &Handler{
		logger:      cfg.Logger,
		service:     cfg.Service,
		callers:     cfg.Callers,
		cache:       cfg.Cache,
		metrics:     cfg.Metrics,
		validator:   validator.New(),
		timeout:     cfg.RequestTimeout,
		exportLimit: cfg.ExportLimit,
		now:         time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// ============================================================================
// DASHBOARD
// ============================================================================

func (h *Handler) handleSummary(audience dashboard.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, _, ok := h.prepare(w, r, audience)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		start := time.Now()
		values, err := h.loadSummary(ctx, q)
		h.observe("summary", audience, start, err)
		if err != nil {
			h.respondError(w, "load summary", err)
			return
		}
		httpx.JSON(w, http.StatusOK, values)
	}
}

func (h *Handler) loadSummary(ctx context.Context, q dashboard.Query) (map[string]any, error) {
	load := func(ctx context.Context) (any, error) {
		summary, err := h.service.Summary(ctx, q)
		if err != nil {
			return nil, err
		}
		return summary.Values(), nil
	}

	key, err := h.cache.SummaryKey(ctx, q, h.now())
	if err != nil {
		h.logError("summary cache key", err)
		values, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return values.(map[string]any), nil
	}

	result, err, _ := h.coalesce(ctx, key, func(ctx context.Context) (interface{}, error) {
		var values map[string]any
		if err := h.cache.FetchJSON(ctx, key, &values, load); err != nil {
			return nil, err
		}
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	values, _ := result.(map[string]any)
	return values, nil
}

func (h *Handler) handleSummaryCSV(audience dashboard.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, _, ok := h.prepare(w, r, audience)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		start := time.Now()
		summary, err := h.service.Summary(ctx, q)
		h.observe("summary_csv", audience, start, err)
		if err != nil {
			h.respondError(w, "load summary", err)
			return
		}

		buf := h.csvPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer func() {
			buf.Reset()
			h.csvPool.Put(buf)
		}()
		if err := export.WriteSummaryCSV(buf, summary); err != nil {
			h.respondError(w, "write summary csv", err)
			return
		}
		filename := fmt.Sprintf("warehouse-%s-summary-%s.csv", audience, h.now().Format("20060102"))
		h.streamCSV(w, buf, filename)
	}
}

func (h *Handler) handleDetail(audience dashboard.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, form, ok := h.prepare(w, r, audience)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		start := time.Now()
		detail, err := h.service.Detail(ctx, q, form.Card)
		h.observe("detail", audience, start, err)
		if err != nil {
			h.respondError(w, "load detail", err)
			return
		}
		httpx.JSON(w, http.StatusOK, detail)
	}
}

func (h *Handler) handleDetailCSV(audience dashboard.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, form, ok := h.prepare(w, r, audience)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		start := time.Now()
		detail, err := h.service.Detail(ctx, q, form.Card)
		h.observe("detail_csv", audience, start, err)
		if err != nil {
			h.respondError(w, "load detail", err)
			return
		}

		buf := h.csvPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer func() {
			buf.Reset()
			h.csvPool.Put(buf)
		}()
		if err := export.WriteDetailCSV(buf, detail); err != nil {
			h.respondError(w, "write detail csv", err)
			return
		}
		name := "all"
		if detail.Recognized {
			name = detail.Card
		}
		h.streamCSV(w, buf, fmt.Sprintf("warehouse-%s.csv", name))
	}
}

func (h *Handler) handleAction(audience dashboard.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, form, ok := h.prepare(w, r, audience)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		start := time.Now()
		action, err := h.service.Action(ctx, q, form.Card, form.Title)
		h.observe("action", audience, start, err)
		if err != nil {
			h.respondError(w, "resolve action", err)
			return
		}
		httpx.JSON(w, http.StatusOK, action)
	}
}

func (h *Handler) handleCards(w http.ResponseWriter, r *http.Request) {
	if _, err := h.caller(r.Context(), dashboard.AudienceCustomer); err != nil {
		h.respondError(w, "authorization", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard.Catalogue())
}

// ============================================================================
// PORTAL VIEWS AND LOOKUPS
// ============================================================================

type viewPayload struct {
	Title string `json:"title"`
	dashboard.Detail
}

// handleView serves the portal list pages. Only the vessel and location
// filters apply there.
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	q, form, ok := h.prepare(w, r, dashboard.AudienceCustomer)
	if !ok {
		return
	}
	q.Filters.Client = ""
	card, title := dashboard.ResolveView(chi.URLParam(r, "viewType"), form.Title)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	detail, err := h.service.Detail(ctx, q, card)
	h.observe("view", dashboard.AudienceCustomer, start, err)
	if err != nil {
		h.respondError(w, "load view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewPayload{Title: title, Detail: detail})
}

func (h *Handler) handleLocations(w http.ResponseWriter, r *http.Request) {
	if _, err := h.caller(r.Context(), dashboard.AudienceCustomer); err != nil {
		h.respondError(w, "authorization", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	locations, err := h.service.Locations(ctx)
	if err != nil {
		h.respondError(w, "list locations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, locations)
}

type shipmentPayload struct {
	Shipment warehouse.Shipment `json:"shipment"`
	Rollup   warehouse.Rollup   `json:"rollup"`
}

func (h *Handler) handleShipment(w http.ResponseWriter, r *http.Request) {
	sh, ok := h.loadShipment(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, shipmentPayload{
		Shipment: sh,
		Rollup:   warehouse.Summarize(sh, h.now(), nil),
	})
}

func (h *Handler) handleLabel(w http.ResponseWriter, r *http.Request) {
	lineID, err := parseID(chi.URLParam(r, "lineID"))
	if err != nil {
		h.respondError(w, "parse line id", err)
		return
	}
	size := labels.DefaultSize
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 1024 {
			h.respondError(w, "parse size", fmt.Errorf("size: %w", httpx.ErrValidation))
			return
		}
		size = v
	}

	sh, ok := h.loadShipment(w, r)
	if !ok {
		return
	}
	line, ok := sh.Line(lineID)
	if !ok {
		h.respondError(w, "find line", warehouse.ErrNotFound)
		return
	}
	png, err := labels.EncodePNG(labels.Payload(sh, line), size)
	if err != nil {
		h.respondError(w, "encode label", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := w.Write(png); err != nil {
		h.logError("stream label", err)
	}
}

func (h *Handler) loadShipment(w http.ResponseWriter, r *http.Request) (warehouse.Shipment, bool) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "parse shipment id", err)
		return warehouse.Shipment{}, false
	}
	caller, err := h.caller(r.Context(), dashboard.AudienceCustomer)
	if err != nil {
		h.respondError(w, "authorization", err)
		return warehouse.Shipment{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	sh, err := h.service.Shipment(ctx, dashboard.Query{Caller: caller, Audience: dashboard.AudienceCustomer}, id)
	h.observe("shipment", dashboard.AudienceCustomer, start, err)
	if err != nil {
		h.respondError(w, "load shipment", err)
		return warehouse.Shipment{}, false
	}
	return sh, true
}

// ============================================================================
// REQUEST PLUMBING
// ============================================================================

type requestForm struct {
	Card       string `validate:"max=64"`
	Title      string `validate:"max=128"`
	Client     string `validate:"max=128"`
	Vessel     string `validate:"max=128"`
	LocationID string `validate:"max=32"`
}

// prepare authorizes the caller and parses the shared query parameters. It
// writes the error response itself and reports false on failure.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request, audience dashboard.Audience) (dashboard.Query, requestForm, bool) {
	caller, err := h.caller(r.Context(), audience)
	if err != nil {
		h.respondError(w, "authorization", err)
		return dashboard.Query{}, requestForm{}, false
	}
	form, err := h.parseForm(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return dashboard.Query{}, requestForm{}, false
	}
	q := dashboard.Query{
		Caller:   caller,
		Audience: audience,
		Filters: dashboard.Filters{
			Client:     form.Client,
			Vessel:     form.Vessel,
			LocationID: form.LocationID,
		}.Normalize(),
	}
	return q, form, true
}

func (h *Handler) parseForm(r *http.Request) (requestForm, error) {
	values := r.URL.Query()
	form := requestForm{
		Card:       strings.TrimSpace(values.Get("card")),
		Title:      strings.TrimSpace(values.Get("title")),
		Client:     strings.TrimSpace(values.Get("client")),
		Vessel:     strings.TrimSpace(values.Get("vessel")),
		LocationID: strings.TrimSpace(values.Get("location_id")),
	}
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s exceeds %s characters", paramName(fe.Field()), fe.Param()))
			}
			return requestForm{}, fmt.Errorf("%s: %w", strings.Join(fields, "; "), httpx.ErrValidation)
		}
		return requestForm{}, err
	}
	return form, nil
}

func paramName(field string) string {
	switch field {
	case "LocationID":
		return "location_id"
	default:
		return strings.ToLower(field)
	}
}

// caller resolves the dashboard identity of the session user. The staff
// audience and inventory admins are privileged.
func (h *Handler) caller(ctx context.Context, audience dashboard.Audience) (dashboard.Caller, error) {
	if h.callers == nil {
		return dashboard.Caller{}, errors.New("caller directory missing")
	}
	userID, ok := shared.UserIDFromContext(ctx)
	if !ok {
		return dashboard.Caller{}, shared.ErrUnauthenticated
	}
	perms, err := h.callers.EffectivePermissions(ctx, userID)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return dashboard.Caller{}, shared.ErrPermissionDenied
		}
		return dashboard.Caller{}, err
	}
	required := shared.PermDashboardView
	if audience == dashboard.AudienceStaff {
		required = shared.PermDashboardStaff
	}
	if !hasPermission(perms, required) {
		return dashboard.Caller{}, shared.ErrPermissionDenied
	}

	caller := dashboard.Caller{
		UserID:     userID,
		Privileged: audience == dashboard.AudienceStaff || hasPermission(perms, shared.PermInventoryAdmin),
	}
	if caller.Privileged {
		return caller, nil
	}
	partner, err := h.callers.PartnerID(ctx, userID)
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			return dashboard.Caller{}, shared.ErrPermissionDenied
		}
		return dashboard.Caller{}, err
	}
	caller.PartnerID = partner
	return caller, nil
}

func hasPermission(granted []string, perm string) bool {
	for _, g := range granted {
		if strings.EqualFold(strings.TrimSpace(g), perm) {
			return true
		}
	}
	return false
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", raw, httpx.ErrValidation)
	}
	return id, nil
}

func (h *Handler) streamCSV(w http.ResponseWriter, buf *bytes.Buffer, filename string) {
	httpx.Attachment(w, "text/csv; charset=utf-8", filename)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrPermissionDenied), errors.Is(err, shared.ErrUnauthenticated):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, warehouse.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) observe(op string, audience dashboard.Audience, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveDashboard(op, string(audience), start, err)
}

func (h *Handler) logError(op string, err error) {
	if h.logger == nil || err == nil {
		return
	}
	h.logger.Error("warehouse dashboard", slog.String("op", op), slog.Any("error", err))
}
