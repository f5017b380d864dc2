// Package dashboard computes the warehouse dashboard: card summaries, card
// drill-down listings and the list-view queries behind each card.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/zones"
)

// Repository is the storage contract the dashboard reads through.
type Repository interface {
	store.Snapshotter
	store.LocationLister
}

// ZoneResolver maps zones to location ids.
type ZoneResolver interface {
	Resolve(ctx context.Context, zone zones.Zone) ([]int64, error)
}

// Options tune the service.
type Options struct {
	// DetailLimit caps detail listings; values outside (0, 200] mean 200.
	DetailLimit int
	// StaffExpectedSwap reproduces the staff dashboard's historical mapping,
	// where expectedTomorrow counts today's arrivals and expectedToday counts later ones.
	StaffExpectedSwap bool
}

// Query carries the caller, audience and filters of one request.
type Query struct {
	Caller   Caller
	Audience Audience
	Filters  Filters
}

// Service evaluates cards against a Repository.
type Service struct {
	repo   Repository
	zones  ZoneResolver
	logger *slog.Logger
	opts   Options
	now    func() time.Time
}

// NewService wires the repository and zone resolver.
func NewService(repo Repository, resolver ZoneResolver, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, zones: resolver, logger: logger, opts: opts, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// ============================================================================
// SUMMARY
// ============================================================================

// Metric is one card value.
type Metric struct {
	Card  Card
	Kind  MetricKind
	Count int
	Area  decimal.Decimal
}

// Value renders the metric the way clients expect: counts as integers, areas
// as fixed two-decimal strings.
func (m Metric) Value() any {
	if m.Kind == MetricArea {
		return m.Area.StringFixed(2)
	}
	return m.Count
}

// Summary is a flat card → value record.
type Summary struct {
	Metrics []Metric
}

// Get returns the metric of card.
func (s Summary) Get(card Card) (Metric, bool) {
	for _, m := range s.Metrics {
		if m.Card == card {
			return m, true
		}
	}
	return Metric{}, false
}

// Values flattens the summary.
func (s Summary) Values() map[string]any {
	out := make(map[string]any, len(s.Metrics))
	for _, m := range s.Metrics {
		out[string(m.Card)] = m.Value()
	}
	return out
}

// MarshalJSON encodes the summary as a flat object.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// Summary computes every card for q within a single store snapshot.
func (s *Service) Summary(ctx context.Context, q Query) (Summary, error) {
	return s.summarize(ctx, q, cardOrder)
}

type plan struct {
	card  Card
	kind  MetricKind
	where predicate.Expr
}

func (s *Service) summarize(ctx context.Context, q Query, cards []Card) (Summary, error) {
	lib := NewLibrary(s.now())
	base := SecurityBase(lib, q.Caller, q.Filters)

	plans := make([]plan, 0, len(cards))
	for _, card := range cards {
		where, err := s.cardPredicate(ctx, lib, q.Audience, card)
		if err != nil {
			return Summary{}, err
		}
		plans = append(plans, plan{card: card, kind: definitions[card].metric, where: predicate.And(base, where)})
	}

	metrics := make([]Metric, len(plans))
	err := s.repo.Snapshot(ctx, func(ctx context.Context, r store.Reader) error {
		for i, pl := range plans {
			m, err := evaluate(ctx, r, pl)
			if err != nil {
				return fmt.Errorf("card %s: %w", pl.card, err)
			}
			metrics[i] = m
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return Summary{Metrics: metrics}, nil
}

func evaluate(ctx context.Context, r store.Reader, pl plan) (Metric, error) {
	m := Metric{Card: pl.card, Kind: pl.kind, Area: decimal.Zero}
	if pl.where == predicate.False {
		return m, nil
	}
	switch pl.kind {
	case MetricArea:
		sum, err := r.SumArea(ctx, pl.where)
		if err != nil {
			return m, err
		}
		m.Area = decimal.RequireFromString(formatArea(sum))
	default:
		n, err := r.Count(ctx, pl.where)
		if err != nil {
			return m, err
		}
		m.Count = n
	}
	return m, nil
}

// cardPredicate builds the card-specific predicate, resolving the card's zone first.
func (s *Service) cardPredicate(ctx context.Context, lib Library, audience Audience, card Card) (predicate.Expr, error) {
	def, ok := definitions[card]
	if !ok {
		return nil, fmt.Errorf("dashboard: unknown card %q", card)
	}
	env := buildEnv{lib: lib, audience: audience, swap: s.opts.StaffExpectedSwap}
	if def.zone != "" {
		ids, err := s.zones.Resolve(ctx, def.zone)
		if err != nil {
			return nil, fmt.Errorf("resolve zone %s: %w", def.zone, err)
		}
		env.zoneIDs = ids
	}
	return def.build(env), nil
}

// ============================================================================
// DETAIL
// ============================================================================

// Column is one listing column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DetailColumns is the fixed listing schema.
var DetailColumns = []Column{
	{Key: "name", Label: "Reference"},
	{Key: "customer", Label: "Customer"},
	{Key: "vessel", Label: "Vessel"},
	{Key: "status", Label: "Status"},
	{Key: "scheduledDate", Label: "Scheduled Date"},
	{Key: "areaChargeable", Label: "Area (m²)"},
}

// Row is one listing record, keyed like DetailColumns.
type Row struct {
	Name           string `json:"name"`
	Customer       string `json:"customer"`
	Vessel         string `json:"vessel"`
	Status         string `json:"status"`
	ScheduledDate  string `json:"scheduledDate"`
	AreaChargeable string `json:"areaChargeable"`
}

// Cells returns the row values in column order.
func (r Row) Cells() []string {
	return []string{r.Name, r.Customer, r.Vessel, r.Status, r.ScheduledDate, r.AreaChargeable}
}

// Detail is a card drill-down listing.
type Detail struct {
	Card       string   `json:"card"`
	Recognized bool     `json:"recognized"`
	Headers    []Column `json:"headers"`
	Records    []Row    `json:"records"`
}

// Detail lists the shipments behind a card, newest first. An unrecognised
// card key applies no card narrowing, so the caller's whole partition is listed.
func (s *Service) Detail(ctx context.Context, q Query, key string) (Detail, error) {
	where, card, recognized, err := s.resolve(ctx, q, key)
	if err != nil {
		return Detail{}, err
	}
	out := Detail{Card: key, Recognized: recognized, Headers: DetailColumns, Records: []Row{}}
	if recognized {
		out.Card = string(card)
	}
	if where == predicate.False {
		return out, nil
	}

	var shipments []warehouse.Shipment
	err = s.repo.Snapshot(ctx, func(ctx context.Context, r store.Reader) error {
		var err error
		shipments, err = r.Search(ctx, where, store.SearchOptions{Limit: s.detailLimit()})
		return err
	})
	if err != nil {
		return Detail{}, err
	}
	for _, sh := range shipments {
		out.Records = append(out.Records, toRow(sh))
	}
	return out, nil
}

func (s *Service) resolve(ctx context.Context, q Query, key string) (predicate.Expr, Card, bool, error) {
	lib := NewLibrary(s.now())
	base := SecurityBase(lib, q.Caller, q.Filters)
	card, ok := ParseCard(key)
	if !ok {
		if key != "" {
			s.logger.Warn("unrecognised dashboard card, listing without card narrowing", slog.String("card", key))
		}
		return base, "", false, nil
	}
	where, err := s.cardPredicate(ctx, lib, q.Audience, card)
	if err != nil {
		return nil, "", false, err
	}
	return predicate.And(base, where), card, true, nil
}

func (s *Service) detailLimit() int {
	return store.SearchOptions{Limit: s.opts.DetailLimit}.ClampLimit()
}

// formatArea prints an area with two decimals, rounding on the exact binary
// value the way printf does (0.125 prints as 0.12, 2.675 as 2.67).
func formatArea(v float64) string {
	if v == 0 {
		v = 0 // normalise negative zero
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func toRow(sh warehouse.Shipment) Row {
	row := Row{
		Name:           sh.Name,
		Customer:       sh.CustomerName,
		Vessel:         sh.Vessel,
		Status:         sh.Status.Label(),
		AreaChargeable: formatArea(sh.AreaChargeable),
	}
	if sh.ScheduledDate != nil {
		row.ScheduledDate = sh.ScheduledDate.Format(time.DateOnly)
	}
	return row
}

// ============================================================================
// ACTION
// ============================================================================

// ListModel is the host model every card lists.
const ListModel = "stock.picking"

const defaultActionTitle = "Warehouse Inventory"

// Action is the fully resolved list-view query behind a card.
type Action struct {
	Card       string `json:"card"`
	Recognized bool   `json:"recognized"`
	Title      string `json:"title"`
	Model      string `json:"model"`
	Level      Level  `json:"level,omitempty"`
	Domain     []any  `json:"domain"`
}

// Action resolves the host list-view query for a card. title overrides the
// card's default title when non-empty.
func (s *Service) Action(ctx context.Context, q Query, key, title string) (Action, error) {
	where, card, recognized, err := s.resolve(ctx, q, key)
	if err != nil {
		return Action{}, err
	}
	domain, err := predicate.Domain(where)
	if err != nil {
		return Action{}, err
	}
	out := Action{Card: key, Recognized: recognized, Title: defaultActionTitle, Model: ListModel, Domain: domain}
	if recognized {
		out.Card = string(card)
		out.Title = card.Title()
		out.Level = definitions[card].level
	}
	if title != "" {
		out.Title = title
	}
	return out, nil
}

// ============================================================================
// LOOKUPS
// ============================================================================

// Shipment loads one shipment with its lines, provided it lies in the caller's partition.
func (s *Service) Shipment(ctx context.Context, q Query, id int64) (warehouse.Shipment, error) {
	where := predicate.And(SecurityBase(NewLibrary(s.now()), q.Caller, Filters{}), predicate.Eq(predicate.FieldID, id))
	if where == predicate.False {
		return warehouse.Shipment{}, warehouse.ErrNotFound
	}
	var found []warehouse.Shipment
	err := s.repo.Snapshot(ctx, func(ctx context.Context, r store.Reader) error {
		var err error
		found, err = r.Search(ctx, where, store.SearchOptions{Limit: 1, WithLines: true})
		return err
	})
	if err != nil {
		return warehouse.Shipment{}, err
	}
	if len(found) == 0 {
		return warehouse.Shipment{}, warehouse.ErrNotFound
	}
	return found[0], nil
}

// Locations lists internal storage locations for the location filter.
func (s *Service) Locations(ctx context.Context) ([]warehouse.Location, error) {
	return s.repo.InternalLocations(ctx)
}

// Now exposes the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}
