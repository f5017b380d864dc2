package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard"
)

var snapshotTime = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

type stubSource struct {
	mu      sync.Mutex
	queries []dashboard.Query
	err     error
}

func (s *stubSource) Summary(_ context.Context, q dashboard.Query) (dashboard.Summary, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	if s.err != nil {
		return dashboard.Summary{}, s.err
	}
	return dashboard.Summary{Metrics: []dashboard.Metric{
		{Card: dashboard.CardToBePutInStock, Kind: dashboard.MetricCount, Count: 4, Area: decimal.Zero},
		{Card: dashboard.CardMainWarehouseUtilization, Kind: dashboard.MetricArea, Area: decimal.RequireFromString("12.50")},
	}}, nil
}

type stubBumper struct{ bumps int }

func (b *stubBumper) Bump(context.Context) error {
	b.bumps++
	return nil
}

func newSnapshotJob(t *testing.T, source SummarySource) (*DashboardSnapshotJob, *miniredis.Miniredis, *stubBumper, *prometheus.Registry) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	registry := prometheus.NewRegistry()
	bumper := &stubBumper{}
	job := NewDashboardSnapshotJob(source, bumper, client, nil, jobmetrics.NewMetrics(registry))
	job.clock = func() time.Time { return snapshotTime }
	return job, mr, bumper, registry
}

func gaugeValue(t *testing.T, registry *prometheus.Registry, audience, card string) (float64, bool) {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "odyssey_wms_dashboard_card_value" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["audience"] == audience && labels["card"] == card {
				return metric.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func TestDashboardSnapshotPublishesGauges(t *testing.T) {
	source := &stubSource{}
	job, mr, bumper, registry := newSnapshotJob(t, source)

	task, err := NewDashboardSnapshotTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, source.queries, 2)
	for _, q := range source.queries {
		assert.True(t, q.Caller.Privileged)
	}
	for _, audience := range []string{"staff", "customer"} {
		v, ok := gaugeValue(t, registry, audience, "toBePutInStock")
		require.True(t, ok, audience)
		assert.Equal(t, 4.0, v)
		v, ok = gaugeValue(t, registry, audience, "mainWarehouseUtilization")
		require.True(t, ok, audience)
		assert.InDelta(t, 12.5, v, 1e-9)
		assert.True(t, mr.Exists(shared.SnapshotLockKey(audience, snapshotTime)))
	}
	assert.Equal(t, 1, bumper.bumps)
}

func TestDashboardSnapshotSkipsLockedAudience(t *testing.T) {
	source := &stubSource{}
	job, mr, _, _ := newSnapshotJob(t, source)
	require.NoError(t, mr.Set(shared.SnapshotLockKey("staff", snapshotTime), "held"))

	task, err := NewDashboardSnapshotTask("staff", "customer")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, source.queries, 1)
	assert.Equal(t, dashboard.AudienceCustomer, source.queries[0].Audience)
}

func TestDashboardSnapshotFailureSkipsBump(t *testing.T) {
	source := &stubSource{err: errors.New("host down")}
	job, _, bumper, _ := newSnapshotJob(t, source)

	task, err := NewDashboardSnapshotTask("staff")
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host down")
	assert.Zero(t, bumper.bumps)
}

func TestDashboardSnapshotRejectsUnknownAudience(t *testing.T) {
	job, _, _, _ := newSnapshotJob(t, &stubSource{})
	task, err := NewDashboardSnapshotTask("vendor")
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	bad := asynq.NewTask(TaskDashboardSnapshot, []byte("{"))
	assert.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}
