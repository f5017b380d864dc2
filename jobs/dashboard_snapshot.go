package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const snapshotLockTTL = 5 * time.Minute

// SummarySource computes dashboard summaries.
type SummarySource interface {
	Summary(ctx context.Context, q dashboard.Query) (dashboard.Summary, error)
}

// CacheBumper invalidates cached summaries.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// DashboardSnapshotJob evaluates every card for the whole warehouse, publishes
// the values as gauges and invalidates cached summaries.
type DashboardSnapshotJob struct {
	Source  SummarySource
	Cache   CacheBumper
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDashboardSnapshotJob wires dependencies for the snapshot handler.
func NewDashboardSnapshotJob(source SummarySource, cache CacheBumper, client *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardSnapshotJob {
	return &DashboardSnapshotJob{
		Source:  source,
		Cache:   cache,
		Redis:   client,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes dashboard snapshot tasks.
func (j *DashboardSnapshotJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("dashboard snapshot: handler not configured")
	}
	var payload DashboardSnapshotPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	audiences, err := parseAudiences(payload.Audiences)
	if err != nil {
		j.logger().Warn("invalid snapshot payload", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskDashboardSnapshot)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	logger := j.logger()
	group, gctx := errgroup.WithContext(ctx)
	for _, audience := range audiences {
		audience := audience
		group.Go(func() error {
			return j.snapshot(gctx, audience, now)
		})
	}
	if err := group.Wait(); err != nil {
		resultErr = err
		logger.Error("dashboard snapshot", slog.Any("error", err))
		return resultErr
	}

	if j.Cache != nil {
		if err := j.Cache.Bump(ctx); err != nil {
			// gauges are already published; a stale cache expires on its own
			logger.Warn("bump dashboard cache", slog.Any("error", err))
		}
	}
	logger.Info("completed dashboard snapshot", slog.Int("audiences", len(audiences)), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *DashboardSnapshotJob) snapshot(ctx context.Context, audience dashboard.Audience, now time.Time) error {
	acquired, err := j.lock(ctx, shared.SnapshotLockKey(string(audience), now))
	if err != nil {
		return fmt.Errorf("lock %s snapshot: %w", audience, err)
	}
	if !acquired {
		j.logger().Info("snapshot already running", slog.String("audience", string(audience)))
		return nil
	}

	summary, err := j.Source.Summary(ctx, dashboard.Query{
		Caller:   dashboard.Caller{Privileged: true},
		Audience: audience,
	})
	if err != nil {
		return fmt.Errorf("%s summary: %w", audience, err)
	}
	for _, m := range summary.Metrics {
		value := float64(m.Count)
		if m.Kind == dashboard.MetricArea {
			value = m.Area.InexactFloat64()
		}
		j.metrics().SetCardValue(string(audience), string(m.Card), value)
	}
	return nil
}

// lock reports true when no Redis client is configured.
func (j *DashboardSnapshotJob) lock(ctx context.Context, key string) (bool, error) {
	if j.Redis == nil {
		return true, nil
	}
	return j.Redis.SetNX(ctx, key, j.now().Format(time.RFC3339), snapshotLockTTL).Result()
}

func parseAudiences(raw []string) ([]dashboard.Audience, error) {
	if len(raw) == 0 {
		return []dashboard.Audience{dashboard.AudienceStaff, dashboard.AudienceCustomer}, nil
	}
	out := make([]dashboard.Audience, 0, len(raw))
	seen := make(map[dashboard.Audience]bool, len(raw))
	for _, value := range raw {
		audience := dashboard.Audience(value)
		if audience != dashboard.AudienceStaff && audience != dashboard.AudienceCustomer {
			return nil, fmt.Errorf("unknown audience %q", value)
		}
		if !seen[audience] {
			seen[audience] = true
			out = append(out, audience)
		}
	}
	return out, nil
}

func (j *DashboardSnapshotJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardSnapshot))
	}
	return slog.Default().With(slog.String("job", TaskDashboardSnapshot))
}

func (j *DashboardSnapshotJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardSnapshotJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
