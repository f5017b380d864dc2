package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	at        time.Time
	audiences []string
	err       error
}

func (s *stubEnqueuer) EnqueueDashboardSnapshot(_ context.Context, at time.Time, audiences ...string) (*asynq.TaskInfo, error) {
	s.at = at
	s.audiences = audiences
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "dashboard-snapshot-202506121030", Queue: QueueDefault}, nil
}

func newJobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := httptest.NewRecorder()
	newJobsRouter(NewHandler(nil, nil, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rr.Body.String())
}

func TestEnqueueSnapshot(t *testing.T) {
	enq := &stubEnqueuer{}
	h := NewHandler(nil, enq, nil)
	fixed := time.Date(2025, time.June, 12, 10, 30, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	rr := httptest.NewRecorder()
	newJobsRouter(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/dashboard-snapshot?audience=staff", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"task_id":"dashboard-snapshot-202506121030","queue":"default"}`, rr.Body.String())
	assert.Equal(t, fixed, enq.at)
	assert.Equal(t, []string{"staff"}, enq.audiences)
}

func TestEnqueueSnapshotRejectsUnknownAudience(t *testing.T) {
	enq := &stubEnqueuer{}
	rr := httptest.NewRecorder()
	newJobsRouter(NewHandler(nil, enq, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/dashboard-snapshot?audience=vendor", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, enq.audiences)
}

func TestEnqueueSnapshotConflictsAndFailures(t *testing.T) {
	enq := &stubEnqueuer{err: asynq.ErrTaskIDConflict}
	router := newJobsRouter(NewHandler(nil, enq, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/dashboard-snapshot", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	enq.err = errors.New("redis down")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/dashboard-snapshot", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	newJobsRouter(NewHandler(nil, nil, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/dashboard-snapshot", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}
