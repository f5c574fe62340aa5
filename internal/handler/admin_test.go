package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/orphan"
)

type stubInspector struct {
	stats    orphan.QueueStats
	statsErr error
	dls      []orphan.DeadLetter
	gotLimit int
	requeue  map[string]error
}

func (s *stubInspector) Stats(ctx context.Context) (orphan.QueueStats, error) {
	return s.stats, s.statsErr
}

func (s *stubInspector) DeadLetters(ctx context.Context, limit int) ([]orphan.DeadLetter, error) {
	s.gotLimit = limit
	return s.dls, nil
}

func (s *stubInspector) Requeue(ctx context.Context, id string) (string, error) {
	if err, ok := s.requeue[id]; ok {
		return "", err
	}
	return "1700000000000-0", nil
}

func adminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/admin/stats", h.Stats)
	r.Get("/api/v1/admin/orphans", h.DeadLetters)
	r.Post("/api/v1/admin/orphans/{id}/requeue", h.Requeue)
	return r
}

func TestAdminHandler_Stats(t *testing.T) {
	inspector := &stubInspector{stats: orphan.QueueStats{Queued: 2, Scheduled: 1, DeadLettered: 3}}
	router := adminRouter(NewAdminHandler(inspector, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(t, http.MethodGet, "/api/v1/admin/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	response := decodeBody[StatsResponse](t, rec)
	if response.Orphans == nil || response.Orphans.DeadLettered != 3 {
		t.Errorf("unexpected orphan stats: %+v", response.Orphans)
	}
	if response.Version != Version {
		t.Errorf("expected version %s, got %s", Version, response.Version)
	}
}

func TestAdminHandler_StatsWithoutRedis(t *testing.T) {
	inspector := &stubInspector{statsErr: errors.New("connection refused")}
	router := adminRouter(NewAdminHandler(inspector, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(t, http.MethodGet, "/api/v1/admin/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if response := decodeBody[StatsResponse](t, rec); response.Orphans != nil {
		t.Errorf("expected orphan stats to be omitted, got %+v", response.Orphans)
	}
}

func TestAdminHandler_DeadLetters(t *testing.T) {
	inspector := &stubInspector{dls: []orphan.DeadLetter{{ID: "1-0", Reason: "max_attempts"}}}
	router := adminRouter(NewAdminHandler(inspector, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(t, http.MethodGet, "/api/v1/admin/orphans?limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if inspector.gotLimit != 10 {
		t.Errorf("expected limit 10, got %d", inspector.gotLimit)
	}
	if response := decodeBody[DeadLetterListResponse](t, rec); response.Total != 1 {
		t.Errorf("expected 1 dead letter, got %d", response.Total)
	}
}

func TestAdminHandler_Requeue(t *testing.T) {
	inspector := &stubInspector{requeue: map[string]error{
		"missing": orphan.ErrDeadLetterNotFound,
		"broken":  fmt.Errorf("%w: no payload", orphan.ErrInvalidRecord),
		"down":    errors.New("connection refused"),
	}}
	router := adminRouter(NewAdminHandler(inspector, discardLogger()))

	tests := []struct {
		id     string
		status int
	}{
		{"1-0", http.StatusAccepted},
		{"missing", http.StatusNotFound},
		{"broken", http.StatusUnprocessableEntity},
		{"down", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newRequest(t, http.MethodPost, "/api/v1/admin/orphans/"+tt.id+"/requeue", nil))

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncUserProvisioned(metrics.OutcomeSuccess)
	recorder.IncRollback("failed")
	recorder.IncMutation("customer", "create")
	recorder.SetOrphanQueueDepth(4)

	rec := httptest.NewRecorder()
	NewMetricsHandler(recorder).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`backoffice_users_provisioned_total{outcome="success"} 1`,
		`backoffice_provisioning_rollbacks_total{status="failed"} 1`,
		`backoffice_mutations_total{entity="customer",op="create"} 1`,
		`backoffice_orphan_identities_queue_depth 4`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}
