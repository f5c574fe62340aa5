package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/glansab/backoffice/internal/metrics"
)

// MetricsHandler exposes in-memory metrics in Prometheus text format.
// It backs /metrics when the Prometheus registry is not in use.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for _, outcome := range sortedKeys(snap.Provisioned) {
		writeMetric(w, "backoffice_users_provisioned_total{outcome=%q} %d\n", outcome, snap.Provisioned[outcome])
	}
	writeMetric(w, "backoffice_user_provisioning_duration_seconds_count %d\n", snap.ProvisioningCount)
	writeMetric(w, "backoffice_user_provisioning_duration_seconds_sum %.6f\n", float64(snap.ProvisioningTotalNs)/1e9)

	writeMetric(w, "backoffice_provisioning_rollbacks_total{status=\"success\"} %d\n", snap.RollbacksSucceeded)
	writeMetric(w, "backoffice_provisioning_rollbacks_total{status=\"failed\"} %d\n", snap.RollbacksFailed)

	writeMetric(w, "backoffice_orphan_identities_enqueued_total %d\n", snap.OrphansEnqueued)
	for _, status := range sortedKeys(snap.OrphansSwept) {
		writeMetric(w, "backoffice_orphan_identities_swept_total{status=%q} %d\n", status, snap.OrphansSwept[status])
	}
	writeMetric(w, "backoffice_orphan_identities_queue_depth %d\n", snap.OrphanQueueDepth)

	for _, key := range sortedKeys(snap.Mutations) {
		entity, op, _ := strings.Cut(key, ".")
		writeMetric(w, "backoffice_mutations_total{entity=%q,op=%q} %d\n", entity, op, snap.Mutations[key])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
