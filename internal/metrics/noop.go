package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserProvisioned is a no-op.
func (n *NoopRecorder) IncUserProvisioned(outcome string) {}

// ObserveProvisioningDuration is a no-op.
func (n *NoopRecorder) ObserveProvisioningDuration(duration time.Duration) {}

// IncRollback is a no-op.
func (n *NoopRecorder) IncRollback(status string) {}

// IncOrphanEnqueued is a no-op.
func (n *NoopRecorder) IncOrphanEnqueued() {}

// IncOrphanSwept is a no-op.
func (n *NoopRecorder) IncOrphanSwept(status string) {}

// SetOrphanQueueDepth is a no-op.
func (n *NoopRecorder) SetOrphanQueueDepth(depth int64) {}

// IncMutation is a no-op.
func (n *NoopRecorder) IncMutation(entity, op string) {}
