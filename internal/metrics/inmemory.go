package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Provisioned         map[string]uint64
	ProvisioningCount   uint64
	ProvisioningTotalNs int64
	RollbacksSucceeded  uint64
	RollbacksFailed     uint64
	OrphansEnqueued     uint64
	OrphansSwept        map[string]uint64
	OrphanQueueDepth    int64
	Mutations           map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	provisioningCount   uint64
	provisioningTotalNs int64
	rollbacksSucceeded  uint64
	rollbacksFailed     uint64
	orphansEnqueued     uint64
	orphanQueueDepth    int64

	mu          sync.Mutex
	provisioned map[string]uint64
	swept       map[string]uint64
	mutations   map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		provisioned: make(map[string]uint64),
		swept:       make(map[string]uint64),
		mutations:   make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Provisioned:         copyCounts(m.provisioned),
		ProvisioningCount:   atomic.LoadUint64(&m.provisioningCount),
		ProvisioningTotalNs: atomic.LoadInt64(&m.provisioningTotalNs),
		RollbacksSucceeded:  atomic.LoadUint64(&m.rollbacksSucceeded),
		RollbacksFailed:     atomic.LoadUint64(&m.rollbacksFailed),
		OrphansEnqueued:     atomic.LoadUint64(&m.orphansEnqueued),
		OrphansSwept:        copyCounts(m.swept),
		OrphanQueueDepth:    atomic.LoadInt64(&m.orphanQueueDepth),
		Mutations:           copyCounts(m.mutations),
	}
}

// IncUserProvisioned counts a provisioning attempt by outcome.
func (m *InMemoryRecorder) IncUserProvisioned(outcome string) {
	m.mu.Lock()
	m.provisioned[outcome]++
	m.mu.Unlock()
}

// ObserveProvisioningDuration records provisioning duration.
func (m *InMemoryRecorder) ObserveProvisioningDuration(duration time.Duration) {
	atomic.AddUint64(&m.provisioningCount, 1)
	atomic.AddInt64(&m.provisioningTotalNs, duration.Nanoseconds())
}

// IncRollback counts a compensating delete.
func (m *InMemoryRecorder) IncRollback(status string) {
	if status == "success" {
		atomic.AddUint64(&m.rollbacksSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.rollbacksFailed, 1)
}

// IncOrphanEnqueued counts identities handed to the sweeper.
func (m *InMemoryRecorder) IncOrphanEnqueued() {
	atomic.AddUint64(&m.orphansEnqueued, 1)
}

// IncOrphanSwept counts sweeper outcomes.
func (m *InMemoryRecorder) IncOrphanSwept(status string) {
	m.mu.Lock()
	m.swept[status]++
	m.mu.Unlock()
}

// SetOrphanQueueDepth sets the current sweeper backlog.
func (m *InMemoryRecorder) SetOrphanQueueDepth(depth int64) {
	atomic.StoreInt64(&m.orphanQueueDepth, depth)
}

// IncMutation counts CRUD mutations keyed as "entity.op".
func (m *InMemoryRecorder) IncMutation(entity, op string) {
	m.mu.Lock()
	m.mutations[entity+"."+op]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
