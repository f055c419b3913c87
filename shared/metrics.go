package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RunMetrics accumulates per-outcome counters for one ingestion run.
type RunMetrics struct {
	startedAt time.Time
	counts    map[string]int64
	mutex     sync.Mutex
}

// NewRunMetrics creates a metrics tracker for a single run.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		startedAt: time.Now(),
		counts:    make(map[string]int64),
	}
}

// Record increments the counter for one task outcome.
func (m *RunMetrics) Record(outcome string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.counts[outcome]++
}

// Count returns the counter for a single outcome.
func (m *RunMetrics) Count(outcome string) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.counts[outcome]
}

// Snapshot returns a copy of all outcome counters.
func (m *RunMetrics) Snapshot() map[string]int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	snapshot := make(map[string]int64, len(m.counts))
	for outcome, count := range m.counts {
		snapshot[outcome] = count
	}
	return snapshot
}

// LogSummary logs the run's outcome counters and elapsed time.
func (m *RunMetrics) LogSummary() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	fields := logrus.Fields{
		"elapsed": time.Since(m.startedAt),
	}
	var total int64
	for outcome, count := range m.counts {
		fields["outcome_"+outcome] = count
		total += count
	}
	fields["total_tasks"] = total

	logrus.WithFields(fields).Info("Ingestion run metrics summary")
}
