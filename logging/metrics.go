package logging

import "sync"

// Metrics is a process-local telemetry table. Subsystems publish occupancy
// gauges and drop counters here; the diagnostics endpoint snapshots it. The
// zero value is ready to use.
type Metrics struct {
	mu     sync.Mutex
	values map[string]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// TelemetryAdd increments the value under key by delta.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	m.values[key] += delta
}

// TelemetryStore overwrites the value under key.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]uint64)
	}
	m.values[key] = value
}

// Snapshot copies the current table.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]uint64, len(m.values))
	for k, v := range m.values {
		snapshot[k] = v
	}
	return snapshot
}
