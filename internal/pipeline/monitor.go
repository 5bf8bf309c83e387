package pipeline

import (
	"sync"
	"time"

	"github.com/wonny/xray/internal/contracts"
)

// Monitor collects per-phase timing and counters for the health
// report. It never influences control flow.
type Monitor struct {
	mu     sync.Mutex
	phases map[contracts.Phase]*contracts.PhaseMetrics

	cacheHitRate    float64
	apiFallbackRate float64
}

func NewMonitor() *Monitor {
	return &Monitor{phases: make(map[contracts.Phase]*contracts.PhaseMetrics)}
}

// BeginPhase starts timing a phase; the returned func stops it
func (m *Monitor) BeginPhase(phase contracts.Phase) func() {
	start := time.Now()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.metrics(phase).Duration = time.Since(start)
	}
}

// Count sets a named counter on a phase
func (m *Monitor) Count(phase contracts.Phase, name string, value int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm := m.metrics(phase)
	if pm.Counters == nil {
		pm.Counters = make(map[string]int)
	}
	pm.Counters[name] = value
}

// SetRates records the run-wide cache hit and API fallback rates
func (m *Monitor) SetRates(cacheHit, apiFallback float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHitRate = cacheHit
	m.apiFallbackRate = apiFallback
}

func (m *Monitor) metrics(phase contracts.Phase) *contracts.PhaseMetrics {
	pm, ok := m.phases[phase]
	if !ok {
		pm = &contracts.PhaseMetrics{}
		m.phases[phase] = pm
	}
	return pm
}

// BuildHealth assembles the machine-readable health summary
func (m *Monitor) BuildHealth(success bool, quality *contracts.DataQuality) *contracts.HealthSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := make(map[contracts.Phase]contracts.PhaseMetrics, len(m.phases))
	for phase, pm := range m.phases {
		metrics[phase] = *pm
	}

	summary := &contracts.HealthSummary{
		Timestamp:       time.Now(),
		Success:         success,
		PhaseMetrics:    metrics,
		CacheHitRate:    m.cacheHitRate,
		APIFallbackRate: m.apiFallbackRate,
	}
	if quality != nil {
		summary.Quality = contracts.QualitySummary{
			Score:            quality.Score,
			IsTrustworthy:    quality.IsTrustworthy(),
			IssuesBySeverity: quality.CountBySeverity(),
			IssuesByCategory: quality.CountByCategory(),
			Issues:           quality.Issues,
		}
	}
	return summary
}
