package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	GenerationsStarted  int64
	GenerationsRejected int64
	GenerationsFailed   int64
	ContentDelivered    int64
	DuplicatesFiltered  int64
	AttemptsExhausted   int64
	StaleReleased       int64
	LedgerSaveErrors    int64

	// Timings
	LastGenerationTime    time.Duration
	AverageGenerationTime time.Duration
	TotalGenerationTime   time.Duration
	GenerationCount       int64

	// Status
	StartedAt     time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true, StartedAt: time.Now()}
}

func (m *Metrics) IncrementGenerationsStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationsStarted++
}

func (m *Metrics) IncrementGenerationsRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationsRejected++
}

func (m *Metrics) IncrementContentDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContentDelivered++
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementAttemptsExhausted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AttemptsExhausted++
}

func (m *Metrics) AddStaleReleased(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StaleReleased += int64(n)
}

func (m *Metrics) IncrementLedgerSaveErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LedgerSaveErrors++
}

// RecordGeneration stores the duration of a finished generation task.
func (m *Metrics) RecordGeneration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastGenerationTime = duration
	m.TotalGenerationTime += duration
	m.GenerationCount++

	if m.GenerationCount > 0 {
		m.AverageGenerationTime = m.TotalGenerationTime / time.Duration(m.GenerationCount)
	}
}

// SetError records a failed generation. The bot stays healthy: a single
// failure is reported to the user and does not stop the process.
func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerationsFailed++
	m.LastError = err
	m.LastErrorTime = time.Now()
}

// SetUnhealthy marks the process as unable to serve, e.g. lost transport.
func (m *Metrics) SetUnhealthy(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"generations_started":        m.GenerationsStarted,
		"generations_rejected":       m.GenerationsRejected,
		"generations_failed":         m.GenerationsFailed,
		"content_delivered":          m.ContentDelivered,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"attempts_exhausted":         m.AttemptsExhausted,
		"stale_released":             m.StaleReleased,
		"ledger_save_errors":         m.LedgerSaveErrors,
		"last_generation_time_ms":    m.LastGenerationTime.Milliseconds(),
		"average_generation_time_ms": m.AverageGenerationTime.Milliseconds(),
		"started_at":                 m.StartedAt.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
