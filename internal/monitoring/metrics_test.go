package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.RecordSimulation(5000, false)
	m.RecordSimulation(5000, true)
	m.IncrementJobsSubmitted()
	m.IncrementJobsCancelled()

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["request_count"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(1), stats["cache_misses"])
	assert.Equal(t, int64(1), stats["simulations_completed"])
	assert.Equal(t, int64(1), stats["simulations_failed"])
	assert.Equal(t, int64(5000), stats["iterations_run"], "failed runs must not count iterations")
	assert.Equal(t, int64(1), stats["jobs_submitted"])
	assert.Equal(t, int64(1), stats["jobs_cancelled"])
}

func TestResponseTimePercentiles(t *testing.T) {
	m := NewMetrics()

	for i := 1; i <= 100; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}

	stats := m.GetStats()
	assert.Equal(t, int64(50), stats["response_time_p50_ms"])
	assert.Equal(t, int64(95), stats["response_time_p95_ms"])
	assert.Equal(t, int64(99), stats["response_time_p99_ms"])
}

func TestResponseTimeWindowIsBounded(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 2500; i++ {
		m.RecordResponseTime(time.Millisecond)
	}

	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()
	assert.LessOrEqual(t, len(m.ResponseTimes), 1000)
}
