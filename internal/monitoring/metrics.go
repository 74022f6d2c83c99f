package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount         int64
	ErrorCount           int64
	CacheHits            int64
	CacheMisses          int64
	SimulationsCompleted int64
	SimulationsFailed    int64
	IterationsRun        int64
	JobsSubmitted        int64
	JobsCancelled        int64
	StartTime            time.Time

	// Response time tracking for percentiles
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	// Rate limit metrics
	RateLimitIPBlocks      int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:     time.Now(),
		ResponseTimes: make([]time.Duration, 0, 1000),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// RecordSimulation records a finished simulation and its iteration volume
func (m *Metrics) RecordSimulation(iterations int, failed bool) {
	if failed {
		atomic.AddInt64(&m.SimulationsFailed, 1)
		return
	}
	atomic.AddInt64(&m.SimulationsCompleted, 1)
	atomic.AddInt64(&m.IterationsRun, int64(iterations))
}

// IncrementJobsSubmitted increments the submitted job count
func (m *Metrics) IncrementJobsSubmitted() {
	atomic.AddInt64(&m.JobsSubmitted, 1)
}

// IncrementJobsCancelled increments the cancelled job count
func (m *Metrics) IncrementJobsCancelled() {
	atomic.AddInt64(&m.JobsCancelled, 1)
}

// IncrementRateLimitIPBlock increments IP rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
}

// IncrementRateLimitRedisError increments Redis rate limit errors
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments in-memory fallback usage
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// RecordResponseTime records a response time sample, keeping a bounded window
func (m *Metrics) RecordResponseTime(d time.Duration) {
	m.ResponseTimesMutex.Lock()
	defer m.ResponseTimesMutex.Unlock()

	m.ResponseTimes = append(m.ResponseTimes, d)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[len(m.ResponseTimes)-1000:]
	}
}

// GetStats returns a snapshot of all metrics
func (m *Metrics) GetStats() map[string]interface{} {
	p50, p95, p99 := m.responseTimePercentiles()

	return map[string]interface{}{
		"request_count":          atomic.LoadInt64(&m.RequestCount),
		"error_count":            atomic.LoadInt64(&m.ErrorCount),
		"cache_hits":             atomic.LoadInt64(&m.CacheHits),
		"cache_misses":           atomic.LoadInt64(&m.CacheMisses),
		"simulations_completed":  atomic.LoadInt64(&m.SimulationsCompleted),
		"simulations_failed":     atomic.LoadInt64(&m.SimulationsFailed),
		"iterations_run":         atomic.LoadInt64(&m.IterationsRun),
		"jobs_submitted":         atomic.LoadInt64(&m.JobsSubmitted),
		"jobs_cancelled":         atomic.LoadInt64(&m.JobsCancelled),
		"rate_limit_ip_blocks":   atomic.LoadInt64(&m.RateLimitIPBlocks),
		"rate_limit_fallbacks":   atomic.LoadInt64(&m.RateLimitFallbackCount),
		"response_time_p50_ms":   p50.Milliseconds(),
		"response_time_p95_ms":   p95.Milliseconds(),
		"response_time_p99_ms":   p99.Milliseconds(),
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
	}
}

func (m *Metrics) responseTimePercentiles() (p50, p95, p99 time.Duration) {
	m.ResponseTimesMutex.RLock()
	samples := append([]time.Duration(nil), m.ResponseTimes...)
	m.ResponseTimesMutex.RUnlock()

	if len(samples) == 0 {
		return 0, 0, 0
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	at := func(q float64) time.Duration {
		idx := int(q * float64(len(samples)-1))
		return samples[idx]
	}
	return at(0.50), at(0.95), at(0.99)
}
