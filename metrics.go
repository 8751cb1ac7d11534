package adminkit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MutationMetrics provides mutation performance and failure statistics.
type MutationMetrics struct {
	TotalMutations      int64         `json:"total_mutations"`
	SuccessfulMutations int64         `json:"successful_mutations"`
	FailedMutations     int64         `json:"failed_mutations"`
	ValidationFailures  int64         `json:"validation_failures"`
	AverageDuration     time.Duration `json:"average_duration"`
	MaxDuration         time.Duration `json:"max_duration"`
	MinDuration         time.Duration `json:"min_duration"`
	LastReset           time.Time     `json:"last_reset"`
}

// mutationMonitor holds the internal mutation monitoring state
type mutationMonitor struct {
	totalCount      int64
	successCount    int64
	failureCount    int64
	validationCount int64
	totalDuration   int64 // nanoseconds
	maxDuration     int64 // nanoseconds
	minDuration     int64 // nanoseconds
	lastReset       time.Time
	mu              sync.RWMutex
}

func newMutationMonitor() *mutationMonitor {
	return &mutationMonitor{
		minDuration: int64(time.Hour),
		lastReset:   time.Now(),
	}
}

// record records a finished mutation. A validation failure also counts as
// a failure.
func (m *mutationMonitor) record(duration time.Duration, success, validation bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.AddInt64(&m.totalCount, 1)
	atomic.AddInt64(&m.totalDuration, int64(duration))

	if success {
		atomic.AddInt64(&m.successCount, 1)
	} else {
		atomic.AddInt64(&m.failureCount, 1)
		if validation {
			atomic.AddInt64(&m.validationCount, 1)
		}
	}

	d := int64(duration)
	for {
		current := atomic.LoadInt64(&m.maxDuration)
		if d <= current || atomic.CompareAndSwapInt64(&m.maxDuration, current, d) {
			break
		}
	}
	for {
		current := atomic.LoadInt64(&m.minDuration)
		if d >= current || atomic.CompareAndSwapInt64(&m.minDuration, current, d) {
			break
		}
	}
}

func (m *mutationMonitor) metrics() MutationMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := atomic.LoadInt64(&m.totalCount)
	minDur := atomic.LoadInt64(&m.minDuration)
	if total == 0 {
		minDur = 0
	}

	var avg time.Duration
	if total > 0 {
		avg = time.Duration(atomic.LoadInt64(&m.totalDuration) / total)
	}

	return MutationMetrics{
		TotalMutations:      total,
		SuccessfulMutations: atomic.LoadInt64(&m.successCount),
		FailedMutations:     atomic.LoadInt64(&m.failureCount),
		ValidationFailures:  atomic.LoadInt64(&m.validationCount),
		AverageDuration:     avg,
		MaxDuration:         time.Duration(atomic.LoadInt64(&m.maxDuration)),
		MinDuration:         time.Duration(minDur),
		LastReset:           m.lastReset,
	}
}

func (m *mutationMonitor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.totalCount, 0)
	atomic.StoreInt64(&m.successCount, 0)
	atomic.StoreInt64(&m.failureCount, 0)
	atomic.StoreInt64(&m.validationCount, 0)
	atomic.StoreInt64(&m.totalDuration, 0)
	atomic.StoreInt64(&m.maxDuration, 0)
	atomic.StoreInt64(&m.minDuration, int64(time.Hour))
	m.lastReset = time.Now()
}

// healthy reports whether fewer than 5% of mutations failed for reasons
// other than validation and the average stays under a second. Validation
// failures are user input, not service health.
func (m *mutationMonitor) healthy() bool {
	metrics := m.metrics()
	if metrics.TotalMutations < 10 {
		return true
	}
	failures := metrics.FailedMutations - metrics.ValidationFailures
	if float64(failures)/float64(metrics.TotalMutations) > 0.05 {
		return false
	}
	return metrics.AverageDuration <= time.Second
}

// MutationCollector exports a MutationMonitor to Prometheus.
type MutationCollector struct {
	source MutationMonitor

	total      *prometheus.Desc
	failed     *prometheus.Desc
	validation *prometheus.Desc
	avg        *prometheus.Desc
	maxDur     *prometheus.Desc
	healthy    *prometheus.Desc
}

// NewMutationCollector creates a collector reading from source.
func NewMutationCollector(namespace string, source MutationMonitor) *MutationCollector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "mutations", n)
	}
	return &MutationCollector{
		source:     source,
		total:      prometheus.NewDesc(name("total"), "Finished mutations.", nil, nil),
		failed:     prometheus.NewDesc(name("failed_total"), "Mutations that ended in error.", nil, nil),
		validation: prometheus.NewDesc(name("validation_failed_total"), "Mutations rejected with field errors.", nil, nil),
		avg:        prometheus.NewDesc(name("duration_avg_seconds"), "Average mutation duration.", nil, nil),
		maxDur:     prometheus.NewDesc(name("duration_max_seconds"), "Longest mutation duration.", nil, nil),
		healthy:    prometheus.NewDesc(name("healthy"), "1 when the mutation failure rate is acceptable.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *MutationCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.failed
	ch <- c.validation
	ch <- c.avg
	ch <- c.maxDur
	ch <- c.healthy
}

// Collect implements prometheus.Collector.
func (c *MutationCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.source.GetMutationMetrics()
	healthy := 0.0
	if c.source.IsMutationHealthy() {
		healthy = 1
	}
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.CounterValue, float64(m.TotalMutations))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(m.FailedMutations))
	ch <- prometheus.MustNewConstMetric(c.validation, prometheus.CounterValue, float64(m.ValidationFailures))
	ch <- prometheus.MustNewConstMetric(c.avg, prometheus.GaugeValue, m.AverageDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.maxDur, prometheus.GaugeValue, m.MaxDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, healthy)
}
