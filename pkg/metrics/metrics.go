package metrics

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collector records pipeline run statistics.
type Collector interface {
	IncrementCounter(name string, delta float64)
	SetGauge(name string, value float64)
	RecordDuration(name string, duration time.Duration)
	Counters() map[string]float64
	Reset()
}

// SimpleCollector is a basic in-memory metrics collector. Pipelines record
// per-run counters into it and log the totals when a run completes.
type SimpleCollector struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
	logger   *zap.Logger
}

// NewSimpleCollector creates a new in-memory collector.
func NewSimpleCollector(logger *zap.Logger) *SimpleCollector {
	return &SimpleCollector{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
		logger:   logger,
	}
}

// IncrementCounter adds delta to a counter metric.
func (c *SimpleCollector) IncrementCounter(name string, delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// SetGauge sets a gauge metric to the given value.
func (c *SimpleCollector) SetGauge(name string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[name] = value
}

// RecordDuration records a duration as a seconds gauge.
func (c *SimpleCollector) RecordDuration(name string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[name] = duration.Seconds()

	c.logger.Debug("Duration recorded",
		zap.String("metric", name),
		zap.Duration("duration", duration))
}

// Counters returns a copy of the current counter values.
func (c *SimpleCollector) Counters() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.counters))
	for name, value := range c.counters {
		out[name] = value
	}
	return out
}

// Reset clears all recorded values; called at the start of a run.
func (c *SimpleCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = make(map[string]float64)
	c.gauges = make(map[string]float64)
}
