// Package metrics provides in-memory session statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Failures  int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count     int64
	Failures  int64
	AvgTimeMs float64
	MinTimeMs int64
	MaxTimeMs int64
}

// Snapshot represents the full session statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	BookAgent     *OperationSnapshot
	MediaAgent    *OperationSnapshot
}

// Operation names for the collector.
const (
	OpBookAgent  = "book_agent"
	OpMediaAgent = "media_agent"
)

// Collector aggregates in-memory session statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// Record records one completed operation.
func (c *Collector) Record(op string, duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	if !success {
		m.Failures++
	}
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:     m.Count,
		Failures:  m.Failures,
		AvgTimeMs: float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs: m.MinTime.Milliseconds(),
		MaxTimeMs: m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns the current session statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		BookAgent:     snapshotOp(c.ops[OpBookAgent]),
		MediaAgent:    snapshotOp(c.ops[OpMediaAgent]),
	}
}
