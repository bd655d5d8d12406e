package services

import (
	"sync/atomic"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/types"
)

// Metrics aggregates messages sent, messages processed, the
// high-water mark of any mailbox's queue depth, the worst single
// processing time observed, and a running total of messages seen. It
// implements types.MetricsSink for direct hot-path updates and is
// also an ordinary agent that can broadcast a PerformanceMetric
// snapshot on demand.
type Metrics struct {
	*agent.Agent

	sent           uint64
	processed      uint64
	totalMessages  uint64
	maxQueueDepth  uint32
	maxProcTimeUs  uint32

	clock platform.Clock
}

// NewMetrics builds the metrics service as agent id within env.
func NewMetrics(id types.AgentId, env agent.EnvironmentHandle, clock platform.Clock) *Metrics {
	m := &Metrics{
		Agent: agent.New(id, env, agent.WithClock(clock)),
		clock: clock,
	}
	return m
}

// ObserveQueueDepth implements types.MetricsSink.
func (m *Metrics) ObserveQueueDepth(depth int) {
	d := uint32(depth)
	for {
		old := atomic.LoadUint32(&m.maxQueueDepth)
		if d <= old || atomic.CompareAndSwapUint32(&m.maxQueueDepth, old, d) {
			return
		}
	}
}

// ObserveSent implements types.MetricsSink.
func (m *Metrics) ObserveSent() {
	atomic.AddUint64(&m.sent, 1)
	atomic.AddUint64(&m.totalMessages, 1)
}

// ObserveProcessed implements types.MetricsSink.
func (m *Metrics) ObserveProcessed() {
	atomic.AddUint64(&m.processed, 1)
}

// ObserveProcessingTicks implements types.MetricsSink. ticks are
// converted to microseconds assuming the nominal 1kHz tick rate; a
// host clock reports milliseconds, so this is a coarse estimate
// suitable for relative comparisons, not wall-clock precision.
func (m *Metrics) ObserveProcessingTicks(ticks uint32) {
	us := ticks * 1000
	for {
		old := atomic.LoadUint32(&m.maxProcTimeUs)
		if us <= old || atomic.CompareAndSwapUint32(&m.maxProcTimeUs, old, us) {
			return
		}
	}
}

// Snapshot returns the current counters as a PerformanceMetric.
func (m *Metrics) Snapshot() PerformanceMetric {
	var ts uint32
	if m.clock != nil {
		ts = m.clock.Ticks()
	}
	return PerformanceMetric{
		MessagesSent:        atomic.LoadUint64(&m.sent),
		MessagesProcessed:   atomic.LoadUint64(&m.processed),
		MaxQueueDepth:       atomic.LoadUint32(&m.maxQueueDepth),
		MaxProcessingTimeUs: atomic.LoadUint32(&m.maxProcTimeUs),
		TotalMessages:       atomic.LoadUint64(&m.totalMessages),
		Timestamp:           ts,
	}
}

// Broadcast publishes the current snapshot to every other agent and
// returns the number that received it.
func (m *Metrics) Broadcast() int {
	return agent.BroadcastMessage(m.Agent, m.Snapshot())
}
