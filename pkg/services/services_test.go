package services

import (
	"testing"
	"time"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/mailbox"
	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/types"
)

type fakeEnv struct {
	agents map[types.AgentId]*agent.Agent
}

func newFakeEnv() *fakeEnv { return &fakeEnv{agents: make(map[types.AgentId]*agent.Agent)} }

func (e *fakeEnv) DeliverRaw(to types.AgentId, frame []byte) mailbox.PushResult {
	target, ok := e.agents[to]
	if !ok {
		return mailbox.InvalidMessage
	}
	return target.Mailbox().Push(frame, len(frame))
}

func (e *fakeEnv) BroadcastRaw(from types.AgentId, frame []byte) int {
	delivered := 0
	for id, a := range e.agents {
		if id == from {
			continue
		}
		if a.Mailbox().Push(frame, len(frame)) == mailbox.Success {
			delivered++
		}
	}
	return delivered
}

func (e *fakeEnv) NotifyHeartbeat(types.AgentId) {}

func TestErrorReporterReportIsRetrievableAfterDispatch(t *testing.T) {
	env := newFakeEnv()
	clock := platform.NewHostClock()
	r := NewErrorReporter(0, env, clock)
	env.agents[0] = r.Agent

	r.Report(types.Warning, types.QueueOverflow, 5)
	if _, ok := r.Last(); ok {
		t.Fatal("Last() should be empty before the self-sent ErrorReport has been dispatched")
	}

	if n := r.ProcessMessages(1); n != 1 {
		t.Fatalf("ProcessMessages() = %d, want 1 to dispatch the pending ErrorReport", n)
	}

	last, ok := r.Last()
	if !ok {
		t.Fatal("Last() returned ok=false after dispatching the report")
	}
	if last.Kind.Kind() != types.QueueOverflow || last.Source != 5 {
		t.Errorf("Last() = %+v, want Kind=QueueOverflow Source=5", last)
	}
}

func TestErrorReporterHealthEscalatesOnCritical(t *testing.T) {
	env := newFakeEnv()
	r := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = r.Agent
	r.SetCriticalSection(platform.HostCriticalSection{Halt: func() {}})

	if r.Health() != Healthy {
		t.Fatal("Health() should start Healthy")
	}
	r.Report(types.Critical, types.WatchdogExpired, 1)
	r.ProcessMessages(1)
	if r.Health() != CriticalHealth {
		t.Errorf("Health() = %v, want Critical after a Critical report", r.Health())
	}
}

func TestErrorReporterCriticalReportInvokesEmergencyHandler(t *testing.T) {
	env := newFakeEnv()
	r := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = r.Agent

	halted := false
	r.SetCriticalSection(platform.HostCriticalSection{Halt: func() { halted = true }})

	r.Report(types.Critical, types.WatchdogExpired, 1)
	if !halted {
		t.Error("Report(Critical, ...) should invoke the critical section's emergency handler")
	}
}

func TestErrorReporterHealthDegradesAfterThreeWarnings(t *testing.T) {
	env := newFakeEnv()
	r := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = r.Agent

	for i := 0; i < 3; i++ {
		r.Report(types.Warning, types.InvalidMessage, 1)
	}
	r.ProcessMessages(3)
	if r.Health() != Degraded {
		t.Errorf("Health() = %v, want Degraded after three warnings", r.Health())
	}
}

func TestMetricsSnapshotReflectsObservations(t *testing.T) {
	env := newFakeEnv()
	m := NewMetrics(1, env, platform.NewHostClock())
	env.agents[1] = m.Agent

	m.ObserveSent()
	m.ObserveSent()
	m.ObserveProcessed()
	m.ObserveQueueDepth(3)
	m.ObserveQueueDepth(1)
	m.ObserveProcessingTicks(2)

	snap := m.Snapshot()
	if snap.MessagesSent != 2 {
		t.Errorf("MessagesSent = %d, want 2", snap.MessagesSent)
	}
	if snap.MessagesProcessed != 1 {
		t.Errorf("MessagesProcessed = %d, want 1", snap.MessagesProcessed)
	}
	if snap.MaxQueueDepth != 3 {
		t.Errorf("MaxQueueDepth = %d, want 3 (high-water mark, not the last observation)", snap.MaxQueueDepth)
	}
	if snap.TotalMessages != 2 {
		t.Errorf("TotalMessages = %d, want 2", snap.TotalMessages)
	}
}

func TestWatchdogTickReportsExpiredAgent(t *testing.T) {
	env := newFakeEnv()
	reporter := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = reporter.Agent

	w := NewWatchdog(1, env, platform.NewHostClock(), reporter)
	env.agents[1] = w.Agent

	w.RegisterForMonitoring(2, 0) // a zero-tick timeout expires once a single tick has elapsed
	time.Sleep(2 * time.Millisecond)
	expired := w.Tick()

	if len(expired) != 1 || expired[0] != 2 {
		t.Fatalf("Tick() = %v, want [2]", expired)
	}
	reporter.ProcessMessages(1)
	last, ok := reporter.Last()
	if !ok || last.Kind.Kind() != types.WatchdogExpired || last.Source != 2 {
		t.Errorf("reporter did not receive the expiry, last=%+v ok=%v", last, ok)
	}
}

func TestWatchdogHeartbeatPreventsExpiry(t *testing.T) {
	env := newFakeEnv()
	reporter := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = reporter.Agent

	w := NewWatchdog(1, env, platform.NewHostClock(), reporter)
	env.agents[1] = w.Agent

	w.RegisterForMonitoring(2, 1_000_000)
	w.Heartbeat(2)
	if n := w.ProcessMessages(1); n != 1 {
		t.Fatalf("ProcessMessages() = %d, want 1 to dispatch the pending Heartbeat", n)
	}

	if expired := w.Tick(); len(expired) != 0 {
		t.Errorf("Tick() = %v, want none expired right after a heartbeat", expired)
	}
}

func TestWatchdogConsumesHeartbeatMessageFromAnotherAgent(t *testing.T) {
	env := newFakeEnv()
	reporter := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = reporter.Agent

	clock := platform.NewHostClock()
	w := NewWatchdog(1, env, clock, reporter)
	env.agents[1] = w.Agent

	sensor := agent.New(2, env, agent.WithClock(clock))
	env.agents[2] = sensor

	w.RegisterForMonitoring(2, 1_000_000)
	agent.SendMessage(sensor, w.ID(), Heartbeat{AgentID: 2, Timestamp: clock.Ticks()})
	if n := w.ProcessMessages(1); n != 1 {
		t.Fatalf("ProcessMessages() = %d, want 1 to dispatch the Heartbeat sent by agent 2", n)
	}

	if expired := w.Tick(); len(expired) != 0 {
		t.Errorf("Tick() = %v, want none expired after agent 2's own Heartbeat message", expired)
	}
}

func TestWatchdogObserveHeartbeatUpdatesLivenessDirectly(t *testing.T) {
	env := newFakeEnv()
	reporter := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = reporter.Agent

	w := NewWatchdog(1, env, platform.NewHostClock(), reporter)
	env.agents[1] = w.Agent

	w.RegisterForMonitoring(2, 1_000_000)
	w.ObserveHeartbeat(2) // no message involved, unlike Heartbeat

	if expired := w.Tick(); len(expired) != 0 {
		t.Errorf("Tick() = %v, want none expired right after ObserveHeartbeat", expired)
	}
}

func TestWatchdogUnregisteredAgentNeverExpires(t *testing.T) {
	env := newFakeEnv()
	reporter := NewErrorReporter(0, env, platform.NewHostClock())
	env.agents[0] = reporter.Agent
	w := NewWatchdog(1, env, platform.NewHostClock(), reporter)
	env.agents[1] = w.Agent

	if expired := w.Tick(); len(expired) != 0 {
		t.Errorf("Tick() = %v, want none for a watchdog with nothing registered", expired)
	}
}
