package services

import (
	"sync"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/message"
	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/types"
)

type watchEntry struct {
	monitored   bool
	timeoutTicks uint32
	lastSeen    uint32
}

// Watchdog tracks per-agent heartbeats and reports types.WatchdogExpired
// through its error sink when a monitored agent misses its deadline.
// Monitoring is opt-in: an agent that never calls RegisterForMonitoring
// is never checked, and the system services never register
// themselves either.
type Watchdog struct {
	*agent.Agent

	mu      sync.Mutex
	entries [types.MaxAgents]watchEntry
	errors  types.ErrorSink
	clock   platform.Clock
}

// NewWatchdog builds the watchdog as agent id within env, reporting
// expirations through errors.
func NewWatchdog(id types.AgentId, env agent.EnvironmentHandle, clock platform.Clock, errors types.ErrorSink) *Watchdog {
	if errors == nil {
		errors = types.NopErrorSink{}
	}
	w := &Watchdog{
		Agent:  agent.New(id, env, agent.WithClock(clock)),
		errors: errors,
		clock:  clock,
	}
	agent.OnType[Heartbeat](w.Agent, func(a *agent.Agent, frame []byte) {
		hb, ok := message.Decode[Heartbeat](frame)
		if !ok {
			return
		}
		w.recordHeartbeat(hb.AgentID, hb.Timestamp)
	})
	return w
}

// RegisterForMonitoring starts watching agentID: it must send a
// Heartbeat at least every timeoutTicks or Tick will report it
// expired. Registering again resets the deadline.
func (w *Watchdog) RegisterForMonitoring(agentID types.AgentId, timeoutTicks uint32) bool {
	if int(agentID) >= types.MaxAgents {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var now uint32
	if w.clock != nil {
		now = w.clock.Ticks()
	}
	w.entries[agentID] = watchEntry{monitored: true, timeoutTicks: timeoutTicks, lastSeen: now}
	return true
}

// Unregister stops monitoring agentID.
func (w *Watchdog) Unregister(agentID types.AgentId) {
	if int(agentID) >= types.MaxAgents {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[agentID].monitored = false
}

func (w *Watchdog) recordHeartbeat(agentID types.AgentId, timestamp uint32) {
	if int(agentID) >= types.MaxAgents {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.entries[agentID].monitored {
		w.entries[agentID].lastSeen = timestamp
	}
}

// Heartbeat constructs and sends a Heartbeat message on agentID's
// behalf, for a driver loop reporting liveness on an agent's behalf
// between its own ProcessMessages calls. It is dispatched and consumed
// exactly like a Heartbeat arriving from anywhere else: recordHeartbeat
// only ever runs from inside the OnType[Heartbeat] handler.
func (w *Watchdog) Heartbeat(agentID types.AgentId) {
	var now uint32
	if w.clock != nil {
		now = w.clock.Ticks()
	}
	agent.SendMessage(w.Agent, w.ID(), Heartbeat{AgentID: agentID, Timestamp: now})
}

// ObserveHeartbeat records agentID's liveness directly, bypassing the
// message bus. The environment calls this once per agent's
// ProcessMessages return, the same hot-path exemption the metrics
// counters use: that call happens on every dispatch, so routing it
// through SendMessage would requeue a message every time and the
// dispatch loop would never drain.
func (w *Watchdog) ObserveHeartbeat(agentID types.AgentId) {
	var now uint32
	if w.clock != nil {
		now = w.clock.Ticks()
	}
	w.recordHeartbeat(agentID, now)
}

// Tick scans every monitored agent and reports types.WatchdogExpired
// for any whose last heartbeat is older than its registered timeout.
// It returns the ids found expired.
func (w *Watchdog) Tick() []types.AgentId {
	var now uint32
	if w.clock != nil {
		now = w.clock.Ticks()
	}

	w.mu.Lock()
	var expired []types.AgentId
	for id := range w.entries {
		e := &w.entries[id]
		if !e.monitored {
			continue
		}
		if now-e.lastSeen > e.timeoutTicks {
			expired = append(expired, types.AgentId(id))
		}
	}
	w.mu.Unlock()

	for _, id := range expired {
		w.errors.Report(types.Warning, types.WatchdogExpired, id)
	}
	return expired
}
