// Package environment implements the process-wide agent registry and
// cooperative dispatcher: an address-keyed table feeding a
// single-call-stack dispatch loop rather than a goroutine-pool
// executor, so dispatch never backgrounds work. Dispatch is not
// allocation-free: each Agent.ProcessMessages call allocates its
// receive buffer, each send allocates its frame, and BroadcastRaw
// allocates its list of recipients.
package environment

import (
	"sync"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/corelog"
	"github.com/nanoagents/actorcore/pkg/mailbox"
	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/services"
	"github.com/nanoagents/actorcore/pkg/types"
)

// Fixed ids for the system services, registered before any user agent.
const (
	ErrorReporterID types.AgentId = 0
	MetricsID       types.AgentId = 1
	WatchdogID      types.AgentId = 2

	// FirstUserAgentID is the lowest id RegisterAgent accepts for a
	// caller-supplied agent; ids below it are reserved for the system
	// services wired up in newEnvironment.
	FirstUserAgentID types.AgentId = 3
)

// Environment is the process-wide registry and dispatcher. Use
// Instance to obtain the singleton; there is exactly one per process,
// with no distribution across processes or nodes.
type Environment struct {
	mu             sync.Mutex
	agents         [types.MaxAgents]*agent.Agent
	registered     [types.MaxAgents]bool
	count          int
	lastDispatched int
	started        bool

	ErrorReporter *services.ErrorReporter
	Metrics       *services.Metrics
	Watchdog      *services.Watchdog

	clock platform.Clock
}

var (
	instanceMu sync.Mutex
	instance   *Environment
)

// Instance returns the process-wide Environment, constructing it (and
// its system services) on first call.
func Instance() *Environment {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = newEnvironment()
	}
	return instance
}

// Shutdown discards the singleton. A subsequent Instance call builds a
// fresh Environment with empty system-service state; intended for use
// between test cases, not at runtime on an embedded target.
func Shutdown() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}

func newEnvironment() *Environment {
	env := &Environment{clock: platform.NewHostClock()}

	env.ErrorReporter = services.NewErrorReporter(ErrorReporterID, env, env.clock)
	env.Metrics = services.NewMetrics(MetricsID, env, env.clock)
	env.Watchdog = services.NewWatchdog(WatchdogID, env, env.clock, env.ErrorReporter)

	env.agents[ErrorReporterID] = env.ErrorReporter.Agent
	env.agents[MetricsID] = env.Metrics.Agent
	env.agents[WatchdogID] = env.Watchdog.Agent
	env.registered[ErrorReporterID] = true
	env.registered[MetricsID] = true
	env.registered[WatchdogID] = true
	env.count = 3

	return env
}

// RegisterAgent adds a to the table at a.ID(). It fails if the id is
// out of range, already occupied, or Start has been called: agents
// cannot be created dynamically once the system is running.
func (e *Environment) RegisterAgent(a *agent.Agent) bool {
	e.mu.Lock()

	id := a.ID()
	if int(id) >= types.MaxAgents {
		e.mu.Unlock()
		e.ErrorReporter.Report(types.Warning, types.AgentRegistrationFailed, id)
		return false
	}
	if e.started {
		e.mu.Unlock()
		e.ErrorReporter.Report(types.Warning, types.AgentRegistrationFailed, id)
		return false
	}
	if e.registered[id] {
		e.mu.Unlock()
		e.ErrorReporter.Report(types.Warning, types.AgentRegistrationFailed, id)
		return false
	}
	if e.count >= types.MaxAgents {
		e.mu.Unlock()
		e.ErrorReporter.Report(types.Warning, types.AgentTableFull, id)
		return false
	}

	e.agents[id] = a
	e.registered[id] = true
	e.count++
	e.mu.Unlock()
	return true
}

// Start freezes the agent table: no further RegisterAgent calls will
// succeed after this point.
func (e *Environment) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
}

// SetLogger attaches a logger that the environment's error reporter
// writes every Report call through. Core packages run with the quiet
// default; only cmd/simulator wires a real one in.
func (e *Environment) SetLogger(l corelog.Logger) {
	e.ErrorReporter.SetLogger(l)
}

// GetAgent returns the agent registered at id, or nil if none is.
func (e *Environment) GetAgent(id types.AgentId) *agent.Agent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if int(id) >= types.MaxAgents || !e.registered[id] {
		return nil
	}
	return e.agents[id]
}

// AgentCount returns the number of agents currently registered,
// including the three system services.
func (e *Environment) AgentCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// TotalPendingMessages sums Size() across every registered agent's
// mailbox.
func (e *Environment) TotalPendingMessages() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for id := range e.registered {
		if !e.registered[id] {
			continue
		}
		total += e.agents[id].Mailbox().Size()
	}
	return total
}

// DeliverRaw implements agent.EnvironmentHandle: push frame onto the
// mailbox of the agent registered at to.
func (e *Environment) DeliverRaw(to types.AgentId, frame []byte) mailbox.PushResult {
	e.mu.Lock()
	target := (*agent.Agent)(nil)
	if int(to) < types.MaxAgents && e.registered[to] {
		target = e.agents[to]
	}
	e.mu.Unlock()

	if target == nil {
		return mailbox.InvalidMessage
	}
	return target.Mailbox().Push(frame, len(frame))
}

// BroadcastRaw implements agent.EnvironmentHandle: push frame onto
// every registered agent's mailbox except from's own, returning the
// count that accepted it.
func (e *Environment) BroadcastRaw(from types.AgentId, frame []byte) int {
	e.mu.Lock()
	targets := make([]*agent.Agent, 0, e.count)
	for id := range e.registered {
		if !e.registered[id] || types.AgentId(id) == from {
			continue
		}
		targets = append(targets, e.agents[id])
	}
	e.mu.Unlock()

	delivered := 0
	for _, t := range targets {
		if t.Mailbox().Push(frame, len(frame)) == mailbox.Success {
			delivered++
		}
	}
	return delivered
}

// NotifyHeartbeat implements agent.EnvironmentHandle: every agent's
// ProcessMessages call reports here. This is forwarded straight to the
// watchdog's direct hot-path entry point rather than dispatched as a
// message, the same exemption the metrics counters are granted,
// because it fires on every single dispatch and queuing a message here
// would never let the mailbox it lands in drain. A Heartbeat sent
// between ticks by a driver loop (Watchdog.Heartbeat) is a distinct,
// much lower-frequency path that does go through the message bus.
func (e *Environment) NotifyHeartbeat(from types.AgentId) {
	e.Watchdog.ObserveHeartbeat(from)
}

// SendMessage builds a message from payload, sent as from, and
// delivers it to to.
func SendMessage[T any](e *Environment, from types.AgentId, to types.AgentId, payload T) mailbox.PushResult {
	sender := e.GetAgent(from)
	if sender == nil {
		return mailbox.InvalidMessage
	}
	return agent.SendMessage(sender, to, payload)
}

// BroadcastMessage builds a message from payload, sent as from, and
// delivers it to every other registered agent.
func BroadcastMessage[T any](e *Environment, from types.AgentId, payload T) int {
	sender := e.GetAgent(from)
	if sender == nil {
		return 0
	}
	return agent.BroadcastMessage(sender, payload)
}

// ProcessOneMessage dispatches a single message from the next
// non-empty agent's mailbox, scanning round-robin from the agent after
// the one dispatched last time so no agent can starve another. It
// returns true if a message was processed.
func (e *Environment) ProcessOneMessage() bool {
	e.mu.Lock()
	start := e.lastDispatched
	e.mu.Unlock()

	for i := 0; i < types.MaxAgents; i++ {
		idx := (start + 1 + i) % types.MaxAgents

		e.mu.Lock()
		registered := e.registered[idx]
		var a *agent.Agent
		if registered {
			a = e.agents[idx]
		}
		e.mu.Unlock()

		if !registered || a.Mailbox().Empty() {
			continue
		}

		if a.ProcessMessages(1) > 0 {
			e.mu.Lock()
			e.lastDispatched = idx
			e.mu.Unlock()
			return true
		}
	}
	return false
}

// ProcessAllMessages repeatedly drains one message at a time, fairly
// across agents, until every mailbox is empty or maxIterations is
// reached (a safety bound against an agent that perpetually re-feeds
// itself). It returns the number of messages processed.
func (e *Environment) ProcessAllMessages(maxIterations int) int {
	processed := 0
	for i := 0; i < maxIterations; i++ {
		if !e.ProcessOneMessage() {
			break
		}
		processed++
	}
	return processed
}
