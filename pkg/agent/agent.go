// Package agent implements the actor primitive: a mailbox, a fixed
// table of states with enter/exit callbacks, and a per-type-id
// dispatch table of handlers. Collaborators are wired in through a
// functional Option pattern. The state table is fixed-capacity
// (types.MaxStates entries); handlers are kept in a map keyed by type
// id. Neither table is locked once the agent is running: DefineState
// and On may be called at any time.
package agent

import (
	"github.com/nanoagents/actorcore/pkg/mailbox"
	"github.com/nanoagents/actorcore/pkg/message"
	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/typeid"
	"github.com/nanoagents/actorcore/pkg/types"
)

// EnvironmentHandle is the narrow slice of Environment an Agent needs
// to deliver outgoing messages. Defining it here, rather than
// importing package environment directly, keeps the dependency
// pointed one way: environment depends on agent, never the reverse.
type EnvironmentHandle interface {
	DeliverRaw(to types.AgentId, frame []byte) mailbox.PushResult
	BroadcastRaw(from types.AgentId, frame []byte) int

	// NotifyHeartbeat reports that the agent identified by from just
	// returned from a ProcessMessages call, so the watchdog can record
	// its liveness. This runs once per call regardless of batch size or
	// queue state, so it is delivered as a direct hot-path signal
	// (like a MetricsSink observation) rather than queued as a message:
	// routing it through SendMessage would requeue a message on every
	// single dispatch and the environment's drain loop would never
	// finish.
	NotifyHeartbeat(from types.AgentId)
}

// Handler processes one decoded payload frame while the agent is in
// some state. It returns nothing; state transitions happen by calling
// TransitionTo from within the handler.
type Handler func(a *Agent, frame []byte)

type stateDef struct {
	defined bool
	onEnter func(a *Agent)
	onExit  func(a *Agent)
}

// Agent is one actor: identity, mailbox, state machine, and dispatch
// table, wired together but otherwise independent of how it is
// scheduled.
type Agent struct {
	id  types.AgentId
	box *mailbox.Mailbox
	env EnvironmentHandle

	clock   platform.Clock
	errors  types.ErrorSink
	metrics types.MetricsSink

	states       [types.MaxStates]stateDef
	currentState types.StateId
	prevState    types.StateId
	pendingState types.StateId
	hasPending   bool

	handlers map[types.MessageId]Handler
}

// Option configures an Agent at construction time.
type Option func(*Agent)

func WithErrorSink(sink types.ErrorSink) Option {
	return func(a *Agent) { a.errors = sink }
}

func WithMetricsSink(sink types.MetricsSink) Option {
	return func(a *Agent) { a.metrics = sink }
}

func WithClock(clock platform.Clock) Option {
	return func(a *Agent) { a.clock = clock }
}

// New creates an agent identified by id, attached to env for outgoing
// delivery. The agent starts in state 0 with no enter callback fired.
// State 0's enter callback does not run for this initial state:
// TransitionTo(0) while already in state 0 is a no-op.
func New(id types.AgentId, env EnvironmentHandle, opts ...Option) *Agent {
	a := &Agent{
		id:           id,
		env:          env,
		clock:        platform.NewHostClock(),
		errors:       types.NopErrorSink{},
		metrics:      types.NopMetricsSink{},
		currentState: 0,
		prevState:    types.InvalidStateID,
		handlers:     make(map[types.MessageId]Handler),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.box = mailbox.New(id,
		mailbox.WithErrorSink(a.errors),
		mailbox.WithMetricsSink(a.metrics),
		mailbox.WithClock(a.clock),
	)
	return a
}

// ID returns the agent's identity.
func (a *Agent) ID() types.AgentId { return a.id }

// Mailbox exposes the agent's inbox so the environment can push
// incoming frames into it.
func (a *Agent) Mailbox() *mailbox.Mailbox { return a.box }

// DefineState registers enter/exit callbacks for id. Either callback
// may be nil. Returns false if id is out of range; there is no
// dynamic growth of the state table past types.MaxStates per the
// fixed-table requirement.
func (a *Agent) DefineState(id types.StateId, onEnter, onExit func(a *Agent)) bool {
	if int(id) >= types.MaxStates {
		a.errors.Report(types.Critical, types.StateOverflow, a.id)
		return false
	}
	a.states[id] = stateDef{defined: true, onEnter: onEnter, onExit: onExit}
	return true
}

// On registers the handler invoked when a frame of the given message
// type arrives. Registering twice for the same type replaces the
// prior handler.
func (a *Agent) On(id types.MessageId, h Handler) {
	a.handlers[id] = h
}

// OnType is the generic convenience form of On, keyed by T's type id.
// Registering a handler doubles as registering T in the process-wide
// type registry: a distinct type that happens to hash to an id already
// claimed by another type is reported as TypeIdCollision rather than
// silently aliasing it.
func OnType[T any](a *Agent, h Handler) {
	if !typeid.RegisterType[T](typeid.Default()) {
		a.errors.Report(types.Warning, types.TypeIdCollision, a.id)
	}
	a.On(typeid.Of[T](), h)
}

// CurrentState returns the state the agent occupies right now.
func (a *Agent) CurrentState() types.StateId { return a.currentState }

// PreviousState returns the state the agent occupied before its most
// recent transition, or InvalidStateID if none has occurred yet.
func (a *Agent) PreviousState() types.StateId { return a.prevState }

// InState reports whether the agent currently occupies id.
func (a *Agent) InState(id types.StateId) bool { return a.currentState == id }

// TransitionTo requests a move to id. A transition requested from
// inside a handler does not take effect inline: it is applied after
// the current message finishes processing, so a handler's own exit
// callback never fires underneath it.
func (a *Agent) TransitionTo(id types.StateId) bool {
	if int(id) >= types.MaxStates || !a.states[id].defined {
		a.errors.Report(types.Warning, types.InvalidStateId, a.id)
		return false
	}
	a.pendingState = id
	a.hasPending = true
	return true
}

// applyPendingTransition runs the deferred exit/enter pair, if any,
// after a message has finished processing.
func (a *Agent) applyPendingTransition() {
	if !a.hasPending {
		return
	}
	next := a.pendingState
	a.hasPending = false

	if next == a.currentState {
		return
	}

	if exit := a.states[a.currentState].onExit; exit != nil {
		exit(a)
	}
	a.prevState = a.currentState
	a.currentState = next
	if enter := a.states[next].onEnter; enter != nil {
		enter(a)
	}
}

// HandleMessage decodes frame's header, dispatches to the registered
// handler for that type id if any, and applies any transition the
// handler requested. Unrecognized type ids are silently ignored, not
// reported as errors: an agent is not required to define a handler
// for every message type in the system.
func (a *Agent) HandleMessage(frame []byte) {
	header := message.ParseHeader(frame)
	if h, ok := a.handlers[header.TypeID]; ok {
		h(a, frame)
		a.metrics.ObserveProcessed()
	}
	a.applyPendingTransition()
}

// ProcessMessages pops up to maxBatch frames from the mailbox,
// dispatching each in turn, and returns how many were processed. A
// bound on the batch size keeps one agent from starving the rest of
// the system during cooperative dispatch. Every call reports the
// agent's liveness to the watchdog; if at least one message was
// processed, the elapsed ticks for the whole batch are reported
// through the metrics sink.
func (a *Agent) ProcessMessages(maxBatch int) int {
	buf := make([]byte, types.MaxMessageSize)
	start := uint32(0)
	if a.clock != nil {
		start = a.clock.Ticks()
	}
	processed := 0
	for processed < maxBatch {
		n, ok := a.box.Pop(buf)
		if !ok {
			if a.box.Empty() {
				break
			}
			continue // a corrupted entry was discarded; try the next one
		}
		a.HandleMessage(buf[:n])
		processed++
	}
	if a.env != nil {
		a.env.NotifyHeartbeat(a.id)
	}
	if processed > 0 {
		elapsed := uint32(0)
		if a.clock != nil {
			elapsed = a.clock.Ticks() - start
		}
		a.metrics.ObserveProcessingTicks(elapsed)
	}
	return processed
}

// SendMessage builds a message from payload and delivers it to to via
// the attached environment handle. messages_sent only counts deliveries
// that actually reached the recipient's mailbox.
func SendMessage[T any](a *Agent, to types.AgentId, payload T) mailbox.PushResult {
	m := message.New(a.id, a.clock, payload)
	frame := m.Bytes()
	result := a.env.DeliverRaw(to, frame)
	if result == mailbox.Success {
		a.metrics.ObserveSent()
	}
	return result
}

// BroadcastMessage delivers payload to every other registered agent.
// It returns the number of agents that accepted the message; that same
// count is what gets added to messages_sent, since a broadcast that
// only half-delivers should not be counted as if it fully succeeded.
func BroadcastMessage[T any](a *Agent, payload T) int {
	m := message.New(a.id, a.clock, payload)
	frame := m.Bytes()
	delivered := a.env.BroadcastRaw(a.id, frame)
	for i := 0; i < delivered; i++ {
		a.metrics.ObserveSent()
	}
	return delivered
}
