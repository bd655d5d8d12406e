// Package types holds the shared, dependency-free vocabulary of the
// actor core: identifiers, compile-time limits, and the error taxonomy
// used to report failures back through the system services.
package types

// AgentId uniquely identifies a registered agent within an Environment.
// Assigned at registration and stable for the environment's lifetime.
type AgentId uint16

// InvalidAgentID is never assigned to a real agent.
const InvalidAgentID AgentId = 0xFFFF

// MessageId is the 16-bit type fingerprint stamped into every message
// header by the typeid package. 0x0000 and 0xFFFF are reserved.
type MessageId uint16

const (
	// ReservedMessageIDZero is never a valid generated type id.
	ReservedMessageIDZero MessageId = 0x0000
	// ReservedMessageIDMax is never a valid generated type id.
	ReservedMessageIDMax MessageId = 0xFFFF
)

// Reserved reports whether id is one of the two values no generated
// type id is ever allowed to take.
func (id MessageId) Reserved() bool {
	return id == ReservedMessageIDZero || id == ReservedMessageIDMax
}

// StateId identifies a state local to a single agent's state machine.
type StateId uint8

// InvalidStateID marks "no state" / a failed define_state call.
const InvalidStateID StateId = 0xFF

// Compile-time configuration.
const (
	// MaxAgents is the maximum number of simultaneously registered agents.
	MaxAgents = 16
	// MaxQueueSize is the mailbox depth per agent.
	MaxQueueSize = 64
	// MaxMessageSize is the maximum number of bytes per stored message
	// (header included).
	MaxMessageSize = 128
	// MaxStates is the maximum number of states per agent.
	MaxStates = 16
	// MaxTimers is the maximum number of pending timers per agent.
	MaxTimers = 8
)

// ErrorLevel is the severity of a reported error.
type ErrorLevel int

const (
	Info ErrorLevel = iota
	Warning
	Critical
)

func (l ErrorLevel) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorKind names the category of a reported failure. Kept as a closed
// set of string constants rather than an int enum so log lines are
// self-describing without a lookup table.
type ErrorKind string

const (
	QueueOverflow           ErrorKind = "QueueOverflow"
	MessageTooLarge         ErrorKind = "MessageTooLarge"
	InvalidMessage          ErrorKind = "InvalidMessage"
	AgentRegistrationFailed ErrorKind = "AgentRegistrationFailed"
	AgentTableFull          ErrorKind = "AgentTableFull"
	StateOverflow           ErrorKind = "StateOverflow"
	InvalidStateId          ErrorKind = "InvalidStateId"
	TypeIdCollision         ErrorKind = "TypeIdCollision"
	CorruptedMessage        ErrorKind = "CorruptedMessage"
	UnsafeMessageType       ErrorKind = "UnsafeMessageType"
	WatchdogExpired         ErrorKind = "WatchdogExpired"
)

// ErrorSink receives error reports from any component on the hot path
// (mailbox, environment, agent) without those components depending on
// the concrete system-services implementation.
type ErrorSink interface {
	Report(level ErrorLevel, kind ErrorKind, source AgentId)
}

// MetricsSink receives best-effort counter updates from the hot path.
// Implementations must not block or allocate.
type MetricsSink interface {
	ObserveQueueDepth(depth int)
	ObserveSent()
	ObserveProcessed()
	ObserveProcessingTicks(ticks uint32)
}

// NopErrorSink discards every report. Used as the zero-value default
// so mailboxes and agents never need a nil check before reporting.
type NopErrorSink struct{}

func (NopErrorSink) Report(ErrorLevel, ErrorKind, AgentId) {}

// NopMetricsSink discards every observation.
type NopMetricsSink struct{}

func (NopMetricsSink) ObserveQueueDepth(int)         {}
func (NopMetricsSink) ObserveSent()                  {}
func (NopMetricsSink) ObserveProcessed()              {}
func (NopMetricsSink) ObserveProcessingTicks(uint32) {}
