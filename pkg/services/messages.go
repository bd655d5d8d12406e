// Package services implements the three message-driven system
// services: an error reporter, a metrics aggregator, and a watchdog.
// Each is built as an ordinary agent.Agent so it is scheduled and
// mailbox-bounded exactly like any user agent. The error reporter also
// implements types.ErrorSink and the metrics service types.MetricsSink,
// so the hot path (mailbox, agent dispatch) can update them without
// going through the message queue.
package services

import "github.com/nanoagents/actorcore/pkg/types"

// ErrorKindCode is the fixed-width, trivially-copyable stand-in for
// types.ErrorKind inside a message payload; ErrorKind itself is a
// string and cannot be byte-copied into a mailbox entry.
type ErrorKindCode uint8

const (
	CodeQueueOverflow ErrorKindCode = iota
	CodeMessageTooLarge
	CodeInvalidMessage
	CodeAgentRegistrationFailed
	CodeAgentTableFull
	CodeStateOverflow
	CodeInvalidStateId
	CodeTypeIdCollision
	CodeCorruptedMessage
	CodeUnsafeMessageType
	CodeWatchdogExpired
	codeUnknown
)

var codeToKind = [...]types.ErrorKind{
	CodeQueueOverflow:           types.QueueOverflow,
	CodeMessageTooLarge:         types.MessageTooLarge,
	CodeInvalidMessage:          types.InvalidMessage,
	CodeAgentRegistrationFailed: types.AgentRegistrationFailed,
	CodeAgentTableFull:          types.AgentTableFull,
	CodeStateOverflow:           types.StateOverflow,
	CodeInvalidStateId:          types.InvalidStateId,
	CodeTypeIdCollision:         types.TypeIdCollision,
	CodeCorruptedMessage:        types.CorruptedMessage,
	CodeUnsafeMessageType:       types.UnsafeMessageType,
	CodeWatchdogExpired:         types.WatchdogExpired,
}

// Kind maps a code back to its string ErrorKind for logging.
func (c ErrorKindCode) Kind() types.ErrorKind {
	if int(c) >= len(codeToKind) {
		return types.ErrorKind("Unknown")
	}
	return codeToKind[c]
}

func codeFor(kind types.ErrorKind) ErrorKindCode {
	for code, k := range codeToKind {
		if k == kind {
			return ErrorKindCode(code)
		}
	}
	return codeUnknown
}

// ErrorReport is sent to the error reporter's own mailbox, and stored
// once dispatched, whenever a component reports a failure through the
// reporter's types.ErrorSink.
type ErrorReport struct {
	Level     types.ErrorLevel
	Kind      ErrorKindCode
	Source    types.AgentId
	Timestamp uint32
}

// PerformanceMetric is broadcast periodically by the metrics service
// and carries its cumulative counters at the time of the broadcast.
type PerformanceMetric struct {
	MessagesSent        uint64
	MessagesProcessed   uint64
	MaxQueueDepth       uint32
	MaxProcessingTimeUs uint32
	TotalMessages       uint64
	Timestamp           uint32
}

// Heartbeat is sent by a monitored agent to the watchdog to prove
// liveness.
type Heartbeat struct {
	AgentID   types.AgentId
	Timestamp uint32
}
