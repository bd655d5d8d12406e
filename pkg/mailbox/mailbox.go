// Package mailbox implements the bounded, fixed-capacity FIFO each
// agent uses to receive messages. Entries are stored as raw byte
// arrays under a mutex; there is no heap allocation once the mailbox
// itself is constructed.
package mailbox

import (
	"encoding/binary"

	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/types"
)

// PushResult is the outcome of a Push call.
type PushResult int

const (
	Success PushResult = iota
	QueueFull
	MessageTooLarge
	InvalidMessage
)

func (r PushResult) String() string {
	switch r {
	case Success:
		return "Success"
	case QueueFull:
		return "QueueFull"
	case MessageTooLarge:
		return "MessageTooLarge"
	case InvalidMessage:
		return "InvalidMessage"
	default:
		return "Unknown"
	}
}

// headerSize mirrors message.Header's wire size: type_id(2) +
// sender_id(2) + size(2) + timestamp(4). Mailbox only needs to know
// this many bytes to validate a header; it never depends on package
// message, because mailbox is lower-level and must not climb back up
// the stack.
const headerSize = 10

// entry is one slot in the ring. Bytes is a fixed array, not a slice,
// so a Mailbox value carries no pointers into the heap for its payload
// storage.
type entry struct {
	valid bool
	size  uint16
	bytes [types.MaxMessageSize]byte
}

// Mailbox is a single agent's private bounded inbox.
type Mailbox struct {
	entries [types.MaxQueueSize]entry
	head    int
	tail    int
	count   int

	mu platform.Mutex

	owner   types.AgentId
	errors  types.ErrorSink
	metrics types.MetricsSink
	clock   platform.Clock

	// toleranceTicks bounds how far into the future a pushed message's
	// timestamp may claim to be before Push rejects it as invalid.
	toleranceTicks uint32
}

// Option configures a Mailbox at construction time.
type Option func(*Mailbox)

// WithErrorSink routes rejected/corrupted-entry reports to sink
// instead of discarding them.
func WithErrorSink(sink types.ErrorSink) Option {
	return func(m *Mailbox) { m.errors = sink }
}

// WithMetricsSink routes queue-depth observations to sink.
func WithMetricsSink(sink types.MetricsSink) Option {
	return func(m *Mailbox) { m.metrics = sink }
}

// WithClock supplies the clock used to validate a pushed header's
// timestamp against "now" on the hardening path. Defaults to a host
// clock if omitted.
func WithClock(clock platform.Clock) Option {
	return func(m *Mailbox) { m.clock = clock }
}

// WithMutex supplies the platform mutex implementation. Defaults to a
// host mutex if omitted.
func WithMutex(mu platform.Mutex) Option {
	return func(m *Mailbox) { m.mu = mu }
}

// New creates an empty mailbox owned by owner, used only to attribute
// error reports (CorruptedMessage, QueueOverflow, ...) to their source.
func New(owner types.AgentId, opts ...Option) *Mailbox {
	m := &Mailbox{
		owner:          owner,
		errors:         types.NopErrorSink{},
		metrics:        types.NopMetricsSink{},
		clock:          platform.NewHostClock(),
		mu:             platform.NewHostMutex(),
		toleranceTicks: 1000, // 1s at the nominal 1kHz tick rate
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Push copies size bytes of raw (header-prefixed) message data into
// the mailbox. The caller must have already stamped a valid header at
// the front of msg.
func (m *Mailbox) Push(msg []byte, size int) PushResult {
	if size > types.MaxMessageSize {
		m.report(types.Warning, types.MessageTooLarge)
		return MessageTooLarge
	}
	if size < headerSize {
		m.report(types.Warning, types.InvalidMessage)
		return InvalidMessage
	}

	if result := m.checkIntegrity(msg); result != Success {
		m.report(types.Warning, types.InvalidMessage)
		return result
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == types.MaxQueueSize {
		m.report(types.Warning, types.QueueOverflow)
		return QueueFull
	}

	e := &m.entries[m.tail]
	copy(e.bytes[:size], msg[:size])
	e.size = uint16(size)
	e.valid = true

	m.tail = (m.tail + 1) % types.MaxQueueSize
	m.count++
	m.metrics.ObserveQueueDepth(m.count)

	return Success
}

// checkIntegrity runs the header hardening checks: the type id must
// not be one of the two reserved values, and the timestamp must not
// claim to be more than a small tolerance into the future.
func (m *Mailbox) checkIntegrity(msg []byte) PushResult {
	typeID := binary.LittleEndian.Uint16(msg[0:2])
	if typeID == 0x0000 || typeID == 0xFFFF {
		return InvalidMessage
	}

	timestamp := binary.LittleEndian.Uint32(msg[6:10])
	if m.clock != nil {
		now := m.clock.Ticks()
		if timestamp > now+m.toleranceTicks && timestamp-now < 1<<31 {
			return InvalidMessage
		}
	}
	return Success
}

// Pop removes the oldest entry into buf, returning the number of bytes
// written and true on success. A corrupted entry (marked invalid, or
// whose stored size is out of range) is discarded and reported rather
// than returned; the caller sees false and must call Pop again to
// reach the next entry.
func (m *Mailbox) Pop(buf []byte) (n int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return 0, false
	}

	e := &m.entries[m.head]
	if !e.valid || int(e.size) < headerSize || int(e.size) > types.MaxMessageSize {
		m.dropHead()
		m.report(types.Warning, types.CorruptedMessage)
		return 0, false
	}

	size := int(e.size)
	copy(buf[:size], e.bytes[:size])
	m.dropHead()
	return size, true
}

// dropHead discards the entry at head and advances the ring. Caller
// must hold m.mu.
func (m *Mailbox) dropHead() {
	m.entries[m.head].valid = false
	m.head = (m.head + 1) % types.MaxQueueSize
	m.count--
}

// Clear empties the mailbox, marking every entry invalid.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		m.entries[i].valid = false
	}
	m.head, m.tail, m.count = 0, 0, 0
}

// Empty is a best-effort snapshot taken without holding the mutex.
func (m *Mailbox) Empty() bool { return m.count == 0 }

// Full is a best-effort snapshot.
func (m *Mailbox) Full() bool { return m.count == types.MaxQueueSize }

// Size is a best-effort snapshot of the number of queued entries.
func (m *Mailbox) Size() int { return m.count }

func (m *Mailbox) report(level types.ErrorLevel, kind types.ErrorKind) {
	m.errors.Report(level, kind, m.owner)
}
