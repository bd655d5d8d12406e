// Package platform defines the collaborators the actor core expects an
// embedding application to supply: a monotonic clock, a mutex, and an
// emergency critical section. On a microcontroller these are backed by
// the RTOS; on the host simulator they are backed by the standard
// library. Mailboxes take their clock and mutex, and agents their
// clock, from this package, so a board support package can swap them;
// the environment,
// the system services and the type-id registry use sync.Mutex
// directly.
package platform

// Clock is a monotonic tick source, nominally 1kHz. Wrap-around is
// tolerated for short durations (callers compare differences, not
// absolute values, across more than a few minutes of uptime).
type Clock interface {
	Ticks() uint32
}

// Mutex abstracts a blocking lock. Lock waits without a bound; there
// is no timeout parameter.
type Mutex interface {
	Lock()
	Unlock()
}

// CriticalSection models the platform's emergency, non-reentrant
// interrupt-disable primitive. There is no matching Enable: invoking
// it is a one-way trip, and the embedding system is assumed to halt
// rather than return from it.
type CriticalSection interface {
	DisableInterrupts()
}
