package services

import (
	"fmt"
	"sync"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/corelog"
	"github.com/nanoagents/actorcore/pkg/message"
	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/types"
)

// maxErrorLog bounds the reporter's in-memory history; once full, the
// oldest entry is evicted to make room for the newest.
const maxErrorLog = 32

// SystemHealth is the reporter's rollup of its current history.
type SystemHealth int

const (
	Healthy SystemHealth = iota
	Degraded
	CriticalHealth
)

func (h SystemHealth) String() string {
	switch h {
	case Healthy:
		return "Healthy"
	case Degraded:
		return "Degraded"
	case CriticalHealth:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ErrorReporter is the system's sink of record for failures. Report is
// the hot-path entry point called directly from the mailbox, agent,
// and environment packages, but it does not mutate the reporter's
// history itself: it builds an ErrorReport and sends it to its own
// mailbox, and only the dispatched OnType[ErrorReport] handler ever
// calls store. Health/History/Last therefore only reflect reports this
// agent has actually processed, not ones merely submitted.
type ErrorReporter struct {
	*agent.Agent

	mu       sync.Mutex
	history  [maxErrorLog]ErrorReport
	count    int
	next     int
	clock    platform.Clock
	log      corelog.Logger
	critical platform.CriticalSection
}

// NewErrorReporter builds the reporter as agent id within env, logging
// every report through corelog.Nop() by default. Use SetLogger to
// attach a real logger and SetCriticalSection to override the
// emergency handler (tests do, so a Critical report doesn't hang).
func NewErrorReporter(id types.AgentId, env agent.EnvironmentHandle, clock platform.Clock) *ErrorReporter {
	r := &ErrorReporter{
		Agent:    agent.New(id, env, agent.WithClock(clock)),
		clock:    clock,
		log:      corelog.Nop(),
		critical: platform.HostCriticalSection{},
	}
	agent.OnType[ErrorReport](r.Agent, func(a *agent.Agent, frame []byte) {
		r.ingestFrame(frame)
	})
	return r
}

func (r *ErrorReporter) ingestFrame(frame []byte) {
	report, ok := message.Decode[ErrorReport](frame)
	if !ok {
		return
	}
	r.store(report)
}

// SetLogger attaches a logger reports are written through. Call this
// once during simulator setup; core packages never need it.
func (r *ErrorReporter) SetLogger(l corelog.Logger) { r.log = l }

// SetCriticalSection overrides the emergency handler invoked on a
// Critical report. Defaults to platform.HostCriticalSection{}, which
// halts the calling goroutine forever.
func (r *ErrorReporter) SetCriticalSection(cs platform.CriticalSection) { r.critical = cs }

// Report implements types.ErrorSink, the hot-path entry point. It
// sends an ErrorReport message to itself rather than updating history
// directly, so the reporter's state changes only by processing
// messages like every other system service. A Critical report also
// invokes the platform's emergency handler before returning.
func (r *ErrorReporter) Report(level types.ErrorLevel, kind types.ErrorKind, source types.AgentId) {
	var ts uint32
	if r.clock != nil {
		ts = r.clock.Ticks()
	}
	logFn := r.log.Warn
	if level == types.Critical {
		logFn = r.log.Error
	} else if level == types.Info {
		logFn = r.log.Info
	}
	logFn(fmt.Sprintf("%s from agent %d", kind, source))

	agent.SendMessage(r.Agent, r.ID(), ErrorReport{Level: level, Kind: codeFor(kind), Source: source, Timestamp: ts})

	if level == types.Critical && r.critical != nil {
		r.critical.DisableInterrupts()
	}
}

func (r *ErrorReporter) store(report ErrorReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[r.next] = report
	r.next = (r.next + 1) % maxErrorLog
	if r.count < maxErrorLog {
		r.count++
	}
}

// Last returns the most recently stored report and true, or a zero
// value and false if nothing has been reported yet.
func (r *ErrorReporter) Last() (ErrorReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return ErrorReport{}, false
	}
	idx := (r.next - 1 + maxErrorLog) % maxErrorLog
	return r.history[idx], true
}

// History returns a copy of the stored reports, oldest first.
func (r *ErrorReporter) History() []ErrorReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorReport, r.count)
	start := (r.next - r.count + maxErrorLog) % maxErrorLog
	for i := 0; i < r.count; i++ {
		out[i] = r.history[(start+i)%maxErrorLog]
	}
	return out
}

// Health derives a SystemHealth from the stored history: any Critical
// report makes the whole system Critical; three or more Warning
// reports with no Critical makes it Degraded; otherwise Healthy.
func (r *ErrorReporter) Health() SystemHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	warnings := 0
	for i := 0; i < r.count; i++ {
		switch r.history[i].Level {
		case types.Critical:
			return CriticalHealth
		case types.Warning:
			warnings++
		}
	}
	if warnings >= 3 {
		return Degraded
	}
	return Healthy
}
