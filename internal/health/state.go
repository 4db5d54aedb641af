// Package health tracks per-mountpoint check state across poll cycles.
package health

import (
	"sync"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/probe"
)

// Status is the outcome of the most recent completed (or outstanding) probe
// for a mountpoint.
type Status int

const (
	// StatusAlive indicates the most recent probe exited 0. New entries
	// start Alive so a never-checked mount is not reported dead before its
	// first probe completes.
	StatusAlive Status = iota
	// StatusCheckFailed indicates the most recent probe exited non-zero.
	StatusCheckFailed
	// StatusCheckSignaled indicates the most recent probe was terminated by
	// a signal, including our own deadline kill observed on a later cycle.
	StatusCheckSignaled
	// StatusCheckRunning indicates a probe is still outstanding; the mount
	// counts as dead until it resolves.
	StatusCheckRunning
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusCheckFailed:
		return "check_failed"
	case StatusCheckSignaled:
		return "check_signaled"
	case StatusCheckRunning:
		return "check_running"
	default:
		return "unknown"
	}
}

// Runner launches one probe against a path. Exactly one of the returned
// result and handle is non-nil unless spawning failed. Satisfied by
// *probe.Runner; tests substitute fakes.
type Runner interface {
	Run(path string) (*probe.Result, *probe.Handle, error)
}

// MountState is the check state machine for a single mountpoint. All fields
// are guarded by mu; the orchestrator advances each entry at most once per
// cycle, so per-path transitions are strictly sequential even though
// different paths run concurrently.
type MountState struct {
	mu        sync.Mutex
	path      string
	status    Status
	exitCode  int           // valid when status == StatusCheckFailed
	signal    int           // valid when status == StatusCheckSignaled
	handle    *probe.Handle // non-nil iff status == StatusCheckRunning
	startedAt time.Time     // launch time of the outstanding probe
}

// NewMountState creates state for a newly discovered mountpoint.
func NewMountState(path string) *MountState {
	return &MountState{
		path:   path,
		status: StatusAlive,
	}
}

// Path returns the mountpoint path.
func (m *MountState) Path() string {
	return m.path
}

// Status returns the current status thread-safely.
func (m *MountState) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Snapshot is a point-in-time copy of a mount's state for reporting.
type Snapshot struct {
	Path     string
	Status   Status
	ExitCode int
	Signal   int
	// Running reports elapsed time since the outstanding probe was
	// launched; zero unless Status is StatusCheckRunning.
	Running time.Duration
}

// Snapshot returns a point-in-time copy of the mount's state.
func (m *MountState) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Path:     m.path,
		Status:   m.status,
		ExitCode: m.exitCode,
		Signal:   m.signal,
	}
	if m.status == StatusCheckRunning {
		s.Running = time.Since(m.startedAt)
	}
	return s
}

// EventKind classifies what happened to a mountpoint during one cycle.
type EventKind int

const (
	// EventPassed: a fresh probe exited 0.
	EventPassed EventKind = iota
	// EventFailed: a fresh probe exited non-zero.
	EventFailed
	// EventSignaled: a fresh probe was terminated by a signal.
	EventSignaled
	// EventTimedOut: a fresh probe missed the deadline and was kill-signaled;
	// the entry entered StatusCheckRunning.
	EventTimedOut
	// EventReaped: a prior cycle's outstanding probe was observed exited.
	EventReaped
	// EventStillRunning: the outstanding probe has still not exited.
	EventStillRunning
	// EventPollError: polling the outstanding probe failed; state unchanged.
	EventPollError
	// EventSpawnError: the probe process could not be started; state unchanged.
	EventSpawnError
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventPassed:
		return "passed"
	case EventFailed:
		return "failed"
	case EventSignaled:
		return "signaled"
	case EventTimedOut:
		return "timed_out"
	case EventReaped:
		return "reaped"
	case EventStillRunning:
		return "still_running"
	case EventPollError:
		return "poll_error"
	case EventSpawnError:
		return "spawn_error"
	default:
		return "unknown"
	}
}

// Event reports the result of advancing one mount's state machine by one
// cycle. The orchestrator turns events into log lines; the state machine
// itself never logs.
type Event struct {
	Path     string
	Kind     EventKind
	Status   Status        // status after the transition
	ExitCode int           // for EventFailed and reaped failures
	Signal   int           // for EventSignaled and reaped signals
	Elapsed  time.Duration // probe age for reap/stall/timeout events
	Err      error         // for EventPollError and EventSpawnError
}

// Check advances the state machine by one cycle and reports what happened.
//
// If a probe is outstanding it is polled non-blockingly: a reaped exit sets
// the new status, anything else leaves the state untouched. No fresh probe
// is ever launched while one is outstanding; that is the invariant that
// bounds blocked check processes to one per wedged mount. Otherwise a fresh
// probe is run, and a deadline miss parks the entry in StatusCheckRunning
// holding the live handle.
func (m *MountState) Check(runner Runner) Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusCheckRunning {
		return m.reap()
	}
	return m.runProbe(runner)
}

func (m *MountState) reap() Event {
	elapsed := time.Since(m.startedAt)

	res, err := m.handle.Poll()
	if err != nil {
		return Event{
			Path:    m.path,
			Kind:    EventPollError,
			Status:  m.status,
			Elapsed: elapsed,
			Err:     err,
		}
	}
	if res == nil {
		return Event{
			Path:    m.path,
			Kind:    EventStillRunning,
			Status:  m.status,
			Elapsed: elapsed,
		}
	}

	// The probe finally exited; the handle is spent.
	m.handle = nil
	m.apply(res)

	return Event{
		Path:     m.path,
		Kind:     EventReaped,
		Status:   m.status,
		ExitCode: m.exitCode,
		Signal:   m.signal,
		Elapsed:  elapsed,
	}
}

func (m *MountState) runProbe(runner Runner) Event {
	res, handle, err := runner.Run(m.path)
	if err != nil {
		// Spawn failure is an error of the monitor host, not a verdict on
		// the mount; leave the state alone and retry next cycle.
		return Event{
			Path:   m.path,
			Kind:   EventSpawnError,
			Status: m.status,
			Err:    err,
		}
	}

	if handle != nil {
		// Deadline hit. The probe was kill-signaled but not reaped; park it
		// and treat the mount as not-yet-alive until it resolves.
		m.status = StatusCheckRunning
		m.handle = handle
		m.startedAt = handle.Started()
		return Event{
			Path:    m.path,
			Kind:    EventTimedOut,
			Status:  m.status,
			Elapsed: time.Since(m.startedAt),
		}
	}

	m.apply(res)

	ev := Event{
		Path:     m.path,
		Status:   m.status,
		ExitCode: m.exitCode,
		Signal:   m.signal,
	}
	switch m.status {
	case StatusAlive:
		ev.Kind = EventPassed
	case StatusCheckSignaled:
		ev.Kind = EventSignaled
	default:
		ev.Kind = EventFailed
	}
	return ev
}

// apply sets the terminal status for a completed probe result.
func (m *MountState) apply(res *probe.Result) {
	m.exitCode = 0
	m.signal = 0

	switch {
	case res.Signaled:
		m.status = StatusCheckSignaled
		m.signal = res.Signal
	case res.ExitCode == 0:
		m.status = StatusAlive
	default:
		m.status = StatusCheckFailed
		m.exitCode = res.ExitCode
	}
}
