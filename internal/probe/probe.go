// Package probe runs out-of-process liveness checks against mountpoints.
//
// A probe is an external stat-equivalent process. Accessing a wedged mount
// blocks in the kernel with no way to cancel, so the only safe way to bound
// a check is to push the blocking call into a child process, wait for it
// with a deadline, and kill it without waiting if the deadline passes. The
// kill-signaled child is handed back to the caller as a Handle so a later
// cycle can confirm its exit without ever blocking.
package probe

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Result is the classified exit of a probe process.
type Result struct {
	// ExitCode is the process exit status. Valid when Signaled is false.
	ExitCode int
	// Signaled is true when the process was terminated by a signal
	// (including our own deadline-triggered SIGKILL).
	Signaled bool
	// Signal is the terminating signal number, 0 if indeterminate.
	Signal int
}

// Alive reports whether the probe confirmed the mountpoint responsive.
func (r *Result) Alive() bool {
	return !r.Signaled && r.ExitCode == 0
}

// Handle references a probe process that missed its deadline. It has been
// sent SIGKILL but its exit has not yet been observed. The owning mount
// state polls it on later cycles; once Poll returns a result the handle is
// spent and must not be reused.
type Handle struct {
	pid     int
	started time.Time
	done    chan struct{}
	result  *Result
	waitErr error
}

// Started returns when the probe process was launched.
func (h *Handle) Started() time.Time {
	return h.started
}

// Pid returns the probe's OS process id, for logging.
func (h *Handle) Pid() int {
	return h.pid
}

// Poll checks whether the probe process has exited. It never blocks.
// It returns (nil, nil) while the process is still running, the classified
// result once it has exited, or an error if the wait itself failed.
func (h *Handle) Poll() (*Result, error) {
	select {
	case <-h.done:
		return h.result, h.waitErr
	default:
		return nil, nil
	}
}

// Runner spawns probe processes with an enforced deadline.
type Runner struct {
	command string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner that executes command with the mountpoint path
// as its single argument, waiting at most timeout for it to exit.
func NewRunner(command string, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		command: command,
		timeout: timeout,
		logger:  logger,
	}
}

// Run launches one probe against path and waits for it to exit, but for at
// most the configured timeout. Exactly one of the returned Result and
// Handle is non-nil on success:
//
//   - the process exited in time: Result carries its exit code or signal;
//   - the deadline passed: the process is sent SIGKILL without waiting and
//     a live Handle is returned for non-blocking reaping on later cycles.
//
// A non-nil error means the process could not be started (or its wait
// failed immediately); no handle is produced and the caller's state is
// unaffected.
func (r *Runner) Run(path string) (*Result, *Handle, error) {
	cmd := exec.Command(r.command, path)
	// Stdout and Stderr stay nil so both descriptors are connected to
	// /dev/null; probe output is never interesting, only the exit status.

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	h := &Handle{
		pid:     cmd.Process.Pid,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	// cmd.Wait must run in exactly one goroutine. It both reaps the child
	// and publishes the classified result; closing done is the only
	// synchronization Poll needs.
	go func() {
		err := cmd.Wait()
		h.result, h.waitErr = classify(cmd, err)
		close(h.done)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return h.result, nil, h.waitErr
	case <-timer.C:
		// Deadline passed. Kill without waiting: the guarantee that Run
		// returns on time takes priority over synchronous cleanup, so the
		// signaled child is left for later cycles to reap via the handle.
		r.kill(cmd.Process, path, h.pid)
		return nil, h, nil
	}
}

// kill sends SIGKILL to a probe that missed its deadline. The child may
// exit on its own between the deadline firing and the signal landing;
// that lost race surfaces as ErrProcessDone and is not a failure.
func (r *Runner) kill(proc *os.Process, path string, pid int) {
	err := proc.Kill()
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return
	}
	r.logger.Error("unable to kill probe process",
		"path", path,
		"pid", pid,
		"error", err)
}

// classify turns a finished exec.Cmd into a Result. The wait error is
// passed through only when no process state is available at all (a wait
// syscall failure); ExitError is expected and carries the state we want.
func classify(cmd *exec.Cmd, waitErr error) (*Result, error) {
	ps := cmd.ProcessState
	if ps == nil {
		return nil, waitErr
	}

	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return &Result{Signaled: true, Signal: int(ws.Signal())}, nil
	}

	return &Result{ExitCode: ps.ExitCode()}, nil
}
