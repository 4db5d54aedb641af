package monitor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/health"
	"github.com/cscheib/mount-status-monitor/internal/monitor"
	"github.com/cscheib/mount-status-monitor/internal/probe"
	"github.com/cscheib/mount-status-monitor/internal/testutil"
	"github.com/matryer/is"
)

// fakeLister returns a fixed (swappable) set of mountpoints.
type fakeLister struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeLister) List() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths, f.err
}

func (f *fakeLister) set(paths []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = paths
}

// pathRunner returns canned outcomes per path and counts spawns per path.
type pathRunner struct {
	mu      sync.Mutex
	runs    map[string]int
	results map[string]*probe.Result
	handles map[string]*probe.Handle
}

func newPathRunner() *pathRunner {
	return &pathRunner{
		runs:    map[string]int{},
		results: map[string]*probe.Result{},
		handles: map[string]*probe.Handle{},
	}
}

func (r *pathRunner) Run(path string) (*probe.Result, *probe.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[path]++
	if h, ok := r.handles[path]; ok {
		return nil, h, nil
	}
	if res, ok := r.results[path]; ok {
		return res, nil, nil
	}
	return nil, nil, errors.New("no behavior configured for " + path)
}

func (r *pathRunner) runCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[path]
}

// capturePusher records the last pushed counts.
type capturePusher struct {
	mu     sync.Mutex
	pushes int
	total  int
	dead   int
}

func (p *capturePusher) Push(_ context.Context, total, dead int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes++
	p.total = total
	p.dead = dead
	return nil
}

func (p *capturePusher) last() (pushes, total, dead int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes, p.total, p.dead
}

// startMonitor runs mon.Run in the background and returns a stop function
// that cancels it and reports its error.
func startMonitor(t *testing.T, mon *monitor.Monitor) (stop func() error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- mon.Run(ctx)
	}()

	return func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("monitor did not stop after cancellation")
			return nil
		}
	}
}

func TestMonitor_HealthyAndHungMounts(t *testing.T) {
	is := is.New(t)

	runner := newPathRunner()
	runner.results["/mnt/a"] = &probe.Result{ExitCode: 0}
	hung, _ := probe.NewHandleForTesting(time.Now())
	runner.handles["/mnt/b"] = hung

	lister := &fakeLister{paths: []string{"/mnt/a", "/mnt/b"}}
	registry := health.NewRegistry()
	mon := monitor.New(registry, runner, lister, nil, 50*time.Millisecond, 4, testutil.Logger(t))

	stop := startMonitor(t, mon)

	// Let several cycles run, then verify the hung mount never got a
	// second probe while the healthy one kept being re-checked.
	testutil.PollUntil(t, 5*time.Second, func() bool {
		return runner.runCount("/mnt/a") >= 3
	})
	is.NoErr(stop())

	is.Equal(registry.Get("/mnt/a").Status(), health.StatusAlive)        // healthy mount alive
	is.Equal(registry.Get("/mnt/b").Status(), health.StatusCheckRunning) // hung mount parked
	is.Equal(runner.runCount("/mnt/b"), 1)                               // exactly one spawn for the hung mount

	total, dead := registry.Counts()
	is.Equal(total, 2) // both tracked
	is.Equal(dead, 1)  // the hung mount counts dead
}

func TestMonitor_EnumerationFailureIsFatal(t *testing.T) {
	is := is.New(t)

	lister := &fakeLister{err: errors.New("mount table unreadable")}
	mon := monitor.New(health.NewRegistry(), newPathRunner(), lister, nil, time.Hour, 1, testutil.Logger(t))

	err := mon.Run(context.Background())

	is.True(err != nil) // enumeration failure surfaces to the caller
}

func TestMonitor_ReconcilesAcrossCycles(t *testing.T) {
	is := is.New(t)

	runner := newPathRunner()
	runner.results["/mnt/a"] = &probe.Result{ExitCode: 0}
	runner.results["/mnt/b"] = &probe.Result{ExitCode: 1}
	runner.results["/mnt/c"] = &probe.Result{ExitCode: 0}

	lister := &fakeLister{paths: []string{"/mnt/a", "/mnt/b"}}
	registry := health.NewRegistry()
	mon := monitor.New(registry, runner, lister, nil, 50*time.Millisecond, 4, testutil.Logger(t))

	stop := startMonitor(t, mon)

	testutil.PollUntil(t, 5*time.Second, func() bool {
		b := registry.Get("/mnt/b")
		return b != nil && b.Status() == health.StatusCheckFailed
	})

	// B's probes now hang so its CheckFailed state cannot be overwritten
	// while we watch reconciliation happen.
	runner.mu.Lock()
	delete(runner.results, "/mnt/b")
	stalled, _ := probe.NewHandleForTesting(time.Now())
	runner.handles["/mnt/b"] = stalled
	runner.mu.Unlock()
	lister.set([]string{"/mnt/b", "/mnt/c"})

	testutil.PollUntil(t, 5*time.Second, func() bool {
		return registry.Get("/mnt/a") == nil && registry.Get("/mnt/c") != nil
	})
	is.NoErr(stop())

	is.True(registry.Get("/mnt/a") == nil) // unmounted path dropped
	is.True(registry.Get("/mnt/c") != nil) // new path tracked
}

func TestMonitor_PushesCounts(t *testing.T) {
	is := is.New(t)

	runner := newPathRunner()
	runner.results["/mnt/a"] = &probe.Result{ExitCode: 0}
	runner.results["/mnt/b"] = &probe.Result{ExitCode: 1}

	lister := &fakeLister{paths: []string{"/mnt/a", "/mnt/b"}}
	pusher := &capturePusher{}
	mon := monitor.New(health.NewRegistry(), runner, lister, pusher, 50*time.Millisecond, 4, testutil.Logger(t))

	stop := startMonitor(t, mon)

	testutil.PollUntil(t, 5*time.Second, func() bool {
		pushes, _, _ := pusher.last()
		return pushes >= 1
	})
	is.NoErr(stop())

	_, total, dead := pusher.last()
	is.Equal(total, 2) // both mounts counted
	is.Equal(dead, 1)  // the failing mount counts dead
}

// TestMonitor_EndToEnd drives the real probe runner: one mountpoint whose
// probe always succeeds and one whose probe hangs far past the deadline.
func TestMonitor_EndToEnd(t *testing.T) {
	is := is.New(t)

	// The probe script hangs only for the "hang" path, so one command
	// serves both mounts, like a real stat binary would.
	script := filepath.Join(t.TempDir(), "probe.sh")
	body := "#!/bin/sh\ncase \"$1\" in *hang*) sleep 60;; esac\nexit 0\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("failed to write probe script: %v", err)
	}

	runner := probe.NewRunner(script, 150*time.Millisecond, testutil.Logger(t))
	lister := &fakeLister{paths: []string{"/mnt/ok", "/mnt/hang"}}
	registry := health.NewRegistry()
	mon := monitor.New(registry, runner, lister, nil, 100*time.Millisecond, 4, testutil.Logger(t))

	stop := startMonitor(t, mon)

	testutil.PollUntil(t, 10*time.Second, func() bool {
		ok := registry.Get("/mnt/ok")
		hang := registry.Get("/mnt/hang")
		return ok != nil && hang != nil &&
			ok.Status() == health.StatusAlive &&
			hang.Status() != health.StatusAlive
	})

	// Give the hung probe a few more cycles: it must stay parked (or be
	// reaped as signaled once the deadline kill lands), never recover to
	// alive, and never block the healthy mount's checks.
	time.Sleep(400 * time.Millisecond)
	is.NoErr(stop())

	is.Equal(registry.Get("/mnt/ok").Status(), health.StatusAlive) // responsive mount alive
	hangStatus := registry.Get("/mnt/hang").Status()
	is.True(hangStatus == health.StatusCheckRunning || hangStatus == health.StatusCheckSignaled) // hung mount dead

	total, dead := registry.Counts()
	is.Equal(total, 2) // both tracked
	is.Equal(dead, 1)  // only the hung mount is dead
}
