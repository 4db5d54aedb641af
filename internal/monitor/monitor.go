// Package monitor provides the poll-cycle loop that drives mount checks.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cscheib/mount-status-monitor/internal/health"
)

// MountLister enumerates the host's current mountpoint paths. Satisfied by
// *mounts.Lister.
type MountLister interface {
	List() ([]string, error)
}

// MetricsPusher publishes the per-cycle aggregate counts. Satisfied by
// *metrics.Pusher.
type MetricsPusher interface {
	Push(ctx context.Context, total, dead int) error
}

// Monitor runs the poll cycle: reconcile the registry against the live
// mount list, check every tracked mountpoint in parallel, and report
// aggregate counts.
type Monitor struct {
	registry *health.Registry
	runner   health.Runner
	lister   MountLister
	pusher   MetricsPusher // nil when no pushgateway is configured
	interval time.Duration
	workers  int
	logger   *slog.Logger
}

// New creates a new Monitor instance. pusher may be nil to disable metric
// pushes.
func New(registry *health.Registry, runner health.Runner, lister MountLister, pusher MetricsPusher, interval time.Duration, workers int, logger *slog.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		runner:   runner,
		lister:   lister,
		pusher:   pusher,
		interval: interval,
		workers:  workers,
		logger:   logger,
	}
}

// Run executes poll cycles until the context is cancelled, starting with an
// immediate first cycle. It returns nil on cancellation. A mountpoint
// enumeration failure is fatal and returned to the caller; every other
// error is contained to a single mountpoint and a single cycle.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.runCycle(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor shutting down")
			return nil
		case <-ticker.C:
			if err := m.runCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// runCycle performs one full pass: reconcile, check all mounts in parallel,
// aggregate and report.
func (m *Monitor) runCycle(ctx context.Context) error {
	paths, err := m.lister.List()
	if err != nil {
		return fmt.Errorf("failed to retrieve the list of mountpoints: %w", err)
	}

	added, removed := m.registry.Reconcile(paths)
	for _, path := range added {
		m.logger.Debug("tracking new mountpoint", "path", path)
	}
	for _, path := range removed {
		// A removed entry may still hold an outstanding probe; the handle
		// is dropped without a final reap (best-effort cleanup).
		m.logger.Debug("mountpoint unmounted, dropping state", "path", path)
	}

	// One worker per mountpoint, bounded: a wedged mount costs exactly one
	// slot for the duration of the probe deadline and nothing more, since
	// the deadline is enforced inside the probe runner itself.
	g := new(errgroup.Group)
	g.SetLimit(m.workers)
	for _, entry := range m.registry.Entries() {
		entry := entry
		g.Go(func() error {
			m.logEvent(entry.Check(m.runner))
			return nil
		})
	}
	_ = g.Wait() // per-mount checks never return errors; they emit events

	total, dead := m.registry.Counts()
	m.logger.Info("checked mounts", "total", total, "dead", dead)

	if m.pusher != nil {
		if err := m.pusher.Push(ctx, total, dead); err != nil {
			// Metrics delivery never affects local monitoring state.
			m.logger.Error("failed to push metrics", "error", err)
		}
	}

	return nil
}

// logEvent emits exactly one log line per mountpoint outcome, at a severity
// matching its operational weight.
func (m *Monitor) logEvent(ev health.Event) {
	switch ev.Kind {
	case health.EventPassed:
		m.logger.Debug("mount passed health check",
			"path", ev.Path)
	case health.EventFailed:
		m.logger.Error("mount failed health check",
			"path", ev.Path,
			"exit_code", ev.ExitCode)
	case health.EventSignaled:
		m.logger.Error("mount check terminated by signal",
			"path", ev.Path,
			"signal", ev.Signal)
	case health.EventTimedOut:
		m.logger.Error("mount check timed out, probe killed",
			"path", ev.Path,
			"elapsed", ev.Elapsed.String())
	case health.EventReaped:
		m.logger.Info("slow check exited",
			"path", ev.Path,
			"status", ev.Status.String(),
			"exit_code", ev.ExitCode,
			"signal", ev.Signal,
			"elapsed", ev.Elapsed.String())
	case health.EventStillRunning:
		m.logger.Warn("slow check has not exited",
			"path", ev.Path,
			"elapsed", ev.Elapsed.String())
	case health.EventPollError:
		m.logger.Error("stalled check returned an error",
			"path", ev.Path,
			"elapsed", ev.Elapsed.String(),
			"error", ev.Err)
	case health.EventSpawnError:
		m.logger.Error("unable to spawn probe",
			"path", ev.Path,
			"error", ev.Err)
	}
}
