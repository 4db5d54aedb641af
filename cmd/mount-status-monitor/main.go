// Package main is the entry point for the mount status monitor daemon.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cscheib/mount-status-monitor/internal/config"
	"github.com/cscheib/mount-status-monitor/internal/health"
	"github.com/cscheib/mount-status-monitor/internal/metrics"
	"github.com/cscheib/mount-status-monitor/internal/monitor"
	"github.com/cscheib/mount-status-monitor/internal/mounts"
	"github.com/cscheib/mount-status-monitor/internal/probe"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes. Inability to set up logging or to enumerate mountpoints is
// fatal; everything else is contained to a single mountpoint and cycle.
const (
	exitConfigError      = 1
	exitEnumerationError = 2
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(exitConfigError)
	}

	// Setup structured logging
	logger, err := setupLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogTarget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to connect to syslog: %v\n", err)
		os.Exit(exitConfigError)
	}
	slog.SetDefault(logger)

	configSource := "defaults/environment"
	if cfg.ConfigFile != "" {
		configSource = cfg.ConfigFile
	}

	logger.Info("starting mount status monitor",
		"version", Version,
		"config_source", configSource,
		"poll_interval", cfg.PollInterval.String(),
		"probe_timeout", cfg.ProbeTimeout.String(),
		"probe_command", cfg.ProbeCommand,
		"workers", cfg.Workers,
		"push_gateway", cfg.PushGateway,
		"excluded_fstypes", strings.Join(cfg.ExcludeFSTypes, ","),
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"log_target", cfg.LogTarget,
	)

	runner := probe.NewRunner(cfg.ProbeCommand, cfg.ProbeTimeout, logger)
	lister := mounts.NewLister(cfg.ExcludeFSTypes)
	registry := health.NewRegistry()

	// The pusher is optional; without a gateway address metrics stay local.
	var pusher monitor.MetricsPusher
	if cfg.PushGateway != "" {
		p, err := metrics.NewPusher(cfg.PushGateway)
		if err != nil {
			logger.Error("unable to set up metrics pusher", "error", err)
			os.Exit(exitConfigError)
		}
		pusher = p
	}

	mon := monitor.New(registry, runner, lister, pusher, cfg.PollInterval, cfg.Workers, logger)

	// The loop runs until killed externally; SIGINT/SIGTERM stop it cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mon.Run(ctx); err != nil {
		logger.Error("monitor stopped", "error", err)
		os.Exit(exitEnumerationError)
	}

	logger.Info("shutdown complete")
}

// setupLogger creates a structured logger based on configuration.
// For the stdio target, debug/info go to stdout and warn/error to stderr.
// For the syslog target, records are routed to the local syslog daemon at
// the matching severity; failure to connect is returned to the caller and
// is fatal.
func setupLogger(level, format, target string) (*slog.Logger, error) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	newHandler := func(w io.Writer) slog.Handler {
		if format == "text" {
			return slog.NewTextHandler(w, opts)
		}
		return slog.NewJSONHandler(w, opts)
	}

	if target == "syslog" {
		w, err := syslog.New(syslog.LOG_DAEMON, "mount-status-monitor")
		if err != nil {
			return nil, err
		}
		handler := &syslogHandler{
			level: logLevel,
			debug: newHandler(severityWriter{w.Debug}),
			info:  newHandler(severityWriter{w.Info}),
			warn:  newHandler(severityWriter{w.Warning}),
			err:   newHandler(severityWriter{w.Err}),
		}
		return slog.New(handler), nil
	}

	// Pre-create handlers for stdout and stderr to avoid allocation on
	// every log call.
	handler := &multiStreamHandler{
		level:         logLevel,
		stdoutHandler: newHandler(os.Stdout),
		stderrHandler: newHandler(os.Stderr),
	}
	return slog.New(handler), nil
}

// multiStreamHandler routes logs to stdout or stderr based on level.
// debug, info → stdout; warn, error → stderr
type multiStreamHandler struct {
	level         slog.Level
	stdoutHandler slog.Handler
	stderrHandler slog.Handler
}

func (h *multiStreamHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *multiStreamHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderrHandler.Handle(ctx, r)
	}
	return h.stdoutHandler.Handle(ctx, r)
}

func (h *multiStreamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiStreamHandler{
		level:         h.level,
		stdoutHandler: h.stdoutHandler.WithAttrs(attrs),
		stderrHandler: h.stderrHandler.WithAttrs(attrs),
	}
}

func (h *multiStreamHandler) WithGroup(name string) slog.Handler {
	return &multiStreamHandler{
		level:         h.level,
		stdoutHandler: h.stdoutHandler.WithGroup(name),
		stderrHandler: h.stderrHandler.WithGroup(name),
	}
}

// syslogHandler routes records to the syslog daemon at the severity
// matching the record's level. Each severity gets its own pre-created
// formatting handler, mirroring multiStreamHandler.
type syslogHandler struct {
	level slog.Level
	debug slog.Handler
	info  slog.Handler
	warn  slog.Handler
	err   slog.Handler
}

func (h *syslogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *syslogHandler) Handle(ctx context.Context, r slog.Record) error {
	switch {
	case r.Level >= slog.LevelError:
		return h.err.Handle(ctx, r)
	case r.Level >= slog.LevelWarn:
		return h.warn.Handle(ctx, r)
	case r.Level >= slog.LevelInfo:
		return h.info.Handle(ctx, r)
	default:
		return h.debug.Handle(ctx, r)
	}
}

func (h *syslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syslogHandler{
		level: h.level,
		debug: h.debug.WithAttrs(attrs),
		info:  h.info.WithAttrs(attrs),
		warn:  h.warn.WithAttrs(attrs),
		err:   h.err.WithAttrs(attrs),
	}
}

func (h *syslogHandler) WithGroup(name string) slog.Handler {
	return &syslogHandler{
		level: h.level,
		debug: h.debug.WithGroup(name),
		info:  h.info.WithGroup(name),
		warn:  h.warn.WithGroup(name),
		err:   h.err.WithGroup(name),
	}
}

// severityWriter adapts one syslog severity method to io.Writer so the
// standard slog handlers can format records for it. A write failure is
// reported by the handler and echoed nowhere else; logging failures are
// non-fatal after startup.
type severityWriter struct {
	send func(string) error
}

func (w severityWriter) Write(p []byte) (int, error) {
	if err := w.send(strings.TrimRight(string(p), "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}
