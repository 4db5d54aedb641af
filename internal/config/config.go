// Package config handles configuration parsing from JSON files, environment
// variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/mounts"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
)

// Config holds all runtime configuration for the mount status monitor.
// Everything is read once at startup; there is no dynamic reconfiguration.
type Config struct {
	// Config file tracking
	ConfigFile string // Path to loaded config file ("" if none)

	// Polling configuration
	PollInterval time.Duration // Time between poll cycles
	ProbeTimeout time.Duration // Deadline for one probe process
	ProbeCommand string        // Stat-equivalent binary run against each mountpoint
	Workers      int           // Bound on concurrent per-mount checks

	// Enumeration configuration
	ExcludeFSTypes []string // Filesystem types skipped during enumeration

	// Metrics configuration
	PushGateway string // Prometheus pushgateway address ("" disables pushing)

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
	LogTarget string // stdio, syslog
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ConfigFile:     "",
		PollInterval:   60 * time.Second,
		ProbeTimeout:   3 * time.Second,
		ProbeCommand:   "/usr/bin/stat",
		Workers:        2 * runtime.NumCPU(),
		ExcludeFSTypes: mounts.DefaultExcludedFSTypes,
		PushGateway:    "",
		LogLevel:       "info",
		LogFormat:      "json",
		LogTarget:      "stdio",
	}
}

// Load parses configuration from config file, environment variables, and
// command-line flags.
// Precedence: Defaults → Config File → Environment Variables → CLI Flags
func Load() (*Config, error) {
	return load(os.Args[1:], os.Getenv)
}

func load(args []string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet("mount-status-monitor", pflag.ContinueOnError)

	configFile := fs.StringP("config", "c", "", "Path to JSON configuration file")
	pollInterval := fs.Duration("poll-interval", 0, "Time to wait between mount checks")
	probeTimeout := fs.Duration("probe-timeout", 0, "Deadline for one probe process")
	probeCommand := fs.String("probe-command", "", "Stat-equivalent binary run against each mountpoint")
	workers := fs.Int("workers", 0, "Maximum concurrent mount checks")
	excludeFSTypes := fs.StringSlice("exclude-fstypes", nil, "Filesystem types to skip during enumeration")
	pushGateway := fs.String("prometheus-push-gateway", "", "Prometheus pushgateway address to send metrics to")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: json, text")
	logTarget := fs.String("log-target", "", "Log target: stdio, syslog")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load from config file (after defaults, before env vars)
	if err := cfg.loadFromFile(*configFile); err != nil {
		return nil, err
	}

	// Load from environment variables
	if envVal := getenv("POLL_INTERVAL"); envVal != "" {
		if d, err := time.ParseDuration(envVal); err == nil {
			cfg.PollInterval = d
		}
	}
	if envVal := getenv("PROBE_TIMEOUT"); envVal != "" {
		if d, err := time.ParseDuration(envVal); err == nil {
			cfg.ProbeTimeout = d
		}
	}
	if envVal := getenv("PROBE_COMMAND"); envVal != "" {
		cfg.ProbeCommand = envVal
	}
	if envVal := getenv("WORKERS"); envVal != "" {
		if i, err := strconv.Atoi(envVal); err == nil {
			cfg.Workers = i
		}
	}
	if envVal := getenv("EXCLUDE_FSTYPES"); envVal != "" {
		cfg.ExcludeFSTypes = parseFSTypes(envVal)
	}
	if envVal := getenv("PROMETHEUS_PUSH_GATEWAY"); envVal != "" {
		cfg.PushGateway = envVal
	}
	if envVal := getenv("LOG_LEVEL"); envVal != "" {
		cfg.LogLevel = envVal
	}
	if envVal := getenv("LOG_FORMAT"); envVal != "" {
		cfg.LogFormat = envVal
	}
	if envVal := getenv("LOG_TARGET"); envVal != "" {
		cfg.LogTarget = envVal
	}

	// Override with flags if provided
	if *pollInterval > 0 {
		cfg.PollInterval = *pollInterval
	}
	if *probeTimeout > 0 {
		cfg.ProbeTimeout = *probeTimeout
	}
	if *probeCommand != "" {
		cfg.ProbeCommand = *probeCommand
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if fs.Changed("exclude-fstypes") {
		cfg.ExcludeFSTypes = *excludeFSTypes
	}
	if *pushGateway != "" {
		cfg.PushGateway = *pushGateway
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *logTarget != "" {
		cfg.LogTarget = *logTarget
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is valid. All problems are
// collected so the operator sees everything wrong at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.PollInterval < time.Second {
		result = multierror.Append(result, errors.New("poll interval must be >= 1 second"))
	}

	if c.ProbeTimeout < 100*time.Millisecond {
		result = multierror.Append(result, errors.New("probe timeout must be >= 100 milliseconds"))
	}

	if c.ProbeTimeout >= c.PollInterval {
		result = multierror.Append(result, errors.New("probe timeout must be less than poll interval"))
	}

	if c.ProbeCommand == "" {
		result = multierror.Append(result, errors.New("probe command is required"))
	}

	if c.Workers < 1 {
		result = multierror.Append(result, errors.New("workers must be >= 1"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		result = multierror.Append(result,
			fmt.Errorf("log level must be one of: debug, info, warn, error (got %q)", c.LogLevel))
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.LogFormat] {
		result = multierror.Append(result,
			fmt.Errorf("log format must be one of: json, text (got %q)", c.LogFormat))
	}

	validLogTargets := map[string]bool{"stdio": true, "syslog": true}
	if !validLogTargets[c.LogTarget] {
		result = multierror.Append(result,
			fmt.Errorf("log target must be one of: stdio, syslog (got %q)", c.LogTarget))
	}

	return result.ErrorOrNil()
}

// parseFSTypes splits a comma-separated string into a slice of filesystem
// types.
func parseFSTypes(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			types = append(types, p)
		}
	}
	return types
}
