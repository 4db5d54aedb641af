package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

const (
	// maxConfigFileSize is the maximum allowed config file size (1MB).
	maxConfigFileSize = 1 << 20 // 1MB

	// worldWritableBits is the Unix permission bit for "other write" access.
	// Used to detect world-writable config files which are a security risk.
	worldWritableBits = 0002
)

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings.
type Duration time.Duration

// MarshalJSON implements json.Marshaler for Duration.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler for Duration.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// FileConfig represents the JSON configuration file structure.
type FileConfig struct {
	PollInterval   Duration `json:"pollInterval,omitempty"`
	ProbeTimeout   Duration `json:"probeTimeout,omitempty"`
	ProbeCommand   string   `json:"probeCommand,omitempty"`
	Workers        int      `json:"workers,omitempty"`
	ExcludeFSTypes []string `json:"excludeFSTypes,omitempty"`
	PushGateway    string   `json:"pushGateway,omitempty"`
	LogLevel       string   `json:"logLevel,omitempty"`
	LogFormat      string   `json:"logFormat,omitempty"`
	LogTarget      string   `json:"logTarget,omitempty"`
}

// defaultConfigPath is the default location to check for a config file.
const defaultConfigPath = "./config.json"

// loadFromFile loads configuration from a JSON file.
// If configPath is empty, it checks for ./config.json as a default.
// If the default doesn't exist, it silently continues.
// If an explicit path is provided but doesn't exist, it returns an error.
func (c *Config) loadFromFile(configPath string) error {
	var filePath string
	var explicitPath bool

	if configPath != "" {
		// Explicit path provided via --config flag
		filePath = configPath
		explicitPath = true
	} else {
		filePath = defaultConfigPath
		explicitPath = false
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		if explicitPath {
			return fmt.Errorf("config file not found: %s", filePath)
		}
		// Default config file doesn't exist - silently continue
		return nil
	}
	if err != nil {
		return fmt.Errorf("error checking config file: %w", err)
	}

	// Check file size to prevent reading excessively large files
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file %s exceeds maximum size of %d bytes (got %d bytes)",
			filePath, maxConfigFileSize, info.Size())
	}

	// Warn if config file is world-writable (security risk) - Unix only.
	// This runs before the real logger is set up, so it uses the default
	// slog logger.
	if runtime.GOOS != "windows" {
		if info.Mode().Perm()&worldWritableBits != 0 {
			slog.Warn("config file is world-writable, which may be a security risk",
				"path", filePath,
				"mode", fmt.Sprintf("%04o", info.Mode().Perm()))
		}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", filePath, err)
	}

	var fileConfig FileConfig
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", filePath, err)
	}

	c.ConfigFile = filePath
	applyFileConfig(c, &fileConfig)

	return nil
}

// applyFileConfig applies values from FileConfig to the runtime Config.
// Values from the file override defaults but will be overridden by env vars
// and CLI flags.
func applyFileConfig(c *Config, fc *FileConfig) {
	if fc.PollInterval > 0 {
		c.PollInterval = time.Duration(fc.PollInterval)
	}
	if fc.ProbeTimeout > 0 {
		c.ProbeTimeout = time.Duration(fc.ProbeTimeout)
	}
	if fc.ProbeCommand != "" {
		c.ProbeCommand = fc.ProbeCommand
	}
	if fc.Workers > 0 {
		c.Workers = fc.Workers
	}
	if fc.ExcludeFSTypes != nil {
		c.ExcludeFSTypes = fc.ExcludeFSTypes
	}
	if fc.PushGateway != "" {
		c.PushGateway = fc.PushGateway
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if fc.LogTarget != "" {
		c.LogTarget = fc.LogTarget
	}
}
