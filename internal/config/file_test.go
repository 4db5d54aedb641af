package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cscheib/mount-status-monitor/internal/config"
	"github.com/cscheib/mount-status-monitor/internal/testutil"
	"github.com/matryer/is"
)

func TestDuration_RoundTrip(t *testing.T) {
	is := is.New(t)

	in := config.Duration(90 * time.Second)
	data, err := json.Marshal(in)
	is.NoErr(err)
	is.Equal(string(data), `"1m30s"`) // durations serialize as strings

	var out config.Duration
	is.NoErr(json.Unmarshal(data, &out))
	is.Equal(out, in)
}

func TestDuration_UnmarshalInvalid(t *testing.T) {
	is := is.New(t)

	var d config.Duration
	err := json.Unmarshal([]byte(`"five minutes"`), &d)
	is.True(err != nil) // not a parseable duration
}

func TestLoadFromFile_AppliesValues(t *testing.T) {
	is := is.New(t)

	path := testutil.TempConfig(t, &config.FileConfig{
		PollInterval:   config.Duration(30 * time.Second),
		ProbeTimeout:   config.Duration(time.Second),
		ProbeCommand:   "/bin/stat",
		Workers:        3,
		ExcludeFSTypes: []string{"proc"},
		PushGateway:    "http://gateway:9091",
		LogLevel:       "debug",
		LogFormat:      "text",
		LogTarget:      "syslog",
	})

	cfg := config.DefaultConfig()
	is.NoErr(cfg.LoadFromFileForTesting(path))

	is.Equal(cfg.ConfigFile, path) // loaded file path is recorded
	is.Equal(cfg.PollInterval, 30*time.Second)
	is.Equal(cfg.ProbeTimeout, time.Second)
	is.Equal(cfg.ProbeCommand, "/bin/stat")
	is.Equal(cfg.Workers, 3)
	is.Equal(cfg.ExcludeFSTypes, []string{"proc"})
	is.Equal(cfg.PushGateway, "http://gateway:9091")
	is.Equal(cfg.LogLevel, "debug")
	is.Equal(cfg.LogFormat, "text")
	is.Equal(cfg.LogTarget, "syslog")
}

func TestLoadFromFile_PartialFileKeepsDefaults(t *testing.T) {
	is := is.New(t)

	path := testutil.TempConfig(t, &config.FileConfig{
		PollInterval: config.Duration(2 * time.Minute),
	})

	cfg := config.DefaultConfig()
	is.NoErr(cfg.LoadFromFileForTesting(path))

	is.Equal(cfg.PollInterval, 2*time.Minute)
	is.Equal(cfg.ProbeCommand, "/usr/bin/stat") // untouched fields keep defaults
	is.Equal(cfg.LogFormat, "json")
}

func TestLoadFromFile_ExplicitMissingFileErrors(t *testing.T) {
	is := is.New(t)

	cfg := config.DefaultConfig()
	err := cfg.LoadFromFileForTesting(filepath.Join(t.TempDir(), "nope.json"))
	is.True(err != nil) // an explicitly requested file must exist
}

func TestLoadFromFile_InvalidJSONErrors(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "config.json")
	is.NoErr(os.WriteFile(path, []byte("{not json"), 0600))

	cfg := config.DefaultConfig()
	err := cfg.LoadFromFileForTesting(path)
	is.True(err != nil) // malformed JSON is rejected
}

func TestLoadFromFile_OversizedFileErrors(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "config.json")
	is.NoErr(os.WriteFile(path, make([]byte, 1<<20+1), 0600))

	cfg := config.DefaultConfig()
	err := cfg.LoadFromFileForTesting(path)
	is.True(err != nil) // files over the size cap are rejected
}

func TestLoad_FileThenEnvThenFlags(t *testing.T) {
	is := is.New(t)

	path := testutil.TempConfig(t, &config.FileConfig{
		PollInterval: config.Duration(30 * time.Second),
		ProbeCommand: "/bin/stat",
		LogLevel:     "debug",
	})

	env := mapEnv(map[string]string{
		"PROBE_COMMAND": "/usr/local/bin/stat",
	})
	args := []string{"--config=" + path, "--log-level=warn"}

	cfg, err := config.LoadForTesting(args, env)
	is.NoErr(err)

	is.Equal(cfg.PollInterval, 30*time.Second)           // file beats default
	is.Equal(cfg.ProbeCommand, "/usr/local/bin/stat")    // env beats file
	is.Equal(cfg.LogLevel, "warn")                       // flag beats file
}
