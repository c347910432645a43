package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	return writeConfigAs(t, "callscope.yaml", body)
}

func writeConfigAs(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestNewDefaultIsValid(t *testing.T) {
	require.NoError(t, NewDefault().Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)

	def := NewDefault()
	assert.Equal(t, def.AppName, cfg.AppName)
	assert.Equal(t, def.MaxDepth, cfg.MaxDepth)
	assert.Equal(t, def.Interval, cfg.Interval)
	assert.Equal(t, def.Duration, cfg.Duration)
	assert.Equal(t, def.Targets, cfg.Targets)
	assert.Empty(t, cfg.Tags)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
app_name: from-file
max_depth: 3
interval: 2
duration: 1m
targets: [calc, lib]
tags:
  env: file
`)
	t.Setenv("CALLSCOPE_MAX_DEPTH", "5")
	t.Setenv("CALLSCOPE_INTERVAL", "4")

	cfg, err := Load(path, newFlags(t, "--interval=0.5"))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.AppName)
	assert.Equal(t, 5, cfg.MaxDepth)
	assert.Equal(t, 0.5, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.Duration)
	assert.Equal(t, []string{"calc", "lib"}, cfg.Targets)
	assert.Equal(t, map[string]string{"env": "file"}, cfg.Tags)
	assert.Equal(t, 1, cfg.ConcurrentLimit)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CALLSCOPE_TAGS", "env=dev, host=a")
	t.Setenv("CALLSCOPE_TARGETS", "calc,lib")
	t.Setenv("CALLSCOPE_DEBUG", "true")
	t.Setenv("CALLSCOPE_DURATION", "3s")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"env": "dev", "host": "a"}, cfg.Tags)
	assert.Equal(t, []string{"calc", "lib"}, cfg.Targets)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 3*time.Second, cfg.Duration)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load("", newFlags(t,
		"--tags", "env=prod",
		"--auth", "token",
		"--exclude", "^lib",
		"--concurrent", "4",
		"--pyroscope-url", "http://pyroscope:4040",
	))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"env": "prod"}, cfg.Tags)
	assert.Equal(t, "token", cfg.AuthToken)
	assert.Equal(t, "^lib", cfg.ExcludePattern)
	assert.Equal(t, 4, cfg.ConcurrentLimit)
	assert.Equal(t, "http://pyroscope:4040", cfg.PyroscopeURL)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfigAs(t, "callscope.toml", `
app_name = "from-toml"
relay_url = "http://relay:8080"
targets = ["lib"]

[tags]
env = "toml"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "from-toml", cfg.AppName)
	assert.Equal(t, "http://relay:8080", cfg.RelayURL)
	assert.Equal(t, []string{"lib"}, cfg.Targets)
	assert.Equal(t, map[string]string{"env": "toml"}, cfg.Tags)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := NewDefault()
	cfg.MaxDepth = -1
	cfg.Interval = 0
	cfg.ConcurrentLimit = 0
	cfg.ExcludePattern = "("
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Len(t, multierr.Errors(err), 5)
}

func TestValidatePyroscopeNeedsAppName(t *testing.T) {
	cfg := NewDefault()
	cfg.PyroscopeURL = "http://pyroscope:4040"
	cfg.AppName = ""

	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestParseTag(t *testing.T) {
	key, value, err := ParseTag(" env = dev ")
	require.NoError(t, err)
	assert.Equal(t, "env", key)
	assert.Equal(t, "dev", value)

	_, _, err = ParseTag("novalue")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIntervalDuration(t *testing.T) {
	cfg := NewDefault()
	cfg.Interval = 0.25
	assert.Equal(t, 250*time.Millisecond, cfg.IntervalDuration())
}

func TestExclude(t *testing.T) {
	cfg := NewDefault()
	re, err := cfg.Exclude()
	require.NoError(t, err)
	assert.Nil(t, re)

	cfg.ExcludePattern = "^lib"
	re, err = cfg.Exclude()
	require.NoError(t, err)
	assert.True(t, re.MatchString("lib['Fib']"))
}

func TestWriteYAML(t *testing.T) {
	cfg := NewDefault()
	cfg.AuthToken = "secret"

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	out := buf.String()
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "********")
	assert.Contains(t, out, "duration: 10s")
	assert.Contains(t, out, "app_name: callscope")
	assert.Equal(t, "secret", cfg.AuthToken)
}
