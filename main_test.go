package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callScope/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config", "--max-depth=4", "--tags", "env=test")
	require.NoError(t, err)

	assert.Contains(t, out, "max_depth: 4")
	assert.Contains(t, out, "env: test")
}

func TestConfigCommandRejectsInvalid(t *testing.T) {
	_, err := execute(t, "config", "--concurrent=0")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	require.NoError(t, rootCmd.PersistentFlags().Set("concurrent", "1"))
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--duration=20ms", "--interval=0.005", "--log-level=error")
	require.NoError(t, err)

	assert.Contains(t, out, "Starting callScope")
	assert.Contains(t, out, "function")
	assert.Contains(t, out, "workload['lib']['Fib']")
	assert.Contains(t, out, "workload['Document'].prototype['Append']")
}

func TestBannerSortsTags(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Tags = map[string]string{"b": "2", "a": "1"}

	var buf bytes.Buffer
	printWelcomeBanner(&buf, cfg)

	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a: 1")), bytes.Index(buf.Bytes(), []byte("b: 2")))
	assert.NotContains(t, out, "Pyroscope URL")
}
