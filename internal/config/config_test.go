package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	var errOut bytes.Buffer

	cfg, err := Parse([]string{"8080"}, map[string]string{}, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, defaultThreads, cfg.Threads)
	assert.Equal(t, "-", cfg.AuditPath)
}

func TestParse_ThreadsFlag(t *testing.T) {
	var errOut bytes.Buffer

	cfg, err := Parse([]string{"-t", "16", "9000"}, map[string]string{}, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Threads)
}

func TestParse_InvalidPort(t *testing.T) {
	for _, tc := range []struct{ port, msg string }{
		{"0", "Invalid port"},
		{"70000", "Invalid port"},
		// pflag reads "-1" as an unknown shorthand flag, so it fails flag
		// parsing and gets the usage line instead.
		{"-1", usageLine},
		{"abc", "Invalid port"},
	} {
		var errOut bytes.Buffer

		_, err := Parse([]string{tc.port}, map[string]string{}, &errOut)
		require.ErrorIs(t, err, ErrUsage)
		assert.Contains(t, errOut.String(), tc.msg)
	}
}

func TestParse_MissingPort(t *testing.T) {
	var errOut bytes.Buffer

	_, err := Parse([]string{}, map[string]string{}, &errOut)
	require.ErrorIs(t, err, ErrUsage)
}

func TestParse_TooManyPositionalArgs(t *testing.T) {
	var errOut bytes.Buffer

	_, err := Parse([]string{"8080", "extra"}, map[string]string{}, &errOut)
	require.ErrorIs(t, err, ErrUsage)
}

func TestParse_TuningFileSuppliesDefaultThreads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")

	require.NoError(t, os.WriteFile(path, []byte(`{
		// comment allowed, this is JSONC
		"default_threads": 12,
	}`), 0o644))

	var errOut bytes.Buffer

	cfg, err := Parse([]string{"8080"}, map[string]string{"HTTPSERVER_CONFIG": path}, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Threads)
}

func TestParse_CLIFlagWinsOverTuningFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"default_threads": 12}`), 0o644))

	var errOut bytes.Buffer

	cfg, err := Parse([]string{"-t", "2", "8080"}, map[string]string{"HTTPSERVER_CONFIG": path}, &errOut)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Threads)
}

func TestParse_MissingTuningFileIsNotAnError(t *testing.T) {
	var errOut bytes.Buffer

	_, err := Parse([]string{"8080"}, map[string]string{"HTTPSERVER_CONFIG": "/no/such/file.json"}, &errOut)
	require.NoError(t, err)
	assert.Empty(t, errOut.String())
}
