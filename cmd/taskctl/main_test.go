package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Flags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")

	opts, err := parseArgs([]string{
		"--config", cfgPath,
		"--server", "http://example.test:9000",
		"--user", "ann",
		"--logout",
	}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test:9000", opts.cfg.Client.ServerURL)
	assert.Equal(t, "ann", opts.cfg.Client.Username)
	assert.True(t, opts.logout)
}

func TestParseArgs_Defaults(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts, err := parseArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", opts.cfg.Client.ServerURL)
	assert.False(t, opts.logout)
}

func TestParseArgs_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	_, err := parseArgs([]string{"--version"}, &stdout, &stderr)
	assert.ErrorIs(t, err, pflag.ErrHelp)
	assert.Equal(t, "taskctl v"+version+"\n", stdout.String())
}

func TestRun_BadArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", filepath.Join(t.TempDir(), "x.yaml"), "extra"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), `unexpected argument "extra"`)

	stderr.Reset()
	code = run([]string{"--no-such-flag"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--help"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "taskctl - terminal client")
}
