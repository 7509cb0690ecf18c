package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/sms-stats/internal/job"
)

const line = `<sms protocol="0" address="+15550001" date="1534621033000" type="2" subject="null" body="Here&apos;s a message" toa="null" sc_toa="null" service_center="null" read="1" status="-1" locked="0" readable_date="Sat, 18 Aug 2018 12:57:13 MST" contact_name="Ann" />`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sms.xml")
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0644))
	return path
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "sms-stats [flags] <input>")
}

func TestHelpFlag(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--format")
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "-v")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sms-stats "+job.Version))
	assert.Contains(t, out, "License")
	assert.Contains(t, out, "Written by")
}

func TestRunText(t *testing.T) {
	out, err := execute(t, "--log-level", "error", writeInput(t))
	require.NoError(t, err)
	assert.Equal(t, "Ann (+15550001)\nTo (Messages/Chars): 1/16\nFrom (Messages/Chars): 0/0\n", out)
}

func TestLastArgumentIsInput(t *testing.T) {
	out, err := execute(t, "--log-level", "error", "ignored.xml", writeInput(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Ann (+15550001)")
}

func TestFormatFlagOverridesConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sms-stats.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("report:\n  format: text\n"), 0644))

	out, err := execute(t, "--config", cfgPath, "--format", "json", "--log-level", "error", writeInput(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "contacts")
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--storage", "local", "--storage-dir", dir, "--prefix", "", "--run-id", "r1", "--log-level", "error", writeInput(t))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "sms", "run=r1", "contacts.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "sms", "run=r1", "_manifest.json"))
	assert.NoError(t, err)
}

func TestMissingInput(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.xml")
	_, err := execute(t, "--log-level", "error", missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, job.ErrOpenInput))
	assert.Contains(t, err.Error(), missing)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "csv", writeInput(t))
	assert.Error(t, err)
}
