package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgsShouldExitOnHelp(t *testing.T) {
	out := &bytes.Buffer{}
	_, shouldExit, err := parseArgs([]string{"-h"}, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Contains(t, out.String(), "Usage:")
}

func TestParseArgsShouldExitOnMissingPath(t *testing.T) {
	out := &bytes.Buffer{}
	_, shouldExit, err := parseArgs([]string{}, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	out := &bytes.Buffer{}
	_, _, err := parseArgs([]string{"--this-is-not-a-valid-flag"}, out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "flag provided but not defined")
}

func TestParseArgsRejectsBadLogFormat(t *testing.T) {
	out := &bytes.Buffer{}
	_, _, err := parseArgs([]string{"-log-format", "xml", "somepath"}, out)
	require.Error(t, err)
}

func TestParseArgsCollectsRepeatedFlags(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, shouldExit, err := parseArgs([]string{
		"-declare-input", "X",
		"-declare-input", "Y",
		"-input", "X=1",
		"-model", "double=http://localhost:9000",
		"somepath",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, []string{"X", "Y"}, cfg.DeclaredInputs)
	require.Equal(t, "1", cfg.Inputs["X"])
	require.Equal(t, "http://localhost:9000", cfg.ModelEndpoints["double"])
	require.Equal(t, "somepath", cfg.DagPath)
}

func TestRunCLIEndToEndTensorOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graph.hcl"), []byte(`
op "double" {
  device  = "CPU"
  kind    = "tensor"
  op_name = "identity"
  inputs  = ["X"]
  outputs = ["Y"]
}
`), 0o644))

	out := &bytes.Buffer{}
	args := []string{"-declare-input", "X", "-input", "X=21", dir}

	err := runCLI(out, args)
	require.NoError(t, err)
	require.True(t, strings.Contains(out.String(), "Y ="))
}
