// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliModelYAML = `
types:
  - name: pkg.Main
    members:
      - {name: getFoo, kind: method, type: pkg.Foo}
      - {name: count, kind: field, type: int}
  - name: pkg.Foo
    members:
      - {name: bar, kind: field, type: pkg.Bar}
      - {name: bars, kind: method, type: "pkg.Bar[]"}
  - name: pkg.Bar
symbols:
  - {name: main, kind: variable, type: pkg.Main}
`

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cliModelYAML), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "complete dev\n", out)
}

func TestSearchCommand_Machine(t *testing.T) {
	path := writeModel(t)

	out, errOut, err := runCLI(t, "search", "--snapshot", path, "--expected", "pkg.Bar", "--machine")
	require.NoError(t, err)
	assert.Equal(t,
		"pkg.Bar\tmain.getFoo().bar\t3\tbar\n"+
			"pkg.Bar\tmain.getFoo().bars()[]\t3\tbars()\n",
		out)
	assert.Contains(t, errOut, "SUMMARY: chains=2")
}

func TestSearchCommand_Overrides(t *testing.T) {
	path := writeModel(t)

	out, _, err := runCLI(t, "search", "-s", path, "-e", "pkg.Bar", "-e", "int",
		"--max-chains", "1", "--machine")
	require.NoError(t, err)
	assert.Equal(t, "pkg.Bar\tmain.getFoo().bar\t3\tbar\n", out)

	out, _, err = runCLI(t, "search", "-s", path, "-e", "int", "--prefix", "x", "--machine")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSearchCommand_Plain(t *testing.T) {
	path := writeModel(t)

	out, _, err := runCLI(t, "search", "-s", path, "-e", "int")
	require.NoError(t, err)
	assert.Contains(t, out, "main.count")
	assert.Contains(t, out, "1 chains")
}

func TestSearchCommand_Errors(t *testing.T) {
	_, _, err := runCLI(t, "search", "--expected", "int")
	assert.Error(t, err, "snapshot flag is required")

	_, _, err = runCLI(t, "search", "-s", filepath.Join(t.TempDir(), "missing.yaml"), "-e", "int")
	assert.Error(t, err)

	_, _, err = runCLI(t, "search", "-s", writeModel(t), "-e", "int", "--log-level", "loud")
	assert.Error(t, err)
}

func TestMembersCommand(t *testing.T) {
	path := writeModel(t)

	out, _, err := runCLI(t, "members", "-s", path, "pkg.Main", "--machine")
	require.NoError(t, err)
	assert.Equal(t, "method\tgetFoo()\tpkg.Foo\tfalse\nfield\tcount\tint\tfalse\n", out)

	_, _, err = runCLI(t, "members", "-s", path, "pkg.Ghost")
	assert.Error(t, err)
}
