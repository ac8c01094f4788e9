// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2025 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package testutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/check.v1"
)

// MockCmd is a shell script standing in for a real command. It records
// every invocation before running the rest of its script.
type MockCmd struct {
	dir    string
	exe    string
	log    string
	onPath bool
}

// Each invocation is logged as the command name and its arguments, each
// marked with a leading colon and followed by a NUL. An extra NUL closes the
// invocation, so empty arguments stay distinguishable.
const mockScript = `#!/bin/bash
{
	printf ':%%s\0' "$(basename "$0")"
	for arg in "$@"; do
		printf ':%%s\0' "$arg"
	done
	printf '\0'
} >> %q
%s
`

// MockCommand writes a mock command running script. A bare name is placed
// in a fresh directory that is prepended to PATH until Restore is called.
// An absolute path is created as is, along with its parent directories,
// and PATH is left alone. An empty script exits with success.
func MockCommand(c *check.C, name, script string) *MockCmd {
	cmd := &MockCmd{}
	if filepath.IsAbs(name) {
		cmd.dir = filepath.Dir(name)
		cmd.exe = name
		c.Assert(os.MkdirAll(cmd.dir, 0755), check.IsNil)
	} else {
		cmd.dir = c.MkDir()
		cmd.exe = filepath.Join(cmd.dir, name)
		cmd.onPath = true
	}
	cmd.log = cmd.exe + ".log"

	content := fmt.Sprintf(mockScript, cmd.log, script)
	c.Assert(os.WriteFile(cmd.exe, []byte(content), 0755), check.IsNil)

	if cmd.onPath {
		os.Setenv("PATH", cmd.dir+":"+os.Getenv("PATH"))
	}
	return cmd
}

// Restore takes the mock off PATH.
func (cmd *MockCmd) Restore() {
	if !cmd.onPath {
		return
	}
	var kept []string
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir != cmd.dir {
			kept = append(kept, dir)
		}
	}
	os.Setenv("PATH", strings.Join(kept, ":"))
}

// Calls returns the recorded invocations in order, each starting with the
// command name.
func (cmd *MockCmd) Calls() [][]string {
	raw, err := os.ReadFile(cmd.log)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		panic(err)
	}

	var calls [][]string
	var call []string
	for _, field := range strings.Split(string(raw), "\x00") {
		if field == "" {
			if call != nil {
				calls = append(calls, call)
				call = nil
			}
			continue
		}
		call = append(call, strings.TrimPrefix(field, ":"))
	}
	return calls
}

// ForgetCalls drops the invocations recorded so far.
func (cmd *MockCmd) ForgetCalls() {
	if err := os.Remove(cmd.log); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

// Exe is the path of the mock.
func (cmd *MockCmd) Exe() string {
	return cmd.exe
}
