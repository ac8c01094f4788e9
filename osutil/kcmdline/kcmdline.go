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

// Package kcmdline reads the kernel command line.
package kcmdline

import (
	"os"
	"strings"
)

var procCmdline = "/proc/cmdline"

// MockProcCmdline overrides the path to /proc/cmdline. For use in tests.
func MockProcCmdline(newPath string) (restore func()) {
	oldProcCmdline := procCmdline
	procCmdline = newPath
	return func() {
		procCmdline = oldProcCmdline
	}
}

// Split splits the kernel command line into arguments. Double quotes
// group words that contain spaces and are dropped from the output.
func Split(cmdline string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range cmdline {
		switch {
		case r == '"':
			inQuote = !inQuote
		case (r == ' ' || r == '\t' || r == '\n') && !inQuote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		if r != '"' {
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// KeyValues returns a map of the specified keys and values found in the
// kernel command line. A key without a value maps to the empty string.
// When a key appears more than once the last value wins.
func KeyValues(keys ...string) (map[string]string, error) {
	buf, err := os.ReadFile(procCmdline)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	m := make(map[string]string)
	for _, arg := range Split(string(buf)) {
		kv := strings.SplitN(arg, "=", 2)
		if !wanted[kv[0]] {
			continue
		}
		if len(kv) == 2 {
			m[kv[0]] = kv[1]
		} else {
			m[kv[0]] = ""
		}
	}
	return m, nil
}
