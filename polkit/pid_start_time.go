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

package polkit

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/snapcore/remote-unlock/dirs"
)

// selfStartTime returns the start time of the running process in clock
// ticks since boot, as polkit expects for unix-process subjects.
func selfStartTime() (uint64, error) {
	data, err := os.ReadFile(filepath.Join(dirs.ProcSelfDir, "stat"))
	if err != nil {
		return 0, err
	}
	return parseStatStartTime(data)
}

func parseStatStartTime(data []byte) (uint64, error) {
	// the command name is in parens and may itself contain spaces or
	// parens, so start after the last ')'
	idx := bytes.LastIndexByte(data, ')')
	if idx < 0 {
		return 0, fmt.Errorf("cannot parse stat: no command name")
	}
	fields := bytes.Fields(data[idx+1:])
	// fields now begins at "state", the 3rd field, start time is the 22nd
	const startTimeField = 22 - 3
	if len(fields) <= startTimeField {
		return 0, fmt.Errorf("cannot parse stat: too few fields")
	}
	return strconv.ParseUint(string(fields[startTimeField]), 10, 64)
}
