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

// Package systemd drives the service manager of the initramfs.
package systemd

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/snapcore/remote-unlock/logger"
)

// run calls systemctl with the given args, returning its output (and wrapped
// error)
func run(args ...string) ([]byte, error) {
	bs, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &Error{cmd: args, exitCode: exitCode, msg: bs}
	}

	return bs, nil
}

// systemctlCmd is called to actually call out to systemctl.
var systemctlCmd = run

// MockSystemctl allows to mock the systemctl invocations.
func MockSystemctl(f func(args ...string) ([]byte, error)) (restore func()) {
	old := systemctlCmd
	systemctlCmd = f
	return func() {
		systemctlCmd = old
	}
}

// Error is returned if the systemctl command failed
type Error struct {
	cmd      []string
	msg      []byte
	exitCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v failed with exit status %d: %s", e.cmd, e.exitCode, e.msg)
}

// SwitchRoot asks systemd to leave the initramfs and continue the boot with
// newRoot as the root file system. A nil error only means the request was
// queued.
func SwitchRoot(newRoot string) error {
	logger.Noticef("switching root to %s", newRoot)
	_, err := systemctlCmd("--no-block", "switch-root", newRoot)
	return err
}
