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

// Package luks2 opens LUKS2 containers with cryptsetup.
package luks2

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"

	"golang.org/x/xerrors"

	"github.com/snapcore/remote-unlock/dirs"
	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/osutil"
	"github.com/snapcore/remote-unlock/osutil/disks"
)

// Status is the outcome of activating a volume.
type Status int

const (
	StatusSuccess Status = iota
	// StatusAlreadyActive means the mapping existed before the call.
	StatusAlreadyActive
	// StatusBadKey means no keyslot accepted the key.
	StatusBadKey
	// StatusFailed is any other failure.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlreadyActive:
		return "already active"
	case StatusBadKey:
		return "bad key"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// cryptsetup exit codes, see cryptsetup(8)
const (
	exitNoPermission = 2
	exitDeviceExists = 5
)

// cryptsetupCmd is a helper for running the cryptsetup command. If stdin is
// supplied, data read from it is supplied to cryptsetup via its stdin.
func cryptsetupCmd(stdin io.Reader, args ...string) (exitCode int, err error) {
	cmd := exec.Command("cryptsetup", args...)
	cmd.Stdin = stdin

	if output, err := cmd.CombinedOutput(); err != nil {
		exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return exitCode, fmt.Errorf("cryptsetup failed with: %v", osutil.OutputErr(output, err))
	}

	return 0, nil
}

// Activate maps the LUKS2 container at devicePath as /dev/mapper/volumeName,
// feeding key on stdin. An existing mapping is reported as
// StatusAlreadyActive with a nil error.
func Activate(volumeName, devicePath string, key []byte) (Status, error) {
	if osutil.FileExists(filepath.Join(dirs.MapperDir, volumeName)) {
		logger.Debugf("%s is already active", volumeName)
		return StatusAlreadyActive, nil
	}

	args := []string{
		"open",
		// LUKS2 only
		"--type", "luks2",
		// read the key from stdin, with the exact size so that cryptsetup
		// does not stop at a newline inside the key
		"--key-file", "-",
		"--keyfile-size", strconv.Itoa(len(key)),
		devicePath,
		volumeName,
	}
	exitCode, err := cryptsetupCmd(bytes.NewReader(key), args...)
	switch {
	case err == nil:
		return StatusSuccess, nil
	case exitCode == exitDeviceExists:
		// raced with another unlock
		return StatusAlreadyActive, nil
	case exitCode == exitNoPermission:
		return StatusBadKey, xerrors.Errorf("cannot activate %s: %w", devicePath, err)
	default:
		return StatusFailed, xerrors.Errorf("cannot activate %s: %w", devicePath, err)
	}
}

// KeyMismatchError is returned by TestKey when no keyslot of the container
// accepts the key.
type KeyMismatchError struct {
	Device string
	Err    error
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("key does not open any keyslot of %s: %v", e.Device, e.Err)
}

func (e *KeyMismatchError) Unwrap() error {
	return e.Err
}

// TestKey checks that key opens a keyslot of the LUKS2 container at
// devicePath, without creating a mapping.
func TestKey(devicePath string, key []byte) error {
	args := []string{
		"open",
		"--test-passphrase",
		"--type", "luks2",
		"--key-file", "-",
		"--keyfile-size", strconv.Itoa(len(key)),
		devicePath,
	}
	exitCode, err := cryptsetupCmd(bytes.NewReader(key), args...)
	switch {
	case err == nil:
		return nil
	case exitCode == exitNoPermission:
		return &KeyMismatchError{Device: devicePath, Err: err}
	default:
		return xerrors.Errorf("cannot test key of %s: %w", devicePath, err)
	}
}

// KeyVerifier checks the unwrapped volume key against the keyslots of
// every data volume of the domain.
type KeyVerifier struct{}

// Verify tests vek on each volume in turn and stops at the first failure.
func (KeyVerifier) Verify(username, domain string, volumes []disks.DataVolume, vek []byte) error {
	for _, vol := range volumes {
		if err := TestKey(vol.Path, vek); err != nil {
			return err
		}
	}
	logger.Debugf("key of %s verified on %d volumes", domain, len(volumes))
	return nil
}

// Activator activates data volumes with cryptsetup.
type Activator struct{}

// Activate is the same as the package level Activate.
func (Activator) Activate(volumeName, devicePath string, key []byte) (Status, error) {
	return Activate(volumeName, devicePath, key)
}
