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

package main

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/snapcore/remote-unlock/config"
	"github.com/snapcore/remote-unlock/testutil"
)

var (
	Run                  = run
	ReadPassword         = readPassword
	ReadTerminalPassword = readTerminalPassword
	ReadPipePassword     = readPipePassword
	PolicyVerifier       = policyVerifier

	ErrNoInput         = errNoInput
	ErrMalformedInput  = errMalformedInput
	ErrPasswordTooLong = errPasswordTooLong
)

func MockNewUnlocker(f func(conf *config.Config) (Unlocker, func(), error)) (restore func()) {
	restore = testutil.Backup(&newUnlocker)
	newUnlocker = f
	return restore
}

func MockSwitchRoot(f func(newRoot string) error) (restore func()) {
	restore = testutil.Backup(&systemdSwitchRoot)
	systemdSwitchRoot = f
	return restore
}

func MockStdin(f *os.File) (restore func()) {
	restore = testutil.Backup(&osStdin)
	osStdin = f
	return restore
}

func MockTerminal(isTerminal func(fd int) bool, get func(fd int, req uint) (*unix.Termios, error), set func(fd int, req uint, t *unix.Termios) error) (restore func()) {
	restore = testutil.Backup(&termIsTerminal, &ioctlGetTermios, &ioctlSetTermios)
	termIsTerminal = isTerminal
	ioctlGetTermios = get
	ioctlSetTermios = set
	return restore
}
