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

package keyunwrap

import (
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

const (
	// picked up by systemd-cryptsetup for the remaining volumes of the boot
	passwordKeyDescription = "cryptsetup"
	usernameKeyDescription = "remote-unlock:user"

	environmentKeyTimeout = 150 * time.Second

	userKeyring = unix.KEY_SPEC_USER_KEYRING
)

var (
	unixAddKey    = unix.AddKey
	unixKeyctlInt = unix.KeyctlInt
)

func addTimedKey(description string, payload []byte) error {
	id, err := unixAddKey("user", description, payload, userKeyring)
	if err != nil {
		return xerrors.Errorf("cannot add %q key to the user keyring: %w", description, err)
	}
	if _, err := unixKeyctlInt(unix.KEYCTL_SET_TIMEOUT, id, int(environmentKeyTimeout/time.Second), 0, 0); err != nil {
		return xerrors.Errorf("cannot set timeout of %q key: %w", description, err)
	}
	return nil
}

// BindEnvironment makes the user name and password of the ongoing unlock
// available to the rest of the boot through the user keyring. The keys
// expire on their own.
func (u *Unwrapper) BindEnvironment(username string, password []byte) error {
	if err := addTimedKey(usernameKeyDescription, []byte(username)); err != nil {
		return err
	}
	// the kernel refuses empty user key payloads
	if len(password) == 0 {
		return nil
	}
	return addTimedKey(passwordKeyDescription, password)
}
