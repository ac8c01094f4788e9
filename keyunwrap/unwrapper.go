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
	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/secret"
)

// Unwrapper recovers volume keys, enforcing the lockout policy.
type Unwrapper struct {
	lockout *Lockout
}

// New returns an Unwrapper using the given lockout tracker, which may be
// nil.
func New(lockout *Lockout) *Unwrapper {
	return &Unwrapper{lockout: lockout}
}

// Unwrap returns the volume key of the encryption domain. Errors are always
// of type *Error. The caller must Wipe the returned buffer.
func (u *Unwrapper) Unwrap(domain, username string, password, wrappedKEK, wrappedVEK []byte) (*secret.Buffer, error) {
	if err := u.lockout.Check(domain, username); err != nil {
		return nil, err
	}

	kek, err := unwrapKEK(password, wrappedKEK)
	if err != nil {
		if StatusOf(err) == StatusBadPassword {
			if lerr := u.lockout.Failed(domain, username); lerr != nil {
				logger.Noticef("cannot record failed attempt of %q: %v", username, lerr)
			}
		}
		return nil, err
	}
	defer kek.Wipe()

	vek, err := unwrapVEK(kek, wrappedVEK)
	if err != nil {
		return nil, err
	}
	if err := u.lockout.Succeeded(domain, username); err != nil {
		logger.Noticef("cannot reset failed attempts of %q: %v", username, err)
	}
	return vek, nil
}
