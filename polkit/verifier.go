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
	"fmt"
	"strconv"

	"github.com/snapcore/remote-unlock/osutil/disks"
)

// UnlockActionID is the polkit action consulted after a successful unwrap.
const UnlockActionID = "io.snapcraft.remote-unlock.unlock"

var checkAuthorization = CheckAuthorization

// PolicyError is returned by Verifier when the authority refused the action.
type PolicyError struct {
	Action string
	Err    error
}

func (e *PolicyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not authorized: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("%s not authorized", e.Action)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// Verifier checks that unlocking an encryption domain on behalf of a user is
// allowed by the local authentication policy.
type Verifier struct {
	// ActionID defaults to UnlockActionID.
	ActionID string
}

// Verify asks polkit about the unlock of domain by username. The key is
// not shared with the authority.
func (v *Verifier) Verify(username, domain string, volumes []disks.DataVolume, _ []byte) error {
	action := v.ActionID
	if action == "" {
		action = UnlockActionID
	}
	details := map[string]string{
		"user":    username,
		"domain":  domain,
		"volumes": strconv.Itoa(len(volumes)),
	}
	ok, err := checkAuthorization(action, details, CheckNone)
	if err != nil || !ok {
		return &PolicyError{Action: action, Err: err}
	}
	return nil
}
