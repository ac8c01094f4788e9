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
	"fmt"

	"golang.org/x/xerrors"
)

// Status is the result code of an unwrap operation.
type Status int

const (
	StatusSuccess Status = iota
	// StatusBadPassword means the password did not unwrap the KEK.
	StatusBadPassword
	// StatusLockedOut means too many recent failures for the user.
	StatusLockedOut
	// StatusInvalidData means the wrapped keys are malformed or do not
	// belong together.
	StatusInvalidData
	// StatusInternalError is any other failure.
	StatusInternalError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusBadPassword:
		return "bad password"
	case StatusLockedOut:
		return "locked out"
	case StatusInvalidData:
		return "invalid data"
	case StatusInternalError:
		return "internal error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Error is returned by the unwrap operations. Status is never
// StatusSuccess.
type Error struct {
	Status Status
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot unwrap key: %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("cannot unwrap key: %s", e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the status carried by err, StatusSuccess for a nil error
// and StatusInternalError for errors of other types.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var e *Error
	if xerrors.As(err, &e) {
		return e.Status
	}
	return StatusInternalError
}
