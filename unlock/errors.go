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

package unlock

import (
	"fmt"

	"github.com/snapcore/remote-unlock/keyunwrap"
	"github.com/snapcore/remote-unlock/luks2"
)

// TopologyError is returned when the disk, domain or data volumes of the
// attempt cannot be resolved.
type TopologyError struct {
	Step string
	Err  error
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Step, e.Err)
}

func (e *TopologyError) Unwrap() error {
	return e.Err
}

// InvalidIdentifierError is returned when the topology reports a malformed
// UUID.
type InvalidIdentifierError struct {
	Value string
	Err   error
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q", e.Value)
}

func (e *InvalidIdentifierError) Unwrap() error {
	return e.Err
}

// NoSuchUserError is returned when the user has no record in the encryption
// domain. No password was tested.
type NoSuchUserError struct {
	Username string
}

func (e *NoSuchUserError) Error() string {
	return fmt.Sprintf("no such user %q", e.Username)
}

// CorruptRecordError is returned when the record of the user lacks key
// material.
type CorruptRecordError struct {
	Username string
	// Missing is "kek" or "vek".
	Missing string
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("record of %q has no wrapped %s", e.Username, e.Missing)
}

// RecordStoreError is returned when the record store cannot be read.
type RecordStoreError struct {
	Err error
}

func (e *RecordStoreError) Error() string {
	return fmt.Sprintf("cannot look up authentication record: %v", e.Err)
}

func (e *RecordStoreError) Unwrap() error {
	return e.Err
}

// EnvironmentBindingError is returned when the credentials cannot be made
// available to the rest of the boot.
type EnvironmentBindingError struct {
	Err error
}

func (e *EnvironmentBindingError) Error() string {
	return fmt.Sprintf("cannot bind unlock environment: %v", e.Err)
}

func (e *EnvironmentBindingError) Unwrap() error {
	return e.Err
}

// UnwrapError carries the unwrap status verbatim.
type UnwrapError struct {
	Code keyunwrap.Status
	Err  error
}

func (e *UnwrapError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("cannot unwrap key: %s", e.Code)
}

func (e *UnwrapError) Unwrap() error {
	return e.Err
}

// VolumeApplyError is returned when a data volume could not be unlocked.
// Later volumes were not attempted.
type VolumeApplyError struct {
	Volume string
	Code   luks2.Status
	Err    error
}

func (e *VolumeApplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot unlock data volume %s (%s): %v", e.Volume, e.Code, e.Err)
	}
	return fmt.Sprintf("cannot unlock data volume %s (%s)", e.Volume, e.Code)
}

func (e *VolumeApplyError) Unwrap() error {
	return e.Err
}
