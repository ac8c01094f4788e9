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

// Package unlock drives a single unlock attempt of an encryption domain,
// from a mount path and a password to opened data volumes.
package unlock

import (
	"errors"

	"github.com/snapcore/remote-unlock/keyunwrap"
	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/luks2"
	"github.com/snapcore/remote-unlock/osutil/disks"
	"github.com/snapcore/remote-unlock/prelogin"
	"github.com/snapcore/remote-unlock/secret"
)

// Topology resolves mount paths and enumerates data volumes.
type Topology interface {
	DiskFromPath(path string) (disks.Disk, error)
	DataVolumes(domain string) ([]disks.DataVolume, error)
}

// RecordStore looks up authentication records. A missing record is
// (nil, nil).
type RecordStore interface {
	Lookup(username, domain string) (*prelogin.Record, error)
}

// userLister is implemented by record stores that can enumerate the users
// provisioned in a domain.
type userLister interface {
	Users(domain string) ([]string, error)
}

// Unwrapper turns a password and wrapped keys into a volume key.
type Unwrapper interface {
	BindEnvironment(username string, password []byte) error
	Unwrap(domain, username string, password, wrappedKEK, wrappedVEK []byte) (*secret.Buffer, error)
}

// PolicyVerifier checks the unwrapped volume key of domain, and the unlock
// by username, before it is applied to the data volumes.
type PolicyVerifier interface {
	Verify(username, domain string, volumes []disks.DataVolume, vek []byte) error
}

// Verifiers runs several verifiers in order and reports every failure.
type Verifiers []PolicyVerifier

func (vs Verifiers) Verify(username, domain string, volumes []disks.DataVolume, vek []byte) error {
	var errs []error
	for _, v := range vs {
		if err := v.Verify(username, domain, volumes, vek); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// VolumeActivator opens a data volume with the volume key.
type VolumeActivator interface {
	Activate(volumeName, devicePath string, key []byte) (luks2.Status, error)
}

// Attempt is one unlock request. Unlock wipes Password before returning.
type Attempt struct {
	MountPath string
	Username  string
	Password  *secret.Buffer
}

// Result describes a successful unlock.
type Result struct {
	VolumeUUID string
	Domain     string
	// Volumes lists the data volumes in the order they were applied.
	Volumes []disks.DataVolume
	// AlreadyActive holds the mapper names of volumes that were unlocked
	// before this attempt.
	AlreadyActive []string
}

// Unlocker composes the services needed for an unlock. Policy may be nil.
type Unlocker struct {
	Topology Topology
	Records  RecordStore
	Keys     Unwrapper
	Policy   PolicyVerifier
	Volumes  VolumeActivator
}

// Unlock runs the attempt. Each step either succeeds or ends the attempt
// with one of the error types of this package.
func (u *Unlocker) Unlock(a *Attempt) (*Result, error) {
	defer a.Password.Wipe()

	// ResolveDisk
	d, err := u.Topology.DiskFromPath(a.MountPath)
	if err != nil {
		return nil, &TopologyError{Step: "resolve disk of " + a.MountPath, Err: err}
	}

	// ResolveDomain
	volUUID, err := d.VolumeUUID()
	if err != nil {
		return nil, topologyOrIdentifierError("resolve volume uuid", err)
	}
	domain, err := d.EncryptionDomain()
	if err != nil {
		return nil, topologyOrIdentifierError("resolve encryption domain", err)
	}
	logger.Debugf("%s is volume %s of encryption domain %s", a.MountPath, volUUID, domain)

	// EnumerateDataVolumes
	vols, err := u.Topology.DataVolumes(domain)
	if err != nil {
		return nil, topologyOrIdentifierError("enumerate data volumes", err)
	}

	// LookupRecord
	rec, err := u.Records.Lookup(a.Username, domain)
	if err != nil {
		return nil, &RecordStoreError{Err: err}
	}
	if rec == nil {
		logProvisionedUsers(u.Records, domain)
		return nil, &NoSuchUserError{Username: a.Username}
	}
	if len(rec.WrappedKEK) == 0 {
		return nil, &CorruptRecordError{Username: a.Username, Missing: "kek"}
	}
	if len(rec.WrappedVEK) == 0 {
		return nil, &CorruptRecordError{Username: a.Username, Missing: "vek"}
	}

	// UnwrapKeys
	if err := u.Keys.BindEnvironment(a.Username, a.Password.Bytes()); err != nil {
		return nil, &EnvironmentBindingError{Err: err}
	}
	vek, err := u.Keys.Unwrap(domain, a.Username, a.Password.Bytes(), rec.WrappedKEK, rec.WrappedVEK)
	defer vek.Wipe()
	if err != nil {
		return nil, &UnwrapError{Code: keyunwrap.StatusOf(err), Err: err}
	}

	// VerifyPolicy
	if u.Policy != nil {
		if err := u.Policy.Verify(a.Username, domain, vols, vek.Bytes()); err != nil {
			logger.Noticef("WARNING: policy verification failed for %q: %v", a.Username, err)
		}
	}

	// ApplyToDataVolumes
	res := &Result{
		VolumeUUID: volUUID,
		Domain:     domain,
		Volumes:    vols,
	}
	for _, vol := range vols {
		name := vol.MapperName()
		st, err := u.Volumes.Activate(name, vol.Path, vek.Bytes())
		switch st {
		case luks2.StatusSuccess:
			logger.Noticef("unlocked %s as %s", vol.Path, name)
		case luks2.StatusAlreadyActive:
			logger.Noticef("%s was already unlocked", vol.Path)
			res.AlreadyActive = append(res.AlreadyActive, name)
		default:
			return nil, &VolumeApplyError{Volume: vol.Path, Code: st, Err: err}
		}
	}
	return res, nil
}

func logProvisionedUsers(records RecordStore, domain string) {
	lister, ok := records.(userLister)
	if !ok {
		return
	}
	users, err := lister.Users(domain)
	if err != nil {
		logger.Debugf("cannot list users of %s: %v", domain, err)
		return
	}
	logger.Noticef("%d users can unlock %s", len(users), domain)
}

func topologyOrIdentifierError(step string, err error) error {
	var uuidErr *disks.InvalidUUIDError
	if errors.As(err, &uuidErr) {
		return &InvalidIdentifierError{Value: uuidErr.Value, Err: err}
	}
	return &TopologyError{Step: step, Err: err}
}
