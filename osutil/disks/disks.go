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

// Package disks resolves mount points to partitions and their disk, and
// enumerates the encrypted data volumes sharing that disk.
package disks

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/osutil"
)

// ErrNoSuchDisk is returned when a path or encryption domain does not map to
// any known block device.
var ErrNoSuchDisk = errors.New("no such disk")

// InvalidUUIDError is returned when a block device reports an identifier
// that is not a well formed UUID.
type InvalidUUIDError struct {
	What  string
	Value string
}

func (e *InvalidUUIDError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.What, e.Value)
}

// Disk is the partition backing a mount point, together with the disk that
// holds it.
type Disk interface {
	// VolumeUUID returns the partition UUID of the volume.
	VolumeUUID() (string, error)
	// EncryptionDomain returns the partition table UUID of the disk the
	// volume lives on. All volumes unlocked together share it.
	EncryptionDomain() (string, error)
	// Dev returns the device node of the volume, e.g. /dev/vda2.
	Dev() string
}

// DataVolume is an encrypted volume belonging to an encryption domain.
type DataVolume struct {
	// Name is the kernel name, e.g. vda4
	Name string
	// Path is the device node, e.g. /dev/vda4
	Path string
	// UUID is the LUKS header UUID.
	UUID string
}

// MapperName returns the device-mapper name used when the volume is opened.
func (v DataVolume) MapperName() string {
	return "luks-" + v.UUID
}

func (v DataVolume) String() string {
	return fmt.Sprintf("%s (%s)", v.Path, v.UUID)
}

func validUUID(what, value string) (string, error) {
	u, err := uuid.Parse(value)
	if err != nil || len(value) != 36 {
		return "", &InvalidUUIDError{What: what, Value: value}
	}
	return u.String(), nil
}

type disk struct {
	part blockDevice
}

func (d *disk) Dev() string {
	return d.part.Path
}

func (d *disk) VolumeUUID() (string, error) {
	return validUUID("partition uuid", d.part.PartUUID)
}

func (d *disk) EncryptionDomain() (string, error) {
	return validUUID("partition table uuid", d.part.PTUUID)
}

// DiskFromPath finds the Disk backing the file system mounted at the given
// path. When the mount point is shadowed the last mount wins.
func DiskFromPath(path string) (Disk, error) {
	mounts, err := osutil.LoadMountInfo()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	var entry *osutil.MountInfoEntry
	for _, m := range mounts {
		if m.MountDir == path {
			entry = m
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("cannot find mount point %q: %w", path, ErrNoSuchDisk)
	}
	majMin := fmt.Sprintf("%d:%d", entry.DevMajor, entry.DevMinor)

	devices, err := lsblkDevices()
	if err != nil {
		return nil, err
	}
	chain := findChain(devices, func(dev *blockDevice) bool {
		return dev.MajMin == majMin
	})
	if chain == nil {
		return nil, fmt.Errorf("cannot find block device %s mounted at %q: %w", majMin, path, ErrNoSuchDisk)
	}
	// the mount source may be a device-mapper target stacked on top of the
	// partition, pick the closest partition
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Type == "part" {
			logger.Debugf("mount point %q is backed by partition %s", path, chain[i].Path)
			return &disk{part: *chain[i]}, nil
		}
	}
	return nil, fmt.Errorf("cannot find partition for %s mounted at %q: %w", entry.MountSource, path, ErrNoSuchDisk)
}

// DataVolumes returns the complete set of LUKS volumes on the disk whose
// partition table UUID is domain. A volume with incomplete or inconsistent
// information makes the whole lookup fail.
func DataVolumes(domain string) ([]DataVolume, error) {
	domain, err := validUUID("encryption domain", domain)
	if err != nil {
		return nil, err
	}
	devices, err := lsblkDevices()
	if err != nil {
		return nil, err
	}

	var found bool
	var vols []DataVolume
	for _, dev := range devices {
		if dev.Type != "disk" || !strings.EqualFold(dev.PTUUID, domain) {
			continue
		}
		found = true
		for _, part := range dev.Children {
			if part.FSType == "" && part.PartUUID == "" {
				// udev has not seen it, it may well be a LUKS volume
				name := part.Path
				if name == "" {
					name = part.Name
				}
				return nil, fmt.Errorf("cannot enumerate data volumes of %s: no udev information for %q", domain, name)
			}
			if part.FSType != "crypto_LUKS" {
				continue
			}
			if part.Name == "" || part.Path == "" {
				return nil, fmt.Errorf("cannot enumerate data volumes of %s: incomplete lsblk information for %q", domain, part.Path+part.Name)
			}
			if !strings.EqualFold(part.PTUUID, domain) {
				return nil, fmt.Errorf("cannot enumerate data volumes of %s: volume %s reports encryption domain %q", domain, part.Path, part.PTUUID)
			}
			luksUUID, err := validUUID("volume uuid", part.UUID)
			if err != nil {
				return nil, err
			}
			vols = append(vols, DataVolume{
				Name: part.Name,
				Path: part.Path,
				UUID: luksUUID,
			})
		}
	}
	if !found {
		return nil, fmt.Errorf("cannot find disk for encryption domain %s: %w", domain, ErrNoSuchDisk)
	}
	return vols, nil
}

// Topology is the block device topology of the running system.
type Topology struct{}

// DiskFromPath is the same as the package level DiskFromPath.
func (Topology) DiskFromPath(path string) (Disk, error) {
	return DiskFromPath(path)
}

// DataVolumes is the same as the package level DataVolumes.
func (Topology) DataVolumes(domain string) ([]DataVolume, error) {
	return DataVolumes(domain)
}
