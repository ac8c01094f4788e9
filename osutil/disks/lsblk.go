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

package disks

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/snapcore/remote-unlock/osutil"
)

// lsblkOutput represents the lsblk --json output format.
type lsblkOutput struct {
	BlockDevices []blockDevice `json:"blockdevices"`
}

type blockDevice struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	MajMin   string        `json:"maj:min"`
	Type     string        `json:"type"`
	FSType   string        `json:"fstype"`
	UUID     string        `json:"uuid"`
	PartUUID string        `json:"partuuid"`
	PTUUID   string        `json:"ptuuid"`
	Children []blockDevice `json:"children"`
}

var lsblkOutputFn = func() ([]byte, error) {
	cmd := exec.Command("lsblk", "--json", "--tree",
		"-o", "NAME,PATH,MAJ:MIN,TYPE,FSTYPE,UUID,PARTUUID,PTUUID")
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, osutil.OutputErr(exitErr.Stderr, err)
		}
		return nil, err
	}
	return out, nil
}

func lsblkDevices() ([]blockDevice, error) {
	out, err := lsblkOutputFn()
	if err != nil {
		return nil, fmt.Errorf("cannot list block devices: %v", err)
	}
	var info lsblkOutput
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("cannot parse lsblk output: %v", err)
	}
	return info.BlockDevices, nil
}

// findChain returns the path from a top level device down to the first
// device matching pred, or nil.
func findChain(devices []blockDevice, pred func(*blockDevice) bool) []*blockDevice {
	for i := range devices {
		dev := &devices[i]
		if pred(dev) {
			return []*blockDevice{dev}
		}
		if sub := findChain(dev.Children, pred); sub != nil {
			return append([]*blockDevice{dev}, sub...)
		}
	}
	return nil
}
