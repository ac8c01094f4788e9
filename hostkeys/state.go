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

package hostkeys

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/snapcore/remote-unlock/osutil"
)

// StateFilename is the name of the remote unlock state file in the
// per-domain preboot directory.
const StateFilename = "remote-unlock.yaml"

// State says whether remote unlock is offered in the initramfs.
type State struct {
	Enabled bool `yaml:"enabled"`
}

// ReadState reads the state file in dir. A missing file means enabled.
func ReadState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, StateFilename))
	if os.IsNotExist(err) {
		return &State{Enabled: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read remote unlock state: %v", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("cannot parse remote unlock state: %v", err)
	}
	return &st, nil
}

// EnsureState creates an enabled state file in dir unless one exists. It
// reports whether the file was created.
func EnsureState(dir string) (bool, error) {
	path := filepath.Join(dir, StateFilename)
	if osutil.FileExists(path) {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, err
	}
	data, err := yaml.Marshal(&State{Enabled: true})
	if err != nil {
		return false, err
	}
	if err := osutil.AtomicWriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("cannot write remote unlock state: %v", err)
	}
	return true, nil
}
