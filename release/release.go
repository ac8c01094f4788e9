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

// Package release tells whether the process runs inside an initramfs and
// what built it.
package release

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/snapcore/remote-unlock/dirs"
	"github.com/snapcore/remote-unlock/osutil"
)

// OS contains the initrd-release information of the initramfs.
type OS struct {
	ID         string
	VersionID  string
	PrettyName string
}

// ReadInitrdRelease returns the initrd-release information of the running
// initramfs.
func ReadInitrdRelease() (*OS, error) {
	f, err := os.Open(dirs.InitrdReleaseFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read initrd-release: %v", err)
	}
	defer f.Close()

	rel := &OS{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || strings.HasPrefix(k, "#") {
			continue
		}
		v = strings.Trim(v, `"'`)
		switch k {
		case "ID":
			rel.ID = v
		case "VERSION_ID":
			rel.VersionID = v
		case "PRETTY_NAME":
			rel.PrettyName = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read initrd-release: %v", err)
	}
	if rel.PrettyName == "" {
		rel.PrettyName = strings.TrimSpace(rel.ID + " " + rel.VersionID)
	}
	return rel, nil
}

// OnInitrd states whether the process is running from an initramfs.
var OnInitrd bool

func init() {
	OnInitrd = osutil.FileExists(dirs.InitrdReleaseFile)
}

// MockOnInitrd forces the process to appear inside or outside an initramfs
// for testing purposes.
func MockOnInitrd(onInitrd bool) (restore func()) {
	old := OnInitrd
	OnInitrd = onInitrd
	return func() { OnInitrd = old }
}
