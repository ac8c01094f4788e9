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

package osutil_test

import (
	"os"
	"path/filepath"
	"strings"

	. "gopkg.in/check.v1"

	"github.com/snapcore/remote-unlock/dirs"
	"github.com/snapcore/remote-unlock/osutil"
)

type mountinfoSuite struct{}

var _ = Suite(&mountinfoSuite{})

func (s *mountinfoSuite) TearDownTest(c *C) {
	dirs.SetRootDir("")
}

func (s *mountinfoSuite) TestParseMountInfoEntry(c *C) {
	real := "36 35 98:0 /mnt1 /mnt2 rw,noatime master:1 - ext3 /dev/root rw,errors=continue"
	e, err := osutil.ParseMountInfoEntry(real)
	c.Assert(err, IsNil)
	c.Check(e, DeepEquals, &osutil.MountInfoEntry{
		MountID:        36,
		ParentID:       35,
		DevMajor:       98,
		DevMinor:       0,
		Root:           "/mnt1",
		MountDir:       "/mnt2",
		MountOptions:   "rw,noatime",
		OptionalFields: []string{"master:1"},
		FsType:         "ext3",
		MountSource:    "/dev/root",
		SuperOptions:   "rw,errors=continue",
	})
}

func (s *mountinfoSuite) TestParseMountInfoEntryEscapes(c *C) {
	e, err := osutil.ParseMountInfoEntry(`36 35 98:0 / /mnt\040with\040space rw - ext4 /dev/vda3 rw`)
	c.Assert(err, IsNil)
	c.Check(e.MountDir, Equals, "/mnt with space")
	c.Check(e.OptionalFields, HasLen, 0)
}

func (s *mountinfoSuite) TestParseMountInfoEntryErrors(c *C) {
	for _, tc := range []struct {
		line, err string
	}{
		{"36 35 98:0 /mnt1 /mnt2", "incorrect number of fields, expected at least 10 but found 5"},
		{"x 35 98:0 /mnt1 /mnt2 rw - ext3 /dev/root rw", `cannot parse mount ID: "x"`},
		{"36 35 98 /mnt1 /mnt2 rw - ext3 /dev/root rw", `cannot parse device major:minor number pair: "98"`},
		{"36 35 98:0 /mnt1 /mnt2 rw a b c d", "list of optional fields is not terminated properly"},
		{"36 35 98:0 /mnt1 /mnt2 rw - ext3 /dev/root rw extra", "incorrect number of tail fields, expected 3 but found 4"},
	} {
		_, err := osutil.ParseMountInfoEntry(tc.line)
		c.Check(err, ErrorMatches, tc.err, Commentf(tc.line))
	}
}

func (s *mountinfoSuite) TestLoadMountInfo(c *C) {
	dirs.SetRootDir(c.MkDir())
	content := strings.Join([]string{
		"25 0 252:3 / / rw,relatime shared:1 - ext4 /dev/vda3 rw",
		"30 25 252:2 / /sysroot rw,relatime shared:7 - ext4 /dev/vda2 rw",
	}, "\n")
	c.Assert(os.MkdirAll(dirs.ProcSelfDir, 0755), IsNil)
	c.Assert(os.WriteFile(filepath.Join(dirs.ProcSelfDir, "mountinfo"), []byte(content), 0644), IsNil)

	entries, err := osutil.LoadMountInfo()
	c.Assert(err, IsNil)
	c.Assert(entries, HasLen, 2)
	c.Check(entries[1].MountDir, Equals, "/sysroot")
	c.Check(entries[1].MountSource, Equals, "/dev/vda2")
}
