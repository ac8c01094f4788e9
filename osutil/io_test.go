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

	. "gopkg.in/check.v1"

	"github.com/snapcore/remote-unlock/osutil"
)

type AtomicWriteTestSuite struct{}

var _ = Suite(&AtomicWriteTestSuite{})

func (ts *AtomicWriteTestSuite) TestAtomicWriteFile(c *C) {
	tmpdir := c.MkDir()

	p := filepath.Join(tmpdir, "foo")
	err := osutil.AtomicWriteFile(p, []byte("canary"), 0644)
	c.Assert(err, IsNil)

	c.Check(p, testFileContent, "canary")

	// no files left behind!
	d, err := os.ReadDir(tmpdir)
	c.Assert(err, IsNil)
	c.Assert(len(d), Equals, 1)
}

func (ts *AtomicWriteTestSuite) TestAtomicWriteFilePermissions(c *C) {
	tmpdir := c.MkDir()

	p := filepath.Join(tmpdir, "foo")
	err := osutil.AtomicWriteFile(p, []byte(""), 0600)
	c.Assert(err, IsNil)

	st, err := os.Stat(p)
	c.Assert(err, IsNil)
	c.Assert(st.Mode()&os.ModePerm, Equals, os.FileMode(0600))
}

func (ts *AtomicWriteTestSuite) TestAtomicWriteFileOverwrite(c *C) {
	tmpdir := c.MkDir()
	p := filepath.Join(tmpdir, "foo")
	c.Assert(os.WriteFile(p, []byte("hello"), 0644), IsNil)
	c.Assert(osutil.AtomicWriteFile(p, []byte("hi"), 0600), IsNil)

	c.Check(p, testFileContent, "hi")
}

func (ts *AtomicWriteTestSuite) TestAtomicWriteFileNoDir(c *C) {
	p := filepath.Join(c.MkDir(), "missing", "foo")
	err := osutil.AtomicWriteFile(p, []byte("hi"), 0600)
	c.Check(err, ErrorMatches, ".*no such file or directory")
}

func (ts *AtomicWriteTestSuite) TestAtomicWriteFileFailureLeavesNothing(c *C) {
	tmpdir := c.MkDir()
	// a directory cannot be replaced by a file
	p := filepath.Join(tmpdir, "foo")
	c.Assert(os.Mkdir(p, 0755), IsNil)

	err := osutil.AtomicWriteFile(p, []byte("hi"), 0600)
	c.Assert(err, NotNil)

	d, err := os.ReadDir(tmpdir)
	c.Assert(err, IsNil)
	c.Assert(d, HasLen, 1)
	c.Check(d[0].Name(), Equals, "foo")
	c.Check(d[0].IsDir(), Equals, true)
}

type fileContentChecker struct {
	*CheckerInfo
}

// testFileContent avoids an import cycle with testutil, which uses osutil.
var testFileContent Checker = &fileContentChecker{
	&CheckerInfo{Name: "testFileContent", Params: []string{"filename", "content"}},
}

func (*fileContentChecker) Check(params []interface{}, names []string) (bool, string) {
	content, err := os.ReadFile(params[0].(string))
	if err != nil {
		return false, err.Error()
	}
	return string(content) == params[1].(string), ""
}
