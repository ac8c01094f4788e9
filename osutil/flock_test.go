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
	"path/filepath"
	"time"

	. "gopkg.in/check.v1"

	"github.com/snapcore/remote-unlock/osutil"
)

type flockSuite struct{}

var _ = Suite(&flockSuite{})

func (s *flockSuite) TestLockExcludes(c *C) {
	path := filepath.Join(c.MkDir(), "lock")
	l1, err := osutil.NewFileLock(path)
	c.Assert(err, IsNil)
	defer l1.Close()
	l2, err := osutil.NewFileLock(path)
	c.Assert(err, IsNil)
	defer l2.Close()

	c.Assert(l1.Lock(), IsNil)
	locked := make(chan struct{})
	go func() {
		l2.Lock()
		close(locked)
	}()

	select {
	case <-locked:
		c.Fatal("second lock acquired while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	c.Assert(l1.Unlock(), IsNil)
	select {
	case <-locked:
	case <-time.After(5 * time.Second):
		c.Fatal("second lock not acquired after unlock")
	}
	c.Check(l2.Unlock(), IsNil)
}

func (s *flockSuite) TestReadLocksShare(c *C) {
	path := filepath.Join(c.MkDir(), "lock")
	l1, err := osutil.NewFileLock(path)
	c.Assert(err, IsNil)
	defer l1.Close()
	l2, err := osutil.NewFileLock(path)
	c.Assert(err, IsNil)
	defer l2.Close()

	c.Assert(l1.ReadLock(), IsNil)
	c.Assert(l2.ReadLock(), IsNil)
}

func (s *flockSuite) TestCloseReleases(c *C) {
	path := filepath.Join(c.MkDir(), "lock")
	l1, err := osutil.NewFileLock(path)
	c.Assert(err, IsNil)
	c.Assert(l1.Lock(), IsNil)
	c.Assert(l1.Close(), IsNil)

	l2, err := osutil.NewFileLock(path)
	c.Assert(err, IsNil)
	defer l2.Close()
	c.Check(l2.Lock(), IsNil)
}
