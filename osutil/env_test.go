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

	. "gopkg.in/check.v1"

	"github.com/snapcore/remote-unlock/osutil"
)

type envSuite struct{}

var _ = Suite(&envSuite{})

const envKey = "__REMOTE_UNLOCK_TEST_BOOL__"

func (s *envSuite) TearDownTest(c *C) {
	os.Unsetenv(envKey)
}

func (s *envSuite) TestGetenvBool(c *C) {
	os.Unsetenv(envKey)
	c.Check(osutil.GetenvBool(envKey), Equals, false)

	for _, t := range []struct {
		val string
		exp bool
	}{
		{"1", true},
		{"t", true},
		{"TRUE", true},
		{"", false},
		{"0", false},
		{"FALSE", false},
		{"potato", false},
	} {
		os.Setenv(envKey, t.val)
		c.Check(osutil.GetenvBool(envKey), Equals, t.exp, Commentf("%q", t.val))
	}
}

func (s *envSuite) TestIsTestBinary(c *C) {
	c.Check(osutil.IsTestBinary(), Equals, true)
}
