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
	"errors"

	. "gopkg.in/check.v1"

	"github.com/snapcore/remote-unlock/osutil"
)

type outputErrSuite struct{}

var _ = Suite(&outputErrSuite{})

func (s *outputErrSuite) TestOutputErr(c *C) {
	orig := errors.New("exit status 1")

	c.Check(osutil.OutputErr(nil, orig), Equals, orig)
	c.Check(osutil.OutputErr([]byte("  \n"), orig), Equals, orig)
	c.Check(osutil.OutputErr([]byte("boom\n"), orig), ErrorMatches, "boom")
	c.Check(osutil.OutputErr([]byte("line one\nline two\n"), orig), ErrorMatches, "\n-----\nline one\nline two\n-----")
}
