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

package main_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing/iotest"

	. "gopkg.in/check.v1"
	"golang.org/x/sys/unix"

	main "github.com/snapcore/remote-unlock/cmd/remote-unlock"
	"github.com/snapcore/remote-unlock/testutil"
)

type passwordSuite struct {
	testutil.BaseTest

	stderr *bytes.Buffer
}

var _ = Suite(&passwordSuite{})

func (s *passwordSuite) SetUpTest(c *C) {
	s.BaseTest.SetUpTest(c)
	s.stderr = &bytes.Buffer{}
	s.AddCleanup(testutil.Backup(&main.Stderr))
	main.Stderr = s.stderr
}

func (s *passwordSuite) TestPipePassword(c *C) {
	for _, t := range []struct {
		input    string
		password string
		err      error
	}{
		{input: "hunter2\x00", password: "hunter2"},
		{input: "\x00", password: ""},
		{input: "", err: main.ErrNoInput},
		{input: "hunter2", err: main.ErrMalformedInput},
		{input: "hunter2\n", err: main.ErrMalformedInput},
		{input: "hun\x00ter2\x00", err: main.ErrMalformedInput},
		{input: "\x00\x00", err: main.ErrMalformedInput},
	} {
		buf, err := main.ReadPipePassword(strings.NewReader(t.input))
		if t.err != nil {
			c.Check(err, Equals, t.err, Commentf("%q", t.input))
			c.Check(buf, IsNil)
			continue
		}
		c.Assert(err, IsNil, Commentf("%q", t.input))
		c.Check(string(buf.Bytes()), Equals, t.password)
		buf.Wipe()
	}
}

func (s *passwordSuite) TestPipePasswordReadError(c *C) {
	_, err := main.ReadPipePassword(iotest.ErrReader(errors.New("boom")))
	c.Check(err, ErrorMatches, "cannot read password: boom")
}

// recordingReader hands out input and remembers every slice it wrote to.
type recordingReader struct {
	input   []byte
	written [][]byte
}

func (r *recordingReader) Read(p []byte) (int, error) {
	if len(r.input) == 0 {
		return 0, io.EOF
	}
	// small reads, like a pipe
	n := copy(p[:min(len(p), 100)], r.input)
	r.input = r.input[n:]
	r.written = append(r.written, p[:n])
	return n, nil
}

func (r *recordingReader) leftovers() int {
	count := 0
	for _, p := range r.written {
		for _, b := range p {
			if b != 0 {
				count++
			}
		}
	}
	return count
}

func (s *passwordSuite) TestPipePasswordLeavesNoCopies(c *C) {
	r := &recordingReader{input: []byte(strings.Repeat("S", 1000) + "\x00")}
	buf, err := main.ReadPipePassword(r)
	c.Assert(err, IsNil)
	c.Check(buf.Len(), Equals, 1000)
	buf.Wipe()
	c.Check(r.leftovers(), Equals, 0)
}

func (s *passwordSuite) TestPipePasswordTooLong(c *C) {
	r := &recordingReader{input: []byte(strings.Repeat("S", 2000) + "\x00")}
	buf, err := main.ReadPipePassword(r)
	c.Check(err, Equals, main.ErrPasswordTooLong)
	c.Check(buf, IsNil)
	c.Check(r.leftovers(), Equals, 0)

	// the longest password still fits
	r = &recordingReader{input: []byte(strings.Repeat("S", 1024) + "\x00")}
	buf, err = main.ReadPipePassword(r)
	c.Assert(err, IsNil)
	c.Check(buf.Len(), Equals, 1024)
	buf.Wipe()
	c.Check(r.leftovers(), Equals, 0)
}

func (s *passwordSuite) TestPipePasswordMalformedWiped(c *C) {
	r := &recordingReader{input: []byte("hun\x00ter2\x00")}
	_, err := main.ReadPipePassword(r)
	c.Check(err, Equals, main.ErrMalformedInput)
	c.Check(r.leftovers(), Equals, 0)
}

func (s *passwordSuite) TestTerminalPassword(c *C) {
	for _, t := range []struct {
		input    string
		password string
		err      error
	}{
		{input: "hunter2\n", password: "hunter2"},
		{input: "hunter2\nsomething else\n", password: "hunter2"},
		{input: "hunter2", password: "hunter2"},
		{input: "with\x00nul\n", password: "with\x00nul"},
		{input: "\n", password: ""},
		{input: "", err: main.ErrNoInput},
	} {
		buf, err := main.ReadTerminalPassword(iotest.OneByteReader(strings.NewReader(t.input)))
		if t.err != nil {
			c.Check(err, Equals, t.err, Commentf("%q", t.input))
			continue
		}
		c.Assert(err, IsNil, Commentf("%q", t.input))
		c.Check(string(buf.Bytes()), Equals, t.password)
		buf.Wipe()
	}
}

func (s *passwordSuite) TestTerminalPasswordCapacity(c *C) {
	buf, err := main.ReadTerminalPassword(strings.NewReader(strings.Repeat("a", 2000) + "\n"))
	c.Assert(err, IsNil)
	c.Check(buf.Len(), Equals, 1024)
}

func (s *passwordSuite) TestTerminalPasswordReadError(c *C) {
	_, err := main.ReadTerminalPassword(iotest.ErrReader(errors.New("boom")))
	c.Check(err, ErrorMatches, "cannot read password: boom")
}

func (s *passwordSuite) writeInput(c *C, content string) *os.File {
	path := filepath.Join(c.MkDir(), "stdin")
	c.Assert(os.WriteFile(path, []byte(content), 0600), IsNil)
	f, err := os.Open(path)
	c.Assert(err, IsNil)
	s.AddCleanup(func() { f.Close() })
	return f
}

func (s *passwordSuite) TestReadPasswordTerminalDisablesEcho(c *C) {
	f := s.writeInput(c, "hunter2\n")

	orig := &unix.Termios{Lflag: unix.ECHO | unix.ICANON}
	var set []unix.Termios
	restore := main.MockTerminal(func(fd int) bool {
		c.Check(fd, Equals, int(f.Fd()))
		return true
	}, func(fd int, req uint) (*unix.Termios, error) {
		c.Check(req, Equals, uint(unix.TCGETS))
		return orig, nil
	}, func(fd int, req uint, t *unix.Termios) error {
		c.Check(req, Equals, uint(unix.TCSETS))
		set = append(set, *t)
		return nil
	})
	defer restore()

	buf, err := main.ReadPassword(f)
	c.Assert(err, IsNil)
	defer buf.Wipe()
	c.Check(string(buf.Bytes()), Equals, "hunter2")

	c.Assert(set, HasLen, 2)
	c.Check(set[0].Lflag&unix.ECHO, Equals, uint32(0))
	c.Check(set[1], DeepEquals, *orig)
	c.Check(s.stderr.String(), Equals, "Password: \n")
}

func (s *passwordSuite) TestReadPasswordTerminalEchoError(c *C) {
	f := s.writeInput(c, "hunter2\n")
	restore := main.MockTerminal(func(int) bool { return true }, func(int, uint) (*unix.Termios, error) {
		return nil, errors.New("inappropriate ioctl")
	}, nil)
	defer restore()

	_, err := main.ReadPassword(f)
	c.Check(err, ErrorMatches, "cannot disable terminal echo: inappropriate ioctl")
}

func (s *passwordSuite) TestReadPasswordPipe(c *C) {
	f := s.writeInput(c, "hunter2\x00")
	buf, err := main.ReadPassword(f)
	c.Assert(err, IsNil)
	defer buf.Wipe()
	c.Check(string(buf.Bytes()), Equals, "hunter2")
	c.Check(s.stderr.Len(), Equals, 0)
}
