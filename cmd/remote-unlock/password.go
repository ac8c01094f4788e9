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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/snapcore/remote-unlock/i18n"
	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/secret"
)

// maxPassword is the longest password accepted, in bytes.
const maxPassword = 1024

var (
	errNoInput         = errors.New("no password given")
	errMalformedInput  = errors.New("malformed input: the password must end with its only NUL byte")
	errPasswordTooLong = fmt.Errorf("malformed input: the password is longer than %d bytes", maxPassword)
)

var (
	termIsTerminal  = term.IsTerminal
	ioctlGetTermios = unix.IoctlGetTermios
	ioctlSetTermios = unix.IoctlSetTermios
)

// readPassword reads the password from f. From a terminal it reads one line
// with echo disabled; otherwise it reads a NUL terminated string making up
// the whole input.
func readPassword(f *os.File) (*secret.Buffer, error) {
	fd := int(f.Fd())
	if !termIsTerminal(fd) {
		return readPipePassword(f)
	}

	logger.Debugf("stdin is a terminal")
	fmt.Fprint(Stderr, i18n.G("Password: "))
	defer fmt.Fprintln(Stderr)
	restore, err := disableEcho(fd)
	if err != nil {
		return nil, fmt.Errorf("cannot disable terminal echo: %v", err)
	}
	defer restore()
	return readTerminalPassword(f)
}

func disableEcho(fd int) (restore func(), err error) {
	old, err := ioctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	t := *old
	t.Lflag &^= unix.ECHO
	t.Lflag |= unix.ICANON | unix.ISIG
	t.Iflag |= unix.ICRNL
	if err := ioctlSetTermios(fd, unix.TCSETS, &t); err != nil {
		return nil, err
	}
	return func() {
		if err := ioctlSetTermios(fd, unix.TCSETS, old); err != nil {
			logger.Noticef("cannot restore terminal: %v", err)
		}
	}, nil
}

// readTerminalPassword reads up to a newline, the end of input or the
// buffer capacity. The newline is not part of the password.
func readTerminalPassword(r io.Reader) (*secret.Buffer, error) {
	buf := secret.New(maxPassword)
	var b [1]byte
	defer clear(b[:])

	n := 0
	sawNewline := false
	for n < buf.Len() {
		nr, err := r.Read(b[:])
		if nr == 1 {
			if b[0] == '\n' {
				sawNewline = true
				break
			}
			buf.Bytes()[n] = b[0]
			n++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			buf.Wipe()
			return nil, fmt.Errorf("cannot read password: %v", err)
		}
	}
	if n == 0 && !sawNewline {
		buf.Wipe()
		return nil, errNoInput
	}
	buf.Truncate(n)
	return buf, nil
}

// readPipePassword reads all of r, which must hold exactly one NUL byte as
// its last byte. The input is read straight into a single secret buffer so
// that no copy of the password is left behind.
func readPipePassword(r io.Reader) (*secret.Buffer, error) {
	// room for the NUL and one more byte to detect overlong input
	buf := secret.New(maxPassword + 2)
	n, err := io.ReadFull(r, buf.Bytes())
	switch err {
	case io.EOF, io.ErrUnexpectedEOF:
		// all of the input fits
	case nil:
		buf.Wipe()
		return nil, errPasswordTooLong
	default:
		buf.Wipe()
		return nil, fmt.Errorf("cannot read password: %v", err)
	}
	if n == 0 {
		buf.Wipe()
		return nil, errNoInput
	}
	if bytes.IndexByte(buf.Bytes()[:n], 0) != n-1 {
		buf.Wipe()
		return nil, errMalformedInput
	}
	buf.Truncate(n - 1)
	return buf, nil
}
