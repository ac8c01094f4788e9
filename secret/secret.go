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

// Package secret holds short-lived key material in memory that is locked
// against swapping and zeroed once it is no longer needed.
package secret

import (
	"golang.org/x/sys/unix"
)

var (
	mlock   = unix.Mlock
	munlock = unix.Munlock
)

// Buffer is a fixed size byte buffer for passwords and keys. The zero value
// is an empty buffer.
type Buffer struct {
	data   []byte
	locked bool
	wiped  bool
}

// New returns a zeroed buffer of the given size.
func New(size int) *Buffer {
	b := &Buffer{data: make([]byte, size)}
	b.lock()
	return b
}

// FromBytes moves src into a new buffer and zeroes src.
func FromBytes(src []byte) *Buffer {
	b := New(len(src))
	copy(b.data, src)
	clear(src)
	return b
}

func (b *Buffer) lock() {
	if len(b.data) == 0 {
		return
	}
	// not fatal, e.g. RLIMIT_MEMLOCK may be tiny in an initramfs
	if err := mlock(b.data); err == nil {
		b.locked = true
	}
}

// Bytes returns the buffer content. The returned slice aliases the buffer
// and becomes all zeroes after Wipe.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len returns the size of the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Truncate shrinks the visible content to n bytes, zeroing the tail.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > len(b.data) {
		panic("secret: truncation out of range")
	}
	clear(b.data[n:])
	b.data = b.data[:n]
}

// Wipe zeroes the buffer and releases the memory lock. It is safe to call
// more than once and on a nil buffer.
func (b *Buffer) Wipe() {
	if b == nil || b.wiped {
		return
	}
	clear(b.data[:cap(b.data)])
	if b.locked {
		munlock(b.data[:cap(b.data)])
		b.locked = false
	}
	b.data = b.data[:0]
	b.wiped = true
}

// Wiped returns whether Wipe was called.
func (b *Buffer) Wiped() bool {
	return b == nil || b.wiped
}
