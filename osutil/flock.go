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

package osutil

import (
	"os"

	"golang.org/x/sys/unix"
)

// FileLock is an advisory flock(2) lock on a file. Locks taken through
// different FileLocks exclude each other, also within one process.
type FileLock struct {
	file *os.File
}

// NewFileLock opens, creating it if needed, the lock file at path.
func NewFileLock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0600)
	if err != nil {
		return nil, err
	}
	return &FileLock{file: f}, nil
}

// Lock takes an exclusive lock, waiting for it to become free.
func (l *FileLock) Lock() error {
	return unix.Flock(int(l.file.Fd()), unix.LOCK_EX)
}

// ReadLock takes a shared lock, waiting while an exclusive lock is held.
func (l *FileLock) ReadLock() error {
	return unix.Flock(int(l.file.Fd()), unix.LOCK_SH)
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	return unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
}

// Close closes the lock file, which also releases the lock.
func (l *FileLock) Close() error {
	return l.file.Close()
}
