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

package keyunwrap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"

	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/osutil"
)

var (
	timeNow         = time.Now
	atomicWriteFile = osutil.AtomicWriteFile
)

// LockoutPolicy controls how failed password attempts are throttled.
type LockoutPolicy struct {
	// MaxAttempts is the number of consecutive failures after which the
	// user is locked out.
	MaxAttempts int
	// Delay is the first lockout period. Each further failure doubles it.
	Delay time.Duration
	// MaxDelay caps the lockout period.
	MaxDelay time.Duration
}

// DefaultLockoutPolicy is used when no configuration overrides it.
var DefaultLockoutPolicy = LockoutPolicy{
	MaxAttempts: 5,
	Delay:       30 * time.Second,
	MaxDelay:    time.Hour,
}

type lockoutEntry struct {
	Failures    int        `json:"failures"`
	LockedUntil *time.Time `json:"locked-until,omitempty"`
}

// Lockout tracks failed attempts per user and encryption domain in a state
// file. A nil Lockout never locks anybody out.
type Lockout struct {
	path   string
	policy LockoutPolicy
}

// NewLockout returns a Lockout keeping its state in the given file.
func NewLockout(path string, policy LockoutPolicy) *Lockout {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultLockoutPolicy.MaxAttempts
	}
	if policy.Delay <= 0 {
		policy.Delay = DefaultLockoutPolicy.Delay
	}
	if policy.MaxDelay < policy.Delay {
		policy.MaxDelay = policy.Delay
	}
	return &Lockout{path: path, policy: policy}
}

func lockoutKey(domain, username string) string {
	return domain + "/" + username
}

// lock serializes access to the state file between concurrent unlock
// sessions, each of which is a process of its own.
func (l *Lockout) lock(exclusive bool) (*osutil.FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return nil, err
	}
	lock, err := osutil.NewFileLock(l.path + ".lock")
	if err != nil {
		return nil, xerrors.Errorf("cannot open lockout state lock: %w", err)
	}
	if exclusive {
		err = lock.Lock()
	} else {
		err = lock.ReadLock()
	}
	if err != nil {
		lock.Close()
		return nil, xerrors.Errorf("cannot lock lockout state: %w", err)
	}
	return lock, nil
}

func (l *Lockout) load() (map[string]*lockoutEntry, error) {
	state := make(map[string]*lockoutEntry)
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, xerrors.Errorf("cannot decode lockout state: %w", err)
	}
	return state, nil
}

func (l *Lockout) save(state map[string]*lockoutEntry) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return atomicWriteFile(l.path, data, 0600)
}

// update runs modify on the state under the exclusive lock and saves the
// result if modify reports a change.
func (l *Lockout) update(modify func(state map[string]*lockoutEntry) bool) error {
	lock, err := l.lock(true)
	if err != nil {
		return err
	}
	defer lock.Close()

	state, err := l.load()
	if err != nil {
		return err
	}
	if !modify(state) {
		return nil
	}
	return l.save(state)
}

// Check returns an error with StatusLockedOut if the user may not try a
// password right now.
func (l *Lockout) Check(domain, username string) error {
	if l == nil {
		return nil
	}
	lock, err := l.lock(false)
	if err != nil {
		return &Error{Status: StatusInternalError, Err: err}
	}
	defer lock.Close()

	state, err := l.load()
	if err != nil {
		return &Error{Status: StatusInternalError, Err: err}
	}
	e := state[lockoutKey(domain, username)]
	if e == nil || e.LockedUntil == nil {
		return nil
	}
	if now := timeNow(); now.Before(*e.LockedUntil) {
		return &Error{
			Status: StatusLockedOut,
			Err:    xerrors.Errorf("%d failed attempts, retry in %v", e.Failures, e.LockedUntil.Sub(now).Round(time.Second)),
		}
	}
	return nil
}

// Failed records a failed attempt.
func (l *Lockout) Failed(domain, username string) error {
	if l == nil {
		return nil
	}
	return l.update(func(state map[string]*lockoutEntry) bool {
		key := lockoutKey(domain, username)
		e := state[key]
		if e == nil {
			e = &lockoutEntry{}
			state[key] = e
		}
		e.Failures++
		if over := e.Failures - l.policy.MaxAttempts; over >= 0 {
			delay := l.policy.Delay
			for i := 0; i < over && delay < l.policy.MaxDelay; i++ {
				delay *= 2
			}
			if delay > l.policy.MaxDelay {
				delay = l.policy.MaxDelay
			}
			until := timeNow().Add(delay)
			e.LockedUntil = &until
			logger.Noticef("user %q locked out of %s for %v after %d failed attempts", username, domain, delay, e.Failures)
		}
		return true
	})
}

// Succeeded clears the failure count of the user.
func (l *Lockout) Succeeded(domain, username string) error {
	if l == nil {
		return nil
	}
	return l.update(func(state map[string]*lockoutEntry) bool {
		key := lockoutKey(domain, username)
		if _, ok := state[key]; !ok {
			return false
		}
		delete(state, key)
		return true
	})
}
