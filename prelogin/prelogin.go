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

// Package prelogin gives read access to the pre-login user database, which
// maps users of an encryption domain to their wrapped key material.
package prelogin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/snapcore/remote-unlock/logger"
)

// ErrNotAuthorized is returned when the process may not read the database,
// or when the Authorization was already closed.
var ErrNotAuthorized = errors.New("not authorized to access the pre-login database")

var (
	osGeteuid = os.Geteuid

	lockTimeout = 5 * time.Second
)

// Record is the authentication record of a user in one encryption domain.
type Record struct {
	WrappedKEK []byte `json:"kek"`
	WrappedVEK []byte `json:"vek"`
}

// Authorization is a process scoped handle on the pre-login database. It is
// acquired once and must be closed exactly once.
type Authorization struct {
	path string
	db   *bolt.DB
}

// Acquire checks that the process is privileged and opens the database at
// dbPath read-only.
func Acquire(dbPath string) (*Authorization, error) {
	if osGeteuid() != 0 {
		return nil, fmt.Errorf("cannot open %s: %w", dbPath, ErrNotAuthorized)
	}
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{
		ReadOnly: true,
		Timeout:  lockTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot open pre-login database: %v", err)
	}
	logger.Debugf("opened pre-login database %s", dbPath)
	return &Authorization{path: dbPath, db: db}, nil
}

// Close releases the database. Calling it again is a no-op.
func (a *Authorization) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	db := a.db
	a.db = nil
	return db.Close()
}

func (a *Authorization) view(fn func(tx *bolt.Tx) error) error {
	if a == nil || a.db == nil {
		return ErrNotAuthorized
	}
	return a.db.View(fn)
}

func bucketName(domain string) []byte {
	return []byte(strings.ToLower(domain))
}

// Lookup returns the record of username in the given encryption domain, or
// nil if there is none.
func (a *Authorization) Lookup(username, domain string) (*Record, error) {
	var rec *Record
	err := a.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(domain))
		if b == nil {
			logger.Debugf("no pre-login records for domain %s", domain)
			return nil
		}
		raw := b.Get([]byte(username))
		if raw == nil {
			return nil
		}
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("cannot decode record of %q in %s: %v", username, domain, err)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Users returns the sorted list of users with a record in the given
// encryption domain.
func (a *Authorization) Users(domain string) ([]string, error) {
	var users []string
	err := a.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(domain))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			users = append(users, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(users)
	return users, nil
}
