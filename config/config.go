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

// Package config reads the optional remote-unlock configuration file.
//
// The file is in INI format:
//
//	[unlock]
//	mount-path = /sysroot
//	preboot-dir = /boot/remote-unlock
//	verify-key = true
//	verify-policy = false
//	policy-action = io.snapcraft.remote-unlock.unlock
//
//	[lockout]
//	max-attempts = 5
//	delay = 30s
//	max-delay = 1h
//
//	[sshd]
//	sshd = /usr/sbin/sshd
//	ssh-keygen = /usr/bin/ssh-keygen
//
// Every option is optional.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mvo5/goconfigparser"

	"github.com/snapcore/remote-unlock/dirs"
	"github.com/snapcore/remote-unlock/keyunwrap"
	"github.com/snapcore/remote-unlock/polkit"
)

// Config is the runtime configuration.
type Config struct {
	// MountPath is where the system volume is mounted in the initramfs.
	MountPath string
	// PrebootDir holds the pre-login database and the host key copies.
	PrebootDir string

	// VerifyKey tests the unwrapped key on every data volume before
	// activating any of them.
	VerifyKey bool
	// VerifyPolicy additionally asks polkit for PolicyAction.
	VerifyPolicy bool
	PolicyAction string

	Lockout keyunwrap.LockoutPolicy

	SSHD      string
	SSHKeygen string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MountPath:    "/sysroot",
		PrebootDir:   dirs.DefaultPrebootDir,
		VerifyKey:    true,
		VerifyPolicy: false,
		PolicyAction: polkit.UnlockActionID,
		Lockout:      keyunwrap.DefaultLockoutPolicy,
		SSHD:         "/usr/sbin/sshd",
		SSHKeygen:    "/usr/bin/ssh-keygen",
	}
}

// PreloginDB returns the path of the pre-login database.
func (c *Config) PreloginDB() string {
	return dirs.PreloginDBUnder(c.PrebootDir)
}

// Load reads the configuration file at its default location, falling back
// to the defaults if it does not exist.
func Load() (*Config, error) {
	return LoadFile(dirs.RemoteUnlockConfFile)
}

// LoadFile reads the configuration from the given file, falling back to the
// defaults if it does not exist.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("cannot read configuration: %v", err)
	}
	return parse(string(content), path)
}

func parse(content, origin string) (*Config, error) {
	conf := Default()
	cfg := goconfigparser.New()
	if err := cfg.ReadString(content); err != nil {
		return nil, fmt.Errorf("cannot parse configuration in %s: %v", origin, err)
	}
	if err := conf.apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %v", origin, err)
	}
	return conf, nil
}

func get(cfg *goconfigparser.ConfigParser, section, option string) (string, bool) {
	v, err := cfg.Get(section, option)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (c *Config) apply(cfg *goconfigparser.ConfigParser) error {
	strOpts := []struct {
		section, option string
		dst             *string
	}{
		{"unlock", "mount-path", &c.MountPath},
		{"unlock", "preboot-dir", &c.PrebootDir},
		{"unlock", "policy-action", &c.PolicyAction},
		{"sshd", "sshd", &c.SSHD},
		{"sshd", "ssh-keygen", &c.SSHKeygen},
	}
	for _, o := range strOpts {
		if v, ok := get(cfg, o.section, o.option); ok {
			*o.dst = v
		}
	}

	boolOpts := []struct {
		option string
		dst    *bool
	}{
		{"verify-key", &c.VerifyKey},
		{"verify-policy", &c.VerifyPolicy},
	}
	for _, o := range boolOpts {
		v, ok := get(cfg, "unlock", o.option)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("unlock.%s: %q is not a boolean", o.option, v)
		}
		*o.dst = b
	}

	if v, ok := get(cfg, "lockout", "max-attempts"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("lockout.max-attempts: %q is not a positive number", v)
		}
		c.Lockout.MaxAttempts = n
	}
	durOpts := []struct {
		option string
		dst    *time.Duration
	}{
		{"delay", &c.Lockout.Delay},
		{"max-delay", &c.Lockout.MaxDelay},
	}
	for _, o := range durOpts {
		v, ok := get(cfg, "lockout", o.option)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("lockout.%s: %q is not a positive duration", o.option, v)
		}
		*o.dst = d
	}
	if c.Lockout.MaxDelay < c.Lockout.Delay {
		return fmt.Errorf("lockout.max-delay %v is shorter than lockout.delay %v", c.Lockout.MaxDelay, c.Lockout.Delay)
	}
	return nil
}
