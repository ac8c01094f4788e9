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

package dirs

import (
	"path/filepath"
)

// the various file paths
var (
	GlobalRootDir string

	// InitrdReleaseFile exists only inside an initramfs built by
	// dracut or systemd's mkosi-initrd.
	InitrdReleaseFile string

	// RemoteUnlockRunDir keeps transient state (lockout counters,
	// banner, decrypted host keys) that must not survive a reboot.
	RemoteUnlockRunDir string
	LockoutStateFile   string
	SSHBannerFile      string
	SSHDRunDir         string

	// RemoteUnlockConfFile is the optional configuration file.
	RemoteUnlockConfFile string

	// DefaultPrebootDir is the unencrypted location holding the
	// pre-login database and the per-domain host key copies.
	DefaultPrebootDir string

	SSHConfigDir string
	MapperDir    string
	ProcSelfDir  string

	LocaleDir string
)

// PreloginDBUnder returns the path of the pre-login database in the
// given preboot directory.
func PreloginDBUnder(prebootDir string) string {
	return filepath.Join(prebootDir, "prelogin.db")
}

// SSHDPrebootDirUnder returns the directory holding the host key copies for
// the given encryption domain.
func SSHDPrebootDirUnder(prebootDir, domain string) string {
	return filepath.Join(prebootDir, domain, "var", "db", "sshd")
}

// SetRootDir allows settings a different root directory for all the
// paths. This is useful mainly for the tests.
func SetRootDir(rootdir string) {
	if rootdir == "" {
		rootdir = "/"
	}
	GlobalRootDir = rootdir

	InitrdReleaseFile = filepath.Join(rootdir, "/etc/initrd-release")

	RemoteUnlockRunDir = filepath.Join(rootdir, "/run/remote-unlock")
	LockoutStateFile = filepath.Join(RemoteUnlockRunDir, "lockout.json")
	SSHBannerFile = filepath.Join(RemoteUnlockRunDir, "banner")
	SSHDRunDir = filepath.Join(rootdir, "/run/sshd")

	RemoteUnlockConfFile = filepath.Join(rootdir, "/etc/remote-unlock.conf")
	DefaultPrebootDir = filepath.Join(rootdir, "/boot/remote-unlock")

	SSHConfigDir = filepath.Join(rootdir, "/etc/ssh")
	MapperDir = filepath.Join(rootdir, "/dev/mapper")
	ProcSelfDir = filepath.Join(rootdir, "/proc/self")

	LocaleDir = filepath.Join(rootdir, "/usr/share/locale")
}

func init() {
	SetRootDir("/")
}
