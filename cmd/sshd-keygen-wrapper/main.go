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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sys/unix"

	"github.com/snapcore/remote-unlock/config"
	"github.com/snapcore/remote-unlock/dirs"
	"github.com/snapcore/remote-unlock/hostkeys"
	"github.com/snapcore/remote-unlock/i18n"
	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/osutil"
	"github.com/snapcore/remote-unlock/osutil/disks"
	"github.com/snapcore/remote-unlock/release"
)

var (
	unixExec     = unix.Exec
	diskFromPath = disks.DiskFromPath
)

var (
	Stderr io.Writer = os.Stderr

	opts   struct{}
	parser *flags.Parser = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
)

var errDisabled = errors.New("remote unlock is disabled")

func init() {
	if release.OnInitrd {
		logger.BootSetup("sshd-keygen-wrapper")
	} else {
		logger.SimpleSetup()
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(osArgs1 []string) error {
	rest, err := parser.ParseArgs(osArgs1)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf(i18n.G("unexpected argument %q"), rest[0])
	}

	conf, err := config.Load()
	if err != nil {
		return err
	}

	systemPath := "/"
	if release.OnInitrd {
		systemPath = conf.MountPath
	}
	prebootDir := ""
	if domain, err := domainOf(systemPath); err != nil {
		logger.Noticef("cannot determine encryption domain: %v", err)
	} else {
		prebootDir = dirs.SSHDPrebootDirUnder(conf.PrebootDir, domain)
	}
	logger.Debugf("preboot host key directory: %q", prebootDir)

	var sshdArgs []string
	if release.OnInitrd {
		sshdArgs, err = prepareInitrd(conf, prebootDir)
	} else {
		sshdArgs, err = prepareInstalled(conf, prebootDir)
	}
	if err != nil {
		return err
	}
	return execSSHD(conf.SSHD, sshdArgs)
}

func domainOf(path string) (string, error) {
	d, err := diskFromPath(path)
	if err != nil {
		return "", err
	}
	return d.EncryptionDomain()
}

// prepareInstalled makes sure host keys exist and are copied for use by
// the initramfs.
func prepareInstalled(conf *config.Config, prebootDir string) ([]string, error) {
	mgr := &hostkeys.Manager{
		Keygen:  conf.SSHKeygen,
		KeysDir: dirs.SSHConfigDir,
		CopyDir: prebootDir,
	}
	for _, alg := range hostkeys.Algorithms {
		if generated, err := mgr.Generate(alg); err != nil {
			logger.Noticef("cannot generate %s host key: %v", alg, err)
		} else if generated {
			logger.Noticef("generated %s host key", alg)
		}
		if copied, err := mgr.Copy(alg); err != nil {
			logger.Noticef("cannot copy %s host key: %v", alg, err)
		} else if copied {
			logger.Noticef("copied %s host key to %s", alg, prebootDir)
		}
	}

	if prebootDir != "" {
		if _, err := hostkeys.EnsureState(prebootDir); err != nil {
			logger.Noticef("cannot create remote unlock state: %v", err)
		}
	}
	return []string{"-i"}, nil
}

// prepareInitrd restores the host keys copied by the installed system and
// writes the banner shown before authentication.
func prepareInitrd(conf *config.Config, prebootDir string) ([]string, error) {
	mgr := &hostkeys.Manager{
		Keygen:  conf.SSHKeygen,
		KeysDir: dirs.SSHDRunDir,
		CopyDir: prebootDir,
	}
	if prebootDir != "" {
		st, err := hostkeys.ReadState(prebootDir)
		if err != nil {
			return nil, err
		}
		if !st.Enabled {
			return nil, errDisabled
		}
	}

	args := []string{"-i"}
	if err := writeBanner(); err != nil {
		logger.Noticef("cannot create %s: %v", dirs.SSHBannerFile, err)
	}
	args = append(args, "-oBanner="+dirs.SSHBannerFile)

	nkeys := 0
	for _, alg := range hostkeys.Algorithms {
		path, err := hostKey(mgr, alg)
		if err != nil {
			logger.Noticef("cannot prepare %s host key: %v", alg, err)
			continue
		}
		args = append(args, "-oHostKey="+path)
		nkeys++
	}
	if nkeys == 0 {
		return nil, errors.New(i18n.G("no host keys available"))
	}
	return append(args, "-oUsePAM=yes", "-oPamServiceName=sshd-initrd"), nil
}

func hostKey(mgr *hostkeys.Manager, alg hostkeys.Algorithm) (string, error) {
	if mgr.CopyDir != "" {
		return mgr.Restore(alg, mgr.KeysDir)
	}
	// no copy to restore from, the session uses a throwaway key
	if _, err := mgr.Generate(alg); err != nil {
		return "", err
	}
	return filepath.Join(mgr.KeysDir, alg.PrivateKeyFilename()), nil
}

func writeBanner() error {
	if osutil.FileExists(dirs.SSHBannerFile) {
		return nil
	}
	banner := i18n.G(`This system is locked. To unlock it, use a local
account name and password. Once successfully
unlocked, you will be able to connect normally.
`)
	if rel, err := release.ReadInitrdRelease(); err == nil {
		banner = rel.PrettyName + "\n" + banner
	} else {
		logger.Debugf("%v", err)
	}
	if err := os.MkdirAll(filepath.Dir(dirs.SSHBannerFile), 0755); err != nil {
		return err
	}
	return osutil.AtomicWriteFile(dirs.SSHBannerFile, []byte(banner+"\n"), 0644)
}

func execSSHD(sshd string, args []string) error {
	argv := append([]string{sshd}, args...)
	logger.Debugf("executing %q", argv)
	if err := unixExec(sshd, argv, os.Environ()); err != nil {
		return fmt.Errorf("cannot execute %s: %v", sshd, err)
	}
	return nil
}
