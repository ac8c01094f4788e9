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

	"github.com/jessevdk/go-flags"

	"github.com/snapcore/remote-unlock/config"
	"github.com/snapcore/remote-unlock/dirs"
	"github.com/snapcore/remote-unlock/i18n"
	"github.com/snapcore/remote-unlock/keyunwrap"
	"github.com/snapcore/remote-unlock/logger"
	"github.com/snapcore/remote-unlock/luks2"
	"github.com/snapcore/remote-unlock/osutil/disks"
	"github.com/snapcore/remote-unlock/polkit"
	"github.com/snapcore/remote-unlock/prelogin"
	"github.com/snapcore/remote-unlock/release"
	"github.com/snapcore/remote-unlock/systemd"
	"github.com/snapcore/remote-unlock/unlock"
)

// exit codes from sysexits.h
const (
	exitOK       = 0
	exitSoftware = 70 // EX_SOFTWARE
	exitTempFail = 75 // EX_TEMPFAIL
	exitNoPerm   = 77 // EX_NOPERM
)

var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	osStdin = os.Stdin

	newUnlocker       = defaultUnlocker
	systemdSwitchRoot = systemd.SwitchRoot
)

var errNotInitrd = errors.New("not running in the initramfs")

type options struct {
	NoPivot    bool   `long:"no-pivot" description:"Do not switch to the unlocked system after a successful unlock"`
	MountPath  string `long:"mount-path" value-name:"<path>" description:"Mount point of the system volume"`
	Positional struct {
		Username string `positional-arg-name:"<username>" description:"The user to authenticate as" required:"yes"`
	} `positional-args:"yes"`
}

// Unlocker runs one unlock attempt.
type Unlocker interface {
	Unlock(a *unlock.Attempt) (*unlock.Result, error)
}

// pivotError means the volumes were unlocked but the boot could not move on
// to them.
type pivotError struct {
	root string
	err  error
}

func (e *pivotError) Error() string {
	return fmt.Sprintf("cannot switch root to %s (data volumes remain unlocked): %v", e.root, e.err)
}

func init() {
	if release.OnInitrd {
		logger.BootSetup("remote-unlock")
	} else {
		logger.SimpleSetup()
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(osArgs1 []string) int {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = i18n.G("Unlock the encrypted data volumes over a remote session")
	if _, err := parser.ParseArgs(osArgs1); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(Stdout, err)
			return exitOK
		}
		fmt.Fprintf(Stderr, "error: %v\n", err)
		return exitSoftware
	}
	return exitCode(doUnlock(&opts))
}

func doUnlock(opts *options) error {
	if !release.OnInitrd {
		return errNotInitrd
	}

	conf, err := config.Load()
	if err != nil {
		return err
	}
	mountPath := conf.MountPath
	if opts.MountPath != "" {
		mountPath = opts.MountPath
	}
	logger.Debugf("unlocking %s as user %q", mountPath, opts.Positional.Username)

	u, releaseUnlocker, err := newUnlocker(conf)
	if err != nil {
		return fmt.Errorf("cannot initialize unlock: %v", err)
	}
	defer releaseUnlocker()

	logger.Debugf("reading password from stdin")
	password, err := readPassword(osStdin)
	if err != nil {
		return err
	}
	defer password.Wipe()

	res, err := u.Unlock(&unlock.Attempt{
		MountPath: mountPath,
		Username:  opts.Positional.Username,
		Password:  password,
	})
	if err != nil {
		return err
	}
	logger.Noticef("encryption domain %s unlocked (%d data volumes, %d already unlocked)",
		res.Domain, len(res.Volumes), len(res.AlreadyActive))

	if opts.NoPivot {
		return nil
	}
	logger.Debugf("pivoting root to %s", mountPath)
	if err := systemdSwitchRoot(mountPath); err != nil {
		return &pivotError{root: mountPath, err: err}
	}
	return nil
}

// exitCode reports err to the operator and maps it to the exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var unwrapErr *unlock.UnwrapError
	var noUserErr *unlock.NoSuchUserError
	switch {
	case errors.As(err, &unwrapErr):
		switch unwrapErr.Code {
		case keyunwrap.StatusBadPassword:
			fmt.Fprintln(Stdout, i18n.G("Authentication failed: bad password"))
		case keyunwrap.StatusLockedOut:
			fmt.Fprintln(Stdout, i18n.G("Authentication failed: account is temporarily locked"))
			return exitTempFail
		default:
			fmt.Fprintf(Stdout, i18n.G("Authentication failed: code(%s)\n"), unwrapErr.Code)
		}
		logger.Debugf("%v", err)
		return exitNoPerm
	case errors.As(err, &noUserErr):
		// an unknown user is an authentication failure like a bad password
		fmt.Fprintf(Stdout, i18n.G("Authentication failed: %v\n"), err)
		return exitNoPerm
	}
	fmt.Fprintf(Stdout, i18n.G("Unexpected error: %v\n"), err)
	return exitSoftware
}

func defaultUnlocker(conf *config.Config) (Unlocker, func(), error) {
	auth, err := prelogin.Acquire(conf.PreloginDB())
	if err != nil {
		return nil, nil, err
	}
	lockout := keyunwrap.NewLockout(dirs.LockoutStateFile, conf.Lockout)
	u := &unlock.Unlocker{
		Topology: disks.Topology{},
		Records:  auth,
		Keys:     keyunwrap.New(lockout),
		Volumes:  luks2.Activator{},
	}
	if v := policyVerifier(conf); v != nil {
		u.Policy = v
	}
	closeAuth := func() {
		if err := auth.Close(); err != nil {
			logger.Noticef("cannot release pre-login database: %v", err)
		}
	}
	return u, closeAuth, nil
}

// policyVerifier returns the configured verifiers, or nil if there are none.
func policyVerifier(conf *config.Config) unlock.PolicyVerifier {
	var verifiers unlock.Verifiers
	if conf.VerifyKey {
		verifiers = append(verifiers, luks2.KeyVerifier{})
	}
	if conf.VerifyPolicy {
		verifiers = append(verifiers, &polkit.Verifier{ActionID: conf.PolicyAction})
	}
	if len(verifiers) == 0 {
		return nil
	}
	return verifiers
}
