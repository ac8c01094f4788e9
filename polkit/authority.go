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

// Package polkit asks the polkit authority whether the current process is
// allowed to perform an action.
package polkit

import (
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
)

// CheckFlags are the flags passed to CheckAuthorization.
type CheckFlags uint32

const (
	// CheckNone does not allow user interaction.
	CheckNone CheckFlags = 0x00
	// CheckAllowInteraction allows the authority to prompt.
	CheckAllowInteraction CheckFlags = 0x01
)

var (
	// ErrDismissed is returned if the authorization request was dismissed.
	ErrDismissed = errors.New("Authorization request dismissed")
	// ErrInteraction is returned when the authorization requires interaction
	// but it was not allowed.
	ErrInteraction = errors.New("Authorization requires interaction")
)

type authSubject struct {
	Kind    string
	Details map[string]dbus.Variant
}

type authResult struct {
	IsAuthorized bool
	IsChallenge  bool
	Details      map[string]string
}

var callAuthority = func(subject authSubject, actionID string, details map[string]string, flags CheckFlags) (*authResult, error) {
	bus, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	authority := bus.Object("org.freedesktop.PolicyKit1",
		"/org/freedesktop/PolicyKit1/Authority")

	var result authResult
	err = authority.Call(
		"org.freedesktop.PolicyKit1.Authority.CheckAuthorization", 0,
		subject, actionID, details, flags, "").Store(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckAuthorization queries polkit on behalf of the running process.
func CheckAuthorization(actionID string, details map[string]string, flags CheckFlags) (bool, error) {
	pid := os.Getpid()
	startTime, err := selfStartTime()
	if err != nil {
		return false, fmt.Errorf("cannot determine process start time: %v", err)
	}
	subject := authSubject{
		Kind: "unix-process",
		Details: map[string]dbus.Variant{
			"pid":        dbus.MakeVariant(uint32(pid)),
			"start-time": dbus.MakeVariant(startTime),
			"uid":        dbus.MakeVariant(uint32(os.Geteuid())),
		},
	}

	result, err := callAuthority(subject, actionID, details, flags)
	if err != nil {
		return false, err
	}
	if !result.IsAuthorized {
		if result.IsChallenge {
			err = ErrInteraction
		} else if result.Details["polkit.dismissed"] != "" {
			err = ErrDismissed
		}
	}
	return result.IsAuthorized, err
}
