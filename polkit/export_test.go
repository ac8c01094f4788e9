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

package polkit

type (
	AuthSubject = authSubject
	AuthResult  = authResult
)

var ParseStatStartTime = parseStatStartTime

func MockCallAuthority(f func(subject AuthSubject, actionID string, details map[string]string, flags CheckFlags) (*AuthResult, error)) (restore func()) {
	old := callAuthority
	callAuthority = f
	return func() {
		callAuthority = old
	}
}

func MockCheckAuthorization(f func(actionID string, details map[string]string, flags CheckFlags) (bool, error)) (restore func()) {
	old := checkAuthorization
	checkAuthorization = f
	return func() {
		checkAuthorization = old
	}
}
