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

package logger

import (
	"github.com/coreos/go-systemd/journal"
)

func MockJournal(enabled bool, send func(msg string, prio journal.Priority, vars map[string]string) error) (restore func()) {
	oldEnabled := journalEnabled
	oldSend := journalSend
	journalEnabled = func() bool { return enabled }
	journalSend = send
	return func() {
		journalEnabled = oldEnabled
		journalSend = oldSend
	}
}

func ProcCmdlineMustMock(new bool) (restore func()) {
	old := procCmdlineUseDefaultMockInTests
	procCmdlineUseDefaultMockInTests = new
	return func() {
		procCmdlineUseDefaultMockInTests = old
	}
}

func Current() Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

func (l *Log) Quiet() bool {
	return l.quiet
}
