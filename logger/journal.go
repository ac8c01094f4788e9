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
	"fmt"
	"os"

	"github.com/coreos/go-systemd/journal"

	"github.com/snapcore/remote-unlock/osutil"
)

var (
	journalEnabled = journal.Enabled
	journalSend    = journal.Send
)

type journalLog struct {
	identifier string
	debug      bool
}

func (l *journalLog) send(msg string, prio journal.Priority) {
	vars := map[string]string{
		"SYSLOG_IDENTIFIER": l.identifier,
	}
	if err := journalSend(msg, prio, vars); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", l.identifier, msg)
	}
}

func (l *journalLog) Notice(msg string) {
	l.send(msg, journal.PriNotice)
}

func (l *journalLog) Debug(msg string) {
	if l.debug || osutil.GetenvBool(debugEnvVar) {
		l.send("DEBUG: "+msg, journal.PriDebug)
	}
}
