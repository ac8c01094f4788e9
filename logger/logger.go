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

// Package logger is the process wide log of the remote unlock tools. In the
// initramfs it writes to the journal so that messages do not leak into the
// remote login session.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/snapcore/remote-unlock/osutil"
	"github.com/snapcore/remote-unlock/osutil/kcmdline"
)

// A Logger receives the formatted messages.
type Logger interface {
	// Notice is for messages the operator should see.
	Notice(msg string)
	// Debug is for messages only kept while debugging.
	Debug(msg string)
}

const (
	// DefaultFlags are used when writing to a terminal.
	DefaultFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile

	debugEnvVar      = "REMOTE_UNLOCK_DEBUG"
	debugKcmdlineKey = "remote-unlock.debug"
)

type discard struct{}

func (discard) Notice(string) {}
func (discard) Debug(string)  {}

var (
	mu      sync.Mutex
	current Logger = discard{}
)

// Noticef logs a message for the operator.
func Noticef(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)

	mu.Lock()
	defer mu.Unlock()
	current.Notice(msg)
}

// Debugf logs a debug message.
func Debugf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)

	mu.Lock()
	defer mu.Unlock()
	current.Debug(msg)
}

// SetLogger replaces the process wide logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// MockLogger logs into a buffer until restore is called.
func MockLogger() (buf *bytes.Buffer, restore func()) {
	buf = &bytes.Buffer{}
	mu.Lock()
	old := current
	mu.Unlock()

	SetLogger(New(buf, DefaultFlags))
	return buf, func() {
		SetLogger(old)
	}
}

// Log writes to a stream. Debug messages carry a "DEBUG: " prefix.
type Log struct {
	log *log.Logger
	// debug is forced on by the kernel command line
	debug bool
	// quiet hides notices unless debugging
	quiet bool
}

func (l *Log) debugging() bool {
	return l.debug || osutil.GetenvBool(debugEnvVar)
}

// Notice writes msg unless the log is quiet.
func (l *Log) Notice(msg string) {
	if l.quiet && !l.debugging() {
		return
	}
	l.log.Output(3, msg)
}

// Debug writes msg when REMOTE_UNLOCK_DEBUG is set or debugging was enabled
// on the kernel command line.
func (l *Log) Debug(msg string) {
	if l.debugging() {
		l.log.Output(3, "DEBUG: "+msg)
	}
}

// New returns a Log writing to w with the given log flags.
func New(w io.Writer, flag int) *Log {
	return &Log{
		log:   log.New(w, "", flag),
		debug: debugEnabledOnKernelCmdline(),
	}
}

func consoleFlags() int {
	if os.Getenv("TERM") != "" {
		return DefaultFlags
	}
	// under systemd, which timestamps on its own
	return log.Lshortfile
}

// SimpleSetup logs to stderr.
func SimpleSetup() {
	SetLogger(New(os.Stderr, consoleFlags()))
}

// BootSetup logs to the journal under the given identifier when it is
// reachable, and to stderr otherwise, honouring the quiet kernel option.
func BootSetup(identifier string) {
	debug := debugEnabledOnKernelCmdline()
	if journalEnabled() {
		SetLogger(&journalLog{identifier: identifier, debug: debug})
		return
	}

	m, _ := kcmdline.KeyValues("quiet")
	_, quiet := m["quiet"]
	l := New(os.Stderr, consoleFlags())
	l.quiet = quiet
	SetLogger(l)
}

// tests do not look at the real kernel command line unless they ask for it
var procCmdlineUseDefaultMockInTests = true

func debugEnabledOnKernelCmdline() bool {
	if osutil.IsTestBinary() && procCmdlineUseDefaultMockInTests {
		return false
	}
	m, _ := kcmdline.KeyValues(debugKcmdlineKey)
	return m[debugKcmdlineKey] == "1"
}
