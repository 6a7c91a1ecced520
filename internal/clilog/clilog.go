/*
Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package clilog is the logging/error idiom shared by all four idli16
// binaries. It is the same pr/fatal/dbg/assert/TODO convention the
// teacher repo duplicated into func/io.go and sim/io.go, consolidated
// here so four cmd/ packages in one module don't each carry a copy.
package clilog

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
)

// Verbose is toggled by -v in each cmd/ main. When false, Trace is silent.
var Verbose bool

func pr(s string) {
	fmt.Fprintf(os.Stderr, "%s\n", s)
}

// Fatalf prints a message, in bold red when stderr looks like a terminal,
// and exits with status 2. Grounded in scripts/asm.py's abort(), which
// used raw ANSI escapes for the same purpose.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if isTerminal(os.Stderr) {
		pr("\033[1;91merror\033[0m: " + msg)
	} else {
		pr("error: " + msg)
	}
	os.Exit(2)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Trace prints an indented progress line when Verbose is set. depth is
// the caller-supplied indent level (e.g. .include nesting depth), not a
// package-global counter, per the "explicit context, not mutable global
// state" design note.
func Trace(depth int, format string, args ...any) {
	if !Verbose {
		return
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	fmt.Fprintf(os.Stderr, indent+format+"\n", args...)
}

func Dbg(s string, args ...any) {
	dbgN(2, s, args...)
}

func dbgN(n int, s string, args ...any) {
	pc, _, _, ok := runtime.Caller(n)
	details := runtime.FuncForPC(pc)
	where := "???"
	if ok && details != nil {
		where = details.Name()
	}
	s = "[at " + where + "]: " + s + "\n"
	fmt.Fprintf(os.Stderr, s, args...)
}

func DbgStack() {
	debug.PrintStack()
}

func Assert(b bool, msg string) {
	if !b {
		panic("assertion failure: " + msg)
	}
}

var todoDone = make(map[string]bool)

// TODO prints the caller's name once per process run. Used to mark
// deliberately-unimplemented branches rather than leaving them silent.
func TODO(args ...any) error {
	pc, _, _, ok := runtime.Caller(1)
	details := runtime.FuncForPC(pc)
	if ok && details != nil && !todoDone[details.Name()] {
		Dbg("TODO called from %s", details.Name())
		todoDone[details.Name()] = true
	}
	return nil
}
