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

// pushback.go gives the lexer one byte of lookahead: it reads ahead to
// find a token boundary, then hands the overrun byte back for the next
// token to pick up.
package asm

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pdxjjb/idli16/internal/clilog"
)

// PushbackByteReader is the byte stream the lexer consumes, with a
// one-byte pushback for the single character of lookahead tokenizing
// needs.
type PushbackByteReader interface {
	io.ByteReader
	io.Closer
	UnreadByte(b byte)
}

type pushbackReader struct {
	src    io.ByteReader
	closer io.Closer
	held   byte
	full   bool
}

// NewFilePushbackByteReader opens path and wraps it for byte-at-a-time
// lexing. The underlying *os.File is held separately from the buffered
// reader so Close still reaches it.
func NewFilePushbackByteReader(path string) (PushbackByteReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &pushbackReader{src: bufio.NewReader(f), closer: f}, nil
}

// NewStringPushbackByteReader wraps an in-memory source, for lexing
// assembly text that never touched disk (generated or embedded).
func NewStringPushbackByteReader(body string) (PushbackByteReader, error) {
	return &pushbackReader{src: strings.NewReader(body)}, nil
}

func (p *pushbackReader) ReadByte() (byte, error) {
	if p.full {
		p.full = false
		return p.held, nil
	}
	return p.src.ReadByte()
}

func (p *pushbackReader) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// UnreadByte pushes b back for the next ReadByte. The lexer never
// unreads more than one byte between reads, so a second pushback
// before a read drains the first is a caller bug.
func (p *pushbackReader) UnreadByte(b byte) {
	clilog.Assert(!p.full, "pushbackReader: unread before previous pushback was consumed")
	p.held = b
	p.full = true
}
