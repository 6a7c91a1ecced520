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

package main

// callback.go - the Callback implementation that drives the simulator
// from a flat binary plus an optional YAML test script (§6). Grounded
// in scripts/sim.py's Callback subclass that backs its own CLI runner:
// a flat word-addressed memory preloaded from the binary, a UART
// driven from the script's `input`/`output` lists, and the `@@END@@`
// end-of-test protocol (§6) detected on every UART write.

import (
	"fmt"

	"github.com/pdxjjb/idli16/internal/decode"
	"github.com/pdxjjb/idli16/internal/encode"
	"github.com/pdxjjb/idli16/internal/script"
)

type hostCallback struct {
	mem     [65536]uint16
	decoded map[uint16]encode.Instruction

	scr       script.Script
	inputIdx  int
	outputIdx int

	pins [4]int

	uartTail    []byte
	sawEnd      bool
	pendingExit bool
	exitCode    uint16

	mismatch error
}

func newHostCallback(words []uint16, scr script.Script) (*hostCallback, error) {
	cb := &hostCallback{scr: scr, decoded: map[uint16]encode.Instruction{}}
	copy(cb.mem[:], words)

	decodedList, err := decode.Decode(words, 0)
	if err != nil {
		return nil, fmt.Errorf("decoding program for fetch: %w", err)
	}
	addr := uint16(0)
	for _, d := range decodedList {
		cb.decoded[addr] = d.Instruction
		addr += uint16(d.Words)
	}
	return cb, nil
}

func (cb *hostCallback) Fetch(pc uint16) (encode.Instruction, error) {
	ins, ok := cb.decoded[pc]
	if !ok {
		return encode.Instruction{}, fmt.Errorf("no instruction decoded at 0x%04x", pc)
	}
	return ins, nil
}

func (cb *hostCallback) ReadMem(addr uint16) (uint16, error) {
	return cb.mem[addr], nil
}

func (cb *hostCallback) WriteMem(addr uint16, value uint16) {
	cb.mem[addr] = value
}

func (cb *hostCallback) ReadUART() (uint16, error) {
	if cb.inputIdx >= len(cb.scr.Input) {
		return 0, fmt.Errorf("read from empty UART input")
	}
	v := cb.scr.Input[cb.inputIdx]
	cb.inputIdx++
	return v, nil
}

// WriteUART implements both the normal output scoreboard and the
// `@@END@@` + exit-code end-of-test protocol (§6). The 7 end-marker
// bytes and the exit-code word are consumed here and never compared
// against the script's `output` list, matching its documented "not
// counting the @@END@@ marker".
func (cb *hostCallback) WriteUART(value uint16) {
	if cb.pendingExit {
		return
	}

	low := byte(value & 0xff)
	cb.uartTail = append(cb.uartTail, low)
	if len(cb.uartTail) > 7 {
		cb.uartTail = cb.uartTail[len(cb.uartTail)-7:]
	}
	if !cb.sawEnd {
		if string(cb.uartTail) == "@@END@@" {
			cb.sawEnd = true
			return
		}
	} else {
		cb.exitCode = value
		cb.pendingExit = true
		return
	}

	if cb.mismatch != nil {
		return
	}
	if cb.outputIdx >= len(cb.scr.Output) {
		cb.mismatch = fmt.Errorf("UART scoreboard mismatch: unexpected extra output word 0x%04x", value)
		return
	}
	if want := cb.scr.Output[cb.outputIdx]; want != value {
		cb.mismatch = fmt.Errorf("UART scoreboard mismatch at output %d: want 0x%04x, got 0x%04x", cb.outputIdx, want, value)
	}
	cb.outputIdx++
}

func (cb *hostCallback) ReadPin(n int) int { return cb.pins[n] }

func (cb *hostCallback) WritePin(n int, v int) { cb.pins[n] = v }

func (cb *hostCallback) WriteReg(reg int, value uint16) {}
func (cb *hostCallback) WritePred(value bool)           {}
func (cb *hostCallback) WriteCond(value uint16)         {}

// applyPinEvents sets any input_pin events scheduled at exactly this
// tick (§6's `{time, pins}` records).
func (cb *hostCallback) applyPinEvents(tick int) {
	for _, ev := range cb.scr.InputPin {
		if ev.Time == tick {
			for pin, v := range ev.Pins {
				if pin >= 0 && pin < len(cb.pins) {
					cb.pins[pin] = v
				}
			}
		}
	}
}

// done reports whether the end-of-test protocol completed and, if so,
// whether every expected output word was seen.
func (cb *hostCallback) done() (finished bool, ok bool) {
	if !cb.pendingExit {
		return false, false
	}
	return true, cb.mismatch == nil && cb.outputIdx == len(cb.scr.Output)
}
