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

package sim

// types.go - the I/O capability interface, grounded directly in
// scripts/sim.py's Callback base class: one method per hook, the test
// harness and the hardware scoreboard each implementing their own
// variant. Go has no implicit-subclass default-method story, so
// BaseCallback stands in for Python's Callback() default instance —
// embed it and override only the hooks a particular implementation
// cares about.
import (
	"github.com/pdxjjb/idli16/internal/encode"
)

// Callback is the simulator's sole point of contact with the outside
// world: memory, UART, pins, and scoreboard observer hooks.
type Callback interface {
	Fetch(pc uint16) (encode.Instruction, error)
	ReadMem(addr uint16) (uint16, error)
	WriteMem(addr uint16, value uint16)
	ReadUART() (uint16, error)
	WriteUART(value uint16)
	ReadPin(n int) int
	WritePin(n int, v int)

	WriteReg(reg int, value uint16)
	WritePred(value bool)
	WriteCond(value uint16)
}

// BaseCallback supplies no-op implementations of every Callback
// method; embed it in a real callback to avoid restating hooks you
// don't care about.
type BaseCallback struct{}

func (BaseCallback) Fetch(pc uint16) (encode.Instruction, error)     { return encode.Instruction{}, nil }
func (BaseCallback) ReadMem(addr uint16) (uint16, error)             { return 0, nil }
func (BaseCallback) WriteMem(addr uint16, value uint16)              {}
func (BaseCallback) ReadUART() (uint16, error)                       { return 0, nil }
func (BaseCallback) WriteUART(value uint16)                          {}
func (BaseCallback) ReadPin(n int) int                               { return 0 }
func (BaseCallback) WritePin(n int, v int)                           {}
func (BaseCallback) WriteReg(reg int, value uint16)                  {}
func (BaseCallback) WritePred(value bool)                            {}
func (BaseCallback) WriteCond(value uint16)                          {}

// CountMode is the count-op modal state (§3, §4.5): none, or one of
// the three duration-counted configurators.
type CountMode int

const (
	ModeNone CountMode = iota
	ModeCarry
	ModeAndp
	ModeOrp
)

func (m CountMode) String() string {
	switch m {
	case ModeCarry:
		return "carry"
	case ModeAndp:
		return "andp"
	case ModeOrp:
		return "orp"
	default:
		return "none"
	}
}
