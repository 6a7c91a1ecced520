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

package gen

// callback.go - the sim.Callback the generator drives its oracle
// simulator with. Grounded in scripts/tgen.py's direct calling of the
// simulator's hooks (rand_instr/save), generalized into a real
// Callback implementation since this repo's sim.Sim always dispatches
// through the capability interface rather than letting a driver poke
// its internals directly.

import (
	"fmt"
	"math/rand"

	"github.com/pdxjjb/idli16/internal/encode"
)

// dataLiteral is one uninitialised-memory read the generator had to
// synthesise a value for, recorded so the assembly output can place it
// with `.org`/`.int` (§4.6 step 7).
type dataLiteral struct {
	addr uint16
	val  uint16
}

// genCallback is the Callback implementation backing the oracle
// simulator. It is not safe for concurrent use; the generator drives
// it single-threaded, matching §5's determinism requirement.
type genCallback struct {
	rng *rand.Rand

	prog map[uint16]encode.Instruction // addr -> instruction pending the next Fetch

	mem      map[uint16]uint16 // synthesized/written memory contents
	literals []dataLiteral     // uninitialised reads, in the order they were synthesized

	pins [4]int

	finished bool // true once the @@END@@ epilogue has begun; utx writes stop being recorded

	input  []uint16
	output []uint16
}

func newGenCallback(rng *rand.Rand) *genCallback {
	return &genCallback{
		rng:  rng,
		prog: make(map[uint16]encode.Instruction),
		mem:  make(map[uint16]uint16),
	}
}

// place registers ins to be returned by the next Fetch at addr.
func (cb *genCallback) place(addr uint16, ins encode.Instruction) {
	cb.prog[addr] = ins
}

func (cb *genCallback) Fetch(pc uint16) (encode.Instruction, error) {
	ins, ok := cb.prog[pc]
	if !ok {
		return encode.Instruction{}, fmt.Errorf("generator: no instruction staged at 0x%04x", pc)
	}
	return ins, nil
}

func (cb *genCallback) ReadMem(addr uint16) (uint16, error) {
	if v, ok := cb.mem[addr]; ok {
		return v, nil
	}
	v := uint16(cb.rng.Intn(0x10000))
	cb.mem[addr] = v
	cb.literals = append(cb.literals, dataLiteral{addr: addr, val: v})
	return v, nil
}

func (cb *genCallback) WriteMem(addr uint16, value uint16) {
	cb.mem[addr] = value
}

func (cb *genCallback) ReadUART() (uint16, error) {
	v := uint16(cb.rng.Intn(0x10000))
	cb.input = append(cb.input, v)
	return v, nil
}

func (cb *genCallback) WriteUART(value uint16) {
	if !cb.finished {
		cb.output = append(cb.output, value)
	}
}

func (cb *genCallback) ReadPin(n int) int { return cb.pins[n] }

func (cb *genCallback) WritePin(n int, v int) { cb.pins[n] = v }

func (cb *genCallback) WriteReg(reg int, value uint16)  {}
func (cb *genCallback) WritePred(value bool)            {}
func (cb *genCallback) WriteCond(value uint16)          {}

// usesAddr reports whether addr already holds a value the generator
// put there (program data or a prior load/store), which the address
// allocator must steer clear of when it picks fresh scratch memory.
func (cb *genCallback) usesAddr(addr uint16) bool {
	_, ok := cb.mem[addr]
	return ok
}
