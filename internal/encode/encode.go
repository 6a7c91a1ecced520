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

// Package encode turns a structured Instruction into its 16-bit (or
// 16+16-bit, with an immediate) wire representation, following the
// bit-insertion algorithm of the original Python prototype's
// Instruction.encode(), rewritten against isa's compiled Pattern
// fields instead of re-scanning the pattern string per call.
package encode

// Instruction is the encoder/decoder's shared structured form. Mnemonic
// is always a base (non-synonym) mnemonic: synonym rewriting happens in
// the assembler, before an Instruction ever reaches this package.
type Instruction struct {
	Mnemonic string
	Ops      map[string]uint16 // operand letter -> value; 'm' holds the shadow COUNT, not the final mask
	Imm      *int16            // present only when the 'c' operand was an immediate (encoded via the sp sentinel)
	Cond     string            // "", ".t" or ".f" — the predicate tag this instruction carries
	CexMask  *uint16           // raw 8-bit encoded m-field, set on cex instructions only; replayed by the simulator without recomputation
}

// NumCond reports how many following instructions the m-field encoding
// needs: the m operand's value for cex, 0 for anything without an m
// operand (including the *x comparisons, whose single follower is not
// encoded).
func (ins Instruction) NumCond() int {
	if v, ok := ins.Ops["m"]; ok {
		return int(v)
	}
	return 0
}

// Size is the instruction's length in 16-bit words: 2 when it carries
// an immediate, 1 otherwise.
func (ins Instruction) Size() int {
	if ins.Imm != nil {
		return 2
	}
	return 1
}

// Clone deep-copies ins, including its Ops map and the values behind
// its Imm/CexMask pointers. The test generator ticks a cloned
// instruction rather than the one it is about to emit to source, so
// the copy staged for the oracle shares no map or pointer with it.
func (ins Instruction) Clone() Instruction {
	out := ins
	if ins.Ops != nil {
		out.Ops = make(map[string]uint16, len(ins.Ops))
		for k, v := range ins.Ops {
			out.Ops[k] = v
		}
	}
	if ins.Imm != nil {
		imm := *ins.Imm
		out.Imm = &imm
	}
	if ins.CexMask != nil {
		m := *ins.CexMask
		out.CexMask = &m
	}
	return out
}
