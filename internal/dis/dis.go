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

// Package dis formats decode.Decode's output into the disassembler's
// listing lines and applies the run-merging pass. The per-line layout
// and the idea of withholding a line until we know whether the next
// word combines with it are grounded in the teacher's dis/dis.go
// (disassemble()'s prevLine/thisLine bookkeeping); the merge pass
// itself is new (the teacher's isCombinable/decodeCombined were TODO
// stubs, and this repo's merge rule — runs of 3+ identical payload
// lines — is a disassembler feature, not an instruction-pairing one).
package dis

import (
	"fmt"
	"strings"

	"github.com/pdxjjb/idli16/internal/decode"
	"github.com/pdxjjb/idli16/internal/encode"
	"github.com/pdxjjb/idli16/internal/isa"
)

// Line is one disassembled program line before the merge pass: an
// address and its rendered payload (hex words + mnemonic + operands).
type Line struct {
	Addr    uint16
	Payload string
}

// Listing decodes words starting at base address `org` and renders one
// Line per decoded instruction.
func Listing(words []uint16, org uint16) ([]Line, error) {
	decoded, err := decode.Decode(words, 0)
	lines := make([]Line, 0, len(decoded))
	addr := org
	pos := 0
	for _, d := range decoded {
		lines = append(lines, Line{Addr: addr, Payload: Format(d, words[pos:pos+d.Words])})
		addr += uint16(d.Words)
		pos += d.Words
	}
	return lines, err
}

// Format renders one decoded instruction as "HEX[ HEX]  MNEMONIC[.t|.f] OPERANDS".
// raw holds the 1 or 2 words the instruction occupied in the source stream.
func Format(d decode.Decoded, raw []uint16) string {
	ins := d.Instruction
	parts := make([]string, len(raw))
	for i, w := range raw {
		parts[i] = fmt.Sprintf("%04X", w)
	}
	hex := strings.Join(parts, " ")

	name := ins.Mnemonic + ins.Cond
	operands := FormatOperands(ins)
	if operands == "" {
		return fmt.Sprintf("%-9s  %s", hex, name)
	}
	return fmt.Sprintf("%-9s  %s %s", hex, name, operands)
}

// FormatOperands renders ins's operands in DisplayOrder, register
// fields by name, the register-range r/s pair combined as "r..s", and
// a trailing immediate word shown in place of the sp sentinel.
func FormatOperands(ins encode.Instruction) string {
	order, err := isa.DisplayOrder(ins.Mnemonic)
	if err != nil {
		return ""
	}
	var parts []string
	skipS := false
	for _, letter := range order {
		if letter == "s" && skipS {
			continue
		}
		v, ok := ins.Ops[letter]
		if !ok {
			continue
		}
		switch letter {
		case "a", "b":
			parts = append(parts, isa.RegNames[v])
		case "r":
			sVal := ins.Ops["s"]
			parts = append(parts, fmt.Sprintf("%s..%s", isa.RegNames[v], isa.RegNames[sVal]))
			skipS = true
		case "c":
			if v == isa.Sp {
				if ins.Imm != nil {
					parts = append(parts, fmt.Sprintf("0x%x", uint16(*ins.Imm)))
				}
			} else {
				parts = append(parts, isa.RegNames[v])
			}
		case "n", "j", "m":
			parts = append(parts, fmt.Sprintf("%d", v))
		}
	}
	return strings.Join(parts, ", ")
}

// Merge collapses runs of three or more consecutive lines with
// identical payloads into the run's first line followed by a
// "first * last" address-range line, per §6.
func Merge(lines []Line) []string {
	var out []string
	i := 0
	for i < len(lines) {
		j := i + 1
		for j < len(lines) && lines[j].Payload == lines[i].Payload {
			j++
		}
		runLen := j - i
		if runLen >= 3 {
			out = append(out, fmt.Sprintf("%04X:  %s", lines[i].Addr, lines[i].Payload))
			out = append(out, fmt.Sprintf("%04X * %04X", lines[i].Addr, lines[j-1].Addr))
		} else {
			for k := i; k < j; k++ {
				out = append(out, fmt.Sprintf("%04X:  %s", lines[k].Addr, lines[k].Payload))
			}
		}
		i = j
	}
	return out
}
