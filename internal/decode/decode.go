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

// Package decode turns a stream of 16-bit words back into structured
// Instructions, reconstructing the predicate-shadow queue (cond_q) as
// it goes. The opcode match loop is grounded in scripts/objdump.py's
// decode(); the compiled-field extraction and the KeyEntry-style
// candidate table are grounded in the teacher's dis/dis.go.
package decode

import (
	"fmt"
	"math/bits"

	"github.com/pdxjjb/idli16/internal/encode"
	"github.com/pdxjjb/idli16/internal/isa"
)

// Decoded is one disassembled instruction plus how many 16-bit words it
// consumed (2 when it carries an immediate).
type Decoded struct {
	Instruction encode.Instruction
	Words       int
}

// Decode decodes words into instructions, stopping at maxItems items
// (0 means unlimited) or when the input is exhausted. It returns
// whatever it managed to decode together with an error if the stream
// ended mid-instruction or an unrecognised/ambiguous word was hit.
func Decode(words []uint16, maxItems int) ([]Decoded, error) {
	var out []Decoded
	var shadow []string // pending predicate tags, front = shadow[0]

	pos := 0
	for pos < len(words) {
		if maxItems > 0 && len(out) >= maxItems {
			break
		}
		w := words[pos]
		mnem, pat, err := matchOpcode(w)
		if err != nil {
			return out, fmt.Errorf("word %d (0x%04x): %w", pos, w, err)
		}

		ins := encode.Instruction{Mnemonic: mnem, Ops: map[string]uint16{}}
		consumed := 1
		for _, f := range pat.Fields {
			v := extractField(w, f)
			if f.Letter == 'c' && v == isa.Sp {
				if pos+1 >= len(words) {
					return out, fmt.Errorf("word %d (0x%04x): %s: missing immediate word", pos, w, mnem)
				}
				imm := int16(words[pos+1])
				ins.Imm = &imm
				consumed = 2
			}
			ins.Ops[string(f.Letter)] = v
		}

		if len(shadow) > 0 {
			ins.Cond = shadow[0]
			shadow = shadow[1:]
		}

		switch {
		case isa.IsCmpx(mnem):
			shadow = append(shadow, ".t")
		case mnem == "cex":
			raw := ins.Ops["m"]
			ins.CexMask = &raw
			tags, err := cexFollowerTags(raw)
			if err != nil {
				return out, fmt.Errorf("word %d (0x%04x): %w", pos, w, err)
			}
			ins.Ops["m"] = uint16(len(tags))
			shadow = append(shadow, tags...)
		}

		out = append(out, Decoded{Instruction: ins, Words: consumed})
		pos += consumed
	}
	return out, nil
}

// matchOpcode finds the single pattern whose (value, mask) matches w.
func matchOpcode(w uint16) (string, isa.Pattern, error) {
	match := ""
	for _, mnem := range isa.Order {
		pat := isa.Patterns[mnem]
		if w&pat.Mask == pat.Value {
			if match != "" {
				return "", isa.Pattern{}, fmt.Errorf("ambiguous: matches both %q and %q", match, mnem)
			}
			match = mnem
		}
	}
	if match == "" {
		return "", isa.Pattern{}, fmt.Errorf("no matching opcode")
	}
	return match, isa.Patterns[match], nil
}

func extractField(w uint16, f isa.Field) uint16 {
	var v uint16
	for _, pos := range f.Pos {
		bit := (w >> uint(pos)) & 1
		v = v<<1 | bit
	}
	return v
}

// cexFollowerTags strips the high-order 1-bit terminator from a raw
// cex mask and returns the per-follower ".t"/".f" tags it encodes, in
// program order.
func cexFollowerTags(raw uint16) ([]string, error) {
	if raw == 0 {
		return nil, fmt.Errorf("cex: mask has no terminator bit")
	}
	v := bits.Len16(raw) - 1 // index of the highest set bit = follower count
	if v < 1 || v > 7 {
		return nil, fmt.Errorf("cex: bad follower count %d (must be 1..7)", v)
	}
	tags := make([]string, v)
	for i := 0; i < v; i++ {
		if raw&(1<<uint(i)) != 0 {
			tags[i] = ".t"
		} else {
			tags[i] = ".f"
		}
	}
	return tags, nil
}
