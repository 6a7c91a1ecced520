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

package encode

import (
	"fmt"

	"github.com/pdxjjb/idli16/internal/isa"
)

// Encode produces the 16-bit word(s) for ins. followers must contain at
// least ins.NumCond() subsequent instructions in program order when ins
// is a shadow setter ('m' field present) — the mask written into the
// word's 'm' field is derived from followers[i].Cond, exactly as the
// original encode(followers=[]) did for its M operand.
func Encode(ins Instruction, followers []Instruction) ([]uint16, error) {
	pat, ok := isa.Patterns[ins.Mnemonic]
	if !ok {
		return nil, fmt.Errorf("encode: unknown mnemonic %q", ins.Mnemonic)
	}

	word := pat.Value
	for _, f := range pat.Fields {
		letter := string(f.Letter)

		if f.Letter == 'm' {
			v, ok := ins.Ops["m"]
			if !ok {
				return nil, fmt.Errorf("encode: %s: missing m operand", ins.Mnemonic)
			}
			if v < 1 || v > 7 {
				return nil, fmt.Errorf("encode: %s: bad cex count %d (must be 1..7)", ins.Mnemonic, v)
			}
			if len(followers) < int(v) {
				return nil, fmt.Errorf("encode: %s: not enough followers to calculate m", ins.Mnemonic)
			}
			mask := uint16(1) << v
			for i := 0; i < int(v); i++ {
				switch followers[i].Cond {
				case ".t":
					mask |= 1 << uint(i)
				case ".f":
					// bit stays 0
				default:
					return nil, fmt.Errorf("encode: %s: follower %d missing predicate tag", ins.Mnemonic, i)
				}
			}
			word |= placeField(f, mask)
			continue
		}

		v, ok := ins.Ops[letter]
		if !ok {
			return nil, fmt.Errorf("encode: %s: missing operand %q", ins.Mnemonic, letter)
		}
		if v >= (1 << uint(f.Width())) {
			return nil, fmt.Errorf("encode: %s: operand %q value %d overflows %d-bit field", ins.Mnemonic, letter, v, f.Width())
		}
		word |= placeField(f, v)
	}

	words := []uint16{word}
	if ins.Imm != nil {
		words = append(words, uint16(*ins.Imm))
	}
	return words, nil
}

// placeField scatters v's bits, MSB-first, into the word positions f
// occupies.
func placeField(f isa.Field, v uint16) uint16 {
	width := f.Width()
	var word uint16
	for k, pos := range f.Pos {
		bit := (v >> uint(width-1-k)) & 1
		word |= bit << uint(pos)
	}
	return word
}
