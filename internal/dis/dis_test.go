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

package dis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdxjjb/idli16/internal/encode"
)

func TestFormatOperandsRegisterAdd(t *testing.T) {
	ins := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 1, "b": 2, "c": 3}}
	require.Equal(t, "r1, r2, r3", FormatOperands(ins))
}

func TestFormatOperandsImmediateRendersHex(t *testing.T) {
	imm := int16(-1)
	ins := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 1, "b": 0, "c": 15}, Imm: &imm}
	require.Equal(t, "r1, r0, 0xffff", FormatOperands(ins))
}

func TestFormatOperandsMultiRegRange(t *testing.T) {
	ins := encode.Instruction{Mnemonic: "ldm", Ops: map[string]uint16{"r": 1, "s": 3, "b": 2}}
	require.Equal(t, "r1..r3, r2", FormatOperands(ins))
}

func TestListingAndMergeCollapseLongRuns(t *testing.T) {
	nop, err := encode.Encode(encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 0}}, nil)
	require.NoError(t, err)
	inc, err := encode.Encode(encode.Instruction{Mnemonic: "inc", Ops: map[string]uint16{"a": 1, "b": 1}}, nil)
	require.NoError(t, err)

	words := append(append(append([]uint16{}, nop...), nop...), nop...)
	words = append(words, inc...)

	lines, err := Listing(words, 0)
	require.NoError(t, err)
	require.Len(t, lines, 4)

	merged := Merge(lines)
	require.Len(t, merged, 3) // run header, run-range summary, trailing distinct line
	require.Contains(t, merged[1], "*")
}

func TestListingAssignsSequentialAddresses(t *testing.T) {
	imm := int16(1)
	withImm, err := encode.Encode(encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 15}, Imm: &imm}, nil)
	require.NoError(t, err)
	plain, err := encode.Encode(encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 0}}, nil)
	require.NoError(t, err)

	words := append(append([]uint16{}, withImm...), plain...)
	lines, err := Listing(words, 0x10)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, uint16(0x10), lines[0].Addr)
	require.Equal(t, uint16(0x12), lines[1].Addr)
}
