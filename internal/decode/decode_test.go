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

package decode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdxjjb/idli16/internal/encode"
)

func TestRoundTripAddNoImmediate(t *testing.T) {
	ins := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 1, "b": 2, "c": 3}}
	words, err := encode.Encode(ins, nil)
	require.NoError(t, err)

	decoded, err := Decode(words, 0)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, ins.Mnemonic, decoded[0].Instruction.Mnemonic)
	require.Equal(t, ins.Ops, decoded[0].Instruction.Ops)
	require.Equal(t, 1, decoded[0].Words)
}

func TestRoundTripWithImmediate(t *testing.T) {
	imm := int16(-1234)
	ins := encode.Instruction{Mnemonic: "ld", Ops: map[string]uint16{"a": 4, "b": 15, "c": 15}, Imm: &imm}
	words, err := encode.Encode(ins, nil)
	require.NoError(t, err)
	require.Len(t, words, 2)

	decoded, err := Decode(words, 0)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	require.Equal(t, 2, decoded[0].Words)
	require.NotNil(t, decoded[0].Instruction.Imm)
	require.Equal(t, imm, *decoded[0].Instruction.Imm)
}

func TestRoundTripCexShadowAppliesTagsToFollowers(t *testing.T) {
	cex := encode.Instruction{Mnemonic: "cex", Ops: map[string]uint16{"m": 2}}
	followers := []encode.Instruction{
		{Cond: ".t"},
		{Cond: ".f"},
	}
	cexWords, err := encode.Encode(cex, followers)
	require.NoError(t, err)

	f0 := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 0}, Cond: ".t"}
	f1 := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 0}, Cond: ".f"}
	w0, err := encode.Encode(f0, nil)
	require.NoError(t, err)
	w1, err := encode.Encode(f1, nil)
	require.NoError(t, err)

	all := append(append(append([]uint16{}, cexWords...), w0...), w1...)
	decoded, err := Decode(all, 0)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	require.Equal(t, "cex", decoded[0].Instruction.Mnemonic)
	require.Equal(t, uint16(2), decoded[0].Instruction.Ops["m"])
	require.Equal(t, ".t", decoded[1].Instruction.Cond)
	require.Equal(t, ".f", decoded[2].Instruction.Cond)
}

func TestRoundTripCmpxPushesSingleTrueTag(t *testing.T) {
	eqx := encode.Instruction{Mnemonic: "eqx", Ops: map[string]uint16{"b": 1, "c": 2}}
	follower := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 0}, Cond: ".t"}

	w0, err := encode.Encode(eqx, nil)
	require.NoError(t, err)
	w1, err := encode.Encode(follower, nil)
	require.NoError(t, err)

	decoded, err := Decode(append(w0, w1...), 0)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, ".t", decoded[1].Instruction.Cond)
}

func TestDecodeRejectsUnrecognisedWord(t *testing.T) {
	// 16-bit word 0xffff is not assigned any opcode pattern.
	_, err := Decode([]uint16{0xffff}, 0)
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedImmediate(t *testing.T) {
	// An instruction whose c field is the sp sentinel but with no
	// trailing immediate word present.
	imm := int16(0)
	ins := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 15}, Imm: &imm}
	words, err := encode.Encode(ins, nil)
	require.NoError(t, err)

	_, err = Decode(words[:1], 0)
	require.Error(t, err)
}

func TestDecodeRespectsMaxItems(t *testing.T) {
	ins := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0, "c": 0}}
	w, err := encode.Encode(ins, nil)
	require.NoError(t, err)
	words := append(append([]uint16{}, w...), w...)

	decoded, err := Decode(words, 1)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
}
