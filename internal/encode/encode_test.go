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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeAdd(t *testing.T) {
	ins := Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 1, "b": 2, "c": 3}}
	words, err := Encode(ins, nil)
	require.NoError(t, err)
	require.Equal(t, []uint16{0x0123}, words)
}

func TestEncodeWithImmediateEmitsTwoWords(t *testing.T) {
	imm := int16(-5)
	ins := Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 1, "b": 2, "c": 15}, Imm: &imm}
	words, err := Encode(ins, nil)
	require.NoError(t, err)
	require.Len(t, words, 2)
	require.Equal(t, uint16(0xfffb), words[1])
}

func TestEncodeCexDerivesMaskFromFollowerTags(t *testing.T) {
	ins := Instruction{Mnemonic: "cex", Ops: map[string]uint16{"m": 2}}
	followers := []Instruction{{Cond: ".t"}, {Cond: ".f"}}
	words, err := Encode(ins, followers)
	require.NoError(t, err)
	// mask = terminator bit 1<<2 | bit0 (.t) -> 0b101 = 5
	require.Equal(t, uint16(5), words[0]&0xff)
}

func TestEncodeCexRejectsUntaggedFollower(t *testing.T) {
	ins := Instruction{Mnemonic: "cex", Ops: map[string]uint16{"m": 1}}
	_, err := Encode(ins, []Instruction{{}})
	require.Error(t, err)
}

func TestEncodeRejectsOverflowingOperand(t *testing.T) {
	ins := Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 16, "b": 0, "c": 0}}
	_, err := Encode(ins, nil)
	require.Error(t, err)
}

func TestEncodeRejectsMissingOperand(t *testing.T) {
	ins := Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": 0, "b": 0}}
	_, err := Encode(ins, nil)
	require.Error(t, err)
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	imm := int16(7)
	mask := uint16(3)
	ins := Instruction{
		Mnemonic: "add",
		Ops:      map[string]uint16{"a": 1},
		Imm:      &imm,
		CexMask:  &mask,
	}
	clone := ins.Clone()
	clone.Ops["a"] = 99
	*clone.Imm = 42
	*clone.CexMask = 1

	require.Equal(t, uint16(1), ins.Ops["a"])
	require.Equal(t, int16(7), *ins.Imm)
	require.Equal(t, uint16(3), *ins.CexMask)
}

func TestSizeReflectsImmediatePresence(t *testing.T) {
	require.Equal(t, 1, Instruction{Mnemonic: "add"}.Size())
	imm := int16(0)
	require.Equal(t, 2, Instruction{Mnemonic: "add", Imm: &imm}.Size())
}

func TestNumCondReadsMOperand(t *testing.T) {
	require.Equal(t, 0, Instruction{Mnemonic: "add"}.NumCond())
	require.Equal(t, 3, Instruction{Mnemonic: "cex", Ops: map[string]uint16{"m": 3}}.NumCond())
}
