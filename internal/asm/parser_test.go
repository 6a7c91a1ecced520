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

package asm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func assembleSource(t *testing.T, src string) ([]uint16, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.s")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return Assemble(path, false)
}

func TestAssembleRegisterAdd(t *testing.T) {
	words, err := assembleSource(t, "add r1, r2, r3\n")
	require.NoError(t, err)
	require.Equal(t, []uint16{0x0123}, words)
}

func TestAssembleImmediateAddEmitsTwoWords(t *testing.T) {
	words, err := assembleSource(t, "add r1, r2, 5\n")
	require.NoError(t, err)
	require.Len(t, words, 2)
	require.Equal(t, uint16(5), words[1])
}

func TestAssembleMovSynonymFixesBToZero(t *testing.T) {
	words, err := assembleSource(t, "mov r1, r2\n")
	require.NoError(t, err)
	require.Equal(t, []uint16{0x0102}, words)
}

func TestAssembleOrgAndIntDirectives(t *testing.T) {
	words, err := assembleSource(t, ".org 2\n.int 5\n.int -1\n")
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 0, 5, 0xffff}, words)
}

func TestAssembleSpaceReservesZeroWords(t *testing.T) {
	words, err := assembleSource(t, ".space 3\n.int 9\n")
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 0, 0, 9}, words)
}

func TestAssembleGlobalLabelBranch(t *testing.T) {
	words, err := assembleSource(t, "loop:\nadd r0, r0, r0\nb @loop\n")
	require.NoError(t, err)
	// add is one word (index 0); b @loop references address 0 from the
	// branch's own address (1), so the pc-relative offset resolves to -2.
	require.Len(t, words, 3)
	require.Equal(t, uint16(0xfffe), words[2])
}

func TestAssembleShadowDisciplineRequiresTagOnFollower(t *testing.T) {
	_, err := assembleSource(t, "eqx r0, r1\nadd r1, r0, r0\n")
	require.Error(t, err)
}

func TestAssembleShadowDisciplineAcceptsTaggedFollower(t *testing.T) {
	words, err := assembleSource(t, "eqx r0, r1\nadd .t r1, r0, r0\n")
	require.NoError(t, err)
	require.Len(t, words, 2)
}

func TestAssembleShadowDisciplineRejectsNesting(t *testing.T) {
	_, err := assembleSource(t, "eqx r0, r1\neqx .t r0, r1\n")
	require.Error(t, err)
}

func TestAssembleUnknownMnemonicIsAnError(t *testing.T) {
	_, err := assembleSource(t, "frobnicate r0, r1, r2\n")
	require.Error(t, err)
}

func TestAssembleBitIsRefusedNotAliased(t *testing.T) {
	_, err := assembleSource(t, "bit r0, r1, r2\n")
	require.Error(t, err)
}

func TestAssembleIncludeResolvesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub.s")
	require.NoError(t, os.WriteFile(sub, []byte("target:\nadd r0, r0, r0\n"), 0644))
	main := filepath.Join(dir, "main.s")
	require.NoError(t, os.WriteFile(main, []byte(".include \"sub.s\"\nb $target\n"), 0644))

	words, err := Assemble(main, false)
	require.NoError(t, err)
	require.Len(t, words, 3)
}

func TestAssembleOrgCannotMoveBackward(t *testing.T) {
	_, err := assembleSource(t, ".space 4\n.org 1\n")
	require.Error(t, err)
}
