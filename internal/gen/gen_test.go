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

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdxjjb/idli16/internal/asm"
)

func TestGenerateRejectsEmptyBias(t *testing.T) {
	_, err := Generate(Bias{}, Options{Seed: 1, Count: 10})
	require.Error(t, err)
}

func TestGenerateRejectsNonPositiveCount(t *testing.T) {
	_, err := Generate(Bias{"add": 1}, Options{Seed: 1, Count: 0})
	require.Error(t, err)
}

func TestGenerateProducesALegalProgramEndingInTheSafetyLoop(t *testing.T) {
	result, err := Generate(Bias{"add": 1}, Options{Seed: 0xdeadbeef, Count: 5})
	require.NoError(t, err)
	require.NotEmpty(t, result.Asm)

	lines := strings.Split(strings.TrimRight(result.Asm, "\n"), "\n")
	require.Equal(t, "b -1", lines[len(lines)-1])
	require.Equal(t, "utx zr", lines[len(lines)-2])
}

func TestGenerateIsDeterministicForAFixedSeed(t *testing.T) {
	a, err := Generate(Bias{"add": 1, "sub": 1, "ld": 1, "st": 1}, Options{Seed: 42, Count: 40})
	require.NoError(t, err)
	b, err := Generate(Bias{"add": 1, "sub": 1, "ld": 1, "st": 1}, Options{Seed: 42, Count: 40})
	require.NoError(t, err)
	require.Equal(t, a.Asm, b.Asm)
	require.Equal(t, a.Script, b.Script)
}

func TestGenerateExercisesUARTWhenBiased(t *testing.T) {
	result, err := Generate(Bias{"urx": 1, "utx": 1}, Options{Seed: 7, Count: 30})
	require.NoError(t, err)
	require.NotEmpty(t, result.Script.Input)
}

func TestGenerateMixedWorkloadAcrossManyMnemonics(t *testing.T) {
	bias := Bias{
		"add": 1, "sub": 1, "and": 1, "or": 1, "xor": 1,
		"ld": 1, "st": 1, "ldm": 1, "stm": 1,
		"eqx": 1, "ltx": 1, "cex": 1,
		"b": 1, "bl": 1,
		"srl": 1, "rol": 1,
	}
	result, err := Generate(bias, Options{Seed: 99, Count: 200})
	require.NoError(t, err)
	require.NotEmpty(t, result.Asm)
}

// assembleResult re-assembles a generated program through the real
// assembler, the same tool the generator's output is meant to feed, to
// catch anything that only fails on a second, independent pass (scratch
// addresses that collide with code, or a data section emitted out of
// address order).
func assembleResult(t *testing.T, asmSrc string) []uint16 {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gen.s")
	require.NoError(t, os.WriteFile(path, []byte(asmSrc), 0644))
	words, err := asm.Assemble(path, false)
	require.NoError(t, err)
	return words
}

func TestGenerateOutputReassemblesWithinTheSizeLimit(t *testing.T) {
	bias := Bias{"ld": 1, "st": 1, "ld+": 1, "+st": 1, "ldm": 1, "stm": 1}
	result, err := Generate(bias, Options{Seed: 1234, Count: 300})
	require.NoError(t, err)

	words := assembleResult(t, result.Asm)
	require.Less(t, len(words), 1<<15)
}

func TestGenerateOutputReassemblesAcrossManyMnemonics(t *testing.T) {
	bias := Bias{
		"add": 1, "sub": 1, "and": 1, "or": 1, "xor": 1,
		"ld": 1, "st": 1, "ldm": 1, "stm": 1,
		"ld+": 1, "st+": 1, "+ld": 1, "+st": 1,
		"ld-": 1, "st-": 1, "-ld": 1, "-st": 1,
		"eqx": 1, "ltx": 1, "cex": 1,
		"b": 1, "bl": 1,
		"srl": 1, "rol": 1,
	}
	result, err := Generate(bias, Options{Seed: 99, Count: 200})
	require.NoError(t, err)

	words := assembleResult(t, result.Asm)
	require.Less(t, len(words), 1<<15)
}
