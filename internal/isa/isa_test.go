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

package isa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPatternsCompiledWithoutPanicking(t *testing.T) {
	require.NotEmpty(t, Patterns)
	require.Contains(t, Patterns, "add")
	require.Contains(t, Patterns, "cex")
}

func TestNoOpcodeCollisions(t *testing.T) {
	for i, m1 := range Order {
		for _, m2 := range Order[i+1:] {
			p1, p2 := Patterns[m1], Patterns[m2]
			common := p1.Mask & p2.Mask
			require.NotEqualf(t, p1.Value&common, p2.Value&common, "%s and %s collide", m1, m2)
		}
	}
}

func TestAddFieldPositions(t *testing.T) {
	p := Patterns["add"]
	a, ok := p.field('a')
	require.True(t, ok)
	require.Equal(t, 4, a.Width())
	c, ok := p.field('c')
	require.True(t, ok)
	require.Equal(t, []int{3, 2, 1, 0}, c.Pos)
}

func TestSynonymMovRewritesToAddWithZeroB(t *testing.T) {
	syn, ok := Synonyms["mov"]
	require.True(t, ok)
	require.Equal(t, "add", syn.Base)
	require.Equal(t, Zr, syn.Fixed["b"])
}

func TestSynonymSllCopiesBIntoC(t *testing.T) {
	syn, ok := Synonyms["sll"]
	require.True(t, ok)
	require.Equal(t, "add", syn.Base)
	require.Equal(t, "b", syn.CopyFrom["c"])
}

func TestOperandsExcludesSynonymFixedAndCopied(t *testing.T) {
	ops, err := Operands("mov")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ops)

	ops, err = Operands("sll")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ops)
}

func TestDisplayOrderOverrideForMultiReg(t *testing.T) {
	order, err := DisplayOrder("ldm")
	require.NoError(t, err)
	require.Equal(t, []string{"r", "s", "b"}, order)
}

func TestDisplayOrderDefaultsToBitScanOrder(t *testing.T) {
	order, err := DisplayOrder("add")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBaseMnemonicResolvesSynonyms(t *testing.T) {
	require.Equal(t, "add", BaseMnemonic("mov"))
	require.Equal(t, "add", BaseMnemonic("add"))
}

func TestIsMnemonicAcceptsBaseAndSynonymOnly(t *testing.T) {
	require.True(t, IsMnemonic("add"))
	require.True(t, IsMnemonic("mov"))
	require.False(t, IsMnemonic("bit"))
	require.False(t, IsMnemonic("bitx"))
}

func TestIsShadowSetter(t *testing.T) {
	require.True(t, IsShadowSetter("cex"))
	require.True(t, IsShadowSetter("eqx"))
	require.False(t, IsShadowSetter("eq"))
	require.False(t, IsShadowSetter("add"))
}

func TestIsCmpx(t *testing.T) {
	require.True(t, IsCmpx("ltux"))
	require.False(t, IsCmpx("ltu"))
}
