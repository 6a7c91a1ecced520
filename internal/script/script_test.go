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

package script

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestScriptUnmarshalsFromYAML(t *testing.T) {
	raw := []byte(`
input: [1, 2, 3]
output: [4, 5]
input_pin:
  - time: 10
    pins:
      0: 1
      1: 0
`)
	var scr Script
	require.NoError(t, yaml.Unmarshal(raw, &scr))
	require.Equal(t, []uint16{1, 2, 3}, scr.Input)
	require.Equal(t, []uint16{4, 5}, scr.Output)
	require.Len(t, scr.InputPin, 1)
	require.Equal(t, 10, scr.InputPin[0].Time)
	require.Equal(t, 1, scr.InputPin[0].Pins[0])
}

func TestScriptRoundTripsThroughMarshal(t *testing.T) {
	scr := Script{
		Input:    []uint16{0xdead, 0xbeef},
		Output:   []uint16{1},
		InputPin: []PinEvent{{Time: 3, Pins: map[int]int{2: 1}}},
	}
	raw, err := yaml.Marshal(scr)
	require.NoError(t, err)

	var round Script
	require.NoError(t, yaml.Unmarshal(raw, &round))
	require.Equal(t, scr, round)
}

func TestEmptyScriptOmitsFields(t *testing.T) {
	raw, err := yaml.Marshal(Script{})
	require.NoError(t, err)
	require.NotContains(t, string(raw), "input:")
	require.NotContains(t, string(raw), "output:")
}
