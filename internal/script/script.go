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

// Package script is the YAML test-script schema shared by the
// simulator (consumer) and the generator (producer). The prototype's
// sim.py loaded this with a bare yaml.safe_load into an untyped dict
// and tgen.py never wrote one at all ("TODO actually do something with
// the YAML"); this repo gives the format real struct types via
// gopkg.in/yaml.v3 tags instead of passing maps around.
package script

// PinEvent is one timed input-pin change: at tick Time, each entry in
// Pins sets that pin index to that value.
type PinEvent struct {
	Time int         `yaml:"time"`
	Pins map[int]int `yaml:"pins"`
}

// Script is the full YAML test-script document (§6).
type Script struct {
	Input    []uint16   `yaml:"input,omitempty"`
	Output   []uint16   `yaml:"output,omitempty"`
	InputPin []PinEvent `yaml:"input_pin,omitempty"`
}
