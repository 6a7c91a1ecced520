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

// label.go - the label table. Grounded in the teacher's asm/sym.go for
// the general shape (a name->index map backed by a growable slice of
// entries, populated during pass one and consulted during pass two),
// but the rules themselves are specific to this language's two label
// kinds (§3, §4.4): globally-unique symbolic labels vs. purely-decimal
// local labels that may be (re)defined any number of times and are
// referenced with an `f`/`b` direction suffix. The teacher's sym.go
// flat symDefined/symNegated scheme has no analogue for "multiple
// definitions, disambiguated by position" so this is new machinery
// wired in its place.

import (
	"fmt"
	"strconv"
)

// LabelTable tracks both label kinds across a single assembly pass.
// Unlike the prototype's parse() (whose labels={} default-argument is
// shared across nested .include calls unless the caller remembers to
// pass a fresh dict each time), a LabelTable is always constructed
// fresh per top-level Assemble call and threaded explicitly through
// every nested include.
type LabelTable struct {
	global map[string]uint16
	locals map[string][]uint16 // decimal name -> defined addresses, strictly increasing
}

func NewLabelTable() *LabelTable {
	return &LabelTable{
		global: make(map[string]uint16),
		locals: make(map[string][]uint16),
	}
}

func isLocalName(name string) bool {
	_, err := strconv.ParseUint(name, 10, 64)
	return err == nil
}

// DefineGlobal records a global label's address. Redefinition is an error.
func (lt *LabelTable) DefineGlobal(name string, addr uint16) error {
	if isLocalName(name) {
		return fmt.Errorf("label %q: decimal names are reserved for local labels", name)
	}
	if _, exists := lt.global[name]; exists {
		return fmt.Errorf("label %q redefined", name)
	}
	lt.global[name] = addr
	return nil
}

// DefineLocal appends another definition of decimal local label `name`
// at `addr`. Definitions must be supplied in increasing address order
// (true of any single left-to-right assembly pass).
func (lt *LabelTable) DefineLocal(name string, addr uint16) {
	lt.locals[name] = append(lt.locals[name], addr)
}

// ResolveGlobal looks up a global (non-decimal) label.
func (lt *LabelTable) ResolveGlobal(name string) (uint16, error) {
	addr, ok := lt.global[name]
	if !ok {
		return 0, fmt.Errorf("undefined label %q", name)
	}
	return addr, nil
}

// ResolveLocal looks up decimal local label `name` relative to the
// referencing instruction's address `fromAddr`, per direction dir
// ("f" = next definition strictly after fromAddr, "b" = nearest
// definition at or before fromAddr).
func (lt *LabelTable) ResolveLocal(name string, fromAddr uint16, dir string) (uint16, error) {
	defs := lt.locals[name]
	switch dir {
	case "f":
		for _, a := range defs {
			if a > fromAddr {
				return a, nil
			}
		}
		return 0, fmt.Errorf("no forward local label %q from address 0x%04x", name, fromAddr)
	case "b":
		best := -1
		for _, a := range defs {
			if a <= fromAddr {
				best = int(a)
			}
		}
		if best < 0 {
			return 0, fmt.Errorf("no backward local label %q from address 0x%04x", name, fromAddr)
		}
		return uint16(best), nil
	default:
		return 0, fmt.Errorf("local label %q: direction must be f or b", name)
	}
}
