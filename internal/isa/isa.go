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

// Package isa is the static description of the idli16 instruction set:
// register names, the 16-character bit-pattern grammar of §4.1, and the
// synonym rewrite table. Patterns are compiled once at init time into
// {letter, bit-position} field records rather than re-scanned per
// instruction, following the teacher's own "compiled opcode table"
// idea in dis/dis.go (KeyEntry/SignatureElement/sigFor), generalized
// here to also drive the encoder instead of only the disassembler.
package isa

import "fmt"

// Regs maps register names, including the zr/lr/sp aliases, to register
// numbers 0..15.
var Regs = map[string]uint16{
	"r0": 0, "r1": 1, "r2": 2, "r3": 3,
	"r4": 4, "r5": 5, "r6": 6, "r7": 7,
	"r8": 8, "r9": 9, "r10": 10, "r11": 11,
	"r12": 12, "r13": 13, "r14": 14, "r15": 15,
	"zr": 0, "lr": 14, "sp": 15,
}

// RegNames is the canonical (non-alias) display name for each register.
var RegNames = [16]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "r13", "lr", "sp",
}

const (
	Zr uint16 = 0
	Lr uint16 = 14
	Sp uint16 = 15
)

// Field is a single operand letter within a 16-bit pattern: Pos holds
// the word bit positions the letter occupies (bit 15 is the pattern's
// leftmost character), and the field's width is the number of entries
// in Pos.
type Field struct {
	Letter byte
	Pos    []int // word bit positions (15 = leftmost char), in left-to-right order
}

func (f Field) Width() int { return len(f.Pos) }

// Pattern is one instruction's raw 16-character encoding string plus its
// compiled form.
type Pattern struct {
	Mnemonic string
	Bits     string // 16 chars over {0,1,?,a,b,c,r,s,m,n,j}

	Value  uint16
	Mask   uint16
	Fields []Field // in first-occurrence order; also display order, except where displayOrder overrides it

	// HasC/HasJ/HasM/HasN/HasR report which operand letters this
	// pattern uses, so callers don't need to re-scan Fields.
	HasC, HasJ, HasM, HasN, HasR bool
}

func (p *Pattern) field(letter byte) (Field, bool) {
	for _, f := range p.Fields {
		if f.Letter == letter {
			return f, true
		}
	}
	return Field{}, false
}

// compile derives Value, Mask and Fields from Bits.
func compile(mnem, bits string) Pattern {
	if len(bits) != 16 {
		panic(fmt.Sprintf("isa: %s: pattern must be 16 chars, got %d", mnem, len(bits)))
	}
	p := Pattern{Mnemonic: mnem, Bits: bits}
	order := []byte{}
	seen := map[byte][]int{}
	for i := 0; i < 16; i++ {
		c := bits[i]
		switch c {
		case '0':
			// value bit 0, mask bit 1: nothing to OR into Value
			p.Mask |= 1 << uint(15-i)
		case '1':
			p.Mask |= 1 << uint(15-i)
			p.Value |= 1 << uint(15-i)
		case '?':
			// don't-care: contributes to neither value nor mask
		default:
			if _, ok := seen[c]; !ok {
				order = append(order, c)
			}
			seen[c] = append(seen[c], 15-i)
		}
	}
	for _, letter := range order {
		p.Fields = append(p.Fields, Field{Letter: letter, Pos: seen[letter]})
	}
	_, p.HasC = p.field('c')
	_, p.HasJ = p.field('j')
	_, p.HasM = p.field('m')
	_, p.HasN = p.field('n')
	_, p.HasR = p.field('r')
	return p
}

// rawEncodings is the ENCODINGS table of the original idli prototype,
// with three deliberate redesigns: `bit`/`bitx` are not carried forward
// (see `any`/`anyx` below), `out1` is replaced by `outn`, and the single
// one-shot `carry` instruction is replaced by three duration-counted
// count-op configurators (`carry`, `andp`, `orp`), all three now taking
// a real 4-bit immediate `j` rather than a register/immediate `c`.
var rawEncodings = map[string]string{
	"add": "0000aaaabbbbcccc",
	"sub": "0001aaaabbbbcccc",

	"and":  "0010aaaabbbbcccc",
	"andn": "0011aaaabbbbcccc",
	"or":   "0100aaaabbbbcccc",
	"xor":  "0101aaaabbbbcccc",

	"ld": "0110aaaabbbbcccc",
	"st": "0111aaaabbbbcccc",

	"ldm": "1000rrrrbbbbssss",
	"stm": "1001rrrrbbbbssss",

	"ld+": "1010aaaabbbb0000",
	"st+": "1010aaaabbbb0001",
	"+ld": "1010aaaabbbb0010",
	"+st": "1010aaaabbbb0011",
	"ld-": "1010aaaabbbb0100",
	"st-": "1010aaaabbbb0101",
	"-ld": "1010aaaabbbb0110",
	"-st": "1010aaaabbbb0111",

	"inc": "1010aaaabbbb1000",
	"dec": "1010aaaabbbb1001",

	"srl": "1010aaaabbbb1010",
	"sra": "1010aaaabbbb1011",
	"ror": "1010aaaabbbb1100",
	"rol": "1010aaaabbbb1101",
	"not": "1010aaaabbbb1110",

	"urx":  "1010aaaa00001111",
	"getp": "1010aaaa00011111",

	"eq":  "10110000bbbbcccc",
	"ne":  "10110001bbbbcccc",
	"lt":  "10110010bbbbcccc",
	"ltu": "10110011bbbbcccc",
	"ge":  "10110100bbbbcccc",
	"geu": "10110101bbbbcccc",
	"any": "10110110bbbbcccc",
	"inp": "10110111??nn????",

	"eqx":  "10111000bbbbcccc",
	"nex":  "10111001bbbbcccc",
	"ltx":  "10111010bbbbcccc",
	"ltux": "10111011bbbbcccc",
	"gex":  "10111100bbbbcccc",
	"geux": "10111101bbbbcccc",
	"anyx": "10111110bbbbcccc",
	"inpx": "10111111??nn????",

	"addpc": "1100aaaa0000cccc",

	"b":  "110000001111cccc",
	"j":  "110000011111cccc",
	"bl": "110000101111cccc",
	"jl": "110000111111cccc",

	"in":   "1101aaaa00nn????",
	"out":  "1101000001nncccc",
	"outn": "1101000101nncccc",
	"outp": "1101001010nn????",

	"utx":   "1101000011??cccc",
	"carry": "1101000111??jjjj",
	"putp":  "1101001011??cccc",
	"andp":  "1101001101??jjjj",
	"orp":   "1101001110??jjjj",

	"cex": "11100000mmmmmmmm",
}

// Patterns is rawEncodings compiled, keyed by mnemonic.
var Patterns = map[string]Pattern{}

// Order is the mnemonic list in a stable, deterministic iteration order
// (map iteration order in Go is randomized, and the collision check and
// disassembler candidate scan both need one).
var Order []string

func init() {
	for mnem, bits := range rawEncodings {
		Patterns[mnem] = compile(mnem, bits)
		Order = append(Order, mnem)
	}
	sortStrings(Order)
	checkCollisions()
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// checkCollisions enforces the encoding-collision invariant: no two
// patterns may match the same 16-bit word. It panics at program start
// if the table is inconsistent, matching the spec's "opcode-table
// collision at startup" error kind — this can only be a programming
// error in this package, never a runtime condition.
func checkCollisions() {
	for i, m1 := range Order {
		for _, m2 := range Order[i+1:] {
			p1, p2 := Patterns[m1], Patterns[m2]
			common := p1.Mask & p2.Mask
			if (p1.Value & common) == (p2.Value & common) {
				panic(fmt.Sprintf("isa: opcode collision between %q and %q", m1, m2))
			}
		}
	}
}

// Synonym describes how a convenience mnemonic rewrites to a base
// instruction. Fixed supplies a constant value for an operand letter
// the user does not type; CopyFrom supplies a value by copying whatever
// the user typed for a different operand letter. The original Python
// prototype's SYNONYMS table only had the Fixed half; CopyFrom is a
// generalization this repo needed for `sll a, b` -> `add a, b, b`,
// where c must equal whatever the user wrote for b rather than a
// constant.
type Synonym struct {
	Base      string
	Fixed     map[string]uint16
	CopyFrom  map[string]string
}

// Synonyms is the full rewrite table (§4.1). push/pop are new relative
// to the prototype's SYNONYMS dict (which only had mov/ret/nop); they
// are expressed here as pre-decrement-store / post-increment-load
// through sp, per spec.md's synonym description.
var Synonyms = map[string]Synonym{
	"mov": {Base: "add", Fixed: map[string]uint16{"b": Zr}},
	"ret": {Base: "j", Fixed: map[string]uint16{"c": Lr}},
	"nop": {Base: "add", Fixed: map[string]uint16{"a": Zr, "b": Zr, "c": Zr}},
	"push": {Base: "-st", Fixed: map[string]uint16{"b": Sp}},
	"pop":  {Base: "ld+", Fixed: map[string]uint16{"b": Sp}},
	"sll":  {Base: "add", CopyFrom: map[string]string{"c": "b"}},
}

// displayOrder overrides the pattern's left-to-right bit-scan order for
// the handful of mnemonics where the assembly syntax's natural argument
// order differs from it. ldm/stm's pattern is "rrrrbbbbssss" (r, b, s
// in bit-scan order) but the syntax is `ldm r, s, b` — the user names
// both ends of the register range before the base register. The
// disassembler prints the range as `r..s`; the assembler does not
// accept that form.
var displayOrder = map[string][]string{
	"ldm": {"r", "s", "b"},
	"stm": {"r", "s", "b"},
}

// DisplayOrder returns the operand letters of base mnemonic `base`, in
// the order a user types them (and the order the disassembler prints
// them), which is the pattern's bit-scan order except where overridden
// above.
func DisplayOrder(base string) ([]string, error) {
	if order, ok := displayOrder[base]; ok {
		return append([]string(nil), order...), nil
	}
	pat, ok := Patterns[base]
	if !ok {
		return nil, fmt.Errorf("unknown mnemonic %q", base)
	}
	letters := make([]string, 0, len(pat.Fields))
	for _, f := range pat.Fields {
		letters = append(letters, string(f.Letter))
	}
	return letters, nil
}

// Operands returns, in display order, the operand letters a user must
// supply when writing `mnem` — the base mnemonic's distinct operand
// letters (in DisplayOrder) minus whatever a synonym's Fixed/CopyFrom
// entries already supply.
func Operands(mnem string) ([]string, error) {
	base := mnem
	var syn *Synonym
	if s, ok := Synonyms[mnem]; ok {
		syn = &s
		base = s.Base
	}
	all, err := DisplayOrder(base)
	if err != nil {
		return nil, err
	}
	var letters []string
	for _, l := range all {
		if syn != nil {
			if _, fixed := syn.Fixed[l]; fixed {
				continue
			}
			if _, copied := syn.CopyFrom[l]; copied {
				continue
			}
		}
		letters = append(letters, l)
	}
	return letters, nil
}

// BaseMnemonic resolves a synonym (or itself, if mnem is already a base
// mnemonic) to the underlying encoded instruction name.
func BaseMnemonic(mnem string) string {
	if s, ok := Synonyms[mnem]; ok {
		return s.Base
	}
	return mnem
}

// IsMnemonic reports whether name is a base mnemonic or a synonym for
// one. `bit`/`bitx` are deliberately absent (see rawEncodings)
// and must be refused by callers, not aliased.
func IsMnemonic(name string) bool {
	if _, ok := Patterns[name]; ok {
		return true
	}
	_, ok := Synonyms[name]
	return ok
}

// cmpxSet is the set of shadow-setting compare instructions: each *x
// comparison always pushes exactly one `.t` follower tag.
var cmpxSet = map[string]bool{
	"eqx": true, "nex": true, "ltx": true, "ltux": true,
	"gex": true, "geux": true, "anyx": true, "inpx": true,
}

// IsShadowSetter reports whether mnem pushes predicate-shadow follower
// tags (the *x comparisons, always exactly one; cex, a count given by
// its m operand).
func IsShadowSetter(mnem string) bool {
	return mnem == "cex" || cmpxSet[mnem]
}

// IsCmpx reports whether mnem is one of the *x comparison instructions.
func IsCmpx(mnem string) bool { return cmpxSet[mnem] }
