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

// Package gen is the constrained random test generator (§4.6): given a
// weighted mnemonic bias, a seed and an instruction budget, it drives
// internal/sim as a legality oracle and emits an assembly program plus
// its companion I/O script. Grounded in scripts/tgen.py's
// rand_init/rand_instr/end_test/save shape, generalized for this ISA's
// full instruction set, predicate shadow discipline and writeback
// memory forms, which tgen.py's own single-mnemonic ('add'-only)
// prototype never had to handle.
package gen

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/pdxjjb/idli16/internal/dis"
	"github.com/pdxjjb/idli16/internal/encode"
	"github.com/pdxjjb/idli16/internal/isa"
	"github.com/pdxjjb/idli16/internal/script"
	"github.com/pdxjjb/idli16/internal/sim"
)

// Bias is the mnemonic -> weight distribution a caller loads from the
// generator's `-b` YAML file (§6). Weights need not sum to 1.
type Bias map[string]float64

// Options configures one generation run. Seed defaults to 0xdeadbeef
// and Count to 250 in the CLI (§6); Generate itself requires both to
// be supplied explicitly.
type Options struct {
	Seed    int64
	Count   int
	Verbose bool
}

// Result is one generation run's output artifacts.
type Result struct {
	Asm    string
	Script script.Script
}

// maxWords is the assembled binary's word ceiling (§6: "strictly less
// than 64 KiB", i.e. 32768 words) — the same bound cmd/asm enforces on
// its own output. The generator must never hand out a scratch address
// at or above maxWords-1: a `.int` placed at maxWords-1 already makes
// the binary maxWords long, which cmd/asm rejects.
const maxWords = 1 << 15

// codeMargin is the headroom step() keeps between the oracle's live pc
// and the scratch allocator's current low-water mark: enough room for
// one more worst-case instruction (a memory access needs a 2-word
// setup plus its own up-to-2-word form) plus the epilogue that always
// follows once generation stops (drained shadow tags, drained count-op
// duration, the 7-character @@END@@ marker, the exit word, the final
// branch).
const codeMargin = 64

// Generate produces a legal assembly program exercising bias-weighted
// mnemonics, using a freshly seeded oracle simulator to track live
// register values and to keep every emitted instruction legal.
func Generate(bias Bias, opt Options) (*Result, error) {
	if len(bias) == 0 {
		return nil, fmt.Errorf("gen: empty bias")
	}
	if opt.Count <= 0 {
		return nil, fmt.Errorf("gen: instruction count must be positive")
	}

	g := &generator{
		rng:   rand.New(rand.NewSource(opt.Seed)),
		bias:  bias,
		mnems: sortedKeys(bias),
		verbose: opt.Verbose,
	}
	g.cb = newGenCallback(g.rng)
	g.sim = sim.New(g.cb, opt.Verbose)
	g.freeData = maxWords - 1 // a literal at maxWords-1 would make the binary exactly maxWords long

	g.prologue()
	for i := 0; i < opt.Count; i++ {
		if g.outOfRoom() {
			break
		}
		if err := g.step(); err != nil {
			return nil, fmt.Errorf("gen: instruction %d: %w", i, err)
		}
	}
	if err := g.epilogue(); err != nil {
		return nil, fmt.Errorf("gen: epilogue: %w", err)
	}

	return &Result{
		Asm: g.render(),
		Script: script.Script{
			Input:  g.cb.input,
			Output: g.cb.output,
		},
	}, nil
}

func sortedKeys(bias Bias) []string {
	out := make([]string, 0, len(bias))
	for k := range bias {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// generator holds all state threaded through one Generate call. Unlike
// the prototype's module-level random.seed()/global args, every piece
// of mutable state here lives on this struct, constructed fresh per
// call.
type generator struct {
	rng     *rand.Rand
	bias    Bias
	mnems   []string
	verbose bool

	cb  *genCallback
	sim *sim.Sim

	lines    []string // rendered assembly lines, in program order
	freeData uint16   // low-water mark of the downward-growing scratch allocator; everything below it is claimed

	shadowTags []string // pending predicate tags this generator will stamp on upcoming instructions
}

// outOfRoom reports whether the oracle's pc has grown close enough to
// the scratch allocator's current low-water mark that no more
// instructions should be appended; §4.6 step 2's guard. The scratch
// band is tracked dynamically against the live pc rather than reserved
// at a fixed address, so this is the only place growth is bounded.
func (g *generator) outOfRoom() bool {
	return int(g.sim.PC())+codeMargin >= int(g.freeData)
}

func (g *generator) emit(line string) {
	g.lines = append(g.lines, line)
}

// prologue emits the 15 register-initialising adds plus `putp 0`
// (§4.6 step 1) and ticks them through the oracle.
func (g *generator) prologue() {
	for i := 1; i < 16; i++ {
		imm := int16(g.rng.Intn(0x10000))
		ins := encode.Instruction{
			Mnemonic: "add",
			Ops:      map[string]uint16{"a": uint16(i), "b": isa.Zr, "c": isa.Sp},
			Imm:      &imm,
		}
		g.tick(ins)
		g.emit(fmt.Sprintf("add %s, zr, 0x%04x", isa.RegNames[i], uint16(imm)))
	}
	zero := int16(0)
	putp := encode.Instruction{Mnemonic: "putp", Ops: map[string]uint16{"c": isa.Sp}, Imm: &zero}
	g.tick(putp)
	g.emit("putp 0")
}

// tick runs a deep clone of ins through the oracle simulator at its
// current pc, so the staged copy shares no map or pointer with ins.
func (g *generator) tick(ins encode.Instruction) {
	clone := ins.Clone()
	g.cb.place(g.sim.PC(), clone)
	if err := g.sim.Tick(); err != nil {
		panic(fmt.Sprintf("gen: oracle tick failed for a generator-constructed instruction: %v", err))
	}
}

// step samples one mnemonic, fills its operands, assigns its predicate
// tag, ticks the oracle, and emits its rendered source line(s).
func (g *generator) step() error {
	mnem := g.sampleMnemonic()

	ins := encode.Instruction{Mnemonic: mnem, Ops: map[string]uint16{}}
	if len(g.shadowTags) > 0 {
		ins.Cond = g.shadowTags[0]
		g.shadowTags = g.shadowTags[1:]
	}

	pat, ok := isa.Patterns[mnem]
	if !ok {
		return fmt.Errorf("unknown mnemonic %q in bias", mnem)
	}

	memAccess := needsMemorySetup(mnem)

	for _, f := range pat.Fields {
		switch f.Letter {
		case 'a':
			ins.Ops["a"] = uint16(g.rng.Intn(16))
		case 'b':
			if !memAccess {
				ins.Ops["b"] = uint16(g.rng.Intn(16))
			}
		case 'r', 's':
			ins.Ops[string(f.Letter)] = uint16(g.rng.Intn(16))
		case 'n':
			ins.Ops["n"] = uint16(g.rng.Intn(4))
		case 'j':
			ins.Ops["j"] = uint16(g.rng.Intn(16))
		case 'm':
			ins.Ops["m"] = uint16(1 + g.rng.Intn(7))
		case 'c':
			switch {
			case memAccess:
				// arrangeMemoryAccess below pins b (and c, if present)
				// once it knows the range size.
			case isBranchMnemonic(mnem):
				g.fillBranchTarget(&ins)
			default:
				g.fillC(&ins)
			}
		}
	}

	if memAccess {
		g.arrangeMemoryAccess(&ins, pat)
	}

	if ins.Mnemonic == "cex" {
		k := int(ins.Ops["m"])
		tags := make([]string, k)
		mask := uint16(1) << uint(k)
		for i := 0; i < k; i++ {
			if g.rng.Intn(2) == 1 {
				tags[i] = ".t"
				mask |= 1 << uint(i)
			} else {
				tags[i] = ".f"
			}
		}
		raw := mask
		ins.CexMask = &raw
		g.shadowTags = append(g.shadowTags, tags...)
	} else if isa.IsCmpx(mnem) {
		g.shadowTags = append(g.shadowTags, ".t")
	}

	g.tick(ins)
	g.emit(g.renderLine(ins))
	return nil
}

// arrangeMemoryAccess points a memory-accessing instruction's base
// register at a freshly allocated, disjoint scratch address instead of
// leaving it on whatever value the fields loop would otherwise have
// drawn for b: sim.go's loadStore and multiReg always compute the real
// address off the live value of b (plain ld/st add c's value or
// immediate on top; the post-adjusting forms and ldm/stm use it
// directly; the pre-adjusting forms use b+1 or b-1, so b is set one
// step back from the allocated address), so a b left to chance reopens
// exactly the collision this is meant to close, no matter how carefully
// c is chosen. sampleMnemonic
// never selects a memory mnemonic while a shadow is pending, so the
// setup instruction emitted here never needs a predicate tag of its own.
func (g *generator) arrangeMemoryAccess(ins *encode.Instruction, pat isa.Pattern) {
	size := uint16(1)
	if pat.HasR {
		size = uint16(regRangeLen(ins.Ops["r"], ins.Ops["s"]))
	}
	addr := g.allocData(size)
	base := addr
	switch ins.Mnemonic[0] {
	case '+':
		base = addr - 1
	case '-':
		base = addr + 1
	}

	bReg := uint16(1 + g.rng.Intn(15)) // never zr: the setup instruction must be able to write it
	imm := int16(base)
	setup := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": bReg, "b": isa.Zr, "c": isa.Sp}, Imm: &imm}
	g.tick(setup)
	g.emit(fmt.Sprintf("add %s, zr, 0x%04x", isa.RegNames[bReg], base))

	ins.Ops["b"] = bReg
	if pat.HasC {
		ins.Ops["c"] = isa.Zr
	}
}

// sampleMnemonic draws a weighted random base mnemonic, resampling away
// from shadow setters while a predicate shadow is still pending (§4.6
// step 2's discipline guard) and falling back to `add` if the bias has
// nothing else to offer.
func (g *generator) sampleMnemonic() string {
	for attempt := 0; attempt < 64; attempt++ {
		m := g.weightedPick()
		if len(g.shadowTags) > 0 && (isa.IsShadowSetter(m) || needsMemorySetup(m)) {
			continue
		}
		return m
	}
	return "add"
}

// needsMemorySetup reports whether mnem is a memory-accessing mnemonic
// whose operands arrangeMemoryAccess must arrange, which always means
// emitting an untagged setup instruction ahead of it — so it can only
// ever be sampled outside an active predicate shadow.
func needsMemorySetup(mnem string) bool {
	if isMemAccessMnemonic(mnem) {
		return true
	}
	pat, ok := isa.Patterns[mnem]
	return ok && pat.HasR
}

func isMemAccessMnemonic(mnem string) bool {
	switch mnem {
	case "ld", "st", "ld+", "st+", "+ld", "+st", "ld-", "st-", "-ld", "-st":
		return true
	}
	return false
}

func (g *generator) weightedPick() string {
	total := 0.0
	for _, m := range g.mnems {
		total += g.bias[m]
	}
	if total <= 0 {
		return g.mnems[g.rng.Intn(len(g.mnems))]
	}
	r := g.rng.Float64() * total
	for _, m := range g.mnems {
		r -= g.bias[m]
		if r <= 0 {
			return m
		}
	}
	return g.mnems[len(g.mnems)-1]
}

// fillC decides whether the `c` operand takes a register or an
// immediate, and rewrites a register pick that landed on the sp
// sentinel (15) into the immediate form instead (§4.6 step 3).
func (g *generator) fillC(ins *encode.Instruction) {
	useImmediate := g.rng.Intn(2) == 0

	if !useImmediate {
		reg := uint16(g.rng.Intn(16))
		if reg != isa.Sp {
			ins.Ops["c"] = reg
			return
		}
		// landed on the sp sentinel by chance: fix up to immediate form.
	}

	ins.Ops["c"] = isa.Sp
	imm := int16(g.rng.Intn(0x10000))
	ins.Imm = &imm
}

func isBranchMnemonic(mnem string) bool {
	switch mnem {
	case "b", "j", "bl", "jl":
		return true
	}
	return false
}

// fillBranchTarget always gives a control-flow instruction a target
// the oracle has actually staged an instruction at: the instruction
// immediately following it in program order. The generator only ever
// grows the program forward in address order, so it has no way to
// predict a legal *divergent* target in advance; a random target would
// almost certainly land on an address nothing was ever staged at and
// crash the oracle's next Fetch. This still exercises the opcode's
// real encoding and the simulator's redirect-vs-fallthrough dispatch,
// it just never changes where execution actually goes.
func (g *generator) fillBranchTarget(ins *encode.Instruction) {
	ins.Ops["c"] = isa.Sp
	const size = 2 // always the immediate form, so always 2 words
	nextSeq := g.sim.PC() + size
	var imm int16
	if ins.Mnemonic == "b" || ins.Mnemonic == "bl" {
		// dispatch sees pc already advanced past the immediate word.
		imm = int16(nextSeq - (g.sim.PC() + 1))
	} else {
		imm = int16(nextSeq)
	}
	ins.Imm = &imm
}

// allocData hands out n consecutive fresh addresses from the scratch
// band, which grows downward from maxWords-1: each call claims the n
// addresses immediately below the current low-water mark, so every
// allocation this run ever makes is disjoint from every other one, and
// disjoint from the code the main loop keeps appending below it
// (outOfRoom is what keeps pc from ever catching up).
func (g *generator) allocData(n uint16) uint16 {
	g.freeData -= n
	return g.freeData
}

func regRangeLen(r, s uint16) int {
	if s >= r {
		return int(s-r) + 1
	}
	return int(16-r+s) + 1
}

// renderLine turns a ticked instruction back into source text via
// internal/dis's operand formatter. The one difference from the
// disassembly syntax is the ldm/stm register range, which dis prints
// as `r..s` and the assembler takes as two registers, `r, s`.
func (g *generator) renderLine(ins encode.Instruction) string {
	name := ins.Mnemonic + ins.Cond
	operands := dis.FormatOperands(ins)
	if isa.Patterns[ins.Mnemonic].HasR {
		operands = strings.Replace(operands, "..", ", ", 1)
	}
	if operands == "" {
		return name
	}
	return name + " " + operands
}

// epilogue pads out any still-pending predicate shadow and count-op
// duration with nops, emits the `@@END@@` marker and zero exit code,
// then a permanent self-branch (§4.6 epilogue).
func (g *generator) epilogue() error {
	for len(g.shadowTags) > 0 {
		cond := g.shadowTags[0]
		g.shadowTags = g.shadowTags[1:]
		nop := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": isa.Zr, "b": isa.Zr, "c": isa.Zr}, Cond: cond}
		g.tick(nop)
		g.emit("nop" + cond)
	}
	for g.sim.Mode() != sim.ModeNone {
		nop := encode.Instruction{Mnemonic: "add", Ops: map[string]uint16{"a": isa.Zr, "b": isa.Zr, "c": isa.Zr}}
		g.tick(nop)
		g.emit("nop")
	}

	g.cb.finished = true
	for _, ch := range "@@END@@" {
		imm := int16(ch)
		utx := encode.Instruction{Mnemonic: "utx", Ops: map[string]uint16{"c": isa.Sp}, Imm: &imm}
		g.tick(utx)
		g.emit(fmt.Sprintf("utx 0x%02x", ch))
	}
	exit := encode.Instruction{Mnemonic: "utx", Ops: map[string]uint16{"c": isa.Zr}}
	g.tick(exit)
	g.emit("utx zr")

	negOne := int16(-1)
	self := encode.Instruction{Mnemonic: "b", Ops: map[string]uint16{"c": isa.Sp}, Imm: &negOne}
	g.tick(self)
	g.emit("b -1")
	return nil
}

// render assembles the final source text: the instruction stream
// followed by a data section placing every literal the oracle had to
// synthesize for an uninitialised read (§4.6 step 7). Literals are
// recorded in the order ReadMem first touched them, which runs opposite
// to address order here since the scratch allocator hands out
// addresses downward from maxWords; `.org` can only move forward
// (internal/asm/parser.go rejects a backward target), so the data
// section must re-sort by address before emitting it.
func (g *generator) render() string {
	var b strings.Builder
	for _, l := range g.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if len(g.cb.literals) > 0 {
		literals := append([]dataLiteral(nil), g.cb.literals...)
		sort.Slice(literals, func(i, j int) bool { return literals[i].addr < literals[j].addr })

		b.WriteByte('\n')
		for _, lit := range literals {
			fmt.Fprintf(&b, ".org 0x%04x\n.int 0x%04x\n", lit.addr, lit.val)
		}
	}
	return b.String()
}
