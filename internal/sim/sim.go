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

// Package sim is the behavioural simulator: architectural state plus
// Tick()'s fetch/check/dispatch/advance loop. The overall shape — a
// struct holding pc/regs/pred/cond, a funcs-style dispatch per
// mnemonic, and _log-style verbose tracing — is grounded in
// scripts/sim.py's Sim class. Most individual instruction handlers
// there are stubs (mapped to `None` in self.funcs); this package
// implements every mnemonic's semantics per §4.5, including the ones
// the prototype never finished (and/or/xor/ld/st/ldm/stm/shifts/
// addpc/in/out/outp/inp/getp/putp and the carry/andp/orp count-op
// configurators).
package sim

import (
	"fmt"
	"strings"

	"github.com/pdxjjb/idli16/internal/clilog"
	"github.com/pdxjjb/idli16/internal/encode"
	"github.com/pdxjjb/idli16/internal/isa"
)

// Sim holds all architectural state. It is mutated only by Tick.
type Sim struct {
	cb      Callback
	verbose bool

	pc   uint16
	regs [16]uint16
	pred bool
	cond uint16 // raw shadow mask, including its high-order terminator bit

	cin bool

	mode          CountMode
	modeRemaining int
	modeJustSet   bool

	ticks int

	// nextSeq is the next-sequential address computed at the top of
	// the current Tick, used by bl/jl to compute the link value.
	nextSeq uint16
}

func New(cb Callback, verbose bool) *Sim {
	return &Sim{cb: cb, verbose: verbose}
}

func (s *Sim) PC() uint16          { return s.pc }
func (s *Sim) Reg(n int) uint16    { return s.regs[n] }
func (s *Sim) Pred() bool          { return s.pred }
func (s *Sim) Cond() uint16        { return s.cond }
func (s *Sim) Ticks() int          { return s.ticks }
func (s *Sim) Mode() CountMode     { return s.mode }

// Tick executes exactly one instruction, per the fetch/check/dispatch/
// advance algorithm of §4.5.
func (s *Sim) Tick() error {
	ins, err := s.cb.Fetch(s.pc)
	if err != nil {
		return fmt.Errorf("fetch at 0x%04x: %w", s.pc, err)
	}

	s.nextSeq = s.pc + uint16(ins.Size())
	if ins.Imm != nil {
		s.pc++
	}

	run := s.checkRun()
	var redirect *uint16
	if run {
		redirect, err = s.dispatch(ins)
		if err != nil {
			return err
		}
	} else {
		s.logf("SKIP")
	}

	if redirect != nil {
		s.logf("BRANCH 0x%04x", *redirect)
		s.pc = *redirect
	} else {
		s.pc = s.nextSeq
	}

	s.advanceCountMode()
	s.ticks++
	return nil
}

// checkRun reports whether the current instruction should execute,
// consuming one bit of the shadow queue if one is active. cond values
// 0 and 1 both mean "no active shadow" (1 is the bare terminator with
// zero data bits, the state a fully-drained queue settles into).
func (s *Sim) checkRun() bool {
	if s.cond == 0 || s.cond == 1 {
		return true
	}
	run := (s.cond&1 != 0) == s.pred
	s.cond >>= 1
	return run
}

func (s *Sim) advanceCountMode() {
	if s.modeJustSet {
		s.modeJustSet = false
		return
	}
	if s.mode == ModeNone {
		return
	}
	s.modeRemaining--
	if s.modeRemaining <= 0 {
		s.mode = ModeNone
		s.modeRemaining = 0
	}
}

func (s *Sim) writeReg(reg uint16, value uint16) {
	if reg == isa.Zr {
		return
	}
	s.regs[reg] = value
	s.cb.WriteReg(int(reg), value)
	s.logf("REG %s 0x%04x", isa.RegNames[reg], value)
}

func (s *Sim) writePred(v bool) {
	s.pred = v
	s.cb.WritePred(v)
	s.logf("PRED %v", v)
}

func (s *Sim) writeCond(v uint16) {
	s.cond = v
	s.cb.WriteCond(v)
	s.logf("COND 0x%04x", v)
}

func (s *Sim) logf(format string, args ...any) {
	if s.verbose {
		clilog.Trace(0, fmt.Sprintf("%6d ", s.ticks)+format, args...)
	}
}

// regOrImm resolves operand letter (b, or c which may be the sp
// sentinel for "read the instruction's trailing immediate instead").
func (s *Sim) regOrImm(ins encode.Instruction, letter string) uint16 {
	v := ins.Ops[letter]
	if letter == "c" && v == isa.Sp {
		return uint16(*ins.Imm)
	}
	return s.regs[v]
}

func u2s(v uint16) int16 { return int16(v) }

// dispatch runs ins's handler and returns a redirect address if the
// instruction changes control flow.
func (s *Sim) dispatch(ins encode.Instruction) (*uint16, error) {
	switch ins.Mnemonic {
	case "add", "sub":
		s.addSub(ins)
	case "and":
		s.writeReg(ins.Ops["a"], s.regs[ins.Ops["b"]]&s.regOrImm(ins, "c"))
	case "andn":
		s.writeReg(ins.Ops["a"], s.regs[ins.Ops["b"]]&^s.regOrImm(ins, "c"))
	case "or":
		s.writeReg(ins.Ops["a"], s.regs[ins.Ops["b"]]|s.regOrImm(ins, "c"))
	case "xor":
		s.writeReg(ins.Ops["a"], s.regs[ins.Ops["b"]]^s.regOrImm(ins, "c"))
	case "not":
		s.writeReg(ins.Ops["a"], ^s.regs[ins.Ops["b"]])
	case "inc":
		s.writeReg(ins.Ops["a"], s.regs[ins.Ops["b"]]+1)
	case "dec":
		s.writeReg(ins.Ops["a"], s.regs[ins.Ops["b"]]-1)
	case "srl", "sra", "ror", "rol":
		s.shift(ins)
	case "ld", "st", "ld+", "st+", "+ld", "+st", "ld-", "st-", "-ld", "-st":
		return nil, s.loadStore(ins)
	case "ldm", "stm":
		return nil, s.multiReg(ins)
	case "urx":
		v, err := s.cb.ReadUART()
		if err != nil {
			return nil, fmt.Errorf("urx: %w", err)
		}
		s.writeReg(ins.Ops["a"], v)
	case "utx":
		s.cb.WriteUART(s.regOrImm(ins, "c"))
	case "getp":
		var v uint16
		if s.pred {
			v = 1
		}
		s.writeReg(ins.Ops["a"], v)
	case "putp":
		s.writePred(s.regOrImm(ins, "c")&1 != 0)
	case "cex":
		if ins.CexMask == nil {
			return nil, fmt.Errorf("cex: decoded instruction missing raw mask")
		}
		s.writeCond(*ins.CexMask)
	case "eq", "ne", "lt", "ltu", "ge", "geu", "any",
		"eqx", "nex", "ltx", "ltux", "gex", "geux", "anyx":
		s.cmp(ins)
	case "addpc":
		s.writeReg(ins.Ops["a"], s.pc+s.regOrImm(ins, "c"))
	case "b", "j", "bl", "jl":
		return s.jmp(ins)
	case "in":
		var v uint16
		if s.cb.ReadPin(int(ins.Ops["n"]))&1 != 0 {
			v = 1
		}
		s.writeReg(ins.Ops["a"], v)
	case "out":
		s.cb.WritePin(int(ins.Ops["n"]), int(s.regOrImm(ins, "c")&1))
	case "outn":
		s.cb.WritePin(int(ins.Ops["n"]), int((^s.regOrImm(ins, "c"))&1))
	case "outp":
		v := 0
		if s.pred {
			v = 1
		}
		s.cb.WritePin(int(ins.Ops["n"]), v)
	case "inp", "inpx":
		s.writePred(s.cb.ReadPin(int(ins.Ops["n"])) != 0)
		if ins.Mnemonic == "inpx" {
			s.writeCond(0b11)
		}
	case "carry", "andp", "orp":
		s.configureCountMode(ins)
	default:
		return nil, fmt.Errorf("no handler for mnemonic %q", ins.Mnemonic)
	}
	return nil, nil
}

func (s *Sim) addSub(ins encode.Instruction) {
	lhs := s.regs[ins.Ops["b"]]
	rhs := s.regOrImm(ins, "c")

	var wide int64
	if ins.Mnemonic == "add" {
		wide = int64(lhs) + int64(rhs)
		if s.mode == ModeCarry && s.cin {
			wide++
		}
	} else {
		wide = int64(lhs) - int64(rhs)
		if s.mode == ModeCarry && s.cin {
			wide--
		}
	}
	s.cin = wide > 0xffff || wide < 0
	s.writeReg(ins.Ops["a"], uint16(wide))
}

func (s *Sim) shift(ins encode.Instruction) {
	lhs := s.regs[ins.Ops["b"]]
	var out uint16
	var shiftedOut bool
	switch ins.Mnemonic {
	case "srl":
		out = lhs >> 1
		if s.mode == ModeCarry && s.cin {
			out |= 0x8000
		}
		shiftedOut = lhs&1 != 0
	case "sra":
		out = uint16(u2s(lhs) >> 1)
		shiftedOut = lhs&1 != 0
	case "ror":
		out = (lhs >> 1) | (lhs << 15)
		shiftedOut = lhs&1 != 0
	case "rol":
		out = (lhs << 1) | (lhs >> 15)
		shiftedOut = lhs&0x8000 != 0
	}
	s.cin = shiftedOut
	s.writeReg(ins.Ops["a"], out)
}

// loadStore handles base ld/st and all eight pre/post increment/
// decrement writeback variants. Plain ld/st address as b + offset(c);
// the writeback forms have no c operand and address directly off b,
// pre- or post-adjusted by +/-1 depending on whether the sign
// character leads (pre) or trails (post) the mnemonic.
func (s *Sim) loadStore(ins encode.Instruction) error {
	aReg := ins.Ops["a"]
	bReg := ins.Ops["b"]
	bVal := s.regs[bReg]

	isLoad := strings.Contains(ins.Mnemonic, "ld")
	plain := ins.Mnemonic == "ld" || ins.Mnemonic == "st"

	var delta int16
	if strings.Contains(ins.Mnemonic, "+") {
		delta = 1
	} else if strings.Contains(ins.Mnemonic, "-") {
		delta = -1
	}
	pre := len(ins.Mnemonic) > 0 && (ins.Mnemonic[0] == '+' || ins.Mnemonic[0] == '-')

	var addr uint16
	switch {
	case plain:
		addr = bVal + s.regOrImm(ins, "c")
	case pre:
		addr = uint16(int32(bVal) + int32(delta))
	default:
		addr = bVal
	}

	if isLoad {
		v, err := s.cb.ReadMem(addr)
		if err != nil {
			return fmt.Errorf("%s: %w", ins.Mnemonic, err)
		}
		if delta != 0 {
			s.writebackBase(bReg, bVal, addr, pre, delta)
		}
		s.writeReg(aReg, v)
	} else {
		val := s.regs[aReg] // read before any writeback, so b == a stores the original a
		s.cb.WriteMem(addr, val)
		if delta != 0 {
			s.writebackBase(bReg, bVal, addr, pre, delta)
		}
	}
	return nil
}

func (s *Sim) writebackBase(bReg uint16, bVal uint16, addr uint16, pre bool, delta int16) {
	if pre {
		s.writeReg(bReg, addr)
		return
	}
	s.writeReg(bReg, uint16(int32(bVal)+int32(delta)))
}

func (s *Sim) multiReg(ins encode.Instruction) error {
	rStart := ins.Ops["r"]
	sEnd := ins.Ops["s"]
	addr := s.regs[ins.Ops["b"]]

	reg := rStart
	for {
		if ins.Mnemonic == "ldm" {
			v, err := s.cb.ReadMem(addr)
			if err != nil {
				return fmt.Errorf("ldm: %w", err)
			}
			s.writeReg(reg, v)
		} else {
			s.cb.WriteMem(addr, s.regs[reg])
		}
		if reg == sEnd {
			break
		}
		reg = (reg + 1) % 16
		addr++
	}
	return nil
}

func (s *Sim) cmp(ins encode.Instruction) {
	lhs := s.regs[ins.Ops["b"]]
	rhs := s.regOrImm(ins, "c")

	var result bool
	switch ins.Mnemonic {
	case "eq", "eqx":
		result = lhs == rhs
	case "ne", "nex":
		result = lhs != rhs
	case "lt", "ltx":
		result = u2s(lhs) < u2s(rhs)
	case "ltu", "ltux":
		result = lhs < rhs
	case "ge", "gex":
		result = u2s(lhs) >= u2s(rhs)
	case "geu", "geux":
		result = lhs >= rhs
	case "any", "anyx":
		result = lhs&rhs != 0
	}

	switch s.mode {
	case ModeAndp:
		s.writePred(s.pred && result)
	case ModeOrp:
		s.writePred(s.pred || result)
	default:
		s.writePred(result)
	}

	if ins.Mnemonic[len(ins.Mnemonic)-1] == 'x' {
		s.writeCond(0b11)
	}
}

func (s *Sim) jmp(ins encode.Instruction) (*uint16, error) {
	rhs := s.regOrImm(ins, "c")
	var target uint16
	if ins.Mnemonic[0] == 'b' {
		target = uint16(int32(s.pc) + int32(u2s(rhs)))
	} else {
		target = rhs
	}
	if ins.Mnemonic[len(ins.Mnemonic)-1] == 'l' {
		s.writeReg(isa.Lr, s.nextSeq)
	}
	return &target, nil
}

func (s *Sim) configureCountMode(ins encode.Instruction) {
	j := ins.Ops["j"]
	var mode CountMode
	switch ins.Mnemonic {
	case "carry":
		mode = ModeCarry
	case "andp":
		mode = ModeAndp
	case "orp":
		mode = ModeOrp
	}
	if j == 0 {
		s.mode = ModeNone
		s.modeRemaining = 0
		s.modeJustSet = false
		return
	}
	s.mode = mode
	s.modeRemaining = int(j)
	s.modeJustSet = true
}
