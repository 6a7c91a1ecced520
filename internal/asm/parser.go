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

// parser.go - the two-pass assembler. The overall shape (a context
// struct threaded explicitly through parsing instead of the package
// globals a line-oriented parser tends to accumulate, plus a
// state-handler-per-token-kind dispatch at the top of the statement
// loop) is grounded in the teacher's asm/parser.go parserContext and
// stateHandler table. The grammar and two-pass label resolution are
// this repo's own, since the teacher's parser targets a different,
// simpler ISA with no predication or register ranges.

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdxjjb/idli16/internal/clilog"
	"github.com/pdxjjb/idli16/internal/encode"
	"github.com/pdxjjb/idli16/internal/isa"
)

const maxIncludeDepth = 16

// operand is one parsed-but-not-yet-fully-resolved operand. Register
// and plain-immediate operands are fully resolved at parse time;
// label references carry their name/direction/relativity and are
// resolved once every label's address is known, after the whole
// source (including nested .include files) has been parsed.
type operand struct {
	isLabel    bool
	labelName  string
	labelDir   string // "f" or "b" for a local label reference, else ""
	pcRelative bool   // true for @, false for $
	immediate  bool   // true if this (always the 'c' operand) takes the sp-sentinel + trailing word form
	value      uint16 // resolved register number, or resolved/literal immediate value
}

type itemKind int

const (
	itemInstr itemKind = iota
	itemSpace
	itemOrg
	itemData
)

type item struct {
	kind itemKind
	addr uint16

	mnemonic string // always a base (post-synonym) mnemonic
	cond     string
	ops      map[string]operand
	size     int // words, only meaningful for itemInstr

	n       int    // itemSpace: word count
	orgAddr uint16 // itemOrg: target address
	intVal  uint16 // itemData: the literal word (§3 "Raw data item")
}

// Context is the parser's explicit "bag o' context" (per the teacher's
// parserContext), threaded through every recursive .include call
// instead of living in package state or a Python-style mutable default
// argument.
type Context struct {
	labels          *LabelTable
	items           []*item
	pc              uint16
	shadowRemaining int
	verbose         bool
}

// Assemble assembles the file at path into its packed binary word
// stream.
func Assemble(path string, verbose bool) ([]uint16, error) {
	ctx := &Context{labels: NewLabelTable(), verbose: verbose}
	if err := ctx.parseFile(path, 0); err != nil {
		return nil, err
	}
	return ctx.encodeAll()
}

func (ctx *Context) parseFile(path string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("%s: .include nesting too deep", path)
	}
	lx, err := MakeFileLexer(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer lx.Close()

	clilog.Trace(depth, "assembling %s", path)
	baseDir := filepath.Dir(path)

	for {
		tok := lx.GetToken()
		switch {
		case tok.Kind() == TkEOF:
			return nil
		case tok.Kind() == TkError:
			return fmt.Errorf("%s: lexical error: %s", path, tok.Text())
		case tok.Kind() == TkNewline:
			continue
		case tok.Kind() == TkLabel:
			if err := ctx.defineLabel(tok.Text()); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		case tok.Kind() == TkSymbol && strings.HasPrefix(tok.Text(), "."):
			if err := ctx.parseDirective(lx, tok.Text(), baseDir, depth); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		case tok.Kind() == TkOperator && (tok.Text() == "+" || tok.Text() == "-"):
			next := lx.GetToken()
			if next.Kind() != TkSymbol || (next.Text() != "ld" && next.Text() != "st") {
				return fmt.Errorf("%s: unexpected %q", path, tok.Text())
			}
			mnem := tok.Text() + next.Text()
			if err := ctx.parseInstruction(lx, mnem, path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		case tok.Kind() == TkSymbol:
			mnem := tok.Text()
			if mnem == "ld" || mnem == "st" {
				peek := lx.GetToken()
				if peek.Kind() == TkOperator && (peek.Text() == "+" || peek.Text() == "-") {
					mnem += peek.Text()
				} else {
					lx.Unget(peek)
				}
			}
			if err := ctx.parseInstruction(lx, mnem, path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		default:
			return fmt.Errorf("%s: unexpected token %s", path, tok)
		}
	}
}

func (ctx *Context) defineLabel(name string) error {
	if isLocalName(name) {
		ctx.labels.DefineLocal(name, ctx.pc)
	} else {
		if err := ctx.labels.DefineGlobal(name, ctx.pc); err != nil {
			return err
		}
	}
	clilog.Trace(0, "label %s = 0x%04x", name, ctx.pc)
	return nil
}

func (ctx *Context) parseDirective(lx *Lexer, directive string, baseDir string, depth int) error {
	switch directive {
	case ".include":
		tok := lx.GetToken()
		if tok.Kind() != TkString {
			return fmt.Errorf(".include: expected quoted path")
		}
		name := strings.Trim(tok.Text(), `"`)
		if err := ctx.parseFile(filepath.Join(baseDir, name), depth+1); err != nil {
			return err
		}
		return ctx.expectEndOfStatement(lx)
	case ".space":
		tok := lx.GetToken()
		v, err := parseUintToken(tok)
		if err != nil {
			return fmt.Errorf(".space: %w", err)
		}
		ctx.items = append(ctx.items, &item{kind: itemSpace, addr: ctx.pc, n: int(v)})
		ctx.pc += v
		return ctx.expectEndOfStatement(lx)
	case ".org":
		tok := lx.GetToken()
		v, err := parseUintToken(tok)
		if err != nil {
			return fmt.Errorf(".org: %w", err)
		}
		if v < ctx.pc {
			return fmt.Errorf(".org: target 0x%04x is behind current address 0x%04x", v, ctx.pc)
		}
		ctx.items = append(ctx.items, &item{kind: itemOrg, addr: ctx.pc, orgAddr: v})
		ctx.pc = v
		return ctx.expectEndOfStatement(lx)
	case ".int":
		v, err := ctx.parseSignedLiteral(lx)
		if err != nil {
			return fmt.Errorf(".int: %w", err)
		}
		ctx.items = append(ctx.items, &item{kind: itemData, addr: ctx.pc, intVal: v})
		ctx.pc++
		return ctx.expectEndOfStatement(lx)
	default:
		return fmt.Errorf("unknown directive %q", directive)
	}
}

func (ctx *Context) expectEndOfStatement(lx *Lexer) error {
	tok := lx.GetToken()
	if tok.Kind() != TkNewline && tok.Kind() != TkEOF {
		return fmt.Errorf("unexpected trailing token %s", tok)
	}
	if tok.Kind() == TkEOF {
		lx.Unget(tok) // let the outer loop see EOF too; harmless if lexer is at stEnd
	}
	return nil
}

func (ctx *Context) parseInstruction(lx *Lexer, mnem string, path string) error {
	cond := ""
	peek := lx.GetToken()
	if peek.Kind() == TkSymbol && (peek.Text() == ".t" || peek.Text() == ".f") {
		cond = peek.Text()
	} else {
		lx.Unget(peek)
	}

	if !isa.IsMnemonic(mnem) {
		return fmt.Errorf("unknown mnemonic %q", mnem)
	}
	letters, err := isa.Operands(mnem)
	if err != nil {
		return err
	}

	parsed := map[string]operand{}
	for _, letter := range letters {
		op, err := ctx.parseOperand(lx, letter)
		if err != nil {
			return fmt.Errorf("%s: operand %q: %w", mnem, letter, err)
		}
		parsed[letter] = op
	}
	if err := ctx.expectEndOfStatement(lx); err != nil {
		return fmt.Errorf("%s: %w", mnem, err)
	}

	base := isa.BaseMnemonic(mnem)
	if syn, ok := isa.Synonyms[mnem]; ok {
		for letter, v := range syn.Fixed {
			parsed[letter] = operand{value: v}
		}
		for letter, src := range syn.CopyFrom {
			parsed[letter] = parsed[src]
		}
	}

	size := 1
	if c, ok := parsed["c"]; ok && c.immediate {
		size = 2
	}

	it := &item{kind: itemInstr, addr: ctx.pc, mnemonic: base, cond: cond, ops: parsed, size: size}

	if err := ctx.checkShadowDiscipline(it); err != nil {
		return err
	}

	ctx.items = append(ctx.items, it)
	ctx.pc += uint16(size)
	return nil
}

func (ctx *Context) checkShadowDiscipline(it *item) error {
	if ctx.shadowRemaining > 0 {
		if it.cond == "" {
			return fmt.Errorf("%s: missing predicate tag inside active shadow", it.mnemonic)
		}
		if isa.IsShadowSetter(it.mnemonic) {
			return fmt.Errorf("%s: shadow nesting is not allowed", it.mnemonic)
		}
		ctx.shadowRemaining--
	} else if it.cond != "" {
		return fmt.Errorf("%s: unexpected predicate tag outside any shadow", it.mnemonic)
	}

	switch {
	case it.mnemonic == "cex":
		n := int(it.ops["m"].value)
		if n < 1 || n > 7 {
			return fmt.Errorf("cex: bad count %d (must be 1..7)", n)
		}
		ctx.shadowRemaining = n
	case isa.IsCmpx(it.mnemonic):
		ctx.shadowRemaining = 1
	}
	return nil
}

// parseOperand reads one operand for letter from lx. Register letters
// (a, b, r, s) take a register token; n/j/m take a plain unsigned
// literal; c takes either a register, or (signalling the sp-sentinel
// immediate form) a signed number, character literal, or $/@ label
// reference.
func (ctx *Context) parseOperand(lx *Lexer, letter string) (operand, error) {
	switch letter {
	case "a", "b", "r", "s":
		tok := lx.GetToken()
		if tok.Kind() != TkSymbol {
			return operand{}, fmt.Errorf("expected register, got %s", tok)
		}
		reg, ok := isa.Regs[tok.Text()]
		if !ok {
			return operand{}, fmt.Errorf("unknown register %q", tok.Text())
		}
		return operand{value: reg}, nil
	case "n", "j", "m":
		tok := lx.GetToken()
		v, err := parseUintToken(tok)
		if err != nil {
			return operand{}, err
		}
		return operand{value: v}, nil
	case "c":
		return ctx.parseCOperand(lx)
	}
	return operand{}, fmt.Errorf("internal error: unknown operand letter %q", letter)
}

func (ctx *Context) parseCOperand(lx *Lexer) (operand, error) {
	tok := lx.GetToken()

	neg := false
	if tok.Kind() == TkOperator && tok.Text() == "-" {
		neg = true
		tok = lx.GetToken()
	}

	switch tok.Kind() {
	case TkSymbol:
		reg, ok := isa.Regs[tok.Text()]
		if !ok {
			if tok.Text() == "$" || tok.Text() == "@" {
				// unreachable: $/@ lex as TkOperator, not TkSymbol
			}
			return operand{}, fmt.Errorf("unknown register %q", tok.Text())
		}
		if neg {
			return operand{}, fmt.Errorf("cannot negate a register")
		}
		if reg == isa.Sp {
			return operand{}, fmt.Errorf("sp is not allowed in the c operand slot")
		}
		return operand{value: reg}, nil

	case TkNumber:
		v, err := parseUintToken(tok)
		if err != nil {
			return operand{}, err
		}
		val := int32(v)
		if neg {
			val = -val
		}
		if val < -32768 || val > 65535 {
			return operand{}, fmt.Errorf("immediate %d out of range [-32768, 65535]", val)
		}
		return operand{immediate: true, value: uint16(int16(val))}, nil

	case TkChar:
		if neg {
			return operand{}, fmt.Errorf("cannot negate a character literal")
		}
		return operand{immediate: true, value: uint16(tok.Text()[0])}, nil

	case TkOperator:
		if neg {
			return operand{}, fmt.Errorf("unexpected '-' before %q", tok.Text())
		}
		if tok.Text() != "$" && tok.Text() != "@" {
			return operand{}, fmt.Errorf("unexpected token %s", tok)
		}
		pcRelative := tok.Text() == "@"
		nameTok := lx.GetToken()
		switch nameTok.Kind() {
		case TkSymbol:
			return operand{immediate: true, isLabel: true, labelName: nameTok.Text(), pcRelative: pcRelative}, nil
		case TkNumber:
			text := nameTok.Text()
			last := text[len(text)-1]
			if last != 'f' && last != 'b' {
				return operand{}, fmt.Errorf("local label reference %q must end in f or b", text)
			}
			if !pcRelative {
				return operand{}, fmt.Errorf("local label reference %q must use @, not $ (locals are relative-only)", text)
			}
			return operand{
				immediate:  true,
				isLabel:    true,
				labelName:  text[:len(text)-1],
				labelDir:   string(last),
				pcRelative: true,
			}, nil
		default:
			return operand{}, fmt.Errorf("expected label name after %q, got %s", tok.Text(), nameTok)
		}
	}
	return operand{}, fmt.Errorf("unexpected token %s", tok)
}

// parseSignedLiteral reads an optionally negated number token, for
// `.int`'s raw data item (§3): unlike `.space`/`.org` (always a
// non-negative count or address), a data word may be a negative
// literal.
func (ctx *Context) parseSignedLiteral(lx *Lexer) (uint16, error) {
	neg := false
	tok := lx.GetToken()
	if tok.Kind() == TkOperator && tok.Text() == "-" {
		neg = true
		tok = lx.GetToken()
	}
	v, err := parseUintToken(tok)
	if err != nil {
		return 0, err
	}
	if neg {
		return uint16(-int32(v)), nil
	}
	return v, nil
}

func parseUintToken(tok *Token) (uint16, error) {
	if tok.Kind() != TkNumber {
		return 0, fmt.Errorf("expected number, got %s", tok)
	}
	text := tok.Text()
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		v, err := strconv.ParseUint(text[2:], 16, 32)
		return uint16(v), err
	}
	v, err := strconv.ParseUint(text, 10, 32)
	return uint16(v), err
}

// encodeAll resolves every label reference and encodes the item list
// into the final word stream.
func (ctx *Context) encodeAll() ([]uint16, error) {
	var out []uint16
	for i, it := range ctx.items {
		switch it.kind {
		case itemSpace:
			out = append(out, make([]uint16, it.n)...)
		case itemOrg:
			for uint16(len(out)) < it.orgAddr {
				out = append(out, 0)
			}
		case itemData:
			out = append(out, it.intVal)
		case itemInstr:
			ins := encode.Instruction{Mnemonic: it.mnemonic, Cond: it.cond, Ops: map[string]uint16{}}
			for letter, op := range it.ops {
				v := op.value
				if op.isLabel {
					resolved, err := ctx.resolveLabel(op, it.addr)
					if err != nil {
						return nil, err
					}
					v = resolved
				}
				if letter == "c" && op.immediate {
					ins.Ops["c"] = isa.Sp
					imm := int16(v)
					ins.Imm = &imm
				} else {
					ins.Ops[letter] = v
				}
			}
			followers := ctx.followersAfter(i, ins.NumCond())
			words, err := encode.Encode(ins, followers)
			if err != nil {
				return nil, fmt.Errorf("0x%04x: %w", it.addr, err)
			}
			out = append(out, words...)
		}
	}
	return out, nil
}

// followersAfter collects the next n instruction items after index i,
// skipping non-instruction items, as lightweight encode.Instruction
// stubs carrying only the Cond field that Encode's m-mask computation
// needs.
func (ctx *Context) followersAfter(i int, n int) []encode.Instruction {
	if n == 0 {
		return nil
	}
	out := make([]encode.Instruction, 0, n)
	for j := i + 1; j < len(ctx.items) && len(out) < n; j++ {
		if ctx.items[j].kind == itemInstr {
			out = append(out, encode.Instruction{Cond: ctx.items[j].cond})
		}
	}
	return out
}

func (ctx *Context) resolveLabel(op operand, fromAddr uint16) (uint16, error) {
	var addr uint16
	var err error
	if op.labelDir != "" {
		addr, err = ctx.labels.ResolveLocal(op.labelName, fromAddr, op.labelDir)
	} else {
		addr, err = ctx.labels.ResolveGlobal(op.labelName)
	}
	if err != nil {
		return 0, err
	}
	if op.pcRelative {
		return uint16(int32(addr) - int32(fromAddr) - 1), nil
	}
	return addr, nil
}
