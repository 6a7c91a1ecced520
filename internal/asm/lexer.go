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

// lexer.go - exported types: Token and Lexer. Adapted from the
// teacher's asm/lexer.go: same line-oriented byte-at-a-time state
// machine and the struct-wrapped "typed enum" idiom for lexer states
// and token kinds, generalized for this language's actual tokens —
// label-reference prefixes `$`/`@`, character literals with escapes,
// and `+`/`-` as mnemonic-forming punctuation in addition to sign
// punctuation.

import (
	"fmt"
	"io"
)

var LexerDebug = false

const (
	sp        = byte(' ')
	tab       = byte('\t')
	nl        = byte('\n')
	comma     = byte(',')
	colon     = byte(':')
	plus      = byte('+')
	minus     = byte('-')
	dollar    = byte('$')
	at        = byte('@')
	dot       = byte('.')
	comment   = byte('#')
	dquote    = byte('"')
	squote    = byte('\'')
	backslash = byte('\\')
)

// lexerStateType and TokenKindType follow the teacher's preferred
// solution to Go's lack of type-checked enumerations: a struct wrapping
// an int, so assignment from a bare int no longer type-checks.
type lexerStateType struct{ s int }

var (
	stBetween   = lexerStateType{0}
	stInError   = lexerStateType{1}
	stInSymbol  = lexerStateType{2}
	stInString  = lexerStateType{3}
	stInNumber  = lexerStateType{4}
	stInComment = lexerStateType{5}
	stInChar    = lexerStateType{6}
	stEnd       = lexerStateType{7}
)

type TokenKindType struct{ k int }

var (
	TkError    = TokenKindType{0}
	TkNewline  = TokenKindType{1}
	TkSymbol   = TokenKindType{2}
	TkLabel    = TokenKindType{3}
	TkString   = TokenKindType{4}
	TkNumber   = TokenKindType{5}
	TkOperator = TokenKindType{6}
	TkChar     = TokenKindType{7}
	TkEOF      = TokenKindType{8}
)

var kindToString = []string{
	"TkError", "TkNewline", "TkSymbol", "TkLabel",
	"TkString", "TkNumber", "TkOperator", "TkChar", "TkEOF",
}

type Token struct {
	tokenText string
	tokenKind TokenKindType
}

func (t *Token) String() string {
	s := t.tokenText
	if s == "\n" {
		s = "\\n"
	}
	return fmt.Sprintf("{%s %s}", kindToString[t.tokenKind.k], s)
}

func (t *Token) Text() string       { return t.tokenText }
func (t *Token) Kind() TokenKindType { return t.tokenKind }

var eofToken = Token{"EOF", TkEOF}
var nlToken = Token{"\n", TkNewline}

type Lexer struct {
	reader     PushbackByteReader
	lexerState lexerStateType
	path       string
	pbToken    *Token
}

func MakeFileLexer(path string) (*Lexer, error) {
	r, err := NewFilePushbackByteReader(path)
	if err != nil {
		return nil, err
	}
	return &Lexer{reader: r, lexerState: stBetween, path: path}, nil
}

func MakeStringLexer(ident string, body string) (*Lexer, error) {
	r, err := NewStringPushbackByteReader(body)
	if err != nil {
		return nil, err
	}
	return &Lexer{reader: r, lexerState: stBetween, path: ident}, nil
}

func (lx *Lexer) Close() { lx.reader.Close() }
func (lx *Lexer) Path() string { return lx.path }

// GetToken returns the next token, or an EOF/error token at the end of input.
func (lx *Lexer) GetToken() *Token {
	result := lx.internalGetToken()
	if LexerDebug {
		fmt.Printf("[ %s ]\n", result)
	}
	return result
}

func (lx *Lexer) internalGetToken() *Token {
	if lx.lexerState == stEnd {
		return &eofToken
	}
	if lx.pbToken != nil {
		result := lx.pbToken
		lx.pbToken = nil
		if lx.lexerState != stBetween {
			lx.lexerState = stInError
			return &Token{"internal error: pbToken but not between tokens", TkError}
		}
		return result
	}

	var accumulator []byte
	var charEscaping bool

	for b, err := lx.reader.ReadByte(); ; b, err = lx.reader.ReadByte() {
		if err == io.EOF {
			lx.lexerState = stEnd
			return &eofToken
		}
		if err != nil {
			lx.lexerState = stInError
			return &Token{err.Error(), TkError}
		}
		if b >= 0x80 {
			lx.lexerState = stInError
			return &Token{fmt.Sprintf("non-ASCII character 0x%02x", b), TkError}
		}

		switch lx.lexerState {
		case stInError, stInComment:
			if b == nl {
				lx.lexerState = stBetween
				return &nlToken
			}
		case stBetween:
			if b == nl {
				return &nlToken
			}
			switch {
			case b == comment:
				lx.lexerState = stInComment
			case isWhiteSpaceChar(b):
				// nothing to see here
			case isDigitChar(b):
				accumulator = append(accumulator, b)
				lx.lexerState = stInNumber
			case isInitialSymbolChar(b):
				accumulator = append(accumulator, b)
				lx.lexerState = stInSymbol
			case b == dquote:
				lx.lexerState = stInString
			case b == squote:
				lx.lexerState = stInChar
				charEscaping = false
			case isOperatorChar(b):
				lx.lexerState = stBetween
				if b != comma {
					return &Token{string(b), TkOperator}
				}
			default:
				lx.lexerState = stInError
				return &Token{fmt.Sprintf("character 0x%02x (%d) unexpected [1]", b, b), TkError}
			}
		case stInSymbol:
			// A dot ends the symbol, so `add.t` lexes as `add` then `.t`.
			if isWhiteSpaceChar(b) || isOperatorChar(b) || b == dquote || b == squote || b == dot {
				lx.lexerState = stBetween
				var result *Token
				if b == colon {
					result = &Token{string(accumulator), TkLabel}
				} else {
					result = &Token{string(accumulator), TkSymbol}
					lx.reader.UnreadByte(b)
				}
				return result
			} else if isSymbolChar(b) {
				accumulator = append(accumulator, b)
			} else {
				lx.lexerState = stInError
				return &Token{fmt.Sprintf("character 0x%02x (%d) unexpected [2]", b, b), TkError}
			}
		case stInString:
			if b == dquote {
				lx.lexerState = stBetween
				result := &Token{`"` + string(accumulator) + `"`, TkString}
				return result
			} else if b == nl {
				lx.lexerState = stInError
				return &Token{"newline in string", TkError}
			} else {
				accumulator = append(accumulator, b)
			}
		case stInChar:
			if charEscaping {
				escaped, ok := escapeFor(b)
				if !ok {
					lx.lexerState = stInError
					return &Token{fmt.Sprintf("bad escape \\%c", b), TkError}
				}
				accumulator = append(accumulator, escaped)
				charEscaping = false
			} else if b == backslash {
				charEscaping = true
			} else if b == squote {
				if len(accumulator) != 1 {
					lx.lexerState = stInError
					return &Token{"char literal must contain exactly one character", TkError}
				}
				lx.lexerState = stBetween
				return &Token{string(accumulator), TkChar}
			} else if b == nl {
				lx.lexerState = stInError
				return &Token{"newline in char literal", TkError}
			} else {
				accumulator = append(accumulator, b)
			}
		case stInNumber:
			if isDigitChar(b) || isHexLetter(b) || isX(b) {
				accumulator = append(accumulator, b)
			} else if isWhiteSpaceChar(b) || isOperatorChar(b) {
				var result *Token
				if !validNumber(accumulator) {
					result = &Token{fmt.Sprintf("invalid number %s", string(accumulator)), TkError}
					lx.lexerState = stInError
				} else {
					result = &Token{string(accumulator), TkNumber}
					lx.lexerState = stBetween
				}
				lx.reader.UnreadByte(b)
				return result
			} else {
				lx.lexerState = stInError
				return &Token{fmt.Sprintf("character 0x%02x (%d) unexpected in number", b, b), TkError}
			}
		}
	}
}

func (lx *Lexer) Unget(tk *Token) error {
	if lx.pbToken != nil {
		lx.lexerState = stInError
		return fmt.Errorf("internal error: too many token pushbacks")
	}
	if lx.lexerState != stBetween {
		lx.lexerState = stInError
		return fmt.Errorf("internal error: invalid token pushback")
	}
	lx.pbToken = tk
	return nil
}

func escapeFor(b byte) (byte, bool) {
	switch b {
	case '0':
		return 0, true
	case 't':
		return '\t', true
	case 'n':
		return '\n', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	}
	return 0, false
}

// validNumber accepts three shapes: 0x-prefixed hex literals, plain
// decimal literals, and a plain decimal literal with a single trailing
// 'f' or 'b' direction suffix (e.g. "3f", "12b") used by local-label
// references (§4.4). The trailing-letter shape is why this can't just
// delegate to strconv: 'f'/'b' are otherwise valid hex digits, so the
// lexer must recognize the label-reference shape explicitly rather
// than reject it as a malformed hex number.
func validNumber(num []byte) bool {
	if len(num) > 2 && num[0] == '0' && isX(num[1]) {
		for i := 2; i < len(num); i++ {
			if !isDigitChar(num[i]) && !isHexLetter(num[i]) {
				return false
			}
		}
		return true
	}
	end := len(num)
	if end > 0 && (num[end-1] == 'f' || num[end-1] == 'b') {
		end--
	}
	if end == 0 {
		return false
	}
	for i := 0; i < end; i++ {
		if !isDigitChar(num[i]) {
			return false
		}
	}
	return true
}

func isWhiteSpaceChar(b byte) bool { return b == sp || b == tab || b == nl }
func isDigitChar(b byte) bool      { return b >= '0' && b <= '9' }

func isHexLetter(b byte) bool {
	return (b >= 'A' && b <= 'F') || (b >= 'a' && b <= 'f')
}

func isX(b byte) bool { return b == 'x' || b == 'X' }

// isOperatorChar covers punctuation: comma (operand separator), colon
// (label suffix, handled specially in stInSymbol), +/- (mnemonic
// punctuation and sign), and $/@ (label-reference prefixes).
func isOperatorChar(b byte) bool {
	return b == comma || b == colon || b == plus || b == minus || b == dollar || b == at
}

// Dot is allowed only as the initial character of a symbol (directives
// and condition suffixes like .t/.f).
func isInitialSymbolChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b == '.' || b == '_':
		return true
	}
	return false
}

func isSymbolChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_':
		return true
	}
	return false
}
