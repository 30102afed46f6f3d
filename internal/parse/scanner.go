// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package parse

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/canonical/plcsql/internal/diag"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	// tName is an unquoted name. Its text is upper case.
	tName
	// tQuotedName is a double quoted name. Its text keeps its case.
	tQuotedName
	tInt
	tFloat
	// tString text is the content of the literal with doubled quotes
	// unescaped.
	tString
	tOp
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
	// off and end delimit the raw token in the input.
	off, end int
}

func (t token) pos() diag.Pos {
	return diag.Pos{Line: t.line, Column: t.col}
}

func (t token) String() string {
	if t.kind == tEOF {
		return "end of input"
	}
	return "'" + t.text + "'"
}

// is reports whether t is the unquoted name or the operator s.
func (t token) is(s string) bool {
	return (t.kind == tName || t.kind == tOp) && t.text == s
}

// multiOps are the operators longer than one character, longest first.
var multiOps = []string{"<=>", ":=", "..", "<=", ">=", "<>", "!=", "^=", "||", "<<", ">>", "=>"}

// scanner splits PL/CSQL source into tokens, keeping track of line and
// column numbers.
type scanner struct {
	input string
	pos   int
	// nextPos is start of the next char.
	nextPos int
	// char is the rune starting at pos. char is set to 0 when pos reaches the
	// end of input.
	char rune
	// lineNum is the number of the current line of the input.
	lineNum int
	// lineStart is the position of the first char of the current line in the
	// input.
	lineStart int
}

func newScanner(input string) *scanner {
	s := &scanner{input: input, lineNum: 1}
	s.advanceChar()
	return s
}

// colNum calculates the current column number taking into account line breaks.
func (s *scanner) colNum() int {
	return s.pos - s.lineStart + 1
}

// advanceChar moves the scanner to the next character in the input. It also
// takes care of updating the line and column numbers if it encounters line
// breaks.
func (s *scanner) advanceChar() bool {
	if s.nextPos >= len(s.input) {
		s.char = 0
		s.pos = s.nextPos
		return false
	}
	if s.char == '\n' {
		s.lineStart = s.nextPos
		s.lineNum++
	}
	var size int
	s.char, size = utf8.DecodeRuneInString(s.input[s.nextPos:])
	s.pos = s.nextPos
	s.nextPos += size
	return true
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.input)
}

// peekChar returns true if the current char equals the one passed as parameter.
func (s *scanner) peekChar(c rune) bool {
	return !s.atEnd() && s.char == c
}

// peekNext returns the byte after the current char, or 0.
func (s *scanner) peekNext() byte {
	if s.nextPos < len(s.input) {
		return s.input[s.nextPos]
	}
	return 0
}

// skipChar jumps over the current char if it matches the char passed as a
// parameter. Returns true in that case, false otherwise.
func (s *scanner) skipChar(c rune) bool {
	if s.peekChar(c) {
		s.advanceChar()
		return true
	}
	return false
}

// skipComment jumps over --, // and /* */ comments. If no comment is found
// the scanner state is left unchanged.
func (s *scanner) skipComment() bool {
	if s.atEnd() {
		return false
	}
	next := s.peekNext()
	switch {
	case (s.char == '-' && next == '-') || (s.char == '/' && next == '/'):
		// Do not consume the newline.
		for !s.atEnd() && s.char != '\n' {
			s.advanceChar()
		}
		return true
	case s.char == '/' && next == '*':
		line, col := s.lineNum, s.colNum()
		s.advanceChar()
		s.advanceChar()
		for !s.atEnd() {
			if s.char == '*' && s.peekNext() == '/' {
				s.advanceChar()
				s.advanceChar()
				return true
			}
			s.advanceChar()
		}
		diag.Throw(diag.Syntaxf(diag.Pos{Line: line, Column: col}, "missing end of comment"))
	}
	return false
}

// skipBlanks advances the scanner past spaces, tabs, newlines and comments.
func (s *scanner) skipBlanks() {
	for !s.atEnd() {
		if s.skipComment() {
			continue
		}
		switch s.char {
		case ' ', '\t', '\r', '\n', '\f':
			s.advanceChar()
		default:
			return
		}
	}
}

// isNameChar returns true if the given char can be part of a name.
func isNameChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '$' || c == '#'
}

// isInitialNameChar returns true if the given char can appear at the start of
// a name.
func isInitialNameChar(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// scanQuoted scans a literal delimited by the current char. Doubled up
// delimiters are escaped. It returns the unescaped content.
func (s *scanner) scanQuoted(what string) string {
	quote := s.char
	line, col := s.lineNum, s.colNum()
	s.advanceChar()
	var sb strings.Builder
	for !s.atEnd() {
		if s.char == quote {
			s.advanceChar()
			if s.peekChar(quote) {
				sb.WriteRune(quote)
				s.advanceChar()
				continue
			}
			return sb.String()
		}
		sb.WriteRune(s.char)
		s.advanceChar()
	}
	diag.Throw(diag.Syntaxf(diag.Pos{Line: line, Column: col}, "missing closing quote in %s", what))
	return ""
}

func (s *scanner) scanNumber() tokenKind {
	kind := tInt
	for isDigit(s.char) {
		s.advanceChar()
	}
	// A '.' followed by another '.' is the range operator.
	if s.char == '.' && s.peekNext() != '.' {
		kind = tFloat
		s.advanceChar()
		for isDigit(s.char) {
			s.advanceChar()
		}
	}
	if s.char == 'e' || s.char == 'E' {
		next := s.peekNext()
		if isDigit(rune(next)) || next == '+' || next == '-' {
			kind = tFloat
			s.advanceChar()
			if s.char == '+' || s.char == '-' {
				s.advanceChar()
			}
			for isDigit(s.char) {
				s.advanceChar()
			}
		}
	}
	if s.char == 'f' || s.char == 'F' {
		kind = tFloat
		s.advanceChar()
	}
	return kind
}

// next returns the next token of the input.
func (s *scanner) next() token {
	s.skipBlanks()
	t := token{line: s.lineNum, col: s.colNum(), off: s.pos}

	switch {
	case s.atEnd():
		t.kind = tEOF
		return t
	case isInitialNameChar(s.char):
		for !s.atEnd() && isNameChar(s.char) {
			s.advanceChar()
		}
		t.kind = tName
		t.text = strings.ToUpper(s.input[t.off:s.pos])
		return t
	case s.char == '"':
		t.kind = tQuotedName
		t.text = s.scanQuoted("quoted identifier")
		return t
	case s.char == '\'':
		t.kind = tString
		t.text = s.scanQuoted("string literal")
		return t
	case isDigit(s.char) || (s.char == '.' && isDigit(rune(s.peekNext()))):
		t.kind = s.scanNumber()
		t.text = s.input[t.off:s.pos]
		return t
	}

	t.kind = tOp
	for _, op := range multiOps {
		if strings.HasPrefix(s.input[s.pos:], op) {
			for range op {
				s.advanceChar()
			}
			t.text = op
			return t
		}
	}
	t.text = string(s.char)
	s.advanceChar()
	return t
}

// scan returns all the tokens of input, ending with a tEOF token.
func scan(input string) []token {
	s := newScanner(input)
	var toks []token
	for {
		t := s.next()
		t.end = s.pos
		toks = append(toks, t)
		if t.kind == tEOF {
			return toks
		}
	}
}
