package parse

import (
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func TestParse(t *testing.T) { TestingT(t) }

type ScannerSuite struct{}

var _ = Suite(&ScannerSuite{})

type tokenTest struct {
	kind tokenKind
	text string
	line int
	col  int
}

var scanTests = []struct {
	summary string
	input   string
	tokens  []tokenTest
}{{
	summary: "names are upper cased unless quoted",
	input:   `abc "aBc" a_b$1`,
	tokens: []tokenTest{
		{tName, "ABC", 1, 1},
		{tQuotedName, "aBc", 1, 5},
		{tName, "A_B$1", 1, 11},
	},
}, {
	summary: "string literals unescape doubled quotes",
	input:   `x := 'it''s'`,
	tokens: []tokenTest{
		{tName, "X", 1, 1},
		{tOp, ":=", 1, 3},
		{tString, "it's", 1, 6},
	},
}, {
	summary: "numbers and the range operator",
	input:   "1..10 2.5 1e3 3f .5",
	tokens: []tokenTest{
		{tInt, "1", 1, 1},
		{tOp, "..", 1, 2},
		{tInt, "10", 1, 4},
		{tFloat, "2.5", 1, 7},
		{tFloat, "1e3", 1, 11},
		{tFloat, "3f", 1, 15},
		{tFloat, ".5", 1, 18},
	},
}, {
	summary: "comments and line numbers",
	input:   "a -- comment\n  /* multi\nline */ b // end\nc",
	tokens: []tokenTest{
		{tName, "A", 1, 1},
		{tName, "B", 3, 9},
		{tName, "C", 4, 1},
	},
}, {
	summary: "multi character operators",
	input:   "<=> <> != ^= || << >> <= >= ;",
	tokens: []tokenTest{
		{tOp, "<=>", 1, 1},
		{tOp, "<>", 1, 5},
		{tOp, "!=", 1, 8},
		{tOp, "^=", 1, 11},
		{tOp, "||", 1, 14},
		{tOp, "<<", 1, 17},
		{tOp, ">>", 1, 20},
		{tOp, "<=", 1, 23},
		{tOp, ">=", 1, 26},
		{tOp, ";", 1, 29},
	},
}}

func (s *ScannerSuite) TestScan(c *C) {
	for _, t := range scanTests {
		toks := scan(t.input)
		c.Assert(toks, HasLen, len(t.tokens)+1, Commentf("%s", t.summary))
		for i, want := range t.tokens {
			got := toks[i]
			c.Check(got.kind, Equals, want.kind, Commentf("%s: token %d", t.summary, i))
			c.Check(got.text, Equals, want.text, Commentf("%s: token %d", t.summary, i))
			c.Check(got.line, Equals, want.line, Commentf("%s: token %d", t.summary, i))
			c.Check(got.col, Equals, want.col, Commentf("%s: token %d", t.summary, i))
		}
		c.Check(toks[len(toks)-1].kind, Equals, tEOF)
	}
}

func (s *ScannerSuite) TestTokenOffsets(c *C) {
	input := "select 'a' from t"
	toks := scan(input)
	c.Assert(input[toks[1].off:toks[1].end], Equals, "'a'")
	c.Assert(input[toks[3].off:toks[3].end], Equals, "t")
}

func (s *ScannerSuite) TestScanErrors(c *C) {
	p := NewParser()
	_, err := p.Parse("procedure p is begin x := 'abc; end;")
	c.Assert(err, ErrorMatches, `syntax error at line 1, column 27: missing closing quote in string literal`)

	_, err = p.Parse("procedure p is\nbegin /* null; end;")
	c.Assert(err, ErrorMatches, `syntax error at line 2, column 7: missing end of comment`)
}
