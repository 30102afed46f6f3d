// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package parse turns PL/CSQL source text into a parse tree.
package parse

import (
	"strings"

	"github.com/canonical/plcsql/internal/diag"
	pt "github.com/canonical/plcsql/internal/parsetree"
)

// Parser is used to parse PL/CSQL routine definitions.
type Parser struct {
	input string
	toks  []token
	// i is the index of the current token.
	i int
}

func NewParser() *Parser {
	return &Parser{}
}

// Parse takes the source of a CREATE PROCEDURE or CREATE FUNCTION statement
// and returns its parse tree, rooted at a KRoutine node. Syntax errors are
// returned as *diag.Error.
func (p *Parser) Parse(input string) (unit *pt.Node, err error) {
	defer diag.Catch(&err)

	p.init(input)
	unit = p.parseUnit()
	return unit, nil
}

// init resets the state of the parser and sets the input string.
func (p *Parser) init(input string) {
	p.input = input
	p.toks = scan(input)
	p.i = 0
}

// reserved words cannot be used as identifiers in expressions and
// statements.
var reserved = map[string]bool{
	"AND": true, "AS": true, "BEGIN": true, "BETWEEN": true, "BY": true, "CASE": true,
	"CONSTANT": true, "CREATE": true, "CURSOR": true, "DECLARE": true, "DEFAULT": true,
	"DIV": true, "ELSE": true, "ELSIF": true, "END": true, "EXCEPTION": true, "EXIT": true,
	"FOR": true, "FROM": true, "FUNCTION": true, "IF": true, "IMMEDIATE": true, "IN": true,
	"INTO": true, "IS": true, "LIKE": true, "LOOP": true, "MOD": true, "NOT": true,
	"NULL": true, "OR": true, "OUT": true, "PRAGMA": true, "PROCEDURE": true, "RETURN": true,
	"REVERSE": true, "THEN": true, "USING": true, "WHEN": true, "WHILE": true, "XOR": true,
}

// sqlStarts are the first words of static SQL statements.
var sqlStarts = map[string]bool{
	"SELECT": true, "WITH": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"MERGE": true, "REPLACE": true, "TRUNCATE": true,
}

func (p *Parser) cur() token {
	return p.toks[p.i]
}

func (p *Parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *Parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

// peek reports whether the current token is the word or operator s.
func (p *Parser) peek(s string) bool {
	return p.cur().is(s)
}

// skip jumps over the current token if it is the word or operator s.
func (p *Parser) skip(s string) bool {
	if p.peek(s) {
		p.advance()
		return true
	}
	return false
}

// skipSeq jumps over the words in ws if they are all next in the input.
func (p *Parser) skipSeq(ws ...string) bool {
	for j, w := range ws {
		if !p.peekAt(j).is(w) {
			return false
		}
	}
	p.i += len(ws)
	return true
}

func (p *Parser) errorAt(t token, format string, a ...any) {
	diag.Throw(diag.Syntaxf(t.pos(), format, a...))
}

func (p *Parser) unexpected() {
	t := p.cur()
	p.errorAt(t, "unexpected %s", t)
}

func (p *Parser) expect(s string) token {
	t := p.cur()
	if !t.is(s) {
		p.errorAt(t, "expecting '%s' but found %s", s, t)
	}
	return p.advance()
}

// name parses an identifier. Unquoted identifiers are upper case.
func (p *Parser) name() token {
	t := p.cur()
	if t.kind == tQuotedName || (t.kind == tName && !reserved[t.text]) {
		return p.advance()
	}
	p.errorAt(t, "expecting an identifier but found %s", t)
	return t
}

func (p *Parser) node(kind pt.Kind, t token, text string, children ...*pt.Node) *pt.Node {
	return pt.New(kind, text, t.line, t.col, children...)
}

// parseUnit parses
//
//	[CREATE [OR REPLACE]] PROCEDURE|FUNCTION ... [;]
func (p *Parser) parseUnit() *pt.Node {
	var flags pt.Flags
	if p.skip("CREATE") {
		if p.skipSeq("OR", "REPLACE") {
			flags |= pt.FlagOrReplace
		}
	}
	if !p.peek("PROCEDURE") && !p.peek("FUNCTION") {
		p.errorAt(p.cur(), "expecting PROCEDURE or FUNCTION but found %s", p.cur())
	}
	r := p.parseRoutine()
	r.Flags |= flags
	p.skip(";")
	if p.cur().kind != tEOF {
		p.unexpected()
	}
	return r
}

// parseRoutine parses a procedure or function definition without the
// terminating semicolon.
func (p *Parser) parseRoutine() *pt.Node {
	var flags pt.Flags
	if p.skip("FUNCTION") {
		flags |= pt.FlagFunction
	} else {
		p.expect("PROCEDURE")
	}
	nameTok := p.name()

	var params *pt.Node
	if p.peek("(") {
		params = p.parseParams(true)
	}
	var ret *pt.Node
	if p.skip("RETURN") {
		ret = p.parseType()
	}
	if !p.skip("IS") {
		p.expect("AS")
	}
	if p.skipSeq("LANGUAGE", "PLCSQL") {
		flags |= pt.FlagLanguage
	}
	decls := p.parseDecls()
	body := p.parseBody()

	r := p.node(pt.KRoutine, nameTok, nameTok.text, params, ret, decls, body)
	r.Flags = flags
	return r
}

// parseParams parses a parenthesized parameter list. Cursor parameters have
// no mode.
func (p *Parser) parseParams(withMode bool) *pt.Node {
	open := p.expect("(")
	list := p.node(pt.KParamList, open, "")
	if p.skip(")") {
		return list
	}
	for {
		nameTok := p.name()
		flags := pt.FlagIn
		if withMode {
			switch {
			case p.skipSeq("IN", "OUT"), p.skip("INOUT"):
				flags = pt.FlagIn | pt.FlagOut
			case p.skip("OUT"):
				flags = pt.FlagOut
			default:
				p.skip("IN")
			}
		}
		param := p.node(pt.KParam, nameTok, nameTok.text, p.parseType())
		param.Flags = flags
		list.Append(param)
		if !p.skip(",") {
			break
		}
	}
	p.expect(")")
	return list
}

// typeWords are the words that may start a type name. The value is the
// canonical name of a one-word type.
var typeWords = map[string]string{
	"BOOLEAN": "BOOLEAN", "SHORT": "SHORT", "SMALLINT": "SHORT", "INT": "INT",
	"INTEGER": "INT", "BIGINT": "BIGINT", "NUMERIC": "NUMERIC", "DECIMAL": "NUMERIC",
	"DEC": "NUMERIC", "FLOAT": "FLOAT", "REAL": "FLOAT", "DOUBLE": "DOUBLE",
	"CHAR": "CHAR", "CHARACTER": "CHAR", "VARCHAR": "VARCHAR", "STRING": "STRING",
	"DATE": "DATE", "TIME": "TIME", "DATETIME": "DATETIME", "TIMESTAMP": "TIMESTAMP",
	"SYS_REFCURSOR": "SYS_REFCURSOR",
}

// parseType parses a type specification, including NAME%TYPE and
// TABLE.COLUMN%TYPE.
func (p *Parser) parseType() *pt.Node {
	t := p.cur()
	if p.peekAt(1).is("%") {
		p.advance()
		p.advance()
		p.expect("TYPE")
		return p.node(pt.KTypeOf, t, t.text)
	}
	if p.peekAt(1).is(".") && p.peekAt(3).is("%") {
		p.advance()
		p.advance()
		col := p.name()
		p.advance()
		p.expect("TYPE")
		return p.node(pt.KTypeOf, t, t.text+"."+col.text)
	}

	canonical, ok := typeWords[t.text]
	if t.kind != tName || !ok {
		p.errorAt(t, "unknown type %s", t)
	}
	p.advance()
	switch canonical {
	case "DOUBLE":
		p.skip("PRECISION")
	case "CHAR":
		if p.skip("VARYING") {
			canonical = "VARCHAR"
		}
	}

	spec := p.node(pt.KTypeSpec, t, canonical)
	if p.peek("(") && (canonical == "NUMERIC" || canonical == "CHAR" || canonical == "VARCHAR") {
		p.advance()
		spec.Append(p.intArg())
		if canonical == "NUMERIC" && p.skip(",") {
			spec.Append(p.intArg())
		}
		p.expect(")")
	}
	return spec
}

func (p *Parser) intArg() *pt.Node {
	t := p.cur()
	if t.kind != tInt {
		p.errorAt(t, "expecting an integer but found %s", t)
	}
	p.advance()
	return p.node(pt.KIntLit, t, t.text)
}

// parseDecls parses the declarations before BEGIN. It returns nil if there
// are none.
func (p *Parser) parseDecls() *pt.Node {
	if p.peek("BEGIN") {
		return nil
	}
	list := p.node(pt.KDeclList, p.cur(), "")
	for !p.peek("BEGIN") {
		list.Append(p.parseDecl())
	}
	return list
}

func (p *Parser) parseDecl() *pt.Node {
	t := p.cur()
	switch {
	case t.is("PROCEDURE"), t.is("FUNCTION"):
		r := p.parseRoutine()
		p.expect(";")
		return r
	case t.is("PRAGMA"):
		p.advance()
		nameTok := p.name()
		p.expect(";")
		return p.node(pt.KPragma, t, nameTok.text)
	case t.is("CURSOR"):
		p.advance()
		nameTok := p.name()
		var params *pt.Node
		if p.peek("(") {
			params = p.parseParams(false)
		}
		if !p.skip("IS") {
			p.expect("AS")
		}
		sql := p.parseStaticSQL()
		p.expect(";")
		return p.node(pt.KCursorDecl, nameTok, nameTok.text, params, sql)
	}

	nameTok := p.name()
	if p.skip("EXCEPTION") {
		p.expect(";")
		return p.node(pt.KExceptionDecl, nameTok, nameTok.text)
	}
	kind := pt.KVarDecl
	if p.skip("CONSTANT") {
		kind = pt.KConstDecl
	}
	typ := p.parseType()
	var flags pt.Flags
	if p.skipSeq("NOT", "NULL") {
		flags = pt.FlagNotNull
	}
	var val *pt.Node
	if p.skip(":=") || p.skip("DEFAULT") {
		val = p.parseExpr()
	} else if kind == pt.KConstDecl || flags != 0 {
		// Constants and NOT NULL variables need an initial value.
		p.errorAt(p.cur(), "expecting ':=' but found %s", p.cur())
	}
	p.expect(";")
	d := p.node(kind, nameTok, nameTok.text, typ, val)
	d.Flags = flags
	return d
}

// parseBody parses
//
//	BEGIN statements [EXCEPTION handlers] END [label]
func (p *Parser) parseBody() *pt.Node {
	begin := p.expect("BEGIN")
	stmts := p.parseStmts("EXCEPTION", "END")
	var handlers *pt.Node
	if exc := p.cur(); p.skip("EXCEPTION") {
		handlers = p.node(pt.KHandlerList, exc, "")
		for p.peek("WHEN") {
			handlers.Append(p.parseHandler())
		}
		if len(handlers.Children) == 0 {
			p.errorAt(p.cur(), "expecting WHEN but found %s", p.cur())
		}
	}
	p.expect("END")
	label := ""
	if t := p.cur(); t.kind == tName && !reserved[t.text] || t.kind == tQuotedName {
		label = p.advance().text
	}
	return p.node(pt.KBody, begin, label, stmts, handlers)
}

func (p *Parser) parseHandler() *pt.Node {
	when := p.expect("WHEN")
	names := p.node(pt.KNameList, p.cur(), "")
	for {
		t := p.name()
		names.Append(p.node(pt.KIdent, t, t.text))
		if !p.skip("OR") {
			break
		}
	}
	p.expect("THEN")
	stmts := p.parseStmts("WHEN", "END")
	return p.node(pt.KHandler, when, "", names, stmts)
}

// parseStmts parses one or more semicolon terminated statements, up to one
// of the given words.
func (p *Parser) parseStmts(until ...string) *pt.Node {
	list := p.node(pt.KStmtList, p.cur(), "")
	for {
		for _, w := range until {
			if p.peek(w) {
				if len(list.Children) == 0 {
					p.errorAt(p.cur(), "expecting a statement but found %s", p.cur())
				}
				return list
			}
		}
		if p.cur().kind == tEOF {
			p.unexpected()
		}
		list.Append(p.parseStmt())
		p.expect(";")
	}
}

func (p *Parser) parseStmt() *pt.Node {
	label := ""
	var labelTok token
	if p.peek("<<") {
		labelTok = p.advance()
		label = p.name().text
		p.expect(">>")
	}

	t := p.cur()
	if label != "" {
		switch {
		case t.is("DECLARE"), t.is("BEGIN"), t.is("LOOP"), t.is("WHILE"), t.is("FOR"):
		default:
			p.errorAt(labelTok, "labels may only precede loops and blocks")
		}
	}

	switch {
	case t.is("DECLARE"):
		p.advance()
		decls := p.parseDecls()
		return p.node(pt.KBlock, t, label, decls, p.parseBody())
	case t.is("BEGIN"):
		return p.node(pt.KBlock, t, label, nil, p.parseBody())
	case t.is("IF"):
		return p.parseIf()
	case t.is("CASE"):
		return p.parseCase(false)
	case t.is("LOOP"):
		p.advance()
		stmts := p.parseStmts("END")
		p.endLoop()
		return p.node(pt.KLoop, t, label, stmts)
	case t.is("WHILE"):
		p.advance()
		cond := p.parseExpr()
		p.expect("LOOP")
		stmts := p.parseStmts("END")
		p.endLoop()
		return p.node(pt.KWhile, t, label, cond, stmts)
	case t.is("FOR"):
		return p.parseFor(label)
	case t.is("EXIT"), t.is("CONTINUE"):
		p.advance()
		kind := pt.KExit
		if t.is("CONTINUE") {
			kind = pt.KContinue
		}
		target := ""
		if c := p.cur(); (c.kind == tName && !reserved[c.text]) || c.kind == tQuotedName {
			target = p.advance().text
		}
		var cond *pt.Node
		if p.skip("WHEN") {
			cond = p.parseExpr()
		}
		return p.node(kind, t, target, cond)
	case t.is("NULL"):
		p.advance()
		return p.node(pt.KNull, t, "")
	case t.is("RAISE"):
		p.advance()
		name := ""
		if !p.peek(";") {
			name = p.name().text
		}
		return p.node(pt.KRaise, t, name)
	case t.is("RAISE_APPLICATION_ERROR"):
		p.advance()
		p.expect("(")
		code := p.parseExpr()
		p.expect(",")
		msg := p.parseExpr()
		p.expect(")")
		return p.node(pt.KRaiseAppErr, t, "", code, msg)
	case t.is("RETURN"):
		p.advance()
		var val *pt.Node
		if !p.peek(";") {
			val = p.parseExpr()
		}
		return p.node(pt.KReturn, t, "", val)
	case t.is("OPEN"):
		p.advance()
		id := p.ident()
		if p.skip("FOR") {
			return p.node(pt.KOpenFor, t, "", id, p.parseStaticSQL())
		}
		var args *pt.Node
		if p.peek("(") {
			args = p.parseArgs()
		}
		return p.node(pt.KOpen, t, "", id, args)
	case t.is("FETCH"):
		p.advance()
		id := p.ident()
		p.expect("INTO")
		return p.node(pt.KFetch, t, "", id, p.parseNameList())
	case t.is("CLOSE"):
		p.advance()
		return p.node(pt.KClose, t, "", p.ident())
	case t.is("COMMIT"), t.is("ROLLBACK"):
		p.advance()
		p.skip("WORK")
		if t.is("COMMIT") {
			return p.node(pt.KCommit, t, "")
		}
		return p.node(pt.KRollback, t, "")
	case t.is("EXECUTE"):
		p.advance()
		p.expect("IMMEDIATE")
		sql := p.parseExpr()
		var into, using *pt.Node
		if p.skip("INTO") {
			into = p.parseNameList()
		}
		if p.peek("USING") {
			using = p.parseUsing()
		}
		return p.node(pt.KExecImme, t, "", sql, into, using)
	case t.kind == tName && sqlStarts[t.text]:
		return p.parseStaticSQL()
	}

	nameTok := p.name()
	if p.skip(":=") {
		target := p.node(pt.KIdent, nameTok, nameTok.text)
		return p.node(pt.KAssign, nameTok, "", target, p.parseExpr())
	}
	name := nameTok.text
	if p.skip(".") {
		name += "." + p.name().text
	}
	var args *pt.Node
	if p.peek("(") {
		args = p.parseArgs()
	}
	return p.node(pt.KCallStmt, nameTok, name, args)
}

// endLoop parses END LOOP and an optional label, which is ignored.
func (p *Parser) endLoop() {
	p.expect("END")
	p.expect("LOOP")
	if c := p.cur(); (c.kind == tName && !reserved[c.text]) || c.kind == tQuotedName {
		p.advance()
	}
}

func (p *Parser) ident() *pt.Node {
	t := p.name()
	return p.node(pt.KIdent, t, t.text)
}

func (p *Parser) parseNameList() *pt.Node {
	list := p.node(pt.KNameList, p.cur(), "")
	for {
		list.Append(p.ident())
		if !p.skip(",") {
			return list
		}
	}
}

func (p *Parser) parseUsing() *pt.Node {
	using := p.expect("USING")
	list := p.node(pt.KArgList, using, "")
	for {
		p.skip("IN")
		list.Append(p.parseExpr())
		if !p.skip(",") {
			return list
		}
	}
}

func (p *Parser) parseArgs() *pt.Node {
	open := p.expect("(")
	list := p.node(pt.KArgList, open, "")
	if p.skip(")") {
		return list
	}
	for {
		list.Append(p.parseExpr())
		if !p.skip(",") {
			break
		}
	}
	p.expect(")")
	return list
}

func (p *Parser) parseIf() *pt.Node {
	ifTok := p.expect("IF")
	n := p.node(pt.KIf, ifTok, "")
	branchTok := ifTok
	for {
		cond := p.parseExpr()
		p.expect("THEN")
		stmts := p.parseStmts("ELSIF", "ELSE", "END")
		n.Append(p.node(pt.KCondBranch, branchTok, "", cond, stmts))
		branchTok = p.cur()
		if !p.skip("ELSIF") {
			break
		}
	}
	if elseTok := p.cur(); p.skip("ELSE") {
		n.Append(p.node(pt.KElse, elseTok, "", p.parseStmts("END")))
	}
	p.expect("END")
	p.expect("IF")
	return n
}

// parseCase parses a simple or searched CASE statement or expression.
func (p *Parser) parseCase(expr bool) *pt.Node {
	caseTok := p.expect("CASE")
	kind := pt.KCaseStmt
	if expr {
		kind = pt.KCaseExpr
	}
	var selector *pt.Node
	if !p.peek("WHEN") {
		selector = p.parseExpr()
	}
	n := p.node(kind, caseTok, "", selector)
	for {
		whenTok := p.expect("WHEN")
		val := p.parseExpr()
		p.expect("THEN")
		var then *pt.Node
		if expr {
			then = p.parseExpr()
		} else {
			then = p.parseStmts("WHEN", "ELSE", "END")
		}
		n.Append(p.node(pt.KWhenBranch, whenTok, "", val, then))
		if !p.peek("WHEN") {
			break
		}
	}
	if elseTok := p.cur(); p.skip("ELSE") {
		if expr {
			n.Append(p.node(pt.KElse, elseTok, "", p.parseExpr()))
		} else {
			n.Append(p.node(pt.KElse, elseTok, "", p.parseStmts("END")))
		}
	}
	p.expect("END")
	if !expr {
		p.expect("CASE")
	}
	return n
}

// parseFor parses the four forms of FOR loops.
func (p *Parser) parseFor(label string) *pt.Node {
	forTok := p.expect("FOR")
	rec := p.ident()
	p.expect("IN")

	// FOR r IN (SELECT ...) LOOP
	if p.peek("(") && p.peekAt(1).kind == tName && sqlStarts[p.peekAt(1).text] {
		p.advance()
		sql := p.parseStaticSQL()
		p.expect(")")
		p.expect("LOOP")
		stmts := p.parseStmts("END")
		p.endLoop()
		return p.node(pt.KForStaticSQL, forTok, label, rec, sql, stmts)
	}

	// FOR r IN EXECUTE IMMEDIATE sql [USING ...] LOOP
	if p.skipSeq("EXECUTE", "IMMEDIATE") {
		sql := p.parseExpr()
		var using *pt.Node
		if p.peek("USING") {
			using = p.parseUsing()
		}
		p.expect("LOOP")
		stmts := p.parseStmts("END")
		p.endLoop()
		return p.node(pt.KForDynamicSQL, forTok, label, rec, sql, using, stmts)
	}

	var flags pt.Flags
	if p.skip("REVERSE") {
		flags = pt.FlagReverse
	}
	lower := p.parseExpr()
	if flags == 0 && p.peek("LOOP") && (lower.Kind == pt.KIdent || lower.Kind == pt.KCall) {
		// FOR r IN cursor[(args)] LOOP
		p.advance()
		stmts := p.parseStmts("END")
		p.endLoop()
		cursor := p.node(pt.KIdent, token{line: lower.Line, col: lower.Col}, lower.Text)
		var args *pt.Node
		if lower.Kind == pt.KCall {
			args = lower.Child(0)
			args.Parent = nil
		}
		return p.node(pt.KForCursor, forTok, label, rec, cursor, args, stmts)
	}

	p.expect("..")
	upper := p.parseExpr()
	var step *pt.Node
	if p.skip("BY") {
		step = p.parseExpr()
	}
	p.expect("LOOP")
	stmts := p.parseStmts("END")
	p.endLoop()
	n := p.node(pt.KForIter, forTok, label, rec, lower, upper, step, stmts)
	n.Flags = flags
	return n
}

// parseStaticSQL captures the verbatim text of an embedded SQL statement, up
// to the semicolon or unbalanced closing parenthesis that ends it.
func (p *Parser) parseStaticSQL() *pt.Node {
	start := p.cur()
	if start.kind != tName || !sqlStarts[start.text] {
		p.errorAt(start, "expecting a SQL statement but found %s", start)
	}
	depth := 0
	last := start
	for {
		t := p.cur()
		if t.kind == tEOF {
			p.errorAt(start, "SQL statement is not terminated")
		}
		if t.is(";") && depth == 0 {
			break
		}
		if t.is("(") {
			depth++
		} else if t.is(")") {
			if depth == 0 {
				break
			}
			depth--
		}
		last = p.advance()
	}
	text := strings.TrimSpace(p.input[start.off:last.end])
	return p.node(pt.KStaticSQL, start, text)
}

// Expressions, from the lowest precedence up.

func (p *Parser) parseExpr() *pt.Node {
	return p.parseOr()
}

func (p *Parser) parseOr() *pt.Node {
	left := p.parseXor()
	for t := p.cur(); p.skip("OR"); t = p.cur() {
		left = p.node(pt.KBinary, t, "OR", left, p.parseXor())
	}
	return left
}

func (p *Parser) parseXor() *pt.Node {
	left := p.parseAnd()
	for t := p.cur(); p.skip("XOR"); t = p.cur() {
		left = p.node(pt.KBinary, t, "XOR", left, p.parseAnd())
	}
	return left
}

func (p *Parser) parseAnd() *pt.Node {
	left := p.parseNot()
	for t := p.cur(); p.skip("AND"); t = p.cur() {
		left = p.node(pt.KBinary, t, "AND", left, p.parseNot())
	}
	return left
}

func (p *Parser) parseNot() *pt.Node {
	if t := p.cur(); p.skip("NOT") {
		return p.node(pt.KUnary, t, "NOT", p.parseNot())
	}
	return p.parseRel()
}

var compOps = map[string]string{
	"=": "=", "<=>": "<=>", "!=": "!=", "<>": "!=", "^=": "!=",
	"<": "<", ">": ">", "<=": "<=", ">=": ">=",
}

func (p *Parser) parseRel() *pt.Node {
	left := p.parseBitOr()
	for {
		t := p.cur()
		if op, ok := compOps[t.text]; ok && t.kind == tOp {
			p.advance()
			left = p.node(pt.KBinary, t, op, left, p.parseBitOr())
			continue
		}
		if p.skip("IS") {
			var flags pt.Flags
			if p.skip("NOT") {
				flags = pt.FlagNot
			}
			p.expect("NULL")
			left = p.node(pt.KIsNull, t, "", left)
			left.Flags = flags
			continue
		}

		var flags pt.Flags
		if p.peek("NOT") && (p.peekAt(1).is("BETWEEN") || p.peekAt(1).is("IN") || p.peekAt(1).is("LIKE")) {
			p.advance()
			flags = pt.FlagNot
		}
		opTok := p.cur()
		switch {
		case p.skip("BETWEEN"):
			lower := p.parseBitOr()
			p.expect("AND")
			upper := p.parseBitOr()
			left = p.node(pt.KBetween, opTok, "", left, lower, upper)
		case p.skip("IN"):
			p.expect("(")
			n := p.node(pt.KIn, opTok, "", left)
			for {
				n.Append(p.parseExpr())
				if !p.skip(",") {
					break
				}
			}
			p.expect(")")
			left = n
		case p.skip("LIKE"):
			pattern := p.parseBitOr()
			var escape *pt.Node
			if p.skip("ESCAPE") {
				escape = p.parseBitOr()
			}
			left = p.node(pt.KLike, opTok, "", left, pattern, escape)
		default:
			return left
		}
		left.Flags = flags
	}
}

func (p *Parser) parseBitOr() *pt.Node {
	left := p.parseBitAnd()
	for {
		t := p.cur()
		if !p.skip("|") && !p.skip("^") {
			return left
		}
		left = p.node(pt.KBinary, t, t.text, left, p.parseBitAnd())
	}
}

func (p *Parser) parseBitAnd() *pt.Node {
	left := p.parseShift()
	for t := p.cur(); p.skip("&"); t = p.cur() {
		left = p.node(pt.KBinary, t, "&", left, p.parseShift())
	}
	return left
}

func (p *Parser) parseShift() *pt.Node {
	left := p.parseAdd()
	for {
		t := p.cur()
		if !p.skip("<<") && !p.skip(">>") {
			return left
		}
		left = p.node(pt.KBinary, t, t.text, left, p.parseAdd())
	}
}

func (p *Parser) parseAdd() *pt.Node {
	left := p.parseMult()
	for {
		t := p.cur()
		if !p.skip("+") && !p.skip("-") && !p.skip("||") {
			return left
		}
		left = p.node(pt.KBinary, t, t.text, left, p.parseMult())
	}
}

func (p *Parser) parseMult() *pt.Node {
	left := p.parseUnary()
	for {
		t := p.cur()
		op := t.text
		switch {
		case p.skip("*"), p.skip("/"), p.skip("DIV"), p.skip("MOD"):
		case p.skip("%"):
			op = "MOD"
		default:
			return left
		}
		left = p.node(pt.KBinary, t, op, left, p.parseUnary())
	}
}

func (p *Parser) parseUnary() *pt.Node {
	t := p.cur()
	if p.skip("-") || p.skip("+") || p.skip("~") {
		return p.node(pt.KUnary, t, t.text, p.parseUnary())
	}
	return p.parsePrimary()
}

var cursorAttrs = map[string]bool{"ISOPEN": true, "FOUND": true, "NOTFOUND": true, "ROWCOUNT": true}

var dateTimeLits = map[string]pt.Kind{
	"DATE": pt.KDateLit, "TIME": pt.KTimeLit, "DATETIME": pt.KDatetimeLit, "TIMESTAMP": pt.KTimestampLit,
}

func (p *Parser) parsePrimary() *pt.Node {
	t := p.cur()
	switch t.kind {
	case tInt:
		p.advance()
		return p.node(pt.KIntLit, t, t.text)
	case tFloat:
		p.advance()
		return p.node(pt.KFloatLit, t, t.text)
	case tString:
		p.advance()
		return p.node(pt.KStrLit, t, t.text)
	case tEOF:
		p.unexpected()
	}

	switch {
	case t.is("("):
		p.advance()
		e := p.parseExpr()
		p.expect(")")
		return e
	case t.is("NULL"):
		p.advance()
		return p.node(pt.KNullLit, t, "")
	case t.is("TRUE"):
		p.advance()
		return p.node(pt.KTrue, t, "")
	case t.is("FALSE"):
		p.advance()
		return p.node(pt.KFalse, t, "")
	case t.is("CASE"):
		return p.parseCase(true)
	case t.is("SQLCODE"):
		p.advance()
		return p.node(pt.KSQLCode, t, "")
	case t.is("SQLERRM"):
		p.advance()
		return p.node(pt.KSQLErrm, t, "")
	case t.is("SQL") && p.peekAt(1).is("%"):
		p.advance()
		p.advance()
		p.expect("ROWCOUNT")
		return p.node(pt.KSQLRowCount, t, "")
	}
	if kind, ok := dateTimeLits[t.text]; ok && t.kind == tName && p.peekAt(1).kind == tString {
		p.advance()
		s := p.advance()
		return p.node(kind, t, s.text)
	}
	if t.kind == tOp {
		p.unexpected()
	}

	nameTok := p.name()
	id := p.node(pt.KIdent, nameTok, nameTok.text)
	switch {
	case p.peek("%") && p.peekAt(1).kind == tName && cursorAttrs[p.peekAt(1).text]:
		p.advance()
		attr := p.advance()
		return p.node(pt.KCursorAttr, attr, attr.text, id)
	case p.peek("."):
		p.advance()
		field := p.name()
		return p.node(pt.KField, nameTok, field.text, id)
	case p.peek("("):
		return p.node(pt.KCall, nameTok, nameTok.text, p.parseArgs())
	}
	return id
}
