// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package convert

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	pt "github.com/canonical/plcsql/internal/parsetree"
	"github.com/canonical/plcsql/internal/symbols"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

var binaryOps = map[string]string{
	"OR":  "opOr",
	"XOR": "opXor",
	"AND": "opAnd",
	"=":   "opEq",
	"<=>": "opNullSafeEq",
	"!=":  "opNeq",
	"<":   "opLt",
	">":   "opGt",
	"<=":  "opLe",
	">=":  "opGe",
	"|":   "opBitOr",
	"^":   "opBitXor",
	"&":   "opBitAnd",
	"<<":  "opBitShiftLeft",
	">>":  "opBitShiftRight",
	"+":   "opAdd",
	"-":   "opSubtract",
	"||":  "opConcat",
	"*":   "opMult",
	"/":   "opDiv",
	"DIV": "opDivInt",
	"MOD": "opMod",
}

var unaryOps = map[string]string{
	"-":   "opNeg",
	"~":   "opBitCompli",
	"NOT": "opNot",
}

func (c *Converter) expr(n *pt.Node) ast.Expr {
	at := ast.At(pos(n))
	switch n.Kind {
	case pt.KBinary:
		op, ok := binaryOps[n.Text]
		if !ok {
			panic(diag.Internalf("unknown binary operator %s", n.Text))
		}
		return &ast.ExprBinaryOp{ExprBase: at, Op: op, Left: c.expr(n.Child(0)), Right: c.expr(n.Child(1))}
	case pt.KUnary:
		if n.Text == "+" {
			return c.expr(n.Child(0))
		}
		op, ok := unaryOps[n.Text]
		if !ok {
			panic(diag.Internalf("unknown unary operator %s", n.Text))
		}
		return &ast.ExprUnaryOp{ExprBase: at, Op: op, Operand: c.expr(n.Child(0))}
	case pt.KIsNull:
		e := &ast.ExprUnaryOp{ExprBase: at, Op: "opIsNull", Operand: c.expr(n.Child(0))}
		return negated(n, e)
	case pt.KBetween:
		e := &ast.ExprBetween{
			ExprBase: at,
			Target:   c.expr(n.Child(0)),
			Lower:    c.expr(n.Child(1)),
			Upper:    c.expr(n.Child(2)),
		}
		return negated(n, e)
	case pt.KIn:
		e := &ast.ExprIn{ExprBase: at, Target: c.expr(n.Child(0))}
		for _, v := range n.Children[1:] {
			e.Values = append(e.Values, c.expr(v))
		}
		return negated(n, e)
	case pt.KLike:
		return negated(n, c.like(n))
	case pt.KIntLit:
		return intLiteral(n)
	case pt.KFloatLit:
		return floatLiteral(n)
	case pt.KStrLit:
		return &ast.ExprStr{ExprBase: at, Val: n.Text}
	case pt.KDateLit, pt.KTimeLit, pt.KDatetimeLit, pt.KTimestampLit:
		return dateTimeLiteral(n)
	case pt.KNullLit:
		return &ast.ExprNull{ExprBase: at}
	case pt.KTrue:
		return &ast.ExprBool{ExprBase: at, Val: true}
	case pt.KFalse:
		return &ast.ExprBool{ExprBase: at, Val: false}
	case pt.KIdent:
		return c.ident(n)
	case pt.KField:
		return c.field(n)
	case pt.KCall:
		return c.funcCall(n)
	case pt.KCaseExpr:
		return c.caseExpr(n)
	case pt.KCursorAttr:
		id := c.nonFuncIdent(n.Child(0), n.Child(0).Text, true)
		if !isCursorOrRefcursor(id.Decl) {
			throwf(n.Child(0), "cursor attributes may not be read from %s which is neither a cursor nor a cursor reference", id.Name)
		}
		return &ast.ExprCursorAttr{ExprBase: at, ID: id, Attr: n.Text}
	case pt.KSQLRowCount:
		return &ast.ExprSQLRowCount{ExprBase: at}
	case pt.KSQLCode:
		return &ast.ExprSQLCode{ExprBase: at}
	case pt.KSQLErrm:
		return &ast.ExprSQLErrm{ExprBase: at}
	}
	panic(diag.Internalf("unexpected expression %s", n.Kind))
}

// negated wraps e in NOT if n is a negated predicate.
func negated(n *pt.Node, e ast.Expr) ast.Expr {
	if !n.Has(pt.FlagNot) {
		return e
	}
	return &ast.ExprUnaryOp{ExprBase: ast.At(pos(n)), Op: "opNot", Operand: e}
}

func (c *Converter) like(n *pt.Node) ast.Expr {
	e := &ast.ExprLike{ExprBase: ast.At(pos(n)), Target: c.expr(n.Child(0)), Pattern: c.expr(n.Child(1))}
	if esc := n.Child(2); esc != nil {
		if esc.Kind != pt.KStrLit || utf8.RuneCountInString(esc.Text) != 1 {
			throwf(esc, "the escape does not consist of a single character")
		}
		e.Escape = &ast.ExprStr{ExprBase: ast.At(pos(esc)), Val: esc.Text}
	}
	return e
}

func (c *Converter) args(n *pt.Node) []ast.Expr {
	if n == nil {
		return nil
	}
	var args []ast.Expr
	for _, a := range n.Children {
		args = append(args, c.expr(a))
	}
	return args
}

func intLiteral(n *pt.Node) ast.Expr {
	e := &ast.ExprNum{ExprBase: ast.At(pos(n))}
	v, err := strconv.ParseInt(n.Text, 10, 64)
	if err != nil {
		d, err := decimal.NewFromString(n.Text)
		if err != nil {
			panic(diag.Internalf("invalid integer literal %s", n.Text))
		}
		if d.NumDigits() > types.MaxPrecision {
			throwf(n, "number of digits of an integer literal may not exceed %d", types.MaxPrecision)
		}
		e.Val = d.String()
		e.Type = types.NumericAny
		return e
	}
	e.Val = strconv.FormatInt(v, 10)
	if v > math.MaxInt32 {
		e.Type = types.Bigint
	} else {
		e.Type = types.Int
	}
	return e
}

func floatLiteral(n *pt.Node) ast.Expr {
	e := &ast.ExprNum{ExprBase: ast.At(pos(n))}
	text := strings.ToLower(n.Text)
	switch {
	case strings.Contains(text, "e"):
		e.Val = text
		e.Type = types.Double
	case strings.HasSuffix(text, "f"):
		e.Val = text
		e.Type = types.Float
	default:
		if strings.HasSuffix(text, ".") {
			text += "0"
		}
		d, err := decimal.NewFromString(text)
		if err != nil {
			panic(diag.Internalf("invalid floating point literal %s", n.Text))
		}
		if d.NumDigits() > types.MaxPrecision {
			throwf(n, "number of digits of a floating point number literal may not exceed %d", types.MaxPrecision)
		}
		e.Val = text
		e.Type = types.NumericAny
	}
	return e
}

// dateTimeLayouts are the accepted forms of date and time literals. The
// first layout of each kind is the canonical one.
var dateTimeLayouts = map[pt.Kind][]string{
	pt.KDateLit:      {"2006-01-02", "2006/01/02", "01/02/2006"},
	pt.KTimeLit:      {"15:04:05", "15:04", "3:04:05 PM", "3:04 PM"},
	pt.KDatetimeLit:  {"2006-01-02 15:04:05.000", "2006-01-02 15:04:05", "2006-01-02 15:04", "01/02/2006 15:04:05"},
	pt.KTimestampLit: {"2006-01-02 15:04:05", "2006-01-02 15:04", "01/02/2006 15:04:05"},
}

var dateTimeTypes = map[pt.Kind]*types.Type{
	pt.KDateLit:      types.Date,
	pt.KTimeLit:      types.Time,
	pt.KDatetimeLit:  types.Datetime,
	pt.KTimestampLit: types.Timestamp,
}

// dateTimeLiteral validates a date or time literal and brings it to its
// canonical form.
func dateTimeLiteral(n *pt.Node) ast.Expr {
	t := dateTimeTypes[n.Kind]
	layouts := dateTimeLayouts[n.Kind]
	text := strings.TrimSpace(n.Text)
	for _, layout := range layouts {
		v, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		return &ast.ExprDateTime{ExprBase: ast.At(pos(n)), Type: t, Val: v.Format(layouts[0])}
	}
	throwf(n, "invalid %s string: %s", t, n.Text)
	return nil
}

// nonFuncIdent resolves an identifier that must not name a function. It
// returns nil for an unknown name unless throw is set.
func (c *Converter) nonFuncIdent(n *pt.Node, name string, throw bool) *ast.ExprID {
	d := c.stack.Decl(name)
	if _, isFunc := d.(*ast.DeclFunc); d == nil || isFunc {
		if throw {
			throwf(n, "undeclared id %s", name)
		}
		return nil
	}
	id, ok := d.(ast.DeclID)
	if !ok {
		throwf(n, "%s is not an identifier but %s in this scope", name, d.Kind())
	}
	c.stack.Use(pos(n), name, id)
	return &ast.ExprID{ExprBase: ast.At(pos(n)), Name: name, Decl: id}
}

// ident converts an identifier expression: a declared identifier, or a
// function called without arguments.
func (c *Converter) ident(n *pt.Node) ast.Expr {
	name := n.Text
	d := c.stack.DeclForIDExpr(pos(n), name)
	if d == nil {
		return c.globalFuncCall(n, name, nil)
	}
	c.stack.Use(pos(n), name, d)
	switch d := d.(type) {
	case ast.DeclID:
		return &ast.ExprID{ExprBase: ast.At(pos(n)), Name: name, Decl: d}
	case *ast.DeclFunc:
		if d.Predefined() {
			c.connectionRequired = true
			return &ast.ExprBuiltinFuncCall{ExprBase: ast.At(pos(n)), Name: name}
		}
		return c.localFuncCall(n, d, nil)
	}
	panic(diag.Internalf("unexpected declaration of %s", name))
}

func (c *Converter) funcCall(n *pt.Node) ast.Expr {
	name := n.Text
	args := c.args(n.Child(0))
	d := c.stack.DeclFunc(pos(n), name)
	if d == nil {
		return c.globalFuncCall(n, name, args)
	}
	c.stack.Use(pos(n), name, d)
	if d.Predefined() {
		if symbols.NoParenBuiltin(name) {
			throwf(n, "%s must be used without parentheses", name)
		}
		c.connectionRequired = true
		return &ast.ExprBuiltinFuncCall{ExprBase: ast.At(pos(n)), Name: name, Args: args}
	}
	return c.localFuncCall(n, d, args)
}

func (c *Converter) globalFuncCall(n *pt.Node, name string, args []ast.Expr) ast.Expr {
	c.connectionRequired = true
	c.stack.Use(pos(n), name, nil)
	call := &ast.ExprGlobalFuncCall{ExprBase: ast.At(pos(n)), Name: name, Args: args}
	call.Decl = ast.Deferred[*ast.DeclFunc](c.ask(oracle.Question{Kind: oracle.AskFunction, Name: name}, pos(n), call))
	return call
}

func (c *Converter) localFuncCall(n *pt.Node, d *ast.DeclFunc, args []ast.Expr) ast.Expr {
	if len(args) != len(d.Params) {
		throwf(n, "the number of arguments to function %s does not match the number of its formal parameters", d.Name())
	}
	if i := c.checkOutArgs(args, d.Params); i > 0 {
		diag.Throw(diag.Semanticf(args[i-1].Pos(),
			"argument %d to the function %s must be assignable to because it is to an OUT parameter", i, d.Name()))
	}
	return &ast.ExprLocalFuncCall{ExprBase: ast.At(pos(n)), Name: d.Name(), Args: args, Decl: d}
}

var serialModes = map[string]ast.SerialMode{
	"NEXT_VALUE":    ast.SerialNext,
	"NEXTVAL":       ast.SerialNext,
	"CURRENT_VALUE": ast.SerialCurrent,
	"CURRVAL":       ast.SerialCurrent,
}

// field converts RECORD.FIELD, or SERIAL.NEXTVAL and its variants when no
// record of that name is in scope.
func (c *Converter) field(n *pt.Node) ast.Expr {
	recNode := n.Child(0)
	rec := c.nonFuncIdent(recNode, recNode.Text, false)
	if rec == nil {
		mode, ok := serialModes[n.Text]
		if !ok {
			throwf(recNode, "undeclared id %s", recNode.Text)
		}
		c.connectionRequired = true
		e := &ast.ExprSerialVal{ExprBase: ast.At(pos(n)), Name: recNode.Text, Mode: mode}
		e.Verified = ast.Deferred[bool](c.ask(oracle.Question{Kind: oracle.AskSerial, Name: recNode.Text}, pos(n), e))
		return e
	}
	if _, ok := rec.Decl.(*ast.DeclForRecord); !ok {
		throwf(recNode, "field lookup is only allowed for records")
	}
	return &ast.ExprField{ExprBase: ast.At(pos(n)), Record: rec, Field: n.Text}
}

// caseExpr converts a simple CASE expression into ExprCase and a searched
// one into ExprCond.
func (c *Converter) caseExpr(n *pt.Node) ast.Expr {
	at := ast.At(pos(n))
	if n.Child(0) == nil {
		e := &ast.ExprCond{ExprBase: at}
		for _, w := range n.Children[1:] {
			if w.Kind == pt.KElse {
				e.Else = c.expr(w.Child(0))
				continue
			}
			e.Whens = append(e.Whens, &ast.CondExprWhen{
				Positioned: ast.Positioned{Position: pos(w)},
				Cond:       c.expr(w.Child(0)),
				Result:     c.expr(w.Child(1)),
			})
		}
		return e
	}

	e := &ast.ExprCase{ExprBase: at}
	c.stack.Push("case_expr", ast.NoRoutine)
	e.Selector = c.expr(n.Child(0))
	for _, w := range n.Children[1:] {
		if w.Kind == pt.KElse {
			e.Else = c.expr(w.Child(0))
			continue
		}
		e.Whens = append(e.Whens, &ast.CaseExprWhen{
			Positioned: ast.Positioned{Position: pos(w)},
			Val:        c.expr(w.Child(0)),
			Result:     c.expr(w.Child(1)),
		})
	}
	c.stack.Pop()
	return e
}
