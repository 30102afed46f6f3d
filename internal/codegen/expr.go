// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package codegen

import (
	"fmt"
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
)

var cursorAttrMethods = map[string]string{
	"ISOPEN":   "isOpen",
	"FOUND":    "found",
	"NOTFOUND": "notFound",
	"ROWCOUNT": "rowCount",
}

// expr returns the Java code of e with its coercion applied.
func (g *generator) expr(e ast.Expr) string {
	code := g.exprValue(e)
	if co := e.Coercion(); co != nil {
		return co.JavaCode(code)
	}
	return code
}

func (g *generator) exprs(es []ast.Expr) []string {
	codes := make([]string, len(es))
	for i, e := range es {
		codes[i] = g.expr(e)
	}
	return codes
}

func (g *generator) exprValue(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.ExprNull:
		return "null"
	case *ast.ExprBool:
		if e.Val {
			return "Boolean.TRUE"
		}
		return "Boolean.FALSE"
	case *ast.ExprNum:
		return g.number(e)
	case *ast.ExprStr:
		return javaString(e.Val)
	case *ast.ExprDateTime:
		return g.dateTime(e)
	case *ast.ExprID:
		return g.id(e)
	case *ast.ExprField:
		rec := e.Record.Decl.(*ast.DeclForRecord)
		if rec.SQL == nil {
			return fmt.Sprintf("%s.getObject(%s)", g.recordVar(rec), javaString(e.Field))
		}
		return fmt.Sprintf("(%s) %s.getObject(%d)", g.typeName(e.Type), g.recordVar(rec), e.Column)
	case *ast.ExprSerialVal:
		return g.serialVal(e)
	case *ast.ExprUnaryOp:
		return fmt.Sprintf("%s(%s)", e.Op, g.expr(e.Operand))
	case *ast.ExprBinaryOp:
		return fmt.Sprintf("%s%s(%s, %s)", e.Op, e.Ext, g.expr(e.Left), g.expr(e.Right))
	case *ast.ExprBetween:
		return fmt.Sprintf("opBetween%s(%s, %s, %s)", e.Ext, g.expr(e.Target), g.expr(e.Lower), g.expr(e.Upper))
	case *ast.ExprIn:
		args := append([]string{g.expr(e.Target)}, g.exprs(e.Values)...)
		return fmt.Sprintf("opIn%s(%s)", e.Ext, strings.Join(args, ", "))
	case *ast.ExprLike:
		escape := "null"
		if e.Escape != nil {
			escape = javaString(e.Escape.Val)
		}
		return fmt.Sprintf("opLike(%s, %s, %s)", g.expr(e.Target), g.expr(e.Pattern), escape)
	case *ast.ExprCase:
		return g.caseExpr(e)
	case *ast.ExprCond:
		return g.condExpr(e)
	case *ast.ExprLocalFuncCall:
		return g.localCall(e.Decl, e.Args, g.typeName(e.Decl.RetType.Get()))
	case *ast.ExprGlobalFuncCall:
		d := e.Decl.Get()
		return g.globalCall(e.Name, d.Params, e.Args, g.typeName(d.RetType.Get()))
	case *ast.ExprBuiltinFuncCall:
		args := append([]string{"conn", javaString(e.Name), fmt.Sprint(e.ResultType.Idx)}, g.exprs(e.Args)...)
		return fmt.Sprintf("(%s) invokeBuiltinFunc(%s)", g.typeName(e.ResultType), strings.Join(args, ", "))
	case *ast.ExprCursorAttr:
		return g.cursorAttr(e)
	case *ast.ExprSQLRowCount:
		return "sql_rowcount[0]"
	case *ast.ExprSQLCode:
		if g.handlerDepth == 0 {
			return "Integer.valueOf(0)"
		}
		return fmt.Sprintf("Integer.valueOf(e%d.getCode())", g.handlerDepth)
	case *ast.ExprSQLErrm:
		if g.handlerDepth == 0 {
			return javaString("no error")
		}
		return fmt.Sprintf("e%d.getMessage()", g.handlerDepth)
	}
	panic(diag.Internalf("unexpected expression %T", e))
}

func (g *generator) number(e *ast.ExprNum) string {
	switch e.Type.Idx {
	case types.IdxShort:
		return fmt.Sprintf("Short.valueOf((short) %s)", e.Val)
	case types.IdxInt:
		return fmt.Sprintf("Integer.valueOf(%s)", e.Val)
	case types.IdxBigint:
		return fmt.Sprintf("Long.valueOf(%sL)", e.Val)
	case types.IdxFloat:
		return fmt.Sprintf("Float.valueOf(%s)", e.Val)
	case types.IdxDouble:
		return fmt.Sprintf("Double.valueOf(%s)", e.Val)
	}
	return fmt.Sprintf("new %s(%s)", g.typeName(types.NumericAny), javaString(e.Val))
}

func (g *generator) dateTime(e *ast.ExprDateTime) string {
	lit := javaString(e.Val)
	if e.Type.Idx == types.IdxTimestamp {
		return fmt.Sprintf("convStringToTimestamp(%s)", lit)
	}
	return fmt.Sprintf("%s.valueOf(%s)", g.typeName(e.Type), lit)
}

// id returns the value of a declared identifier.
func (g *generator) id(e *ast.ExprID) string {
	switch d := e.Decl.(type) {
	case *ast.DeclVar:
		return g.member(d, d.Name()) + "[0]"
	case *ast.DeclConst, *ast.DeclCursor:
		return g.member(d, d.Name())
	case *ast.DeclParam:
		if name, ok := g.cursorParams[d]; ok {
			if name == "" {
				panic(diag.Internalf("parameter %s of a cursor used outside of an OPEN", d.Name()))
			}
			return name
		}
		if d.IsOut() {
			return d.Name() + "[0]"
		}
		return d.Name()
	case *ast.DeclForIter:
		return g.iterVar(d) + "[0]"
	}
	panic(diag.Internalf("%s cannot be used as a value", e.Name))
}

// outArg returns the array holding the variable passed to an OUT parameter.
func (g *generator) outArg(e ast.Expr) string {
	id, ok := e.(*ast.ExprID)
	if !ok {
		panic(diag.Internalf("argument to an OUT parameter is not an identifier"))
	}
	switch d := id.Decl.(type) {
	case *ast.DeclVar:
		return g.member(d, d.Name())
	case *ast.DeclParam:
		if d.IsOut() {
			return d.Name()
		}
	}
	panic(diag.Internalf("%s cannot be passed to an OUT parameter", id.Name))
}

func (g *generator) serialVal(e *ast.ExprSerialVal) string {
	val := "NEXT_VALUE"
	if e.Mode == ast.SerialCurrent {
		val = "CURRENT_VALUE"
	}
	sql := fmt.Sprintf("select %s.%s from dual", e.Name, val)
	numeric := g.typeName(types.NumericAny)

	var w writer
	w.openf("(new Object() { // serial value of %s", e.Name)
	w.openf("%s getSerialVal() throws Exception {", numeric)
	w.openf("try {")
	w.linef("PreparedStatement stmt = conn.prepareStatement(%s);", javaString(sql))
	w.linef("ResultSet r = stmt.executeQuery();")
	w.linef("%s ret = r.next() ? r.getBigDecimal(1) : null;", numeric)
	w.linef("stmt.close();")
	w.linef("return ret;")
	sqlErrorCatch(&w)
	w.closef("}")
	w.closef("}.getSerialVal())")
	return w.text()
}

// sqlErrorCatch closes a try block converting SQL exceptions.
func sqlErrorCatch(w *writer) {
	w.closef("} catch (SQLException e) {")
	w.indent++
	w.linef("Server.log(e);")
	w.linef("throw new SQL_ERROR(e.getMessage());")
	w.closef("}")
}

// caseExpr evaluates the selector once, as the argument of an anonymous
// method comparing it with the values of the branches.
func (g *generator) caseExpr(e *ast.ExprCase) string {
	rt := g.typeName(e.ResultType)
	var w writer
	w.openf("(new Object() { // case expression")
	w.openf("%s invoke(%s selector) throws Exception {", rt, g.typeName(e.SelectorType))
	w.openf("return")
	for _, when := range e.Whens {
		w.linef("Boolean.TRUE.equals(opEq%s(selector, %s)) ? %s :", e.Ext, g.expr(when.Val), g.expr(when.Result))
	}
	w.linef("%s;", g.elseValue(e.Else, rt))
	w.indent--
	w.closef("}")
	w.closef("}.invoke(%s))", g.expr(e.Selector))
	return w.text()
}

func (g *generator) condExpr(e *ast.ExprCond) string {
	rt := g.typeName(e.ResultType)
	var w writer
	w.openf("(")
	for _, when := range e.Whens {
		w.linef("Boolean.TRUE.equals(%s) ? %s :", g.expr(when.Cond), g.expr(when.Result))
	}
	w.linef("%s", g.elseValue(e.Else, rt))
	w.closef(")")
	return w.text()
}

// elseValue is the value of a case expression when no branch matches.
func (g *generator) elseValue(els ast.Expr, javaType string) string {
	if els == nil {
		return fmt.Sprintf("(%s) null", javaType)
	}
	return g.expr(els)
}

func (g *generator) cursorAttr(e *ast.ExprCursorAttr) string {
	method, ok := cursorAttrMethods[e.Attr]
	if !ok {
		panic(diag.Internalf("unknown cursor attribute %s", e.Attr))
	}
	cursor := g.id(e.ID)
	if e.Attr == "ISOPEN" {
		return fmt.Sprintf("((%s == null) ? Boolean.FALSE : %s.%s())", cursor, cursor, method)
	}
	t := "Boolean"
	if e.Attr == "ROWCOUNT" {
		t = "Long"
	}
	return fmt.Sprintf("((%s == null) ? (%s) throwInvalidCursor(%s) : %s.%s())",
		cursor, t, javaString("tried to retrieve an attribute from an unopened SYS_REFCURSOR"), cursor, method)
}
