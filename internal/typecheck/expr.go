// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typecheck

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/symbols"
	"github.com/canonical/plcsql/internal/types"
)

// comparisons are the binary operators that have a Char variant.
var comparisons = map[string]bool{
	"opEq": true, "opNullSafeEq": true, "opNeq": true,
	"opLe": true, "opGe": true, "opLt": true, "opGt": true,
}

var cursorAttrTypes = map[string]*types.Type{
	"ISOPEN":   types.Boolean,
	"FOUND":    types.Boolean,
	"NOTFOUND": types.Boolean,
	"ROWCOUNT": types.Bigint,
}

func hasTimestampParam(o *symbols.Operator) bool {
	for _, p := range o.Params {
		if p == types.Timestamp {
			return true
		}
	}
	return false
}

func allChars(ts []*types.Type) bool {
	for _, t := range ts {
		if !t.IsChar() {
			return false
		}
	}
	return true
}

// expr returns the type of e.
func (c *checker) expr(e ast.Expr) *types.Type {
	switch e := e.(type) {
	case *ast.ExprNull:
		return types.Null
	case *ast.ExprBool:
		return types.Boolean
	case *ast.ExprNum:
		return e.Type
	case *ast.ExprStr:
		return types.Char(types.MaxCharLen)
	case *ast.ExprDateTime:
		return e.Type
	case *ast.ExprID:
		return c.id(e)
	case *ast.ExprField:
		return c.field(e)
	case *ast.ExprSerialVal:
		return types.NumericAny
	case *ast.ExprUnaryOp:
		t := c.expr(e.Operand)
		o, cos := symbols.LookupOperator(e.Op, t)
		if o == nil {
			throwf(e, "argument does not have a compatible type")
		}
		e.Operand.SetCoercion(cos[0])
		return o.Ret
	case *ast.ExprBinaryOp:
		return c.binaryOp(e)
	case *ast.ExprBetween:
		ts := []*types.Type{c.expr(e.Target), c.expr(e.Lower), c.expr(e.Upper)}
		o, cos := symbols.LookupOperator("opBetween", ts...)
		if o == nil {
			throwf(e, "lower bound or upper bound does not have a comparable type")
		}
		if hasTimestampParam(o) {
			e.Ext = "Timestamp"
		} else if allChars(ts) {
			e.Ext = "Char"
		}
		e.Target.SetCoercion(cos[0])
		e.Lower.SetCoercion(cos[1])
		e.Upper.SetCoercion(cos[2])
		return types.Boolean
	case *ast.ExprIn:
		args := append([]ast.Expr{e.Target}, e.Values...)
		ts := make([]*types.Type, len(args))
		for i, a := range args {
			ts[i] = c.expr(a)
		}
		o, cos := symbols.LookupOperator("opIn", ts...)
		if o == nil {
			throwf(e, "one of the values does not have a comparable type")
		}
		if hasTimestampParam(o) {
			e.Ext = "Timestamp"
		} else if allChars(ts) {
			e.Ext = "Char"
		}
		for i, a := range args {
			a.SetCoercion(cos[i])
		}
		return types.Boolean
	case *ast.ExprLike:
		if !coerce(e.Target, c.expr(e.Target), types.StringAny) {
			throwf(e.Target, "tested expression cannot be coerced to a string type")
		}
		if !coerce(e.Pattern, c.expr(e.Pattern), types.StringAny) {
			throwf(e.Pattern, "pattern cannot be coerced to a string type")
		}
		return types.Boolean
	case *ast.ExprCase:
		return c.caseExpr(e)
	case *ast.ExprCond:
		return c.condExpr(e)
	case *ast.ExprLocalFuncCall:
		c.routineCall(e.Name, e.Decl.Params, e.Args)
		return e.Decl.RetType.Get()
	case *ast.ExprGlobalFuncCall:
		d := e.Decl.Get()
		c.routineCall(e.Name, d.Params, e.Args)
		return d.RetType.Get()
	case *ast.ExprBuiltinFuncCall:
		return c.builtinCall(e)
	case *ast.ExprCursorAttr:
		c.id(e.ID)
		t, ok := cursorAttrTypes[e.Attr]
		if !ok {
			panic(diag.Internalf("unknown cursor attribute %s", e.Attr))
		}
		return t
	case *ast.ExprSQLRowCount:
		return types.Bigint
	case *ast.ExprSQLCode:
		return types.Int
	case *ast.ExprSQLErrm:
		return types.StringAny
	}
	panic(diag.Internalf("unexpected expression %T", e))
}

func (c *checker) id(e *ast.ExprID) *types.Type {
	if _, ok := e.Decl.(*ast.DeclForRecord); ok {
		throwf(e, "loop record %s cannot be used as a value", e.Name)
	}
	return ast.TypeOf(e.Decl)
}

// field returns the type of a field of a loop record. Records of dynamic
// SQL have fields of unknown types.
func (c *checker) field(e *ast.ExprField) *types.Type {
	rec := e.Record.Decl.(*ast.DeclForRecord)
	if rec.SQL == nil {
		e.Type = types.Object
		return types.Object
	}
	found := 0
	for i, col := range rec.SQL.Columns {
		if col.Name != e.Field {
			continue
		}
		if found > 0 {
			throwf(e, "column name '%s' is ambiguous", e.Field)
		}
		found = i + 1
	}
	if found == 0 {
		throwf(e, "no such column '%s' in the query result", e.Field)
	}
	e.Column = found
	e.Type = rec.SQL.Columns[found-1].Type
	c.addImport(e.Type)
	return e.Type
}

func (c *checker) binaryOp(e *ast.ExprBinaryOp) *types.Type {
	l := c.expr(e.Left)
	r := c.expr(e.Right)
	o, cos := symbols.LookupOperator(e.Op, l, r)
	if o == nil {
		throwf(e, "operands do not have compatible types")
	}
	if hasTimestampParam(o) {
		e.Ext = "Timestamp"
	} else if comparisons[e.Op] && l.IsChar() && r.IsChar() {
		e.Ext = "Char"
	}
	e.Left.SetCoercion(cos[0])
	e.Right.SetCoercion(cos[1])
	return o.Ret
}

// commonType folds the type of one more branch into the common type of a
// case expression.
func commonType(former, t *types.Type) *types.Type {
	if former == nil {
		return t
	}
	return coercion.CommonType(former, t)
}

// caseExpr checks a simple CASE expression. The selector and the values are
// compared with the n-ary comparison of IN.
func (c *checker) caseExpr(e *ast.ExprCase) *types.Type {
	compared := []*types.Type{c.expr(e.Selector)}
	var results []*types.Type
	var common *types.Type
	for _, w := range e.Whens {
		compared = append(compared, c.expr(w.Val))
		t := c.expr(w.Result)
		if common = commonType(common, t); common == nil {
			throwf(w.Result, "expression in this case has an incompatible type %s", t)
		}
		results = append(results, t)
	}
	if e.Else != nil {
		t := c.expr(e.Else)
		if common = commonType(common, t); common == nil {
			throwf(e.Else, "expression in the else part has an incompatible type %s", t)
		}
		results = append(results, t)
	}
	if allChars(compared) {
		e.Ext = "Char"
	}

	o, cos := symbols.LookupOperator("opIn", compared...)
	if o == nil {
		throwf(e, "one of the values does not have a comparable type")
	}
	e.Selector.SetCoercion(cos[0])
	for i, w := range e.Whens {
		w.Val.SetCoercion(cos[i+1])
		w.Result.SetCoercion(mustCoerce(results[i], common))
	}
	if e.Else != nil {
		e.Else.SetCoercion(mustCoerce(results[len(results)-1], common))
	}
	e.SelectorType = o.Params[0]
	e.ResultType = common
	return common
}

func (c *checker) condExpr(e *ast.ExprCond) *types.Type {
	var results []*types.Type
	var common *types.Type
	for _, w := range e.Whens {
		if c.expr(w.Cond) != types.Boolean {
			throwf(w.Cond, "the condition must be boolean")
		}
		t := c.expr(w.Result)
		if common = commonType(common, t); common == nil {
			throwf(w.Result, "expression in this case has an incompatible type %s", t)
		}
		results = append(results, t)
	}
	if e.Else != nil {
		t := c.expr(e.Else)
		if common = commonType(common, t); common == nil {
			throwf(e.Else, "expression in the else part has an incompatible type %s", t)
		}
		results = append(results, t)
	}
	for i, w := range e.Whens {
		w.Result.SetCoercion(mustCoerce(results[i], common))
	}
	if e.Else != nil {
		e.Else.SetCoercion(mustCoerce(results[len(results)-1], common))
	}
	e.ResultType = common
	return common
}

// mustCoerce returns the coercion of a branch of a case expression to the
// common type of all the branches, which always exists.
func mustCoerce(src, dst *types.Type) *coercion.Coercion {
	co := coercion.Get(src, dst)
	if co == nil {
		panic(diag.Internalf("no coercion from %s to the common type %s", src, dst))
	}
	return co
}

// builtinCall asks the server for the result type of a builtin function
// applied to typical values of the argument types.
func (c *checker) builtinCall(e *ast.ExprBuiltinFuncCall) *types.Type {
	var args string
	switch {
	case len(e.Args) > 0:
		vals := make([]string, len(e.Args))
		for i, a := range e.Args {
			t := c.expr(a)
			if t.TypicalValue == "" {
				throwf(a, "argument %d to the built-in function %s has an invalid type", i+1, e.Name)
			}
			vals[i] = t.TypicalValue
		}
		args = "(" + strings.Join(vals, ", ") + ")"
	case !symbols.NoParenBuiltin(e.Name):
		args = "()"
	}
	sql := fmt.Sprintf("select %s%s from dual", e.Name, args)

	sems, err := c.oracle.SQLSemantics(c.ctx, []string{sql})
	if err != nil {
		panic(errors.Wrapf(err, "cannot get the result type of %s", e.Name))
	}
	if len(sems) != 1 || sems[0].Seq != 0 {
		panic(diag.Internalf("unexpected answer to the analysis of %q", sql))
	}
	sem := sems[0]
	if sem.ErrCode != 0 || len(sem.HostExprs) > 0 || len(sem.Columns) != 1 {
		throwf(e, "function %s is undefined or given wrong number or types of arguments", e.Name)
	}
	ti := sem.Columns[0].TypeInfo
	if !types.IsSupported(ti.Type) {
		throwf(e, "unsupported return type %s of the built-in function %s", ti.Type, e.Name)
	}
	t := types.ValueType(ti.Type)
	c.addImport(t)
	e.ResultType = t

	if len(e.Args) == 1 {
		if _, ok := e.Args[0].(*ast.ExprNull); ok {
			// A lone null argument needs a type for the Java compiler to
			// pick the overload.
			e.Args[0].SetCoercion(coercion.Get(types.Null, types.Object))
		}
	}
	return t
}
