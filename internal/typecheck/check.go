// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package typecheck computes the types of the expressions of a converted
// unit, checks them against the places they are used in, and attaches to
// every checked expression the coercion bringing it to the expected type.
//
// The unit must be complete: every deferred question of the converter must
// have been answered.
package typecheck

import (
	"context"
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

type checker struct {
	ctx    context.Context
	oracle oracle.Oracle
	unit   *ast.Unit

	// retType is the return type of the innermost enclosing function.
	retType *types.Type
}

// Check type checks unit. The result types of builtin function calls are
// asked to o, one call at a time.
func Check(ctx context.Context, unit *ast.Unit, o oracle.Oracle) (err error) {
	defer diag.Catch(&err)

	if q, ok := ast.Unresolved(unit); ok {
		return diag.Internalf("question %d is not answered", q)
	}
	if unit.Imports == nil {
		unit.Imports = map[string]bool{}
	}
	c := &checker{ctx: ctx, oracle: o, unit: unit}
	c.routine(unit.Routine)
	return nil
}

func throwf(n ast.Node, format string, a ...any) {
	diag.Throw(diag.Semanticf(n.Pos(), format, a...))
}

// addImport records the Java class of t as used by the generated code.
func (c *checker) addImport(t *types.Type) {
	if strings.Contains(t.JavaType, ".") && !strings.HasPrefix(t.JavaType, "java.lang.") {
		c.unit.Imports[t.JavaType] = true
	}
}

// coerce sets the coercion of e to dst. It reports false, leaving e
// untouched, if there is none.
func coerce(e ast.Expr, src, dst *types.Type) bool {
	co := coercion.Get(src, dst)
	if co == nil {
		return false
	}
	e.SetCoercion(co)
	return true
}

func (c *checker) routine(r ast.Routine) {
	base := r.Base()
	saved := c.retType
	if f, ok := r.(*ast.DeclFunc); ok {
		c.retType = f.RetType.Get()
		c.addImport(c.retType)
	} else {
		c.retType = nil
	}
	for _, p := range base.Params {
		c.addImport(p.Type.Get())
	}
	c.decls(base.Decls)
	c.body(base.Body)
	c.retType = saved
}

func (c *checker) decls(decls []ast.Decl) {
	for _, d := range decls {
		c.decl(d)
	}
}

func (c *checker) decl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.DeclProc:
		c.routine(d)
	case *ast.DeclFunc:
		c.routine(d)
	case *ast.DeclVar:
		t := d.Type.Get()
		c.addImport(t)
		if d.Init == nil {
			return
		}
		valType := c.expr(d.Init)
		if d.NotNull && valType == types.Null {
			throwf(d.Init, "NOT NULL variables may not have null as their initial value")
		}
		if !coerce(d.Init, valType, t) {
			throwf(d.Init, "type of the initial value is not compatible with the variable's declared type")
		}
	case *ast.DeclConst:
		t := d.Type.Get()
		c.addImport(t)
		valType := c.expr(d.Val)
		if d.NotNull && valType == types.Null {
			throwf(d.Val, "NOT NULL constants may not have null as their initial value")
		}
		if !coerce(d.Val, valType, t) {
			throwf(d.Val, "type of the initial value is not compatible with the constant's declared type")
		}
	case *ast.DeclCursor:
		for _, p := range d.Params {
			c.addImport(p.Type.Get())
		}
		c.hostExprs(d.SQL)
	case *ast.DeclException, *ast.DeclLabel:
	default:
		panic(diag.Internalf("unexpected declaration %T", d))
	}
}

// hostExprs checks the host expressions of an embedded SQL statement. Values
// that cannot be bound to a SQL parameter are rejected.
func (c *checker) hostExprs(sql *ast.StaticSQL) {
	for _, e := range sql.HostExprs {
		t := c.expr(e)
		if t == types.Boolean || t == types.Cursor || t == types.SysRefcursor {
			throwf(e, "host expressions cannot be of either BOOLEAN, CURSOR or SYS_REFCURSOR type")
		}
	}
}

// routineCall checks the arguments of a call against the parameters of the
// called routine. An argument passed to an OUT parameter is copied back
// after the call, so the coercion must be reversible.
func (c *checker) routineCall(name string, params []*ast.DeclParam, args []ast.Expr) {
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		name = name[i+1:]
	}
	for i, arg := range args {
		argType := c.expr(arg)
		p := params[i]
		paramType := p.Type.Get()
		co := coercion.Get(argType, paramType)
		if co == nil {
			throwf(arg, "argument %d to the call of %s has an incompatible type %s", i+1, name, argType)
		}
		if p.IsOut() && coercion.Reversion(co) == nil {
			throwf(arg, "OUT/INOUT parameter %d has a type %s which is incompatible with the argument type %s",
				i+1, paramType, argType)
		}
		arg.SetCoercion(co)
	}
}
