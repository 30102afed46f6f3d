// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package convert

import (
	"strconv"
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	pt "github.com/canonical/plcsql/internal/parsetree"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

// previsitRoutine declares a routine before its definition is converted, so
// that routines of the same declaration part can call each other.
func (c *Converter) previsitRoutine(n *pt.Node) {
	name := n.Text
	isFunc := n.Has(pt.FlagFunction)
	topLevel := c.stack.Current().Level == ast.LevelMain

	c.stack.Push("temp", ast.NoRoutine)
	params := c.params(n.Child(0), false)
	c.stack.Pop()

	var r ast.Routine
	ret := n.Child(1)
	if isFunc {
		if ret == nil {
			throwf(n, "function %s must specify its return type", name)
		}
		f := &ast.DeclFunc{}
		f.DeclBase = ast.Named(pos(n), name)
		f.Params = params
		f.RetType = c.typeSpec(ret)
		c.trackType(&f.RetType)
		if t, ok := pendingType(f.RetType); ok && topLevel && (t == types.Boolean || t == types.SysRefcursor) {
			throwf(ret, "type %s cannot be used as a return type of stored functions", t)
		}
		r = f
	} else {
		if ret != nil {
			throwf(ret, "procedure %s may not specify a return type", name)
		}
		p := &ast.DeclProc{}
		p.DeclBase = ast.Named(pos(n), name)
		p.Params = params
		r = p
	}
	c.stack.PutDecl(name, r)
	c.routines[n] = r
}

// routine converts the definition of a routine previsited before.
func (c *Converter) routine(n *pt.Node) ast.Routine {
	r, ok := c.routines[n]
	if !ok {
		panic(diag.Internalf("routine %s was not previsited", n.Text))
	}
	if n.Has(pt.FlagLanguage) && c.stack.Current().Level > ast.LevelMain {
		diag.Throw(diag.Syntaxf(pos(n), "illegal keywords LANGUAGE PLCSQL for a local procedure/function"))
	}
	kind := ast.Procedure
	if _, ok := r.(*ast.DeclFunc); ok {
		kind = ast.Function
	}
	base := r.Base()

	savedLoops, savedHandlers, savedLevel := c.loopDepth, c.handlerDepth, c.routineLevel
	c.loopDepth, c.handlerDepth = 0, 0

	base.Inner = c.stack.Push(n.Text, kind)
	c.routineLevel = base.Inner.Level
	for _, p := range base.Params {
		c.stack.PutDecl(p.Name(), p)
	}
	base.Decls = c.declList(n.Child(2))
	body := n.Child(3)
	base.Body = c.body(body)
	if body.Text != "" && body.Text != n.Text {
		throwf(body, "label does not match the %s name %s", kind, n.Text)
	}
	c.stack.Pop()

	if kind == ast.Function && !c.controlFlowBlocked {
		throwf(n, "function %s can reach its end without returning a value", n.Text)
	}
	c.controlFlowBlocked = false
	if c.stack.Current().Level > ast.LevelMain {
		c.stack.CheckNotUsed(pos(n), n.Text)
	}

	c.loopDepth, c.handlerDepth, c.routineLevel = savedLoops, savedHandlers, savedLevel
	return r
}

// declList converts a declaration part. It returns nil if there is none.
func (c *Converter) declList(n *pt.Node) []ast.Decl {
	if n == nil {
		return nil
	}
	c.stack.BeginDeclPart()
	for _, d := range n.Children {
		if d.Kind == pt.KRoutine {
			c.previsitRoutine(d)
		}
	}
	var decls []ast.Decl
	for _, d := range n.Children {
		if decl := c.decl(d); decl != nil {
			decls = append(decls, decl)
		}
	}
	c.stack.EndDeclPart()
	return decls
}

func (c *Converter) decl(n *pt.Node) ast.Decl {
	switch n.Kind {
	case pt.KRoutine:
		return c.routine(n)
	case pt.KVarDecl:
		return c.varDecl(n)
	case pt.KConstDecl:
		return c.constDecl(n)
	case pt.KExceptionDecl:
		d := &ast.DeclException{DeclBase: ast.Named(pos(n), n.Text)}
		c.stack.PutDecl(n.Text, d)
		c.stack.CheckNotUsed(pos(n), n.Text)
		return d
	case pt.KCursorDecl:
		return c.cursorDecl(n)
	case pt.KPragma:
		c.pragma(n)
		return nil
	}
	panic(diag.Internalf("unexpected declaration %s", n.Kind))
}

func (c *Converter) varDecl(n *pt.Node) ast.Decl {
	d := &ast.DeclVar{DeclBase: ast.Named(pos(n), n.Text), NotNull: n.Has(pt.FlagNotNull)}
	d.Type = c.typeSpec(n.Child(0))
	if init := n.Child(1); init != nil {
		d.Init = c.expr(init)
	}
	c.trackType(&d.Type)
	c.stack.PutDecl(n.Text, d)
	c.stack.CheckNotUsed(pos(n), n.Text)
	return d
}

func (c *Converter) constDecl(n *pt.Node) ast.Decl {
	d := &ast.DeclConst{DeclBase: ast.Named(pos(n), n.Text), NotNull: n.Has(pt.FlagNotNull)}
	d.Type = c.typeSpec(n.Child(0))
	d.Val = c.expr(n.Child(1))
	c.trackType(&d.Type)
	c.stack.PutDecl(n.Text, d)
	c.stack.CheckNotUsed(pos(n), n.Text)
	return d
}

func (c *Converter) cursorDecl(n *pt.Node) ast.Decl {
	c.connectionRequired = true
	d := &ast.DeclCursor{DeclBase: ast.Named(pos(n), n.Text)}

	c.stack.Push("cursor_def", ast.NoRoutine)
	d.Params = c.params(n.Child(0), true)
	sqlNode := n.Child(1)
	sql, sem := c.staticSQL(sqlNode)
	if sem.Kind != oracle.StmtSelect {
		throwf(sqlNode, "SQL in a cursor definition must be a SELECT statement")
	}
	if sem.IntoVars != nil {
		throwf(sqlNode, "SQL in a cursor definition may not have an into-clause")
	}
	d.SQL = sql
	c.stack.Pop()

	c.stack.PutDecl(n.Text, d)
	c.stack.CheckNotUsed(pos(n), n.Text)
	return d
}

func (c *Converter) pragma(n *pt.Node) {
	if n.Text != "AUTONOMOUS_TRANSACTION" {
		throwf(n, "unknown pragma %s", n.Text)
	}
	if c.stack.Current().Level != ast.LevelMain+1 {
		throwf(n, "AUTONOMOUS_TRANSACTION can only be declared at the top level")
	}
	throwf(n, "AUTONOMOUS_TRANSACTION is not supported yet")
}

// params converts a parameter list into the current scope.
func (c *Converter) params(list *pt.Node, ofCursor bool) []*ast.DeclParam {
	if list == nil {
		return nil
	}
	// The parameters of the unit are those of a stored routine.
	stored := c.stack.Current().Level == ast.LevelMain+1 && !ofCursor
	var params []*ast.DeclParam
	for _, n := range list.Children {
		p := &ast.DeclParam{DeclBase: ast.Named(pos(n), n.Text)}
		switch {
		case n.Has(pt.FlagIn) && n.Has(pt.FlagOut):
			p.Mode = ast.ParamInOut
		case n.Has(pt.FlagOut):
			p.Mode = ast.ParamOut
		}
		if ofCursor && p.IsOut() {
			throwf(n, "parameters of a cursor definition may not be OUT parameters")
		}
		p.Type = c.typeSpec(n.Child(0))
		c.trackType(&p.Type)
		if t, ok := pendingType(p.Type); ok && stored && (t == types.Boolean || t == types.SysRefcursor) {
			throwf(n.Child(0), "type %s cannot be used as a parameter type of stored procedures", t)
		}
		c.stack.PutDecl(n.Text, p)
		params = append(params, p)
	}
	return params
}

// typeSpec converts a type specification. The type of TABLE.COLUMN%TYPE is
// asked to the server; the caller must track the returned value once it is
// stored in its declaration.
func (c *Converter) typeSpec(n *pt.Node) ast.Pending[*types.Type] {
	if n.Kind == pt.KTypeOf {
		return c.typeOf(n)
	}
	switch n.Text {
	case "NUMERIC":
		precision, scale := types.DefaultPrecision, types.DefaultScale
		if arg := n.Child(0); arg != nil {
			precision = typeArg(arg, 1, types.MaxPrecision, "precision must be one of the integers 1 to 38")
		}
		if arg := n.Child(1); arg != nil {
			scale = typeArg(arg, 0, precision, "scale must be one of the integers zero to the precision")
		}
		return ast.Known(types.Numeric(precision, scale))
	case "CHAR":
		length := 1
		if arg := n.Child(0); arg != nil {
			length = typeArg(arg, 1, types.MaxCharLen, "length must be one of the integers 1 to %d", types.MaxCharLen)
		}
		return ast.Known(types.Char(length))
	case "VARCHAR":
		length := types.MaxVarcharLen
		if arg := n.Child(0); arg != nil {
			length = typeArg(arg, 1, types.MaxVarcharLen, "length must be one of the integers 1 to %d", types.MaxVarcharLen)
		}
		return ast.Known(types.Varchar(length))
	}
	t, ok := types.ByName(n.Text)
	if !ok {
		panic(diag.Internalf("unknown type name %s", n.Text))
	}
	return ast.Known(t)
}

func typeArg(n *pt.Node, lo, hi int, format string, a ...any) int {
	v, err := strconv.Atoi(n.Text)
	if err != nil || v < lo || v > hi {
		throwf(n, format, a...)
	}
	return v
}

// typeOf converts NAME%TYPE and TABLE.COLUMN%TYPE.
func (c *Converter) typeOf(n *pt.Node) ast.Pending[*types.Type] {
	if i := strings.LastIndexByte(n.Text, '.'); i >= 0 {
		c.connectionRequired = true
		table := strings.ReplaceAll(n.Text[:i], " ", "")
		q := c.ask(oracle.Question{Kind: oracle.AskColumnType, Table: table, Column: n.Text[i+1:]}, pos(n), nil)
		return ast.Deferred[*types.Type](q)
	}

	id := c.nonFuncIdent(n, n.Text, true)
	switch d := id.Decl.(type) {
	case *ast.DeclParam:
		return d.Type
	case *ast.DeclVar:
		return d.Type
	case *ast.DeclConst:
		return d.Type
	}
	throwf(n, "%s may not use %%TYPE because it is neither a parameter of a procedure/function, variable, nor constant", n.Text)
	return ast.Pending[*types.Type]{}
}
