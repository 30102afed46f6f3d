// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typecheck

import (
	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/symbols"
	"github.com/canonical/plcsql/internal/types"
)

func (c *checker) body(b *ast.Body) {
	c.stmts(b.Stmts)
	for _, h := range b.Handlers {
		c.stmts(h.Stmts)
	}
}

func (c *checker) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.stmt(s)
	}
}

func (c *checker) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.StmtBlock:
		c.decls(s.Decls)
		c.body(s.Body)
	case *ast.StmtAssign:
		c.assign(s)
	case *ast.StmtIf:
		c.condStmts(s.Branches, s.Else)
	case *ast.StmtCond:
		c.condStmts(s.Branches, s.Else)
	case *ast.StmtCase:
		c.caseStmt(s)
	case *ast.StmtBasicLoop:
		c.stmts(s.Stmts)
	case *ast.StmtWhileLoop:
		if !coerce(s.Cond, c.expr(s.Cond), types.Boolean) {
			throwf(s.Cond, "while loops' condition must be of BOOLEAN type")
		}
		c.stmts(s.Stmts)
	case *ast.StmtForIterLoop:
		if !coerce(s.Lower, c.expr(s.Lower), types.Int) {
			throwf(s.Lower, "lower bounds of FOR loops must have a type compatible with INT")
		}
		if !coerce(s.Upper, c.expr(s.Upper), types.Int) {
			throwf(s.Upper, "upper bounds of FOR loops must have a type compatible with INT")
		}
		if s.Step != nil && !coerce(s.Step, c.expr(s.Step), types.Int) {
			throwf(s.Step, "steps of FOR loops must have a type compatible with INT")
		}
		c.stmts(s.Stmts)
	case *ast.StmtForCursorLoop:
		c.cursorArgs(s.Cursor, s.Args)
		c.stmts(s.Stmts)
	case *ast.StmtForStaticSQLLoop:
		c.hostExprs(s.SQL)
		c.stmts(s.Stmts)
	case *ast.StmtForDynamicSQLLoop:
		if c.expr(s.SQL).Idx != types.IdxString {
			throwf(s.SQL, "SQL in EXECUTE IMMEDIATE statements must be of a string type")
		}
		c.usingExprs(s.Using)
		c.stmts(s.Stmts)
	case *ast.StmtExit, *ast.StmtContinue, *ast.StmtNull, *ast.StmtRaise,
		*ast.StmtClose, *ast.StmtCommit, *ast.StmtRollback:
	case *ast.StmtRaiseAppErr:
		if !coerce(s.Code, c.expr(s.Code), types.Int) {
			throwf(s.Code, "error codes must be an INT")
		}
		if !coerce(s.Msg, c.expr(s.Msg), types.StringAny) {
			throwf(s.Msg, "error messages must be a string")
		}
	case *ast.StmtReturn:
		c.returnStmt(s)
	case *ast.StmtStaticSQL:
		c.hostExprs(s.SQL)
		s.Coercions = c.intoCoercions(s.SQL.Pos(), s.SQL.Columns, s.SQL.Into)
	case *ast.StmtOpen:
		c.cursorArgs(s.Cursor, s.Args)
	case *ast.StmtOpenFor:
		c.hostExprs(s.SQL)
	case *ast.StmtFetch:
		c.fetch(s)
	case *ast.StmtExecImme:
		c.execImme(s)
	case *ast.StmtLocalProcCall:
		c.routineCall(s.Name, s.Decl.Params, s.Args)
	case *ast.StmtGlobalProcCall:
		c.routineCall(s.Name, s.Decl.Get().Params, s.Args)
	default:
		panic(diag.Internalf("unexpected statement %T", s))
	}
}

func (c *checker) assign(s *ast.StmtAssign) {
	target := s.Target.Decl
	valType := c.expr(s.Val)
	if v, ok := target.(*ast.DeclVar); ok && v.NotNull && valType == types.Null {
		throwf(s.Val, "NOT NULL constraint violation")
	}
	if !coerce(s.Val, valType, ast.TypeOf(target)) {
		throwf(s.Val, "type of the value is not compatible with the variable's type")
	}
}

func (c *checker) condStmts(branches []*ast.CondStmt, els []ast.Stmt) {
	for _, b := range branches {
		if !coerce(b.Cond, c.expr(b.Cond), types.Boolean) {
			throwf(b.Cond, "type of the condition must be boolean")
		}
		c.stmts(b.Stmts)
	}
	c.stmts(els)
}

// caseStmt checks a simple CASE statement. Like the expression form, the
// selector and the values are compared with the n-ary comparison of IN.
func (c *checker) caseStmt(s *ast.StmtCase) {
	exprs := []ast.Expr{s.Selector}
	compared := []*types.Type{c.expr(s.Selector)}
	for _, w := range s.Whens {
		exprs = append(exprs, w.Val)
		compared = append(compared, c.expr(w.Val))
	}
	o, cos := symbols.LookupOperator("opIn", compared...)
	if o == nil {
		throwf(s, "one of the values does not have a comparable type")
	}
	for i, e := range exprs {
		e.SetCoercion(cos[i])
	}
	if allChars(compared) {
		s.Ext = "Char"
	}
	s.SelectorType = o.Params[0]
	for _, w := range s.Whens {
		c.stmts(w.Stmts)
	}
	c.stmts(s.Else)
}

func (c *checker) cursorArgs(cursor *ast.ExprID, args []ast.Expr) {
	d := cursor.Decl.(*ast.DeclCursor)
	for i, a := range args {
		if !coerce(a, c.expr(a), d.Params[i].Type.Get()) {
			throwf(a, "argument %d to the cursor has an incompatible type", i+1)
		}
	}
}

// usingExprs checks the values bound to the parameters of a dynamic SQL.
func (c *checker) usingExprs(using []ast.Expr) {
	for _, e := range using {
		t := c.expr(e)
		if t == types.Boolean || t == types.Cursor || t == types.SysRefcursor {
			throwf(e, "expressions in a USING clause cannot be of either BOOLEAN, CURSOR or SYS_REFCURSOR type")
		}
	}
}

func (c *checker) returnStmt(s *ast.StmtReturn) {
	if s.Val == nil {
		return
	}
	if !coerce(s.Val, c.expr(s.Val), c.retType) {
		throwf(s.Val, "type of the return value is not compatible with the return type")
	}
	s.RetType = c.retType
}

// intoCoercions returns the coercions of the columns of a query to the
// types of the variables its rows are stored in.
func (c *checker) intoCoercions(pos diag.Pos, cols []ast.Column, into []*ast.ExprID) []*coercion.Coercion {
	if len(into) == 0 {
		return nil
	}
	cos := make([]*coercion.Coercion, len(into))
	for i, id := range into {
		co := coercion.Get(cols[i].Type, ast.TypeOf(id.Decl))
		if co == nil {
			diag.Throw(diag.Semanticf(pos, "into-variable %s cannot be used there due to its incompatible type", id.Name))
		}
		cos[i] = co
	}
	return cos
}

// fetch checks the into-variables of a FETCH. The columns of a
// SYS_REFCURSOR are only known at run time.
func (c *checker) fetch(s *ast.StmtFetch) {
	var cols []ast.Column
	if d, ok := s.Cursor.Decl.(*ast.DeclCursor); ok {
		cols = d.SQL.Columns
	}
	s.Coercions = make([]*coercion.Coercion, len(s.Into))
	for i, id := range s.Into {
		src := types.Object
		if cols != nil {
			src = cols[i].Type
		}
		co := coercion.Get(src, ast.TypeOf(id.Decl))
		if co == nil {
			throwf(id, "type of column %d of the cursor is not compatible with the type of variable %s", i+1, id.Name)
		}
		s.Coercions[i] = co
	}
}

func (c *checker) execImme(s *ast.StmtExecImme) {
	if c.expr(s.SQL).Idx != types.IdxString {
		throwf(s.SQL, "SQL in the EXECUTE IMMEDIATE statement must be of a string type")
	}
	c.usingExprs(s.Using)
	if len(s.Into) == 0 {
		return
	}
	s.Coercions = make([]*coercion.Coercion, len(s.Into))
	for i, id := range s.Into {
		t := ast.TypeOf(id.Decl)
		co := coercion.Get(types.Object, t)
		if co == nil {
			throwf(id, "into-variable %s has an incompatible type %s", id.Name, t)
		}
		s.Coercions[i] = co
	}
}
