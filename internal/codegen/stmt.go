// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package codegen

import (
	"fmt"
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
)

// body writes the statements of a routine or a block. With exception
// handlers, any error of the statements is first turned into a
// PlcsqlRuntimeError so that OTHERS catches it.
func (g *generator) body(b *ast.Body) {
	if len(b.Handlers) == 0 {
		g.stmts(b.Stmts)
		return
	}
	w := g.w
	w.openf("try {")
	w.openf("try {")
	g.stmts(b.Stmts)
	w.closef("} catch (PlcsqlRuntimeError e) {")
	w.indent++
	w.linef("throw e;")
	w.closef("} catch (OutOfMemoryError e) {")
	w.indent++
	w.linef("Server.log(e);")
	w.linef("throw new STORAGE_ERROR().initCause(e);")
	w.closef("} catch (Throwable e) {")
	w.indent++
	w.linef("Server.log(e);")
	w.linef("throw new PROGRAM_ERROR().initCause(e);")
	w.closef("}")
	for _, h := range b.Handlers {
		g.handlerDepth++
		w.closef("} catch (%s e%d) {", g.handledExceptions(h), g.handlerDepth)
		w.indent++
		g.stmts(h.Stmts)
		g.handlerDepth--
	}
	w.closef("}")
}

func (g *generator) handledExceptions(h *ast.ExHandler) string {
	if len(h.Exceptions) == 0 {
		return "PlcsqlRuntimeError"
	}
	names := make([]string, len(h.Exceptions))
	for i, ex := range h.Exceptions {
		names[i] = g.exceptionClass(ex)
	}
	return strings.Join(names, " | ")
}

func (g *generator) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		g.stmt(s)
	}
}

func (g *generator) stmt(s ast.Stmt) {
	w := g.w
	switch s := s.(type) {
	case *ast.StmtBlock:
		w.openf("{ // block")
		g.declClass(s.Inner, s.Decls)
		g.body(s.Body)
		w.closef("}")
	case *ast.StmtAssign:
		val := g.expr(s.Val)
		if v, ok := s.Target.Decl.(*ast.DeclVar); ok && v.NotNull {
			val = fmt.Sprintf("checkNotNull(%s, %s)", val, javaString("NOT NULL constraint violated"))
		}
		w.linef("%s = %s;", g.id(s.Target), val)
	case *ast.StmtIf:
		g.condStmts(s.Branches, s.Else, false)
	case *ast.StmtCond:
		g.condStmts(s.Branches, s.Else, true)
	case *ast.StmtCase:
		g.caseStmt(s)
	case *ast.StmtBasicLoop:
		g.loopLabel(s.Label)
		w.openf("while (opNot(Boolean.FALSE)) {")
		g.stmts(s.Stmts)
		w.closef("}")
	case *ast.StmtWhileLoop:
		g.loopLabel(s.Label)
		w.openf("while (Boolean.TRUE.equals(%s)) {", g.expr(s.Cond))
		g.stmts(s.Stmts)
		w.closef("}")
	case *ast.StmtForIterLoop:
		g.forIter(s)
	case *ast.StmtForCursorLoop:
		g.forCursor(s)
	case *ast.StmtForStaticSQLLoop:
		g.forSQL(s.Label, s.Record, javaString(s.SQL.Rewritten), s.SQL.HostExprs, s.Stmts)
	case *ast.StmtForDynamicSQLLoop:
		g.forSQL(s.Label, s.Record, g.expr(s.SQL), s.Using, s.Stmts)
	case *ast.StmtExit:
		g.jump("break", s.Label)
	case *ast.StmtContinue:
		g.jump("continue", s.Label)
	case *ast.StmtNull:
		w.linef(";")
	case *ast.StmtRaise:
		if s.Exception == nil {
			w.linef("throw e%d;", g.handlerDepth)
		} else {
			w.linef("throw %s;", g.newException(s.Exception))
		}
	case *ast.StmtRaiseAppErr:
		w.linef("throw new $APP_ERROR(%s, %s);", g.expr(s.Code), g.expr(s.Msg))
	case *ast.StmtReturn:
		if s.Val == nil {
			w.linef("return;")
		} else {
			w.linef("return %s;", g.expr(s.Val))
		}
	case *ast.StmtStaticSQL:
		cols := make([]*types.Type, len(s.SQL.Columns))
		for i, c := range s.SQL.Columns {
			cols[i] = c.Type
		}
		g.sqlStmt("static", javaString(s.SQL.Rewritten), s.SQL.HostExprs, s.SQL.Into, cols, s.Coercions)
	case *ast.StmtExecImme:
		g.sqlStmt("dynamic", g.expr(s.SQL), s.Using, s.Into, nil, s.Coercions)
	case *ast.StmtOpen:
		w.openf("{ // open cursor %s", s.Cursor.Name)
		g.openCursor(s.Cursor, s.Args)
		w.closef("}")
	case *ast.StmtOpenFor:
		cursor := g.id(s.ID)
		vals := append([]string{"conn"}, g.exprs(s.SQL.HostExprs)...)
		w.openf("{ // open-for statement")
		w.linef("%s = new Query(%s);", cursor, javaString(s.SQL.Rewritten))
		w.linef("%s.open(%s);", cursor, strings.Join(vals, ", "))
		w.closef("}")
	case *ast.StmtFetch:
		g.fetch(s)
	case *ast.StmtClose:
		cursor := g.id(s.Cursor)
		if ast.TypeOf(s.Cursor.Decl) == types.SysRefcursor {
			w.openf("if (%s == null) {", cursor)
			w.linef("throw new INVALID_CURSOR(%s);", javaString("attempted to close an unopened cursor"))
			w.closef("}")
		}
		w.linef("%s.close();", cursor)
	case *ast.StmtCommit:
		g.transaction("commit")
	case *ast.StmtRollback:
		g.transaction("rollback")
	case *ast.StmtLocalProcCall:
		w.linef("%s;", g.localCall(s.Decl, s.Args, ""))
	case *ast.StmtGlobalProcCall:
		d := s.Decl.Get()
		w.linef("%s;", g.globalCall(s.Name, d.Params, s.Args, ""))
	default:
		panic(diag.Internalf("unexpected statement %T", s))
	}
}

// condStmts writes IF and searched CASE statements. A searched CASE without
// an ELSE part raises CASE_NOT_FOUND when no condition holds.
func (g *generator) condStmts(branches []*ast.CondStmt, els []ast.Stmt, isCase bool) {
	w := g.w
	for i, b := range branches {
		format := "} else if (Boolean.TRUE.equals(%s)) {"
		if i == 0 {
			format = "if (Boolean.TRUE.equals(%s)) {"
		} else {
			w.indent--
		}
		w.openf(format, g.expr(b.Cond))
		g.stmts(b.Stmts)
	}
	g.elsePart(els, isCase)
}

// elsePart closes an if chain opened by condStmts or caseStmt.
func (g *generator) elsePart(els []ast.Stmt, caseNotFound bool) {
	w := g.w
	switch {
	case els != nil:
		w.closef("} else {")
		w.indent++
		g.stmts(els)
	case caseNotFound:
		w.closef("} else {")
		w.indent++
		w.linef("throw new CASE_NOT_FOUND();")
	}
	w.closef("}")
}

// caseStmt compares the selector, evaluated once, with the value of each
// branch in turn.
func (g *generator) caseStmt(s *ast.StmtCase) {
	w := g.w
	selector := fmt.Sprintf("selector_%d", g.next())
	w.openf("{ // case statement")
	w.linef("%s %s = %s;", g.typeName(s.SelectorType), selector, g.expr(s.Selector))
	for i, when := range s.Whens {
		format := "} else if (Boolean.TRUE.equals(opEq%s(%s, %s))) {"
		if i == 0 {
			format = "if (Boolean.TRUE.equals(opEq%s(%s, %s))) {"
		} else {
			w.indent--
		}
		w.openf(format, s.Ext, selector, g.expr(when.Val))
		g.stmts(when.Stmts)
	}
	g.elsePart(s.Else, true)
	w.closef("}")
}

func (g *generator) loopLabel(l *ast.DeclLabel) {
	if l != nil {
		g.w.linef("%s:", g.label(l))
	}
}

func (g *generator) jump(keyword string, l *ast.DeclLabel) {
	if l == nil {
		g.w.linef("%s;", keyword)
	} else {
		g.w.linef("%s %s;", keyword, g.label(l))
	}
}

func (g *generator) forIter(s *ast.StmtForIterLoop) {
	w := g.w
	n := g.next()
	lower, upper, step := fmt.Sprintf("l%d", n), fmt.Sprintf("u%d", n), fmt.Sprintf("s%d", n)
	stepVal := "1"
	if s.Step != nil {
		stepVal = g.expr(s.Step)
	}
	iter := g.iterVar(s.Iter)

	w.openf("{ // for loop with an integer iterator")
	w.linef("int %s = checkNotNull(%s, %s);", lower, g.expr(s.Lower), javaString("lower bound of the FOR loop was evaluated to NULL"))
	w.linef("int %s = checkNotNull(%s, %s);", upper, g.expr(s.Upper), javaString("upper bound of the FOR loop was evaluated to NULL"))
	w.linef("int %s = checkForLoopIterStep(%s);", step, stepVal)
	w.linef("int[] %s = new int[1];", iter)
	g.loopLabel(s.Label)
	if s.Reverse {
		w.openf("for (%s[0] = %s; %s[0] >= %s; %s[0] -= %s) {", iter, upper, iter, lower, iter, step)
	} else {
		w.openf("for (%s[0] = %s; %s[0] <= %s; %s[0] += %s) {", iter, lower, iter, upper, iter, step)
	}
	g.stmts(s.Stmts)
	w.closef("}")
	w.closef("}")
}

// openCursor binds the parameters of a cursor to its arguments and opens it.
func (g *generator) openCursor(cursor *ast.ExprID, args []ast.Expr) {
	d, ok := cursor.Decl.(*ast.DeclCursor)
	if !ok {
		panic(diag.Internalf("%s is not a cursor", cursor.Name))
	}
	n := g.next()
	for i, p := range d.Params {
		name := fmt.Sprintf("%s_p%d", p.Name(), n)
		g.w.linef("final %s %s = %s;", g.typeName(p.Type.Get()), name, g.expr(args[i]))
		g.cursorParams[p] = name
	}
	vals := append([]string{"conn"}, g.exprs(d.SQL.HostExprs)...)
	g.w.linef("%s.open(%s);", g.id(cursor), strings.Join(vals, ", "))
	for _, p := range d.Params {
		g.cursorParams[p] = ""
	}
}

func (g *generator) forCursor(s *ast.StmtForCursorLoop) {
	w := g.w
	cursor := g.id(s.Cursor)
	rec := g.recordVar(s.Record)

	w.openf("try { // for loop with cursor %s", s.Cursor.Name)
	g.openCursor(s.Cursor, s.Args)
	w.linef("ResultSet %s = %s.rs;", rec, cursor)
	g.loopLabel(s.Label)
	w.openf("while (%s.next()) {", rec)
	w.linef("%s.updateRowCount();", cursor)
	g.stmts(s.Stmts)
	w.closef("}")
	w.linef("%s.close();", cursor)
	sqlErrorCatch(w)
}

// forSQL writes a FOR loop over the rows of a query. sql is the Java
// expression of the SQL text.
func (g *generator) forSQL(label *ast.DeclLabel, record *ast.DeclForRecord, sql string, hostExprs []ast.Expr, stmts []ast.Stmt) {
	w := g.w
	stmt := fmt.Sprintf("stmt_%d", g.next())
	rec := g.recordVar(record)

	w.openf("{ // for loop with a query")
	w.linef("PreparedStatement %s = null;", stmt)
	w.openf("try {")
	w.linef("%s = conn.prepareStatement(checkNotNull(%s, %s));", stmt, sql, javaString("SQL part was evaluated to NULL"))
	for i, h := range g.exprs(hostExprs) {
		w.linef("%s.setObject(%d, %s);", stmt, i+1, h)
	}
	w.linef("ResultSet %s = %s.executeQuery();", rec, stmt)
	g.loopLabel(label)
	w.openf("while (%s.next()) {", rec)
	g.stmts(stmts)
	w.closef("}")
	closeStmt(w, stmt)
	w.closef("}")
}

// closeStmt closes a try block executing a prepared statement.
func closeStmt(w *writer, stmt string) {
	w.closef("} catch (SQLException e) {")
	w.indent++
	w.linef("Server.log(e);")
	w.linef("throw new SQL_ERROR(e.getMessage());")
	w.closef("} finally {")
	w.indent++
	w.openf("if (%s != null) {", stmt)
	w.linef("%s.close();", stmt)
	w.closef("}")
	w.closef("}")
}

// sqlStmt writes a static SQL statement or an EXECUTE IMMEDIATE. cols are
// the types of the selected columns, or nil when they are only known at run
// time. A query with into-variables must produce exactly one row.
func (g *generator) sqlStmt(kind, sql string, using []ast.Expr, into []*ast.ExprID, cols []*types.Type, cos []*coercion.Coercion) {
	w := g.w
	n := g.next()
	stmt := fmt.Sprintf("stmt_%d", n)

	w.openf("{ // %s SQL statement", kind)
	w.linef("PreparedStatement %s = null;", stmt)
	w.openf("try {")
	w.linef("%s = conn.prepareStatement(checkNotNull(%s, %s));", stmt, sql, javaString("SQL part was evaluated to NULL"))
	for i, u := range g.exprs(using) {
		w.linef("%s.setObject(%d, %s);", stmt, i+1, u)
	}
	w.openf("if (%s.execute()) {", stmt)
	w.linef("sql_rowcount[0] = 0L;")
	if len(into) > 0 {
		g.intoVars(n, stmt, into, cols, cos)
	}
	w.closef("} else {")
	w.indent++
	w.linef("sql_rowcount[0] = (long) %s.getUpdateCount();", stmt)
	w.closef("}")
	closeStmt(w, stmt)
	w.closef("}")
}

func (g *generator) intoVars(n int, stmt string, into []*ast.ExprID, cols []*types.Type, cos []*coercion.Coercion) {
	w := g.w
	r, count := fmt.Sprintf("r%d", n), fmt.Sprintf("i%d", n)
	w.linef("ResultSet %s = %s.getResultSet();", r, stmt)
	w.openf("if (%s == null) {", r)
	w.linef("throw new SQL_ERROR(%s);", javaString("no result set"))
	w.closef("}")
	w.linef("int %s = 0;", count)
	w.openf("while (%s.next()) {", r)
	w.linef("%s++;", count)
	w.openf("if (%s > 1) {", count)
	w.linef("break;")
	w.closef("}")
	for i, id := range into {
		w.linef("%s = %s;", g.id(id), applyCoercion(cos[i], g.column(r, i, cols)))
	}
	w.closef("}")
	w.openf("if (%s == 0) {", count)
	w.linef("throw new NO_DATA_FOUND();")
	w.closef("}")
	w.linef("sql_rowcount[0] = 1L;")
	w.openf("if (%s > 1) {", count)
	w.linef("throw new TOO_MANY_ROWS();")
	w.closef("}")
}

// column returns the value of the i-th column of the current row of r.
func (g *generator) column(r string, i int, cols []*types.Type) string {
	if cols == nil {
		return fmt.Sprintf("%s.getObject(%d)", r, i+1)
	}
	return fmt.Sprintf("(%s) %s.getObject(%d)", g.typeName(cols[i]), r, i+1)
}

// fetch reads the next row of a cursor into variables. The variables are
// left untouched when there is none.
func (g *generator) fetch(s *ast.StmtFetch) {
	w := g.w
	n := g.next()
	q, r := fmt.Sprintf("q%d", n), fmt.Sprintf("r%d", n)
	var cols []*types.Type
	if d, ok := s.Cursor.Decl.(*ast.DeclCursor); ok {
		for _, c := range d.SQL.Columns {
			cols = append(cols, c.Type)
		}
	}

	w.openf("try { // fetch from %s", s.Cursor.Name)
	w.linef("Query %s = %s;", q, g.id(s.Cursor))
	w.openf("if (%s == null || !%s.isOpen()) {", q, q)
	w.linef("throw new INVALID_CURSOR(%s);", javaString("attempted to fetch from an unopened cursor"))
	w.closef("}")
	w.linef("ResultSet %s = %s.rs;", r, q)
	w.openf("if (%s.next()) {", r)
	w.linef("%s.updateRowCount();", q)
	for i, id := range s.Into {
		w.linef("%s = %s;", g.id(id), applyCoercion(s.Coercions[i], g.column(r, i, cols)))
	}
	w.closef("}")
	sqlErrorCatch(w)
}

func (g *generator) transaction(method string) {
	w := g.w
	w.openf("try {")
	w.linef("conn.%s();", method)
	w.linef("sql_rowcount[0] = 0L;")
	sqlErrorCatch(w)
}
