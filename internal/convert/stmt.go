// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package convert

import (
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	pt "github.com/canonical/plcsql/internal/parsetree"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

// body converts the statements and exception handlers of a routine or
// block. Control flow is blocked at the end of the body if it is blocked at
// the end of the statements and of every handler.
func (c *Converter) body(n *pt.Node) *ast.Body {
	b := &ast.Body{Positioned: ast.Positioned{Position: pos(n)}}
	b.Stmts = c.stmts(n.Child(0))
	blocked := c.controlFlowBlocked

	if handlers := n.Child(1); handlers != nil {
		for _, h := range handlers.Children {
			b.Handlers = append(b.Handlers, c.handler(h))
			blocked = blocked && c.controlFlowBlocked
		}
	}
	c.controlFlowBlocked = blocked
	return b
}

func (c *Converter) handler(n *pt.Node) *ast.ExHandler {
	h := &ast.ExHandler{Positioned: ast.Positioned{Position: pos(n)}}
	names := n.Child(0).Children
	for _, name := range names {
		if name.Text == "OTHERS" {
			if len(names) > 1 {
				throwf(name, "OTHERS may not be combined with another exception using OR")
			}
			continue
		}
		e := c.stack.DeclException(pos(name), name.Text)
		if e == nil {
			throwf(name, "undeclared exception %s", name.Text)
		}
		h.Exceptions = append(h.Exceptions, e)
	}
	c.handlerDepth++
	h.Stmts = c.stmts(n.Child(1))
	c.handlerDepth--
	return h
}

// stmts converts a statement list. A statement following one that blocks
// the control flow can never run.
func (c *Converter) stmts(n *pt.Node) []ast.Stmt {
	c.controlFlowBlocked = false
	var stmts []ast.Stmt
	for _, s := range n.Children {
		if c.controlFlowBlocked {
			throwf(s, "unreachable statement")
		}
		stmts = append(stmts, c.stmt(s))
	}
	return stmts
}

func (c *Converter) stmt(n *pt.Node) ast.Stmt {
	at := ast.StmtAt(pos(n))
	switch n.Kind {
	case pt.KBlock:
		return c.block(n)
	case pt.KAssign:
		target := c.nonFuncIdent(n.Child(0), n.Child(0).Text, true)
		if !ast.IsAssignable(target.Decl) {
			throwf(n.Child(0), "%s is not assignable to", target.Name)
		}
		return &ast.StmtAssign{StmtBase: at, Target: target, Val: c.expr(n.Child(1))}
	case pt.KIf:
		return c.ifStmt(n)
	case pt.KCaseStmt:
		return c.caseStmt(n)
	case pt.KLoop:
		s := &ast.StmtBasicLoop{StmtBase: at}
		c.stack.Push("loop", ast.NoRoutine)
		s.Label = c.loopLabel(n)
		s.Stmts = c.loopBody(n.Child(0))
		c.stack.Pop()
		return s
	case pt.KWhile:
		s := &ast.StmtWhileLoop{StmtBase: at}
		c.stack.Push("while", ast.NoRoutine)
		s.Label = c.loopLabel(n)
		s.Cond = c.expr(n.Child(0))
		s.Stmts = c.loopBody(n.Child(1))
		c.stack.Pop()
		return s
	case pt.KForIter:
		return c.forIter(n)
	case pt.KForCursor:
		return c.forCursor(n)
	case pt.KForStaticSQL:
		return c.forStaticSQL(n)
	case pt.KForDynamicSQL:
		s := &ast.StmtForDynamicSQLLoop{StmtBase: at}
		c.connectionRequired = true
		c.stack.Push("for_d_sql_loop", ast.NoRoutine)
		s.SQL = c.expr(n.Child(1))
		s.Using = c.args(n.Child(2))
		s.Record = c.forRecord(n.Child(0), nil)
		s.Label = c.loopLabel(n)
		s.Stmts = c.loopBody(n.Child(3))
		c.stack.Pop()
		return s
	case pt.KExit, pt.KContinue:
		return c.exitOrContinue(n)
	case pt.KNull:
		return &ast.StmtNull{StmtBase: at}
	case pt.KRaise:
		return c.raise(n)
	case pt.KRaiseAppErr:
		s := &ast.StmtRaiseAppErr{StmtBase: at, Code: c.expr(n.Child(0)), Msg: c.expr(n.Child(1))}
		c.controlFlowBlocked = true
		return s
	case pt.KReturn:
		return c.returnStmt(n)
	case pt.KStaticSQL:
		return c.staticSQLStmt(n)
	case pt.KOpen:
		return c.open(n)
	case pt.KOpenFor:
		return c.openFor(n)
	case pt.KFetch:
		return c.fetch(n)
	case pt.KClose:
		c.connectionRequired = true
		cursor := c.nonFuncIdent(n.Child(0), n.Child(0).Text, true)
		if !isCursorOrRefcursor(cursor.Decl) {
			throwf(n.Child(0), "%s may not be closed because it is neither a cursor nor a cursor reference", cursor.Name)
		}
		return &ast.StmtClose{StmtBase: at, Cursor: cursor}
	case pt.KCommit:
		c.connectionRequired = true
		return &ast.StmtCommit{StmtBase: at}
	case pt.KRollback:
		c.connectionRequired = true
		return &ast.StmtRollback{StmtBase: at}
	case pt.KExecImme:
		return c.execImme(n)
	case pt.KCallStmt:
		return c.procCall(n)
	}
	panic(diag.Internalf("unexpected statement %s", n.Kind))
}

func (c *Converter) block(n *pt.Node) ast.Stmt {
	s := &ast.StmtBlock{StmtBase: ast.StmtAt(pos(n))}
	s.Inner = c.stack.Push("block", ast.NoRoutine)
	if n.Text != "" {
		s.Label = &ast.DeclLabel{DeclBase: ast.Named(pos(n), n.Text)}
		c.stack.PutDeclLabel(n.Text, s.Label)
	}
	s.Decls = c.declList(n.Child(0))
	s.Body = c.body(n.Child(1))
	c.stack.Pop()
	return s
}

func (c *Converter) ifStmt(n *pt.Node) ast.Stmt {
	s := &ast.StmtIf{StmtBase: ast.StmtAt(pos(n))}
	allBlocked, hasElse := true, false
	for _, b := range n.Children {
		if b.Kind == pt.KElse {
			s.Else = c.stmts(b.Child(0))
			hasElse = true
		} else {
			s.Branches = append(s.Branches, c.condStmt(b))
		}
		allBlocked = allBlocked && c.controlFlowBlocked
	}
	c.controlFlowBlocked = allBlocked && hasElse
	return s
}

func (c *Converter) condStmt(n *pt.Node) *ast.CondStmt {
	return &ast.CondStmt{
		Positioned: ast.Positioned{Position: pos(n)},
		Cond:       c.expr(n.Child(0)),
		Stmts:      c.stmts(n.Child(1)),
	}
}

// caseStmt converts a simple CASE statement into StmtCase and a searched one
// into StmtCond.
func (c *Converter) caseStmt(n *pt.Node) ast.Stmt {
	at := ast.StmtAt(pos(n))
	allBlocked := true

	if n.Child(0) == nil {
		s := &ast.StmtCond{StmtBase: at}
		for _, w := range n.Children[1:] {
			if w.Kind == pt.KElse {
				s.Else = c.stmts(w.Child(0))
			} else {
				s.Branches = append(s.Branches, c.condStmt(w))
			}
			allBlocked = allBlocked && c.controlFlowBlocked
		}
		// Without ELSE, CASE_NOT_FOUND is raised when no branch matches.
		c.controlFlowBlocked = allBlocked
		return s
	}

	s := &ast.StmtCase{StmtBase: at}
	c.stack.Push("case_stmt", ast.NoRoutine)
	s.Selector = c.expr(n.Child(0))
	for _, w := range n.Children[1:] {
		if w.Kind == pt.KElse {
			s.Else = c.stmts(w.Child(0))
		} else {
			s.Whens = append(s.Whens, &ast.CaseStmtWhen{
				Positioned: ast.Positioned{Position: pos(w)},
				Val:        c.expr(w.Child(0)),
				Stmts:      c.stmts(w.Child(1)),
			})
		}
		allBlocked = allBlocked && c.controlFlowBlocked
	}
	c.stack.Pop()
	c.controlFlowBlocked = allBlocked
	return s
}

// loopLabel declares the label of the loop n in the current scope.
func (c *Converter) loopLabel(n *pt.Node) *ast.DeclLabel {
	if n.Text == "" {
		return nil
	}
	l := &ast.DeclLabel{DeclBase: ast.Named(pos(n), n.Text), Loop: true}
	c.stack.PutDeclLabel(n.Text, l)
	return l
}

// loopBody converts the statements of a loop. The statement after a loop is
// always reachable: the loop may be left with EXIT.
func (c *Converter) loopBody(n *pt.Node) []ast.Stmt {
	c.loopDepth++
	stmts := c.stmts(n)
	c.loopDepth--
	c.controlFlowBlocked = false
	return stmts
}

func (c *Converter) forIter(n *pt.Node) ast.Stmt {
	s := &ast.StmtForIterLoop{StmtBase: ast.StmtAt(pos(n)), Reverse: n.Has(pt.FlagReverse)}
	c.stack.Push("for_iter", ast.NoRoutine)
	// The bounds are evaluated outside of the scope of the iterator.
	s.Lower = c.expr(n.Child(1))
	s.Upper = c.expr(n.Child(2))
	if step := n.Child(3); step != nil {
		s.Step = c.expr(step)
	}
	iter := n.Child(0)
	s.Iter = &ast.DeclForIter{DeclBase: ast.Named(pos(iter), iter.Text)}
	c.stack.PutDecl(iter.Text, s.Iter)
	s.Label = c.loopLabel(n)
	s.Stmts = c.loopBody(n.Child(4))
	c.stack.Pop()
	return s
}

func (c *Converter) forCursor(n *pt.Node) ast.Stmt {
	c.connectionRequired = true
	s := &ast.StmtForCursorLoop{StmtBase: ast.StmtAt(pos(n))}
	c.stack.Push("for_cursor_loop", ast.NoRoutine)

	cursorNode := n.Child(1)
	s.Cursor = c.nonFuncIdent(cursorNode, cursorNode.Text, true)
	cursor, ok := s.Cursor.Decl.(*ast.DeclCursor)
	if !ok {
		throwf(cursorNode, "%s is not a cursor", cursorNode.Text)
	}
	s.Args = c.args(n.Child(2))
	if len(s.Args) != len(cursor.Params) {
		throwf(cursorNode, "the number of arguments to cursor %s does not match the number of its declared formal parameters", cursorNode.Text)
	}
	s.Record = c.forRecord(n.Child(0), cursor.SQL)
	s.Label = c.loopLabel(n)
	s.Stmts = c.loopBody(n.Child(3))
	c.stack.Pop()
	return s
}

func (c *Converter) forStaticSQL(n *pt.Node) ast.Stmt {
	c.connectionRequired = true
	s := &ast.StmtForStaticSQLLoop{StmtBase: ast.StmtAt(pos(n))}
	c.stack.Push("for_s_sql_loop", ast.NoRoutine)

	sqlNode := n.Child(1)
	sql, sem := c.staticSQL(sqlNode)
	if sem.Kind != oracle.StmtSelect {
		throwf(sqlNode, "Static SQLs in FOR loop iterators must be SELECT statements")
	}
	if sem.IntoVars != nil {
		throwf(sqlNode, "SELECT in a FOR loop may not have an into-clause")
	}
	s.SQL = sql
	s.Record = c.forRecord(n.Child(0), sql)
	s.Label = c.loopLabel(n)
	s.Stmts = c.loopBody(n.Child(2))
	c.stack.Pop()
	return s
}

func (c *Converter) forRecord(n *pt.Node, sql *ast.StaticSQL) *ast.DeclForRecord {
	r := &ast.DeclForRecord{DeclBase: ast.Named(pos(n), n.Text), SQL: sql}
	c.stack.PutDecl(n.Text, r)
	return r
}

// exitOrContinue converts EXIT and CONTINUE. With a WHEN condition, they
// become an IF statement.
func (c *Converter) exitOrContinue(n *pt.Node) ast.Stmt {
	what := "exit"
	if n.Kind == pt.KContinue {
		what = "continue"
	}
	if c.loopDepth == 0 {
		throwf(n, "%s statements must be in a loop", what)
	}

	var label *ast.DeclLabel
	if n.Text != "" {
		label = c.stack.DeclLabel(n.Text)
		// Labels of other routines are out of reach.
		if label == nil || label.Scope().Level < c.routineLevel {
			throwf(n, "undeclared label %s", n.Text)
		}
		if !label.Loop {
			throwf(n, "label %s is not the label of a loop", n.Text)
		}
	}

	var s ast.Stmt
	if n.Kind == pt.KExit {
		s = &ast.StmtExit{StmtBase: ast.StmtAt(pos(n)), Label: label}
	} else {
		s = &ast.StmtContinue{StmtBase: ast.StmtAt(pos(n)), Label: label}
	}
	cond := n.Child(0)
	if cond == nil {
		c.controlFlowBlocked = true
		return s
	}
	return &ast.StmtIf{
		StmtBase: ast.StmtAt(pos(n)),
		Branches: []*ast.CondStmt{{
			Positioned: ast.Positioned{Position: pos(cond)},
			Cond:       c.expr(cond),
			Stmts:      []ast.Stmt{s},
		}},
	}
}

func (c *Converter) raise(n *pt.Node) ast.Stmt {
	s := &ast.StmtRaise{StmtBase: ast.StmtAt(pos(n))}
	if n.Text == "" {
		if c.handlerDepth == 0 {
			throwf(n, "raise statements without an exception name can only be in an exception handler")
		}
	} else {
		s.Exception = c.stack.DeclException(pos(n), n.Text)
		if s.Exception == nil {
			throwf(n, "undeclared exception %s", n.Text)
		}
	}
	c.controlFlowBlocked = true
	return s
}

func (c *Converter) returnStmt(n *pt.Node) ast.Stmt {
	scope := c.stack.Current()
	s := &ast.StmtReturn{StmtBase: ast.StmtAt(pos(n))}
	if val := n.Child(0); val == nil {
		if scope.RoutineKind != ast.Procedure {
			throwf(n, "function %s must return a value", scope.Routine)
		}
	} else {
		if scope.RoutineKind != ast.Function {
			throwf(n, "procedure %s may not return a value", scope.Routine)
		}
		s.Val = c.expr(val)
	}
	c.controlFlowBlocked = true
	return s
}

func (c *Converter) staticSQLStmt(n *pt.Node) ast.Stmt {
	c.connectionRequired = true
	sql, sem := c.staticSQL(n)
	if sem.Kind == oracle.StmtSelect {
		if sem.IntoVars == nil {
			throwf(n, "SELECT statement must have an into-clause")
		}
		for _, id := range sql.Into {
			if !ast.IsAssignable(id.Decl) {
				throwf(n, "variable %s in an into-clause must be assignable to", id.Name)
			}
		}
	}
	return &ast.StmtStaticSQL{StmtBase: ast.StmtAt(pos(n)), SQL: sql}
}

func (c *Converter) open(n *pt.Node) ast.Stmt {
	c.connectionRequired = true
	idNode := n.Child(0)
	id := c.nonFuncIdent(idNode, idNode.Text, true)
	cursor, ok := id.Decl.(*ast.DeclCursor)
	if !ok {
		throwf(idNode, "%s may not be opened because it is not a cursor", id.Name)
	}
	args := c.args(n.Child(1))
	if len(args) != len(cursor.Params) {
		throwf(idNode, "the number of arguments to cursor %s does not match the number of its declared formal parameters", id.Name)
	}
	return &ast.StmtOpen{StmtBase: ast.StmtAt(pos(n)), Cursor: id, Args: args}
}

func (c *Converter) openFor(n *pt.Node) ast.Stmt {
	c.connectionRequired = true
	idNode := n.Child(0)
	id := c.nonFuncIdent(idNode, idNode.Text, true)
	if !ast.IsAssignable(id.Decl) {
		throwf(idNode, "identifier in an OPEN-FOR statement must be assignable to")
	}
	if t, ok := knownType(id.Decl); !ok || t != types.SysRefcursor {
		throwf(idNode, "identifier in an OPEN-FOR statement must be of SYS_REFCURSOR type")
	}
	sqlNode := n.Child(1)
	sql, sem := c.staticSQL(sqlNode)
	if sem.Kind != oracle.StmtSelect {
		throwf(sqlNode, "SQL in an OPEN-FOR statement must be a SELECT statement")
	}
	if sem.IntoVars != nil {
		throwf(sqlNode, "SQL in an OPEN-FOR statement may not have an into-clause")
	}
	return &ast.StmtOpenFor{StmtBase: ast.StmtAt(pos(n)), ID: id, SQL: sql}
}

func (c *Converter) fetch(n *pt.Node) ast.Stmt {
	c.connectionRequired = true
	idNode := n.Child(0)
	id := c.nonFuncIdent(idNode, idNode.Text, true)
	if !isCursorOrRefcursor(id.Decl) {
		throwf(idNode, "%s may not be fetched because it is neither a cursor nor a cursor reference", id.Name)
	}
	var into []*ast.ExprID
	for _, v := range n.Child(1).Children {
		vid := c.nonFuncIdent(v, v.Text, true)
		if !ast.IsAssignable(vid.Decl) {
			throwf(v, "variables to store fetch results must be assignable to")
		}
		into = append(into, vid)
	}
	if cursor, ok := id.Decl.(*ast.DeclCursor); ok && len(cursor.SQL.Columns) != len(into) {
		throwf(n, "the number of columns of the cursor must be equal to the number of into-variables")
	}
	return &ast.StmtFetch{StmtBase: ast.StmtAt(pos(n)), Cursor: id, Into: into}
}

func (c *Converter) execImme(n *pt.Node) ast.Stmt {
	c.connectionRequired = true
	s := &ast.StmtExecImme{StmtBase: ast.StmtAt(pos(n)), SQL: c.expr(n.Child(0))}
	if into := n.Child(1); into != nil {
		for _, v := range into.Children {
			id := c.nonFuncIdent(v, v.Text, true)
			if !ast.IsAssignable(id.Decl) {
				throwf(v, "variable %s may not be used there in the INTO clause because it is not assignable to", id.Name)
			}
			s.Into = append(s.Into, id)
		}
	}
	s.Using = c.args(n.Child(2))
	return s
}

const dbmsOutput = "DBMS_OUTPUT."

// procCall converts a procedure call statement. DBMS_OUTPUT procedures are
// predefined under the name DBMS_OUTPUT$NAME.
func (c *Converter) procCall(n *pt.Node) ast.Stmt {
	name := n.Text
	if strings.HasPrefix(name, dbmsOutput) {
		name = "DBMS_OUTPUT$" + strings.TrimPrefix(name, dbmsOutput)
	}
	args := c.args(n.Child(0))
	at := ast.StmtAt(pos(n))

	decl := c.stack.DeclProc(pos(n), name)
	if decl == nil && name != n.Text {
		throwf(n, "undeclared procedure %s", n.Text)
	}
	if decl == nil {
		c.connectionRequired = true
		c.stack.Use(pos(n), name, nil)
		call := &ast.StmtGlobalProcCall{StmtBase: at, Name: name, Args: args}
		call.Decl = ast.Deferred[*ast.DeclProc](c.ask(oracle.Question{Kind: oracle.AskProcedure, Name: name}, pos(n), call))
		return call
	}
	c.stack.Use(pos(n), name, decl)

	shown := strings.TrimPrefix(name, "DBMS_OUTPUT$")
	if len(args) != len(decl.Params) {
		throwf(n, "the number of arguments to procedure %s does not match the number of its formal parameters", shown)
	}
	if i := c.checkOutArgs(args, decl.Params); i > 0 {
		diag.Throw(diag.Semanticf(args[i-1].Pos(),
			"argument %d to the procedure %s must be assignable to because it is to an OUT parameter", i, shown))
	}
	return &ast.StmtLocalProcCall{StmtBase: at, Name: name, Args: args, Decl: decl}
}

// checkOutArgs returns the 1-based index of the first argument passed to an
// OUT parameter that is not an assignable identifier, or 0.
func (c *Converter) checkOutArgs(args []ast.Expr, params []*ast.DeclParam) int {
	for i, p := range params {
		if !p.IsOut() {
			continue
		}
		id, ok := args[i].(*ast.ExprID)
		if !ok || !ast.IsAssignable(id.Decl) {
			return i + 1
		}
	}
	return 0
}
