// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import (
	"fmt"
)

// Walk calls visit for n and for the declarations, expressions and
// statements it owns, in document order. The children of a node are skipped
// when visit returns false for it. Declarations that are only referred to,
// such as the declaration of a called routine, are not visited.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch n := n.(type) {
	// Declarations.
	case *DeclProc:
		walkRoutine(&n.RoutineBase, visit)
	case *DeclFunc:
		walkRoutine(&n.RoutineBase, visit)
	case *DeclVar:
		walkExpr(n.Init, visit)
	case *DeclConst:
		walkExpr(n.Val, visit)
	case *DeclCursor:
		for _, p := range n.Params {
			Walk(p, visit)
		}
		walkSQL(n.SQL, visit)
	case *DeclParam, *DeclForIter, *DeclForRecord, *DeclException, *DeclLabel:

	// Expressions.
	case *ExprField:
		Walk(n.Record, visit)
	case *ExprUnaryOp:
		Walk(n.Operand, visit)
	case *ExprBinaryOp:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case *ExprBetween:
		Walk(n.Target, visit)
		Walk(n.Lower, visit)
		Walk(n.Upper, visit)
	case *ExprIn:
		Walk(n.Target, visit)
		walkExprs(n.Values, visit)
	case *ExprLike:
		Walk(n.Target, visit)
		Walk(n.Pattern, visit)
		if n.Escape != nil {
			Walk(n.Escape, visit)
		}
	case *ExprCase:
		Walk(n.Selector, visit)
		for _, w := range n.Whens {
			Walk(w.Val, visit)
			Walk(w.Result, visit)
		}
		walkExpr(n.Else, visit)
	case *ExprCond:
		for _, w := range n.Whens {
			Walk(w.Cond, visit)
			Walk(w.Result, visit)
		}
		walkExpr(n.Else, visit)
	case *ExprLocalFuncCall:
		walkExprs(n.Args, visit)
	case *ExprBuiltinFuncCall:
		walkExprs(n.Args, visit)
	case *ExprGlobalFuncCall:
		walkExprs(n.Args, visit)
	case *ExprCursorAttr:
		Walk(n.ID, visit)
	case *ExprNull, *ExprBool, *ExprNum, *ExprStr, *ExprDateTime, *ExprID, *ExprSerialVal,
		*ExprSQLRowCount, *ExprSQLCode, *ExprSQLErrm:

	// Statements.
	case *StmtBlock:
		walkDecls(n.Decls, visit)
		walkBody(n.Body, visit)
	case *StmtAssign:
		Walk(n.Target, visit)
		Walk(n.Val, visit)
	case *StmtIf:
		walkBranches(n.Branches, visit)
		walkStmts(n.Else, visit)
	case *StmtCase:
		Walk(n.Selector, visit)
		for _, w := range n.Whens {
			Walk(w.Val, visit)
			walkStmts(w.Stmts, visit)
		}
		walkStmts(n.Else, visit)
	case *StmtCond:
		walkBranches(n.Branches, visit)
		walkStmts(n.Else, visit)
	case *StmtBasicLoop:
		walkStmts(n.Stmts, visit)
	case *StmtWhileLoop:
		Walk(n.Cond, visit)
		walkStmts(n.Stmts, visit)
	case *StmtForIterLoop:
		Walk(n.Lower, visit)
		Walk(n.Upper, visit)
		walkExpr(n.Step, visit)
		walkStmts(n.Stmts, visit)
	case *StmtForCursorLoop:
		Walk(n.Cursor, visit)
		walkExprs(n.Args, visit)
		walkStmts(n.Stmts, visit)
	case *StmtForStaticSQLLoop:
		walkSQL(n.SQL, visit)
		walkStmts(n.Stmts, visit)
	case *StmtForDynamicSQLLoop:
		Walk(n.SQL, visit)
		walkExprs(n.Using, visit)
		walkStmts(n.Stmts, visit)
	case *StmtRaiseAppErr:
		Walk(n.Code, visit)
		Walk(n.Msg, visit)
	case *StmtReturn:
		walkExpr(n.Val, visit)
	case *StmtStaticSQL:
		walkSQL(n.SQL, visit)
	case *StmtOpen:
		Walk(n.Cursor, visit)
		walkExprs(n.Args, visit)
	case *StmtOpenFor:
		Walk(n.ID, visit)
		walkSQL(n.SQL, visit)
	case *StmtFetch:
		Walk(n.Cursor, visit)
		for _, id := range n.Into {
			Walk(id, visit)
		}
	case *StmtClose:
		Walk(n.Cursor, visit)
	case *StmtExecImme:
		Walk(n.SQL, visit)
		for _, id := range n.Into {
			Walk(id, visit)
		}
		walkExprs(n.Using, visit)
	case *StmtLocalProcCall:
		walkExprs(n.Args, visit)
	case *StmtGlobalProcCall:
		walkExprs(n.Args, visit)
	case *StmtExit, *StmtContinue, *StmtNull, *StmtRaise, *StmtCommit, *StmtRollback:

	default:
		panic(fmt.Sprintf("internal error: unknown node type %T", n))
	}
}

// walkExpr walks an optional expression. A nil Expr must not reach Walk as a
// typed nil.
func walkExpr(e Expr, visit func(Node) bool) {
	if e != nil {
		Walk(e, visit)
	}
}

func walkExprs(es []Expr, visit func(Node) bool) {
	for _, e := range es {
		Walk(e, visit)
	}
}

func walkStmts(ss []Stmt, visit func(Node) bool) {
	for _, s := range ss {
		Walk(s, visit)
	}
}

func walkDecls(ds []Decl, visit func(Node) bool) {
	for _, d := range ds {
		Walk(d, visit)
	}
}

func walkBranches(bs []*CondStmt, visit func(Node) bool) {
	for _, b := range bs {
		Walk(b.Cond, visit)
		walkStmts(b.Stmts, visit)
	}
}

func walkBody(b *Body, visit func(Node) bool) {
	if b == nil {
		return
	}
	walkStmts(b.Stmts, visit)
	for _, h := range b.Handlers {
		walkStmts(h.Stmts, visit)
	}
}

func walkRoutine(r *RoutineBase, visit func(Node) bool) {
	for _, p := range r.Params {
		Walk(p, visit)
	}
	walkDecls(r.Decls, visit)
	walkBody(r.Body, visit)
}

func walkSQL(sql *StaticSQL, visit func(Node) bool) {
	if sql == nil {
		return
	}
	walkExprs(sql.HostExprs, visit)
	for _, id := range sql.Into {
		Walk(id, visit)
	}
}

// Unresolved returns the first question, in document order, that some node
// of the unit is still waiting for. ok is false if the unit is complete.
func Unresolved(u *Unit) (question int, ok bool) {
	found := false
	Walk(u.Routine, func(n Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *DeclParam:
			found, question = pending(n.Type)
		case *DeclVar:
			found, question = pending(n.Type)
		case *DeclConst:
			found, question = pending(n.Type)
		case *DeclFunc:
			found, question = pending(n.RetType)
		case *ExprGlobalFuncCall:
			found, question = pending(n.Decl)
		case *ExprSerialVal:
			found, question = pending(n.Verified)
		case *StmtGlobalProcCall:
			found, question = pending(n.Decl)
		}
		return !found
	})
	return question, found
}

func pending[T any](p Pending[T]) (bool, int) {
	return !p.Resolved(), p.Question()
}
