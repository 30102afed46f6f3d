// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import (
	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
)

// Stmt is a statement.
type Stmt interface {
	Node
	stmtNode()
}

type StmtBase struct {
	Positioned
}

func (s *StmtBase) stmtNode() {}

// StmtAt returns a StmtBase at the given position.
func StmtAt(pos diag.Pos) StmtBase {
	return StmtBase{Positioned{pos}}
}

// StaticSQL is an embedded SQL statement as analysed by the server.
type StaticSQL struct {
	Positioned
	// Kind is the kind of the statement, e.g. SELECT.
	Kind string
	// Rewritten is the SQL text with host expressions replaced by '?'.
	Rewritten string
	// HostExprs are the expressions bound to the '?' of Rewritten, in order.
	HostExprs []Expr
	// Columns is the select list of a SELECT.
	Columns []Column
	// Into are the into-variables of a SELECT.
	Into []*ExprID
}

// Column is a column of a query result.
type Column struct {
	Name string
	Type *types.Type
}

// Body is the statements and exception handlers of a routine or block.
type Body struct {
	Positioned
	Stmts    []Stmt
	Handlers []*ExHandler
}

// ExHandler handles the listed exceptions. Exceptions is empty for OTHERS.
type ExHandler struct {
	Positioned
	Exceptions []*DeclException
	Stmts      []Stmt
}

type StmtBlock struct {
	StmtBase
	Label *DeclLabel
	Decls []Decl
	Body  *Body
	Inner *Scope
}

type StmtAssign struct {
	StmtBase
	Target *ExprID
	Val    Expr
}

type CondStmt struct {
	Positioned
	Cond  Expr
	Stmts []Stmt
}

type StmtIf struct {
	StmtBase
	Branches []*CondStmt
	// Else is nil if there is no ELSE part.
	Else []Stmt
}

type CaseStmtWhen struct {
	Positioned
	Val   Expr
	Stmts []Stmt
}

// StmtCase is a simple CASE statement. Searched CASE statements are
// StmtCond.
type StmtCase struct {
	StmtBase
	Selector Expr
	Whens    []*CaseStmtWhen
	// Else is nil if there is no ELSE part, in which case CASE_NOT_FOUND is
	// raised when no branch matches.
	Else         []Stmt
	SelectorType *types.Type
	Ext          string
}

// StmtCond is a searched CASE statement.
type StmtCond struct {
	StmtBase
	Branches []*CondStmt
	Else     []Stmt
}

type StmtBasicLoop struct {
	StmtBase
	Label *DeclLabel
	Stmts []Stmt
}

type StmtWhileLoop struct {
	StmtBase
	Label *DeclLabel
	Cond  Expr
	Stmts []Stmt
}

type StmtForIterLoop struct {
	StmtBase
	Label        *DeclLabel
	Iter         *DeclForIter
	Reverse      bool
	Lower, Upper Expr
	// Step is nil if there is no BY clause.
	Step  Expr
	Stmts []Stmt
}

type StmtForCursorLoop struct {
	StmtBase
	Label  *DeclLabel
	Record *DeclForRecord
	Cursor *ExprID
	Args   []Expr
	Stmts  []Stmt
}

type StmtForStaticSQLLoop struct {
	StmtBase
	Label  *DeclLabel
	Record *DeclForRecord
	SQL    *StaticSQL
	Stmts  []Stmt
}

type StmtForDynamicSQLLoop struct {
	StmtBase
	Label  *DeclLabel
	Record *DeclForRecord
	SQL    Expr
	Using  []Expr
	Stmts  []Stmt
}

// StmtExit leaves the loop of Label, or the innermost loop if Label is nil.
type StmtExit struct {
	StmtBase
	Label *DeclLabel
}

// StmtContinue starts the next iteration of the loop of Label, or of the
// innermost loop if Label is nil.
type StmtContinue struct {
	StmtBase
	Label *DeclLabel
}

type StmtNull struct {
	StmtBase
}

// StmtRaise raises Exception, or re-raises the handled exception if
// Exception is nil.
type StmtRaise struct {
	StmtBase
	Exception *DeclException
}

type StmtRaiseAppErr struct {
	StmtBase
	Code, Msg Expr
}

type StmtReturn struct {
	StmtBase
	// Val is nil in procedures.
	Val Expr
	// RetType is the return type of the enclosing function, set by the type
	// checker.
	RetType *types.Type
}

type StmtStaticSQL struct {
	StmtBase
	SQL *StaticSQL
	// Coercions bring the columns of a SELECT to the types of its
	// into-variables.
	Coercions []*coercion.Coercion
}

type StmtOpen struct {
	StmtBase
	Cursor *ExprID
	Args   []Expr
}

type StmtOpenFor struct {
	StmtBase
	ID  *ExprID
	SQL *StaticSQL
}

type StmtFetch struct {
	StmtBase
	Cursor    *ExprID
	Into      []*ExprID
	Coercions []*coercion.Coercion
}

type StmtClose struct {
	StmtBase
	Cursor *ExprID
}

type StmtCommit struct {
	StmtBase
}

type StmtRollback struct {
	StmtBase
}

type StmtExecImme struct {
	StmtBase
	SQL       Expr
	Into      []*ExprID
	Using     []Expr
	Coercions []*coercion.Coercion
}

type StmtLocalProcCall struct {
	StmtBase
	Name string
	Args []Expr
	Decl *DeclProc
}

type StmtGlobalProcCall struct {
	StmtBase
	Name string
	Args []Expr
	Decl Pending[*DeclProc]
}
