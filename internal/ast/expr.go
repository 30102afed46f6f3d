// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import (
	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/types"
)

// Expr is an expression.
type Expr interface {
	Node
	Coercion() *coercion.Coercion
	SetCoercion(*coercion.Coercion)
	exprNode()
}

type ExprNull struct {
	ExprBase
}

type ExprBool struct {
	ExprBase
	Val bool
}

// ExprNum is an integer or floating point literal. Type is INT, BIGINT,
// NUMERIC, FLOAT or DOUBLE depending on the magnitude and form of Val.
type ExprNum struct {
	ExprBase
	Val  string
	Type *types.Type
}

type ExprStr struct {
	ExprBase
	Val string
}

// ExprDateTime is a DATE, TIME, DATETIME or TIMESTAMP literal. Val is the
// literal brought to the canonical form of its type.
type ExprDateTime struct {
	ExprBase
	Type *types.Type
	Val  string
}

// ExprID refers to a declared identifier.
type ExprID struct {
	ExprBase
	Name string
	Decl DeclID
}

// ExprField is a field of a loop record.
type ExprField struct {
	ExprBase
	Record *ExprID
	Field  string
	// Column is the 1-based index of the field among the columns of the
	// record's query, set by the type checker for static SQL records.
	Column int
	// Type is set by the type checker.
	Type *types.Type
}

type SerialMode int

const (
	SerialNext SerialMode = iota
	SerialCurrent
)

// ExprSerialVal is NAME.NEXTVAL or NAME.CURRVAL of a serial. Verified
// becomes resolved once the server confirms NAME is a serial.
type ExprSerialVal struct {
	ExprBase
	Name     string
	Mode     SerialMode
	Verified Pending[bool]
}

// ExprUnaryOp is an operator applied to one operand. Op is the name of the
// operator in the operator catalogue, e.g. opNeg.
type ExprUnaryOp struct {
	ExprBase
	Op      string
	Operand Expr
}

// ExprBinaryOp is an operator applied to two operands. Ext selects a variant
// of the operator for some argument types, such as Char for comparisons of
// CHAR values.
type ExprBinaryOp struct {
	ExprBase
	Op          string
	Left, Right Expr
	Ext         string
}

type ExprBetween struct {
	ExprBase
	Target, Lower, Upper Expr
	Ext                  string
}

type ExprIn struct {
	ExprBase
	Target Expr
	Values []Expr
	Ext    string
}

type ExprLike struct {
	ExprBase
	Target, Pattern Expr
	// Escape is nil if there is no ESCAPE clause.
	Escape *ExprStr
}

type CaseExprWhen struct {
	Positioned
	Val, Result Expr
}

// ExprCase is a simple CASE expression.
type ExprCase struct {
	ExprBase
	Selector Expr
	Whens    []*CaseExprWhen
	// Else is nil if there is no ELSE part.
	Else Expr
	// SelectorType and ResultType are set by the type checker. Ext is Char
	// when the selector and all the values are CHAR.
	SelectorType *types.Type
	ResultType   *types.Type
	Ext          string
}

type CondExprWhen struct {
	Positioned
	Cond, Result Expr
}

// ExprCond is a searched CASE expression.
type ExprCond struct {
	ExprBase
	Whens      []*CondExprWhen
	Else       Expr
	ResultType *types.Type
}

type ExprLocalFuncCall struct {
	ExprBase
	Name string
	Args []Expr
	Decl *DeclFunc
}

// ExprBuiltinFuncCall is a call to a function of the database server.
// ResultType is set by the type checker.
type ExprBuiltinFuncCall struct {
	ExprBase
	Name       string
	Args       []Expr
	ResultType *types.Type
}

// ExprGlobalFuncCall is a call to a stored function. Its declaration is
// built from the signature reported by the server.
type ExprGlobalFuncCall struct {
	ExprBase
	Name string
	Args []Expr
	Decl Pending[*DeclFunc]
}

// ExprCursorAttr is one of %ISOPEN, %FOUND, %NOTFOUND and %ROWCOUNT.
type ExprCursorAttr struct {
	ExprBase
	ID   *ExprID
	Attr string
}

type ExprSQLRowCount struct {
	ExprBase
}

type ExprSQLCode struct {
	ExprBase
}

type ExprSQLErrm struct {
	ExprBase
}
