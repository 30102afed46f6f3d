// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package parsetree defines the concrete syntax tree of a PL/CSQL unit as
// produced by the parser. It is deliberately untyped: a Node has a kind, the
// text of its leading token or name, flags, a position and positional
// children. The layout of the children of every kind is documented next to
// the kind.
package parsetree

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KInvalid Kind = iota

	// KRoutine is a procedure or function definition, either the unit itself
	// or a local routine.
	// Text: routine name. Flags: FlagFunction, FlagLanguage, FlagOrReplace.
	// Children: params (KParamList or nil), return type (KTypeSpec, KTypeOf or
	// nil), declarations (KDeclList or nil), body (KBody).
	KRoutine
	// KParamList children: KParam...
	KParamList
	// KParam Text: name. Flags: FlagIn, FlagOut. Children: type.
	KParam
	// KTypeSpec Text: type name such as INT, NUMERIC or DOUBLE PRECISION.
	// Children: zero to two KIntLit arguments.
	KTypeSpec
	// KTypeOf Text: NAME or TABLE.COLUMN, for NAME%TYPE and TABLE.COLUMN%TYPE.
	KTypeOf
	// KDeclList children: declarations.
	KDeclList
	// KVarDecl Text: name. Flags: FlagNotNull. Children: type, default or nil.
	KVarDecl
	// KConstDecl Text: name. Flags: FlagNotNull. Children: type, value.
	KConstDecl
	// KExceptionDecl Text: name.
	KExceptionDecl
	// KCursorDecl Text: name. Children: params (KParamList or nil), KStaticSQL.
	KCursorDecl
	// KPragma Text: the pragma name, e.g. AUTONOMOUS_TRANSACTION.
	KPragma
	// KBody Text: the end label or "". Children: KStmtList, KHandlerList or nil.
	KBody
	// KStmtList children: statements.
	KStmtList
	// KHandlerList children: KHandler...
	KHandlerList
	// KHandler children: KNameList of exception names, KStmtList.
	KHandler
	// KNameList children: KIdent...
	KNameList

	// Statements.

	// KBlock Text: label or "". Children: KDeclList or nil, KBody.
	KBlock
	// KAssign children: KIdent target, value.
	KAssign
	// KIf children: KCondBranch..., then an optional KElse.
	KIf
	// KCondBranch children: condition, KStmtList.
	KCondBranch
	// KElse children: KStmtList, or the else expression of a case expression.
	KElse
	// KCaseStmt children: selector or nil, KWhenBranch..., optional KElse.
	KCaseStmt
	// KWhenBranch children: value or condition, KStmtList or result expression.
	KWhenBranch
	// KLoop Text: label. Children: KStmtList.
	KLoop
	// KWhile Text: label. Children: condition, KStmtList.
	KWhile
	// KForIter Text: label. Flags: FlagReverse. Children: KIdent iterator,
	// lower bound, upper bound, step or nil, KStmtList.
	KForIter
	// KForCursor Text: label. Children: KIdent record, KIdent cursor, KArgList
	// or nil, KStmtList.
	KForCursor
	// KForStaticSQL Text: label. Children: KIdent record, KStaticSQL, KStmtList.
	KForStaticSQL
	// KForDynamicSQL Text: label. Children: KIdent record, SQL expression,
	// KArgList of USING expressions or nil, KStmtList.
	KForDynamicSQL
	// KExit and KContinue Text: target label or "". Children: WHEN condition or
	// nil.
	KExit
	KContinue
	KNull
	// KRaise Text: exception name or "".
	KRaise
	// KRaiseAppErr children: code, message.
	KRaiseAppErr
	// KReturn children: value or nil.
	KReturn
	// KStaticSQL Text: the verbatim SQL text.
	KStaticSQL
	// KOpen children: KIdent cursor, KArgList or nil.
	KOpen
	// KOpenFor children: KIdent cursor reference, KStaticSQL.
	KOpenFor
	// KFetch children: KIdent cursor, KNameList of into-variables.
	KFetch
	// KClose children: KIdent cursor.
	KClose
	KCommit
	KRollback
	// KExecImme children: SQL expression, KNameList of into-variables or nil,
	// KArgList of USING expressions or nil.
	KExecImme
	// KCallStmt Text: procedure name, possibly PACKAGE.NAME. Children: KArgList
	// or nil.
	KCallStmt

	// Expressions.

	// KBinary Text: the operator, e.g. +, ||, <=, AND.
	// Children: left, right.
	KBinary
	// KUnary Text: the operator, one of -, +, ~, NOT. Children: operand.
	KUnary
	// KIsNull Flags: FlagNot. Children: operand.
	KIsNull
	// KBetween Flags: FlagNot. Children: target, lower, upper.
	KBetween
	// KIn Flags: FlagNot. Children: target, values...
	KIn
	// KLike Flags: FlagNot. Children: target, pattern, escape or nil.
	KLike
	// Literals. Text: the literal without quotes or keyword.
	KIntLit
	KFloatLit
	KStrLit
	KDateLit
	KTimeLit
	KDatetimeLit
	KTimestampLit
	KNullLit
	KTrue
	KFalse
	// KIdent Text: the name.
	KIdent
	// KField Text: field name. Children: KIdent record.
	KField
	// KCall Text: function name. Children: KArgList.
	KCall
	// KArgList children: expressions.
	KArgList
	// KCaseExpr children: selector or nil, KWhenBranch..., optional KElse.
	KCaseExpr
	// KCursorAttr Text: ISOPEN, FOUND, NOTFOUND or ROWCOUNT. Children: KIdent.
	KCursorAttr
	KSQLRowCount
	KSQLCode
	KSQLErrm
)

var kindNames = map[Kind]string{
	KInvalid: "Invalid", KRoutine: "Routine", KParamList: "ParamList", KParam: "Param",
	KTypeSpec: "TypeSpec", KTypeOf: "TypeOf", KDeclList: "DeclList", KVarDecl: "VarDecl",
	KConstDecl: "ConstDecl", KExceptionDecl: "ExceptionDecl", KCursorDecl: "CursorDecl",
	KPragma: "Pragma", KBody: "Body", KStmtList: "StmtList", KHandlerList: "HandlerList",
	KHandler: "Handler", KNameList: "NameList", KBlock: "Block", KAssign: "Assign", KIf: "If",
	KCondBranch: "CondBranch", KElse: "Else", KCaseStmt: "CaseStmt", KWhenBranch: "WhenBranch",
	KLoop: "Loop", KWhile: "While", KForIter: "ForIter", KForCursor: "ForCursor",
	KForStaticSQL: "ForStaticSQL", KForDynamicSQL: "ForDynamicSQL", KExit: "Exit",
	KContinue: "Continue", KNull: "Null", KRaise: "Raise", KRaiseAppErr: "RaiseAppErr",
	KReturn: "Return", KStaticSQL: "StaticSQL", KOpen: "Open", KOpenFor: "OpenFor",
	KFetch: "Fetch", KClose: "Close", KCommit: "Commit", KRollback: "Rollback",
	KExecImme: "ExecImme", KCallStmt: "CallStmt", KBinary: "Binary", KUnary: "Unary",
	KIsNull: "IsNull", KBetween: "Between", KIn: "In", KLike: "Like", KIntLit: "IntLit",
	KFloatLit: "FloatLit", KStrLit: "StrLit", KDateLit: "DateLit", KTimeLit: "TimeLit",
	KDatetimeLit: "DatetimeLit", KTimestampLit: "TimestampLit", KNullLit: "NullLit",
	KTrue: "True", KFalse: "False", KIdent: "Ident", KField: "Field", KCall: "Call",
	KArgList: "ArgList", KCaseExpr: "CaseExpr", KCursorAttr: "CursorAttr",
	KSQLRowCount: "SQLRowCount", KSQLCode: "SQLCode", KSQLErrm: "SQLErrm",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Flags uint

const (
	FlagNot Flags = 1 << iota
	FlagReverse
	FlagIn
	FlagOut
	FlagNotNull
	FlagLanguage
	FlagFunction
	FlagOrReplace
)

// Node is a node of the parse tree.
type Node struct {
	Kind  Kind
	Text  string
	Flags Flags
	// Line and Col are the 1-based position of the first token of the node.
	Line, Col int
	// Children holds the positional children of the node. Optional children
	// are nil.
	Children []*Node
	Parent   *Node
}

// New returns a node and sets the parent of its non-nil children.
func New(kind Kind, text string, line, col int, children ...*Node) *Node {
	n := &Node{Kind: kind, Text: text, Line: line, Col: col}
	n.Append(children...)
	return n
}

// Append adds children to n.
func (n *Node) Append(children ...*Node) {
	for _, c := range children {
		if c != nil {
			c.Parent = n
		}
		n.Children = append(n.Children, c)
	}
}

// Child returns the i-th child of n, or nil if there is none.
func (n *Node) Child(i int) *Node {
	if n == nil || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

func (n *Node) Has(f Flags) bool {
	return n.Flags&f != 0
}

// Walk calls visit for n and its descendants in document order. Children of
// a node are skipped when visit returns false for it.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// String returns an S-expression rendering of the tree, for tests and
// debugging.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	sb.WriteString("(")
	sb.WriteString(n.Kind.String())
	if n.Text != "" {
		fmt.Fprintf(sb, " %q", n.Text)
	}
	if n.Flags != 0 {
		fmt.Fprintf(sb, " #%d", n.Flags)
	}
	for _, c := range n.Children {
		sb.WriteString(" ")
		c.write(sb)
	}
	sb.WriteString(")")
}
