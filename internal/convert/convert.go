// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package convert turns the parse tree of a unit into its abstract syntax
// tree. Names are resolved through a symbol stack as the tree is walked, and
// what only the server knows (stored routines, serials, column types) is
// recorded as questions whose answers complete the tree later.
package convert

import (
	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	pt "github.com/canonical/plcsql/internal/parsetree"
	"github.com/canonical/plcsql/internal/symbols"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

// question is a deferred question together with what its answer completes.
type question struct {
	oracle.Question
	pos diag.Pos
	// node is the global call or serial value waiting for the answer.
	node ast.Node
	// typeTargets are the declared types waiting for a column type.
	typeTargets []*ast.Pending[*types.Type]
}

// Converter converts a single unit. It must not be reused.
type Converter struct {
	stack *symbols.Stack
	sqls  map[*pt.Node]oracle.SQLSemantics

	questions []*question
	routines  map[*pt.Node]ast.Routine

	// controlFlowBlocked is set when the statement just converted never
	// completes normally.
	controlFlowBlocked bool
	// loopDepth and handlerDepth count the loops and exception handlers
	// enclosing the statement being converted, in the current routine.
	loopDepth    int
	handlerDepth int
	// routineLevel is the level of the scope of the current routine.
	routineLevel int

	connectionRequired bool
}

// New returns a converter using the semantics of the embedded SQL
// statements of the unit, keyed by their KStaticSQL node.
func New(sqls map[*pt.Node]oracle.SQLSemantics) *Converter {
	return &Converter{
		stack:    symbols.NewStack(),
		sqls:     sqls,
		routines: map[*pt.Node]ast.Routine{},
	}
}

// Convert converts the unit rooted at root. The returned tree may hold
// pending parts until AskServerSemanticQuestions has been called.
func (c *Converter) Convert(root *pt.Node) (unit *ast.Unit, err error) {
	defer diag.Catch(&err)

	if root == nil || root.Kind != pt.KRoutine {
		return nil, diag.Internalf("unit is not a routine definition")
	}
	c.previsitRoutine(root)
	r := c.routine(root)
	if c.stack.Size() != 2 {
		return nil, diag.Internalf("unbalanced symbol stack after conversion: %d tables", c.stack.Size())
	}
	return &ast.Unit{
		Routine:            r,
		ConnectionRequired: c.connectionRequired,
		Imports:            map[string]bool{},
	}, nil
}

// Questions returns the questions to ask the server, in order. The index of
// a question is its sequence number.
func (c *Converter) Questions() []oracle.Question {
	qs := make([]oracle.Question, len(c.questions))
	for i, q := range c.questions {
		qs[i] = q.Question
	}
	return qs
}

// ask records a question and returns its sequence number.
func (c *Converter) ask(q oracle.Question, pos diag.Pos, node ast.Node) int {
	c.questions = append(c.questions, &question{Question: q, pos: pos, node: node})
	return len(c.questions) - 1
}

// trackType registers p to be resolved with the column type p waits for, if
// any. Declared types are copied by %TYPE, so every copy is tracked.
func (c *Converter) trackType(p *ast.Pending[*types.Type]) {
	if p.Resolved() {
		return
	}
	q := c.questions[p.Question()]
	q.typeTargets = append(q.typeTargets, p)
}

func pos(n *pt.Node) diag.Pos {
	return diag.Pos{Line: n.Line, Column: n.Col}
}

func throwf(n *pt.Node, format string, a ...any) {
	diag.Throw(diag.Semanticf(pos(n), format, a...))
}

// knownType returns the declared type of an identifier if it is known yet.
func knownType(d ast.DeclID) (*types.Type, bool) {
	switch d := d.(type) {
	case *ast.DeclParam:
		return pendingType(d.Type)
	case *ast.DeclVar:
		return pendingType(d.Type)
	case *ast.DeclConst:
		return pendingType(d.Type)
	}
	t := ast.TypeOf(d)
	return t, t != nil
}

func pendingType(p ast.Pending[*types.Type]) (*types.Type, bool) {
	if !p.Resolved() {
		return nil, false
	}
	return p.Get(), true
}

// isCursorOrRefcursor reports whether d is a cursor or holds a cursor
// reference.
func isCursorOrRefcursor(d ast.DeclID) bool {
	if _, ok := d.(*ast.DeclCursor); ok {
		return true
	}
	switch d.(type) {
	case *ast.DeclVar, *ast.DeclParam:
		t, ok := knownType(d)
		return ok && t == types.SysRefcursor
	}
	return false
}
