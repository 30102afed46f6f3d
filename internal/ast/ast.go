// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package ast defines the abstract syntax tree of a PL/CSQL unit.
//
// Declarations, expressions and statements are closed sum types: each is an
// interface with an unexported marker method, implemented only by the types
// of this package. Consumers traverse the tree with type switches.
package ast

import (
	"fmt"

	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/diag"
)

// Node is implemented by every declaration, expression and statement.
type Node interface {
	Pos() diag.Pos
}

// Pending holds a value that is only known once a deferred question has been
// answered by the metadata oracle.
type Pending[T any] struct {
	val      T
	resolved bool
	question int
}

// Known returns a resolved Pending.
func Known[T any](v T) Pending[T] {
	return Pending[T]{val: v, resolved: true}
}

// Deferred returns a Pending waiting for the answer to the given question.
func Deferred[T any](question int) Pending[T] {
	return Pending[T]{question: question}
}

// Resolve sets the value of p. It panics if p is already resolved.
func (p *Pending[T]) Resolve(v T) {
	if p.resolved {
		panic(fmt.Sprintf("internal error: question %d resolved twice", p.question))
	}
	p.val = v
	p.resolved = true
}

func (p Pending[T]) Resolved() bool {
	return p.resolved
}

// Question returns the question p is waiting for.
func (p Pending[T]) Question() int {
	return p.question
}

// Get returns the value of p. It panics if p is not resolved yet: later
// phases must only see complete trees.
func (p Pending[T]) Get() T {
	if !p.resolved {
		panic(fmt.Sprintf("internal error: question %d is not answered", p.question))
	}
	return p.val
}

type RoutineKind int

const (
	NoRoutine RoutineKind = iota
	Procedure
	Function
)

func (k RoutineKind) String() string {
	switch k {
	case Procedure:
		return "procedure"
	case Function:
		return "function"
	}
	return "none"
}

// Scope is one lexical nesting level.
type Scope struct {
	// Level is 0 for predefined symbols, 1 for the unit and higher for nested
	// routines, blocks and loops.
	Level int
	// Routine is the upper case name of the enclosing routine, if any.
	Routine     string
	RoutineKind RoutineKind
	// Block identifies the scope in generated code.
	Block string
}

const (
	LevelPredefined = 0
	LevelMain       = 1
)

// Unit is a compiled procedure or function.
type Unit struct {
	Routine Routine
	// AutonomousTransaction is set by PRAGMA AUTONOMOUS_TRANSACTION.
	AutonomousTransaction bool
	// ConnectionRequired is set when the unit runs SQL or calls other
	// stored routines or builtin functions.
	ConnectionRequired bool
	// Imports are the Java packages referenced by the generated code.
	Imports map[string]bool
}

// Kind returns whether the unit is a procedure or a function.
func (u *Unit) Kind() RoutineKind {
	if _, ok := u.Routine.(*DeclFunc); ok {
		return Function
	}
	return Procedure
}

// Positioned is embedded in the nodes to hold their source position.
type Positioned struct {
	Position diag.Pos
}

func (p *Positioned) Pos() diag.Pos {
	return p.Position
}

// ExprBase is embedded in every expression. It holds the coercion applied to
// the value of the expression, set by the type checker.
type ExprBase struct {
	Positioned
	coercion *coercion.Coercion
}

// At returns an ExprBase at the given position.
func At(pos diag.Pos) ExprBase {
	return ExprBase{Positioned: Positioned{pos}}
}

func (e *ExprBase) Coercion() *coercion.Coercion {
	return e.coercion
}

func (e *ExprBase) SetCoercion(c *coercion.Coercion) {
	e.coercion = c
}

func (e *ExprBase) exprNode() {}
