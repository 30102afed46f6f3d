// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package symbols resolves names through the nested scopes of a PL/CSQL unit.
//
// A Stack is owned by a single compilation. Its bottom table holds the
// predefined symbols (builtin functions, exceptions and DBMS_OUTPUT
// procedures) and is shared, read-only, by every Stack of the process. The
// operator overloads are shared the same way.
package symbols

import (
	"strconv"
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
)

type symbolTable struct {
	scope  *ast.Scope
	decls  map[string]ast.Decl
	labels map[string]*ast.DeclLabel
}

func newSymbolTable(scope *ast.Scope) *symbolTable {
	return &symbolTable{
		scope:  scope,
		decls:  map[string]ast.Decl{},
		labels: map[string]*ast.DeclLabel{},
	}
}

// use is the first use of a name in a declaration part, and the level of the
// declaration it referred to.
type use struct {
	pos       diag.Pos
	declLevel int
}

// Stack is a stack of symbol tables, one per open scope.
type Stack struct {
	// tables are ordered from the bottom (predefined) to the top.
	tables []*symbolTable

	// uses tracks the names used in the declaration part being converted. It
	// is nil outside of declaration parts.
	uses      map[string]use
	usesSaved []map[string]use
}

// NewStack returns a stack holding the predefined table and the table of the
// unit, at level 1.
func NewStack() *Stack {
	s := &Stack{}
	s.tables = append(s.tables, predefinedTable())
	s.tables = append(s.tables, newSymbolTable(&ast.Scope{Level: ast.LevelMain, Block: "unit_1"}))
	return s
}

func (s *Stack) top() *symbolTable {
	return s.tables[len(s.tables)-1]
}

// Push opens a new scope named name. A routine kind other than NoRoutine
// starts the scope of a new routine named name; otherwise the scope belongs
// to the enclosing routine.
func (s *Stack) Push(name string, kind ast.RoutineKind) *ast.Scope {
	level := len(s.tables)
	scope := &ast.Scope{
		Level: level,
		Block: strings.ToLower(name) + "_" + strconv.Itoa(level),
	}
	if kind == ast.NoRoutine {
		cur := s.top().scope
		scope.Routine = cur.Routine
		scope.RoutineKind = cur.RoutineKind
	} else {
		scope.Routine = strings.ToUpper(name)
		scope.RoutineKind = kind
	}
	s.tables = append(s.tables, newSymbolTable(scope))
	return scope
}

// Pop closes the scope on top of the stack.
func (s *Stack) Pop() {
	if len(s.tables) <= 1 {
		panic("internal error: popping the predefined symbol table")
	}
	s.tables = s.tables[:len(s.tables)-1]
}

// Size returns the number of open scopes, the predefined one included.
func (s *Stack) Size() int {
	return len(s.tables)
}

// Current returns the scope on top of the stack.
func (s *Stack) Current() *ast.Scope {
	return s.top().scope
}

// PutDecl declares name in the current scope.
func (s *Stack) PutDecl(name string, d ast.Decl) {
	t := s.top()
	if _, ok := t.decls[name]; ok {
		diag.Throw(diag.Semanticf(d.Pos(), "%s has already been declared in the same scope", name))
	}
	if t.scope.Level == ast.LevelMain && len(t.decls) == 0 {
		// The first declaration of the unit is the routine being created.
		if IsBuiltinFunc(name) {
			diag.Throw(diag.Semanticf(d.Pos(),
				"procedure/function cannot be created with the same name as a built-in function"))
		}
	}
	d.SetScope(t.scope)
	t.decls[name] = d
}

// PutDeclLabel declares a label in the current scope. Labels may not shadow
// each other.
func (s *Stack) PutDeclLabel(name string, d *ast.DeclLabel) {
	if s.DeclLabel(name) != nil {
		diag.Throw(diag.Semanticf(d.Pos(), "label %s has already been declared", name))
	}
	t := s.top()
	d.SetScope(t.scope)
	t.labels[name] = d
}

// Decl returns the innermost declaration of name, or nil.
func (s *Stack) Decl(name string) ast.Decl {
	for i := len(s.tables) - 1; i >= 0; i-- {
		if d, ok := s.tables[i].decls[name]; ok {
			return d
		}
	}
	return nil
}

// DeclLabel returns the innermost label called name, or nil.
func (s *Stack) DeclLabel(name string) *ast.DeclLabel {
	for i := len(s.tables) - 1; i >= 0; i-- {
		if d, ok := s.tables[i].labels[name]; ok {
			return d
		}
	}
	return nil
}

// The typed getters below return nil if name is not declared and fail at pos
// if it is declared as something else.

func (s *Stack) DeclID(pos diag.Pos, name string) ast.DeclID {
	d := s.Decl(name)
	if d == nil {
		return nil
	}
	id, ok := d.(ast.DeclID)
	if !ok {
		diag.Throw(diag.Semanticf(pos, "%s is not an identifier but %s in this scope", name, d.Kind()))
	}
	return id
}

func (s *Stack) DeclProc(pos diag.Pos, name string) *ast.DeclProc {
	d := s.Decl(name)
	if d == nil {
		return nil
	}
	p, ok := d.(*ast.DeclProc)
	if !ok {
		diag.Throw(diag.Semanticf(pos, "%s is not a procedure but %s in this scope", name, d.Kind()))
	}
	return p
}

func (s *Stack) DeclFunc(pos diag.Pos, name string) *ast.DeclFunc {
	d := s.Decl(name)
	if d == nil {
		return nil
	}
	f, ok := d.(*ast.DeclFunc)
	if !ok {
		diag.Throw(diag.Semanticf(pos, "%s is not a function but %s in this scope", name, d.Kind()))
	}
	return f
}

func (s *Stack) DeclException(pos diag.Pos, name string) *ast.DeclException {
	d := s.Decl(name)
	if d == nil {
		return nil
	}
	e, ok := d.(*ast.DeclException)
	if !ok {
		diag.Throw(diag.Semanticf(pos, "%s is not an exception but %s in this scope", name, d.Kind()))
	}
	return e
}

// DeclForIDExpr returns the declaration an identifier expression refers to:
// either an identifier or a function called without arguments.
func (s *Stack) DeclForIDExpr(pos diag.Pos, name string) ast.Decl {
	d := s.Decl(name)
	if d == nil {
		return nil
	}
	switch d.(type) {
	case ast.DeclID, *ast.DeclFunc:
		return d
	}
	diag.Throw(diag.Semanticf(pos, "%s is neither an identifier nor a function but %s in this scope", name, d.Kind()))
	return nil
}

// BeginDeclPart starts tracking the names used while a declaration part is
// converted.
func (s *Stack) BeginDeclPart() {
	s.usesSaved = append(s.usesSaved, s.uses)
	s.uses = map[string]use{}
}

// EndDeclPart stops tracking the names of the current declaration part. The
// uses of names declared outside of the current scope are carried over to
// the enclosing declaration part, if any.
func (s *Stack) EndDeclPart() {
	n := len(s.usesSaved)
	if n == 0 {
		panic("internal error: no declaration part to end")
	}
	parent := s.usesSaved[n-1]
	s.usesSaved = s.usesSaved[:n-1]
	if parent != nil {
		level := s.Current().Level
		for name, u := range s.uses {
			if u.declLevel < level {
				parent[name] = u
			}
		}
	}
	s.uses = parent
}

// Use records a use of name at pos, resolved to d. A nil d stands for a name
// that is not declared in any open scope, presumably a global routine. Only
// names declared in an enclosing scope are recorded.
func (s *Stack) Use(pos diag.Pos, name string, d ast.Decl) {
	if s.uses == nil {
		return
	}
	level := ast.LevelPredefined
	if d != nil {
		level = d.Scope().Level
		if level >= s.Current().Level {
			return
		}
	}
	if _, ok := s.uses[name]; !ok {
		s.uses[name] = use{pos: pos, declLevel: level}
	}
}

// CheckNotUsed fails if name is declared at pos after it was used to refer
// to an outer declaration in the same declaration part.
func (s *Stack) CheckNotUsed(pos diag.Pos, name string) {
	if s.uses == nil {
		return
	}
	u, ok := s.uses[name]
	if !ok || u.declLevel >= s.Current().Level {
		return
	}
	diag.Throw(diag.Semanticf(pos,
		"name %s has already been used at line %d and column %d in the same declaration block",
		name, u.pos.Line, u.pos.Column))
}
