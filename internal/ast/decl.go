// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import (
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
)

// Decl is a declaration. The scope of a declaration is set when it is put in
// a symbol table.
type Decl interface {
	Node
	Name() string
	// Kind describes the declaration in error messages, e.g. "a variable".
	Kind() string
	Scope() *Scope
	SetScope(*Scope)
	declNode()
}

// DeclID is a declaration that can be referred to by an identifier
// expression.
type DeclID interface {
	Decl
	idDecl()
}

// Routine is a procedure or a function declaration.
type Routine interface {
	Decl
	Base() *RoutineBase
}

// DeclBase is embedded in every declaration.
type DeclBase struct {
	Positioned
	Ident string
	scope *Scope
}

// Named returns a DeclBase for a declaration of name at pos.
func Named(pos diag.Pos, name string) DeclBase {
	return DeclBase{Positioned: Positioned{pos}, Ident: name}
}

func (d *DeclBase) Name() string      { return d.Ident }
func (d *DeclBase) Scope() *Scope     { return d.scope }
func (d *DeclBase) SetScope(s *Scope) { d.scope = s }
func (d *DeclBase) declNode()         {}

// Predefined reports whether the declaration is a builtin one.
func (d *DeclBase) Predefined() bool {
	return d.scope != nil && d.scope.Level == LevelPredefined
}

type ParamMode int

const (
	ParamIn ParamMode = iota
	ParamOut
	ParamInOut
)

func (m ParamMode) String() string {
	switch m {
	case ParamOut:
		return "OUT"
	case ParamInOut:
		return "IN OUT"
	}
	return "IN"
}

type DeclParam struct {
	DeclBase
	Type Pending[*types.Type]
	Mode ParamMode
}

func (d *DeclParam) Kind() string { return "a parameter" }
func (d *DeclParam) idDecl()      {}

// IsOut reports whether the parameter is OUT or IN OUT.
func (d *DeclParam) IsOut() bool { return d.Mode != ParamIn }

type DeclVar struct {
	DeclBase
	Type    Pending[*types.Type]
	NotNull bool
	// Init is the initial value, or nil.
	Init Expr
}

func (d *DeclVar) Kind() string { return "a variable" }
func (d *DeclVar) idDecl()      {}

type DeclConst struct {
	DeclBase
	Type    Pending[*types.Type]
	NotNull bool
	Val     Expr
}

func (d *DeclConst) Kind() string { return "a constant" }
func (d *DeclConst) idDecl()      {}

type DeclCursor struct {
	DeclBase
	Params []*DeclParam
	SQL    *StaticSQL
}

func (d *DeclCursor) Kind() string { return "a cursor" }
func (d *DeclCursor) idDecl()      {}

// DeclForIter is the integer iterator of a FOR loop.
type DeclForIter struct {
	DeclBase
}

func (d *DeclForIter) Kind() string { return "a loop iterator" }
func (d *DeclForIter) idDecl()      {}

// DeclForRecord is the record of a cursor or SQL FOR loop. SQL is nil for
// records of dynamic SQL, whose columns are unknown at compile time.
type DeclForRecord struct {
	DeclBase
	SQL *StaticSQL
}

func (d *DeclForRecord) Kind() string { return "a loop record" }
func (d *DeclForRecord) idDecl()      {}

type DeclException struct {
	DeclBase
}

func (d *DeclException) Kind() string { return "an exception" }

type DeclLabel struct {
	DeclBase
	// Loop is false for labels of blocks.
	Loop bool
}

func (d *DeclLabel) Kind() string { return "a label" }

// RoutineBase holds what procedures and functions have in common.
// Predefined builtin functions only have a name.
type RoutineBase struct {
	DeclBase
	Params []*DeclParam
	Decls  []Decl
	Body   *Body
	// Inner is the scope of the parameters and the body.
	Inner *Scope
}

func (r *RoutineBase) Base() *RoutineBase { return r }

type DeclProc struct {
	RoutineBase
}

func (d *DeclProc) Kind() string { return "a procedure" }

type DeclFunc struct {
	RoutineBase
	RetType Pending[*types.Type]
}

func (d *DeclFunc) Kind() string { return "a function" }

// TypeOf returns the declared type of an identifier declaration.
func TypeOf(d DeclID) *types.Type {
	switch d := d.(type) {
	case *DeclParam:
		return d.Type.Get()
	case *DeclVar:
		return d.Type.Get()
	case *DeclConst:
		return d.Type.Get()
	case *DeclForIter:
		return types.Int
	case *DeclCursor:
		return types.Cursor
	}
	// Records are not values.
	return nil
}

// IsAssignable reports whether values can be assigned to the declared
// identifier.
func IsAssignable(d DeclID) bool {
	switch d := d.(type) {
	case *DeclVar:
		return true
	case *DeclParam:
		return d.IsOut()
	}
	return false
}
