// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package symbols

import (
	"fmt"
	"sync"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
)

// predefined holds the symbols common to all compilations. It is built once
// and never modified afterwards, so it is read without locking.
type predefined struct {
	table     *symbolTable
	operators map[string]*FuncOverloads
}

var predefinedOnce sync.Once
var singlePredefined *predefined

// getPredefined returns the single instance of the predefined symbols.
func getPredefined() *predefined {
	predefinedOnce.Do(func() {
		p := &predefined{
			table:     newSymbolTable(&ast.Scope{Level: ast.LevelPredefined, Block: "%predefined_0"}),
			operators: map[string]*FuncOverloads{},
		}
		p.addOperators()
		p.addDbmsOutputProcs()
		p.addBuiltinFuncs()
		p.addExceptions()
		singlePredefined = p
	})
	return singlePredefined
}

func predefinedTable() *symbolTable {
	return getPredefined().table
}

func (p *predefined) put(name string, d ast.Decl) {
	if _, ok := p.table.decls[name]; ok {
		panic(fmt.Sprintf("internal error: predefined symbol %s declared twice", name))
	}
	d.SetScope(p.table.scope)
	p.table.decls[name] = d
}

func (p *predefined) addOperators() {
	for _, o := range operatorCatalogue() {
		fo, ok := p.operators[o.Name]
		if !ok {
			fo = newFuncOverloads(o.Name, o.Scheme)
			p.operators[o.Name] = fo
		}
		fo.put(o)
	}
}

// Predefined symbols have no source position.
var noPos diag.Pos

func param(name string, t *types.Type, mode ast.ParamMode) *ast.DeclParam {
	return &ast.DeclParam{DeclBase: ast.Named(noPos, name), Type: ast.Known(t), Mode: mode}
}

func (p *predefined) addDbmsOutputProcs() {
	procs := []struct {
		name   string
		params []*ast.DeclParam
	}{
		{"DBMS_OUTPUT$DISABLE", nil},
		{"DBMS_OUTPUT$ENABLE", []*ast.DeclParam{param("size", types.Int, ast.ParamIn)}},
		{"DBMS_OUTPUT$GET_LINE", []*ast.DeclParam{
			param("line", types.StringAny, ast.ParamOut),
			param("status", types.Int, ast.ParamInOut),
		}},
		{"DBMS_OUTPUT$NEW_LINE", nil},
		{"DBMS_OUTPUT$PUT_LINE", []*ast.DeclParam{param("s", types.StringAny, ast.ParamIn)}},
		{"DBMS_OUTPUT$PUT", []*ast.DeclParam{param("s", types.StringAny, ast.ParamIn)}},
	}
	for _, proc := range procs {
		d := &ast.DeclProc{}
		d.DeclBase = ast.Named(noPos, proc.name)
		d.Params = proc.params
		p.put(proc.name, d)
	}
}

func (p *predefined) addBuiltinFuncs() {
	for _, name := range builtinFuncs {
		// Only the name of a builtin function is known.
		d := &ast.DeclFunc{}
		d.DeclBase = ast.Named(noPos, name)
		p.put(name, d)
	}
}

func (p *predefined) addExceptions() {
	for _, name := range predefinedExceptions {
		p.put(name, &ast.DeclException{DeclBase: ast.Named(noPos, name)})
	}
}

// LookupOperator returns the overload of the operator name that applies to
// arguments of the given types, with the coercions of the arguments. It
// returns nil if the operator does not apply to these types.
func LookupOperator(name string, argTypes ...*types.Type) (*Operator, []*coercion.Coercion) {
	fo, ok := getPredefined().operators[name]
	if !ok {
		panic(fmt.Sprintf("internal error: unknown operator %s", name))
	}
	return fo.Get(argTypes)
}

// IsBuiltinFunc reports whether name is a builtin function of the server.
func IsBuiltinFunc(name string) bool {
	d, ok := predefinedTable().decls[name]
	if !ok {
		return false
	}
	_, ok = d.(*ast.DeclFunc)
	return ok
}
