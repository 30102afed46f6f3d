// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package symbols

import (
	"fmt"

	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/types"
)

// FuncOverloads are the overloads of one operator. They all use the same
// coercion scheme, which picks the overload matching the argument types.
type FuncOverloads struct {
	Name   string
	Scheme coercion.Scheme

	byParams map[string]*Operator
}

func newFuncOverloads(name string, scheme coercion.Scheme) *FuncOverloads {
	return &FuncOverloads{Name: name, Scheme: scheme, byParams: map[string]*Operator{}}
}

func (fo *FuncOverloads) put(o *Operator) {
	if o.Scheme != fo.Scheme {
		panic(fmt.Sprintf("internal error: %s uses scheme %s, not %s", o, o.Scheme, fo.Scheme))
	}
	key := paramKey(o.Params, o.Variadic)
	if old, ok := fo.byParams[key]; ok {
		panic(fmt.Sprintf("internal error: %s is declared twice (%s)", o, old))
	}
	fo.byParams[key] = o
}

// Get returns the overload matching the argument types and the coercions of
// the arguments to its parameter types. It returns nil if the scheme cannot
// coerce the arguments.
func (fo *FuncOverloads) Get(argTypes []*types.Type) (*Operator, []*coercion.Coercion) {
	paramTypes, coercions, ok := fo.Scheme.Coercions(argTypes, fo.Name)
	if !ok {
		return nil, nil
	}
	key := paramKey(paramTypes, false)
	if fo.Name == "opIn" {
		// The only variadic operator.
		key = paramKey(paramTypes[:2], true)
	}
	o, ok := fo.byParams[key]
	if !ok {
		panic(fmt.Sprintf("internal error: (%s) has no matching version of %s", key, fo.Name))
	}
	return o, coercions
}
