// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package codegen

import (
	"fmt"
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/coercion"
)

func applyCoercion(co *coercion.Coercion, code string) string {
	if co == nil {
		return code
	}
	return co.JavaCode(code)
}

func hasOutParam(params []*ast.DeclParam) bool {
	for _, p := range params {
		if p.IsOut() {
			return true
		}
	}
	return false
}

// wrapperParams returns the parameters of the anonymous method wrapping a
// call. Variables passed to OUT parameters are passed as their arrays.
func (g *generator) wrapperParams(params []*ast.DeclParam, args []ast.Expr) string {
	list := make([]string, len(params))
	for i, p := range params {
		if p.IsOut() {
			id := args[i].(*ast.ExprID)
			list[i] = fmt.Sprintf("%s[] o%d", g.typeName(ast.TypeOf(id.Decl)), i)
		} else {
			list[i] = fmt.Sprintf("%s o%d", g.typeName(p.Type.Get()), i)
		}
	}
	return strings.Join(list, ", ")
}

// wrapperArgs returns the arguments given to the anonymous method wrapping a
// call.
func (g *generator) wrapperArgs(params []*ast.DeclParam, args []ast.Expr) string {
	list := make([]string, len(params))
	for i, p := range params {
		if p.IsOut() {
			list[i] = g.outArg(args[i])
		} else {
			list[i] = g.expr(args[i])
		}
	}
	return strings.Join(list, ", ")
}

// notNullCheck returns the statement checking that a call did not set a NOT
// NULL variable passed to an OUT parameter to null, or "".
func notNullCheck(arg ast.Expr, i int) string {
	id, ok := arg.(*ast.ExprID)
	if !ok {
		return ""
	}
	if v, ok := id.Decl.(*ast.DeclVar); ok && v.NotNull {
		return fmt.Sprintf("checkNotNull(o%d[0], %s);", i,
			javaString(fmt.Sprintf("a not-null variable %s was set NULL by this call", id.Name)))
	}
	return ""
}

// localCall returns the call of a routine of the unit or of a predefined
// procedure. ret is the Java return type, empty for procedures. Calls with
// OUT parameters go through an anonymous method that coerces the values
// passed in and out.
func (g *generator) localCall(r ast.Routine, args []ast.Expr, ret string) string {
	base := r.Base()
	callee := g.member(r, base.Name())
	if !hasOutParam(base.Params) {
		return fmt.Sprintf("%s(%s)", callee, strings.Join(g.exprs(args), ", "))
	}

	kind := "function"
	if ret == "" {
		kind = "procedure"
	}
	var w writer
	w.openf("%snew Object() { // local %s call: %s", opening(ret), kind, base.Name())
	w.openf("%s invoke(%s) throws Exception {", orVoid(ret), g.wrapperParams(base.Params, args))
	var callArgs, update []string
	for i, p := range base.Params {
		if !p.IsOut() {
			callArgs = append(callArgs, fmt.Sprintf("o%d", i))
			continue
		}
		co := args[i].Coercion()
		if co == nil || co.Kind == coercion.Identity {
			callArgs = append(callArgs, fmt.Sprintf("o%d", i))
		} else {
			pt := g.typeName(p.Type.Get())
			w.linef("%s[] p%d = new %s[] { %s };", pt, i, pt, co.JavaCode(fmt.Sprintf("o%d[0]", i)))
			callArgs = append(callArgs, fmt.Sprintf("p%d", i))
			update = append(update, fmt.Sprintf("o%d[0] = %s;", i, applyCoercion(coercion.Reversion(co), fmt.Sprintf("p%d[0]", i))))
		}
		if check := notNullCheck(args[i], i); check != "" {
			update = append(update, check)
		}
	}
	call := fmt.Sprintf("%s(%s)", callee, strings.Join(callArgs, ", "))
	if ret == "" {
		w.linef("%s;", call)
	} else {
		w.linef("%s ret = %s;", ret, call)
	}
	for _, u := range update {
		w.linef("%s", u)
	}
	if ret != "" {
		w.linef("return ret;")
	}
	w.closef("}")
	w.closef("}.invoke(%s)%s", g.wrapperArgs(base.Params, args), closing(ret))
	return w.text()
}

// globalCall returns the call of a stored routine through a callable
// statement. ret is the Java return type, empty for procedures.
func (g *generator) globalCall(name string, params []*ast.DeclParam, args []ast.Expr, ret string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	sql := fmt.Sprintf("call %s(%s)", name, marks)
	offset := 1
	kind := "procedure"
	if ret != "" {
		sql = "?= " + sql
		offset = 2
		kind = "function"
	}

	var w writer
	w.openf("%snew Object() { // global %s call: %s", opening(ret), kind, name)
	w.openf("%s invoke(%s) throws Exception {", orVoid(ret), g.wrapperParams(params, args))
	w.openf("try {")
	w.linef("CallableStatement stmt = conn.prepareCall(%s);", javaString(sql))
	if ret != "" {
		w.linef("stmt.registerOutParameter(1, java.sql.Types.OTHER);")
	}
	var update []string
	for i, p := range params {
		idx := i + offset
		if !p.IsOut() {
			w.linef("stmt.setObject(%d, o%d);", idx, i)
			continue
		}
		co := args[i].Coercion()
		w.linef("stmt.registerOutParameter(%d, java.sql.Types.OTHER);", idx)
		if p.Mode == ast.ParamInOut {
			w.linef("stmt.setObject(%d, %s);", idx, applyCoercion(co, fmt.Sprintf("o%d[0]", i)))
		}
		var rev *coercion.Coercion
		if co != nil {
			rev = coercion.Reversion(co)
		}
		out := fmt.Sprintf("(%s) stmt.getObject(%d)", g.typeName(p.Type.Get()), idx)
		update = append(update, fmt.Sprintf("o%d[0] = %s;", i, applyCoercion(rev, out)))
		if check := notNullCheck(args[i], i); check != "" {
			update = append(update, check)
		}
	}
	w.linef("stmt.execute();")
	if ret != "" {
		w.linef("%s ret = (%s) stmt.getObject(1);", ret, ret)
	}
	for _, u := range update {
		w.linef("%s", u)
	}
	w.linef("stmt.close();")
	if ret != "" {
		w.linef("return ret;")
	}
	sqlErrorCatch(&w)
	w.closef("}")
	w.closef("}.invoke(%s)%s", g.wrapperArgs(params, args), closing(ret))
	return w.text()
}

// opening and closing parenthesize the calls of functions, which are
// expressions. Calls of procedures are statements and cannot be.
func opening(ret string) string {
	if ret == "" {
		return ""
	}
	return "("
}

func closing(ret string) string {
	if ret == "" {
		return ""
	}
	return ")"
}

func orVoid(javaType string) string {
	if javaType == "" {
		return "void"
	}
	return javaType
}
