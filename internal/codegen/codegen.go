// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package codegen translates a type checked unit into the source of the Java
// class that runs it in the stored procedure server.
//
// Variables and OUT parameters are one element arrays so that the anonymous
// classes wrapping calls and case expressions can update them. The
// declarations of each routine and block become the members of a local class
// named after the scope; a member is qualified by the scope's instance
// unless the reference is lexically inside that class.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
)

// Output is the generated class of a unit.
type Output struct {
	Source    string
	ClassName string
	// Signature identifies the entry point of the class for the server,
	// e.g. "Proc_P.P(java.lang.Integer, java.lang.String[])" or
	// "Func_F.F(java.lang.Integer) return java.lang.Integer".
	Signature string
}

const spLib = "com.cubrid.plcsql.predefined.sp.SpLib"

// baseImports are needed by the unit template itself.
var baseImports = []string{
	"com.cubrid.jsp.Server",
	"com.cubrid.plcsql.predefined.PlcsqlRuntimeError",
	"java.sql.*",
}

type generator struct {
	unit    *ast.Unit
	w       *writer
	imports map[string]bool

	// open are the scopes whose declaration class encloses the code being
	// generated.
	open map[*ast.Scope]bool
	// cursorParams are the parameters of declared cursors, with the local
	// variables they are bound to by the innermost OPEN of their cursor.
	cursorParams map[*ast.DeclParam]string
	// handlerDepth is the nesting depth of exception handlers in the current
	// routine.
	handlerDepth int
	// seq numbers the temporaries of the generated code.
	seq int
}

// Generate returns the Java class of unit, which must have been type checked.
func Generate(unit *ast.Unit) (out *Output, err error) {
	defer diag.Catch(&err)

	if q, ok := ast.Unresolved(unit); ok {
		return nil, diag.Internalf("question %d is not answered", q)
	}
	g := &generator{
		unit:         unit,
		w:            &writer{},
		imports:      map[string]bool{},
		open:         map[*ast.Scope]bool{},
		cursorParams: map[*ast.DeclParam]string{},
	}
	for imp := range unit.Imports {
		g.addImport(imp)
	}
	className := ClassName(unit)
	g.class(className)

	var src writer
	for _, imp := range g.importList() {
		src.linef("import %s;", imp)
	}
	src.linef("import static %s.*;", spLib)
	src.blank()
	src.buf.WriteString(g.w.String())

	return &Output{
		Source:    src.String(),
		ClassName: className,
		Signature: Signature(unit),
	}, nil
}

// ClassName returns the name of the class generated for unit.
func ClassName(unit *ast.Unit) string {
	name := unit.Routine.Name()
	if unit.Kind() == ast.Function {
		return "Func_" + name
	}
	return "Proc_" + name
}

// Signature returns the signature of the entry point of the class generated
// for unit. OUT parameters are passed as arrays.
func Signature(unit *ast.Unit) string {
	base := unit.Routine.Base()
	params := make([]string, len(base.Params))
	for i, p := range base.Params {
		params[i] = p.Type.Get().JavaType
		if p.IsOut() {
			params[i] += "[]"
		}
	}
	sig := fmt.Sprintf("%s.%s(%s)", ClassName(unit), base.Name(), strings.Join(params, ", "))
	if f, ok := unit.Routine.(*ast.DeclFunc); ok {
		sig += " return " + f.RetType.Get().JavaType
	}
	return sig
}

func (g *generator) addImport(javaType string) {
	if !strings.Contains(javaType, ".") || strings.HasPrefix(javaType, "java.lang.") || strings.HasPrefix(javaType, spLib+".") {
		return
	}
	g.imports[javaType] = true
}

func (g *generator) importList() []string {
	for _, imp := range baseImports {
		g.imports[imp] = true
	}
	list := make([]string, 0, len(g.imports))
	for imp := range g.imports {
		list = append(list, imp)
	}
	sort.Strings(list)
	return list
}

// typeName returns the simple Java name of t and records its import.
func (g *generator) typeName(t *types.Type) string {
	if t == types.Null {
		return "Object"
	}
	g.addImport(t.JavaType)
	if i := strings.LastIndexByte(t.JavaType, '.'); i >= 0 {
		return t.JavaType[i+1:]
	}
	return t.JavaType
}

// next returns a fresh number for temporaries.
func (g *generator) next() int {
	g.seq++
	return g.seq
}

func (g *generator) class(name string) {
	r := g.unit.Routine
	base := r.Base()

	g.w.openf("public class %s {", name)
	g.w.blank()
	g.w.openf("public static %s %s(%s) throws Exception {", g.retType(r), base.Name(), g.params(base.Params))
	g.nullifyOutParams(base.Params)
	g.w.blank()
	g.w.openf("try {")
	g.w.linef("Long[] sql_rowcount = new Long[] { -1L };")
	if g.unit.ConnectionRequired {
		url := fmt.Sprintf("jdbc:default:connection::?autonomous_transaction=%t", g.unit.AutonomousTransaction)
		g.w.linef("Connection conn = DriverManager.getConnection(%s);", javaString(url))
	}
	g.w.blank()
	g.routineBody(base)
	g.w.closef("} catch (PlcsqlRuntimeError e) {")
	g.w.indent++
	g.w.linef("throw e;")
	g.w.closef("} catch (OutOfMemoryError e) {")
	g.w.indent++
	g.w.linef("Server.log(e);")
	g.w.linef("throw new STORAGE_ERROR().initCause(e);")
	g.w.closef("} catch (Throwable e) {")
	g.w.indent++
	g.w.linef("Server.log(e);")
	g.w.linef("throw new PROGRAM_ERROR().initCause(e);")
	g.w.closef("}")
	g.w.closef("}")
	g.w.closef("}")
}

func (g *generator) retType(r ast.Routine) string {
	if f, ok := r.(*ast.DeclFunc); ok {
		return g.typeName(f.RetType.Get())
	}
	return "void"
}

func (g *generator) params(params []*ast.DeclParam) string {
	list := make([]string, len(params))
	for i, p := range params {
		t := g.typeName(p.Type.Get())
		if p.IsOut() {
			t += "[]"
		}
		list[i] = t + " " + p.Name()
	}
	return strings.Join(list, ", ")
}

// nullifyOutParams clears the OUT parameters that are not also IN.
func (g *generator) nullifyOutParams(params []*ast.DeclParam) {
	for _, p := range params {
		if p.Mode == ast.ParamOut {
			g.w.linef("%s[0] = null;", p.Name())
		}
	}
}

func (g *generator) routineBody(base *ast.RoutineBase) {
	savedDepth := g.handlerDepth
	g.handlerDepth = 0
	g.declClass(base.Inner, base.Decls)
	g.body(base.Body)
	g.handlerDepth = savedDepth
}

// localRoutine writes a routine declared in a declaration part as a method
// of the declaration class.
func (g *generator) localRoutine(r ast.Routine) {
	base := r.Base()
	g.w.blank()
	g.w.openf("%s %s(%s) throws Exception {", g.retType(r), base.Name(), g.params(base.Params))
	g.nullifyOutParams(base.Params)
	g.routineBody(base)
	g.w.closef("}")
}

// declClass writes the declarations of scope as members of a local class
// and instantiates it. Nothing is written for an empty declaration part.
func (g *generator) declClass(scope *ast.Scope, decls []ast.Decl) {
	if len(decls) == 0 {
		return
	}
	class := "Decl_of_" + scope.Block
	g.w.openf("class %s {", class)
	g.w.linef("%s() throws Exception {};", class)
	g.open[scope] = true
	for _, d := range decls {
		g.decl(d)
	}
	delete(g.open, scope)
	g.w.closef("}")
	g.w.linef("%s %s = new %s();", class, scope.Block, class)
	g.w.blank()
}

func (g *generator) decl(d ast.Decl) {
	switch d := d.(type) {
	case *ast.DeclProc:
		g.localRoutine(d)
	case *ast.DeclFunc:
		g.localRoutine(d)
	case *ast.DeclVar:
		t := g.typeName(d.Type.Get())
		val := "null"
		if d.Init != nil {
			val = g.expr(d.Init)
			if d.NotNull {
				val = fmt.Sprintf("checkNotNull(%s, %s)", val, javaString("NOT NULL constraint violated"))
			}
		}
		g.w.linef("%s[] %s = new %s[] { %s };", t, d.Name(), t, val)
	case *ast.DeclConst:
		val := g.expr(d.Val)
		if d.NotNull {
			val = fmt.Sprintf("checkNotNull(%s, %s)", val, javaString("NOT NULL constraint violated"))
		}
		g.w.linef("final %s %s = %s;", g.typeName(d.Type.Get()), d.Name(), val)
	case *ast.DeclCursor:
		for _, p := range d.Params {
			g.cursorParams[p] = ""
		}
		g.w.linef("final Query %s = new Query(%s);", d.Name(), javaString(d.SQL.Rewritten))
	case *ast.DeclException:
		g.w.linef("class %s extends $APP_ERROR {}", d.Name())
	default:
		panic(diag.Internalf("unexpected declaration %T", d))
	}
}

// member returns the reference to the declaration d named name.
// Declarations of routine and block scopes live in the declaration class of
// their scope.
func (g *generator) member(d ast.Decl, name string) string {
	s := d.Scope()
	if s == nil || s.Level <= ast.LevelMain || g.open[s] {
		return name
	}
	return s.Block + "." + name
}

// exceptionClass returns the Java class of a declared or predefined
// exception, for catch clauses.
func (g *generator) exceptionClass(d *ast.DeclException) string {
	s := d.Scope()
	if s == nil || s.Level == ast.LevelPredefined || g.open[s] {
		return d.Name()
	}
	return "Decl_of_" + s.Block + "." + d.Name()
}

// newException returns the expression creating an instance of an exception.
// User exceptions are inner classes of their declaration class.
func (g *generator) newException(d *ast.DeclException) string {
	s := d.Scope()
	if s == nil || s.Level == ast.LevelPredefined || g.open[s] {
		return fmt.Sprintf("new %s()", d.Name())
	}
	return fmt.Sprintf("%s.new %s()", s.Block, d.Name())
}

func (g *generator) iterVar(d *ast.DeclForIter) string {
	return fmt.Sprintf("%s_i%d", d.Name(), d.Scope().Level)
}

func (g *generator) recordVar(d *ast.DeclForRecord) string {
	return fmt.Sprintf("%s_r%d", d.Name(), d.Scope().Level)
}

func (g *generator) label(d *ast.DeclLabel) string {
	return fmt.Sprintf("%s_%d", d.Name(), d.Scope().Level)
}
