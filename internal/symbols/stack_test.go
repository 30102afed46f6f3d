package symbols_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/symbols"
	"github.com/canonical/plcsql/internal/types"
)

// Hook up gocheck into the "go test" runner.
func TestSymbols(t *testing.T) { TestingT(t) }

type StackSuite struct{}

var _ = Suite(&StackSuite{})

// throws runs f and returns the user error it throws, if any.
func throws(f func()) (err error) {
	defer diag.Catch(&err)
	f()
	return nil
}

func at(line, col int) diag.Pos {
	return diag.Pos{Line: line, Column: col}
}

func newVar(pos diag.Pos, name string) *ast.DeclVar {
	return &ast.DeclVar{DeclBase: ast.Named(pos, name), Type: ast.Known(types.Int)}
}

func newProc(pos diag.Pos, name string) *ast.DeclProc {
	d := &ast.DeclProc{}
	d.DeclBase = ast.Named(pos, name)
	return d
}

func (s *StackSuite) TestInitialScopes(c *C) {
	st := symbols.NewStack()
	c.Assert(st.Size(), Equals, 2)
	c.Assert(st.Current(), DeepEquals, &ast.Scope{Level: ast.LevelMain, Block: "unit_1"})

	abs := st.Decl("ABS")
	c.Assert(abs, FitsTypeOf, &ast.DeclFunc{})
	c.Assert(abs.Scope().Level, Equals, ast.LevelPredefined)
	c.Assert(abs.Scope().Block, Equals, "%predefined_0")
}

func (s *StackSuite) TestPushInheritsRoutine(c *C) {
	st := symbols.NewStack()
	scope := st.Push("Poo", ast.Procedure)
	c.Check(scope, DeepEquals, &ast.Scope{Level: 2, Routine: "POO", RoutineKind: ast.Procedure, Block: "poo_2"})

	scope = st.Push("Loop", ast.NoRoutine)
	c.Check(scope, DeepEquals, &ast.Scope{Level: 3, Routine: "POO", RoutineKind: ast.Procedure, Block: "loop_3"})
	c.Check(st.Current(), Equals, scope)

	st.Pop()
	st.Pop()
	c.Check(st.Size(), Equals, 2)
}

func (s *StackSuite) TestShadowing(c *C) {
	st := symbols.NewStack()
	st.PutDecl("P", newProc(at(1, 18), "P"))
	st.Push("p", ast.Procedure)
	outer := newVar(at(2, 1), "X")
	st.PutDecl("X", outer)

	st.Push("blk", ast.NoRoutine)
	inner := newVar(at(4, 3), "X")
	st.PutDecl("X", inner)
	c.Assert(st.DeclID(at(5, 3), "X"), Equals, inner)
	c.Assert(inner.Scope().Level, Equals, 3)

	st.Pop()
	c.Assert(st.DeclID(at(7, 3), "X"), Equals, outer)
	c.Assert(st.DeclID(at(7, 3), "Y"), IsNil)
}

func (s *StackSuite) TestRedeclaration(c *C) {
	st := symbols.NewStack()
	st.PutDecl("P", newProc(at(1, 18), "P"))
	st.Push("p", ast.Procedure)
	st.PutDecl("X", newVar(at(2, 5), "X"))
	err := throws(func() { st.PutDecl("X", newVar(at(3, 5), "X")) })
	c.Assert(err, ErrorMatches, "semantic error at line 3, column 5: X has already been declared in the same scope")
}

func (s *StackSuite) TestBuiltinNameForUnit(c *C) {
	st := symbols.NewStack()
	err := throws(func() { st.PutDecl("ABS", newProc(at(1, 18), "ABS")) })
	c.Assert(err, ErrorMatches, "semantic error at line 1, column 18: procedure/function cannot be created with the same name as a built-in function")

	// Only the unit itself may not use the name.
	st = symbols.NewStack()
	st.PutDecl("P", newProc(at(1, 18), "P"))
	st.Push("p", ast.Procedure)
	st.PutDecl("ABS", newVar(at(2, 5), "ABS"))
	c.Assert(st.DeclID(at(3, 1), "ABS"), NotNil)
}

func (s *StackSuite) TestPredefinedExceptionNameForUnit(c *C) {
	st := symbols.NewStack()
	c.Assert(throws(func() { st.PutDecl("NO_DATA_FOUND", newProc(at(1, 18), "NO_DATA_FOUND")) }), IsNil)
}

func (s *StackSuite) TestLabels(c *C) {
	st := symbols.NewStack()
	st.Push("p", ast.Procedure)
	l := &ast.DeclLabel{DeclBase: ast.Named(at(3, 3), "L1"), Loop: true}
	st.PutDeclLabel("L1", l)

	// Labels and other names do not clash.
	st.PutDecl("L1", newVar(at(2, 5), "L1"))

	st.Push("loop", ast.NoRoutine)
	c.Assert(st.DeclLabel("L1"), Equals, l)
	err := throws(func() { st.PutDeclLabel("L1", &ast.DeclLabel{DeclBase: ast.Named(at(5, 5), "L1")}) })
	c.Assert(err, ErrorMatches, "semantic error at line 5, column 5: label L1 has already been declared")
	st.Pop()
	st.Pop()
	c.Assert(st.DeclLabel("L1"), IsNil)
}

var kindMismatchTests = []struct {
	summary string
	get     func(st *symbols.Stack)
	err     string
}{{
	summary: "exception as identifier",
	get:     func(st *symbols.Stack) { st.DeclID(at(9, 2), "NO_DATA_FOUND") },
	err:     "semantic error at line 9, column 2: NO_DATA_FOUND is not an identifier but an exception in this scope",
}, {
	summary: "function as procedure",
	get:     func(st *symbols.Stack) { st.DeclProc(at(9, 2), "ABS") },
	err:     "semantic error at line 9, column 2: ABS is not a procedure but a function in this scope",
}, {
	summary: "procedure as function",
	get:     func(st *symbols.Stack) { st.DeclFunc(at(9, 2), "DBMS_OUTPUT$PUT_LINE") },
	err:     "semantic error at line 9, column 2: DBMS_OUTPUT\\$PUT_LINE is not a function but a procedure in this scope",
}, {
	summary: "variable as exception",
	get:     func(st *symbols.Stack) { st.DeclException(at(9, 2), "X") },
	err:     "semantic error at line 9, column 2: X is not an exception but a variable in this scope",
}, {
	summary: "exception in an expression",
	get:     func(st *symbols.Stack) { st.DeclForIDExpr(at(9, 2), "ZERO_DIVIDE") },
	err:     "semantic error at line 9, column 2: ZERO_DIVIDE is neither an identifier nor a function but an exception in this scope",
}}

func (s *StackSuite) TestKindMismatch(c *C) {
	st := symbols.NewStack()
	st.Push("p", ast.Procedure)
	st.PutDecl("X", newVar(at(2, 5), "X"))
	for _, t := range kindMismatchTests {
		err := throws(func() { t.get(st) })
		c.Check(err, ErrorMatches, t.err, Commentf("test %q", t.summary))
	}

	c.Check(st.DeclForIDExpr(at(1, 1), "X"), NotNil)
	c.Check(st.DeclForIDExpr(at(1, 1), "SYSDATE"), FitsTypeOf, &ast.DeclFunc{})
	c.Check(st.DeclException(at(1, 1), "VALUE_ERROR"), NotNil)
	c.Check(st.DeclProc(at(1, 1), "DBMS_OUTPUT$ENABLE").Params, HasLen, 1)
	c.Check(st.DeclFunc(at(1, 1), "NO_SUCH_FUNC"), IsNil)
}

func (s *StackSuite) TestForwardUseThenDeclare(c *C) {
	st := symbols.NewStack()
	st.Push("p", ast.Procedure)
	x := newVar(at(2, 5), "X")
	st.PutDecl("X", x)

	st.Push("blk", ast.NoRoutine)
	st.BeginDeclPart()
	// Y NUMBER := X; refers to the outer X.
	st.Use(at(5, 17), "X", x)
	err := throws(func() { st.CheckNotUsed(at(6, 5), "X") })
	c.Assert(err, ErrorMatches, "semantic error at line 6, column 5: name X has already been used at line 5 and column 17 in the same declaration block")

	// Names of undeclared global routines are recorded too.
	st.Use(at(7, 10), "G", nil)
	err = throws(func() { st.CheckNotUsed(at(8, 5), "G") })
	c.Assert(err, ErrorMatches, "semantic error at line 8, column 5: name G has already been used at line 7 and column 10 .*")
	st.EndDeclPart()

	// Outside of declaration parts nothing is tracked.
	st.Use(at(10, 1), "X", x)
	c.Assert(throws(func() { st.CheckNotUsed(at(11, 1), "X") }), IsNil)
}

func (s *StackSuite) TestUseOfSameLevelIsNotTracked(c *C) {
	st := symbols.NewStack()
	st.Push("p", ast.Procedure)
	st.BeginDeclPart()
	x := newVar(at(2, 5), "X")
	st.PutDecl("X", x)
	st.Use(at(3, 20), "X", x)
	c.Assert(throws(func() { st.CheckNotUsed(at(4, 5), "X") }), IsNil)
	st.EndDeclPart()
}

func (s *StackSuite) TestUsesPropagateToEnclosingDeclPart(c *C) {
	st := symbols.NewStack()
	st.Push("p", ast.Procedure)
	st.BeginDeclPart()
	x := newVar(at(2, 5), "X")
	st.PutDecl("X", x)

	// A local procedure whose declarations use X of p and its own Z.
	st.Push("q", ast.Procedure)
	st.BeginDeclPart()
	z := newVar(at(4, 7), "Z")
	st.PutDecl("Z", z)
	st.Use(at(5, 12), "X", x)
	st.Push("blk", ast.NoRoutine)
	st.Use(at(6, 12), "Z", z)
	st.Pop()
	st.EndDeclPart()
	st.Pop()

	// Declaring X again in p is reported as a redeclaration, the use of Z
	// does not concern p.
	c.Assert(throws(func() { st.CheckNotUsed(at(8, 5), "Z") }), IsNil)
	err := throws(func() { st.PutDecl("X", newVar(at(8, 5), "X")) })
	c.Assert(err, ErrorMatches, ".*X has already been declared in the same scope")
	st.EndDeclPart()
}

func (s *StackSuite) TestLatestUseIsReported(c *C) {
	st := symbols.NewStack()
	st.Push("p", ast.Procedure)
	st.BeginDeclPart()
	st.Use(at(3, 10), "G", nil)

	st.Push("q", ast.Procedure)
	st.BeginDeclPart()
	st.Use(at(5, 12), "G", nil)
	st.EndDeclPart()
	st.Pop()

	err := throws(func() { st.CheckNotUsed(at(8, 5), "G") })
	c.Assert(err, ErrorMatches,
		"semantic error at line 8, column 5: name G has already been used at line 5 and column 12 in the same declaration block")
	st.EndDeclPart()
}

func (s *StackSuite) TestNoParenBuiltin(c *C) {
	c.Check(symbols.NoParenBuiltin("SYSDATE"), Equals, true)
	c.Check(symbols.NoParenBuiltin("ABS"), Equals, false)
	c.Check(symbols.IsBuiltinFunc("ABS"), Equals, true)
	c.Check(symbols.IsBuiltinFunc("NO_DATA_FOUND"), Equals, false)
	c.Check(symbols.IsBuiltinFunc("F"), Equals, false)
}
