package parse_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql/internal/parse"
	pt "github.com/canonical/plcsql/internal/parsetree"
)

type ParserSuite struct{}

var _ = Suite(&ParserSuite{})

var exprTests = []struct {
	input    string
	expected string
}{
	{"1 + 2 * 3", `(Binary "+" (IntLit "1") (Binary "*" (IntLit "2") (IntLit "3")))`},
	{"(1 + 2) * 3", `(Binary "*" (Binary "+" (IntLit "1") (IntLit "2")) (IntLit "3"))`},
	{"a OR b AND NOT c", `(Binary "OR" (Ident "A") (Binary "AND" (Ident "B") (Unary "NOT" (Ident "C"))))`},
	{"a XOR b OR c", `(Binary "OR" (Binary "XOR" (Ident "A") (Ident "B")) (Ident "C"))`},
	{"x NOT BETWEEN 1 AND 2", `(Between #1 (Ident "X") (IntLit "1") (IntLit "2"))`},
	{"x BETWEEN 1 AND 2 AND y", `(Binary "AND" (Between (Ident "X") (IntLit "1") (IntLit "2")) (Ident "Y"))`},
	{"x IS NOT NULL", `(IsNull #1 (Ident "X"))`},
	{"x IS NULL", `(IsNull (Ident "X"))`},
	{"s LIKE 'a%' ESCAPE '#'", `(Like (Ident "S") (StrLit "a%") (StrLit "#"))`},
	{"s NOT LIKE 'a%'", `(Like #1 (Ident "S") (StrLit "a%") nil)`},
	{"x IN (1, 2)", `(In (Ident "X") (IntLit "1") (IntLit "2"))`},
	{"x NOT IN (1)", `(In #1 (Ident "X") (IntLit "1"))`},
	{"c%ROWCOUNT + SQL%ROWCOUNT", `(Binary "+" (CursorAttr "ROWCOUNT" (Ident "C")) (SQLRowCount))`},
	{"r.a || 'x'", `(Binary "||" (Field "A" (Ident "R")) (StrLit "x"))`},
	{"f(1, 'it''s')", `(Call "F" (ArgList (IntLit "1") (StrLit "it's")))`},
	{"f()", `(Call "F" (ArgList))`},
	{"DATE '2020-01-01'", `(DateLit "2020-01-01")`},
	{"TIMESTAMP '2020-01-01 10:00:00'", `(TimestampLit "2020-01-01 10:00:00")`},
	{"1.5e3 - 2.5f", `(Binary "-" (FloatLit "1.5e3") (FloatLit "2.5f"))`},
	{"a <> b", `(Binary "!=" (Ident "A") (Ident "B"))`},
	{"a <=> b", `(Binary "<=>" (Ident "A") (Ident "B"))`},
	{"10 MOD 3 DIV 2", `(Binary "DIV" (Binary "MOD" (IntLit "10") (IntLit "3")) (IntLit "2"))`},
	{"10 % 3", `(Binary "MOD" (IntLit "10") (IntLit "3"))`},
	{"1 << 2 | 3 & 4", `(Binary "|" (Binary "<<" (IntLit "1") (IntLit "2")) (Binary "&" (IntLit "3") (IntLit "4")))`},
	{`"Mixed"`, `(Ident "Mixed")`},
	{"-x", `(Unary "-" (Ident "X"))`},
	{"~x", `(Unary "~" (Ident "X"))`},
	{"NULL", `(NullLit)`},
	{"TRUE AND FALSE", `(Binary "AND" (True) (False))`},
	{"SQLCODE", `(SQLCode)`},
	{"CASE WHEN a THEN 1 ELSE 2 END", `(CaseExpr nil (WhenBranch (Ident "A") (IntLit "1")) (Else (IntLit "2")))`},
	{"CASE x WHEN 1 THEN 'a' END", `(CaseExpr (Ident "X") (WhenBranch (IntLit "1") (StrLit "a")))`},
	{"seq.NEXTVAL", `(Field "NEXTVAL" (Ident "SEQ"))`},
	{"SYSDATE", `(Ident "SYSDATE")`},
}

func (s *ParserSuite) TestExpressions(c *C) {
	for i, t := range exprTests {
		n, err := parse.ParseExpr(t.input)
		c.Assert(err, IsNil, Commentf("test %d: %s", i, t.input))
		c.Check(n.String(), Equals, t.expected, Commentf("test %d: %s", i, t.input))
	}
}

var stmtTests = []struct {
	input    string
	expected string
}{
	{"x := 1", `(Assign (Ident "X") (IntLit "1"))`},
	{"null", `(Null)`},
	{"raise;", `(Raise)`},
	{"raise no_data_found", `(Raise "NO_DATA_FOUND")`},
	{"return;", `(Return nil)`},
	{"raise_application_error(1, 'x')", `(RaiseAppErr (IntLit "1") (StrLit "x"))`},
	{"commit work", `(Commit)`},
	{"rollback", `(Rollback)`},
	{"p", `(CallStmt "P" nil)`},
	{"dbms_output.put_line('x')", `(CallStmt "DBMS_OUTPUT.PUT_LINE" (ArgList (StrLit "x")))`},
	{"exit", `(Exit nil)`},
	{"continue l when i > 1", `(Continue "L" (Binary ">" (Ident "I") (IntLit "1")))`},
	{"<<l1>> loop exit l1; end loop l1", `(Loop "L1" (StmtList (Exit "L1" nil)))`},
	{"while x loop null; end loop", `(While (Ident "X") (StmtList (Null)))`},
	{"for i in reverse 1..n by 2 loop null; end loop",
		`(ForIter #2 (Ident "I") (IntLit "1") (Ident "N") (IntLit "2") (StmtList (Null)))`},
	{"for i in f(1) .. 3 loop null; end loop",
		`(ForIter (Ident "I") (Call "F" (ArgList (IntLit "1"))) (IntLit "3") nil (StmtList (Null)))`},
	{"for r in c(1) loop null; end loop",
		`(ForCursor (Ident "R") (Ident "C") (ArgList (IntLit "1")) (StmtList (Null)))`},
	{"for r in c loop null; end loop",
		`(ForCursor (Ident "R") (Ident "C") nil (StmtList (Null)))`},
	{"for r in (select a from t) loop null; end loop",
		`(ForStaticSQL (Ident "R") (StaticSQL "select a from t") (StmtList (Null)))`},
	{"for r in execute immediate 'select 1' using x loop null; end loop",
		`(ForDynamicSQL (Ident "R") (StrLit "select 1") (ArgList (Ident "X")) (StmtList (Null)))`},
	{"if a then null; elsif b then null; else null; end if",
		`(If (CondBranch (Ident "A") (StmtList (Null))) (CondBranch (Ident "B") (StmtList (Null))) (Else (StmtList (Null))))`},
	{"case x when 1 then null; end case",
		`(CaseStmt (Ident "X") (WhenBranch (IntLit "1") (StmtList (Null))))`},
	{"open c(1)", `(Open (Ident "C") (ArgList (IntLit "1")))`},
	{"open rc for select a from t where b = 'x;y';",
		`(OpenFor (Ident "RC") (StaticSQL "select a from t where b = 'x;y'"))`},
	{"fetch c into a, b", `(Fetch (Ident "C") (NameList (Ident "A") (Ident "B")))`},
	{"close c", `(Close (Ident "C"))`},
	{"execute immediate s into a using 1, b",
		`(ExecImme (Ident "S") (NameList (Ident "A")) (ArgList (IntLit "1") (Ident "B")))`},
	{"delete from t where (a = 1);", `(StaticSQL "delete from t where (a = 1)")`},
	{"begin null; exception when no_data_found or others then null; end",
		`(Block nil (Body (StmtList (Null)) (HandlerList (Handler (NameList (Ident "NO_DATA_FOUND") (Ident "OTHERS")) (StmtList (Null))))))`},
	{"declare x int not null := 1; begin null; end b",
		`(Block (DeclList (VarDecl "X" #16 (TypeSpec "INT") (IntLit "1"))) (Body "B" (StmtList (Null)) nil))`},
}

func (s *ParserSuite) TestStatements(c *C) {
	for i, t := range stmtTests {
		n, err := parse.ParseStmt(t.input)
		c.Assert(err, IsNil, Commentf("test %d: %s", i, t.input))
		c.Check(n.String(), Equals, t.expected, Commentf("test %d: %s", i, t.input))
	}
}

func (s *ParserSuite) TestRoutine(c *C) {
	p := parse.NewParser()
	unit, err := p.Parse("function f(p IN INT) RETURN INT IS BEGIN RETURN p+1; END;")
	c.Assert(err, IsNil)
	c.Assert(unit.String(), Equals,
		`(Routine "F" #64 (ParamList (Param "P" #4 (TypeSpec "INT"))) (TypeSpec "INT") nil `+
			`(Body (StmtList (Return (Binary "+" (Ident "P") (IntLit "1")))) nil))`)
	c.Assert(unit.Line, Equals, 1)
	c.Assert(unit.Col, Equals, 10)
}

func (s *ParserSuite) TestDeclarations(c *C) {
	p := parse.NewParser()
	unit, err := p.Parse(`
create or replace procedure proc(a out numeric(10, 2), b in out varchar(20), c inout t.col%type)
as language plcsql
  x char;
  y constant double precision := 1.5;
  z x%type default 'a';
  e exception;
  pragma autonomous_transaction;
  cursor cur(k int) is select a from t where id = k;
  procedure local is begin null; end;
begin
  null;
end proc;
`)
	c.Assert(err, IsNil)
	c.Assert(unit.Has(pt.FlagOrReplace), Equals, true)
	c.Assert(unit.Has(pt.FlagLanguage), Equals, true)
	c.Assert(unit.Has(pt.FlagFunction), Equals, false)
	c.Assert(unit.Child(0).String(), Equals,
		`(ParamList (Param "A" #8 (TypeSpec "NUMERIC" (IntLit "10") (IntLit "2"))) `+
			`(Param "B" #12 (TypeSpec "VARCHAR" (IntLit "20"))) `+
			`(Param "C" #12 (TypeOf "T.COL")))`)
	c.Assert(unit.Child(1), IsNil)
	decls := unit.Child(2)
	c.Assert(decls.Children, HasLen, 7)
	c.Check(decls.Child(0).String(), Equals, `(VarDecl "X" (TypeSpec "CHAR") nil)`)
	c.Check(decls.Child(1).String(), Equals, `(ConstDecl "Y" (TypeSpec "DOUBLE") (FloatLit "1.5"))`)
	c.Check(decls.Child(2).String(), Equals, `(VarDecl "Z" (TypeOf "X") (StrLit "a"))`)
	c.Check(decls.Child(3).String(), Equals, `(ExceptionDecl "E")`)
	c.Check(decls.Child(4).String(), Equals, `(Pragma "AUTONOMOUS_TRANSACTION")`)
	c.Check(decls.Child(5).String(), Equals,
		`(CursorDecl "CUR" (ParamList (Param "K" #4 (TypeSpec "INT"))) (StaticSQL "select a from t where id = k"))`)
	c.Check(decls.Child(6).Kind, Equals, pt.KRoutine)
	c.Check(decls.Child(6).Parent, Equals, decls)
	c.Assert(unit.Child(3).Text, Equals, "PROC")
}

func (s *ParserSuite) TestStaticSQLInDocumentOrder(c *C) {
	p := parse.NewParser()
	unit, err := p.Parse(`procedure p is
  x int;
begin
  select a into x from t where b = 'x;y';
  for r in (select a, b from t) loop null; end loop;
  update t set a = 1;
end;`)
	c.Assert(err, IsNil)
	var sqls []string
	var lines []int
	pt.Walk(unit, func(n *pt.Node) bool {
		if n.Kind == pt.KStaticSQL {
			sqls = append(sqls, n.Text)
			lines = append(lines, n.Line)
		}
		return true
	})
	c.Assert(sqls, DeepEquals, []string{
		"select a into x from t where b = 'x;y'",
		"select a, b from t",
		"update t set a = 1",
	})
	c.Assert(lines, DeepEquals, []int{4, 5, 6})
}

var errorTests = []struct {
	input string
	err   string
}{{
	input: "procedure p is begin x := ; end;",
	err:   `syntax error at line 1, column 27: unexpected ';'`,
}, {
	input: "procedure p is\nbegin\n  null\nend;",
	err:   `syntax error at line 4, column 1: expecting ';' but found 'END'`,
}, {
	input: "procedure p is begin end;",
	err:   `syntax error at line 1, column 22: expecting a statement but found 'END'`,
}, {
	input: "procedure p is x blob; begin null; end;",
	err:   `syntax error at line 1, column 18: unknown type 'BLOB'`,
}, {
	input: "procedure p is begin <<l>> null; end;",
	err:   `syntax error at line 1, column 22: labels may only precede loops and blocks`,
}, {
	input: "select 1",
	err:   `syntax error at line 1, column 1: expecting PROCEDURE or FUNCTION but found 'SELECT'`,
}, {
	input: "procedure p is begin null; end; x",
	err:   `syntax error at line 1, column 33: unexpected 'X'`,
}, {
	input: "procedure p is c constant int; begin null; end;",
	err:   `syntax error at line 1, column 30: expecting ':=' but found ';'`,
}}

func (s *ParserSuite) TestErrors(c *C) {
	p := parse.NewParser()
	for _, t := range errorTests {
		unit, err := p.Parse(t.input)
		c.Check(unit, IsNil)
		c.Check(err, ErrorMatches, t.err, Commentf("input: %s", t.input))
	}
}
