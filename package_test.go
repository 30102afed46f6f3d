package plcsql_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql"
	"github.com/canonical/plcsql/oracle"
)

// Hook up gocheck into the "go test" runner.
func TestPackage(t *testing.T) { TestingT(t) }

type PackageSuite struct {
	db *sql.DB
}

var _ = Suite(&PackageSuite{})

const createTables = `
CREATE TABLE person (
	name VARCHAR(40),
	id INTEGER,
	address_id INTEGER
);
CREATE TABLE address (
	id INTEGER,
	district VARCHAR(40),
	street VARCHAR(40)
);
`

// openDB opens an in-memory catalog holding the example tables, on the
// counting driver so that tests can check what the oracle runs.
func openDB(c *C) *sql.DB {
	db, err := sql.Open("sqlite3_counted", "file:"+c.TestName()+"?mode=memory&cache=shared&"+testNameTag+"="+c.TestName())
	c.Assert(err, IsNil)
	// Every connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	ctx := context.Background()
	_, err = db.ExecContext(ctx, createTables)
	c.Assert(err, IsNil)
	c.Assert(oracle.InitCatalog(ctx, db), IsNil)
	return db
}

func (s *PackageSuite) SetUpTest(c *C) {
	s.db = openDB(c)
}

func (s *PackageSuite) TearDownTest(c *C) {
	s.db.Close()
}

func (s *PackageSuite) compiler(opts ...plcsql.Option) *plcsql.Compiler {
	return plcsql.NewCompiler(oracle.NewSQLOracle(s.db, nil), opts...)
}

const findPerson = `
CREATE OR REPLACE PROCEDURE find_person(who VARCHAR, n OUT INT) IS
BEGIN
  SELECT id INTO n FROM person WHERE name = who;
EXCEPTION
  WHEN NO_DATA_FOUND THEN
    n := -1;
END;`

func (s *PackageSuite) TestCompileProcedure(c *C) {
	res, err := s.compiler().Compile(context.Background(), findPerson)
	c.Assert(err, IsNil)
	c.Check(res.ClassName, Equals, "Proc_FIND_PERSON")
	c.Check(res.Signature, Equals, "Proc_FIND_PERSON.FIND_PERSON(java.lang.String, java.lang.Integer[])")
	c.Check(res.ConnectionRequired, Equals, true)
	c.Check(res.Routine, DeepEquals, oracle.Routine{
		Name: "FIND_PERSON",
		Params: []oracle.Param{
			{Name: "WHO", Mode: oracle.ModeIn, TypeInfo: oracle.TypeInfo{Type: oracle.DBString, Precision: 1073741823}},
			{Name: "N", Mode: oracle.ModeOut, TypeInfo: oracle.TypeInfo{Type: oracle.DBInteger}},
		},
		Class:     "Proc_FIND_PERSON",
		Signature: "Proc_FIND_PERSON.FIND_PERSON(java.lang.String, java.lang.Integer[])",
	})
	c.Check(strings.Contains(res.Source, `"SELECT id FROM person WHERE name = ?"`), Equals, true)
	c.Check(strings.Contains(res.Source, "catch (NO_DATA_FOUND e1)"), Equals, true)
}

func (s *PackageSuite) TestCompileFunction(c *C) {
	src := `
CREATE FUNCTION twice(x INT) RETURN BIGINT IS
BEGIN
  RETURN x * 2;
END;`
	res, err := s.compiler().Compile(context.Background(), src)
	c.Assert(err, IsNil)
	c.Check(res.ClassName, Equals, "Func_TWICE")
	c.Check(res.Signature, Equals, "Func_TWICE.TWICE(java.lang.Integer) return java.lang.Long")
	c.Check(res.ConnectionRequired, Equals, false)
	c.Check(res.Routine.Function, Equals, true)
	c.Check(res.Routine.Ret, Equals, oracle.TypeInfo{Type: oracle.DBBigint})
}

var userErrorTests = []struct {
	summary string
	src     string
	kind    plcsql.ErrorKind
	err     string
}{{
	summary: "missing expression",
	src:     "PROCEDURE p IS BEGIN x := ; END;",
	kind:    plcsql.KindSyntax,
	err:     "syntax error at line 1, .*",
}, {
	summary: "undeclared identifier",
	src:     "PROCEDURE p IS BEGIN x := 1; END;",
	kind:    plcsql.KindSemantic,
	err:     `semantic error at line 1, column \d+: undeclared id X`,
}, {
	summary: "unknown table",
	src:     "PROCEDURE p IS n INT; BEGIN SELECT id INTO n FROM nobody; END;",
	kind:    plcsql.KindSemantic,
	err:     "semantic error at line 1, .*no such table: nobody.*",
}, {
	summary: "unknown stored procedure",
	src:     "PROCEDURE p IS BEGIN q(1); END;",
	kind:    plcsql.KindSemantic,
	err:     "semantic error at line 1, .*: undefined procedure Q",
}}

func (s *PackageSuite) TestUserErrors(c *C) {
	comp := s.compiler()
	for _, t := range userErrorTests {
		_, err := comp.Compile(context.Background(), t.src)
		c.Assert(err, NotNil, Commentf("test %q", t.summary))
		var perr *plcsql.Error
		c.Assert(errors.As(err, &perr), Equals, true, Commentf("test %q: %v", t.summary, err))
		c.Check(perr.Kind, Equals, t.kind, Commentf("test %q", t.summary))
		c.Check(err, ErrorMatches, t.err, Commentf("test %q", t.summary))
	}
}

func (s *PackageSuite) TestRegisteredRoutineCall(c *C) {
	ctx := context.Background()
	comp := s.compiler()

	res, err := comp.Compile(ctx, findPerson)
	c.Assert(err, IsNil)
	c.Assert(oracle.RegisterRoutine(ctx, s.db, res.Routine), IsNil)

	src := `
CREATE PROCEDURE report IS
  n INT;
BEGIN
  find_person('Fred', n);
  DBMS_OUTPUT.PUT_LINE('found');
END;`
	res, err = comp.Compile(ctx, src)
	c.Assert(err, IsNil)
	c.Check(strings.Contains(res.Source, `conn.prepareCall("call FIND_PERSON(?, ?)")`), Equals, true)
}

// brokenOracle fails every request.
type brokenOracle struct{}

func (brokenOracle) SQLSemantics(ctx context.Context, sqls []string) ([]oracle.SQLSemantics, error) {
	return nil, errors.New("connection refused")
}

func (brokenOracle) GlobalSemantics(ctx context.Context, questions []oracle.Question) ([]oracle.Answer, error) {
	return nil, errors.New("connection refused")
}

func (s *PackageSuite) TestInternalErrorLogged(c *C) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	comp := plcsql.NewCompiler(brokenOracle{}, plcsql.WithLogger(logger))

	_, err := comp.Compile(context.Background(), findPerson)
	c.Assert(err, Equals, plcsql.ErrInternal)
	c.Check(buf.String(), Matches, `(?s).*level=ERROR msg="compilation failed" compile=\S+ error=.*connection refused.*cannot analyse static SQL.*`)
}

func (s *PackageSuite) TestUserErrorsNotInternal(c *C) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	comp := plcsql.NewCompiler(brokenOracle{}, plcsql.WithLogger(logger))

	_, err := comp.Compile(context.Background(), "PROCEDURE p IS BEGIN x := ; END;")
	c.Assert(err, Not(Equals), plcsql.ErrInternal)
	c.Check(buf.String(), Matches, `(?s).*level=DEBUG msg=rejected.*`)
	c.Check(strings.Contains(buf.String(), "level=ERROR"), Equals, false)
}

func (s *PackageSuite) TestSQLCache(c *C) {
	ctx := context.Background()
	comp := s.compiler(plcsql.WithSQLCache())

	_, err := comp.Compile(ctx, findPerson)
	c.Assert(err, IsNil)
	c.Check(plcsql.CachedSQL(comp), Equals, 1)

	// The second compilation asks nothing to the database.
	before := statementCount(c.TestName())
	_, err = comp.Compile(ctx, findPerson)
	c.Assert(err, IsNil)
	c.Check(statementCount(c.TestName()), Equals, before)

	comp.ForgetSQL()
	c.Check(plcsql.CachedSQL(comp), Equals, 0)
	_, err = comp.Compile(ctx, findPerson)
	c.Assert(err, IsNil)
	c.Check(statementCount(c.TestName()) > before, Equals, true)
}

func (s *PackageSuite) TestWithoutSQLCache(c *C) {
	ctx := context.Background()
	comp := s.compiler()

	_, err := comp.Compile(ctx, findPerson)
	c.Assert(err, IsNil)
	before := statementCount(c.TestName())
	_, err = comp.Compile(ctx, findPerson)
	c.Assert(err, IsNil)
	c.Check(statementCount(c.TestName()) > before, Equals, true)
	c.Check(plcsql.CachedSQL(comp), Equals, 0)
}
