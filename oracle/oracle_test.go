package oracle_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql/oracle"
)

// Hook up gocheck into the "go test" runner.
func TestOracle(t *testing.T) { TestingT(t) }

type OracleSuite struct {
	db     *sql.DB
	oracle *oracle.SQLOracle
}

var _ = Suite(&OracleSuite{})

func (s *OracleSuite) SetUpTest(c *C) {
	db, err := sql.Open("sqlite3", ":memory:")
	c.Assert(err, IsNil)
	// Every connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE t (a NUMERIC(10,2), s VARCHAR(20), d BLOB)`)
	c.Assert(err, IsNil)
	c.Assert(oracle.InitCatalog(ctx, db), IsNil)
	s.db = db
	s.oracle = oracle.NewSQLOracle(db, nil)
}

func (s *OracleSuite) TearDownTest(c *C) {
	s.db.Close()
}

func (s *OracleSuite) TestSQLSemantics(c *C) {
	sqls := []string{
		"SELECT a INTO x FROM t WHERE a > v",
		"INSERT INTO t (a) VALUES (r.f)",
		"SELECT a FROM nope",
		"SELECT 1 + 1 INTO n FROM DUAL",
		"SELECT s, d FROM t",
		"TRUNCATE t",
	}
	ret, err := s.oracle.SQLSemantics(context.Background(), sqls)
	c.Assert(err, IsNil)
	c.Assert(ret, HasLen, len(sqls))
	for i := range ret {
		c.Check(ret[i].Seq, Equals, i)
	}

	c.Check(ret[0].ErrCode, Equals, 0)
	c.Check(ret[0].Kind, Equals, oracle.StmtSelect)
	c.Check(ret[0].Rewritten, Equals, "SELECT a FROM t WHERE a > ?")
	c.Check(ret[0].HostExprs, DeepEquals, []string{"V"})
	c.Check(ret[0].IntoVars, DeepEquals, []string{"X"})
	c.Check(ret[0].Columns, DeepEquals, []oracle.Column{{
		Name:     "a",
		TypeInfo: oracle.TypeInfo{Type: oracle.DBNumeric, Precision: 10, Scale: 2},
	}})

	c.Check(ret[1].ErrCode, Equals, 0)
	c.Check(ret[1].Kind, Equals, oracle.StmtInsert)
	c.Check(ret[1].Rewritten, Equals, "INSERT INTO t (a) VALUES (?)")
	c.Check(ret[1].HostExprs, DeepEquals, []string{"R.F"})
	c.Check(ret[1].Columns, IsNil)

	c.Check(ret[2].ErrCode, Not(Equals), 0)
	c.Check(ret[2].ErrMsg, Equals, "no such table: nope")

	c.Check(ret[3].ErrCode, Equals, 0)
	c.Check(ret[3].Rewritten, Equals, "SELECT 1 + 1")
	c.Check(ret[3].IntoVars, DeepEquals, []string{"N"})
	c.Assert(ret[3].Columns, HasLen, 1)
	c.Check(ret[3].Columns[0].Type, Equals, oracle.DBInteger)

	c.Assert(ret[4].Columns, HasLen, 2)
	c.Check(ret[4].Columns[0].TypeInfo, Equals, oracle.TypeInfo{Type: oracle.DBString, Precision: 20})
	c.Check(ret[4].Columns[1].TypeInfo, Equals, oracle.TypeInfo{Type: oracle.DBBlob})

	c.Check(ret[5].ErrCode, Equals, 0)
	c.Check(ret[5].Kind, Equals, oracle.StmtTruncate)
}

func (s *OracleSuite) TestSQLSemanticsLeavesNoTrace(c *C) {
	_, err := s.oracle.SQLSemantics(context.Background(), []string{"INSERT INTO t (a) VALUES (1)"})
	c.Assert(err, IsNil)
	var n int
	c.Assert(s.db.QueryRow("SELECT count(*) FROM t").Scan(&n), IsNil)
	c.Check(n, Equals, 0)
}

func (s *OracleSuite) TestGlobalSemantics(c *C) {
	ctx := context.Background()
	err := oracle.RegisterRoutine(ctx, s.db, oracle.Routine{
		Name:     "f",
		Function: true,
		Params: []oracle.Param{
			{Name: "x", Mode: oracle.ModeIn, TypeInfo: oracle.TypeInfo{Type: oracle.DBInteger}},
		},
		Ret:       oracle.TypeInfo{Type: oracle.DBNumeric, Precision: 10, Scale: 2},
		Class:     "Func_F",
		Signature: "Func_F.F(java.lang.Integer) return java.math.BigDecimal",
	})
	c.Assert(err, IsNil)
	err = oracle.RegisterRoutine(ctx, s.db, oracle.Routine{
		Name: "p",
		Params: []oracle.Param{
			{Name: "a", Mode: oracle.ModeOut, TypeInfo: oracle.TypeInfo{Type: oracle.DBString, Precision: 10}},
			{Name: "b", Mode: oracle.ModeInOut, TypeInfo: oracle.TypeInfo{Type: oracle.DBDate}},
		},
		Class:     "Proc_P",
		Signature: "Proc_P.P(java.lang.String[], java.sql.Date[])",
	})
	c.Assert(err, IsNil)
	c.Assert(oracle.CreateSerial(ctx, s.db, "s1"), IsNil)

	questions := []oracle.Question{
		{Kind: oracle.AskFunction, Name: "F"},
		{Kind: oracle.AskProcedure, Name: "P"},
		{Kind: oracle.AskProcedure, Name: "Q"},
		{Kind: oracle.AskFunction, Name: "P"},
		{Kind: oracle.AskSerial, Name: "S1"},
		{Kind: oracle.AskSerial, Name: "S2"},
		{Kind: oracle.AskColumnType, Table: "t", Column: "A"},
		{Kind: oracle.AskColumnType, Table: "t", Column: "zz"},
		{Kind: oracle.AskColumnType, Table: "nope", Column: "a"},
	}
	ret, err := s.oracle.GlobalSemantics(ctx, questions)
	c.Assert(err, IsNil)
	c.Assert(ret, HasLen, len(questions))
	for i := range ret {
		c.Check(ret[i].Seq, Equals, i)
	}

	c.Check(ret[0].ErrCode, Equals, 0)
	c.Check(ret[0].Ret, Equals, oracle.TypeInfo{Type: oracle.DBNumeric, Precision: 10, Scale: 2})
	c.Check(ret[0].Params, DeepEquals, []oracle.Param{
		{Name: "X", Mode: oracle.ModeIn, TypeInfo: oracle.TypeInfo{Type: oracle.DBInteger}},
	})

	c.Check(ret[1].ErrCode, Equals, 0)
	c.Assert(ret[1].Params, HasLen, 2)
	c.Check(ret[1].Params[0].Mode, Equals, oracle.ModeOut)
	c.Check(ret[1].Params[1].TypeInfo, Equals, oracle.TypeInfo{Type: oracle.DBDate})

	c.Check(ret[2].ErrMsg, Equals, "undefined procedure Q")
	c.Check(ret[3].ErrMsg, Equals, "P is not a function")
	c.Check(ret[4].ErrCode, Equals, 0)
	c.Check(ret[5].ErrMsg, Equals, "serial S2 does not exist")

	c.Check(ret[6].ErrCode, Equals, 0)
	c.Check(ret[6].ColumnType, Equals, oracle.TypeInfo{Type: oracle.DBNumeric, Precision: 10, Scale: 2})
	c.Check(ret[7].ErrMsg, Equals, "column zz does not exist in table t")
	c.Check(ret[8].ErrMsg, Equals, "table nope does not exist")
}

func (s *OracleSuite) TestRegisterRoutineReplaces(c *C) {
	ctx := context.Background()
	r := oracle.Routine{
		Name:   "p",
		Params: []oracle.Param{{Name: "a", TypeInfo: oracle.TypeInfo{Type: oracle.DBInteger}}},
		Class:  "Proc_P",
	}
	c.Assert(oracle.RegisterRoutine(ctx, s.db, r), IsNil)
	r.Params = nil
	c.Assert(oracle.RegisterRoutine(ctx, s.db, r), IsNil)

	ret, err := s.oracle.GlobalSemantics(ctx, []oracle.Question{{Kind: oracle.AskProcedure, Name: "p"}})
	c.Assert(err, IsNil)
	c.Assert(ret, HasLen, 1)
	c.Check(ret[0].ErrCode, Equals, 0)
	c.Check(ret[0].Params, HasLen, 0)
}
