package oracle_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql/oracle"
)

type SQLTextSuite struct{}

var _ = Suite(&SQLTextSuite{})

var rewriteTests = []struct {
	summary   string
	sql       string
	hosts     []string
	kind      oracle.StmtKind
	rewritten string
	into      []string
	marked    []string
}{{
	summary:   "into-clause after the select list",
	sql:       "SELECT a, b INTO x, y FROM t WHERE a > 1",
	kind:      oracle.StmtSelect,
	rewritten: "SELECT a, b FROM t WHERE a > 1",
	into:      []string{"X", "Y"},
}, {
	summary:   "into-clause at the end",
	sql:       "select max(a) from t into m",
	kind:      oracle.StmtSelect,
	rewritten: "select max(a) from t",
	into:      []string{"M"},
}, {
	summary:   "into in a subquery is kept",
	sql:       "select (select 1 into z) from t",
	kind:      oracle.StmtSelect,
	rewritten: "select (select 1 into z) from t",
}, {
	summary:   "from dual",
	sql:       "SELECT abs(-1) INTO n FROM DUAL",
	kind:      oracle.StmtSelect,
	rewritten: "SELECT abs(-1)",
	into:      []string{"N"},
}, {
	summary:   "host variables",
	sql:       "UPDATE t SET a = v WHERE b = r.f AND c = 'v'",
	hosts:     []string{"v", "r.f"},
	kind:      oracle.StmtUpdate,
	rewritten: "UPDATE t SET a = ? WHERE b = ? AND c = 'v'",
	marked:    []string{"V", "R.F"},
}, {
	summary:   "qualified column is not a host variable",
	sql:       "delete from t where t.v = v",
	hosts:     []string{"v"},
	kind:      oracle.StmtDelete,
	rewritten: "delete from t where t.v = ?",
	marked:    []string{"V"},
}, {
	summary:   "comments and quoted identifiers",
	sql:       "insert /* v */ into t (\"v\") values (v) -- v",
	hosts:     []string{"v"},
	kind:      oracle.StmtInsert,
	rewritten: "insert /* v */ into t (\"v\") values (?) -- v",
	marked:    []string{"V"},
}, {
	summary:   "parenthesized query",
	sql:       "(select 1)",
	kind:      oracle.StmtSelect,
	rewritten: "(select 1)",
}, {
	summary:   "not embeddable",
	sql:       "create table t (a int)",
	kind:      oracle.StmtOther,
	rewritten: "create table t (a int)",
}}

func (s *SQLTextSuite) TestRewrite(c *C) {
	for _, t := range rewriteTests {
		kind, rewritten, into, marked := oracle.Rewrite(t.sql, t.hosts...)
		c.Check(kind, Equals, t.kind, Commentf("test %q", t.summary))
		c.Check(rewritten, Equals, t.rewritten, Commentf("test %q", t.summary))
		c.Check(into, DeepEquals, t.into, Commentf("test %q", t.summary))
		c.Check(marked, DeepEquals, t.marked, Commentf("test %q", t.summary))
	}
}

var declTypeTests = []struct {
	decl string
	ti   oracle.TypeInfo
}{
	{"INTEGER", oracle.TypeInfo{Type: oracle.DBInteger}},
	{"numeric(10, 2)", oracle.TypeInfo{Type: oracle.DBNumeric, Precision: 10, Scale: 2}},
	{"DECIMAL", oracle.TypeInfo{Type: oracle.DBNumeric, Precision: 15}},
	{"varchar(20)", oracle.TypeInfo{Type: oracle.DBString, Precision: 20}},
	{"TEXT", oracle.TypeInfo{Type: oracle.DBString, Precision: -1}},
	{"CHAR(3)", oracle.TypeInfo{Type: oracle.DBChar, Precision: 3}},
	{"double precision", oracle.TypeInfo{Type: oracle.DBDouble}},
	{"BLOB", oracle.TypeInfo{Type: oracle.DBBlob}},
	{"GEOMETRY", oracle.TypeInfo{Type: oracle.DBObject}},
}

func (s *SQLTextSuite) TestParseDeclType(c *C) {
	for _, t := range declTypeTests {
		ti, ok := oracle.ParseDeclType(t.decl)
		c.Assert(ok, Equals, true, Commentf("%s", t.decl))
		c.Check(ti, Equals, t.ti, Commentf("%s", t.decl))
	}
	_, ok := oracle.ParseDeclType("")
	c.Check(ok, Equals, false)
}
