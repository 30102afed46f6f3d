package symbols_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/symbols"
	"github.com/canonical/plcsql/internal/types"
)

type OverloadSuite struct{}

var _ = Suite(&OverloadSuite{})

var operatorTests = []struct {
	summary string
	name    string
	args    []*types.Type
	op      string
}{{
	summary: "integer addition",
	name:    "opAdd",
	args:    []*types.Type{types.Int, types.Short},
	op:      "opAdd(INT, INT) INT",
}, {
	summary: "string and number are added as doubles",
	name:    "opAdd",
	args:    []*types.Type{types.Varchar(10), types.Int},
	op:      "opAdd(DOUBLE, DOUBLE) DOUBLE",
}, {
	summary: "date plus a number of days",
	name:    "opAdd",
	args:    []*types.Type{types.Date, types.Int},
	op:      "opAdd(DATE, BIGINT) DATE",
}, {
	summary: "difference of dates",
	name:    "opSubtract",
	args:    []*types.Type{types.Date, types.Date},
	op:      "opSubtract(DATE, DATE) BIGINT",
}, {
	summary: "comparison of nulls",
	name:    "opEq",
	args:    []*types.Type{types.Null, types.Null},
	op:      "opEq(OBJECT, OBJECT) BOOLEAN",
}, {
	summary: "modulo of numerics",
	name:    "opMod",
	args:    []*types.Type{types.Numeric(10, 2), types.Int},
	op:      "opMod(BIGINT, BIGINT) BIGINT",
}, {
	summary: "in list",
	name:    "opIn",
	args:    []*types.Type{types.Int, types.Int, types.Short, types.Int},
	op:      "opIn(INT, INT...) BOOLEAN",
}, {
	summary: "in list with disagreeing types",
	name:    "opIn",
	args:    []*types.Type{types.Int, types.Short, types.Double},
	op:      "opIn(OBJECT, OBJECT...) BOOLEAN",
}, {
	summary: "between",
	name:    "opBetween",
	args:    []*types.Type{types.Datetime, types.Datetime, types.Date},
	op:      "opBetween(DATETIME, DATETIME, DATETIME) BOOLEAN",
}, {
	summary: "like",
	name:    "opLike",
	args:    []*types.Type{types.Char(3), types.StringAny, types.Null},
	op:      "opLike(STRING, STRING, STRING) BOOLEAN",
}, {
	summary: "unary minus",
	name:    "opNeg",
	args:    []*types.Type{types.Float},
	op:      "opNeg(FLOAT) FLOAT",
}}

func (s *OverloadSuite) TestLookupOperator(c *C) {
	for _, t := range operatorTests {
		o, cs := symbols.LookupOperator(t.name, t.args...)
		c.Assert(o, NotNil, Commentf("test %q", t.summary))
		c.Check(o.String(), Equals, t.op, Commentf("test %q", t.summary))
		c.Check(cs, HasLen, len(t.args), Commentf("test %q", t.summary))
	}
}

func (s *OverloadSuite) TestNotApplicable(c *C) {
	o, cs := symbols.LookupOperator("opAdd", types.Boolean, types.Int)
	c.Check(o, IsNil)
	c.Check(cs, IsNil)
	o, _ = symbols.LookupOperator("opLt", types.Cursor, types.Cursor)
	c.Check(o, IsNil)
	o, _ = symbols.LookupOperator("opMult", types.Date, types.Int)
	c.Check(o, IsNil)
}

func (s *OverloadSuite) TestUnknownOperator(c *C) {
	c.Assert(func() { symbols.LookupOperator("opPow", types.Int) }, PanicMatches, "internal error: unknown operator opPow")
}

// Every argument types the schemes accept must select an overload, and the
// coercions must lead to its parameter types.
func (s *OverloadSuite) TestEveryBinaryApplicationHasAnOverload(c *C) {
	binary := []string{
		"opAnd", "opOr", "opXor", "opEq", "opNullSafeEq", "opNeq", "opLe", "opGe", "opLt", "opGt",
		"opMult", "opDiv", "opDivInt", "opMod", "opAdd", "opSubtract", "opConcat",
		"opBitShiftLeft", "opBitShiftRight", "opBitAnd", "opBitXor", "opBitOr", "opIn",
	}
	all := types.All()
	for _, name := range binary {
		for _, l := range all {
			for _, r := range all {
				o, cs := symbols.LookupOperator(name, l, r)
				if o == nil {
					continue
				}
				comment := Commentf("%s(%s, %s)", name, l, r)
				c.Assert(cs, HasLen, 2, comment)
				c.Check(cs[0].Src, Equals, l, comment)
				c.Check(cs[1].Src, Equals, r, comment)
				c.Check(cs[0].Dst, Equals, o.Params[0], comment)
				c.Check(cs[1].Dst, Equals, o.Params[1], comment)
			}
		}
	}
	for _, name := range []string{"opNot", "opIsNull", "opNeg", "opBitCompli"} {
		for _, t := range all {
			o, cs := symbols.LookupOperator(name, t)
			if o == nil {
				continue
			}
			c.Check(cs[0].Dst, Equals, o.Params[0], Commentf("%s(%s)", name, t))
		}
	}
}

func TestPredefinedConcurrent(t *testing.T) {
	wg := sync.WaitGroup{}

	ops := make([]*symbols.Operator, 10)
	stacks := make([]*symbols.Stack, 10)
	for i := 0; i < len(ops); i++ {
		wg.Add(1)
		go func(i int) {
			ops[i], _ = symbols.LookupOperator("opConcat", types.StringAny, types.Int)
			stacks[i] = symbols.NewStack()
			wg.Done()
		}(i)
	}
	wg.Wait()

	first, cs := symbols.LookupOperator("opConcat", types.StringAny, types.Int)
	assert.NotNil(t, first)
	assert.Equal(t, coercion.Conversion, cs[1].Kind)
	abs := symbols.NewStack().Decl("ABS")
	for i := range ops {
		assert.Same(t, first, ops[i])
		assert.Same(t, abs, stacks[i].Decl("ABS"))
	}
}
