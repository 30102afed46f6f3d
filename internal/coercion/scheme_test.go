package coercion_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/types"
)

type SchemeSuite struct{}

var _ = Suite(&SchemeSuite{})

var allSchemes = []coercion.Scheme{
	coercion.CompOp, coercion.ArithOp, coercion.IntArithOp,
	coercion.LogicalOp, coercion.StringOp, coercion.BitOp, coercion.ObjectOp,
}

func (s *SchemeSuite) TestShape(c *C) {
	all := types.All()
	for _, scheme := range allSchemes {
		for _, l := range all {
			for _, r := range all {
				args := []*types.Type{l, r}
				out, cs, ok := scheme.Coercions(args, "opAdd")
				comment := Commentf("%s(%s, %s)", scheme, l, r)
				if !ok {
					c.Check(out, IsNil, comment)
					c.Check(cs, IsNil, comment)
					continue
				}
				c.Assert(out, HasLen, 2, comment)
				c.Assert(cs, HasLen, 2, comment)
				for i := range args {
					c.Check(cs[i].Src, Equals, args[i], comment)
					c.Check(cs[i].Dst, Equals, out[i], comment)
				}
			}
		}
	}
}

func (s *SchemeSuite) TestNullsBecomeObjects(c *C) {
	nulls := []*types.Type{types.Null, types.Null}
	for _, scheme := range []coercion.Scheme{coercion.CompOp, coercion.ArithOp, coercion.IntArithOp, coercion.NAryCompOp} {
		for _, opName := range []string{"opAdd", "opSubtract", "opEq"} {
			out, cs, ok := scheme.Coercions(nulls, opName)
			c.Assert(ok, Equals, true)
			c.Check(out, DeepEquals, []*types.Type{types.Object, types.Object}, Commentf("%s", scheme))
			c.Check(cs[0].Kind, Equals, coercion.Cast)
		}
	}
	out, _, ok := coercion.ArithOp.Coercions([]*types.Type{types.Null}, "opNeg")
	c.Assert(ok, Equals, true)
	c.Check(out, DeepEquals, []*types.Type{types.Object})
}

var schemeTests = []struct {
	summary string
	scheme  coercion.Scheme
	op      string
	args    []*types.Type
	out     []*types.Type
}{{
	summary: "numbers are compared as the wider type",
	scheme:  coercion.CompOp,
	op:      "opLt",
	args:    []*types.Type{types.Short, types.Bigint},
	out:     []*types.Type{types.Bigint, types.Bigint},
}, {
	summary: "strings and numbers are compared as doubles",
	scheme:  coercion.CompOp,
	op:      "opEq",
	args:    []*types.Type{types.Varchar(5), types.Int},
	out:     []*types.Type{types.Double, types.Double},
}, {
	summary: "timestamp and datetime are compared as datetimes",
	scheme:  coercion.CompOp,
	op:      "opEq",
	args:    []*types.Type{types.Timestamp, types.Datetime},
	out:     []*types.Type{types.Datetime, types.Datetime},
}, {
	summary: "between with agreeing types",
	scheme:  coercion.NAryCompOp,
	op:      "opBetween",
	args:    []*types.Type{types.Int, types.Short, types.Int},
	out:     []*types.Type{types.Int, types.Int, types.Int},
}, {
	summary: "in list degrades to objects",
	scheme:  coercion.NAryCompOp,
	op:      "opIn",
	args:    []*types.Type{types.Int, types.Short, types.Float},
	out:     []*types.Type{types.Object, types.Object, types.Object},
}, {
	summary: "date plus number",
	scheme:  coercion.ArithOp,
	op:      "opAdd",
	args:    []*types.Type{types.Date, types.Int},
	out:     []*types.Type{types.Date, types.Bigint},
}, {
	summary: "string plus timestamp",
	scheme:  coercion.ArithOp,
	op:      "opAdd",
	args:    []*types.Type{types.StringAny, types.Timestamp},
	out:     []*types.Type{types.Bigint, types.Timestamp},
}, {
	summary: "datetime minus null",
	scheme:  coercion.ArithOp,
	op:      "opSubtract",
	args:    []*types.Type{types.Datetime, types.Null},
	out:     []*types.Type{types.Datetime, types.Bigint},
}, {
	summary: "null minus date",
	scheme:  coercion.ArithOp,
	op:      "opSubtract",
	args:    []*types.Type{types.Null, types.Date},
	out:     []*types.Type{types.Date, types.Date},
}, {
	summary: "timestamp minus datetime",
	scheme:  coercion.ArithOp,
	op:      "opSubtract",
	args:    []*types.Type{types.Timestamp, types.Datetime},
	out:     []*types.Type{types.Datetime, types.Datetime},
}, {
	summary: "date minus string",
	scheme:  coercion.ArithOp,
	op:      "opSubtract",
	args:    []*types.Type{types.Date, types.StringAny},
	out:     []*types.Type{types.Datetime, types.Datetime},
}, {
	summary: "integer division of float and numeric",
	scheme:  coercion.IntArithOp,
	op:      "opDivInt",
	args:    []*types.Type{types.Float, types.NumericAny},
	out:     []*types.Type{types.Bigint, types.Bigint},
}, {
	summary: "bit complement of a short",
	scheme:  coercion.IntArithOp,
	op:      "opBitCompli",
	args:    []*types.Type{types.Short},
	out:     []*types.Type{types.Short},
}, {
	summary: "concatenation of a number",
	scheme:  coercion.StringOp,
	op:      "opConcat",
	args:    []*types.Type{types.Char(2), types.Double},
	out:     []*types.Type{types.StringAny, types.StringAny},
}}

func (s *SchemeSuite) TestCoercions(c *C) {
	for _, t := range schemeTests {
		out, cs, ok := t.scheme.Coercions(t.args, t.op)
		c.Assert(ok, Equals, true, Commentf("test %q", t.summary))
		c.Check(out, DeepEquals, t.out, Commentf("test %q", t.summary))
		c.Check(cs, HasLen, len(t.args), Commentf("test %q", t.summary))
	}
}

var notApplicableTests = []struct {
	summary string
	scheme  coercion.Scheme
	op      string
	args    []*types.Type
}{
	{"boolean and number", coercion.CompOp, "opEq", []*types.Type{types.Boolean, types.Int}},
	{"multiplied dates", coercion.ArithOp, "opMult", []*types.Type{types.Date, types.Int}},
	{"number minus date", coercion.ArithOp, "opSubtract", []*types.Type{types.Int, types.Date}},
	{"date plus date", coercion.ArithOp, "opAdd", []*types.Type{types.Date, types.Date}},
	{"modulo of dates", coercion.IntArithOp, "opMod", []*types.Type{types.Date, types.Int}},
	{"not of a cursor", coercion.LogicalOp, "opNot", []*types.Type{types.Cursor}},
	{"between with a boolean", coercion.NAryCompOp, "opBetween", []*types.Type{types.Int, types.Boolean, types.Int}},
}

func (s *SchemeSuite) TestNotApplicable(c *C) {
	for _, t := range notApplicableTests {
		out, cs, ok := t.scheme.Coercions(t.args, t.op)
		c.Check(ok, Equals, false, Commentf("test %q", t.summary))
		c.Check(out, IsNil)
		c.Check(cs, IsNil)
	}
}

func (s *SchemeSuite) TestCommonType(c *C) {
	c.Check(coercion.CommonType(types.Int, types.Numeric(5, 2)), Equals, types.NumericAny)
	c.Check(coercion.CommonType(types.Null, types.Date), Equals, types.Date)
	c.Check(coercion.CommonType(types.Null, types.Null), Equals, types.Object)
	c.Check(coercion.CommonType(types.Boolean, types.Date), IsNil)
}
