package coercion_test

import (
	"testing"

	. "gopkg.in/check.v1"

	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/types"
)

// Hook up gocheck into the "go test" runner.
func TestCoercion(t *testing.T) { TestingT(t) }

type CoercionSuite struct{}

var _ = Suite(&CoercionSuite{})

func (s *CoercionSuite) TestIdentity(c *C) {
	for _, t := range append(types.All(), types.Char(5), types.Numeric(10, 2)) {
		co := coercion.Get(t, t)
		c.Assert(co, NotNil)
		c.Check(co.Kind, Equals, coercion.Identity, Commentf("type %s", t))
	}
}

func (s *CoercionSuite) TestNullIsCastToAnything(c *C) {
	for _, t := range append(types.All()[1:], types.Varchar(10), types.Numeric(5, 1)) {
		co := coercion.Get(types.Null, t)
		c.Assert(co, NotNil)
		c.Check(co.Kind, Equals, coercion.Cast, Commentf("type %s", t))
		c.Check(coercion.Reversion(co), IsNil)
	}
}

func (s *CoercionSuite) TestAnythingToObjectIsIdentity(c *C) {
	for _, t := range types.All()[1:] {
		co := coercion.Get(t, types.Object)
		c.Assert(co, NotNil)
		c.Check(co.Kind, Equals, coercion.Identity)
	}
}

func (s *CoercionSuite) TestMemoized(c *C) {
	c.Assert(coercion.Get(types.Int, types.Bigint), Equals, coercion.Get(types.Int, types.Bigint))
	c.Assert(coercion.Get(types.Short, types.Numeric(4, 0)), Equals, coercion.Get(types.Short, types.Numeric(4, 0)))
	c.Assert(coercion.Get(types.Boolean, types.Int), IsNil)
	c.Assert(coercion.Get(types.Boolean, types.Int), IsNil)
}

var conversionTests = []struct {
	src, dst *types.Type
	kind     coercion.Kind
	fn       string
}{
	{types.Int, types.Bigint, coercion.Conversion, "convIntToBigint"},
	{types.StringAny, types.Date, coercion.Conversion, "convStringToDate"},
	{types.Datetime, types.Timestamp, coercion.Conversion, "convDatetimeToTimestamp"},
	{types.Boolean, types.StringAny, coercion.Conversion, "convBooleanToString"},
	{types.Object, types.Boolean, coercion.Conversion, "convObjectToBoolean"},
	{types.Double, types.Bigint, coercion.Conversion, "convDoubleToBigint"},
	{types.Char(3), types.StringAny, coercion.Identity, ""},
	{types.Numeric(10, 2), types.NumericAny, coercion.Identity, ""},
}

func (s *CoercionSuite) TestConversions(c *C) {
	for i, t := range conversionTests {
		co := coercion.Get(t.src, t.dst)
		c.Assert(co, NotNil, Commentf("test %d", i))
		c.Check(co.Kind, Equals, t.kind, Commentf("test %d", i))
		c.Check(co.Func, Equals, t.fn, Commentf("test %d", i))
		c.Check(co.Src, Equals, t.src)
		c.Check(co.Dst, Equals, t.dst)
	}
}

var noCoercionTests = []struct {
	src, dst *types.Type
}{
	{types.Boolean, types.Int},
	{types.Int, types.Boolean},
	{types.Time, types.Date},
	{types.Date, types.Time},
	{types.Numeric(5, 0), types.Time},
	{types.Cursor, types.StringAny},
	{types.SysRefcursor, types.Cursor},
	{types.StringAny, types.Boolean},
	{types.Object, types.Cursor},
}

func (s *CoercionSuite) TestNoCoercion(c *C) {
	for _, t := range noCoercionTests {
		c.Check(coercion.Get(t.src, t.dst), IsNil, Commentf("%s -> %s", t.src, t.dst))
	}
}

// A conversion exists between distinct generic types exactly when the pair
// is in the allow-list.
func (s *CoercionSuite) TestConversionClosure(c *C) {
	for _, src := range types.All()[2:] {
		for _, dst := range types.All()[2:] {
			if src == dst {
				continue
			}
			co := coercion.Get(src, dst)
			if coercion.Convertible(src.Idx, dst.Idx) {
				c.Assert(co, NotNil, Commentf("%s -> %s", src, dst))
				c.Check(co.Kind, Equals, coercion.Conversion)
			} else {
				c.Check(co, IsNil, Commentf("%s -> %s", src, dst))
			}
		}
	}
}

func (s *CoercionSuite) TestPrecisionCheck(c *C) {
	dst := types.Numeric(10, 2)

	co := coercion.Get(types.Int, dst)
	c.Assert(co, NotNil)
	c.Assert(co.Kind, Equals, coercion.PrecisionCheck)
	c.Assert(co.Inner.Kind, Equals, coercion.Conversion)
	c.Assert(co.Inner.Func, Equals, "convIntToNumeric")
	c.Assert(co.JavaCode("x"), Equals, "checkPrecision(10, (short) 2, convIntToNumeric(x))")

	co = coercion.Get(types.NumericAny, dst)
	c.Assert(co.Kind, Equals, coercion.PrecisionCheck)
	c.Assert(co.Inner.Kind, Equals, coercion.Identity)
	c.Assert(co.JavaCode("x"), Equals, "checkPrecision(10, (short) 2, x)")
}

func (s *CoercionSuite) TestLengthCheck(c *C) {
	co := coercion.Get(types.Int, types.Char(4))
	c.Assert(co, NotNil)
	c.Assert(co.Kind, Equals, coercion.LengthCheck)
	c.Assert(co.JavaCode("x"), Equals, "checkStrLength(true, 4, convIntToString(x))")

	co = coercion.Get(types.StringAny, types.Varchar(20))
	c.Assert(co.Kind, Equals, coercion.LengthCheck)
	c.Assert(co.Inner.Kind, Equals, coercion.Identity)
	c.Assert(co.JavaCode("x"), Equals, "checkStrLength(false, 20, x)")
}

func (s *CoercionSuite) TestJavaCode(c *C) {
	c.Assert(coercion.Get(types.Int, types.Int).JavaCode("x"), Equals, "x")
	c.Assert(coercion.Get(types.Null, types.Int).JavaCode("null"), Equals, "(java.lang.Integer) null")
	c.Assert(coercion.Get(types.Short, types.Double).JavaCode("x"), Equals, "convShortToDouble(x)")
}

func (s *CoercionSuite) TestReversion(c *C) {
	co := coercion.Get(types.Int, types.Bigint)
	rev := coercion.Reversion(co)
	c.Assert(rev, NotNil)
	c.Assert(rev.Src, Equals, types.Bigint)
	c.Assert(rev.Dst, Equals, types.Int)

	// The parameter accepts any value but its result cannot be stored back.
	co = coercion.Get(types.Cursor, types.Object)
	c.Assert(co.Kind, Equals, coercion.Identity)
	c.Assert(coercion.Reversion(co), IsNil)

	co = coercion.Get(types.Date, types.Datetime)
	c.Assert(coercion.Reversion(co).Func, Equals, "convDatetimeToDate")
}
