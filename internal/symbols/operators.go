// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package symbols

import (
	"fmt"
	"strings"

	"github.com/canonical/plcsql/internal/coercion"
	"github.com/canonical/plcsql/internal/types"
)

// Operator is one overload of a language operator. Operators are implemented
// by static methods of the same name in the server's runtime library.
type Operator struct {
	Name   string
	Scheme coercion.Scheme
	Params []*types.Type
	// Variadic is set when the last parameter may be repeated.
	Variadic bool
	Ret      *types.Type
}

func (o *Operator) String() string {
	return fmt.Sprintf("%s(%s) %s", o.Name, paramKey(o.Params, o.Variadic), o.Ret)
}

func paramKey(params []*types.Type, variadic bool) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.PlcName
	}
	key := strings.Join(names, ", ")
	if variadic {
		key += "..."
	}
	return key
}

var (
	tBoolean   = types.Boolean
	tString    = types.StringAny
	tShort     = types.Short
	tInt       = types.Int
	tBigint    = types.Bigint
	tNumeric   = types.NumericAny
	tFloat     = types.Float
	tDouble    = types.Double
	tDate      = types.Date
	tTime      = types.Time
	tDatetime  = types.Datetime
	tTimestamp = types.Timestamp
	tObject    = types.Object
)

func op(name string, scheme coercion.Scheme, ret *types.Type, params ...*types.Type) *Operator {
	return &Operator{Name: name, Scheme: scheme, Params: params, Ret: ret}
}

// comparedTypes are the types that comparison operators are defined on.
var comparedTypes = []*types.Type{
	tBoolean, tString, tShort, tInt, tBigint, tNumeric, tFloat, tDouble,
	tDate, tTime, tDatetime, tTimestamp, tObject,
}

// operatorCatalogue returns every operator overload of the language.
func operatorCatalogue() []*Operator {
	ops := []*Operator{
		op("opNot", coercion.LogicalOp, tBoolean, tBoolean),
		op("opIsNull", coercion.ObjectOp, tBoolean, tObject),

		op("opNeg", coercion.ArithOp, tShort, tShort),
		op("opNeg", coercion.ArithOp, tInt, tInt),
		op("opNeg", coercion.ArithOp, tBigint, tBigint),
		op("opNeg", coercion.ArithOp, tNumeric, tNumeric),
		op("opNeg", coercion.ArithOp, tFloat, tFloat),
		op("opNeg", coercion.ArithOp, tDouble, tDouble),
		op("opNeg", coercion.ArithOp, tObject, tObject),

		op("opBitCompli", coercion.IntArithOp, tBigint, tShort),
		op("opBitCompli", coercion.IntArithOp, tBigint, tInt),
		op("opBitCompli", coercion.IntArithOp, tBigint, tBigint),
		op("opBitCompli", coercion.IntArithOp, tObject, tObject),

		op("opAnd", coercion.LogicalOp, tBoolean, tBoolean, tBoolean),
		op("opOr", coercion.LogicalOp, tBoolean, tBoolean, tBoolean),
		op("opXor", coercion.LogicalOp, tBoolean, tBoolean, tBoolean),

		op("opMult", coercion.ArithOp, tShort, tShort, tShort),
		op("opMult", coercion.ArithOp, tInt, tInt, tInt),
		op("opMult", coercion.ArithOp, tBigint, tBigint, tBigint),
		op("opMult", coercion.ArithOp, tNumeric, tNumeric, tNumeric),
		op("opMult", coercion.ArithOp, tFloat, tFloat, tFloat),
		op("opMult", coercion.ArithOp, tDouble, tDouble, tDouble),
		op("opMult", coercion.ArithOp, tObject, tObject, tObject),

		op("opDiv", coercion.ArithOp, tShort, tShort, tShort),
		op("opDiv", coercion.ArithOp, tInt, tInt, tInt),
		op("opDiv", coercion.ArithOp, tBigint, tBigint, tBigint),
		op("opDiv", coercion.ArithOp, tNumeric, tNumeric, tNumeric),
		op("opDiv", coercion.ArithOp, tFloat, tFloat, tFloat),
		op("opDiv", coercion.ArithOp, tDouble, tDouble, tDouble),
		op("opDiv", coercion.ArithOp, tObject, tObject, tObject),

		op("opDivInt", coercion.IntArithOp, tShort, tShort, tShort),
		op("opDivInt", coercion.IntArithOp, tInt, tInt, tInt),
		op("opDivInt", coercion.IntArithOp, tBigint, tBigint, tBigint),
		op("opDivInt", coercion.IntArithOp, tObject, tObject, tObject),

		op("opMod", coercion.IntArithOp, tShort, tShort, tShort),
		op("opMod", coercion.IntArithOp, tInt, tInt, tInt),
		op("opMod", coercion.IntArithOp, tBigint, tBigint, tBigint),
		op("opMod", coercion.IntArithOp, tObject, tObject, tObject),

		op("opAdd", coercion.ArithOp, tShort, tShort, tShort),
		op("opAdd", coercion.ArithOp, tInt, tInt, tInt),
		op("opAdd", coercion.ArithOp, tBigint, tBigint, tBigint),
		op("opAdd", coercion.ArithOp, tNumeric, tNumeric, tNumeric),
		op("opAdd", coercion.ArithOp, tFloat, tFloat, tFloat),
		op("opAdd", coercion.ArithOp, tDouble, tDouble, tDouble),
		op("opAdd", coercion.ArithOp, tTime, tTime, tBigint),
		op("opAdd", coercion.ArithOp, tTime, tBigint, tTime),
		op("opAdd", coercion.ArithOp, tDate, tDate, tBigint),
		op("opAdd", coercion.ArithOp, tDate, tBigint, tDate),
		op("opAdd", coercion.ArithOp, tDatetime, tDatetime, tBigint),
		op("opAdd", coercion.ArithOp, tTimestamp, tTimestamp, tBigint),
		op("opAdd", coercion.ArithOp, tDatetime, tBigint, tDatetime),
		op("opAdd", coercion.ArithOp, tTimestamp, tBigint, tTimestamp),
		op("opAdd", coercion.ArithOp, tObject, tObject, tObject),

		op("opSubtract", coercion.ArithOp, tShort, tShort, tShort),
		op("opSubtract", coercion.ArithOp, tInt, tInt, tInt),
		op("opSubtract", coercion.ArithOp, tBigint, tBigint, tBigint),
		op("opSubtract", coercion.ArithOp, tNumeric, tNumeric, tNumeric),
		op("opSubtract", coercion.ArithOp, tFloat, tFloat, tFloat),
		op("opSubtract", coercion.ArithOp, tDouble, tDouble, tDouble),
		op("opSubtract", coercion.ArithOp, tBigint, tTime, tTime),
		op("opSubtract", coercion.ArithOp, tBigint, tDate, tDate),
		op("opSubtract", coercion.ArithOp, tBigint, tDatetime, tDatetime),
		op("opSubtract", coercion.ArithOp, tBigint, tTimestamp, tTimestamp),
		op("opSubtract", coercion.ArithOp, tTime, tTime, tBigint),
		op("opSubtract", coercion.ArithOp, tDate, tDate, tBigint),
		op("opSubtract", coercion.ArithOp, tDatetime, tDatetime, tBigint),
		op("opSubtract", coercion.ArithOp, tTimestamp, tTimestamp, tBigint),
		op("opSubtract", coercion.ArithOp, tObject, tObject, tObject),

		op("opConcat", coercion.StringOp, tString, tString, tString),

		op("opBitShiftLeft", coercion.BitOp, tBigint, tBigint, tBigint),
		op("opBitShiftRight", coercion.BitOp, tBigint, tBigint, tBigint),
		op("opBitAnd", coercion.BitOp, tBigint, tBigint, tBigint),
		op("opBitXor", coercion.BitOp, tBigint, tBigint, tBigint),
		op("opBitOr", coercion.BitOp, tBigint, tBigint, tBigint),

		op("opLike", coercion.StringOp, tBoolean, tString, tString, tString),
	}

	for _, name := range []string{"opEq", "opNullSafeEq", "opNeq", "opLe", "opGe", "opLt", "opGt"} {
		for _, t := range comparedTypes {
			ops = append(ops, op(name, coercion.CompOp, tBoolean, t, t))
		}
	}
	for _, t := range comparedTypes {
		ops = append(ops, op("opBetween", coercion.NAryCompOp, tBoolean, t, t, t))
		in := op("opIn", coercion.NAryCompOp, tBoolean, t, t)
		in.Variadic = true
		ops = append(ops, in)
	}
	return ops
}
