// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package coercion

import (
	"fmt"

	"github.com/canonical/plcsql/internal/types"
)

// Scheme decides the types that the arguments of an operator are coerced to.
type Scheme int

const (
	CompOp Scheme = iota
	NAryCompOp
	ArithOp
	IntArithOp
	LogicalOp
	StringOp
	BitOp
	ObjectOp
)

func (s Scheme) String() string {
	switch s {
	case CompOp:
		return "CompOp"
	case NAryCompOp:
		return "NAryCompOp"
	case ArithOp:
		return "ArithOp"
	case IntArithOp:
		return "IntArithOp"
	case LogicalOp:
		return "LogicalOp"
	case StringOp:
		return "StringOp"
	case BitOp:
		return "BitOp"
	case ObjectOp:
		return "ObjectOp"
	}
	return fmt.Sprintf("Scheme(%d)", int(s))
}

// table holds the common type of two argument types. Only the lower half is
// filled: a lookup uses (max(idx), min(idx)).
type table [types.NumIdx][types.NumIdx]*types.Type

type entry struct {
	row, col int
	t        *types.Type
}

func newTable(entries []entry) *table {
	var t table
	for _, e := range entries {
		if e.col > e.row {
			panic(fmt.Sprintf("internal error: coercion table entry (%d, %d) above the diagonal", e.row, e.col))
		}
		t[e.row][e.col] = e.t
	}
	return &t
}

// fill returns entries mapping (row, c) to t for every c in cols.
func fill(row int, t *types.Type, cols ...int) []entry {
	es := make([]entry, len(cols))
	for i, c := range cols {
		es[i] = entry{row, c, t}
	}
	return es
}

func concat(parts ...[]entry) []entry {
	var all []entry
	for _, p := range parts {
		all = append(all, p...)
	}
	return all
}

const (
	iNull      = types.IdxNull
	iObject    = types.IdxObject
	iBoolean   = types.IdxBoolean
	iString    = types.IdxString
	iShort     = types.IdxShort
	iInt       = types.IdxInt
	iBigint    = types.IdxBigint
	iNumeric   = types.IdxNumeric
	iFloat     = types.IdxFloat
	iDouble    = types.IdxDouble
	iDate      = types.IdxDate
	iTime      = types.IdxTime
	iDatetime  = types.IdxDatetime
	iTimestamp = types.IdxTimestamp
)

// numericRows are the rows for the numeric types shared by the comparison
// and the arithmetic tables.
func numericRows() []entry {
	return concat(
		fill(iShort, types.Short, iNull, iObject, iShort),
		fill(iShort, types.Double, iString),
		fill(iInt, types.Int, iNull, iObject, iShort, iInt),
		fill(iInt, types.Double, iString),
		fill(iBigint, types.Bigint, iNull, iObject, iShort, iInt, iBigint),
		fill(iBigint, types.Double, iString),
		fill(iNumeric, types.NumericAny, iNull, iObject, iShort, iInt, iBigint, iNumeric),
		fill(iNumeric, types.Double, iString),
		fill(iFloat, types.Float, iNull, iObject, iShort, iInt, iBigint, iFloat),
		fill(iFloat, types.Double, iString, iNumeric),
		fill(iDouble, types.Double, iNull, iObject, iString, iShort, iInt, iBigint, iNumeric, iFloat, iDouble),
	)
}

var compOpCommonType = newTable(concat(
	fill(iNull, types.Null, iNull),
	fill(iObject, types.Object, iNull, iObject),
	fill(iBoolean, types.Boolean, iNull, iObject, iBoolean),
	fill(iString, types.StringAny, iNull, iObject, iString),
	numericRows(),
	fill(iDate, types.Date, iNull, iObject, iString, iDate),
	fill(iTime, types.Time, iNull, iObject, iString, iShort, iInt, iBigint, iTime),
	fill(iDatetime, types.Datetime, iNull, iObject, iString, iDate, iDatetime),
	fill(iTimestamp, types.Timestamp, iNull, iObject, iString, iShort, iInt, iBigint, iDate),
	fill(iTimestamp, types.Datetime, iDatetime),
	fill(iTimestamp, types.Timestamp, iTimestamp),
))

var arithOpCommonType = newTable(concat(
	fill(iNull, types.Null, iNull),
	fill(iObject, types.Object, iNull, iObject),
	fill(iString, types.Double, iString),
	numericRows(),
))

// subtractCommonTypeExt extends the arithmetic table for the subtraction of
// dates and times.
var subtractCommonTypeExt = newTable(concat(
	fill(iDate, types.Datetime, iString),
	fill(iDate, types.Date, iDate),
	fill(iTime, types.Time, iString, iTime),
	fill(iDatetime, types.Datetime, iString, iDate, iDatetime),
	fill(iTimestamp, types.Datetime, iString),
	fill(iTimestamp, types.Timestamp, iDate),
	fill(iTimestamp, types.Datetime, iDatetime),
	fill(iTimestamp, types.Timestamp, iTimestamp),
))

var intArithOpCommonType = newTable(concat(
	fill(iNull, types.Null, iNull),
	fill(iObject, types.Object, iNull, iObject),
	fill(iString, types.Bigint, iString),
	fill(iShort, types.Short, iNull, iObject, iShort),
	fill(iShort, types.Bigint, iString),
	fill(iInt, types.Int, iNull, iObject, iShort, iInt),
	fill(iInt, types.Bigint, iString),
	fill(iBigint, types.Bigint, iNull, iObject, iString, iShort, iInt, iBigint),
	fill(iNumeric, types.Bigint, iNull, iObject, iString, iShort, iInt, iBigint, iNumeric),
	fill(iFloat, types.Bigint, iNull, iObject, iString, iShort, iInt, iBigint, iNumeric, iFloat),
	fill(iDouble, types.Bigint, iNull, iObject, iString, iShort, iInt, iBigint, iNumeric, iFloat, iDouble),
))

// lookup searches the tables in order for the common type of l and r. A
// common type NULL, only found for two nulls, is promoted to OBJECT.
func lookup(l, r *types.Type, tables ...*table) *types.Type {
	row, col := l.Idx, r.Idx
	if row < col {
		row, col = col, row
	}
	for _, t := range tables {
		if ct := t[row][col]; ct != nil {
			if ct == types.Null {
				return types.Object
			}
			return ct
		}
	}
	return nil
}

// CommonType returns the type two values must be coerced to before they are
// compared, or nil if they cannot be compared. It is also the type of case
// expressions whose branches have the types l and r.
func CommonType(l, r *types.Type) *types.Type {
	return lookup(l, r, compOpCommonType)
}

// Coercions returns, for the arguments types argTypes of the operator opName,
// the types the arguments are coerced to and the coercions doing it. ok is
// false if the arguments cannot be coerced as the scheme requires.
func (s Scheme) Coercions(argTypes []*types.Type, opName string) (outTypes []*types.Type, coercions []*Coercion, ok bool) {
	switch s {
	case CompOp:
		outTypes, ok = binaryCommon(argTypes, compOpCommonType)
	case NAryCompOp:
		outTypes, ok = naryCommon(argTypes)
	case ArithOp:
		outTypes, ok = arith(argTypes, opName)
	case IntArithOp:
		outTypes, ok = unaryOrBinary(argTypes, intArithOpCommonType)
	case LogicalOp:
		outTypes, ok = fixed(argTypes, types.Boolean)
	case StringOp:
		outTypes, ok = fixed(argTypes, types.StringAny)
	case BitOp:
		outTypes, ok = fixed(argTypes, types.Bigint)
	case ObjectOp:
		outTypes, ok = fixed(argTypes, types.Object)
	default:
		panic(fmt.Sprintf("internal error: unknown coercion scheme %d", int(s)))
	}
	if !ok {
		return nil, nil, false
	}

	coercions = make([]*Coercion, len(argTypes))
	for i, t := range argTypes {
		c := Get(t, outTypes[i])
		if c == nil {
			return nil, nil, false
		}
		coercions[i] = c
	}
	return outTypes, coercions, true
}

func binaryCommon(argTypes []*types.Type, t *table) ([]*types.Type, bool) {
	if len(argTypes) != 2 {
		panic(fmt.Sprintf("internal error: binary scheme applied to %d arguments", len(argTypes)))
	}
	ct := lookup(argTypes[0], argTypes[1], t)
	if ct == nil {
		return nil, false
	}
	return []*types.Type{ct, ct}, true
}

func unaryOrBinary(argTypes []*types.Type, t *table) ([]*types.Type, bool) {
	if len(argTypes) == 1 {
		ct := lookup(argTypes[0], argTypes[0], t)
		if ct == nil {
			return nil, false
		}
		return []*types.Type{ct}, true
	}
	return binaryCommon(argTypes, t)
}

// naryCommon gives every argument of between and in the common type of the
// head argument and each of the others. Arguments that disagree are all
// compared as objects.
func naryCommon(argTypes []*types.Type) ([]*types.Type, bool) {
	if len(argTypes) < 2 {
		panic(fmt.Sprintf("internal error: n-ary scheme applied to %d arguments", len(argTypes)))
	}
	head := argTypes[0]
	var common *types.Type
	for _, t := range argTypes[1:] {
		ct := lookup(head, t, compOpCommonType)
		if ct == nil {
			return nil, false
		}
		if common == nil {
			common = ct
		} else if common != ct {
			common = types.Object
		}
	}
	out := make([]*types.Type, len(argTypes))
	for i := range out {
		out[i] = common
	}
	return out, true
}

func arith(argTypes []*types.Type, opName string) ([]*types.Type, bool) {
	if len(argTypes) == 1 {
		return unaryOrBinary(argTypes, arithOpCommonType)
	}
	if len(argTypes) != 2 {
		panic(fmt.Sprintf("internal error: arithmetic scheme applied to %d arguments", len(argTypes)))
	}
	l, r := argTypes[0], argTypes[1]

	tables := []*table{arithOpCommonType}
	if opName == "opSubtract" {
		tables = append(tables, subtractCommonTypeExt)
	}
	if ct := lookup(l, r, tables...); ct != nil {
		return []*types.Type{ct, ct}, true
	}

	// Date and time arithmetic with a number of units.
	offset := func(t *types.Type) bool {
		return t.IsString() || t.IsNumber() || t == types.Null
	}
	switch opName {
	case "opAdd":
		if l.IsDateTime() && offset(r) {
			return []*types.Type{l, types.Bigint}, true
		}
		if offset(l) && r.IsDateTime() {
			return []*types.Type{types.Bigint, r}, true
		}
	case "opSubtract":
		if l.IsDateTime() && (r.IsNumber() || r == types.Null) {
			return []*types.Type{l, types.Bigint}, true
		}
		if l == types.Null && r.IsDateTime() {
			return []*types.Type{r, r}, true
		}
	}
	return nil, false
}

func fixed(argTypes []*types.Type, t *types.Type) ([]*types.Type, bool) {
	out := make([]*types.Type, len(argTypes))
	for i := range out {
		out[i] = t
	}
	return out, true
}
