// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package types defines the value types of PL/CSQL programs.
//
// Types are interned: two *Type values are equal if and only if they are
// structurally equal, so types are compared with ==. Every type has an index
// (Idx) that partitions types into the classes used by the coercion lookup
// tables. CHAR(n), VARCHAR(n) and NUMERIC(p, s) share the index of their
// generic family.
package types

import (
	"fmt"
	"sync"
)

// Type indices. The order matters: the coercion tables are indexed by
// (max(idx), min(idx)).
const (
	IdxNull = iota
	IdxObject
	IdxBoolean
	IdxString
	IdxShort
	IdxInt
	IdxBigint
	IdxNumeric
	IdxFloat
	IdxDouble
	IdxDate
	IdxTime
	IdxDatetime
	IdxTimestamp
	IdxCursor
	IdxSysRefcursor

	// NumIdx is the number of type indices.
	NumIdx
)

type family int

const (
	familyPlain family = iota
	familyChar
	familyVarchar
	familyNumeric
)

const (
	// MaxCharLen is the maximum length of CHAR types. String literals have
	// the type CHAR(MaxCharLen).
	MaxCharLen = 2048
	// MaxVarcharLen is the maximum length of VARCHAR types and the default
	// length of VARCHAR without a length.
	MaxVarcharLen = 1073741823

	MaxPrecision     = 38
	DefaultPrecision = 15
	DefaultScale     = 0
)

type Type struct {
	// Idx is the compatibility class of the type.
	Idx int
	// PlcName is the name of the type in PL/CSQL source.
	PlcName string
	// JavaType is the fully qualified Java class that holds values of the
	// type in generated code.
	JavaType string
	// TypicalValue is a SQL expression of the type, used to ask the server
	// for the result type of builtin functions. It is empty for types that
	// cannot be passed to builtin functions.
	TypicalValue string

	family    family
	precision int
	scale     int
	length    int
}

func (t *Type) String() string {
	return t.PlcName
}

// Precision and Scale are only meaningful for NUMERIC(p, s) types.
func (t *Type) Precision() int { return t.precision }
func (t *Type) Scale() int     { return t.scale }

// Length is only meaningful for CHAR(n) and VARCHAR(n) types.
func (t *Type) Length() int { return t.length }

// IsNumber reports whether t is one of the numeric types.
func (t *Type) IsNumber() bool {
	return t.Idx >= IdxShort && t.Idx <= IdxDouble
}

// IsString reports whether t is a string type.
func (t *Type) IsString() bool {
	return t.Idx == IdxString
}

// IsDateTime reports whether t is one of DATE, TIME, DATETIME and TIMESTAMP.
func (t *Type) IsDateTime() bool {
	return t.Idx >= IdxDate && t.Idx <= IdxTimestamp
}

// IsChar reports whether t is a fixed-length character type.
func (t *Type) IsChar() bool {
	return t.family == familyChar
}

// IsParamNumeric reports whether t is NUMERIC(p, s).
func (t *Type) IsParamNumeric() bool {
	return t.family == familyNumeric
}

// IsParamString reports whether t is CHAR(n) or VARCHAR(n).
func (t *Type) IsParamString() bool {
	return t.family == familyChar || t.family == familyVarchar
}

var (
	Null         = newPlain(IdxNull, "NULL", "Null", "null")
	Object       = newPlain(IdxObject, "OBJECT", "java.lang.Object", "")
	Boolean      = newPlain(IdxBoolean, "BOOLEAN", "java.lang.Boolean", "")
	StringAny    = newPlain(IdxString, "STRING", "java.lang.String", "cast('a' as varchar)")
	Short        = newPlain(IdxShort, "SHORT", "java.lang.Short", "cast(1 as smallint)")
	Int          = newPlain(IdxInt, "INT", "java.lang.Integer", "cast(1 as int)")
	Bigint       = newPlain(IdxBigint, "BIGINT", "java.lang.Long", "cast(1 as bigint)")
	NumericAny   = newPlain(IdxNumeric, "NUMERIC", "java.math.BigDecimal", "cast(1 as numeric)")
	Float        = newPlain(IdxFloat, "FLOAT", "java.lang.Float", "cast(1 as float)")
	Double       = newPlain(IdxDouble, "DOUBLE", "java.lang.Double", "cast(1 as double)")
	Date         = newPlain(IdxDate, "DATE", "java.sql.Date", "cast('2000-01-01' as date)")
	Time         = newPlain(IdxTime, "TIME", "java.sql.Time", "cast('00:00:00' as time)")
	Datetime     = newPlain(IdxDatetime, "DATETIME", "java.sql.Timestamp", "cast('2000-01-01 00:00:00' as datetime)")
	Timestamp    = newPlain(IdxTimestamp, "TIMESTAMP", "java.time.ZonedDateTime", "cast('2000-01-01 00:00:00' as timestamp)")
	Cursor       = newPlain(IdxCursor, "CURSOR", "com.cubrid.plcsql.predefined.sp.SpLib.Query", "")
	SysRefcursor = newPlain(IdxSysRefcursor, "SYS_REFCURSOR", "com.cubrid.plcsql.predefined.sp.SpLib.Query", "")
)

func newPlain(idx int, plcName, javaType, typical string) *Type {
	return &Type{Idx: idx, PlcName: plcName, JavaType: javaType, TypicalValue: typical}
}

var byIdx = [NumIdx]*Type{
	Null, Object, Boolean, StringAny, Short, Int, Bigint, NumericAny,
	Float, Double, Date, Time, Datetime, Timestamp, Cursor, SysRefcursor,
}

// Get returns the generic type of the given index.
func Get(idx int) *Type {
	if idx < 0 || idx >= NumIdx {
		panic(fmt.Sprintf("internal error: type index %d out of range", idx))
	}
	return byIdx[idx]
}

// All returns the generic type of every index, in index order.
func All() []*Type {
	ret := make([]*Type, NumIdx)
	copy(ret, byIdx[:])
	return ret
}

// paramCache interns parameterized types. It is shared by all compilations
// and only ever grows.
type paramCache struct {
	mutex   sync.RWMutex
	chars   map[int]*Type
	varchar map[int]*Type
	numeric map[[2]int]*Type
}

var cache = &paramCache{
	chars:   map[int]*Type{},
	varchar: map[int]*Type{},
	numeric: map[[2]int]*Type{},
}

// Char returns the CHAR(length) type. The length must be in 1..MaxCharLen.
func Char(length int) *Type {
	if length < 1 || length > MaxCharLen {
		panic(fmt.Sprintf("internal error: CHAR length %d out of range", length))
	}
	cache.mutex.RLock()
	t, ok := cache.chars[length]
	cache.mutex.RUnlock()
	if ok {
		return t
	}
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	// Check if someone else has added it since we last looked.
	if t, ok := cache.chars[length]; ok {
		return t
	}
	t = &Type{
		Idx:          IdxString,
		PlcName:      fmt.Sprintf("CHAR(%d)", length),
		JavaType:     StringAny.JavaType,
		TypicalValue: StringAny.TypicalValue,
		family:       familyChar,
		length:       length,
	}
	cache.chars[length] = t
	return t
}

// Varchar returns the VARCHAR(length) type. The length must be in
// 1..MaxVarcharLen.
func Varchar(length int) *Type {
	if length < 1 || length > MaxVarcharLen {
		panic(fmt.Sprintf("internal error: VARCHAR length %d out of range", length))
	}
	cache.mutex.RLock()
	t, ok := cache.varchar[length]
	cache.mutex.RUnlock()
	if ok {
		return t
	}
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	if t, ok := cache.varchar[length]; ok {
		return t
	}
	t = &Type{
		Idx:          IdxString,
		PlcName:      fmt.Sprintf("VARCHAR(%d)", length),
		JavaType:     StringAny.JavaType,
		TypicalValue: StringAny.TypicalValue,
		family:       familyVarchar,
		length:       length,
	}
	cache.varchar[length] = t
	return t
}

// Numeric returns the NUMERIC(precision, scale) type. The precision must be
// in 1..MaxPrecision and the scale in 0..precision.
func Numeric(precision, scale int) *Type {
	if precision < 1 || precision > MaxPrecision || scale < 0 || scale > precision {
		panic(fmt.Sprintf("internal error: NUMERIC(%d, %d) out of range", precision, scale))
	}
	key := [2]int{precision, scale}
	cache.mutex.RLock()
	t, ok := cache.numeric[key]
	cache.mutex.RUnlock()
	if ok {
		return t
	}
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	if t, ok := cache.numeric[key]; ok {
		return t
	}
	t = &Type{
		Idx:          IdxNumeric,
		PlcName:      fmt.Sprintf("NUMERIC(%d, %d)", precision, scale),
		JavaType:     NumericAny.JavaType,
		TypicalValue: NumericAny.TypicalValue,
		family:       familyNumeric,
		precision:    precision,
		scale:        scale,
	}
	cache.numeric[key] = t
	return t
}

var simpleNames = map[string]*Type{
	"BOOLEAN":          Boolean,
	"SHORT":            Short,
	"SMALLINT":         Short,
	"INT":              Int,
	"INTEGER":          Int,
	"BIGINT":           Bigint,
	"FLOAT":            Float,
	"REAL":             Float,
	"DOUBLE":           Double,
	"DOUBLE PRECISION": Double,
	"DATE":             Date,
	"TIME":             Time,
	"DATETIME":         Datetime,
	"TIMESTAMP":        Timestamp,
	"SYS_REFCURSOR":    SysRefcursor,
	"STRING":           Varchar(MaxVarcharLen),
}

// ByName returns the type named by a simple (non-parameterized) PL/CSQL
// type name. CHAR, VARCHAR and NUMERIC with their aliases are not simple
// names. STRING is VARCHAR of the maximum length.
func ByName(name string) (*Type, bool) {
	t, ok := simpleNames[name]
	return t, ok
}
