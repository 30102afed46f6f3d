// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package types

import "fmt"

// DBType is the code of a SQL type as reported by the database server for
// table columns, routine parameters and query results.
type DBType int

const (
	DBNull         DBType = 0
	DBInteger      DBType = 1
	DBFloat        DBType = 2
	DBDouble       DBType = 3
	DBString       DBType = 4
	DBObject       DBType = 5
	DBSet          DBType = 6
	DBMultiset     DBType = 7
	DBSequence     DBType = 8
	DBTime         DBType = 10
	DBTimestamp    DBType = 11
	DBDate         DBType = 12
	DBMonetary     DBType = 13
	DBVariable     DBType = 14
	DBShort        DBType = 18
	DBNumeric      DBType = 22
	DBBit          DBType = 23
	DBVarbit       DBType = 24
	DBChar         DBType = 25
	DBBigint       DBType = 31
	DBDatetime     DBType = 32
	DBBlob         DBType = 33
	DBClob         DBType = 34
	DBEnumeration  DBType = 35
	DBTimestampTZ  DBType = 36
	DBTimestampLTZ DBType = 37
	DBDatetimeTZ   DBType = 38
	DBDatetimeLTZ  DBType = 39
	DBJSON         DBType = 40
)

var dbTypeNames = map[DBType]string{
	DBNull:         "NULL",
	DBInteger:      "INTEGER",
	DBFloat:        "FLOAT",
	DBDouble:       "DOUBLE",
	DBString:       "VARCHAR",
	DBObject:       "OBJECT",
	DBSet:          "SET",
	DBMultiset:     "MULTISET",
	DBSequence:     "SEQUENCE",
	DBTime:         "TIME",
	DBTimestamp:    "TIMESTAMP",
	DBDate:         "DATE",
	DBMonetary:     "MONETARY",
	DBVariable:     "VARIABLE",
	DBShort:        "SHORT",
	DBNumeric:      "NUMERIC",
	DBBit:          "BIT",
	DBVarbit:       "BIT VARYING",
	DBChar:         "CHAR",
	DBBigint:       "BIGINT",
	DBDatetime:     "DATETIME",
	DBBlob:         "BLOB",
	DBClob:         "CLOB",
	DBEnumeration:  "ENUM",
	DBTimestampTZ:  "TIMESTAMPTZ",
	DBTimestampLTZ: "TIMESTAMPLTZ",
	DBDatetimeTZ:   "DATETIMETZ",
	DBDatetimeLTZ:  "DATETIMELTZ",
	DBJSON:         "JSON",
}

// SQLTypeName returns the SQL name of the type code.
func (t DBType) SQLTypeName() string {
	if name, ok := dbTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

func (t DBType) String() string {
	return t.SQLTypeName()
}

var valueTypes = map[DBType]*Type{
	DBNull:      Null,
	DBInteger:   Int,
	DBFloat:     Float,
	DBDouble:    Double,
	DBString:    StringAny,
	DBTime:      Time,
	DBTimestamp: Timestamp,
	DBDate:      Date,
	DBShort:     Short,
	DBNumeric:   NumericAny,
	DBChar:      StringAny,
	DBBigint:    Bigint,
	DBDatetime:  Datetime,
	DBObject:    Object,
}

// IsSupported reports whether values of the SQL type can be held in
// PL/CSQL variables.
func IsSupported(t DBType) bool {
	_, ok := valueTypes[t]
	return ok
}

// ValueType returns the generic PL/CSQL type of values of the SQL type, as
// used for query result columns. The SQL type must be supported.
func ValueType(t DBType) *Type {
	ty, ok := valueTypes[t]
	if !ok {
		panic(fmt.Sprintf("internal error: unsupported SQL type %s", t))
	}
	return ty
}

// DeclType returns the PL/CSQL type of a declaration of the SQL type with
// the given precision and scale, as used for table columns and routine
// parameters. For CHAR and VARCHAR the precision is the length. Out of range
// precisions fall back to the generic type of the family.
func DeclType(t DBType, precision, scale int) *Type {
	switch t {
	case DBChar:
		if precision >= 1 && precision <= MaxCharLen {
			return Char(precision)
		}
		return Char(MaxCharLen)
	case DBString:
		if precision >= 1 && precision <= MaxVarcharLen {
			return Varchar(precision)
		}
		return Varchar(MaxVarcharLen)
	case DBNumeric:
		if precision >= 1 && precision <= MaxPrecision && scale >= 0 && scale <= precision {
			return Numeric(precision, scale)
		}
		return NumericAny
	}
	return ValueType(t)
}

var dbTypesByIdx = map[int]DBType{
	IdxNull:      DBNull,
	IdxObject:    DBObject,
	IdxString:    DBString,
	IdxShort:     DBShort,
	IdxInt:       DBInteger,
	IdxBigint:    DBBigint,
	IdxNumeric:   DBNumeric,
	IdxFloat:     DBFloat,
	IdxDouble:    DBDouble,
	IdxDate:      DBDate,
	IdxTime:      DBTime,
	IdxDatetime:  DBDatetime,
	IdxTimestamp: DBTimestamp,
}

// DBTypeOf returns the SQL type code, precision and scale that declare t in
// the catalog. It is the inverse of DeclType. Types that have no SQL
// counterpart, such as BOOLEAN and cursors, report false.
func DBTypeOf(t *Type) (code DBType, precision, scale int, ok bool) {
	switch t.family {
	case familyChar:
		return DBChar, t.length, 0, true
	case familyVarchar:
		return DBString, t.length, 0, true
	case familyNumeric:
		return DBNumeric, t.precision, t.scale, true
	}
	code, ok = dbTypesByIdx[t.Idx]
	return code, 0, 0, ok
}
