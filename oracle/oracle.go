// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package oracle answers the questions the compiler cannot answer from the
// source text alone: the shape of embedded SQL statements, the signatures of
// stored routines, the existence of serials and the types of table columns.
//
// Questions are always asked in batches. Answers carry the sequence number
// of the question they answer, and a batch of answers may omit questions.
package oracle

import (
	"context"
	"fmt"

	"github.com/canonical/plcsql/internal/types"
)

// DBType is the code of a SQL type.
type DBType = types.DBType

const (
	DBNull      = types.DBNull
	DBInteger   = types.DBInteger
	DBFloat     = types.DBFloat
	DBDouble    = types.DBDouble
	DBString    = types.DBString
	DBObject    = types.DBObject
	DBTime      = types.DBTime
	DBTimestamp = types.DBTimestamp
	DBDate      = types.DBDate
	DBVariable  = types.DBVariable
	DBShort     = types.DBShort
	DBNumeric   = types.DBNumeric
	DBChar      = types.DBChar
	DBBigint    = types.DBBigint
	DBDatetime  = types.DBDatetime
	DBBlob      = types.DBBlob
	DBClob      = types.DBClob
	DBJSON      = types.DBJSON
)

// TypeInfo is a SQL type with its precision and scale. For character types
// the precision is the length.
type TypeInfo struct {
	Type      DBType
	Precision int
	Scale     int
}

func (t TypeInfo) String() string {
	switch t.Type {
	case DBNumeric:
		return fmt.Sprintf("%s(%d, %d)", t.Type, t.Precision, t.Scale)
	case DBChar, DBString:
		return fmt.Sprintf("%s(%d)", t.Type, t.Precision)
	}
	return t.Type.String()
}

type StmtKind int

const (
	StmtOther StmtKind = iota
	StmtSelect
	StmtInsert
	StmtUpdate
	StmtDelete
	StmtMerge
	StmtReplace
	StmtTruncate
)

func (k StmtKind) String() string {
	switch k {
	case StmtSelect:
		return "SELECT"
	case StmtInsert:
		return "INSERT"
	case StmtUpdate:
		return "UPDATE"
	case StmtDelete:
		return "DELETE"
	case StmtMerge:
		return "MERGE"
	case StmtReplace:
		return "REPLACE"
	case StmtTruncate:
		return "TRUNCATE"
	}
	return "OTHER"
}

// Column is a column of the select list of a query.
type Column struct {
	Name string
	TypeInfo
}

// SQLSemantics describes an embedded SQL statement.
type SQLSemantics struct {
	// Seq is the index of the statement in the batch.
	Seq  int
	Kind StmtKind
	// Rewritten is the statement with its into-clause removed and its host
	// expressions replaced by '?'.
	Rewritten string
	// HostExprs are the host expressions of the statement in the order of
	// their '?': names of variables, or RECORD.FIELD.
	HostExprs []string
	// Columns is the select list of a query.
	Columns []Column
	// IntoVars are the names in the into-clause of a query, nil if there is
	// none.
	IntoVars []string

	// ErrCode is not zero if the statement is invalid.
	ErrCode int
	ErrMsg  string
}

type QuestionKind int

const (
	AskProcedure QuestionKind = iota
	AskFunction
	AskSerial
	AskColumnType
)

func (k QuestionKind) String() string {
	switch k {
	case AskProcedure:
		return "procedure signature"
	case AskFunction:
		return "function signature"
	case AskSerial:
		return "serial"
	case AskColumnType:
		return "column type"
	}
	return fmt.Sprintf("QuestionKind(%d)", int(k))
}

// Question is a question about a global object of the database.
type Question struct {
	Kind QuestionKind
	// Name is the name of the routine or of the serial.
	Name string
	// Table and Column name the column of an AskColumnType.
	Table  string
	Column string
}

func (q Question) String() string {
	if q.Kind == AskColumnType {
		return fmt.Sprintf("%s %s.%s", q.Kind, q.Table, q.Column)
	}
	return fmt.Sprintf("%s %s", q.Kind, q.Name)
}

type ParamMode int

const (
	ModeIn ParamMode = iota
	ModeOut
	ModeInOut
)

// Param is a parameter of a stored routine.
type Param struct {
	Name string
	Mode ParamMode
	TypeInfo
}

// Answer answers the question of the same sequence number. Which fields are
// set depends on the kind of the question.
type Answer struct {
	Seq int

	ErrCode int
	ErrMsg  string

	// Params are the parameters of a routine.
	Params []Param
	// Ret is the return type of a function.
	Ret TypeInfo
	// ColumnType is the type of a table column.
	ColumnType TypeInfo
}

// Oracle is the metadata server.
type Oracle interface {
	// SQLSemantics analyses the given SQL statements.
	SQLSemantics(ctx context.Context, sqls []string) ([]SQLSemantics, error)
	// GlobalSemantics answers the given questions.
	GlobalSemantics(ctx context.Context, questions []Question) ([]Answer, error)
}
