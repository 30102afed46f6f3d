// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLOracle answers questions from a SQL database holding the user tables
// and the catalog tables created by InitCatalog. Statements are analysed by
// preparing them, and queries by running them, in a transaction that is
// always rolled back.
type SQLOracle struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLOracle returns an oracle backed by db. A nil logger discards the
// logs.
func NewSQLOracle(db *sql.DB, logger *slog.Logger) *SQLOracle {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLOracle{db: db, logger: logger}
}

var _ Oracle = (*SQLOracle)(nil)

var noSuchColumn = regexp.MustCompile(`no such column: ([^\s]+)`)

// errCode returns the code of a database error.
func errCode(err error) int {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code != 0 {
		return int(serr.Code)
	}
	return 1
}

// errMessage strips the driver decoration of a database error.
func errMessage(err error) string {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Error()
	}
	return err.Error()
}

func (o *SQLOracle) SQLSemantics(ctx context.Context, sqls []string) (ret []SQLSemantics, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot get SQL semantics: %s", err)
		}
	}()
	start := time.Now()

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer tx.Rollback()

	for i, text := range sqls {
		s, err := o.analyse(ctx, tx, text)
		if err != nil {
			return nil, err
		}
		s.Seq = i
		ret = append(ret, s)
	}
	o.logger.Debug("sql semantics", "sqls", len(sqls), "answered", len(ret), "elapsed", time.Since(start))
	return ret, nil
}

// analyse returns the semantics of a single statement. Only failures of the
// transaction itself are returned as errors; invalid statements are
// reported in the result.
func (o *SQLOracle) analyse(ctx context.Context, tx *sql.Tx, text string) (SQLSemantics, error) {
	toks := scanSQL(text)
	s := SQLSemantics{Kind: toks.kind()}
	if s.Kind == StmtSelect {
		toks, s.IntoVars = toks.cutInto()
		toks = toks.stripFromDual()
	}

	switch s.Kind {
	case StmtMerge, StmtTruncate:
		// Not supported by SQLite: taken as they are.
		s.Rewritten = toks.String()
		return s, nil
	case StmtOther:
		s.ErrCode, s.ErrMsg = 1, "not a SQL statement that can be embedded"
		return s, nil
	}

	// Names SQLite cannot resolve are host expressions.
	for {
		stmt, err := tx.PrepareContext(ctx, toks.String())
		if err == nil {
			stmt.Close()
			break
		}
		m := noSuchColumn.FindStringSubmatch(errMessage(err))
		if m == nil || !toks.markHost(m[1]) {
			s.ErrCode, s.ErrMsg = errCode(err), errMessage(err)
			return s, nil
		}
	}
	s.Rewritten = toks.String()
	s.HostExprs = toks.hosts()

	if s.Kind != StmtSelect {
		return s, nil
	}
	cols, err := queryColumns(ctx, tx, s.Rewritten, len(s.HostExprs))
	if err != nil {
		s.ErrCode, s.ErrMsg = errCode(err), errMessage(err)
		return s, nil
	}
	s.Columns = cols
	return s, nil
}

// queryColumns runs the query with null host expressions to get the types of
// its columns. Columns of tables have their declared type; the type of other
// columns is inferred from the first row, if any.
func queryColumns(ctx context.Context, tx *sql.Tx, query string, nargs int) ([]Column, error) {
	args := make([]any, nargs)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(cts))
	vals := make([]any, len(cts))
	ptrs := make([]any, len(cts))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	hasRow := rows.Next()
	if hasRow {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
	}
	for i, ct := range cts {
		cols[i].Name = ct.Name()
		if ti, ok := parseDeclType(ct.DatabaseTypeName()); ok {
			cols[i].TypeInfo = ti
		} else if hasRow {
			cols[i].TypeInfo = valueTypeInfo(vals[i])
		} else {
			cols[i].TypeInfo = TypeInfo{Type: DBVariable}
		}
	}
	return cols, rows.Err()
}

// valueTypeInfo returns the SQL type of a value returned by the driver.
func valueTypeInfo(v any) TypeInfo {
	switch v.(type) {
	case nil:
		return TypeInfo{Type: DBNull}
	case int64:
		return TypeInfo{Type: DBInteger}
	case float64:
		return TypeInfo{Type: DBDouble}
	case string, []byte:
		return TypeInfo{Type: DBString}
	case bool:
		return TypeInfo{Type: DBShort}
	case time.Time:
		return TypeInfo{Type: DBDatetime}
	}
	return TypeInfo{Type: DBObject}
}

func (o *SQLOracle) GlobalSemantics(ctx context.Context, questions []Question) (ret []Answer, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot get global semantics: %s", err)
		}
	}()
	start := time.Now()

	for i, q := range questions {
		var a Answer
		switch q.Kind {
		case AskProcedure, AskFunction:
			a, err = o.routine(ctx, q)
		case AskSerial:
			a, err = o.serial(ctx, q)
		case AskColumnType:
			a, err = o.columnType(ctx, q)
		default:
			return nil, errors.Errorf("unknown question kind %d", int(q.Kind))
		}
		if err != nil {
			return nil, err
		}
		a.Seq = i
		ret = append(ret, a)
	}
	o.logger.Debug("global semantics", "questions", len(questions), "answered", len(ret), "elapsed", time.Since(start))
	return ret, nil
}

func (o *SQLOracle) routine(ctx context.Context, q Question) (Answer, error) {
	name := strings.ToUpper(q.Name)
	var kind string
	var ret, prec, scale sql.NullInt64
	row := o.db.QueryRowContext(ctx,
		`SELECT kind, ret_type, ret_prec, ret_scale FROM plcsql_routine WHERE name = ?`, name)
	err := row.Scan(&kind, &ret, &prec, &scale)
	if errors.Is(err, sql.ErrNoRows) {
		what := "procedure"
		if q.Kind == AskFunction {
			what = "function"
		}
		return Answer{ErrCode: 1, ErrMsg: fmt.Sprintf("undefined %s %s", what, name)}, nil
	} else if err != nil {
		return Answer{}, errors.WithStack(err)
	}
	switch {
	case q.Kind == AskProcedure && kind != kindProcedure:
		return Answer{ErrCode: 1, ErrMsg: fmt.Sprintf("%s is not a procedure", name)}, nil
	case q.Kind == AskFunction && kind != kindFunction:
		return Answer{ErrCode: 1, ErrMsg: fmt.Sprintf("%s is not a function", name)}, nil
	}

	var a Answer
	if q.Kind == AskFunction {
		a.Ret, err = typeInfo(ret.Int64, prec.Int64, scale.Int64)
		if err != nil {
			return Answer{}, err
		}
	}
	a.Params, err = o.params(ctx, name)
	if err != nil {
		return Answer{}, err
	}
	return a, nil
}

func (o *SQLOracle) params(ctx context.Context, routine string) ([]Param, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT name, mode, type, prec, scale FROM plcsql_routine_param WHERE routine = ? ORDER BY pos`,
		routine)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var params []Param
	for rows.Next() {
		var p Param
		var mode, ty, prec, scale int64
		if err := rows.Scan(&p.Name, &mode, &ty, &prec, &scale); err != nil {
			return nil, errors.WithStack(err)
		}
		p.Mode = ParamMode(mode)
		if p.TypeInfo, err = typeInfo(ty, prec, scale); err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, errors.WithStack(rows.Err())
}

func (o *SQLOracle) serial(ctx context.Context, q Question) (Answer, error) {
	name := strings.ToUpper(q.Name)
	var found string
	err := o.db.QueryRowContext(ctx, `SELECT name FROM plcsql_serial WHERE name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return Answer{ErrCode: 1, ErrMsg: fmt.Sprintf("serial %s does not exist", name)}, nil
	} else if err != nil {
		return Answer{}, errors.WithStack(err)
	}
	return Answer{}, nil
}

func (o *SQLOracle) columnType(ctx context.Context, q Question) (Answer, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?)`, q.Table)
	if err != nil {
		return Answer{}, errors.WithStack(err)
	}
	defer rows.Close()

	tableFound := false
	for rows.Next() {
		tableFound = true
		var name, declType string
		if err := rows.Scan(&name, &declType); err != nil {
			return Answer{}, errors.WithStack(err)
		}
		if !strings.EqualFold(name, q.Column) {
			continue
		}
		ti, ok := parseDeclType(declType)
		if !ok {
			ti = TypeInfo{Type: DBObject}
		}
		return Answer{ColumnType: ti}, nil
	}
	if err := rows.Err(); err != nil {
		return Answer{}, errors.WithStack(err)
	}
	if !tableFound {
		return Answer{ErrCode: 1, ErrMsg: fmt.Sprintf("table %s does not exist", q.Table)}, nil
	}
	return Answer{ErrCode: 1, ErrMsg: fmt.Sprintf("column %s does not exist in table %s", q.Column, q.Table)}, nil
}
