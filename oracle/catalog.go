// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package oracle

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/pkg/errors"
)

const (
	kindProcedure = "PROCEDURE"
	kindFunction  = "FUNCTION"
)

var catalogSchema = []string{`
CREATE TABLE IF NOT EXISTS plcsql_routine (
	name      TEXT PRIMARY KEY,
	kind      TEXT NOT NULL,
	ret_type  INTEGER,
	ret_prec  INTEGER,
	ret_scale INTEGER,
	class     TEXT NOT NULL,
	signature TEXT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS plcsql_routine_param (
	routine TEXT NOT NULL,
	pos     INTEGER NOT NULL,
	name    TEXT NOT NULL,
	mode    INTEGER NOT NULL,
	type    INTEGER NOT NULL,
	prec    INTEGER NOT NULL,
	scale   INTEGER NOT NULL,
	PRIMARY KEY (routine, pos)
)`, `
CREATE TABLE IF NOT EXISTS plcsql_serial (
	name    TEXT PRIMARY KEY,
	current INTEGER NOT NULL DEFAULT 0
)`,
}

// InitCatalog creates the catalog tables of stored routines and serials if
// they do not exist.
func InitCatalog(ctx context.Context, db *sql.DB) error {
	for _, stmt := range catalogSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "cannot create catalog")
		}
	}
	return nil
}

// Routine is a stored routine as recorded in the catalog.
type Routine struct {
	Name     string
	Function bool
	Params   []Param
	// Ret is the return type of a function.
	Ret TypeInfo
	// Class is the name of the Java class implementing the routine and
	// Signature the Java method signature it is called with.
	Class     string
	Signature string
}

// RegisterRoutine records r in the catalog, replacing any routine of the
// same name.
func RegisterRoutine(ctx context.Context, db *sql.DB, r Routine) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "cannot register %s", r.Name)
		}
	}()
	name := strings.ToUpper(r.Name)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plcsql_routine_param WHERE routine = ?`, name); err != nil {
		return err
	}
	kind := kindProcedure
	var ret, prec, scale any
	if r.Function {
		kind = kindFunction
		ret, prec, scale = int(r.Ret.Type), r.Ret.Precision, r.Ret.Scale
	}
	_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO plcsql_routine (name, kind, ret_type, ret_prec, ret_scale, class, signature)
VALUES (?, ?, ?, ?, ?, ?, ?)`, name, kind, ret, prec, scale, r.Class, r.Signature)
	if err != nil {
		return err
	}
	for i, p := range r.Params {
		_, err := tx.ExecContext(ctx, `
INSERT INTO plcsql_routine_param (routine, pos, name, mode, type, prec, scale)
VALUES (?, ?, ?, ?, ?, ?, ?)`, name, i, strings.ToUpper(p.Name), int(p.Mode), int(p.Type), p.Precision, p.Scale)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateSerial records a serial in the catalog.
func CreateSerial(ctx context.Context, db *sql.DB, name string) error {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO plcsql_serial (name) VALUES (?)`, strings.ToUpper(name))
	return errors.Wrapf(err, "cannot create serial %s", name)
}

// typeInfo builds a TypeInfo from catalog integers.
func typeInfo(code, precision, scale int64) (TypeInfo, error) {
	c, err := safecast.Conv[int](code)
	if err != nil {
		return TypeInfo{}, errors.Wrap(err, "invalid type code in catalog")
	}
	p, err := safecast.Conv[int](precision)
	if err != nil {
		return TypeInfo{}, errors.Wrap(err, "invalid precision in catalog")
	}
	s, err := safecast.Conv[int](scale)
	if err != nil {
		return TypeInfo{}, errors.Wrap(err, "invalid scale in catalog")
	}
	return TypeInfo{Type: DBType(c), Precision: p, Scale: s}, nil
}

var declTypes = map[string]DBType{
	"INT":               DBInteger,
	"INTEGER":           DBInteger,
	"SMALLINT":          DBShort,
	"SHORT":             DBShort,
	"BIGINT":            DBBigint,
	"NUMERIC":           DBNumeric,
	"DECIMAL":           DBNumeric,
	"FLOAT":             DBFloat,
	"REAL":              DBFloat,
	"DOUBLE":            DBDouble,
	"DOUBLE PRECISION":  DBDouble,
	"CHAR":              DBChar,
	"CHARACTER":         DBChar,
	"VARCHAR":           DBString,
	"CHARACTER VARYING": DBString,
	"STRING":            DBString,
	"TEXT":              DBString,
	"DATE":              DBDate,
	"TIME":              DBTime,
	"DATETIME":          DBDatetime,
	"TIMESTAMP":         DBTimestamp,
	"BLOB":              DBBlob,
	"CLOB":              DBClob,
	"JSON":              DBJSON,
}

// parseDeclType parses the declared type of a SQLite column, such as
// "NUMERIC(10, 2)". It returns false for an empty declared type. Unknown
// declared types are OBJECT.
func parseDeclType(decl string) (TypeInfo, bool) {
	decl = strings.ToUpper(strings.TrimSpace(decl))
	if decl == "" {
		return TypeInfo{}, false
	}
	base, args := decl, ""
	if i := strings.IndexByte(decl, '('); i >= 0 {
		base = strings.TrimSpace(decl[:i])
		args = strings.TrimSuffix(strings.TrimSpace(decl[i+1:]), ")")
	}
	code, ok := declTypes[strings.Join(strings.Fields(base), " ")]
	if !ok {
		return TypeInfo{Type: DBObject}, true
	}
	ti := TypeInfo{Type: code}
	if args != "" {
		parts := strings.Split(args, ",")
		ti.Precision, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
		if len(parts) > 1 {
			ti.Scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		}
	}
	switch code {
	case DBNumeric:
		if args == "" {
			ti.Precision, ti.Scale = 15, 0
		}
	case DBChar:
		if args == "" {
			ti.Precision = 1
		}
	case DBString:
		if args == "" {
			ti.Precision = -1
		}
	}
	return ti, true
}
