package plcsql_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// This file contains a wrapper sql.Driver over the SQLite driver which counts
// the statements the metadata server runs on the database, so that tests can
// check when the compiler asks it.

// statementsRun counts the statements prepared or run on the database,
// indexed by test name. The mutex must be locked when accessing it.
var statementsRun = map[string]int{}
var statementsMutex sync.Mutex

func countStatement(testName string) {
	statementsMutex.Lock()
	defer statementsMutex.Unlock()
	statementsRun[testName]++
}

func statementCount(testName string) int {
	statementsMutex.Lock()
	defer statementsMutex.Unlock()
	return statementsRun[testName]
}

type countingDriver struct {
	*sqlite3.SQLiteDriver
}

type countingConn struct {
	testName string
	*sqlite3.SQLiteConn
}

func (c *countingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	countStatement(c.testName)
	return c.SQLiteConn.PrepareContext(ctx, query)
}

func (c *countingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *countingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	countStatement(c.testName)
	return c.SQLiteConn.QueryContext(ctx, query, args)
}

func (c *countingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	countStatement(c.testName)
	return c.SQLiteConn.ExecContext(ctx, query, args)
}

const testNameTag = "testName"

// Open expects the DSN to contain the test name using the testNameTag
// attribute.
func (d *countingDriver) Open(name string) (driver.Conn, error) {
	var testName string
	if _, params, ok := strings.Cut(name, "?"); ok {
		for _, p := range strings.Split(params, "&") {
			if v, ok := strings.CutPrefix(p, testNameTag+"="); ok {
				testName = v
			}
		}
	}
	if testName == "" {
		panic("internal error: testName is not found in the db DSN")
	}

	baseConn, err := d.SQLiteDriver.Open(name)
	if err != nil {
		return nil, err
	}
	conn, ok := baseConn.(*sqlite3.SQLiteConn)
	if !ok {
		panic("internal error: base driver is not SQLite")
	}
	return &countingConn{SQLiteConn: conn, testName: testName}, nil
}

func init() {
	sql.Register("sqlite3_counted", &countingDriver{&sqlite3.SQLiteDriver{}})
}
