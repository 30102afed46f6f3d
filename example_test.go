package plcsql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/canonical/plcsql"
	"github.com/canonical/plcsql/oracle"
)

func Example() {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		panic(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
	CREATE TABLE employee (
		name VARCHAR(40),
		id INTEGER,
		salary NUMERIC(10, 2)
	)`)
	if err != nil {
		panic(err)
	}
	if err := oracle.InitCatalog(ctx, db); err != nil {
		panic(err)
	}

	compiler := plcsql.NewCompiler(oracle.NewSQLOracle(db, nil))
	res, err := compiler.Compile(ctx, `
	CREATE OR REPLACE PROCEDURE raise_salary(emp INT, pct INT) IS
	BEGIN
		UPDATE employee SET salary = salary * (100 + pct) / 100 WHERE id = emp;
		IF SQL%ROWCOUNT = 0 THEN
			DBMS_OUTPUT.PUT_LINE('no such employee');
		END IF;
	END;`)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.ClassName)
	fmt.Println(res.Signature)

	// Other routines can call it once it is registered.
	if err := oracle.RegisterRoutine(ctx, db, res.Routine); err != nil {
		panic(err)
	}
	res, err = compiler.Compile(ctx, `
	CREATE PROCEDURE raise_all(pct INT) IS
	BEGIN
		FOR e IN (SELECT id FROM employee) LOOP
			raise_salary(e.id, pct);
		END LOOP;
	END;`)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Signature)

	_, err = compiler.Compile(ctx, `
	CREATE PROCEDURE broken IS
	BEGIN
		fire_everyone();
	END;`)
	var perr *plcsql.Error
	if errors.As(err, &perr) {
		fmt.Println(perr.Kind, perr.Pos.Line, perr.Msg)
	}

	// Output:
	// Proc_RAISE_SALARY
	// Proc_RAISE_SALARY.RAISE_SALARY(java.lang.Integer, java.lang.Integer)
	// Proc_RAISE_ALL.RAISE_ALL(java.lang.Integer)
	// semantic 4 undefined procedure FIRE_EVERYONE
}
