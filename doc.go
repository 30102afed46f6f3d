/*
Package plcsql compiles PL/CSQL stored procedures and functions into the Java
classes that the stored procedure server of the database runs.

A routine is compiled from the text of its CREATE PROCEDURE or CREATE
FUNCTION statement:

	c := plcsql.NewCompiler(oracle.NewSQLOracle(db, nil))
	res, err := c.Compile(ctx, `
	CREATE OR REPLACE FUNCTION add_tax(price NUMERIC(10, 2)) RETURN NUMERIC(10, 2) IS
	BEGIN
		RETURN price * 1.2;
	END;`)

The compiler knows nothing about the database the routine will run on. What
it needs to know is asked to an [oracle.Oracle], the metadata server, in two
batches per compilation:

 1. The static SQL statements of the routine are analysed before the routine
    itself. The answers tell the host expressions, the selected columns and
    the into-variables of every statement.

 2. The global names the routine refers to are resolved after the routine is
    converted: stored procedures and functions it calls, serials, and table
    columns used in %TYPE declarations.

The result types of builtin functions are asked one at a time while type
checking.

# Errors

Errors in the program are returned as [*Error] values holding the position
of the construct at fault:

	var perr *plcsql.Error
	if errors.As(err, &perr) {
		fmt.Printf("%d:%d: %s\n", perr.Pos.Line, perr.Pos.Column, perr.Msg)
	}

Any other failure, such as the metadata server being unreachable, is logged
with its details and reported as [ErrInternal].

# Registering routines

A compiled routine can be called by routines compiled later once it is
recorded in the catalog the oracle reads from:

	err := oracle.RegisterRoutine(ctx, db, res.Routine)
*/
package plcsql
