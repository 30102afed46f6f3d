// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package convert

import (
	"strings"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	pt "github.com/canonical/plcsql/internal/parsetree"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

// StaticSQL returns the embedded SQL statements of the unit rooted at root,
// in document order.
func StaticSQL(root *pt.Node) []*pt.Node {
	var nodes []*pt.Node
	pt.Walk(root, func(n *pt.Node) bool {
		if n.Kind == pt.KStaticSQL {
			nodes = append(nodes, n)
			return false
		}
		return true
	})
	return nodes
}

// MatchSQL pairs the SQL statements given to the server with the semantics
// it answered, by sequence number. A statement left without an answer is
// reported when the converter reaches it.
func MatchSQL(nodes []*pt.Node, answers []oracle.SQLSemantics) (map[*pt.Node]oracle.SQLSemantics, error) {
	sqls := make(map[*pt.Node]oracle.SQLSemantics, len(answers))
	for _, a := range answers {
		if a.Seq < 0 || a.Seq >= len(nodes) {
			return nil, diag.Internalf("SQL semantics for unknown statement %d", a.Seq)
		}
		n := nodes[a.Seq]
		if _, ok := sqls[n]; ok {
			return nil, diag.Internalf("SQL statement %d analysed twice", a.Seq)
		}
		sqls[n] = a
	}
	return sqls, nil
}

// staticSQL checks an embedded SQL statement against its semantics and
// resolves its host expressions and into-variables.
func (c *Converter) staticSQL(n *pt.Node) (*ast.StaticSQL, oracle.SQLSemantics) {
	sem, ok := c.sqls[n]
	if !ok {
		panic(diag.Internalf("no semantics for the SQL statement at %s", pos(n)))
	}
	if sem.ErrCode != 0 {
		throwf(n, "%s", sem.ErrMsg)
	}

	sql := &ast.StaticSQL{
		Positioned: ast.Positioned{Position: pos(n)},
		Kind:       sem.Kind.String(),
		Rewritten:  sem.Rewritten,
	}
	for _, h := range sem.HostExprs {
		sql.HostExprs = append(sql.HostExprs, c.hostExpr(n, h))
	}

	if sem.Kind == oracle.StmtSelect {
		for _, col := range sem.Columns {
			sql.Columns = append(sql.Columns, ast.Column{
				Name: strings.ToUpper(col.Name),
				Type: c.columnType(n, col),
			})
		}
		if sem.IntoVars != nil {
			if len(sem.IntoVars) != len(sem.Columns) {
				throwf(n, "the length of select list is different from the length of into-variables")
			}
			for _, v := range sem.IntoVars {
				sql.Into = append(sql.Into, c.nonFuncIdent(n, v, true))
			}
		}
	}
	return sql, sem
}

// hostExpr resolves a host expression, either NAME or RECORD.FIELD.
func (c *Converter) hostExpr(n *pt.Node, name string) ast.Expr {
	parts := strings.Split(name, ".")
	switch len(parts) {
	case 1:
		return c.nonFuncIdent(n, name, true)
	case 2:
		rec := c.nonFuncIdent(n, parts[0], true)
		if _, ok := rec.Decl.(*ast.DeclForRecord); !ok {
			throwf(n, "%s is not a record", parts[0])
		}
		return &ast.ExprField{ExprBase: ast.At(pos(n)), Record: rec, Field: parts[1]}
	}
	throwf(n, "invalid form of a host expression %s", name)
	return nil
}

// columnType returns the type of a column of a select list. The server
// cannot tell the type of a column that is a host variable, so it is taken
// from its declaration.
func (c *Converter) columnType(n *pt.Node, col oracle.Column) *types.Type {
	if col.Type == oracle.DBVariable {
		name := strings.ToUpper(col.Name)
		id := c.nonFuncIdent(n, name, false)
		if id == nil {
			return types.Object
		}
		switch id.Decl.(type) {
		case *ast.DeclForRecord:
			throwf(n, "for-loop iterator record %s cannot be used in a select list", name)
		case *ast.DeclCursor:
			throwf(n, "cursor %s cannot be used in a select list", name)
		}
		if t, ok := knownType(id.Decl); ok {
			return t
		}
		return types.Object
	}
	if !types.IsSupported(col.Type) {
		throwf(n, "the SELECT statement contains a column %s of an unsupported type %s", col.Name, col.TypeInfo)
	}
	return types.ValueType(col.Type)
}
