package parse

import (
	"github.com/canonical/plcsql/internal/diag"
	pt "github.com/canonical/plcsql/internal/parsetree"
)

// ParseExpr parses a single expression.
func ParseExpr(input string) (n *pt.Node, err error) {
	defer diag.Catch(&err)
	p := NewParser()
	p.init(input)
	n = p.parseExpr()
	if p.cur().kind != tEOF {
		p.unexpected()
	}
	return n, nil
}

// ParseStmt parses a single statement without its semicolon.
func ParseStmt(input string) (n *pt.Node, err error) {
	defer diag.Catch(&err)
	p := NewParser()
	p.init(input)
	n = p.parseStmt()
	p.skip(";")
	if p.cur().kind != tEOF {
		p.unexpected()
	}
	return n, nil
}
