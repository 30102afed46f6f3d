package oracle

var ParseDeclType = parseDeclType

// Rewrite applies the rewriting done before a statement is prepared: the
// into-clause and a trailing FROM DUAL are removed from queries, and the
// given names are marked as host expressions.
func Rewrite(sql string, hosts ...string) (kind StmtKind, rewritten string, into []string, marked []string) {
	toks := scanSQL(sql)
	kind = toks.kind()
	if kind == StmtSelect {
		toks, into = toks.cutInto()
		toks = toks.stripFromDual()
	}
	for _, h := range hosts {
		toks.markHost(h)
	}
	return kind, toks.String(), into, toks.hosts()
}
