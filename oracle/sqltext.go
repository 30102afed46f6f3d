// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package oracle

import (
	"strings"
	"unicode"
)

type sqlTokenKind int

const (
	sqlBlank sqlTokenKind = iota
	sqlWord
	sqlQuoted
	sqlPunct
	// sqlHost is a host expression replaced by '?'.
	sqlHost
)

type sqlToken struct {
	kind sqlTokenKind
	text string
	// host is the name of the host expression of a sqlHost token.
	host string
}

// sqlText is a SQL statement split into tokens. Concatenating the text of
// its tokens gives the statement back.
type sqlText []sqlToken

func isWordChar(r rune) bool {
	return r == '_' || r == '$' || r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scanSQL splits sql into tokens. It only needs to be precise enough to find
// words outside of string literals and quoted identifiers.
func scanSQL(sql string) sqlText {
	var toks sqlText
	rs := []rune(sql)
	for i := 0; i < len(rs); {
		start := i
		r := rs[i]
		var kind sqlTokenKind
		switch {
		case unicode.IsSpace(r):
			for i < len(rs) && unicode.IsSpace(rs[i]) {
				i++
			}
			kind = sqlBlank
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
			kind = sqlBlank
		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			i += 2
			for i < len(rs) && !(rs[i] == '*' && i+1 < len(rs) && rs[i+1] == '/') {
				i++
			}
			i = min(i+2, len(rs))
			kind = sqlBlank
		case r == '\'' || r == '"' || r == '`':
			i++
			for i < len(rs) {
				if rs[i] == r {
					// A doubled quote is an escaped quote.
					if i+1 < len(rs) && rs[i+1] == r {
						i += 2
						continue
					}
					break
				}
				i++
			}
			i = min(i+1, len(rs))
			kind = sqlQuoted
		case r == '[':
			for i < len(rs) && rs[i] != ']' {
				i++
			}
			i = min(i+1, len(rs))
			kind = sqlQuoted
		case isWordChar(r):
			for i < len(rs) && isWordChar(rs[i]) {
				i++
			}
			kind = sqlWord
		default:
			i++
			kind = sqlPunct
		}
		toks = append(toks, sqlToken{kind: kind, text: string(rs[start:i])})
	}
	return toks
}

func (t sqlText) String() string {
	var sb strings.Builder
	for _, tok := range t {
		if tok.kind == sqlHost {
			sb.WriteString("?")
		} else {
			sb.WriteString(tok.text)
		}
	}
	return sb.String()
}

// next returns the index of the first non blank token from i on, or
// len(t).
func (t sqlText) next(i int) int {
	for i < len(t) && t[i].kind == sqlBlank {
		i++
	}
	return i
}

func (t sqlText) isWord(i int, w string) bool {
	return i < len(t) && t[i].kind == sqlWord && strings.EqualFold(t[i].text, w)
}

func (t sqlText) isPunct(i int, p string) bool {
	return i < len(t) && t[i].kind == sqlPunct && t[i].text == p
}

var stmtKinds = map[string]StmtKind{
	"SELECT":   StmtSelect,
	"WITH":     StmtSelect,
	"INSERT":   StmtInsert,
	"UPDATE":   StmtUpdate,
	"DELETE":   StmtDelete,
	"MERGE":    StmtMerge,
	"REPLACE":  StmtReplace,
	"TRUNCATE": StmtTruncate,
}

// kind returns the kind of the statement from its first word.
func (t sqlText) kind() StmtKind {
	i := t.next(0)
	for t.isPunct(i, "(") {
		i = t.next(i + 1)
	}
	if i < len(t) && t[i].kind == sqlWord {
		return stmtKinds[strings.ToUpper(t[i].text)]
	}
	return StmtOther
}

// cutInto removes the into-clause of a query and returns the names it lists,
// upper cased unless quoted. The clause may follow the select list or end
// the query. It returns nil if there is no into-clause.
func (t sqlText) cutInto() (sqlText, []string) {
	depth := 0
	for i := range t {
		switch {
		case t.isPunct(i, "("):
			depth++
		case t.isPunct(i, ")"):
			depth--
		case depth == 0 && t.isWord(i, "INTO"):
			var names []string
			end := i
			j := t.next(i + 1)
			for j < len(t) && (t[j].kind == sqlWord || t[j].kind == sqlQuoted) {
				names = append(names, normalizeName(t[j].text))
				end = j
				j = t.next(j + 1)
				if !t.isPunct(j, ",") {
					break
				}
				j = t.next(j + 1)
			}
			if names == nil {
				return t, nil
			}
			// Drop the blanks before INTO as well.
			start := i
			for start > 0 && t[start-1].kind == sqlBlank {
				start--
			}
			cut := append(sqlText{}, t[:start]...)
			cut = append(cut, t[end+1:]...)
			return cut, names
		}
	}
	return t, nil
}

// stripFromDual removes a trailing "FROM DUAL", which SQLite does not know.
func (t sqlText) stripFromDual() sqlText {
	n := len(t)
	for n > 0 && (t[n-1].kind == sqlBlank || t.isPunct(n-1, ";")) {
		n--
	}
	if n < 3 || !t.isWord(n-1, "DUAL") {
		return t
	}
	i := n - 2
	for i > 0 && t[i].kind == sqlBlank {
		i--
	}
	if !t.isWord(i, "FROM") {
		return t
	}
	for i > 0 && t[i-1].kind == sqlBlank {
		i--
	}
	return t[:i]
}

// markHost replaces the occurrences of the host expression name, an
// identifier or RECORD.FIELD, by host tokens. It returns false if name does
// not occur.
func (t *sqlText) markHost(name string) bool {
	parts := strings.Split(name, ".")
	var out sqlText
	found := false
	toks := *t
	for i := 0; i < len(toks); i++ {
		if n := toks.matchParts(i, parts); n > 0 {
			host := make([]string, len(parts))
			for k, p := range parts {
				host[k] = normalizeName(p)
			}
			out = append(out, sqlToken{kind: sqlHost, text: "?", host: strings.Join(host, ".")})
			i += n - 1
			found = true
			continue
		}
		out = append(out, toks[i])
	}
	*t = out
	return found
}

// matchParts returns the number of tokens of the dotted name parts starting
// at i, or 0 if they do not start at i.
func (t sqlText) matchParts(i int, parts []string) int {
	if i > 0 && t.isPunct(i-1, ".") {
		return 0
	}
	j := i
	for k, p := range parts {
		if k > 0 {
			if !t.isPunct(j, ".") {
				return 0
			}
			j++
		}
		if !t.isWord(j, p) {
			return 0
		}
		j++
	}
	if t.isPunct(j, ".") {
		return 0
	}
	return j - i
}

// hosts returns the names of the host expressions in text order.
func (t sqlText) hosts() []string {
	var names []string
	for _, tok := range t {
		if tok.kind == sqlHost {
			names = append(names, tok.host)
		}
	}
	return names
}

// normalizeName upper cases an identifier, or unquotes a quoted one.
func normalizeName(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '`':
			return s[1 : len(s)-1]
		case '[':
			return s[1 : len(s)-1]
		}
	}
	return strings.ToUpper(s)
}
