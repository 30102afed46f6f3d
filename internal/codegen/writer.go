// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package codegen

import (
	"fmt"
	"strings"
)

const indentUnit = "  "

// writer accumulates indented lines of Java source.
type writer struct {
	buf    strings.Builder
	indent int
}

// linef writes a line at the current indentation. Expressions spanning
// several lines keep their relative indentation.
func (w *writer) linef(format string, a ...any) {
	prefix := strings.Repeat(indentUnit, w.indent)
	for _, l := range strings.Split(fmt.Sprintf(format, a...), "\n") {
		if l != "" {
			w.buf.WriteString(prefix)
			w.buf.WriteString(l)
		}
		w.buf.WriteByte('\n')
	}
}

// text returns the lines written so far without the final newline, to be
// embedded in an enclosing line.
func (w *writer) text() string {
	return strings.TrimSuffix(w.buf.String(), "\n")
}

// openf writes a line and indents the following ones.
func (w *writer) openf(format string, a ...any) {
	w.linef(format, a...)
	w.indent++
}

// closef dedents and writes a line.
func (w *writer) closef(format string, a ...any) {
	w.indent--
	w.linef(format, a...)
}

func (w *writer) blank() {
	w.buf.WriteByte('\n')
}

func (w *writer) String() string {
	return w.buf.String()
}

// javaString returns s as a Java string literal.
func javaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
