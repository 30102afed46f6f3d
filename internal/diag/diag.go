// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package diag holds the error kinds reported by the compiler.
//
// A user error is always a *Error carrying the 1-based line and column of the
// first token of the construct that caused it. Anything else escaping a
// compilation stage is an internal error.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindSyntax Kind = iota
	KindSemantic
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindSemantic:
		return "semantic"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pos is a 1-based position in the source text. The zero Pos is used for
// declarations that have no source, such as predefined ones.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Error is a syntax or semantic error in the compiled program.
type Error struct {
	Kind Kind
	Pos  Pos
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error at %s: %s", e.Kind, e.Pos, e.Msg)
}

func Syntaxf(pos Pos, format string, a ...any) *Error {
	return &Error{Kind: KindSyntax, Pos: pos, Msg: fmt.Sprintf(format, a...)}
}

func Semanticf(pos Pos, format string, a ...any) *Error {
	return &Error{Kind: KindSemantic, Pos: pos, Msg: fmt.Sprintf(format, a...)}
}

// Throw unwinds a recursive walk with a user error. It must be paired with a
// deferred Catch at the walk's entry point.
func Throw(e *Error) {
	panic(e)
}

// Catch stores a user error thrown by Throw into errp. Panics that are not
// user errors are converted to internal errors so that the caller can log
// them; runtime errors keep their stack in the wrapped error.
func Catch(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	switch v := r.(type) {
	case *Error:
		*errp = v
	case error:
		*errp = errors.WithStack(v)
	default:
		*errp = errors.Errorf("%v", v)
	}
}

// Internalf returns an internal-consistency error with a stack trace.
func Internalf(format string, a ...any) error {
	return errors.Errorf(format, a...)
}

// IsUser reports whether err is a syntax or semantic error.
func IsUser(err error) bool {
	_, ok := AsUser(err)
	return ok
}

// AsUser extracts the user error from err, if there is one.
func AsUser(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
