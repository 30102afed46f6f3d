// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package convert

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

// AskServerSemanticQuestions asks the recorded questions to the server in a
// single batch and completes the tree with the answers. A question the
// server reports an error for is a semantic error at the place it was asked
// from; a question left without an answer is an internal error.
func (c *Converter) AskServerSemanticQuestions(ctx context.Context, o oracle.Oracle) (err error) {
	if len(c.questions) == 0 {
		return nil
	}
	answers, err := o.GlobalSemantics(ctx, c.Questions())
	if err != nil {
		return errors.Wrap(err, "cannot ask global semantic questions")
	}

	defer diag.Catch(&err)
	answered := make([]bool, len(c.questions))
	for _, a := range answers {
		if a.Seq < 0 || a.Seq >= len(c.questions) || answered[a.Seq] {
			return diag.Internalf("unexpected answer to question %d", a.Seq)
		}
		answered[a.Seq] = true
		q := c.questions[a.Seq]
		if a.ErrCode != 0 {
			diag.Throw(diag.Semanticf(q.pos, "%s", a.ErrMsg))
		}
		c.answer(q, a)
	}
	for i, ok := range answered {
		if !ok {
			return diag.Internalf("question %d (%s) was not answered", i, c.questions[i].Question)
		}
	}
	return nil
}

func (c *Converter) answer(q *question, a oracle.Answer) {
	switch q.Kind {
	case oracle.AskProcedure:
		call := q.node.(*ast.StmtGlobalProcCall)
		d := &ast.DeclProc{}
		d.DeclBase = ast.Named(diag.Pos{}, call.Name)
		d.Params = globalParams(q, call.Name, a.Params)
		checkGlobalArgs(q, "procedure", call.Name, call.Args, d.Params)
		call.Decl.Resolve(d)

	case oracle.AskFunction:
		call := q.node.(*ast.ExprGlobalFuncCall)
		d := &ast.DeclFunc{}
		d.DeclBase = ast.Named(diag.Pos{}, call.Name)
		d.Params = globalParams(q, call.Name, a.Params)
		checkGlobalArgs(q, "function", call.Name, call.Args, d.Params)
		if !types.IsSupported(a.Ret.Type) {
			diag.Throw(diag.Semanticf(q.pos, "the function uses unsupported type %s as its return type", a.Ret.Type))
		}
		d.RetType = ast.Known(types.DeclType(a.Ret.Type, a.Ret.Precision, a.Ret.Scale))
		call.Decl.Resolve(d)

	case oracle.AskSerial:
		q.node.(*ast.ExprSerialVal).Verified.Resolve(true)

	case oracle.AskColumnType:
		ct := a.ColumnType
		if !types.IsSupported(ct.Type) {
			diag.Throw(diag.Semanticf(q.pos, "the table column %s.%s has an unsupported type %s", q.Table, q.Column, ct))
		}
		t := types.DeclType(ct.Type, ct.Precision, ct.Scale)
		for _, target := range q.typeTargets {
			target.Resolve(t)
		}

	default:
		panic(diag.Internalf("unknown question kind %s", q.Kind))
	}
}

// globalParams builds the parameters of a stored routine from its
// signature. The parameters are named p0, p1 and so on.
func globalParams(q *question, name string, ps []oracle.Param) []*ast.DeclParam {
	var params []*ast.DeclParam
	for i, p := range ps {
		if !types.IsSupported(p.Type) {
			diag.Throw(diag.Semanticf(q.pos, "%s uses unsupported type %s for parameter %d", name, p.Type, i+1))
		}
		d := &ast.DeclParam{
			DeclBase: ast.Named(diag.Pos{}, "p"+strconv.Itoa(i)),
			Type:     ast.Known(types.DeclType(p.Type, p.Precision, p.Scale)),
		}
		switch p.Mode {
		case oracle.ModeOut:
			d.Mode = ast.ParamOut
		case oracle.ModeInOut:
			d.Mode = ast.ParamInOut
		}
		params = append(params, d)
	}
	return params
}

func checkGlobalArgs(q *question, what, name string, args []ast.Expr, params []*ast.DeclParam) {
	if len(args) != len(params) {
		diag.Throw(diag.Semanticf(q.pos,
			"the number of arguments to %s %s does not match the number of the %s's formal parameters", what, name, what))
	}
	for i, p := range params {
		if !p.IsOut() {
			continue
		}
		if id, ok := args[i].(*ast.ExprID); !ok || !ast.IsAssignable(id.Decl) {
			diag.Throw(diag.Semanticf(q.pos,
				"argument %d to the call of %s must be assignable to because it is to an OUT parameter", i+1, name))
		}
	}
}
