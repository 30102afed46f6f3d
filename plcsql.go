// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package plcsql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/canonical/plcsql/internal/ast"
	"github.com/canonical/plcsql/internal/codegen"
	"github.com/canonical/plcsql/internal/convert"
	"github.com/canonical/plcsql/internal/diag"
	"github.com/canonical/plcsql/internal/parse"
	"github.com/canonical/plcsql/internal/typecheck"
	"github.com/canonical/plcsql/internal/types"
	"github.com/canonical/plcsql/oracle"
)

// Error is a syntax or semantic error in a compiled program. It carries the
// line and column of the construct at fault.
type Error = diag.Error

// ErrorKind tells syntax errors from semantic errors.
type ErrorKind = diag.Kind

const (
	KindSyntax   = diag.KindSyntax
	KindSemantic = diag.KindSemantic
)

// ErrInternal is returned when a compilation fails for a reason that is not
// the fault of the program, such as an unreachable metadata server or a bug
// of the compiler. The details are logged.
var ErrInternal = errors.New("internal compiler error")

// Result is a compiled routine.
type Result struct {
	// Source is the Java source of the class implementing the routine.
	Source    string
	ClassName string
	// Signature identifies the entry point of the class, e.g.
	// "Func_F.F(java.lang.Integer) return java.lang.Integer".
	Signature string
	// ConnectionRequired is set when the routine needs a connection to the
	// database to run.
	ConnectionRequired bool
	// Imports are the Java packages referenced by the generated code.
	Imports []string
	// Routine describes the compiled routine as other routines see it, for
	// oracle.RegisterRoutine.
	Routine oracle.Routine
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger of the compiler. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithSQLCache makes the compiler remember the answers of the metadata
// server about SQL statements across compilations. The answers must be
// forgotten with ForgetSQL when the schema of the database changes.
func WithSQLCache() Option {
	return func(c *Compiler) {
		c.cache = newSQLCache()
	}
}

// Compiler compiles PL/CSQL stored routines into Java classes. The metadata
// of the database the routines run on is asked to an oracle. A Compiler can
// be used by concurrent goroutines.
type Compiler struct {
	oracle oracle.Oracle
	logger *slog.Logger
	cache  *sqlCache
}

// NewCompiler returns a compiler asking o about the database.
func NewCompiler(o oracle.Oracle, opts ...Option) *Compiler {
	c := &Compiler{
		oracle: o,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForgetSQL drops the cached answers about SQL statements.
func (c *Compiler) ForgetSQL() {
	if c.cache != nil {
		c.cache.forget()
	}
}

// Compile compiles the CREATE PROCEDURE or CREATE FUNCTION statement src.
// Errors in the program are returned as *Error; any other failure is
// logged and reported as ErrInternal.
func (c *Compiler) Compile(ctx context.Context, src string) (res *Result, err error) {
	logger := c.logger.With("compile", uuid.NewString())
	start := time.Now()
	defer func() {
		switch {
		case err == nil:
			logger.Info("compiled", "routine", res.Routine.Name, "class", res.ClassName, "elapsed", time.Since(start))
		case diag.IsUser(err):
			logger.Debug("rejected", "error", err.Error())
		default:
			logger.Error("compilation failed", "error", fmt.Sprintf("%+v", err))
			res, err = nil, ErrInternal
		}
	}()

	o := oracle.Oracle(c.oracle)
	if c.cache != nil {
		o = &cachedOracle{Oracle: o, cache: c.cache}
	}

	stage := time.Now()
	tree, err := parse.NewParser().Parse(src)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed", "stage", "parse", "elapsed", time.Since(stage))

	// Static SQL is analysed up front so that the converter knows the host
	// expressions and into-variables of every statement.
	stage = time.Now()
	nodes := convert.StaticSQL(tree)
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = n.Text
	}
	var sems []oracle.SQLSemantics
	if len(texts) > 0 {
		sems, err = o.SQLSemantics(ctx, texts)
		if err != nil {
			return nil, errors.Wrap(err, "cannot analyse static SQL")
		}
	}
	sqls, err := convert.MatchSQL(nodes, sems)
	if err != nil {
		return nil, err
	}
	logger.Debug("static SQL analysed", "stage", "sql", "fragments", len(texts), "elapsed", time.Since(stage))

	stage = time.Now()
	conv := convert.New(sqls)
	unit, err := conv.Convert(tree)
	if err != nil {
		return nil, err
	}
	logger.Debug("converted", "stage", "convert", "elapsed", time.Since(stage))

	stage = time.Now()
	questions := len(conv.Questions())
	if err := conv.AskServerSemanticQuestions(ctx, o); err != nil {
		return nil, err
	}
	logger.Debug("global names resolved", "stage", "questions", "questions", questions, "elapsed", time.Since(stage))

	stage = time.Now()
	if err := typecheck.Check(ctx, unit, o); err != nil {
		return nil, err
	}
	logger.Debug("type checked", "stage", "typecheck", "elapsed", time.Since(stage))

	stage = time.Now()
	out, err := codegen.Generate(unit)
	if err != nil {
		return nil, err
	}
	logger.Debug("generated", "stage", "codegen", "elapsed", time.Since(stage))

	routine, err := routineOf(unit)
	if err != nil {
		return nil, err
	}
	routine.Class = out.ClassName
	routine.Signature = out.Signature
	return &Result{
		Source:             out.Source,
		ClassName:          out.ClassName,
		Signature:          out.Signature,
		ConnectionRequired: unit.ConnectionRequired,
		Imports:            importList(unit.Imports),
		Routine:            routine,
	}, nil
}

func importList(imports map[string]bool) []string {
	list := make([]string, 0, len(imports))
	for imp := range imports {
		list = append(list, imp)
	}
	sort.Strings(list)
	return list
}

var paramModes = map[ast.ParamMode]oracle.ParamMode{
	ast.ParamIn:    oracle.ModeIn,
	ast.ParamOut:   oracle.ModeOut,
	ast.ParamInOut: oracle.ModeInOut,
}

// routineOf returns the catalog record of the routine of unit.
func routineOf(unit *ast.Unit) (oracle.Routine, error) {
	base := unit.Routine.Base()
	r := oracle.Routine{Name: base.Name()}
	for _, p := range base.Params {
		ti, err := typeInfo(p.Type.Get())
		if err != nil {
			return oracle.Routine{}, errors.Wrapf(err, "parameter %s", p.Name())
		}
		r.Params = append(r.Params, oracle.Param{Name: p.Name(), Mode: paramModes[p.Mode], TypeInfo: ti})
	}
	if f, ok := unit.Routine.(*ast.DeclFunc); ok {
		ti, err := typeInfo(f.RetType.Get())
		if err != nil {
			return oracle.Routine{}, errors.Wrap(err, "return type")
		}
		r.Function = true
		r.Ret = ti
	}
	return r, nil
}

func typeInfo(t *types.Type) (oracle.TypeInfo, error) {
	code, precision, scale, ok := types.DBTypeOf(t)
	if !ok {
		return oracle.TypeInfo{}, errors.Errorf("type %s has no SQL counterpart", t)
	}
	return oracle.TypeInfo{Type: code, Precision: precision, Scale: scale}, nil
}
