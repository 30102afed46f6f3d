// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Command plcsqlc compiles PL/CSQL stored routines into Java source.
//
// Usage:
//
//	plcsqlc [flags] [file ...]
//
// Each file holds one CREATE PROCEDURE or CREATE FUNCTION statement. Without
// files the statement is read from the standard input, or, with -i, from a
// line editor where a line holding only "/" compiles what was typed.
//
// Tables, columns and stored routines are looked up in a catalog database,
// SQLite by default or dqlite with -driver dqlite.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/peterh/liner"

	"github.com/canonical/plcsql"
	"github.com/canonical/plcsql/oracle"
)

const (
	historyFile = ".plcsqlc_history"
	promptMain  = "plcsql> "
	promptCont  = "   ...> "
)

type config struct {
	db          string
	driver      string
	dqliteAddr  string
	schema      string
	out         string
	register    bool
	interactive bool
	logLevel    slog.Level
	files       []string
}

// errFailed is returned when some routine did not compile. The errors have
// already been reported.
var errFailed = errors.New("compilation failed")

func parseFlags(args []string, stderr io.Writer) (*config, error) {
	cfg := &config{}
	fs := flag.NewFlagSet("plcsqlc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.db, "db", ":memory:", "catalog database: a SQLite DSN, or a database name with -driver dqlite")
	fs.StringVar(&cfg.driver, "driver", "sqlite3", "catalog database driver: sqlite3 or dqlite")
	fs.StringVar(&cfg.dqliteAddr, "dqlite-addr", "127.0.0.1:9001", "address of a dqlite node, with -driver dqlite")
	fs.StringVar(&cfg.schema, "schema", "", "SQL file run against the catalog before compiling")
	fs.StringVar(&cfg.out, "o", "", "file the generated Java source is written to (default stdout)")
	fs.BoolVar(&cfg.register, "register", false, "record compiled routines in the catalog so that later ones can call them")
	fs.BoolVar(&cfg.interactive, "i", false, "read routines from a line editor; a line holding only / compiles the buffer")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: plcsqlc [flags] [file ...]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.logLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", *logLevel)
	}
	if cfg.driver != "sqlite3" && cfg.driver != "dqlite" {
		return nil, fmt.Errorf("unknown driver %q", cfg.driver)
	}
	cfg.files = fs.Args()
	if cfg.interactive && len(cfg.files) > 0 {
		return nil, errors.New("files cannot be given with -i")
	}
	return cfg, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errFailed) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "plcsqlc: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.logLevel}))

	db, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.schema != "" {
		if err := runSchema(ctx, db, cfg.schema); err != nil {
			return err
		}
	}

	out := stdout
	if cfg.out != "" {
		f, err := os.Create(cfg.out)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}

	s := &session{
		cfg:      cfg,
		db:       db,
		out:      out,
		stderr:   stderr,
		compiler: plcsql.NewCompiler(oracle.NewSQLOracle(db, logger), plcsql.WithLogger(logger), plcsql.WithSQLCache()),
	}
	switch {
	case cfg.interactive:
		return s.interact(ctx)
	case len(cfg.files) == 0:
		src, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		return s.compile(ctx, "<stdin>", string(src))
	}
	failed := false
	for _, name := range cfg.files {
		src, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		if err := s.compile(ctx, name, string(src)); errors.Is(err, errFailed) {
			failed = true
		} else if err != nil {
			return err
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func openCatalog(ctx context.Context, cfg *config) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if cfg.driver == "dqlite" {
		db, err = oracle.OpenDqlite(ctx, cfg.dqliteAddr, cfg.db)
	} else {
		db, err = sql.Open("sqlite3", cfg.db)
		if err == nil {
			// Every connection to an in-memory database would get its own.
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := oracle.InitCatalog(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runSchema(ctx context.Context, db *sql.DB, name string) error {
	schema, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("cannot run schema %s: %w", name, err)
	}
	return nil
}

type session struct {
	cfg      *config
	db       *sql.DB
	out      io.Writer
	stderr   io.Writer
	compiler *plcsql.Compiler
}

// compile compiles src, read from name, and writes the generated class. Errors
// in the program are reported as "name:line:column: message" and returned as
// errFailed.
func (s *session) compile(ctx context.Context, name, src string) error {
	res, err := s.compiler.Compile(ctx, src)
	var perr *plcsql.Error
	if errors.As(err, &perr) {
		fmt.Fprintf(s.stderr, "%s:%d:%d: %s error: %s\n", name, perr.Pos.Line, perr.Pos.Column, perr.Kind, perr.Msg)
		return errFailed
	} else if err != nil {
		return err
	}
	if s.cfg.register {
		if err := oracle.RegisterRoutine(ctx, s.db, res.Routine); err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "// %s\n", res.Signature)
	_, err = io.WriteString(s.out, res.Source)
	return err
}

// interact reads routines from a line editor until end of input.
func (s *session) interact(ctx context.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			ln.ReadHistory(f)
			f.Close()
		}
	}

	for n := 1; ; n++ {
		src, ok := readRoutine(ln)
		if !ok {
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(src)
		err := s.compile(ctx, fmt.Sprintf("<input %d>", n), src)
		if err != nil && !errors.Is(err, errFailed) {
			fmt.Fprintf(s.stderr, "plcsqlc: %v\n", err)
		}
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}

// readRoutine reads lines up to one holding only "/". It returns false at
// the end of input.
func readRoutine(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C drops what was typed.
			b.Reset()
			continue
		}
		if err != nil {
			return b.String(), b.Len() > 0
		}
		if strings.TrimSpace(line) == "/" {
			return b.String(), true
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
