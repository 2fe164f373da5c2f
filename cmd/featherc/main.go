// Command featherc is feather's build-time CLI: it compiles a project's
// migrations into a schema, type-checks a directory of named queries
// against that schema, and can apply pending migrations to a real database.
// Flag parsing follows the teacher's cmd/sqlite3def/sqlite3def.go template
// (jessevdk/go-flags, a single options struct decoded by flags.NewParser),
// generalized from sqldef's single dump/apply verb into feather's
// compile/check/migrate subcommands (SPEC_FULL.md SUPPLEMENTED FEATURES
// #2/#3).
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/compiler"
	"github.com/feathersql/feather/config"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/flog"
	"github.com/feathersql/feather/parser"
	"github.com/feathersql/feather/pool"
	"github.com/feathersql/feather/schema"
	"github.com/feathersql/feather/util"
)

var version string

type options struct {
	Config  string `short:"c" long:"config" description:"Path to the project manifest" default:"feather.yaml"`
	DumpAST    bool `long:"dump-ast" description:"Pretty-print the parsed syntax tree of every migration and query (SPEC_FULL.md supplemented feature)"`
	DumpSchema bool `long:"dump-schema" description:"Print the schema derived from migrations before running the command"`
	Help       bool `long:"help" description:"Show this help"`
	Version bool   `long:"version" description:"Show this version"`

	Args struct {
		Command string `positional-arg-name:"command" description:"compile | check | migrate"`
	} `positional-args:"yes"`
}

func main() {
	flog.Init()

	var opts options
	p := flags.NewParser(&opts, flags.Default)
	p.Usage = "[option...] compile|check|migrate"
	if _, err := p.Parse(); err != nil {
		os.Exit(1)
	}

	if opts.Help {
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	proj, err := config.Load(opts.Config)
	if err != nil {
		slog.Error("load project manifest", "error", err)
		os.Exit(1)
	}
	dir := filepath.Dir(opts.Config)

	switch opts.Args.Command {
	case "compile":
		if err := runCompile(proj, dir, opts.DumpAST, opts.DumpSchema); err != nil {
			slog.Error("compile", "error", err)
			os.Exit(1)
		}
	case "check":
		if err := runCheck(proj, dir, opts.DumpSchema); err != nil {
			slog.Error("check", "error", err)
			os.Exit(1)
		}
	case "migrate":
		if err := runMigrate(proj, dir); err != nil {
			slog.Error("migrate", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("unknown command %q\n\n", opts.Args.Command)
		p.WriteHelp(os.Stdout)
		os.Exit(1)
	}
}

// queryReport is one entry of `featherc compile`'s JSON output: the
// producer side of the spec's "code generation is an external collaborator"
// boundary (SPEC_FULL.md SUPPLEMENTED FEATURES #3).
type queryReport struct {
	File        string             `json:"file"`
	Inputs      []inputReport      `json:"inputs"`
	Outputs     []outputReport     `json:"outputs"`
	Diagnostics []diagnosticReport `json:"diagnostics"`
}

type inputReport struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type outputReport struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type diagnosticReport struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// buildSchema derives a schema.Schema by parsing and extracting every
// migration file, in project order.
func buildSchema(proj *config.Project, dir string, dumpAST bool) (*schema.Schema, error) {
	files, err := proj.MigrationFiles(dir)
	if err != nil {
		return nil, err
	}

	diags := diagnostic.NewBag()
	var all []ast.Stmt
	for _, f := range files {
		buf, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", f, err)
		}
		parsed, pdiags := parser.ParseAll(string(buf))
		diags.Merge(pdiags)
		all = append(all, parsed...)
	}
	if dumpAST {
		for _, st := range all {
			pp.Println(st)
		}
	}

	s := schema.Extract(all, diags)
	if diags.HasErrors() {
		return nil, fmt.Errorf("migrations failed to parse/extract: %d diagnostic(s)", len(diags.Items()))
	}
	return s, nil
}

// dumpSchema prints each table's columns and the schema's accumulated
// PRAGMA options (spec SUPPLEMENTED FEATURES #5), iterating the options map
// in sorted key order so the output is stable across runs.
func dumpSchema(s *schema.Schema) {
	for _, t := range s.Tables() {
		fmt.Printf("TABLE %s\n", t.Name)
		for _, col := range t.Columns {
			fmt.Printf("  %-20s %-10s not_null=%v pk=%v\n", col.Name, col.Affinity, col.NotNull, col.PrimaryKey)
		}
	}
	for k, v := range util.CanonicalMapIter(s.Options) {
		fmt.Printf("PRAGMA %s = %s\n", k, v)
	}
}

func runCompile(proj *config.Project, dir string, dumpAST, dumpSch bool) error {
	s, err := buildSchema(proj, dir, dumpAST)
	if err != nil {
		return err
	}
	if dumpSch {
		dumpSchema(s)
	}
	c := compiler.New(s)

	files, err := proj.QueryFiles(dir)
	if err != nil {
		return err
	}

	reports := make([]queryReport, 0, len(files))
	for _, f := range files {
		buf, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read query %s: %w", f, err)
		}
		stmt, pdiags := parser.ParseStatement(string(buf))
		if dumpAST {
			pp.Println(stmt)
		}

		report := queryReport{File: f}
		for _, d := range pdiags.Items() {
			report.Diagnostics = append(report.Diagnostics, toDiagnosticReport(d))
		}
		if stmt != nil {
			cq := c.Compile(stmt)
			report.Inputs = util.TransformSlice(cq.Inputs, func(in compiler.Input) inputReport {
				return inputReport{Name: in.Name, Type: in.Type.String()}
			})
			report.Outputs = util.TransformSlice(cq.Outputs, func(out compiler.Output) outputReport {
				return outputReport{Name: out.Name, Type: out.Type.String(), Nullable: out.Nullable}
			})
			for _, d := range cq.Diagnostics.Items() {
				report.Diagnostics = append(report.Diagnostics, toDiagnosticReport(d))
			}
		}
		reports = append(reports, report)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func toDiagnosticReport(d diagnostic.Diagnostic) diagnosticReport {
	return diagnosticReport{
		Severity: d.Severity.String(),
		Message:  d.Message,
		Start:    d.Location.Start,
		End:      d.Location.End,
	}
}

// runCheck parses and extracts every migration without opening the database
// and reports how many migration files checked cleanly (SPEC_FULL.md
// SUPPLEMENTED FEATURES #2, grounded on the teacher's --dry-run flag). It
// does not read __featherMigrations, so it does not report which migrations
// are pending.
func runCheck(proj *config.Project, dir string, dumpSch bool) error {
	files, err := proj.MigrationFiles(dir)
	if err != nil {
		return err
	}
	s, err := buildSchema(proj, dir, false)
	if err != nil {
		return err
	}
	if dumpSch {
		dumpSchema(s)
	}
	fmt.Printf("%d migration file(s) type-check cleanly against the declared schema\n", len(files))
	return nil
}

// runMigrate opens the pool against the project's real database file, which
// applies every migration not yet recorded in __featherMigrations as a side
// effect of pool.Open, then reports the applied count.
func runMigrate(proj *config.Project, dir string) error {
	files, err := proj.MigrationFiles(dir)
	if err != nil {
		return err
	}
	p, err := pool.Open(proj.Database, proj.MaxConnections, files)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Printf("%d migration file(s) applied to %s\n", len(files), proj.Database)
	return nil
}
