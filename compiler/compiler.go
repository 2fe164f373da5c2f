// Package compiler walks a single parsed statement against an extracted
// Schema and produces a CompiledQuery: the stable {inputs, outputs}
// exchange format downstream code generators consume (spec §4.5), built on
// top of the types package's unifier and environment model.
package compiler

import (
	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/schema"
	"github.com/feathersql/feather/types"
)

// Input is one bind parameter feather found in the query, in first-
// appearance order.
type Input struct {
	Name string
	Type *types.Ty
}

// Output is one projected column of a query's result set.
type Output struct {
	Name     string
	Type     *types.Ty
	Nullable bool
}

// CompiledQuery is the compiler's stable output: every input and output the
// statement produces, plus whatever diagnostics compiling it raised. A
// CompiledQuery with a non-empty Diagnostics bag is still fully populated —
// compilation never aborts partway (spec §7).
type CompiledQuery struct {
	Inputs      []Input
	Outputs     []Output
	Diagnostics *diagnostic.Bag
}

// Compiler holds the schema a batch of queries is compiled against. One
// Compiler is reused across every query in a project so schema extraction
// happens once.
type Compiler struct {
	Schema *schema.Schema
}

// New returns a Compiler bound to s.
func New(s *schema.Schema) *Compiler {
	return &Compiler{Schema: s}
}

// Compile type-checks stmt and returns its CompiledQuery. Statements with no
// inputs/outputs of their own (DDL, PRAGMA, transaction control) still
// return a valid, empty CompiledQuery rather than nil, so callers don't need
// a type switch before deciding whether to compile at all.
func (c *Compiler) Compile(stmt ast.Stmt) *CompiledQuery {
	diags := diagnostic.NewBag()
	u := types.NewUnifier()
	inf := types.NewInferrer(u, diags)
	sc := &subqueryCompiler{c: c}
	inf.Subqueries = sc

	var outputs []Output
	switch st := stmt.(type) {
	case *ast.SelectStmt:
		row := compileSelect(c, inf, nil, st)
		outputs = rowToOutputs(u, row)
	case *ast.InsertStmt:
		outputs = compileInsert(c, inf, st)
	case *ast.UpdateStmt:
		outputs = compileUpdate(c, inf, st)
	case *ast.DeleteStmt:
		outputs = compileDelete(c, inf, st)
	}

	inputs := make([]Input, len(inf.Inputs()))
	for i, in := range inf.Inputs() {
		inputs[i] = Input{Name: in.Name, Type: u.DeepResolve(in.Type)}
	}
	return &CompiledQuery{Inputs: inputs, Outputs: outputs, Diagnostics: diags}
}

// rowToOutputs flattens a KindRow Ty (a SELECT's output row) into the
// CompiledQuery's Outputs list, fully resolving each field.
func rowToOutputs(u *types.Unifier, row *types.Ty) []Output {
	resolved := u.DeepResolve(row)
	if resolved.Kind != types.KindRow {
		return nil
	}
	outputs := make([]Output, len(resolved.Row))
	for i, f := range resolved.Row {
		outputs[i] = Output{Name: f.Name, Type: f.Type.Base(), Nullable: f.Type.IsOptional()}
	}
	return outputs
}

// subqueryCompiler implements types.SubqueryCompiler, closing the loop
// between the type inferrer (which needs to type-check nested SELECTs in
// expression position) and this package (which owns SELECT compilation) —
// see types/infer.go's SubqueryCompiler doc comment for why the dependency
// has to run in this direction.
type subqueryCompiler struct {
	c *Compiler
}

// CompileRow type-checks sel with the same Inferrer that encountered it, so
// any bind parameters or diagnostics the nested SELECT produces land in the
// outer query's CompiledQuery rather than being discarded with a throwaway
// Inferrer.
func (sc *subqueryCompiler) CompileRow(inf *types.Inferrer, env *types.Environment, sel *ast.SelectStmt) *types.Ty {
	return compileSelect(sc.c, inf, env, sel)
}
