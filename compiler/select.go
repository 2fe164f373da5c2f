package compiler

import (
	"fmt"
	"strings"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/schema"
	"github.com/feathersql/feather/types"
)

// compileSelect type-checks sel against parentEnv (nil for a top-level
// query) and returns its output row type. This is the single entry point
// both Compile (top-level SELECT) and subqueryCompiler.CompileRow (nested
// SELECT) use.
func compileSelect(c *Compiler, inf *types.Inferrer, parentEnv *types.Environment, sel *ast.SelectStmt) *types.Ty {
	env := types.NewEnvironment(parentEnv)
	cteSources := compileCTEs(c, inf, env, sel.CTEs)
	for _, src := range cteSources {
		env.AddSource(src)
	}

	row := compileSelectCore(c, inf, env, sel.Core)
	for i, op := range sel.CompoundOps {
		armRow := compileSelectCore(c, inf, env, sel.CompoundCores[i])
		row = unifyCompoundArm(inf, sel, row, armRow, op)
	}

	for _, ob := range sel.OrderBy {
		inf.Infer(env, ob.Expr)
	}
	if sel.Limit != nil {
		if sel.Limit.Count != nil {
			inf.Infer(env, sel.Limit.Count)
		}
		if sel.Limit.Offset != nil {
			inf.Infer(env, sel.Limit.Offset)
		}
	}
	return row
}

func unifyCompoundArm(inf *types.Inferrer, sel *ast.SelectStmt, left, right *types.Ty, op ast.CompoundOp) *types.Ty {
	if left.Kind != types.KindRow || right.Kind != types.KindRow || len(left.Row) != len(right.Row) {
		inf.Diagnostics.Errorf(sel.Location(), "compound select arms have different arity")
		return left
	}
	fields := make([]types.Field, len(left.Row))
	for i := range left.Row {
		fields[i] = types.Field{Name: left.Row[i].Name, Type: inf.U.Unify(left.Row[i].Type, right.Row[i].Type)}
	}
	return types.Row(fields)
}

// compileCTEs type-checks a WITH clause's entries in reference order (a
// non-recursive CTE may reference any CTE declared earlier in the same
// WITH), building an environment source for each as it goes.
func compileCTEs(c *Compiler, inf *types.Inferrer, env *types.Environment, ctes []ast.CTE) map[string]types.Source {
	result := map[string]types.Source{}
	if len(ctes) == 0 {
		return result
	}

	deps := map[string][]string{}
	for _, cte := range ctes {
		deps[strings.ToLower(cte.Name)] = referencedNames(cte.Select)
	}
	ordered := topologicalSort(ctes, deps, func(c ast.CTE) string { return strings.ToLower(c.Name) })
	if len(ordered) == 0 {
		ordered = ctes // cyclic or self-referencing set; fall back to declared order
	}

	for _, cte := range ordered {
		var row *types.Ty
		if cte.Recursive {
			// Compile the first (anchor) arm against the environment as it
			// stands so far; the recursive arm can then reference the CTE's
			// own name by provisionally adding it with the anchor's shape.
			anchorEnv := types.NewEnvironment(env)
			for _, src := range result {
				anchorEnv.AddSource(src)
			}
			row = compileSelectCore(c, inf, anchorEnv, cte.Select.Core)
			selfSrc := rowToSource(inf.U, cte.Name, row, cte.Columns)
			recEnv := types.NewEnvironment(anchorEnv)
			recEnv.AddSource(selfSrc)
			for i, op := range cte.Select.CompoundOps {
				armRow := compileSelectCore(c, inf, recEnv, cte.Select.CompoundCores[i])
				row = unifyCompoundArm(inf, cte.Select, row, armRow, op)
			}
		} else {
			cteEnv := types.NewEnvironment(env)
			for _, src := range result {
				cteEnv.AddSource(src)
			}
			row = compileSelect(c, inf, cteEnv, cte.Select)
		}
		result[strings.ToLower(cte.Name)] = rowToSource(inf.U, cte.Name, row, cte.Columns)
	}
	return result
}

// rowToSource turns a compiled row type into an environment Source named
// name, renaming fields to explicit column aliases when the CTE declares
// them.
func rowToSource(u *types.Unifier, name string, row *types.Ty, columns []string) types.Source {
	resolved := u.Resolve(row)
	if resolved.Kind != types.KindRow {
		return types.Source{Alias: name}
	}
	fields := make([]types.Field, len(resolved.Row))
	for i, f := range resolved.Row {
		fname := f.Name
		if i < len(columns) {
			fname = columns[i]
		}
		fields[i] = types.Field{Name: fname, Type: f.Type}
	}
	return types.Source{Alias: name, Columns: fields}
}

// referencedNames collects every bare table name referenced by sel's FROM
// clauses, used to order CTEs before compiling them.
func referencedNames(sel *ast.SelectStmt) []string {
	var names []string
	var walk func(ast.TableSource)
	walk = func(ts ast.TableSource) {
		switch t := ts.(type) {
		case *ast.TableRef:
			names = append(names, strings.ToLower(t.Name))
		case *ast.JoinSource:
			walk(t.Left)
			walk(t.Right)
		case *ast.SubquerySource:
			if t.Select != nil {
				names = append(names, referencedNames(t.Select)...)
			}
		}
	}
	if sel.Core.From != nil {
		walk(sel.Core.From)
	}
	for _, core := range sel.CompoundCores {
		if core.From != nil {
			walk(core.From)
		}
	}
	return names
}

func compileSelectCore(c *Compiler, inf *types.Inferrer, parentEnv *types.Environment, core ast.SelectCore) *types.Ty {
	env := types.NewEnvironment(parentEnv)
	if core.From != nil {
		c.addTableSource(inf, env, core.From, false)
	}

	outputs := expandResultColumns(inf, env, core.Columns)

	if core.Where != nil {
		inf.Infer(env, core.Where)
	}
	for _, g := range core.GroupBy {
		inf.Infer(env, g)
	}
	if core.Having != nil {
		inf.Infer(env, core.Having)
	}
	return types.Row(outputs)
}

// expandResultColumns implements spec §4.5's projection rules: `*` expands
// to every in-scope column in source order, `t.*` to one source's columns,
// and an expression emits one output named by its alias, else its bare
// column name, else a synthesized columnN.
func expandResultColumns(inf *types.Inferrer, env *types.Environment, cols []ast.ResultColumn) []types.Field {
	var fields []types.Field
	anon := 0
	for _, rc := range cols {
		switch {
		case rc.Star && rc.TableStar == "":
			for _, src := range env.Sources() {
				for _, f := range src.Columns {
					fields = append(fields, f)
				}
			}
		case rc.Star:
			for _, src := range env.Sources() {
				if strings.EqualFold(src.Alias, rc.TableStar) {
					fields = append(fields, src.Columns...)
				}
			}
		default:
			ty := inf.Infer(env, rc.Expr)
			name := rc.Alias
			if name == "" {
				name = bareColumnName(rc.Expr)
			}
			if name == "" {
				anon++
				name = fmt.Sprintf("column%d", anon)
			}
			fields = append(fields, types.Field{Name: name, Type: ty})
		}
	}
	return fields
}

// bareColumnName returns expr's natural output name when it's a plain
// column reference or identifier, "" otherwise.
func bareColumnName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.ColumnRef:
		return e.Column
	case *ast.Ident:
		return e.Name
	default:
		return ""
	}
}

// addTableSource walks a FROM-clause tree, adding one Environment Source per
// leaf (table, subquery, table function), wrapping every field optional
// when forceOptional is set — the nullable side of an outer join (spec
// §4.4).
func (c *Compiler) addTableSource(inf *types.Inferrer, env *types.Environment, ts ast.TableSource, forceOptional bool) {
	switch t := ts.(type) {
	case *ast.TableRef:
		env.AddSource(c.tableRefSource(t, forceOptional))
	case *ast.SubquerySource:
		row := compileSelect(c, inf, env, t.Select)
		src := rowToSource(inf.U, t.Alias, row, nil)
		if forceOptional {
			src = types.WrapOptional(src)
		}
		env.AddSource(src)
	case *ast.TableFunctionSource:
		for _, a := range t.Args {
			inf.Infer(env, a)
		}
		src := types.Source{Alias: t.Alias, Columns: []types.Field{{Name: "value", Type: types.Nom(types.ANY)}}}
		if forceOptional {
			src = types.WrapOptional(src)
		}
		env.AddSource(src)
	case *ast.JoinSource:
		leftForce := forceOptional || t.Kind == ast.JoinRightOuter || t.Kind == ast.JoinFullOuter
		rightForce := forceOptional || t.Kind == ast.JoinLeftOuter || t.Kind == ast.JoinFullOuter
		c.addTableSource(inf, env, t.Left, leftForce)
		c.addTableSource(inf, env, t.Right, rightForce)
		if t.On != nil {
			inf.Infer(env, t.On)
		}
		for _, name := range t.Using {
			if res := env.Lookup(name); !res.Found {
				inf.Diagnostics.Errorf(t.Location(), "USING column %q not found", name)
			}
		}
	}
}

// tableRefSource resolves a TableRef against c.Schema, producing the
// Environment Source query expressions see it as. An unknown table still
// returns a Source (empty columns, aliased), so the rest of the query keeps
// type-checking instead of aborting. No diagnostic is raised for the
// unknown table itself; only references to its columns are reported, as
// columns not found.
func (c *Compiler) tableRefSource(ref *ast.TableRef, forceOptional bool) types.Source {
	alias := ref.Alias
	if alias == "" {
		alias = ref.Name
	}
	t, ok := c.Schema.Table(ref.Name)
	if !ok {
		return types.Source{Alias: alias}
	}
	fields := make([]types.Field, len(t.Columns))
	for i, col := range t.Columns {
		fields[i] = types.Field{Name: col.Name, Type: types.ColumnFieldType(col, affinityTy(col))}
	}
	src := types.Source{Alias: alias, Columns: fields}
	if forceOptional {
		src = types.WrapOptional(src)
	}
	return src
}

func affinityTy(col schema.ColumnDef) *types.Ty {
	switch col.Affinity {
	case schema.AffinityText:
		return types.Nom(types.TEXT)
	case schema.AffinityInteger:
		return types.Nom(types.INTEGER)
	case schema.AffinityReal:
		return types.Nom(types.REAL)
	case schema.AffinityBlob:
		return types.Nom(types.BLOB)
	default:
		return types.Nom(types.ANY)
	}
}
