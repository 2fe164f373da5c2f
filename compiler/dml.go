package compiler

import (
	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/types"
)

// targetEnv builds a single-source Environment for a DML statement's target
// table, the way WHERE/SET/RETURNING clauses see it: the table's own
// columns, qualified by its bare name (no alias support in feather's DML
// grammar beyond the table name itself).
func (c *Compiler) targetEnv(ref *ast.TableRef) *types.Environment {
	env := types.NewEnvironment(nil)
	env.AddSource(c.tableRefSource(ref, false))
	return env
}

func compileInsert(c *Compiler, inf *types.Inferrer, st *ast.InsertStmt) []Output {
	env := c.targetEnv(st.Table)

	targetCols := st.Columns
	if len(targetCols) == 0 {
		if t, ok := c.Schema.Table(st.Table.Name); ok {
			for _, col := range t.Columns {
				targetCols = append(targetCols, col.Name)
			}
		}
	}

	switch {
	case st.Select != nil:
		row := compileSelect(c, inf, nil, st.Select)
		unifyInsertColumns(inf, c, st.Table, targetCols, row)
	case !st.DefaultValues:
		for _, tuple := range st.Values {
			for i, v := range tuple {
				ty := inf.Infer(env, v)
				if i < len(targetCols) {
					unifyInsertColumn(inf, c, st.Table, targetCols[i], ty)
				}
			}
		}
	}

	if st.Upsert != nil {
		compileUpsert(inf, env, st.Upsert)
	}

	return compileReturning(inf, env, st.Returning)
}

// unifyInsertColumns unifies a `INSERT ... SELECT`'s output row, positionally,
// against the insert's target columns.
func unifyInsertColumns(inf *types.Inferrer, c *Compiler, table *ast.TableRef, targetCols []string, row *types.Ty) {
	resolved := inf.U.Resolve(row)
	if resolved.Kind != types.KindRow {
		return
	}
	for i, f := range resolved.Row {
		if i < len(targetCols) {
			unifyInsertColumn(inf, c, table, targetCols[i], f.Type)
		}
	}
}

func unifyInsertColumn(inf *types.Inferrer, c *Compiler, table *ast.TableRef, colName string, ty *types.Ty) {
	t, ok := c.Schema.Table(table.Name)
	if !ok {
		return
	}
	col, ok := t.Column(colName)
	if !ok {
		return
	}
	inf.U.Unify(ty, types.ColumnFieldType(col, affinityTy(col)))
}

func compileUpsert(inf *types.Inferrer, env *types.Environment, up *ast.Upsert) {
	for _, col := range up.ConflictTarget {
		if res := env.Lookup(col); !res.Found {
			inf.Diagnostics.Errorf(up.Location(), "ON CONFLICT column %q not found", col)
		}
	}
	if up.ConflictWhere != nil {
		inf.Infer(env, up.ConflictWhere)
	}
	for _, set := range up.SetActions {
		ty := inf.Infer(env, set.Value)
		if res := env.Lookup(set.Column); res.Found {
			inf.U.Unify(ty, res.Type)
		}
	}
	if up.UpdateWhere != nil {
		inf.Infer(env, up.UpdateWhere)
	}
}

func compileUpdate(c *Compiler, inf *types.Inferrer, st *ast.UpdateStmt) []Output {
	env := c.targetEnv(st.Table)
	if st.From != nil {
		c.addTableSource(inf, env, st.From, false)
	}

	for _, set := range st.SetActions {
		ty := inf.Infer(env, set.Value)
		if res := env.Lookup(set.Column); res.Found {
			inf.U.Unify(ty, res.Type)
		} else {
			inf.Diagnostics.Errorf(st.Location(), "column %q not found on %q", set.Column, st.Table.Name)
		}
	}
	if st.Where != nil {
		inf.Infer(env, st.Where)
	}
	return compileReturning(inf, env, st.Returning)
}

func compileDelete(c *Compiler, inf *types.Inferrer, st *ast.DeleteStmt) []Output {
	env := c.targetEnv(st.Table)
	if st.Where != nil {
		inf.Infer(env, st.Where)
	}
	return compileReturning(inf, env, st.Returning)
}

func compileReturning(inf *types.Inferrer, env *types.Environment, returning []ast.ResultColumn) []Output {
	if len(returning) == 0 {
		return nil
	}
	fields := expandResultColumns(inf, env, returning)
	outputs := make([]Output, len(fields))
	for i, f := range fields {
		resolved := inf.U.DeepResolve(f.Type)
		outputs[i] = Output{Name: f.Name, Type: resolved.Base(), Nullable: resolved.IsOptional()}
	}
	return outputs
}
