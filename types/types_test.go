package types_test

import (
	"testing"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/schema"
	"github.com/feathersql/feather/types"
)

func TestOptionalCollapsesDoubleWrap(t *testing.T) {
	base := types.Nom(types.INTEGER)
	once := types.Optional(base)
	twice := types.Optional(once)
	if twice != once {
		t.Fatalf("expected optional(optional(t)) == optional(t), got distinct values")
	}
	if !once.IsOptional() {
		t.Fatal("expected wrapped type to report optional")
	}
}

func TestOptionalOfErrorStaysError(t *testing.T) {
	wrapped := types.Optional(types.ErrTy)
	if !wrapped.IsError() {
		t.Fatal("expected optional(error) to still be an error")
	}
}

func TestTyStringForms(t *testing.T) {
	cases := []struct {
		name string
		ty   *types.Ty
		want string
	}{
		{"nominal", types.Nom(types.TEXT), "TEXT"},
		{"optional", types.Optional(types.Nom(types.INTEGER)), "optional(INTEGER)"},
		{"error", types.ErrTy, "<error>"},
		{"row", types.Row([]types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}}), "row(a: INTEGER)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.ty.String(); got != c.want {
				t.Fatalf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestBaseStripsOptional(t *testing.T) {
	base := types.Nom(types.REAL)
	if got := types.Optional(base).Base(); got != base {
		t.Fatalf("expected Base() to unwrap to the original nominal, got %+v", got)
	}
	if got := base.Base(); got != base {
		t.Fatal("expected Base() on a non-optional to be a no-op")
	}
}

func TestUnifierFreshProducesDistinctVars(t *testing.T) {
	u := types.NewUnifier()
	a := u.Fresh()
	b := u.Fresh()
	if a.Var == b.Var {
		t.Fatal("expected distinct fresh variables")
	}
}

func TestUnifierResolveUnboundVarIsUnchanged(t *testing.T) {
	u := types.NewUnifier()
	v := u.Fresh()
	if got := u.Resolve(v); got != v {
		t.Fatal("expected an unbound variable to resolve to itself")
	}
}

func TestUnifierDeepResolveUnboundVarIsAny(t *testing.T) {
	u := types.NewUnifier()
	v := u.Fresh()
	got := u.DeepResolve(v)
	if got.Kind != types.KindNominal || got.Name != types.ANY {
		t.Fatalf("expected unresolved var to deep-resolve to ANY, got %+v", got)
	}
}

func TestUnifierDeepResolveRowFields(t *testing.T) {
	u := types.NewUnifier()
	v := u.Fresh()
	u.Unify(v, types.Nom(types.INTEGER))
	row := types.Row([]types.Field{{Name: "a", Type: v}})
	got := u.DeepResolve(row)
	if got.Kind != types.KindRow || got.Row[0].Type.Name != types.INTEGER {
		t.Fatalf("expected row field to deep-resolve to INTEGER, got %+v", got)
	}
}

func TestUnifyBindsVariable(t *testing.T) {
	u := types.NewUnifier()
	v := u.Fresh()
	result := u.Unify(v, types.Nom(types.TEXT))
	if result.Name != types.TEXT {
		t.Fatalf("expected TEXT, got %+v", result)
	}
	if got := u.Resolve(v); got.Name != types.TEXT {
		t.Fatalf("expected v to now resolve to TEXT, got %+v", got)
	}
}

func TestUnifySameVariableDoesNotSelfBind(t *testing.T) {
	u := types.NewUnifier()
	v := u.Fresh()
	result := u.Unify(v, v)
	if result.Kind != types.KindVar {
		t.Fatalf("expected an unbound self-unified variable to stay a variable, got %+v", result)
	}
	// Resolve must terminate rather than loop forever chasing a self-binding.
	if got := u.Resolve(v); got.Kind != types.KindVar {
		t.Fatalf("expected v to remain unbound, got %+v", got)
	}
	if got := u.DeepResolve(v); got.Name != types.ANY {
		t.Fatalf("expected an unconstrained self-unified variable to DeepResolve to ANY, got %+v", got)
	}
}

func TestUnifyOccursCheckPreventsSelfReferentialRow(t *testing.T) {
	u := types.NewUnifier()
	v := u.Fresh()
	row := types.Row([]types.Field{{Name: "a", Type: v}})
	result := u.Unify(v, row)
	if result.Kind != types.KindError {
		t.Fatalf("expected unifying a variable with a row that contains it to fail, got %+v", result)
	}
}

func TestUnifyNominalLattice(t *testing.T) {
	u := types.NewUnifier()
	cases := []struct {
		name string
		a, b types.Nominal
		want types.Nominal
	}{
		{"integer+int", types.INTEGER, types.INT, types.INTEGER},
		{"integer+real", types.INTEGER, types.REAL, types.REAL},
		{"int+real", types.INT, types.REAL, types.REAL},
		{"real+int", types.REAL, types.INT, types.REAL},
		{"anything+text", types.INTEGER, types.TEXT, types.TEXT},
		{"text+anything", types.TEXT, types.BLOB, types.TEXT},
		{"mismatched falls back to any", types.BLOB, types.BOOL, types.ANY},
		{"identity", types.BOOL, types.BOOL, types.BOOL},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := u.Unify(types.Nom(c.a), types.Nom(c.b))
			if got.Name != c.want {
				t.Fatalf("Unify(%s, %s) = %s, want %s", c.a, c.b, got.Name, c.want)
			}
		})
	}
}

func TestUnifyOptionalPropagates(t *testing.T) {
	u := types.NewUnifier()
	got := u.Unify(types.Optional(types.Nom(types.INTEGER)), types.Nom(types.INTEGER))
	if !got.IsOptional() {
		t.Fatalf("expected unifying an optional with a non-optional to stay optional, got %+v", got)
	}
	if got.Base().Name != types.INTEGER {
		t.Fatalf("expected base INTEGER, got %+v", got.Base())
	}
}

func TestUnifyRowArityMismatchIsError(t *testing.T) {
	u := types.NewUnifier()
	a := types.Row([]types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}})
	b := types.Row([]types.Field{
		{Name: "a", Type: types.Nom(types.INTEGER)},
		{Name: "b", Type: types.Nom(types.TEXT)},
	})
	got := u.Unify(a, b)
	if !got.IsError() {
		t.Fatalf("expected arity-mismatched rows to unify to an error, got %+v", got)
	}
}

func TestUnifyRowFieldwise(t *testing.T) {
	u := types.NewUnifier()
	a := types.Row([]types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}})
	b := types.Row([]types.Field{{Name: "a", Type: types.Nom(types.REAL)}})
	got := u.Unify(a, b)
	if got.Kind != types.KindRow || got.Row[0].Type.Name != types.REAL {
		t.Fatalf("expected row unification to promote INTEGER+REAL to REAL, got %+v", got)
	}
}

func TestUnifyErrorSentinelPropagates(t *testing.T) {
	u := types.NewUnifier()
	got := u.Unify(types.ErrTy, types.Nom(types.INTEGER))
	if !got.IsError() {
		t.Fatal("expected an error operand to make the whole unification an error")
	}
}

func TestNominalsConflict(t *testing.T) {
	cases := []struct {
		name string
		a, b types.Nominal
		want bool
	}{
		{"same", types.TEXT, types.TEXT, false},
		{"numeric vs numeric", types.INTEGER, types.REAL, false},
		{"any never conflicts left", types.ANY, types.TEXT, false},
		{"any never conflicts right", types.TEXT, types.ANY, false},
		{"text vs integer conflicts", types.TEXT, types.INTEGER, true},
		{"blob vs bool conflicts", types.BLOB, types.BOOL, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := types.NominalsConflict(c.a, c.b); got != c.want {
				t.Fatalf("NominalsConflict(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestColumnFieldTypeNotNullIsBare(t *testing.T) {
	col := schema.ColumnDef{Name: "id", NotNull: true}
	got := types.ColumnFieldType(col, types.Nom(types.INTEGER))
	if got.IsOptional() {
		t.Fatal("expected a NOT NULL column to not be wrapped optional")
	}
}

func TestColumnFieldTypePrimaryKeyIsBare(t *testing.T) {
	col := schema.ColumnDef{Name: "id", PrimaryKey: true}
	got := types.ColumnFieldType(col, types.Nom(types.INTEGER))
	if got.IsOptional() {
		t.Fatal("expected a primary key column to not be wrapped optional")
	}
}

func TestColumnFieldTypeNullableColumnIsOptional(t *testing.T) {
	col := schema.ColumnDef{Name: "nickname"}
	got := types.ColumnFieldType(col, types.Nom(types.TEXT))
	if !got.IsOptional() {
		t.Fatal("expected a plain nullable column to be wrapped optional")
	}
}

func TestWrapOptionalWrapsEveryField(t *testing.T) {
	src := types.Source{
		Alias: "t",
		Columns: []types.Field{
			{Name: "a", Type: types.Nom(types.INTEGER)},
			{Name: "b", Type: types.Optional(types.Nom(types.TEXT))},
		},
	}
	wrapped := types.WrapOptional(src)
	if wrapped.Alias != "t" {
		t.Fatalf("expected alias to be preserved, got %q", wrapped.Alias)
	}
	for _, f := range wrapped.Columns {
		if !f.Type.IsOptional() {
			t.Fatalf("expected every field to be optional after WrapOptional, got %+v", f)
		}
	}
}

func TestEnvironmentLookupUnqualified(t *testing.T) {
	env := types.NewEnvironment(nil)
	env.AddSource(types.Source{
		Alias:   "t",
		Columns: []types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}},
	})
	res := env.Lookup("a")
	if !res.Found || res.Ambiguous || res.Type.Name != types.INTEGER {
		t.Fatalf("expected a to resolve to INTEGER, got %+v", res)
	}
}

func TestEnvironmentLookupAmbiguous(t *testing.T) {
	env := types.NewEnvironment(nil)
	env.AddSource(types.Source{Alias: "t1", Columns: []types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}}})
	env.AddSource(types.Source{Alias: "t2", Columns: []types.Field{{Name: "a", Type: types.Nom(types.TEXT)}}})
	res := env.Lookup("a")
	if !res.Found || !res.Ambiguous {
		t.Fatalf("expected an ambiguous lookup, got %+v", res)
	}
}

func TestEnvironmentLookupNotFound(t *testing.T) {
	env := types.NewEnvironment(nil)
	res := env.Lookup("nope")
	if res.Found {
		t.Fatal("expected lookup of an unknown column to report not found")
	}
}

func TestEnvironmentLookupFallsThroughToParent(t *testing.T) {
	parent := types.NewEnvironment(nil)
	parent.AddSource(types.Source{Alias: "outer", Columns: []types.Field{{Name: "x", Type: types.Nom(types.INTEGER)}}})
	child := types.NewEnvironment(parent)
	res := child.Lookup("x")
	if !res.Found || res.Type.Name != types.INTEGER {
		t.Fatalf("expected inner scope to fall through to parent, got %+v", res)
	}
}

func TestEnvironmentInnerScopeShadowsParent(t *testing.T) {
	parent := types.NewEnvironment(nil)
	parent.AddSource(types.Source{Alias: "outer", Columns: []types.Field{{Name: "a", Type: types.Nom(types.TEXT)}}})
	child := types.NewEnvironment(parent)
	child.AddSource(types.Source{Alias: "t1", Columns: []types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}}})
	child.AddSource(types.Source{Alias: "t2", Columns: []types.Field{{Name: "a", Type: types.Nom(types.REAL)}}})
	res := child.Lookup("a")
	if !res.Found || !res.Ambiguous {
		t.Fatalf("expected the inner (ambiguous) scope to shadow the parent entirely, got %+v", res)
	}
}

func TestEnvironmentLookupQualified(t *testing.T) {
	env := types.NewEnvironment(nil)
	env.AddSource(types.Source{Alias: "t", Columns: []types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}}})
	got, ok := env.LookupQualified("t", "a")
	if !ok || got.Name != types.INTEGER {
		t.Fatalf("expected t.a to resolve to INTEGER, got %+v, ok=%v", got, ok)
	}
	if _, ok := env.LookupQualified("t", "missing"); ok {
		t.Fatal("expected an unknown column on a known alias to not be found")
	}
	if _, ok := env.LookupQualified("nope", "a"); ok {
		t.Fatal("expected an unknown alias to not be found")
	}
}

func newInferrer() (*types.Inferrer, *diagnostic.Bag) {
	diags := diagnostic.NewBag()
	return types.NewInferrer(types.NewUnifier(), diags), diags
}

func TestInferLiteralTypes(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	cases := []struct {
		name string
		lit  *ast.Literal
		want types.Nominal
	}{
		{"integer", &ast.Literal{Kind: ast.LitInteger}, types.INTEGER},
		{"float", &ast.Literal{Kind: ast.LitFloat}, types.REAL},
		{"string", &ast.Literal{Kind: ast.LitString}, types.TEXT},
		{"blob", &ast.Literal{Kind: ast.LitBlob}, types.BLOB},
		{"true", &ast.Literal{Kind: ast.LitTrue}, types.BOOL},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := inf.Infer(env, c.lit)
			if got.Name != c.want {
				t.Fatalf("got %+v, want %s", got, c.want)
			}
		})
	}
}

func TestInferBindParamAllocatesFreshVar(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.BindParam{Name: ":x"})
	if got.Kind != types.KindVar {
		t.Fatalf("expected a fresh type variable, got %+v", got)
	}
	inputs := inf.Inputs()
	if len(inputs) != 1 || inputs[0].Name != ":x" {
		t.Fatalf("expected one recorded input :x, got %+v", inputs)
	}
}

func TestInferBindParamSameNameUnifies(t *testing.T) {
	inf, diags := newInferrer()
	env := types.NewEnvironment(nil)
	inf.Infer(env, &ast.InfixExpr{
		Op:    "=",
		Left:  &ast.BindParam{Name: ":x"},
		Right: &ast.Literal{Kind: ast.LitInteger},
	})
	inf.Infer(env, &ast.InfixExpr{
		Op:    "=",
		Left:  &ast.BindParam{Name: ":x"},
		Right: &ast.Literal{Kind: ast.LitInteger},
	})
	if len(inf.Inputs()) != 1 {
		t.Fatalf("expected repeated bind parameter to collapse to one input, got %+v", inf.Inputs())
	}
	if diags.HasErrors() {
		t.Fatalf("expected no diagnostics for consistent repeated bind use, got %+v", diags.Items())
	}
}

func TestInferBindParamConflictingUseIsDiagnosed(t *testing.T) {
	inf, diags := newInferrer()
	env := types.NewEnvironment(nil)
	inf.Infer(env, &ast.InfixExpr{
		Op:    "=",
		Left:  &ast.BindParam{Name: ":x"},
		Right: &ast.Literal{Kind: ast.LitInteger},
	})
	inf.Infer(env, &ast.InfixExpr{
		Op:    "=",
		Left:  &ast.BindParam{Name: ":x"},
		Right: &ast.Literal{Kind: ast.LitString},
	})
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for a bind parameter used with conflicting types")
	}
}

func TestInferBindParamComparedToItselfDoesNotHang(t *testing.T) {
	inf, diags := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.InfixExpr{
		Op:    "=",
		Left:  &ast.BindParam{Name: ":x"},
		Right: &ast.BindParam{Name: ":x"},
	})
	if got.Base().Name != types.BOOL {
		t.Fatalf("expected := comparison to be BOOL, got %s", got)
	}
	if len(inf.Inputs()) != 1 {
		t.Fatalf("expected the two :x occurrences to collapse to one input, got %+v", inf.Inputs())
	}
	if diags.HasErrors() {
		t.Fatalf("expected no diagnostics, got %+v", diags.Items())
	}
	resolved := inf.U.DeepResolve(inf.Inputs()[0].Type)
	if resolved.Name != types.ANY {
		t.Fatalf("expected an unconstrained self-compared bind param to resolve to ANY, got %s", resolved)
	}
}

func TestInferColumnRefUnqualified(t *testing.T) {
	inf, diags := newInferrer()
	env := types.NewEnvironment(nil)
	env.AddSource(types.Source{Alias: "t", Columns: []types.Field{{Name: "a", Type: types.Nom(types.INTEGER)}}})
	got := inf.Infer(env, &ast.ColumnRef{Column: "a"})
	if got.Name != types.INTEGER {
		t.Fatalf("expected INTEGER, got %+v", got)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Items())
	}
}

func TestInferColumnRefNotFoundIsError(t *testing.T) {
	inf, diags := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.ColumnRef{Column: "nope"})
	if !got.IsError() {
		t.Fatalf("expected ErrTy for an unresolved column, got %+v", got)
	}
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for an unresolved column")
	}
}

func TestInferComparisonIsBoolAndOptionalPropagates(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	env.AddSource(types.Source{Alias: "t", Columns: []types.Field{{Name: "a", Type: types.Optional(types.Nom(types.INTEGER))}}})
	got := inf.Infer(env, &ast.InfixExpr{
		Op:    "=",
		Left:  &ast.ColumnRef{Column: "a"},
		Right: &ast.Literal{Kind: ast.LitInteger},
	})
	if got.Base().Name != types.BOOL {
		t.Fatalf("expected a boolean result, got %+v", got)
	}
	if !got.IsOptional() {
		t.Fatal("expected a comparison against a nullable column to itself be nullable")
	}
}

func TestInferConcatAlwaysText(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.InfixExpr{
		Op:    "||",
		Left:  &ast.Literal{Kind: ast.LitInteger},
		Right: &ast.Literal{Kind: ast.LitString},
	})
	if got.Name != types.TEXT {
		t.Fatalf("expected TEXT for string concatenation, got %+v", got)
	}
}

func TestInferBetweenBoolOptionalWhenAnyBoundOptional(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.BetweenExpr{
		Operand: &ast.Literal{Kind: ast.LitInteger},
		Lower:   &ast.Literal{Kind: ast.LitInteger},
		Upper:   &ast.BindParam{Name: "?"},
	})
	if got.Base().Name != types.BOOL {
		t.Fatalf("expected BOOL, got %+v", got)
	}
}

func TestInferFunctionCallKnownBuiltin(t *testing.T) {
	inf, diags := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.FunctionCall{
		Name: "COUNT",
		Star: true,
	})
	if got.Name != types.INTEGER {
		t.Fatalf("expected COUNT(*) to be INTEGER, got %+v", got)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Items())
	}
}

func TestInferFunctionCallUnknownIsDiagnosed(t *testing.T) {
	inf, diags := newInferrer()
	env := types.NewEnvironment(nil)
	inf.Infer(env, &ast.FunctionCall{Name: "totally_made_up_fn"})
	if !diags.HasErrors() {
		t.Fatal("expected a diagnostic for an unknown function")
	}
}

func TestInferCoalesceStripsNullabilityWhenFallbackIsNotNull(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.FunctionCall{
		Name: "coalesce",
		Args: []ast.Expr{
			&ast.BindParam{Name: "?"},
			&ast.Literal{Kind: ast.LitInteger},
		},
	})
	if got.IsOptional() {
		t.Fatal("expected COALESCE with a non-null fallback to strip nullability")
	}
}

func TestInferCastUsesSchemaAffinity(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.CastExpr{
		Operand: &ast.Literal{Kind: ast.LitString},
		Type:    &ast.TypeName{Name: "INTEGER"},
	})
	if got.Name != types.INTEGER {
		t.Fatalf("expected CAST(... AS INTEGER) to be INTEGER, got %+v", got)
	}
}

func TestInferCaseImplicitElseIsOptional(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.CaseExpr{
		Whens: []ast.WhenThen{
			{When: &ast.Literal{Kind: ast.LitTrue}, Then: &ast.Literal{Kind: ast.LitInteger}},
		},
	})
	if !got.IsOptional() {
		t.Fatal("expected a CASE with no ELSE to be optional")
	}
}

func TestInferCaseWithElseIsNotOptional(t *testing.T) {
	inf, _ := newInferrer()
	env := types.NewEnvironment(nil)
	got := inf.Infer(env, &ast.CaseExpr{
		Whens: []ast.WhenThen{
			{When: &ast.Literal{Kind: ast.LitTrue}, Then: &ast.Literal{Kind: ast.LitInteger}},
		},
		Else: &ast.Literal{Kind: ast.LitInteger},
	})
	if got.IsOptional() {
		t.Fatal("expected a CASE with an ELSE arm to not be optional")
	}
}
