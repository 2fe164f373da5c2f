package types

import (
	"strconv"
	"strings"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
	"github.com/feathersql/feather/schema"
)

// Input is one inferred bind parameter: its textual name (the form that
// appears in CompiledQuery.inputs) and its inferred type.
type Input struct {
	Name string
	Type *Ty
}

// SubqueryCompiler is implemented by the query compiler (§2.7) and injected
// into an Inferrer so expression-position subqueries (scalar subqueries,
// `x IN (SELECT ...)`) can be type-checked without this package importing
// the compiler — the compiler already imports types, so the dependency can
// only run one way.
type SubqueryCompiler interface {
	// CompileRow type-checks sel against env's enclosing scope and returns
	// its output row type. inf is the Inferrer that encountered the
	// subquery; implementations must type-check sel with inf itself (not a
	// fresh one) so bind parameters and diagnostics the nested SELECT raises
	// land on the same Inferrer that invoked it, rather than being dropped.
	CompileRow(inf *Inferrer, env *Environment, sel *ast.SelectStmt) *Ty
}

// Inferrer walks expressions, accumulating bind-parameter inputs and
// diagnostics, against a Unifier shared across one whole query's
// compilation.
type Inferrer struct {
	U           *Unifier
	Diagnostics *diagnostic.Bag
	Subqueries  SubqueryCompiler // nil until the compiler wires itself in

	inputs      []Input
	inputIndex  map[string]int
	bareCounter int
}

// NewInferrer returns an Inferrer sharing u and recording diagnostics into
// diags.
func NewInferrer(u *Unifier, diags *diagnostic.Bag) *Inferrer {
	return &Inferrer{U: u, Diagnostics: diags, inputIndex: map[string]int{}}
}

// Inputs returns the accumulated bind parameters in first-appearance order.
func (inf *Inferrer) Inputs() []Input { return inf.inputs }

func (inf *Inferrer) recordInput(name string, t *Ty, loc diagnostic.Location) {
	if i, ok := inf.inputIndex[name]; ok {
		prior := inf.inputs[i].Type
		unified := inf.U.Unify(prior, t)
		if prior.Kind == KindNominal && t.Kind == KindNominal && NominalsConflict(prior.Name, t.Name) {
			inf.Diagnostics.Errorf(loc, "bind parameter %q was previously inferred as %s, conflicts with %s here", name, prior, t)
		}
		inf.inputs[i].Type = unified
		return
	}
	inf.inputIndex[name] = len(inf.inputs)
	inf.inputs = append(inf.inputs, Input{Name: name, Type: t})
}

// Infer type-checks expr against env, returning its Ty. Every failure mode
// is recorded as a diagnostic and represented as ErrTy, never a Go error —
// inference always completes.
func (inf *Inferrer) Infer(env *Environment, expr ast.Expr) *Ty {
	switch e := expr.(type) {
	case *ast.Literal:
		return inf.inferLiteral(e)
	case *ast.BindParam:
		return inf.inferBindParam(e)
	case *ast.ColumnRef:
		return inf.inferColumnRef(env, e)
	case *ast.Ident:
		return ErrTy
	case *ast.PrefixExpr:
		return inf.inferPrefix(env, e)
	case *ast.InfixExpr:
		return inf.inferInfix(env, e)
	case *ast.PostfixExpr:
		return inf.inferPostfix(env, e)
	case *ast.BetweenExpr:
		operand := inf.Infer(env, e.Operand)
		lower := inf.Infer(env, e.Lower)
		upper := inf.Infer(env, e.Upper)
		inf.U.Unify(operand, lower)
		inf.U.Unify(operand, upper)
		if operand.IsOptional() || lower.IsOptional() || upper.IsOptional() {
			return Optional(Nom(BOOL))
		}
		return Nom(BOOL)
	case *ast.InExpr:
		return inf.inferIn(env, e)
	case *ast.FunctionCall:
		return inf.inferFunctionCall(env, e)
	case *ast.CastExpr:
		inf.Infer(env, e.Operand)
		return typeNameToTy(e.Type)
	case *ast.GroupedExpr:
		return inf.Infer(env, e.Inner)
	case *ast.CaseExpr:
		return inf.inferCase(env, e)
	case *ast.SubqueryExpr:
		return inf.inferSubquery(env, e.Select, 1)
	default:
		return ErrTy
	}
}

func (inf *Inferrer) inferLiteral(lit *ast.Literal) *Ty {
	switch lit.Kind {
	case ast.LitInteger:
		return Nom(INTEGER)
	case ast.LitFloat:
		return Nom(REAL)
	case ast.LitString:
		return Nom(TEXT)
	case ast.LitBlob:
		return Nom(BLOB)
	case ast.LitTrue, ast.LitFalse:
		return Nom(BOOL)
	case ast.LitCurrentTime, ast.LitCurrentDate, ast.LitCurrentTimestamp:
		return Nom(TEXT)
	default:
		return Nom(ANY)
	}
}

func (inf *Inferrer) inferBindParam(p *ast.BindParam) *Ty {
	name := p.Name
	if name == "?" {
		inf.bareCounter++
		name = "?" + strconv.Itoa(inf.bareCounter)
	}
	t := inf.U.Fresh()
	inf.recordInput(name, t, p.Location())
	return t
}

func (inf *Inferrer) inferColumnRef(env *Environment, ref *ast.ColumnRef) *Ty {
	if ref.Table != nil {
		t, ok := env.LookupQualified(*ref.Table, ref.Column)
		if !ok {
			inf.Diagnostics.Errorf(ref.Location(), "column %q not found on %q", ref.Column, *ref.Table)
			return ErrTy
		}
		return t
	}
	res := env.Lookup(ref.Column)
	switch {
	case res.Ambiguous:
		inf.Diagnostics.ErrorfFixIt(ref.Location(), &diagnostic.FixIt{Kind: diagnostic.FixItReplace, Location: ref.Location(), Text: ref.Column}, "column %q is ambiguous in the current context", ref.Column)
		return ErrTy
	case !res.Found:
		inf.Diagnostics.Errorf(ref.Location(), "column %q not found", ref.Column)
		return ErrTy
	default:
		return res.Type
	}
}

func (inf *Inferrer) inferPrefix(env *Environment, p *ast.PrefixExpr) *Ty {
	operand := inf.Infer(env, p.Operand)
	if p.Op == "NOT" {
		if operand.IsOptional() {
			return Optional(Nom(BOOL))
		}
		return Nom(BOOL)
	}
	return operand
}

var comparisonOps = map[string]bool{
	"=": true, "==": true, "!=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
	"IS": true, "IS NOT": true, "IS DISTINCT FROM": true, "IS NOT DISTINCT FROM": true,
	"LIKE": true, "NOT LIKE": true, "GLOB": true, "NOT GLOB": true,
	"REGEXP": true, "NOT REGEXP": true, "MATCH": true, "NOT MATCH": true,
	"AND": true, "OR": true, "ESCAPE": true,
}

var arithmeticOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"&": true, "|": true, "<<": true, ">>": true,
}

func (inf *Inferrer) inferInfix(env *Environment, e *ast.InfixExpr) *Ty {
	left := inf.Infer(env, e.Left)
	right := inf.Infer(env, e.Right)
	switch {
	case e.Op == "||":
		inf.U.Unify(left, right)
		return Nom(TEXT)
	case e.Op == "->" || e.Op == "->>":
		return Nom(ANY)
	case arithmeticOps[e.Op]:
		return inf.U.Unify(left, right)
	case comparisonOps[e.Op]:
		inf.U.Unify(left, right)
		if left.IsOptional() || right.IsOptional() {
			return Optional(Nom(BOOL))
		}
		return Nom(BOOL)
	default:
		inf.U.Unify(left, right)
		return Nom(ANY)
	}
}

func (inf *Inferrer) inferPostfix(env *Environment, e *ast.PostfixExpr) *Ty {
	operand := inf.Infer(env, e.Operand)
	if e.Op == "COLLATE" {
		return operand
	}
	return Nom(BOOL) // ISNULL / NOTNULL
}

func (inf *Inferrer) inferIn(env *Environment, e *ast.InExpr) *Ty {
	operand := inf.Infer(env, e.Operand)
	nullable := operand.IsOptional()
	if e.Subquery != nil {
		row := inf.inferSubquery(env, e.Subquery, 1)
		inf.U.Unify(operand, row)
		nullable = nullable || row.IsOptional()
	}
	for _, item := range e.List {
		itemTy := inf.Infer(env, item)
		inf.U.Unify(operand, itemTy)
		nullable = nullable || itemTy.IsOptional()
	}
	if nullable {
		return Optional(Nom(BOOL))
	}
	return Nom(BOOL)
}

func (inf *Inferrer) inferFunctionCall(env *Environment, e *ast.FunctionCall) *Ty {
	args := make([]*Ty, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, inf.Infer(env, a))
	}
	if e.Filter != nil {
		inf.Infer(env, e.Filter)
	}
	if e.Star {
		return Nom(INTEGER) // COUNT(*)
	}
	fn, ok := Builtins[strings.ToLower(e.Name)]
	if !ok {
		inf.Diagnostics.Errorf(e.Location(), "unknown function %q", e.Name)
		return Nom(ANY)
	}
	return fn(inf.U, args)
}

func (inf *Inferrer) inferCase(env *Environment, e *ast.CaseExpr) *Ty {
	if e.Operand != nil {
		inf.Infer(env, e.Operand)
	}
	var result *Ty
	for _, wt := range e.Whens {
		whenTy := inf.Infer(env, wt.When)
		if e.Operand == nil {
			// Searched CASE: each WHEN must be BOOL (or INTEGER, SQLite's
			// C-style truthiness).
			if whenTy.Kind == KindNominal && whenTy.Name != BOOL && whenTy.Name != INTEGER && whenTy.Name != INT && whenTy.Name != ANY {
				inf.Diagnostics.Errorf(wt.When.Location(), "CASE WHEN condition must be boolean or integer, got %s", whenTy)
			}
		}
		thenTy := inf.Infer(env, wt.Then)
		if result == nil {
			result = thenTy
		} else {
			result = inf.U.Unify(result, thenTy)
		}
	}
	if e.Else != nil {
		elseTy := inf.Infer(env, e.Else)
		if result == nil {
			result = elseTy
		} else {
			result = inf.U.Unify(result, elseTy)
		}
	} else if result != nil {
		result = Optional(result)
	}
	if result == nil {
		return Nom(ANY)
	}
	return result
}

// inferSubquery type-checks a nested SELECT via the injected
// SubqueryCompiler and returns its first output column's type (the scalar
// position feather supports for `(SELECT ...)` and `IN (SELECT ...)`).
func (inf *Inferrer) inferSubquery(env *Environment, sel *ast.SelectStmt, _ int) *Ty {
	if inf.Subqueries == nil {
		return Nom(ANY)
	}
	row := inf.Subqueries.CompileRow(inf, env, sel)
	if row.Kind != KindRow || len(row.Row) == 0 {
		return ErrTy
	}
	return row.Row[0].Type
}

// typeNameToTy resolves a CAST target type name to a Ty, reusing the
// schema package's affinity resolution so CAST and column-type affinity
// agree on what e.g. "VARCHAR(255)" resolves to.
func typeNameToTy(tn *ast.TypeName) *Ty {
	upper := strings.ToUpper(tn.Name)
	if upper == "BOOL" || upper == "BOOLEAN" {
		return Nom(BOOL)
	}
	switch schema.ResolveAffinity(tn.Name) {
	case schema.AffinityText:
		return Nom(TEXT)
	case schema.AffinityInteger:
		return Nom(INTEGER)
	case schema.AffinityReal:
		return Nom(REAL)
	case schema.AffinityBlob:
		return Nom(BLOB)
	default:
		return Nom(ANY)
	}
}
