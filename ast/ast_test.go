package ast_test

import (
	"testing"

	"github.com/feathersql/feather/ast"
	"github.com/feathersql/feather/diagnostic"
)

func TestNextIDIsMonotonicAndUnique(t *testing.T) {
	a := ast.NextID()
	b := ast.NextID()
	if b <= a {
		t.Fatalf("expected IDs to increase, got a=%d b=%d", a, b)
	}
}

func TestBaseCarriesIDAndLocation(t *testing.T) {
	loc := diagnostic.Location{Start: 3, End: 9}
	n := ast.NewIdent(loc, "x")
	if n.NodeID() == 0 {
		t.Fatal("expected a non-zero node ID")
	}
	if n.Location() != loc {
		t.Fatalf("expected location %+v, got %+v", loc, n.Location())
	}
}

func TestDistinctIdentsGetDistinctIDs(t *testing.T) {
	a := ast.NewIdent(diagnostic.Location{}, "a")
	b := ast.NewIdent(diagnostic.Location{}, "b")
	if a.NodeID() == b.NodeID() {
		t.Fatal("expected distinct nodes to get distinct IDs")
	}
}

func TestExprVariantsSatisfyExprInterface(t *testing.T) {
	var exprs = []ast.Expr{
		&ast.Ident{},
		&ast.Literal{},
		&ast.BindParam{},
		&ast.ColumnRef{},
		&ast.PrefixExpr{},
		&ast.InfixExpr{},
		&ast.PostfixExpr{},
		&ast.BetweenExpr{},
		&ast.InExpr{},
		&ast.FunctionCall{},
		&ast.CastExpr{},
		&ast.GroupedExpr{},
		&ast.CaseExpr{},
		&ast.SubqueryExpr{},
	}
	for _, e := range exprs {
		if e == nil {
			t.Fatal("unexpected nil expression variant")
		}
	}
}
