package ast

import "github.com/feathersql/feather/diagnostic"

// Ident is a bare identifier: a column, table, function, or collation name
// as it appeared in source (quoting, if any, already stripped by the
// lexer).
type Ident struct {
	Base
	Name string
}

func NewIdent(loc diagnostic.Location, name string) *Ident { return &Ident{Base: NewBase(loc), Name: name} }
func (*Ident) exprNode() {}

// TypeName is a declared SQL type: a name plus up to two signed numeric
// arguments (DECIMAL(10, 2), VARCHAR(255)).
type TypeName struct {
	Base
	Name string
	Args []int64 // 0, 1, or 2 entries
}

func (*TypeName) exprNode() {}

// LiteralKind distinguishes the literal forms the grammar recognizes.
type LiteralKind int

const (
	LitInteger LiteralKind = iota
	LitFloat
	LitString
	LitBlob
	LitNull
	LitTrue
	LitFalse
	LitCurrentTime
	LitCurrentDate
	LitCurrentTimestamp
)

// Literal is a constant expression: a number, string, blob, NULL,
// TRUE/FALSE, or one of the CURRENT_* pseudo-literals.
type Literal struct {
	Base
	Kind LiteralKind
	Text string // original source text, unescaped lazily by the type checker/runtime
}

func (*Literal) exprNode() {}

// BindParam is a placeholder bound to a runtime value: positional (?, ?N)
// or named (:name, @name, $name). Name is the full textual form including
// its sigil, used verbatim as the CompiledQuery input's bind name.
type BindParam struct {
	Base
	Name    string
	Index   int // 1-based ordinal for ?N; 0 if unnumbered/named
	Numbered bool
}

func (*BindParam) exprNode() {}

// ColumnRef is a (possibly schema- and table-qualified) column reference.
type ColumnRef struct {
	Base
	Schema *string
	Table  *string
	Column string
}

func (*ColumnRef) exprNode() {}

// PrefixExpr is a unary prefix operator: +x, -x, ~x, NOT x.
type PrefixExpr struct {
	Base
	Op      string
	Operand Expr
}

func (*PrefixExpr) exprNode() {}

// InfixExpr is a binary operator application, including the guessed
// multi-word forms (IS NOT, IS DISTINCT FROM, NOT LIKE, ...); Op carries
// the final resolved operator text, not the lookahead guess.
type InfixExpr struct {
	Base
	Op    string
	Left  Expr
	Right Expr
}

func (*InfixExpr) exprNode() {}

// PostfixExpr covers ISNULL/NOTNULL/NOT NULL suffix forms and COLLATE
// <name>, which binds as a postfix operator at precedence level 11.
type PostfixExpr struct {
	Base
	Op      string // "ISNULL", "NOTNULL", "COLLATE"
	Operand Expr
	// Collation is set only when Op == "COLLATE".
	Collation string
}

func (*PostfixExpr) exprNode() {}

// BetweenExpr is the ternary x [NOT] BETWEEN lower AND upper, parsed with
// dedicated bound-expression precedence so the trailing AND is never
// absorbed as a logical AND over the lower bound (spec §4.2).
type BetweenExpr struct {
	Base
	Not     bool
	Operand Expr
	Lower   Expr
	Upper   Expr
}

func (*BetweenExpr) exprNode() {}

// InExpr is x [NOT] IN (list) or x [NOT] IN (subquery).
type InExpr struct {
	Base
	Not      bool
	Operand  Expr
	List     []Expr
	Subquery *SelectStmt // nil when List is used
}

func (*InExpr) exprNode() {}

// FunctionCall is a function invocation, including aggregate-only forms
// (DISTINCT argument, FILTER (WHERE ...)) and COUNT(*).
type FunctionCall struct {
	Base
	Name     string
	Distinct bool
	Star     bool // COUNT(*)
	Args     []Expr
	Filter   Expr // FILTER (WHERE <expr>), nil if absent
}

func (*FunctionCall) exprNode() {}

// CastExpr is CAST(expr AS type). Per spec §9's resolved Open Question,
// CAST is parsed as a primary expression, never consulted by the infix
// operator-guess table.
type CastExpr struct {
	Base
	Operand Expr
	Type    *TypeName
}

func (*CastExpr) exprNode() {}

// GroupedExpr is a parenthesized expression, kept as its own node (rather
// than unwrapped) so its Location spans the parens for diagnostics and
// round-trip source capture.
type GroupedExpr struct {
	Base
	Inner Expr
}

func (*GroupedExpr) exprNode() {}

// WhenThen is one WHEN/THEN arm of a CaseExpr.
type WhenThen struct {
	When Expr
	Then Expr
}

// CaseExpr is CASE [operand] WHEN ... THEN ... [ELSE ...] END.
type CaseExpr struct {
	Base
	Operand Expr // nil for the searched form
	Whens   []WhenThen
	Else    Expr // nil if no ELSE
}

func (*CaseExpr) exprNode() {}

// SubqueryExpr is a SELECT used in scalar/row expression position, e.g.
// WHERE x = (SELECT max(y) FROM t).
type SubqueryExpr struct {
	Base
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}
