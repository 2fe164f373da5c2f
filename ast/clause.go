package ast

// ResultColumn is one entry of a SELECT's projection list: `*`, `t.*`, or
// an expression with an optional alias. The spec's resolved Open Question
// (§9) keeps these in an ordered sequence, never a map, so that
// `SELECT foo, foo FROM bar` preserves both columns.
type ResultColumn struct {
	Star      bool   // true for bare `*`
	TableStar string // non-empty for `t.*`; Star is also true in that case
	Expr      Expr   // nil when Star is true
	Alias     string // explicit `AS alias`, or "" if none
}

// TableSource is implemented by every FROM-clause entry: a table reference,
// a subquery, a table-valued function call, or a join.
type TableSource interface {
	Node
	tableSourceNode()
}

// TableRef names a table (optionally schema-qualified) in a FROM clause or
// DML target position.
type TableRef struct {
	Base
	Schema *string
	Name   string
	Alias  string
}

func (*TableRef) tableSourceNode() {}

// SubquerySource is a derived table: `(SELECT ...) AS alias`.
type SubquerySource struct {
	Base
	Select *SelectStmt
	Alias  string
}

func (*SubquerySource) tableSourceNode() {}

// TableFunctionSource is a table-valued function call in FROM position,
// e.g. `json_each(x)`.
type TableFunctionSource struct {
	Base
	Name  string
	Args  []Expr
	Alias string
}

func (*TableFunctionSource) tableSourceNode() {}

// JoinKind enumerates the join operators the grammar recognizes.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeftOuter
	JoinRightOuter
	JoinFullOuter
	JoinCross
)

// JoinSource is a binary join of two table sources.
type JoinSource struct {
	Base
	Left    TableSource
	Right   TableSource
	Kind    JoinKind
	Natural bool
	On      Expr     // nil if Using is set or it's a NATURAL/CROSS join
	Using   []string // nil if On is set
}

func (*JoinSource) tableSourceNode() {}

// OrderByTerm is one ORDER BY entry.
type OrderByTerm struct {
	Expr    Expr
	Desc    bool
	Collate string // "" if absent
}

// Limit holds LIMIT [OFFSET] bounds; either field may be nil.
type Limit struct {
	Count  Expr
	Offset Expr
}

// CTE is one WITH-clause entry, possibly RECURSIVE.
type CTE struct {
	Base
	Name      string
	Columns   []string
	Recursive bool
	Select    *SelectStmt
}

// SetAction is one `column = expr` entry of an UPDATE's SET clause, or of
// an upsert's DO UPDATE SET clause.
type SetAction struct {
	Column string
	Value  Expr
}

// ConflictAction enumerates the upsert DO clause.
type ConflictAction int

const (
	ConflictDoNothing ConflictAction = iota
	ConflictDoUpdate
)

// Upsert is an INSERT's `ON CONFLICT (...) DO ...` clause.
type Upsert struct {
	Base
	ConflictTarget []string
	ConflictWhere  Expr
	Action         ConflictAction
	SetActions     []SetAction // only when Action == ConflictDoUpdate
	UpdateWhere    Expr
}

// ForeignKeyClause describes a FOREIGN KEY (...) REFERENCES ... constraint.
type ForeignKeyClause struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

// TableOptions captures the trailing WITHOUT ROWID / STRICT modifiers of a
// CREATE TABLE statement.
type TableOptions struct {
	WithoutRowID bool
	Strict       bool
}
