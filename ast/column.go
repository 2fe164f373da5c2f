package ast

// ConstraintKind enumerates the column- and table-level constraint forms
// the grammar recognizes, in the order spec §3 lists them.
type ConstraintKind int

const (
	ConstraintPrimaryKey ConstraintKind = iota
	ConstraintNotNull
	ConstraintUnique
	ConstraintCheck
	ConstraintDefault
	ConstraintCollate
	ConstraintForeignKey
	ConstraintGenerated
)

// Constraint is one constraint attached to a column or, for table-level
// constraints, to the table itself. Only the fields relevant to Kind are
// populated.
type Constraint struct {
	Kind ConstraintKind

	// ConstraintPrimaryKey / ConstraintUnique
	Columns []string // table-level form; empty for a column-level constraint
	Desc    bool      // PRIMARY KEY [ASC|DESC] on a column
	AutoIncrement bool

	// ConstraintCheck
	CheckExpr Expr

	// ConstraintDefault
	DefaultExpr Expr

	// ConstraintCollate
	CollationName string

	// ConstraintForeignKey
	ForeignKey *ForeignKeyClause

	// ConstraintGenerated
	GeneratedExpr  Expr
	GeneratedStored bool
}

// ColumnDef is one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name        string
	Type        *TypeName // nil for a typeless column (SQLite permits this)
	Constraints []Constraint
}
