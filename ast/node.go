// Package ast defines feather's syntax tree: a tagged-variant model for
// every grammar production the parser recognizes. Every node carries a
// process-wide unique ID (for diagnostics and cross-references) and a
// source Location.
//
// The teacher models its DDL tree as a set of plain structs behind a one-
// method Statement() interface (schema/ast.go); feather generalizes that
// shape to expressions and the rest of DML/DDL, but deliberately does not
// reach for a double-dispatch visitor — each pass (parser, type checker,
// printer) is a single type switch, per spec §9.
package ast

import (
	"sync/atomic"

	"github.com/feathersql/feather/diagnostic"
)

// ID is a process-wide monotonic node identity, stable for the lifetime of
// the process (not persisted), used to key diagnostics and cross-references
// back to the node that produced them.
type ID int64

var idCounter atomic.Int64

// NextID allocates a fresh, process-wide unique node ID.
func NextID() ID {
	return ID(idCounter.Add(1))
}

// Node is implemented by every syntax tree variant.
type Node interface {
	NodeID() ID
	Location() diagnostic.Location
}

// Base is embedded by every concrete node type to supply NodeID/Location
// without hand-writing the same two methods on every variant.
type Base struct {
	id  ID
	loc diagnostic.Location
}

func NewBase(loc diagnostic.Location) Base {
	return Base{id: NextID(), loc: loc}
}

func (b Base) NodeID() ID                    { return b.id }
func (b Base) Location() diagnostic.Location { return b.loc }

// Expr is implemented by every expression variant.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every top-level statement variant.
type Stmt interface {
	Node
	stmtNode()
}
