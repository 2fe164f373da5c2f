// Package types implements feather's constraint-based type inference over
// SQL expressions: a small Hindley–Milner-style unifier specialized to
// SQLite's affinity lattice, plus the Environment scoping rules expressions
// are resolved against (spec §3/§4.4).
package types

import "strconv"

// Nominal is one of the resolved concrete types the spec's Ty model
// recognizes directly (affinities plus the two pseudo-types ANY and BOOL).
type Nominal string

const (
	TEXT    Nominal = "TEXT"
	INTEGER Nominal = "INTEGER"
	INT     Nominal = "INT"
	REAL    Nominal = "REAL"
	BLOB    Nominal = "BLOB"
	ANY     Nominal = "ANY"
	BOOL    Nominal = "BOOL"
)

// Kind discriminates Ty's variants.
type Kind int

const (
	KindNominal Kind = iota
	KindOptional
	KindVar
	KindRow
	KindError
)

// Field is one named entry of a KindRow Ty, e.g. a SELECT output column.
type Field struct {
	Name string
	Type *Ty
}

// Ty is feather's semantic type value: a resolved nominal type, an optional
// wrapper (nullability is structural, never an attribute — spec §3), a
// unification variable, a row type, or the error sentinel.
type Ty struct {
	Kind Kind
	Name Nominal // KindNominal
	Elem *Ty     // KindOptional
	Var  int     // KindVar
	Row  []Field // KindRow
}

// Nom returns a resolved nominal Ty.
func Nom(name Nominal) *Ty { return &Ty{Kind: KindNominal, Name: name} }

// Optional wraps t as nullable, collapsing a repeated wrap rather than
// nesting (optional(optional(t)) == optional(t)).
func Optional(t *Ty) *Ty {
	if t.Kind == KindOptional {
		return t
	}
	if t.Kind == KindError {
		return t
	}
	return &Ty{Kind: KindOptional, Elem: t}
}

// Row returns a row (tuple) Ty over the given fields.
func Row(fields []Field) *Ty { return &Ty{Kind: KindRow, Row: fields} }

// ErrTy is the shared error sentinel: inference that hits an unresolved
// reference or an unrecoverable mismatch produces this instead of aborting.
var ErrTy = &Ty{Kind: KindError}

// IsOptional reports whether t is a nullable wrapper.
func (t *Ty) IsOptional() bool { return t.Kind == KindOptional }

// Base returns t with any optional wrapper stripped (itself if not
// optional).
func (t *Ty) Base() *Ty {
	if t.Kind == KindOptional {
		return t.Elem
	}
	return t
}

// IsError reports whether t (after stripping optional) is the error
// sentinel.
func (t *Ty) IsError() bool { return t.Base().Kind == KindError }

// String renders t for `featherc compile`'s JSON report and diagnostics.
func (t *Ty) String() string {
	switch t.Kind {
	case KindNominal:
		return string(t.Name)
	case KindOptional:
		return "optional(" + t.Elem.String() + ")"
	case KindVar:
		return "?t" + strconv.Itoa(t.Var)
	case KindRow:
		s := "row("
		for i, f := range t.Row {
			if i > 0 {
				s += ", "
			}
			s += f.Name + ": " + f.Type.String()
		}
		return s + ")"
	default:
		return "<error>"
	}
}

