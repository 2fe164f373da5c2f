// Package schema derives a table/view/virtual-table model from a stream of
// DDL statements (spec §4.3), the way the teacher's schema package derives
// one from a stream of dialect-specific DDL — but here extraction feeds a
// type checker instead of a diff/apply engine, so there is no DDL generator
// half: only the read side survives.
package schema

import "strings"

// Affinity is SQLite's storage-class assignment for a column, resolved from
// its declared type name by the documented substring-matching algorithm
// (case-insensitive), never by an exact type registry — SQLite itself
// accepts arbitrary type names and falls back to NUMERIC/BLOB rules.
type Affinity int

const (
	AffinityBlob Affinity = iota
	AffinityText
	AffinityInteger
	AffinityReal
	AffinityAny
)

func (a Affinity) String() string {
	switch a {
	case AffinityText:
		return "TEXT"
	case AffinityInteger:
		return "INTEGER"
	case AffinityReal:
		return "REAL"
	case AffinityAny:
		return "ANY"
	default:
		return "BLOB"
	}
}

// ResolveAffinity implements SQLite's type-affinity rules (see
// sqlite.org/datatype3.html §3.1): walk the declared type name's substrings
// in order, case-insensitively; the first matching rule wins; an empty
// declared type gets BLOB affinity. feather also recognizes the toolkit's
// own ANY pseudo-type name directly, ahead of the substring rules, so a
// column explicitly declared `ANY` round-trips instead of falling through
// to BLOB (SQLite itself only reaches its NUMERIC catch-all for unrecognized
// names; feather narrows that catch-all to ANY per spec §3's resolved type
// set, which doesn't include a separate NUMERIC affinity).
func ResolveAffinity(typeName string) Affinity {
	if typeName == "" {
		return AffinityBlob
	}
	upper := strings.ToUpper(typeName)
	switch upper {
	case "ANY":
		return AffinityAny
	}
	switch {
	case strings.Contains(upper, "INT"):
		return AffinityInteger
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		return AffinityText
	case strings.Contains(upper, "BLOB"):
		return AffinityBlob
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		return AffinityReal
	default:
		// SQLite's remaining catch-all is NUMERIC; feather folds that into
		// ANY since its Ty model has no separate numeric-affinity nominal.
		return AffinityAny
	}
}

// NormalizeIdentifier folds an identifier to SQLite's case-insensitive
// comparison form. Unlike the teacher's multi-dialect
// NormalizeIdentifierName (one branch per GeneratorMode), feather only ever
// targets SQLite, so this is the single SQLite branch of that switch,
// without the mode parameter.
func NormalizeIdentifier(name string) string {
	return strings.ToLower(name)
}
