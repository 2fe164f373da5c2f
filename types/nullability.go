package types

import "github.com/feathersql/feather/schema"

// ColumnFieldType resolves a schema column to the Ty an Environment Source
// should expose for it: optional(t) unless the column is declared NOT NULL
// or is (part of) the table's primary key — spec §4.4's base rule, before
// any join-side wrapping is applied.
func ColumnFieldType(col schema.ColumnDef, affinityTy *Ty) *Ty {
	if col.NotNull || col.PrimaryKey {
		return affinityTy
	}
	return Optional(affinityTy)
}

// WrapOptional wraps every field of src as nullable, used for the
// right-hand source of a LEFT JOIN or either source of a FULL JOIN (spec
// §4.4: "every column of the right side of a LEFT JOIN ... is wrapped
// optional"). Inner joins and plain FROM sources pass src through
// ColumnFieldType's result untouched.
func WrapOptional(src Source) Source {
	wrapped := make([]Field, len(src.Columns))
	for i, f := range src.Columns {
		wrapped[i] = Field{Name: f.Name, Type: Optional(f.Type)}
	}
	return Source{Alias: src.Alias, Columns: wrapped}
}
