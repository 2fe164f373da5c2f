package schema

import "github.com/feathersql/feather/ast"

// ColumnDef is one column of an extracted TableSchema: its declared type
// name and resolved affinity, its constraints in source order, and the two
// derived booleans the type checker consults most often.
type ColumnDef struct {
	Name     string
	TypeName string // "" for a typeless column declaration
	Affinity Affinity

	Constraints []ast.Constraint
	PrimaryKey  bool
	NotNull     bool
}

// TableSchema is a table, view, or virtual table entry in a Schema. Column
// order is preserved exactly as declared.
type TableSchema struct {
	Name    string
	Columns []ColumnDef

	TableConstraints []ast.Constraint
	Options          ast.TableOptions

	IsView     bool
	ViewSelect *ast.SelectStmt // a view's SELECT, or the source of CREATE TABLE ... AS SELECT; nil otherwise

	IsVirtual     bool
	VirtualModule string
	FTS5Columns   []ast.FTS5Column // non-nil only when VirtualModule == "fts5"

	columnIndex map[string]int // NormalizeIdentifier(name) -> index into Columns
}

func newTableSchema(name string) *TableSchema {
	return &TableSchema{Name: name, columnIndex: map[string]int{}}
}

// Column looks up a column by name, case-insensitively.
func (t *TableSchema) Column(name string) (ColumnDef, bool) {
	i, ok := t.columnIndex[NormalizeIdentifier(name)]
	if !ok {
		return ColumnDef{}, false
	}
	return t.Columns[i], true
}

func (t *TableSchema) addColumn(col ColumnDef) {
	t.columnIndex[NormalizeIdentifier(col.Name)] = len(t.Columns)
	t.Columns = append(t.Columns, col)
}

func (t *TableSchema) renameColumn(oldName, newName string) bool {
	i, ok := t.columnIndex[NormalizeIdentifier(oldName)]
	if !ok {
		return false
	}
	delete(t.columnIndex, NormalizeIdentifier(oldName))
	t.Columns[i].Name = newName
	t.columnIndex[NormalizeIdentifier(newName)] = i
	return true
}

func (t *TableSchema) dropColumn(name string) bool {
	i, ok := t.columnIndex[NormalizeIdentifier(name)]
	if !ok {
		return false
	}
	t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
	delete(t.columnIndex, NormalizeIdentifier(name))
	for n, idx := range t.columnIndex {
		if idx > i {
			t.columnIndex[n] = idx - 1
		}
	}
	return true
}

// Schema is an ordered mapping from table name to TableSchema, plus the
// schema-relevant PRAGMA options accumulated during extraction (spec
// SUPPLEMENTED FEATURES #5).
type Schema struct {
	tables  []*TableSchema
	index   map[string]*TableSchema
	Options map[string]string
}

// New returns an empty Schema.
func New() *Schema {
	return &Schema{index: map[string]*TableSchema{}, Options: map[string]string{}}
}

// Table looks up a table, view, or virtual table by name, case-insensitively.
func (s *Schema) Table(name string) (*TableSchema, bool) {
	t, ok := s.index[NormalizeIdentifier(name)]
	return t, ok
}

// Tables returns every entry in declaration order.
func (s *Schema) Tables() []*TableSchema {
	return s.tables
}

func (s *Schema) add(t *TableSchema) {
	s.tables = append(s.tables, t)
	s.index[NormalizeIdentifier(t.Name)] = t
}

func (s *Schema) remove(name string) {
	key := NormalizeIdentifier(name)
	delete(s.index, key)
	for i, t := range s.tables {
		if NormalizeIdentifier(t.Name) == key {
			s.tables = append(s.tables[:i], s.tables[i+1:]...)
			return
		}
	}
}

func (s *Schema) rename(oldName, newName string) {
	t, ok := s.Table(oldName)
	if !ok {
		return
	}
	s.remove(oldName)
	t.Name = newName
	s.add(t)
}
