// Package schema defines table schemas and their on-disk persistence.
// A schema file holds one colon-separated line per column, in column order:
// name:type, with a third PK field on the primary-key column only.
package schema

import (
	"fmt"
	"strings"

	"fdb-go/internal/fdb"
	"fdb-go/internal/record"
)

// Limits on the number of columns per table.
const (
	MinColumns = 2
	MaxColumns = 9
)

// pkMarker is the third field on the primary-key column's schema line.
const pkMarker = "PK"

// Column is one column definition: name, type, and primary-key flag.
type Column struct {
	Name string
	Type record.FieldType
	PK   bool
}

// Schema is the ordered column definition of one table.
type Schema struct {
	Table   string
	Columns []Column
}

// PKIndex returns the position of the primary-key column.
// A persisted schema always has exactly one.
func (s *Schema) PKIndex() int {
	for i, c := range s.Columns {
		if c.PK {
			return i
		}
	}
	return -1
}

// Types returns the column types in column order.
func (s *Schema) Types() []record.FieldType {
	types := make([]record.FieldType, len(s.Columns))
	for i, c := range s.Columns {
		types[i] = c.Type
	}
	return types
}

// ColumnIndex returns the position of the named column, matching
// case-insensitively, or -1 if no column has that name.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// Validate checks the full column list against the schema rules, in order:
// column count, then per column the naming rules, duplicate detection
// against earlier columns, and the primary-key constraints. The schema must
// end up with exactly one primary key, of type int.
func (s *Schema) Validate() error {
	if len(s.Columns) < MinColumns || len(s.Columns) > MaxColumns {
		return &fdb.ValidationError{
			Field:  "columns",
			Value:  fmt.Sprintf("%d", len(s.Columns)),
			Reason: fmt.Sprintf("table must have between %d and %d columns", MinColumns, MaxColumns),
		}
	}

	pkSeen := false
	for i, c := range s.Columns {
		if err := record.ValidateIdentifier("column name", c.Name, record.MinColumnNameLen); err != nil {
			return err
		}
		for _, earlier := range s.Columns[:i] {
			if strings.EqualFold(earlier.Name, c.Name) {
				return &fdb.DuplicateError{Kind: fdb.KindColumn, Name: c.Name}
			}
		}
		if _, err := record.ParseFieldType(string(c.Type)); err != nil {
			return err
		}
		if c.PK {
			if pkSeen {
				return &fdb.ValidationError{Field: "columns", Value: c.Name, Reason: "only one column may be the primary key"}
			}
			if c.Type != record.TypeInt {
				return &fdb.ValidationError{Field: c.Name, Value: string(c.Type), Reason: "primary key column must be of type int"}
			}
			pkSeen = true
		}
	}
	if !pkSeen {
		return &fdb.ValidationError{Field: "columns", Value: s.Table, Reason: "no column designated as primary key"}
	}
	return nil
}

// DesignatePK retroactively marks the named column as the primary key.
// Used when no column was flagged during entry. The column must exist and
// be of type int, and no other column may already be the primary key.
func (s *Schema) DesignatePK(name string) error {
	if s.PKIndex() >= 0 {
		return &fdb.ValidationError{Field: "columns", Value: name, Reason: "primary key already designated"}
	}
	idx := s.ColumnIndex(name)
	if idx < 0 {
		return &fdb.NotFoundError{Kind: fdb.KindColumn, Name: name}
	}
	if s.Columns[idx].Type != record.TypeInt {
		return &fdb.ValidationError{Field: name, Value: string(s.Columns[idx].Type), Reason: "primary key column must be of type int"}
	}
	s.Columns[idx].PK = true
	return nil
}

// format renders the schema file content.
func (s *Schema) format() string {
	var b strings.Builder
	for _, c := range s.Columns {
		b.WriteString(c.Name)
		b.WriteString(record.Delimiter)
		b.WriteString(string(c.Type))
		if c.PK {
			b.WriteString(record.Delimiter)
			b.WriteString(pkMarker)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parse reads schema file content into a Schema.
func parse(table, content string) (*Schema, error) {
	s := &Schema{Table: table}
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, record.Delimiter)
		if len(parts) != 2 && len(parts) != 3 {
			return nil, &fdb.ValidationError{Field: "schema", Value: line, Reason: "malformed schema line"}
		}
		col := Column{Name: parts[0]}
		t, err := record.ParseFieldType(parts[1])
		if err != nil {
			return nil, err
		}
		col.Type = t
		if len(parts) == 3 {
			if parts[2] != pkMarker {
				return nil, &fdb.ValidationError{Field: "schema", Value: line, Reason: "malformed schema line"}
			}
			col.PK = true
		}
		s.Columns = append(s.Columns, col)
	}
	if s.PKIndex() < 0 {
		return nil, &fdb.InvariantError{Path: table, Detail: "persisted schema has no primary key"}
	}
	return s, nil
}
