package schema

import (
	"os"
	"path/filepath"
	"strings"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
	"fdb-go/internal/record"
)

// Store persists table schemas inside one database directory.
// All validation happens in memory; nothing touches disk until the schema is
// complete and valid, so a persisted schema always satisfies the primary-key
// invariant.
type Store struct {
	dbRoot string
}

// NewStore creates a Store rooted at the database directory.
func NewStore(dbRoot string) *Store {
	return &Store{dbRoot: dbRoot}
}

// SchemaPath resolves the schema file path for a table, verifying it stays
// inside the database directory.
func (st *Store) SchemaPath(table string) (string, error) {
	return fsutil.ResolveWithinRoot(st.dbRoot, fdb.SchemaFileName(table))
}

// Create validates the table name and column list, then persists the schema
// file and an empty data file. Validation order: table name rules, path
// containment, existence, then the column rules (count, naming, duplicates,
// primary key). On any failure nothing is written; a failure writing the
// data file discards the schema file already written.
func (st *Store) Create(table string, columns []Column) (*Schema, error) {
	if err := record.ValidateIdentifier("table name", table, record.MinTableNameLen); err != nil {
		return nil, err
	}
	schemaPath, err := st.SchemaPath(table)
	if err != nil {
		return nil, err
	}
	if fsutil.Exists(schemaPath) {
		return nil, &fdb.DuplicateError{Kind: fdb.KindTable, Name: table}
	}

	s := &Schema{Table: table, Columns: columns}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if err := fsutil.WriteFileAtomic(schemaPath, []byte(s.format()), 0644); err != nil {
		return nil, err
	}

	recordsPath := filepath.Join(st.dbRoot, fdb.RecordsFileName(table))
	if err := fsutil.WriteFileAtomic(recordsPath, nil, 0644); err != nil {
		os.Remove(schemaPath)
		return nil, err
	}

	return s, nil
}

// Load reads the schema for a table. Returns NotFoundError if the table has
// no schema file.
func (st *Store) Load(table string) (*Schema, error) {
	if err := record.ValidateIdentifier("table name", table, record.MinTableNameLen); err != nil {
		return nil, err
	}
	schemaPath, err := st.SchemaPath(table)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindTable, Name: table}
		}
		return nil, &fdb.IOError{Op: "read", Path: schemaPath, Err: err}
	}
	return parse(table, string(data))
}

// List returns the names of all tables with a schema file in the database
// directory. The count of these is the ground truth the catalog's
// table_count must agree with.
func (st *Store) List() ([]string, error) {
	entries, err := os.ReadDir(st.dbRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: filepath.Base(st.dbRoot)}
		}
		return nil, &fdb.IOError{Op: "read dir", Path: st.dbRoot, Err: err}
	}
	var tables []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".schema"); ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}
