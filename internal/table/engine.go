// Package table implements validated CRUD over a table's record file, using
// the schema store for column definitions and the record codec for field
// validation. Multi-line rewrites go through a temp file and an atomic
// rename; inserts append a single line to the live file.
package table

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
	"fdb-go/internal/record"
	"fdb-go/internal/schema"
)

// rename is swapped out in tests to observe crash-before-rename behavior.
var rename = os.Rename

// Engine performs CRUD for the tables of one database.
type Engine struct {
	dbName string
	dbRoot string
	store  *schema.Store
	clock  fdb.Clock
	logger fdb.Logger
}

// NewEngine creates an Engine over the given database directory.
func NewEngine(dbName, dbRoot string, clock fdb.Clock, logger fdb.Logger) *Engine {
	return &Engine{
		dbName: dbName,
		dbRoot: dbRoot,
		store:  schema.NewStore(dbRoot),
		clock:  clock,
		logger: logger,
	}
}

// Store exposes the engine's schema store.
func (e *Engine) Store() *schema.Store { return e.store }

// recordsPath resolves the data file for a table, verifying containment.
func (e *Engine) recordsPath(table string) (string, error) {
	return fsutil.ResolveWithinRoot(e.dbRoot, fdb.RecordsFileName(table))
}

// readLines loads all record lines of a table.
func (e *Engine) readLines(table string) ([]string, error) {
	path, err := e.recordsPath(table)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindTable, Name: table}
		}
		return nil, &fdb.IOError{Op: "read", Path: path, Err: err}
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// writeLines rewrites the full data file through a temp file and an atomic
// rename, so an interrupted rewrite leaves the original file untouched.
func (e *Engine) writeLines(table string, lines []string) error {
	path, err := e.recordsPath(table)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}

	tmpFile, err := os.CreateTemp(e.dbRoot, ".tmp-*")
	if err != nil {
		return &fdb.IOError{Op: "create temp", Path: e.dbRoot, Err: err}
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.WriteString(b.String()); err != nil {
		tmpFile.Close()
		return &fdb.IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &fdb.IOError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := rename(tmpPath, path); err != nil {
		return &fdb.IOError{Op: "rename", Path: path, Err: err}
	}
	success = true
	return nil
}

// validateField checks one raw value against its column, returning the
// stored form. Binary columns archive the referenced source file and store
// the archive name.
func (e *Engine) validateField(table string, col schema.Column, raw string) (string, error) {
	if raw == "" {
		return "", &fdb.ValidationError{Field: col.Name, Value: raw, Reason: "value must not be empty"}
	}
	if col.Type == record.TypeBinary {
		return e.archiveBlob(table, raw)
	}
	stored, err := record.ValidateValue(col.Type, raw)
	if err != nil {
		var verr *fdb.ValidationError
		if errors.As(err, &verr) {
			verr.Field = col.Name
		}
		return "", err
	}
	return stored, nil
}

// pkValues returns the primary-key field of every record in the table.
func pkValues(lines []string, types []record.FieldType, pkIdx int) ([]string, error) {
	keys := make([]string, 0, len(lines))
	for _, line := range lines {
		fields, err := record.Decode(line, types)
		if err != nil {
			return nil, err
		}
		keys = append(keys, fields[pkIdx])
	}
	return keys, nil
}

// Insert validates one value per schema column in order and appends the
// encoded record to the data file. The primary-key value must be a positive
// integer not already present in the table.
func (e *Engine) Insert(table string, values []string) error {
	s, err := e.store.Load(table)
	if err != nil {
		return err
	}
	if len(values) != len(s.Columns) {
		return &fdb.ValidationError{
			Field:  "values",
			Value:  fmt.Sprintf("%d", len(values)),
			Reason: fmt.Sprintf("table %s has %d columns", table, len(s.Columns)),
		}
	}

	pkIdx := s.PKIndex()
	if err := record.ValidatePK(values[pkIdx]); err != nil {
		var verr *fdb.ValidationError
		if errors.As(err, &verr) {
			verr.Field = s.Columns[pkIdx].Name
		}
		return err
	}

	lines, err := e.readLines(table)
	if err != nil {
		return err
	}
	keys, err := pkValues(lines, s.Types(), pkIdx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == values[pkIdx] {
			return &fdb.DuplicateError{Kind: fdb.KindRow, Name: values[pkIdx]}
		}
	}

	stored := make([]string, len(values))
	dropArchives := func(upto int) {
		for i := 0; i < upto; i++ {
			if s.Columns[i].Type == record.TypeBinary {
				e.removeBlob(table, stored[i])
			}
		}
	}
	for i, col := range s.Columns {
		v, err := e.validateField(table, col, values[i])
		if err != nil {
			dropArchives(i)
			return err
		}
		stored[i] = v
	}

	path, err := e.recordsPath(table)
	if err != nil {
		dropArchives(len(stored))
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		dropArchives(len(stored))
		return &fdb.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	if _, err := f.WriteString(record.Encode(stored) + "\n"); err != nil {
		dropArchives(len(stored))
		return &fdb.IOError{Op: "append", Path: path, Err: err}
	}

	e.logger.Debug("record inserted", "database", e.dbName, "table", table, "pk", values[pkIdx])
	return nil
}

// Update locates the record with the matching primary key, re-validates the
// new value against the target column, and rewrites the data file replacing
// only that line. Updating the primary-key column re-checks uniqueness.
func (e *Engine) Update(table, pkValue, column, newValue string) error {
	s, err := e.store.Load(table)
	if err != nil {
		return err
	}
	if err := record.ValidatePK(pkValue); err != nil {
		return err
	}
	colIdx := s.ColumnIndex(column)
	if colIdx < 0 {
		return &fdb.NotFoundError{Kind: fdb.KindColumn, Name: column}
	}

	lines, err := e.readLines(table)
	if err != nil {
		return err
	}
	types := s.Types()
	pkIdx := s.PKIndex()

	rowIdx := -1
	for i, line := range lines {
		fields, err := record.Decode(line, types)
		if err != nil {
			return err
		}
		if fields[pkIdx] == pkValue {
			rowIdx = i
			break
		}
	}
	if rowIdx < 0 {
		return &fdb.NotFoundError{Kind: fdb.KindRow, Name: pkValue}
	}

	if colIdx == pkIdx {
		if err := record.ValidatePK(newValue); err != nil {
			return err
		}
		keys, err := pkValues(lines, types, pkIdx)
		if err != nil {
			return err
		}
		for i, k := range keys {
			if i != rowIdx && k == newValue {
				return &fdb.DuplicateError{Kind: fdb.KindRow, Name: newValue}
			}
		}
	}

	stored, err := e.validateField(table, s.Columns[colIdx], newValue)
	if err != nil {
		return err
	}

	fields, err := record.Decode(lines[rowIdx], types)
	if err != nil {
		return err
	}
	fields[colIdx] = stored
	lines[rowIdx] = record.Encode(fields)

	if err := e.writeLines(table, lines); err != nil {
		if s.Columns[colIdx].Type == record.TypeBinary {
			e.removeBlob(table, stored)
		}
		return err
	}
	e.logger.Debug("record updated", "database", e.dbName, "table", table, "pk", pkValue, "column", s.Columns[colIdx].Name)
	return nil
}

// Delete removes the record with the matching primary key, rewriting the
// data file with the relative order of the remaining records preserved.
// An empty table is reported distinctly from a missing key.
func (e *Engine) Delete(table, pkValue string) error {
	s, err := e.store.Load(table)
	if err != nil {
		return err
	}
	if err := record.ValidatePK(pkValue); err != nil {
		return err
	}

	lines, err := e.readLines(table)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("table %s is empty: %w", table, &fdb.NotFoundError{Kind: fdb.KindRow, Name: pkValue})
	}

	types := s.Types()
	pkIdx := s.PKIndex()
	kept := lines[:0:0]
	found := false
	for _, line := range lines {
		fields, err := record.Decode(line, types)
		if err != nil {
			return err
		}
		if !found && fields[pkIdx] == pkValue {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return &fdb.NotFoundError{Kind: fdb.KindRow, Name: pkValue}
	}

	if err := e.writeLines(table, kept); err != nil {
		return err
	}
	e.logger.Debug("record deleted", "database", e.dbName, "table", table, "pk", pkValue)
	return nil
}

// RemoveFiles deletes the schema file, data file and blob directory for a
// table. The catalog count adjustment is the caller's responsibility; the
// service runs this under the catalog's staged mutation protocol.
func (e *Engine) RemoveFiles(table string) error {
	schemaPath, err := e.store.SchemaPath(table)
	if err != nil {
		return err
	}
	recordsPath, err := e.recordsPath(table)
	if err != nil {
		return err
	}
	blobDir, err := fsutil.ResolveWithinRoot(e.dbRoot, fdb.BlobDirName(table))
	if err != nil {
		return err
	}

	if err := os.Remove(schemaPath); err != nil && !os.IsNotExist(err) {
		return &fdb.IOError{Op: "remove", Path: schemaPath, Err: err}
	}
	if err := os.Remove(recordsPath); err != nil && !os.IsNotExist(err) {
		return &fdb.IOError{Op: "remove", Path: recordsPath, Err: err}
	}
	if err := os.RemoveAll(blobDir); err != nil {
		return &fdb.IOError{Op: "remove", Path: blobDir, Err: err}
	}
	return nil
}

// Exists reports whether the table has a schema file.
func (e *Engine) Exists(table string) (bool, error) {
	schemaPath, err := e.store.SchemaPath(table)
	if err != nil {
		return false, err
	}
	return fsutil.Exists(schemaPath), nil
}
