package fdb

import (
	"errors"
	"fmt"
)

// Kinds of named things referenced by NotFoundError and DuplicateError.
const (
	KindDatabase = "database"
	KindTable    = "table"
	KindColumn   = "column"
	KindRow      = "row"
	KindSnapshot = "snapshot"
)

// ValidationError reports malformed or out-of-range input: a bad identifier,
// a value that does not parse under its column type, a reserved word, etc.
type ValidationError struct {
	Field  string // argument or column the value was supplied for
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid value %q: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Field, e.Reason)
}

// NotFoundError reports a missing database, table, row, column or snapshot.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// DuplicateError reports a name or key collision: a table that already
// exists, a second database with the same name, a repeated primary key.
type DuplicateError struct {
	Kind string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Kind, e.Name)
}

// SizeLimitError reports a blob source exceeding the archive size cap.
type SizeLimitError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, limit is %d", e.Path, e.Size, e.Limit)
}

// PathEscapeError reports a user-supplied name that would resolve to a path
// outside its owning database directory.
type PathEscapeError struct {
	Name string
	Root string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("name %q escapes root %s", e.Name, e.Root)
}

// IOError wraps a failed filesystem operation with the path it touched.
type IOError struct {
	Op   string // "write", "rename", "remove", ...
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// InvariantError reports a state the engine can detect but not repair on its
// own: catalog metadata and on-disk directories disagreeing after a failed
// backup-restore, for example. Path names the location needing operator
// attention.
type InvariantError struct {
	Path   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("inconsistent state at %s: %s", e.Path, e.Detail)
}

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is a DuplicateError anywhere in its chain.
func IsDuplicate(err error) bool {
	var d *DuplicateError
	return errors.As(err, &d)
}

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
