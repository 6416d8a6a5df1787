package record

import (
	"fmt"
	"regexp"
	"strings"

	"fdb-go/internal/fdb"
)

// Minimum identifier lengths. Tables and databases share the longer minimum.
const (
	MinColumnNameLen = 2
	MinTableNameLen  = 3
)

var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z_]*$`)

// reservedWords may not be used as database, table or column names,
// case-insensitively.
var reservedWords = map[string]struct{}{
	"create": {}, "drop": {}, "insert": {}, "select": {}, "update": {},
	"delete": {}, "table": {}, "database": {}, "int": {}, "string": {},
	"date": {}, "binary": {}, "pk": {}, "key": {}, "snapshot": {},
	"rollback": {}, "from": {}, "where": {}, "and": {}, "or": {},
	"not": {}, "null": {},
}

// IsReserved reports whether name is a reserved word, ignoring case.
func IsReserved(name string) bool {
	_, ok := reservedWords[strings.ToLower(name)]
	return ok
}

// ValidateIdentifier checks a user-supplied name against the shared naming
// rules: non-empty, at least minLen characters, letters and underscores
// starting with a letter, and not a reserved word. field labels the name in
// the returned error ("table name", "column name", ...).
func ValidateIdentifier(field, name string, minLen int) error {
	if name == "" {
		return &fdb.ValidationError{Field: field, Value: name, Reason: "must not be empty"}
	}
	if len(name) < minLen {
		return &fdb.ValidationError{Field: field, Value: name, Reason: fmt.Sprintf("must be at least %d characters", minLen)}
	}
	if !identPattern.MatchString(name) {
		return &fdb.ValidationError{Field: field, Value: name, Reason: "must start with a letter and contain only letters and underscores"}
	}
	if IsReserved(name) {
		return &fdb.ValidationError{Field: field, Value: name, Reason: "reserved word"}
	}
	return nil
}
