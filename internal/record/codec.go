// Package record implements the field codec: typed validation of field
// values and their serialization to and from delimited record lines.
package record

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fdb-go/internal/fdb"
)

// FieldType is the type of a column and of every value stored under it.
type FieldType string

const (
	TypeInt    FieldType = "int"
	TypeString FieldType = "string"
	TypeDate   FieldType = "date"
	TypeBinary FieldType = "binary"
)

// Delimiter separates fields within a record line. Values of type string are
// validated to never contain it.
const Delimiter = ":"

// DateLayout is the canonical stored form of date values.
const DateLayout = "2006-01-02"

var (
	intPattern  = regexp.MustCompile(`^-?[0-9]+$`)
	pkPattern   = regexp.MustCompile(`^[1-9][0-9]*$`)
	yearPattern = regexp.MustCompile(`^[0-9]{4}$`)
)

// ParseFieldType parses a type name from a schema file or user input.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(s) {
	case TypeInt, TypeString, TypeDate, TypeBinary:
		return FieldType(s), nil
	}
	return "", &fdb.ValidationError{Value: s, Reason: "unknown type, want int, string, date or binary"}
}

// Encode joins already-validated field values into one record line.
func Encode(fields []string) string {
	return strings.Join(fields, Delimiter)
}

// Decode splits a record line into fields and checks the count against the
// schema's column types. Field values are returned raw; they were validated
// on the way in.
func Decode(line string, types []FieldType) ([]string, error) {
	fields := strings.Split(line, Delimiter)
	if len(fields) != len(types) {
		return nil, &fdb.ValidationError{
			Value:  line,
			Reason: fmt.Sprintf("record has %d fields, schema has %d columns", len(fields), len(types)),
		}
	}
	return fields, nil
}

// ValidateValue checks raw against the rules for t and returns the value in
// its stored form. Date values normalize to YYYY-MM-DD; every other type is
// stored as given. The empty string is rejected for int and date; an empty
// string value is the caller's concern.
func ValidateValue(t FieldType, raw string) (string, error) {
	switch t {
	case TypeInt:
		if !intPattern.MatchString(raw) {
			return "", &fdb.ValidationError{Value: raw, Reason: "not an integer"}
		}
		return raw, nil
	case TypeString:
		if strings.Contains(raw, Delimiter) {
			return "", &fdb.ValidationError{Value: raw, Reason: "string values may not contain " + Delimiter}
		}
		return raw, nil
	case TypeDate:
		return normalizeDate(raw)
	case TypeBinary:
		// The stored value is an archive filename produced by the engine,
		// never raw user input; reject anything that could not be one.
		if raw == "" || strings.ContainsAny(raw, Delimiter+"/\\") {
			return "", &fdb.ValidationError{Value: raw, Reason: "not a valid archive name"}
		}
		return raw, nil
	}
	return "", &fdb.ValidationError{Value: string(t), Reason: "unknown type"}
}

// ValidatePK checks a primary-key field value. Keys are positive integers
// with no leading zeros.
func ValidatePK(raw string) error {
	if !pkPattern.MatchString(raw) {
		return &fdb.ValidationError{Value: raw, Reason: "primary key must be a positive integer"}
	}
	return nil
}

// normalizeDate accepts YYYY-MM-DD, YYYY-MM (day defaults to 01), YYYY
// (month and day default to 01), or a Unix epoch integer, and normalizes to
// YYYY-MM-DD. A bare 4-digit number is always read as a year, not an epoch.
func normalizeDate(raw string) (string, error) {
	if yearPattern.MatchString(raw) {
		t, err := time.Parse("2006", raw)
		if err != nil {
			return "", &fdb.ValidationError{Value: raw, Reason: "not a date"}
		}
		return t.Format(DateLayout), nil
	}
	if intPattern.MatchString(raw) {
		epoch, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", &fdb.ValidationError{Value: raw, Reason: "epoch out of range"}
		}
		return time.Unix(epoch, 0).UTC().Format(DateLayout), nil
	}
	for _, layout := range []string{DateLayout, "2006-01"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", &fdb.ValidationError{Value: raw, Reason: "not a date, want YYYY-MM-DD, YYYY-MM, YYYY or epoch seconds"}
}
