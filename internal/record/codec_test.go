package record

import (
	"testing"

	"fdb-go/internal/fdb"
)

func TestParseFieldType(t *testing.T) {
	for _, name := range []string{"int", "string", "date", "binary"} {
		got, err := ParseFieldType(name)
		if err != nil {
			t.Errorf("ParseFieldType(%q) error = %v", name, err)
		}
		if string(got) != name {
			t.Errorf("ParseFieldType(%q) = %q", name, got)
		}
	}

	if _, err := ParseFieldType("float"); !fdb.IsValidation(err) {
		t.Errorf("ParseFieldType(\"float\") error = %v, want validation error", err)
	}
	if _, err := ParseFieldType("INT"); !fdb.IsValidation(err) {
		t.Errorf("ParseFieldType(\"INT\") error = %v, want validation error", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	types := []FieldType{TypeInt, TypeString, TypeDate}
	line := Encode([]string{"7", "alice", "2024-01-15"})
	if line != "7:alice:2024-01-15" {
		t.Fatalf("Encode() = %q, want %q", line, "7:alice:2024-01-15")
	}

	fields, err := Decode(line, types)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(fields) != 3 || fields[1] != "alice" {
		t.Errorf("Decode() = %v", fields)
	}

	if _, err := Decode("7:alice", types); !fdb.IsValidation(err) {
		t.Errorf("Decode() with missing field error = %v, want validation error", err)
	}
	if _, err := Decode("7:alice:2024-01-15:extra", types); !fdb.IsValidation(err) {
		t.Errorf("Decode() with extra field error = %v, want validation error", err)
	}
}

func TestValidateValue_Int(t *testing.T) {
	for _, raw := range []string{"0", "42", "-7", "007"} {
		got, err := ValidateValue(TypeInt, raw)
		if err != nil {
			t.Errorf("ValidateValue(int, %q) error = %v", raw, err)
		}
		if got != raw {
			t.Errorf("ValidateValue(int, %q) = %q", raw, got)
		}
	}
	for _, raw := range []string{"", "abc", "1.5", "1e3", "1 "} {
		if _, err := ValidateValue(TypeInt, raw); !fdb.IsValidation(err) {
			t.Errorf("ValidateValue(int, %q) error = %v, want validation error", raw, err)
		}
	}
}

func TestValidateValue_String(t *testing.T) {
	got, err := ValidateValue(TypeString, "hello world")
	if err != nil {
		t.Fatalf("ValidateValue() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("ValidateValue() = %q", got)
	}

	// The field delimiter can never appear inside a stored string.
	if _, err := ValidateValue(TypeString, "a:b"); !fdb.IsValidation(err) {
		t.Errorf("ValidateValue(string, \"a:b\") error = %v, want validation error", err)
	}
}

func TestValidateValue_Date(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-01-15", "2024-01-15"},
		{"2024-02", "2024-02-01"},
		{"2024", "2024-01-01"},       // bare 4 digits is a year
		{"1705312200", "2024-01-15"}, // epoch seconds
		{"0", "1970-01-01"},
	}
	for _, tt := range tests {
		got, err := ValidateValue(TypeDate, tt.raw)
		if err != nil {
			t.Errorf("ValidateValue(date, %q) error = %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateValue(date, %q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	for _, raw := range []string{"", "yesterday", "2024-13-01", "15/01/2024", "2024-01-15T10:00:00"} {
		if _, err := ValidateValue(TypeDate, raw); !fdb.IsValidation(err) {
			t.Errorf("ValidateValue(date, %q) error = %v, want validation error", raw, err)
		}
	}
}

func TestValidateValue_Binary(t *testing.T) {
	got, err := ValidateValue(TypeBinary, "20240115T103000.000000000.zip")
	if err != nil {
		t.Fatalf("ValidateValue() error = %v", err)
	}
	if got != "20240115T103000.000000000.zip" {
		t.Errorf("ValidateValue() = %q", got)
	}

	for _, raw := range []string{"", "a:b.zip", "dir/archive.zip", "dir\\archive.zip"} {
		if _, err := ValidateValue(TypeBinary, raw); !fdb.IsValidation(err) {
			t.Errorf("ValidateValue(binary, %q) error = %v, want validation error", raw, err)
		}
	}
}

func TestValidatePK(t *testing.T) {
	for _, raw := range []string{"1", "42", "999999999"} {
		if err := ValidatePK(raw); err != nil {
			t.Errorf("ValidatePK(%q) error = %v", raw, err)
		}
	}
	for _, raw := range []string{"", "0", "-1", "007", "1.0", "abc"} {
		if err := ValidatePK(raw); !fdb.IsValidation(err) {
			t.Errorf("ValidatePK(%q) error = %v, want validation error", raw, err)
		}
	}
}
