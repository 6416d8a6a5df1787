package schema

import (
	"testing"

	"fdb-go/internal/fdb"
	"fdb-go/internal/record"
)

func validColumns() []Column {
	return []Column{
		{Name: "id", Type: record.TypeInt, PK: true},
		{Name: "name", Type: record.TypeString},
		{Name: "joined", Type: record.TypeDate},
	}
}

func TestSchema_Validate(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: validColumns()}
		if err := s.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	})

	t.Run("too few columns", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{{Name: "id", Type: record.TypeInt, PK: true}}}
		if err := s.Validate(); !fdb.IsValidation(err) {
			t.Errorf("Validate() error = %v, want validation error", err)
		}
	})

	t.Run("too many columns", func(t *testing.T) {
		cols := []Column{{Name: "id", Type: record.TypeInt, PK: true}}
		names := []string{"ab", "ac", "ad", "ae", "af", "ag", "ah", "ai", "aj"}
		for _, n := range names {
			cols = append(cols, Column{Name: n, Type: record.TypeString})
		}
		s := &Schema{Table: "users", Columns: cols}
		if err := s.Validate(); !fdb.IsValidation(err) {
			t.Errorf("Validate() error = %v, want validation error", err)
		}
	})

	t.Run("duplicate column names ignore case", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt, PK: true},
			{Name: "Name", Type: record.TypeString},
			{Name: "name", Type: record.TypeString},
		}}
		if err := s.Validate(); !fdb.IsDuplicate(err) {
			t.Errorf("Validate() error = %v, want duplicate error", err)
		}
	})

	t.Run("no primary key", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt},
			{Name: "name", Type: record.TypeString},
		}}
		if err := s.Validate(); !fdb.IsValidation(err) {
			t.Errorf("Validate() error = %v, want validation error", err)
		}
	})

	t.Run("two primary keys", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt, PK: true},
			{Name: "num", Type: record.TypeInt, PK: true},
		}}
		if err := s.Validate(); !fdb.IsValidation(err) {
			t.Errorf("Validate() error = %v, want validation error", err)
		}
	})

	t.Run("non-int primary key", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeString, PK: true},
			{Name: "name", Type: record.TypeString},
		}}
		if err := s.Validate(); !fdb.IsValidation(err) {
			t.Errorf("Validate() error = %v, want validation error", err)
		}
	})

	t.Run("bad column name", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt, PK: true},
			{Name: "1name", Type: record.TypeString},
		}}
		if err := s.Validate(); !fdb.IsValidation(err) {
			t.Errorf("Validate() error = %v, want validation error", err)
		}
	})

	t.Run("bad column type", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt, PK: true},
			{Name: "name", Type: "text"},
		}}
		if err := s.Validate(); !fdb.IsValidation(err) {
			t.Errorf("Validate() error = %v, want validation error", err)
		}
	})
}

func TestSchema_DesignatePK(t *testing.T) {
	t.Run("marks an int column", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt},
			{Name: "name", Type: record.TypeString},
		}}
		if err := s.DesignatePK("id"); err != nil {
			t.Fatalf("DesignatePK() error = %v", err)
		}
		if got := s.PKIndex(); got != 0 {
			t.Errorf("PKIndex() = %d, want 0", got)
		}
		if err := s.Validate(); err != nil {
			t.Errorf("Validate() after DesignatePK error = %v", err)
		}
	})

	t.Run("rejects a second designation", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: validColumns()}
		if err := s.DesignatePK("id"); !fdb.IsValidation(err) {
			t.Errorf("DesignatePK() error = %v, want validation error", err)
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt},
			{Name: "name", Type: record.TypeString},
		}}
		if err := s.DesignatePK("missing"); !fdb.IsNotFound(err) {
			t.Errorf("DesignatePK() error = %v, want not-found error", err)
		}
	})

	t.Run("non-int column", func(t *testing.T) {
		s := &Schema{Table: "users", Columns: []Column{
			{Name: "id", Type: record.TypeInt},
			{Name: "name", Type: record.TypeString},
		}}
		if err := s.DesignatePK("name"); !fdb.IsValidation(err) {
			t.Errorf("DesignatePK() error = %v, want validation error", err)
		}
	})
}

func TestSchema_ColumnIndex(t *testing.T) {
	s := &Schema{Table: "users", Columns: validColumns()}
	if got := s.ColumnIndex("NAME"); got != 1 {
		t.Errorf("ColumnIndex(\"NAME\") = %d, want 1", got)
	}
	if got := s.ColumnIndex("missing"); got != -1 {
		t.Errorf("ColumnIndex(\"missing\") = %d, want -1", got)
	}
}

func TestFormatParse_RoundTrip(t *testing.T) {
	s := &Schema{Table: "users", Columns: validColumns()}
	got, err := parse("users", s.format())
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if len(got.Columns) != 3 {
		t.Fatalf("len(Columns) = %d, want 3", len(got.Columns))
	}
	if got.PKIndex() != 0 {
		t.Errorf("PKIndex() = %d, want 0", got.PKIndex())
	}
	if got.Columns[2].Name != "joined" || got.Columns[2].Type != record.TypeDate {
		t.Errorf("Columns[2] = %+v", got.Columns[2])
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no type", "id\n"},
		{"bad marker", "id:int:PRIMARY\n"},
		{"unknown type", "id:float:PK\n"},
		{"missing primary key", "id:int\nname:string\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse("users", tt.content); err == nil {
				t.Errorf("parse(%q) error = nil, want error", tt.content)
			}
		})
	}
}
