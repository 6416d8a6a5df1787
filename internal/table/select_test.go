package table

import (
	"reflect"
	"testing"

	"fdb-go/internal/fdb"
)

func seedSelect(t *testing.T) *Engine {
	t.Helper()
	e, _ := newTestEngine(t)
	for _, rec := range [][]string{
		{"1", "alice", "2024-01-01"},
		{"2", "bob", "2024-02-01"},
		{"3", "alice", "2024-03-01"},
	} {
		if err := e.Insert("users", rec); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func collect(t *testing.T, rows *Rows) [][]string {
	t.Helper()
	defer rows.Close()
	var got [][]string
	for rows.Next() {
		row := make([]string, len(rows.Row()))
		copy(row, rows.Row())
		got = append(got, row)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iteration error = %v", err)
	}
	return got
}

func TestEngine_Select(t *testing.T) {
	t.Run("all columns in insertion order", func(t *testing.T) {
		e := seedSelect(t)
		rows, err := e.Select("users", nil, nil)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if want := []string{"id", "name", "joined"}; !reflect.DeepEqual(rows.Columns(), want) {
			t.Errorf("Columns() = %v, want %v", rows.Columns(), want)
		}
		got := collect(t, rows)
		want := [][]string{
			{"1", "alice", "2024-01-01"},
			{"2", "bob", "2024-02-01"},
			{"3", "alice", "2024-03-01"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("rows = %v, want %v", got, want)
		}
	})

	t.Run("projection reorders columns", func(t *testing.T) {
		e := seedSelect(t)
		rows, err := e.Select("users", []int{1, 0}, nil)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if want := []string{"name", "id"}; !reflect.DeepEqual(rows.Columns(), want) {
			t.Errorf("Columns() = %v, want %v", rows.Columns(), want)
		}
		got := collect(t, rows)
		if want := [][]string{{"alice", "1"}, {"bob", "2"}, {"alice", "3"}}; !reflect.DeepEqual(got, want) {
			t.Errorf("rows = %v, want %v", got, want)
		}
	})

	t.Run("equality filter", func(t *testing.T) {
		e := seedSelect(t)
		rows, err := e.Select("users", nil, &Filter{ColumnIndex: 1, Value: "alice"})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		got := collect(t, rows)
		if len(got) != 2 || got[0][0] != "1" || got[1][0] != "3" {
			t.Errorf("rows = %v", got)
		}
	})

	t.Run("no matches is empty not an error", func(t *testing.T) {
		e := seedSelect(t)
		rows, err := e.Select("users", nil, &Filter{ColumnIndex: 1, Value: "zelda"})
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if got := collect(t, rows); len(got) != 0 {
			t.Errorf("rows = %v, want none", got)
		}
	})

	t.Run("empty table", func(t *testing.T) {
		e, _ := newTestEngine(t)
		rows, err := e.Select("users", nil, nil)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if got := collect(t, rows); len(got) != 0 {
			t.Errorf("rows = %v, want none", got)
		}
	})

	t.Run("projection out of range", func(t *testing.T) {
		e := seedSelect(t)
		if _, err := e.Select("users", []int{3}, nil); !fdb.IsNotFound(err) {
			t.Errorf("Select() error = %v, want not-found error", err)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		e, _ := newTestEngine(t)
		if _, err := e.Select("ghosts", nil, nil); !fdb.IsNotFound(err) {
			t.Errorf("Select() error = %v, want not-found error", err)
		}
	})
}
