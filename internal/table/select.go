package table

import (
	"bufio"
	"os"

	"fdb-go/internal/fdb"
	"fdb-go/internal/record"
)

// Filter is an equality test against one column's decoded value.
type Filter struct {
	ColumnIndex int
	Value       string
}

// Rows is a lazy cursor over projected records. Callers loop with Next and
// must Close when done.
type Rows struct {
	f       *os.File
	scanner *bufio.Scanner
	types   []record.FieldType
	columns []string
	project []int
	filter  *Filter
	cur     []string
	err     error
}

// Select opens a cursor over the table. projection selects columns by
// position (nil means all columns, in schema order); filter, if non-nil,
// keeps only records whose filtered column equals the given raw value.
// A missing table is an error; an empty result set is not.
func (e *Engine) Select(table string, projection []int, filter *Filter) (*Rows, error) {
	s, err := e.store.Load(table)
	if err != nil {
		return nil, err
	}

	if projection == nil {
		projection = make([]int, len(s.Columns))
		for i := range projection {
			projection[i] = i
		}
	}
	for _, idx := range projection {
		if idx < 0 || idx >= len(s.Columns) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindColumn, Name: s.Table}
		}
	}
	if filter != nil {
		if filter.ColumnIndex < 0 || filter.ColumnIndex >= len(s.Columns) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindColumn, Name: s.Table}
		}
	}

	path, err := e.recordsPath(table)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindTable, Name: table}
		}
		return nil, &fdb.IOError{Op: "open", Path: path, Err: err}
	}

	columns := make([]string, len(projection))
	for i, idx := range projection {
		columns[i] = s.Columns[idx].Name
	}

	return &Rows{
		f:       f,
		scanner: bufio.NewScanner(f),
		types:   s.Types(),
		columns: columns,
		project: projection,
		filter:  filter,
	}, nil
}

// Columns returns the projected column names, in projection order.
func (r *Rows) Columns() []string { return r.columns }

// Next advances to the next matching record. It returns false at the end of
// the file or on the first error; check Err after the loop.
func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			continue
		}
		fields, err := record.Decode(line, r.types)
		if err != nil {
			r.err = err
			return false
		}
		if r.filter != nil && fields[r.filter.ColumnIndex] != r.filter.Value {
			continue
		}
		row := make([]string, len(r.project))
		for i, idx := range r.project {
			row[i] = fields[idx]
		}
		r.cur = row
		return true
	}
	r.err = r.scanner.Err()
	return false
}

// Row returns the current projected record. Valid until the next call to
// Next.
func (r *Rows) Row() []string { return r.cur }

// Err returns the first error encountered during iteration, if any.
func (r *Rows) Err() error { return r.err }

// Close releases the underlying file.
func (r *Rows) Close() error { return r.f.Close() }
