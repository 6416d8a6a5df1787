// Package recovery creates and restores point-in-time snapshots of a
// database or a single table. Snapshots are write-once directory copies
// tagged with a small metadata record; a rollback never touches the
// snapshot it restores from, it only reads it and writes a fresh
// backup-before-rollback snapshot of the live state.
package recovery

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
)

// Scope says whether a snapshot covers a whole database or a single table.
type Scope string

const (
	ScopeDB    Scope = "db"
	ScopeTable Scope = "table"
)

// DefaultDescription is recorded when the caller leaves the description
// blank.
const DefaultDescription = "No description"

// BackupDescription tags the automatic snapshot taken of the live state
// before every rollback.
const BackupDescription = "backup-before-rollback"

// createdLayout is the display form of the creation time in metadata
// records.
const createdLayout = "2006-01-02 15:04:05"

// Meta is the metadata record stored inside each snapshot directory.
type Meta struct {
	Name        string // snapshot identity: <db>_<ts> or <db>_<table>_<ts>
	Scope       Scope
	Database    string
	Table       string // table scope only
	Timestamp   int64  // creation time, epoch seconds
	Description string
	Created     string // creation time, display form
}

// format renders the metadata record as a key:value block.
func (m *Meta) format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name:%s\n", m.Name)
	fmt.Fprintf(&b, "type:%s\n", m.Scope)
	fmt.Fprintf(&b, "database:%s\n", m.Database)
	if m.Scope == ScopeTable {
		fmt.Fprintf(&b, "table:%s\n", m.Table)
	}
	fmt.Fprintf(&b, "timestamp:%d\n", m.Timestamp)
	fmt.Fprintf(&b, "description:%s\n", m.Description)
	fmt.Fprintf(&b, "created:%s\n", m.Created)
	return b.String()
}

// parseMeta reads a metadata record. Values may themselves contain colons
// (the display time does), so each line splits on the first colon only.
func parseMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindSnapshot, Name: path}
		}
		return nil, &fdb.IOError{Op: "read", Path: path, Err: err}
	}

	m := &Meta{}
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &fdb.InvariantError{Path: path, Detail: "malformed metadata line: " + line}
		}
		switch key {
		case "name":
			m.Name = value
		case "type":
			m.Scope = Scope(value)
		case "database":
			m.Database = value
		case "table":
			m.Table = value
		case "timestamp":
			epoch, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, &fdb.InvariantError{Path: path, Detail: "bad timestamp: " + value}
			}
			m.Timestamp = epoch
		case "description":
			m.Description = value
		case "created":
			m.Created = value
		}
	}
	if m.Name == "" || m.Database == "" || (m.Scope != ScopeDB && m.Scope != ScopeTable) {
		return nil, &fdb.InvariantError{Path: path, Detail: "incomplete metadata record"}
	}
	return m, nil
}

// newMeta assembles the metadata record for a snapshot taken at t.
func newMeta(scope Scope, db, table, description string, t time.Time) *Meta {
	if description == "" {
		description = DefaultDescription
	}
	name := db + "_" + fdb.Stamp(t)
	if scope == ScopeTable {
		name = db + "_" + table + "_" + fdb.Stamp(t)
	}
	return &Meta{
		Name:        name,
		Scope:       scope,
		Database:    db,
		Table:       table,
		Timestamp:   t.Unix(),
		Description: description,
		Created:     t.UTC().Format(createdLayout),
	}
}

// writeMeta persists the metadata record inside the snapshot directory.
func writeMeta(dir string, m *Meta) error {
	path, err := fsutil.ResolveWithinRoot(dir, fdb.MetaFileName)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, []byte(m.format()), 0644)
}
