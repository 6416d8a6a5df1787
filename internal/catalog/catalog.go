// Package catalog maintains the registry of databases: one comma-separated
// line per database holding name, table count, and created/modified epochs.
// Soft-deleted databases stay in the file under a timestamp-prefixed
// tombstone key instead of being removed.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
	"fdb-go/internal/record"
)

// tombstoneSep joins the deletion epoch and the original name in a
// tombstoned entry's name field. It is not a legal identifier character, so
// tombstone keys can never collide with active names.
const tombstoneSep = "!"

// Entry is one catalog row.
type Entry struct {
	Name       string
	TableCount int
	CreatedAt  int64
	ModifiedAt int64
}

// Tombstoned reports whether the entry is a soft-delete tombstone.
func (e *Entry) Tombstoned() bool {
	return strings.Contains(e.Name, tombstoneSep)
}

// Catalog reads and mutates the catalog file. Every mutation is flushed via
// atomic replace; nothing is cached across operations.
type Catalog struct {
	dataDir string
	path    string
	clock   fdb.Clock
}

// New creates a Catalog over the given data directory.
func New(dataDir string, clock fdb.Clock) *Catalog {
	return &Catalog{
		dataDir: dataDir,
		path:    filepath.Join(dataDir, fdb.CatalogFileName),
		clock:   clock,
	}
}

// Path returns the catalog file location.
func (c *Catalog) Path() string { return c.path }

// DatabaseDir resolves the directory for a database, verifying the name
// cannot escape the data directory.
func (c *Catalog) DatabaseDir(name string) (string, error) {
	return fsutil.ResolveWithinRoot(c.dataDir, name)
}

// load reads and parses all catalog rows, tombstones included.
// A missing catalog file is an empty catalog.
func (c *Catalog) load() ([]Entry, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &fdb.IOError{Op: "read", Path: c.path, Err: err}
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 4 {
			return nil, &fdb.InvariantError{Path: c.path, Detail: "malformed catalog line: " + line}
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil || count < 0 {
			return nil, &fdb.InvariantError{Path: c.path, Detail: "bad table count in line: " + line}
		}
		created, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, &fdb.InvariantError{Path: c.path, Detail: "bad created epoch in line: " + line}
		}
		modified, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, &fdb.InvariantError{Path: c.path, Detail: "bad modified epoch in line: " + line}
		}
		entries = append(entries, Entry{
			Name:       fields[0],
			TableCount: count,
			CreatedAt:  created,
			ModifiedAt: modified,
		})
	}
	return entries, nil
}

// flush writes the full entry list back atomically.
func (c *Catalog) flush(entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s,%d,%d,%d\n", e.Name, e.TableCount, e.CreatedAt, e.ModifiedAt)
	}
	return fsutil.WriteFileAtomic(c.path, []byte(b.String()), 0644)
}

// Register creates a database: a catalog row plus its directory, under the
// same staged protocol as the drop operations so a failed mkdir never leaves
// a row without a directory. The name must pass the identifier rules and not
// collide with an active entry or with the catalog's own files.
func (c *Catalog) Register(name string) error {
	if err := record.ValidateIdentifier("database name", name, record.MinTableNameLen); err != nil {
		return err
	}
	if name == fdb.SnapshotsDirName {
		return &fdb.ValidationError{Field: "database name", Value: name, Reason: "reserved for the snapshot namespace"}
	}

	dir, err := c.DatabaseDir(name)
	if err != nil {
		return err
	}

	mutate := func(entries []Entry) ([]Entry, error) {
		for _, e := range entries {
			if !e.Tombstoned() && e.Name == name {
				return nil, &fdb.DuplicateError{Kind: fdb.KindDatabase, Name: name}
			}
		}
		now := c.clock.Now().Unix()
		return append(entries, Entry{Name: name, TableCount: 0, CreatedAt: now, ModifiedAt: now}), nil
	}

	dirChange := func() error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &fdb.IOError{Op: "mkdir", Path: dir, Err: err}
		}
		return nil
	}

	return c.StagedMutation(mutate, dirChange)
}

// List returns all active (non-tombstoned) entries in file order.
func (c *Catalog) List() ([]Entry, error) {
	entries, err := c.load()
	if err != nil {
		return nil, err
	}
	var active []Entry
	for _, e := range entries {
		if !e.Tombstoned() {
			active = append(active, e)
		}
	}
	return active, nil
}

// Get returns the active entry for name.
func (c *Catalog) Get(name string) (*Entry, error) {
	entries, err := c.load()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if !entries[i].Tombstoned() && entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: name}
}

// Exists reports whether an active database with the given name exists.
// With caseInsensitive set, name matches regardless of case; if more than
// one case variant matches, the ambiguity is an error rather than a silent
// pick.
func (c *Catalog) Exists(name string, caseInsensitive bool) (bool, error) {
	entries, err := c.load()
	if err != nil {
		return false, err
	}
	if !caseInsensitive {
		for _, e := range entries {
			if !e.Tombstoned() && e.Name == name {
				return true, nil
			}
		}
		return false, nil
	}

	var matches []string
	for _, e := range entries {
		if !e.Tombstoned() && strings.EqualFold(e.Name, name) {
			matches = append(matches, e.Name)
		}
	}
	if len(matches) > 1 {
		return false, &fdb.DuplicateError{Kind: fdb.KindDatabase, Name: strings.Join(matches, ", ")}
	}
	return len(matches) == 1, nil
}

// IncrementTableCount bumps the table count for a database and touches its
// modified timestamp.
func (c *Catalog) IncrementTableCount(name string) error {
	return c.adjustTableCount(name, 1)
}

// DecrementTableCount lowers the table count for a database and touches its
// modified timestamp.
func (c *Catalog) DecrementTableCount(name string) error {
	return c.adjustTableCount(name, -1)
}

// SetTableCount pins the table count for a database to an externally
// observed value. Rollback uses this to reconcile the catalog with the
// number of schema files actually restored.
func (c *Catalog) SetTableCount(name string, count int) error {
	if count < 0 {
		return &fdb.InvariantError{Path: c.path, Detail: "negative table count for " + name}
	}
	entries, err := c.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Tombstoned() || entries[i].Name != name {
			continue
		}
		entries[i].TableCount = count
		entries[i].ModifiedAt = c.clock.Now().Unix()
		return c.flush(entries)
	}
	return &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: name}
}

func (c *Catalog) adjustTableCount(name string, delta int) error {
	entries, err := c.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Tombstoned() || entries[i].Name != name {
			continue
		}
		next := entries[i].TableCount + delta
		if next < 0 {
			return &fdb.InvariantError{Path: c.path, Detail: "table count for " + name + " would go negative"}
		}
		entries[i].TableCount = next
		entries[i].ModifiedAt = c.clock.Now().Unix()
		return c.flush(entries)
	}
	return &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: name}
}
