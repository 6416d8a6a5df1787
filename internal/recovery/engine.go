package recovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
)

// Engine creates and restores snapshots. It operates directly on the same
// on-disk layout the table engine produces and never modifies schema
// definitions itself.
type Engine struct {
	dataDir string
	snapDir string
	clock   fdb.Clock
	logger  fdb.Logger
}

// NewEngine creates a recovery engine over the data directory.
func NewEngine(dataDir string, clock fdb.Clock, logger fdb.Logger) *Engine {
	return &Engine{
		dataDir: dataDir,
		snapDir: filepath.Join(dataDir, fdb.SnapshotsDirName),
		clock:   clock,
		logger:  logger,
	}
}

// scopeDir returns the namespace directory for a scope.
func (e *Engine) scopeDir(scope Scope) string {
	return filepath.Join(e.snapDir, string(scope))
}

// snapshotDir resolves a snapshot directory by scope and name, verifying
// containment.
func (e *Engine) snapshotDir(scope Scope, name string) (string, error) {
	return fsutil.ResolveWithinRoot(e.scopeDir(scope), name)
}

// tableFiles lists the on-disk pieces of one table: schema file, data file,
// and blob directory.
func tableFiles(table string) []string {
	return []string{
		fdb.SchemaFileName(table),
		fdb.RecordsFileName(table),
		fdb.BlobDirName(table),
	}
}

// Snapshot copies the current state of a database (scope db) or a single
// table (scope table) into a new timestamped snapshot and writes its
// metadata record. The source must exist. Snapshots are never mutated after
// this returns.
func (e *Engine) Snapshot(scope Scope, db, table, description string) (*Meta, error) {
	dbDir, err := fsutil.ResolveWithinRoot(e.dataDir, db)
	if err != nil {
		return nil, err
	}
	if !fsutil.Exists(dbDir) {
		return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: db}
	}

	m := newMeta(scope, db, table, description, e.clock.Now())
	dir, err := e.snapshotDir(scope, m.Name)
	if err != nil {
		return nil, err
	}

	switch scope {
	case ScopeDB:
		if err := fsutil.CopyDir(dbDir, dir); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	case ScopeTable:
		schemaPath := filepath.Join(dbDir, fdb.SchemaFileName(table))
		if !fsutil.Exists(schemaPath) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindTable, Name: table}
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &fdb.IOError{Op: "mkdir", Path: dir, Err: err}
		}
		for _, name := range tableFiles(table) {
			src := filepath.Join(dbDir, name)
			if !fsutil.Exists(src) {
				continue // blob directory is optional
			}
			var copyErr error
			if info, err := os.Stat(src); err == nil && info.IsDir() {
				copyErr = fsutil.CopyDir(src, filepath.Join(dir, name))
			} else {
				copyErr = fsutil.CopyFile(src, filepath.Join(dir, name))
			}
			if copyErr != nil {
				os.RemoveAll(dir)
				return nil, copyErr
			}
		}
	default:
		return nil, &fdb.ValidationError{Field: "scope", Value: string(scope), Reason: "want db or table"}
	}

	if err := writeMeta(dir, m); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	e.logger.Info("snapshot created", "name", m.Name, "scope", string(scope), "database", db)
	return m, nil
}

// List enumerates snapshots under both scopes whose identity begins with
// source followed by the name separator, newest first. source is a database
// name, or <db>_<table> for table snapshots; an empty source matches every
// snapshot.
func (e *Engine) List(source string) ([]*Meta, error) {
	var metas []*Meta
	for _, scope := range []Scope{ScopeDB, ScopeTable} {
		entries, err := os.ReadDir(e.scopeDir(scope))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, &fdb.IOError{Op: "read dir", Path: e.scopeDir(scope), Err: err}
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if source != "" && !strings.HasPrefix(entry.Name(), source+"_") {
				continue
			}
			m, err := parseMeta(filepath.Join(e.scopeDir(scope), entry.Name(), fdb.MetaFileName))
			if err != nil {
				return nil, err
			}
			metas = append(metas, m)
		}
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name > metas[j].Name })
	return metas, nil
}

// Find locates a snapshot by its full name in either scope namespace.
func (e *Engine) Find(name string) (*Meta, error) {
	for _, scope := range []Scope{ScopeDB, ScopeTable} {
		dir, err := e.snapshotDir(scope, name)
		if err != nil {
			return nil, err
		}
		if fsutil.Exists(filepath.Join(dir, fdb.MetaFileName)) {
			return parseMeta(filepath.Join(dir, fdb.MetaFileName))
		}
	}
	return nil, &fdb.NotFoundError{Kind: fdb.KindSnapshot, Name: name}
}

// RollbackResult reports what a rollback did: the snapshot restored from
// and the automatic backup taken first. Backup is nil only when the live
// table did not exist.
type RollbackResult struct {
	Restored *Meta
	Backup   *Meta
}

// Rollback restores live state from the named snapshot. The live state is
// snapshotted first under the backup-before-rollback description; for a
// database that backup is mandatory, for a table it is skipped when the
// live table does not exist. The source snapshot is only read. A failure
// after the backup leaves the backup intact for manual recovery; restores
// are not retried.
func (e *Engine) Rollback(name string) (*RollbackResult, error) {
	m, err := e.Find(name)
	if err != nil {
		return nil, err
	}
	snapDir, err := e.snapshotDir(m.Scope, m.Name)
	if err != nil {
		return nil, err
	}

	dbDir, err := fsutil.ResolveWithinRoot(e.dataDir, m.Database)
	if err != nil {
		return nil, err
	}

	result := &RollbackResult{Restored: m}

	switch m.Scope {
	case ScopeDB:
		if !fsutil.Exists(dbDir) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: m.Database}
		}
		backup, err := e.Snapshot(ScopeDB, m.Database, "", BackupDescription)
		if err != nil {
			return nil, err
		}
		result.Backup = backup

		if err := os.RemoveAll(dbDir); err != nil {
			return nil, &fdb.IOError{Op: "remove", Path: dbDir, Err: err}
		}
		if err := e.copySnapshotContent(snapDir, dbDir); err != nil {
			return nil, err
		}
	case ScopeTable:
		if !fsutil.Exists(dbDir) {
			return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: m.Database}
		}
		liveSchema := filepath.Join(dbDir, fdb.SchemaFileName(m.Table))
		if fsutil.Exists(liveSchema) {
			backup, err := e.Snapshot(ScopeTable, m.Database, m.Table, BackupDescription)
			if err != nil {
				return nil, err
			}
			result.Backup = backup
		}

		for _, fname := range tableFiles(m.Table) {
			if err := os.RemoveAll(filepath.Join(dbDir, fname)); err != nil {
				return nil, &fdb.IOError{Op: "remove", Path: filepath.Join(dbDir, fname), Err: err}
			}
		}
		if err := e.copySnapshotContent(snapDir, dbDir); err != nil {
			return nil, err
		}
	}

	e.logger.Info("rollback complete", "snapshot", m.Name, "database", m.Database)
	return result, nil
}

// copySnapshotContent copies every entry of a snapshot directory into dst,
// excluding the snapshot's own metadata record.
func (e *Engine) copySnapshotContent(snapDir, dst string) error {
	entries, err := os.ReadDir(snapDir)
	if err != nil {
		return &fdb.IOError{Op: "read dir", Path: snapDir, Err: err}
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return &fdb.IOError{Op: "mkdir", Path: dst, Err: err}
	}
	for _, entry := range entries {
		if entry.Name() == fdb.MetaFileName {
			continue
		}
		src := filepath.Join(snapDir, entry.Name())
		target := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := fsutil.CopyDir(src, target); err != nil {
				return err
			}
			continue
		}
		if err := fsutil.CopyFile(src, target); err != nil {
			return err
		}
	}
	return nil
}
