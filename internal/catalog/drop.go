package catalog

import (
	"fmt"
	"os"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
)

// backupPath is where the catalog file is copied before a destructive
// mutation. The backup outlives a failed directory change so the catalog can
// be rolled back to agree with what is actually on disk.
func (c *Catalog) backupPath() string {
	return c.path + ".bak"
}

// StagedMutation applies a destructive catalog change under the
// backup-then-mutate-then-commit protocol:
//
//  1. copy the catalog file aside,
//  2. write the mutated catalog via atomic replace,
//  3. apply the directory change,
//  4. on success discard the backup; on failure restore the catalog from the
//     backup so metadata and directories never diverge silently.
//
// A failed restore is surfaced as an InvariantError naming the backup so an
// operator can finish the job by hand.
func (c *Catalog) StagedMutation(mutate func([]Entry) ([]Entry, error), dirChange func() error) error {
	entries, err := c.load()
	if err != nil {
		return err
	}
	mutated, err := mutate(entries)
	if err != nil {
		return err
	}

	hadCatalog := fsutil.Exists(c.path)
	if hadCatalog {
		if err := fsutil.CopyFile(c.path, c.backupPath()); err != nil {
			return fmt.Errorf("backing up catalog: %w", err)
		}
	}

	if err := c.flush(mutated); err != nil {
		os.Remove(c.backupPath())
		return err
	}

	if err := dirChange(); err != nil {
		if hadCatalog {
			if restoreErr := fsutil.CopyFile(c.backupPath(), c.path); restoreErr != nil {
				return &fdb.InvariantError{
					Path:   c.backupPath(),
					Detail: fmt.Sprintf("directory change failed (%v) and catalog restore failed (%v); restore the catalog from the backup by hand", err, restoreErr),
				}
			}
			os.Remove(c.backupPath())
		} else {
			// No catalog existed before this mutation, so restoring means
			// removing the file we just wrote.
			os.Remove(c.path)
		}
		return err
	}

	os.Remove(c.backupPath())
	return nil
}

// SoftDelete tombstones a database: its catalog key and its directory are
// both renamed to <epoch>!<name>, freeing the name for reuse while keeping
// the data around for manual recovery.
func (c *Catalog) SoftDelete(name string) error {
	dir, err := c.DatabaseDir(name)
	if err != nil {
		return err
	}

	epoch := c.clock.Now().Unix()
	tombstone := fmt.Sprintf("%d%s%s", epoch, tombstoneSep, name)

	mutate := func(entries []Entry) ([]Entry, error) {
		for i := range entries {
			if !entries[i].Tombstoned() && entries[i].Name == name {
				entries[i].Name = tombstone
				entries[i].ModifiedAt = epoch
				return entries, nil
			}
		}
		return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: name}
	}

	dirChange := func() error {
		if !fsutil.Exists(dir) {
			return nil
		}
		tombstoneDir, err := fsutil.ResolveWithinRoot(c.dataDir, tombstone)
		if err != nil {
			return err
		}
		if err := os.Rename(dir, tombstoneDir); err != nil {
			return &fdb.IOError{Op: "rename", Path: dir, Err: err}
		}
		return nil
	}

	return c.StagedMutation(mutate, dirChange)
}

// HardDelete removes a database's catalog row and its directory together.
func (c *Catalog) HardDelete(name string) error {
	dir, err := c.DatabaseDir(name)
	if err != nil {
		return err
	}

	mutate := func(entries []Entry) ([]Entry, error) {
		for i := range entries {
			if !entries[i].Tombstoned() && entries[i].Name == name {
				return append(entries[:i], entries[i+1:]...), nil
			}
		}
		return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: name}
	}

	dirChange := func() error {
		if err := os.RemoveAll(dir); err != nil {
			return &fdb.IOError{Op: "remove", Path: dir, Err: err}
		}
		return nil
	}

	return c.StagedMutation(mutate, dirChange)
}
