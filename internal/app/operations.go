package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"fdb-go/internal/catalog"
	"fdb-go/internal/fdb"
	"fdb-go/internal/history"
	"fdb-go/internal/recovery"
	"fdb-go/internal/schema"
	"fdb-go/internal/table"
)

// CreateDatabase registers a new database: a catalog row and a directory.
func (a *App) CreateDatabase(name string) error {
	err := a.catalog.Register(name)
	a.recordHistory(name, "", "", err)
	return err
}

// ListDatabases returns all active databases with their table counts.
func (a *App) ListDatabases() ([]catalog.Entry, error) {
	return a.catalog.List()
}

// DropDatabase removes a database. A soft drop tombstones the catalog row
// and renames the directory aside for manual recovery; a hard drop removes
// row and directory together.
func (a *App) DropDatabase(name string, hard bool) error {
	var err error
	if hard {
		err = a.catalog.HardDelete(name)
	} else {
		err = a.catalog.SoftDelete(name)
	}
	a.recordHistory(name, "", fmt.Sprintf("hard=%v", hard), err)
	return err
}

// CreateTable creates a table in an existing database. If no column is
// flagged as primary key, pkColumn may designate one retroactively from the
// already-entered columns; without either the creation is rejected before
// anything is written.
func (a *App) CreateTable(db, tbl string, columns []schema.Column, pkColumn string) error {
	err := a.createTable(db, tbl, columns, pkColumn)
	a.recordHistory(db, tbl, fmt.Sprintf("columns=%d", len(columns)), err)
	return err
}

func (a *App) createTable(db, tbl string, columns []schema.Column, pkColumn string) error {
	eng, err := a.engine(db)
	if err != nil {
		return err
	}

	s := &schema.Schema{Table: tbl, Columns: columns}
	if pkColumn != "" && s.PKIndex() < 0 {
		if err := s.DesignatePK(pkColumn); err != nil {
			return err
		}
	}

	if _, err := eng.Store().Create(tbl, s.Columns); err != nil {
		return err
	}

	if err := a.catalog.IncrementTableCount(db); err != nil {
		// Undo the files so the catalog and directory stay in agreement.
		if rmErr := eng.RemoveFiles(tbl); rmErr != nil {
			return &fdb.InvariantError{
				Path:   a.cfg.DataDir,
				Detail: fmt.Sprintf("table %s.%s created but catalog update failed (%v) and cleanup failed (%v)", db, tbl, err, rmErr),
			}
		}
		return err
	}
	return nil
}

// DropTable removes a table's schema file, data file and blob directory,
// and decrements the database's table count. The catalog mutation runs
// first under the staged backup protocol; if the file removal then fails,
// the catalog is restored so the count never undercounts silently.
func (a *App) DropTable(db, tbl string) error {
	err := a.dropTable(db, tbl)
	a.recordHistory(db, tbl, "", err)
	return err
}

func (a *App) dropTable(db, tbl string) error {
	eng, err := a.engine(db)
	if err != nil {
		return err
	}
	exists, err := eng.Exists(tbl)
	if err != nil {
		return err
	}
	if !exists {
		return &fdb.NotFoundError{Kind: fdb.KindTable, Name: tbl}
	}

	mutate := func(entries []catalog.Entry) ([]catalog.Entry, error) {
		for i := range entries {
			if !entries[i].Tombstoned() && entries[i].Name == db {
				if entries[i].TableCount == 0 {
					return nil, &fdb.InvariantError{Path: a.catalog.Path(), Detail: "table count for " + db + " already zero"}
				}
				entries[i].TableCount--
				entries[i].ModifiedAt = a.clock.Now().Unix()
				return entries, nil
			}
		}
		return nil, &fdb.NotFoundError{Kind: fdb.KindDatabase, Name: db}
	}

	return a.catalog.StagedMutation(mutate, func() error {
		return eng.RemoveFiles(tbl)
	})
}

// Insert validates and appends one record.
func (a *App) Insert(db, tbl string, values []string) error {
	eng, err := a.engine(db)
	if err != nil {
		a.recordHistory(db, tbl, "", err)
		return err
	}
	err = eng.Insert(tbl, values)
	a.recordHistory(db, tbl, fmt.Sprintf("fields=%d", len(values)), err)
	return err
}

// Select opens a lazy cursor over a table. positions selects columns by
// 1-based position (nil means all); filterColumn/filterValue add an
// equality filter, which must name a projected column.
func (a *App) Select(db, tbl string, positions []int, filterColumn, filterValue string) (*table.Rows, error) {
	eng, err := a.engine(db)
	if err != nil {
		return nil, err
	}
	s, err := eng.Store().Load(tbl)
	if err != nil {
		return nil, err
	}

	var projection []int
	if positions != nil {
		projection = make([]int, len(positions))
		for i, p := range positions {
			if p < 1 || p > len(s.Columns) {
				return nil, &fdb.ValidationError{
					Field:  "columns",
					Value:  fmt.Sprintf("%d", p),
					Reason: fmt.Sprintf("table %s has %d columns", tbl, len(s.Columns)),
				}
			}
			projection[i] = p - 1
		}
	}

	var filter *table.Filter
	if filterColumn != "" {
		idx := s.ColumnIndex(filterColumn)
		if idx < 0 {
			return nil, &fdb.NotFoundError{Kind: fdb.KindColumn, Name: filterColumn}
		}
		if projection != nil {
			projected := false
			for _, p := range projection {
				if p == idx {
					projected = true
					break
				}
			}
			if !projected {
				return nil, &fdb.ValidationError{Field: "where", Value: filterColumn, Reason: "filter column must be projected"}
			}
		}
		filter = &table.Filter{ColumnIndex: idx, Value: filterValue}
	}

	return eng.Select(tbl, projection, filter)
}

// Update replaces one column value of the record with the given primary
// key.
func (a *App) Update(db, tbl, pk, column, value string) error {
	eng, err := a.engine(db)
	if err != nil {
		a.recordHistory(db, tbl, "", err)
		return err
	}
	err = eng.Update(tbl, pk, column, value)
	a.recordHistory(db, tbl, fmt.Sprintf("pk=%s column=%s", pk, column), err)
	return err
}

// Delete removes the record with the given primary key.
func (a *App) Delete(db, tbl, pk string) error {
	eng, err := a.engine(db)
	if err != nil {
		a.recordHistory(db, tbl, "", err)
		return err
	}
	err = eng.Delete(tbl, pk)
	a.recordHistory(db, tbl, "pk="+pk, err)
	return err
}

// CreateSnapshot snapshots a whole database or a single table.
func (a *App) CreateSnapshot(scope recovery.Scope, db, tbl, description string) (*recovery.Meta, error) {
	if _, err := a.catalog.Get(db); err != nil {
		a.recordHistory(db, tbl, "", err)
		return nil, err
	}
	m, err := a.recovery.Snapshot(scope, db, tbl, description)
	a.recordHistory(db, tbl, "scope="+string(scope), err)
	return m, err
}

// ListSnapshots enumerates snapshots whose identity starts with source.
func (a *App) ListSnapshots(source string) ([]*recovery.Meta, error) {
	return a.recovery.List(source)
}

// Rollback restores live state from the named snapshot, then reconciles
// the catalog's table count with the schema files actually present. A
// database restored after a hard drop gets its catalog row re-registered.
func (a *App) Rollback(name string) (*recovery.RollbackResult, error) {
	result, err := a.recovery.Rollback(name)
	if err != nil {
		a.recordHistory("", "", "snapshot="+name, err)
		return nil, err
	}

	db := result.Restored.Database
	err = a.reconcileTableCount(db)
	a.recordHistory(db, result.Restored.Table, "snapshot="+name, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reconcileTableCount pins the catalog count for db to the number of schema
// files on disk, re-registering the catalog row if the database had been
// hard-dropped before the rollback.
func (a *App) reconcileTableCount(db string) error {
	dir, err := a.catalog.DatabaseDir(db)
	if err != nil {
		return err
	}
	tables, err := schema.NewStore(dir).List()
	if err != nil {
		return err
	}

	if _, err := a.catalog.Get(db); err != nil {
		if !fdb.IsNotFound(err) {
			return err
		}
		if err := a.catalog.Register(db); err != nil {
			return err
		}
	}
	return a.catalog.SetTableCount(db, len(tables))
}

// PushSnapshot exports the named snapshot as a tar.gz archive, encrypts it
// when an age key pair is configured, and uploads it to the offsite vault.
func (a *App) PushSnapshot(name string) error {
	err := a.pushSnapshot(name)
	a.recordHistory("", "", "snapshot="+name, err)
	return err
}

func (a *App) pushSnapshot(name string) error {
	if a.vault == nil {
		return fmt.Errorf("no vault configured")
	}

	tmp, err := os.CreateTemp("", "fdb-push-*.tar.gz")
	if err != nil {
		return fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	var exportErr error
	if a.encryptor.IsConfigured() {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(a.recovery.ExportArchive(name, pw))
		}()
		exportErr = a.encryptor.Encrypt(pr, tmp)
	} else {
		exportErr = a.recovery.ExportArchive(name, tmp)
	}
	if exportErr != nil {
		tmp.Close()
		return exportErr
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp archive: %w", err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("stat temp archive: %w", err)
	}
	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening temp archive: %w", err)
	}
	defer f.Close()

	if err := a.vault.Put(name, f, info.Size()); err != nil {
		return err
	}
	a.logger.Info("snapshot pushed", "snapshot", name, "bytes", info.Size())
	return nil
}

// PullSnapshot downloads the named snapshot archive from the vault,
// decrypts it when encryption is configured (using passphrase to unlock the
// private key), and imports it into the local snapshot namespace.
func (a *App) PullSnapshot(name, passphrase string) (*recovery.Meta, error) {
	m, err := a.pullSnapshot(name, passphrase)
	a.recordHistory("", "", "snapshot="+name, err)
	return m, err
}

func (a *App) pullSnapshot(name, passphrase string) (*recovery.Meta, error) {
	if a.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}

	tmp, err := os.CreateTemp("", "fdb-pull-*.tar.gz")
	if err != nil {
		return nil, fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := a.vault.Get(name, tmp); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp archive: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("opening temp archive: %w", err)
	}
	defer f.Close()

	if a.encryptor.IsConfigured() {
		ctx, err := a.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, err
		}
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(ctx.Decrypt(f, pw))
		}()
		return a.recovery.ImportArchive(pr)
	}
	return a.recovery.ImportArchive(f)
}

// ListVault returns the snapshot names stored in the offsite vault.
func (a *App) ListVault() ([]string, error) {
	if a.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	return a.vault.List()
}

// History returns the most recent recorded operations, newest first.
func (a *App) History(limit int) ([]*history.Entry, error) {
	if a.history == nil {
		return nil, fmt.Errorf("history is disabled in the configuration")
	}
	return a.history.List(limit)
}

// SetupKeys generates the age key pair used to encrypt pushed snapshots.
func (a *App) SetupKeys(passphrase string) error {
	if strings.TrimSpace(passphrase) == "" {
		return &fdb.ValidationError{Field: "passphrase", Value: "", Reason: "must not be empty"}
	}
	return a.encryptor.Setup(passphrase)
}
