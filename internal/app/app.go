// Package app is the application layer between the CLI and the core
// packages. It constructs all components from config, exposes the
// high-level operations that accept raw string arguments, records every
// mutating operation in the history store, and manages resource lifecycle
// on Close.
package app

import (
	"context"
	"fmt"
	"os"

	"fdb-go/internal/catalog"
	"fdb-go/internal/config"
	"fdb-go/internal/encryption"
	"fdb-go/internal/fdb"
	"fdb-go/internal/history"
	"fdb-go/internal/recovery"
	"fdb-go/internal/table"
	"fdb-go/internal/vault"
)

// App wires the catalog, table engines, recovery engine, history store and
// offsite vault together for one CLI invocation.
type App struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	recovery  *recovery.Engine
	history   *history.Store // nil when history is off
	vault     fdb.Vault      // nil when no vault is configured
	encryptor fdb.Encryptor
	logger    fdb.Logger
	clock     fdb.Clock
	idgen     fdb.IDGenerator
	operation string
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Insert",
// "RollbackSnapshot"). The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	clock := fdb.RealClock{}
	idgen := fdb.UUIDGenerator{}

	opID := idgen.New()
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	var hist *history.Store
	if cfg.History.Type != "off" {
		hist, err = history.Open(cfg.HistoryPath())
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("opening history store: %w", err)
		}
	}

	var v fdb.Vault
	if len(cfg.Vaults) > 0 {
		v, err = vault.NewVaultFromConfig(context.Background(), cfg.Vaults[0])
		if err != nil {
			if hist != nil {
				hist.Close()
			}
			logFile.Close()
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		if hist != nil {
			hist.Close()
		}
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	log := &slogAdapter{l: logger}
	return &App{
		cfg:       cfg,
		catalog:   catalog.New(cfg.DataDir, clock),
		recovery:  recovery.NewEngine(cfg.DataDir, clock, log),
		history:   hist,
		vault:     v,
		encryptor: enc,
		logger:    log,
		clock:     clock,
		idgen:     idgen,
		operation: operation,
		logFile:   logFile,
	}, nil
}

// engine returns a table engine bound to an existing database.
func (a *App) engine(db string) (*table.Engine, error) {
	if _, err := a.catalog.Get(db); err != nil {
		return nil, err
	}
	dir, err := a.catalog.DatabaseDir(db)
	if err != nil {
		return nil, err
	}
	return table.NewEngine(db, dir, a.clock, a.logger), nil
}

// EncryptionConfigured reports whether a key pair exists at the configured
// paths, meaning pushed archives are encrypted and pulls need a passphrase.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// recordHistory appends one entry to the history store. History is
// advisory: failures are logged and swallowed so they never fail the
// operation itself.
func (a *App) recordHistory(db, tbl, parameters string, opErr error) {
	if a.history == nil {
		return
	}
	status := "success"
	if opErr != nil {
		status = "error"
	}
	entry := &history.Entry{
		ID:         a.idgen.New(),
		Operation:  a.operation,
		Database:   db,
		Table:      tbl,
		Parameters: parameters,
		Status:     status,
		CreatedAt:  a.clock.Now(),
	}
	if err := a.history.Record(entry); err != nil {
		a.logger.Warn("recording history failed", "error", err)
	}
}

// Close releases the history store and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			firstErr = fmt.Errorf("closing history store: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
