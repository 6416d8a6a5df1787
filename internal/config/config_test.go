package config

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		DataDir: "/home/user/.local/share/fdb/data",
		LogDir:  "/home/user/.local/share/fdb/log",
		History: HistoryConfig{Type: "sqlite", Path: "/var/lib/fdb/history.db"},
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: "/backup/vault"},
			{Type: "s3", Name: "offsite", S3Bucket: "fdb-snapshots", S3Region: "eu-west-1"},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/fdb/keys/fdb.pub",
			PrivateKeyPath: "/home/user/.local/share/fdb/keys/fdb.key",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.DataDir != original.DataDir {
		t.Errorf("DataDir = %q, want %q", got.DataDir, original.DataDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.History.Type != "sqlite" || got.History.Path != original.History.Path {
		t.Errorf("History = %+v, want %+v", got.History, original.History)
	}
	if len(got.Vaults) != 2 {
		t.Fatalf("len(Vaults) = %d, want 2", len(got.Vaults))
	}
	if got.Vaults[0].FSVaultRoot != "/backup/vault" {
		t.Errorf("Vaults[0].FSVaultRoot = %q, want %q", got.Vaults[0].FSVaultRoot, "/backup/vault")
	}
	if got.Vaults[1].S3Bucket != "fdb-snapshots" {
		t.Errorf("Vaults[1].S3Bucket = %q, want %q", got.Vaults[1].S3Bucket, "fdb-snapshots")
	}
	if got.Encryption.Type != "age" {
		t.Errorf("Encryption.Type = %q, want %q", got.Encryption.Type, "age")
	}
	if got.Encryption.PrivateKeyPath != original.Encryption.PrivateKeyPath {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", got.Encryption.PrivateKeyPath, original.Encryption.PrivateKeyPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/fdb")

	if cfg.DataDir != "/data/fdb/data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "/data/fdb/data")
	}
	if cfg.LogDir != "/data/fdb/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/fdb/log")
	}
	if cfg.History.Type != "sqlite" {
		t.Errorf("History.Type = %q, want %q", cfg.History.Type, "sqlite")
	}
	if cfg.Encryption.PublicKeyPath != "/data/fdb/keys/fdb.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/fdb/keys/fdb.pub")
	}
	if cfg.Encryption.PrivateKeyPath != "/data/fdb/keys/fdb.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q, want %q", cfg.Encryption.PrivateKeyPath, "/data/fdb/keys/fdb.key")
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := NewConfig("/data/fdb")
	if got := cfg.HistoryPath(); got != "/data/fdb/data/history.db" {
		t.Errorf("HistoryPath() = %q, want default under data dir", got)
	}

	cfg.History.Path = "/elsewhere/history.db"
	if got := cfg.HistoryPath(); got != "/elsewhere/history.db" {
		t.Errorf("HistoryPath() = %q, want configured path", got)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fdb.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.DataDir != cfg.DataDir {
			t.Errorf("DataDir = %q, want %q", got.DataDir, cfg.DataDir)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fdb.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatal(err)
		}
		if err := Init(path, cfg); err == nil {
			t.Error("second Init() error = nil, want already-exists error")
		}
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "config", "fdb.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := ReadFromFile(path); err != nil {
			t.Errorf("ReadFromFile() error = %v", err)
		}
	})
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := ReadFromFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("ReadFromFile() error = nil, want open error")
	}
}
