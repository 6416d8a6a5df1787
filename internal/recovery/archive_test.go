package recovery

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
	"time"

	"fdb-go/internal/fdb"
)

func TestArchive_RoundTrip(t *testing.T) {
	src, srcData, clock := newTestEngine(t)
	seedDatabase(t, srcData, "inventory")

	snap, err := src.Snapshot(ScopeTable, "inventory", "users", "weekly")
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	var buf bytes.Buffer
	if err := src.ExportArchive(snap.Name, &buf); err != nil {
		t.Fatalf("ExportArchive() error = %v", err)
	}

	// Import into a fresh engine, as a pull onto another machine would.
	dst, _, _ := newTestEngine(t)
	m, err := dst.ImportArchive(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}
	if m.Name != snap.Name || m.Description != "weekly" || m.Scope != ScopeTable {
		t.Errorf("imported meta = %+v, want %+v", m, snap)
	}

	// The imported snapshot is a full citizen of the local namespace.
	metas, err := dst.List("inventory_users")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 1 || metas[0].Name != snap.Name {
		t.Errorf("List() after import = %+v", metas)
	}
}

func TestImportArchive_RefusesExistingSnapshot(t *testing.T) {
	e, dataDir, _ := newTestEngine(t)
	seedDatabase(t, dataDir, "inventory")

	snap, err := e.Snapshot(ScopeDB, "inventory", "", "")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := e.ExportArchive(snap.Name, &buf); err != nil {
		t.Fatal(err)
	}

	if _, err := e.ImportArchive(bytes.NewReader(buf.Bytes())); !fdb.IsDuplicate(err) {
		t.Errorf("ImportArchive() error = %v, want duplicate error", err)
	}
}

func TestImportArchive_RejectsEscapingEntries(t *testing.T) {
	e, _, _ := newTestEngine(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := []byte("owned")
	if err := tw.WriteHeader(&tar.Header{
		Name: "db/../../../etc/passwd",
		Mode: 0644,
		Size: int64(len(content)),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := e.ImportArchive(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("ImportArchive() error = nil, want rejection of escaping entry")
	}
}

func TestExportArchive_MissingSnapshot(t *testing.T) {
	e, _, _ := newTestEngine(t)
	var buf bytes.Buffer
	if err := e.ExportArchive("inventory_nope", &buf); !fdb.IsNotFound(err) {
		t.Errorf("ExportArchive() error = %v, want not-found error", err)
	}
}
