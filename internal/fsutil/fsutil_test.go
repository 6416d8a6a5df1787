package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fdb-go/internal/fdb"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")

	if err := WriteFileAtomic(path, []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic() overwrite error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the target file", len(entries))
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	if err := os.WriteFile(src, []byte("payload"), 0600); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "nested", "deeper", "dst.txt")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("content = %q, want %q", data, "payload")
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	for path, content := range map[string]string{
		"top.txt":      "top",
		"sub/leaf.txt": "leaf",
	} {
		if err := os.WriteFile(filepath.Join(src, path), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	dst := filepath.Join(t.TempDir(), "copy")
	if err := CopyDir(src, dst); err != nil {
		t.Fatalf("CopyDir() error = %v", err)
	}

	for path, want := range map[string]string{
		"top.txt":      "top",
		"sub/leaf.txt": "leaf",
	} {
		data, err := os.ReadFile(filepath.Join(dst, path))
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", path, data, want)
		}
	}

	if err := CopyDir(filepath.Join(src, "top.txt"), dst); err == nil {
		t.Error("CopyDir() of a file error = nil, want error")
	}
}

func TestResolveWithinRoot(t *testing.T) {
	root := t.TempDir()

	t.Run("plain name resolves inside", func(t *testing.T) {
		got, err := ResolveWithinRoot(root, "users.schema")
		if err != nil {
			t.Fatalf("ResolveWithinRoot() error = %v", err)
		}
		if want := filepath.Join(root, "users.schema"); got != want {
			t.Errorf("ResolveWithinRoot() = %q, want %q", got, want)
		}
	})

	t.Run("escaping names are rejected", func(t *testing.T) {
		for _, name := range []string{"..", "../other", "a/../../b"} {
			_, err := ResolveWithinRoot(root, name)
			var perr *fdb.PathEscapeError
			if !errors.As(err, &perr) {
				t.Errorf("ResolveWithinRoot(%q) error = %v, want path escape error", name, err)
			}
		}
	})
}
