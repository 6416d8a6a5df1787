// Package fsutil holds the filesystem primitives shared by the catalog,
// table and recovery packages: atomic file replacement, tree copies, and
// containment checks for paths derived from user-supplied names.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fdb-go/internal/fdb"
)

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by an atomic rename. A crash mid-write leaves either the old file
// or the new one, never a truncated hybrid.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &fdb.IOError{Op: "create temp", Path: dir, Err: err}
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return &fdb.IOError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &fdb.IOError{Op: "close", Path: tmpPath, Err: err}
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return &fdb.IOError{Op: "chmod", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &fdb.IOError{Op: "rename", Path: path, Err: err}
	}

	success = true
	return nil
}

// CopyFile copies a single regular file, creating parent directories of dst
// as needed. The destination is written atomically.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return &fdb.IOError{Op: "read", Path: src, Err: err}
	}
	info, err := os.Stat(src)
	if err != nil {
		return &fdb.IOError{Op: "stat", Path: src, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &fdb.IOError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	return WriteFileAtomic(dst, data, info.Mode().Perm())
}

// CopyDir recursively copies the directory tree at src to dst.
// dst is created if missing. Only directories and regular files are copied;
// anything else is an error.
func CopyDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return &fdb.IOError{Op: "stat", Path: src, Err: err}
	}
	if !info.IsDir() {
		return &fdb.IOError{Op: "copy", Path: src, Err: fmt.Errorf("not a directory")}
	}
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return &fdb.IOError{Op: "mkdir", Path: dst, Err: err}
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return &fdb.IOError{Op: "read dir", Path: src, Err: err}
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			return &fdb.IOError{Op: "copy", Path: srcPath, Err: fmt.Errorf("not a regular file")}
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// ResolveWithinRoot joins name onto root and verifies the result stays
// inside root. Every path the engine derives from a user-supplied database,
// table or column name goes through this check.
func ResolveWithinRoot(root, name string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &fdb.IOError{Op: "resolve", Path: root, Err: err}
	}
	resolved := filepath.Join(absRoot, name)
	if resolved != absRoot && !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		return "", &fdb.PathEscapeError{Name: name, Root: absRoot}
	}
	return resolved, nil
}

// Exists reports whether path exists, regardless of type.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
