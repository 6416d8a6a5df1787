package recovery

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
)

// ExportArchive writes the named snapshot as a gzip-compressed tar stream,
// metadata record included. Entry paths are relative to the snapshot
// namespace (<scope>/<name>/...), so an import lands the snapshot back in
// the right scope.
func (e *Engine) ExportArchive(name string, w io.Writer) error {
	m, err := e.Find(name)
	if err != nil {
		return err
	}
	dir, err := e.snapshotDir(m.Scope, m.Name)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	prefix := filepath.Join(string(m.Scope), m.Name)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name: filepath.ToSlash(filepath.Join(prefix, rel)),
			Mode: int64(info.Mode().Perm()),
			Size: info.Size(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return &fdb.IOError{Op: "archive", Path: dir, Err: err}
	}

	if err := tw.Close(); err != nil {
		return &fdb.IOError{Op: "archive", Path: dir, Err: err}
	}
	if err := gz.Close(); err != nil {
		return &fdb.IOError{Op: "archive", Path: dir, Err: err}
	}
	return nil
}

// ImportArchive reads a snapshot archive produced by ExportArchive and
// recreates the snapshot under the local namespace. Entries that would
// escape the namespace are rejected, and an already-present snapshot is
// never overwritten.
func (e *Engine) ImportArchive(r io.Reader) (*Meta, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, &fdb.IOError{Op: "unarchive", Path: e.snapDir, Err: err}
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var snapName string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &fdb.IOError{Op: "unarchive", Path: e.snapDir, Err: err}
		}

		target, err := fsutil.ResolveWithinRoot(e.snapDir, filepath.FromSlash(hdr.Name))
		if err != nil {
			return nil, err
		}

		// Entries are <scope>/<name>/...; remember the snapshot directory and refuse
		// to touch one that already holds a metadata record.
		parts := strings.SplitN(filepath.ToSlash(hdr.Name), "/", 3)
		if len(parts) != 3 {
			return nil, &fdb.ValidationError{Field: "archive", Value: hdr.Name, Reason: "unexpected entry path"}
		}
		if snapName == "" {
			snapName = parts[1]
			metaPath := filepath.Join(e.snapDir, parts[0], parts[1], fdb.MetaFileName)
			if fsutil.Exists(metaPath) {
				return nil, &fdb.DuplicateError{Kind: fdb.KindSnapshot, Name: parts[1]}
			}
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, &fdb.IOError{Op: "mkdir", Path: filepath.Dir(target), Err: err}
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, &fdb.IOError{Op: "unarchive", Path: target, Err: err}
		}
		if err := fsutil.WriteFileAtomic(target, data, os.FileMode(hdr.Mode).Perm()); err != nil {
			return nil, err
		}
	}

	if snapName == "" {
		return nil, &fdb.ValidationError{Field: "archive", Value: "", Reason: "empty archive"}
	}
	return e.Find(snapName)
}
