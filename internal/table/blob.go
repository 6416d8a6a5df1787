package table

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"fdb-go/internal/fdb"
	"fdb-go/internal/fsutil"
)

// MaxBlobSize caps the source file size for binary columns at 1 MiB.
const MaxBlobSize int64 = 1 << 20

// archiveBlob validates the source file for a binary column, compresses it
// into the table's blob directory as a single-file zip archive, and returns
// the archive filename to store in the record. Archive names derive from
// the clock at nanosecond precision so names never collide within one
// session.
func (e *Engine) archiveBlob(table, source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &fdb.NotFoundError{Kind: "file", Name: source}
		}
		return "", &fdb.IOError{Op: "stat", Path: source, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &fdb.ValidationError{Field: "binary", Value: source, Reason: "not a regular file"}
	}
	if info.Size() > MaxBlobSize {
		return "", &fdb.SizeLimitError{Path: source, Size: info.Size(), Limit: MaxBlobSize}
	}

	blobDir, err := fsutil.ResolveWithinRoot(e.dbRoot, fdb.BlobDirName(table))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return "", &fdb.IOError{Op: "mkdir", Path: blobDir, Err: err}
	}

	archiveName := fdb.Stamp(e.clock.Now()) + ".zip"
	archivePath := filepath.Join(blobDir, archiveName)
	if err := writeZip(archivePath, source); err != nil {
		os.Remove(archivePath)
		return "", err
	}

	e.logger.Debug("blob archived", "table", table, "source", source, "archive", archiveName)
	return archiveName, nil
}

// removeBlob deletes an archive left behind by a mutation that failed
// before its record reached the data file. Best effort; the archive is
// unreferenced either way.
func (e *Engine) removeBlob(table, archiveName string) {
	blobDir, err := fsutil.ResolveWithinRoot(e.dbRoot, fdb.BlobDirName(table))
	if err != nil {
		return
	}
	os.Remove(filepath.Join(blobDir, archiveName))
}

// writeZip creates a zip archive at dst containing exactly the file at src.
func writeZip(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return &fdb.IOError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return &fdb.IOError{Op: "create", Path: dst, Err: err}
	}

	zw := zip.NewWriter(out)
	entry, err := zw.Create(filepath.Base(src))
	if err != nil {
		out.Close()
		return &fdb.IOError{Op: "archive", Path: dst, Err: err}
	}
	if _, err := io.Copy(entry, in); err != nil {
		out.Close()
		return &fdb.IOError{Op: "archive", Path: dst, Err: err}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return &fdb.IOError{Op: "archive", Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return &fdb.IOError{Op: "close", Path: dst, Err: err}
	}
	return nil
}
