package fdb

import "io"

// Vault provides an interface for offsite snapshot storage backends.
// Snapshots are pushed as single archive blobs keyed by snapshot name.
// All operations use io.Reader/io.Writer for streaming so archives are
// never loaded entirely into memory.
type Vault interface {
	// Put stores an archive under the given snapshot name.
	// size is the number of bytes that will be read from r.
	// Storing the same name twice overwrites the previous archive.
	Put(name string, r io.Reader, size int64) error

	// Get retrieves the archive stored under name and writes it to w.
	Get(name string, w io.Writer) error

	// List returns the names of all stored archives, sorted.
	List() ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
