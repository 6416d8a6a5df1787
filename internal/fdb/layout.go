package fdb

// On-disk layout shared by the schema store, table engine, catalog and
// recovery engine. The data directory holds the catalog file, one directory
// per database, and the snapshot namespace:
//
//	<data_dir>/
//	  catalog.txt
//	  <db>/
//	    <table>.schema
//	    <table>.records
//	    <table>_blobs/
//	  snapshots/
//	    db/<db>_<ts>/
//	    table/<db>_<table>_<ts>/

const (
	// CatalogFileName is the catalog file at the data directory root.
	CatalogFileName = "catalog.txt"

	// SnapshotsDirName is the snapshot namespace at the data directory root.
	SnapshotsDirName = "snapshots"

	// MetaFileName is the metadata record inside each snapshot directory.
	// Restore copies every snapshot file except this one.
	MetaFileName = "snapshot.meta"
)

// SchemaFileName returns the schema file name for a table.
func SchemaFileName(table string) string { return table + ".schema" }

// RecordsFileName returns the data file name for a table.
func RecordsFileName(table string) string { return table + ".records" }

// BlobDirName returns the blob directory name for a table.
func BlobDirName(table string) string { return table + "_blobs" }
