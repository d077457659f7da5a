// Command archivist catalogs a camera card (the source root) and an archive
// directory (the target root) in one SQLite database, then copies every source
// file the archive does not hold yet into a dated folder below the target.
//
//	archivist [flags] [source_dir]
//
// Without a source directory only the target catalog is refreshed. Sub-commands
// inspect the catalog (catalog stats, catalog pending), manage the
// configuration file (config init, config validate) and check the environment
// (doctor).
package main
