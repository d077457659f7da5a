// Package preflight checks that the configured roots, the catalog location
// and the external binaries are usable before a run touches anything.
//
// The root command runs RequiredChecks before every archival run and refuses
// to start when one fails. "archivist doctor" prints every check, including
// the optional ones.
package preflight
