// Package advisory implements the vulnerability audit data model.
//
// A database is a versioned snapshot of known-advisory records, supplied
// externally and reloaded each run. The dependencies in use come from the
// project lockfile. An audit matches one against the other, excluding any
// advisory ID on the configured ignore list, and fails naming every
// remaining match.
package advisory
