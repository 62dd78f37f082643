// Package manifest defines the declarative kiln.yaml description.
//
// A kiln project contains no build scripts. Everything the matrix
// evaluation needs is pinned in one manifest: the package identity, the
// target platforms, the toolchain version and components, the source
// filter used for dependency cache keys, the check configuration, the
// dev shell contents, and the formatter. Loading rejects unknown fields
// and validates the result, so a malformed manifest fails before any
// build work starts.
package manifest
