// Package source derives the filtered, build-relevant view of a project.
//
// Dependency-only builds must be keyed by the files that determine
// dependency resolution and nothing else, so that unrelated source edits
// never invalidate the cache. The fingerprinter walks the tree, keeps only
// the configured dependency manifests and lockfiles, and reduces them to a
// single canonical digest over sorted (path, content) pairs.
package source
