// Package depcache memoizes dependency-only build artifacts.
//
// A dependency build compiles a project's third-party dependencies without
// its own code. The result is reused by the package build and by every
// check on the same platform, so it is worth caching aggressively: entries
// are keyed by a digest of (filtered source, toolchain identity, build
// arguments) and stored content-addressed on disk. At most one build per
// distinct key runs per process; concurrent requests for the same key are
// collapsed with singleflight. Failures and cancellations leave no entry,
// so the next invocation retries cleanly.
package depcache
