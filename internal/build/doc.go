// Package build produces the final package artifact for a platform.
//
// A package build consumes the full source tree plus the platform's cached
// dependency artifact, so repeated builds only recompile package-specific
// code. Compilation itself is delegated to the build engine; this package
// owns the output layout and the error context.
package build
