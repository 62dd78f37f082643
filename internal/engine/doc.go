// Package engine defines the interface to the external build engine.
//
// The orchestrator decides what to build, in what order, and with what
// caching; the engine does the actual compiling and check execution in
// isolation. Keeping the boundary here lets the matrix evaluation run
// against the containerd-backed runtime in production and against fakes
// in tests without either side knowing about the other.
package engine
