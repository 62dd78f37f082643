package engine

import (
	"context"

	"github.com/opencontainers/go-digest"

	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Kinds of verification checks an engine can execute.
//
// The formatting-conformance check is not listed here; it is expressed
// through [Engine.Format] in check-only mode, and the vulnerability audit
// runs in-process against the advisory database.
type CheckKind string

const (
	CheckLint CheckKind = "lint"
	CheckTest CheckKind = "test"
)

// A handle to a build product.
//
// Artifacts are opaque to the orchestrator: it moves them, caches them,
// and hands them back to the engine, but never inspects their contents.
type Artifact struct {
	Path   string        // Filesystem path of the artifact.
	Digest digest.Digest // Content digest of the artifact.
}

// Reports whether the artifact handle is unset.
func (a Artifact) IsZero() bool {
	return a.Path == "" && a.Digest == ""
}

// Common build parameters shared by every build and check invocation on a
// platform.
//
// Constructed once per platform and passed by reference to every
// downstream builder and check; all consumers on the same platform observe
// identical values.
type Args struct {
	Source    string               // Source tree the command runs against.
	Files     []string             // Relative paths to stage; empty stages the whole tree.
	Platform  string               // Target platform (e.g., "linux/amd64").
	Toolchain toolchain.Descriptor // Pinned toolchain for the invocation.
	Inputs    []string             // Native build inputs for the platform.
	Extra     string               // Extra argument string appended to build commands.
}

// Identifies the package artifact a full build produces.
type PackageSpec struct {
	Name       string   // Package name, used for artifact naming.
	Output     string   // Directory the artifact is written to.
	Entrypoint []string // Entrypoint set on the exported app image.
}

// The external build engine the orchestrator delegates to.
//
// Implementations compile source into artifacts and execute check commands
// in isolation. All methods are long-running, blocking operations; callers
// run them concurrently and cancel them through the context. Engine errors
// are surfaced unmodified, wrapped only with platform and stage context.
type Engine interface {

	// Verifies that the pinned toolchain is available for the platform.
	ResolveToolchain(ctx context.Context, platform string, tc toolchain.Descriptor) error

	// Compiles third-party dependencies only, without the package's own
	// code, and returns the resulting artifact.
	BuildDepsOnly(ctx context.Context, args Args) (Artifact, error)

	// Builds the full package from source, reusing the dependency artifact
	// so only package-specific code is compiled. The result is written
	// under the package spec's output directory.
	BuildPackage(ctx context.Context, args Args, deps Artifact, spec PackageSpec) (Artifact, error)

	// Runs a verification check of the given kind. The returned string is
	// the check's diagnostic output; a failing check returns an error
	// carrying the engine's diagnostics.
	RunCheck(ctx context.Context, kind CheckKind, args Args, deps Artifact) (string, error)

	// Runs the canonical formatter over files of the given types under
	// root. In check-only mode no file is modified; the returned list
	// names the files that differ (or were rewritten) from canonical form.
	Format(ctx context.Context, root string, types []string, checkOnly bool) ([]string, error)

	// Executes a built app artifact and returns its exit code.
	Run(ctx context.Context, app Artifact, args []string) (int, error)
}
