package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/paths"
)

// Controls a package build for one platform.
type Options struct {
	Name       string          // Package name, used for logging and artifact naming.
	Output     string          // Directory the package artifact is written to.
	Entrypoint []string        // Entrypoint set on the exported app image.
	Args       engine.Args     // Common build arguments, with Source set to the full tree.
	Deps       engine.Artifact // Cached dependency artifact for the platform.
}

// Returned after a successful package build.
type Result struct {
	Artifact engine.Artifact // The built package artifact.
}

// Builds the final package artifact for one platform.
//
// The full source tree is compiled with the cached dependency artifact as
// an accelerant, so only package-specific code needs building. The
// dependency artifact must exist before this runs; a compilation failure
// is reported with platform context and never touches the dependency
// cache.
func Run(ctx context.Context, eng engine.Engine, opts Options) (*Result, error) {
	if opts.Deps.IsZero() {
		return nil, fmt.Errorf("%w: %s: dependency artifact missing", ErrBuild, opts.Args.Platform)
	}

	slog.Info("building package",
		"package", opts.Name,
		"platform", opts.Args.Platform,
		"output", opts.Output,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	art, err := eng.BuildPackage(ctx, opts.Args, opts.Deps, engine.PackageSpec{
		Name:       opts.Name,
		Output:     opts.Output,
		Entrypoint: opts.Entrypoint,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: platform %s: %w", ErrBuild, opts.Args.Platform, err)
	}

	slog.Info("package built",
		"package", opts.Name,
		"platform", opts.Args.Platform,
		"digest", art.Digest,
	)

	return &Result{Artifact: art}, nil
}
