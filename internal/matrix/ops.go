package matrix

import (
	"context"
	"fmt"

	"github.com/cruciblehq/kiln/internal/build"
	"github.com/cruciblehq/kiln/internal/check"
	"github.com/cruciblehq/kiln/internal/depcache"
	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/manifest"
	"github.com/cruciblehq/kiln/internal/platform"
	"github.com/cruciblehq/kiln/internal/source"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Prepares the shared per-run state for evaluating platforms.
func setup(eng engine.Engine, m *manifest.Manifest, opts Options, multi bool) (*evaluator, error) {
	tree, err := source.Fingerprint(m.Source.Root, m.Source.Manifests, m.Source.Exclude)
	if err != nil {
		return nil, err
	}

	return &evaluator{
		eng:      eng,
		manifest: m,
		tree:     tree,
		resolver: toolchain.NewResolver(m.Toolchain, eng),
		cache:    depcache.New(opts.CacheDir),
		opts:     opts,
		multi:    multi,
	}, nil
}

// Builds the package for a single platform without running checks.
//
// This is the default build action: resolve the toolchain, reuse or build
// the dependency artifact, and produce the package artifact in the output
// directory.
func Build(ctx context.Context, eng engine.Engine, m *manifest.Manifest, p string, opts Options) (engine.Artifact, error) {
	p, err := platform.Normalize(p)
	if err != nil {
		return engine.Artifact{}, err
	}

	ev, err := setup(eng, m, opts, false)
	if err != nil {
		return engine.Artifact{}, err
	}

	tc, err := ev.resolver.Resolve(ctx, p)
	if err != nil {
		return engine.Artifact{}, err
	}

	args := ev.commonArgs(p, tc)

	deps, err := ev.buildDeps(ctx, args)
	if err != nil {
		return engine.Artifact{}, err
	}

	res, err := build.Run(ctx, eng, build.Options{
		Name:       m.Package.Name,
		Output:     opts.Output,
		Entrypoint: m.Package.Entrypoint,
		Args:       args,
		Deps:       deps,
	})
	if err != nil {
		return engine.Artifact{}, err
	}

	return res.Artifact, nil
}

// Runs checks for a single platform.
//
// With names empty, the full registered set runs; otherwise only the
// named checks run, in the given order. An unknown name is a usage error
// reported before anything executes.
func RunChecks(ctx context.Context, eng engine.Engine, m *manifest.Manifest, p string, opts Options, names []string) ([]check.Result, error) {
	p, err := platform.Normalize(p)
	if err != nil {
		return nil, err
	}

	ev, err := setup(eng, m, opts, false)
	if err != nil {
		return nil, err
	}

	tc, err := ev.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	args := ev.commonArgs(p, tc)

	deps, err := ev.buildDeps(ctx, args)
	if err != nil {
		return nil, err
	}

	reg, err := ev.registry(args, deps)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return reg.RunAll(ctx, p), nil
	}

	sub := check.NewRegistry()
	for _, name := range names {
		fn, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (have %v)", check.ErrUnknown, name, reg.Names())
		}
		if err := sub.Register(name, fn); err != nil {
			return nil, err
		}
	}

	return sub.RunAll(ctx, p), nil
}
