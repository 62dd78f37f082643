package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cruciblehq/kiln/internal/build"
	"github.com/cruciblehq/kiln/internal/check"
	"github.com/cruciblehq/kiln/internal/depcache"
	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/manifest"
	"github.com/cruciblehq/kiln/internal/platform"
	"github.com/cruciblehq/kiln/internal/shell"
	"github.com/cruciblehq/kiln/internal/source"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Controls a matrix evaluation.
type Options struct {
	Platforms []string // Target platforms. Empty uses the manifest's set, then the defaults.
	Output    string   // Root directory for exported artifacts.
	CacheDir  string   // Dependency store override. Empty uses the user cache.
	Strict    bool     // Abort the whole run on any platform failure.
	Jobs      int      // Max concurrent platform pipelines. Zero means unbounded.
}

// The exported result set for one platform.
type Record struct {
	Platform string            // Platform the record was built for.
	Package  engine.Artifact   // The built package artifact.
	App      engine.Artifact   // The runnable app (package artifact with entrypoint).
	Checks   []check.Result    // Results of every registered check.
	DevShell shell.Environment // Interactive development environment.
}

// Reports whether every check in the record passed.
func (r Record) ChecksPassed() bool {
	for _, res := range r.Checks {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// A platform-independent binding exposing the built app under a fixed
// name, consumable by downstream systems as a dependency.
type Overlay struct {
	Name string            `json:"name"` // Binding name, the package name.
	App  map[string]string `json:"app"`  // Platform to app artifact path.
}

// The final published result set of a matrix evaluation.
//
// Read-only after assembly. Every enumerated platform appears in either
// Platforms or Excluded; the aggregator verifies this before returning.
type Outputs struct {
	Platforms map[string]Record // Successful platform records.
	Excluded  map[string]error  // Platforms excluded by a pipeline failure (soft mode).
	Overlay   Overlay           // The app overlay over all successful platforms.
}

// Reduces the outputs to a single pass/fail error.
//
// Excluded platforms and failed checks both count as failures; the
// evaluation as a whole passes only when every platform built and every
// check passed.
func (o *Outputs) Err() error {
	for p, err := range o.Excluded {
		return fmt.Errorf("platform %s excluded: %w", p, err)
	}
	for _, rec := range o.Platforms {
		if err := check.Err(rec.Checks); err != nil {
			return err
		}
	}
	return nil
}

// Evaluates the build matrix.
//
// The platform set is enumerated once, the source tree is fingerprinted
// once, and each platform's pipeline then runs independently: toolchain
// resolution, the cached dependency build, and finally the package build
// and all checks in parallel. In soft mode (the default) a failed
// platform is excluded from the outputs with its error recorded; in
// strict mode the first platform failure aborts the whole evaluation.
//
// The completeness invariant always holds on success: every enumerated
// platform is accounted for in the returned outputs.
func Evaluate(ctx context.Context, eng engine.Engine, m *manifest.Manifest, opts Options) (*Outputs, error) {
	list := opts.Platforms
	if len(list) == 0 {
		list = m.Platforms
	}
	enumerated, err := platform.NormalizeAll(list)
	if err != nil {
		return nil, err
	}

	ev, err := setup(eng, m, opts, len(enumerated) > 1)
	if err != nil {
		return nil, err
	}

	slog.Info("evaluating build matrix",
		"package", m.Package.Name,
		"platforms", enumerated,
		"fingerprint", ev.tree.Digest(),
		"strict", opts.Strict,
	)

	records := make([]*Record, len(enumerated))
	failures := make([]error, len(enumerated))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}

	for i, p := range enumerated {
		g.Go(func() error {
			rec, err := ev.evaluatePlatform(gctx, p)
			records[i], failures[i] = rec, err

			if err != nil && opts.Strict {
				return fmt.Errorf("platform %s: %w", p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	out := &Outputs{
		Platforms: make(map[string]Record, len(enumerated)),
		Excluded:  make(map[string]error),
		Overlay:   Overlay{Name: m.Package.Name, App: make(map[string]string)},
	}

	for i, p := range enumerated {
		switch {
		case failures[i] != nil:
			slog.Error("platform excluded from outputs", "platform", p, "error", failures[i])
			out.Excluded[p] = failures[i]
		case records[i] != nil:
			out.Platforms[p] = *records[i]
			out.Overlay.App[p] = records[i].App.Path
		}
	}

	if len(out.Platforms)+len(out.Excluded) != len(enumerated) {
		return nil, fmt.Errorf("%w: %d of %d platforms unaccounted for",
			ErrIncomplete, len(enumerated)-len(out.Platforms)-len(out.Excluded), len(enumerated))
	}
	if opts.Strict && len(out.Excluded) > 0 {
		return nil, fmt.Errorf("%w: %d platform(s) missing from outputs", ErrIncomplete, len(out.Excluded))
	}

	return out, nil
}

// Holds shared state for evaluating all platforms of one run.
//
// Everything here is read-only during evaluation except the dependency
// cache, whose writes are keyed and idempotent; platform pipelines share
// no other mutable state.
type evaluator struct {
	eng      engine.Engine
	manifest *manifest.Manifest
	tree     *source.FilteredTree
	resolver *toolchain.Resolver
	cache    *depcache.Cache
	opts     Options
	multi    bool

	fmtOnce sync.Once // Guards the shared conformance run.
	fmtOut  string
	fmtErr  error
}

// Runs the full pipeline for a single platform.
//
// The dependency artifact is built (or fetched from cache) first; the
// package build and the check set then run concurrently against it.
func (ev *evaluator) evaluatePlatform(ctx context.Context, p string) (*Record, error) {
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

	rec := &Record{
		Platform: p,
		DevShell: shell.New(p, tc, ev.manifest.Shell),
	}

	// Package build and checks are independent once the dependency
	// artifact exists; run them side by side and let checks finish even
	// when the build fails.
	var buildErr error
	done := make(chan struct{})
	go func() {
		defer close(done)

		res, err := build.Run(ctx, ev.eng, build.Options{
			Name:       ev.manifest.Package.Name,
			Output:     ev.platformOutput(p),
			Entrypoint: ev.manifest.Package.Entrypoint,
			Args:       args,
			Deps:       deps,
		})
		if err != nil {
			buildErr = err
			return
		}
		rec.Package = res.Artifact
		rec.App = res.Artifact
	}()

	rec.Checks = reg.RunAll(ctx, p)
	<-done

	if buildErr != nil {
		return nil, buildErr
	}

	return rec, nil
}

// Returns the engine arguments shared by every stage of a platform's
// pipeline.
func (ev *evaluator) commonArgs(p string, tc toolchain.Descriptor) engine.Args {
	return engine.Args{
		Source:    ev.manifest.Source.Root,
		Platform:  p,
		Toolchain: tc,
		Inputs:    tc.NativeInputs,
		Extra:     ev.manifest.Build.Args,
	}
}

// Builds or fetches the dependency artifact for the given arguments.
//
// The engine only sees the filtered file set: a dependency-only build is
// determined by exactly the files behind the cache key, so nothing else
// is staged.
func (ev *evaluator) buildDeps(ctx context.Context, args engine.Args) (engine.Artifact, error) {
	key := depcache.Key(ev.tree.Digest(), args.Toolchain, args.Extra)
	deps, err := ev.cache.Get(ctx, key, func(ctx context.Context) (engine.Artifact, error) {
		args.Files = ev.tree.Files
		return ev.eng.BuildDepsOnly(ctx, args)
	})
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("dependency build: %w", err)
	}
	return deps, nil
}

// Assembles the fixed check set for one platform.
//
// Lint and test are derived engine commands over (args, deps); the format
// check wraps the formatter in check-only mode; the audit runs in-process
// against the advisory database. A name collision here is a configuration
// error.
func (ev *evaluator) registry(args engine.Args, deps engine.Artifact) (*check.Registry, error) {
	reg := check.NewRegistry()

	checks := []struct {
		name string
		fn   check.Func
	}{
		{check.Lint, ev.engineCheck(engine.CheckLint, args, deps)},
		{check.Test, ev.engineCheck(engine.CheckTest, args, deps)},
		{check.Format, ev.formatCheck()},
		{check.Audit, ev.auditCheck()},
	}

	for _, c := range checks {
		if err := reg.Register(c.name, c.fn); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Returns a check that delegates to the engine.
func (ev *evaluator) engineCheck(kind engine.CheckKind, args engine.Args, deps engine.Artifact) check.Func {
	return func(ctx context.Context) (string, error) {
		return ev.eng.RunCheck(ctx, kind, args, deps)
	}
}

// Returns the formatting-conformance check.
//
// The conformance check is platform-independent, so one evaluation runs
// it exactly once and shares the result into every platform's check set.
// Running it per platform would also race: each run would want its own
// host-platform formatter session over the same tree.
func (ev *evaluator) formatCheck() check.Func {
	return func(ctx context.Context) (string, error) {
		ev.fmtOnce.Do(func() {
			ev.fmtOut, ev.fmtErr = formatConformance(ctx, ev.eng, ev.manifest)
		})
		return ev.fmtOut, ev.fmtErr
	}
}

// Returns the vulnerability audit check.
func (ev *evaluator) auditCheck() check.Func {
	return func(ctx context.Context) (string, error) {
		return auditDependencies(ev.manifest)
	}
}

// Returns the output directory for a specific platform.
//
// When building for a single platform, the output directory is left as-is.
// Multi-platform runs write each platform to its own slug subdirectory
// (e.g., {output}/linux-amd64).
func (ev *evaluator) platformOutput(p string) string {
	if !ev.multi {
		return ev.opts.Output
	}
	return filepath.Join(ev.opts.Output, platform.Slug(p))
}
