package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/platform"
)

// Compiles third-party dependencies only.
//
// A fresh toolchain session fetches the resolved dependency set without
// touching the package's own code. The toolchain's dependency location is
// captured as a tar artifact the cache can store and later sessions can
// restore.
func (rt *Runtime) BuildDepsOnly(ctx context.Context, args engine.Args) (engine.Artifact, error) {
	s, err := rt.newSession(ctx, "deps", args, engine.Artifact{})
	if err != nil {
		return engine.Artifact{}, err
	}
	defer s.Close(ctx)

	slog.Info("building dependencies", "platform", args.Platform, "toolchain", args.Toolchain.Identity())

	if _, err := s.run(ctx, withExtra(s.set.depsOnly, args.Extra)); err != nil {
		return engine.Artifact{}, err
	}

	return s.capture(ctx, s.set.depsPath)
}

// Builds the full package and exports it as a runnable app image.
//
// The restored dependency artifact lets the build run offline, so only
// package-specific code is compiled. The container's final filesystem is
// committed and exported as an OCI archive with the entrypoint set; when
// no entrypoint is configured, the release binary named after the package
// is used.
func (rt *Runtime) BuildPackage(ctx context.Context, args engine.Args, deps engine.Artifact, spec engine.PackageSpec) (engine.Artifact, error) {
	s, err := rt.newSession(ctx, "build", args, deps)
	if err != nil {
		return engine.Artifact{}, err
	}
	defer s.Close(ctx)

	if _, err := s.run(ctx, withExtra(s.set.buildPkg, args.Extra)); err != nil {
		return engine.Artifact{}, err
	}

	entrypoint := spec.Entrypoint
	if len(entrypoint) == 0 {
		entrypoint = []string{path.Join(s.set.binPath, spec.Name)}
	}

	if err := s.ctr.Stop(ctx); err != nil {
		return engine.Artifact{}, err
	}

	return s.ctr.ExportApp(ctx, spec.Output, spec.Name, entrypoint)
}

// Runs a lint or test check against the staged source and dependencies.
//
// The check's diagnostic output is returned in both the pass and fail
// cases; a failure carries the engine diagnostics in its error as well.
func (rt *Runtime) RunCheck(ctx context.Context, kind engine.CheckKind, args engine.Args, deps engine.Artifact) (string, error) {
	s, err := rt.newSession(ctx, string(kind), args, deps)
	if err != nil {
		return "", err
	}
	defer s.Close(ctx)

	cmd, err := s.set.checkCommand(kind)
	if err != nil {
		return "", err
	}

	return s.run(ctx, cmd)
}

// Runs the canonical formatter over the source tree.
//
// The formatter executes on a staged copy inside a toolchain container on
// the host platform. In check mode nothing is written anywhere; in write
// mode the rewritten files are copied back to the host tree, so running
// twice yields no changes on the second pass. The returned list names the
// files that differ (or were rewritten), filtered by the configured types.
func (rt *Runtime) Format(ctx context.Context, root string, types []string, checkOnly bool) ([]string, error) {
	args := engine.Args{
		Source:    root,
		Platform:  platform.Host(),
		Toolchain: rt.toolchain,
	}

	s, err := rt.newSession(ctx, "fmt", args, engine.Artifact{})
	if err != nil {
		return nil, err
	}
	defer s.Close(ctx)

	files, err := s.changedFiles(ctx, types)
	if err != nil {
		return nil, err
	}

	if checkOnly || len(files) == 0 {
		return files, nil
	}

	if _, err := s.run(ctx, s.set.formatWrite); err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := s.copyFileBack(ctx, root, f); err != nil {
			return nil, err
		}
	}

	slog.Info("formatted files", "count", len(files))

	return files, nil
}

// Lists the staged files that differ from canonical format.
//
// The conformance command exits non-zero when files differ; that exit
// code is the signal, not a failure, as long as the output names files.
func (s *session) changedFiles(ctx context.Context, types []string) ([]string, error) {
	res, err := s.ctr.Exec(ctx, s.set.formatCheck, nil, workDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rel := strings.TrimPrefix(line, workDir+"/")
		if matchesType(rel, types) {
			files = append(files, rel)
		}
	}

	if res.ExitCode != 0 && len(files) == 0 {
		return nil, fmt.Errorf("%w: exit code %d: %s", ErrCommandFailed, res.ExitCode, res.Stderr)
	}

	sort.Strings(files)
	return files, nil
}

// Reports whether a file's extension is in the configured type list.
//
// An empty list matches everything the formatter reports.
func matchesType(file string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	ext := strings.TrimPrefix(path.Ext(file), ".")
	for _, t := range types {
		if ext == t {
			return true
		}
	}
	return false
}
