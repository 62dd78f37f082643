package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/opencontainers/go-digest"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/paths"
	"github.com/cruciblehq/kiln/internal/platform"
)

// Container workdir where the source tree is staged.
const workDir = "/work"

// Sequence counter for session container IDs.
var sessionSeq uint64

// Returns a unique container ID for one session.
//
// The stage and platform slug keep IDs readable; the sequence number keeps
// concurrent sessions from colliding, since removing a stale container by
// ID would otherwise tear down a live one mid-exec.
func sessionID(stage, p string) string {
	return fmt.Sprintf("kiln-%s-%s-%d", stage, platform.Slug(p), atomic.AddUint64(&sessionSeq, 1))
}

// A prepared build container for one engine invocation.
//
// Creating a session stages everything a command needs: the toolchain
// container is started, optional components are installed, the source tree
// is copied in, and the dependency artifact (when given) is restored to
// its toolchain location. Sessions are single-use and must be closed.
type session struct {
	ctr *Container
	set commandSet
}

// Prepares a session for a build or check stage.
func (rt *Runtime) newSession(ctx context.Context, stage string, args engine.Args, deps engine.Artifact) (*session, error) {
	set, err := commandsFor(args.Toolchain)
	if err != nil {
		return nil, err
	}

	image, err := rt.ensureImage(ctx, toolchainRef(args.Toolchain), args.Platform)
	if err != nil {
		return nil, err
	}

	ctr, err := rt.startContainer(ctx, image, sessionID(stage, args.Platform), args.Platform)
	if err != nil {
		return nil, err
	}

	s := &session{ctr: ctr, set: set}

	if err := s.prepare(ctx, args, deps); err != nil {
		s.Close(ctx)
		return nil, err
	}

	return s, nil
}

// Installs components, stages the source, and restores the dependency
// artifact.
//
// When the arguments carry a filtered file set, only those files are
// staged; dependency-only builds need nothing beyond the manifests and
// lockfiles that determined their cache key.
func (s *session) prepare(ctx context.Context, args engine.Args, deps engine.Artifact) error {
	if cmd := s.set.componentsCommand(args.Toolchain); cmd != "" {
		if _, err := s.run(ctx, cmd); err != nil {
			return err
		}
	}

	if len(args.Files) > 0 {
		if err := s.ctr.CopyFiles(ctx, args.Source, workDir, args.Files); err != nil {
			return err
		}
	} else if err := s.ctr.CopyTree(ctx, args.Source, workDir); err != nil {
		return err
	}

	if !deps.IsZero() {
		if err := s.restoreDeps(ctx, deps); err != nil {
			return err
		}
	}

	return nil
}

// Restores a cached dependency artifact to its toolchain location.
func (s *session) restoreDeps(ctx context.Context, deps engine.Artifact) error {
	f, err := os.Open(deps.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer f.Close()

	destDir := filepath.Dir(s.set.depsPath)
	if err := s.ctr.MkdirAll(ctx, destDir); err != nil {
		return err
	}

	return s.ctr.CopyTo(ctx, f, destDir)
}

// Runs a shell command in the session workdir.
//
// Returns the combined output. A non-zero exit code fails with
// [ErrCommandFailed] carrying the process diagnostics; the output is
// still returned so callers can surface it.
func (s *session) run(ctx context.Context, command string) (string, error) {
	res, err := s.ctr.Exec(ctx, command, nil, workDir)
	if err != nil {
		return "", err
	}

	output := res.Stdout
	if res.Stderr != "" {
		if output != "" {
			output += "\n"
		}
		output += res.Stderr
	}

	if res.ExitCode != 0 {
		return output, fmt.Errorf("%w: exit code %d: %s", ErrCommandFailed, res.ExitCode, res.Stderr)
	}

	return output, nil
}

// Captures a container path as a tar artifact in the runtime scratch
// directory.
func (s *session) capture(ctx context.Context, containerPath string) (engine.Artifact, error) {
	scratch := paths.Runtime()
	if err := os.MkdirAll(scratch, paths.DefaultDirMode); err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	tmp, err := os.CreateTemp(scratch, "artifact-*.tar")
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	digester := digest.SHA256.Digester()
	err = s.ctr.CopyFrom(ctx, io.MultiWriter(tmp, digester.Hash()), containerPath)

	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return engine.Artifact{Path: tmp.Name(), Digest: digester.Digest()}, nil
}

// Releases the session's container and its resources.
func (s *session) Close(ctx context.Context) {
	s.ctr.Destroy(ctx)
}
