package depcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/paths"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Builds an artifact on a cache miss.
//
// The function is expected to delegate to the build engine and honor
// context cancellation.
type BuildFunc func(ctx context.Context) (engine.Artifact, error)

// A content-addressed store of dependency-only build artifacts.
//
// Entries are keyed by a digest over the filtered source tree, the
// toolchain identity, and the extra build arguments. Writes go through a
// temp file and rename, so a failed or cancelled build never leaves a
// partial entry behind. Concurrent builds of the same key are collapsed
// into one engine invocation.
type Cache struct {
	dir   string             // Root directory of the store.
	group singleflight.Group // Deduplicates concurrent builds per key.
}

// Creates a cache rooted at dir.
//
// An empty dir uses the user's XDG cache store. The directory is created
// lazily on first store.
func New(dir string) *Cache {
	if dir == "" {
		dir = paths.DepStore()
	}
	return &Cache{dir: dir}
}

// Computes the cache key for a dependency-only build.
//
// The key covers exactly the inputs that change the artifact: the filtered
// source content, the toolchain identity, and the extra argument string.
// The full source tree is deliberately absent; unrelated source edits must
// not invalidate the cache.
func Key(tree digest.Digest, tc toolchain.Descriptor, extra string) digest.Digest {
	return digest.FromString(tree.String() + "\x00" + tc.Identity() + "\x00" + extra)
}

// Returns the artifact for key, building it on a miss.
//
// On a hit the stored artifact is returned unchanged and build is not
// invoked. On a miss, build runs (once, even under concurrent callers for
// the same key), its result is copied into the store, and the stored
// artifact is returned. A build error propagates unmodified and leaves no
// entry for the key.
func (c *Cache) Get(ctx context.Context, key digest.Digest, build BuildFunc) (engine.Artifact, error) {
	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		if art, ok := c.lookup(key); ok {
			slog.Debug("dependency cache hit", "key", key)
			return art, nil
		}

		slog.Debug("dependency cache miss", "key", key)

		art, err := build(ctx)
		if err != nil {
			return engine.Artifact{}, err
		}

		return c.store(key, art)
	})
	if err != nil {
		return engine.Artifact{}, err
	}

	if shared {
		slog.Debug("dependency build deduplicated", "key", key)
	}

	return v.(engine.Artifact), nil
}

// Looks up a stored artifact without building.
func (c *Cache) lookup(key digest.Digest) (engine.Artifact, bool) {
	path := c.entryPath(key)
	if _, err := os.Stat(path); err != nil {
		return engine.Artifact{}, false
	}

	dgst, err := fileDigest(path)
	if err != nil {
		return engine.Artifact{}, false
	}

	return engine.Artifact{Path: path, Digest: dgst}, true
}

// Copies an artifact into the store under key.
//
// The data is written to a temp file in the store directory and renamed
// into place, so readers never observe a partial entry and an interrupted
// copy leaves nothing at the key's path.
func (c *Cache) store(key digest.Digest, art engine.Artifact) (engine.Artifact, error) {
	final := c.entryPath(key)

	if err := os.MkdirAll(filepath.Dir(final), paths.DefaultDirMode); err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	src, err := os.Open(art.Path)
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(final), ".tmp-*")
	if err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer os.Remove(tmp.Name())

	digester := digest.SHA256.Digester()
	if _, err := io.Copy(io.MultiWriter(tmp, digester.Hash()), src); err != nil {
		tmp.Close()
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		return engine.Artifact{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	slog.Debug("dependency artifact stored", "key", key, "path", final)

	return engine.Artifact{Path: final, Digest: digester.Digest()}, nil
}

// Returns the store path for a key.
func (c *Cache) entryPath(key digest.Digest) string {
	return filepath.Join(c.dir, key.Algorithm().String(), key.Encoded()+".tar")
}

// Computes the content digest of a stored entry.
func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.FromReader(f)
}
