package source

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"
)

// Directory names never included in a filtered tree.
//
// VCS metadata and build outputs change without affecting dependency
// resolution, so they must not influence the cache key.
var defaultExcludes = []string{".git", ".hg", ".svn", "target", "dist", "node_modules"}

// The build-relevant subset of a source tree.
//
// Contains only the files that determine dependency resolution: dependency
// manifests and lockfiles, matched during a deterministic walk. The tree is
// immutable once created; its digest is the cache key input for dependency
// builds.
type FilteredTree struct {
	Root   string        // Absolute root of the source tree.
	Files  []string      // Sorted relative paths of the matched files.
	digest digest.Digest // Canonical content digest, computed at creation.
}

// Derives the filtered view of the source tree.
//
// The tree under root is walked; a file is kept when its path relative to
// root, or its base name, matches one of the manifest entries. Matching by
// base name picks up nested workspace manifests without listing each one.
// Excluded directories (VCS metadata, build outputs, and any extra names)
// are skipped entirely. Identical manifest content always yields an
// identical digest regardless of walk timing or file order.
func Fingerprint(root string, manifests, exclude []string) (*FilteredTree, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFingerprint, err)
	}

	match := make(map[string]struct{}, len(manifests))
	for _, m := range manifests {
		match[m] = struct{}{}
	}

	skip := make(map[string]struct{}, len(defaultExcludes)+len(exclude))
	for _, d := range append(append([]string{}, defaultExcludes...), exclude...) {
		skip[d] = struct{}{}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if _, excluded := skip[d.Name()]; excluded && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if _, ok := match[rel]; ok {
			files = append(files, rel)
			return nil
		}
		if _, ok := match[filepath.Base(path)]; ok {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFingerprint, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no dependency manifests found under %s", ErrFingerprint, root)
	}

	sort.Strings(files)

	dgst, err := hashFiles(root, files)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFingerprint, err)
	}

	return &FilteredTree{Root: root, Files: files, digest: dgst}, nil
}

// Returns the canonical content digest of the filtered tree.
func (t *FilteredTree) Digest() digest.Digest {
	return t.digest
}

// Hashes the given files into one canonical digest.
//
// Each entry contributes its relative path and content, both terminated by
// a NUL byte so that path and content boundaries cannot be confused. Files
// must already be sorted.
func hashFiles(root string, files []string) (digest.Digest, error) {
	digester := digest.SHA256.Digester()
	h := digester.Hash()

	for _, rel := range files {
		h.Write([]byte(rel))
		h.Write([]byte{0})

		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", err
		}
		f.Close()

		h.Write([]byte{0})
	}

	return digester.Digest(), nil
}
