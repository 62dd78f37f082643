package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[package]\nname = \"crane\"\n")
	writeFile(t, root, "Cargo.lock", "[[package]]\nname = \"serde\"\n")
	writeFile(t, root, "src/main.rs", "fn main() {}\n")
	return root
}

func TestFingerprint(t *testing.T) {
	root := testTree(t)

	tree, err := Fingerprint(root, []string{"Cargo.toml", "Cargo.lock"}, nil)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if len(tree.Files) != 2 {
		t.Fatalf("files = %v, want 2 entries", tree.Files)
	}
	if tree.Files[0] != "Cargo.lock" || tree.Files[1] != "Cargo.toml" {
		t.Fatalf("files = %v, want sorted", tree.Files)
	}
	if tree.Digest() == "" {
		t.Fatal("digest is empty")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	root := testTree(t)

	a, err := Fingerprint(root, []string{"Cargo.toml"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint(root, []string{"Cargo.toml"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if a.Digest() != b.Digest() {
		t.Fatalf("digests differ: %s vs %s", a.Digest(), b.Digest())
	}
}

func TestFingerprintIgnoresUnmatchedEdits(t *testing.T) {
	root := testTree(t)
	manifests := []string{"Cargo.toml", "Cargo.lock"}

	before, err := Fingerprint(root, manifests, nil)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "src/main.rs", "fn main() { println!(\"changed\") }\n")

	after, err := Fingerprint(root, manifests, nil)
	if err != nil {
		t.Fatal(err)
	}

	if before.Digest() != after.Digest() {
		t.Fatal("non-manifest edit changed the digest")
	}
}

func TestFingerprintTracksManifestEdits(t *testing.T) {
	root := testTree(t)
	manifests := []string{"Cargo.toml", "Cargo.lock"}

	before, err := Fingerprint(root, manifests, nil)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, root, "Cargo.lock", "[[package]]\nname = \"tokio\"\n")

	after, err := Fingerprint(root, manifests, nil)
	if err != nil {
		t.Fatal(err)
	}

	if before.Digest() == after.Digest() {
		t.Fatal("lockfile edit did not change the digest")
	}
}

func TestFingerprintMatchesByBaseName(t *testing.T) {
	root := testTree(t)
	writeFile(t, root, "crates/worker/Cargo.toml", "[package]\nname = \"worker\"\n")

	tree, err := Fingerprint(root, []string{"Cargo.toml"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, f := range tree.Files {
		if f == "crates/worker/Cargo.toml" {
			found = true
		}
	}
	if !found {
		t.Fatalf("files = %v, want nested workspace manifest included", tree.Files)
	}
}

func TestFingerprintSkipsExcludedDirs(t *testing.T) {
	root := testTree(t)
	writeFile(t, root, "target/debug/Cargo.toml", "stale\n")
	writeFile(t, root, "vendor/Cargo.toml", "vendored\n")

	tree, err := Fingerprint(root, []string{"Cargo.toml"}, []string{"vendor"})
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range tree.Files {
		if f == "target/debug/Cargo.toml" || f == "vendor/Cargo.toml" {
			t.Fatalf("excluded directory leaked into files: %v", tree.Files)
		}
	}
}

func TestFingerprintNoMatches(t *testing.T) {
	_, err := Fingerprint(t.TempDir(), []string{"Cargo.toml"}, nil)
	if !errors.Is(err, ErrFingerprint) {
		t.Fatalf("err = %v, want ErrFingerprint", err)
	}
}
