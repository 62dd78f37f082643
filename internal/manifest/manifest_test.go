package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
package:
  name: crane
  version: 1.2.0
  entrypoint: ["/usr/local/bin/crane"]
platforms:
  - linux/amd64
  - linux/arm64
toolchain:
  name: rust
  version: 1.78.0
  components: [clippy, rustfmt]
  native:
    linux: [pkg-config, openssl]
source:
  manifests: [Cargo.toml]
  lockfile: Cargo.lock
shell:
  tools: [cargo-watch]
  database_url: postgres://localhost/dev
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, validYAML)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Package.Name != "crane" {
		t.Fatalf("package.name = %q, want crane", m.Package.Name)
	}
	if m.Toolchain.Version != "1.78.0" {
		t.Fatalf("toolchain.version = %q, want 1.78.0", m.Toolchain.Version)
	}
	if len(m.Platforms) != 2 {
		t.Fatalf("platforms = %v, want 2 entries", m.Platforms)
	}
	if got := m.Toolchain.Native["linux"]; len(got) != 2 {
		t.Fatalf("toolchain.native[linux] = %v, want 2 entries", got)
	}
}

func TestLoadAnchorsRoot(t *testing.T) {
	path := writeManifest(t, validYAML)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Source.Root != filepath.Dir(path) {
		t.Fatalf("source.root = %q, want %q", m.Source.Root, filepath.Dir(path))
	}
}

func TestLoadAppendsLockfile(t *testing.T) {
	path := writeManifest(t, validYAML)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !contains(m.Source.Manifests, "Cargo.lock") {
		t.Fatalf("manifests = %v, want Cargo.lock appended", m.Source.Manifests)
	}

	// Reloading must not duplicate the entry.
	if n := len(m.Source.Manifests); n != 2 {
		t.Fatalf("manifests has %d entries, want 2", n)
	}
}

func TestLoadUnknownField(t *testing.T) {
	path := writeManifest(t, validYAML+"\nbogus: true\n")

	_, err := Load(path)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("err = %v, want ErrLoad", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("err = %v, want ErrLoad", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() Manifest {
		return Manifest{
			Package:   Package{Name: "crane"},
			Toolchain: Toolchain{Name: "rust", Version: "1.78.0"},
			Source:    Source{Manifests: []string{"Cargo.toml"}},
		}
	}

	valid := base()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid manifest rejected: %v", err)
	}

	m := base()
	m.Package.Name = ""
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("missing package.name: err = %v, want ErrInvalid", err)
	}

	m = base()
	m.Toolchain.Version = ""
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("missing toolchain.version: err = %v, want ErrInvalid", err)
	}

	m = base()
	m.Source.Manifests = nil
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("empty source.manifests: err = %v, want ErrInvalid", err)
	}

	m = base()
	m.Source.Manifests = []string{"/abs/Cargo.toml"}
	if err := m.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("absolute manifest path: err = %v, want ErrInvalid", err)
	}
}
