package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default manifest filename, resolved relative to the project root.
const DefaultFilename = "kiln.yaml"

// Describes the package being built.
type Package struct {
	Name       string   `yaml:"name"`       // Package name, used for artifact and overlay naming.
	Version    string   `yaml:"version"`    // Package version string.
	Entrypoint []string `yaml:"entrypoint"` // Entrypoint set on the exported app image.
}

// Pins the toolchain used for every build and check.
type Toolchain struct {
	Name       string              `yaml:"name"`       // Toolchain name (e.g., "rust").
	Version    string              `yaml:"version"`    // Pinned version (e.g., "1.78.0").
	Components []string            `yaml:"components"` // Optional components (e.g., "src", "analyzer").
	Native     map[string][]string `yaml:"native"`     // Native build inputs keyed by OS (e.g., "linux": ["pkg-config"]).
}

// Selects the build-relevant subset of the source tree.
type Source struct {
	Root      string   `yaml:"root"`      // Project root. Defaults to the manifest's directory.
	Manifests []string `yaml:"manifests"` // Dependency manifest and lockfile paths, relative to root.
	Lockfile  string   `yaml:"lockfile"`  // Resolved-dependency lockfile, relative to root.
	Exclude   []string `yaml:"exclude"`   // Additional directory names excluded from fingerprinting.
}

// Shared build parameters passed to every build and check invocation.
type Build struct {
	Args string `yaml:"args"` // Extra argument string appended to build commands.
}

// Configures the vulnerability audit check.
type Audit struct {
	Database string   `yaml:"database"` // Path to the advisory database snapshot.
	Ignore   []string `yaml:"ignore"`   // Advisory IDs excluded from failure consideration.
}

// Configures the registered verification checks.
type Checks struct {
	Audit Audit `yaml:"audit"`
}

// Describes the interactive development environment.
type Shell struct {
	Tools       []string          `yaml:"tools"`        // Auxiliary command-line tools.
	Env         map[string]string `yaml:"env"`          // Additional environment variables.
	DatabaseURL string            `yaml:"database_url"` // Development data-store connection string.
}

// Configures the canonical source formatter.
type Formatter struct {
	Command string   `yaml:"command"` // Formatter executable. Defaults per toolchain.
	Types   []string `yaml:"types"`   // File extensions the formatter rewrites.
}

// The declarative build-and-release description for a single package.
//
// A manifest pins everything the matrix evaluation needs: the package
// identity, the target platforms, the toolchain, the source filter, the
// check configuration, the dev shell, and the formatter. It carries no
// build logic of its own.
type Manifest struct {
	Package   Package   `yaml:"package"`
	Platforms []string  `yaml:"platforms"` // Target platforms. Empty uses the default set.
	Toolchain Toolchain `yaml:"toolchain"`
	Source    Source    `yaml:"source"`
	Build     Build     `yaml:"build"`
	Checks    Checks    `yaml:"checks"`
	Shell     Shell     `yaml:"shell"`
	Formatter Formatter `yaml:"formatter"`
}

// Reads and validates a manifest file.
//
// Relative source paths are anchored at the manifest's directory. Unknown
// fields are rejected so that typos surface as load errors rather than
// silently ignored configuration.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	m.applyDefaults(filepath.Dir(path))

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &m, nil
}

// Fills in defaulted fields after decoding.
func (m *Manifest) applyDefaults(dir string) {
	if m.Source.Root == "" {
		m.Source.Root = dir
	} else if !filepath.IsAbs(m.Source.Root) {
		m.Source.Root = filepath.Join(dir, m.Source.Root)
	}

	if m.Source.Lockfile != "" && !contains(m.Source.Manifests, m.Source.Lockfile) {
		m.Source.Manifests = append(m.Source.Manifests, m.Source.Lockfile)
	}
}

// Checks the manifest for configuration errors.
//
// A manifest must identify the package, pin a toolchain version, and list
// at least one dependency manifest; without those the cache key and the
// build commands are undefined.
func (m *Manifest) Validate() error {
	if m.Package.Name == "" {
		return fmt.Errorf("%w: package.name is required", ErrInvalid)
	}
	if m.Toolchain.Name == "" || m.Toolchain.Version == "" {
		return fmt.Errorf("%w: toolchain.name and toolchain.version are required", ErrInvalid)
	}
	if len(m.Source.Manifests) == 0 {
		return fmt.Errorf("%w: source.manifests must list at least one dependency manifest", ErrInvalid)
	}
	for _, p := range m.Source.Manifests {
		if filepath.IsAbs(p) {
			return fmt.Errorf("%w: source manifest %q must be relative to the root", ErrInvalid, p)
		}
	}
	return nil
}

// Reports whether list contains s.
func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
