package advisory

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

// A resolved third-party dependency in use by the project.
type Package struct {
	Name    string // Package name as recorded in the lockfile.
	Version string // Resolved version.
}

// One known-vulnerability record from the advisory database.
type Advisory struct {
	ID       string   `json:"id"`                 // Advisory identifier (e.g., "RUSTSEC-2023-0001").
	Package  string   `json:"package"`            // Affected package name.
	Title    string   `json:"title,omitempty"`    // Short human-readable summary.
	Severity string   `json:"severity,omitempty"` // Reported severity, informational only.
	Affected []string `json:"affected,omitempty"` // Affected versions. Empty means all versions.
}

// Reports whether the advisory applies to the given resolved version.
func (a Advisory) Matches(version string) bool {
	if len(a.Affected) == 0 {
		return true
	}
	return slices.Contains(a.Affected, version)
}

// A versioned snapshot of known vulnerability records, indexed by package.
//
// The snapshot is external input refreshed each run; the database never
// mutates after loading.
type Database struct {
	Version    string               // Snapshot version string, informational.
	advisories map[string][]Advisory // Records indexed by package name.
}

// On-disk JSON layout of a database snapshot.
type snapshot struct {
	Version    string     `json:"version,omitempty"`
	Advisories []Advisory `json:"advisories"`
}

// Loads an advisory database snapshot from a JSON file.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDatabase, path, err)
	}

	return New(snap.Version, snap.Advisories), nil
}

// Creates a database from in-memory records.
func New(version string, advisories []Advisory) *Database {
	byPkg := make(map[string][]Advisory)
	for _, a := range advisories {
		byPkg[a.Package] = append(byPkg[a.Package], a)
	}
	return &Database{Version: version, advisories: byPkg}
}

// One advisory matched against a dependency in use.
type Finding struct {
	Advisory Advisory
	Package  Package
}

// Returns every advisory matching a dependency in use.
//
// Findings are ordered by the input package order, then by advisory order
// within a package, so audit output is stable across runs.
func (db *Database) Match(pkgs []Package) []Finding {
	var findings []Finding
	for _, p := range pkgs {
		for _, a := range db.advisories[p.Name] {
			if a.Matches(p.Version) {
				findings = append(findings, Finding{Advisory: a, Package: p})
			}
		}
	}
	return findings
}

// Audits the given dependencies against the database.
//
// Findings whose advisory ID appears in ignore are excluded from failure
// consideration. Returns [ErrVulnerable] naming every remaining advisory
// when any non-ignored finding exists.
func (db *Database) Audit(pkgs []Package, ignore []string) error {
	var failed []string
	for _, f := range db.Match(pkgs) {
		if slices.Contains(ignore, f.Advisory.ID) {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s (%s %s)", f.Advisory.ID, f.Package.Name, f.Package.Version))
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrVulnerable, strings.Join(failed, ", "))
	}
	return nil
}
