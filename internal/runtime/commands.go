package runtime

import (
	"fmt"
	"strings"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Command derivations for one toolchain family.
//
// Every command runs in the session workdir with the dependency artifact
// already restored, so builds and checks can run offline against the
// pinned dependency set.
type commandSet struct {
	depsOnly    string // Resolves and compiles dependencies only.
	buildPkg    string // Builds the release package from full source.
	lint        string // Static analysis, failing on error-class diagnostics.
	test        string // Runs the test suite.
	formatWrite string // Rewrites files into canonical style in place.
	formatCheck string // Lists files differing from canonical style, modifying nothing.
	components  string // Installs optional toolchain components; %s is the space-joined list.
	depsPath    string // Container path of the dependency artifact.
	binPath     string // Container path of the built release binaries.
}

// Known toolchain families.
//
// The dependency artifact for the rust family is the fetched registry
// (sources and index) under CARGO_HOME; restoring it lets every later
// command run with --offline, which is also what pins builds to the
// resolved dependency set.
var commandSets = map[string]commandSet{
	"rust": {
		depsOnly:    "cargo fetch --locked",
		buildPkg:    "cargo build --release --locked --offline",
		lint:        "cargo clippy --release --locked --offline --all-targets -- --deny warnings",
		test:        "cargo test --release --locked --offline",
		formatWrite: "cargo fmt",
		formatCheck: "cargo fmt -- --check -l",
		components:  "rustup component add %s",
		depsPath:    "/usr/local/cargo/registry",
		binPath:     "/work/target/release",
	},
}

// Returns the command set for a toolchain.
func commandsFor(tc toolchain.Descriptor) (commandSet, error) {
	set, ok := commandSets[tc.Name]
	if !ok {
		return commandSet{}, fmt.Errorf("%w: %q", ErrUnsupportedToolchain, tc.Name)
	}
	return set, nil
}

// Returns the command installing the toolchain's optional components, or
// empty when there are none to install.
func (s commandSet) componentsCommand(tc toolchain.Descriptor) string {
	if len(tc.Components) == 0 {
		return ""
	}
	return fmt.Sprintf(s.components, strings.Join(tc.Components, " "))
}

// Returns the check command for a kind.
func (s commandSet) checkCommand(kind engine.CheckKind) (string, error) {
	switch kind {
	case engine.CheckLint:
		return s.lint, nil
	case engine.CheckTest:
		return s.test, nil
	default:
		return "", fmt.Errorf("%w: check kind %q", ErrRuntime, kind)
	}
}

// Appends the extra argument string to a command.
func withExtra(command, extra string) string {
	if extra == "" {
		return command
	}
	return command + " " + extra
}
