package runtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

func TestCommandsFor(t *testing.T) {
	set, err := commandsFor(toolchain.Descriptor{Name: "rust", Version: "1.78.0"})
	if err != nil {
		t.Fatalf("commandsFor failed: %v", err)
	}
	if set.depsOnly == "" || set.buildPkg == "" || set.depsPath == "" {
		t.Fatalf("incomplete command set: %+v", set)
	}

	_, err = commandsFor(toolchain.Descriptor{Name: "cobol"})
	if !errors.Is(err, ErrUnsupportedToolchain) {
		t.Fatalf("err = %v, want ErrUnsupportedToolchain", err)
	}
}

func TestRustCommandsOffline(t *testing.T) {
	set := commandSets["rust"]

	// Only the dependency fetch may touch the network; everything after it
	// runs against the restored registry.
	if strings.Contains(set.depsOnly, "--offline") {
		t.Fatalf("depsOnly = %q, must not be offline", set.depsOnly)
	}
	for _, cmd := range []string{set.buildPkg, set.lint, set.test} {
		if !strings.Contains(cmd, "--offline") {
			t.Fatalf("%q missing --offline", cmd)
		}
		if !strings.Contains(cmd, "--locked") {
			t.Fatalf("%q missing --locked", cmd)
		}
	}
}

func TestCheckCommand(t *testing.T) {
	set := commandSets["rust"]

	lint, err := set.checkCommand(engine.CheckLint)
	if err != nil || lint != set.lint {
		t.Fatalf("checkCommand(lint) = %q, %v", lint, err)
	}

	test, err := set.checkCommand(engine.CheckTest)
	if err != nil || test != set.test {
		t.Fatalf("checkCommand(test) = %q, %v", test, err)
	}

	if _, err := set.checkCommand(engine.CheckKind("bogus")); err == nil {
		t.Fatal("unknown check kind accepted")
	}
}

func TestComponentsCommand(t *testing.T) {
	set := commandSets["rust"]

	tc := toolchain.Descriptor{Name: "rust", Components: []string{"clippy", "rustfmt"}}
	got := set.componentsCommand(tc)
	if got != "rustup component add clippy rustfmt" {
		t.Fatalf("componentsCommand = %q", got)
	}

	if set.componentsCommand(toolchain.Descriptor{Name: "rust"}) != "" {
		t.Fatal("empty component list produced a command")
	}
}

func TestWithExtra(t *testing.T) {
	if got := withExtra("cargo build", ""); got != "cargo build" {
		t.Fatalf("withExtra = %q, want unchanged command", got)
	}
	if got := withExtra("cargo build", "--features full"); got != "cargo build --features full" {
		t.Fatalf("withExtra = %q", got)
	}
}

func TestMatchesType(t *testing.T) {
	types := []string{"rs", "toml"}

	if !matchesType("src/main.rs", types) {
		t.Fatal("rs file did not match")
	}
	if !matchesType("Cargo.toml", types) {
		t.Fatal("toml file did not match")
	}
	if matchesType("README.md", types) {
		t.Fatal("md file matched")
	}
	if !matchesType("anything.xyz", nil) {
		t.Fatal("empty type list must match everything")
	}
}
