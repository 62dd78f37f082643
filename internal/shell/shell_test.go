package shell

import (
	"testing"

	"github.com/cruciblehq/kiln/internal/manifest"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

func TestNew(t *testing.T) {
	tc := toolchain.Descriptor{
		Name:         "rust",
		Version:      "1.78.0",
		NativeInputs: []string{"openssl", "pkg-config"},
	}
	cfg := manifest.Shell{
		Tools: []string{"cargo-watch"},
		Env:   map[string]string{"RUST_LOG": "debug"},
	}

	env := New("linux/amd64", tc, cfg)

	if env.Platform != "linux/amd64" {
		t.Fatalf("platform = %q, want linux/amd64", env.Platform)
	}
	if len(env.Tools) != 3 {
		t.Fatalf("tools = %v, want configured tools plus native inputs", env.Tools)
	}
	if env.Env["RUST_LOG"] != "debug" {
		t.Fatalf("env = %v, want RUST_LOG carried over", env.Env)
	}
}

func TestNewDatabaseURL(t *testing.T) {
	tc := toolchain.Descriptor{Name: "rust", Version: "1.78.0"}

	env := New("linux/amd64", tc, manifest.Shell{DatabaseURL: "postgres://localhost/dev"})
	if env.Env[DatabaseURLVar] != "postgres://localhost/dev" {
		t.Fatalf("env[%s] = %q, want connection string", DatabaseURLVar, env.Env[DatabaseURLVar])
	}

	env = New("linux/amd64", tc, manifest.Shell{})
	if _, ok := env.Env[DatabaseURLVar]; ok {
		t.Fatalf("%s set without a configured connection string", DatabaseURLVar)
	}
}

func TestNewDoesNotMutateConfig(t *testing.T) {
	cfg := manifest.Shell{
		Env:         map[string]string{"A": "1"},
		DatabaseURL: "postgres://localhost/dev",
	}

	New("linux/amd64", toolchain.Descriptor{}, cfg)

	if _, ok := cfg.Env[DatabaseURLVar]; ok {
		t.Fatal("construction leaked the connection variable into the manifest config")
	}
}

func TestEnviron(t *testing.T) {
	env := Environment{Env: map[string]string{"B": "2", "A": "1"}}

	got := env.Environ()
	if len(got) != 2 || got[0] != "A=1" || got[1] != "B=2" {
		t.Fatalf("Environ = %v, want sorted key=value pairs", got)
	}
}
