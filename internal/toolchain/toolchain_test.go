package toolchain

import (
	"context"
	"errors"
	"testing"

	"github.com/cruciblehq/kiln/internal/manifest"
)

func testPin() manifest.Toolchain {
	return manifest.Toolchain{
		Name:       "rust",
		Version:    "1.78.0",
		Components: []string{"rustfmt", "clippy"},
		Native: map[string][]string{
			"linux":  {"pkg-config", "openssl"},
			"darwin": {"libiconv"},
		},
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(testPin(), nil)

	d, err := r.Resolve(context.Background(), "linux/amd64")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if d.Name != "rust" || d.Version != "1.78.0" {
		t.Fatalf("descriptor = %s@%s, want rust@1.78.0", d.Name, d.Version)
	}
	if len(d.NativeInputs) != 2 || d.NativeInputs[0] != "openssl" {
		t.Fatalf("native inputs = %v, want sorted linux set", d.NativeInputs)
	}
}

func TestResolveSelectsInputsByOS(t *testing.T) {
	r := NewResolver(testPin(), nil)

	d, err := r.Resolve(context.Background(), "darwin/arm64")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(d.NativeInputs) != 1 || d.NativeInputs[0] != "libiconv" {
		t.Fatalf("native inputs = %v, want [libiconv]", d.NativeInputs)
	}
}

func TestIdentityDeterministic(t *testing.T) {
	r := NewResolver(testPin(), nil)

	a, err := r.Resolve(context.Background(), "linux/amd64")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(context.Background(), "linux/amd64")
	if err != nil {
		t.Fatal(err)
	}

	if a.Identity() != b.Identity() {
		t.Fatalf("identities differ: %q vs %q", a.Identity(), b.Identity())
	}
}

func TestIdentitySortsComponents(t *testing.T) {
	pin := testPin()
	r1 := NewResolver(pin, nil)

	pin.Components = []string{"clippy", "rustfmt"}
	r2 := NewResolver(pin, nil)

	a, _ := r1.Resolve(context.Background(), "linux/amd64")
	b, _ := r2.Resolve(context.Background(), "linux/amd64")

	if a.Identity() != b.Identity() {
		t.Fatalf("component order changed identity: %q vs %q", a.Identity(), b.Identity())
	}
}

func TestIdentityVariesWithInputs(t *testing.T) {
	r := NewResolver(testPin(), nil)

	a, _ := r.Resolve(context.Background(), "linux/amd64")
	b, _ := r.Resolve(context.Background(), "darwin/arm64")

	if a.Identity() == b.Identity() {
		t.Fatalf("identity %q identical across differing native inputs", a.Identity())
	}
}

type failingChecker struct{ err error }

func (c failingChecker) ResolveToolchain(ctx context.Context, platform string, tc Descriptor) error {
	return c.err
}

func TestResolveUnavailable(t *testing.T) {
	cause := errors.New("no manifest for platform")
	r := NewResolver(testPin(), failingChecker{err: cause})

	_, err := r.Resolve(context.Background(), "linux/riscv64")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
}
