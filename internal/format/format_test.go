package format

import (
	"context"
	"errors"
	"testing"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/manifest"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Implements engine.Engine with a canned formatter response.
type fakeEngine struct {
	files     []string
	err       error
	gotTypes  []string
	gotCheck  bool
	formatted int
}

func (f *fakeEngine) Format(ctx context.Context, root string, types []string, checkOnly bool) ([]string, error) {
	f.gotTypes = types
	f.gotCheck = checkOnly
	f.formatted++
	if f.err != nil {
		return nil, f.err
	}
	if checkOnly {
		return f.files, nil
	}
	// Write mode rewrites the pending files; a second run has nothing left.
	files := f.files
	f.files = nil
	return files, nil
}

func (f *fakeEngine) ResolveToolchain(ctx context.Context, platform string, tc toolchain.Descriptor) error {
	return nil
}

func (f *fakeEngine) BuildDepsOnly(ctx context.Context, args engine.Args) (engine.Artifact, error) {
	return engine.Artifact{}, nil
}

func (f *fakeEngine) BuildPackage(ctx context.Context, args engine.Args, deps engine.Artifact, spec engine.PackageSpec) (engine.Artifact, error) {
	return engine.Artifact{}, nil
}

func (f *fakeEngine) RunCheck(ctx context.Context, kind engine.CheckKind, args engine.Args, deps engine.Artifact) (string, error) {
	return "", nil
}

func (f *fakeEngine) Run(ctx context.Context, app engine.Artifact, args []string) (int, error) {
	return 0, nil
}

func TestNewCommandDefaults(t *testing.T) {
	c := NewCommand("/src", manifest.Formatter{})
	if len(c.Types) == 0 {
		t.Fatal("no default types configured")
	}

	c = NewCommand("/src", manifest.Formatter{Types: []string{"go"}})
	if len(c.Types) != 1 || c.Types[0] != "go" {
		t.Fatalf("types = %v, want configured override", c.Types)
	}
}

func TestRunWriteMode(t *testing.T) {
	eng := &fakeEngine{files: []string{"src/main.rs"}}
	c := NewCommand("/src", manifest.Formatter{})

	files, err := c.Run(context.Background(), eng)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(files) != 1 || files[0] != "src/main.rs" {
		t.Fatalf("files = %v, want rewritten file reported", files)
	}
	if eng.gotCheck {
		t.Fatal("write mode ran the engine in check-only mode")
	}
}

func TestRunIdempotent(t *testing.T) {
	eng := &fakeEngine{files: []string{"src/main.rs"}}
	c := NewCommand("/src", manifest.Formatter{})

	if _, err := c.Run(context.Background(), eng); err != nil {
		t.Fatal(err)
	}

	files, err := c.Run(context.Background(), eng)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("second run changed files: %v", files)
	}
}

func TestRunCheckMode(t *testing.T) {
	eng := &fakeEngine{files: []string{"src/main.rs", "Cargo.toml"}}
	c := NewCommand("/src", manifest.Formatter{}).CheckOnly()

	files, err := c.Run(context.Background(), eng)
	if !errors.Is(err, ErrNotCanonical) {
		t.Fatalf("err = %v, want ErrNotCanonical", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want both offenders named", files)
	}
	if !eng.gotCheck {
		t.Fatal("check mode did not reach the engine")
	}
}

func TestRunCheckModeClean(t *testing.T) {
	eng := &fakeEngine{}
	c := NewCommand("/src", manifest.Formatter{}).CheckOnly()

	files, err := c.Run(context.Background(), eng)
	if err != nil {
		t.Fatalf("clean tree failed check: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("files = %v, want none", files)
	}
}
