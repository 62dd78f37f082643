package cli

import (
	"context"

	"github.com/cruciblehq/kiln/internal/manifest"
	"github.com/cruciblehq/kiln/internal/platform"
	"github.com/cruciblehq/kiln/internal/runtime"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Loads the project manifest named by the root flags.
func loadManifest() (*manifest.Manifest, error) {
	return manifest.Load(RootCmd.Manifest)
}

// Connects to containerd and pins the engine to the manifest's toolchain.
//
// The host-platform descriptor seeds the engine for platform-independent
// work; per-platform resolution happens inside the pipeline, against the
// engine itself.
func newEngine(ctx context.Context, m *manifest.Manifest) (*runtime.Runtime, error) {
	tc, err := toolchain.NewResolver(m.Toolchain, nil).Resolve(ctx, platform.Host())
	if err != nil {
		return nil, err
	}

	return runtime.New(runtime.Config{
		Address:   RootCmd.Socket,
		Toolchain: tc,
	})
}
