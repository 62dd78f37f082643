package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/cruciblehq/kiln/internal/platform"
	"github.com/cruciblehq/kiln/internal/shell"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Represents the 'kiln shell' command.
type ShellCmd struct {
	Platform string `short:"p" help:"Target platform. Defaults to the host." placeholder:"OS/ARCH"`
}

// Executes the shell command.
//
// Describes the development environment for one platform: the pinned
// toolchain, auxiliary tools, and environment variables. No engine
// connection is needed; the environment is derived from the manifest alone.
func (c *ShellCmd) Run(ctx context.Context) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	p := c.Platform
	if p == "" {
		p = platform.Host()
	}
	p, err = platform.Normalize(p)
	if err != nil {
		return err
	}

	tc, err := toolchain.NewResolver(m.Toolchain, nil).Resolve(ctx, p)
	if err != nil {
		return err
	}

	env := shell.New(p, tc, m.Shell)

	fmt.Printf("platform:  %s\n", env.Platform)
	fmt.Printf("toolchain: %s\n", env.Toolchain.Identity())
	if len(env.Tools) > 0 {
		fmt.Printf("tools:     %s\n", strings.Join(env.Tools, ", "))
	}
	for _, kv := range env.Environ() {
		fmt.Printf("env:       %s\n", kv)
	}
	return nil
}
