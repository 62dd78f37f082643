package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cruciblehq/kiln/internal/matrix"
	"github.com/cruciblehq/kiln/internal/platform"
)

// Represents the 'kiln build' command.
type BuildCmd struct {
	Platform string `short:"p" help:"Target platform (e.g. linux/amd64). Defaults to the host." placeholder:"OS/ARCH"`
	Output   string `short:"o" help:"Directory for built artifacts." default:"dist" placeholder:"DIR"`
	CacheDir string `help:"Override the dependency cache directory." placeholder:"DIR"`
}

// Executes the build command.
//
// Builds the package for a single platform without running checks. This is
// also the default action when no subcommand is given.
func (c *BuildCmd) Run(ctx context.Context) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, m)
	if err != nil {
		return err
	}
	defer eng.Close()

	p := c.Platform
	if p == "" {
		p = platform.Host()
	}

	app, err := matrix.Build(ctx, eng, m, p, matrix.Options{
		Output:   c.Output,
		CacheDir: c.CacheDir,
	})
	if err != nil {
		return err
	}

	slog.Info("package built", "platform", p, "path", app.Path, "digest", app.Digest)
	fmt.Println(app.Path)
	return nil
}

// Represents the 'kiln run' command.
type RunCmd struct {
	Output   string   `short:"o" help:"Directory for built artifacts." default:"dist" placeholder:"DIR"`
	CacheDir string   `help:"Override the dependency cache directory." placeholder:"DIR"`
	Args     []string `arg:"" optional:"" passthrough:"" help:"Arguments passed through to the app."`
}

// Executes the run command.
//
// Builds the package for the host platform and invokes the resulting app
// with any trailing arguments. The app's exit status becomes the command's
// result.
func (c *RunCmd) Run(ctx context.Context) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, m)
	if err != nil {
		return err
	}
	defer eng.Close()

	app, err := matrix.Build(ctx, eng, m, platform.Host(), matrix.Options{
		Output:   c.Output,
		CacheDir: c.CacheDir,
	})
	if err != nil {
		return err
	}

	code, err := eng.Run(ctx, app, c.Args)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s exited with status %d", m.Package.Name, code)
	}
	return nil
}
