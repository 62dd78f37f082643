package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/kiln/internal"
	"github.com/cruciblehq/kiln/internal/manifest"
)

// Represents the root command for the kiln CLI.
var RootCmd struct {
	Quiet    bool   `short:"q" help:"Suppress informational output."`
	Verbose  bool   `short:"v" help:"Enable verbose output."`
	Debug    bool   `short:"d" help:"Enable debug output."`
	Manifest string `short:"m" help:"Path to the project manifest." placeholder:"PATH" default:"${manifest}"`
	Socket   string `short:"s" help:"Override the default containerd socket address." placeholder:"PATH"`

	Build   BuildCmd   `cmd:"" default:"1" help:"Build the package for one platform."`
	Run     RunCmd     `cmd:"" help:"Build the package and run it."`
	Check   CheckCmd   `cmd:"" help:"Run verification checks."`
	Matrix  MatrixCmd  `cmd:"" help:"Evaluate the full build matrix."`
	Fmt     FmtCmd     `cmd:"" help:"Rewrite sources into canonical formatting."`
	Shell   ShellCmd   `cmd:"" help:"Describe the development environment."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The Crucible matrix builder.\n\nEvaluates a declarative per-platform build matrix from a project manifest."),
		kong.UsageOnError(),
		kong.Vars{
			"version":  internal.VersionString(),
			"manifest": manifest.DefaultFilename,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	var level slog.Level
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler).WithGroup(internal.Name))
}
