package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cruciblehq/kiln/internal/check"
	"github.com/cruciblehq/kiln/internal/format"
	"github.com/cruciblehq/kiln/internal/matrix"
	"github.com/cruciblehq/kiln/internal/platform"
)

// Represents the 'kiln check' command.
type CheckCmd struct {
	Platform string   `short:"p" help:"Target platform. Defaults to the host." placeholder:"OS/ARCH"`
	CacheDir string   `help:"Override the dependency cache directory." placeholder:"DIR"`
	Names    []string `arg:"" optional:"" help:"Checks to run. Empty runs the full set."`
}

// Executes the check command.
//
// Runs the named checks (or all of them) for one platform. Every check
// runs to completion regardless of earlier failures; the command fails if
// any check failed.
func (c *CheckCmd) Run(ctx context.Context) error {
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

	results, err := matrix.RunChecks(ctx, eng, m, p, matrix.Options{CacheDir: c.CacheDir}, c.Names)
	if err != nil {
		return err
	}

	for _, res := range results {
		printResult(res)
	}

	return check.Err(results)
}

// Prints a single check result to stdout.
func printResult(res check.Result) {
	status := "ok"
	if !res.Passed() {
		status = "FAIL"
	}
	fmt.Printf("%-8s %s (%s)\n", res.Name, status, res.Duration.Round(time.Millisecond))

	detail := res.Output
	if res.Err != nil {
		detail = res.Err.Error()
	}
	if detail != "" && (!res.Passed() || RootCmd.Verbose) {
		fmt.Println(indent(detail))
	}
}

// Indents every line of s by four spaces.
func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// Represents the 'kiln fmt' command.
type FmtCmd struct {
	Check bool `help:"Report non-canonical files without rewriting them."`
}

// Executes the fmt command.
//
// Rewrites sources into canonical formatting in place, printing each
// changed file. With --check, nothing is rewritten and the command fails
// when any file is not already canonical.
func (c *FmtCmd) Run(ctx context.Context) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, m)
	if err != nil {
		return err
	}
	defer eng.Close()

	cmd := format.NewCommand(m.Source.Root, m.Formatter)
	if c.Check {
		cmd = cmd.CheckOnly()
	}

	files, err := cmd.Run(ctx, eng)
	for _, f := range files {
		fmt.Println(f)
	}
	return err
}
