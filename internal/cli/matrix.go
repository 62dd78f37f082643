package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cruciblehq/kiln/internal/matrix"
	"github.com/cruciblehq/kiln/internal/paths"
)

// Represents the 'kiln matrix' command.
type MatrixCmd struct {
	Platform []string `short:"p" help:"Target platforms. Empty uses the manifest's set." placeholder:"OS/ARCH"`
	Output   string   `short:"o" help:"Directory for built artifacts and reports." default:"dist" placeholder:"DIR"`
	CacheDir string   `help:"Override the dependency cache directory." placeholder:"DIR"`
	Strict   bool     `help:"Abort the whole run on any platform failure."`
	Jobs     int      `short:"j" help:"Max concurrent platform pipelines. Zero means unbounded."`
}

// Executes the matrix command.
//
// Evaluates the full build matrix, writes per-platform artifacts plus an
// outputs.json report and an overlay.json binding under the output
// directory, and fails if any platform was excluded or any check failed.
func (c *MatrixCmd) Run(ctx context.Context) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, m)
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := matrix.Evaluate(ctx, eng, m, matrix.Options{
		Platforms: c.Platform,
		Output:    c.Output,
		CacheDir:  c.CacheDir,
		Strict:    c.Strict,
		Jobs:      c.Jobs,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.Output, paths.DefaultDirMode); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(c.Output, "outputs.json"), report(out)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(c.Output, "overlay.json"), out.Overlay); err != nil {
		return err
	}

	printSummary(out)
	return out.Err()
}

// Prints a one-line status per platform.
func printSummary(out *matrix.Outputs) {
	for _, p := range sortedKeys(out.Platforms) {
		rec := out.Platforms[p]
		status := "ok"
		if !rec.ChecksPassed() {
			status = "checks FAILED"
		}
		fmt.Printf("%-16s %s  %s\n", p, status, rec.App.Path)
	}
	for _, p := range sortedKeys(out.Excluded) {
		fmt.Printf("%-16s excluded: %v\n", p, out.Excluded[p])
	}
}

// A serializable view of one check result.
type checkReport struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// A serializable view of one platform's record.
type platformReport struct {
	Package   string            `json:"package"`
	Digest    string            `json:"digest"`
	App       string            `json:"app"`
	Checks    []checkReport     `json:"checks"`
	Toolchain string            `json:"toolchain"`
	Tools     []string          `json:"tools,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// A serializable view of the whole evaluation.
type matrixReport struct {
	Platforms map[string]platformReport `json:"platforms"`
	Excluded  map[string]string         `json:"excluded,omitempty"`
}

// Flattens the outputs into their serializable view.
func report(out *matrix.Outputs) matrixReport {
	rep := matrixReport{
		Platforms: make(map[string]platformReport, len(out.Platforms)),
		Excluded:  make(map[string]string, len(out.Excluded)),
	}

	for p, rec := range out.Platforms {
		pr := platformReport{
			Package:   rec.Package.Path,
			Digest:    rec.Package.Digest.String(),
			App:       rec.App.Path,
			Toolchain: rec.DevShell.Toolchain.Identity(),
			Tools:     rec.DevShell.Tools,
			Env:       rec.DevShell.Env,
		}
		for _, res := range rec.Checks {
			cr := checkReport{
				Name:     res.Name,
				Passed:   res.Passed(),
				Output:   res.Output,
				Duration: res.Duration.String(),
			}
			if res.Err != nil {
				cr.Error = res.Err.Error()
			}
			pr.Checks = append(pr.Checks, cr)
		}
		rep.Platforms[p] = pr
	}

	for p, err := range out.Excluded {
		rep.Excluded[p] = err.Error()
	}

	return rep
}

// Writes v as indented JSON to path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), paths.DefaultFileMode)
}

// Returns the map's keys in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
