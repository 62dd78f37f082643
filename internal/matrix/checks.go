package matrix

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/kiln/internal/advisory"
	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/format"
	"github.com/cruciblehq/kiln/internal/manifest"
)

// Runs the formatting-conformance check over the full source tree.
//
// The formatter command is wrapped in check-only mode: no file is
// modified, and a failure names the files that would change.
func formatConformance(ctx context.Context, eng engine.Engine, m *manifest.Manifest) (string, error) {
	files, err := format.NewCommand(m.Source.Root, m.Formatter).CheckOnly().Run(ctx, eng)
	return strings.Join(files, "\n"), err
}

// Audits the resolved dependency versions against the advisory database.
//
// The database snapshot is reloaded on every invocation so a refreshed
// snapshot takes effect without restarting. Without a configured database
// or lockfile there is nothing to scan and the check passes trivially,
// saying so in its output.
func auditDependencies(m *manifest.Manifest) (string, error) {
	cfg := m.Checks.Audit

	if cfg.Database == "" {
		return "no advisory database configured", nil
	}
	if m.Source.Lockfile == "" {
		return "no lockfile configured", nil
	}

	dbPath := cfg.Database
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(m.Source.Root, dbPath)
	}

	db, err := advisory.Load(dbPath)
	if err != nil {
		return "", err
	}

	pkgs, err := advisory.ParseLock(filepath.Join(m.Source.Root, m.Source.Lockfile))
	if err != nil {
		return "", err
	}

	if err := db.Audit(pkgs, cfg.Ignore); err != nil {
		return "", err
	}

	return fmt.Sprintf("%d dependencies scanned, %d advisories ignored", len(pkgs), len(cfg.Ignore)), nil
}
