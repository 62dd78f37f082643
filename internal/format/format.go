package format

import (
	"context"
	"fmt"
	"strings"

	"github.com/cruciblehq/kiln/internal/engine"
	"github.com/cruciblehq/kiln/internal/manifest"
)

// File extensions formatted when the manifest does not configure any.
var defaultTypes = []string{"rs", "toml"}

// A runnable formatting command over the whole source tree.
//
// The command is platform-independent. In write mode it rewrites every
// matching file into canonical style in place; running it twice produces
// no further changes on the second run. In check mode no file is modified
// and any file differing from canonical form is a failure.
type Command struct {
	Root  string   // Source tree root.
	Types []string // File extensions the formatter applies to.
	Check bool     // Report-only mode; never modifies files.
}

// Creates the formatter command for a project.
func NewCommand(root string, cfg manifest.Formatter) Command {
	types := cfg.Types
	if len(types) == 0 {
		types = defaultTypes
	}
	return Command{Root: root, Types: types}
}

// Returns a copy of the command in check-only mode.
func (c Command) CheckOnly() Command {
	c.Check = true
	return c
}

// Executes the command through the build engine.
//
// Returns the files the formatter rewrote, or in check mode the files that
// would change. Check mode fails with [ErrNotCanonical] naming each
// offending file, without modifying any of them.
func (c Command) Run(ctx context.Context, eng engine.Engine) ([]string, error) {
	files, err := eng.Format(ctx, c.Root, c.Types, c.Check)
	if err != nil {
		return nil, err
	}

	if c.Check && len(files) > 0 {
		return files, fmt.Errorf("%w: %s", ErrNotCanonical, strings.Join(files, ", "))
	}

	return files, nil
}
