package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "kiln"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for cached build state.
//
//	Linux:   $XDG_CACHE_HOME/kiln or ~/.cache/kiln
//	macOS:   ~/Library/Caches/kiln
func Cache() string {
	return filepath.Join(xdg.CacheHome, toolName)
}

// Path to the content-addressed dependency artifact store.
//
//	Linux:   $XDG_CACHE_HOME/kiln/deps
//	macOS:   ~/Library/Caches/kiln/deps
func DepStore() string {
	return filepath.Join(Cache(), "deps")
}

// Path to the directory for runtime files (locks, scratch state).
//
//	Linux:   $XDG_RUNTIME_DIR/kiln or /run/user/<uid>/kiln
//	macOS:   ~/Library/Caches/kiln/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, toolName)
	}
	return filepath.Join(xdg.CacheHome, toolName, "run")
}
