// Parses flags and dispatches the kiln subcommands.
//
// The CLI accepts the following global flags:
//
//	-q, --quiet      Suppress informational output.
//	-v, --verbose    Enable verbose output.
//	-d, --debug      Enable debug output.
//	-m, --manifest   Path to the project manifest.
//	-s, --socket     Containerd socket address.
//
// Flags override build-time defaults set via linker flags. After parsing,
// the global logger is reconfigured to reflect the final level before the
// selected command runs. Running kiln with no subcommand is equivalent to
// 'kiln build'.
package cli
