// Provides platform-appropriate paths for kiln's cached state.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The tool name "kiln" is used as the subdirectory
// under each base path. The dependency artifact store lives under the cache
// base so that wiping it is always safe; every entry can be rebuilt.
package paths
