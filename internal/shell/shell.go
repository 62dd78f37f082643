package shell

import (
	"maps"
	"sort"

	"github.com/cruciblehq/kiln/internal/manifest"
	"github.com/cruciblehq/kiln/internal/toolchain"
)

// Environment variable carrying the development data-store connection
// string inside the dev environment. This is the only environment contract
// kiln exposes.
const DatabaseURLVar = "KILN_DEV_DATABASE_URL"

// Describes an interactive development environment for one platform.
//
// Pure data: the toolchain, auxiliary tools, and environment variables a
// developer shell needs. No build step is involved and nothing is cached;
// construction is cheap and repeated per run.
type Environment struct {
	Platform  string               // Platform the environment targets.
	Toolchain toolchain.Descriptor // Pinned toolchain, including components.
	Tools     []string             // Auxiliary command-line tools.
	Env       map[string]string    // Environment variable names to values.
}

// Assembles the development environment for a platform.
//
// The configured variables are copied and the data-store connection
// variable is added when a connection string is configured. The toolchain's
// native inputs ride along as tools so the shell can locate external
// dependencies the same way builds do.
func New(platform string, tc toolchain.Descriptor, cfg manifest.Shell) Environment {
	env := make(map[string]string, len(cfg.Env)+1)
	maps.Copy(env, cfg.Env)
	if cfg.DatabaseURL != "" {
		env[DatabaseURLVar] = cfg.DatabaseURL
	}

	tools := make([]string, 0, len(cfg.Tools)+len(tc.NativeInputs))
	tools = append(tools, cfg.Tools...)
	tools = append(tools, tc.NativeInputs...)

	return Environment{
		Platform:  platform,
		Toolchain: tc,
		Tools:     tools,
		Env:       env,
	}
}

// Formats the environment variables as sorted "key=value" strings.
func (e Environment) Environ() []string {
	out := make([]string, 0, len(e.Env))
	for k, v := range e.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
