// Package check holds the registry of named verification tasks.
//
// Every platform gets the same fixed set of checks: lint, test, format
// conformance, and the vulnerability audit. Each check is an independent
// function over the platform's common build arguments and cached
// dependency artifact. The runner executes all of them concurrently and
// never lets one failure suppress another's result; the aggregate passes
// only when every check does.
package check
