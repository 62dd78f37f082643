package check

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Names of the fixed verification checks registered for every platform.
const (
	Lint   = "lint"
	Test   = "test"
	Format = "format"
	Audit  = "audit"
)

// One verification task.
//
// A check is a pure function from its captured inputs (the common build
// arguments and the cached dependency artifact) to a diagnostic string and
// a pass/fail error. Checks must be independent of each other and safe to
// run concurrently.
type Func func(ctx context.Context) (string, error)

// A named set of verification checks for one platform.
//
// Names are unique within a registry; a duplicate registration is a
// configuration error. Registration order is preserved for stable output.
type Registry struct {
	order  []string
	checks map[string]Func
}

// Creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Func)}
}

// Registers a named check.
//
// Fails with [ErrDuplicate] when the name is already taken.
func (r *Registry) Register(name string, fn Func) error {
	if _, exists := r.checks[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.order = append(r.order, name)
	r.checks[name] = fn
	return nil
}

// Returns the registered check names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Returns the named check.
func (r *Registry) Get(name string) (Func, bool) {
	fn, ok := r.checks[name]
	return fn, ok
}

// Outcome of one check execution.
type Result struct {
	Name     string        // Check name.
	Platform string        // Platform the check ran for.
	Output   string        // Diagnostic output from the check.
	Err      error         // Failure, nil when the check passed.
	Duration time.Duration // Wall-clock execution time.
}

// Reports whether the check passed.
func (r Result) Passed() bool {
	return r.Err == nil
}

// Runs every registered check concurrently and collects all results.
//
// Checks never short-circuit each other: a failure in one is recorded in
// its result while the others run to completion. Results are returned in
// registration order. Only context cancellation stops checks early, and
// even then each check reports its own cancellation error.
func (r *Registry) RunAll(ctx context.Context, platform string) []Result {
	results := make([]Result, len(r.order))

	var g errgroup.Group
	for i, name := range r.order {
		fn := r.checks[name]
		g.Go(func() error {
			start := time.Now()
			output, err := fn(ctx)
			results[i] = Result{
				Name:     name,
				Platform: platform,
				Output:   output,
				Err:      err,
				Duration: time.Since(start),
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// Reduces a result set to a single pass/fail error.
//
// Returns nil when every check passed, otherwise [ErrChecksFailed] naming
// each failed check with its platform.
func Err(results []Result) error {
	var failed []string
	for _, res := range results {
		if !res.Passed() {
			failed = append(failed, fmt.Sprintf("%s (%s)", res.Name, res.Platform))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrChecksFailed, strings.Join(failed, ", "))
	}
	return nil
}
