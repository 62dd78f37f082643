package toolchain

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cruciblehq/kiln/internal/manifest"
	"github.com/cruciblehq/kiln/internal/platform"
)

// A pinned toolchain for one platform.
//
// Descriptors are immutable once resolved. The same pin resolves to
// descriptors that differ only in native inputs across platforms.
type Descriptor struct {
	Name         string   // Toolchain name (e.g., "rust").
	Version      string   // Pinned version (e.g., "1.78.0").
	Components   []string // Optional components, sorted.
	NativeInputs []string // Native build inputs for the platform, sorted.
}

// Returns a canonical identity string for the descriptor.
//
// The identity feeds the dependency cache key, so it must be deterministic:
// components and native inputs are sorted at resolution time and joined in
// a fixed format.
func (d Descriptor) Identity() string {
	return fmt.Sprintf("%s@%s[%s][%s]",
		d.Name, d.Version,
		strings.Join(d.Components, ","),
		strings.Join(d.NativeInputs, ","),
	)
}

// Verifies toolchain availability for a platform.
//
// Implemented by the build engine; resolution fails when the pinned version
// cannot be provided for the platform.
type Checker interface {
	ResolveToolchain(ctx context.Context, platform string, tc Descriptor) error
}

// Resolves per-platform toolchain descriptors from a manifest pin.
type Resolver struct {
	pin     manifest.Toolchain // Toolchain section of the project manifest.
	checker Checker            // Availability check, nil to skip verification.
}

// Creates a resolver for the given pin.
//
// checker may be nil, in which case descriptors are produced without an
// availability check; callers that only need the identity (e.g., cache key
// computation for inspection) use this form.
func NewResolver(pin manifest.Toolchain, checker Checker) *Resolver {
	return &Resolver{pin: pin, checker: checker}
}

// Produces the pinned toolchain descriptor for a platform.
//
// Native inputs are selected by the platform's OS half. Fails with
// [ErrUnavailable] when the engine cannot provide the pinned version for
// the platform; the caller decides whether that excludes the platform or
// aborts the run.
func (r *Resolver) Resolve(ctx context.Context, p string) (Descriptor, error) {
	d := Descriptor{
		Name:         r.pin.Name,
		Version:      r.pin.Version,
		Components:   sorted(r.pin.Components),
		NativeInputs: sorted(r.pin.Native[platform.OS(p)]),
	}

	if r.checker != nil {
		if err := r.checker.ResolveToolchain(ctx, p, d); err != nil {
			return Descriptor{}, fmt.Errorf("%w: %s %s on %s: %w",
				ErrUnavailable, d.Name, d.Version, p, err)
		}
	}

	return d, nil
}

// Returns a sorted copy of list.
func sorted(list []string) []string {
	out := slices.Clone(list)
	slices.Sort(out)
	return out
}
