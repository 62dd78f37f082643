package platform

import (
	"fmt"
	goruntime "runtime"
	"strings"

	"github.com/containerd/platforms"
)

// Fixed default platform set for matrix evaluation.
//
// Covers the OS/architecture pairs releases are normally cut for. A manifest
// may override the set, but an empty override falls back to these.
var defaults = []string{
	"linux/amd64",
	"linux/arm64",
	"darwin/amd64",
	"darwin/arm64",
}

// Returns the ordered default platform set.
//
// The returned slice is a copy; callers may modify it freely.
func Defaults() []string {
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

// Returns the host platform (e.g., "linux/amd64").
func Host() string {
	return goruntime.GOOS + "/" + goruntime.GOARCH
}

// Parses and normalizes a platform identifier.
//
// Aliases are resolved to canonical OS/architecture form (e.g., "x86_64"
// becomes "amd64"). Fails on identifiers the OCI platform grammar rejects.
func Normalize(p string) (string, error) {
	parsed, err := platforms.Parse(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPlatform, err)
	}
	return platforms.FormatAll(platforms.Normalize(parsed)), nil
}

// Normalizes a full platform list, rejecting duplicates.
//
// An empty input yields the default set. Order is preserved.
func NormalizeAll(list []string) ([]string, error) {
	if len(list) == 0 {
		list = Defaults()
	}

	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))

	for _, p := range list {
		n, err := Normalize(p)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: duplicate platform %q", ErrInvalidPlatform, n)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	return out, nil
}

// Returns the OS half of a normalized platform identifier.
func OS(p string) string {
	os, _, _ := strings.Cut(p, "/")
	return os
}

// Converts a platform string to a filesystem-safe slug.
//
// Replaces slashes with dashes (e.g., "linux/amd64" becomes "linux-amd64").
func Slug(p string) string {
	return strings.ReplaceAll(p, "/", "-")
}
