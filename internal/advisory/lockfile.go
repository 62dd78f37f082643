package advisory

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Parses the resolved dependencies from a lockfile.
//
// The lockfile records resolved packages as blocks of the form:
//
//	[[package]]
//	name = "serde"
//	version = "1.0.197"
//
// Only name and version are read; any other keys are ignored. A block
// missing either field is skipped, since partial records cannot be matched
// against advisories anyway.
func ParseLock(path string) ([]Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockfile, err)
	}
	defer f.Close()

	var (
		pkgs    []Package
		current Package
		inBlock bool
	)

	flush := func() {
		if inBlock && current.Name != "" && current.Version != "" {
			pkgs = append(pkgs, current)
		}
		current = Package{}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "[[package]]":
			flush()
			inBlock = true
		case strings.HasPrefix(line, "["):
			// Some other section ends the package block.
			flush()
			inBlock = false
		case inBlock:
			if k, v, ok := parseAssignment(line); ok {
				switch k {
				case "name":
					current.Name = v
				case "version":
					current.Version = v
				}
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLockfile, path, err)
	}

	return pkgs, nil
}

// Parses a `key = "value"` assignment line.
func parseAssignment(line string) (key, value string, ok bool) {
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}

	k = strings.TrimSpace(k)
	v = strings.TrimSpace(v)

	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return "", "", false
	}

	return k, v[1 : len(v)-1], true
}
