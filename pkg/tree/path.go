package tree

import (
	"strconv"
	"strings"
)

const (
	// Root is the path of the top-level scope.
	Root = ""
	// Whole marks a batch in which the entire tree was replaced.
	Whole = "*"
	// Separator joins path segments.
	Separator = "."
)

// Join appends name to parent using the path separator.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + Separator + name
}

// Split breaks a dot path into its segments. The root path has none.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Parent returns the path one level up, or Root for top-level names.
func Parent(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx < 0 {
		return Root
	}
	return path[:idx]
}

// Base returns the final segment of path.
func Base(path string) string {
	idx := strings.LastIndex(path, Separator)
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// IsAncestor reports whether ancestor strictly contains path.
func IsAncestor(ancestor, path string) bool {
	if ancestor == path {
		return false
	}
	if ancestor == Root {
		return true
	}
	return strings.HasPrefix(path, ancestor+Separator)
}

// IsIndex reports whether segment is a valid sequence index.
func IsIndex(segment string) bool {
	_, ok := parseIndex(segment)
	return ok
}

func parseIndex(segment string) (int, bool) {
	if segment == "" || (len(segment) > 1 && segment[0] == '0') {
		return 0, false
	}
	idx, err := strconv.Atoi(segment)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
