// Package pattern resolves logical paths to tags through an ordered list
// of glob rules.
package pattern

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Tag labels a group of related file patterns. Consumers use it to route
// changes to the right part of their model.
type Tag string

// Rule binds one glob pattern to a tag. Rules are evaluated in list
// order and the first match wins.
type Rule struct {
	Tag     Tag
	Pattern string
}

// Resolve returns the tag of the first rule whose pattern matches the
// path. Relative paths match their patterns directly. Absolute paths
// come from files reached through a symlinked ancestor; every pattern is
// widened with a leading "**/" for them, which is strictly more
// permissive and can produce false positives. That trade-off is
// accepted: a path that matches relative always matches widened.
func Resolve(rules []Rule, logical string) (Tag, bool) {
	for _, rule := range rules {
		if Match(rule.Pattern, logical) {
			return rule.Tag, true
		}
	}
	return "", false
}

// Matches reports whether the path matches at least one pattern, with
// the same relative/absolute leniency as Resolve.
func Matches(patterns []string, logical string) bool {
	for _, candidate := range patterns {
		if Match(candidate, logical) {
			return true
		}
	}
	return false
}

// Match evaluates one glob against a logical path.
func Match(pattern, logical string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}

	candidate := path.Clean(strings.TrimPrefix(logical, "/"))
	if strings.HasPrefix(logical, "/") {
		pattern = widen(pattern)
	}

	matched, err := doublestar.Match(pattern, candidate)
	if err != nil {
		return false
	}
	return matched
}

func widen(pattern string) string {
	if strings.HasPrefix(pattern, "**/") {
		return pattern
	}
	return "**/" + strings.TrimPrefix(pattern, "/")
}
