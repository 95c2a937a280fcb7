package permkit

import (
	"strings"
)

// ActionMatcher handles action-id matching with wildcard support.
//
// Supported patterns:
//   - "*" matches all actions
//   - "document.*" matches all actions in a group (e.g., "document.lock")
//   - "*.delete" matches an operation across groups (e.g., "document.delete")
//   - "exact.match" matches exactly
//
// Flat action ids such as "read" match only exactly or via "*".
type ActionMatcher struct{}

// NewActionMatcher creates a new ActionMatcher.
func NewActionMatcher() *ActionMatcher {
	return &ActionMatcher{}
}

// Match checks if an action pattern matches an action id.
//
// Examples:
//
//	Match("*", "document.lock")          // true - wildcard matches all
//	Match("document.*", "document.lock") // true - group wildcard
//	Match("*.delete", "document.delete") // true - operation wildcard
//	Match("read", "read")                // true - exact match
//	Match("document.*", "case.close")    // false - different group
func (am *ActionMatcher) Match(pattern, actionID string) bool {
	if pattern == actionID {
		return true
	}
	if pattern == "*" {
		return true
	}

	patternParts := strings.Split(pattern, ".")
	actionParts := strings.Split(actionID, ".")
	if len(patternParts) != len(actionParts) {
		return false
	}

	for i, pp := range patternParts {
		if pp == "*" {
			continue
		}
		if pp != actionParts[i] {
			return false
		}
	}
	return true
}

// MatchAny checks if any of the patterns match the action id.
func (am *ActionMatcher) MatchAny(patterns []string, actionID string) bool {
	for _, pattern := range patterns {
		if am.Match(pattern, actionID) {
			return true
		}
	}
	return false
}

// ExpandActions returns the action ids from 'all' that a set of patterns
// would grant. Useful for displaying what a role can do.
func (am *ActionMatcher) ExpandActions(patterns []string, all []string) []string {
	matched := make(map[string]bool)

	for _, actionID := range all {
		for _, pattern := range patterns {
			if am.Match(pattern, actionID) {
				matched[actionID] = true
				break
			}
		}
	}

	result := make([]string, 0, len(matched))
	for id := range matched {
		result = append(result, id)
	}
	return result
}

// Validate checks if an action pattern is well formed: "*", a flat
// identifier, or a dot-separated string of identifiers and wildcards.
func (am *ActionMatcher) Validate(pattern string) error {
	if pattern == "" {
		return NewError(ErrInvalidDefinition, "action pattern cannot be empty")
	}
	if pattern == "*" {
		return nil
	}

	for _, part := range strings.Split(pattern, ".") {
		if part == "" {
			return NewError(ErrInvalidDefinition, "action pattern parts cannot be empty")
		}
		if part == "*" {
			continue
		}
		for _, c := range part {
			if !isValidActionChar(c) {
				return NewError(ErrInvalidDefinition, "action pattern contains invalid character")
			}
		}
	}
	return nil
}

func isValidActionChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_' || c == '-'
}

// DefaultMatcher is the default action matcher instance.
var DefaultMatcher = NewActionMatcher()

// MatchAction is a convenience function using the default matcher.
func MatchAction(pattern, actionID string) bool {
	return DefaultMatcher.Match(pattern, actionID)
}

// MatchAnyAction is a convenience function using the default matcher.
func MatchAnyAction(patterns []string, actionID string) bool {
	return DefaultMatcher.MatchAny(patterns, actionID)
}
