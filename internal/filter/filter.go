// Package filter narrows the remote inventory with allow and deny regular expressions matched
// against a repository identity of the form owner/name/private/fork/archived.
package filter

import (
	"fmt"
	"path"
	"regexp"

	"github.com/temirov/reposync/internal/inventory"
)

const (
	flagSetConstant              = "1"
	flagUnsetConstant            = "0"
	patternErrorTemplateConstant = "invalid %s pattern %q: %s"
	ruleKindAllowConstant        = "allow"
	ruleKindDenyConstant         = "deny"
)

// Identity renders the string rules are matched against, for example octocat/dotfiles/1/0/0.
func Identity(owner string, descriptor inventory.RepoDescriptor) string {
	return path.Join(
		owner,
		descriptor.Name,
		flagString(descriptor.Status.Private),
		flagString(descriptor.Status.Fork),
		flagString(descriptor.Status.Archived),
	)
}

// PatternError reports a rule that is not a valid regular expression.
type PatternError struct {
	Kind    string
	Pattern string
	Cause   error
}

// Error describes the invalid pattern.
func (patternError PatternError) Error() string {
	return fmt.Sprintf(patternErrorTemplateConstant, patternError.Kind, patternError.Pattern, patternError.Cause)
}

// Unwrap exposes the compilation error.
func (patternError PatternError) Unwrap() error {
	return patternError.Cause
}

// Rules holds compiled allow and deny expressions. A repository is excluded only when it matches a
// deny rule and no allow rule.
type Rules struct {
	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

// NewRules compiles the provided patterns.
func NewRules(allowPatterns []string, denyPatterns []string) (Rules, error) {
	allow, allowError := compile(ruleKindAllowConstant, allowPatterns)
	if allowError != nil {
		return Rules{}, allowError
	}
	deny, denyError := compile(ruleKindDenyConstant, denyPatterns)
	if denyError != nil {
		return Rules{}, denyError
	}
	return Rules{allow: allow, deny: deny}, nil
}

// Empty reports whether no rules are configured.
func (rules Rules) Empty() bool {
	return len(rules.allow) == 0 && len(rules.deny) == 0
}

// Excludes reports whether the identity is filtered out.
func (rules Rules) Excludes(identity string) bool {
	if matchesAny(rules.allow, identity) {
		return false
	}
	return matchesAny(rules.deny, identity)
}

// Apply partitions the descriptors into those that survive the rules and those excluded by them.
func (rules Rules) Apply(owner string, descriptors map[string]inventory.RepoDescriptor) (map[string]inventory.RepoDescriptor, map[string]inventory.RepoDescriptor) {
	retained := make(map[string]inventory.RepoDescriptor, len(descriptors))
	excluded := map[string]inventory.RepoDescriptor{}
	for name, descriptor := range descriptors {
		if rules.Excludes(Identity(owner, descriptor)) {
			excluded[name] = descriptor
			continue
		}
		retained[name] = descriptor
	}
	return retained, excluded
}

func compile(kind string, patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		if len(pattern) == 0 {
			continue
		}
		expression, compileError := regexp.Compile(pattern)
		if compileError != nil {
			return nil, PatternError{Kind: kind, Pattern: pattern, Cause: compileError}
		}
		compiled = append(compiled, expression)
	}
	return compiled, nil
}

func matchesAny(expressions []*regexp.Regexp, identity string) bool {
	for _, expression := range expressions {
		if expression.MatchString(identity) {
			return true
		}
	}
	return false
}

func flagString(value bool) string {
	if value {
		return flagSetConstant
	}
	return flagUnsetConstant
}
