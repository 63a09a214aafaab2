package decision

import (
	"fmt"
	"strings"
)

const (
	policyAskConstant                          = "ask"
	policyDeleteConstant                       = "delete"
	policyKeepConstant                         = "keep"
	policyAllConstant                          = "all"
	policyNoneConstant                         = "none"
	policyIgnoreConstant                       = "ignore"
	unsupportedUntrackedPolicyTemplateConstant = "unsupported untracked policy %q (expected ask, delete, or keep)"
	unsupportedClonePolicyTemplateConstant     = "unsupported clone policy %q (expected ask, all, or none)"
	unsupportedUnmatchedPolicyTemplateConstant = "unsupported unmatched policy %q (expected ignore or delete)"
)

// UntrackedPolicy decides what happens to a local directory whose repository disappeared remotely.
type UntrackedPolicy string

// Untracked policies.
const (
	UntrackedAsk    UntrackedPolicy = UntrackedPolicy(policyAskConstant)
	UntrackedDelete UntrackedPolicy = UntrackedPolicy(policyDeleteConstant)
	UntrackedKeep   UntrackedPolicy = UntrackedPolicy(policyKeepConstant)
)

// UntrackedPolicyChoices lists the accepted textual values.
func UntrackedPolicyChoices() []string {
	return []string{policyAskConstant, policyDeleteConstant, policyKeepConstant}
}

// UnmarshalText validates a textual untracked policy.
func (policy *UntrackedPolicy) UnmarshalText(text []byte) error {
	candidate := UntrackedPolicy(normalize(text))
	switch candidate {
	case UntrackedAsk, UntrackedDelete, UntrackedKeep:
		*policy = candidate
		return nil
	default:
		return fmt.Errorf(unsupportedUntrackedPolicyTemplateConstant, string(text))
	}
}

// ClonePolicy decides whether repositories without a local directory are cloned.
type ClonePolicy string

// Clone policies.
const (
	CloneAsk  ClonePolicy = ClonePolicy(policyAskConstant)
	CloneAll  ClonePolicy = ClonePolicy(policyAllConstant)
	CloneNone ClonePolicy = ClonePolicy(policyNoneConstant)
)

// ClonePolicyChoices lists the accepted textual values.
func ClonePolicyChoices() []string {
	return []string{policyAskConstant, policyAllConstant, policyNoneConstant}
}

// UnmarshalText validates a textual clone policy.
func (policy *ClonePolicy) UnmarshalText(text []byte) error {
	candidate := ClonePolicy(normalize(text))
	switch candidate {
	case CloneAsk, CloneAll, CloneNone:
		*policy = candidate
		return nil
	default:
		return fmt.Errorf(unsupportedClonePolicyTemplateConstant, string(text))
	}
}

// UnmatchedPolicy decides what happens to a local clone whose repository is excluded by filter rules.
type UnmatchedPolicy string

// Unmatched policies.
const (
	UnmatchedIgnore UnmatchedPolicy = UnmatchedPolicy(policyIgnoreConstant)
	UnmatchedDelete UnmatchedPolicy = UnmatchedPolicy(policyDeleteConstant)
)

// UnmatchedPolicyChoices lists the accepted textual values.
func UnmatchedPolicyChoices() []string {
	return []string{policyIgnoreConstant, policyDeleteConstant}
}

// UnmarshalText validates a textual unmatched policy.
func (policy *UnmatchedPolicy) UnmarshalText(text []byte) error {
	candidate := UnmatchedPolicy(normalize(text))
	switch candidate {
	case UnmatchedIgnore, UnmatchedDelete:
		*policy = candidate
		return nil
	default:
		return fmt.Errorf(unsupportedUnmatchedPolicyTemplateConstant, string(text))
	}
}

func normalize(text []byte) string {
	return strings.ToLower(strings.TrimSpace(string(text)))
}
