package decision

import "context"

// FixedPolicy answers every question of a kind with the same configured value.
type FixedPolicy struct {
	Delete bool
	Keep   bool
	Clone  bool
}

// AlwaysYes returns a FixedPolicy confirming every question.
func AlwaysYes() FixedPolicy {
	return FixedPolicy{Delete: true, Keep: true, Clone: true}
}

// AlwaysNo returns a FixedPolicy declining every question.
func AlwaysNo() FixedPolicy {
	return FixedPolicy{}
}

// ConfirmDelete returns the configured delete answer.
func (policy FixedPolicy) ConfirmDelete(executionContext context.Context, _ string, _ string) (bool, error) {
	return answer(executionContext, policy.Delete)
}

// ConfirmKeep returns the configured keep answer.
func (policy FixedPolicy) ConfirmKeep(executionContext context.Context, _ string, _ string) (bool, error) {
	return answer(executionContext, policy.Keep)
}

// ConfirmClone returns the configured clone answer.
func (policy FixedPolicy) ConfirmClone(executionContext context.Context, _ string, _ string) (bool, error) {
	return answer(executionContext, policy.Clone)
}

func answer(executionContext context.Context, configured bool) (bool, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return false, contextError
	}
	return configured, nil
}
