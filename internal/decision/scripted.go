package decision

import (
	"context"
	"fmt"
	"sync"
)

const unscriptedQuestionTemplateConstant = "no scripted answer for %s %s"

// QuestionKind identifies the question being asked.
type QuestionKind string

// Question kinds.
const (
	QuestionDelete QuestionKind = "delete"
	QuestionKeep   QuestionKind = "keep"
	QuestionClone  QuestionKind = "clone"
)

// Question identifies one prompt about one repository.
type Question struct {
	Kind QuestionKind
	Name string
}

// Answer is a scripted response; a non-nil Err simulates a failed prompt.
type Answer struct {
	Confirm bool
	Err     error
}

// UnscriptedQuestionError reports a question the script did not anticipate.
type UnscriptedQuestionError struct {
	Question Question
}

// Error describes the unexpected question.
func (unscriptedError UnscriptedQuestionError) Error() string {
	return fmt.Sprintf(unscriptedQuestionTemplateConstant, unscriptedError.Question.Kind, unscriptedError.Question.Name)
}

// Scripted answers from a fixed table and records every question asked, in order.
type Scripted struct {
	mutex   sync.Mutex
	answers map[Question]Answer
	asked   []Question
}

// NewScripted constructs a Scripted provider from the answer table.
func NewScripted(answers map[Question]Answer) *Scripted {
	copied := make(map[Question]Answer, len(answers))
	for question, scriptedAnswer := range answers {
		copied[question] = scriptedAnswer
	}
	return &Scripted{answers: copied}
}

// ConfirmDelete answers the scripted delete question for name.
func (provider *Scripted) ConfirmDelete(executionContext context.Context, name string, _ string) (bool, error) {
	return provider.respond(executionContext, Question{Kind: QuestionDelete, Name: name})
}

// ConfirmKeep answers the scripted keep question for name.
func (provider *Scripted) ConfirmKeep(executionContext context.Context, name string, _ string) (bool, error) {
	return provider.respond(executionContext, Question{Kind: QuestionKeep, Name: name})
}

// ConfirmClone answers the scripted clone question for name.
func (provider *Scripted) ConfirmClone(executionContext context.Context, name string, _ string) (bool, error) {
	return provider.respond(executionContext, Question{Kind: QuestionClone, Name: name})
}

// Asked returns the questions asked so far.
func (provider *Scripted) Asked() []Question {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	return append([]Question(nil), provider.asked...)
}

func (provider *Scripted) respond(executionContext context.Context, question Question) (bool, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return false, contextError
	}

	provider.mutex.Lock()
	defer provider.mutex.Unlock()

	provider.asked = append(provider.asked, question)
	scriptedAnswer, exists := provider.answers[question]
	if !exists {
		return false, UnscriptedQuestionError{Question: question}
	}
	if scriptedAnswer.Err != nil {
		return false, scriptedAnswer.Err
	}
	return scriptedAnswer.Confirm, nil
}
