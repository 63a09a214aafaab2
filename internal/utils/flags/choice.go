// Package flags formats help text for enumerated command-line options.
package flags

import (
	"fmt"
	"strings"
)

const (
	choiceSeparatorConstant      = "|"
	choiceUsageTemplateConstant  = "%s: %s (default %s)"
	choiceUsageNoDefaultTemplate = "%s: %s"
)

// ChoiceUsage describes an enumerated flag as "description: a|b|c (default a)". The default is omitted when
// it is empty or not one of the choices.
func ChoiceUsage(description string, defaultChoice string, choices []string) string {
	trimmedDescription := strings.TrimSpace(description)
	joinedChoices := strings.Join(choices, choiceSeparatorConstant)
	for _, choice := range choices {
		if choice == defaultChoice && len(defaultChoice) > 0 {
			return fmt.Sprintf(choiceUsageTemplateConstant, trimmedDescription, joinedChoices, defaultChoice)
		}
	}
	return fmt.Sprintf(choiceUsageNoDefaultTemplate, trimmedDescription, joinedChoices)
}
