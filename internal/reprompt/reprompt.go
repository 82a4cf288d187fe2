// Package reprompt turns a validator rejection into a corrective message
// injected into the next oracle call (spec.md §4.8), grounded on
// apps/agent/validator.py's generate_reprompt_message.
package reprompt

import (
	"fmt"
	"strings"

	"github.com/docuqa/agent-runtime/internal/validate"
)

// Build renders a correction message from the validator's errors and the
// remaining tool budget. When budget is exhausted it instructs the model to
// emit a Final with explicit insufficiencies instead of another tool call.
func Build(result validate.Result, remainingToolCalls int) string {
	var b strings.Builder

	b.WriteString("VALIDATION FAILED\n")
	for _, e := range result.Errors {
		fmt.Fprintf(&b, "- %s: %s\n", e.Code, e.Text)
	}
	fmt.Fprintf(&b, "\nRemaining tool calls: %d\n\n", remainingToolCalls)

	if remainingToolCalls > 0 {
		b.WriteString("Issue a TOOL_CALL action to address the errors above. Do not emit a FINAL action yet.")
	} else {
		b.WriteString("No tool calls remain. Emit a FINAL action now, including an explicit \"insufficiencies\" " +
			"array enumerating each requirement that could not be satisfied and why.")
	}

	return b.String()
}
