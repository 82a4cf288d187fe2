// Package plan generates a short, imperative procedure from the user
// question before the agent begins its tool loop. Grounded on
// apps/agent/planner.py: it asks the oracle for a JSON array of steps,
// tolerates several looser formats the model might emit instead, and always
// returns a usable plan — falling back to a canonical three-step plan when
// nothing usable can be parsed.
package plan

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/docuqa/agent-runtime/internal/oracle"
)

const (
	minSteps = 2
	maxSteps = 5

	minStepLength = 5
	maxStepLength = 500

	planTemperature = 0.3
	planMaxTokens   = 300
)

// Plan is the short procedure the executor follows, surfaced in every
// iteration prompt as "PLAN:" / "CURRENT STEP: i of N" (spec §4.6).
type Plan struct {
	Steps      []string
	IsFallback bool
}

// DefaultPlan is the canonical fallback used whenever the oracle cannot be
// coerced into a usable plan.
var DefaultPlan = Plan{
	Steps: []string{
		"Search documents for relevant information",
		"Open the best matching citations",
		"Synthesize answer with citations",
	},
	IsFallback: true,
}

const systemPrompt = `You are a planning assistant for a document question-answering agent.
Given the user's question, produce a short plan of 2 to 5 concrete, imperative steps the
agent should take using its two tools (search_docs, open_citation) to answer it.

Respond with ONLY a JSON array of strings, e.g.:
["Search for X", "Open the best matching citation", "Synthesize the answer"]

Do not include any other text, explanation, or markdown formatting.`

// Generate asks the oracle for a plan for question and parses the reply,
// falling back to DefaultPlan on any failure. It never returns an error —
// a plan is always produced.
func Generate(ctx context.Context, client oracle.Client, question string) Plan {
	messages := []oracle.Message{
		{Role: oracle.RoleSystem, Content: systemPrompt},
		{Role: oracle.RoleUser, Content: question},
	}

	reply, err := client.Chat(ctx, messages, planTemperature, planMaxTokens)
	if err != nil {
		return DefaultPlan
	}

	steps := parseResponse(reply)
	if p, ok := validate(steps); ok {
		return p
	}
	return DefaultPlan
}

var (
	jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
	numberedPattern  = regexp.MustCompile(`^\s*\d+[.)]\s*(.+)$`)
	bulletPattern    = regexp.MustCompile(`^\s*[-*•]\s*(.+)$`)
	metaPreambles    = []string{"here is", "here's", "plan:", "i will", "sure,", "my plan"}
)

// parseResponse tries, in order: a JSON array, a numbered list, a bullet
// list, then a plain line-by-line split with meta-preamble lines dropped.
func parseResponse(reply string) []string {
	if m := jsonArrayPattern.FindString(reply); m != "" {
		var arr []string
		if err := json.Unmarshal([]byte(m), &arr); err == nil && len(arr) > 0 {
			return arr
		}
	}

	lines := strings.Split(reply, "\n")

	if steps := matchLines(lines, numberedPattern); len(steps) > 0 {
		return steps
	}
	if steps := matchLines(lines, bulletPattern); len(steps) > 0 {
		return steps
	}

	var steps []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		isPreamble := false
		for _, p := range metaPreambles {
			if strings.HasPrefix(lower, p) {
				isPreamble = true
				break
			}
		}
		if isPreamble {
			continue
		}
		steps = append(steps, trimmed)
	}
	return steps
}

func matchLines(lines []string, pat *regexp.Regexp) []string {
	var steps []string
	for _, line := range lines {
		if m := pat.FindStringSubmatch(line); m != nil {
			steps = append(steps, strings.TrimSpace(m[1]))
		}
	}
	return steps
}

// validate trims, drops empty/too-short steps, clips overly long ones, and
// enforces the 2..5 step bound. Returns ok=false when fewer than minSteps
// usable steps remain.
func validate(raw []string) (Plan, bool) {
	var steps []string
	for _, s := range raw {
		trimmed := strings.TrimSpace(s)
		if len(trimmed) < minStepLength {
			continue
		}
		if len(trimmed) > maxStepLength {
			trimmed = trimmed[:maxStepLength-len("…")] + "…"
		}
		steps = append(steps, trimmed)
		if len(steps) == maxSteps {
			break
		}
	}
	if len(steps) < minSteps {
		return Plan{}, false
	}
	return Plan{Steps: steps, IsFallback: false}, true
}
