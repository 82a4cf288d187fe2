// Package action parses the oracle's free-form chat reply into a strict,
// tagged-union Action the executor can dispatch on. Real models routinely
// wrap JSON in prose, omit the discriminator field, or emit malformed JSON
// outright; Parse tolerates all three rather than wasting tool budget on
// parse retries (spec.md §4.3).
package action

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind discriminates the parsed Action.
type Kind int

const (
	// KindInvalid marks a reply that could not be interpreted as either a
	// tool call or a final answer.
	KindInvalid Kind = iota
	KindToolCall
	KindFinal
)

// UsedCitation references one citation an oracle claims its final answer
// relies on.
type UsedCitation struct {
	DocID      string `json:"docId"`
	ChunkID    string `json:"chunkId"`
	ChunkIndex int    `json:"chunkIndex"`
}

// InsufficiencyClaim is a documentation gap the oracle reports in a Final.
type InsufficiencyClaim struct {
	Section      string   `json:"section"`
	Missing      string   `json:"missing"`
	QueriesTried []string `json:"queries_tried"`
}

// Action is the tagged union parsed from one oracle reply.
type Action struct {
	Kind Kind

	// KindToolCall fields.
	Tool  string
	Input map[string]any

	// KindFinal fields.
	Answer          string
	UsedCitations   []UsedCitation
	Insufficiencies []InsufficiencyClaim

	// KindInvalid field.
	Reason string
}

// Invalid builds a KindInvalid action with the given reason.
func Invalid(reason string) Action {
	return Action{Kind: KindInvalid, Reason: reason}
}

var validTools = map[string]bool{
	"search_docs":   true,
	"open_citation": true,
}

// braceSpan finds the first outermost {...} span in s, tolerating nested
// braces and newlines, by tracking brace depth rather than using a regex
// (a naive non-greedy regex cannot balance nested braces correctly).
func braceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't affect depth
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var rawObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Parse extracts a single Action from modelOutput. It never panics; any
// unrecoverable condition is reported as a KindInvalid action.
func Parse(modelOutput string) Action {
	span, ok := braceSpan(modelOutput)
	if !ok {
		return Invalid("no JSON object found in model output")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		// Fall back to a greedy match in case brace-depth tracking missed an
		// oddly quoted span (e.g. unescaped quotes inside a code fence).
		if m := rawObjectPattern.FindString(modelOutput); m != "" && m != span {
			if err2 := json.Unmarshal([]byte(m), &raw); err2 == nil {
				return decode(raw)
			}
		}
		return Invalid("invalid JSON: " + err.Error())
	}

	act := decode(raw)
	if act.Kind == KindInvalid {
		if w := schemaWarning(raw); w != "" {
			act.Reason += " (schema: " + w + ")"
		}
	}
	return act
}

func decode(raw map[string]any) Action {
	typ, _ := raw["type"].(string)

	switch typ {
	case "tool_call":
		return decodeToolCall(raw)
	case "final":
		return decodeFinal(raw)
	case "":
		// Type omitted: infer from structure.
		if _, hasTool := raw["tool"]; hasTool {
			if _, hasInput := raw["input"]; hasInput {
				return decodeToolCall(raw)
			}
		}
		if _, hasAnswer := raw["answer"]; hasAnswer {
			return decodeFinal(raw)
		}
		return Invalid("could not infer action type: no tool_call or final shape recognized")
	default:
		return Invalid("unrecognized action type: " + typ)
	}
}

func decodeToolCall(raw map[string]any) Action {
	tool, _ := raw["tool"].(string)
	if !validTools[tool] {
		return Invalid("tool_call has unknown or missing tool: " + tool)
	}
	input, ok := raw["input"].(map[string]any)
	if !ok {
		return Invalid("tool_call.input must be an object")
	}
	return Action{Kind: KindToolCall, Tool: tool, Input: input}
}

func decodeFinal(raw map[string]any) Action {
	answer, ok := raw["answer"].(string)
	if !ok {
		return Invalid("final.answer must be a string")
	}

	citationsRaw, ok := raw["used_citations"]
	if !ok {
		citationsRaw = raw["citations"] // alias
	}
	used := decodeUsedCitations(citationsRaw)

	insuff := decodeInsufficiencies(raw["insufficiencies"])

	return Action{Kind: KindFinal, Answer: answer, UsedCitations: used, Insufficiencies: insuff}
}

func decodeUsedCitations(v any) []UsedCitation {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]UsedCitation, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		uc := UsedCitation{}
		uc.DocID, _ = m["docId"].(string)
		uc.ChunkID, _ = m["chunkId"].(string)
		if idx, ok := m["chunkIndex"].(float64); ok {
			uc.ChunkIndex = int(idx)
		}
		if uc.DocID == "" && uc.ChunkID == "" {
			continue
		}
		out = append(out, uc)
	}
	return out
}

func decodeInsufficiencies(v any) []InsufficiencyClaim {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]InsufficiencyClaim, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ic := InsufficiencyClaim{}
		ic.Section, _ = m["section"].(string)
		ic.Missing, _ = m["missing"].(string)
		if tried, ok := m["queries_tried"].([]any); ok {
			for _, t := range tried {
				if s, ok := t.(string); ok {
					ic.QueriesTried = append(ic.QueriesTried, s)
				}
			}
		}
		out = append(out, ic)
	}
	return out
}
