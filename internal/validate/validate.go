// Package validate implements the validator gate (spec.md §4.9), grounded
// on apps/agent/validator.py. It runs a fixed set of independent checks
// against a proposed Final answer; errors invalidate the answer, warnings
// are surfaced but do not block acceptance.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docuqa/agent-runtime/internal/agentstate"
	"github.com/docuqa/agent-runtime/internal/constraints"
)

// Code names a specific check, used as a stable identifier in error/warning
// messages and in tests.
type Code string

const (
	CodeEmptyAnswer               Code = "EMPTY_ANSWER"
	CodeUnexplainedDontKnow       Code = "UNEXPLAINED_DONT_KNOW"
	CodeMinSearchesUnmet          Code = "MIN_SEARCHES_UNMET"
	CodeMinOpenCitationsUnmet     Code = "MIN_OPEN_CITATIONS_UNMET"
	CodeHallucinatedCitation      Code = "HALLUCINATED_CITATION"
	CodeUngroundedClaimNoContext  Code = "UNGROUNDED_CLAIM_NO_CONTEXT"
	CodeUngroundedClaim           Code = "UNGROUNDED_CLAIM"
	CodeExactQuoteMissingOpens    Code = "EXACT_QUOTE_REQUIRES_OPEN_CITATION"
	CodeExactQuoteNotFound        Code = "EXACT_QUOTE_NOT_FOUND"
	CodeExactQuoteNotGrounded     Code = "EXACT_QUOTE_NOT_GROUNDED"
	CodeInsufficiencyNotDisclosed Code = "INSUFFICIENCY_NOT_DISCLOSED"
)

// Message is one validation finding.
type Message struct {
	Code Code
	Text string
}

// Result is the validator's verdict. Errors invalidate the proposed Final;
// Warnings never do.
type Result struct {
	IsValid  bool
	Errors   []Message
	Warnings []Message
}

func (r *Result) addError(code Code, text string) {
	r.Errors = append(r.Errors, Message{Code: code, Text: text})
}

func (r *Result) addWarning(code Code, text string) {
	r.Warnings = append(r.Warnings, Message{Code: code, Text: text})
}

// suspiciousTerms is operational-hallucination bait: specific destructive or
// advisory-sounding phrases a model might emit from its training data rather
// than from the actually-retrieved corpus. Grounded 1:1 on validator.py's
// SUSPICIOUS_TERMS list.
var suspiciousTerms = []string{
	"pg_reindex", "reindex", "vacuum", "vacuum analyze", "analyze table",
	"kubectl", "helm", "docker compose", "systemctl", "ansible",
	"drop table", "truncate", "alter table", "create index",
	"according to best practices", "as recommended", "typically",
}

var dontKnowPatterns = []string{
	"i don't know", "i cannot find", "no relevant information",
}

var insufficiencyPhrases = []string{
	"insufficient documentation", "not found in documents",
	"missing from documentation", "could not find",
}

var bracketMarkerPattern = regexp.MustCompile(`\[(\d+)\]`)

var (
	fencedCodePattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	quotedSpanPattern = regexp.MustCompile(`"([^"]{10,})"`)
)

// Validate runs every independent check and accumulates results. answer is
// the oracle's proposed Final.answer; bracketRefs are explicit citation
// numbers the Final claimed to use (e.g. via used_citations), in addition to
// whatever [n] markers appear in the text itself.
func Validate(answer string, bracketRefs []int, c constraints.Constraints, snap agentstate.Snapshot, corpus string) Result {
	r := Result{IsValid: true}

	checkNonEmptyAnswer(&r, answer)
	checkUnexplainedDontKnow(&r, answer, snap)
	checkMinSearches(&r, c, snap)
	checkMinOpens(&r, c, snap)
	checkCitationReferences(&r, answer, bracketRefs, snap)
	checkGroundedClaims(&r, answer, corpus)
	checkExactQuote(&r, answer, c, snap, corpus)
	checkInsufficiencyDisclosure(&r, answer, c, snap)

	r.IsValid = len(r.Errors) == 0
	return r
}

func checkNonEmptyAnswer(r *Result, answer string) {
	if strings.TrimSpace(answer) == "" {
		r.addError(CodeEmptyAnswer, "the answer is empty")
	}
}

func checkUnexplainedDontKnow(r *Result, answer string, snap agentstate.Snapshot) {
	if len(answer) >= 100 {
		return
	}
	lower := strings.ToLower(answer)
	hadSources := snap.DistinctSearches > 0 || snap.DistinctOpenedChunks > 0
	if !hadSources {
		return
	}
	for _, p := range dontKnowPatterns {
		if strings.Contains(lower, p) {
			r.addWarning(CodeUnexplainedDontKnow, "answer declines to answer despite retrieved sources")
			return
		}
	}
}

func checkMinSearches(r *Result, c constraints.Constraints, snap agentstate.Snapshot) {
	if c.MinSearches <= 1 {
		return
	}
	if snap.DistinctSearches >= c.MinSearches {
		return
	}
	shortfall := c.MinSearches - snap.DistinctSearches
	topics := c.RequiredSearchTopics
	if len(topics) > 3 {
		topics = topics[:3]
	}
	msg := fmt.Sprintf("performed %d of %d required searches (%d short)", snap.DistinctSearches, c.MinSearches, shortfall)
	if len(topics) > 0 {
		msg += "; expected topics: " + strings.Join(topics, ", ")
	}
	r.addError(CodeMinSearchesUnmet, msg)
}

func checkMinOpens(r *Result, c constraints.Constraints, snap agentstate.Snapshot) {
	if c.MinOpenCitations <= 0 {
		return
	}
	if snap.DistinctOpenedChunks >= c.MinOpenCitations {
		return
	}
	r.addError(CodeMinOpenCitationsUnmet, fmt.Sprintf(
		"opened %d of %d required citations", snap.DistinctOpenedChunks, c.MinOpenCitations))
}

func checkCitationReferences(r *Result, answer string, bracketRefs []int, snap agentstate.Snapshot) {
	maxCitation := 0
	for _, c := range snap.AllCitations {
		if c > maxCitation {
			maxCitation = c
		}
	}

	referenced := map[int]bool{}
	for _, m := range bracketMarkerPattern.FindAllStringSubmatch(answer, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			referenced[n] = true
		}
	}
	for _, n := range bracketRefs {
		referenced[n] = true
	}

	for n := range referenced {
		if n < 1 || n > maxCitation {
			r.addWarning(CodeHallucinatedCitation, fmt.Sprintf("citation marker [%d] does not correspond to any opened citation", n))
		}
	}
}

func checkGroundedClaims(r *Result, answer string, corpus string) {
	lowerAnswer := strings.ToLower(answer)
	lowerCorpus := strings.ToLower(corpus)

	var present []string
	for _, term := range suspiciousTerms {
		if strings.Contains(lowerAnswer, term) {
			present = append(present, term)
		}
	}
	if len(present) == 0 {
		return
	}

	if strings.TrimSpace(lowerCorpus) == "" {
		r.addError(CodeUngroundedClaimNoContext, "answer makes operational claims ("+strings.Join(present, ", ")+") with no retrieved context to ground them")
		return
	}

	var ungrounded []string
	for _, term := range present {
		if !strings.Contains(lowerCorpus, term) {
			ungrounded = append(ungrounded, term)
		}
	}
	if len(ungrounded) > 0 {
		if len(ungrounded) > 3 {
			ungrounded = ungrounded[:3]
		}
		r.addError(CodeUngroundedClaim, "answer contains claims not found in retrieved documents: "+strings.Join(ungrounded, ", "))
	}
}

func checkExactQuote(r *Result, answer string, c constraints.Constraints, snap agentstate.Snapshot, corpus string) {
	if !c.RequiresExactQuote {
		return
	}
	if snap.DistinctOpenedChunks == 0 {
		r.addError(CodeExactQuoteMissingOpens, "exact quote required but no citations were opened")
		return
	}

	spans := extractQuotedSpans(answer)
	if len(spans) == 0 {
		r.addWarning(CodeExactQuoteNotFound, "no quoted or fenced span found in the answer despite an exact-quote requirement")
		return
	}

	for _, span := range spans {
		if strings.Contains(corpus, span) || strings.Contains(collapseWhitespace(corpus), collapseWhitespace(span)) {
			return
		}
	}
	r.addWarning(CodeExactQuoteNotGrounded, "quoted span in the answer does not appear verbatim in the opened documents")
}

func extractQuotedSpans(answer string) []string {
	var spans []string
	for _, m := range fencedCodePattern.FindAllString(answer, -1) {
		spans = append(spans, strings.Trim(m, "`"))
	}
	for _, m := range inlineCodePattern.FindAllStringSubmatch(answer, -1) {
		spans = append(spans, m[1])
	}
	for _, m := range quotedSpanPattern.FindAllStringSubmatch(answer, -1) {
		spans = append(spans, m[1])
	}
	return spans
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func checkInsufficiencyDisclosure(r *Result, answer string, c constraints.Constraints, snap agentstate.Snapshot) {
	if !c.RequiresInsufficiencyDisclosure {
		return
	}
	if len(snap.Insufficiency) == 0 {
		return
	}
	lower := strings.ToLower(answer)
	for _, p := range insufficiencyPhrases {
		if strings.Contains(lower, p) {
			return
		}
	}
	r.addWarning(CodeInsufficiencyNotDisclosed, "known documentation gaps were not disclosed in the answer")
}
