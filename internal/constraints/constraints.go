// Package constraints analyzes a user question for implicit and explicit
// agent-behavior requirements: how many distinct searches are expected,
// whether citations must be opened before finalizing, whether an exact
// quote is demanded, and so on. The validator (internal/validate) uses the
// resulting Constraints to decide whether the agent has done enough work
// before accepting a Final action.
package constraints

import (
	"regexp"
	"strconv"
	"strings"
)

// Constraints holds the requirements extracted from a user prompt. Analyze
// never fails; the zero value already represents the most permissive
// (default) set of requirements.
type Constraints struct {
	// MinSearches is the lower bound on distinct search_docs queries.
	MinSearches int
	// RequiredSearchTopics lists quoted/named topics pulled from the prompt.
	// Informational only — the validator does not enforce them verbatim.
	RequiredSearchTopics []string
	// MinOpenCitations is the lower bound on distinct chunks opened via
	// open_citation before a Final may be accepted.
	MinOpenCitations int
	// RequiresExactQuote is true when the prompt demands a verbatim
	// quotation (e.g. "the exact SQL statement").
	RequiresExactQuote bool
	// ExactQuoteIndicators names the categories of text that must be quoted
	// verbatim (e.g. "SQL statement", "Redirect URI").
	ExactQuoteIndicators []string
	// RequiresConflictResolution is true when the prompt asks the agent to
	// resolve contradictions between sources.
	RequiresConflictResolution bool
	// ConflictResolutionRule is one of "newest", "priority", "specific", or
	// empty when a rule was detected but not named.
	ConflictResolutionRule string
	// RequiredSections lists section names the answer must include.
	RequiredSections []string
	// RequiresInsufficiencyDisclosure is true when the prompt asks the agent
	// to explicitly call out missing information.
	RequiresInsufficiencyDisclosure bool
	// IsComplexQuery drives the oracle token budget (default vs complex).
	IsComplexQuery bool
}

const defaultMinSearches = 1

// Patterns for detecting search requirements. Order matters: the
// numeric-first patterns must be tried before the keyword-only ones so that
// "(at least 3 tool calls)" yields MinSearches=3 rather than the
// keyword-default of 2.
var separateSearchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(at\s+least\s+(\d+)\s+tool\s+call`),
	regexp.MustCompile(`(?i)at\s+least\s+(\d+)\s+(?:tool\s+)?(?:call|search)`),
	regexp.MustCompile(`(?i)(\d+)\s+(?:tool\s+)?(?:calls?|searches)`),
	regexp.MustCompile(`(?i)separate\s+(?:tool\s+)?search(?:es)?`),
	regexp.MustCompile(`(?i)search\s+(?:for\s+)?(?:each|separately|individually)`),
	regexp.MustCompile(`(?i)multiple\s+search(?:es)?`),
}

// topicQuotePatterns extract quoted topic spans; order is double, single,
// backtick.
var topicQuotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]+)"`),
	regexp.MustCompile(`'([^']+)'`),
	regexp.MustCompile("`([^`]+)`"),
}

var openCitationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)open\s+(?:the\s+)?(?:top\s+)?(\d+)\s+citation`),
	regexp.MustCompile(`(?i)open_citation.*?at\s+least\s+(\d+)`),
	regexp.MustCompile(`(?i)at\s+least\s+(\w+)\s+citations?`),
	regexp.MustCompile(`(?i)must\s+(?:call\s+)?open_citation`),
	regexp.MustCompile(`(?i)retrieve\s+(?:full\s+)?text`),
	regexp.MustCompile(`(?i)read\s+(?:the\s+)?(?:full|detailed|complete)\s+(?:text|content|chunk)`),
}

var wordToNum = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var exactQuotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)exact\s+(?:sql\s+)?(?:statement|query|line|text|quote)`),
	regexp.MustCompile(`(?i)quote\s+(?:one|the)\s+exact`),
	regexp.MustCompile(`(?i)verbatim`),
	regexp.MustCompile(`(?i)word[- ]for[- ]word`),
	regexp.MustCompile(`(?i)exact\s+(?:redirect\s+)?(?:uri|url)`),
	regexp.MustCompile(`(?i)copy\s+(?:the\s+)?exact`),
}

type quoteTypePattern struct {
	re   *regexp.Regexp
	name string
}

var quoteTypePatterns = []quoteTypePattern{
	{regexp.MustCompile(`(?i)sql\s+statement`), "SQL statement"},
	{regexp.MustCompile(`(?i)redirect\s+uri`), "Redirect URI"},
	{regexp.MustCompile(`(?i)url\s+(?:line|config)`), "URL configuration"},
	{regexp.MustCompile(`(?i)command(?:\s+line)?`), "command"},
	{regexp.MustCompile(`(?i)config(?:uration)?\s+(?:line|entry)`), "configuration"},
}

type conflictPattern struct {
	re   *regexp.Regexp
	rule string
}

var conflictResolutionPatterns = []conflictPattern{
	{regexp.MustCompile(`(?i)newest[- ]?dated?\s+(?:doc|document|note)`), "newest"},
	{regexp.MustCompile(`(?i)most\s+recent`), "newest"},
	{regexp.MustCompile(`(?i)latest\s+(?:version|doc)`), "newest"},
	{regexp.MustCompile(`(?i)highest\s+priority`), "priority"},
	{regexp.MustCompile(`(?i)most\s+specific`), "specific"},
	{regexp.MustCompile(`(?i)resolve\s+conflicts?`), ""},
}

var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sections?:\s*([^.]+)`),
	regexp.MustCompile(`(?i)include\s+(?:the\s+following\s+)?sections?:\s*([^.]+)`),
	regexp.MustCompile(`(?i)output\s+(?:should\s+)?(?:have|include)\s+([^.]+)`),
}

var insufficiencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)insufficient\s+documentation`),
	regexp.MustCompile(`(?i)explicitly\s+(?:say|state|indicate)\s+(?:when\s+)?(?:information\s+is\s+)?missing`),
	regexp.MustCompile(`(?i)if\s+(?:not\s+found|missing|unavailable)`),
	regexp.MustCompile(`(?i)list\s+what\s+(?:was\s+)?(?:searched|tried)`),
}

var complexKeywords = []string{
	"runbook", "guide", "comprehensive", "authoritative", "detailed", "step-by-step", "checklist",
}

var listSplitPattern = regexp.MustCompile(`,\s*(?:and\s+)?|\s+and\s+`)

// ExtractQuotedTopics returns double/single/backtick-quoted spans of length
// 3..50 found in text, in the order they were matched by each quote style.
func ExtractQuotedTopics(text string) []string {
	var topics []string
	for _, pat := range topicQuotePatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			topic := strings.TrimSpace(m[1])
			if len(topic) >= 3 && len(topic) <= 50 {
				topics = append(topics, topic)
			}
		}
	}
	return topics
}

// countTopicIndicators heuristically counts how many distinct search topics
// are implied by the prompt: quoted strings, or a comma/"and"-separated list
// following the word "search".
func countTopicIndicators(lower string) int {
	count := len(ExtractQuotedTopics(lower))

	searchListPattern := regexp.MustCompile(`(?i)search\s+(?:for\s+)?(.+?)(?:\.|$)`)
	if m := searchListPattern.FindStringSubmatch(lower); m != nil {
		parts := listSplitPattern.Split(m[1], -1)
		n := 0
		for _, p := range parts {
			if len(strings.TrimSpace(p)) > 3 {
				n++
			}
		}
		if n > count {
			count = n
		}
	}
	return count
}

// Analyze extracts implicit and explicit constraints from a user question.
// It never fails: an empty or unrecognized prompt yields the defaults
// (MinSearches=1, everything else empty/false).
func Analyze(question string) Constraints {
	c := Constraints{MinSearches: defaultMinSearches}
	lower := strings.ToLower(question)

	// 1. Search requirements.
	for _, pat := range separateSearchPatterns {
		m := pat.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil {
				c.MinSearches = max(2, n)
			} else {
				c.MinSearches = 2
			}
		} else {
			c.MinSearches = 2
		}
		break
	}

	c.RequiredSearchTopics = ExtractQuotedTopics(question)

	if topicCount := countTopicIndicators(lower); topicCount > 1 {
		c.MinSearches = max(c.MinSearches, min(topicCount, 5))
	}

	// 2. open_citation requirements.
	for _, pat := range openCitationPatterns {
		m := pat.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil {
				c.MinOpenCitations = max(1, n)
			} else if n, ok := wordToNum[m[1]]; ok {
				c.MinOpenCitations = n
			} else {
				c.MinOpenCitations = 1
			}
		} else {
			c.MinOpenCitations = 1
		}
		break
	}

	// 3. Exact quote requirements.
	for _, pat := range exactQuotePatterns {
		if pat.MatchString(lower) {
			c.RequiresExactQuote = true
			c.MinOpenCitations = max(c.MinOpenCitations, 1)
			break
		}
	}
	for _, qt := range quoteTypePatterns {
		if qt.re.MatchString(lower) {
			c.ExactQuoteIndicators = append(c.ExactQuoteIndicators, qt.name)
		}
	}

	// 4. Conflict resolution.
	for _, cp := range conflictResolutionPatterns {
		if cp.re.MatchString(lower) {
			c.RequiresConflictResolution = true
			if cp.rule != "" {
				c.ConflictResolutionRule = cp.rule
			}
			break
		}
	}

	// 5. Required sections.
	for _, pat := range sectionPatterns {
		m := pat.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		parts := listSplitPattern.Split(m[1], -1)
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				c.RequiredSections = append(c.RequiredSections, s)
			}
		}
		break
	}

	// 6. Insufficiency disclosure.
	for _, pat := range insufficiencyPatterns {
		if pat.MatchString(lower) {
			c.RequiresInsufficiencyDisclosure = true
			break
		}
	}

	// 7. Complexity.
	if len(c.RequiredSections) > 0 {
		c.IsComplexQuery = true
	}
	if c.MinSearches > 2 {
		c.IsComplexQuery = true
	}
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			c.IsComplexQuery = true
			break
		}
	}

	return c
}

// Summarize renders a human-readable bullet list of active constraints,
// used both in the per-iteration prompt (§4.6) and in reprompt messages.
func Summarize(c Constraints) string {
	var parts []string

	if c.MinSearches > 1 {
		parts = append(parts, "Perform at least "+strconv.Itoa(c.MinSearches)+" separate searches")
	}
	if len(c.RequiredSearchTopics) > 0 {
		n := len(c.RequiredSearchTopics)
		if n > 5 {
			n = 5
		}
		quoted := make([]string, n)
		for i := 0; i < n; i++ {
			quoted[i] = `"` + c.RequiredSearchTopics[i] + `"`
		}
		parts = append(parts, "Search for these topics: "+strings.Join(quoted, ", "))
	}
	if c.MinOpenCitations > 0 {
		parts = append(parts, "Open at least "+strconv.Itoa(c.MinOpenCitations)+" citation(s) to read full text")
	}
	if c.RequiresExactQuote {
		if len(c.ExactQuoteIndicators) > 0 {
			parts = append(parts, "Quote exact text for: "+strings.Join(c.ExactQuoteIndicators, ", "))
		} else {
			parts = append(parts, "Include verbatim quotes from the documents")
		}
	}
	if c.RequiresConflictResolution {
		rule := c.ConflictResolutionRule
		if rule == "" {
			rule = "explicit rule"
		}
		parts = append(parts, "Resolve conflicts using "+rule)
	}
	if c.RequiresInsufficiencyDisclosure {
		parts = append(parts, `Explicitly state "Insufficient documentation" where information is missing`)
	}

	if len(parts) == 0 {
		return "No special constraints detected."
	}
	return "REQUIREMENTS:\n- " + strings.Join(parts, "\n- ")
}
