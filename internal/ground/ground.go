// Package ground implements the Citation Grounder (spec.md §4.10): it maps
// bracket markers and explicit citation references in an accepted Final to
// chunks that were actually retrieved during the run, stripping anything
// that cannot be verified.
package ground

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/docuqa/agent-runtime/internal/action"
	"github.com/docuqa/agent-runtime/internal/agentstate"
)

// Citation is a verified pointer into an owned document, attached to the
// final answer.
type Citation struct {
	DocID      string
	ChunkID    string
	ChunkIndex int
	Snippet    string
	Filename   string
	Score      float64
}

const snippetLength = 200

var bracketMarkerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Ground produces the cleaned answer text and the verified citation list for
// an accepted Final. state must already contain every opened chunk and
// search hit recorded during the run.
func Ground(final action.Action, state *agentstate.AgentState) (string, []Citation) {
	byID := make(map[string]agentstate.OpenedChunk, len(state.OpenedChunks))
	for _, c := range state.OpenedChunks {
		byID[c.DocID+"/"+c.ChunkID] = c
	}

	used := make(map[int]bool)
	var citations []Citation

	for _, uc := range final.UsedCitations {
		chunk, ok := byID[uc.DocID+"/"+uc.ChunkID]
		if !ok || used[chunk.Citation] {
			continue
		}
		used[chunk.Citation] = true
		citations = append(citations, fromOpenedChunk(chunk))
	}

	answer := final.Answer
	answer = replaceBracketMarkers(answer, func(n int) bool {
		if used[n] {
			return true // already grounded via used_citations; keep marker
		}
		src, ok := state.GroundFor(n)
		if !ok {
			return false // hallucinated; strip
		}
		used[n] = true
		citations = append(citations, fromGroundSource(n, src, state))
		return true
	})

	if len(citations) == 0 && len(state.SearchHits) > 0 && state.DistinctOpenedChunks() == 0 {
		citations = fallbackFromSearchHits(state.SearchHits)
	}

	return collapseSpaces(answer), citations
}

// replaceBracketMarkers rewrites [n] markers in text: keep returns true to
// retain the marker, false to strip it (hallucinated reference).
func replaceBracketMarkers(text string, keep func(n int) bool) string {
	return bracketMarkerPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := bracketMarkerPattern.FindStringSubmatch(match)
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			return ""
		}
		if keep(n) {
			return match
		}
		return ""
	})
}

func fromOpenedChunk(c agentstate.OpenedChunk) Citation {
	snippet := c.Text
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}
	return Citation{DocID: c.DocID, ChunkID: c.ChunkID, ChunkIndex: c.ChunkIndex, Snippet: snippet, Filename: c.Filename}
}

func fromGroundSource(citationNum int, src agentstate.GroundSource, state *agentstate.AgentState) Citation {
	snippet := src.Text
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}
	for _, c := range state.OpenedChunks {
		if c.Citation == citationNum {
			return Citation{DocID: c.DocID, ChunkID: c.ChunkID, ChunkIndex: c.ChunkIndex, Snippet: snippet, Filename: c.Filename}
		}
	}
	return Citation{DocID: src.DocID, ChunkID: src.ChunkID, Snippet: snippet}
}

const maxFallbackCitations = 3

// fallbackFromSearchHits is used only when no chunks were ever opened
// (spec §4.10 step 5): the globally top-scoring search hits become
// citations in place of verified opened chunks. hits is the flat
// concatenation of every distinct search_docs call the run made, so it
// must be sorted by Score before truncating — otherwise "top 3" would
// just mean "first query's top 3" on any run with more than one search.
func fallbackFromSearchHits(hits []agentstate.SearchHit) []Citation {
	ranked := make([]agentstate.SearchHit, len(hits))
	copy(ranked, hits)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	n := len(ranked)
	if n > maxFallbackCitations {
		n = maxFallbackCitations
	}
	out := make([]Citation, n)
	for i := 0; i < n; i++ {
		h := ranked[i]
		out[i] = Citation{DocID: h.DocID, ChunkID: h.ChunkID, ChunkIndex: h.ChunkIndex, Snippet: h.Snippet, Filename: h.Filename, Score: h.Score}
	}
	return out
}

var multiSpacePattern = regexp.MustCompile(`[ \t]{2,}`)

func collapseSpaces(s string) string {
	return multiSpacePattern.ReplaceAllString(s, " ")
}
