package toolsvc

import (
	"strings"

	"github.com/docuqa/agent-runtime/internal/agentstate"
)

const minSubstringLength = 12

// ResolveIdentifiers implements spec §4.4's UUID resolution policy: models
// routinely emit truncated identifiers, so before dispatch we try, in
// order, exact match, unique prefix match, and (for long-enough strings)
// unique substring match against every (docId, chunkId) pair seen in this
// run's search results. If docId resolves but chunkId does not, we fall
// back to the first chunk belonging to that doc.
func ResolveIdentifiers(hits []agentstate.SearchHit, docID, chunkID string) (string, string, bool) {
	docIDs := make([]string, 0, len(hits))
	chunkIDs := make([]string, 0, len(hits))
	seenDoc := map[string]bool{}
	seenChunk := map[string]bool{}
	for _, h := range hits {
		if !seenDoc[h.DocID] {
			docIDs = append(docIDs, h.DocID)
			seenDoc[h.DocID] = true
		}
		if !seenChunk[h.ChunkID] {
			chunkIDs = append(chunkIDs, h.ChunkID)
			seenChunk[h.ChunkID] = true
		}
	}

	resolvedDoc, docOK := resolveOne(docIDs, docID)
	if !docOK {
		return "", "", false
	}

	resolvedChunk, chunkOK := resolveOne(chunkIDs, chunkID)
	if chunkOK {
		return resolvedDoc, resolvedChunk, true
	}

	// Fall back to the first chunk in search results belonging to the
	// resolved doc.
	for _, h := range hits {
		if h.DocID == resolvedDoc {
			return resolvedDoc, h.ChunkID, true
		}
	}
	return "", "", false
}

// resolveOne applies exact/prefix/substring resolution for a single
// identifier against a candidate set.
func resolveOne(candidates []string, id string) (string, bool) {
	if id == "" {
		return "", false
	}
	lowerID := strings.ToLower(id)

	// 1. Exact equality (case-insensitive).
	for _, c := range candidates {
		if strings.EqualFold(c, id) {
			return c, true
		}
	}

	// 2. Unique prefix match.
	var prefixMatches []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lowerID) {
			prefixMatches = append(prefixMatches, c)
		}
	}
	if len(prefixMatches) == 1 {
		return prefixMatches[0], true
	}

	// 3. Unique substring match, only for sufficiently long identifiers to
	// avoid spurious collisions.
	if len(id) >= minSubstringLength {
		var substrMatches []string
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c), lowerID) {
				substrMatches = append(substrMatches, c)
			}
		}
		if len(substrMatches) == 1 {
			return substrMatches[0], true
		}
	}

	return "", false
}
