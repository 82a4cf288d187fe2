package executor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/docuqa/agent-runtime/internal/agentstate"
)

func TestTopSearchHits_RanksAcrossMultipleSearchCalls(t *testing.T) {
	hits := []agentstate.SearchHit{
		{DocID: "d1", ChunkID: "c1", Score: 0.5},
		{DocID: "d1", ChunkID: "c2", Score: 0.4},
		{DocID: "d2", ChunkID: "c3", Score: 0.99},
	}

	top := topSearchHits(hits, 2)

	assert.Len(t, top, 2)
	assert.Equal(t, "c3", top[0].ChunkID)
	assert.Equal(t, "c1", top[1].ChunkID)
}

func TestTopSearchHits_CapsAtRequestedCount(t *testing.T) {
	hits := []agentstate.SearchHit{{ChunkID: "c1", Score: 0.1}}
	top := topSearchHits(hits, 3)
	assert.Len(t, top, 1)
}

func TestSynthesisPrompt_ListsTopRankedSnippetsWhenNothingOpened(t *testing.T) {
	s := agentstate.New("r", "u", "why is the sky blue", time.Now())
	s.RecordSearch("q1", []agentstate.SearchHit{
		{DocID: "d1", ChunkID: "c1", Filename: "low.md", Snippet: "low score", Score: 0.1},
	})
	s.RecordSearch("q2", []agentstate.SearchHit{
		{DocID: "d2", ChunkID: "c2", Filename: "high.md", Snippet: "high score", Score: 0.9},
	})

	prompt := synthesisPrompt("why is the sky blue", s)

	highIdx := strings.Index(prompt, "high.md")
	lowIdx := strings.Index(prompt, "low.md")
	assert.GreaterOrEqual(t, highIdx, 0)
	assert.GreaterOrEqual(t, lowIdx, 0)
	assert.Less(t, highIdx, lowIdx, "higher-scored snippet should be listed first")
}
