package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ToolCall(t *testing.T) {
	a := Parse(`Sure, here's my next step:
{"type":"tool_call","tool":"search_docs","input":{"query":"reindex sql"}}
Let me know if you need more.`)

	assert.Equal(t, KindToolCall, a.Kind)
	assert.Equal(t, "search_docs", a.Tool)
	assert.Equal(t, "reindex sql", a.Input["query"])
}

func TestParse_Final(t *testing.T) {
	a := Parse(`{"type":"final","answer":"Based on [1].","used_citations":[{"docId":"doc-123","chunkId":"chunk-456","chunkIndex":0}]}`)

	assert.Equal(t, KindFinal, a.Kind)
	assert.Equal(t, "Based on [1].", a.Answer)
	assert.Len(t, a.UsedCitations, 1)
	assert.Equal(t, "doc-123", a.UsedCitations[0].DocID)
}

func TestParse_FinalCitationsAlias(t *testing.T) {
	a := Parse(`{"type":"final","answer":"ok","citations":[{"docId":"d","chunkId":"c","chunkIndex":1}]}`)
	assert.Equal(t, KindFinal, a.Kind)
	assert.Len(t, a.UsedCitations, 1)
}

func TestParse_InferredToolCall(t *testing.T) {
	a := Parse(`{"tool":"open_citation","input":{"docId":"d","chunkId":"c"}}`)
	assert.Equal(t, KindToolCall, a.Kind)
	assert.Equal(t, "open_citation", a.Tool)
}

func TestParse_InferredFinal(t *testing.T) {
	a := Parse(`{"answer":"done"}`)
	assert.Equal(t, KindFinal, a.Kind)
	assert.Equal(t, "done", a.Answer)
}

func TestParse_InvalidJSON(t *testing.T) {
	a := Parse(`{"type": "final", "answer": }`)
	assert.Equal(t, KindInvalid, a.Kind)
	assert.NotEmpty(t, a.Reason)
}

func TestParse_NoJSONObject(t *testing.T) {
	a := Parse(`I am thinking about this but have no action yet.`)
	assert.Equal(t, KindInvalid, a.Kind)
}

func TestParse_SchemaMismatchAnnotatesReason(t *testing.T) {
	a := Parse(`{"type":"tool_call","tool":"search_docs","input":"not-an-object"}`)
	assert.Equal(t, KindInvalid, a.Kind)
	assert.Contains(t, a.Reason, "schema:")
}

func TestParse_UnknownTool(t *testing.T) {
	a := Parse(`{"type":"tool_call","tool":"delete_everything","input":{}}`)
	assert.Equal(t, KindInvalid, a.Kind)
}

func TestParse_MissingInput(t *testing.T) {
	a := Parse(`{"type":"tool_call","tool":"search_docs"}`)
	assert.Equal(t, KindInvalid, a.Kind)
}

func TestParse_NestedBraces(t *testing.T) {
	a := Parse(`{"type":"tool_call","tool":"search_docs","input":{"query":"find {bracketed} text"}}`)
	assert.Equal(t, KindToolCall, a.Kind)
	assert.Equal(t, "find {bracketed} text", a.Input["query"])
}

func TestParse_DefaultsEmptyInsufficiencies(t *testing.T) {
	a := Parse(`{"type":"final","answer":"no gaps"}`)
	assert.Equal(t, KindFinal, a.Kind)
	assert.Empty(t, a.Insufficiencies)
}
