package streamsink

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect_AccumulatesEventsAndResult(t *testing.T) {
	c := NewCollect()
	c.Send(Event{Type: EventPlan, Steps: []string{"a", "b"}})
	c.Send(Event{Type: EventToolCall, Tool: "search_docs"})
	c.Complete(map[string]string{"answer": "done"})

	assert.Len(t, c.Events, 2)
	assert.Equal(t, EventPlan, c.Events[0].Type)
	assert.NotNil(t, c.Result)
	assert.Nil(t, c.Err)
}

func TestCollect_RecordsFailure(t *testing.T) {
	c := NewCollect()
	c.Fail(errors.New("boom"))
	assert.EqualError(t, c.Err, "boom")
}

func TestStream_FramesEventsAsSSE(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf)

	s.Send(Event{Type: EventPlan, Steps: []string{"step 1"}})
	s.Complete(map[string]string{"answer": "ok"})

	out := buf.String()
	assert.Contains(t, out, "event: trace\ndata: ")
	assert.Contains(t, out, "event: complete\ndata: ")
	assert.Contains(t, out, `"type":"plan"`)
}

func TestStream_FramesFatalError(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf)
	s.Fail(errors.New("fatal"))

	out := buf.String()
	assert.Contains(t, out, "event: error\ndata: ")
	assert.Contains(t, out, "fatal")
}
