// Package streamsink implements the Event Sink (spec.md §4.11): the
// Executor emits each trace entry through this cooperative interface as it
// happens. Two consumer modes are provided: Collect (accumulate, return at
// the end) and Stream (forward incrementally as SSE frames), grounded on
// the idiom of runtime/agent/stream/stream.go's Sink interface.
package streamsink

import (
	"encoding/json"
	"fmt"
	"io"
)

// EventType names the kind of event flowing through the sink.
type EventType string

const (
	EventPlan       EventType = "plan"
	EventToolCall   EventType = "tool_call"
	EventValidation EventType = "validation"
	EventReprompt   EventType = "reprompt"
	EventFinal      EventType = "final"
	EventError      EventType = "error"
)

// Event is one entry flowing through the sink, matching the stable trace
// JSON schema from spec.md §6.
type Event struct {
	Type             EventType `json:"type"`
	Tool             string    `json:"tool,omitempty"`
	Input            any       `json:"input,omitempty"`
	OutputSummary    string    `json:"outputSummary,omitempty"`
	Steps            []string  `json:"steps,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	Error            string    `json:"error,omitempty"`
	ValidationErrors []string  `json:"validationErrors,omitempty"`
}

// Sink receives trace events as the Executor produces them and a terminal
// Complete or Fail call.
type Sink interface {
	Send(e Event)
	Complete(result any)
	Fail(err error)
}

// Collect accumulates every event and the terminal result in memory, for
// non-streaming callers (the plain /agent/run handler).
type Collect struct {
	Events []Event
	Result any
	Err    error
}

// NewCollect returns an empty Collect sink.
func NewCollect() *Collect {
	return &Collect{}
}

func (c *Collect) Send(e Event)   { c.Events = append(c.Events, e) }
func (c *Collect) Complete(r any) { c.Result = r }
func (c *Collect) Fail(err error) { c.Err = err }

// Stream forwards each event incrementally to w, framed as server-sent
// events: "event: trace\ndata: <json>\n\n", with the terminal result framed
// as "event: complete\ndata: <json>\n\n" and a fatal failure framed as
// "event: error\ndata: <json>\n\n" (spec §4.11, §6).
type Stream struct {
	w       io.Writer
	flusher flusher
}

// flusher lets http.ResponseWriter-backed streams push buffered bytes
// immediately; non-flushing writers (e.g. in tests) simply skip this step.
type flusher interface {
	Flush()
}

// NewStream wraps w. If w also implements Flush(), each frame is flushed
// immediately so a browser/CLI subscriber sees events in real time.
func NewStream(w io.Writer) *Stream {
	s := &Stream{w: w}
	if f, ok := w.(flusher); ok {
		s.flusher = f
	}
	return s
}

func (s *Stream) writeFrame(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error":"failed to marshal event: %s"}`, err.Error()))
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *Stream) Send(e Event)   { s.writeFrame("trace", e) }
func (s *Stream) Complete(r any) { s.writeFrame("complete", r) }
func (s *Stream) Fail(err error) { s.writeFrame("error", map[string]string{"error": err.Error()}) }
