package streamsink

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genEvent builds arbitrary Events, restricted to a string Input so the
// round trip through `any` is unambiguous: JSON decodes a string back into
// a string, never into some other concrete type a property would have to
// special-case.
func genEvent() gopter.Gen {
	types := []any{EventPlan, EventToolCall, EventValidation, EventReprompt, EventFinal, EventError}
	return gopter.CombineGens(
		gen.OneConstOf(types...),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	).Map(func(vals []any) Event {
		return Event{
			Type:             vals[0].(EventType),
			Tool:             vals[1].(string),
			Input:            vals[2].(string),
			OutputSummary:    vals[2].(string),
			Notes:            vals[3].(string),
			Steps:            vals[4].([]string),
			ValidationErrors: vals[5].([]string),
		}
	})
}

// TestEvent_JSONRoundTrips verifies the trace JSON round-trip property:
// re-parsing the JSON emitted for an Event reproduces the same entry.
func TestEvent_JSONRoundTrips(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("unmarshal(marshal(e)) == e", prop.ForAll(
		func(e Event) bool {
			data, err := json.Marshal(e)
			if err != nil {
				return false
			}
			var out Event
			if err := json.Unmarshal(data, &out); err != nil {
				return false
			}
			return eventsEqual(e, out)
		},
		genEvent(),
	))

	properties.TestingRun(t)
}

func eventsEqual(a, b Event) bool {
	if a.Type != b.Type || a.Tool != b.Tool || a.OutputSummary != b.OutputSummary ||
		a.Notes != b.Notes || a.Error != b.Error {
		return false
	}
	if (a.Input == nil) != (b.Input == nil) {
		return false
	}
	if a.Input != nil && a.Input.(string) != b.Input.(string) {
		return false
	}
	if len(a.Steps) != len(b.Steps) || len(a.ValidationErrors) != len(b.ValidationErrors) {
		return false
	}
	for i := range a.Steps {
		if a.Steps[i] != b.Steps[i] {
			return false
		}
	}
	for i := range a.ValidationErrors {
		if a.ValidationErrors[i] != b.ValidationErrors[i] {
			return false
		}
	}
	return true
}
