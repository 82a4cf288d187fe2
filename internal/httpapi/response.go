package httpapi

import (
	"github.com/docuqa/agent-runtime/internal/executor"
	"github.com/docuqa/agent-runtime/internal/streamsink"
)

func toRunResponse(outcome executor.RunOutcome, includeTrace bool, trace []streamsink.Event) runResponse {
	resp := runResponse{Answer: outcome.Answer}

	for _, c := range outcome.Citations {
		resp.Citations = append(resp.Citations, citationResponse{
			DocID:         c.DocID,
			ChunkID:       c.ChunkID,
			ChunkIndex:    c.ChunkIndex,
			Snippet:       c.Snippet,
			DocumentTitle: c.Filename,
			Score:         c.Score,
		})
	}

	for _, i := range outcome.Insufficiencies {
		resp.Insufficiencies = append(resp.Insufficiencies, insufficiencyResponse{
			Section:      i.Section,
			Missing:      i.Missing,
			QueriesTried: i.QueriesTried,
		})
	}

	if includeTrace {
		for _, e := range trace {
			resp.Trace = append(resp.Trace, traceResponse{
				Type:             string(e.Type),
				Tool:             e.Tool,
				OutputSummary:    e.OutputSummary,
				Steps:            e.Steps,
				Notes:            e.Notes,
				Error:            e.Error,
				ValidationErrors: e.ValidationErrors,
			})
		}
	}

	return resp
}
