package executor

// Options holds the run-local hard budgets from spec.md §5. Zero values are
// replaced with the spec's defaults by New.
type Options struct {
	MaxToolCalls int
	MaxIterations int
	MaxReprompts int
	MaxQuestionLength int

	// TokenBudgetDefault / TokenBudgetComplex select the oracle's
	// per-call max-tokens budget based on Constraints.IsComplexQuery.
	TokenBudgetDefault int
	TokenBudgetComplex int

	// ToolRatePerSecond / ToolRateBurst configure toolsvc's per-run rate
	// limiter; 0 disables limiting.
	ToolRatePerSecond float64
	ToolRateBurst     int
}

func (o Options) withDefaults() Options {
	if o.MaxToolCalls == 0 {
		o.MaxToolCalls = 5
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 10
	}
	if o.MaxReprompts == 0 {
		o.MaxReprompts = 3
	}
	if o.MaxQuestionLength == 0 {
		o.MaxQuestionLength = 1000
	}
	if o.TokenBudgetDefault == 0 {
		o.TokenBudgetDefault = 800
	}
	if o.TokenBudgetComplex == 0 {
		o.TokenBudgetComplex = 2000
	}
	return o
}
