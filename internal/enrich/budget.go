package enrich

// Budget tracks a session-scoped token allowance for AI enrichment calls.
// It consolidates what the original implementation split across two
// near-identical structs into one type, since nothing in this codebase
// needs them kept apart.
type Budget struct {
	TotalTokens         int
	TokensUsed          int
	MaxTokensPerRequest int
	AutoAcceptThreshold float64
}

// BudgetWarning classifies how much of the budget remains.
type BudgetWarning int

const (
	Healthy BudgetWarning = iota
	Warning
	Critical
	Exhausted
)

func (w BudgetWarning) String() string {
	switch w {
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	case Exhausted:
		return "exhausted"
	default:
		return "healthy"
	}
}

// NewBudget returns a Budget with the given total and the defaults named in
// the configuration knobs: 4000 max tokens per request, 0.8 auto-accept.
func NewBudget(totalTokens int) *Budget {
	return &Budget{
		TotalTokens:         totalTokens,
		MaxTokensPerRequest: 4000,
		AutoAcceptThreshold: 0.8,
	}
}

// HasBudget reports whether estimated additional tokens still fit.
func (b *Budget) HasBudget(estimated int) bool {
	return b.TokensUsed+estimated <= b.TotalTokens
}

// UseTokens records usage.
func (b *Budget) UseTokens(tokens int) {
	b.TokensUsed += tokens
}

// Remaining returns the tokens left, never negative.
func (b *Budget) Remaining() int {
	if b.TokensUsed >= b.TotalTokens {
		return 0
	}
	return b.TotalTokens - b.TokensUsed
}

// UsagePercentage returns how much of the budget has been consumed, 0-100.
func (b *Budget) UsagePercentage() float64 {
	if b.TotalTokens == 0 {
		return 0
	}
	return float64(b.TokensUsed) / float64(b.TotalTokens) * 100
}

// IsExhausted reports whether no budget remains.
func (b *Budget) IsExhausted() bool {
	return b.TokensUsed >= b.TotalTokens
}

// ShouldAutoAccept reports whether confidence clears the auto-accept bar.
func (b *Budget) ShouldAutoAccept(confidence float64) bool {
	return confidence >= b.AutoAcceptThreshold
}

// WarningLevel reports the current budget health band: Healthy < 50% <
// Warning < 75% < Critical < 90% < Exhausted.
func (b *Budget) WarningLevel() BudgetWarning {
	switch p := b.UsagePercentage(); {
	case p < 50:
		return Healthy
	case p < 75:
		return Warning
	case p < 90:
		return Critical
	default:
		return Exhausted
	}
}

// EstimateTokens is the fallback estimator used when tiktoken-go doesn't
// recognize the configured model: roughly 4 characters per token plus a
// fixed request overhead.
func EstimateTokens(promptLength int) int {
	return promptLength/4 + 500
}
