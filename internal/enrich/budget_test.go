package enrich

import "testing"

func TestBudget_Defaults(t *testing.T) {
	b := NewBudget(1000)
	if b.MaxTokensPerRequest != 4000 {
		t.Errorf("expected default max tokens per request 4000, got %d", b.MaxTokensPerRequest)
	}
	if b.AutoAcceptThreshold != 0.8 {
		t.Errorf("expected default auto-accept threshold 0.8, got %f", b.AutoAcceptThreshold)
	}
}

func TestBudget_UseAndRemaining(t *testing.T) {
	b := NewBudget(100)
	if !b.HasBudget(50) {
		t.Error("expected budget for 50 of 100 tokens")
	}
	b.UseTokens(50)
	if b.Remaining() != 50 {
		t.Errorf("expected 50 remaining, got %d", b.Remaining())
	}
	b.UseTokens(60)
	if b.Remaining() != 0 {
		t.Errorf("expected remaining to floor at 0, got %d", b.Remaining())
	}
	if !b.IsExhausted() {
		t.Error("expected budget to be exhausted")
	}
	if b.HasBudget(1) {
		t.Error("expected no budget left for further estimated usage")
	}
}

func TestBudget_WarningLevels(t *testing.T) {
	cases := []struct {
		used int
		want BudgetWarning
	}{
		{0, Healthy},
		{49, Healthy},
		{50, Warning},
		{74, Warning},
		{75, Critical},
		{89, Critical},
		{90, Exhausted},
		{100, Exhausted},
	}
	for _, c := range cases {
		b := NewBudget(100)
		b.UseTokens(c.used)
		if got := b.WarningLevel(); got != c.want {
			t.Errorf("used=%d: expected %v, got %v", c.used, c.want, got)
		}
	}
}

func TestBudget_ShouldAutoAccept(t *testing.T) {
	b := NewBudget(100)
	if !b.ShouldAutoAccept(0.8) {
		t.Error("expected confidence equal to the threshold to auto-accept")
	}
	if b.ShouldAutoAccept(0.79) {
		t.Error("expected confidence below the threshold to not auto-accept")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(0); got != 500 {
		t.Errorf("expected base overhead of 500, got %d", got)
	}
	if got := EstimateTokens(400); got != 600 {
		t.Errorf("expected 600, got %d", got)
	}
}

func TestBudgetWarning_String(t *testing.T) {
	cases := map[BudgetWarning]string{
		Healthy:   "healthy",
		Warning:   "warning",
		Critical:  "critical",
		Exhausted: "exhausted",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", level, got, want)
		}
	}
}
