package complexity

import "testing"

func newTestEstimator() *Estimator {
	return New(DefaultWeightTable(), DefaultTierTable(), DefaultFormulaParams())
}

func TestScore_Deterministic(t *testing.T) {
	e := newTestEstimator()
	call := Call{
		Tool:     "Edit",
		Category: CategoryEdit,
		EditWrite: &EditWriteInput{
			ContentLength: 120,
			Path:          "src/handler.go",
			Content:       "func handle() {}",
		},
	}

	a := e.Score(call)
	b := e.Score(call)

	if a.C != b.C {
		t.Fatalf("C should be deterministic: got %d and %d", a.C, b.C)
	}
	if a.Tier != b.Tier {
		t.Fatalf("tier should be deterministic: got %s and %s", a.Tier, b.Tier)
	}
}

func TestTierLadder(t *testing.T) {
	e := newTestEstimator()

	cases := []struct {
		c    uint64
		want Tier
	}{
		{499, TierSimple},
		{500, TierLight},
		{1999, TierLight},
		{2000, TierMedium},
		{9999, TierMedium},
		{10000, TierCritical},
	}

	for _, tc := range cases {
		tier, _, _ := e.tierFor(tc.c)
		if tier != tc.want {
			t.Errorf("tierFor(%d) = %s, want %s", tc.c, tier, tc.want)
		}
	}
}

func TestScore_ArchitecturalPathFloorsComplexFactor(t *testing.T) {
	e := newTestEstimator()

	result := e.Score(Call{
		Tool:     "Write",
		Category: CategoryWrite,
		EditWrite: &EditWriteInput{
			ContentLength: 10,
			Path:          "config.yaml",
			Content:       "key: value",
		},
	})

	found := false
	for _, r := range result.Reasons {
		if r == "architectural_path" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected architectural_path reason for config.yaml")
	}
}

func TestScore_RiskKeywordDetected(t *testing.T) {
	e := newTestEstimator()

	result := e.Score(Call{
		Tool:     "Edit",
		Category: CategoryEdit,
		EditWrite: &EditWriteInput{
			ContentLength: 50,
			Path:          "cleanup.sh",
			Content:       "rm -rf /tmp/cache",
		},
	})

	found := false
	for _, r := range result.Reasons {
		if r == "risk_keyword" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected risk_keyword reason for destructive content")
	}
}

func TestScore_BashDangerousClassification(t *testing.T) {
	e := newTestEstimator()

	result := e.Score(Call{
		Tool:     "Bash",
		Category: CategoryBash,
		Bash: &BashInput{
			Command:          "rm -rf /",
			DangerousMatched: true,
		},
	})

	if result.C == 0 {
		t.Fatal("expected nonzero C for dangerous bash command")
	}
}

func TestSaturatingArithmetic_NeverOverflows(t *testing.T) {
	w := WeightTable{
		CategoryUnknown: {Basic: 1 << 20, Deps: 1 << 20, Complex: 4, Files: 1 << 20},
	}
	e := New(w, DefaultTierTable(), DefaultFormulaParams())

	result := e.Score(Call{Tool: "unknown-tool", Category: CategoryUnknown})

	if result.C == 0 {
		t.Fatal("expected saturated nonzero C")
	}
	if result.Tier != TierCritical {
		t.Fatalf("expected CRITICAL tier for saturated C, got %s", result.Tier)
	}
}

func TestAOptimalTokens_ZeroAtZero(t *testing.T) {
	got := aOptimalTokens(0, DefaultFormulaParams().WEff)
	if got != 0 {
		t.Fatalf("aOptimalTokens(0) = %d, want 0", got)
	}
}
