package artifact

import "testing"

func floatPtr(v float64) *float64 { return &v }

func TestShouldAutoApprove(t *testing.T) {
	policy := AutoApprovePolicy{Enabled: true, MaxRisk: RiskLow, MinConfidence: 90}

	if !ShouldAutoApprove(policy, RiskLow, floatPtr(95)) {
		t.Fatalf("ShouldAutoApprove() = false, want true")
	}
	if ShouldAutoApprove(policy, RiskMedium, floatPtr(95)) {
		t.Fatalf("ShouldAutoApprove() above risk ceiling should be false")
	}
	if ShouldAutoApprove(policy, RiskLow, floatPtr(89.9)) {
		t.Fatalf("ShouldAutoApprove() below min confidence should be false")
	}
	if ShouldAutoApprove(policy, RiskLow, nil) {
		t.Fatalf("ShouldAutoApprove() without confidence should be false")
	}

	disabled := AutoApprovePolicy{Enabled: false, MaxRisk: RiskCritical, MinConfidence: 0}
	if ShouldAutoApprove(disabled, RiskLow, floatPtr(100)) {
		t.Fatalf("ShouldAutoApprove() disabled policy should be false")
	}
}

func TestShouldAutoApproveIsDeterministic(t *testing.T) {
	policy := AutoApprovePolicy{Enabled: true, MaxRisk: RiskMedium, MinConfidence: 80}
	first := ShouldAutoApprove(policy, RiskMedium, floatPtr(80))
	for i := 0; i < 10; i++ {
		if ShouldAutoApprove(policy, RiskMedium, floatPtr(80)) != first {
			t.Fatalf("ShouldAutoApprove() not deterministic")
		}
	}
	if !first {
		t.Fatalf("ShouldAutoApprove() boundary confidence should pass")
	}
}

func TestRiskLevelOrdering(t *testing.T) {
	if !RiskLow.AtMost(RiskLow) || !RiskLow.AtMost(RiskCritical) {
		t.Fatalf("AtMost() low ordering broken")
	}
	if RiskCritical.AtMost(RiskHigh) {
		t.Fatalf("AtMost() critical <= high should be false")
	}
	if RiskLevel("bogus").AtMost(RiskCritical) {
		t.Fatalf("AtMost() unknown level should be false")
	}

	if _, err := ParseRiskLevel("HIGH "); err != nil {
		t.Fatalf("ParseRiskLevel() error = %v", err)
	}
	if _, err := ParseRiskLevel("extreme"); err == nil {
		t.Fatalf("ParseRiskLevel() expected error for unknown level")
	}
}
