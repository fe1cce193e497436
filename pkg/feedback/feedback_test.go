package feedback

import "testing"

func TestRecordApproves(t *testing.T) {
	cases := []struct {
		assessment string
		want       bool
	}{
		{"good allocation overall", true},
		{"This looks OPTIMAL to me", true},
		{"excellent", true},
		{"satisfactory given the constraints", true},
		{"acceptable", false},
		{"poor utilization of the large press", false},
		{"", false},
	}

	for _, tc := range cases {
		record := Record{Role: "reviewer", Assessment: tc.assessment}
		if got := record.Approves(); got != tc.want {
			t.Errorf("Approves(%q) = %v, want %v", tc.assessment, got, tc.want)
		}
	}
}

func TestDefaultRecordIsSafeDegradation(t *testing.T) {
	record := DefaultRecord("manufacturing analyst")
	if record.Role != "manufacturing analyst" {
		t.Errorf("unexpected role %q", record.Role)
	}
	if record.Approves() {
		t.Error("fallback record must not approve")
	}
	if record.MathematicallyVerified {
		t.Error("fallback record must not claim verification")
	}
	if !record.AlternativesTested {
		t.Error("fallback record must leave the cost fallback reachable")
	}
}

func TestRoundApprovals(t *testing.T) {
	round := Round{
		{Assessment: "good"},
		{Assessment: "needs work"},
		{Assessment: "optimal"},
	}
	if got := round.Approvals(); got != 2 {
		t.Errorf("Approvals() = %d, want 2", got)
	}
}

func TestRoundMathematicallyVerified(t *testing.T) {
	round := Round{
		{Assessment: "poor"},
		{Assessment: "acceptable", MathematicallyVerified: true},
	}
	if !round.MathematicallyVerified() {
		t.Error("expected any-reviewer verification to count")
	}
	if (Round{{Assessment: "good"}}).MathematicallyVerified() {
		t.Error("expected false without a verifying reviewer")
	}
}

func TestRoundAlternativesTested(t *testing.T) {
	if !(Round{}).AlternativesTested() {
		t.Error("empty round should count as tested")
	}
	if (Round{{Assessment: "good"}}).AlternativesTested() {
		t.Error("expected false when no reviewer tested alternatives")
	}
	round := Round{
		{Assessment: "good"},
		{Assessment: "good", AlternativesTested: true},
	}
	if !round.AlternativesTested() {
		t.Error("expected any-reviewer testing to count")
	}
}
