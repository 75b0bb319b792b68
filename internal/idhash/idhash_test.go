package idhash

import "testing"

func TestComputeTrialID(t *testing.T) {
	tests := []struct {
		name  string
		runID string
		task  string
		index int
	}{
		{"winner first trial", "run-1", "winner", 0},
		{"winner later trial", "run-1", "winner", 17},
		{"score trial", "run-2", "score", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTrialID(tt.runID, tt.task, tt.index)
			if len(got) != 64 {
				t.Errorf("ComputeTrialID() length = %d, want 64", len(got))
			}
			if got2 := ComputeTrialID(tt.runID, tt.task, tt.index); got != got2 {
				t.Errorf("ComputeTrialID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTrialID_DifferentInputs(t *testing.T) {
	base := ComputeTrialID("run", "winner", 1)

	if base == ComputeTrialID("other_run", "winner", 1) {
		t.Error("Different run should produce different hash")
	}
	if base == ComputeTrialID("run", "score", 1) {
		t.Error("Different task should produce different hash")
	}
	if base == ComputeTrialID("run", "winner", 2) {
		t.Error("Different index should produce different hash")
	}
}

func TestComputePredictionID_DifferentInputs(t *testing.T) {
	base := ComputePredictionID("f1", "2024-06-01 12:00:00", "100", "200")
	if len(base) != 64 {
		t.Fatalf("ComputePredictionID() length = %d, want 64", len(base))
	}

	if base == ComputePredictionID("f2", "2024-06-01 12:00:00", "100", "200") {
		t.Error("Different fixture should produce different hash")
	}
	if base == ComputePredictionID("f1", "2024-06-01 12:00:01", "100", "200") {
		t.Error("Different generation time should produce different hash")
	}
	if base == ComputePredictionID("f1", "2024-06-01 12:00:00", "101", "200") {
		t.Error("Different winner model should produce different hash")
	}
}

func TestFixtureSeed(t *testing.T) {
	a := FixtureSeed("f1", "p1", "p2")
	if a != FixtureSeed("f1", "p1", "p2") {
		t.Error("FixtureSeed not deterministic")
	}
	if a < 0 {
		t.Errorf("expected non-negative seed, got %d", a)
	}
	if a == FixtureSeed("f1", "p2", "p1") {
		t.Error("Swapped players should produce a different seed")
	}
}
