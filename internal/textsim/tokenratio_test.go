package textsim

import "testing"

func TestTokenSortRatioHandlesReordering(t *testing.T) {
	got := TokenSortRatio("Atletico Dallas Davis", "Davis Atletico Dallas")
	if got < 0.99 {
		t.Errorf("TokenSortRatio = %.4f, want ~1.0 for a pure reordering", got)
	}
}

func TestTokenSetRatioHandlesSubset(t *testing.T) {
	got := TokenSetRatio("FC Dallas", "FC Dallas Academy 2014 Blue")
	if got < 0.85 {
		t.Errorf("TokenSetRatio = %.4f, want >= 0.85 for a strict token subset", got)
	}
}

func TestTokenSetRatioLowForUnrelated(t *testing.T) {
	got := TokenSetRatio("FC Dallas", "Houston Dynamo")
	if got > 0.6 {
		t.Errorf("TokenSetRatio = %.4f, want a low score for unrelated names", got)
	}
}
