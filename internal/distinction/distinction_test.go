package distinction

import (
	"testing"

	"stormlightlabs.org/rankcore/internal/normalize"
)

func extract(t *testing.T, name string) Distinctions {
	t.Helper()
	tok, err := normalize.Normalize(name)
	if err != nil {
		t.Fatalf("Normalize(%q) failed: %v", name, err)
	}
	return Extract(tok)
}

func TestExtractColors(t *testing.T) {
	d := extract(t, "FC Dallas U14B Red")
	if len(d.Colors) != 1 || d.Colors[0] != "red" {
		t.Errorf("Colors = %v, want [red]", d.Colors)
	}
}

func TestIncompatibleOnColorDifference(t *testing.T) {
	a := extract(t, "Atletico Dallas 15G Blue")
	b := extract(t, "Atletico Dallas 15G Red")
	if !Incompatible(a, b) {
		t.Error("expected color mismatch to be pair-incompatible")
	}
}

func TestIncompatibleOnCoachName(t *testing.T) {
	a := extract(t, "Atletico Dallas 15G Riedell")
	b := extract(t, "Atletico Dallas 15G Davis")
	if !Incompatible(a, b) {
		t.Error("expected distinct coach-name residues to be pair-incompatible")
	}
}

func TestCompatibleWhenFeatureAbsentOnOneSide(t *testing.T) {
	a := extract(t, "FC Dallas U14B")
	b := extract(t, "FC Dallas U14B Red")
	if Incompatible(a, b) {
		t.Error("a feature missing from one side should not force incompatibility")
	}
}
