package club

import "testing"

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Load("fc_dallas", "FC Dallas", []string{"FC Dallas", "Dallas FC", "North Texas SC"})
	r.Load("solar_sc", "Solar SC", []string{"Solar SC", "Solar Soccer Club"})
	return r
}

func TestCanonicalizeExactMatch(t *testing.T) {
	r := newTestRegistry()
	res := r.Canonicalize("FC Dallas")
	if res.CanonicalID != "fc_dallas" || res.Confidence != 1.0 {
		t.Errorf("got %+v, want exact match on fc_dallas", res)
	}
}

func TestCanonicalizeSuffixNonStripping(t *testing.T) {
	r := newTestRegistry()
	r.Load("arkansas_sc", "Arkansas SC", []string{"Arkansas SC"})
	r.Load("fc_arkansas", "FC Arkansas", []string{"FC Arkansas"})

	a := r.Canonicalize("FC Arkansas")
	b := r.Canonicalize("Arkansas SC")
	if a.CanonicalID == b.CanonicalID {
		t.Errorf("prefix and suffix forms collapsed into the same club: %+v vs %+v", a, b)
	}
}

func TestCanonicalizeFuzzyFallback(t *testing.T) {
	r := newTestRegistry()
	res := r.Canonicalize("Solar Soccer Club Academy")
	if res.CanonicalID != "solar_sc" {
		t.Errorf("got %+v, want fuzzy match on solar_sc", res)
	}
}

func TestCanonicalizeUnknownClub(t *testing.T) {
	r := newTestRegistry()
	res := r.Canonicalize("Totally Unrelated United")
	if res.CanonicalID != "" || res.Confidence != 0.8 {
		t.Errorf("got %+v, want unresolved with confidence 0.8", res)
	}
}

func TestCanonicalizeRoundTrip(t *testing.T) {
	r := newTestRegistry()
	first := r.Canonicalize("fc dallas")
	second := r.Canonicalize(first.Display)
	if first.CanonicalID != second.CanonicalID {
		t.Errorf("round-trip law violated: %+v then %+v", first, second)
	}
}

func TestCanonicalizeMinLengthGuard(t *testing.T) {
	r := newTestRegistry()
	res := r.Canonicalize("FC")
	if res.CanonicalID != "" {
		t.Errorf("expected short club name to be rejected, got %+v", res)
	}
}
