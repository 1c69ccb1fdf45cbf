package version

import "testing"

func TestRangeIdentities(t *testing.T) {
	r, err := ParseRange(">=1.0.0,<2.0.0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := r.Intersection(Full()); got.String() != r.String() {
		t.Errorf("r ∩ full = %s, want %s", got, r)
	}
	if got := r.Intersection(Empty()); !got.IsEmpty() {
		t.Errorf("r ∩ empty = %s, want empty", got)
	}
	if got := r.Intersection(r.Complement()); !got.IsEmpty() {
		t.Errorf("r ∩ ¬r = %s, want empty", got)
	}
}

func TestComplementInvolution(t *testing.T) {
	r, _ := ParseRange(">=1.0.0,<2.0.0")
	v := MustParse("1.5.0")
	got := r.Complement().Complement().Contains(v)
	if got != r.Contains(v) {
		t.Errorf("contains(¬¬r, v) = %v, want %v", got, r.Contains(v))
	}
}

func TestCompatibleWith(t *testing.T) {
	r := CompatibleWith(MustParse("1.2.3"))
	cases := []struct {
		v    string
		want bool
	}{
		{"1.2.3", true},
		{"1.99.0", true},
		{"1.2.2", false},
		{"2.0.0", false},
	}
	for _, c := range cases {
		if got := r.Contains(MustParse(c.v)); got != c.want {
			t.Errorf("CompatibleWith(1.2.3).Contains(%s) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestParseRangeEmptyIsFull(t *testing.T) {
	r, err := ParseRange("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if !r.Contains(MustParse("0.0.1")) || !r.Contains(MustParse("999.0.0")) {
		t.Errorf("empty expression should parse to full range, got %s", r)
	}
}

func TestVersionOrdering(t *testing.T) {
	if !MustParse("1.0.0-alpha").Less(MustParse("1.0.0")) {
		t.Error("pre-release must sort before release")
	}
	if !MustParse("1.0.0-alpha").Less(MustParse("1.0.0-alpha.1")) {
		t.Error("numeric pre-release identifiers order numerically")
	}
	if !MustParse("1.0.0-alpha.1").Less(MustParse("1.0.0-alpha.beta")) {
		t.Error("numeric identifiers sort before alphanumeric")
	}
}

func TestParseOperators(t *testing.T) {
	r, err := ParseRange(">=1.0.0")
	if err != nil || !r.Contains(MustParse("1.0.0")) || r.Contains(MustParse("0.9.9")) {
		t.Fatalf(">=1.0.0 range wrong: %v err=%v", r, err)
	}
	r, err = ParseRange(">1.0.0")
	if err != nil || r.Contains(MustParse("1.0.0")) || !r.Contains(MustParse("1.0.1")) {
		t.Fatalf(">1.0.0 range wrong: %v err=%v", r, err)
	}
}
