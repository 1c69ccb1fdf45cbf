package useflags

import (
	"testing"

	"pkgforge/src/internal/pool"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{"+debug", "-ssl"}
	for _, tok := range cases {
		f, err := Parse(tok)
		if err != nil {
			t.Fatalf("parse %q: %v", tok, err)
		}
		if got := f.String(); got != tok {
			t.Errorf("String() = %q, want %q", got, tok)
		}
	}
}

func TestParseRejectsBareName(t *testing.T) {
	if _, err := Parse("debug"); err == nil {
		t.Error("expected error for a bare flag name with no polarity prefix")
	}
}

func TestStateTokensSorted(t *testing.T) {
	st, err := NewState([]string{"+zlib", "-alpha", "+debug"})
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	got := st.Tokens()
	want := []string{"-alpha", "+debug", "+zlib"}
	if len(got) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStateContains(t *testing.T) {
	st, _ := NewState([]string{"+debug"})
	if !st.Contains("debug", true) {
		t.Error("expected debug=+ to be contained")
	}
	if st.Contains("debug", false) {
		t.Error("debug=+ must not match polarity false")
	}
	if st.Contains("missing", true) {
		t.Error("absent flag must not be contained at either polarity")
	}
}

func TestIntersectIUse(t *testing.T) {
	st, _ := NewState([]string{"+debug", "-ssl", "+unused"})
	got := st.IntersectIUse([]string{"debug", "ssl", "other"})
	want := map[string]bool{"+debug": true, "-ssl": true}
	if len(got) != len(want) {
		t.Fatalf("IntersectIUse = %v, want entries %v", got, want)
	}
	for _, tok := range got {
		if !want[tok] {
			t.Errorf("unexpected token %q", tok)
		}
	}
}

func TestIsPseudoName(t *testing.T) {
	if !IsPseudoName(PseudoName("debug")) {
		t.Error("PseudoName output must satisfy IsPseudoName")
	}
	if IsPseudoName("zlib") {
		t.Error("a real package name must not be treated as pseudo")
	}
}

func TestDeclaredRequirementBareNameContributesNoClause(t *testing.T) {
	p := pool.New()
	if _, ok := DeclaredRequirement(p, "debug"); ok {
		t.Error("a bare iuse entry must not materialize a pinned requirement")
	}
}

func TestDeclaredRequirementExplicitPolarityContributesClause(t *testing.T) {
	p := pool.New()
	vsOff, ok := DeclaredRequirement(p, "-debug")
	if !ok {
		t.Fatal("an explicit -flag iuse entry must materialize a requirement")
	}
	vsOn, ok := DeclaredRequirement(p, "+debug")
	if !ok {
		t.Fatal("an explicit +flag iuse entry must materialize a requirement")
	}
	if vsOff == vsOn {
		t.Error("+debug and -debug must pin distinct pseudo-versions")
	}
}

func TestRewriteExplanation(t *testing.T) {
	in := "package use:debug 1.2.3 is not installed, candidate versions []"
	got := RewriteExplanation(in)
	if got == in {
		t.Error("expected pseudo-package vocabulary to be rewritten")
	}
	if contains(got, "use:") {
		t.Errorf("rewritten explanation still contains pseudo-package prefix: %q", got)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
