package packagedb

import (
	"context"
	"testing"

	"pkgforge/src/internal/pool"
	"pkgforge/src/internal/registry"
	"pkgforge/src/internal/useflags"
)

func TestGetCandidatesBareIUseContributesNoRequirement(t *testing.T) {
	p := pool.New()
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {Dependencies: map[string]string{}, IUse: []string{"debug"}},
	}

	db := New(p, client, StrategyLatest)
	name := p.InternName("libfoo")

	cands, err := db.GetCandidates(context.Background(), name)
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	if len(cands.Solvables) != 1 {
		t.Fatalf("Solvables = %v, want 1", cands.Solvables)
	}

	id := cands.Solvables[0]
	deps := db.GetDependencies(id)
	// a bare (unprefixed) iuse entry is informational only: it must not
	// pin use:debug to either polarity, or a root-level selection of the
	// opposite polarity would be unsatisfiable with no candidate left to
	// backtrack to.
	if len(deps.Requirements) != 0 {
		t.Fatalf("Requirements = %v, want none: a bare iuse entry must not materialize a clause", deps.Requirements)
	}

	iuse := db.GetIUse(id)
	if len(iuse) != 1 || iuse[0] != "debug" {
		t.Errorf("GetIUse(id) = %v, want [debug]", iuse)
	}
}

func TestGetCandidatesExplicitPolarityIUseContributesRequirement(t *testing.T) {
	p := pool.New()
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {Dependencies: map[string]string{}, IUse: []string{"+ssl"}},
	}

	db := New(p, client, StrategyLatest)
	name := p.InternName("libfoo")

	cands, err := db.GetCandidates(context.Background(), name)
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}

	id := cands.Solvables[0]
	deps := db.GetDependencies(id)
	if len(deps.Requirements) != 1 {
		t.Fatalf("Requirements = %v, want exactly one (the explicit +ssl clause)", deps.Requirements)
	}

	vset := p.ResolveVersionSet(deps.Requirements[0])
	wantName := p.InternName(useflags.PseudoName("ssl"))
	if vset.Name != wantName {
		t.Errorf("requirement name = %v, want use:ssl's interned name", vset.Name)
	}
}

func TestGetCandidatesOnPseudoNameSynthesizesTwoLocalCandidates(t *testing.T) {
	p := pool.New()
	client := registry.NewStaticClient() // deliberately has no "use:debug" entry

	db := New(p, client, StrategyLatest)
	name := p.InternName(useflags.PseudoName("debug"))

	cands, err := db.GetCandidates(context.Background(), name)
	if err != nil {
		t.Fatalf("GetCandidates on pseudo name must not call the registry: %v", err)
	}
	if len(cands.Solvables) != 2 {
		t.Fatalf("Solvables = %v, want 2 (off and on pseudo-candidates)", cands.Solvables)
	}

	versions := map[string]bool{}
	for _, id := range cands.Solvables {
		versions[p.ResolveSolvable(id).Version.String()] = true
	}
	if !versions[useflags.PseudoVersion(false).String()] || !versions[useflags.PseudoVersion(true).String()] {
		t.Errorf("pseudo-candidate versions = %v, want both off and on pseudo-versions present", versions)
	}
}

func TestGetCandidatesOrdinaryDependenciesStillWired(t *testing.T) {
	p := pool.New()
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {Dependencies: map[string]string{"libbar": ">=1.0.0"}},
	}

	db := New(p, client, StrategyLatest)
	name := p.InternName("libfoo")

	cands, err := db.GetCandidates(context.Background(), name)
	if err != nil {
		t.Fatalf("GetCandidates: %v", err)
	}
	deps := db.GetDependencies(cands.Solvables[0])
	if len(deps.Requirements) != 1 {
		t.Fatalf("Requirements = %v, want exactly the libbar dependency clause", deps.Requirements)
	}
}
