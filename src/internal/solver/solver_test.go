package solver

import (
	"context"
	"testing"

	"pkgforge/src/internal/packagedb"
	"pkgforge/src/internal/pool"
	"pkgforge/src/internal/registry"
)

func newTestDB(t *testing.T, client *registry.StaticClient) (*packagedb.Database, *pool.Pool) {
	t.Helper()
	p := pool.New()
	return packagedb.New(p, client, packagedb.StrategyLatest), p
}

func TestSolvePicksNewestCandidate(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {}, "2.0.0": {},
	}
	db, p := newTestDB(t, client)
	req, err := db.AllocRequirement("libfoo", "")
	if err != nil {
		t.Fatalf("AllocRequirement: %v", err)
	}

	s := New(db)
	result, err := s.Solve(context.Background(), []pool.VersionSetId{req})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(result.Solution) != 1 {
		t.Fatalf("Solution = %v, want exactly one solvable", result.Solution)
	}
	got := p.ResolveSolvable(result.Solution[0])
	if got.Version.String() != "2.0.0" {
		t.Errorf("resolved version = %q, want the newest 2.0.0", got.Version.String())
	}
}

func TestSolveUnsatWithNoCandidates(t *testing.T) {
	client := registry.NewStaticClient()
	db, _ := newTestDB(t, client)
	req, err := db.AllocRequirement("libfoo", "")
	if err != nil {
		t.Fatalf("AllocRequirement: %v", err)
	}

	s := New(db)
	_, err = s.Solve(context.Background(), []pool.VersionSetId{req})
	if err == nil {
		t.Fatal("expected an unsat error when libfoo has no candidates at all")
	}
	if _, ok := err.(*UnsatError); !ok {
		t.Errorf("err = %T, want *UnsatError", err)
	}
}

func TestSolveConflictingVersionRangesIsUnsat(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{"1.0.0": {}}
	db, _ := newTestDB(t, client)

	low, err := db.AllocRequirement("libfoo", ">=2.0.0")
	if err != nil {
		t.Fatalf("AllocRequirement: %v", err)
	}

	s := New(db)
	_, err = s.Solve(context.Background(), []pool.VersionSetId{low})
	if err == nil {
		t.Fatal("expected unsat: only candidate (1.0.0) falls outside the required range (>=2.0.0)")
	}
}

// TestSolveResolvesMultipleRootRequirementsToNewest is the Go translation
// of original_source/src/pretendSubCmd.cc's test_resolve_multiple: two
// independently required names, each with two candidate versions and no
// dependencies between them, both resolve to their own newest version.
func TestSolveResolvesMultipleRootRequirementsToNewest(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["asdf"] = map[string]registry.VersionFixture{
		"1.0.0": {}, "2.0.0": {},
	}
	client.Packages["efgh"] = map[string]registry.VersionFixture{
		"4.0.0": {}, "5.0.0": {},
	}
	db, p := newTestDB(t, client)

	reqAsdf, err := db.AllocRequirement("asdf", "")
	if err != nil {
		t.Fatalf("AllocRequirement(asdf): %v", err)
	}
	reqEfgh, err := db.AllocRequirement("efgh", "")
	if err != nil {
		t.Fatalf("AllocRequirement(efgh): %v", err)
	}

	s := New(db)
	result, err := s.Solve(context.Background(), []pool.VersionSetId{reqAsdf, reqEfgh})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(result.Solution) != 2 {
		t.Fatalf("Solution = %v, want exactly two solvables", result.Solution)
	}
	got := map[string]string{}
	for _, id := range result.Solution {
		sv := p.ResolveSolvable(id)
		got[p.ResolveName(sv.Name)] = sv.Version.String()
	}
	if got["asdf"] != "2.0.0" {
		t.Errorf("asdf = %q, want the newest 2.0.0", got["asdf"])
	}
	if got["efgh"] != "5.0.0" {
		t.Errorf("efgh = %q, want the newest 5.0.0", got["efgh"])
	}
}

// TestSolveBacktracksPastNewerCandidateOnConflict is the Go translation
// of original_source/src/pretendSubCmd.cc's test_resolve_with_conflict:
// asdf's newest version requires conflicting==1, efgh's every version
// requires conflicting==0. Picking both packages' newest candidates
// would force two incompatible versions of "conflicting" true at once,
// so the solver must backjump past asdf's decision (even though efgh
// was decided afterward) and settle on asdf's older version instead of
// simply failing outright.
func TestSolveBacktracksPastNewerCandidateOnConflict(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["asdf"] = map[string]registry.VersionFixture{
		"4.0.0": {Dependencies: map[string]string{"conflicting": "==1.0.0"}},
		"3.0.0": {Dependencies: map[string]string{"conflicting": "==0.0.0"}},
	}
	client.Packages["efgh"] = map[string]registry.VersionFixture{
		"7.0.0": {Dependencies: map[string]string{"conflicting": "==0.0.0"}},
		"6.0.0": {Dependencies: map[string]string{"conflicting": "==0.0.0"}},
	}
	client.Packages["conflicting"] = map[string]registry.VersionFixture{
		"1.0.0": {},
		"0.0.0": {},
	}
	db, p := newTestDB(t, client)

	reqAsdf, err := db.AllocRequirement("asdf", "")
	if err != nil {
		t.Fatalf("AllocRequirement(asdf): %v", err)
	}
	reqEfgh, err := db.AllocRequirement("efgh", "")
	if err != nil {
		t.Fatalf("AllocRequirement(efgh): %v", err)
	}

	s := New(db)
	result, err := s.Solve(context.Background(), []pool.VersionSetId{reqAsdf, reqEfgh})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	got := map[string]string{}
	for _, id := range result.Solution {
		sv := p.ResolveSolvable(id)
		got[p.ResolveName(sv.Name)] = sv.Version.String()
	}
	if got["efgh"] != "7.0.0" {
		t.Errorf(`efgh = %q, want "7.0.0" (its only viable version, newest of the two)`, got["efgh"])
	}
	if got["asdf"] != "3.0.0" {
		t.Errorf(`asdf = %q, want "3.0.0": the newer 4.0.0 conflicts with efgh's required conflicting==0.0.0`, got["asdf"])
	}
	if got["conflicting"] != "0.0.0" {
		t.Errorf(`conflicting = %q, want "0.0.0"`, got["conflicting"])
	}
}

// TestSolveIsDeterministicAcrossRepeatedRuns covers the repeated-run
// determinism property pretendSubCmd.cc's test harness checks via
// solve_snapshot: two independent solves over identical input, each
// with its own fresh pool and database, must reach the same decision
// sequence (spec §4.5's "two runs on identical inputs yield identical
// decision sequences").
func TestSolveIsDeterministicAcrossRepeatedRuns(t *testing.T) {
	buildClient := func() *registry.StaticClient {
		client := registry.NewStaticClient()
		client.Packages["asdf"] = map[string]registry.VersionFixture{
			"4.0.0": {Dependencies: map[string]string{"conflicting": "==1.0.0"}},
			"3.0.0": {Dependencies: map[string]string{"conflicting": "==0.0.0"}},
		}
		client.Packages["efgh"] = map[string]registry.VersionFixture{
			"7.0.0": {Dependencies: map[string]string{"conflicting": "==0.0.0"}},
			"6.0.0": {Dependencies: map[string]string{"conflicting": "==0.0.0"}},
		}
		client.Packages["conflicting"] = map[string]registry.VersionFixture{
			"1.0.0": {},
			"0.0.0": {},
		}
		return client
	}

	run := func() []string {
		db, p := newTestDB(t, buildClient())
		reqAsdf, err := db.AllocRequirement("asdf", "")
		if err != nil {
			t.Fatalf("AllocRequirement(asdf): %v", err)
		}
		reqEfgh, err := db.AllocRequirement("efgh", "")
		if err != nil {
			t.Fatalf("AllocRequirement(efgh): %v", err)
		}
		s := New(db)
		result, err := s.Solve(context.Background(), []pool.VersionSetId{reqAsdf, reqEfgh})
		if err != nil {
			t.Fatalf("Solve: %v", err)
		}
		out := make([]string, 0, len(result.Solution))
		for _, id := range result.Solution {
			sv := p.ResolveSolvable(id)
			out = append(out, p.ResolveName(sv.Name)+"@"+sv.Version.String())
		}
		return out
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("decision sequences differ in length: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("decision %d: %q on first run, %q on second run; want an identical decision sequence", i, first[i], second[i])
		}
	}
}

func TestSolveTransitiveDependencyIncluded(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {Dependencies: map[string]string{"libbar": ">=1.0.0"}},
	}
	client.Packages["libbar"] = map[string]registry.VersionFixture{"1.0.0": {}}
	db, p := newTestDB(t, client)

	req, err := db.AllocRequirement("libfoo", "")
	if err != nil {
		t.Fatalf("AllocRequirement: %v", err)
	}
	s := New(db)
	result, err := s.Solve(context.Background(), []pool.VersionSetId{req})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	names := map[string]bool{}
	for _, id := range result.Solution {
		names[p.ResolveName(p.ResolveSolvable(id).Name)] = true
	}
	if !names["libfoo"] || !names["libbar"] {
		t.Errorf("resolved names = %v, want both libfoo and libbar", names)
	}
}
