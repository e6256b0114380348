package engine_test

import (
	"testing"

	"wayline/internal/domain"
	"wayline/internal/engine"
)

func intp(v int) *int { return &v }

func TestEvaluateRequirementEmptyIsSatisfied(t *testing.T) {
	ok, idx := engine.EvaluateRequirement(domain.CompoundRequirement{}, domain.Player{})
	if !ok {
		t.Fatalf("empty requirement should be satisfied")
	}
	if idx != engine.NoPathSatisfied {
		t.Fatalf("expected no path index, got %d", idx)
	}
}

func TestEvaluateRequirementAllPopulatedMustHold(t *testing.T) {
	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{
		{RapportRequired: intp(5), CoinsRequired: intp(10)},
	}}
	p := domain.Player{Rapport: 5, Coins: 9}
	if ok, _ := engine.EvaluateRequirement(req, p); ok {
		t.Fatalf("path should fail when one threshold is short")
	}
	p.Coins = 10
	ok, idx := engine.EvaluateRequirement(req, p)
	if !ok || idx != 0 {
		t.Fatalf("path should hold at exact thresholds, got ok=%v idx=%d", ok, idx)
	}
}

func TestEvaluateRequirementAnyPathSuffices(t *testing.T) {
	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{
		{AuthorityRequired: intp(8)},
		{CoinsRequired: intp(15)},
	}}
	p := domain.Player{Authority: 2, Coins: 20}
	ok, idx := engine.EvaluateRequirement(req, p)
	if !ok {
		t.Fatalf("second path should satisfy")
	}
	if idx != 1 {
		t.Fatalf("expected path index 1, got %d", idx)
	}
}

func TestEvaluateRequirementEmptyPathIsTrivial(t *testing.T) {
	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{
		{CunningRequired: intp(99)},
		{},
	}}
	ok, idx := engine.EvaluateRequirement(req, domain.Player{})
	if !ok || idx != 1 {
		t.Fatalf("path with no populated thresholds should satisfy, got ok=%v idx=%d", ok, idx)
	}
}

func TestEvaluateRequirementSituationCount(t *testing.T) {
	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{
		{SituationCountRequired: intp(3)},
	}}
	p := domain.Player{CompletedSituations: 2}
	if ok, _ := engine.EvaluateRequirement(req, p); ok {
		t.Fatalf("should fail below required count")
	}
	p.CompletedSituations = 3
	if ok, _ := engine.EvaluateRequirement(req, p); !ok {
		t.Fatalf("should hold at required count")
	}
}
