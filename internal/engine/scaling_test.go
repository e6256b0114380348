package engine_test

import (
	"testing"

	"wayline/internal/domain"
	"wayline/internal/engine"
)

func TestDeriveScalingDispositionTiers(t *testing.T) {
	rules := domain.DefaultScalingRules()
	cases := []struct {
		flow int
		want int
	}{
		{0, 2},
		{9, 2},
		{10, 0},
		{14, 0},
		{15, -2},
		{30, -2},
	}
	for _, c := range cases {
		npc := &domain.NPC{ID: "n", Tier: 3, RelationshipFlow: c.flow}
		sc := engine.DeriveScaling(rules, npc, nil, domain.Player{})
		if sc.StatRequirementAdjustment != c.want {
			t.Fatalf("flow %d: expected stat adjust %d, got %d", c.flow, c.want, sc.StatRequirementAdjustment)
		}
	}
}

func TestDeriveScalingLocationTiers(t *testing.T) {
	rules := domain.DefaultScalingRules()
	cases := []struct {
		tier int
		want int
	}{
		{0, -3},
		{1, -3},
		{2, 0},
		{3, 5},
		{4, 10},
		{7, 10},
	}
	for _, c := range cases {
		loc := &domain.Location{ID: "l", Tier: c.tier}
		sc := engine.DeriveScaling(rules, nil, loc, domain.Player{})
		if sc.CoinCostAdjustment != c.want {
			t.Fatalf("tier %d: expected coin adjust %d, got %d", c.tier, c.want, sc.CoinCostAdjustment)
		}
	}
}

func TestDeriveScalingNPCTierResolve(t *testing.T) {
	rules := domain.DefaultScalingRules()
	high := &domain.NPC{ID: "n", Tier: 5, RelationshipFlow: 12}
	if sc := engine.DeriveScaling(rules, high, nil, domain.Player{}); sc.ResolveCostAdjustment != 1 {
		t.Fatalf("tier 5 should add submissive resolve adjust, got %d", sc.ResolveCostAdjustment)
	}
	low := &domain.NPC{ID: "n", Tier: 1, RelationshipFlow: 12}
	if sc := engine.DeriveScaling(rules, low, nil, domain.Player{}); sc.ResolveCostAdjustment != -1 {
		t.Fatalf("tier 1 should add dominant resolve adjust, got %d", sc.ResolveCostAdjustment)
	}
	mid := &domain.NPC{ID: "n", Tier: 3, RelationshipFlow: 12}
	if sc := engine.DeriveScaling(rules, mid, nil, domain.Player{}); sc.ResolveCostAdjustment != 0 {
		t.Fatalf("tier 3 should not adjust resolve, got %d", sc.ResolveCostAdjustment)
	}
}

func TestDeriveScalingAuthorityShiftsPowerDynamic(t *testing.T) {
	rules := domain.DefaultScalingRules()
	npc := &domain.NPC{ID: "n", Tier: 4, RelationshipFlow: 12}

	if sc := engine.DeriveScaling(rules, npc, nil, domain.Player{}); sc.ResolveCostAdjustment != 1 {
		t.Fatalf("no authority against tier 4 should be submissive, got %d", sc.ResolveCostAdjustment)
	}
	if sc := engine.DeriveScaling(rules, npc, nil, domain.Player{Authority: 2}); sc.ResolveCostAdjustment != 0 {
		t.Fatalf("authority 2 against tier 4 should be neutral, got %d", sc.ResolveCostAdjustment)
	}
	if sc := engine.DeriveScaling(rules, npc, nil, domain.Player{Authority: 4}); sc.ResolveCostAdjustment != -1 {
		t.Fatalf("authority 4 against tier 4 should be dominant, got %d", sc.ResolveCostAdjustment)
	}
}

func TestDeriveScalingNilInputsAreNeutral(t *testing.T) {
	sc := engine.DeriveScaling(domain.DefaultScalingRules(), nil, nil, domain.Player{})
	if !sc.IsZero() {
		t.Fatalf("nil npc and location should derive a zero context: %+v", sc)
	}
}

func TestApplyToRequirementHostileRaisesThresholds(t *testing.T) {
	sc := engine.ScalingContext{StatRequirementAdjustment: 2}
	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{
		{RapportRequired: intp(5), CoinsRequired: intp(10)},
	}}
	scaled := sc.ApplyToRequirement(req)
	if got := *scaled.OrPaths[0].RapportRequired; got != 7 {
		t.Fatalf("hostile rapport 5 should scale to 7, got %d", got)
	}
	if got := *scaled.OrPaths[0].CoinsRequired; got != 10 {
		t.Fatalf("stat adjust must not touch coin threshold, got %d", got)
	}
	if got := *req.OrPaths[0].RapportRequired; got != 5 {
		t.Fatalf("template must stay untouched, got %d", got)
	}
}

func TestApplyToRequirementFriendlyLowersAndClamps(t *testing.T) {
	sc := engine.ScalingContext{StatRequirementAdjustment: -2}
	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{
		{RapportRequired: intp(5), CunningRequired: intp(1)},
	}}
	scaled := sc.ApplyToRequirement(req)
	if got := *scaled.OrPaths[0].RapportRequired; got != 3 {
		t.Fatalf("friendly rapport 5 should scale to 3, got %d", got)
	}
	if got := *scaled.OrPaths[0].CunningRequired; got != 0 {
		t.Fatalf("friendly cunning 1 should clamp to 0, got %d", got)
	}
}

func TestApplyToRequirementNilThresholdStaysNil(t *testing.T) {
	sc := engine.ScalingContext{StatRequirementAdjustment: 2, CoinCostAdjustment: 5}
	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{{InsightRequired: intp(4)}}}
	scaled := sc.ApplyToRequirement(req)
	if scaled.OrPaths[0].RapportRequired != nil {
		t.Fatalf("absent threshold must stay absent")
	}
	if scaled.OrPaths[0].CoinsRequired != nil {
		t.Fatalf("absent coin threshold must stay absent")
	}
}

func TestApplyToConsequenceScalesOnlyCosts(t *testing.T) {
	luxury := engine.ScalingContext{CoinCostAdjustment: 10}
	scaled := luxury.ApplyToConsequence(domain.Consequence{Coins: -10})
	if scaled.Coins != -20 {
		t.Fatalf("luxury cost -10 should scale to -20, got %d", scaled.Coins)
	}

	basic := engine.ScalingContext{CoinCostAdjustment: -3}
	scaled = basic.ApplyToConsequence(domain.Consequence{Coins: -10})
	if scaled.Coins != -7 {
		t.Fatalf("basic cost -10 should scale to -7, got %d", scaled.Coins)
	}

	scaled = luxury.ApplyToConsequence(domain.Consequence{Coins: 10})
	if scaled.Coins != 10 {
		t.Fatalf("rewards must pass through untouched, got %d", scaled.Coins)
	}
}

func TestApplyToConsequenceResolveCost(t *testing.T) {
	sc := engine.ScalingContext{ResolveCostAdjustment: 1}
	scaled := sc.ApplyToConsequence(domain.Consequence{Resolve: -2, Stamina: -4})
	if scaled.Resolve != -3 {
		t.Fatalf("resolve cost -2 should scale to -3, got %d", scaled.Resolve)
	}
	if scaled.Stamina != -4 {
		t.Fatalf("stamina is never scaled, got %d", scaled.Stamina)
	}
}

func TestScalingContextsComposeAdditively(t *testing.T) {
	first := engine.ScalingContext{StatRequirementAdjustment: 2, CoinCostAdjustment: 3, ResolveCostAdjustment: 1}
	second := engine.ScalingContext{StatRequirementAdjustment: 1, CoinCostAdjustment: 4, ResolveCostAdjustment: 1}
	summed := engine.ScalingContext{StatRequirementAdjustment: 3, CoinCostAdjustment: 7, ResolveCostAdjustment: 2}

	req := domain.CompoundRequirement{OrPaths: []domain.OrPath{
		{RapportRequired: intp(6), CoinsRequired: intp(10), ResolveRequired: intp(4)},
	}}
	twice := second.ApplyToRequirement(first.ApplyToRequirement(req))
	once := summed.ApplyToRequirement(req)
	if *twice.OrPaths[0].RapportRequired != *once.OrPaths[0].RapportRequired {
		t.Fatalf("rapport thresholds diverge: %d vs %d", *twice.OrPaths[0].RapportRequired, *once.OrPaths[0].RapportRequired)
	}
	if *twice.OrPaths[0].CoinsRequired != *once.OrPaths[0].CoinsRequired {
		t.Fatalf("coin thresholds diverge: %d vs %d", *twice.OrPaths[0].CoinsRequired, *once.OrPaths[0].CoinsRequired)
	}
	if *twice.OrPaths[0].ResolveRequired != *once.OrPaths[0].ResolveRequired {
		t.Fatalf("resolve thresholds diverge: %d vs %d", *twice.OrPaths[0].ResolveRequired, *once.OrPaths[0].ResolveRequired)
	}

	cost := domain.Consequence{Coins: -12, Resolve: -5}
	seq := second.ApplyToConsequence(first.ApplyToConsequence(cost))
	combined := summed.ApplyToConsequence(cost)
	if seq != combined {
		t.Fatalf("sequential contexts should match the summed context away from the clamp: %+v vs %+v", seq, combined)
	}
}

func TestApplyToConsequenceCostClampAtZero(t *testing.T) {
	sc := engine.ScalingContext{CoinCostAdjustment: -5}
	scaled := sc.ApplyToConsequence(domain.Consequence{Coins: -3})
	if scaled.Coins != 0 {
		t.Fatalf("cost magnitude can never go negative, got %d", scaled.Coins)
	}
}
