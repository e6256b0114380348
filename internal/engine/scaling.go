package engine

import "wayline/internal/domain"

// ScalingContext is a transient value derived per (NPC, location,
// player) triple at the moment an action is offered. It is never
// persisted; display and execution share one derived context so the
// numbers shown are exactly the numbers paid.
type ScalingContext struct {
	StatRequirementAdjustment int `json:"stat_requirement_adjustment"`
	CoinCostAdjustment        int `json:"coin_cost_adjustment"`
	ResolveCostAdjustment     int `json:"resolve_cost_adjustment"`
}

// powerStanding is the player's side of the power dynamic: every two
// points of authority raise their standing by one tier.
func powerStanding(p domain.Player) int {
	return p.Authority / 2
}

// DeriveScaling computes the adjustment triple from relational and
// environmental state. Pure: same inputs, same output. A nil NPC or
// location contributes no adjustment on its axis. The power dynamic
// weighs the NPC's tier against the player's standing, so earned
// authority narrows the gap to a powerful patron.
func DeriveScaling(rules domain.ScalingRules, npc *domain.NPC, loc *domain.Location, p domain.Player) ScalingContext {
	var ctx ScalingContext
	if npc != nil {
		switch {
		case npc.RelationshipFlow <= rules.HostileFlowMax:
			ctx.StatRequirementAdjustment = rules.HostileStatAdjust
		case npc.RelationshipFlow <= rules.NeutralFlowMax:
			ctx.StatRequirementAdjustment = 0
		default:
			ctx.StatRequirementAdjustment = rules.FriendlyStatAdjust
		}
		switch gap := npc.Tier - powerStanding(p); {
		case gap >= 4:
			ctx.ResolveCostAdjustment = rules.SubmissiveResolveAdjust
		case gap <= 2:
			ctx.ResolveCostAdjustment = rules.DominantResolveAdjust
		}
	}
	if loc != nil {
		switch {
		case loc.Tier <= 1:
			ctx.CoinCostAdjustment = rules.BasicCoinAdjust
		case loc.Tier == 2:
			ctx.CoinCostAdjustment = 0
		case loc.Tier == 3:
			ctx.CoinCostAdjustment = rules.PremiumCoinAdjust
		default:
			ctx.CoinCostAdjustment = rules.LuxuryCoinAdjust
		}
	}
	return ctx
}

// IsZero reports whether the context adjusts nothing.
func (sc ScalingContext) IsZero() bool {
	return sc.StatRequirementAdjustment == 0 && sc.CoinCostAdjustment == 0 && sc.ResolveCostAdjustment == 0
}

// adjust returns base+delta clamped at zero: a requirement or cost
// magnitude can never become negative.
func adjust(base, delta int) int {
	v := base + delta
	if v < 0 {
		return 0
	}
	return v
}

func adjustThreshold(base *int, delta int) *int {
	if base == nil {
		return nil
	}
	v := adjust(*base, delta)
	return &v
}

// ApplyToRequirement returns a scaled copy of the requirement: the
// stat adjustment lands on every populated stat threshold, the coin
// and resolve adjustments on their thresholds, each clamped at zero.
// The original template is never touched; templates are shared across
// live action instances.
func (sc ScalingContext) ApplyToRequirement(req domain.CompoundRequirement) domain.CompoundRequirement {
	scaled := domain.CompoundRequirement{OrPaths: make([]domain.OrPath, len(req.OrPaths))}
	for i, path := range req.OrPaths {
		p := path // value copy; pointer fields re-pointed below
		p.InsightRequired = adjustThreshold(path.InsightRequired, sc.StatRequirementAdjustment)
		p.RapportRequired = adjustThreshold(path.RapportRequired, sc.StatRequirementAdjustment)
		p.AuthorityRequired = adjustThreshold(path.AuthorityRequired, sc.StatRequirementAdjustment)
		p.DiplomacyRequired = adjustThreshold(path.DiplomacyRequired, sc.StatRequirementAdjustment)
		p.CunningRequired = adjustThreshold(path.CunningRequired, sc.StatRequirementAdjustment)
		p.ResolveRequired = adjustThreshold(path.ResolveRequired, sc.ResolveCostAdjustment)
		p.CoinsRequired = adjustThreshold(path.CoinsRequired, sc.CoinCostAdjustment)
		scaled.OrPaths[i] = p
	}
	return scaled
}

// ApplyToConsequence returns a scaled copy of the consequence. Only
// the cost side moves: a negative coin or resolve value has the
// adjustment added to its magnitude, while rewards pass through
// untouched, so an expensive venue can never inflate a payout.
func (sc ScalingContext) ApplyToConsequence(c domain.Consequence) domain.Consequence {
	scaled := c
	if c.Coins < 0 {
		scaled.Coins = -adjust(-c.Coins, sc.CoinCostAdjustment)
	}
	if c.Resolve < 0 {
		scaled.Resolve = -adjust(-c.Resolve, sc.ResolveCostAdjustment)
	}
	return scaled
}
