package engine

import "wayline/internal/domain"

// ApplyConsequence mutates the player by every nonzero field of the
// consequence and returns the delta actually applied. Bounded
// resources clamp to [0,max]; coins, resolve and stats clamp at zero.
// The returned record differs from the nominal consequence exactly
// where clamping reduced the effect. A tracked resource can never go
// negative through this path.
func ApplyConsequence(c domain.Consequence, p *domain.Player) domain.Consequence {
	var applied domain.Consequence

	applied.Coins = applyFloored(&p.Coins, c.Coins)
	applied.Resolve = applyFloored(&p.Resolve, c.Resolve)

	applied.Health = applyBounded(&p.Health, c.Health, p.MaxHealth)
	applied.Stamina = applyBounded(&p.Stamina, c.Stamina, p.MaxStamina)
	applied.Focus = applyBounded(&p.Focus, c.Focus, p.MaxFocus)
	applied.Hunger = applyBounded(&p.Hunger, c.Hunger, p.MaxHunger)

	applied.Insight = applyFloored(&p.Insight, c.Insight)
	applied.Rapport = applyFloored(&p.Rapport, c.Rapport)
	applied.Authority = applyFloored(&p.Authority, c.Authority)
	applied.Diplomacy = applyFloored(&p.Diplomacy, c.Diplomacy)
	applied.Cunning = applyFloored(&p.Cunning, c.Cunning)

	return applied
}

// applyFloored adds delta clamping the result at zero and reports the
// effective change.
func applyFloored(target *int, delta int) int {
	if delta == 0 {
		return 0
	}
	before := *target
	after := before + delta
	if after < 0 {
		after = 0
	}
	*target = after
	return after - before
}

// applyBounded adds delta clamping to [0,max]; max <= 0 means the
// resource has no upper bound.
func applyBounded(target *int, delta, max int) int {
	if delta == 0 {
		return 0
	}
	before := *target
	after := before + delta
	if after < 0 {
		after = 0
	}
	if max > 0 && after > max {
		after = max
	}
	*target = after
	return after - before
}
