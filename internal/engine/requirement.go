package engine

import "wayline/internal/domain"

// NoPathSatisfied is the path index reported when evaluation fails or
// when an empty requirement is vacuously satisfied.
const NoPathSatisfied = -1

// EvaluateRequirement checks a compound requirement against the player
// snapshot. It returns whether any OR path is satisfied and the index
// of the first satisfied path, which the UI uses for path highlighting.
// A requirement with zero paths is vacuously satisfied; an OrPath with
// no populated thresholds is trivially satisfied. No side effects.
func EvaluateRequirement(req domain.CompoundRequirement, p domain.Player) (bool, int) {
	if len(req.OrPaths) == 0 {
		return true, NoPathSatisfied
	}
	for i, path := range req.OrPaths {
		if pathSatisfied(path, p) {
			return true, i
		}
	}
	return false, NoPathSatisfied
}

func pathSatisfied(path domain.OrPath, p domain.Player) bool {
	checks := []struct {
		required *int
		current  int
	}{
		{path.InsightRequired, p.Insight},
		{path.RapportRequired, p.Rapport},
		{path.AuthorityRequired, p.Authority},
		{path.DiplomacyRequired, p.Diplomacy},
		{path.CunningRequired, p.Cunning},
		{path.ResolveRequired, p.Resolve},
		{path.CoinsRequired, p.Coins},
		{path.HealthRequired, p.Health},
		{path.StaminaRequired, p.Stamina},
		{path.FocusRequired, p.Focus},
		{path.SituationCountRequired, p.CompletedSituations},
	}
	for _, c := range checks {
		if c.required != nil && c.current < *c.required {
			return false
		}
	}
	return true
}
