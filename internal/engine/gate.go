package engine

import (
	"strings"

	"wayline/internal/domain"
)

// Gate filters the action catalog and entity visibility through the
// step-scoped overrides of active narratives. The synonym table maps
// an authored category to the underlying categories it implies (e.g. a
// "Rest" allowance also covering "Sleep" actions); it is content data,
// never hard-coded per action.
type Gate struct {
	machine  *NarrativeMachine
	synonyms map[string][]string
}

func NewGate(machine *NarrativeMachine, synonyms map[string][]string) *Gate {
	lowered := make(map[string][]string, len(synonyms))
	for k, v := range synonyms {
		lowered[strings.ToLower(k)] = v
	}
	return &Gate{machine: machine, synonyms: lowered}
}

// Filter returns the subset of the catalog the active narratives
// allow. With no active narrative the catalog passes through
// untouched. An active step with an empty allowed list blocks
// everything until the step authors an allowance.
func (g *Gate) Filter(catalog []domain.Action, s *Session) []domain.Action {
	steps := g.machine.ActiveSteps(s)
	if len(steps) == 0 {
		return catalog
	}

	allowed := map[string]bool{}
	restricted := false
	for _, step := range steps {
		restricted = true
		for _, cat := range step.AllowedCategories {
			allowed[strings.ToLower(cat)] = true
			for _, syn := range g.synonyms[strings.ToLower(cat)] {
				allowed[strings.ToLower(syn)] = true
			}
		}
	}
	if !restricted {
		return catalog
	}

	filtered := make([]domain.Action, 0, len(catalog))
	for _, a := range catalog {
		if allowed[strings.ToLower(a.Category)] {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// NPCVisible reports whether any active step hides the NPC. A step
// with an empty visible set hides nothing.
func (g *Gate) NPCVisible(s *Session, npcID string) bool {
	for _, step := range g.machine.ActiveSteps(s) {
		if len(step.VisibleNPCs) > 0 && !containsFold(step.VisibleNPCs, npcID) {
			return false
		}
	}
	return true
}

// LocationVisible mirrors NPCVisible for locations.
func (g *Gate) LocationVisible(s *Session, locationID string) bool {
	for _, step := range g.machine.ActiveSteps(s) {
		if len(step.VisibleLocations) > 0 && !containsFold(step.VisibleLocations, locationID) {
			return false
		}
	}
	return true
}

// SpotVisible mirrors NPCVisible for location spots.
func (g *Gate) SpotVisible(s *Session, spotID string) bool {
	for _, step := range g.machine.ActiveSteps(s) {
		if len(step.VisibleSpots) > 0 && !containsFold(step.VisibleSpots, spotID) {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
