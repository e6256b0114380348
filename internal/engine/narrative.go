package engine

import (
	"errors"
	"fmt"

	"wayline/internal/domain"
)

var (
	ErrNarrativeUnknown  = errors.New("narrative not found")
	ErrNarrativeComplete = errors.New("narrative already completed")
	ErrNarrativeActive   = errors.New("narrative already active")
	ErrExclusiveConflict = errors.New("another exclusive narrative is active")
)

// NarrativeMachine advances authored step sequences over a session.
// Definitions are immutable shared templates loaded once; all
// per-playthrough progress lives in the session's NarrativeState
// entries, which hold nothing but the pointer and lifecycle stamps.
type NarrativeMachine struct {
	defs map[string]domain.NarrativeDefinition
}

func NewNarrativeMachine(defs []domain.NarrativeDefinition) *NarrativeMachine {
	m := &NarrativeMachine{defs: make(map[string]domain.NarrativeDefinition, len(defs))}
	for _, d := range defs {
		m.defs[d.ID] = d
	}
	return m
}

// Definition returns the authored template for an id.
func (m *NarrativeMachine) Definition(id string) (domain.NarrativeDefinition, bool) {
	d, ok := m.defs[id]
	return d, ok
}

func startedFlag(id string) string   { return fmt.Sprintf("narrative_%s_started", id) }
func completedFlag(id string) string { return fmt.Sprintf("narrative_%s_completed", id) }

// Start activates a narrative at step 0 and applies its start effects
// plus the first step's entry effects. Starting a completed narrative,
// an already-active one, or a second exclusive narrative is a failed
// result, never a panic.
func (m *NarrativeMachine) Start(s *Session, id string) error {
	def, ok := m.defs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNarrativeUnknown, id)
	}
	if s.Flags.Flag(completedFlag(id)) {
		return fmt.Errorf("%w: %s", ErrNarrativeComplete, id)
	}
	if st := s.Narratives[id]; st != nil && st.Active {
		return fmt.Errorf("%w: %s", ErrNarrativeActive, id)
	}
	if def.Exclusive {
		if other, active := m.ExclusiveActive(s); active && other != id {
			return fmt.Errorf("%w: %s blocks %s", ErrExclusiveConflict, other, id)
		}
	}

	s.Narratives[id] = &domain.NarrativeState{
		NarrativeID: id,
		StepIndex:   0,
		Active:      true,
		StartedAt:   s.now(),
	}
	s.Flags.SetFlag(startedFlag(id), true)
	m.applyEffects(s, def.StartEffects)
	if len(def.Steps) > 0 {
		m.applyEffects(s, def.Steps[0].EntryEffects)
	} else {
		// Empty narratives complete on arrival.
		m.complete(s, def, true)
	}
	return nil
}

// CheckAndAdvance evaluates the current step's completion conditions
// and walks forward while they hold, applying completion effects in
// authored order and the next step's entry effects. Returns the ids of
// the steps that completed. No-op once the narrative is complete.
func (m *NarrativeMachine) CheckAndAdvance(s *Session, id string) []string {
	def, ok := m.defs[id]
	if !ok {
		return nil
	}
	st := s.Narratives[id]
	if st == nil || !st.Active {
		return nil
	}
	if !m.recoverPointer(s, def, st) {
		return nil
	}

	var completed []string
	for st.Active {
		step := def.Steps[st.StepIndex]
		if !m.conditionsHold(s, step.CompletionConditions) {
			break
		}
		m.applyEffects(s, step.CompletionEffects)
		completed = append(completed, step.ID)
		st.StepIndex++
		if st.StepIndex >= len(def.Steps) {
			m.complete(s, def, true)
			break
		}
		m.applyEffects(s, def.Steps[st.StepIndex].EntryEffects)
	}
	return completed
}

// CheckAll runs CheckAndAdvance over every active narrative and
// reports completed step ids.
func (m *NarrativeMachine) CheckAll(s *Session) []string {
	var all []string
	for id, st := range s.Narratives {
		if st.Active {
			all = append(all, m.CheckAndAdvance(s, id)...)
		}
	}
	return all
}

// recoverPointer snaps a corrupted step index back to a valid step
// instead of faulting the narrative: a negative index snaps to step 0,
// an index past the last step resolves as completion. Completion
// rewards are not re-applied on recovery since a past-the-end pointer
// means the walk already ran. Reports whether the narrative is still
// active afterward.
func (m *NarrativeMachine) recoverPointer(s *Session, def domain.NarrativeDefinition, st *domain.NarrativeState) bool {
	if st.StepIndex < 0 {
		st.StepIndex = 0
		return true
	}
	if st.StepIndex >= len(def.Steps) {
		m.complete(s, def, false)
		return false
	}
	return true
}

func (m *NarrativeMachine) complete(s *Session, def domain.NarrativeDefinition, withRewards bool) {
	st := s.Narratives[def.ID]
	if st == nil || !st.Active {
		return
	}
	st.Active = false
	now := s.now()
	st.CompletedAt = &now
	s.Flags.SetFlag(completedFlag(def.ID), true)
	if withRewards {
		m.applyEffects(s, def.CompletionRewards)
	}
}

func (m *NarrativeMachine) conditionsHold(s *Session, conds []domain.StepCondition) bool {
	for _, c := range conds {
		switch c.Kind {
		case domain.CondFlagSet:
			if !s.Flags.Flag(c.Key) {
				return false
			}
		case domain.CondFlagNotSet:
			if s.Flags.Flag(c.Key) {
				return false
			}
		case domain.CondCounterAtLeast:
			if s.Flags.Counter(c.Key) < c.Value {
				return false
			}
		case domain.CondCounterBelow:
			if s.Flags.Counter(c.Key) >= c.Value {
				return false
			}
		case domain.CondCounterEquals:
			if s.Flags.Counter(c.Key) != c.Value {
				return false
			}
		default:
			// Unknown kinds are rejected at content load; an unknown
			// kind reaching runtime blocks rather than silently passes.
			return false
		}
	}
	return true
}

func (m *NarrativeMachine) applyEffects(s *Session, effects []domain.StepEffect) {
	for _, e := range effects {
		switch e.Kind {
		case domain.EffectSetFlag:
			s.Flags.SetFlag(e.Key, true)
		case domain.EffectClearFlag:
			s.Flags.SetFlag(e.Key, false)
		case domain.EffectSetCounter:
			s.Flags.SetCounter(e.Key, e.Value)
		case domain.EffectIncrementCounter:
			s.Flags.IncrementCounter(e.Key, e.Value)
		case domain.EffectApplyConsequence:
			ApplyConsequence(e.Consequence, &s.Player)
		}
	}
}

// CurrentStep returns the active step for a narrative, if any.
func (m *NarrativeMachine) CurrentStep(s *Session, id string) (domain.NarrativeStep, bool) {
	def, ok := m.defs[id]
	if !ok {
		return domain.NarrativeStep{}, false
	}
	st := s.Narratives[id]
	if st == nil || !st.Active || st.StepIndex < 0 || st.StepIndex >= len(def.Steps) {
		return domain.NarrativeStep{}, false
	}
	return def.Steps[st.StepIndex], true
}

// CurrentStepIndex returns -1 when the narrative has never started.
func (m *NarrativeMachine) CurrentStepIndex(s *Session, id string) int {
	st := s.Narratives[id]
	if st == nil {
		return -1
	}
	return st.StepIndex
}

func (m *NarrativeMachine) TotalSteps(id string) int {
	return len(m.defs[id].Steps)
}

func (m *NarrativeMachine) IsActive(s *Session, id string) bool {
	st := s.Narratives[id]
	return st != nil && st.Active
}

func (m *NarrativeMachine) IsComplete(s *Session, id string) bool {
	return s.Flags.Flag(completedFlag(id))
}

// ActiveNarratives lists ids with a live state.
func (m *NarrativeMachine) ActiveNarratives(s *Session) []string {
	var ids []string
	for id, st := range s.Narratives {
		if st.Active {
			ids = append(ids, id)
		}
	}
	return ids
}

// ExclusiveActive reports the currently active exclusive narrative.
func (m *NarrativeMachine) ExclusiveActive(s *Session) (string, bool) {
	for id, st := range s.Narratives {
		if st.Active {
			if def, ok := m.defs[id]; ok && def.Exclusive {
				return id, true
			}
		}
	}
	return "", false
}

// ActiveSteps returns the current step of every active narrative; the
// gate and visibility reads consume this.
func (m *NarrativeMachine) ActiveSteps(s *Session) []domain.NarrativeStep {
	var steps []domain.NarrativeStep
	for _, id := range m.ActiveNarratives(s) {
		if step, ok := m.CurrentStep(s, id); ok {
			steps = append(steps, step)
		}
	}
	return steps
}

// DialogueOverride returns the step-scoped dialogue line for an NPC,
// if any active step authors one.
func (m *NarrativeMachine) DialogueOverride(s *Session, npcID string) (string, bool) {
	for _, step := range m.ActiveSteps(s) {
		if line, ok := step.DialogueOverrides[npcID]; ok {
			return line, true
		}
	}
	return "", false
}

// DeliveryBoardOverride returns the step-scoped board content, if any.
func (m *NarrativeMachine) DeliveryBoardOverride(s *Session) (string, bool) {
	for _, step := range m.ActiveSteps(s) {
		if step.DeliveryBoardOverride != "" {
			return step.DeliveryBoardOverride, true
		}
	}
	return "", false
}
