package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wayline/internal/content"
	"wayline/internal/domain"
	"wayline/internal/events"
	"wayline/internal/repo"
)

// Engine wires the pure core to content and persistence. One Engine
// serves many sessions; per-session mutexes serialize writes so two
// concurrent attempts on the same session cannot both see the same
// pre-deduction balance.
type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Content *content.Content
	Now     func() time.Time

	machine *NarrativeMachine
	gate    *Gate

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(db *sql.DB, c *content.Content) *Engine {
	e := &Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Events:  events.Writer{DB: db},
		Content: c,
		Now:     time.Now,
		locks:   map[string]*sync.Mutex{},
	}
	e.machine = NewNarrativeMachine(c.Narratives)
	e.gate = NewGate(e.machine, c.CategorySynonyms)
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) sessionLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

func (e *Engine) queueCapacity() int {
	if e.Content.QueueCapacity > 0 {
		return e.Content.QueueCapacity
	}
	return DefaultQueueCapacity
}

// CreateSession starts a new playthrough from the authored starting
// player and persists it.
func (e *Engine) CreateSession(ctx context.Context, id string) (domain.SessionSnapshot, error) {
	if id == "" {
		id = uuid.NewString()
	}
	s := NewSession(id, e.Content.StartingPlayer, e.queueCapacity(), e.Now)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	defer tx.Rollback()

	snap := s.Snapshot()
	if err := e.Repo.UpsertSessionTx(ctx, tx, snap); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("insert session: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "session.created", s.ID, "session", s.ID, events.EventPayload{
		"coins": s.Player.Coins,
	}); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SessionSnapshot{}, err
	}
	return snap, nil
}

// GetSession loads and rehydrates a session. Restore only copies
// state: no entry or completion effects re-run.
func (e *Engine) GetSession(ctx context.Context, id string) (*Session, error) {
	snap, err := e.Repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return SessionFromSnapshot(snap, e.queueCapacity(), e.Now), nil
}

func (e *Engine) DeleteSession(ctx context.Context, id string) error {
	return e.Repo.DeleteSession(ctx, id)
}

func (e *Engine) ListSessions(ctx context.Context) ([]repo.SessionInfo, error) {
	return e.Repo.ListSessions(ctx)
}

// persist writes the snapshot and an event in one transaction.
func (e *Engine) persist(ctx context.Context, s *Session, evtType, entityKind, entityID string, payload events.EventPayload) error {
	s.UpdatedAt = s.now()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSessionTx(ctx, tx, s.Snapshot()); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := e.Events.Append(ctx, tx, evtType, s.ID, entityKind, entityID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// scaledAction derives the scaling context for an action from the
// authored NPC and location it references and returns the scaled
// requirement and consequence. Display and execution both come through
// here so the numbers shown are the numbers paid.
func (e *Engine) scaledAction(s *Session, a domain.Action) (domain.CompoundRequirement, domain.Consequence) {
	sc := DeriveScaling(e.Content.Scaling, e.Content.NPC(a.NPCID), e.Content.Location(a.LocationID), s.Player)
	return sc.ApplyToRequirement(a.Requirement), sc.ApplyToConsequence(a.Consequence)
}

// ListActions returns the gated catalog with scaled values and
// per-action satisfaction, ready for display.
func (e *Engine) ListActions(ctx context.Context, sessionID string) ([]domain.ActionView, error) {
	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	catalog := e.gate.Filter(e.Content.Catalog, s)
	views := make([]domain.ActionView, 0, len(catalog))
	for _, a := range catalog {
		req, cons := e.scaledAction(s, a)
		ok, idx := EvaluateRequirement(req, s.Player)
		views = append(views, domain.ActionView{
			Action:             a,
			ScaledRequirement:  req,
			ScaledConsequence:  cons,
			Satisfied:          ok,
			SatisfiedPathIndex: idx,
		})
	}
	return views, nil
}

// PerformAction runs the full gate-evaluate-apply-advance pipeline for
// one attempt. A refusal (unknown action, gated category, unmet
// requirement) is a failed ActionResult with a reason, not an error;
// errors are reserved for infrastructure faults. State only persists
// on success, so a failed attempt costs nothing.
func (e *Engine) PerformAction(ctx context.Context, sessionID, actionID string) (domain.ActionResult, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ActionResult{}, err
	}

	a := e.Content.Action(actionID)
	if a == nil {
		return domain.ActionResult{
			OK:     false,
			Reason: fmt.Sprintf("unknown action %s", actionID),
		}, nil
	}

	allowed := false
	for _, ga := range e.gate.Filter([]domain.Action{*a}, s) {
		if strings.EqualFold(ga.ID, a.ID) {
			allowed = true
		}
	}
	if !allowed {
		return domain.ActionResult{
			OK:       false,
			ActionID: a.ID,
			Reason:   fmt.Sprintf("%s is not available right now", a.Name),
		}, nil
	}

	req, cons := e.scaledAction(s, *a)
	satisfied, _ := EvaluateRequirement(req, s.Player)
	if !satisfied {
		return domain.ActionResult{
			OK:       false,
			ActionID: a.ID,
			Reason:   fmt.Sprintf("requirements for %s are not met", a.Name),
		}, nil
	}

	applied := ApplyConsequence(cons, &s.Player)
	s.Player.CompletedSituations++

	category := strings.ToLower(a.Category)
	s.Flags.SetFlag(category+"_performed", true)
	s.Flags.IncrementCounter(category+"_count", 1)
	s.Flags.IncrementCounter("actions_taken", 1)

	advanced := e.machine.CheckAll(s)

	result := domain.ActionResult{
		OK:            true,
		ActionID:      a.ID,
		Applied:       applied,
		StepsAdvanced: advanced,
	}
	err = e.persist(ctx, s, "action.performed", "action", a.ID, events.EventPayload{
		"applied":        applied,
		"steps_advanced": advanced,
	})
	if err != nil {
		return domain.ActionResult{}, err
	}
	return result, nil
}

// StartNarrative activates a narrative and persists the resulting
// state, including any immediately-completed steps.
func (e *Engine) StartNarrative(ctx context.Context, sessionID, narrativeID string) (*Session, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := e.machine.Start(s, narrativeID); err != nil {
		return nil, err
	}
	advanced := e.machine.CheckAll(s)
	err = e.persist(ctx, s, "narrative.started", "narrative", narrativeID, events.EventPayload{
		"steps_advanced": advanced,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NarrativeStatus is the progress view for one narrative.
type NarrativeStatus struct {
	NarrativeID string                `json:"narrative_id"`
	Title       string                `json:"title,omitempty"`
	Active      bool                  `json:"active"`
	Complete    bool                  `json:"complete"`
	StepIndex   int                   `json:"step_index"`
	TotalSteps  int                   `json:"total_steps"`
	Step        *domain.NarrativeStep `json:"step,omitempty"`
}

func (e *Engine) NarrativeStatuses(ctx context.Context, sessionID string) ([]NarrativeStatus, error) {
	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var res []NarrativeStatus
	for _, def := range e.Content.Narratives {
		st := NarrativeStatus{
			NarrativeID: def.ID,
			Title:       def.Title,
			Active:      e.machine.IsActive(s, def.ID),
			Complete:    e.machine.IsComplete(s, def.ID),
			StepIndex:   e.machine.CurrentStepIndex(s, def.ID),
			TotalSteps:  e.machine.TotalSteps(def.ID),
		}
		if step, ok := e.machine.CurrentStep(s, def.ID); ok {
			stepCopy := step
			st.Step = &stepCopy
		}
		res = append(res, st)
	}
	return res, nil
}

// Guidance returns the guidance text of every active step.
func (e *Engine) Guidance(ctx context.Context, sessionID string) ([]string, error) {
	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, step := range e.machine.ActiveSteps(s) {
		if step.GuidanceText != "" {
			lines = append(lines, step.GuidanceText)
		}
	}
	return lines, nil
}

// AcceptDelivery appends an ordinary delivery commitment to the queue.
func (e *Engine) AcceptDelivery(ctx context.Context, sessionID string, item domain.DeliveryItem) (*Session, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.PreferredPosition > 0 {
		if _, _, err := s.Queue.InsertWithLeverage(item, item.PreferredPosition); err != nil {
			return nil, err
		}
	} else if err := s.Queue.Enqueue(item); err != nil {
		return nil, err
	}
	err = e.persist(ctx, s, "queue.accepted", "delivery", item.ID, events.EventPayload{
		"sender":    item.Sender,
		"recipient": item.Recipient,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ForceDeliveryFront is the privileged insertion: the item takes
// position 1 and the previous tail is evicted if the queue was full.
// The evicted item, if any, is reported so the caller can apply the
// displacement penalty.
func (e *Engine) ForceDeliveryFront(ctx context.Context, sessionID string, item domain.DeliveryItem, penalty domain.Consequence) (*domain.DeliveryItem, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	evicted := s.Queue.ForceInsertFront(item)
	payload := events.EventPayload{"sender": item.Sender}
	if evicted != nil {
		payload["evicted"] = evicted.ID
		if !penalty.IsZero() {
			ApplyConsequence(penalty, &s.Player)
		}
	}
	if err := e.persist(ctx, s, "queue.forced", "delivery", item.ID, payload); err != nil {
		return nil, err
	}
	return evicted, nil
}

// ReorderDelivery moves a queued item between positions.
func (e *Engine) ReorderDelivery(ctx context.Context, sessionID string, from, to int) (*Session, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Queue.Reorder(from, to); err != nil {
		return nil, err
	}
	err = e.persist(ctx, s, "queue.reordered", "queue", s.ID, events.EventPayload{
		"from": from, "to": to,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CompleteDelivery removes the item at a position and applies its
// reward, then re-checks narratives since delivery counters may move a
// step forward.
func (e *Engine) CompleteDelivery(ctx context.Context, sessionID string, position int, reward domain.Consequence) (domain.ActionResult, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ActionResult{}, err
	}
	item, err := s.Queue.Remove(position)
	if err != nil {
		return domain.ActionResult{}, err
	}
	applied := ApplyConsequence(reward, &s.Player)
	s.Flags.IncrementCounter("deliveries_completed", 1)
	advanced := e.machine.CheckAll(s)

	result := domain.ActionResult{
		OK:            true,
		ActionID:      item.ID,
		Applied:       applied,
		StepsAdvanced: advanced,
	}
	err = e.persist(ctx, s, "queue.delivered", "delivery", item.ID, events.EventPayload{
		"applied": applied,
	})
	if err != nil {
		return domain.ActionResult{}, err
	}
	return result, nil
}

// SetFlag writes a named flag or counter and re-checks narratives.
func (e *Engine) SetFlag(ctx context.Context, sessionID, name string, value bool) (*Session, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.Flags.SetFlag(name, value)
	advanced := e.machine.CheckAll(s)
	err = e.persist(ctx, s, "flag.set", "flag", name, events.EventPayload{
		"value": value, "steps_advanced": advanced,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (e *Engine) SetCounter(ctx context.Context, sessionID, name string, value int) (*Session, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.Flags.SetCounter(name, value)
	advanced := e.machine.CheckAll(s)
	err = e.persist(ctx, s, "counter.set", "flag", name, events.EventPayload{
		"value": value, "steps_advanced": advanced,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Machine exposes the narrative machine for read-side callers.
func (e *Engine) Machine() *NarrativeMachine { return e.machine }

// Gatekeeper exposes the action gate for read-side callers.
func (e *Engine) Gatekeeper() *Gate { return e.gate }
