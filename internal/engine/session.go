package engine

import (
	"time"

	"wayline/internal/domain"
)

// Session is one player's live game state: the only mutable surface in
// the core. Templates (catalog, narrative definitions) are shared and
// immutable; the session holds resource totals, narrative pointers,
// queue contents and flags, nothing authored.
type Session struct {
	ID         string
	Player     domain.Player
	Narratives map[string]*domain.NarrativeState
	Queue      *DeliveryQueue
	Flags      FlagStore
	CreatedAt  string
	UpdatedAt  string

	nowFn func() time.Time
}

func (s *Session) now() string {
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	return s.nowFn().UTC().Format(time.RFC3339)
}

// NewSession starts a fresh playthrough.
func NewSession(id string, player domain.Player, queueCapacity int, now func() time.Time) *Session {
	s := &Session{
		ID:         id,
		Player:     player,
		Narratives: map[string]*domain.NarrativeState{},
		Queue:      NewDeliveryQueue(queueCapacity),
		Flags:      NewFlagStore(),
		nowFn:      now,
	}
	s.CreatedAt = s.now()
	s.UpdatedAt = s.CreatedAt
	return s
}

// SessionFromSnapshot rehydrates a persisted session. It only copies
// state: no narrative effects re-run on restore.
func SessionFromSnapshot(snap domain.SessionSnapshot, queueCapacity int, now func() time.Time) *Session {
	s := &Session{
		ID:         snap.ID,
		Player:     snap.Player,
		Narratives: make(map[string]*domain.NarrativeState, len(snap.Narratives)),
		Queue:      NewDeliveryQueueFromItems(queueCapacity, snap.Queue),
		Flags:      NewFlagStore(),
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.UpdatedAt,
		nowFn:      now,
	}
	for _, ns := range snap.Narratives {
		st := ns
		s.Narratives[ns.NarrativeID] = &st
	}
	s.Flags.Restore(snap.Flags)
	return s
}

// Snapshot returns the serializable view the persistence layer stores.
func (s *Session) Snapshot() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		ID:        s.ID,
		Player:    s.Player,
		Queue:     s.Queue.Items(),
		Flags:     s.Flags.Snapshot(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for _, st := range s.Narratives {
		snap.Narratives = append(snap.Narratives, *st)
	}
	return snap
}
