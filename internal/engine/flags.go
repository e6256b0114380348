package engine

import "wayline/internal/domain"

// Well-known flag names the tutorial content keys on.
const (
	FlagTutorialStarted  = "narrative_tutorial_started"
	FlagTutorialComplete = "narrative_tutorial_completed"
)

// FlagStore is the injected named-boolean/counter service the
// narrative machine reads for conditions and writes on start and
// completion. It is plain state with no behavior of its own, kept
// behind an interface so the core stays testable without globals.
type FlagStore interface {
	Flag(name string) bool
	SetFlag(name string, value bool)
	Counter(name string) int
	SetCounter(name string, value int)
	IncrementCounter(name string, delta int)
	Snapshot() domain.FlagSnapshot
	Restore(snap domain.FlagSnapshot)
	Reset()
}

// MapFlagStore is the standard in-memory FlagStore. Zero value is
// ready to use.
type MapFlagStore struct {
	flags    map[string]bool
	counters map[string]int
}

func NewFlagStore() *MapFlagStore {
	return &MapFlagStore{
		flags:    map[string]bool{},
		counters: map[string]int{},
	}
}

func (s *MapFlagStore) ensure() {
	if s.flags == nil {
		s.flags = map[string]bool{}
	}
	if s.counters == nil {
		s.counters = map[string]int{}
	}
}

func (s *MapFlagStore) Flag(name string) bool {
	return s.flags[name]
}

func (s *MapFlagStore) SetFlag(name string, value bool) {
	s.ensure()
	if value {
		s.flags[name] = true
	} else {
		delete(s.flags, name)
	}
}

func (s *MapFlagStore) Counter(name string) int {
	return s.counters[name]
}

func (s *MapFlagStore) SetCounter(name string, value int) {
	s.ensure()
	s.counters[name] = value
}

func (s *MapFlagStore) IncrementCounter(name string, delta int) {
	s.ensure()
	s.counters[name] += delta
}

func (s *MapFlagStore) Snapshot() domain.FlagSnapshot {
	snap := domain.FlagSnapshot{
		Flags:    make(map[string]bool, len(s.flags)),
		Counters: make(map[string]int, len(s.counters)),
	}
	for k, v := range s.flags {
		snap.Flags[k] = v
	}
	for k, v := range s.counters {
		snap.Counters[k] = v
	}
	return snap
}

func (s *MapFlagStore) Restore(snap domain.FlagSnapshot) {
	s.Reset()
	for k, v := range snap.Flags {
		if v {
			s.flags[k] = true
		}
	}
	for k, v := range snap.Counters {
		s.counters[k] = v
	}
}

// Reset clears everything; called at new-game.
func (s *MapFlagStore) Reset() {
	s.flags = map[string]bool{}
	s.counters = map[string]int{}
}
