package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

type observerEntry struct {
	token  uint64
	fn     Observer
	active atomic.Bool
}

// Subscription deregisters its observer on Close.
type Subscription struct {
	store *Store
	token uint64
	once  sync.Once
}

func (sub *Subscription) Close() {
	sub.once.Do(func() { sub.store.unsubscribe(sub.token) })
}

// Subscribe registers fn for state changes. It is not called with the
// current state; read State for that.
func (s *Store) Subscribe(fn Observer) *Subscription {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	s.nextToken++
	e := &observerEntry{token: s.nextToken, fn: fn}
	e.active.Store(true)
	s.observers = append(s.observers, e)
	return &Subscription{store: s, token: e.token}
}

func (s *Store) unsubscribe(token uint64) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for i, e := range s.observers {
		if e.token == token {
			e.active.Store(false)
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Store) notify(st State) {
	s.obsMu.Lock()
	observers := append([]*observerEntry(nil), s.observers...)
	s.obsMu.Unlock()

	for _, e := range observers {
		if !e.active.Load() {
			continue
		}
		s.invoke(e, State{Identity: st.Identity.Clone()})
	}
}

func (s *Store) invoke(e *observerEntry, st State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(context.Background(), "session observer panicked", "panic", fmt.Sprint(r))
		}
	}()
	e.fn(st)
}
