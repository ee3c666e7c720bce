// Package notify implements the in-process notification hub: a bounded,
// newest-first list of notifications with read tracking and synchronous
// observer fan-out.
//
// A Hub is an explicitly constructed service. The feed is process-wide and
// not scoped to the signed-in identity; it is empty at process start and is
// not persisted.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/miroir/internal/logging"
)

// DefaultCapacity is the number of notifications kept; older ones are evicted.
const DefaultCapacity = 50

// ID identifies a notification. IDs are Unix milliseconds of creation,
// bumped as needed so that they strictly increase within a Hub.
type ID int64

// Notification is one feed entry. Read only ever moves from false to true.
type Notification struct {
	ID        ID        `json:"id"`
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Draft is the caller-supplied part of a new notification.
type Draft struct {
	Kind    Kind
	Message string
}

// Observer receives the full list, newest first, after every mutation.
// The slice is the observer's own copy.
type Observer func([]Notification)

// Token identifies a registered observer.
type Token uint64

type observerEntry struct {
	token  Token
	fn     Observer
	active atomic.Bool
}

// Hub is safe for concurrent use. Observers run synchronously on the
// mutating goroutine, outside the hub lock, so they may call back into
// the hub (including Unsubscribe).
type Hub struct {
	mu        sync.Mutex
	items     []Notification
	observers []*observerEntry
	lastID    int64
	nextToken Token

	capacity int
	now      func() time.Time
	logger   logging.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithLogger sets the logger used to report observer panics.
func WithLogger(l logging.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// WithCapacity overrides DefaultCapacity. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.capacity = n
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		capacity: DefaultCapacity,
		now:      time.Now,
		logger:   logging.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.items = make([]Notification, 0, h.capacity)
	return h
}

// Add creates an unread notification, puts it at the head of the list,
// evicts from the tail beyond capacity and notifies observers.
// An invalid Kind is recorded as KindSystem.
func (h *Hub) Add(d Draft) Notification {
	if !d.Kind.Valid() {
		h.logger.Warn(context.Background(), "unknown notification kind, using SYSTEM", "kind", int(d.Kind))
		d.Kind = KindSystem
	}

	h.mu.Lock()
	now := h.now()
	id := now.UnixMilli()
	if id <= h.lastID {
		id = h.lastID + 1
	}
	h.lastID = id

	n := Notification{ID: ID(id), Kind: d.Kind, Message: d.Message, CreatedAt: now}

	h.items = append(h.items, Notification{})
	copy(h.items[1:], h.items)
	h.items[0] = n
	if len(h.items) > h.capacity {
		clear(h.items[h.capacity:])
		h.items = h.items[:h.capacity]
	}
	list, observers := h.snapshotLocked()
	h.mu.Unlock()

	h.deliver(list, observers)
	return n
}

// MarkAsRead marks one notification read. Unknown ids are ignored and do
// not notify observers.
func (h *Hub) MarkAsRead(id ID) {
	h.mu.Lock()
	i := h.indexLocked(id)
	if i < 0 {
		h.mu.Unlock()
		return
	}
	h.items[i].Read = true
	list, observers := h.snapshotLocked()
	h.mu.Unlock()

	h.deliver(list, observers)
}

// MarkAllAsRead marks every notification read and always notifies.
func (h *Hub) MarkAllAsRead() {
	h.mu.Lock()
	for i := range h.items {
		h.items[i].Read = true
	}
	list, observers := h.snapshotLocked()
	h.mu.Unlock()

	h.deliver(list, observers)
}

// Remove deletes a notification. Unknown ids are ignored and do not notify.
func (h *Hub) Remove(id ID) {
	h.mu.Lock()
	i := h.indexLocked(id)
	if i < 0 {
		h.mu.Unlock()
		return
	}
	h.items = append(h.items[:i], h.items[i+1:]...)
	list, observers := h.snapshotLocked()
	h.mu.Unlock()

	h.deliver(list, observers)
}

// List returns a copy of the feed, newest first.
func (h *Hub) List() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notification(nil), h.items...)
}

// Get looks a notification up by id.
func (h *Hub) Get(id ID) (Notification, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := h.indexLocked(id); i >= 0 {
		return h.items[i], true
	}
	return Notification{}, false
}

// UnreadCount returns the number of unread notifications.
func (h *Hub) UnreadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, it := range h.items {
		if !it.Read {
			n++
		}
	}
	return n
}

// Subscribe registers fn. The returned Subscription deregisters it on Close.
func (h *Hub) Subscribe(fn Observer) *Subscription {
	h.mu.Lock()
	h.nextToken++
	e := &observerEntry{token: h.nextToken, fn: fn}
	e.active.Store(true)
	h.observers = append(h.observers, e)
	h.mu.Unlock()

	return &Subscription{hub: h, token: e.token}
}

// Unsubscribe removes the observer registered under token. Once it returns,
// the observer is not called again, even by a delivery already in progress.
// Unknown tokens are ignored.
func (h *Hub) Unsubscribe(token Token) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.observers {
		if e.token == token {
			e.active.Store(false)
			h.observers = append(h.observers[:i:i], h.observers[i+1:]...)
			return
		}
	}
}

// Observers returns the number of registered observers.
func (h *Hub) Observers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

func (h *Hub) indexLocked(id ID) int {
	for i := range h.items {
		if h.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (h *Hub) snapshotLocked() ([]Notification, []*observerEntry) {
	list := append([]Notification(nil), h.items...)
	observers := append([]*observerEntry(nil), h.observers...)
	return list, observers
}

func (h *Hub) deliver(list []Notification, observers []*observerEntry) {
	for _, e := range observers {
		if !e.active.Load() {
			continue
		}
		h.invoke(e, append([]Notification(nil), list...))
	}
}

func (h *Hub) invoke(e *observerEntry, list []Notification) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error(context.Background(), "notification observer panicked",
				"token", uint64(e.token), "panic", fmt.Sprint(r))
		}
	}()
	e.fn(list)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	hub   *Hub
	token Token
	once  sync.Once
}

// Token returns the registration token, usable with Hub.Unsubscribe.
func (s *Subscription) Token() Token {
	return s.token
}

// Close deregisters the observer. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.Unsubscribe(s.token) })
}
