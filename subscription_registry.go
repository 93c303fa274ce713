package gatewaysdk

import (
	"sync"
	"sync/atomic"
)

// MessageHandler receives messages for a subscription. Handlers are invoked
// outside any internal lock, one after another on the goroutine that called
// Poll; a slow or blocking handler delays the handlers after it and that
// Poll call.
type MessageHandler func(subject string, env Envelope)

type subscription struct {
	id      SubscriptionID
	pattern string
	handler MessageHandler
	active  bool
}

// SubscriptionRegistry maps subscription IDs to patterns and handlers, and
// dispatches inbound messages to every subscription whose pattern matches.
// Iteration order over matching handlers is unspecified, but Patterns()
// preserves insertion order, since resend-on-reconnect must replay
// subscriptions in the order they were created. It is safe for concurrent
// use.
type SubscriptionRegistry struct {
	mu     sync.RWMutex
	byID   map[SubscriptionID]*subscription
	order  []SubscriptionID
	nextID atomic.Uint64
}

// NewSubscriptionRegistry creates an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		byID: make(map[SubscriptionID]*subscription),
	}
}

// Add registers pattern with handler and returns the new subscription's ID.
// ValidatePattern is the caller's responsibility; Add does not re-validate.
func (r *SubscriptionRegistry) Add(pattern string, handler MessageHandler) SubscriptionID {
	id := SubscriptionID(r.nextID.Add(1))

	r.mu.Lock()
	r.byID[id] = &subscription{id: id, pattern: pattern, handler: handler, active: true}
	r.order = append(r.order, id)
	r.mu.Unlock()

	return id
}

// removeFromOrder drops id from the insertion-order slice. Caller must hold
// the write lock.
func (r *SubscriptionRegistry) removeFromOrder(id SubscriptionID) {
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Remove deletes the subscription with the given ID. ok is false if no such
// subscription exists.
func (r *SubscriptionRegistry) Remove(id SubscriptionID) (ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.byID[id]; !found {
		return false
	}
	delete(r.byID, id)
	r.removeFromOrder(id)
	return true
}

// RemoveSubject deletes every subscription whose pattern equals subject,
// returning the count removed.
func (r *SubscriptionRegistry) RemoveSubject(pattern string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, sub := range r.byID {
		if sub.pattern == pattern {
			delete(r.byID, id)
			r.removeFromOrder(id)
			n++
		}
	}
	return n
}

// Dispatch copies the handlers whose pattern matches subject, releases its
// lock, then invokes each copied handler in turn. It never holds the
// registry lock while a handler runs, so a handler that re-enters the
// registry (e.g. to unsubscribe itself) cannot deadlock.
func (r *SubscriptionRegistry) Dispatch(subject string, env Envelope) {
	r.mu.RLock()
	matched := make([]MessageHandler, 0, 4)
	for _, sub := range r.byID {
		if sub.active && Matches(sub.pattern, subject) {
			matched = append(matched, sub.handler)
		}
	}
	r.mu.RUnlock()

	for _, h := range matched {
		h(subject, env)
	}
}

// Snapshot returns a point-in-time copy of every registered subscription, in
// insertion order, for Client.Subscriptions.
func (r *SubscriptionRegistry) Snapshot() []SubscriptionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SubscriptionInfo, 0, len(r.order))
	for _, id := range r.order {
		sub := r.byID[id]
		out = append(out, SubscriptionInfo{ID: sub.id, Pattern: sub.pattern, Active: sub.active})
	}
	return out
}

// Patterns returns the distinct set of patterns currently registered, in the
// order they were first added, for resubscribing after a reconnect.
func (r *SubscriptionRegistry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.order))
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		sub := r.byID[id]
		if _, ok := seen[sub.pattern]; ok {
			continue
		}
		seen[sub.pattern] = struct{}{}
		out = append(out, sub.pattern)
	}
	return out
}

// Len returns the number of registered subscriptions.
func (r *SubscriptionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
