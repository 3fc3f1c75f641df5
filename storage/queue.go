package storage

import (
	"portfolio/model"
)

// FallbackQueue is the ordered, append-only list of contact submissions that
// could not reach the backend. It is persisted under KeyContacts.
type FallbackQueue struct {
	local *Local
}

// NewFallbackQueue creates a queue persisted in local.
func NewFallbackQueue(local *Local) *FallbackQueue {
	return &FallbackQueue{local: local}
}

// Append adds p to the tail of the queue.
func (q *FallbackQueue) Append(p model.PendingContact) error {
	return Update(q.local, KeyContacts, func(cur []model.PendingContact) ([]model.PendingContact, error) {
		return append(cur, p), nil
	})
}

// List returns the queued entries in insertion order.
func (q *FallbackQueue) List() ([]model.PendingContact, error) {
	var out []model.PendingContact
	if _, err := q.local.Get(KeyContacts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of queued entries.
func (q *FallbackQueue) Len() (int, error) {
	items, err := q.List()
	return len(items), err
}

// Remove deletes the entry with the given id. The key is cleared once the
// queue is empty.
func (q *FallbackQueue) Remove(id string) error {
	s := q.local
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur []model.PendingContact
	if _, err := s.getLocked(KeyContacts, &cur); err != nil {
		return err
	}
	out := make([]model.PendingContact, 0, len(cur))
	for _, p := range cur {
		if p.ID != id {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return s.removeLocked(KeyContacts)
	}
	return s.setLocked(KeyContacts, out)
}

// Clear discards every queued entry.
func (q *FallbackQueue) Clear() error {
	return q.local.Remove(KeyContacts)
}
