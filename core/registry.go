// Package core provides the shared substrate the device drivers sit
// on: per-instance record allocation keyed by device number, and the
// polled timing primitives used by the cooperative controllers.
package core

import (
	"errors"
	"sync"
)

// ErrBadDeviceNumber reports a zero (unassigned) device number.
var ErrBadDeviceNumber = errors.New("device number must be positive")

// Registry tracks one record per physical device instance of a given
// driver type, keyed by a small application-assigned device number.
// Records are created lazily on first use and never removed; lookups
// walk a short chain whose length is bounded by the number of attached
// devices of that type.
type Registry[T any] struct {
	mu   sync.Mutex
	head *record[T]
}

type record[T any] struct {
	num  uint8
	next *record[T]
	data T
}

// CreateOrFetch returns the record for num, allocating a zeroed one at
// the chain tail if it does not exist yet. Device number 0 is invalid.
func (r *Registry[T]) CreateOrFetch(num uint8) (*T, error) {
	if num == 0 {
		return nil, ErrBadDeviceNumber
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var tail *record[T]
	for n := r.head; n != nil; n = n.next {
		if n.num == num {
			return &n.data, nil
		}
		tail = n
	}

	n := &record[T]{num: num}
	if tail == nil {
		r.head = n
	} else {
		tail.next = n
	}
	return &n.data, nil
}

// Fetch returns the record for num, or nil if it was never created.
func (r *Registry[T]) Fetch(num uint8) *T {
	if num == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for n := r.head; n != nil; n = n.next {
		if n.num == num {
			return &n.data
		}
	}
	return nil
}

// Count returns the number of allocated records.
func (r *Registry[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for n := r.head; n != nil; n = n.next {
		count++
	}
	return count
}
