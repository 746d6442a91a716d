// Package handle implements a table of generation counted handles. A handle
// refers to exactly one live value and becomes permanently invalid once
// released, even if its slot is later reused.
package handle

import (
	"fmt"
	"sync"
)

type Handle struct {
	index      uint32
	generation uint32
}

// Zero is never returned by Add
var Zero Handle

func (h Handle) IsZero() bool { return h.generation == 0 }

func (h Handle) String() string {
	if h.IsZero() {
		return "Handle{nil}"
	}
	return fmt.Sprintf("Handle{%d:%d}", h.index, h.generation)
}

type slot[T any] struct {
	generation uint32
	live       bool
	val        T
}

type Table[T any] struct {
	mutex sync.Mutex
	slots []slot[T]
	free  []uint32
	live  int
	// called with the value when a handle is released
	on_release func(T)
}

func NewTable[T any](on_release func(T)) *Table[T] {
	return &Table[T]{on_release: on_release}
}

// Add stores v and returns a new handle for it
func (t *Table[T]) Add(v T) Handle {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}
	s := &t.slots[idx]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.live, s.val = true, v
	t.live++
	return Handle{index: idx, generation: s.generation}
}

func (t *Table[T]) lookup(h Handle) *slot[T] {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil
	}
	return s
}

// Get returns the value for a live handle
func (t *Table[T]) Get(h Handle) (ans T, ok bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if s := t.lookup(h); s != nil {
		return s.val, true
	}
	return
}

// Release invalidates the handle. It returns false if the handle was
// already released or never valid, in which case nothing is done.
func (t *Table[T]) Release(h Handle) bool {
	t.mutex.Lock()
	s := t.lookup(h)
	if s == nil {
		t.mutex.Unlock()
		return false
	}
	v := s.val
	var zero T
	s.live, s.val = false, zero
	t.free = append(t.free, h.index)
	t.live--
	t.mutex.Unlock()
	if t.on_release != nil {
		t.on_release(v)
	}
	return true
}

// Live returns the number of handles that have not been released
func (t *Table[T]) Live() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.live
}
