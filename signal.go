package datum

import "slices"

// slotKey identifies a keyed connection. Two connections with the same
// receiver and slot name are the same connection.
type slotKey struct {
	receiver any
	slot     string
}

type connection[T any] struct {
	key  slotKey
	fn   func(T)
	live bool
}

// signal is an ordered subscriber list. Emission walks a snapshot, so
// handlers may connect or disconnect freely while it runs.
type signal[T any] struct {
	conns []*connection[T]
}

// connect adds a keyed connection. It returns false if a connection with
// the same key already exists, in which case nothing changes.
func (s *signal[T]) connect(key slotKey, fn func(T)) bool {
	for _, c := range s.conns {
		if c.key == key {
			return false
		}
	}
	s.conns = append(s.conns, &connection[T]{key: key, fn: fn, live: true})
	return true
}

// subscribe adds an anonymous connection and returns its cancel function.
func (s *signal[T]) subscribe(fn func(T)) func() {
	c := &connection[T]{fn: fn, live: true}
	s.conns = append(s.conns, c)
	return func() { s.remove(c) }
}

func (s *signal[T]) disconnect(key slotKey) bool {
	for _, c := range s.conns {
		if c.key == key {
			s.remove(c)
			return true
		}
	}
	return false
}

func (s *signal[T]) remove(target *connection[T]) {
	for i, c := range s.conns {
		if c == target {
			c.live = false
			s.conns = slices.Delete(s.conns, i, i+1)
			return
		}
	}
}

func (s *signal[T]) connected(key slotKey) bool {
	for _, c := range s.conns {
		if c.key == key {
			return true
		}
	}
	return false
}

// receivers lists the receivers of live keyed connections with the given
// slot name, in subscription order.
func (s *signal[T]) receivers(slot string) []any {
	var out []any
	for _, c := range s.conns {
		if c.key.slot == slot && c.key.receiver != nil {
			out = append(out, c.key.receiver)
		}
	}
	return out
}

func (s *signal[T]) emit(v T) {
	snapshot := slices.Clone(s.conns)
	for _, c := range snapshot {
		if c.live {
			c.fn(v)
		}
	}
}

func (s *signal[T]) len() int {
	return len(s.conns)
}

func (s *signal[T]) clear() {
	for _, c := range s.conns {
		c.live = false
	}
	s.conns = nil
}
