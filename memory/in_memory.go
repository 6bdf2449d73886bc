package memory

import (
	"context"
	"sync"
)

// InMemoryStore is a volatile Store for tests and throwaway runs.
// Returned messages are copies; callers cannot mutate stored state.
type InMemoryStore struct {
	mu      sync.Mutex
	msgs    []Message
	nextSeq int64
	clock   Clock
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextSeq: 1}
}

// WithClock overrides the timestamp source; intended for tests.
func (s *InMemoryStore) WithClock(c Clock) *InMemoryStore {
	s.clock = c
	return s
}

func (s *InMemoryStore) Append(_ context.Context, msgs ...Message) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stamped := stamp(msgs, s.clock)
	seq := s.nextSeq
	for i := range stamped {
		if err := stamped[i].Validate(); err != nil {
			return nil, storeErr("append", err)
		}
		stamped[i].Seq = seq
		seq++
	}
	s.nextSeq = seq
	for _, m := range stamped {
		s.msgs = append(s.msgs, cloneMessage(m))
	}
	return stamped, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = cloneMessage(m)
	}
	sortMessages(out)
	return out, nil
}

func (s *InMemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
