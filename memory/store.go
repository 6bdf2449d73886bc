package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrStore matches every persistence failure returned by a Store.
	ErrStore = errors.New("memory: store failure")
	// ErrInvalidMessage is wrapped when a message breaks a structural rule.
	ErrInvalidMessage = errors.New("invalid message")
)

// StoreError wraps a persistence failure with the operation that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "memory: " + e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// Store is the durable log of the active conversation.
type Store interface {
	// Append assigns id and timestamp to each message and writes the batch
	// atomically. It returns the stored copies.
	Append(ctx context.Context, msgs ...Message) ([]Message, error)
	// List returns every message ordered by created_at ascending.
	List(ctx context.Context) ([]Message, error)
	// Reset deletes every message.
	Reset(ctx context.Context) error
	Close() error
}

// Clock supplies timestamps for appended messages.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// stamp copies msgs, assigning fresh ids and the batch timestamp.
func stamp(msgs []Message, clock Clock) []Message {
	at := clock.now()
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		m = cloneMessage(m)
		m.ID = uuid.NewString()
		m.CreatedAt = at
		if m.Annotations == nil {
			m.Annotations = []json.RawMessage{}
		}
		out[i] = m
	}
	return out
}

// sortMessages orders by created_at, then insertion sequence.
func sortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].Seq < msgs[j].Seq
	})
}
