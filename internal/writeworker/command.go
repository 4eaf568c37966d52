package writeworker

import (
	"sync"

	"github.com/google/uuid"
)

// Command is a unit of work executed on a single lane.
type Command interface {
	ID() uuid.UUID
	Kind() string
	// Finish closes the result channel if no result was sent. The lane
	// calls it after every command.
	Finish()
}

// Result is what a lane sends back for one command.
type Result[T any] struct {
	Value T
	Err   error
}

// Responder is embedded by commands to carry their one-shot result channel.
type Responder[T any] struct {
	id   uuid.UUID
	tx   chan Result[T]
	once sync.Once
}

// NewResponder returns a responder and the receiving side of its channel.
// The channel holds one result so the lane never blocks on a gone caller.
func NewResponder[T any]() (*Responder[T], <-chan Result[T]) {
	r := &Responder[T]{
		id: uuid.New(),
		tx: make(chan Result[T], 1),
	}
	return r, r.tx
}

func (r *Responder[T]) ID() uuid.UUID {
	return r.id
}

// Respond sends the result. Only the first call has effect.
func (r *Responder[T]) Respond(value T, err error) {
	r.once.Do(func() {
		r.tx <- Result[T]{Value: value, Err: err}
		close(r.tx)
	})
}

func (r *Responder[T]) Finish() {
	r.once.Do(func() {
		close(r.tx)
	})
}
