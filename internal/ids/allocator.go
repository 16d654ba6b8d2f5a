// Package ids issues process-unique random identifiers.
package ids

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Allocator hands out random UUIDs and guarantees none is returned twice
// during the lifetime of the process.
type Allocator struct {
	mu     sync.Mutex
	issued map[uuid.UUID]struct{}
	source func() uuid.UUID
	logger zerolog.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithSource replaces the random draw. Intended for tests.
func WithSource(source func() uuid.UUID) Option {
	return func(a *Allocator) {
		a.source = source
	}
}

// New creates an Allocator with an empty registry.
func New(logger zerolog.Logger, opts ...Option) *Allocator {
	a := &Allocator{
		issued: make(map[uuid.UUID]struct{}),
		source: uuid.New,
		logger: logger.With().Str("component", "ids").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns an identifier that has not been returned before.
// The check and the insert happen under one lock; on a collision the
// draw is repeated.
func (a *Allocator) Allocate() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()

	for attempt := 1; ; attempt++ {
		id := a.source()
		if _, taken := a.issued[id]; !taken {
			a.issued[id] = struct{}{}
			return id
		}
		a.logger.Warn().
			Str("id", id.String()).
			Int("attempt", attempt).
			Msg("identifier collision, drawing again")
	}
}

// Len returns the number of identifiers issued so far.
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.issued)
}
