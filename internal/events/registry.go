// Package events carries record-update notifications to in-process
// subscribers. The Registry is an explicitly owned object handed to the
// components that publish, with its lifecycle tied to the serving process;
// there is no module-level broadcast state.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"book-comps/internal/bookmeta"
)

// RecordUpdate describes one committed canonical-record change.
type RecordUpdate struct {
	ISBN             string
	QualityScore     float64
	TrainingEligible bool
	AppliedFields    []bookmeta.FieldKey
	OccurredAt       time.Time
}

// Subscriber receives committed record updates. Implementations must not
// block; slow consumers should buffer internally.
type Subscriber interface {
	RecordUpdated(ctx context.Context, update RecordUpdate)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, update RecordUpdate)

// RecordUpdated invokes the function.
func (f SubscriberFunc) RecordUpdated(ctx context.Context, update RecordUpdate) {
	f(ctx, update)
}

// Registry fans committed updates out to subscribers.
type Registry struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Subscriber
	logger zerolog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		subs:   make(map[int]Subscriber),
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a subscriber and returns its removal func.
func (r *Registry) Subscribe(sub Subscriber) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.subs[id] = sub

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Publish delivers an update to every current subscriber.
func (r *Registry) Publish(ctx context.Context, update RecordUpdate) {
	r.mu.Lock()
	subs := make([]Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		sub.RecordUpdated(ctx, update)
	}

	if len(subs) > 0 {
		r.logger.Debug().
			Str("isbn", update.ISBN).
			Int("subscribers", len(subs)).
			Msg("record update published")
	}
}

var _ Subscriber = (SubscriberFunc)(nil)
