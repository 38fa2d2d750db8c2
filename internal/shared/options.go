package shared

import (
	"log/slog"

	"github.com/google/uuid"
)

// Observer receives a signal for every structural event in a Cache.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	SetCreated()
	SetDestroyed()
	Reassigned()
	AppearanceCreated()
	AppearanceHit()
	Detached()
}

type nopObserver struct{}

func (nopObserver) SetCreated()        {}
func (nopObserver) SetDestroyed()      {}
func (nopObserver) Reassigned()        {}
func (nopObserver) AppearanceCreated() {}
func (nopObserver) AppearanceHit()     {}
func (nopObserver) Detached()          {}

type options struct {
	sessionID string
	logger    *slog.Logger
	observer  Observer
}

func newOptions() options {
	return options{
		sessionID: uuid.NewString(),
		logger:    slog.Default(),
		observer:  nopObserver{},
	}
}

// Option configures a Cache.
type Option func(*options)

// WithSessionID sets the id of the owning session. By default a random
// UUID is generated.
func WithSessionID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.sessionID = id
		}
	}
}

// WithLogger sets the logger used for debug output. Every record carries
// the session id.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers an Observer, e.g. a metrics collector.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
