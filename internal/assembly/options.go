package assembly

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/tandem/internal/persist"
)

type settings struct {
	session    string
	debugURL   string
	persist    *persist.Store
	logger     *slog.Logger
	maxHistory int
	tracer     trace.Tracer
	generator  persist.SessionIDGenerator
}

// Option configures Build.
type Option func(*settings)

// WithSession pins the persisted session id.
func WithSession(token string) Option {
	return func(s *settings) {
		s.session = token
	}
}

// WithDebugURL supplies the debug URL whose debug_session parameter names
// the session when WithSession is not given.
func WithDebugURL(url string) Option {
	return func(s *settings) {
		s.debugURL = url
	}
}

// WithPersistence sets the store sessions are loaded from and saved to.
// Without it a resolved session id is recorded but nothing is persisted.
func WithPersistence(store *persist.Store) Option {
	return func(s *settings) {
		s.persist = store
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMaxHistory bounds the action log. See actionlog.WithMaxHistory.
func WithMaxHistory(n int) Option {
	return func(s *settings) {
		s.maxHistory = n
	}
}

// WithTracer overrides the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
	}
}

// WithSessionGenerator makes Build generate a session id when a persistence
// store is configured but neither WithSession nor WithDebugURL names one.
func WithSessionGenerator(g persist.SessionIDGenerator) Option {
	return func(s *settings) {
		s.generator = g
	}
}
