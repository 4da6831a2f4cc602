package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/tandem/internal/actionlog"
	"github.com/roach88/tandem/internal/bridge"
	"github.com/roach88/tandem/internal/ir"
	"github.com/roach88/tandem/internal/persist"
	"github.com/roach88/tandem/internal/statetree"
)

// ErrReentrantDispatch is returned when Dispatch is called while another
// dispatch is still running, typically from inside a mutation.
var ErrReentrantDispatch = errors.New("dispatch called while a dispatch is in progress")

// ErrPersist is returned by Dispatch when the action was applied but the
// session could not be saved.
var ErrPersist = errors.New("session not saved")

// SpanDispatch is the name of the span opened for every dispatch.
const SpanDispatch = "tandem.dispatch"

const tracerName = "github.com/roach88/tandem/internal/assembly"

// Store is a bridged store: a state tree kept in step with an action log.
//
// Store is not safe for concurrent use.
type Store struct {
	adapter   statetree.Adapter
	bridge    *bridge.Bridge
	log       *actionlog.Log
	persist   *persist.Store
	sessionID string
	dispatch  bridge.DispatchFunc
	logger    *slog.Logger
	tracer    trace.Tracer

	dispatching  bool
	listeners    []listener
	nextListener int
}

type listener struct {
	id int
	fn func()
}

// CreateBridgedStore builds a Store with a background context.
func CreateBridgedStore(adapter statetree.Adapter, opts ...Option) (*Store, error) {
	return Build(context.Background(), adapter, opts...)
}

// Build assembles a Store over adapter.
//
// When a session id resolves and a persistence store is configured, a saved
// session under that id is restored into the log, which replays it into the
// tree before Build returns.
func Build(ctx context.Context, adapter statetree.Adapter, opts ...Option) (*Store, error) {
	cfg := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}

	b, err := bridge.New(adapter, bridge.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	log, err := actionlog.New(b.Reduce,
		actionlog.WithMaxHistory(cfg.maxHistory),
		actionlog.WithAutoCommitHook(func(committed ir.Value) {
			b.Controller().OnCheckpoint([]ir.Value{committed})
		}),
		actionlog.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build action log: %w", err)
	}

	s := &Store{
		adapter: adapter,
		bridge:  b,
		log:     log,
		persist: cfg.persist,
		logger:  cfg.logger,
		tracer:  cfg.tracer,
	}

	id, ok := persist.ResolveSession(cfg.session, cfg.debugURL)
	if !ok && cfg.persist != nil && cfg.generator != nil {
		id, ok = cfg.generator.Generate(), true
		s.logger.Info("generated session id", "session", id)
	}
	if ok {
		s.sessionID = id
		if err := s.restore(ctx); err != nil {
			return nil, err
		}
	}

	s.dispatch = bridge.Chain(log.Dispatch,
		s.traced,
		s.exclusive,
		s.persisted,
		b.Controller().Middleware(log.States),
	)
	b.Bind(s.Dispatch)

	s.logger.Info("bridged store ready",
		"session", s.sessionID,
		"persisted", s.persist != nil && s.sessionID != "",
		"entries", len(log.Entries()),
	)
	return s, nil
}

// restore loads the session into the log.
func (s *Store) restore(ctx context.Context) error {
	if s.persist == nil {
		s.logger.Info("session resolved without a persistence store", "session", s.sessionID)
		return nil
	}

	ls, found, err := s.persist.Load(ctx, s.sessionID)
	if err != nil {
		return fmt.Errorf("restore session %s: %w", s.sessionID, err)
	}
	if !found {
		return nil
	}
	if err := s.log.Restore(ls); err != nil {
		return fmt.Errorf("restore session %s: %w", s.sessionID, err)
	}
	if ls.Committed != nil {
		s.bridge.Controller().OnCheckpoint([]ir.Value{ls.Committed})
	}

	s.logger.Info("session restored", "session", s.sessionID, "entries", len(ls.Entries))
	return nil
}

// Dispatch sends a through the pipeline and then calls every listener.
//
// An error wrapping ErrPersist means the log and the tree have already
// advanced and listeners were notified; only the save failed.
func (s *Store) Dispatch(ctx context.Context, a ir.Action) error {
	err := s.dispatch(ctx, a)
	if err != nil && !errors.Is(err, ErrPersist) {
		return err
	}
	s.notify()
	return err
}

// GetState returns the tree's current snapshot.
func (s *Store) GetState() ir.Value {
	return s.adapter.Read()
}

// Subscribe registers fn to run after every successful dispatch and returns
// a function that removes it.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Log returns the underlying action log.
func (s *Store) Log() *actionlog.Log {
	return s.log
}

// Bridge returns the bridge between the tree and the log.
func (s *Store) Bridge() *bridge.Bridge {
	return s.bridge
}

// Baseline returns the committed baseline restored on @@INIT.
func (s *Store) Baseline() ir.Value {
	return s.bridge.Controller().Baseline()
}

// SessionID returns the resolved session id, or "" without persistence.
func (s *Store) SessionID() string {
	return s.sessionID
}

func (s *Store) notify() {
	// Listeners may unsubscribe while being called.
	current := make([]listener, len(s.listeners))
	copy(current, s.listeners)
	for _, l := range current {
		l.fn()
	}
}

// traced opens the dispatch span.
func (s *Store) traced(next bridge.DispatchFunc) bridge.DispatchFunc {
	return func(ctx context.Context, a ir.Action) error {
		ctx, span := s.tracer.Start(ctx, SpanDispatch,
			trace.WithAttributes(attribute.String("tandem.action.kind", a.Kind)))
		defer span.End()

		err := next(ctx, a)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// exclusive rejects a dispatch that starts before the previous one returned.
// The bridge's Guard relies on replay and notification running back to back.
func (s *Store) exclusive(next bridge.DispatchFunc) bridge.DispatchFunc {
	return func(ctx context.Context, a ir.Action) error {
		if s.dispatching {
			return fmt.Errorf("dispatch %s: %w", a.Kind, ErrReentrantDispatch)
		}
		s.dispatching = true
		defer func() { s.dispatching = false }()
		return next(ctx, a)
	}
}

// persisted saves the lifted log state after every successful dispatch.
func (s *Store) persisted(next bridge.DispatchFunc) bridge.DispatchFunc {
	return func(ctx context.Context, a ir.Action) error {
		if err := next(ctx, a); err != nil {
			return err
		}
		if s.persist == nil || s.sessionID == "" {
			return nil
		}
		if err := s.persist.Save(ctx, s.sessionID, s.log.Snapshot()); err != nil {
			s.logger.Error("save session failed", "session", s.sessionID, "kind", a.Kind, "error", err)
			return fmt.Errorf("%w: %s: %w", ErrPersist, s.sessionID, err)
		}
		return nil
	}
}
