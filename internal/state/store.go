package state

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// saveTimeout bounds a single background write.
const saveTimeout = 5 * time.Second

// Logger is the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store owns the in-memory State and its persistence.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Each Update closure runs under the write lock and must not call
//     back into the store.
type Store struct {
	mu    sync.RWMutex
	state State

	repo   Repository
	saveMu sync.Mutex // serialises writes to repo

	dirty   chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	closed  bool

	logger Logger
}

// Open loads the stored state from repo and starts the background saver.
func Open(ctx context.Context, repo Repository) (*Store, error) {
	loaded, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return NewStore(repo, *loaded), nil
}

// NewStore starts a store holding initial.
func NewStore(repo Repository, initial State) *Store {
	s := &Store{
		state:   initial,
		repo:    repo,
		dirty:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  noopLogger{},
	}
	go s.saveLoop()
	return s
}

// SetLogger sets the logger used for save failures.
func (s *Store) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update applies fn to the state and schedules a save if anything
// changed. It reports whether the state changed.
func (s *Store) Update(fn func(*State)) bool {
	s.mu.Lock()
	before := s.state
	fn(&s.state)
	changed := s.state != before
	s.mu.Unlock()

	if changed {
		select {
		case s.dirty <- struct{}{}:
		default:
		}
	}
	return changed
}

// Flush synchronously writes the current state.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return s.write(ctx)
}

// Close stops the saver and writes the final state.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
		err = s.write(ctx)

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return err
}

func (s *Store) saveLoop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.dirty:
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			if err := s.write(ctx); err != nil {
				s.getLogger().Error("saving controller state", "error", err)
			}
			cancel()
		}
	}
}

func (s *Store) write(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.repo.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

func (s *Store) getLogger() Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}
