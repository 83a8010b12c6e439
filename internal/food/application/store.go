package application

import (
	"log/slog"
	"sync"

	"github.com/dmehra2102/food-storefront/internal/food/domain"
)

type Observer func(domain.State)

// Store owns the storefront state and serializes transitions. Observers run
// on the dispatching goroutine after the lock is released; they must not stop
// the orders subscription synchronously.
type Store struct {
	log *slog.Logger

	mu        sync.Mutex
	state     domain.State
	observers map[int]Observer
	nextObs   int
}

func NewStore(log *slog.Logger, initial domain.State) *Store {
	return &Store{
		log:       log,
		state:     initial,
		observers: map[int]Observer{},
	}
}

func (s *Store) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch reduces a into the current state. A rejected action leaves the
// state unchanged and returns the reducer error. A subscription handle that
// the transition replaced or cleared is closed before observers run.
func (s *Store) Dispatch(a domain.Action) (domain.State, error) {
	s.mu.Lock()
	prev := s.state
	next, err := domain.Reduce(prev, a)
	if err != nil {
		s.mu.Unlock()
		s.log.Debug("action rejected", "action", a.Type(), "err", err)
		return prev.Clone(), err
	}
	s.state = next
	var stale *domain.Handle
	if prev.Subscription != nil && prev.Subscription != next.Subscription {
		stale = prev.Subscription
	}
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	s.log.Debug("action dispatched", "action", a.Type(), "status", next.StatusMessage)
	stale.Close()
	for _, o := range observers {
		o(next.Clone())
	}
	return next.Clone(), nil
}

// Subscribe registers an observer and returns its removal func.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}
