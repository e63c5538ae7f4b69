package wallet

import (
	"sync"

	"github.com/harmonygenie/api/internal/model"
)

// Store holds the page-session wallet state and notifies observers on every
// change. Connection is declarative: the browser extension owns the keys, so
// the server only records what the client reports.
type Store struct {
	mu     sync.RWMutex
	state  model.WalletState
	subs   map[int]func(model.WalletState)
	nextID int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(model.WalletState))}
}

// Get returns the current wallet state.
func (s *Store) Get() model.WalletState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connect records a wallet connection and notifies observers.
func (s *Store) Connect(address, balance string) model.WalletState {
	s.mu.Lock()
	s.state = model.WalletState{Connected: true, Address: address, Balance: balance}
	state := s.state
	observers := s.snapshotLocked()
	s.mu.Unlock()

	for _, notify := range observers {
		notify(state)
	}
	return state
}

// Disconnect clears the wallet state and notifies observers.
func (s *Store) Disconnect() model.WalletState {
	s.mu.Lock()
	s.state = model.WalletState{}
	state := s.state
	observers := s.snapshotLocked()
	s.mu.Unlock()

	for _, notify := range observers {
		notify(state)
	}
	return state
}

// Subscribe registers an observer for state changes and returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(model.WalletState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) snapshotLocked() []func(model.WalletState) {
	observers := make([]func(model.WalletState), 0, len(s.subs))
	for _, fn := range s.subs {
		observers = append(observers, fn)
	}
	return observers
}
