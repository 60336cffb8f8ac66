package server

import (
	"sync"

	"github.com/google/uuid"
)

// GameStore tracks the live in-memory game instances.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*GameInstance
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*GameInstance),
	}
}

func (s *GameStore) AddGame(gi *GameInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[gi.ID] = gi
}

func (s *GameStore) GetGame(id uuid.UUID) (*GameInstance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gi, exists := s.games[id]
	return gi, exists
}

func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// ActiveCount returns the number of games currently held in memory.
func (s *GameStore) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// GetGameByHostID returns the first game hosted by the given player, or
// nil if none is found.
func (s *GameStore) GetGameByHostID(hostID uuid.UUID) *GameInstance {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, gi := range s.games {
		if gi.HostID() == hostID {
			return gi
		}
	}
	return nil
}
