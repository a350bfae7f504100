package session

import (
	"context"
	"encoding/json"
	"sync"

	"mypaw/mypaw/sources/psql/dao"
	"mypaw/mypaw/sources/psql/models"
)

// StateStore is the durable client-storage mirror: two keyed slots per user,
// the last screen id and the last-selected-pet snapshot. Only the session
// engine reads or writes it.
type StateStore interface {
	SaveScreen(ctx context.Context, userID int, screen Screen) error
	// SavePet records the selected pet snapshot; nil clears the slot.
	SavePet(ctx context.Context, userID int, pet *models.Pet) error
	// Load returns the recorded screen and pet snapshot. ok is false when
	// either slot is empty or unreadable.
	Load(ctx context.Context, userID int) (Screen, *models.Pet, bool)
	Clear(ctx context.Context, userID int) error
}

// DBStore backs StateStore with the ui_states table.
type DBStore struct {
	dao *dao.UIStateDAO
}

func NewDBStore(d *dao.UIStateDAO) *DBStore {
	return &DBStore{dao: d}
}

func (s *DBStore) SaveScreen(ctx context.Context, userID int, screen Screen) error {
	return s.dao.SaveScreen(ctx, userID, string(screen))
}

func (s *DBStore) SavePet(ctx context.Context, userID int, pet *models.Pet) error {
	if pet == nil {
		return s.dao.SavePet(ctx, userID, "")
	}
	data, err := json.Marshal(pet)
	if err != nil {
		return err
	}
	return s.dao.SavePet(ctx, userID, string(data))
}

func (s *DBStore) Load(ctx context.Context, userID int) (Screen, *models.Pet, bool) {
	state, err := s.dao.Get(ctx, userID)
	if err != nil || state == nil || state.LastScreen == "" || state.LastPet == "" {
		return "", nil, false
	}
	screen, ok := ParseScreen(state.LastScreen)
	if !ok {
		return "", nil, false
	}
	var pet models.Pet
	if err := json.Unmarshal([]byte(state.LastPet), &pet); err != nil {
		return "", nil, false
	}
	return screen, &pet, true
}

func (s *DBStore) Clear(ctx context.Context, userID int) error {
	return s.dao.Clear(ctx, userID)
}

// MemoryStore keeps the slots in memory. Used by the CLI and by tests.
type MemoryStore struct {
	mu      sync.Mutex
	screens map[int]Screen
	pets    map[int]*models.Pet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		screens: make(map[int]Screen),
		pets:    make(map[int]*models.Pet),
	}
}

func (s *MemoryStore) SaveScreen(ctx context.Context, userID int, screen Screen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[userID] = screen
	return nil
}

func (s *MemoryStore) SavePet(ctx context.Context, userID int, pet *models.Pet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pet == nil {
		delete(s.pets, userID)
		return nil
	}
	copied := *pet
	s.pets[userID] = &copied
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, userID int) (Screen, *models.Pet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	screen, okScreen := s.screens[userID]
	pet, okPet := s.pets[userID]
	if !okScreen || !okPet {
		return "", nil, false
	}
	copied := *pet
	return screen, &copied, true
}

func (s *MemoryStore) Clear(ctx context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.screens, userID)
	delete(s.pets, userID)
	return nil
}
