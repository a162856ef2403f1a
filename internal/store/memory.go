// internal/store/memory.go
//
// In-memory registry of active games.
// Every game is addressed by its ID, so any number of players (browser tabs,
// console sessions) can play at once without shared "current game" state.
//
// Characteristics:
//   - Stores *game.Game objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex; Update runs its callback under the write
//     lock so a read-modify-write of one game cannot interleave with another.
//   - Delete is idempotent.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robalobadob/guessmaster/internal/game"
)

// ErrNotFound is returned for unknown game IDs.
var ErrNotFound = fmt.Errorf("%w: game not found", game.ErrNoActiveSession)

// Store defines the registry interface for active games.
type Store interface {
	// Save persists or replaces a game.
	Save(ctx context.Context, g *game.Game) error

	// Get retrieves a game by ID.
	// Returns ErrNotFound if the game is not registered.
	Get(ctx context.Context, id string) (*game.Game, error)

	// Update applies fn to the stored game while holding the store lock.
	Update(ctx context.Context, id string, fn func(*game.Game) error) error

	// Delete removes a game; unknown IDs are not an error.
	Delete(ctx context.Context, id string) error

	// Sweep removes games started before cutoff and returns their IDs.
	Sweep(ctx context.Context, cutoff time.Time) ([]string, error)

	// Len reports how many games are registered.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex          // guards games map
	games map[string]*game.Game // keyed by Game.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Game)}
}

// Save adds or updates the game in the map.
func (m *memory) Save(ctx context.Context, g *game.Game) error {
	if g == nil || g.ID == "" {
		return errors.New("store: game without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

// Get looks up a game by ID.
func (m *memory) Get(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

// Update runs fn on the stored game under the write lock.
func (m *memory) Update(ctx context.Context, id string, fn func(*game.Game) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return ErrNotFound
	}
	return fn(g)
}

// Delete removes a game by ID; unknown IDs are ignored.
func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

// Sweep drops games started before cutoff.
func (m *memory) Sweep(ctx context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []string
	for id, g := range m.games {
		if g.StartedAt.Before(cutoff) {
			expired = append(expired, id)
			delete(m.games, id)
		}
	}
	return expired, nil
}

// Len counts registered games.
func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}
