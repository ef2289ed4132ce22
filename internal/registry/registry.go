// Package registry is the process-wide index of live rooms. Its two maps are
// the only state shared across connection handlers; every mutation updates
// both indexes under one lock so they can never drift apart.
package registry

import (
	"errors"
	"strings"
	"sync"

	"github.com/outguess/backend/internal/room"
)

// ErrCodeTaken is returned when a generated room code collides with a live
// room. Collisions are rare but expected; callers regenerate and retry.
var ErrCodeTaken = errors.New("room code already in use")

type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*room.Room
	byCode map[string]*room.Room
}

func New() *Registry {
	return &Registry{
		byID:   make(map[string]*room.Room),
		byCode: make(map[string]*room.Room),
	}
}

func (g *Registry) Add(rm *room.Room) error {
	code := strings.ToUpper(rm.Code())

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.byCode[code]; exists {
		return ErrCodeTaken
	}
	g.byID[rm.ID()] = rm
	g.byCode[code] = rm
	return nil
}

// ByCode looks a room up case-insensitively.
func (g *Registry) ByCode(code string) (*room.Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rm, ok := g.byCode[strings.ToUpper(code)]
	return rm, ok
}

func (g *Registry) ByID(id string) (*room.Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rm, ok := g.byID[id]
	return rm, ok
}

func (g *Registry) Remove(rm *room.Room) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.byID, rm.ID())
	delete(g.byCode, strings.ToUpper(rm.Code()))
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.byID)
}
