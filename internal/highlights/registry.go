package highlights

import (
	"sync"

	"rinkbot/internal/nhlapi"

	"github.com/google/uuid"
)

// Only one watcher may run per game. The registry hands out a lease
// per game id, checked atomically at spawn time, and the holder
// releases it on every exit path via defer. No lock files
type Registry struct {
	mu     sync.Mutex
	leases map[nhlapi.GameId]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{leases: map[nhlapi.GameId]uuid.UUID{}}
}

// Try to take the lease for a game. The returned token identifies
// the holder
func (r *Registry) Acquire(id nhlapi.GameId) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.leases[id]; held {
		return uuid.UUID{}, false
	}
	token := uuid.New()
	r.leases[id] = token
	return token, true
}

// Release the lease. Only the holder of the token can release it,
// so a stale defer cannot free a lease somebody else re-acquired
func (r *Registry) Release(id nhlapi.GameId, token uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.leases[id]; ok && held == token {
		delete(r.leases, id)
	}
}

func (r *Registry) Held(id nhlapi.GameId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.leases[id]
	return held
}
