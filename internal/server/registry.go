// Package server is a small chi-routed HTTP demo wrapping the
// authentication core, grounded on the teacher's cmd/server/main.go App
// wiring and chi router setup — trimmed to the handful of routes an
// auth library's demo actually needs instead of the teacher's full
// personal-finance surface.
package server

import (
	"sync"

	"cognitosrp/internal/authflow"
)

// registry is a process-wide map from username to the single stateful
// User instance tracking that username's in-flight handshake, mirroring
// how the teacher's sessionManager is one shared, mutex-guarded map
// (internal/auth/auth.go's SessionManager) rather than per-request
// state.
type registry struct {
	pool *authflow.Pool

	mu    sync.Mutex
	users map[string]*authflow.User
}

func newRegistry(pool *authflow.Pool) *registry {
	return &registry{pool: pool, users: make(map[string]*authflow.User)}
}

func (r *registry) get(username string) (*authflow.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[username]; ok {
		return u, nil
	}
	u, err := authflow.NewUser(r.pool, username)
	if err != nil {
		return nil, err
	}
	r.users[username] = u
	return u, nil
}
