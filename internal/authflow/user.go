package authflow

import (
	"sync"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/session"
	"cognitosrp/internal/srp"
)

// User is a single named principal's authentication state against a
// Pool (spec.md §4.6, §5). It is NOT re-entrant: a single-slot guard
// (mu) rejects any operation attempted while another is already in
// flight, per spec.md §5 ("Implementations enforce this with a
// single-slot mutex or equivalent; attempts to re-enter fail with
// Busy").
type User struct {
	pool     *Pool
	username string

	mu sync.Mutex

	sessionMu sync.RWMutex
	session   *session.Session

	// handshake scratch state, live only between initiate_auth and the
	// challenge dispatch that follows it.
	engine       *srp.Engine
	srpUserID    string
	serverSession string

	deviceKey      string
	deviceGroupKey string
	randomPassword string
}

// NewUser constructs a User bound to pool for username. Device material
// persisted from a previous device-confirmation ceremony is loaded
// lazily on first use, not here (construction never touches the store).
func NewUser(pool *Pool, username string) (*User, error) {
	if pool == nil {
		return nil, cogerr.InvalidArgument("pool is required")
	}
	if username == "" {
		return nil, cogerr.InvalidArgument("username is required")
	}
	return &User{pool: pool, username: username}, nil
}

// Username is a read-only getter, permitted concurrently with any
// in-flight operation (spec.md §5).
func (u *User) Username() string {
	return u.username
}

// getSession reads the in-memory session, safe for concurrent use
// alongside any in-flight operation (spec.md §5: read-only getters are
// permitted concurrently).
func (u *User) getSession() *session.Session {
	u.sessionMu.RLock()
	defer u.sessionMu.RUnlock()
	return u.session
}

// setSession replaces the in-memory session.
func (u *User) setSession(s *session.Session) {
	u.sessionMu.Lock()
	defer u.sessionMu.Unlock()
	u.session = s
}

// acquire claims the single-slot operation guard, failing with Busy if
// another operation already holds it.
func (u *User) acquire() error {
	if !u.mu.TryLock() {
		return cogerr.Busy()
	}
	return nil
}

// release gives up the guard and, on the error path, returns the state
// machine to IDLE by clearing transient handshake state (spec.md §4.6:
// "Any error at any edge transitions to IDLE with the transient
// server_session cleared").
func (u *User) release(err error) {
	if err != nil {
		u.resetHandshake()
	}
	u.mu.Unlock()
}

// resetHandshake clears everything scoped to a single handshake
// attempt. It does not touch u.session — a failed refresh or challenge
// response must not discard an otherwise-still-valid prior session.
func (u *User) resetHandshake() {
	u.engine = nil
	u.srpUserID = ""
	u.serverSession = ""
}

// loadDeviceMaterial populates the in-memory device fields from the
// token store, if present, the first time they're needed.
func (u *User) loadDeviceMaterial() error {
	if u.deviceKey != "" {
		return nil
	}
	material, err := u.pool.Store.LoadDeviceMaterial(u.pool.ClientID, u.username)
	if err != nil {
		return err
	}
	if material == nil {
		return nil
	}
	u.deviceKey = material.DeviceKey
	u.deviceGroupKey = material.DeviceGroupKey
	u.randomPassword = material.RandomPassword
	return nil
}
