// Package tokenstore persists cached tokens and device secrets under the
// deterministic key schema in spec.md §4.4. The actual key/value backing
// is injected (spec.md §9 design note: "Reimplement as an injected
// TokenStore trait/interface with a default filesystem backing; tests
// inject an in-memory store").
package tokenstore

import (
	"fmt"
	"log/slog"
	"sync"

	"cognitosrp/internal/session"
)

// Store is the injected string-keyed key/value backing. Implementations
// must make Put/Get/Remove idempotent; no encryption is performed at this
// layer (spec.md §4.4) — the store is trusted to the degree the
// underlying medium is.
type Store interface {
	Put(key, value string) error
	Get(key string) (value string, ok bool, err error)
	Remove(key string) error
}

// Key schema, spec.md §4.4.
func idTokenKey(clientID, username string) string {
	return fmt.Sprintf("CognitoIdentityServiceProvider.%s.%s.idToken", clientID, username)
}

func accessTokenKey(clientID, username string) string {
	return fmt.Sprintf("CognitoIdentityServiceProvider.%s.%s.accessToken", clientID, username)
}

func refreshTokenKey(clientID, username string) string {
	return fmt.Sprintf("CognitoIdentityServiceProvider.%s.%s.refreshToken", clientID, username)
}

func lastAuthUserKey(clientID string) string {
	return fmt.Sprintf("CognitoIdentityServiceProvider.%s.LastAuthUser", clientID)
}

func deviceKeyKey(clientID, username string) string {
	return fmt.Sprintf("CognitoIdentityServiceProvider.%s.%s.deviceKey", clientID, username)
}

func deviceGroupKeyKey(clientID, username string) string {
	return fmt.Sprintf("CognitoIdentityServiceProvider.%s.%s.deviceGroupKey", clientID, username)
}

func randomPasswordKeyKey(clientID, username string) string {
	return fmt.Sprintf("CognitoIdentityServiceProvider.%s.%s.randomPasswordKey", clientID, username)
}

// DeviceMaterial is the per-device secret bundle spec.md §3 describes:
// (device_key, device_group_key, random_password, verifier_devices).
// verifier_devices is not persisted — it's recomputed per login from the
// random password, exactly like the salt.
type DeviceMaterial struct {
	DeviceKey      string
	DeviceGroupKey string
	RandomPassword string
}

// TokenStore is the higher-level façade (C4) application code and
// AuthStateMachine use: it knows the key schema and serializes writes per
// (clientID, username) pair, per spec.md §5 ("Implementations must
// serialise TokenStore mutations for a given (client_id, username)
// pair").
type TokenStore struct {
	backing Store

	// Logger receives one structured event per cache write/removal
	// (spec.md §4.1: "token cache writes" are one of the three things
	// every component logs). Defaults to slog.Default() when nil. Never
	// logs a token value, only which keys were touched for which
	// (clientID, username) pair.
	Logger *slog.Logger

	mu      sync.Mutex
	keyLock map[string]*sync.Mutex
}

// New wraps a Store backing in a TokenStore façade.
func New(backing Store) *TokenStore {
	return &TokenStore{
		backing: backing,
		keyLock: make(map[string]*sync.Mutex),
	}
}

func (t *TokenStore) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func (t *TokenStore) lockFor(clientID, username string) func() {
	key := clientID + "\x00" + username

	t.mu.Lock()
	l, ok := t.keyLock[key]
	if !ok {
		l = &sync.Mutex{}
		t.keyLock[key] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CacheTokens persists the three tokens from a terminal AuthenticationResult
// and records username as LastAuthUser, per spec.md §5 ("Writes happen at
// three moments only: successful terminal auth (cacheTokens) …").
func (t *TokenStore) CacheTokens(clientID, username string, s *session.Session) error {
	unlock := t.lockFor(clientID, username)
	defer unlock()

	writes := []struct{ key, value string }{
		{idTokenKey(clientID, username), string(s.IDToken)},
		{accessTokenKey(clientID, username), string(s.AccessToken)},
		{refreshTokenKey(clientID, username), string(s.RefreshToken)},
		{lastAuthUserKey(clientID), username},
	}
	for _, w := range writes {
		if err := t.backing.Put(w.key, w.value); err != nil {
			return fmt.Errorf("caching tokens: %w", err)
		}
	}
	t.logger().Info("token cache write", "event", "cache_tokens", "client_id", clientID, "username", username)
	return nil
}

// LoadSession reads the cached three tokens back into a Session. Returns
// nil, nil if no tokens are cached for this user at all.
func (t *TokenStore) LoadSession(clientID, username string) (*session.Session, error) {
	unlock := t.lockFor(clientID, username)
	defer unlock()

	id, idOK, err := t.backing.Get(idTokenKey(clientID, username))
	if err != nil {
		return nil, fmt.Errorf("loading id token: %w", err)
	}
	access, accessOK, err := t.backing.Get(accessTokenKey(clientID, username))
	if err != nil {
		return nil, fmt.Errorf("loading access token: %w", err)
	}
	refresh, refreshOK, err := t.backing.Get(refreshTokenKey(clientID, username))
	if err != nil {
		return nil, fmt.Errorf("loading refresh token: %w", err)
	}

	if !idOK && !accessOK && !refreshOK {
		return nil, nil
	}

	return session.New(session.Result{
		IDToken:      id,
		AccessToken:  access,
		RefreshToken: refresh,
	}), nil
}

// ClearTokens removes all three cached tokens for a user, and LastAuthUser
// if it still names this user, leaving nothing behind for a clean
// sign-out (spec.md §7: "sign_out is infallible beyond best-effort cache
// clear").
func (t *TokenStore) ClearTokens(clientID, username string) {
	unlock := t.lockFor(clientID, username)
	defer unlock()

	_ = t.backing.Remove(idTokenKey(clientID, username))
	_ = t.backing.Remove(accessTokenKey(clientID, username))
	_ = t.backing.Remove(refreshTokenKey(clientID, username))

	if last, ok, err := t.backing.Get(lastAuthUserKey(clientID)); err == nil && ok && last == username {
		_ = t.backing.Remove(lastAuthUserKey(clientID))
	}
	t.logger().Info("token cache write", "event", "clear_tokens", "client_id", clientID, "username", username)
}

// CacheDeviceKeyAndPassword persists confirmed device material (spec.md
// §4.6.2, §5: "successful device confirmation (cacheDeviceKeyAndPassword)").
func (t *TokenStore) CacheDeviceKeyAndPassword(clientID, username string, m DeviceMaterial) error {
	unlock := t.lockFor(clientID, username)
	defer unlock()

	writes := []struct{ key, value string }{
		{deviceKeyKey(clientID, username), m.DeviceKey},
		{deviceGroupKeyKey(clientID, username), m.DeviceGroupKey},
		{randomPasswordKeyKey(clientID, username), m.RandomPassword},
	}
	for _, w := range writes {
		if err := t.backing.Put(w.key, w.value); err != nil {
			return fmt.Errorf("caching device material: %w", err)
		}
	}
	t.logger().Info("token cache write", "event", "cache_device_material", "client_id", clientID, "username", username, "device_key", m.DeviceKey)
	return nil
}

// LoadDeviceMaterial reads back device material for username, if any.
func (t *TokenStore) LoadDeviceMaterial(clientID, username string) (*DeviceMaterial, error) {
	unlock := t.lockFor(clientID, username)
	defer unlock()

	deviceKey, ok, err := t.backing.Get(deviceKeyKey(clientID, username))
	if err != nil {
		return nil, fmt.Errorf("loading device key: %w", err)
	}
	if !ok || deviceKey == "" {
		return nil, nil
	}
	groupKey, _, err := t.backing.Get(deviceGroupKeyKey(clientID, username))
	if err != nil {
		return nil, fmt.Errorf("loading device group key: %w", err)
	}
	randomPassword, _, err := t.backing.Get(randomPasswordKeyKey(clientID, username))
	if err != nil {
		return nil, fmt.Errorf("loading random password: %w", err)
	}

	return &DeviceMaterial{
		DeviceKey:      deviceKey,
		DeviceGroupKey: groupKey,
		RandomPassword: randomPassword,
	}, nil
}

// ForgetDevice clears persisted device material (spec.md §5: "sign_out/
// forget_device (removals)").
func (t *TokenStore) ForgetDevice(clientID, username string) {
	unlock := t.lockFor(clientID, username)
	defer unlock()

	_ = t.backing.Remove(deviceKeyKey(clientID, username))
	_ = t.backing.Remove(deviceGroupKeyKey(clientID, username))
	_ = t.backing.Remove(randomPasswordKeyKey(clientID, username))
	t.logger().Info("token cache write", "event", "forget_device", "client_id", clientID, "username", username)
}
