// Package session holds the three-bearer-token bundle returned by a
// successful authentication (spec.md §3, §4.5) and the minimal JWT
// accessor the core needs to find a token's expiry without validating
// its signature — signature validation is explicitly out of scope
// (spec.md §1); the core trusts the server channel.
package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Token is an opaque bearer token with a lazily-read expiry.
type Token string

// claims is the subset of a JWT payload the core cares about.
type claims struct {
	Exp int64 `json:"exp"`
}

// ExpiresAt returns the token's exp claim as a time.Time. A token that
// does not parse as a three-segment JWT, or has no exp claim, reports
// a zero time — callers must treat a zero ExpiresAt as "already expired"
// rather than as "never expires".
func (t Token) ExpiresAt() time.Time {
	parts := strings.Split(string(t), ".")
	if len(parts) != 3 {
		return time.Time{}
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}
	}

	var c claims
	if err := json.Unmarshal(payload, &c); err != nil || c.Exp == 0 {
		return time.Time{}
	}

	return time.Unix(c.Exp, 0).UTC()
}

// valid reports whether the token parses and has not expired as of now.
func (t Token) valid(now time.Time) bool {
	if t == "" {
		return false
	}
	exp := t.ExpiresAt()
	if exp.IsZero() {
		return false
	}
	return now.Before(exp)
}

// Result mirrors the raw AuthenticationResult object the remote service
// returns (spec.md §4.5): the three tokens the Session is built from.
type Result struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
}

// Session is the three-token bundle (spec.md §3, §4.5).
type Session struct {
	IDToken      Token
	AccessToken  Token
	RefreshToken Token
}

// New constructs a Session from a raw AuthenticationResult.
func New(r Result) *Session {
	return &Session{
		IDToken:      Token(r.IDToken),
		AccessToken:  Token(r.AccessToken),
		RefreshToken: Token(r.RefreshToken),
	}
}

// IsValid reports whether all three tokens are present and the id/access
// tokens are not expired as of now, per spec.md's invariant: "Session.is_valid()
// is the sole gatekeeper for any authenticated operation; an implementation
// MUST NOT send an access token that is expired." The refresh token is not
// time-checked here — it has no exp claim contract the core relies on; its
// own expiry surfaces as a service error when it's actually used.
func (s *Session) IsValid(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.RefreshToken == "" {
		return false
	}
	return s.IDToken.valid(now) && s.AccessToken.valid(now)
}

// WithRefreshed returns a copy of s with the id/access tokens replaced.
// If newRefresh is empty, the prior refresh token is carried forward —
// this implements spec.md §4.6.3: "The server's AuthenticationResult may
// omit RefreshToken; the core MUST carry the prior refresh token forward."
func (s *Session) WithRefreshed(idToken, accessToken, newRefresh string) *Session {
	refresh := s.RefreshToken
	if newRefresh != "" {
		refresh = Token(newRefresh)
	}
	return &Session{
		IDToken:      Token(idToken),
		AccessToken:  Token(accessToken),
		RefreshToken: refresh,
	}
}
