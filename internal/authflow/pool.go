// Package authflow is the core of the library (spec.md §4.6, C6
// AuthStateMachine): the explicit state machine that replaces the
// source's callback soup (spec.md §9), orchestrating the SRP handshake,
// challenge dispatch, device binding, and session refresh through the
// RpcFacade.
package authflow

import (
	"log/slog"
	"time"

	"cognitosrp/internal/bignum"
	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
	"cognitosrp/internal/tokenstore"
)

// Pool is the immutable configuration shared by every User constructed
// against it: the client identifier, the SRP realm (the user-pool-id
// suffix, spec.md GLOSSARY), the paranoia parameter, and the injected
// facade/store dependencies. Grounded on the teacher's broker.Client
// pattern of a small config struct wrapping an httpClient.
type Pool struct {
	ClientID     string
	PoolIDSuffix string
	Paranoia     int
	Facade       cognitorpc.Facade
	Store        *tokenstore.TokenStore

	// Clock is the source of "now" used to format the PASSWORD_VERIFIER
	// proof's TIMESTAMP parameter. Defaults to time.Now; tests inject a
	// fixed clock per spec.md §8.
	Clock func() time.Time

	// Logger receives one structured, secret-free event per challenge
	// transition (SPEC_FULL.md §4.1: "every component that ... crosses a
	// suspension point ... logs through a single injected *slog.Logger").
	// Defaults to slog.Default() when nil. Never logs a, x, S, passwords,
	// or token values — only challenge names and operation outcomes.
	Logger *slog.Logger
}

func (p *Pool) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func (p *Pool) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// NewPool validates paranoia at construction time (spec.md §9: "Values
// outside the range should be rejected at pool construction") and
// returns a ready-to-use Pool.
func NewPool(clientID, poolIDSuffix string, paranoia int, facade cognitorpc.Facade, store *tokenstore.TokenStore) (*Pool, error) {
	if clientID == "" {
		return nil, cogerr.InvalidArgument("client id is required")
	}
	if poolIDSuffix == "" {
		return nil, cogerr.InvalidArgument("pool id suffix is required")
	}
	if err := bignum.ValidateParanoia(paranoia); err != nil {
		return nil, cogerr.InvalidArgument(err.Error())
	}
	if facade == nil {
		return nil, cogerr.InvalidArgument("facade is required")
	}
	if store == nil {
		return nil, cogerr.InvalidArgument("token store is required")
	}
	return &Pool{
		ClientID:     clientID,
		PoolIDSuffix: poolIDSuffix,
		Paranoia:     paranoia,
		Facade:       facade,
		Store:        store,
	}, nil
}
