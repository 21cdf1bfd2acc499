package authflow

import (
	"context"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
	"cognitosrp/internal/session"
)

// RefreshSession exchanges refreshToken for a fresh id/access token pair
// (spec.md §4.6.3). If a persisted device key exists it is included so
// device-bound sessions stay bound. The server's AuthenticationResult
// may omit RefreshToken; the prior one is carried forward.
func (u *User) RefreshSession(ctx context.Context, refreshToken string) (*Result, error) {
	if err := u.acquire(); err != nil {
		return nil, err
	}
	var err error
	defer func() { u.release(err) }()

	if refreshToken == "" {
		err = cogerr.InvalidArgument("refresh token is required")
		return nil, err
	}
	if err = u.loadDeviceMaterial(); err != nil {
		return nil, err
	}

	params := cognitorpc.AuthParameters{
		"REFRESH_TOKEN": refreshToken,
		"USERNAME":      u.username,
	}
	if u.deviceKey != "" {
		params["DEVICE_KEY"] = u.deviceKey
	}

	u.pool.logger().Info("refreshing session", "username", u.username)

	var resp *cognitorpc.InitiateAuthResponse
	resp, err = u.pool.Facade.InitiateAuth(ctx, cognitorpc.InitiateAuthRequest{
		AuthFlow:       "REFRESH_TOKEN_AUTH",
		ClientID:       u.pool.ClientID,
		AuthParameters: params,
	})
	if err != nil {
		u.pool.logger().Warn("refresh failed", "username", u.username, "error", err)
		return nil, err
	}
	if resp.AuthenticationResult == nil {
		err = cogerr.New(cogerr.ErrServiceError, "refresh did not return an authentication result")
		return nil, err
	}
	ar := resp.AuthenticationResult

	prior := u.getSession()
	var refreshed *session.Session
	if prior != nil {
		refreshed = prior.WithRefreshed(ar.IDToken, ar.AccessToken, ar.RefreshToken)
	} else {
		carriedRefresh := ar.RefreshToken
		if carriedRefresh == "" {
			carriedRefresh = refreshToken
		}
		refreshed = session.New(session.Result{
			IDToken:      ar.IDToken,
			AccessToken:  ar.AccessToken,
			RefreshToken: carriedRefresh,
		})
	}

	if err = u.pool.Store.CacheTokens(u.pool.ClientID, u.username, refreshed); err != nil {
		return nil, err
	}
	u.setSession(refreshed)
	u.pool.logger().Info("session refreshed", "username", u.username)

	return &Result{Kind: Authenticated, Session: refreshed}, nil
}

// GetSession resolves the current session by the order spec.md §4.6.4
// fixes: the in-memory session if still valid, else the persisted
// tokens if those are valid, else a refresh using the persisted refresh
// token, else NotAuthenticated.
func (u *User) GetSession(ctx context.Context) (*session.Session, error) {
	now := u.pool.now()

	if s := u.getSession(); s.IsValid(now) {
		return s, nil
	}

	stored, err := u.pool.Store.LoadSession(u.pool.ClientID, u.username)
	if err != nil {
		return nil, err
	}
	if stored.IsValid(now) {
		u.setSession(stored)
		return stored, nil
	}

	if stored != nil && stored.RefreshToken != "" {
		result, err := u.RefreshSession(ctx, string(stored.RefreshToken))
		if err != nil {
			return nil, err
		}
		return result.Session, nil
	}

	return nil, cogerr.NotAuthenticated("")
}

// SignOut clears the cached session locally. Per spec.md §7 ("sign_out
// is infallible beyond best-effort cache clear") and §9 (the source's
// broken self-reference), this is a plain method that always succeeds
// from the caller's perspective.
func (u *User) SignOut() {
	u.setSession(nil)
	u.pool.Store.ClearTokens(u.pool.ClientID, u.username)
	u.pool.logger().Info("signed out", "username", u.username)
}
