package authflow

import (
	"context"
	"encoding/base64"
	"math/big"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
	"cognitosrp/internal/srp"
)

// AuthenticateUser runs the standard USER_SRP_AUTH login (spec.md §4.6,
// happy-path scenario 1): initiate, then the PASSWORD_VERIFIER round
// trip, then challenge dispatch.
func (u *User) AuthenticateUser(ctx context.Context, password string) (*Result, error) {
	if err := u.acquire(); err != nil {
		return nil, err
	}
	result, err := u.initiate(ctx, password, "USER_SRP_AUTH")
	u.release(err)
	return result, err
}

// InitiateCustomAuth runs a CUSTOM_AUTH login, which starts the same
// SRP password-verifier round trip but flags the initial request with
// CHALLENGE_NAME=SRP_A so the server routes it through a custom Lambda
// trigger chain (spec.md §4.6).
func (u *User) InitiateCustomAuth(ctx context.Context, password string) (*Result, error) {
	if err := u.acquire(); err != nil {
		return nil, err
	}
	result, err := u.initiate(ctx, password, "CUSTOM_AUTH")
	u.release(err)
	return result, err
}

func (u *User) initiate(ctx context.Context, password, authFlow string) (*Result, error) {
	if err := u.loadDeviceMaterial(); err != nil {
		return nil, err
	}

	engine, err := srp.NewEngine(u.pool.PoolIDSuffix, u.pool.Paranoia)
	if err != nil {
		return nil, err
	}
	A, err := engine.LargeAValue()
	if err != nil {
		return nil, err
	}

	params := cognitorpc.AuthParameters{
		"USERNAME": u.username,
		"SRP_A":    A.Text(16),
	}
	if u.deviceKey != "" {
		params["DEVICE_KEY"] = u.deviceKey
	}
	if authFlow == "CUSTOM_AUTH" {
		params["CHALLENGE_NAME"] = "SRP_A"
	}

	u.pool.logger().Info("initiating auth", "username", u.username, "auth_flow", authFlow)

	resp, err := u.pool.Facade.InitiateAuth(ctx, cognitorpc.InitiateAuthRequest{
		AuthFlow:       authFlow,
		ClientID:       u.pool.ClientID,
		AuthParameters: params,
	})
	if err != nil {
		u.pool.logger().Warn("initiate auth failed", "username", u.username, "auth_flow", authFlow, "error", err)
		return nil, err
	}

	u.engine = engine
	return u.completePasswordVerifier(ctx, password, resp.Session, resp.ChallengeParameters)
}

// completePasswordVerifier derives the SRP session key from the
// server's SRP_B/SALT challenge parameters, builds the
// PASSWORD_CLAIM_SIGNATURE proof, and posts the PASSWORD_VERIFIER
// challenge response (spec.md §4.6, §4.2, §4.3).
func (u *User) completePasswordVerifier(ctx context.Context, password, serverSession string, params cognitorpc.ChallengeParameters) (*Result, error) {
	srpUserID := params["USER_ID_FOR_SRP"]
	if srpUserID == "" {
		srpUserID = u.username
	}
	u.srpUserID = srpUserID

	B, ok := new(big.Int).SetString(params["SRP_B"], 16)
	if !ok {
		return nil, cogerr.New(cogerr.ErrServiceError, "server SRP_B is not a valid hex integer")
	}
	salt, ok := new(big.Int).SetString(params["SALT"], 16)
	if !ok {
		return nil, cogerr.New(cogerr.ErrServiceError, "server SALT is not a valid hex integer")
	}

	hkdfKey, err := u.engine.PasswordAuthenticationKey(srpUserID, password, B, salt)
	if err != nil {
		return nil, err
	}

	secretBlockB64 := params["SECRET_BLOCK"]
	secretBlock, err := base64.StdEncoding.DecodeString(secretBlockB64)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.ErrServiceError, "decoding SECRET_BLOCK", err)
	}

	ts := srp.FormatTimestamp(u.pool.now())
	signature := srp.BuildProof(hkdfKey, u.pool.PoolIDSuffix, srpUserID, secretBlock, ts)

	challengeResponses := cognitorpc.AuthParameters{
		"USERNAME":                   srpUserID,
		"PASSWORD_CLAIM_SECRET_BLOCK": secretBlockB64,
		"TIMESTAMP":                  ts,
		"PASSWORD_CLAIM_SIGNATURE":   signature,
	}
	if u.deviceKey != "" {
		challengeResponses["DEVICE_KEY"] = u.deviceKey
	}

	resp, err := u.pool.Facade.RespondToAuthChallenge(ctx, cognitorpc.RespondToAuthChallengeRequest{
		ChallengeName:      "PASSWORD_VERIFIER",
		ClientID:           u.pool.ClientID,
		Session:            serverSession,
		ChallengeResponses: challengeResponses,
	})
	if err != nil {
		u.pool.logger().Warn("password verifier rejected", "username", u.username, "error", err)
		return nil, err
	}

	return u.dispatch(ctx, fromRespond(resp))
}
