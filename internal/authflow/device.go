package authflow

import (
	"context"
	"encoding/base64"
	"math/big"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
	"cognitosrp/internal/session"
	"cognitosrp/internal/srp"
	"cognitosrp/internal/tokenstore"
)

// deviceName is the fixed DeviceName the confirmDevice RPC receives.
// The real service only uses it for the account's device list display;
// this library does not expose per-call device naming.
const deviceName = "cognitosrp-go-client"

// runDeviceSRP executes the device-SRP sub-handshake (spec.md §4.6.1):
// a fresh SrpEngine whose realm is the device_group_key, authenticating
// with the device key and its random password rather than the user's
// password.
func (u *User) runDeviceSRP(ctx context.Context) (*Result, error) {
	u.pool.logger().Info("device srp challenge", "username", u.username, "device_key", u.deviceKey)

	if u.deviceKey == "" || u.deviceGroupKey == "" || u.randomPassword == "" {
		return nil, cogerr.New(cogerr.ErrServiceError, "server requested DEVICE_SRP_AUTH but no device is registered locally")
	}

	engine, err := srp.NewEngine(u.deviceGroupKey, u.pool.Paranoia)
	if err != nil {
		return nil, err
	}
	A, err := engine.LargeAValue()
	if err != nil {
		return nil, err
	}

	resp, err := u.pool.Facade.RespondToAuthChallenge(ctx, cognitorpc.RespondToAuthChallengeRequest{
		ChallengeName: "DEVICE_SRP_AUTH",
		ClientID:      u.pool.ClientID,
		Session:       u.serverSession,
		ChallengeResponses: cognitorpc.AuthParameters{
			"USERNAME":   u.challengeUsername(),
			"DEVICE_KEY": u.deviceKey,
			"SRP_A":      A.Text(16),
		},
	})
	if err != nil {
		return nil, err
	}

	params := resp.ChallengeParameters
	B, ok := new(big.Int).SetString(params["SRP_B"], 16)
	if !ok {
		return nil, cogerr.New(cogerr.ErrServiceError, "server SRP_B is not a valid hex integer")
	}
	salt, ok := new(big.Int).SetString(params["SALT"], 16)
	if !ok {
		return nil, cogerr.New(cogerr.ErrServiceError, "server SALT is not a valid hex integer")
	}

	hkdfKey, err := engine.PasswordAuthenticationKey(u.deviceKey, u.randomPassword, B, salt)
	if err != nil {
		return nil, err
	}

	secretBlockB64 := params["SECRET_BLOCK"]
	secretBlock, err := base64.StdEncoding.DecodeString(secretBlockB64)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.ErrServiceError, "decoding SECRET_BLOCK", err)
	}

	ts := srp.FormatTimestamp(u.pool.now())
	signature := srp.BuildProof(hkdfKey, u.deviceGroupKey, u.deviceKey, secretBlock, ts)

	resp2, err := u.pool.Facade.RespondToAuthChallenge(ctx, cognitorpc.RespondToAuthChallengeRequest{
		ChallengeName: "DEVICE_PASSWORD_VERIFIER",
		ClientID:      u.pool.ClientID,
		Session:       resp.Session,
		ChallengeResponses: cognitorpc.AuthParameters{
			"USERNAME":                   u.challengeUsername(),
			"DEVICE_KEY":                 u.deviceKey,
			"PASSWORD_CLAIM_SECRET_BLOCK": secretBlockB64,
			"TIMESTAMP":                  ts,
			"PASSWORD_CLAIM_SIGNATURE":   signature,
		},
	})
	if err != nil {
		return nil, err
	}

	return u.dispatch(ctx, fromRespond(resp2))
}

// confirmDevice runs the device-confirmation ceremony (spec.md §4.6.2):
// generates an independent device verifier, registers it with the
// server, and persists the device material on success. It never fails
// the surrounding login — any error is reported inside the returned
// DeviceConfirmation instead of propagated.
func (u *User) confirmDevice(ctx context.Context, sess *session.Session, meta *cognitorpc.NewDeviceMetadata) *DeviceConfirmation {
	u.pool.logger().Info("confirming device", "username", u.username, "device_key", meta.DeviceKey)

	verifier, err := srp.GenerateHashDevice(meta.DeviceGroupKey, meta.DeviceKey)
	if err != nil {
		u.pool.logger().Warn("device confirmation failed", "username", u.username, "device_key", meta.DeviceKey, "error", err)
		return &DeviceConfirmation{Err: err}
	}

	saltB64, verifierB64 := verifier.EncodeVerifierConfig()

	resp, err := u.pool.Facade.ConfirmDevice(ctx, cognitorpc.ConfirmDeviceRequest{
		AccessToken: string(sess.AccessToken),
		DeviceKey:   meta.DeviceKey,
		DeviceSecretVerifierConfig: cognitorpc.DeviceSecretVerifierConfig{
			PasswordVerifier: verifierB64,
			Salt:             saltB64,
		},
		DeviceName: deviceName,
	})
	if err != nil {
		u.pool.logger().Warn("device confirmation failed", "username", u.username, "device_key", meta.DeviceKey, "error", err)
		return &DeviceConfirmation{Err: err}
	}

	material := tokenstore.DeviceMaterial{
		DeviceKey:      meta.DeviceKey,
		DeviceGroupKey: meta.DeviceGroupKey,
		RandomPassword: verifier.RandomPassword,
	}
	if err := u.pool.Store.CacheDeviceKeyAndPassword(u.pool.ClientID, u.username, material); err != nil {
		u.pool.logger().Warn("device confirmation failed", "username", u.username, "device_key", meta.DeviceKey, "error", err)
		return &DeviceConfirmation{Err: err}
	}

	u.deviceKey = meta.DeviceKey
	u.deviceGroupKey = meta.DeviceGroupKey
	u.randomPassword = verifier.RandomPassword
	u.pool.logger().Info("device confirmed", "username", u.username, "device_key", meta.DeviceKey)

	return &DeviceConfirmation{
		Confirmed:                 true,
		UserConfirmationNecessary: resp.UserConfirmationNecessary,
	}
}
