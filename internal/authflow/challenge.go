package authflow

import (
	"context"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
)

// challengeUsername is the USERNAME value subsequent challenge
// responses in the same login attempt carry: the SRP-canonical id the
// server handed back during initiate, if any, else the caller-supplied
// username.
func (u *User) challengeUsername() string {
	if u.srpUserID != "" {
		return u.srpUserID
	}
	return u.username
}

// CompleteNewPasswordChallenge answers a NEW_PASSWORD_REQUIRED
// challenge (spec.md §4.6): newPassword plus a value for every
// attribute name the challenge demanded, keyed without the
// "userAttributes." prefix.
func (u *User) CompleteNewPasswordChallenge(ctx context.Context, newPassword string, requiredAttributes map[string]string) (*Result, error) {
	if err := u.acquire(); err != nil {
		return nil, err
	}
	var err error
	defer func() { u.release(err) }()

	if u.serverSession == "" {
		err = cogerr.InvalidArgument("no NEW_PASSWORD_REQUIRED challenge is pending")
		return nil, err
	}
	if newPassword == "" {
		err = cogerr.InvalidArgument("new password is required")
		return nil, err
	}

	responses := cognitorpc.AuthParameters{
		"NEW_PASSWORD": newPassword,
		"USERNAME":     u.challengeUsername(),
	}
	for name, value := range requiredAttributes {
		responses[requiredAttributePrefix+name] = value
	}

	u.pool.logger().Info("responding to challenge", "username", u.username, "challenge", "NEW_PASSWORD_REQUIRED")

	var resp *cognitorpc.RespondToAuthChallengeResponse
	resp, err = u.pool.Facade.RespondToAuthChallenge(ctx, cognitorpc.RespondToAuthChallengeRequest{
		ChallengeName:      "NEW_PASSWORD_REQUIRED",
		ClientID:           u.pool.ClientID,
		Session:            u.serverSession,
		ChallengeResponses: responses,
	})
	if err != nil {
		u.pool.logger().Warn("challenge response rejected", "username", u.username, "challenge", "NEW_PASSWORD_REQUIRED", "error", err)
		return nil, err
	}

	var result *Result
	result, err = u.dispatch(ctx, fromRespond(resp))
	return result, err
}

// SendMFACode answers an SMS_MFA challenge (spec.md §4.6).
func (u *User) SendMFACode(ctx context.Context, code string) (*Result, error) {
	if err := u.acquire(); err != nil {
		return nil, err
	}
	var err error
	defer func() { u.release(err) }()

	if u.serverSession == "" {
		err = cogerr.InvalidArgument("no SMS_MFA challenge is pending")
		return nil, err
	}
	if code == "" {
		err = cogerr.InvalidArgument("mfa code is required")
		return nil, err
	}

	responses := cognitorpc.AuthParameters{
		"SMS_MFA_CODE": code,
		"USERNAME":     u.challengeUsername(),
	}
	if u.deviceKey != "" {
		responses["DEVICE_KEY"] = u.deviceKey
	}

	u.pool.logger().Info("responding to challenge", "username", u.username, "challenge", "SMS_MFA")

	var resp *cognitorpc.RespondToAuthChallengeResponse
	resp, err = u.pool.Facade.RespondToAuthChallenge(ctx, cognitorpc.RespondToAuthChallengeRequest{
		ChallengeName:      "SMS_MFA",
		ClientID:           u.pool.ClientID,
		Session:            u.serverSession,
		ChallengeResponses: responses,
	})
	if err != nil {
		u.pool.logger().Warn("challenge response rejected", "username", u.username, "challenge", "SMS_MFA", "error", err)
		return nil, err
	}

	var result *Result
	result, err = u.dispatch(ctx, fromRespond(resp))
	return result, err
}

// SendCustomChallengeAnswer answers a CUSTOM_CHALLENGE; the server may
// chain another CUSTOM_CHALLENGE, which dispatch surfaces the same way
// (spec.md §4.6, and §9's fixed "data.ChallengeParameters" scoping bug).
func (u *User) SendCustomChallengeAnswer(ctx context.Context, answer string) (*Result, error) {
	if err := u.acquire(); err != nil {
		return nil, err
	}
	var err error
	defer func() { u.release(err) }()

	if u.serverSession == "" {
		err = cogerr.InvalidArgument("no CUSTOM_CHALLENGE is pending")
		return nil, err
	}

	responses := cognitorpc.AuthParameters{
		"ANSWER":   answer,
		"USERNAME": u.challengeUsername(),
	}

	u.pool.logger().Info("responding to challenge", "username", u.username, "challenge", "CUSTOM_CHALLENGE")

	var resp *cognitorpc.RespondToAuthChallengeResponse
	resp, err = u.pool.Facade.RespondToAuthChallenge(ctx, cognitorpc.RespondToAuthChallengeRequest{
		ChallengeName:      "CUSTOM_CHALLENGE",
		ClientID:           u.pool.ClientID,
		Session:            u.serverSession,
		ChallengeResponses: responses,
	})
	if err != nil {
		u.pool.logger().Warn("challenge response rejected", "username", u.username, "challenge", "CUSTOM_CHALLENGE", "error", err)
		return nil, err
	}

	var result *Result
	result, err = u.dispatch(ctx, fromRespond(resp))
	return result, err
}
