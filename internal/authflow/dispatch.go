package authflow

import (
	"context"
	"encoding/json"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
	"cognitosrp/internal/session"
)

// challengeResponse unifies the two wire shapes initiateAuth and
// respondToAuthChallenge both return, so dispatch accepts either. The
// flows in this package dispatch only respondToAuthChallenge responses:
// initiate always answers its response with PASSWORD_VERIFIER, and
// fromInitiate has no caller here.
type challengeResponse struct {
	ChallengeName        string
	Session              string
	ChallengeParameters  cognitorpc.ChallengeParameters
	AuthenticationResult *cognitorpc.AuthenticationResult
}

func fromInitiate(r *cognitorpc.InitiateAuthResponse) challengeResponse {
	return challengeResponse{
		ChallengeName:        r.ChallengeName,
		Session:              r.Session,
		ChallengeParameters:  r.ChallengeParameters,
		AuthenticationResult: r.AuthenticationResult,
	}
}

func fromRespond(r *cognitorpc.RespondToAuthChallengeResponse) challengeResponse {
	return challengeResponse{
		ChallengeName:        r.ChallengeName,
		Session:              r.Session,
		ChallengeParameters:  r.ChallengeParameters,
		AuthenticationResult: r.AuthenticationResult,
	}
}

const requiredAttributePrefix = "userAttributes."

// dispatch inspects a challenge response's ChallengeName and either
// surfaces the matching continuation, recurses into the device-SRP
// sub-handshake, or resolves a terminal AuthenticationResult (spec.md
// §4.6 "challenge dispatch").
func (u *User) dispatch(ctx context.Context, cr challengeResponse) (*Result, error) {
	name := cr.ChallengeName
	if name == "" {
		name = "(none)"
	}
	u.pool.logger().Info("challenge transition", "username", u.username, "challenge", name)

	switch cr.ChallengeName {
	case "":
		if cr.AuthenticationResult == nil {
			return nil, cogerr.New(cogerr.ErrServiceError, "server response carried neither a challenge nor an authentication result")
		}
		return u.handleAuthenticationResult(ctx, cr.AuthenticationResult)

	case "NEW_PASSWORD_REQUIRED":
		u.serverSession = cr.Session
		challenge, err := parseNewPasswordChallenge(cr.ChallengeParameters)
		if err != nil {
			return nil, err
		}
		return &Result{Kind: NewPasswordRequired, NewPassword: challenge}, nil

	case "SMS_MFA":
		u.serverSession = cr.Session
		return &Result{Kind: MFARequired}, nil

	case "CUSTOM_CHALLENGE":
		u.serverSession = cr.Session
		return &Result{Kind: CustomChallenge, CustomChallenge: &CustomChallengeData{
			ChallengeParameters: cr.ChallengeParameters,
		}}, nil

	case "DEVICE_SRP_AUTH":
		u.serverSession = cr.Session
		return u.runDeviceSRP(ctx)

	default:
		u.pool.logger().Warn("unrecognized challenge", "username", u.username, "challenge", cr.ChallengeName)
		return nil, cogerr.Newf(cogerr.ErrServiceError, "unrecognized challenge %q", cr.ChallengeName)
	}
}

// parseNewPasswordChallenge decodes the JSON-encoded "userAttributes"
// and "requiredAttributes" challenge parameters and strips the fixed
// "userAttributes." prefix off each required attribute name (spec.md
// §4.6).
func parseNewPasswordChallenge(params cognitorpc.ChallengeParameters) (*NewPasswordChallenge, error) {
	userAttributes := map[string]string{}
	if raw, ok := params["userAttributes"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &userAttributes); err != nil {
			return nil, cogerr.Wrap(cogerr.ErrServiceError, "decoding userAttributes challenge parameter", err)
		}
	}

	var rawRequired []string
	if raw, ok := params["requiredAttributes"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &rawRequired); err != nil {
			return nil, cogerr.Wrap(cogerr.ErrServiceError, "decoding requiredAttributes challenge parameter", err)
		}
	}

	required := make([]string, 0, len(rawRequired))
	for _, name := range rawRequired {
		stripped := name
		if len(name) > len(requiredAttributePrefix) && name[:len(requiredAttributePrefix)] == requiredAttributePrefix {
			stripped = name[len(requiredAttributePrefix):]
		}
		required = append(required, stripped)
	}

	return &NewPasswordChallenge{UserAttributes: userAttributes, RequiredAttributes: required}, nil
}

// handleAuthenticationResult is the terminal path: builds and caches
// the Session, then runs the device-confirmation ceremony if the server
// offered NewDeviceMetadata (spec.md §4.6.2). A device-confirmation
// failure never fails the login — it's reported alongside the session.
func (u *User) handleAuthenticationResult(ctx context.Context, ar *cognitorpc.AuthenticationResult) (*Result, error) {
	sess := session.New(session.Result{
		IDToken:      ar.IDToken,
		AccessToken:  ar.AccessToken,
		RefreshToken: ar.RefreshToken,
	})

	if err := u.pool.Store.CacheTokens(u.pool.ClientID, u.username, sess); err != nil {
		return nil, err
	}
	u.setSession(sess)
	u.resetHandshake()
	u.pool.logger().Info("authentication succeeded", "username", u.username)

	result := &Result{Kind: Authenticated, Session: sess}

	if ar.NewDeviceMetadata != nil {
		result.Device = u.confirmDevice(ctx, sess, ar.NewDeviceMetadata)
	}

	return result, nil
}
