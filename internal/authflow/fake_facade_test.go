package authflow

import (
	"context"
	"encoding/base64"
	"sync"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
)

// fakeFacade is a scriptable cognitorpc.Facade double. Each test wires
// only the closures its scenario exercises. InitiateAuth,
// RespondToAuthChallenge, ConfirmDevice and GetUser fail loudly when
// their closure is not set, so an unexpected call there shows up as a
// test failure; every other method only records the call and returns
// success with a zero-value response. Mirrors the teacher's preference
// for injected fakes over a live broker in tests (internal/auth's
// reliance on an injected *database.DB).
type fakeFacade struct {
	mu    sync.Mutex
	calls []string

	initiateAuth func(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error)
	respond      func(ctx context.Context, req cognitorpc.RespondToAuthChallengeRequest) (*cognitorpc.RespondToAuthChallengeResponse, error)
	confirmDevice func(ctx context.Context, req cognitorpc.ConfirmDeviceRequest) (*cognitorpc.ConfirmDeviceResponse, error)
	getUser      func(ctx context.Context, req cognitorpc.GetUserRequest) (*cognitorpc.GetUserResponse, error)
}

func (f *fakeFacade) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func notConfigured(op string) error {
	return cogerr.Service("Stub", "fakeFacade."+op+" was not configured for this test")
}

func (f *fakeFacade) InitiateAuth(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error) {
	f.record("InitiateAuth")
	if f.initiateAuth == nil {
		return nil, notConfigured("InitiateAuth")
	}
	return f.initiateAuth(ctx, req)
}

func (f *fakeFacade) RespondToAuthChallenge(ctx context.Context, req cognitorpc.RespondToAuthChallengeRequest) (*cognitorpc.RespondToAuthChallengeResponse, error) {
	f.record("RespondToAuthChallenge:" + req.ChallengeName)
	if f.respond == nil {
		return nil, notConfigured("RespondToAuthChallenge")
	}
	return f.respond(ctx, req)
}

func (f *fakeFacade) ConfirmDevice(ctx context.Context, req cognitorpc.ConfirmDeviceRequest) (*cognitorpc.ConfirmDeviceResponse, error) {
	f.record("ConfirmDevice")
	if f.confirmDevice == nil {
		return nil, notConfigured("ConfirmDevice")
	}
	return f.confirmDevice(ctx, req)
}

func (f *fakeFacade) GlobalSignOut(ctx context.Context, req cognitorpc.GlobalSignOutRequest) error {
	f.record("GlobalSignOut")
	return nil
}

func (f *fakeFacade) GetUser(ctx context.Context, req cognitorpc.GetUserRequest) (*cognitorpc.GetUserResponse, error) {
	f.record("GetUser")
	if f.getUser == nil {
		return nil, notConfigured("GetUser")
	}
	return f.getUser(ctx, req)
}

func (f *fakeFacade) ChangePassword(ctx context.Context, req cognitorpc.ChangePasswordRequest) error {
	f.record("ChangePassword")
	return nil
}

func (f *fakeFacade) SetUserSettings(ctx context.Context, req cognitorpc.SetUserSettingsRequest) error {
	f.record("SetUserSettings")
	return nil
}

func (f *fakeFacade) DeleteUser(ctx context.Context, req cognitorpc.DeleteUserRequest) error {
	f.record("DeleteUser")
	return nil
}

func (f *fakeFacade) UpdateUserAttributes(ctx context.Context, req cognitorpc.UpdateUserAttributesRequest) error {
	f.record("UpdateUserAttributes")
	return nil
}

func (f *fakeFacade) DeleteUserAttributes(ctx context.Context, req cognitorpc.DeleteUserAttributesRequest) error {
	f.record("DeleteUserAttributes")
	return nil
}

func (f *fakeFacade) ConfirmSignUp(ctx context.Context, req cognitorpc.ConfirmSignUpRequest) error {
	f.record("ConfirmSignUp")
	return nil
}

func (f *fakeFacade) ResendConfirmationCode(ctx context.Context, req cognitorpc.ResendConfirmationCodeRequest) error {
	f.record("ResendConfirmationCode")
	return nil
}

func (f *fakeFacade) ForgotPassword(ctx context.Context, req cognitorpc.ForgotPasswordRequest) (*cognitorpc.ForgotPasswordResponse, error) {
	f.record("ForgotPassword")
	return &cognitorpc.ForgotPasswordResponse{}, nil
}

func (f *fakeFacade) ConfirmForgotPassword(ctx context.Context, req cognitorpc.ConfirmForgotPasswordRequest) error {
	f.record("ConfirmForgotPassword")
	return nil
}

func (f *fakeFacade) GetUserAttributeVerificationCode(ctx context.Context, req cognitorpc.GetUserAttributeVerificationCodeRequest) (*cognitorpc.GetUserAttributeVerificationCodeResponse, error) {
	f.record("GetUserAttributeVerificationCode")
	return &cognitorpc.GetUserAttributeVerificationCodeResponse{}, nil
}

func (f *fakeFacade) VerifyUserAttribute(ctx context.Context, req cognitorpc.VerifyUserAttributeRequest) error {
	f.record("VerifyUserAttribute")
	return nil
}

func (f *fakeFacade) GetDevice(ctx context.Context, req cognitorpc.GetDeviceRequest) (*cognitorpc.GetDeviceResponse, error) {
	f.record("GetDevice")
	return &cognitorpc.GetDeviceResponse{}, nil
}

func (f *fakeFacade) ForgetDevice(ctx context.Context, req cognitorpc.ForgetDeviceRequest) error {
	f.record("ForgetDevice")
	return nil
}

func (f *fakeFacade) UpdateDeviceStatus(ctx context.Context, req cognitorpc.UpdateDeviceStatusRequest) error {
	f.record("UpdateDeviceStatus")
	return nil
}

func (f *fakeFacade) ListDevices(ctx context.Context, req cognitorpc.ListDevicesRequest) (*cognitorpc.ListDevicesResponse, error) {
	f.record("ListDevices")
	return &cognitorpc.ListDevicesResponse{}, nil
}

var _ cognitorpc.Facade = (*fakeFacade)(nil)

// fixedSecretBlock is an arbitrary opaque server secret block; the fake
// server never validates the client's PASSWORD_CLAIM_SIGNATURE (that
// math is exercised directly by the srp package's own tests), so any
// base64 payload serves.
var fixedSecretBlock = base64.StdEncoding.EncodeToString([]byte("opaque-secret-block"))

// srpChallengeParams returns a syntactically valid SRP_B/SALT/
// SECRET_BLOCK triple sufficient for the client's arithmetic to run
// without error, regardless of whether the fake "server" actually holds
// the matching verifier.
func srpChallengeParams(userIDForSRP string) cognitorpc.ChallengeParameters {
	return cognitorpc.ChallengeParameters{
		"SRP_B":           "2",
		"SALT":            "abcd1234",
		"SECRET_BLOCK":    fixedSecretBlock,
		"USER_ID_FOR_SRP": userIDForSRP,
	}
}
