package cognitorpc

import "context"

// Facade is the full set of remote identity-service operations the core
// and its supplemented user-management helpers consume (spec.md §6, C7
// RpcFacade). The authentication flow itself only drives three of
// these directly — InitiateAuth, RespondToAuthChallenge, and
// ConfirmDevice — the rest back the authenticated self-service
// operations layered on top of a live session.
type Facade interface {
	InitiateAuth(ctx context.Context, req InitiateAuthRequest) (*InitiateAuthResponse, error)
	RespondToAuthChallenge(ctx context.Context, req RespondToAuthChallengeRequest) (*RespondToAuthChallengeResponse, error)
	ConfirmDevice(ctx context.Context, req ConfirmDeviceRequest) (*ConfirmDeviceResponse, error)
	GlobalSignOut(ctx context.Context, req GlobalSignOutRequest) error

	GetUser(ctx context.Context, req GetUserRequest) (*GetUserResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	SetUserSettings(ctx context.Context, req SetUserSettingsRequest) error
	DeleteUser(ctx context.Context, req DeleteUserRequest) error
	UpdateUserAttributes(ctx context.Context, req UpdateUserAttributesRequest) error
	DeleteUserAttributes(ctx context.Context, req DeleteUserAttributesRequest) error

	ConfirmSignUp(ctx context.Context, req ConfirmSignUpRequest) error
	ResendConfirmationCode(ctx context.Context, req ResendConfirmationCodeRequest) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error)
	ConfirmForgotPassword(ctx context.Context, req ConfirmForgotPasswordRequest) error

	GetUserAttributeVerificationCode(ctx context.Context, req GetUserAttributeVerificationCodeRequest) (*GetUserAttributeVerificationCodeResponse, error)
	VerifyUserAttribute(ctx context.Context, req VerifyUserAttributeRequest) error

	GetDevice(ctx context.Context, req GetDeviceRequest) (*GetDeviceResponse, error)
	ForgetDevice(ctx context.Context, req ForgetDeviceRequest) error
	UpdateDeviceStatus(ctx context.Context, req UpdateDeviceStatusRequest) error
	ListDevices(ctx context.Context, req ListDevicesRequest) (*ListDevicesResponse, error)
}
