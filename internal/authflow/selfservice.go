package authflow

import (
	"context"

	"cognitosrp/internal/cogerr"
	"cognitosrp/internal/cognitorpc"
)

// requireAccessToken returns the current access token, failing
// NotAuthenticated without issuing any RPC if no valid session exists
// (spec.md §8 scenario 6: "calling change_password while
// signInUserSession is null fails NotAuthenticated; no RPC is issued").
//
// The self-service methods below that only read the access token through
// requireAccessToken — ChangePassword, GetUser, SetUserSettings,
// DeleteUserAttributes, GetUserAttributeVerificationCode,
// VerifyUserAttribute, GetDevice, UpdateDeviceStatus, ListDevices — do
// not take the single-slot busy guard: they never touch u.deviceKey,
// u.deviceGroupKey or u.randomPassword, and getSession/setSession are
// already safe for concurrent use alongside an in-flight handshake.
// ForgetDevice is the exception: it mutates those device fields directly,
// so it takes the guard like any other state-mutating operation.
func (u *User) requireAccessToken() (string, error) {
	s := u.getSession()
	if !s.IsValid(u.pool.now()) {
		return "", cogerr.NotAuthenticated("")
	}
	return string(s.AccessToken), nil
}

// ChangePassword changes the authenticated user's password.
func (u *User) ChangePassword(ctx context.Context, previous, proposed string) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	return u.pool.Facade.ChangePassword(ctx, cognitorpc.ChangePasswordRequest{
		AccessToken:      accessToken,
		PreviousPassword: previous,
		ProposedPassword: proposed,
	})
}

// GetUser fetches the authenticated user's profile.
func (u *User) GetUser(ctx context.Context) (*cognitorpc.GetUserResponse, error) {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return nil, err
	}
	return u.pool.Facade.GetUser(ctx, cognitorpc.GetUserRequest{AccessToken: accessToken})
}

// SetUserSettings configures the authenticated user's MFA options.
func (u *User) SetUserSettings(ctx context.Context, mfaOptions []string) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	return u.pool.Facade.SetUserSettings(ctx, cognitorpc.SetUserSettingsRequest{
		AccessToken: accessToken,
		MFAOptions:  mfaOptions,
	})
}

// DeleteUser deletes the authenticated user's account, per spec.md §9's
// fixed single-return-value contract (the source resolved with a
// silently-dropped second argument).
func (u *User) DeleteUser(ctx context.Context) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	if err := u.pool.Facade.DeleteUser(ctx, cognitorpc.DeleteUserRequest{AccessToken: accessToken}); err != nil {
		return err
	}
	u.SignOut()
	return nil
}

// UpdateUserAttributes updates one or more of the authenticated user's
// attributes.
func (u *User) UpdateUserAttributes(ctx context.Context, attributes []cognitorpc.UserAttribute) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	return u.pool.Facade.UpdateUserAttributes(ctx, cognitorpc.UpdateUserAttributesRequest{
		AccessToken:    accessToken,
		UserAttributes: attributes,
	})
}

// DeleteUserAttributes removes one or more of the authenticated user's
// attributes.
func (u *User) DeleteUserAttributes(ctx context.Context, names []string) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	return u.pool.Facade.DeleteUserAttributes(ctx, cognitorpc.DeleteUserAttributesRequest{
		AccessToken:    accessToken,
		AttributeNames: names,
	})
}

// GetUserAttributeVerificationCode requests a verification code for a
// still-unverified attribute (e.g. "email", "phone_number").
func (u *User) GetUserAttributeVerificationCode(ctx context.Context, attributeName string) (*cognitorpc.GetUserAttributeVerificationCodeResponse, error) {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return nil, err
	}
	return u.pool.Facade.GetUserAttributeVerificationCode(ctx, cognitorpc.GetUserAttributeVerificationCodeRequest{
		AccessToken:   accessToken,
		AttributeName: attributeName,
	})
}

// VerifyUserAttribute confirms a verification code sent for an
// attribute.
func (u *User) VerifyUserAttribute(ctx context.Context, attributeName, code string) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	return u.pool.Facade.VerifyUserAttribute(ctx, cognitorpc.VerifyUserAttributeRequest{
		AccessToken:   accessToken,
		AttributeName: attributeName,
		Code:          code,
	})
}

// GetDevice fetches metadata for a registered device, per spec.md §9's
// fixed error contract (the source resolved rather than rejected when
// unauthenticated).
func (u *User) GetDevice(ctx context.Context, deviceKey string) (*cognitorpc.GetDeviceResponse, error) {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return nil, err
	}
	return u.pool.Facade.GetDevice(ctx, cognitorpc.GetDeviceRequest{AccessToken: accessToken, DeviceKey: deviceKey})
}

// ForgetDevice unregisters a device from the server and clears local
// device material if it's the device this User is currently bound to.
// Unlike the other self-service methods it takes the single-slot busy
// guard: it mutates u.deviceKey/u.deviceGroupKey/u.randomPassword
// directly, the same fields an in-flight initiate/runDeviceSRP may be
// reading, so it can't run concurrently with a handshake.
func (u *User) ForgetDevice(ctx context.Context, deviceKey string) error {
	if err := u.acquire(); err != nil {
		return err
	}
	defer u.release(nil)

	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	if err := u.pool.Facade.ForgetDevice(ctx, cognitorpc.ForgetDeviceRequest{AccessToken: accessToken, DeviceKey: deviceKey}); err != nil {
		return err
	}
	if deviceKey == u.deviceKey {
		u.pool.Store.ForgetDevice(u.pool.ClientID, u.username)
		u.deviceKey, u.deviceGroupKey, u.randomPassword = "", "", ""
	}
	return nil
}

// UpdateDeviceStatus marks a device as remembered or not-remembered.
func (u *User) UpdateDeviceStatus(ctx context.Context, deviceKey, status string) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	return u.pool.Facade.UpdateDeviceStatus(ctx, cognitorpc.UpdateDeviceStatusRequest{
		AccessToken:            accessToken,
		DeviceKey:              deviceKey,
		DeviceRememberedStatus: status,
	})
}

// ListDevices lists the authenticated user's registered devices.
func (u *User) ListDevices(ctx context.Context, limit int, paginationToken string) (*cognitorpc.ListDevicesResponse, error) {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return nil, err
	}
	return u.pool.Facade.ListDevices(ctx, cognitorpc.ListDevicesRequest{
		AccessToken:     accessToken,
		Limit:           limit,
		PaginationToken: paginationToken,
	})
}

// GlobalSignOut invalidates every refresh token issued to the user
// across all devices, then clears the local cache.
func (u *User) GlobalSignOut(ctx context.Context) error {
	accessToken, err := u.requireAccessToken()
	if err != nil {
		return err
	}
	if err := u.pool.Facade.GlobalSignOut(ctx, cognitorpc.GlobalSignOutRequest{AccessToken: accessToken}); err != nil {
		return err
	}
	u.SignOut()
	return nil
}

// ConfirmSignUp confirms a newly registered account using the code
// delivered out of band. This is a pool-level operation: it needs no
// session, only a client id and username.
func ConfirmSignUp(ctx context.Context, pool *Pool, username, confirmationCode string) error {
	return pool.Facade.ConfirmSignUp(ctx, cognitorpc.ConfirmSignUpRequest{
		ClientID:         pool.ClientID,
		Username:         username,
		ConfirmationCode: confirmationCode,
	})
}

// ResendConfirmationCode re-sends the sign-up confirmation code.
func ResendConfirmationCode(ctx context.Context, pool *Pool, username string) error {
	return pool.Facade.ResendConfirmationCode(ctx, cognitorpc.ResendConfirmationCodeRequest{
		ClientID: pool.ClientID,
		Username: username,
	})
}

// ForgotPassword starts the forgot-password flow.
func ForgotPassword(ctx context.Context, pool *Pool, username string) (*cognitorpc.ForgotPasswordResponse, error) {
	return pool.Facade.ForgotPassword(ctx, cognitorpc.ForgotPasswordRequest{
		ClientID: pool.ClientID,
		Username: username,
	})
}

// ConfirmForgotPassword completes the forgot-password flow with the
// code delivered out of band and a new password.
func ConfirmForgotPassword(ctx context.Context, pool *Pool, username, confirmationCode, newPassword string) error {
	return pool.Facade.ConfirmForgotPassword(ctx, cognitorpc.ConfirmForgotPasswordRequest{
		ClientID:         pool.ClientID,
		Username:         username,
		ConfirmationCode: confirmationCode,
		Password:         newPassword,
	})
}
