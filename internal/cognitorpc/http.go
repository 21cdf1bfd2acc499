package cognitorpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"cognitosrp/internal/cogerr"
)

// target is the wire-level "X-Amz-Target"-style operation name each
// JSON-over-HTTPS RPC carries, mirroring how the real identity service
// dispatches on a single POST endpoint (spec.md §4.7, §6).
type target string

const (
	targetInitiateAuth                     target = "AWSCognitoIdentityProviderService.InitiateAuth"
	targetRespondToAuthChallenge            target = "AWSCognitoIdentityProviderService.RespondToAuthChallenge"
	targetConfirmDevice                    target = "AWSCognitoIdentityProviderService.ConfirmDevice"
	targetGlobalSignOut                    target = "AWSCognitoIdentityProviderService.GlobalSignOut"
	targetGetUser                          target = "AWSCognitoIdentityProviderService.GetUser"
	targetChangePassword                   target = "AWSCognitoIdentityProviderService.ChangePassword"
	targetSetUserSettings                  target = "AWSCognitoIdentityProviderService.SetUserSettings"
	targetDeleteUser                       target = "AWSCognitoIdentityProviderService.DeleteUser"
	targetUpdateUserAttributes             target = "AWSCognitoIdentityProviderService.UpdateUserAttributes"
	targetDeleteUserAttributes             target = "AWSCognitoIdentityProviderService.DeleteUserAttributes"
	targetConfirmSignUp                    target = "AWSCognitoIdentityProviderService.ConfirmSignUp"
	targetResendConfirmationCode           target = "AWSCognitoIdentityProviderService.ResendConfirmationCode"
	targetForgotPassword                   target = "AWSCognitoIdentityProviderService.ForgotPassword"
	targetConfirmForgotPassword            target = "AWSCognitoIdentityProviderService.ConfirmForgotPassword"
	targetGetUserAttributeVerificationCode target = "AWSCognitoIdentityProviderService.GetUserAttributeVerificationCode"
	targetVerifyUserAttribute              target = "AWSCognitoIdentityProviderService.VerifyUserAttribute"
	targetGetDevice                        target = "AWSCognitoIdentityProviderService.GetDevice"
	targetForgetDevice                     target = "AWSCognitoIdentityProviderService.ForgetDevice"
	targetUpdateDeviceStatus               target = "AWSCognitoIdentityProviderService.UpdateDeviceStatus"
	targetListDevices                      target = "AWSCognitoIdentityProviderService.ListDevices"
)

// HTTPFacade is the production Facade: a single JSON-over-HTTPS endpoint
// dispatched by target name, grounded on the teacher's mitid.Client
// doJSON helper (internal/broker/nordnet/mitid/client.go) generalized
// from MitID's path-per-operation REST shape to the remote identity
// service's single-endpoint, target-header RPC shape. Outbound calls are
// throttled by a token-bucket limiter grounded on
// internal/middleware/ratelimit.go's rate.NewLimiter usage, since the
// remote service enforces its own per-client quota and a misbehaving
// client should fail fast locally rather than hammer it.
type HTTPFacade struct {
	httpClient *http.Client
	endpoint   string
	limiter    *rate.Limiter

	// Logger receives one structured event per RPC call (SPEC_FULL.md
	// §4.1: "RPC calls" are one of the three things every component
	// logs). Defaults to slog.Default() when nil. Logs the target and
	// outcome only — never the request or response body, which may
	// carry passwords, SRP proofs, or tokens.
	Logger *slog.Logger
}

func (f *HTTPFacade) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// NewHTTPFacade constructs a Facade pointed at endpoint (the identity
// service's single RPC URL), limited to reqsPerSecond sustained requests
// with the given burst allowance.
func NewHTTPFacade(endpoint string, httpClient *http.Client, reqsPerSecond float64, burst int) *HTTPFacade {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFacade{
		httpClient: httpClient,
		endpoint:   endpoint,
		limiter:    rate.NewLimiter(rate.Limit(reqsPerSecond), burst),
	}
}

// doJSON issues a single target-dispatched JSON RPC, decoding resp into
// out (when non-nil) on success and classifying any wire error envelope
// otherwise.
func (f *HTTPFacade) doJSON(ctx context.Context, t target, body, out any) error {
	start := time.Now()
	err := f.doJSONUnlogged(ctx, t, body, out)
	duration := time.Since(start)

	if err != nil {
		f.logger().Warn("rpc call failed", "target", string(t), "duration", duration, "error", err)
		return err
	}
	f.logger().Info("rpc call succeeded", "target", string(t), "duration", duration)
	return nil
}

func (f *HTTPFacade) doJSONUnlogged(ctx context.Context, t target, body, out any) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return cogerr.Transport(err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return cogerr.Wrap(cogerr.ErrInvalidArgument, "marshaling request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return cogerr.Transport(err)
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", string(t))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return cogerr.Transport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return cogerr.Transport(err)
	}

	if resp.StatusCode != http.StatusOK {
		var wireErr wireError
		if err := json.Unmarshal(respBody, &wireErr); err != nil || wireErr.Type == "" {
			return cogerr.Newf(cogerr.ErrServiceError, "unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
		return wireErr.classify()
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return cogerr.Wrap(cogerr.ErrServiceError, "decoding response body", err)
	}
	return nil
}

func (f *HTTPFacade) InitiateAuth(ctx context.Context, req InitiateAuthRequest) (*InitiateAuthResponse, error) {
	var out InitiateAuthResponse
	if err := f.doJSON(ctx, targetInitiateAuth, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacade) RespondToAuthChallenge(ctx context.Context, req RespondToAuthChallengeRequest) (*RespondToAuthChallengeResponse, error) {
	var out RespondToAuthChallengeResponse
	if err := f.doJSON(ctx, targetRespondToAuthChallenge, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacade) ConfirmDevice(ctx context.Context, req ConfirmDeviceRequest) (*ConfirmDeviceResponse, error) {
	var out ConfirmDeviceResponse
	if err := f.doJSON(ctx, targetConfirmDevice, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacade) GlobalSignOut(ctx context.Context, req GlobalSignOutRequest) error {
	return f.doJSON(ctx, targetGlobalSignOut, req, nil)
}

func (f *HTTPFacade) GetUser(ctx context.Context, req GetUserRequest) (*GetUserResponse, error) {
	var out GetUserResponse
	if err := f.doJSON(ctx, targetGetUser, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacade) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return f.doJSON(ctx, targetChangePassword, req, nil)
}

func (f *HTTPFacade) SetUserSettings(ctx context.Context, req SetUserSettingsRequest) error {
	return f.doJSON(ctx, targetSetUserSettings, req, nil)
}

func (f *HTTPFacade) DeleteUser(ctx context.Context, req DeleteUserRequest) error {
	return f.doJSON(ctx, targetDeleteUser, req, nil)
}

func (f *HTTPFacade) UpdateUserAttributes(ctx context.Context, req UpdateUserAttributesRequest) error {
	return f.doJSON(ctx, targetUpdateUserAttributes, req, nil)
}

func (f *HTTPFacade) DeleteUserAttributes(ctx context.Context, req DeleteUserAttributesRequest) error {
	return f.doJSON(ctx, targetDeleteUserAttributes, req, nil)
}

func (f *HTTPFacade) ConfirmSignUp(ctx context.Context, req ConfirmSignUpRequest) error {
	return f.doJSON(ctx, targetConfirmSignUp, req, nil)
}

func (f *HTTPFacade) ResendConfirmationCode(ctx context.Context, req ResendConfirmationCodeRequest) error {
	return f.doJSON(ctx, targetResendConfirmationCode, req, nil)
}

func (f *HTTPFacade) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	var out ForgotPasswordResponse
	if err := f.doJSON(ctx, targetForgotPassword, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacade) ConfirmForgotPassword(ctx context.Context, req ConfirmForgotPasswordRequest) error {
	return f.doJSON(ctx, targetConfirmForgotPassword, req, nil)
}

func (f *HTTPFacade) GetUserAttributeVerificationCode(ctx context.Context, req GetUserAttributeVerificationCodeRequest) (*GetUserAttributeVerificationCodeResponse, error) {
	var out GetUserAttributeVerificationCodeResponse
	if err := f.doJSON(ctx, targetGetUserAttributeVerificationCode, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacade) VerifyUserAttribute(ctx context.Context, req VerifyUserAttributeRequest) error {
	return f.doJSON(ctx, targetVerifyUserAttribute, req, nil)
}

func (f *HTTPFacade) GetDevice(ctx context.Context, req GetDeviceRequest) (*GetDeviceResponse, error) {
	var out GetDeviceResponse
	if err := f.doJSON(ctx, targetGetDevice, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacade) ForgetDevice(ctx context.Context, req ForgetDeviceRequest) error {
	return f.doJSON(ctx, targetForgetDevice, req, nil)
}

func (f *HTTPFacade) UpdateDeviceStatus(ctx context.Context, req UpdateDeviceStatusRequest) error {
	return f.doJSON(ctx, targetUpdateDeviceStatus, req, nil)
}

func (f *HTTPFacade) ListDevices(ctx context.Context, req ListDevicesRequest) (*ListDevicesResponse, error) {
	var out ListDevicesResponse
	if err := f.doJSON(ctx, targetListDevices, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ Facade = (*HTTPFacade)(nil)
