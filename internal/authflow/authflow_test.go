package authflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"cognitosrp/internal/cognitorpc"
	"cognitosrp/internal/session"
	"cognitosrp/internal/tokenstore"
)

// makeJWT builds a syntactically valid three-segment JWT carrying only
// the exp claim session.Token.ExpiresAt reads.
func makeJWT(exp time.Time) string {
	payload, _ := json.Marshal(struct {
		Exp int64 `json:"exp"`
	}{Exp: exp.Unix()})
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return "header." + encoded + ".signature"
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestPool(t *testing.T, facade cognitorpc.Facade) *Pool {
	t.Helper()
	pool, err := NewPool("client-1", "us-east-1_example", 7, facade, tokenstore.New(tokenstore.NewMemoryStore()))
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	pool.Clock = fixedClock(time.Date(2024, time.April, 9, 7, 4, 32, 0, time.UTC))
	return pool
}

func terminalAuthResult(prefix string) *cognitorpc.AuthenticationResult {
	return &cognitorpc.AuthenticationResult{
		IDToken:      prefix + "-id",
		AccessToken:  prefix + "-access",
		RefreshToken: prefix + "-refresh",
	}
}

func TestAuthenticateUserHappyPath(t *testing.T) {
	facade := &fakeFacade{
		initiateAuth: func(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error) {
			if req.AuthFlow != "USER_SRP_AUTH" {
				t.Errorf("AuthFlow = %q, want USER_SRP_AUTH", req.AuthFlow)
			}
			return &cognitorpc.InitiateAuthResponse{
				ChallengeName:       "PASSWORD_VERIFIER",
				Session:             "srv-session-1",
				ChallengeParameters: srpChallengeParams("alice"),
			}, nil
		},
		respond: func(ctx context.Context, req cognitorpc.RespondToAuthChallengeRequest) (*cognitorpc.RespondToAuthChallengeResponse, error) {
			if req.ChallengeName != "PASSWORD_VERIFIER" {
				t.Fatalf("unexpected challenge %q", req.ChallengeName)
			}
			return &cognitorpc.RespondToAuthChallengeResponse{
				AuthenticationResult: terminalAuthResult("login1"),
			}, nil
		},
	}

	pool := newTestPool(t, facade)
	user, err := NewUser(pool, "alice")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	result, err := user.AuthenticateUser(context.Background(), "hunter2")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if result.Kind != Authenticated {
		t.Fatalf("result.Kind = %v, want Authenticated", result.Kind)
	}
	if string(result.Session.AccessToken) != "login1-access" {
		t.Errorf("AccessToken = %q, want login1-access", result.Session.AccessToken)
	}

	cached, err := pool.Store.LoadSession(pool.ClientID, "alice")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if cached == nil || string(cached.AccessToken) != "login1-access" {
		t.Errorf("CacheTokens did not persist the terminal session: %+v", cached)
	}
}

func TestAuthenticateUserNewPasswordRequired(t *testing.T) {
	facade := &fakeFacade{
		initiateAuth: func(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error) {
			return &cognitorpc.InitiateAuthResponse{
				ChallengeName:       "PASSWORD_VERIFIER",
				Session:             "srv-session-1",
				ChallengeParameters: srpChallengeParams("alice"),
			}, nil
		},
		respond: func(ctx context.Context, req cognitorpc.RespondToAuthChallengeRequest) (*cognitorpc.RespondToAuthChallengeResponse, error) {
			switch req.ChallengeName {
			case "PASSWORD_VERIFIER":
				return &cognitorpc.RespondToAuthChallengeResponse{
					ChallengeName: "NEW_PASSWORD_REQUIRED",
					Session:       "srv-session-2",
					ChallengeParameters: cognitorpc.ChallengeParameters{
						"userAttributes":     `{"email":"alice@example.com"}`,
						"requiredAttributes": `["userAttributes.name"]`,
					},
				}, nil
			case "NEW_PASSWORD_REQUIRED":
				if req.ChallengeResponses["NEW_PASSWORD"] != "N3wPassw0rd!" {
					t.Errorf("NEW_PASSWORD = %q, want N3wPassw0rd!", req.ChallengeResponses["NEW_PASSWORD"])
				}
				if req.ChallengeResponses["userAttributes.name"] != "Alice" {
					t.Errorf("userAttributes.name = %q, want Alice", req.ChallengeResponses["userAttributes.name"])
				}
				return &cognitorpc.RespondToAuthChallengeResponse{
					AuthenticationResult: terminalAuthResult("login2"),
				}, nil
			default:
				t.Fatalf("unexpected challenge %q", req.ChallengeName)
				return nil, nil
			}
		},
	}

	pool := newTestPool(t, facade)
	user, err := NewUser(pool, "alice")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	first, err := user.AuthenticateUser(context.Background(), "hunter2")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if first.Kind != NewPasswordRequired {
		t.Fatalf("first.Kind = %v, want NewPasswordRequired", first.Kind)
	}
	if first.NewPassword.UserAttributes["email"] != "alice@example.com" {
		t.Errorf("UserAttributes[email] = %q, want alice@example.com", first.NewPassword.UserAttributes["email"])
	}
	if len(first.NewPassword.RequiredAttributes) != 1 || first.NewPassword.RequiredAttributes[0] != "name" {
		t.Errorf("RequiredAttributes = %v, want [name]", first.NewPassword.RequiredAttributes)
	}

	second, err := user.CompleteNewPasswordChallenge(context.Background(), "N3wPassw0rd!", map[string]string{"name": "Alice"})
	if err != nil {
		t.Fatalf("CompleteNewPasswordChallenge: %v", err)
	}
	if second.Kind != Authenticated {
		t.Fatalf("second.Kind = %v, want Authenticated", second.Kind)
	}
}

func TestAuthenticateUserSMSMFA(t *testing.T) {
	facade := &fakeFacade{
		initiateAuth: func(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error) {
			return &cognitorpc.InitiateAuthResponse{
				ChallengeName:       "PASSWORD_VERIFIER",
				Session:             "srv-session-1",
				ChallengeParameters: srpChallengeParams("bob"),
			}, nil
		},
		respond: func(ctx context.Context, req cognitorpc.RespondToAuthChallengeRequest) (*cognitorpc.RespondToAuthChallengeResponse, error) {
			switch req.ChallengeName {
			case "PASSWORD_VERIFIER":
				return &cognitorpc.RespondToAuthChallengeResponse{ChallengeName: "SMS_MFA", Session: "srv-session-2"}, nil
			case "SMS_MFA":
				if req.ChallengeResponses["SMS_MFA_CODE"] != "123456" {
					t.Errorf("SMS_MFA_CODE = %q, want 123456", req.ChallengeResponses["SMS_MFA_CODE"])
				}
				return &cognitorpc.RespondToAuthChallengeResponse{AuthenticationResult: terminalAuthResult("login3")}, nil
			default:
				t.Fatalf("unexpected challenge %q", req.ChallengeName)
				return nil, nil
			}
		},
	}

	pool := newTestPool(t, facade)
	user, err := NewUser(pool, "bob")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	first, err := user.AuthenticateUser(context.Background(), "hunter2")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if first.Kind != MFARequired {
		t.Fatalf("first.Kind = %v, want MFARequired", first.Kind)
	}

	second, err := user.SendMFACode(context.Background(), "123456")
	if err != nil {
		t.Fatalf("SendMFACode: %v", err)
	}
	if second.Kind != Authenticated {
		t.Fatalf("second.Kind = %v, want Authenticated", second.Kind)
	}
}

// TestDeviceBindingAndSubsequentLogin exercises the full device
// ceremony (spec.md §4.6.2) and then a second login in which the server
// answers the password verifier with DEVICE_SRP_AUTH, so the device-SRP
// sub-handshake completes the login.
func TestDeviceBindingAndSubsequentLogin(t *testing.T) {
	facade := &fakeFacade{
		initiateAuth: func(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error) {
			return &cognitorpc.InitiateAuthResponse{
				ChallengeName:       "PASSWORD_VERIFIER",
				Session:             "srv-session-1",
				ChallengeParameters: srpChallengeParams("carol"),
			}, nil
		},
		respond: func(ctx context.Context, req cognitorpc.RespondToAuthChallengeRequest) (*cognitorpc.RespondToAuthChallengeResponse, error) {
			switch req.ChallengeName {
			case "PASSWORD_VERIFIER":
				if _, boundAlready := req.ChallengeResponses["DEVICE_KEY"]; boundAlready {
					return &cognitorpc.RespondToAuthChallengeResponse{
						ChallengeName:       "DEVICE_SRP_AUTH",
						Session:             "srv-session-device-1",
						ChallengeParameters: cognitorpc.ChallengeParameters{},
					}, nil
				}
				ar := terminalAuthResult("login4")
				ar.NewDeviceMetadata = &cognitorpc.NewDeviceMetadata{
					DeviceGroupKey: "device-group-1",
					DeviceKey:      "device-key-1",
				}
				return &cognitorpc.RespondToAuthChallengeResponse{AuthenticationResult: ar}, nil
			case "DEVICE_SRP_AUTH":
				return &cognitorpc.RespondToAuthChallengeResponse{
					ChallengeName:       "DEVICE_PASSWORD_VERIFIER",
					Session:             "srv-session-device-2",
					ChallengeParameters: srpChallengeParams("carol"),
				}, nil
			case "DEVICE_PASSWORD_VERIFIER":
				return &cognitorpc.RespondToAuthChallengeResponse{AuthenticationResult: terminalAuthResult("login5")}, nil
			default:
				t.Fatalf("unexpected challenge %q", req.ChallengeName)
				return nil, nil
			}
		},
		confirmDevice: func(ctx context.Context, req cognitorpc.ConfirmDeviceRequest) (*cognitorpc.ConfirmDeviceResponse, error) {
			if req.DeviceKey != "device-key-1" {
				t.Errorf("ConfirmDevice DeviceKey = %q, want device-key-1", req.DeviceKey)
			}
			return &cognitorpc.ConfirmDeviceResponse{UserConfirmationNecessary: false}, nil
		},
	}

	pool := newTestPool(t, facade)

	firstLoginUser, err := NewUser(pool, "carol")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	first, err := firstLoginUser.AuthenticateUser(context.Background(), "hunter2")
	if err != nil {
		t.Fatalf("first AuthenticateUser: %v", err)
	}
	if first.Kind != Authenticated {
		t.Fatalf("first.Kind = %v, want Authenticated", first.Kind)
	}
	if first.Device == nil || !first.Device.Confirmed {
		t.Fatalf("first.Device = %+v, want Confirmed", first.Device)
	}

	material, err := pool.Store.LoadDeviceMaterial(pool.ClientID, "carol")
	if err != nil {
		t.Fatalf("LoadDeviceMaterial: %v", err)
	}
	if material == nil || material.DeviceKey != "device-key-1" {
		t.Fatalf("device material not persisted: %+v", material)
	}

	// Simulate a brand-new process: a fresh User loads the persisted
	// device material lazily on first use.
	secondLoginUser, err := NewUser(pool, "carol")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	second, err := secondLoginUser.AuthenticateUser(context.Background(), "hunter2")
	if err != nil {
		t.Fatalf("second AuthenticateUser: %v", err)
	}
	if second.Kind != Authenticated {
		t.Fatalf("second.Kind = %v, want Authenticated", second.Kind)
	}
	if string(second.Session.AccessToken) != "login5-access" {
		t.Errorf("second login AccessToken = %q, want login5-access", second.Session.AccessToken)
	}
}

func TestGetSessionRefreshesExpiredAccessToken(t *testing.T) {
	now := time.Date(2024, time.April, 9, 7, 4, 32, 0, time.UTC)

	facade := &fakeFacade{
		initiateAuth: func(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error) {
			if req.AuthFlow != "REFRESH_TOKEN_AUTH" {
				t.Errorf("AuthFlow = %q, want REFRESH_TOKEN_AUTH", req.AuthFlow)
			}
			if req.AuthParameters["REFRESH_TOKEN"] != "stored-refresh" {
				t.Errorf("REFRESH_TOKEN = %q, want stored-refresh", req.AuthParameters["REFRESH_TOKEN"])
			}
			return &cognitorpc.InitiateAuthResponse{
				AuthenticationResult: &cognitorpc.AuthenticationResult{
					IDToken:     makeJWT(now.Add(time.Hour)),
					AccessToken: makeJWT(now.Add(time.Hour)),
					// RefreshToken omitted deliberately: the prior one
					// must be carried forward (spec.md §4.6.3).
				},
			}, nil
		},
	}

	pool := newTestPool(t, facade)
	pool.Clock = fixedClock(now)

	expired := session.New(session.Result{
		IDToken:      makeJWT(now.Add(-time.Hour)),
		AccessToken:  makeJWT(now.Add(-time.Hour)),
		RefreshToken: "stored-refresh",
	})
	if err := pool.Store.CacheTokens(pool.ClientID, "dave", expired); err != nil {
		t.Fatalf("seeding expired session: %v", err)
	}

	user, err := NewUser(pool, "dave")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	s, err := user.GetSession(context.Background())
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !s.IsValid(now) {
		t.Error("refreshed session should be valid")
	}
	if string(s.RefreshToken) != "stored-refresh" {
		t.Errorf("RefreshToken = %q, want the carried-forward stored-refresh", s.RefreshToken)
	}
}

func TestSelfServiceRequiresAuthentication(t *testing.T) {
	facade := &fakeFacade{}
	pool := newTestPool(t, facade)

	user, err := NewUser(pool, "erin")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	_, err = user.GetUser(context.Background())
	if err == nil {
		t.Fatal("GetUser should fail when no session exists")
	}

	facade.mu.Lock()
	calls := append([]string(nil), facade.calls...)
	facade.mu.Unlock()
	if len(calls) != 0 {
		t.Errorf("facade calls = %v, want none — requireAccessToken must reject before issuing any RPC", calls)
	}
}

func TestAuthenticateUserBusyWhileInFlight(t *testing.T) {
	facade := &fakeFacade{
		initiateAuth: func(ctx context.Context, req cognitorpc.InitiateAuthRequest) (*cognitorpc.InitiateAuthResponse, error) {
			return &cognitorpc.InitiateAuthResponse{
				ChallengeName:       "PASSWORD_VERIFIER",
				Session:             "srv-session-1",
				ChallengeParameters: srpChallengeParams("frank"),
			}, nil
		},
		respond: func(ctx context.Context, req cognitorpc.RespondToAuthChallengeRequest) (*cognitorpc.RespondToAuthChallengeResponse, error) {
			return &cognitorpc.RespondToAuthChallengeResponse{AuthenticationResult: terminalAuthResult("login6")}, nil
		},
	}
	pool := newTestPool(t, facade)
	user, err := NewUser(pool, "frank")
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	if err := user.acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer user.release(nil)

	_, err = user.AuthenticateUser(context.Background(), "hunter2")
	if err == nil {
		t.Fatal("AuthenticateUser should fail Busy while another operation holds the guard")
	}
}
