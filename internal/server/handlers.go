package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"cognitosrp/internal/authflow"
	"cognitosrp/internal/cogerr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a cogerr-typed error onto an HTTP status, never
// leaking internal detail beyond the taxonomy's message.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, cogerr.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, cogerr.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, cogerr.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, cogerr.ErrServiceError), errors.Is(err, cogerr.ErrTransport):
		status = http.StatusBadGateway
	case errors.Is(err, cogerr.ErrCryptoFailure), errors.Is(err, cogerr.ErrCorruption):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// resultJSON flattens a Result to the DTO the demo's clients consume:
// a "kind" discriminator plus whichever payload matches it.
func resultJSON(r *authflow.Result) map[string]any {
	body := map[string]any{}
	switch r.Kind {
	case authflow.Authenticated:
		body["kind"] = "AUTHENTICATED"
		body["idToken"] = string(r.Session.IDToken)
		body["accessToken"] = string(r.Session.AccessToken)
		body["refreshToken"] = string(r.Session.RefreshToken)
		if r.Device != nil {
			device := map[string]any{"confirmed": r.Device.Confirmed, "userConfirmationNecessary": r.Device.UserConfirmationNecessary}
			if r.Device.Err != nil {
				device["error"] = r.Device.Err.Error()
			}
			body["device"] = device
		}
	case authflow.NewPasswordRequired:
		body["kind"] = "NEW_PASSWORD_REQUIRED"
		body["userAttributes"] = r.NewPassword.UserAttributes
		body["requiredAttributes"] = r.NewPassword.RequiredAttributes
	case authflow.MFARequired:
		body["kind"] = "MFA_REQUIRED"
	case authflow.CustomChallenge:
		body["kind"] = "CUSTOM_CHALLENGE"
		body["challengeParameters"] = r.CustomChallenge.ChallengeParameters
	}
	return body
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.InvalidArgument("malformed request body"))
		return
	}
	if !required(req.Username) {
		writeError(w, cogerr.InvalidArgument("username is required"))
		return
	}

	user, err := s.registry.get(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := user.AuthenticateUser(r.Context(), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultJSON(result))
}

type newPasswordRequest struct {
	Username           string            `json:"username"`
	NewPassword        string            `json:"newPassword"`
	RequiredAttributes map[string]string `json:"requiredAttributes"`
}

func (s *Server) handleCompleteNewPassword(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.InvalidArgument("malformed request body"))
		return
	}

	user, err := s.registry.get(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := user.CompleteNewPasswordChallenge(r.Context(), req.NewPassword, req.RequiredAttributes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultJSON(result))
}

type mfaRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

func (s *Server) handleSendMFACode(w http.ResponseWriter, r *http.Request) {
	var req mfaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.InvalidArgument("malformed request body"))
		return
	}

	user, err := s.registry.get(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := user.SendMFACode(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultJSON(result))
}

type customChallengeRequest struct {
	Username string `json:"username"`
	Answer   string `json:"answer"`
}

func (s *Server) handleSendCustomChallengeAnswer(w http.ResponseWriter, r *http.Request) {
	var req customChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.InvalidArgument("malformed request body"))
		return
	}

	user, err := s.registry.get(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := user.SendCustomChallengeAnswer(r.Context(), req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultJSON(result))
}

type refreshRequest struct {
	Username     string `json:"username"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.InvalidArgument("malformed request body"))
		return
	}

	user, err := s.registry.get(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := user.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultJSON(result))
}

type logoutRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cogerr.InvalidArgument("malformed request body"))
		return
	}

	user, err := s.registry.get(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	user.SignOut()
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}
