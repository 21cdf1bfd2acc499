package cognitorpc

import "cognitosrp/internal/cogerr"

// wireError is the JSON error envelope the identity service returns on
// non-2xx responses: a "__type" exception name plus a human message,
// grounded on mitid's status-code branching in doJSON callers (client.go)
// generalized to the remote service's exception-name dictionary (spec.md
// §4.7, §9 bug 4 — exceptions currently surface as opaque strings).
type wireError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// classify maps a wire exception name to the cogerr sentinel the core
// switches on (spec.md §4.7: "Map every named exception onto the
// taxonomy; never leak a raw HTTP status to the core").
func (w wireError) classify() error {
	switch w.Type {
	case "NotAuthorizedException", "UserNotFoundException", "UserNotConfirmedException":
		return cogerr.NotAuthenticated(w.Message)
	case "InvalidParameterException", "InvalidPasswordException", "CodeMismatchException",
		"ExpiredCodeException", "UsernameExistsException", "AliasExistsException":
		return cogerr.InvalidArgument(w.Message)
	case "TooManyRequestsException", "LimitExceededException":
		return cogerr.New(cogerr.ErrBusy, w.Message)
	case "ResourceNotFoundException", "DeviceNotFoundException":
		return cogerr.New(cogerr.ErrInvalidArgument, w.Message)
	default:
		return cogerr.Service(w.Type, w.Message)
	}
}
