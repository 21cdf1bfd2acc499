package cognitorpc

import (
	"errors"
	"testing"

	"cognitosrp/internal/cogerr"
)

func TestWireErrorClassify(t *testing.T) {
	cases := []struct {
		wireType string
		want     error
	}{
		{"NotAuthorizedException", cogerr.ErrNotAuthenticated},
		{"UserNotFoundException", cogerr.ErrNotAuthenticated},
		{"UserNotConfirmedException", cogerr.ErrNotAuthenticated},
		{"InvalidParameterException", cogerr.ErrInvalidArgument},
		{"InvalidPasswordException", cogerr.ErrInvalidArgument},
		{"CodeMismatchException", cogerr.ErrInvalidArgument},
		{"ExpiredCodeException", cogerr.ErrInvalidArgument},
		{"UsernameExistsException", cogerr.ErrInvalidArgument},
		{"AliasExistsException", cogerr.ErrInvalidArgument},
		{"TooManyRequestsException", cogerr.ErrBusy},
		{"LimitExceededException", cogerr.ErrBusy},
		{"ResourceNotFoundException", cogerr.ErrInvalidArgument},
		{"DeviceNotFoundException", cogerr.ErrInvalidArgument},
		{"SomeUnmappedServiceException", cogerr.ErrServiceError},
	}

	for _, c := range cases {
		we := wireError{Type: c.wireType, Message: "boom"}
		got := we.classify()
		if !errors.Is(got, c.want) {
			t.Errorf("classify(%s) = %v, want wrapping %v", c.wireType, got, c.want)
		}
	}
}
