package authflow

import "cognitosrp/internal/session"

// Kind tags the variant a Result holds (spec.md §7: "Implementations MAY
// represent these as ordinary variants of a sum-type result rather than
// error-channel values").
type Kind int

const (
	// Authenticated means the handshake reached a terminal state;
	// Result.Session is populated.
	Authenticated Kind = iota
	// NewPasswordRequired means the server demands a password reset
	// before continuing (spec.md §4.6, NEW_PASSWORD_REQUIRED).
	NewPasswordRequired
	// MFARequired means an SMS code must be supplied (SMS_MFA).
	MFARequired
	// CustomChallenge means a CUSTOM_CHALLENGE answer must be supplied.
	CustomChallenge
)

// NewPasswordChallenge carries the NEW_PASSWORD_REQUIRED payload: the
// user's current attribute values and the list of attribute names
// (with the server's "userAttributes." prefix already stripped, spec.md
// §4.6) the caller must supply alongside the new password.
type NewPasswordChallenge struct {
	UserAttributes     map[string]string
	RequiredAttributes []string
}

// CustomChallengeData carries the server-supplied CUSTOM_CHALLENGE
// parameters verbatim, for the caller to interpret.
type CustomChallengeData struct {
	ChallengeParameters map[string]string
}

// DeviceConfirmation reports the outcome of the device-confirmation
// ceremony (spec.md §4.6.2), run automatically whenever a terminal
// AuthenticationResult carries NewDeviceMetadata. It never blocks the
// session: Result.Session is already populated regardless of its
// content.
type DeviceConfirmation struct {
	Confirmed                 bool
	UserConfirmationNecessary bool
	Err                       error
}

// Result is the tagged outcome of every state-machine-advancing
// operation (initiate, respond, refresh). At most one of Session,
// NewPassword and CustomChallenge is populated, matching Kind;
// MFARequired carries none of them.
type Result struct {
	Kind Kind

	Session *session.Session

	NewPassword    *NewPasswordChallenge
	CustomChallenge *CustomChallengeData

	// Device is set only alongside Authenticated, and only when the
	// server offered NewDeviceMetadata on this login.
	Device *DeviceConfirmation
}
