package srp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// FormatTimestamp renders t (already UTC) in the fixed, wire-visible
// layout the server expects for PASSWORD_CLAIM_SIGNATURE's TIMESTAMP
// parameter (spec.md §4.3, §6): English weekday/month names, UTC, and a
// day-of-month that is NOT zero-padded. Go's reference layout digit "2"
// is the non-zero-padded day verb, which is exactly what's needed here —
// "Mon Jan 2 15:04:05 UTC 2006" renders 2024-04-09T07:04:32Z as
// "Tue Apr 9 07:04:32 UTC 2024".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("Mon Jan 2 15:04:05 UTC 2006")
}

// BuildProof assembles the base64-encoded HMAC-SHA256 PASSWORD_CLAIM_SIGNATURE
// proof (C3, spec.md §4.3): HMAC over utf8(realmID) || utf8(identifier) ||
// secretBlock || utf8(timestamp), keyed by the 16-byte HKDF session key.
func BuildProof(hkdfKey []byte, realmID, identifier string, secretBlock []byte, timestamp string) string {
	mac := hmac.New(sha256.New, hkdfKey)
	mac.Write([]byte(realmID))
	mac.Write([]byte(identifier))
	mac.Write(secretBlock)
	mac.Write([]byte(timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
