package server

import "strings"

// required mirrors internal/middleware/validation.go's ValidateRequired:
// a field is present only once whitespace is stripped away.
func required(value string) bool {
	return strings.TrimSpace(value) != ""
}
