// Package credentials validates that configured processor keys match the
// operating mode before they are persisted or used.
package credentials

import (
	"fmt"
	"strings"
)

// Operating modes for the gateway.
const (
	ModeTest = "test"
	ModeLive = "live"
)

// FieldError attaches a validation failure to a specific configuration
// field, so an operator can fix exactly the wrong key.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateKeys checks the public and secret key against the configured mode.
// Each key is checked independently; the returned slice holds one error per
// offending field and is empty when the configuration is consistent.
func ValidateKeys(mode, publicKey, secretKey string) []FieldError {
	var errs []FieldError
	if msg := checkKeyEnv(mode, publicKey); msg != "" {
		errs = append(errs, FieldError{Field: "public_key", Message: msg})
	}
	if msg := checkKeyEnv(mode, secretKey); msg != "" {
		errs = append(errs, FieldError{Field: "secret_key", Message: msg})
	}
	return errs
}

// checkKeyEnv applies the environment rule to one key. Keys embed their
// environment as the second underscore-delimited segment, e.g.
// "pkapi_cert_xyz" or "skapi_prod_xyz". Mode test forbids prod keys and
// mode live forbids cert keys; any other tag is accepted so new
// environments don't break existing configurations.
func checkKeyEnv(mode, key string) string {
	env := KeyEnvironment(key)
	if (mode == ModeTest && env == "prod") || (mode == ModeLive && env == "cert") {
		return fmt.Sprintf("key environment %q does not match the mode (%s)", env, mode)
	}
	return ""
}

// KeyEnvironment extracts the environment tag embedded in a key. Returns ""
// when the key has no second segment.
func KeyEnvironment(key string) string {
	parts := strings.Split(key, "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
