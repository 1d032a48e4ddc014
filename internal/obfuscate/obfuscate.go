// Package obfuscate implements the reversible at-rest encoding applied to
// persisted payloads.
//
// This is obfuscation, NOT encryption. The transform (canonical JSON,
// base64, versioned prefix) provides no confidentiality and is not a
// security boundary; it only keeps casual inspection of the durable store
// from exposing payloads in cleartext. Production deployments that need
// at-rest confidentiality must replace this codec with an authenticated
// encryption scheme — do not assume these tokens protect anything.
package obfuscate

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Token format: "p1." + base64(JSON). Tokens without the prefix are
// accepted as the pre-versioned legacy form (bare base64 of JSON).
const tokenPrefix = "p1."

// ErrMalformedToken is the sentinel wrapped by every [DecodeError].
var ErrMalformedToken = errors.New("malformed obfuscated token")

// DecodeError reports why a token could not be reversed. Callers must
// treat any decode failure identically to "no value present".
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("obfuscate: %s: %s", ErrMalformedToken, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrMalformedToken }

// Encode serializes v to canonical JSON and wraps it in an opaque token.
// It fails only when v is not JSON-serializable.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("obfuscate: encode: %w", err)
	}
	return tokenPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode into out. It returns a [*DecodeError] on any
// malformed input and never panics; Decode(Encode(v)) == v for every value
// Encode accepts.
func Decode(token string, out any) error {
	if token == "" {
		return &DecodeError{Reason: "empty token"}
	}

	payload := token
	if len(token) >= len(tokenPrefix) && token[:len(tokenPrefix)] == tokenPrefix {
		payload = token[len(tokenPrefix):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return &DecodeError{Reason: "invalid base64"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Reason: "invalid payload"}
	}
	return nil
}
