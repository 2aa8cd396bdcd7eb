// Package deeplink encodes capability grants into opaque start payloads.
//
// A payload is what rides in the ?start= parameter of a bot link. The codec
// recovers structured intent only; it never authorizes. Anything not produced
// by Encode decodes to ErrParse, which callers surface as "link expired or
// invalid".
package deeplink

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/realflats/relay/internal/model"
)

// ErrParse indicates a payload that was not produced by Encode.
var ErrParse = errors.New("deeplink: malformed payload")

// sep joins payload fields before encoding. It cannot appear in request ids
// and is rejected inside counterpart ids on encode.
const sep = ":"

// Encode serializes a grant into an opaque URL-safe payload.
// decode(encode(g)) == g for every grant Encode accepts.
func Encode(g model.Grant) (string, error) {
	if !g.Mode.IsValid() {
		return "", fmt.Errorf("deeplink: invalid mode %q", g.Mode)
	}
	if !model.IsRequestID(g.RequestID) {
		return "", fmt.Errorf("deeplink: invalid request id %q", g.RequestID)
	}

	parts := []string{string(g.Mode), g.RequestID}
	switch g.Mode {
	case model.ModeReply:
		if g.CounterpartID == "" {
			return "", errors.New("deeplink: reply grant requires a counterpart")
		}
		if strings.Contains(g.CounterpartID, sep) {
			return "", fmt.Errorf("deeplink: counterpart id %q contains %q", g.CounterpartID, sep)
		}
		parts = append(parts, g.CounterpartID)
	default:
		if g.CounterpartID != "" {
			return "", fmt.Errorf("deeplink: %s grant must not carry a counterpart", g.Mode)
		}
	}

	return base64.RawURLEncoding.EncodeToString([]byte(strings.Join(parts, sep))), nil
}

// Decode recovers the grant from an opaque payload. Unknown or malformed
// payloads return ErrParse, never a panic.
func Decode(payload string) (model.Grant, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return model.Grant{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	parts := strings.Split(string(raw), sep)
	if len(parts) < 2 || len(parts) > 3 {
		return model.Grant{}, fmt.Errorf("%w: %d fields", ErrParse, len(parts))
	}

	g := model.Grant{Mode: model.Mode(parts[0]), RequestID: parts[1]}
	if !g.Mode.IsValid() {
		return model.Grant{}, fmt.Errorf("%w: unknown mode %q", ErrParse, parts[0])
	}
	if !model.IsRequestID(g.RequestID) {
		return model.Grant{}, fmt.Errorf("%w: bad request id %q", ErrParse, parts[1])
	}

	switch g.Mode {
	case model.ModeReply:
		if len(parts) != 3 || parts[2] == "" {
			return model.Grant{}, fmt.Errorf("%w: reply grant missing counterpart", ErrParse)
		}
		g.CounterpartID = parts[2]
	default:
		if len(parts) == 3 {
			return model.Grant{}, fmt.Errorf("%w: unexpected counterpart on %s grant", ErrParse, g.Mode)
		}
	}

	return g, nil
}
