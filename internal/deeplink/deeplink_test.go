package deeplink

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/realflats/relay/internal/model"
)

func TestRoundTrip(t *testing.T) {
	grants := []model.Grant{
		{Mode: model.ModeOffer, RequestID: "R001"},
		{Mode: model.ModeView, RequestID: "R042"},
		{Mode: model.ModeReply, RequestID: "R001", CounterpartID: "agent-77"},
		{Mode: model.ModeReply, RequestID: "R1000", CounterpartID: "u_9"},
	}

	for _, g := range grants {
		payload, err := Encode(g)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", g, err)
		}
		got, err := Decode(payload)
		if err != nil {
			t.Fatalf("Decode(%q): %v", payload, err)
		}
		if got != g {
			t.Errorf("round trip changed grant: got %+v, want %+v", got, g)
		}
	}
}

func TestEncode_RejectsInvalidGrants(t *testing.T) {
	bad := []model.Grant{
		{Mode: "admin", RequestID: "R001"},
		{Mode: model.ModeOffer, RequestID: "nope"},
		{Mode: model.ModeReply, RequestID: "R001"},                            // missing counterpart
		{Mode: model.ModeReply, RequestID: "R001", CounterpartID: "a:b"},      // separator in id
		{Mode: model.ModeOffer, RequestID: "R001", CounterpartID: "agent-1"},  // counterpart not allowed
	}
	for _, g := range bad {
		if _, err := Encode(g); err == nil {
			t.Errorf("Encode(%+v) succeeded, want error", g)
		}
	}
}

func TestDecode_MalformedPayloads(t *testing.T) {
	b64 := func(s string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(s))
	}

	payloads := []string{
		"",
		"not base64 !!!",
		b64("justone"),
		b64("offer:R001:extra"),
		b64("view:R001:extra"),
		b64("reply:R001"),
		b64("reply:R001:"),
		b64("offer:badid"),
		b64("shout:R001"),
		b64("a:b:c:d"),
	}

	for _, p := range payloads {
		_, err := Decode(p)
		if err == nil {
			t.Errorf("Decode(%q) succeeded, want ErrParse", p)
			continue
		}
		if !errors.Is(err, ErrParse) {
			t.Errorf("Decode(%q) error %v is not ErrParse", p, err)
		}
	}
}

func TestDecode_NeverPanics(t *testing.T) {
	// A sampling of hostile payloads; Decode must return an error, not panic.
	for _, p := range []string{"\x00\xff", "====", "?start=reply_R001", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Decode(%q) panicked: %v", p, r)
				}
			}()
			_, _ = Decode(p)
		}()
	}
}
