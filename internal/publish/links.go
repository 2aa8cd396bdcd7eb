package publish

import (
	"fmt"

	"github.com/realflats/relay/internal/deeplink"
	"github.com/realflats/relay/internal/model"
)

// Action token verbs embedded in controls. The transport echoes the token
// back verbatim; the command surface splits on ActionSep and dispatches.
const (
	ActionClose        = "close"
	ActionPickSession  = "pick"
	ActionLivenessKeep = "keep"
	ActionLivenessDrop = "drop"

	ActionSep = "|"
)

// LinkBuilder turns capability grants into bot deep-link URLs.
type LinkBuilder struct {
	// BotUsername is the bot the links open, without the leading @.
	BotUsername string
}

// StartURL wraps an encoded payload in a bot start link.
func (b LinkBuilder) StartURL(payload string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", b.BotUsername, payload)
}

// OfferLink returns a link granting offer-mode for the request.
func (b LinkBuilder) OfferLink(requestID string) (string, error) {
	payload, err := deeplink.Encode(model.Grant{Mode: model.ModeOffer, RequestID: requestID})
	if err != nil {
		return "", err
	}
	return b.StartURL(payload), nil
}

// ReplyLink returns a link granting a channel back to counterpart for the
// request.
func (b LinkBuilder) ReplyLink(requestID, counterpartID string) (string, error) {
	payload, err := deeplink.Encode(model.Grant{
		Mode:          model.ModeReply,
		RequestID:     requestID,
		CounterpartID: counterpartID,
	})
	if err != nil {
		return "", err
	}
	return b.StartURL(payload), nil
}

// ViewLink returns a read-only link for the request.
func (b LinkBuilder) ViewLink(requestID string) (string, error) {
	payload, err := deeplink.Encode(model.Grant{Mode: model.ModeView, RequestID: requestID})
	if err != nil {
		return "", err
	}
	return b.StartURL(payload), nil
}
