package publish

import (
	"fmt"
	"strings"

	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/session"
)

// pickAction builds the action token for selecting a candidate session.
func pickAction(key model.SessionKey) string {
	return strings.Join([]string{ActionPickSession, key.RequestID, key.AuthorID, key.AgentID}, ActionSep)
}

// Post renders the public board posting for a request, with its action
// controls. The poster stays anonymous: only the request id and attributes
// appear.
func Post(req *model.Request, links LinkBuilder) (Message, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "REQUEST #%s\n", req.ID)
	if req.Status == model.StatusClosed {
		b.WriteString("STATUS: CLOSED\n")
	}
	for _, attr := range req.Attrs {
		label := attr.Label
		if label == "" {
			label = attr.Key
		}
		value := attr.Value
		if value == "" {
			value = "—"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, value)
	}

	msg := Message{Text: strings.TrimRight(b.String(), "\n")}
	if req.Status == model.StatusClosed {
		return msg, nil
	}

	offerURL, err := links.OfferLink(req.ID)
	if err != nil {
		return Message{}, err
	}
	msg.Text += "\n\nTap the button to send options to the author (privately)."
	msg.Controls = []Control{
		{Label: "Send an option", URL: offerURL},
		{Label: "Close request", Action: ActionClose + ActionSep + req.ID},
	}
	return msg, nil
}

// OfferPrompt is sent to an agent entering offer-mode.
func OfferPrompt(requestID string) Message {
	return Message{Text: fmt.Sprintf(
		"Send your options for #%s. Several messages in a row are fine; send \"done\" when finished.",
		requestID)}
}

// OfferReceived wraps an agent's offer for delivery to the request author,
// together with a reply capability.
func OfferReceived(key model.SessionKey, text string, links LinkBuilder) (Message, error) {
	replyURL, err := links.ReplyLink(key.RequestID, key.AgentID)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Text: fmt.Sprintf("Option for #%s:\n%s", key.RequestID, text),
		Controls: []Control{
			{Label: "Open chat", URL: replyURL},
		},
	}, nil
}

// Relayed wraps a message flowing through an established session for
// delivery to the counterpart, tagged with the sender's role.
func Relayed(key model.SessionKey, from model.Role, text string) Message {
	who := "author"
	if from == model.RoleAgent {
		who = "agent"
	}
	return Message{Text: fmt.Sprintf("#%s, from the %s:\n%s", key.RequestID, who, text)}
}

// OfferBroadcast announces on the board that a request received an offer.
// Only posted when the broadcast-offers policy is on; the agent stays
// anonymous.
func OfferBroadcast(requestID string) Message {
	return Message{Text: fmt.Sprintf("An option was sent to the author of #%s.", requestID)}
}

// Disambiguation prompts a sender holding several live sessions to pick the
// one their message should travel through.
func Disambiguation(userID string, candidates []model.SessionKey) Message {
	var b strings.Builder
	b.WriteString("You have several open chats. Pick where this message goes:")
	msg := Message{}
	for _, key := range candidates {
		counterpart, _ := key.Counterpart(userID)
		label := fmt.Sprintf("#%s · %s", key.RequestID, counterpart)
		msg.Controls = append(msg.Controls, Control{Label: label, Action: pickAction(key)})
	}
	msg.Text = b.String()
	return msg
}

// LivenessPrompt asks the author whether an aged request is still wanted.
func LivenessPrompt(req *model.Request) Message {
	return Message{
		Text: fmt.Sprintf("Is request #%s still relevant?", req.ID),
		Controls: []Control{
			{Label: "Yes, keep it", Action: ActionLivenessKeep + ActionSep + req.ID},
			{Label: "No, close it", Action: ActionLivenessDrop + ActionSep + req.ID},
		},
	}
}

// LivenessExtended confirms a "yes" answer to the author.
func LivenessExtended(requestID string) Message {
	return Message{Text: fmt.Sprintf("Request #%s stays open.", requestID)}
}

// Closed notifies the author their request is closed.
func Closed(req *model.Request) Message {
	return Message{Text: fmt.Sprintf("Request #%s is closed.", req.ID)}
}

// SessionEnded notifies a session endpoint the channel is gone.
func SessionEnded(key model.SessionKey, reason session.EndReason) Message {
	why := "closed"
	switch reason {
	case session.EndReasonExpired:
		why = "expired after inactivity"
	case session.EndReasonRequestClosed:
		why = "closed because the request closed"
	}
	return Message{Text: fmt.Sprintf("Chat for #%s %s.", key.RequestID, why)}
}

// ReplyOpened confirms a reply-link open to the opener.
func ReplyOpened(requestID string) Message {
	return Message{Text: fmt.Sprintf("You are now chatting about #%s. Messages are relayed anonymously.", requestID)}
}

// PublicationFailed warns the author their request could not be posted.
func PublicationFailed(requestID string) Message {
	return Message{Text: fmt.Sprintf(
		"Request #%s was created but could not be posted to the board. It stays active; ask an operator to repost it.",
		requestID)}
}

// OfferModeEnded confirms the agent left offer-mode.
func OfferModeEnded() Message {
	return Message{Text: "Done. Your options were forwarded."}
}
