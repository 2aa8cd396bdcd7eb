// Package publish renders requests and engine prompts into outbound
// messages: the public board post, relay envelopes, disambiguation and
// liveness prompts, and the deep-link controls attached to them.
//
// Everything here is a pure function of request/session state; delivery is
// someone else's job.
package publish

// Target addresses an outbound delivery: either a single user (private chat)
// or a public posting surface.
type Target struct {
	UserID  string `json:"user_id,omitempty"`
	Surface string `json:"surface,omitempty"`
}

// ToUser targets a private delivery to the given identity.
func ToUser(userID string) Target {
	return Target{UserID: userID}
}

// ToSurface targets a public posting surface.
func ToSurface(surface string) Target {
	return Target{Surface: surface}
}

// String returns a loggable form of the target.
func (t Target) String() string {
	if t.Surface != "" {
		return "surface:" + t.Surface
	}
	return "user:" + t.UserID
}

// Control is one action attached to a message: either a deep-link URL the
// recipient opens, or an opaque action token the transport echoes back.
type Control struct {
	Label  string `json:"label"`
	URL    string `json:"url,omitempty"`
	Action string `json:"action,omitempty"`
}

// Message is one outbound delivery payload.
type Message struct {
	Text     string    `json:"text"`
	Controls []Control `json:"controls,omitempty"`
}

// Handle references a delivered message on its surface; the board post
// handle is what close uses to retract the post.
type Handle string
