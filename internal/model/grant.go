package model

// Mode is the capability carried by a deep-link start payload.
type Mode string

const (
	// ModeOffer grants the opener permission to submit offers for a request.
	ModeOffer Mode = "offer"
	// ModeReply grants the opener a channel back to a specific counterpart.
	ModeReply Mode = "reply"
	// ModeView grants read-only access to the request; no state mutation.
	ModeView Mode = "view"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid checks whether the mode is a known value.
func (m Mode) IsValid() bool {
	switch m {
	case ModeOffer, ModeReply, ModeView:
		return true
	}
	return false
}

// Grant is a decoded deep-link payload: structured intent only. The codec
// never authorizes; whoever consumes the grant checks the request is still
// active and the counterpart is valid.
type Grant struct {
	Mode          Mode   `json:"mode"`
	RequestID     string `json:"request_id"`
	CounterpartID string `json:"counterpart_id,omitempty"`
}
