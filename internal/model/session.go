package model

// Role tags which side of a session an identity is on.
type Role string

const (
	RoleAuthor Role = "author"
	RoleAgent  Role = "agent"
)

// SessionKey identifies one live relay channel. A session is always
// request-scoped: the same two identities may hold independent sessions
// for different requests.
type SessionKey struct {
	RequestID string `json:"request_id"`
	AuthorID  string `json:"author_id"`
	AgentID   string `json:"agent_id"`
}

// Involves reports whether userID is one of the session's endpoints.
func (k SessionKey) Involves(userID string) bool {
	return userID == k.AuthorID || userID == k.AgentID
}

// Counterpart returns the other endpoint for userID. The second return is
// false when userID is not part of the session.
func (k SessionKey) Counterpart(userID string) (string, bool) {
	switch userID {
	case k.AuthorID:
		return k.AgentID, true
	case k.AgentID:
		return k.AuthorID, true
	}
	return "", false
}

// RoleOf returns the role userID plays in the session.
func (k SessionKey) RoleOf(userID string) Role {
	if userID == k.AuthorID {
		return RoleAuthor
	}
	return RoleAgent
}
