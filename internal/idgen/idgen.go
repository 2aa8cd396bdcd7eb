// Package idgen issues request identifiers and opaque tokens.
//
// Request ids are human-readable and monotonically increasing ("R001",
// "R002", ...) so authors and agents can refer to them in chat. Tokens are
// short URL-safe nanoids used for delivery receipts and outbox rows, where
// monotonicity would leak volume.
package idgen

import (
	"fmt"
	"sync"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of tokens.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TokenLength is the number of random characters in a token.
var TokenLength = 10

// Sequence allocates monotonically increasing request identifiers.
// Safe for concurrent use.
type Sequence struct {
	mu   sync.Mutex
	next uint64
}

// NewSequence returns a sequence whose first allocated id follows seed.
// Pass the highest previously issued number (0 for a fresh deployment) so
// ids stay monotonic across restarts.
func NewSequence(seed uint64) *Sequence {
	return &Sequence{next: seed}
}

// Next returns the next request identifier, formatted R<NNN> with at least
// three digits.
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("R%03d", s.next)
}

// Token returns a new random URL-safe token with the given prefix.
func Token(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, TokenLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
