package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/realflats/relay/internal/model"
)

func TestSequence_Monotonic(t *testing.T) {
	seq := NewSequence(0)

	prev := ""
	for i := 0; i < 5; i++ {
		id := seq.Next()
		if !model.IsRequestID(id) {
			t.Fatalf("generated id %q does not match request id format", id)
		}
		if id <= prev {
			t.Fatalf("id %q not greater than previous %q", id, prev)
		}
		prev = id
	}
}

func TestSequence_Format(t *testing.T) {
	seq := NewSequence(0)
	if got := seq.Next(); got != "R001" {
		t.Errorf("first id = %q, want R001", got)
	}

	seeded := NewSequence(41)
	if got := seeded.Next(); got != "R042" {
		t.Errorf("seeded id = %q, want R042", got)
	}

	wide := NewSequence(999)
	if got := wide.Next(); got != "R1000" {
		t.Errorf("four-digit id = %q, want R1000", got)
	}
}

func TestSequence_ConcurrentUnique(t *testing.T) {
	seq := NewSequence(0)

	const n = 100
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- seq.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d unique ids, got %d", n, len(seen))
	}
}

func TestToken(t *testing.T) {
	tok, err := Token("dlv-")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if !strings.HasPrefix(tok, "dlv-") {
		t.Errorf("token %q missing prefix", tok)
	}
	if len(tok) != len("dlv-")+TokenLength {
		t.Errorf("token %q has unexpected length", tok)
	}

	other, err := Token("dlv-")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok == other {
		t.Error("two tokens should not collide")
	}
}
