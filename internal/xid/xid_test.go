package xid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewHasPrefixAndVersion7UUID(t *testing.T) {
	id := New("sale")
	rest, ok := strings.CutPrefix(id, "sale_")
	if !ok {
		t.Fatalf("expected sale_ prefix, got %s", id)
	}
	parsed, err := uuid.Parse(rest)
	if err != nil {
		t.Fatalf("expected uuid after prefix, got %s: %v", rest, err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
}

func TestIDsSortByCreationTime(t *testing.T) {
	prev := New("pos")
	for i := 0; i < 1000; i++ {
		next := New("pos")
		if next <= prev {
			t.Fatalf("expected %s to sort after %s", next, prev)
		}
		prev = next
	}
}

func TestIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New("audit")
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
