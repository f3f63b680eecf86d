package identity

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/maruel/ksid"
)

func TestPushSubscriptionService(t *testing.T) {
	s, err := NewPushSubscriptionService(filepath.Join(t.TempDir(), "push.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	alice, bob := ksid.NewID(), ksid.NewID()
	if _, err := s.Upsert(alice, "https://push.example/1", "key", "auth"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(alice, "https://push.example/2", "key", "auth"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(alice, "", "key", "auth"); err == nil {
		t.Error("expected error for empty endpoint")
	}
	count := func(user ksid.ID) int {
		n := 0
		for range s.ListByUser(user) {
			n++
		}
		return n
	}
	if n := count(alice); n != 2 {
		t.Fatalf("alice has %d subscriptions, want 2", n)
	}

	// Same browser now logged in as bob.
	sub, err := s.Upsert(bob, "https://push.example/1", "key2", "auth2")
	if err != nil {
		t.Fatal(err)
	}
	if sub.P256dh != "key2" {
		t.Errorf("P256dh = %q", sub.P256dh)
	}
	if a, b := count(alice), count(bob); a != 1 || b != 1 {
		t.Errorf("alice=%d bob=%d, want 1 and 1", a, b)
	}

	if err := s.DeleteByEndpoint("https://push.example/2"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteByEndpoint("https://push.example/2"); !errors.Is(err, ErrPushSubNotFound) {
		t.Errorf("got %v, want ErrPushSubNotFound", err)
	}
	total := 0
	for range s.All() {
		total++
	}
	if total != 1 {
		t.Errorf("All() = %d, want 1", total)
	}
}
