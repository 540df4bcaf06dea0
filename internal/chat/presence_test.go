package chat

import (
	"reflect"
	"testing"
)

func TestPresenceLastWriteWins(t *testing.T) {
	p := NewPresence()
	p.Set("u2", false)
	p.Set("u2", true)
	if !p.IsOnline("u2") {
		t.Fatal("u2 should be online")
	}
	// A stale offline event arriving late still wins.
	p.Set("u2", false)
	if p.IsOnline("u2") {
		t.Fatal("u2 should be offline")
	}
	p.Set("", true)
	if len(p.Online()) != 0 {
		t.Fatalf("unexpected online set %v", p.Online())
	}
}

func TestPresenceReplace(t *testing.T) {
	p := NewPresence()
	p.Set("u1", true)
	p.Set("u2", true)

	p.Replace([]string{"u3", "u2"})
	if want := []string{"u2", "u3"}; !reflect.DeepEqual(p.Online(), want) {
		t.Fatalf("expected %v, got %v", want, p.Online())
	}
	if p.IsOnline("u1") {
		t.Fatal("u1 should be offline after roster replace")
	}

	p.Clear()
	if p.IsOnline("u2") {
		t.Fatal("clear should forget everyone")
	}
}
