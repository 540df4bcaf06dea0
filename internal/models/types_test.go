package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestChatRefDecodesIDOrObject(t *testing.T) {
	var byID, byObj, null Message
	if err := json.Unmarshal([]byte(`{"_id":"m1","chat":"c1"}`), &byID); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"_id":"m1","chat":{"_id":"c1","isGroup":true}}`), &byObj); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"_id":"m1","chat":null}`), &null); err != nil {
		t.Fatal(err)
	}
	if byID.Chat != "c1" || byObj.Chat != "c1" || null.Chat != "" {
		t.Fatalf("unexpected refs: %q %q %q", byID.Chat, byObj.Chat, null.Chat)
	}
}

func TestMessageStates(t *testing.T) {
	pending := Message{TempID: "t1", Content: "hi"}
	if !pending.IsPending() {
		t.Fatalf("expected pending")
	}
	confirmed := Message{ID: "m1", TempID: "t1"}
	if confirmed.IsPending() {
		t.Fatalf("message with server id is confirmed")
	}
	if (Message{ReadBy: []User{{ID: "a"}}}).IsRead() {
		t.Fatalf("only the sender has read it")
	}
	if !(Message{ReadBy: []User{{ID: "a"}, {ID: "b"}}}).IsRead() {
		t.Fatalf("expected read")
	}
}

func TestChatValidate(t *testing.T) {
	two := []User{{ID: "a"}, {ID: "b"}}
	cases := []struct {
		name string
		chat Chat
		ok   bool
	}{
		{"direct", Chat{ID: "c", Users: two}, true},
		{"direct with three", Chat{ID: "c", Users: append(two, User{ID: "c"})}, false},
		{"direct with one", Chat{ID: "c", Users: two[:1]}, false},
		{"group", Chat{ID: "g", IsGroup: true, ChatName: "team", Users: two[:1]}, true},
		{"group without name", Chat{ID: "g", IsGroup: true, Users: two}, false},
		{"group without users", Chat{ID: "g", IsGroup: true, ChatName: "team"}, false},
		{"no id", Chat{Users: two}, false},
	}
	for _, c := range cases {
		err := c.chat.Validate()
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		}
		if !c.ok && !errors.Is(err, ErrInvalidChat) {
			t.Errorf("%s: expected ErrInvalidChat, got %v", c.name, err)
		}
	}
}

func TestDisplayNameAndPreview(t *testing.T) {
	direct := Chat{ID: "c", Users: []User{{ID: "me", Username: "me"}, {ID: "p", Username: "peer"}}}
	if got := direct.DisplayName("me"); got != "peer" {
		t.Fatalf("expected peer, got %q", got)
	}
	if got := (Chat{ID: "c", Users: []User{{ID: "me"}, {ID: "p"}}}).DisplayName("me"); got != "Unknown User" {
		t.Fatalf("expected fallback name, got %q", got)
	}

	group := Chat{ID: "g", IsGroup: true, ChatName: "team",
		LatestMessage: &Message{Content: "hi", Sender: User{Username: "ada"}}}
	if group.DisplayName("me") != "team" {
		t.Fatalf("group uses its name")
	}
	if got := group.Preview(); got != "ada: hi" {
		t.Fatalf("unexpected preview %q", got)
	}
	direct.LatestMessage = &Message{Content: "yo", Sender: User{Username: "peer"}}
	if got := direct.Preview(); got != "yo" {
		t.Fatalf("unexpected preview %q", got)
	}
}
