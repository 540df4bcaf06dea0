package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/brimoraa/plpchat/internal/live"
	"github.com/brimoraa/plpchat/internal/models"
)

type emitted struct {
	event string
	data  any
}

type recorder struct {
	events []emitted
	err    error
}

func (r *recorder) Emit(event string, data any) error {
	r.events = append(r.events, emitted{event, data})
	return r.err
}

func (r *recorder) names() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}

func (r *recorder) reset() { r.events = nil }

type identity struct {
	user models.User
	ok   bool
}

func (i identity) User() (models.User, bool) { return i.user, i.ok }

func newController(t *testing.T) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := NewController(identity{user: alice, ok: true}, rec, nil)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c, rec
}

func openReady(t *testing.T, c *Controller, chat models.Chat, history ...models.Message) uint64 {
	t.Helper()
	gen := c.Open(chat)
	if !c.HistoryLoaded(gen, history) {
		t.Fatalf("history for %s rejected", chat.ID)
	}
	return gen
}

func sameEvents(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestControllerLifecycle(t *testing.T) {
	c, rec := newController(t)
	if c.State() != StateNoActive {
		t.Fatalf("unexpected initial state %s", c.State())
	}

	chat := direct("c1", bob, time.Now())
	gen := c.Open(chat)
	if c.State() != StateLoadingHistory {
		t.Fatalf("expected loading, got %s", c.State())
	}
	if !sameEvents(rec.names(), []string{live.EventJoinChat}) || rec.events[0].data != "c1" {
		t.Fatalf("unexpected events %+v", rec.events)
	}

	if _, err := c.Send("too early"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	history := []models.Message{{ID: "m0", Chat: "c1", Content: "hi"}, {ID: "m0", Chat: "c1", Content: "hi"}}
	if !c.HistoryLoaded(gen, history) {
		t.Fatal("history rejected")
	}
	if c.State() != StateReady || len(c.Messages()) != 1 {
		t.Fatalf("expected ready with deduplicated history, got %s %+v", c.State(), c.Messages())
	}

	c.Close()
	if c.State() != StateNoActive || c.ActiveID() != "" {
		t.Fatalf("close did not reset: %s %q", c.State(), c.ActiveID())
	}
}

func TestControllerDiscardsStaleHistory(t *testing.T) {
	c, _ := newController(t)

	first := c.Open(direct("c1", bob, time.Now()))
	second := c.Open(direct("c2", carol, time.Now()))

	if c.HistoryLoaded(first, []models.Message{{ID: "old", Chat: "c1"}}) {
		t.Fatal("stale history accepted")
	}
	if c.HistoryFailed(first, errors.New("boom")) {
		t.Fatal("stale failure applied")
	}
	if c.State() != StateLoadingHistory || c.ActiveID() != "c2" {
		t.Fatalf("stale response changed state: %s %s", c.State(), c.ActiveID())
	}

	if !c.HistoryLoaded(second, []models.Message{{ID: "new", Chat: "c2"}}) {
		t.Fatal("current history rejected")
	}
	if msgs := c.Messages(); len(msgs) != 1 || msgs[0].ID != "new" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestControllerHistoryFailure(t *testing.T) {
	c, _ := newController(t)
	gen := c.Open(direct("c1", bob, time.Now()))
	if !c.HistoryFailed(gen, errors.New("500")) {
		t.Fatal("failure not applied")
	}
	if c.State() != StateNoActive {
		t.Fatalf("expected no active conversation, got %s", c.State())
	}
	if _, ok := c.Active(); ok {
		t.Fatal("active conversation should be cleared")
	}
}

func TestControllerSendAndConfirm(t *testing.T) {
	c, rec := newController(t)
	openReady(t, c, direct("c1", bob, time.Now()))
	rec.reset()

	pending, err := c.Send("hello")
	if err != nil {
		t.Fatal(err)
	}
	if !pending.IsPending() || pending.Sender.ID != alice.ID || string(pending.Chat) != "c1" {
		t.Fatalf("unexpected pending message %+v", pending)
	}
	if !sameEvents(rec.names(), []string{live.EventNewMessage}) {
		t.Fatalf("unexpected events %v", rec.names())
	}
	payload := rec.events[0].data.(live.NewMessagePayload)
	if payload.TempID != pending.TempID || payload.ChatID != "c1" || payload.Content != "hello" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	confirmed := models.Message{ID: "m1", TempID: pending.TempID, Chat: "c1", Sender: alice, Content: "hello"}
	if got := c.Receive(confirmed); got != OutcomeReplaced {
		t.Fatalf("expected replaced, got %s", got)
	}
	if got := c.Receive(confirmed); got != OutcomeDuplicate {
		t.Fatalf("expected duplicate on echo, got %s", got)
	}
	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestControllerSendValidation(t *testing.T) {
	c, rec := newController(t)
	openReady(t, c, direct("c1", bob, time.Now()))
	rec.reset()

	if _, err := c.Send("   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("empty message emitted %v", rec.names())
	}

	rec.err = errors.New("offline")
	pending, err := c.Send("queued")
	if err == nil {
		t.Fatal("expected dispatch error")
	}
	if msgs := c.Messages(); len(msgs) != 1 || msgs[0].TempID != pending.TempID {
		t.Fatalf("pending entry should remain: %+v", msgs)
	}

	anon := NewController(identity{}, &recorder{}, nil)
	anon.HistoryLoaded(anon.Open(direct("c1", bob, time.Now())), nil)
	if _, err := anon.Send("hi"); !errors.Is(err, ErrNotAuthed) {
		t.Fatalf("expected ErrNotAuthed, got %v", err)
	}
}

func TestControllerIgnoresOtherConversations(t *testing.T) {
	c, _ := newController(t)
	gen := c.Open(direct("c1", bob, time.Now()))

	if got := c.Receive(models.Message{ID: "early", Chat: "c1"}); got != OutcomeIgnored {
		t.Fatalf("message during loading should be ignored, got %s", got)
	}
	c.HistoryLoaded(gen, nil)

	if got := c.Receive(models.Message{ID: "x", Chat: "c2"}); got != OutcomeIgnored {
		t.Fatalf("foreign message should be ignored, got %s", got)
	}
	if got := c.Receive(models.Message{ID: "m2", Chat: "c1"}); got != OutcomeAppended {
		t.Fatalf("expected appended, got %s", got)
	}

	if c.RemoteTyping("c2", true) || c.PeerTyping() {
		t.Fatal("typing from another conversation applied")
	}
	if !c.RemoteTyping("c1", true) || !c.PeerTyping() {
		t.Fatal("typing for the active conversation not applied")
	}
}

func TestControllerTyping(t *testing.T) {
	c, rec := newController(t)
	openReady(t, c, direct("c1", bob, time.Now()))
	rec.reset()

	first, err := c.Keystroke()
	if err != nil {
		t.Fatal(err)
	}
	second, _ := c.Keystroke()
	if !sameEvents(rec.names(), []string{live.EventTyping}) {
		t.Fatalf("expected a single typing event, got %v", rec.names())
	}

	if c.TypingExpired(first) {
		t.Fatal("superseded timer ended typing")
	}
	if !c.TypingExpired(second) {
		t.Fatal("latest timer did not end typing")
	}
	if !sameEvents(rec.names(), []string{live.EventTyping, live.EventStopTyping}) {
		t.Fatalf("unexpected events %v", rec.names())
	}

	rec.reset()
	token, _ := c.Keystroke()
	if _, err := c.Send("done"); err != nil {
		t.Fatal(err)
	}
	if !sameEvents(rec.names(), []string{live.EventTyping, live.EventNewMessage, live.EventStopTyping}) {
		t.Fatalf("unexpected events %v", rec.names())
	}
	if c.TypingExpired(token) {
		t.Fatal("timer armed before send should be invalid")
	}

	rec.reset()
	if _, err := c.Send("again"); err != nil {
		t.Fatal(err)
	}
	if !sameEvents(rec.names(), []string{live.EventNewMessage}) {
		t.Fatalf("stopTyping sent while idle: %v", rec.names())
	}
}

func TestControllerSwitchStopsTyping(t *testing.T) {
	c, rec := newController(t)
	openReady(t, c, direct("c1", bob, time.Now()))
	c.RemoteTyping("c1", true)
	token, _ := c.Keystroke()
	rec.reset()

	c.Open(direct("c2", carol, time.Now()))
	if !sameEvents(rec.names(), []string{live.EventStopTyping, live.EventJoinChat}) {
		t.Fatalf("unexpected events %v", rec.names())
	}
	if rec.events[0].data != "c1" || rec.events[1].data != "c2" {
		t.Fatalf("events addressed to wrong conversations: %+v", rec.events)
	}
	if c.PeerTyping() || len(c.Messages()) != 0 {
		t.Fatal("switch did not clear conversation state")
	}
	if c.TypingExpired(token) {
		t.Fatal("timer from previous conversation fired")
	}
}

func TestControllerUpload(t *testing.T) {
	c, _ := newController(t)
	openReady(t, c, direct("c1", bob, time.Now()))

	gen, chatID, err := c.BeginUpload()
	if err != nil || chatID != "c1" {
		t.Fatalf("begin upload: %v %q", err, chatID)
	}
	if _, _, err := c.BeginUpload(); !errors.Is(err, ErrSendInProgress) {
		t.Fatalf("expected ErrSendInProgress, got %v", err)
	}
	if len(c.Messages()) != 0 {
		t.Fatal("attachment send must not add a pending entry")
	}

	msg := models.Message{ID: "m9", Chat: "c1", Sender: alice, Media: &models.Media{URL: "/uploads/a.png"}}
	if got := c.UploadDone(gen, msg); got != OutcomeAppended {
		t.Fatalf("expected appended, got %s", got)
	}
	if c.Uploading() {
		t.Fatal("upload flag not cleared")
	}
	// The live echo of the same message is a duplicate.
	if got := c.Receive(msg); got != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", got)
	}

	gen, _, _ = c.BeginUpload()
	c.UploadFailed(gen, errors.New("413"))
	if c.Uploading() {
		t.Fatal("failed upload left flag set")
	}

	stale, _, _ := c.BeginUpload()
	openReady(t, c, direct("c2", carol, time.Now()))
	if got := c.UploadDone(stale, models.Message{ID: "m10", Chat: "c1"}); got != OutcomeIgnored {
		t.Fatalf("stale upload applied: %s", got)
	}
}

func TestControllerRejoin(t *testing.T) {
	c, rec := newController(t)
	c.Rejoin()
	if !sameEvents(rec.names(), []string{live.EventSetup}) {
		t.Fatalf("unexpected events %v", rec.names())
	}

	openReady(t, c, direct("c1", bob, time.Now()))
	rec.reset()
	c.Rejoin()
	if !sameEvents(rec.names(), []string{live.EventSetup, live.EventJoinChat}) {
		t.Fatalf("unexpected events %v", rec.names())
	}
}
