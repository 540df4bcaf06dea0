package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brimoraa/plpchat/internal/config"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func testConfig(url string) config.LiveConfig {
	return config.LiveConfig{
		URL:            "ws" + strings.TrimPrefix(url, "http"),
		ReconnectDelay: 10 * time.Millisecond,
		MaxRetries:     2,
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 1 << 16,
	}
}

func next(t *testing.T, c *Conn) Envelope {
	t.Helper()
	select {
	case env, ok := <-c.Events():
		if !ok {
			t.Fatalf("events channel closed")
		}
		return env
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Envelope{}
}

func TestEmitAndReceive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.URL.Query().Get("token") != "tok" {
			http.Error(w, "no", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			var env Envelope
			if err := ws.ReadJSON(&env); err != nil {
				return
			}
			if env.Event != EventNewMessage {
				continue
			}
			in, err := Decode[NewMessagePayload](env)
			if err != nil {
				return
			}
			out, _ := NewEnvelope(EventMessageReceived, map[string]string{
				"_id": "m1", "tempId": in.TempID, "chat": in.ChatID, "content": in.Content,
			})
			ws.WriteJSON(out)
		}
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), staticToken("tok"))
	c.Start(context.Background())
	defer c.Close()

	if env := next(t, c); env.Event != EventLinkUp {
		t.Fatalf("expected link up, got %s", env.Event)
	}
	if err := c.Emit(EventNewMessage, NewMessagePayload{ChatID: "c1", Content: "hello", TempID: "t1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	env := next(t, c)
	if env.Event != EventMessageReceived {
		t.Fatalf("expected message:received, got %s", env.Event)
	}
	got, err := Decode[map[string]string](env)
	if err != nil {
		t.Fatal(err)
	}
	if got["_id"] != "m1" || got["tempId"] != "t1" || got["content"] != "hello" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestUnauthorizedHandshakeIsNotRetried(t *testing.T) {
	var dials int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dials, 1)
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), staticToken("tok"))
	c.Start(context.Background())
	defer c.Close()

	env := next(t, c)
	if env.Event != EventLinkDown {
		t.Fatalf("expected link down, got %s", env.Event)
	}
	st, err := Decode[LinkStatus](env)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Unauthorized || st.Retrying {
		t.Fatalf("unexpected status %+v", st)
	}
	if _, ok := <-c.Events(); ok {
		t.Fatalf("events should be closed after auth failure")
	}
	if err := c.Emit(EventSetup, "u1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after auth failure, got %v", err)
	}
	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Fatalf("expected a single dial, got %d", n)
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:1"), staticToken(""))
	c.Start(context.Background())
	defer c.Close()

	st, err := Decode[LinkStatus](next(t, c))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Unauthorized {
		t.Fatalf("expected unauthorized status, got %+v", st)
	}
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var dials int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dials, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), staticToken("tok"))
	c.Start(context.Background())
	defer c.Close()

	var statuses []LinkStatus
	for env := range c.Events() {
		st, err := Decode[LinkStatus](env)
		if err != nil {
			t.Fatal(err)
		}
		statuses = append(statuses, st)
	}

	if len(statuses) != 3 {
		t.Fatalf("expected 3 link-down events, got %d", len(statuses))
	}
	if !statuses[0].Retrying || !statuses[1].Retrying || statuses[2].Retrying {
		t.Fatalf("unexpected retry flags %+v", statuses)
	}
	if n := atomic.LoadInt32(&dials); n != 3 {
		t.Fatalf("expected 3 dials, got %d", n)
	}
	if err := c.Emit(EventNewMessage, NewMessagePayload{ChatID: "c1", Content: "hi", TempID: "t1"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed once the connection gave up, got %v", err)
	}
}

func TestReconnectsAfterDrop(t *testing.T) {
	var conns int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if atomic.AddInt32(&conns, 1) == 1 {
			ws.Close()
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), staticToken("tok"))
	c.Start(context.Background())
	defer c.Close()

	want := []string{EventLinkUp, EventLinkDown, EventLinkUp}
	for _, w := range want {
		if env := next(t, c); env.Event != w {
			t.Fatalf("expected %s, got %s", w, env.Event)
		}
	}
}

func TestEmitAfterClose(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:1"), staticToken("tok"))
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Emit(EventTyping, "c1"); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
