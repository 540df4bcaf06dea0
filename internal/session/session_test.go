package session

import (
	"errors"
	"testing"

	"github.com/brimoraa/plpchat/internal/models"
	"github.com/brimoraa/plpchat/internal/store"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(store.BackendYAML, t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestLoginPersistsAndRestores(t *testing.T) {
	st := newStore(t)
	s := New(st)
	s.Login("tok", models.User{ID: "u1", Username: "ada", Email: "ada@example.com"})

	if !s.IsAuthenticated() || s.Token() != "tok" {
		t.Fatalf("expected authenticated session")
	}

	restored := New(st)
	if !restored.Restore() {
		t.Fatalf("expected restore to succeed")
	}
	u, ok := restored.User()
	if !ok || u.ID != "u1" || u.Username != "ada" || u.Email != "ada@example.com" {
		t.Fatalf("unexpected identity: %+v", u)
	}
	if restored.Token() != "tok" {
		t.Fatalf("unexpected token %q", restored.Token())
	}
}

func TestRestoreDiscardsPlaceholders(t *testing.T) {
	cases := map[string][2]string{
		"undefined user":  {"tok", "undefined"},
		"null user":       {"tok", "null"},
		"undefined token": {"undefined", `{"_id":"u1","username":"ada"}`},
		"null token":      {"null", `{"_id":"u1","username":"ada"}`},
		"corrupt json":    {"tok", `{"_id":`},
		"user without id": {"tok", `{"username":"ada"}`},
		"empty":           {"", ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			st := newStore(t)
			if c[0] != "" {
				st.Set(KeyToken, c[0])
			}
			if c[1] != "" {
				st.Set(KeyUser, c[1])
			}

			s := New(st)
			if s.Restore() {
				t.Fatalf("expected unauthenticated restore")
			}
			if s.IsAuthenticated() || s.Token() != "" {
				t.Fatalf("expected no credential after restore")
			}
			if !s.Restored() {
				t.Fatalf("restore must always complete")
			}
			if _, ok, _ := st.Get(KeyToken); ok {
				t.Fatalf("stale token should be removed")
			}
		})
	}
}

type failingStore struct{ store.Store }

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }

func TestRestoreToleratesReadErrors(t *testing.T) {
	s := New(failingStore{newStore(t)})
	if s.Restore() {
		t.Fatalf("expected unauthenticated restore on read errors")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	st := newStore(t)
	s := New(st)
	s.Login("tok", models.User{ID: "u1", Username: "ada"})
	s.SetActiveChatID("c1")

	s.Logout()
	s.Logout()

	if s.IsAuthenticated() {
		t.Fatalf("expected logged out")
	}
	for _, key := range []string{KeyToken, KeyUser, KeyActiveChatID} {
		if _, ok, _ := st.Get(key); ok {
			t.Fatalf("%s should be cleared", key)
		}
	}
	if New(st).Restore() {
		t.Fatalf("restore after logout must be unauthenticated")
	}
}

func TestActiveChatID(t *testing.T) {
	st := newStore(t)
	s := New(st)

	if s.ActiveChatID() != "" {
		t.Fatalf("expected no active chat")
	}
	s.SetActiveChatID("c1")
	if s.ActiveChatID() != "c1" {
		t.Fatalf("expected c1, got %q", s.ActiveChatID())
	}
	s.ClearActiveChatID()
	if s.ActiveChatID() != "" {
		t.Fatalf("expected cleared")
	}

	st.Set(KeyActiveChatID, "null")
	if s.ActiveChatID() != "" {
		t.Fatalf("placeholder should read as absent")
	}
}

func TestUpdateUserKeepsToken(t *testing.T) {
	s := New(newStore(t))
	s.UpdateUser(models.User{ID: "u1"})
	if s.IsAuthenticated() {
		t.Fatalf("update without login must not authenticate")
	}

	s.Login("tok", models.User{ID: "u1", Username: "old"})
	s.UpdateUser(models.User{ID: "u1", Username: "new"})
	u, _ := s.User()
	if u.Username != "new" || s.Token() != "tok" {
		t.Fatalf("unexpected state after update: %+v token=%q", u, s.Token())
	}
}
