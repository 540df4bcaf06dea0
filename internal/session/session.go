package session

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brimoraa/plpchat/internal/logging"
	"github.com/brimoraa/plpchat/internal/models"
	"github.com/brimoraa/plpchat/internal/store"
)

const (
	KeyToken        = "token"
	KeyUser         = "user"
	KeyActiveChatID = "activeChatId"
)

// Session holds the authenticated identity and bearer credential. It is
// constructed once and handed to every component that needs the credential.
type Session struct {
	store store.Store
	log   zerolog.Logger

	mu       sync.RWMutex
	token    string
	user     *models.User
	restored bool
}

func New(s store.Store) *Session {
	return &Session{
		store: s,
		log:   logging.Component("session"),
	}
}

// Restore loads a previously persisted credential/identity pair. Absent,
// corrupt or "null"/"undefined" values are discarded. It reports whether the
// session is authenticated afterwards and never fails.
func (s *Session) Restore() bool {
	token := s.readValue(KeyToken)
	rawUser := s.readValue(KeyUser)

	var user *models.User
	if rawUser != "" {
		var u models.User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil || u.ID == "" {
			s.log.Warn().Err(err).Msg("discarding corrupt persisted identity")
			s.remove(KeyUser)
		} else {
			user = &u
		}
	}

	// A credential without an identity (or the reverse) is unusable.
	if token == "" || user == nil {
		if token != "" || user != nil {
			s.log.Warn().Msg("discarding incomplete persisted session")
		}
		s.remove(KeyToken)
		s.remove(KeyUser)
		token, user = "", nil
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.restored = true
	s.mu.Unlock()

	if user != nil {
		s.log.Info().Str(logging.FieldUserID, user.ID).Msg("session restored")
	}
	return user != nil
}

// Login persists the credential and identity and makes them readable.
func (s *Session) Login(token string, user models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to serialize identity")
	} else if err := s.store.Set(KeyUser, string(data)); err != nil {
		s.log.Error().Err(err).Msg("failed to persist identity")
	}
	if err := s.store.Set(KeyToken, token); err != nil {
		s.log.Error().Err(err).Msg("failed to persist credential")
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.restored = true
	s.mu.Unlock()

	s.log.Info().Str(logging.FieldUserID, user.ID).Msg("logged in")
}

// Logout clears the credential, identity and last active conversation.
func (s *Session) Logout() {
	s.remove(KeyToken)
	s.remove(KeyUser)
	s.remove(KeyActiveChatID)

	s.mu.Lock()
	wasAuthenticated := s.user != nil
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if wasAuthenticated {
		s.log.Info().Msg("logged out")
	}
}

// UpdateUser replaces the identity after a profile change, keeping the token.
func (s *Session) UpdateUser(user models.User) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return
	}
	s.Login(token, user)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the identity, or false when unauthenticated.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// Restored reports whether Restore or Login has completed.
func (s *Session) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

func (s *Session) ActiveChatID() string {
	return s.readValue(KeyActiveChatID)
}

func (s *Session) SetActiveChatID(id string) {
	if id == "" {
		s.ClearActiveChatID()
		return
	}
	if err := s.store.Set(KeyActiveChatID, id); err != nil {
		s.log.Error().Err(err).Str(logging.FieldChatID, id).Msg("failed to persist active chat")
	}
}

func (s *Session) ClearActiveChatID() {
	s.remove(KeyActiveChatID)
}

// readValue returns the stored value for key, treating read errors and the
// "null"/"undefined" placeholders as absence.
func (s *Session) readValue(key string) string {
	v, ok, err := s.store.Get(key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to read persisted value")
		return ""
	}
	if !ok {
		return ""
	}
	v = strings.TrimSpace(v)
	if v == "" || v == "null" || v == "undefined" {
		s.remove(key)
		return ""
	}
	return v
}

func (s *Session) remove(key string) {
	if err := s.store.Remove(key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to remove persisted value")
	}
}
