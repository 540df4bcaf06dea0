package chat

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/brimoraa/plpchat/internal/logging"
	"github.com/brimoraa/plpchat/internal/models"
)

// List is the conversation sidebar, most recently updated first.
type List struct {
	chats []models.Chat
	log   zerolog.Logger
}

func NewList() *List {
	return &List{log: logging.Component("chat.list")}
}

// Set replaces the list. Conversations violating the participant invariants
// are dropped; the number dropped is returned.
func (l *List) Set(chats []models.Chat) int {
	l.chats = l.chats[:0]
	dropped := 0
	for _, c := range chats {
		if err := c.Validate(); err != nil {
			l.log.Warn().Err(err).Msg("dropping invalid conversation")
			dropped++
			continue
		}
		l.chats = append(l.chats, c)
	}
	l.sort()
	return dropped
}

// Upsert replaces the conversation with the same id or adds it.
func (l *List) Upsert(chat models.Chat) bool {
	if err := chat.Validate(); err != nil {
		l.log.Warn().Err(err).Msg("ignoring invalid conversation update")
		return false
	}
	for i := range l.chats {
		if l.chats[i].ID == chat.ID {
			l.chats[i] = chat
			l.sort()
			return true
		}
	}
	l.chats = append([]models.Chat{chat}, l.chats...)
	l.sort()
	return true
}

// ApplyMessage updates the preview of the conversation msg belongs to.
func (l *List) ApplyMessage(msg models.Message) {
	if msg.ID == "" || msg.Chat == "" {
		return
	}
	for i := range l.chats {
		if l.chats[i].ID != string(msg.Chat) {
			continue
		}
		m := msg
		l.chats[i].LatestMessage = &m
		if msg.CreatedAt.After(l.chats[i].UpdatedAt) {
			l.chats[i].UpdatedAt = msg.CreatedAt
		}
		l.sort()
		return
	}
}

func (l *List) Get(id string) (models.Chat, bool) {
	for _, c := range l.chats {
		if c.ID == id {
			return c, true
		}
	}
	return models.Chat{}, false
}

func (l *List) Chats() []models.Chat {
	out := make([]models.Chat, len(l.chats))
	copy(out, l.chats)
	return out
}

func (l *List) Len() int {
	return len(l.chats)
}

// Filter returns conversations whose display name for selfID contains query,
// ignoring case.
func (l *List) Filter(query, selfID string) []models.Chat {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return l.Chats()
	}
	var out []models.Chat
	for _, c := range l.chats {
		if strings.Contains(strings.ToLower(c.DisplayName(selfID)), query) {
			out = append(out, c)
		}
	}
	return out
}

func (l *List) sort() {
	sort.SliceStable(l.chats, func(i, j int) bool {
		return l.chats[i].UpdatedAt.After(l.chats[j].UpdatedAt)
	})
}

// FilterUsers returns the directory entries other than selfID whose username
// or email contains query, ignoring case.
func FilterUsers(users []models.User, query, selfID string) []models.User {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID == selfID {
			continue
		}
		if query == "" ||
			strings.Contains(strings.ToLower(u.Username), query) ||
			strings.Contains(strings.ToLower(u.Email), query) {
			out = append(out, u)
		}
	}
	return out
}

// GroupMembers validates a group creation request and returns the member ids
// with the creator included exactly once.
func GroupMembers(name string, selected []string, creatorID string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrGroupName
	}
	seen := make(map[string]bool, len(selected)+1)
	var ids []string
	for _, id := range selected {
		if id == "" || id == creatorID || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < 1 {
		return nil, ErrGroupMembers
	}
	return append(ids, creatorID), nil
}
