package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// User is the identity record issued by the server.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type Media struct {
	URL      string `json:"url"`
	Type     string `json:"type,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ChatRef is the conversation a message belongs to. The server sends it either
// as a bare id or as an embedded conversation object.
type ChatRef string

func (r *ChatRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = ChatRef(id)
		return nil
	}

	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("failed to decode chat reference: %w", err)
	}
	*r = ChatRef(obj.ID)
	return nil
}

type Message struct {
	ID        string    `json:"_id,omitempty"`
	TempID    string    `json:"tempId,omitempty"`
	Chat      ChatRef   `json:"chat,omitempty"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	Media     *Media    `json:"media,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ReadBy    []User    `json:"readBy,omitempty"`
}

// IsPending reports whether the message is still waiting for the server to
// assign it an id.
func (m Message) IsPending() bool {
	return m.ID == "" && m.TempID != ""
}

// IsRead reports whether someone other than the sender has read the message.
func (m Message) IsRead() bool {
	return len(m.ReadBy) > 1
}

type Chat struct {
	ID            string    `json:"_id"`
	IsGroup       bool      `json:"isGroup"`
	ChatName      string    `json:"chatName,omitempty"`
	Users         []User    `json:"users"`
	LatestMessage *Message  `json:"latestMessage,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

var ErrInvalidChat = errors.New("invalid conversation")

// Validate checks the participant invariants: a direct conversation has
// exactly two participants, a group has a name and at least one participant.
func (c Chat) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidChat)
	}
	if c.IsGroup {
		if strings.TrimSpace(c.ChatName) == "" {
			return fmt.Errorf("%w: group %s has no name", ErrInvalidChat, c.ID)
		}
		if len(c.Users) < 1 {
			return fmt.Errorf("%w: group %s has no participants", ErrInvalidChat, c.ID)
		}
		return nil
	}
	if len(c.Users) != 2 {
		return fmt.Errorf("%w: direct chat %s has %d participants", ErrInvalidChat, c.ID, len(c.Users))
	}
	return nil
}

// Peer returns the other participant of a direct conversation.
func (c Chat) Peer(selfID string) (User, bool) {
	if c.IsGroup {
		return User{}, false
	}
	for _, u := range c.Users {
		if u.ID != selfID {
			return u, true
		}
	}
	return User{}, false
}

// DisplayName returns the name shown for the conversation to selfID.
func (c Chat) DisplayName(selfID string) string {
	if c.IsGroup {
		return c.ChatName
	}
	if peer, ok := c.Peer(selfID); ok && peer.Username != "" {
		return peer.Username
	}
	return "Unknown User"
}

// Preview returns the latest message line shown in the conversation list.
func (c Chat) Preview() string {
	if c.LatestMessage == nil {
		return ""
	}
	content := c.LatestMessage.Content
	if content == "" && c.LatestMessage.Media != nil {
		content = "📎 attachment"
	}
	if content == "" {
		return ""
	}
	if c.IsGroup && c.LatestMessage.Sender.Username != "" {
		return c.LatestMessage.Sender.Username + ": " + content
	}
	return content
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)
