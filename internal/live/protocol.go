package live

import (
	"encoding/json"
	"fmt"
)

// Outbound events.
const (
	EventSetup      = "setup"
	EventJoinChat   = "join_chat"
	EventNewMessage = "new_message"
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
)

// Inbound events.
const (
	EventConnected       = "connected"
	EventOnlineUsers     = "onlineUsers"
	EventPresenceUpdate  = "presence:update"
	EventMessageReceived = "message:received"
	EventUserTyping      = "userTyping"
	EventUserStopTyping  = "userStopTyping"
	EventChatUpdated     = "chat:updated"
)

// Link events are produced locally by Conn and never travel on the wire.
const (
	EventLinkUp   = "link:up"
	EventLinkDown = "link:down"
)

// Envelope is the frame exchanged on the live channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type NewMessagePayload struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
	TempID  string `json:"tempId"`
}

type PresencePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// LinkStatus is the payload of EventLinkDown.
type LinkStatus struct {
	Reason       string `json:"reason,omitempty"`
	Retrying     bool   `json:"retrying"`
	Unauthorized bool   `json:"unauthorized"`
}

func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return env, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	env.Data = raw
	return env, nil
}

// Decode unmarshals the payload of env into T.
func Decode[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, fmt.Errorf("%s: empty payload", env.Event)
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s payload: %w", env.Event, err)
	}
	return v, nil
}
