package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/brimoraa/plpchat/internal/live"
	"github.com/brimoraa/plpchat/internal/logging"
	"github.com/brimoraa/plpchat/internal/models"
)

var (
	ErrNotReady       = errors.New("no conversation is ready")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrNotAuthed      = errors.New("not logged in")
	ErrSendInProgress = errors.New("an attachment is still uploading")
	ErrGroupName      = errors.New("group name is required")
	ErrGroupMembers   = errors.New("select at least one member")
)

type State int

const (
	StateNoActive State = iota
	StateLoadingHistory
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoadingHistory:
		return "loading_history"
	case StateReady:
		return "ready"
	default:
		return "no_active_conversation"
	}
}

// Emitter sends events on the live channel.
type Emitter interface {
	Emit(event string, data any) error
}

// Identity supplies the logged-in user.
type Identity interface {
	User() (models.User, bool)
}

// Controller owns the active conversation: its message sequence, the local
// and remote typing indicators and the presence map. It must only be used
// from a single goroutine; in the TUI that is the Bubble Tea update loop.
type Controller struct {
	identity Identity
	emitter  Emitter
	ids      *IDGenerator
	log      zerolog.Logger
	now      func() time.Time

	state      State
	active     *models.Chat
	gen        uint64
	messages   []models.Message
	typing     Typing
	peerTyping bool
	uploading  bool
	presence   *Presence
}

func NewController(identity Identity, emitter Emitter, ids *IDGenerator) *Controller {
	if ids == nil {
		ids = NewIDGenerator()
	}
	return &Controller{
		identity: identity,
		emitter:  emitter,
		ids:      ids,
		log:      logging.Component("chat"),
		now:      time.Now,
		presence: NewPresence(),
	}
}

func (c *Controller) State() State { return c.state }

// Generation identifies the current conversation load; responses carrying an
// older generation are discarded.
func (c *Controller) Generation() uint64 { return c.gen }

// Active returns the active conversation, if any.
func (c *Controller) Active() (models.Chat, bool) {
	if c.active == nil {
		return models.Chat{}, false
	}
	return *c.active, true
}

func (c *Controller) ActiveID() string {
	if c.active == nil {
		return ""
	}
	return c.active.ID
}

func (c *Controller) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) PeerTyping() bool { return c.peerTyping }

func (c *Controller) Typing() bool { return c.typing.Active() }

func (c *Controller) Uploading() bool { return c.uploading }

func (c *Controller) Presence() *Presence { return c.presence }

// Open switches to chat and enters loading_history. A typing signal still
// active for the previous conversation is stopped first. The returned
// generation must accompany the history response.
func (c *Controller) Open(chat models.Chat) uint64 {
	c.stopTyping()

	c.gen++
	ch := chat
	c.active = &ch
	c.messages = nil
	c.peerTyping = false
	c.uploading = false
	c.state = StateLoadingHistory

	c.emit(live.EventJoinChat, chat.ID)
	c.log.Debug().Str(logging.FieldChatID, chat.ID).Uint64(logging.FieldGen, c.gen).Msg("opening conversation")
	return c.gen
}

// HistoryLoaded installs the history for generation gen and enters ready.
// It reports false when the response is stale.
func (c *Controller) HistoryLoaded(gen uint64, history []models.Message) bool {
	if gen != c.gen || c.state != StateLoadingHistory {
		c.log.Debug().Uint64(logging.FieldGen, gen).Msg("discarding stale history")
		return false
	}

	seq := make([]models.Message, 0, len(history))
	for _, m := range history {
		seq, _ = Reconcile(seq, m)
	}
	c.messages = seq
	c.state = StateReady
	return true
}

// HistoryFailed abandons the load for generation gen. The controller falls
// back to no_active_conversation; there is no retry.
func (c *Controller) HistoryFailed(gen uint64, err error) bool {
	if gen != c.gen {
		return false
	}
	c.log.Warn().Err(err).Str(logging.FieldChatID, c.ActiveID()).Msg("failed to load conversation history")
	c.reset()
	return true
}

// Close leaves the active conversation.
func (c *Controller) Close() {
	c.stopTyping()
	c.gen++
	c.reset()
}

func (c *Controller) reset() {
	c.state = StateNoActive
	c.active = nil
	c.messages = nil
	c.peerTyping = false
	c.uploading = false
}

// Send appends a pending message for text and dispatches it on the live
// channel tagged with a fresh correlation id. The pending entry is kept even
// if dispatch fails; it then stays pending.
func (c *Controller) Send(text string) (models.Message, error) {
	if c.state != StateReady || c.active == nil {
		return models.Message{}, ErrNotReady
	}
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyMessage
	}
	self, ok := c.identity.User()
	if !ok {
		return models.Message{}, ErrNotAuthed
	}

	pending := models.Message{
		TempID:    c.ids.Next(),
		Chat:      models.ChatRef(c.active.ID),
		Sender:    self,
		Content:   text,
		CreatedAt: c.now(),
		ReadBy:    []models.User{{ID: self.ID}},
	}
	c.messages = append(c.messages, pending)

	err := c.emitter.Emit(live.EventNewMessage, live.NewMessagePayload{
		ChatID:  c.active.ID,
		Content: text,
		TempID:  pending.TempID,
	})
	c.stopTyping()

	if err != nil {
		c.log.Warn().Err(err).Str(logging.FieldTempID, pending.TempID).Msg("failed to dispatch message")
		return pending, fmt.Errorf("failed to dispatch message: %w", err)
	}
	return pending, nil
}

// BeginUpload marks an attachment send in flight and returns the generation
// and conversation it belongs to. No optimistic entry is created.
func (c *Controller) BeginUpload() (uint64, string, error) {
	if c.state != StateReady || c.active == nil {
		return 0, "", ErrNotReady
	}
	if c.uploading {
		return 0, "", ErrSendInProgress
	}
	c.uploading = true
	c.stopTyping()
	return c.gen, c.active.ID, nil
}

// UploadDone applies the server-acknowledged attachment message.
func (c *Controller) UploadDone(gen uint64, msg models.Message) Outcome {
	if gen != c.gen {
		return OutcomeIgnored
	}
	c.uploading = false
	return c.Receive(msg)
}

func (c *Controller) UploadFailed(gen uint64, err error) {
	if gen != c.gen {
		return
	}
	c.uploading = false
	c.log.Warn().Err(err).Str(logging.FieldChatID, c.ActiveID()).Msg("attachment upload failed")
}

// Receive reconciles an inbound message with the active sequence. Messages for
// other conversations, or arriving before history is loaded, are ignored.
func (c *Controller) Receive(msg models.Message) Outcome {
	if c.state != StateReady || c.active == nil || string(msg.Chat) != c.active.ID {
		return OutcomeIgnored
	}
	var outcome Outcome
	c.messages, outcome = Reconcile(c.messages, msg)
	c.log.Debug().
		Str(logging.FieldMessageID, msg.ID).
		Str(logging.FieldTempID, msg.TempID).
		Stringer("outcome", outcome).
		Msg("message reconciled")
	return outcome
}

// Keystroke records local typing. It returns the token of the idle timer the
// caller must arm; when it fires, pass the token to TypingExpired.
func (c *Controller) Keystroke() (uint64, error) {
	if c.state != StateReady || c.active == nil {
		return 0, ErrNotReady
	}
	start, token := c.typing.Keystroke()
	if start {
		c.emit(live.EventTyping, c.active.ID)
	}
	return token, nil
}

// TypingExpired ends the typing signal if token is the latest timer.
func (c *Controller) TypingExpired(token uint64) bool {
	if !c.typing.Expire(token) {
		return false
	}
	if c.active != nil {
		c.emit(live.EventStopTyping, c.active.ID)
	}
	return true
}

// RemoteTyping applies a userTyping/userStopTyping event.
func (c *Controller) RemoteTyping(chatID string, typing bool) bool {
	if c.active == nil || chatID != c.active.ID {
		return false
	}
	c.peerTyping = typing
	return true
}

// Rejoin re-announces the identity and the active room after the live channel
// reconnects or when the roster should be refreshed.
func (c *Controller) Rejoin() {
	if self, ok := c.identity.User(); ok {
		c.emit(live.EventSetup, self)
	}
	if c.active != nil {
		c.emit(live.EventJoinChat, c.active.ID)
	}
}

func (c *Controller) stopTyping() {
	if c.typing.Reset() && c.active != nil {
		c.emit(live.EventStopTyping, c.active.ID)
	}
}

func (c *Controller) emit(event string, data any) {
	if err := c.emitter.Emit(event, data); err != nil {
		c.log.Warn().Err(err).Str(logging.FieldEvent, event).Msg("failed to emit event")
	}
}
