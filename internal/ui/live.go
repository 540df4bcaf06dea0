package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brimoraa/plpchat/internal/live"
	"github.com/brimoraa/plpchat/internal/logging"
	"github.com/brimoraa/plpchat/internal/models"
)

type liveEventMsg struct {
	conn *live.Conn
	env  live.Envelope
}

type liveClosedMsg struct {
	conn *live.Conn
}

type rosterTickMsg struct {
	conn *live.Conn
}

type typingExpiredMsg struct {
	token uint64
}

// listen waits for the next event on conn.
func listen(conn *live.Conn) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-conn.Events()
		if !ok {
			return liveClosedMsg{conn: conn}
		}
		return liveEventMsg{conn: conn, env: env}
	}
}

func rosterTick(conn *live.Conn, every time.Duration) tea.Cmd {
	if every <= 0 {
		return nil
	}
	return tea.Tick(every, func(time.Time) tea.Msg {
		return rosterTickMsg{conn: conn}
	})
}

func typingTimer(idle time.Duration, token uint64) tea.Cmd {
	return tea.Tick(idle, func(time.Time) tea.Msg {
		return typingExpiredMsg{token: token}
	})
}

// apply folds a live event into the controller, list and presence map. It
// reports true when the channel rejected the credential.
func (d *Deps) apply(env live.Envelope) bool {
	if d.Chat == nil {
		return false
	}
	log := d.log.With().Str(logging.FieldEvent, env.Event).Logger()

	switch env.Event {
	case live.EventLinkUp:
		d.up = true
		d.link = live.LinkStatus{}
		d.Chat.Rejoin()

	case live.EventLinkDown:
		d.up = false
		st, err := live.Decode[live.LinkStatus](env)
		if err != nil {
			log.Warn().Err(err).Msg("bad link status")
			return false
		}
		d.link = st
		return st.Unauthorized

	case live.EventConnected:
		log.Debug().Msg("server acknowledged setup")

	case live.EventOnlineUsers:
		ids, err := live.Decode[[]string](env)
		if err != nil {
			log.Warn().Err(err).Msg("dropping event")
			return false
		}
		d.Chat.Presence().Replace(ids)

	case live.EventPresenceUpdate:
		p, err := live.Decode[live.PresencePayload](env)
		if err != nil {
			log.Warn().Err(err).Msg("dropping event")
			return false
		}
		d.Chat.Presence().Set(p.UserID, p.IsOnline)

	case live.EventMessageReceived:
		msg, err := live.Decode[models.Message](env)
		if err != nil {
			log.Warn().Err(err).Msg("dropping event")
			return false
		}
		d.Chat.Receive(msg)
		d.List.ApplyMessage(msg)

	case live.EventUserTyping, live.EventUserStopTyping:
		chatID, err := live.Decode[string](env)
		if err != nil {
			log.Warn().Err(err).Msg("dropping event")
			return false
		}
		d.Chat.RemoteTyping(chatID, env.Event == live.EventUserTyping)

	case live.EventChatUpdated:
		c, err := live.Decode[models.Chat](env)
		if err != nil {
			log.Warn().Err(err).Msg("dropping event")
			return false
		}
		d.List.Upsert(c)

	default:
		log.Debug().Msg("ignoring unknown event")
	}
	return false
}

// linkLabel describes the live channel for status lines.
func (d *Deps) linkLabel() string {
	switch {
	case d.Live == nil:
		return offlineStyle.Render("○ offline")
	case d.up:
		return onlineStyle.Render("● live")
	case d.link.Retrying:
		return offlineStyle.Render("◌ reconnecting…")
	case d.link.Reason != "":
		return errorStyle.Render("○ offline")
	default:
		return offlineStyle.Render("◌ connecting…")
	}
}
