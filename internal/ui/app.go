package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/brimoraa/plpchat/internal/api"
	"github.com/brimoraa/plpchat/internal/chat"
	"github.com/brimoraa/plpchat/internal/config"
	"github.com/brimoraa/plpchat/internal/live"
	"github.com/brimoraa/plpchat/internal/logging"
	"github.com/brimoraa/plpchat/internal/session"
)

// Deps is shared by every screen. The live channel, controller and list exist
// only while a session is authenticated.
type Deps struct {
	Config  *config.Config
	Session *session.Session
	API     *api.Client
	IDs     *chat.IDGenerator

	Live *live.Conn
	Chat *chat.Controller
	List *chat.List

	link live.LinkStatus
	up   bool
	log  zerolog.Logger
}

func NewDeps(cfg *config.Config, sess *session.Session) *Deps {
	return &Deps{
		Config:  cfg,
		Session: sess,
		API:     api.New(cfg.Server.URL, cfg.Server.Timeout, sess),
		IDs:     chat.NewIDGenerator(),
		List:    chat.NewList(),
		log:     logging.Component("ui"),
	}
}

// connect opens the live channel for the current credential and returns the
// commands that pump its events into the program.
func (d *Deps) connect() tea.Cmd {
	d.disconnect()

	conn := live.New(d.Config.Live, d.Session)
	d.Live = conn
	d.Chat = chat.NewController(d.Session, conn, d.IDs)
	d.List = chat.NewList()
	d.up = false
	d.link = live.LinkStatus{}

	conn.Start(context.Background())
	return tea.Batch(listen(conn), rosterTick(conn, d.Config.Presence.RefreshInterval))
}

func (d *Deps) disconnect() {
	if d.Live != nil {
		d.Live.Close()
		d.Live = nil
	}
	d.Chat = nil
	d.up = false
}

func (d *Deps) logout() {
	if d.Chat != nil {
		d.Chat.Close()
	}
	d.disconnect()
	d.List = chat.NewList()
	d.Session.Logout()
	d.log.Info().Msg("logged out")
}

// Close releases the live channel.
func (d *Deps) Close() {
	d.disconnect()
}

func (d *Deps) selfID() string {
	if u, ok := d.Session.User(); ok {
		return u.ID
	}
	return ""
}

// authExpiredMsg routes every screen back to login.
type authExpiredMsg struct{}

// check converts a rejected credential into authExpiredMsg so screens only
// see the errors they can act on.
func check(err error, ok tea.Msg) tea.Msg {
	if errors.Is(err, api.ErrUnauthorized) {
		return authExpiredMsg{}
	}
	return ok
}

// App hosts the current screen and handles program-wide messages: the live
// channel, typing timers and expired sessions.
type App struct {
	deps   *Deps
	screen tea.Model
	width  int
	height int
}

func NewApp(deps *Deps) App {
	return App{deps: deps, screen: NewSplashModel(deps)}
}

func (a App) Init() tea.Cmd {
	return a.screen.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height

	case authExpiredMsg:
		a.deps.logout()
		login := NewLoginModel(a.deps)
		login.notice = "Your session has expired. Please log in again."
		screen, cmd := sized(login, a.width, a.height)
		a.screen = screen
		return a, cmd

	case liveEventMsg:
		if msg.conn != a.deps.Live {
			return a, nil
		}
		if a.deps.apply(msg.env) {
			return a.Update(authExpiredMsg{})
		}
		cmds = append(cmds, listen(msg.conn))

	case liveClosedMsg:
		if msg.conn != a.deps.Live {
			return a, nil
		}
		a.deps.up = false

	case rosterTickMsg:
		if msg.conn != a.deps.Live {
			return a, nil
		}
		if a.deps.up && a.deps.Chat != nil {
			a.deps.Chat.Rejoin()
		}
		cmds = append(cmds, rosterTick(msg.conn, a.deps.Config.Presence.RefreshInterval))
		return a, tea.Batch(cmds...)

	case historyMsg:
		a.deps.applyHistory(msg)

	case uploadedMsg:
		a.deps.applyUpload(msg)

	case typingExpiredMsg:
		if a.deps.Chat != nil {
			a.deps.Chat.TypingExpired(msg.token)
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.screen, cmd = a.screen.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a App) View() string {
	return a.screen.View()
}

// sized hands the new screen the current window size before it starts.
func sized(m tea.Model, width, height int) (tea.Model, tea.Cmd) {
	if width > 0 {
		m, _ = m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	}
	return m, m.Init()
}
