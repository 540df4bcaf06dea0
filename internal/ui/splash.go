package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type restoredMsg struct {
	ok bool
}

// SplashModel is shown while the persisted session is restored, so a user
// who is already logged in never sees the login form.
type SplashModel struct {
	deps         *Deps
	spinner      spinner.Model
	restoring    bool
	windowWidth  int
	windowHeight int
}

func NewSplashModel(deps *Deps) SplashModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return SplashModel{
		deps:      deps,
		spinner:   s,
		restoring: true,
	}
}

func (m SplashModel) Init() tea.Cmd {
	sess := m.deps.Session
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return restoredMsg{ok: sess.Restore()}
	})
}

func (m SplashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case restoredMsg:
		if !msg.ok {
			return sized(NewLoginModel(m.deps), m.windowWidth, m.windowHeight)
		}
		m.restoring = false
		return m, tea.Batch(m.deps.connect(), bootstrapCmd(m.deps))

	case bootstrapMsg:
		m.deps.applyBootstrap(msg)
		chatModel := NewChatModel(m.deps)
		if msg.err != nil {
			chatModel.err = msg.err
		}
		return sized(chatModel, m.windowWidth, m.windowHeight)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m SplashModel) View() string {
	if m.restoring {
		return fmt.Sprintf("\n  %s Restoring session...\n", m.spinner.View())
	}
	return fmt.Sprintf("\n  %s Loading conversations...\n", m.spinner.View())
}
