package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brimoraa/plpchat/internal/api"
	"github.com/brimoraa/plpchat/internal/models"
)

type loggedInMsg struct {
	resp *models.LoginResponse
	err  error
}

type LoginModel struct {
	deps          *Deps
	usernameInput textinput.Model
	passwordInput textinput.Model
	focusIndex    int
	spinner       spinner.Model
	submitting    bool
	notice        string
	err           error
	windowWidth   int
	windowHeight  int
}

func NewLoginModel(deps *Deps) LoginModel {
	usernameInput := textinput.New()
	usernameInput.Placeholder = "Username"
	usernameInput.Focus()
	usernameInput.CharLimit = 64
	usernameInput.Width = 40

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'
	passwordInput.CharLimit = 128
	passwordInput.Width = 40

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return LoginModel{
		deps:          deps,
		usernameInput: usernameInput,
		passwordInput: passwordInput,
		spinner:       s,
	}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) loginCmd(username, password string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		resp, err := client.Login(context.Background(), username, password)
		return loggedInMsg{resp: resp, err: err}
	}
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case loggedInMsg:
		if msg.err != nil {
			m.submitting = false
			m.err = loginError(msg.err)
			m.passwordInput.SetValue("")
			return m, nil
		}
		m.deps.Session.Login(msg.resp.Token, *msg.resp.User)
		return m, tea.Batch(m.deps.connect(), bootstrapCmd(m.deps))

	case bootstrapMsg:
		m.deps.applyBootstrap(msg)
		chatModel := NewChatModel(m.deps)
		if msg.err != nil {
			chatModel.err = msg.err
		}
		return sized(chatModel, m.windowWidth, m.windowHeight)

	case spinner.TickMsg:
		if m.submitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab", "shift+tab", "up", "down":
			m.focusIndex = (m.focusIndex + 1) % 2
			if m.focusIndex == 0 {
				m.passwordInput.Blur()
				cmd := m.usernameInput.Focus()
				return m, cmd
			}
			m.usernameInput.Blur()
			cmd := m.passwordInput.Focus()
			return m, cmd

		case "enter":
			username := strings.TrimSpace(m.usernameInput.Value())
			password := m.passwordInput.Value()
			if username == "" {
				m.focusIndex = 0
				m.passwordInput.Blur()
				cmd := m.usernameInput.Focus()
				return m, cmd
			}
			if password == "" {
				m.focusIndex = 1
				m.usernameInput.Blur()
				cmd := m.passwordInput.Focus()
				return m, cmd
			}
			m.err = nil
			m.notice = ""
			m.submitting = true
			return m, tea.Batch(m.spinner.Tick, m.loginCmd(username, password))
		}
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func loginError(err error) error {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("invalid username or password")
	case errors.As(err, &apiErr):
		return errors.New(apiErr.Message)
	case errors.Is(err, api.ErrNetwork):
		return errors.New("cannot reach the chat server")
	}
	return err
}

func (m LoginModel) View() string {
	content := titleStyle.Render("plpchat") + "\n"

	if m.notice != "" {
		content += statusStyle.Render(m.notice) + "\n\n"
	}

	content += formStyle.Render(
		label("Username:", m.focusIndex == 0) + "\n" +
			m.usernameInput.View() + "\n\n" +
			label("Password:", m.focusIndex == 1) + "\n" +
			m.passwordInput.View(),
	)

	if m.submitting {
		content += fmt.Sprintf("\n\n  %s Signing in...", m.spinner.View())
	}
	if m.err != nil {
		content += "\n\n" + errorStyle.Render("Error: "+m.err.Error())
	}

	content += "\n\n" + helpStyle.Render("tab: switch field • enter: log in • esc: quit")
	return content
}
