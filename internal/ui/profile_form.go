package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brimoraa/plpchat/internal/api"
	"github.com/brimoraa/plpchat/internal/models"
)

type profileLoadedMsg struct {
	user *models.User
	err  error
}

type profileSavedMsg struct {
	user *models.User
	err  error
}

type ProfileFormModel struct {
	deps          *Deps
	usernameInput textinput.Model
	emailInput    textinput.Model
	focusIndex    int
	loading       bool
	saving        bool
	spinner       spinner.Model
	err           error
	windowWidth   int
	windowHeight  int
}

func NewProfileFormModel(deps *Deps) ProfileFormModel {
	usernameInput := textinput.New()
	usernameInput.Placeholder = "Username"
	usernameInput.Focus()
	usernameInput.CharLimit = 64
	usernameInput.Width = 50

	emailInput := textinput.New()
	emailInput.Placeholder = "Email"
	emailInput.CharLimit = 100
	emailInput.Width = 50

	if u, ok := deps.Session.User(); ok {
		usernameInput.SetValue(u.Username)
		emailInput.SetValue(u.Email)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return ProfileFormModel{
		deps:          deps,
		usernameInput: usernameInput,
		emailInput:    emailInput,
		loading:       true,
		spinner:       s,
	}
}

func (m ProfileFormModel) Init() tea.Cmd {
	client := m.deps.API
	return tea.Batch(m.spinner.Tick, textinput.Blink, func() tea.Msg {
		u, err := client.GetMe(context.Background())
		return check(err, profileLoadedMsg{user: u, err: err})
	})
}

func (m ProfileFormModel) saveCmd(update api.ProfileUpdate) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		u, err := client.UpdateMe(context.Background(), update)
		return check(err, profileSavedMsg{user: u, err: err})
	}
}

func (m ProfileFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case profileLoadedMsg:
		m.loading = false
		if msg.err != nil {
			// The cached identity is still shown.
			m.err = fmt.Errorf("could not load profile: %w", msg.err)
			return m, nil
		}
		m.deps.Session.UpdateUser(*msg.user)
		m.usernameInput.SetValue(msg.user.Username)
		m.emailInput.SetValue(msg.user.Email)
		return m, nil

	case profileSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.err = fmt.Errorf("could not save profile: %w", msg.err)
			return m, nil
		}
		m.deps.Session.UpdateUser(*msg.user)
		menu := NewMenuModel(m.deps)
		menu.status = "Profile updated."
		return sized(menu, m.windowWidth, m.windowHeight)

	case spinner.TickMsg:
		if m.loading || m.saving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.saving {
			return m, nil
		}

		switch msg.String() {
		case "esc":
			return sized(NewMenuModel(m.deps), m.windowWidth, m.windowHeight)

		case "tab", "shift+tab", "up", "down":
			m.focusIndex = (m.focusIndex + 1) % 2
			if m.focusIndex == 0 {
				m.emailInput.Blur()
				cmd := m.usernameInput.Focus()
				return m, cmd
			}
			m.usernameInput.Blur()
			cmd := m.emailInput.Focus()
			return m, cmd

		case "ctrl+s", "enter":
			username := strings.TrimSpace(m.usernameInput.Value())
			if username == "" {
				m.err = fmt.Errorf("username is required")
				return m, nil
			}
			m.err = nil
			m.saving = true
			update := api.ProfileUpdate{
				Username: username,
				Email:    strings.TrimSpace(m.emailInput.Value()),
			}
			return m, tea.Batch(m.spinner.Tick, m.saveCmd(update))
		}
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.emailInput, cmd = m.emailInput.Update(msg)
	}
	return m, cmd
}

func (m ProfileFormModel) View() string {
	content := titleStyle.Render("Profile") + "\n"
	if u, ok := m.deps.Session.User(); ok {
		content += helpStyle.Render("id "+u.ID) + "\n\n"
	}

	content += formStyle.Render(
		label("Username:", m.focusIndex == 0) + "\n" +
			m.usernameInput.View() + "\n\n" +
			label("Email:", m.focusIndex == 1) + "\n" +
			m.emailInput.View(),
	)

	if m.loading {
		content += fmt.Sprintf("\n\n  %s Refreshing profile...", m.spinner.View())
	}
	if m.saving {
		content += fmt.Sprintf("\n\n  %s Saving...", m.spinner.View())
	}
	if m.err != nil {
		content += "\n\n" + errorStyle.Render("Error: "+m.err.Error())
	}

	content += "\n\n" + helpStyle.Render("tab: switch field • ctrl+s: save • esc: back")
	return content
}
