package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brimoraa/plpchat/internal/api"
	"github.com/brimoraa/plpchat/internal/chat"
	"github.com/brimoraa/plpchat/internal/models"
)

type userItem struct {
	user     models.User
	online   bool
	selected bool
	checkbox bool
}

func (i userItem) FilterValue() string { return i.user.Username }

func (i userItem) Title() string {
	title := i.user.Username
	if i.online {
		title = "● " + title
	} else {
		title = "○ " + title
	}
	if i.checkbox {
		if i.selected {
			return "[x] " + title
		}
		return "[ ] " + title
	}
	return title
}

func (i userItem) Description() string { return i.user.Email }

type usersLoadedMsg struct {
	users []models.User
	err   error
}

type chatAccessedMsg struct {
	chat *models.Chat
	err  error
}

func loadUsersCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		users, err := client.GetUsers(context.Background())
		return check(err, usersLoadedMsg{users: users, err: err})
	}
}

func newUserList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

func newUserSearch() textinput.Model {
	search := textinput.New()
	search.Placeholder = "Search by username or email"
	search.Prompt = "🔍 "
	search.CharLimit = 64
	search.Width = 50
	return search
}

// DirectoryModel lists every user so a direct conversation can be started.
type DirectoryModel struct {
	deps         *Deps
	list         list.Model
	search       textinput.Model
	users        []models.User
	loading      bool
	opening      bool
	spinner      spinner.Model
	err          error
	windowWidth  int
	windowHeight int
}

func NewDirectoryModel(deps *Deps) DirectoryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	search := newUserSearch()
	search.Focus()

	return DirectoryModel{
		deps:         deps,
		list:         newUserList("New chat"),
		search:       search,
		loading:      true,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m DirectoryModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, loadUsersCmd(m.deps.API))
}

func (m DirectoryModel) accessCmd(userID string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		c, err := client.AccessPrivateChat(context.Background(), userID)
		if err == nil {
			err = c.Validate()
		}
		return check(err, chatAccessedMsg{chat: c, err: err})
	}
}

func (m DirectoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 6)
		return m, nil

	case usersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.users = msg.users
		m.refresh()
		return m, nil

	case chatAccessedMsg:
		m.opening = false
		if msg.err != nil {
			m.err = fmt.Errorf("could not open chat: %w", msg.err)
			return m, nil
		}
		m.deps.List.Upsert(*msg.chat)
		return openChat(m.deps, *msg.chat, m.windowWidth, m.windowHeight)

	case liveEventMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.loading || m.opening {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			return sized(NewChatModel(m.deps), m.windowWidth, m.windowHeight)

		case "ctrl+r":
			if !m.loading {
				m.loading = true
				return m, tea.Batch(m.spinner.Tick, loadUsersCmd(m.deps.API))
			}
			return m, nil

		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd

		case "enter":
			if m.opening {
				return m, nil
			}
			item, ok := m.list.SelectedItem().(userItem)
			if !ok {
				return m, nil
			}
			m.opening = true
			m.err = nil
			return m, tea.Batch(m.spinner.Tick, m.accessCmd(item.user.ID))
		}

		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.refresh()
		return m, cmd
	}

	return m, nil
}

func (m *DirectoryModel) refresh() {
	var presence *chat.Presence
	if m.deps.Chat != nil {
		presence = m.deps.Chat.Presence()
	}
	users := chat.FilterUsers(m.users, m.search.Value(), m.deps.selfID())
	items := make([]list.Item, len(users))
	for i, u := range users {
		items[i] = userItem{user: u, online: presence != nil && presence.IsOnline(u.ID)}
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("New chat - %d people", len(users))
}

func (m DirectoryModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading people...\n", m.spinner.View())
	}

	s := m.search.View() + "\n\n"
	if len(m.list.Items()) == 0 {
		s += titleStyle.Render("New chat") + "\n"
		s += normalStyle.Render("  Nobody matches your search.") + "\n"
	} else {
		s += m.list.View() + "\n"
	}
	if m.opening {
		s += fmt.Sprintf("  %s Opening chat...\n", m.spinner.View())
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	s += helpStyle.Render("type to search • ↑↓: navigate • enter: start chat • ctrl+r: reload • esc: back")
	return s
}
