package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type menuAction int

const (
	actionConversations menuAction = iota
	actionNewChat
	actionNewGroup
	actionProfile
	actionLogout
)

type menuItem struct {
	title  string
	desc   string
	action menuAction
}

func (i menuItem) FilterValue() string { return i.title }
func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }

type MenuModel struct {
	deps         *Deps
	list         list.Model
	status       string
	windowWidth  int
	windowHeight int
}

func NewMenuModel(deps *Deps) MenuModel {
	items := []list.Item{
		menuItem{title: "💬 Conversations", desc: "Read and send messages", action: actionConversations},
		menuItem{title: "✉️  New chat", desc: "Start a conversation with someone", action: actionNewChat},
		menuItem{title: "👥 New group", desc: "Create a group conversation", action: actionNewGroup},
		menuItem{title: "🙂 Profile", desc: "Change your username or email", action: actionProfile},
		menuItem{title: "🚪 Log out", desc: "Forget this session on this machine", action: actionLogout},
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New(items, delegate, 80, 16)
	l.Title = "plpchat"
	if u, ok := deps.Session.User(); ok {
		l.Title = fmt.Sprintf("plpchat • %s", u.Username)
	}
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return MenuModel{
		deps:         deps,
		list:         l,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.list.SetWidth(msg.Width)
		m.list.SetHeight(msg.Height - 4)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

		if msg.String() == "esc" {
			return sized(NewChatModel(m.deps), m.windowWidth, m.windowHeight)
		}

		if msg.String() == "enter" {
			item, ok := m.list.SelectedItem().(menuItem)
			if !ok {
				return m, nil
			}

			switch item.action {
			case actionConversations:
				return sized(NewChatModel(m.deps), m.windowWidth, m.windowHeight)
			case actionNewChat:
				return sized(NewDirectoryModel(m.deps), m.windowWidth, m.windowHeight)
			case actionNewGroup:
				return sized(NewGroupFormModel(m.deps), m.windowWidth, m.windowHeight)
			case actionProfile:
				return sized(NewProfileFormModel(m.deps), m.windowWidth, m.windowHeight)
			case actionLogout:
				m.deps.logout()
				return sized(NewLoginModel(m.deps), m.windowWidth, m.windowHeight)
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m MenuModel) View() string {
	s := m.list.View() + "\n"
	if m.status != "" {
		s += statusStyle.Render(m.status) + "\n"
	}
	s += m.deps.linkLabel() + "  " + helpStyle.Render("↑↓/jk: navigate • enter: select • esc: conversations • q: quit")
	return s
}
