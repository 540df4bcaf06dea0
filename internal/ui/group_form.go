package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brimoraa/plpchat/internal/chat"
	"github.com/brimoraa/plpchat/internal/models"
)

type groupCreatedMsg struct {
	chat *models.Chat
	err  error
}

const (
	groupFocusName = iota
	groupFocusSearch
	groupFocusMembers
	groupFocusCount
)

type GroupFormModel struct {
	deps         *Deps
	nameInput    textinput.Model
	search       textinput.Model
	members      list.Model
	users        []models.User
	selected     map[string]models.User
	focusIndex   int
	loading      bool
	saving       bool
	spinner      spinner.Model
	err          error
	windowWidth  int
	windowHeight int
}

func NewGroupFormModel(deps *Deps) GroupFormModel {
	nameInput := textinput.New()
	nameInput.Placeholder = "Group name"
	nameInput.Focus()
	nameInput.CharLimit = 100
	nameInput.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return GroupFormModel{
		deps:         deps,
		nameInput:    nameInput,
		search:       newUserSearch(),
		members:      newUserList("Members"),
		selected:     make(map[string]models.User),
		loading:      true,
		spinner:      s,
		windowWidth:  80,
		windowHeight: 30,
	}
}

func (m GroupFormModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, loadUsersCmd(m.deps.API))
}

func (m GroupFormModel) createCmd(name string, userIDs []string) tea.Cmd {
	client := m.deps.API
	return func() tea.Msg {
		c, err := client.CreateGroupChat(context.Background(), name, userIDs)
		if err == nil {
			err = c.Validate()
		}
		return check(err, groupCreatedMsg{chat: c, err: err})
	}
}

func (m GroupFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.members.SetWidth(msg.Width - 4)
		m.members.SetHeight(msg.Height - 14)
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

	case groupCreatedMsg:
		m.saving = false
		if msg.err != nil {
			m.err = fmt.Errorf("could not create group: %w", msg.err)
			return m, nil
		}
		m.deps.List.Upsert(*msg.chat)
		return openChat(m.deps, *msg.chat, m.windowWidth, m.windowHeight)

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
			return sized(NewChatModel(m.deps), m.windowWidth, m.windowHeight)

		case "tab", "shift+tab":
			if msg.String() == "tab" {
				m.focusIndex = (m.focusIndex + 1) % groupFocusCount
			} else {
				m.focusIndex = (m.focusIndex - 1 + groupFocusCount) % groupFocusCount
			}
			cmd := m.updateFocus()
			return m, cmd

		case "ctrl+s":
			return m.save()
		}

		if m.focusIndex == groupFocusMembers {
			if msg.String() == " " || msg.String() == "enter" {
				if item, ok := m.members.SelectedItem().(userItem); ok {
					if _, on := m.selected[item.user.ID]; on {
						delete(m.selected, item.user.ID)
					} else {
						m.selected[item.user.ID] = item.user
					}
					m.refresh()
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.members, cmd = m.members.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	switch m.focusIndex {
	case groupFocusName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case groupFocusSearch:
		before := m.search.Value()
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			m.refresh()
		}
	}
	return m, cmd
}

func (m *GroupFormModel) updateFocus() tea.Cmd {
	m.nameInput.Blur()
	m.search.Blur()
	switch m.focusIndex {
	case groupFocusName:
		return m.nameInput.Focus()
	case groupFocusSearch:
		return m.search.Focus()
	}
	return nil
}

func (m GroupFormModel) save() (tea.Model, tea.Cmd) {
	ids := make([]string, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	name := strings.TrimSpace(m.nameInput.Value())
	members, err := chat.GroupMembers(name, ids, m.deps.selfID())
	if err != nil {
		m.err = err
		return m, nil
	}

	m.err = nil
	m.saving = true
	return m, tea.Batch(m.spinner.Tick, m.createCmd(name, members))
}

func (m *GroupFormModel) refresh() {
	users := chat.FilterUsers(m.users, m.search.Value(), m.deps.selfID())
	var presence *chat.Presence
	if m.deps.Chat != nil {
		presence = m.deps.Chat.Presence()
	}
	items := make([]list.Item, len(users))
	for i, u := range users {
		_, on := m.selected[u.ID]
		items[i] = userItem{
			user:     u,
			online:   presence != nil && presence.IsOnline(u.ID),
			selected: on,
			checkbox: true,
		}
	}
	m.members.SetItems(items)
	m.members.Title = fmt.Sprintf("Members - %d selected", len(m.selected))
}

func (m GroupFormModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s Loading people...\n", m.spinner.View())
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("New Group") + "\n")
	b.WriteString(formStyle.Render(
		label("Name:", m.focusIndex == groupFocusName) + "\n" +
			m.nameInput.View() + "\n\n" +
			label("Find people:", m.focusIndex == groupFocusSearch) + "\n" +
			m.search.View(),
	) + "\n")

	b.WriteString(label("Members:", m.focusIndex == groupFocusMembers) + "\n")
	b.WriteString(m.members.View() + "\n")

	if m.saving {
		b.WriteString(fmt.Sprintf("  %s Creating group...\n", m.spinner.View()))
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	b.WriteString(helpStyle.Render("tab: switch field • space: toggle member • ctrl+s: create • esc: cancel"))
	return b.String()
}
