package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/brimoraa/plpchat/internal/api"
	"github.com/brimoraa/plpchat/internal/chat"
	"github.com/brimoraa/plpchat/internal/models"
)

const sidebarWidth = 34

type chatItem struct {
	chat   models.Chat
	title  string
	detail string
}

func (i chatItem) Title() string       { return i.title }
func (i chatItem) Description() string { return i.detail }
func (i chatItem) FilterValue() string { return i.title }

func newChatItem(c models.Chat, selfID string, presence *chat.Presence) chatItem {
	title := c.DisplayName(selfID)
	if peer, ok := c.Peer(selfID); ok && presence != nil {
		if presence.IsOnline(peer.ID) {
			title = "● " + title
		} else {
			title = "○ " + title
		}
	} else if c.IsGroup {
		title = "# " + title
	}

	when := "new"
	if !c.UpdatedAt.IsZero() {
		when = humanize.Time(c.UpdatedAt)
	}
	detail := when
	if preview := c.Preview(); preview != "" {
		detail = truncate.StringWithTail(when+" • "+preview, uint(sidebarWidth-4), "…")
	}
	return chatItem{chat: c, title: title, detail: detail}
}

type chatRestoredMsg struct {
	chat *models.Chat
	err  error
}

type historyMsg struct {
	gen      uint64
	messages []models.Message
	err      error
}

type uploadedMsg struct {
	gen uint64
	msg *models.Message
	err error
}

type chatsRefreshedMsg struct {
	chats []models.Chat
	err   error
}

// ChatModel is the main screen: the conversation sidebar on the left and the
// active conversation on the right.
type ChatModel struct {
	deps         *Deps
	sidebar      list.Model
	search       textinput.Model
	searching    bool
	viewport     viewport.Model
	textarea     textarea.Model
	attachInput  textinput.Model
	attaching    bool
	focus        models.ViewMode
	spinner      spinner.Model
	restoring    bool
	err          error
	windowWidth  int
	windowHeight int
}

func NewChatModel(deps *Deps) ChatModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("5")).
		Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.Color("8"))

	l := list.New([]list.Item{}, delegate, sidebarWidth, 20)
	l.Title = "Chats"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	search := textinput.New()
	search.Placeholder = "Search chats"
	search.Prompt = "/ "
	search.CharLimit = 64
	search.Width = sidebarWidth - 4

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	attach := textinput.New()
	attach.Placeholder = "Path to file, e.g. ~/Pictures/cat.png"
	attach.Prompt = "📎 "
	attach.CharLimit = 512

	m := ChatModel{
		deps:         deps,
		sidebar:      l,
		search:       search,
		viewport:     viewport.New(60, 20),
		textarea:     ta,
		attachInput:  attach,
		focus:        models.ViewList,
		spinner:      s,
		windowWidth:  100,
		windowHeight: 30,
	}

	if ctrl := deps.Chat; ctrl != nil {
		switch {
		case ctrl.State() != chat.StateNoActive:
			m.focus = models.ViewDetail
			m.textarea.Focus()
		case deps.Session.ActiveChatID() != "":
			m.restoring = true
		}
	}

	m.layout()
	m.refreshSidebar()
	m.refreshMessages()
	m.viewport.GotoBottom()
	return m
}

func (m ChatModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.restoring {
		cmds = append(cmds, restoreChatCmd(m.deps.API, m.deps.Session.ActiveChatID()))
	}
	if m.focus == models.ViewDetail {
		cmds = append(cmds, textarea.Blink)
	}
	return tea.Batch(cmds...)
}

func restoreChatCmd(client *api.Client, chatID string) tea.Cmd {
	return func() tea.Msg {
		c, err := client.GetChat(context.Background(), chatID)
		if err == nil {
			err = c.Validate()
		}
		return check(err, chatRestoredMsg{chat: c, err: err})
	}
}

func historyCmd(client *api.Client, gen uint64, chatID string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := client.GetMessages(context.Background(), chatID)
		return check(err, historyMsg{gen: gen, messages: msgs, err: err})
	}
}

func uploadCmd(client *api.Client, gen uint64, chatID, caption, file string) tea.Cmd {
	return func() tea.Msg {
		msg, err := client.SendAttachment(context.Background(), chatID, caption, file)
		return check(err, uploadedMsg{gen: gen, msg: msg, err: err})
	}
}

func refreshChatsCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		chats, err := client.GetChats(context.Background())
		return check(err, chatsRefreshedMsg{chats: chats, err: err})
	}
}

// applyHistory installs a history response. It runs for every screen so a
// load finishing after the user navigated away still settles the controller.
func (d *Deps) applyHistory(msg historyMsg) {
	if d.Chat == nil {
		return
	}
	if msg.err != nil {
		if d.Chat.HistoryFailed(msg.gen, msg.err) {
			d.Session.ClearActiveChatID()
		}
		return
	}
	d.Chat.HistoryLoaded(msg.gen, msg.messages)
}

func (d *Deps) applyUpload(msg uploadedMsg) {
	if d.Chat == nil {
		return
	}
	if msg.err != nil {
		d.Chat.UploadFailed(msg.gen, msg.err)
		return
	}
	d.Chat.UploadDone(msg.gen, *msg.msg)
	d.List.ApplyMessage(*msg.msg)
}

// openChat switches to the chat screen with c as the active conversation.
func openChat(d *Deps, c models.Chat, width, height int) (tea.Model, tea.Cmd) {
	m := NewChatModel(d)
	cmd := m.open(c)
	next, initCmd := sized(m, width, height)
	return next, tea.Batch(cmd, initCmd)
}

func (m *ChatModel) open(c models.Chat) tea.Cmd {
	if m.deps.Chat == nil {
		return nil
	}
	gen := m.deps.Chat.Open(c)
	m.deps.Session.SetActiveChatID(c.ID)
	m.focus = models.ViewDetail
	m.attaching = false
	m.err = nil
	m.textarea.Reset()
	m.layout()
	m.refreshMessages()
	return tea.Batch(m.spinner.Tick, historyCmd(m.deps.API, gen, c.ID), m.textarea.Focus())
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.layout()
		m.refreshMessages()
		return m, nil

	case chatRestoredMsg:
		m.restoring = false
		if msg.err != nil {
			m.deps.log.Warn().Err(msg.err).Msg("dropping stale active conversation")
			m.deps.Session.ClearActiveChatID()
			return m, nil
		}
		m.deps.List.Upsert(*msg.chat)
		m.refreshSidebar()
		cmd := m.open(*msg.chat)
		return m, cmd

	case historyMsg:
		ctrl := m.deps.Chat
		if ctrl == nil || msg.gen != ctrl.Generation() {
			return m, nil
		}
		if msg.err != nil && ctrl.State() == chat.StateNoActive {
			m.focus = models.ViewList
			m.textarea.Blur()
			m.err = fmt.Errorf("could not load conversation: %w", msg.err)
			return m, nil
		}
		m.refreshMessages()
		m.viewport.GotoBottom()
		return m, nil

	case uploadedMsg:
		if ctrl := m.deps.Chat; ctrl == nil || msg.gen != ctrl.Generation() {
			m.refreshSidebar()
			return m, nil
		}
		if msg.err != nil {
			m.err = fmt.Errorf("attachment not sent: %w", msg.err)
			return m, nil
		}
		m.refreshSidebar()
		m.refreshMessages()
		m.viewport.GotoBottom()
		return m, nil

	case chatsRefreshedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("could not refresh chats: %w", msg.err)
			return m, nil
		}
		m.err = nil
		m.deps.List.Set(msg.chats)
		m.refreshSidebar()
		return m, nil

	case liveEventMsg, liveClosedMsg:
		m.refreshSidebar()
		m.refreshMessages()
		return m, nil

	case spinner.TickMsg:
		if m.restoring || m.loading() || m.uploading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus == models.ViewDetail {
			return m.updateDetail(msg)
		}
		return m.updateSidebar(msg)
	}

	return m, nil
}

func (m ChatModel) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Reset()
			m.search.Blur()
			m.refreshSidebar()
			return m, nil
		case "enter", "down", "up":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.refreshSidebar()
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "esc":
		return sized(NewMenuModel(m.deps), m.windowWidth, m.windowHeight)

	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd

	case "n":
		return sized(NewDirectoryModel(m.deps), m.windowWidth, m.windowHeight)

	case "g":
		return sized(NewGroupFormModel(m.deps), m.windowWidth, m.windowHeight)

	case "r":
		return m, refreshChatsCmd(m.deps.API)

	case "tab", "right", "l":
		if m.deps.Chat != nil && m.deps.Chat.State() != chat.StateNoActive {
			m.focus = models.ViewDetail
			cmd := m.textarea.Focus()
			return m, cmd
		}
		return m, nil

	case "enter":
		item, ok := m.sidebar.SelectedItem().(chatItem)
		if !ok {
			return m, nil
		}
		if m.deps.Chat != nil && m.deps.Chat.ActiveID() == item.chat.ID && m.deps.Chat.State() != chat.StateNoActive {
			m.focus = models.ViewDetail
			cmd := m.textarea.Focus()
			return m, cmd
		}
		cmd := m.open(item.chat)
		return m, cmd
	}

	var cmd tea.Cmd
	m.sidebar, cmd = m.sidebar.Update(msg)
	return m, cmd
}

func (m ChatModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.attaching {
			m.attaching = false
			m.attachInput.Reset()
			m.attachInput.Blur()
			m.layout()
			cmd := m.textarea.Focus()
			return m, cmd
		}
		m.focus = models.ViewList
		m.textarea.Blur()
		return m, nil

	case "tab":
		m.focus = models.ViewList
		m.textarea.Blur()
		m.attachInput.Blur()
		return m, nil

	case "ctrl+a":
		m.attaching = !m.attaching
		m.layout()
		if m.attaching {
			m.textarea.Blur()
			cmd := m.attachInput.Focus()
			return m, cmd
		}
		m.attachInput.Blur()
		cmd := m.textarea.Focus()
		return m, cmd

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if m.attaching {
			return m.sendAttachment()
		}
		return m.sendText()
	}

	if m.attaching {
		var cmd tea.Cmd
		m.attachInput, cmd = m.attachInput.Update(msg)
		return m, cmd
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	if after := m.textarea.Value(); after != before && after != "" && m.deps.Chat != nil {
		if token, err := m.deps.Chat.Keystroke(); err == nil {
			cmd = tea.Batch(cmd, typingTimer(m.deps.Config.Typing.IdleTimeout, token))
		}
	}
	return m, cmd
}

func (m ChatModel) sendText() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" || m.deps.Chat == nil {
		return m, nil
	}

	sent, err := m.deps.Chat.Send(text)
	switch {
	case errors.Is(err, chat.ErrNotReady):
		m.err = errors.New("conversation is still loading")
		return m, nil
	case err != nil && sent.TempID == "":
		m.err = err
		return m, nil
	case err != nil:
		m.err = fmt.Errorf("message queued but not delivered: %w", err)
	default:
		m.err = nil
	}

	m.textarea.Reset()
	m.refreshMessages()
	m.viewport.GotoBottom()
	return m, nil
}

func (m ChatModel) sendAttachment() (tea.Model, tea.Cmd) {
	file := expandPath(strings.TrimSpace(m.attachInput.Value()))
	if file == "" || m.deps.Chat == nil {
		return m, nil
	}
	if _, err := os.Stat(file); err != nil {
		m.err = fmt.Errorf("cannot read %s", file)
		return m, nil
	}

	gen, chatID, err := m.deps.Chat.BeginUpload()
	if err != nil {
		m.err = err
		return m, nil
	}

	caption := strings.TrimSpace(m.textarea.Value())
	m.err = nil
	m.textarea.Reset()
	m.attachInput.Reset()
	m.attachInput.Blur()
	m.attaching = false
	m.layout()
	focus := m.textarea.Focus()
	return m, tea.Batch(m.spinner.Tick, focus, uploadCmd(m.deps.API, gen, chatID, caption, file))
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

func (m ChatModel) loading() bool {
	return m.deps.Chat != nil && m.deps.Chat.State() == chat.StateLoadingHistory
}

func (m ChatModel) uploading() bool {
	return m.deps.Chat != nil && m.deps.Chat.Uploading()
}

func (m *ChatModel) detailWidth() int {
	w := m.windowWidth - sidebarWidth - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m *ChatModel) paneHeight() int {
	h := m.windowHeight - 4
	if h < 10 {
		h = 10
	}
	return h
}

func (m *ChatModel) layout() {
	width := m.detailWidth()
	height := m.paneHeight()

	m.sidebar.SetSize(sidebarWidth, height-2)
	m.textarea.SetWidth(width)
	m.attachInput.Width = width - 4

	// header (2) + separator (1) + textarea (3)
	vpHeight := height - 6
	if m.attaching {
		vpHeight -= 2
	}
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
}

func (m *ChatModel) refreshSidebar() {
	selected := ""
	if item, ok := m.sidebar.SelectedItem().(chatItem); ok {
		selected = item.chat.ID
	}

	var presence *chat.Presence
	if m.deps.Chat != nil {
		presence = m.deps.Chat.Presence()
	}
	selfID := m.deps.selfID()
	chats := m.deps.List.Filter(m.search.Value(), selfID)

	items := make([]list.Item, len(chats))
	index := -1
	for i, c := range chats {
		items[i] = newChatItem(c, selfID, presence)
		if c.ID == selected {
			index = i
		}
	}
	m.sidebar.SetItems(items)
	if index >= 0 {
		m.sidebar.Select(index)
	}
	m.sidebar.Title = fmt.Sprintf("Chats (%d)", len(chats))
}

func (m *ChatModel) refreshMessages() {
	ctrl := m.deps.Chat
	if ctrl == nil || ctrl.State() != chat.StateReady {
		m.viewport.SetContent("")
		return
	}

	msgs := ctrl.Messages()
	if len(msgs) == 0 {
		m.viewport.SetContent(helpStyle.Render("No messages yet. Say hello!"))
		return
	}

	atBottom := m.viewport.AtBottom()
	width := m.viewport.Width
	if width <= 0 {
		width = 60
	}
	selfID := m.deps.selfID()
	active, _ := ctrl.Active()
	right := lipgloss.NewStyle().Align(lipgloss.Right).Width(width)

	var content strings.Builder
	for i, message := range msgs {
		if i > 0 {
			content.WriteString("\n")
		}
		timestamp := message.CreatedAt.Local().Format("3:04 PM")
		body := messageBody(message, width-10)

		if message.Sender.ID == selfID {
			header := messageHeaderStyle.Render(fmt.Sprintf("You • %s %s", timestamp, receipt(message)))
			content.WriteString(right.Render(header) + "\n")

			style := messageFromMeStyle
			if message.IsPending() {
				style = messagePendingStyle
			}
			content.WriteString(right.Render(style.Render(body)) + "\n")
			continue
		}

		sender := message.Sender.Username
		if sender == "" {
			sender = "Unknown"
		}
		if !active.IsGroup {
			sender = active.DisplayName(selfID)
		}
		header := messageHeaderStyle.Render(fmt.Sprintf("%s • %s", sender, timestamp))
		content.WriteString(header + "\n")
		content.WriteString(messageFromOtherStyle.Render(body) + "\n")
	}

	m.viewport.SetContent(content.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// receipt is the delivery marker shown on our own messages.
func receipt(msg models.Message) string {
	switch {
	case msg.IsPending():
		return "…"
	case msg.IsRead():
		return "✓✓"
	default:
		return "✓"
	}
}

func messageBody(msg models.Message, width int) string {
	if width < 10 {
		width = 10
	}
	var parts []string
	if msg.Content != "" {
		parts = append(parts, wordwrap.String(msg.Content, width))
	}
	if media := msg.Media; media != nil {
		name := media.Filename
		if name == "" {
			name = path.Base(media.URL)
		}
		line := "📎 " + name
		if media.Size > 0 {
			line += " (" + humanize.Bytes(uint64(media.Size)) + ")"
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}

func (m ChatModel) header() string {
	ctrl := m.deps.Chat
	if ctrl == nil {
		return titleStyle.Render("Offline")
	}
	active, ok := ctrl.Active()
	if !ok {
		if m.restoring {
			return fmt.Sprintf("%s Restoring last conversation...", m.spinner.View())
		}
		return helpStyle.Render("No active conversation. Pick one on the left.")
	}

	selfID := m.deps.selfID()
	title := selectedStyle.Render("💬 " + active.DisplayName(selfID))

	var status string
	switch {
	case ctrl.PeerTyping():
		status = statusStyle.Render("typing…")
	case active.IsGroup:
		status = offlineStyle.Render(fmt.Sprintf("%d members", len(active.Users)))
	default:
		if peer, ok := active.Peer(selfID); ok && ctrl.Presence().IsOnline(peer.ID) {
			status = onlineStyle.Render("online")
		} else {
			status = offlineStyle.Render("offline")
		}
	}
	return title + "\n" + status
}

func (m ChatModel) View() string {
	sidebar := m.sidebar.View()
	if m.searching || m.search.Value() != "" {
		sidebar = m.search.View() + "\n" + sidebar
	}
	leftStyle, rightStyle := activePaneStyle, paneStyle
	if m.focus == models.ViewDetail {
		leftStyle, rightStyle = paneStyle, activePaneStyle
	}
	height := m.paneHeight()
	left := leftStyle.Width(sidebarWidth).Height(height).Render(sidebar)

	var detail strings.Builder
	detail.WriteString(m.header() + "\n")
	switch {
	case m.loading():
		detail.WriteString(fmt.Sprintf("\n  %s Loading messages...\n", m.spinner.View()))
	case m.deps.Chat != nil && m.deps.Chat.State() == chat.StateReady:
		detail.WriteString(m.viewport.View() + "\n")
		if m.uploading() {
			detail.WriteString(fmt.Sprintf("%s Uploading attachment...\n", m.spinner.View()))
		} else {
			detail.WriteString(helpStyle.Render(strings.Repeat("─", m.detailWidth())) + "\n")
		}
		if m.attaching {
			detail.WriteString(inputStyle.Render("Attachment:") + "\n" + m.attachInput.View() + "\n")
		}
		detail.WriteString(m.textarea.View())
	}
	right := rightStyle.Width(m.detailWidth()).Height(height).Render(detail.String())

	s := lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n"
	if m.err != nil {
		s += errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	help := "↑↓: select • enter: open • /: search • n: new chat • g: new group • r: refresh • tab: conversation • esc: menu"
	if m.focus == models.ViewDetail {
		help = "enter: send • ctrl+a: attach file • pgup/pgdn: scroll • tab/esc: chats"
		if m.attaching {
			help = "enter: upload • esc: cancel"
		}
	}
	s += m.deps.linkLabel() + "  " + helpStyle.Render(help)
	return s
}
