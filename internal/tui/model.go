package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grimm.is/routepin/internal/brand"
	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/reconciler"
)

// Engine is the part of the reconciler the TUI drives.
type Engine interface {
	Submit(op reconciler.Operation) <-chan reconciler.Result
	CurrentGatewayDisplay() string
	CurrentRouteView() []string
}

type focus int

const (
	focusInput focus = iota
	focusRoutes
)

const (
	maxNotices = 200
	logLines   = 100
)

// Model is the main application state
type Model struct {
	engine Engine

	input    textinput.Model
	password textinput.Model
	routes   table.Model
	log      viewport.Model

	notices  []string
	gateway  string
	focus    focus
	pending  int
	showLogs bool

	// logs returns the most recent n log entries.
	logs func(n int) []logging.Entry

	// credReply is set while the password modal is open.
	credReply chan<- CredentialReply

	Width  int
	Height int
}

// NewModel creates the initial model, seeded from the engine's current view.
func NewModel(engine Engine) Model {
	in := textinput.New()
	in.Placeholder = "example.com; 10.0.0.5; 10.8.0.0/16"
	in.Prompt = "› "
	in.PromptStyle = StyleInputPrompt
	in.Focus()

	pw := textinput.New()
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.Prompt = "› "

	t := table.New(
		table.WithColumns([]table.Column{{Title: "Live routes via gateway", Width: 72}}),
		table.WithHeight(8),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorDeep).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorIce).
		Background(ColorDeep).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		engine:   engine,
		input:    in,
		password: pw,
		routes:   t,
		log:      viewport.New(72, 6),
		gateway:  engine.CurrentGatewayDisplay(),
		logs:     logging.Buffer().GetLast,
	}
	m.setRoutes(engine.CurrentRouteView())
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case GatewayMsg:
		m.gateway = msg.Gateway
		return m, nil

	case RoutesMsg:
		m.setRoutes(msg.Lines)
		return m, nil

	case NoticeMsg:
		m.addNotice(msg)
		return m, nil

	case CredentialRequestMsg:
		m.credReply = msg.Reply
		m.password.Reset()
		m.input.Blur()
		m.routes.Blur()
		cmd := m.password.Focus()
		return m, cmd

	case resultMsg:
		if m.pending > 0 {
			m.pending--
		}
		return m, nil

	case tea.KeyMsg:
		if m.credReply != nil {
			return m.updateCredential(msg)
		}
		return m.updateKeys(msg)
	}

	return m.forward(msg)
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.toggleFocus()
		return m, nil
	}

	if m.focus == focusInput {
		switch msg.String() {
		case "enter":
			text := m.input.Value()
			m.input.Reset()
			cmd := m.submit(reconciler.AddOp(text))
			return m, cmd
		case "ctrl+d":
			text := m.input.Value()
			m.input.Reset()
			cmd := m.submit(reconciler.DeleteOp(text))
			return m, cmd
		}
		return m.forward(msg)
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "x", "delete":
		if dest := m.selectedDestination(); dest != "" {
			cmd := m.submit(reconciler.DeleteLiteralOp(dest))
			return m, cmd
		}
		return m, nil
	case "r":
		cmd := m.submit(reconciler.RefreshOp())
		return m, cmd
	case "l":
		m.showLogs = !m.showLogs
		m.renderPane()
		return m, nil
	}
	return m.forward(msg)
}

func (m Model) updateCredential(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		secret := m.password.Value()
		m.answer(CredentialReply{Secret: secret, OK: secret != ""})
		return m, nil
	case "esc", "ctrl+c":
		m.answer(CredentialReply{})
		return m, nil
	}
	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	return m, cmd
}

func (m *Model) answer(r CredentialReply) {
	m.credReply <- r
	m.credReply = nil
	m.password.Reset()
	m.password.Blur()
	m.focus = focusInput
	m.input.Focus()
}

func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusInput:
		m.input, cmd = m.input.Update(msg)
	case focusRoutes:
		m.routes, cmd = m.routes.Update(msg)
	}
	var vcmd tea.Cmd
	m.log, vcmd = m.log.Update(msg)
	return m, tea.Batch(cmd, vcmd)
}

// submit enqueues op now, so operations keep the order the user issued them,
// and waits for the result in a command.
func (m *Model) submit(op reconciler.Operation) tea.Cmd {
	m.pending++
	ch := m.engine.Submit(op)
	return func() tea.Msg {
		return resultMsg{Result: <-ch}
	}
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusRoutes
		m.input.Blur()
		m.routes.Focus()
		return
	}
	m.focus = focusInput
	m.routes.Blur()
	m.input.Focus()
}

func (m Model) selectedDestination() string {
	row := m.routes.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	fields := strings.Fields(row[0])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (m *Model) setRoutes(lines []string) {
	rows := make([]table.Row, len(lines))
	for i, l := range lines {
		rows[i] = table.Row{l}
	}
	m.routes.SetRows(rows)
	switch c := m.routes.Cursor(); {
	case len(rows) == 0:
	case c < 0:
		m.routes.SetCursor(0)
	case c >= len(rows):
		m.routes.SetCursor(len(rows) - 1)
	}
}

func (m *Model) addNotice(n NoticeMsg) {
	mark := StyleStatusGood.Render("✓")
	if n.Error {
		mark = StyleStatusBad.Render("✗")
	}
	m.notices = append(m.notices, fmt.Sprintf("%s %s %s", mark, StyleSubtitle.Render(n.Context+":"), n.Detail))
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	m.renderPane()
}

// renderPane fills the bottom pane with notices, or recent log lines when
// the log view is toggled on.
func (m *Model) renderPane() {
	if !m.showLogs {
		m.log.SetContent(strings.Join(m.notices, "\n"))
		m.log.GotoBottom()
		return
	}
	entries := m.logs(logLines)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %-5s %s", e.Timestamp.Format("15:04:05"), e.Level, e.Message))
	}
	m.log.SetContent(strings.Join(lines, "\n"))
	m.log.GotoBottom()
}

func (m *Model) resize(w, h int) {
	m.Width, m.Height = w, h
	inner := max(20, w-10)

	m.input.Width = inner - 4
	m.routes.SetColumns([]table.Column{{Title: "Live routes via gateway", Width: inner}})
	tableHeight := max(3, h/2-6)
	m.routes.SetHeight(tableHeight)
	m.log.Width = inner
	m.log.Height = max(3, h-tableHeight-16)
}

// View renders the UI
func (m Model) View() string {
	title := StyleTitle.Render(brand.Name) + "  " + StyleSubtitle.Render(brand.Tagline)

	gwStyle := StyleStatusGood
	if m.gateway == "" || m.gateway == "None" {
		gwStyle = StyleStatusBad
	}
	status := "Current gateway: " + gwStyle.Render(m.gateway)
	if m.pending > 0 {
		status += "  " + StyleStatusWarn.Render(fmt.Sprintf("working (%d)", m.pending))
	}

	inputCard, routesCard := StyleCard, StyleCard
	if m.focus == focusInput {
		inputCard = StyleActiveCard
	} else {
		routesCard = StyleActiveCard
	}

	help := StyleMenuKey.Render("enter add • ctrl+d delete • tab switch pane • x delete selected • r refresh • l logs • ctrl+c quit")

	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		status,
		inputCard.Render("Hosts (separated by ;)\n"+m.input.View()),
		routesCard.Render(m.routes.View()),
		StyleCard.Render(m.paneTitle()+"\n"+m.log.View()),
		help,
	)

	if m.credReply != nil {
		modal := StyleModal.Render("sudo password\n\n" + m.password.View() + "\n\n" +
			StyleMenuKey.Render("enter confirm • esc cancel"))
		if m.Width > 0 && m.Height > 0 {
			return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, modal)
		}
		return StyleApp.Render(lipgloss.JoinVertical(lipgloss.Left, body, modal))
	}
	return StyleApp.Render(body)
}

func (m Model) paneTitle() string {
	if m.showLogs {
		return StyleSubtitle.Render("Log")
	}
	return StyleSubtitle.Render("Messages")
}
