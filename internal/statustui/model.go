// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statustui

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// pollInterval is how often the model refreshes the status snapshot.
const pollInterval = 2 * time.Second

// focus identifies which region of the screen is accepting keystrokes.
type focus int

const (
	focusList focus = iota
	focusFilter
	focusSendForm
	focusHelp
)

// sendField identifies which field of the send form has the cursor.
type sendField int

const (
	fieldTo sendField = iota
	fieldType
	fieldPayload
)

// statusMsg carries the result of a poll, successful or not.
type statusMsg struct {
	snapshot StatusSnapshot
	err      error
}

// sendResultMsg carries the result of a submitted send form.
type sendResultMsg struct {
	result SendResult
	err    error
}

// tickMsg drives the poll ticker.
type tickMsg struct{}

// row is one rendered entry in the client table.
type row struct {
	id        string
	active    int
	queued    int
	canSendTo []string
}

// Model is the top-level bubbletea model for the status TUI.
type Model struct {
	client *Client

	width, height int
	ready         bool

	focus focus

	snapshot     StatusSnapshot
	rows         []row
	cursor       int
	lastErr      error
	lastPolledAt time.Time

	filterInput string

	// Send form state.
	sendField   sendField
	sendTo      string
	sendType    string
	sendPayload string
	sendStatus  string // transient feedback after submit
}

// NewModel builds a Model that will poll client against baseURL.
func NewModel(client *Client) Model {
	return Model{
		client:   client,
		focus:    focusList,
		sendType: "message",
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(pollOnce(m.client), tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func pollOnce(client *Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		snapshot, err := client.Status(ctx)
		return statusMsg{snapshot: snapshot, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = message.Width, message.Height
		m.ready = true

	case tickMsg:
		return m, tea.Batch(pollOnce(m.client), tickEvery())

	case statusMsg:
		m.lastPolledAt = time.Now()
		if message.err != nil {
			m.lastErr = message.err
		} else {
			m.lastErr = nil
			m.snapshot = message.snapshot
			m.rebuildRows()
		}

	case sendResultMsg:
		if message.err != nil {
			m.sendStatus = "error: " + message.err.Error()
		} else if !message.result.OK {
			m.sendStatus = "rejected: " + message.result.Error
		} else {
			m.sendStatus = "sent"
			m.focus = focusList
		}

	case tea.KeyMsg:
		return m.handleKey(message)
	}
	return m, nil
}

func (m *Model) rebuildRows() {
	rows := make([]row, 0, len(m.snapshot.Clients))
	for _, c := range m.snapshot.Clients {
		rows = append(rows, row{
			id:        c.ID,
			active:    m.snapshot.Active[c.ID],
			queued:    m.snapshot.Queued[c.ID],
			canSendTo: c.CanSendTo,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })
	m.rows = rows
	if m.cursor >= len(m.filteredRows()) {
		m.cursor = 0
	}
}

func (m *Model) filteredRows() []row {
	if m.filterInput == "" {
		return m.rows
	}
	out := make([]row, 0, len(m.rows))
	for _, r := range m.rows {
		if fuzzyMatch(r.id, m.filterInput) {
			out = append(out, r)
		}
	}
	return out
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusFilter:
		return m.handleFilterKey(key)
	case focusSendForm:
		return m.handleSendFormKey(key)
	case focusHelp:
		if key.String() == "?" || key.String() == "esc" || key.String() == "q" {
			m.focus = focusList
		}
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.focus = focusHelp
	case "/":
		m.focus = focusFilter
	case "esc":
		m.filterInput = ""
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.filteredRows())-1 {
			m.cursor++
		}
	case "s":
		filtered := m.filteredRows()
		if m.cursor < len(filtered) {
			m.focus = focusSendForm
			m.sendField = fieldTo
			m.sendStatus = ""
			m.sendPayload = "null"
		}
	}
	return m, nil
}

func (m Model) handleFilterKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.filterInput = ""
		m.focus = focusList
	case tea.KeyEnter:
		m.focus = focusList
	case tea.KeyBackspace:
		if len(m.filterInput) > 0 {
			runes := []rune(m.filterInput)
			m.filterInput = string(runes[:len(runes)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.filterInput += string(key.Runes)
		if key.Type == tea.KeySpace {
			m.filterInput += " "
		}
	}
	m.cursor = 0
	return m, nil
}

func (m Model) handleSendFormKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	field := func() *string {
		switch m.sendField {
		case fieldTo:
			return &m.sendTo
		case fieldType:
			return &m.sendType
		default:
			return &m.sendPayload
		}
	}()

	switch key.Type {
	case tea.KeyEsc:
		m.focus = focusList
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.sendField = (m.sendField + 1) % 3
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.sendField = (m.sendField + 2) % 3
		return m, nil
	case tea.KeyEnter:
		return m.submitSendForm()
	case tea.KeyBackspace:
		if len(*field) > 0 {
			runes := []rune(*field)
			*field = string(runes[:len(runes)-1])
		}
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		*field += string(key.Runes)
		if key.Type == tea.KeySpace {
			*field += " "
		}
		return m, nil
	}
	return m, nil
}

func (m Model) submitSendForm() (tea.Model, tea.Cmd) {
	filtered := m.filteredRows()
	if m.cursor >= len(filtered) {
		m.focus = focusList
		return m, nil
	}
	asClient := filtered[m.cursor].id

	payload := json.RawMessage(m.sendPayload)
	if !json.Valid(payload) {
		m.sendStatus = "invalid JSON payload"
		return m, nil
	}

	client := m.client
	req := SendRequest{AsClient: asClient, To: m.sendTo, Type: m.sendType, Payload: payload}
	m.sendStatus = "sending..."
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		result, err := client.Send(ctx, req)
		return sendResultMsg{result: result, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading...\n"
	}
	if m.focus == focusHelp {
		return renderHelp(m.width)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTable())

	if m.focus == focusSendForm {
		b.WriteString("\n")
		b.WriteString(m.renderSendForm())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	selStyle    = lipgloss.NewStyle().Background(lipgloss.Color("24")).Foreground(lipgloss.Color("15"))
)

func (m Model) renderHeader() string {
	title := headerStyle.Render("openclaw-bridge status")
	fp := dimStyle.Render(fmt.Sprintf("config %.10s", m.snapshot.ConfigFingerprint))
	if m.lastErr != nil {
		return fmt.Sprintf("%s  %s\n%s", title, fp, errStyle.Render("poll error: "+m.lastErr.Error()))
	}
	return fmt.Sprintf("%s  %s  %s", title, fp, dimStyle.Render(m.snapshot.SocketPath))
}

func (m Model) renderTable() string {
	filtered := m.filteredRows()
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-24s %8s %8s  %s", "CLIENT", "ACTIVE", "QUEUED", "CAN SEND TO")))
	b.WriteString("\n")
	for i, r := range filtered {
		line := fmt.Sprintf("%-24s %8d %8d  %s", r.id, r.active, r.queued, strings.Join(r.canSendTo, ","))
		if i == m.cursor && m.focus == focusList {
			line = selStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(filtered) == 0 {
		b.WriteString(dimStyle.Render("(no clients match)"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderSendForm() string {
	label := func(f sendField, text string) string {
		if f == m.sendField {
			return selStyle.Render(text)
		}
		return text
	}

	payloadHighlighted := highlightJSON(m.sendPayload)

	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	form := fmt.Sprintf(
		"%s\n  to:      %s\n  type:    %s\n  payload: %s\n%s",
		headerStyle.Render("send envelope (tab to move fields, enter to submit, esc to cancel)"),
		label(fieldTo, m.sendTo),
		label(fieldType, m.sendType),
		payloadHighlighted,
		dimStyle.Render(m.sendStatus),
	)
	return box.Render(form)
}

// highlightJSON syntax-highlights a JSON fragment for display in the
// send form payload field, falling back to plain text if it isn't
// valid JSON yet (the operator is still typing).
func highlightJSON(src string) string {
	if src == "" {
		return ""
	}
	var buf strings.Builder
	if err := quick.Highlight(&buf, src, "json", "terminal256", "monokai"); err != nil {
		return src
	}
	return buf.String()
}

func (m Model) renderFooter() string {
	since := "never"
	if !m.lastPolledAt.IsZero() {
		since = time.Since(m.lastPolledAt).Round(time.Second).String() + " ago"
	}
	return dimStyle.Render(fmt.Sprintf("↑/↓ select · / filter · s send · ? help · q quit    polled %s", since))
}
