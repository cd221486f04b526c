// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kocinski15/son1config/pkg/busproto"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	maxEventEntries = 50
	historyLines    = 10
	eventLines      = 6
	gridColumns     = 4
)

// Focus states
const (
	focusCommandList = iota
	focusAddressGrid
	focusValueInput
	focusCount
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// commandItem is one catalog entry in the command list
type commandItem struct {
	def *busproto.CommandDef
}

// Implement list.Item interface
func (c commandItem) Title() string { return c.def.Name() }
func (c commandItem) Description() string {
	desc := fmt.Sprintf("%s  %s  %s", c.def.HexBytes(), c.def.Kind(), c.def.ResponseType())
	if c.def.HasExtraValue() {
		desc += fmt.Sprintf("  [%d-%d]", c.def.Min(), c.def.Max())
	}
	return desc
}
func (c commandItem) FilterValue() string { return c.def.Name() }

type eventEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// consoleModel is the Bubble Tea model for the bus console
type consoleModel struct {
	ctx      context.Context
	session  *busproto.Session
	sink     io.Writer
	connInfo string

	commandList  list.Model
	gridCursor   int
	valueInput   textinput.Model
	focusedField int

	events []eventEntry

	width          int
	height         int
	quitting       bool
	connectionLost bool
	inFlight       int
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type responseBatchMsg struct {
	records []busproto.ResponseRecord
}

type fireResultMsg struct {
	command string
	frames  []busproto.Frame
	err     error
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func newConsoleModel(ctx context.Context, session *busproto.Session, sink io.Writer, connInfo string) *consoleModel {
	ti := textinput.New()
	ti.CharLimit = 3
	ti.Width = 10

	cmds := session.Catalog().Commands()
	items := make([]list.Item, len(cmds))
	for i, def := range cmds {
		items[i] = commandItem{def: def}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	commandList := list.New(items, delegate, 34, 12)
	commandList.Title = "Commands"
	commandList.SetShowStatusBar(false)
	commandList.SetShowHelp(false)
	commandList.SetFilteringEnabled(false)

	m := &consoleModel{
		ctx:          ctx,
		session:      session,
		sink:         sink,
		connInfo:     connInfo,
		commandList:  commandList,
		valueInput:   ti,
		focusedField: focusCommandList,
		width:        80,
		height:       24,
	}
	m.syncValueInput()
	m.addEvent(fmt.Sprintf("Loaded %d commands", len(cmds)), false)
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m *consoleModel) Init() tea.Cmd {
	return nil
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.commandList, _ = m.commandList.Update(msg)
			m.syncValueInput()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case responseBatchMsg:
		// Records are already in the session history; this only triggers a redraw

	case fireResultMsg:
		m.inFlight--
		for _, f := range msg.frames {
			m.addEvent(fmt.Sprintf("Sent %s to %s: %s", f.Command, f.Target, f.Hex()), false)
		}
		if msg.err != nil {
			m.addEvent(describeFireError(msg.err).Error(), true)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addEvent("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addEvent("Reconnected - address selection cleared", false)
	}

	if m.focusedField == focusValueInput {
		var cmd tea.Cmd
		m.valueInput, cmd = m.valueInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *consoleModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q":
		if m.focusedField != focusValueInput {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		m.cycleFocus(1)
		return m, nil

	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil

	case "enter":
		return m.fire()

	case "ctrl+a":
		m.session.Selection().SelectAll()
		return m, nil

	case "ctrl+d":
		m.session.Selection().DeselectAll()
		return m, nil
	}

	switch m.focusedField {
	case focusCommandList:
		switch msg.String() {
		case "up", "k", "down", "j", "pgup", "pgdown", "home", "end":
			m.commandList, _ = m.commandList.Update(msg)
			m.syncValueInput()
		}
		return m, nil

	case focusAddressGrid:
		m.handleGridKey(msg.String())
		return m, nil
	}

	var cmd tea.Cmd
	m.valueInput, cmd = m.valueInput.Update(msg)
	return m, cmd
}

func (m *consoleModel) handleGridKey(key string) {
	switch key {
	case "left", "h":
		if m.gridCursor%gridColumns > 0 {
			m.gridCursor--
		}
	case "right", "l":
		if m.gridCursor%gridColumns < gridColumns-1 {
			m.gridCursor++
		}
	case "up", "k":
		if m.gridCursor >= gridColumns {
			m.gridCursor -= gridColumns
		}
	case "down", "j":
		if m.gridCursor+gridColumns < busproto.AddressCount {
			m.gridCursor += gridColumns
		}
	case " ", "x":
		m.session.Selection().Toggle(m.gridCursor)
	case "a":
		m.session.Selection().SelectAll()
	case "n":
		m.session.Selection().DeselectAll()
	}
}

func (m *consoleModel) cycleFocus(delta int) {
	m.focusedField = (m.focusedField + delta + focusCount) % focusCount

	// The value input only applies to commands with an extra value
	if m.focusedField == focusValueInput {
		if def := m.selectedCommand(); def == nil || !def.HasExtraValue() {
			m.focusedField = (m.focusedField + delta + focusCount) % focusCount
		}
	}

	if m.focusedField == focusValueInput {
		m.valueInput.Focus()
	} else {
		m.valueInput.Blur()
	}
}

func (m *consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	s.WriteString(titleStyle.Render("SON1CONFIG CONSOLE"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit Tab=switch Enter=send", connStatus)))
	s.WriteString("\n\n")

	// Layout: left panel (commands) | right panel (addresses and value)
	leftWidth := 36
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusCommandList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	commandPanel := listStyle.Render(m.commandList.View())

	targetStyle := boxStyle.Width(rightWidth)
	if m.focusedField != focusCommandList {
		targetStyle = focusedBoxStyle.Width(rightWidth)
	}
	targetPanel := targetStyle.Render(m.renderTargetPanel(labelStyle, valueStyle, headerStyle))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, commandPanel, " ", targetPanel))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar(labelStyle, valueStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.renderHistory(labelStyle, headerStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.renderEventLog(labelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m *consoleModel) renderTargetPanel(labelStyle, valueStyle, headerStyle lipgloss.Style) string {
	var s strings.Builder

	def := m.selectedCommand()
	if def == nil {
		s.WriteString(headerStyle.Render("No command selected"))
		return s.String()
	}

	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Command:"), def.Name()))
	s.WriteString(fmt.Sprintf("%s %s (%s, reply %s)\n\n", labelStyle.Render("Bytes:"), def.HexBytes(), def.Kind(), def.ResponseType()))

	s.WriteString(labelStyle.Render("ADDRESSES"))
	s.WriteString(headerStyle.Render("  space=toggle a=all n=none"))
	s.WriteString("\n")
	s.WriteString(m.renderAddressGrid())
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Selected:"),
		valueStyle.Render(strconv.Itoa(m.session.Selection().Len()))))
	if !def.IsAddressable() {
		s.WriteString(headerStyle.Render("  (plain command, addresses ignored)"))
	}
	s.WriteString("\n\n")

	if def.HasExtraValue() {
		s.WriteString(labelStyle.Render("Value: "))
		if m.focusedField == focusValueInput {
			s.WriteString(m.valueInput.View())
		} else {
			val := m.valueInput.Value()
			if val == "" {
				val = m.valueInput.Placeholder
			}
			s.WriteString(fmt.Sprintf("[%s]", val))
		}
	} else {
		s.WriteString(headerStyle.Render("No value"))
	}

	if m.inFlight > 0 {
		s.WriteString(headerStyle.Render("  sending..."))
	}
	return s.String()
}

func (m *consoleModel) renderAddressGrid() string {
	cellStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("10")).
		Bold(true)

	selection := m.session.Selection()
	var rows []string
	for row := 0; row < busproto.AddressCount/gridColumns; row++ {
		cells := make([]string, 0, gridColumns)
		for col := 0; col < gridColumns; col++ {
			addr := row*gridColumns + col
			label := fmt.Sprintf(" %X ", addr)
			if m.focusedField == focusAddressGrid && addr == m.gridCursor {
				label = fmt.Sprintf("[%X]", addr)
			}
			style := cellStyle
			if selection.Contains(addr) {
				style = selectedStyle
			}
			cells = append(cells, style.Render(label))
		}
		rows = append(rows, strings.Join(cells, " "))
	}
	return strings.Join(rows, "\n")
}

func (m *consoleModel) renderStatisticsBar(labelStyle, valueStyle, boxStyle lipgloss.Style) string {
	st := m.session.Stats().Snapshot()
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	sendErrors := valueStyle.Render("0")
	if st.SendErrors > 0 {
		sendErrors = errorStyle.Render(strconv.FormatUint(st.SendErrors, 10))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("TX:"), valueStyle.Render(fmt.Sprintf("%d frames", st.FramesSent)),
		labelStyle.Render("RX:"), valueStyle.Render(fmt.Sprintf("%d chunks", st.ChunksReceived)),
		labelStyle.Render("Errors:"), sendErrors,
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f rx/s", st.ChunkRate)),
	)
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m *consoleModel) renderHistory(labelStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	history := m.session.History()
	s.WriteString(labelStyle.Render(fmt.Sprintf("RESPONSES (%d/%d)", history.Len(), history.Capacity())))
	s.WriteString("\n")

	records := history.Newest()
	if len(records) == 0 {
		s.WriteString(headerStyle.Render("  (no responses yet)"))
	}
	for i, rec := range records {
		if i == historyLines {
			break
		}
		source := headerStyle.Render("unsolicited")
		if rec.Command != "" {
			source = fmt.Sprintf("%s -> %s", rec.Command, rec.Target)
		}
		s.WriteString(fmt.Sprintf("%s %s  %s\n",
			headerStyle.Render(formatTime(rec.Received)),
			source,
			rec.Rendered))
	}

	return boxStyle.Width(m.width - 4).Render(strings.TrimRight(s.String(), "\n"))
}

func (m *consoleModel) renderEventLog(labelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	startIdx := len(m.events) - eventLines
	if startIdx < 0 {
		startIdx = 0
	}
	for i := startIdx; i < len(m.events); i++ {
		entry := m.events[i]
		icon := "i"
		style := warningStyle
		if entry.isError {
			icon = "x"
			style = errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			headerStyle.Render(formatTime(entry.timestamp)),
			style.Render(icon),
			entry.message))
	}

	return boxStyle.Width(m.width - 4).Render(strings.TrimRight(s.String(), "\n"))
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

// fire sends the highlighted command to the selection without blocking the UI
func (m *consoleModel) fire() (tea.Model, tea.Cmd) {
	if m.connectionLost {
		m.addEvent("Cannot send command: connection lost", true)
		return m, nil
	}

	def := m.selectedCommand()
	if def == nil {
		return m, nil
	}

	var value *int
	if def.HasExtraValue() {
		raw := strings.TrimSpace(m.valueInput.Value())
		if raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				m.addEvent(fmt.Sprintf("Invalid value: %s", raw), true)
				return m, nil
			}
			value = &v
		}
	}

	if !def.IsAddressable() {
		m.addEvent(fmt.Sprintf("Sending %s (%s)", def.Name(), def.HexBytes()), false)
	}

	m.inFlight++
	ctx, session, sink := m.ctx, m.session, m.sink
	return m, func() tea.Msg {
		frames, err := session.Fire(ctx, def, value, sink)
		return fireResultMsg{command: def.Name(), frames: frames, err: err}
	}
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *consoleModel) addEvent(message string, isError bool) {
	m.events = append(m.events, eventEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.events) > maxEventEntries {
		m.events = m.events[len(m.events)-maxEventEntries:]
	}
}

func (m *consoleModel) selectedCommand() *busproto.CommandDef {
	item, ok := m.commandList.SelectedItem().(commandItem)
	if !ok {
		return nil
	}
	return item.def
}

// syncValueInput shows the value range of the highlighted command
func (m *consoleModel) syncValueInput() {
	def := m.selectedCommand()
	if def == nil || !def.HasExtraValue() {
		m.valueInput.Placeholder = ""
		if m.focusedField == focusValueInput {
			m.focusedField = focusCommandList
			m.valueInput.Blur()
		}
		return
	}
	m.valueInput.Placeholder = fmt.Sprintf("%d-%d", def.Min(), def.Max())
}

func (m *consoleModel) updateListSize() {
	listHeight := m.height / 2
	if listHeight < 8 {
		listHeight = 8
	}
	m.commandList.SetSize(34, listHeight)
}
