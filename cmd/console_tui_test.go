// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kocinski15/son1config/pkg/busproto"
)

func newTestConsole(t *testing.T) (*consoleModel, *bytes.Buffer) {
	t.Helper()
	sched := busproto.NewScheduler(busproto.WithPacing(0))
	session := busproto.NewSession(mustCatalog(t), sched, nil)
	sink := &bytes.Buffer{}
	return newConsoleModel(context.Background(), session, sink, "Serial: test"), sink
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and runs any returned command once, feeding its result back
func press(m *consoleModel, msg tea.Msg) {
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	if result, ok := cmd().(fireResultMsg); ok {
		m.Update(result)
	}
}

func lastEvent(m *consoleModel) eventEntry {
	return m.events[len(m.events)-1]
}

func TestConsole_GridSelection(t *testing.T) {
	m, _ := newTestConsole(t)
	sel := m.session.Selection()

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedField != focusAddressGrid {
		t.Fatalf("focus = %d after tab, want address grid", m.focusedField)
	}

	press(m, tea.KeyMsg{Type: tea.KeySpace})
	press(m, tea.KeyMsg{Type: tea.KeyRight})
	press(m, tea.KeyMsg{Type: tea.KeyDown})
	press(m, keyRunes("x"))
	if got := sel.SnapshotSorted(); len(got) != 2 || got[0] != 0x0 || got[1] != 0x5 {
		t.Errorf("selection = %v, want [0 5]", got)
	}

	press(m, keyRunes("a"))
	if sel.Len() != busproto.AddressCount {
		t.Errorf("Len() = %d after select all, want 16", sel.Len())
	}
	press(m, keyRunes("n"))
	if sel.Len() != 0 {
		t.Errorf("Len() = %d after deselect all, want 0", sel.Len())
	}
}

func TestConsole_GridCursorBounds(t *testing.T) {
	m, _ := newTestConsole(t)
	m.focusedField = focusAddressGrid

	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	press(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.gridCursor != 0 {
		t.Errorf("cursor = %d, want 0", m.gridCursor)
	}
	for i := 0; i < 5; i++ {
		press(m, tea.KeyMsg{Type: tea.KeyDown})
		press(m, tea.KeyMsg{Type: tea.KeyRight})
	}
	if m.gridCursor != 0xF {
		t.Errorf("cursor = 0x%X, want 0xF", m.gridCursor)
	}
}

func TestConsole_FireWithoutAddress(t *testing.T) {
	m, sink := newTestConsole(t)
	m.commandList.Select(1)

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	ev := lastEvent(m)
	if !ev.isError || !strings.Contains(ev.message, "select at least one address") {
		t.Errorf("last event = %+v", ev)
	}
	if sink.Len() != 0 {
		t.Errorf("sink got %X, want nothing", sink.Bytes())
	}
}

func TestConsole_FireToSelection(t *testing.T) {
	m, sink := newTestConsole(t)
	m.commandList.Select(1)
	m.session.Selection().Select(0xB)

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !bytes.Equal(sink.Bytes(), []byte{0x8B}) {
		t.Errorf("sink = %X, want 8B", sink.Bytes())
	}
	if ev := lastEvent(m); ev.isError || ev.message != "Sent Read Status to 0xB: 8B" {
		t.Errorf("last event = %+v", ev)
	}
	if m.inFlight != 0 {
		t.Errorf("inFlight = %d, want 0", m.inFlight)
	}
}

func TestConsole_ValueInput(t *testing.T) {
	m, sink := newTestConsole(t)
	m.commandList.Select(2)
	m.syncValueInput()
	m.session.Selection().Select(0x1)

	if m.valueInput.Placeholder != "0-10" {
		t.Errorf("placeholder = %q, want 0-10", m.valueInput.Placeholder)
	}

	m.valueInput.SetValue("abc")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if ev := lastEvent(m); !ev.isError || !strings.Contains(ev.message, "Invalid value") {
		t.Errorf("last event = %+v", ev)
	}

	m.valueInput.SetValue("11")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if ev := lastEvent(m); !ev.isError || !strings.Contains(ev.message, "between 0 and 10") {
		t.Errorf("last event = %+v", ev)
	}

	m.valueInput.SetValue("7")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !bytes.Equal(sink.Bytes(), []byte{0x20, 0x01, 0x07}) {
		t.Errorf("sink = %X, want 200107", sink.Bytes())
	}
}

func TestConsole_FocusSkipsValueForPlainCommands(t *testing.T) {
	m, _ := newTestConsole(t)
	m.commandList.Select(0)

	press(m, tea.KeyMsg{Type: tea.KeyTab})
	press(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedField != focusCommandList {
		t.Errorf("focus = %d, want command list", m.focusedField)
	}
}

func TestConsole_ConnectionLost(t *testing.T) {
	m, sink := newTestConsole(t)
	m.commandList.Select(0)

	press(m, connectionLostMsg{})
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if sink.Len() != 0 {
		t.Errorf("sent %X while disconnected", sink.Bytes())
	}
	if !strings.Contains(m.View(), "RECONNECTING") {
		t.Error("view does not show reconnecting status")
	}

	press(m, reconnectedMsg{connInfo: "Serial: again"})
	if m.connectionLost || m.connInfo != "Serial: again" {
		t.Errorf("state after reconnect = %v/%q", m.connectionLost, m.connInfo)
	}
}

func TestConsole_ViewShowsHistory(t *testing.T) {
	m, _ := newTestConsole(t)
	m.commandList.Select(1)
	m.session.Selection().Select(0x2)
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	rec, ok := m.session.HandleChunk(busproto.Chunk{Data: []byte{0x8B, 0x01}})
	if !ok {
		t.Fatal("HandleChunk() ok = false")
	}
	press(m, responseBatchMsg{records: []busproto.ResponseRecord{rec}})

	view := m.View()
	for _, want := range []string{"Read Status -> 0x2", "Binary: 8B 01", "RESPONSES (1/50)", "TX: 1 frames", "RX: 1 chunks"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestConsole_Quit(t *testing.T) {
	m, _ := newTestConsole(t)
	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil || !m.quitting {
		t.Error("q did not quit")
	}
}
