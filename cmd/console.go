// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/kocinski15/son1config/pkg/trafficlog"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive terminal console for the bus",
	Long: `Send catalog commands from an interactive terminal UI.

Features:
  - Command list loaded from the catalog
  - 16-cell address grid with select all / deselect all
  - Value input for commands that take an extra byte
  - Response history (last 50 replies, newest first)
  - Automatic reconnection on connection loss

Tab switches between the command list, the address grid and the value
input. Enter sends the highlighted command.

Supports both serial and WebSocket connections.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// errNotConnected is returned by writes while the connection is down
var errNotConnected = errors.New("not connected")

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	conn     Connection
	connInfo string
	dial     Dialer
	session  *busproto.Session
	tlog     *trafficlog.Logger
	mu       sync.RWMutex
	p        *tea.Program
	ctx      context.Context
	cancel   context.CancelFunc
}

func (cm *connectionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

// Write sends p on the current connection
func (cm *connectionManager) Write(p []byte) (int, error) {
	conn := cm.getConn()
	if conn == nil {
		return 0, errNotConnected
	}
	return conn.Write(p)
}

func runConsole(cmd *cobra.Command, args []string) error {
	tlog := trafficlog.Open(cfg.Log)
	defer tlog.Close()

	session, err := newSession(tlog)
	if err != nil {
		return err
	}

	dial, err := NewDialer(cfg)
	if err != nil {
		return err
	}
	conn, connInfo, err := dial()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	cm := &connectionManager{
		conn:     conn,
		connInfo: connInfo,
		dial:     dial,
		session:  session,
		tlog:     tlog,
		ctx:      ctx,
		cancel:   cancel,
	}

	m := newConsoleModel(ctx, session, cm, connInfo)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	cm.p = p

	go cm.readerLoop()

	_, runErr := p.Run()
	cancel()
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// readerLoop handles reading from connection with automatic reconnection
func (cm *connectionManager) readerLoop() {
	for {
		if cm.ctx.Err() != nil {
			return
		}

		if !cm.readFromConnection() {
			return
		}

		cm.p.Send(connectionLostMsg{})
		if !cm.reconnect() {
			return
		}
	}
}

// readFromConnection classifies chunks until the connection fails.
// Returns true if the connection was lost, false if shutdown was requested.
func (cm *connectionManager) readFromConnection() bool {
	conn := cm.getConn()
	if conn == nil {
		return cm.ctx.Err() == nil
	}

	chunks, readErr := busproto.ReadChunks(cm.ctx, conn, 0)

	// Batch rendered replies and send them to the TUI at a fixed rate
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var batch responseBatchMsg
	flush := func() {
		if len(batch.records) > 0 {
			cm.p.Send(batch)
			batch = responseBatchMsg{}
		}
	}

	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				flush()
				if err := <-readErr; err != nil {
					cm.tlog.Printf("read error: %v", err)
				}
				return cm.ctx.Err() == nil
			}
			rec, rendered := cm.session.HandleChunk(c)
			cm.tlog.Chunk(c, rec)
			if rendered {
				batch.records = append(batch.records, rec)
			}
		case <-ticker.C:
			flush()
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}
	cm.setConn(nil, "")

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.ctx.Done():
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := cm.dial()
		if err == nil {
			cm.setConn(conn, connInfo)
			cm.session.Reset()
			cm.tlog.Printf("reconnected: %s", connInfo)
			cm.p.Send(reconnectedMsg{connInfo: connInfo})
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
