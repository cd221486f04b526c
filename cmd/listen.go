// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/kocinski15/son1config/pkg/trafficlog"
	"github.com/spf13/cobra"
)

var listenType string

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Display bus traffic as it arrives",
	Long: `Continuously read the bus and print every chunk as it arrives.

--type binary prints a hex dump, --type text decodes UTF-8. In text mode a
character split across two reads is printed once it is complete; invalid
bytes are shown as U+FFFD.

Supports both serial and WebSocket connections.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().StringVar(&listenType, "type", "binary", "Rendering: binary or text")
}

func runListen(cmd *cobra.Command, args []string) error {
	rt, ok := busproto.ParseResponseType(listenType)
	if !ok || rt == busproto.ResponseNone {
		return fmt.Errorf("invalid --type %q: use binary or text", listenType)
	}

	tlog := trafficlog.Open(cfg.Log)
	defer tlog.Close()

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("son1config - Listen\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Rendering: %s\n", rt)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	chunks, readErr := busproto.ReadChunks(ctx, conn, 0)
	text := busproto.NewTextStream()
	stats := busproto.NewTrafficStats()
	defer func() {
		fmt.Printf("\n%s", stats.Snapshot())
	}()

	for c := range chunks {
		stats.RecordChunk(c, true)
		tlog.Chunk(c, busproto.ResponseRecord{})
		fmt.Print(renderListenChunk(c, rt, text))
	}

	if rest := text.Flush(); rest != "" {
		fmt.Printf("%s  Text: %s\n", formatTime(time.Now()), rest)
	}
	if err := <-readErr; err != nil && ctx.Err() == nil {
		if errors.Is(err, ErrConnectionClosed) {
			log.Printf("Connection closed")
			return nil
		}
		return fmt.Errorf("read error: %w", err)
	}
	return nil
}

// renderListenChunk formats one chunk as a timestamped line, or "" while a
// text sequence is incomplete
func renderListenChunk(c busproto.Chunk, rt busproto.ResponseType, text *busproto.TextStream) string {
	if rt == busproto.ResponseText {
		decoded := text.Decode(c.Data)
		if decoded == "" {
			return ""
		}
		return fmt.Sprintf("%s  Text: %s\n", formatTime(c.Received), decoded)
	}
	r, _ := busproto.Classify(c.Data, rt)
	return fmt.Sprintf("%s  %s\n", formatTime(c.Received), r)
}
