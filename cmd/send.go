// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/kocinski15/son1config/pkg/trafficlog"
	"github.com/spf13/cobra"
)

var (
	sendAddrs []string
	sendAll   bool
	sendValue int
	sendWait  time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send one catalog command",
	Long: `Send a catalog command, chosen by name or by its position in the catalog.

Addressable commands need at least one address: --addr takes hex addresses
and ranges (--addr B --addr 0-3) and --all selects every address. Frames are
sent in ascending address order with the configured pacing between them.
Commands with an extra value need --value within the command's range.

With --wait, replies arriving within that time are printed, attributed to
the last frame sent before them.

Examples:
  son1config send "Read Status" --port /dev/ttyUSB0 --addr 0-3
  son1config send 2 --url ws://bridge.local/bus --all --value 7 --wait 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringSliceVar(&sendAddrs, "addr", nil, "Target address or range in hex (repeatable)")
	sendCmd.Flags().BoolVar(&sendAll, "all", false, "Send to all 16 addresses")
	sendCmd.Flags().IntVar(&sendValue, "value", 0, "Extra value byte")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 0, "Listen for replies for this long after sending")
}

func runSend(cmd *cobra.Command, args []string) error {
	tlog := trafficlog.Open(cfg.Log)
	defer tlog.Close()

	session, err := newSession(tlog)
	if err != nil {
		return err
	}

	def, err := resolveCommand(session.Catalog(), args[0])
	if err != nil {
		return err
	}

	if sendAll {
		session.Selection().SelectAll()
	} else {
		addrs, err := parseAddressList(sendAddrs)
		if err != nil {
			return err
		}
		for _, addr := range addrs {
			session.Selection().Select(addr)
		}
	}

	var value *int
	if cmd.Flags().Changed("value") {
		value = &sendValue
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("son1config - Send\n")
	fmt.Printf("Connection: %s\n", connInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var chunks <-chan busproto.Chunk
	var readErr <-chan error
	if sendWait > 0 {
		chunks, readErr = busproto.ReadChunks(ctx, conn, 0)
	}

	frames, err := session.Fire(ctx, def, value, conn)
	for _, f := range frames {
		fmt.Printf("%s  Sent %s to %s: %s\n", formatTime(f.SentAt), f.Command, f.Target, f.Hex())
	}
	if err != nil {
		return describeFireError(err)
	}

	if sendWait <= 0 {
		return nil
	}

	timeout := time.After(sendWait)
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read error: %w", err)
				}
				return nil
			}
			rec, rendered := session.HandleChunk(c)
			tlog.Chunk(c, rec)
			if rendered {
				printResponse(rec)
			}
		case <-timeout:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// describeFireError turns scheduler errors into operator messages
func describeFireError(err error) error {
	var rangeErr *busproto.OutOfRangeError
	switch {
	case errors.Is(err, busproto.ErrNoAddressSelected):
		return errors.New("please select at least one address for addressable commands")
	case errors.As(err, &rangeErr) && rangeErr.Field == "value" && rangeErr.Missing:
		return fmt.Errorf("please enter a value for this command (%d-%d)", rangeErr.Min, rangeErr.Max)
	case errors.As(err, &rangeErr) && rangeErr.Field == "value":
		return fmt.Errorf("value must be between %d and %d", rangeErr.Min, rangeErr.Max)
	case errors.Is(err, busproto.ErrTransportFailure):
		return fmt.Errorf("failed to send command: %w", err)
	default:
		return err
	}
}

func printResponse(rec busproto.ResponseRecord) {
	if rec.Command == "" {
		fmt.Printf("%s  %s\n", formatTime(rec.Received), rec.Rendered)
		return
	}
	fmt.Printf("%s  %s -> %s  %s\n", formatTime(rec.Received), rec.Command, rec.Target, rec.Rendered)
}
