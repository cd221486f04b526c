// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/kocinski15/son1config/pkg/trafficlog"
	"github.com/spf13/cobra"
)

var (
	scanTimeout int
	scanValue   int
)

var scanCmd = &cobra.Command{
	Use:   "scan <command>",
	Short: "Send an addressable command to every address and collect replies",
	Long: `Send an addressable command to all 16 bus addresses and report which
addresses answered.

Frames go out in ascending order with the configured pacing. Each reply is
attributed to the last frame written before it arrived, so use a command
whose devices answer within the pacing interval.

Exit codes:
  0 - At least one reply received
  1 - No reply before timeout
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 3, "Seconds to keep listening after the last frame")
	scanCmd.Flags().IntVar(&scanValue, "value", 0, "Extra value byte, for commands that take one")
}

func runScan(cmd *cobra.Command, args []string) error {
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
	if !def.IsAddressable() {
		return fmt.Errorf("%s is not an addressable command", def.Name())
	}

	if def.ResponseType() == busproto.ResponseNone {
		return fmt.Errorf("%s has response type none, nothing to collect", def.Name())
	}

	var value *int
	if def.HasExtraValue() {
		value = &scanValue
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("son1config - Address Scan\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Command: %s (%s)\n", def.Name(), def.HexBytes())
	fmt.Printf("Timeout: %d seconds\n\n", scanTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, readErr := busproto.ReadChunks(ctx, conn, 0)

	session.Selection().SelectAll()
	fireDone := make(chan error, 1)
	go func() {
		_, err := session.Fire(ctx, def, value, conn)
		fireDone <- err
	}()

	answered := make(map[string]int)
	var timeout <-chan time.Time

	for {
		select {
		case err := <-fireDone:
			if err != nil {
				fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", describeFireError(err))
				os.Exit(2)
			}
			fireDone = nil
			timeout = time.After(time.Duration(scanTimeout) * time.Second)

		case c, ok := <-chunks:
			if !ok {
				if err := <-readErr; err != nil {
					fmt.Fprintf(os.Stderr, "READ FAILED: %v\n", err)
					os.Exit(2)
				}
				chunks = nil
				continue
			}
			rec, rendered := session.HandleChunk(c)
			tlog.Chunk(c, rec)
			if rendered {
				printResponse(rec)
				answered[rec.Target]++
			}

		case <-timeout:
			fmt.Printf("\n%s", session.Stats().Snapshot())
			return reportScan(answered)
		}
	}
}

func reportScan(answered map[string]int) error {
	fmt.Printf("\n--- Scan summary ---\n")
	fmt.Printf("Addresses answering: %d\n", len(answered))

	targets := make([]string, 0, len(answered))
	for target := range answered {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	for _, target := range targets {
		fmt.Printf("  %s: %d reply chunk(s)\n", target, answered[target])
	}

	if len(answered) == 0 {
		fmt.Printf("No replies. Check wiring, line settings and device power.\n")
		os.Exit(1)
	}
	return nil
}
