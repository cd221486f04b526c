// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kocinski15/son1config/pkg/busproto"
	"github.com/spf13/cobra"
)

var (
	catalogAddress    string
	catalogExportCBOR string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the command catalog",
	Long: `Load the command catalog and print it as a table.

With --address, each row also shows the frame that would be sent to that
address. Extra values are shown as "vv". With --export-cbor, the catalog is
written in CBOR form for devices that load it without a JSON parser.

No connection is opened.`,
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringVar(&catalogAddress, "address", "", "Preview frames for this address (hex, 0-F)")
	catalogCmd.Flags().StringVar(&catalogExportCBOR, "export-cbor", "", "Write the catalog as CBOR to this file")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	var preview *int
	if catalogAddress != "" {
		addr, err := parseAddress(catalogAddress)
		if err != nil {
			return err
		}
		preview = &addr
	}

	fmt.Printf("Catalog: %s (%d commands)\n", cfg.Catalog, cat.Len())
	fmt.Println(renderCatalog(cat, preview))

	if catalogExportCBOR != "" {
		data, err := cat.EncodeCBOR()
		if err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		if err := os.WriteFile(catalogExportCBOR, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", catalogExportCBOR, err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(data), catalogExportCBOR)
	}
	return nil
}

// renderCatalog formats the catalog as a table, with a frame column when address is set
func renderCatalog(cat *busproto.Catalog, address *int) string {
	headers := []string{"#", "Name", "Hex", "Type", "Addr Byte", "Value", "Response"}
	if address != nil {
		headers = append(headers, "Frame @ "+busproto.FormatAddress(*address))
	}

	rows := make([][]string, 0, cat.Len())
	for i, def := range cat.Commands() {
		addrByte := "-"
		if def.AddressByteIndex() != busproto.NoAddress {
			addrByte = strconv.Itoa(def.AddressByteIndex())
		}
		value := "-"
		if def.HasExtraValue() {
			value = fmt.Sprintf("%d-%d", def.Min(), def.Max())
		}
		row := []string{
			strconv.Itoa(i),
			def.Name(),
			def.HexBytes(),
			def.Kind().String(),
			addrByte,
			value,
			def.ResponseType().String(),
		}
		if address != nil {
			row = append(row, previewFrame(def, *address))
		}
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// previewFrame encodes def for address with the value byte shown as "vv"
func previewFrame(def *busproto.CommandDef, address int) string {
	var value *int
	if def.HasExtraValue() {
		lo := def.Min()
		value = &lo
	}
	frame, err := busproto.Encode(def, &address, value)
	if err != nil {
		return "error: " + err.Error()
	}
	if def.HasExtraValue() {
		return busproto.FormatFrame(frame[:len(frame)-1]) + "vv"
	}
	return busproto.FormatFrame(frame)
}
