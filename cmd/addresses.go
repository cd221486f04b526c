// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kocinski15/son1config/pkg/busproto"
)

// parseAddress reads one bus address written in hex, with or without 0x ("B", "0xB")
func parseAddress(s string) (int, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	v, err := strconv.ParseUint(digits, 16, 8)
	if err != nil || !busproto.ValidAddress(int(v)) {
		return 0, fmt.Errorf("invalid address %q: must be 0x0-0xF", s)
	}
	return int(v), nil
}

// parseAddressList reads addresses and inclusive ranges ("1", "0x3-0x7")
func parseAddressList(items []string) ([]int, error) {
	var out []int
	for _, item := range items {
		lo, hi, isRange := strings.Cut(item, "-")
		if !isRange {
			addr, err := parseAddress(item)
			if err != nil {
				return nil, err
			}
			out = append(out, addr)
			continue
		}

		first, err := parseAddress(lo)
		if err != nil {
			return nil, err
		}
		last, err := parseAddress(hi)
		if err != nil {
			return nil, err
		}
		if first > last {
			return nil, fmt.Errorf("invalid address range %q", item)
		}
		for addr := first; addr <= last; addr++ {
			out = append(out, addr)
		}
	}
	return out, nil
}

// resolveCommand finds a catalog entry by position or, failing that, by name
func resolveCommand(cat *busproto.Catalog, arg string) (*busproto.CommandDef, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		if def, err := cat.ByIndex(i); err == nil {
			return def, nil
		}
	}
	return cat.ByName(arg)
}
