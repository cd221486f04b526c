// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package busproto implements the command protocol engine for an addressed,
// half-duplex serial bus.
//
// A host sends short binary commands to up to 16 peripherals sharing one line.
// Each command comes from a catalog entry holding a hex byte template; the
// peripheral's bus address is OR-ed into the low nibble of a designated
// template byte, and an optional parameter byte is appended. Replies are
// rendered as a hex dump or as text depending on the command's declared
// response type.
//
// The package does not open ports or draw anything. Callers hand it bytes
// (catalog files, inbound chunks) and an io.Writer to send frames on.
package busproto

import "time"

// Bus address range
const (
	MinAddress   = 0x0
	MaxAddress   = 0xF
	AddressCount = MaxAddress + 1
	AddressMask  = 0x0F
)

// Extra value defaults applied when a catalog entry omits min/max
const (
	DefaultMinValue = 0
	DefaultMaxValue = 255
)

// DefaultPacing is the settling time between two addressed frames.
// Back-to-back frames on the shared line cause peripherals to misframe.
const DefaultPacing = 100 * time.Millisecond

// DefaultHistorySize is the number of rendered responses kept for display.
const DefaultHistorySize = 50

// NoAddress marks a frame sent by a plain command and a catalog entry
// without an address byte index.
const NoAddress = -1

// NoTargetLabel is the target label of plain command frames.
const NoTargetLabel = "N/A"

// Kind tells whether a command is sent once or once per selected address
type Kind int

// Command kinds
const (
	KindPlain Kind = iota
	KindAddressable
)

// String returns the catalog spelling of the kind
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindAddressable:
		return "addressable"
	default:
		return "unknown"
	}
}

// ResponseType governs how replies attributed to a command are rendered
type ResponseType int

// Response types
const (
	ResponseNone ResponseType = iota
	ResponseBinary
	ResponseText
)

// String returns the catalog spelling of the response type
func (r ResponseType) String() string {
	switch r {
	case ResponseNone:
		return "none"
	case ResponseBinary:
		return "binary"
	case ResponseText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseKind parses a catalog "type" value. An empty value means plain.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "", "plain":
		return KindPlain, true
	case "addressable":
		return KindAddressable, true
	}
	return KindPlain, false
}

// ParseResponseType parses a catalog "responseType" value. An empty value means none.
func ParseResponseType(s string) (ResponseType, bool) {
	switch s {
	case "", "none":
		return ResponseNone, true
	case "binary":
		return ResponseBinary, true
	case "text":
		return ResponseText, true
	}
	return ResponseNone, false
}

// FormatAddress returns the display label of a bus address ("0xB")
func FormatAddress(addr int) string {
	if addr == NoAddress {
		return NoTargetLabel
	}
	return "0x" + string("0123456789ABCDEF"[addr&AddressMask])
}

// ValidAddress reports whether addr is one of the 16 bus addresses
func ValidAddress(addr int) bool {
	return addr >= MinAddress && addr <= MaxAddress
}
