// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"encoding/hex"
	"strings"
)

// Encode builds the concrete frame for one command and target.
//
// For addressable commands the address is required and the byte at the
// definition's address index is OR-ed with the address's low nibble; the high
// nibble of that template byte is never touched. An address index outside the
// template skips injection and the template is sent as is. For commands with an
// extra value the value is required, must lie in [Min, Max] and is appended as
// one trailing byte.
//
// Plain commands ignore address. def is never modified.
func Encode(def *CommandDef, address *int, extraValue *int) ([]byte, error) {
	frame := def.Template()

	if def.kind == KindAddressable {
		if address == nil {
			return nil, &OutOfRangeError{Field: "address", Min: MinAddress, Max: MaxAddress, Missing: true}
		}
		if !ValidAddress(*address) {
			return nil, &OutOfRangeError{Field: "address", Value: *address, Min: MinAddress, Max: MaxAddress}
		}
		frame = injectAddress(frame, *address, def.addressIndex)
	}

	if def.extraValue {
		if extraValue == nil {
			return nil, &OutOfRangeError{Field: "value", Min: def.min, Max: def.max, Missing: true}
		}
		if err := CheckExtraValue(def, *extraValue); err != nil {
			return nil, err
		}
		frame = append(frame, byte(*extraValue))
	}

	return frame, nil
}

// CheckExtraValue validates a parameter against the command's bounds
func CheckExtraValue(def *CommandDef, v int) error {
	if v < def.min || v > def.max {
		return &OutOfRangeError{Field: "value", Value: v, Min: def.min, Max: def.max}
	}
	return nil
}

// injectAddress ORs the address nibble into frame[index] in place
func injectAddress(frame []byte, address, index int) []byte {
	if index < 0 || index >= len(frame) {
		return frame
	}
	frame[index] |= byte(address & AddressMask)
	return frame
}

// FormatFrame renders frame bytes as contiguous uppercase hex ("8B07")
func FormatFrame(frame []byte) string {
	return strings.ToUpper(hex.EncodeToString(frame))
}
