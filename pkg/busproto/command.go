// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"encoding/hex"
	"fmt"
)

// CommandRecord is one entry of a catalog source as written on disk.
// The same keys are used by the JSON, YAML and CBOR codecs.
type CommandRecord struct {
	Name         string `json:"name" yaml:"name" cbor:"name"`
	HexBytes     string `json:"hexBytes" yaml:"hexBytes" cbor:"hexBytes"`
	Type         string `json:"type" yaml:"type" cbor:"type"`
	AddressByte  *int   `json:"addressByte,omitempty" yaml:"addressByte,omitempty" cbor:"addressByte,omitempty"`
	ExtraValue   bool   `json:"extraValue" yaml:"extraValue" cbor:"extraValue"`
	Min          *int   `json:"min,omitempty" yaml:"min,omitempty" cbor:"min,omitempty"`
	Max          *int   `json:"max,omitempty" yaml:"max,omitempty" cbor:"max,omitempty"`
	ResponseType string `json:"responseType" yaml:"responseType" cbor:"responseType"`
}

// CommandDef is a validated catalog entry. It is immutable once built.
type CommandDef struct {
	name         string
	hexBytes     string
	template     []byte
	kind         Kind
	addressIndex int
	extraValue   bool
	min          int
	max          int
	responseType ResponseType
}

// NewCommandDef validates a record and builds its definition.
// index is the record position, used only in error messages.
func NewCommandDef(index int, rec CommandRecord) (*CommandDef, error) {
	if rec.Name == "" {
		return nil, &MalformedError{Index: index, Field: "name", Reason: "must not be empty"}
	}
	if !isHexString(rec.HexBytes) {
		return nil, &MalformedError{Index: index, Field: "hexBytes", Reason: fmt.Sprintf("%q is not a hex string", rec.HexBytes)}
	}
	kind, ok := ParseKind(rec.Type)
	if !ok {
		return nil, &MalformedError{Index: index, Field: "type", Reason: fmt.Sprintf("unknown command type %q", rec.Type)}
	}
	respType, ok := ParseResponseType(rec.ResponseType)
	if !ok {
		return nil, &MalformedError{Index: index, Field: "responseType", Reason: fmt.Sprintf("unknown response type %q", rec.ResponseType)}
	}

	def := &CommandDef{
		name:         rec.Name,
		hexBytes:     rec.HexBytes,
		template:     ParseHexString(rec.HexBytes),
		kind:         kind,
		addressIndex: NoAddress,
		extraValue:   rec.ExtraValue,
		min:          DefaultMinValue,
		max:          DefaultMaxValue,
		responseType: respType,
	}
	if rec.AddressByte != nil {
		def.addressIndex = *rec.AddressByte
	}
	if rec.Min != nil {
		def.min = *rec.Min
	}
	if rec.Max != nil {
		def.max = *rec.Max
	}
	return def, nil
}

// Name returns the display name
func (d *CommandDef) Name() string {
	return d.name
}

// HexBytes returns the template exactly as written in the catalog
func (d *CommandDef) HexBytes() string {
	return d.hexBytes
}

// Template returns a copy of the decoded template bytes
func (d *CommandDef) Template() []byte {
	out := make([]byte, len(d.template))
	copy(out, d.template)
	return out
}

// Kind returns whether the command is plain or addressable
func (d *CommandDef) Kind() Kind {
	return d.kind
}

// IsAddressable returns true for commands sent once per selected address
func (d *CommandDef) IsAddressable() bool {
	return d.kind == KindAddressable
}

// AddressByteIndex returns the template index receiving the bus address,
// or NoAddress when the catalog entry has none
func (d *CommandDef) AddressByteIndex() int {
	return d.addressIndex
}

// HasExtraValue returns true when the command takes a trailing parameter byte
func (d *CommandDef) HasExtraValue() bool {
	return d.extraValue
}

// Min returns the lowest accepted extra value
func (d *CommandDef) Min() int {
	return d.min
}

// Max returns the highest accepted extra value
func (d *CommandDef) Max() int {
	return d.max
}

// ResponseType returns how replies to this command are rendered
func (d *CommandDef) ResponseType() ResponseType {
	return d.responseType
}

// Record converts the definition back to its catalog record
func (d *CommandDef) Record() CommandRecord {
	rec := CommandRecord{
		Name:         d.name,
		HexBytes:     d.hexBytes,
		Type:         d.kind.String(),
		ExtraValue:   d.extraValue,
		ResponseType: d.responseType.String(),
	}
	if d.addressIndex != NoAddress {
		idx := d.addressIndex
		rec.AddressByte = &idx
	}
	if d.extraValue {
		lo, hi := d.min, d.max
		rec.Min, rec.Max = &lo, &hi
	}
	return rec
}

// ParseHexString decodes two hex characters per byte. A trailing lone
// character is dropped. A string with non-hex characters decodes to nothing.
func ParseHexString(s string) []byte {
	s = s[:len(s)-len(s)%2]
	out, err := hex.DecodeString(s)
	if err != nil {
		return []byte{}
	}
	return out
}

func isHexString(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
