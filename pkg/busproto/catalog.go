// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v2"
)

// Catalog is the ordered, read-only table of command definitions
type Catalog struct {
	commands []*CommandDef
}

// NewCatalog validates records in order and builds a catalog.
// The first invalid record aborts the load.
func NewCatalog(records []CommandRecord) (*Catalog, error) {
	if records == nil {
		return nil, &MalformedError{Index: -1, Reason: "expected a list of command records"}
	}
	commands := make([]*CommandDef, 0, len(records))
	for i, rec := range records {
		def, err := NewCommandDef(i, rec)
		if err != nil {
			return nil, err
		}
		commands = append(commands, def)
	}
	return &Catalog{commands: commands}, nil
}

// Load parses a JSON catalog: an array of command records
func Load(raw []byte) (*Catalog, error) {
	return LoadJSON(raw)
}

// LoadJSON parses a JSON catalog
func LoadJSON(raw []byte) (*Catalog, error) {
	var records []CommandRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &MalformedError{Index: -1, Reason: "invalid JSON", Err: err}
	}
	return NewCatalog(records)
}

// LoadYAML parses a YAML catalog: a sequence of command records
func LoadYAML(raw []byte) (*Catalog, error) {
	var records []CommandRecord
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, &MalformedError{Index: -1, Reason: "invalid YAML", Err: err}
	}
	return NewCatalog(records)
}

// LoadCBOR parses a CBOR catalog: an array of maps with the JSON key names
func LoadCBOR(raw []byte) (*Catalog, error) {
	var records []CommandRecord
	if err := cbor.Unmarshal(raw, &records); err != nil {
		return nil, &MalformedError{Index: -1, Reason: "invalid CBOR", Err: err}
	}
	return NewCatalog(records)
}

// LoadFile reads a catalog file, choosing the codec from the file extension.
// Unknown extensions are read as JSON.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var cat *Catalog
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cat, err = LoadYAML(raw)
	case ".cbor":
		cat, err = LoadCBOR(raw)
	default:
		cat, err = LoadJSON(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// EncodeCBOR serializes the catalog in the CBOR catalog format
func (c *Catalog) EncodeCBOR() ([]byte, error) {
	records := make([]CommandRecord, len(c.commands))
	for i, def := range c.commands {
		records[i] = def.Record()
	}
	data, err := cbor.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return data, nil
}

// Len returns the number of commands
func (c *Catalog) Len() int {
	return len(c.commands)
}

// Commands returns the definitions in catalog order
func (c *Catalog) Commands() []*CommandDef {
	out := make([]*CommandDef, len(c.commands))
	copy(out, c.commands)
	return out
}

// ByIndex returns the command at position i
func (c *Catalog) ByIndex(i int) (*CommandDef, error) {
	if i < 0 || i >= len(c.commands) {
		return nil, fmt.Errorf("%w: %d (catalog has %d commands)", ErrIndexOutOfRange, i, len(c.commands))
	}
	return c.commands[i], nil
}

// ByName returns the first command with the given name
func (c *Catalog) ByName(name string) (*CommandDef, error) {
	for _, def := range c.commands {
		if def.name == name {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrCommandNotFound, name)
}
