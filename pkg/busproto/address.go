// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import "sync"

// AddressSet is the set of bus addresses an addressable command is sent to.
// Addresses outside 0x0-0xF are ignored. Safe for concurrent use.
type AddressSet struct {
	mu       sync.RWMutex
	selected [AddressCount]bool
}

// NewAddressSet returns an empty selection
func NewAddressSet() *AddressSet {
	return &AddressSet{}
}

// Select adds addr. Returns false if addr is not a bus address.
func (s *AddressSet) Select(addr int) bool {
	if !ValidAddress(addr) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[addr] = true
	return true
}

// Deselect removes addr. Returns false if addr is not a bus address.
func (s *AddressSet) Deselect(addr int) bool {
	if !ValidAddress(addr) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[addr] = false
	return true
}

// Toggle flips addr and returns its new state
func (s *AddressSet) Toggle(addr int) bool {
	if !ValidAddress(addr) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected[addr] = !s.selected[addr]
	return s.selected[addr]
}

// SelectAll selects all 16 addresses
func (s *AddressSet) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.selected {
		s.selected[i] = true
	}
}

// DeselectAll empties the selection
func (s *AddressSet) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = [AddressCount]bool{}
}

// Contains reports whether addr is selected
func (s *AddressSet) Contains(addr int) bool {
	if !ValidAddress(addr) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected[addr]
}

// Len returns the number of selected addresses
func (s *AddressSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sel := range s.selected {
		if sel {
			n++
		}
	}
	return n
}

// SnapshotSorted returns the selected addresses in ascending order
func (s *AddressSet) SnapshotSorted() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, AddressCount)
	for addr, sel := range s.selected {
		if sel {
			out = append(out, addr)
		}
	}
	return out
}
