// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package busproto

import (
	"reflect"
	"sync"
	"testing"
)

func TestAddressSet_SelectDeselect(t *testing.T) {
	s := NewAddressSet()
	if s.Len() != 0 {
		t.Fatalf("new set Len() = %d, want 0", s.Len())
	}

	for _, addr := range []int{0xA, 0x3, 0x7, 0x3} {
		if !s.Select(addr) {
			t.Errorf("Select(0x%X) = false", addr)
		}
	}
	if got, want := s.SnapshotSorted(), []int{0x3, 0x7, 0xA}; !reflect.DeepEqual(got, want) {
		t.Errorf("SnapshotSorted() = %v, want %v", got, want)
	}

	s.Deselect(0x7)
	if s.Contains(0x7) {
		t.Error("0x7 still selected after Deselect")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestAddressSet_RejectsInvalid(t *testing.T) {
	s := NewAddressSet()
	for _, addr := range []int{-1, 16, 255} {
		if s.Select(addr) {
			t.Errorf("Select(%d) = true, want false", addr)
		}
		if s.Toggle(addr) {
			t.Errorf("Toggle(%d) = true, want false", addr)
		}
		if s.Deselect(addr) {
			t.Errorf("Deselect(%d) = true, want false", addr)
		}
		if s.Contains(addr) {
			t.Errorf("Contains(%d) = true", addr)
		}
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after invalid operations, want 0", s.Len())
	}
}

func TestAddressSet_Toggle(t *testing.T) {
	s := NewAddressSet()
	if !s.Toggle(0xF) {
		t.Error("first Toggle(0xF) = false, want true")
	}
	if s.Toggle(0xF) {
		t.Error("second Toggle(0xF) = true, want false")
	}
	if s.Contains(0xF) {
		t.Error("0xF selected after two toggles")
	}
}

func TestAddressSet_SelectAll(t *testing.T) {
	s := NewAddressSet()
	s.SelectAll()
	if s.Len() != AddressCount {
		t.Fatalf("Len() = %d after SelectAll, want %d", s.Len(), AddressCount)
	}
	snap := s.SnapshotSorted()
	for i, addr := range snap {
		if addr != i {
			t.Fatalf("SnapshotSorted()[%d] = %d", i, addr)
		}
	}

	s.DeselectAll()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after DeselectAll, want 0", s.Len())
	}
	if got := s.SnapshotSorted(); len(got) != 0 {
		t.Errorf("SnapshotSorted() = %v, want empty", got)
	}
}

func TestAddressSet_SnapshotIsDetached(t *testing.T) {
	s := NewAddressSet()
	s.Select(0x1)
	snap := s.SnapshotSorted()
	s.Select(0x2)
	if len(snap) != 1 {
		t.Errorf("snapshot changed after Select: %v", snap)
	}
}

func TestAddressSet_Concurrent(t *testing.T) {
	s := NewAddressSet()
	var wg sync.WaitGroup
	for addr := MinAddress; addr <= MaxAddress; addr++ {
		wg.Add(2)
		go func(a int) {
			defer wg.Done()
			s.Select(a)
		}(addr)
		go func() {
			defer wg.Done()
			_ = s.SnapshotSorted()
		}()
	}
	wg.Wait()
	if s.Len() != AddressCount {
		t.Errorf("Len() = %d, want %d", s.Len(), AddressCount)
	}
}
