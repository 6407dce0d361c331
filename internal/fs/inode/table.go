// Copyright 2021 The TecnicoFS Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package inode

import (
	"errors"
	"fmt"
	"io"

	"github.com/jacobsa/syncutil"
)

var (
	// ErrTableFull is returned by Create when no free slot exists.
	ErrTableFull = errors.New("inode table is full")

	// ErrNotAllocated is returned when an operation names a free slot.
	ErrNotAllocated = errors.New("inode is not allocated")

	// ErrNotADirectory is returned by directory operations on a file inode.
	ErrNotADirectory = errors.New("inode is not a directory")

	// ErrDirFull is returned by AddEntry when the directory has no free
	// entry slot.
	ErrDirFull = errors.New("directory has no free entries")

	// ErrInvalidName is returned by AddEntry for empty, over-length, or
	// slash-bearing names.
	ErrInvalidName = errors.New("invalid entry name")

	// ErrEntryNotFound is returned by ResetEntry when the directory holds no
	// entry for the child.
	ErrEntryNotFound = errors.New("no entry for inode")
)

// LockMode selects reader or writer acquisition of a per-inode lock.
type LockMode int

const (
	ReadMode LockMode = iota
	WriteMode
)

func (m LockMode) String() string {
	if m == WriteMode {
		return "write"
	}

	return "read"
}

// A slot holds one inode. Slots are co-located with their locks in the
// table's backing array; a slot's lock is never moved and lives as long as
// the table itself.
type slot struct {
	// A reader/writer lock guarding typ and entries while the slot is
	// reachable from the tree. Lock acquisition goes through Table.Lock so
	// that the mode can be recorded for release.
	mu syncutil.InvariantMutex

	// Whether the slot is currently allocated.
	//
	// GUARDED_BY(Table.mu)
	inUse bool

	// Meaningful only while inUse.
	typ     Type
	entries Entries
}

func (s *slot) checkInvariants() {
	// INVARIANT: Non-free entries have valid names.
	// INVARIANT: Non-free entries have pairwise distinct names.
	for i := range s.entries {
		if s.entries[i].Inumber == FreeInumber {
			continue
		}

		if !ValidName(s.entries[i].Name) {
			panic(fmt.Sprintf("Unexpected entry name: %q", s.entries[i].Name))
		}

		for j := i + 1; j < len(s.entries); j++ {
			if s.entries[j].Inumber != FreeInumber &&
				s.entries[j].Name == s.entries[i].Name {
				panic(fmt.Sprintf("Duplicate entry name: %q", s.entries[i].Name))
			}
		}
	}
}

// A Table is a fixed array of inode slots plus an allocator for free slots.
// Its capacity is chosen at initialization time and never grows.
type Table struct {
	/////////////////////////
	// Mutable state
	/////////////////////////

	// A lock guarding allocation state: the inUse flag of every slot. Slot
	// payloads are guarded by the per-slot locks instead.
	mu syncutil.InvariantMutex

	// The slot array. Fixed; never reallocated while the table is live.
	//
	// INVARIANT: slots[RootInumber] is an in-use directory.
	slots []slot
}

// NewTable creates a table with the supplied capacity and allocates the root
// directory at RootInumber.
func NewTable(capacity int) (t *Table, err error) {
	if capacity < 1 {
		err = fmt.Errorf("capacity must be at least 1, got %d", capacity)
		return
	}

	t = &Table{
		slots: make([]slot, capacity),
	}

	for i := range t.slots {
		s := &t.slots[i]
		s.mu = syncutil.NewInvariantMutex(s.checkInvariants)
	}

	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)

	// Set up the root.
	root, err := t.Create(Directory)
	if err != nil {
		err = fmt.Errorf("creating root: %w", err)
		return
	}

	if root != RootInumber {
		panic(fmt.Sprintf("Unexpected root inumber: %d", root))
	}

	return
}

// Destroy releases the table. No operation may run afterwards.
func (t *Table) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		t.slots[i].inUse = false
	}
}

// Capacity returns the fixed number of slots.
func (t *Table) Capacity() int {
	return len(t.slots)
}

func (t *Table) checkInvariants() {
	// INVARIANT: slots[RootInumber] is an in-use directory.
	//
	// Not checked here: the root is not yet in use while NewTable allocates
	// it under this lock, and no longer in use after Destroy.
}

// REQUIRES: 0 <= inumber < Capacity()
func (t *Table) slot(inumber int) *slot {
	if inumber < 0 || inumber >= len(t.slots) {
		panic(fmt.Sprintf("Inumber %d out of range [0, %d)", inumber, len(t.slots)))
	}

	return &t.slots[inumber]
}

////////////////////////////////////////////////////////////////////////
// Allocation
////////////////////////////////////////////////////////////////////////

// Create claims a free slot, marks it in use with the supplied type, and
// returns its inumber. Directory payloads start with every entry free.
//
// The new inode is not yet linked anywhere; linking via AddEntry under the
// parent's write lock is the caller's responsibility.
func (t *Table) Create(typ Type) (inumber int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// First fit.
	for i := range t.slots {
		s := &t.slots[i]
		if s.inUse {
			continue
		}

		s.inUse = true
		s.typ = typ
		s.entries = freeEntries()

		inumber = i
		return
	}

	err = ErrTableFull
	return
}

// Delete marks the slot free and zeroes its payload. The caller must have
// already detached the inode from its parent directory, so that no resolver
// can reach the slot.
func (t *Table) Delete(inumber int) (err error) {
	if inumber == RootInumber {
		err = fmt.Errorf("inumber %d: root cannot be deleted", inumber)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.slot(inumber)
	if !s.inUse {
		err = fmt.Errorf("inumber %d: %w", inumber, ErrNotAllocated)
		return
	}

	s.inUse = false
	s.typ = Unknown
	s.entries = freeEntries()

	return
}

////////////////////////////////////////////////////////////////////////
// Access
////////////////////////////////////////////////////////////////////////

// Get returns the inode's type and a snapshot of its payload. The caller is
// responsible for holding the slot's lock in at least read mode.
func (t *Table) Get(inumber int) (typ Type, entries Entries) {
	s := t.slot(inumber)

	typ = s.typ
	entries = s.entries

	return
}

// Lock acquires the slot's lock in the supplied mode. Prefer going through a
// LockSet so that release is uniform.
func (t *Table) Lock(inumber int, mode LockMode) {
	s := t.slot(inumber)

	if mode == WriteMode {
		s.mu.Lock()
	} else {
		s.mu.RLock()
	}
}

// Unlock releases the slot's lock, which must be held in the supplied mode.
func (t *Table) Unlock(inumber int, mode LockMode) {
	s := t.slot(inumber)

	if mode == WriteMode {
		s.mu.Unlock()
	} else {
		s.mu.RUnlock()
	}
}

////////////////////////////////////////////////////////////////////////
// Directory entries
////////////////////////////////////////////////////////////////////////

// AddEntry populates the first free entry of the parent directory with
// (child, name).
//
// There is no duplicate-name check here: the caller must have verified
// absence via Entries.Lookup under the same write lock it still holds.
//
// REQUIRES: the parent's write lock is held.
func (t *Table) AddEntry(parent int, child int, name string) (err error) {
	if !ValidName(name) {
		err = fmt.Errorf("%q: %w", name, ErrInvalidName)
		return
	}

	s := t.slot(parent)
	if s.typ != Directory {
		err = fmt.Errorf("inumber %d: %w", parent, ErrNotADirectory)
		return
	}

	for i := range s.entries {
		if s.entries[i].Inumber != FreeInumber {
			continue
		}

		s.entries[i] = DirEntry{Inumber: child, Name: name}
		return
	}

	err = fmt.Errorf("inumber %d: %w", parent, ErrDirFull)
	return
}

// ResetEntry marks the parent's entry for the child free.
//
// REQUIRES: the parent's write lock is held.
func (t *Table) ResetEntry(parent int, child int) (err error) {
	s := t.slot(parent)
	if s.typ != Directory {
		err = fmt.Errorf("inumber %d: %w", parent, ErrNotADirectory)
		return
	}

	for i := range s.entries {
		if s.entries[i].Inumber != child {
			continue
		}

		s.entries[i] = DirEntry{Inumber: FreeInumber}
		return
	}

	err = fmt.Errorf("inumber %d in %d: %w", child, parent, ErrEntryNotFound)
	return
}

////////////////////////////////////////////////////////////////////////
// Printing
////////////////////////////////////////////////////////////////////////

// PrintTree writes every in-use inode reachable from the supplied inumber to
// w, one full path per line, prefixed by prefix.
//
// REQUIRES: the root's write lock is held (or the rest of the system is
// quiescent). Every mutating operation first locks the root, so holding its
// write lock serializes printing against all of them.
func (t *Table) PrintTree(w io.Writer, inumber int, prefix string) (err error) {
	s := t.slot(inumber)
	if s.typ != Directory {
		return
	}

	for i := range s.entries {
		e := s.entries[i]
		if e.Inumber == FreeInumber {
			continue
		}

		path := prefix + "/" + e.Name
		if _, err = fmt.Fprintln(w, path); err != nil {
			return
		}

		if err = t.PrintTree(w, e.Inumber, path); err != nil {
			return
		}
	}

	return
}
