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

// Initial capacity for a lock set. Deep enough for any path the path-length
// bound admits.
const lockSetCapacity = 100

type heldLock struct {
	inumber int
	mode    LockMode
}

// A LockSet records the inodes locked on behalf of a single operation,
// together with the mode each was acquired in, so that every exit path can
// release them uniformly with one Release call.
//
// A LockSet is owned by a single goroutine and is not itself thread safe.
type LockSet struct {
	table *Table

	// In acquisition order, root first.
	held []heldLock
}

// NewLockSet returns an empty lock set against the table.
func (t *Table) NewLockSet() *LockSet {
	return &LockSet{
		table: t,
		held:  make([]heldLock, 0, lockSetCapacity),
	}
}

// Lock acquires the inode's lock in the supplied mode and records it for
// release.
//
// REQUIRES: the inode is not already held by this set or by any set of the
// same operation (see Contains).
func (s *LockSet) Lock(inumber int, mode LockMode) {
	s.table.Lock(inumber, mode)
	s.held = append(s.held, heldLock{inumber: inumber, mode: mode})
}

// Contains reports whether the inode is recorded in this set.
func (s *LockSet) Contains(inumber int) bool {
	for _, h := range s.held {
		if h.inumber == inumber {
			return true
		}
	}

	return false
}

// Len returns the number of locks held.
func (s *LockSet) Len() int {
	return len(s.held)
}

// Release unlocks everything in the set, most recently acquired first, and
// empties it. Release on an empty set is a no-op, so it is safe to defer
// unconditionally.
func (s *LockSet) Release() {
	for i := len(s.held) - 1; i >= 0; i-- {
		h := s.held[i]
		s.table.Unlock(h.inumber, h.mode)
	}

	s.held = s.held[:0]
}
