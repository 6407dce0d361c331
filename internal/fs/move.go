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

package fs

import (
	"fmt"
	"strings"

	"github.com/tecnicofs/tecnicofs/internal/fs/inode"
)

// Move relinks the inode at oldPath under the parent of newPath with the new
// final name. The moved inode keeps its inumber; if it is a directory, its
// whole subtree moves with it.
//
// Two paths must be locked simultaneously, so acquisition follows a total
// order on (component count, parent path): the side that sorts smaller is
// resolved first, and the second resolution skips every inode the first one
// already locked. Two concurrent moves over an overlapping prefix therefore
// acquire the shared ancestors in the same global order and cannot form a
// cycle in the lock-wait graph.
func (f *FileSystem) Move(oldPath, newPath string) (err error) {
	oldParentComponents, oldChildName, err := splitPath(oldPath)
	if err != nil {
		return
	}

	newParentComponents, newChildName, err := splitPath(newPath)
	if err != nil {
		return
	}

	oldFull := strings.Join(Components(oldPath), "/")
	oldParentPath := strings.Join(oldParentComponents, "/")
	newParentPath := strings.Join(newParentComponents, "/")

	// Reject destinations inside the subtree being moved; relinking there
	// would detach the subtree into a cycle unreachable from the root.
	if newParentPath == oldFull || strings.HasPrefix(newParentPath, oldFull+"/") {
		err = fmt.Errorf("%q into %q: %w", oldPath, newPath, ErrMoveIntoSelf)
		return
	}

	oldCount := len(oldParentComponents) + 1
	newCount := len(newParentComponents) + 1

	lockedOrigin := f.table.NewLockSet()
	defer lockedOrigin.Release()

	lockedFinal := f.table.NewLockSet()
	defer lockedFinal.Release()

	var oldParent, newParent, child int

	originFirst := oldCount < newCount ||
		(oldCount == newCount && oldParentPath <= newParentPath)

	if originFirst {
		oldParent, child, err = f.lockOrigin(
			oldParentComponents, oldChildName, lockedOrigin, lockedFinal)
		if err != nil {
			err = fmt.Errorf("origin %q: %w", oldPath, err)
			return
		}

		newParent, err = f.lockDestination(
			newParentComponents, newChildName, lockedFinal, lockedOrigin)
		if err != nil {
			err = fmt.Errorf("destination %q: %w", newPath, err)
			return
		}
	} else {
		newParent, err = f.lockDestination(
			newParentComponents, newChildName, lockedFinal, lockedOrigin)
		if err != nil {
			err = fmt.Errorf("destination %q: %w", newPath, err)
			return
		}

		oldParent, child, err = f.lockOrigin(
			oldParentComponents, oldChildName, lockedOrigin, lockedFinal)
		if err != nil {
			err = fmt.Errorf("origin %q: %w", oldPath, err)
			return
		}
	}

	// Commit: detach from the old parent, then link under the new one. Both
	// parents are write-locked, so readers observe either the pre- or the
	// post-state.
	if err = f.table.ResetEntry(oldParent, child); err != nil {
		err = fmt.Errorf("detaching %q: %w", oldPath, err)
		return
	}

	if err = f.table.AddEntry(newParent, child, newChildName); err != nil {
		err = fmt.Errorf("linking %q: %w", newPath, err)
		return
	}

	return
}

// lockOrigin resolves the origin parent in move mode, finds the inode being
// moved, and read-locks it so it cannot be reclaimed out from under the
// operation.
func (f *FileSystem) lockOrigin(
	parentComponents []string,
	childName string,
	locked *inode.LockSet,
	previously *inode.LockSet) (parent int, child int, err error) {
	parent, err = f.resolve(parentComponents, asMove, locked, previously)
	if err != nil {
		return
	}

	parentType, parentEntries := f.table.Get(parent)
	if parentType != inode.Directory {
		err = ErrNotADirectory
		return
	}

	child, ok := parentEntries.Lookup(childName)
	if !ok {
		err = fmt.Errorf("%q: %w", childName, ErrNotFound)
		return
	}

	locked.Lock(child, inode.ReadMode)
	return
}

// lockDestination resolves the destination parent in move mode and verifies
// that the new name is not taken.
func (f *FileSystem) lockDestination(
	parentComponents []string,
	childName string,
	locked *inode.LockSet,
	previously *inode.LockSet) (parent int, err error) {
	parent, err = f.resolve(parentComponents, asMove, locked, previously)
	if err != nil {
		return
	}

	parentType, parentEntries := f.table.Get(parent)
	if parentType != inode.Directory {
		err = ErrNotADirectory
		return
	}

	if _, ok := parentEntries.Lookup(childName); ok {
		err = fmt.Errorf("%q: %w", childName, ErrExists)
		return
	}

	return
}
