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

// Package fs implements the TecnicoFS filesystem operations on top of the
// inode table: create, delete, lookup, move, and tree printing, each with
// the locking protocol that makes it atomic with respect to concurrent
// readers and writers.
package fs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tecnicofs/tecnicofs/internal/fs/inode"
)

var (
	// ErrNotFound is returned when a path component does not exist.
	ErrNotFound = errors.New("no such file or directory")

	// ErrExists is returned by create and move when the target name is
	// already taken.
	ErrExists = errors.New("name already exists")

	// ErrNotADirectory is returned when a parent path resolves to a file.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotEmpty is returned when deleting a directory that still has
	// entries.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrIsRoot is returned by operations that would create, delete, or move
	// the root.
	ErrIsRoot = errors.New("operation not permitted on root")

	// ErrNameTooLong is returned for paths beyond the fixed length bound.
	ErrNameTooLong = errors.New("path too long")

	// ErrMoveIntoSelf is returned by move when the destination lies inside
	// the subtree being moved.
	ErrMoveIntoSelf = errors.New("cannot move a directory inside itself")
)

// LOCK ORDERING
//
// Every operation acquires per-inode locks strictly top-down along a tree
// branch, root first, and holds all of them until it finishes. Single-path
// operations therefore cannot form a cycle in the lock-wait graph. Move
// acquires two branches, but in a globally agreed order on
// (component count, parent path); see move.go. Inodes the operation already
// holds are skipped, so overlapping moves acquire shared ancestors in the
// same order too.
//
// Tree printing takes the root's write lock only: since every mutating path
// begins by locking the root, holding its write lock implies the rest of the
// system is quiescent.

// FileSystem is an in-memory hierarchical filesystem over a fixed-size inode
// table. The zero value is not usable; construct with New.
type FileSystem struct {
	table *inode.Table
}

// New creates a filesystem whose inode table has the supplied capacity. The
// root directory exists from the start.
func New(tableCapacity int) (f *FileSystem, err error) {
	table, err := inode.NewTable(tableCapacity)
	if err != nil {
		err = fmt.Errorf("initializing inode table: %w", err)
		return
	}

	f = &FileSystem{table: table}
	return
}

// Destroy tears down the inode table. No operation may run afterwards.
func (f *FileSystem) Destroy() {
	f.table.Destroy()
}

////////////////////////////////////////////////////////////////////////
// Path resolution
////////////////////////////////////////////////////////////////////////

// The intent a resolution is performed with. It decides the lock mode for
// the terminal inode: plain lookups read, everything else writes.
type caller int

const (
	asLookup caller = iota
	asCreate
	asDelete
	asMove
)

func (c caller) terminalMode() inode.LockMode {
	if c == asLookup {
		return inode.ReadMode
	}

	return inode.WriteMode
}

// resolve walks the components from the root, read-locking each intermediate
// directory and locking the terminal inode in the caller's mode. Every lock
// taken is recorded in locked; on every return, success or not, the caller
// owns releasing that set.
//
// In move mode, an inode already present in previously (the lock set of the
// operation's other branch) is not relocked and not recorded, but the walk
// still descends through it. This also covers the terminal and the root, so
// that a move whose two branches share a prefix, or the root itself, never
// relocks what it already holds.
func (f *FileSystem) resolve(
	components []string,
	c caller,
	locked *inode.LockSet,
	previously *inode.LockSet) (inumber int, err error) {
	lockUnlessHeld := func(in int, mode inode.LockMode) {
		if c == asMove && previously != nil && previously.Contains(in) {
			return
		}

		locked.Lock(in, mode)
	}

	current := inode.RootInumber

	// A path with no components is the root itself.
	if len(components) == 0 {
		lockUnlessHeld(current, c.terminalMode())
		inumber = current
		return
	}

	lockUnlessHeld(current, inode.ReadMode)
	_, entries := f.table.Get(current)

	for i, name := range components {
		child, ok := entries.Lookup(name)
		if !ok {
			inumber = inode.FreeInumber
			err = fmt.Errorf("%q: %w", name, ErrNotFound)
			return
		}

		if i == len(components)-1 {
			lockUnlessHeld(child, c.terminalMode())
			inumber = child
			return
		}

		lockUnlessHeld(child, inode.ReadMode)
		_, entries = f.table.Get(child)
		current = child
	}

	panic("unreachable")
}

////////////////////////////////////////////////////////////////////////
// Operations
////////////////////////////////////////////////////////////////////////

// CreateNode creates a file or directory at the supplied path. The parent
// directory must exist and must not already contain the name.
func (f *FileSystem) CreateNode(path string, typ inode.Type) (err error) {
	parentComponents, childName, err := splitPath(path)
	if err != nil {
		return
	}

	locked := f.table.NewLockSet()
	defer locked.Release()

	parent, err := f.resolve(parentComponents, asCreate, locked, nil)
	if err != nil {
		err = fmt.Errorf("resolving parent of %q: %w", path, err)
		return
	}

	parentType, parentEntries := f.table.Get(parent)
	if parentType != inode.Directory {
		err = fmt.Errorf("parent of %q: %w", path, ErrNotADirectory)
		return
	}

	if _, ok := parentEntries.Lookup(childName); ok {
		err = fmt.Errorf("%q: %w", path, ErrExists)
		return
	}

	child, err := f.table.Create(typ)
	if err != nil {
		err = fmt.Errorf("allocating inode for %q: %w", path, err)
		return
	}

	// Hold the new inode for reading until the operation finishes, so that a
	// lookup racing in right after the entry lands observes a fully formed
	// inode.
	locked.Lock(child, inode.ReadMode)

	if err = f.table.AddEntry(parent, child, childName); err != nil {
		// Reclaim the slot rather than leak it.
		_ = f.table.Delete(child)
		err = fmt.Errorf("linking %q: %w", path, err)
		return
	}

	return
}

// Delete removes the file or empty directory at the supplied path.
func (f *FileSystem) Delete(path string) (err error) {
	parentComponents, childName, err := splitPath(path)
	if err != nil {
		return
	}

	locked := f.table.NewLockSet()
	defer locked.Release()

	parent, err := f.resolve(parentComponents, asDelete, locked, nil)
	if err != nil {
		err = fmt.Errorf("resolving parent of %q: %w", path, err)
		return
	}

	parentType, parentEntries := f.table.Get(parent)
	if parentType != inode.Directory {
		err = fmt.Errorf("parent of %q: %w", path, ErrNotADirectory)
		return
	}

	child, ok := parentEntries.Lookup(childName)
	if !ok {
		err = fmt.Errorf("%q: %w", path, ErrNotFound)
		return
	}

	// Hold the child while it is checked and detached: a reader that already
	// locked it finishes before the slot is reclaimed, and nobody else can
	// reach it past our write lock on the parent.
	locked.Lock(child, inode.ReadMode)

	childType, childEntries := f.table.Get(child)
	if childType == inode.Directory && !childEntries.Empty() {
		err = fmt.Errorf("%q: %w", path, ErrNotEmpty)
		return
	}

	if err = f.table.ResetEntry(parent, child); err != nil {
		err = fmt.Errorf("detaching %q: %w", path, err)
		return
	}

	if err = f.table.Delete(child); err != nil {
		err = fmt.Errorf("reclaiming inode of %q: %w", path, err)
		return
	}

	return
}

// Lookup resolves the full path and returns the target's inumber.
func (f *FileSystem) Lookup(path string) (inumber int, err error) {
	if err = checkPath(path); err != nil {
		inumber = inode.FreeInumber
		return
	}

	locked := f.table.NewLockSet()
	defer locked.Release()

	inumber, err = f.resolve(Components(path), asLookup, locked, nil)
	return
}

// PrintTree writes every inode to w, one full path per line, while holding
// the root's write lock.
func (f *FileSystem) PrintTree(w io.Writer) (err error) {
	f.table.Lock(inode.RootInumber, inode.WriteMode)
	defer f.table.Unlock(inode.RootInumber, inode.WriteMode)

	return f.table.PrintTree(w, inode.RootInumber, "")
}

// PrintToFile writes the tree dump to the file at outPath, truncating it if
// it exists.
func (f *FileSystem) PrintToFile(outPath string) (err error) {
	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}

	err = f.PrintTree(file)

	if closeErr := file.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing output file: %w", closeErr)
	}

	return
}
