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

// Package inode implements the fixed-size inode table at the heart of
// TecnicoFS: a slot array where each slot carries its own reader/writer lock,
// a type tag, and (for directories) a bounded array of directory entries.
//
// Outside this package inodes are referred to exclusively by inumber. An
// inumber remains a valid table index even after its slot is reclaimed, so
// callers must revalidate through Get while holding an appropriate lock.
package inode

import (
	"strings"
)

// Type of filesystem object held by an inode slot.
type Type int

const (
	// Unknown is the zero value, held by free slots.
	Unknown Type = iota

	// File inodes carry no payload; they are empty handles.
	File

	// Directory inodes carry a fixed-size array of directory entries.
	Directory
)

func (t Type) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "unknown"
	}
}

const (
	// RootInumber is the reserved inumber of the root directory. The root is
	// created when the table is initialized and is never deallocated.
	RootInumber = 0

	// FreeInumber marks an unused directory entry. It is distinct from every
	// valid inumber.
	FreeInumber = -1

	// MaxDirEntries bounds the fan-out of a single directory.
	MaxDirEntries = 20

	// MaxFileName bounds both a single path component and a full path, in
	// bytes.
	MaxFileName = 100
)

// A DirEntry is one (inumber, name) record inside a directory inode's
// payload. A free entry has Inumber == FreeInumber.
type DirEntry struct {
	Inumber int
	Name    string
}

// Entries is the payload of a directory inode.
//
// INVARIANT: Non-free entries have pairwise distinct names.
// INVARIANT: Non-free entries have valid names (see ValidName).
type Entries [MaxDirEntries]DirEntry

// Lookup scans for the entry with the supplied name, returning its inumber.
// Names are compared byte for byte.
//
// The caller must hold at least a read lock on the owning directory.
func (e *Entries) Lookup(name string) (inumber int, ok bool) {
	for i := range e {
		if e[i].Inumber != FreeInumber {
			if e[i].Name == name {
				return e[i].Inumber, true
			}
		}
	}

	return FreeInumber, false
}

// Empty returns true iff every entry is free.
//
// The caller must hold at least a read lock on the owning directory.
func (e *Entries) Empty() bool {
	for i := range e {
		if e[i].Inumber != FreeInumber {
			return false
		}
	}

	return true
}

// ValidName decides whether name is acceptable as a directory entry name: it
// must be non-empty, at most MaxFileName bytes, and contain no slash.
func ValidName(name string) bool {
	if name == "" || len(name) > MaxFileName {
		return false
	}

	return !strings.ContainsRune(name, '/')
}

// freeEntries returns a payload with every entry marked free.
func freeEntries() (e Entries) {
	for i := range e {
		e[i].Inumber = FreeInumber
	}

	return
}
