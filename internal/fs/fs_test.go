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

package fs_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tecnicofs/tecnicofs/internal/fs"
	"github.com/tecnicofs/tecnicofs/internal/fs/inode"
)

const testTableSize = 50

type FileSystemTest struct {
	suite.Suite

	fs *fs.FileSystem
}

func TestFileSystemSuite(t *testing.T) {
	suite.Run(t, new(FileSystemTest))
}

func (t *FileSystemTest) SetupTest() {
	var err error
	t.fs, err = fs.New(testTableSize)
	require.NoError(t.T(), err)
}

func (t *FileSystemTest) dump() string {
	var buf bytes.Buffer
	require.NoError(t.T(), t.fs.PrintTree(&buf))
	return buf.String()
}

////////////////////////////////////////////////////////////////////////
// Create / lookup / delete
////////////////////////////////////////////////////////////////////////

func (t *FileSystemTest) TestLookupOfRoot() {
	inumber, err := t.fs.Lookup("/")

	assert.NoError(t.T(), err)
	assert.Equal(t.T(), inode.RootInumber, inumber)

	// The empty path also denotes the root.
	inumber, err = t.fs.Lookup("")
	assert.NoError(t.T(), err)
	assert.Equal(t.T(), inode.RootInumber, inumber)
}

func (t *FileSystemTest) TestCreateThenLookup() {
	require.NoError(t.T(), t.fs.CreateNode("/x", inode.File))

	inumber, err := t.fs.Lookup("/x")

	assert.NoError(t.T(), err)
	assert.GreaterOrEqual(t.T(), inumber, 1)
}

func (t *FileSystemTest) TestLookupOfMissingPath() {
	_, err := t.fs.Lookup("/nope")

	assert.ErrorIs(t.T(), err, fs.ErrNotFound)
}

func (t *FileSystemTest) TestCreateOfExistingPathFails() {
	require.NoError(t.T(), t.fs.CreateNode("/x", inode.Directory))

	err := t.fs.CreateNode("/x", inode.Directory)

	assert.ErrorIs(t.T(), err, fs.ErrExists)

	// State equals the one after the first create.
	inumber, err := t.fs.Lookup("/x")
	assert.NoError(t.T(), err)
	assert.GreaterOrEqual(t.T(), inumber, 1)
}

func (t *FileSystemTest) TestCreateUnderMissingParentFails() {
	err := t.fs.CreateNode("/a/b", inode.File)

	assert.ErrorIs(t.T(), err, fs.ErrNotFound)
}

func (t *FileSystemTest) TestCreateUnderFileFails() {
	require.NoError(t.T(), t.fs.CreateNode("/f", inode.File))

	err := t.fs.CreateNode("/f/x", inode.File)

	// The parent resolves to a file, which is rejected as not a directory.
	assert.Error(t.T(), err)
}

func (t *FileSystemTest) TestCreateOfRootFails() {
	assert.ErrorIs(t.T(), t.fs.CreateNode("/", inode.Directory), fs.ErrIsRoot)
}

func (t *FileSystemTest) TestCreateRejectsOverlongPaths() {
	long := "/" + strings.Repeat("x", inode.MaxFileName)

	assert.ErrorIs(t.T(), t.fs.CreateNode(long, inode.File), fs.ErrNameTooLong)
}

func (t *FileSystemTest) TestDeleteThenLookupFails() {
	require.NoError(t.T(), t.fs.CreateNode("/x", inode.File))

	require.NoError(t.T(), t.fs.Delete("/x"))

	_, err := t.fs.Lookup("/x")
	assert.ErrorIs(t.T(), err, fs.ErrNotFound)
}

func (t *FileSystemTest) TestDeleteOfMissingPathFails() {
	assert.ErrorIs(t.T(), t.fs.Delete("/x"), fs.ErrNotFound)
}

func (t *FileSystemTest) TestDeleteOfRootFails() {
	assert.ErrorIs(t.T(), t.fs.Delete("/"), fs.ErrIsRoot)
}

func (t *FileSystemTest) TestDeleteOfNonEmptyDirectoryFails() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/b", inode.File))

	assert.ErrorIs(t.T(), t.fs.Delete("/a"), fs.ErrNotEmpty)

	// Empty it bottom-up and the deletes go through.
	require.NoError(t.T(), t.fs.Delete("/a/b"))
	assert.NoError(t.T(), t.fs.Delete("/a"))
}

func (t *FileSystemTest) TestCreateDeleteLeavesTheTreeUnchanged() {
	require.NoError(t.T(), t.fs.CreateNode("/keep", inode.Directory))

	before := t.dump()

	require.NoError(t.T(), t.fs.CreateNode("/tmp", inode.File))
	require.NoError(t.T(), t.fs.Delete("/tmp"))

	assert.Equal(t.T(), before, t.dump())
}

func (t *FileSystemTest) TestDirectoryHierarchy() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/b", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/b/c", inode.File))

	inumber, err := t.fs.Lookup("/a/b/c")
	assert.NoError(t.T(), err)
	assert.GreaterOrEqual(t.T(), inumber, 1)
}

func (t *FileSystemTest) TestTableExhaustion() {
	small, err := fs.New(3)
	require.NoError(t.T(), err)

	// Root occupies one slot; two remain.
	require.NoError(t.T(), small.CreateNode("/a", inode.File))
	require.NoError(t.T(), small.CreateNode("/b", inode.File))

	err = small.CreateNode("/c", inode.File)
	assert.ErrorIs(t.T(), err, inode.ErrTableFull)

	// Deleting makes room again.
	require.NoError(t.T(), small.Delete("/a"))
	assert.NoError(t.T(), small.CreateNode("/c", inode.File))
}

////////////////////////////////////////////////////////////////////////
// Move
////////////////////////////////////////////////////////////////////////

func (t *FileSystemTest) TestMoveLeafKeepsItsInumber() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/b", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/f", inode.File))

	before, err := t.fs.Lookup("/a/f")
	require.NoError(t.T(), err)

	require.NoError(t.T(), t.fs.Move("/a/f", "/b/f"))

	_, err = t.fs.Lookup("/a/f")
	assert.ErrorIs(t.T(), err, fs.ErrNotFound)

	after, err := t.fs.Lookup("/b/f")
	assert.NoError(t.T(), err)
	assert.Equal(t.T(), before, after)
}

func (t *FileSystemTest) TestMoveCarriesTheSubtree() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/sub", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/sub/f", inode.File))
	require.NoError(t.T(), t.fs.CreateNode("/b", inode.Directory))

	require.NoError(t.T(), t.fs.Move("/a/sub", "/b/sub"))

	_, err := t.fs.Lookup("/a/sub/f")
	assert.ErrorIs(t.T(), err, fs.ErrNotFound)

	inumber, err := t.fs.Lookup("/b/sub/f")
	assert.NoError(t.T(), err)
	assert.GreaterOrEqual(t.T(), inumber, 1)
}

func (t *FileSystemTest) TestMoveRename() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/x", inode.File))

	require.NoError(t.T(), t.fs.Move("/a/x", "/a/y"))

	_, err := t.fs.Lookup("/a/x")
	assert.ErrorIs(t.T(), err, fs.ErrNotFound)

	_, err = t.fs.Lookup("/a/y")
	assert.NoError(t.T(), err)
}

func (t *FileSystemTest) TestMoveBackRestoresTheOriginalState() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/b", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/f", inode.File))

	before := t.dump()

	require.NoError(t.T(), t.fs.Move("/a/f", "/b/f"))
	require.NoError(t.T(), t.fs.Move("/b/f", "/a/f"))

	assert.Equal(t.T(), before, t.dump())
}

func (t *FileSystemTest) TestMoveIntoItselfFails() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))

	assert.ErrorIs(t.T(), t.fs.Move("/a", "/a/sub"), fs.ErrMoveIntoSelf)
}

func (t *FileSystemTest) TestMoveIntoOwnDescendantFails() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/b", inode.Directory))

	assert.ErrorIs(t.T(), t.fs.Move("/a", "/a/b/c"), fs.ErrMoveIntoSelf)
}

func (t *FileSystemTest) TestMoveOfRootFails() {
	assert.ErrorIs(t.T(), t.fs.Move("/", "/elsewhere"), fs.ErrIsRoot)
}

func (t *FileSystemTest) TestMoveOfMissingSourceFails() {
	require.NoError(t.T(), t.fs.CreateNode("/b", inode.Directory))

	assert.ErrorIs(t.T(), t.fs.Move("/a", "/b/a"), fs.ErrNotFound)
}

func (t *FileSystemTest) TestMoveOntoExistingTargetFails() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/b", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/f", inode.File))
	require.NoError(t.T(), t.fs.CreateNode("/b/f", inode.File))

	assert.ErrorIs(t.T(), t.fs.Move("/a/f", "/b/f"), fs.ErrExists)
}

func (t *FileSystemTest) TestMoveBetweenRootLevelNames() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.File))

	require.NoError(t.T(), t.fs.Move("/a", "/b"))

	_, err := t.fs.Lookup("/a")
	assert.ErrorIs(t.T(), err, fs.ErrNotFound)

	_, err = t.fs.Lookup("/b")
	assert.NoError(t.T(), err)
}

func (t *FileSystemTest) TestMoveOntoItselfFails() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.File))

	assert.ErrorIs(t.T(), t.fs.Move("/a", "/a"), fs.ErrExists)
}

////////////////////////////////////////////////////////////////////////
// Printing
////////////////////////////////////////////////////////////////////////

func (t *FileSystemTest) TestPrintTree() {
	require.NoError(t.T(), t.fs.CreateNode("/a", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/b", inode.Directory))
	require.NoError(t.T(), t.fs.CreateNode("/a/b/c", inode.File))
	require.NoError(t.T(), t.fs.CreateNode("/z", inode.File))

	assert.Equal(t.T(), "/a\n/a/b\n/a/b/c\n/z\n", t.dump())
}

func (t *FileSystemTest) TestPrintEmptyTree() {
	assert.Equal(t.T(), "", t.dump())
}
