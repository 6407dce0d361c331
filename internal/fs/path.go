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

// Components tokenizes a slash-separated path. The leading slash is optional,
// a trailing slash is tolerated, and empty components are skipped, so
// "/a/b", "a/b/", and "a//b" all yield [a b]. The empty path yields an empty
// slice and denotes the root.
func Components(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// SplitParentChild splits a path into the path of its parent directory and
// the name of its final component. The root splits into ("", "").
func SplitParentChild(path string) (parent string, child string) {
	components := Components(path)
	if len(components) == 0 {
		return
	}

	parent = strings.Join(components[:len(components)-1], "/")
	child = components[len(components)-1]

	return
}

// checkPath rejects paths longer than the fixed bound. Byte length of the
// raw input is what counts; components are not interpreted.
func checkPath(path string) (err error) {
	if len(path) > inode.MaxFileName {
		err = fmt.Errorf("%q: %w", path, ErrNameTooLong)
	}

	return
}

// splitPath validates the path and splits it into parent components and the
// final name. Paths that reduce to the root are rejected: the root cannot be
// created, deleted, or moved.
func splitPath(path string) (parentComponents []string, child string, err error) {
	if err = checkPath(path); err != nil {
		return
	}

	components := Components(path)
	if len(components) == 0 {
		err = fmt.Errorf("%q: %w", path, ErrIsRoot)
		return
	}

	parentComponents = components[:len(components)-1]
	child = components[len(components)-1]

	return
}
