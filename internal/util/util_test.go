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

package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecnicofs/tecnicofs/internal/util"
)

func TestGetResolvedPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"empty", "", ""},
		{"already_absolute", "/tmp/x", "/tmp/x"},
		{"relative", "x/y", filepath.Join(wd, "x/y")},
		{"tilde_alone", "~", home},
		{"tilde_prefix", "~/sockets/tfs", filepath.Join(home, "sockets/tfs")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolved, err := util.GetResolvedPath(tc.path)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, resolved)
		})
	}
}
