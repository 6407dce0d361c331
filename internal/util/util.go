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

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetResolvedPath expands a leading ~ to the user's home directory and makes
// the path absolute. Important for the daemonized run, which changes its
// working directory before this code runs again.
func GetResolvedPath(path string) (resolved string, err error) {
	if path == "" {
		return
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		var home string
		home, err = os.UserHomeDir()
		if err != nil {
			err = fmt.Errorf("finding home directory: %w", err)
			return
		}

		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	resolved, err = filepath.Abs(path)
	if err != nil {
		err = fmt.Errorf("making %q absolute: %w", path, err)
		return
	}

	return
}
