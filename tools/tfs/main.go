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

// tfs issues a single TecnicoFS command against a running server:
//
//	tfs --socket /tmp/tfs.sock c /a d
//	tfs --socket /tmp/tfs.sock l /a
//
// Exit status is 0 when the server reports success (or a lookup hit) and 1
// otherwise.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tecnicofs/tecnicofs/client"
)

var fSocket = flag.String("socket", "", "Path of the server socket.")
var fTimeout = flag.Duration("timeout", 10*time.Second, "Per-request reply timeout.")

func run(args []string) (err error) {
	if *fSocket == "" {
		err = errors.New("you must set --socket")
		return
	}

	if len(args) < 2 {
		err = errors.New("usage: tfs --socket PATH {c|d|l|m|p} ARG...")
		return
	}

	c, err := client.Mount(*fSocket)
	if err != nil {
		err = fmt.Errorf("mounting: %w", err)
		return
	}
	defer func() {
		if unmountErr := c.Unmount(); unmountErr != nil && err == nil {
			err = unmountErr
		}
	}()

	c.SetTimeout(*fTimeout)

	switch op := args[0]; op {
	case "c":
		if len(args) != 3 || (args[2] != "f" && args[2] != "d") {
			err = errors.New("usage: tfs c PATH {f|d}")
			return
		}

		err = c.Create(args[1], client.NodeType(args[2][0]))

	case "d":
		err = c.Delete(args[1])

	case "l":
		var inumber int
		inumber, err = c.Lookup(args[1])
		if err != nil {
			return
		}

		if inumber < 0 {
			err = fmt.Errorf("%s: not found", args[1])
			return
		}

		fmt.Println(inumber)

	case "m":
		if len(args) != 3 {
			err = errors.New("usage: tfs m FROM TO")
			return
		}

		err = c.Move(args[1], args[2])

	case "p":
		err = c.Print(args[1])

	default:
		err = fmt.Errorf("unknown operation %q", op)
	}

	return
}

func main() {
	flag.Parse()

	err := run(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
