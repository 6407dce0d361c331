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

package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/jacobsa/reqtrace"

	"github.com/tecnicofs/tecnicofs/internal/fs/inode"
	"github.com/tecnicofs/tecnicofs/internal/logger"
)

// Result codes rendered on the wire. Lookup hits reply with the inumber
// instead.
const (
	resultSuccess = 0
	resultFail    = -1
)

// execute parses one request into a command, applies it, and returns the
// integer to send back.
//
// Command grammar:
//
//	c <path> <f|d>
//	d <path>
//	l <path>
//	m <from> <to>
//	p <outFilePath>
func (s *Server) execute(ctx context.Context, request string) (result int) {
	fields := strings.Fields(request)
	if len(fields) < 2 {
		logger.Warnf("Invalid command: %q", request)
		return resultFail
	}

	op := fields[0]
	args := fields[1:]

	_, report := reqtrace.Trace(ctx, "Command "+op)

	var err error
	result, err = s.apply(op, args)
	if err != nil {
		logger.Debugf("Command %q failed: %v", request, err)
	}

	report(err)

	if s.metrics != nil {
		s.metrics.RecordCommand(op, err != nil)
	}

	return
}

func (s *Server) apply(op string, args []string) (result int, err error) {
	result = resultFail

	switch op {
	case "c":
		if len(args) != 2 {
			err = errInvalidCommand(op, args)
			return
		}

		var typ inode.Type
		switch args[1] {
		case "f":
			logger.Debugf("Create file: %s", args[0])
			typ = inode.File

		case "d":
			logger.Debugf("Create directory: %s", args[0])
			typ = inode.Directory

		default:
			err = errInvalidCommand(op, args)
			return
		}

		if err = s.fs.CreateNode(args[0], typ); err != nil {
			return
		}

	case "d":
		if len(args) != 1 {
			err = errInvalidCommand(op, args)
			return
		}

		logger.Debugf("Delete: %s", args[0])
		if err = s.fs.Delete(args[0]); err != nil {
			return
		}

	case "l":
		if len(args) != 1 {
			err = errInvalidCommand(op, args)
			return
		}

		var inumber int
		if inumber, err = s.fs.Lookup(args[0]); err != nil {
			logger.Debugf("Search: %s not found", args[0])
			return
		}

		logger.Debugf("Search: %s found", args[0])
		result = inumber
		return

	case "m":
		if len(args) != 2 {
			err = errInvalidCommand(op, args)
			return
		}

		logger.Debugf("Move %s to %s", args[0], args[1])
		if err = s.fs.Move(args[0], args[1]); err != nil {
			return
		}

	case "p":
		if len(args) != 1 {
			err = errInvalidCommand(op, args)
			return
		}

		logger.Debugf("Print tree to: %s", args[0])
		if err = s.fs.PrintToFile(args[0]); err != nil {
			return
		}

	default:
		err = errInvalidCommand(op, args)
		return
	}

	result = resultSuccess
	return
}

func errInvalidCommand(op string, args []string) error {
	return fmt.Errorf("invalid command: %s %s", op, strings.Join(args, " "))
}
