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

// Package server implements the request dispatcher: a unix datagram socket
// plus a pool of worker goroutines, each reading one request, applying the
// corresponding filesystem operation, and writing back a single integer
// result.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/jacobsa/timeutil"
	"golang.org/x/sync/errgroup"

	"github.com/tecnicofs/tecnicofs/internal/fs"
	"github.com/tecnicofs/tecnicofs/internal/logger"
	"github.com/tecnicofs/tecnicofs/internal/monitor"
)

const (
	// MaxInputSize bounds the text of one request datagram. Longer datagrams
	// are truncated.
	MaxInputSize = 100
)

// Config collects the dependencies and parameters of a Server.
type Config struct {
	// Filesystem path the datagram socket is bound to. A stale socket file
	// at that path is removed first.
	SocketPath string

	// Size of the worker pool.
	//
	// REQUIRES: NumWorkers >= 1
	NumWorkers int

	// A clock used for reporting how long the server ran.
	Clock timeutil.Clock

	// Command counters. May be nil to disable.
	Metrics *monitor.Metrics
}

// Server owns the socket and the worker pool. The filesystem is injected at
// construction and shared by all workers; its own locking makes that safe.
type Server struct {
	/////////////////////////
	// Dependencies
	/////////////////////////

	fs      *fs.FileSystem
	clock   timeutil.Clock
	metrics *monitor.Metrics

	/////////////////////////
	// Constant data
	/////////////////////////

	socketPath string
	numWorkers int

	/////////////////////////
	// Mutable state
	/////////////////////////

	conn *net.UnixConn
}

// New binds the socket and returns a server ready to Serve.
func New(cfg *Config, filesystem *fs.FileSystem) (s *Server, err error) {
	if cfg.NumWorkers < 1 {
		err = fmt.Errorf("number of workers must be at least 1, got %d", cfg.NumWorkers)
		return
	}

	// The bind fails on a leftover socket file from a previous run.
	if err = removeStaleSocket(cfg.SocketPath); err != nil {
		return
	}

	addr, err := net.ResolveUnixAddr("unixgram", cfg.SocketPath)
	if err != nil {
		err = fmt.Errorf("resolving socket address %q: %w", cfg.SocketPath, err)
		return
	}

	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		err = fmt.Errorf("binding socket %q: %w", cfg.SocketPath, err)
		return
	}

	s = &Server{
		fs:         filesystem,
		clock:      cfg.Clock,
		metrics:    cfg.Metrics,
		socketPath: cfg.SocketPath,
		numWorkers: cfg.NumWorkers,
		conn:       conn,
	}

	return
}

func removeStaleSocket(path string) (err error) {
	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		err = fmt.Errorf("removing stale socket %q: %w", path, err)
		return
	}

	return nil
}

// Serve runs the worker pool until the context is cancelled, then drains and
// returns. Each worker blocks in the receive call between requests; there is
// no per-request state shared between workers.
func (s *Server) Serve(ctx context.Context) (err error) {
	start := s.clock.Now()
	logger.Infof("Serving on %s with %d workers", s.socketPath, s.numWorkers)

	group, ctx := errgroup.WithContext(ctx)

	// Unblock the workers' receive calls when the context goes.
	group.Go(func() error {
		<-ctx.Done()
		return s.conn.Close()
	})

	for i := 0; i < s.numWorkers; i++ {
		group.Go(func() error {
			return s.worker(ctx)
		})
	}

	err = group.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		err = fmt.Errorf("worker pool: %w", err)
		return
	}

	logger.Infof("Served for %v", s.clock.Now().Sub(start))
	return nil
}

// Close releases the socket and removes its filesystem path. Safe to call
// after Serve has returned.
func (s *Server) Close() {
	_ = s.conn.Close()
	_ = os.Remove(s.socketPath)
}

// worker is one request loop: receive, execute, reply.
func (s *Server) worker(ctx context.Context) (err error) {
	buf := make([]byte, MaxInputSize)

	for {
		n, addr, readErr := s.conn.ReadFromUnix(buf)
		if readErr != nil {
			if ctx.Err() != nil || errors.Is(readErr, net.ErrClosed) {
				return nil
			}

			// A failed receive carries no request to answer; skip it.
			logger.Warnf("Receive error: %v", readErr)
			continue
		}

		if n == 0 {
			continue
		}

		result := s.execute(ctx, string(trimRequest(buf[:n])))

		reply := append([]byte(strconv.Itoa(result)), 0)
		if _, writeErr := s.conn.WriteToUnix(reply, addr); writeErr != nil {
			if ctx.Err() != nil || errors.Is(writeErr, net.ErrClosed) {
				return nil
			}

			logger.Warnf("Reply to %v failed: %v", addr, writeErr)
		}
	}
}

// trimRequest strips the terminating NUL (and anything after it) that
// C-style clients include in the datagram.
func trimRequest(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}

	return b
}
