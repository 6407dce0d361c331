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

// Package client is the client side of the TecnicoFS wire protocol: it
// builds text commands, sends each as one datagram to the server socket,
// and reads back a single integer result per request.
package client

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NodeType selects what a Create call creates.
type NodeType byte

const (
	File      NodeType = 'f'
	Directory NodeType = 'd'
)

// ErrRequestFailed is returned when the server answers a request with its
// failure code. The server does not transmit a reason.
var ErrRequestFailed = errors.New("server rejected the request")

// Result codes on the wire.
const (
	resultSuccess = 0
	resultFail    = -1
)

const replyBufferSize = 32

// A Client holds one mounted connection to a server. A Client correlates
// replies with requests by receiving on its own ephemeral socket, so a
// single Client must not be used from multiple goroutines concurrently;
// mount one per goroutine instead.
type Client struct {
	conn      *net.UnixConn
	server    *net.UnixAddr
	localPath string

	// Zero means block forever, like the reference client.
	timeout time.Duration
}

// Mount binds an ephemeral client socket and records the server address.
// The socket file lives in the system temporary directory until Unmount.
func Mount(serverSocketPath string) (c *Client, err error) {
	server, err := net.ResolveUnixAddr("unixgram", serverSocketPath)
	if err != nil {
		err = fmt.Errorf("resolving server address %q: %w", serverSocketPath, err)
		return
	}

	localPath := filepath.Join(
		os.TempDir(),
		fmt.Sprintf("tfs-client-%s.sock", uuid.New().String()))

	local, err := net.ResolveUnixAddr("unixgram", localPath)
	if err != nil {
		err = fmt.Errorf("resolving client address %q: %w", localPath, err)
		return
	}

	conn, err := net.ListenUnixgram("unixgram", local)
	if err != nil {
		err = fmt.Errorf("binding client socket %q: %w", localPath, err)
		return
	}

	c = &Client{
		conn:      conn,
		server:    server,
		localPath: localPath,
	}

	return
}

// Unmount closes the connection and removes the ephemeral socket file.
func (c *Client) Unmount() error {
	closeErr := c.conn.Close()
	removeErr := os.Remove(c.localPath)

	return errors.Join(closeErr, removeErr)
}

// SetTimeout bounds how long each request waits for its reply. Zero
// restores blocking forever.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Create asks the server to create a file or directory at path.
func (c *Client) Create(path string, nodeType NodeType) error {
	return c.expectSuccess(fmt.Sprintf("c %s %c", path, nodeType))
}

// Delete asks the server to delete the node at path.
func (c *Client) Delete(path string) error {
	return c.expectSuccess(fmt.Sprintf("d %s", path))
}

// Move asks the server to relink the node at from to the path to.
func (c *Client) Move(from string, to string) error {
	return c.expectSuccess(fmt.Sprintf("m %s %s", from, to))
}

// Print asks the server to write its tree dump to outFilePath, a path
// interpreted on the server's side.
func (c *Client) Print(outFilePath string) error {
	return c.expectSuccess(fmt.Sprintf("p %s", outFilePath))
}

// Lookup resolves path on the server. A hit returns the target's inumber
// (>= 0); a miss returns -1 with no error. The error is non-nil only for
// transport problems.
func (c *Client) Lookup(path string) (inumber int, err error) {
	return c.rpc(fmt.Sprintf("l %s", path))
}

func (c *Client) expectSuccess(request string) (err error) {
	result, err := c.rpc(request)
	if err != nil {
		return
	}

	if result != resultSuccess {
		err = fmt.Errorf("%q: %w", request, ErrRequestFailed)
		return
	}

	return
}

// rpc performs one request/reply exchange.
func (c *Client) rpc(request string) (result int, err error) {
	result = resultFail

	// Trailing NUL for interoperability with C-style servers.
	msg := append([]byte(request), 0)
	if _, err = c.conn.WriteToUnix(msg, c.server); err != nil {
		err = fmt.Errorf("sending %q: %w", request, err)
		return
	}

	// The zero deadline clears any deadline left by an earlier timeout.
	var deadline time.Time
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}

	if err = c.conn.SetReadDeadline(deadline); err != nil {
		err = fmt.Errorf("setting read deadline: %w", err)
		return
	}

	var buf [replyBufferSize]byte
	n, _, err := c.conn.ReadFromUnix(buf[:])
	if err != nil {
		err = fmt.Errorf("receiving reply for %q: %w", request, err)
		return
	}

	text := string(bytes.TrimRight(buf[:n], "\x00"))
	result, err = strconv.Atoi(text)
	if err != nil {
		err = fmt.Errorf("malformed reply %q: %w", text, err)
		result = resultFail
		return
	}

	return
}
