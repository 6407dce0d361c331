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

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/daemonize"
	"github.com/jacobsa/timeutil"
	"github.com/kardianos/osext"
	"golang.org/x/sys/unix"

	"github.com/tecnicofs/tecnicofs/internal/fs"
	"github.com/tecnicofs/tecnicofs/internal/logger"
	"github.com/tecnicofs/tecnicofs/internal/monitor"
	"github.com/tecnicofs/tecnicofs/internal/server"
)

// daemonizeSelf re-invokes this binary with --foreground prepended, detached
// from the terminal, and waits for it to report startup success or failure.
func daemonizeSelf() (err error) {
	path, err := osext.Executable()
	if err != nil {
		err = fmt.Errorf("finding executable path: %w", err)
		return
	}

	args := append([]string{"--foreground"}, os.Args[1:]...)

	err = daemonize.Run(path, args, os.Environ(), os.Stdout)
	if err != nil {
		err = fmt.Errorf("daemonize.Run: %w", err)
		return
	}

	return
}

// serve runs the server in this process until SIGINT or SIGTERM.
func serve(numWorkers int, socketPath string) (err error) {
	err = logger.Init(
		serverConfig.Logging.Format,
		string(serverConfig.Logging.Severity),
		serverConfig.Logging.FilePath)
	if err != nil {
		err = fmt.Errorf("initializing logger: %w", err)
		return
	}

	logger.Debugf("Configuration:\n%s", serverConfig.String())

	filesystem, err := fs.New(serverConfig.FileSystem.InodeTableSize)
	if err != nil {
		_ = daemonize.SignalOutcome(err)
		return
	}

	var metrics *monitor.Metrics
	var metricsSrv *http.Server
	if serverConfig.Metrics.Port > 0 {
		metrics = monitor.NewMetrics()
		metricsSrv = monitor.StartServer(serverConfig.Metrics.Port, metrics)
	}

	srv, err := server.New(
		&server.Config{
			SocketPath: socketPath,
			NumWorkers: numWorkers,
			Clock:      timeutil.RealClock(),
			Metrics:    metrics,
		},
		filesystem)
	if err != nil {
		_ = daemonize.SignalOutcome(err)
		return
	}

	// Startup succeeded; let the invoking process exit, if there is one.
	_ = daemonize.SignalOutcome(nil)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.Serve(ctx)

	srv.Close()
	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	filesystem.Destroy()

	return
}

// chooseNumWorkers picks a worker count when the user passes zero. Scale
// with the process's open-file limit, but not too large.
func chooseNumWorkers() (n int) {
	const defaultWorkers = 4

	var rlimit unix.Rlimit
	err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit)
	if err != nil {
		logger.Warnf("Failed to query RLIMIT_NOFILE; using %d workers", defaultWorkers)
		n = defaultWorkers
		return
	}

	// Heuristic: one worker per 64 descriptors the process may hold open.
	n64 := rlimit.Cur / 64

	const reasonableLimit = 1 << 5
	if n64 > reasonableLimit {
		n64 = reasonableLimit
	}
	if n64 < 1 {
		n64 = 1
	}

	n = int(n64)
	return
}
