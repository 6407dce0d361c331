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

// Package logger provides the process-wide leveled logger. Output goes to
// stderr by default, or to a size-rotated file when one is configured.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, from most to least verbose.
const (
	SeverityTrace   = "TRACE"
	SeverityDebug   = "DEBUG"
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
	SeverityOff     = "OFF"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// slog has no TRACE or OFF; extend its scale on both ends.
const (
	levelTrace = slog.LevelDebug - 4
	levelOff   = slog.LevelError + 128
)

const (
	// Rotation parameters for file-backed logs.
	maxLogFileSizeMB = 100
	maxLogFileCount  = 10
)

type loggerFactory struct {
	writer io.Writer
	format string
}

var (
	defaultLoggerFactory *loggerFactory
	defaultLogger        *slog.Logger
	programLevel         = new(slog.LevelVar)
)

func init() {
	defaultLoggerFactory = &loggerFactory{
		writer: os.Stderr,
		format: FormatText,
	}

	setLoggingLevel(SeverityInfo, programLevel)
	defaultLogger = defaultLoggerFactory.newLogger()
}

// Init reconfigures the default logger. An empty filePath keeps stderr;
// otherwise logs go to the file, rotated by size.
func Init(format string, severity string, filePath string) (err error) {
	var writer io.Writer = os.Stderr
	if filePath != "" {
		writer = &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    maxLogFileSizeMB,
			MaxBackups: maxLogFileCount,
		}
	}

	switch format {
	case FormatText, FormatJSON:
	default:
		err = fmt.Errorf("unsupported log format: %q", format)
		return
	}

	defaultLoggerFactory = &loggerFactory{
		writer: writer,
		format: format,
	}

	setLoggingLevel(severity, programLevel)
	defaultLogger = defaultLoggerFactory.newLogger()

	return
}

func (f *loggerFactory) newLogger() *slog.Logger {
	return slog.New(f.handler(f.writer, programLevel))
}

// handler builds a text or JSON slog handler whose records use the
// severity naming of this package instead of slog's.
func (f *loggerFactory) handler(w io.Writer, level *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severity"
				a.Value = slog.StringValue(severityName(a.Value.Any().(slog.Level)))

			case slog.MessageKey:
				a.Key = "message"
			}

			return a
		},
	}

	if f.format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

func severityName(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return SeverityTrace
	case l < slog.LevelInfo:
		return SeverityDebug
	case l < slog.LevelWarn:
		return SeverityInfo
	case l < slog.LevelError:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func setLoggingLevel(severity string, level *slog.LevelVar) {
	switch severity {
	case SeverityTrace:
		level.Set(levelTrace)
	case SeverityDebug:
		level.Set(slog.LevelDebug)
	case SeverityInfo:
		level.Set(slog.LevelInfo)
	case SeverityWarning:
		level.Set(slog.LevelWarn)
	case SeverityError:
		level.Set(slog.LevelError)
	case SeverityOff:
		level.Set(levelOff)
	default:
		level.Set(slog.LevelInfo)
	}
}

// ValidSeverity reports whether s names a known severity.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityTrace, SeverityDebug, SeverityInfo,
		SeverityWarning, SeverityError, SeverityOff:
		return true
	}

	return false
}

////////////////////////////////////////////////////////////////////////
// Logging functions
////////////////////////////////////////////////////////////////////////

func Tracef(format string, v ...any) {
	defaultLogger.Log(context.Background(), levelTrace, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...any) {
	defaultLogger.Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	defaultLogger.Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	defaultLogger.Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	defaultLogger.Error(fmt.Sprintf(format, v...))
}
