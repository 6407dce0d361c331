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

package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// redirect points the default logger at a buffer with the supplied format
// and severity; each test sets its own state.
func redirect(buf *bytes.Buffer, format string, severity string) {
	defaultLoggerFactory = &loggerFactory{writer: buf, format: format}
	setLoggingLevel(severity, programLevel)
	defaultLogger = defaultLoggerFactory.newLogger()
}

func logEverything() {
	Tracef("trace %d", 1)
	Debugf("debug %d", 2)
	Infof("info %d", 3)
	Warnf("warning %d", 4)
	Errorf("error %d", 5)
}

func TestSeverityFiltering(t *testing.T) {
	tests := []struct {
		severity string
		expected []string
	}{
		{SeverityTrace, []string{"trace 1", "debug 2", "info 3", "warning 4", "error 5"}},
		{SeverityDebug, []string{"debug 2", "info 3", "warning 4", "error 5"}},
		{SeverityInfo, []string{"info 3", "warning 4", "error 5"}},
		{SeverityWarning, []string{"warning 4", "error 5"}},
		{SeverityError, []string{"error 5"}},
		{SeverityOff, nil},
	}

	all := []string{"trace 1", "debug 2", "info 3", "warning 4", "error 5"}

	for _, tc := range tests {
		t.Run(tc.severity, func(t *testing.T) {
			var buf bytes.Buffer
			redirect(&buf, FormatText, tc.severity)

			logEverything()

			out := buf.String()
			expected := map[string]bool{}
			for _, m := range tc.expected {
				expected[m] = true
			}

			for _, m := range all {
				if expected[m] {
					assert.Contains(t, out, m)
				} else {
					assert.NotContains(t, out, m)
				}
			}
		})
	}
}

func TestTextFormatUsesSeverityNames(t *testing.T) {
	var buf bytes.Buffer
	redirect(&buf, FormatText, SeverityTrace)

	Tracef("hello")

	assert.Contains(t, buf.String(), "severity=TRACE")
	assert.Contains(t, buf.String(), "message=hello")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	redirect(&buf, FormatJSON, SeverityInfo)

	Warnf("watch out")

	assert.Contains(t, buf.String(), `"severity":"WARNING"`)
	assert.Contains(t, buf.String(), `"message":"watch out"`)
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	assert.Error(t, Init("xml", SeverityInfo, ""))
}

func TestSetLoggingLevel(t *testing.T) {
	tests := []struct {
		severity string
		expected slog.Level
	}{
		{SeverityTrace, levelTrace},
		{SeverityDebug, slog.LevelDebug},
		{SeverityInfo, slog.LevelInfo},
		{SeverityWarning, slog.LevelWarn},
		{SeverityError, slog.LevelError},
		{SeverityOff, levelOff},
	}

	for _, tc := range tests {
		var level slog.LevelVar
		setLoggingLevel(tc.severity, &level)
		assert.Equal(t, tc.expected, level.Level(), tc.severity)
	}
}

func TestValidSeverity(t *testing.T) {
	for _, s := range []string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "OFF"} {
		assert.True(t, ValidSeverity(s), s)
	}

	for _, s := range []string{"", "info", "VERBOSE"} {
		assert.False(t, ValidSeverity(s), s)
	}
}
