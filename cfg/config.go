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

// Package cfg defines the server configuration surface: the Config struct
// tree, flag binding, and validation. Values come from flags and optionally
// from a YAML config file, merged by viper.
package cfg

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tecnicofs/tecnicofs/internal/logger"
)

// LogSeverity is a log level name. Parsing is case-insensitive; the
// canonical form is upper case.
type LogSeverity string

type Config struct {
	// Whether to stay attached to the terminal instead of daemonizing.
	Foreground bool `yaml:"foreground"`

	Logging LoggingConfig `yaml:"logging"`

	Metrics MetricsConfig `yaml:"metrics"`

	FileSystem FileSystemConfig `yaml:"file-system"`
}

type LoggingConfig struct {
	// Path of the log file. Empty logs to stderr.
	FilePath string `yaml:"file-path"`

	// "text" or "json".
	Format string `yaml:"format"`

	Severity LogSeverity `yaml:"severity"`
}

type MetricsConfig struct {
	// Port for the Prometheus endpoint on localhost. Zero disables it.
	Port int `yaml:"port"`
}

type FileSystemConfig struct {
	// Capacity of the inode table, fixed at startup.
	InodeTableSize int `yaml:"inode-table-size"`
}

// DefaultInodeTableSize is used when no flag or config file overrides it.
const DefaultInodeTableSize = 50

// BindFlags registers every config flag on the flag set and binds it to its
// viper key.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.Bool("foreground", false,
		"Stay in the foreground instead of daemonizing.")

	flagSet.String("log-file", "",
		"Path of the log file. Logs to stderr when unset.")

	flagSet.String("log-format", logger.FormatText,
		"Format of the logs: text or json.")

	flagSet.String("log-severity", logger.SeverityInfo,
		"Lowest severity to log: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")

	flagSet.Int("metrics-port", 0,
		"Port for the Prometheus metrics endpoint on localhost. 0 disables it.")

	flagSet.Int("inode-table-size", DefaultInodeTableSize,
		"Capacity of the inode table.")

	bindings := map[string]string{
		"foreground":                   "foreground",
		"logging.file-path":            "log-file",
		"logging.format":               "log-format",
		"logging.severity":             "log-severity",
		"metrics.port":                 "metrics-port",
		"file-system.inode-table-size": "inode-table-size",
	}

	for key, name := range bindings {
		if err := viper.BindPFlag(key, flagSet.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %q: %w", name, err)
		}
	}

	return nil
}

// DecodeHook canonicalizes LogSeverity values while viper unmarshals.
func DecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(LogSeverity("")) {
			return data, nil
		}

		return LogSeverity(strings.ToUpper(data.(string))), nil
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if !logger.ValidSeverity(string(c.Logging.Severity)) {
		return fmt.Errorf("unsupported log severity: %q", c.Logging.Severity)
	}

	switch c.Logging.Format {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("unsupported log format: %q", c.Logging.Format)
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics port out of range: %d", c.Metrics.Port)
	}

	if c.FileSystem.InodeTableSize < 1 {
		return fmt.Errorf("inode table size must be at least 1: %d",
			c.FileSystem.InodeTableSize)
	}

	return nil
}

// String renders the config as YAML, for logging at startup.
func (c *Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}

	return string(b)
}
