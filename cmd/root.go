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
	"fmt"
	"os"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tecnicofs/tecnicofs/cfg"
	"github.com/tecnicofs/tecnicofs/internal/util"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	serverConfig  cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "tecnicofs [flags] num_threads socket_path",
	Short: "Serve an in-memory TecnicoFS filesystem over a unix datagram socket",
	Long: `TecnicoFS keeps a hierarchical filesystem of files and directories in
          process memory and serves create, delete, lookup, move, and print
          commands received from client processes over a local datagram
          socket, using a fixed-size pool of worker threads.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}

		if err := serverConfig.Validate(); err != nil {
			return err
		}

		numWorkers, socketPath, err := populateArgs(args)
		if err != nil {
			return err
		}

		if !serverConfig.Foreground {
			return daemonizeSelf()
		}

		return serve(numWorkers, socketPath)
	},
}

func populateArgs(args []string) (
	numWorkers int,
	socketPath string,
	err error) {
	numWorkers, err = strconv.Atoi(args[0])
	if err != nil || numWorkers < 0 {
		err = fmt.Errorf("invalid number of threads: %q", args[0])
		return
	}

	if numWorkers == 0 {
		numWorkers = chooseNumWorkers()
	}

	// Canonicalize the socket path, making it absolute. This is important
	// when daemonizing, since the daemon will change its working directory
	// before running this code again.
	socketPath, err = util.GetResolvedPath(args[1])
	if err != nil {
		err = fmt.Errorf("canonicalizing socket path: %w", err)
		return
	}

	return
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config-file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		resolved, err := util.GetResolvedPath(cfgFile)
		if err != nil {
			configFileErr = fmt.Errorf("resolving config file path: %w", err)
			return
		}

		viper.SetConfigFile(resolved)
		viper.SetConfigType("yaml")

		if err := viper.ReadInConfig(); err != nil {
			configFileErr = fmt.Errorf("reading config file: %w", err)
			return
		}
	}

	unmarshalErr = viper.Unmarshal(
		&serverConfig,
		viper.DecodeHook(cfg.DecodeHook()),
		func(decoderConfig *mapstructure.DecoderConfig) {
			decoderConfig.TagName = "yaml"
		})
}
