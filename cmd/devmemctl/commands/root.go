// Copyright 2024 Google LLC
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

// Package commands implements the devmemctl command line.
package commands

import (
	"github.com/gx-org/devmem/backend"
	"github.com/gx-org/devmem/config"
	"github.com/gx-org/devmem/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	v       *viper.Viper

	cfg     *config.Config
	logger  *zap.Logger
	backend *backend.Backend
}

// NewRoot returns the devmemctl root command.
func NewRoot() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:   "devmemctl",
		Short: "Inspect and exercise device memory",
		Long: `devmemctl opens the device runtime compiled into the binary
(none, devsim, pjrt or cuda) and reports on it or moves data through it.

Settings are read from devmem.yaml in the working directory, the file given
with --config, and DEVMEM_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./devmem.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Int("device", 0, "device ordinal")
	flags.String("plugin", "", "PJRT plugin name or path")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("device.ordinal", flags.Lookup("device"))
	_ = a.v.BindPFlag("device.plugin", flags.Lookup("plugin"))

	root.AddCommand(
		newInfoCmd(a),
		newRoundTripCmd(a),
		newSurfaceCmd(a),
	)
	return root
}

// open loads the configuration, builds the logger and opens the backend.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	bck, err := backend.Open(cfg.PlatformOptions(), logger)
	if err != nil {
		_ = logger.Sync()
		return errors.WithMessage(err, "cannot open the device runtime")
	}
	a.cfg, a.logger, a.backend = cfg, logger, bck
	logger.Debug("devmemctl started", zap.String("command", cmd.Name()), zap.String("backend", bck.Name()))
	return nil
}

// run wraps the body of a command so that the backend is closed whatever
// the outcome.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		return multierr.Append(err, a.close())
	}
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	// Syncing stderr fails on some platforms.
	_ = a.logger.Sync()
	return err
}
