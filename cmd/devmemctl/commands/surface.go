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

package commands

import (
	"io"
	"os"
	"strconv"

	"github.com/gx-org/devmem/backend/platform"
	"github.com/gx-org/devmem/config"
	"github.com/gx-org/devmem/surface"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type surfaceFlags struct {
	steps      int
	checkpoint string
	restart    string
}

func newSurfaceCmd(a *app) *cobra.Command {
	var flags surfaceFlags
	cmd := &cobra.Command{
		Use:   "surface",
		Short: "Mirror the surface-layer fields on the device and run empty steps",
		Long: `surface allocates the surface-layer fields on the device, then runs
forward, solver and backward transfers for the given number of steps with a
solver that leaves the device fields untouched. The fields are released at
the end of the run.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if flags.steps < 0 {
				return errors.Errorf("--steps must be non-negative, got %d", flags.steps)
			}
			var run func(*config.Config, surfaceFlags, *zap.Logger, io.Writer) error
			switch a.cfg.Surface.Precision {
			case "float32":
				run = runSurface[float32]
			default:
				run = runSurface[float64]
			}
			return run(a.cfg, flags, a.logger, cmd.OutOrStdout())
		}),
	}
	cmd.Flags().IntVar(&flags.steps, "steps", 1, "number of steps")
	cmd.Flags().StringVar(&flags.checkpoint, "checkpoint", "", "restart file written at the end of the run")
	cmd.Flags().StringVar(&flags.restart, "restart", "", "restart file read before the run")
	return cmd
}

// noopSolver leaves the device fields untouched.
var noopSolver = surface.SolverFunc(func(*surface.DeviceFields) error { return nil })

func surfaceOptions(cfg *config.Config) surface.Options {
	return surface.Options{
		Z0m:        cfg.Surface.Z0m,
		Z0h:        cfg.Surface.Z0h,
		Ustar:      cfg.Surface.Ustar,
		ConstantZ0: cfg.Surface.ConstantZ0,
		LookupSize: cfg.Surface.LookupSize,
	}
}

func runSurface[T surface.Float](cfg *config.Config, flags surfaceFlags, logger *zap.Logger, w io.Writer) (err error) {
	grid := surface.Grid{ICells: cfg.Grid.ICells, JCells: cfg.Grid.JCells}
	m, err := surface.New[T](grid, surfaceOptions(cfg), logger.Named("surface"))
	if err != nil {
		return err
	}
	m.Init()
	var iotime int64
	if flags.restart != "" {
		if iotime, err = loadRestart(m, flags.restart); err != nil {
			return err
		}
	}

	before := platform.ReadStats()
	if err := m.PrepareDevice(); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, m.ClearDevice()) }()
	for step := 0; step < flags.steps; step++ {
		if err := m.ForwardDevice(); err != nil {
			return err
		}
		if err := m.Exec(noopSolver); err != nil {
			return err
		}
		if err := m.BackwardDevice(); err != nil {
			return err
		}
		iotime++
	}
	after := platform.ReadStats()

	if flags.checkpoint != "" {
		if err := saveRestart(m, flags.checkpoint, iotime); err != nil {
			return err
		}
	}
	var fieldBytes uint64
	for _, f := range m.Fields() {
		fieldBytes += f.ByteSize()
	}
	return renderPairs(w, "Surface layer", [][2]string{
		{"grid", strconv.Itoa(grid.ICells) + "x" + strconv.Itoa(grid.JCells)},
		{"fields", strconv.Itoa(len(m.Fields()))},
		{"field bytes", humanSize(fieldBytes)},
		{"steps", strconv.Itoa(flags.steps)},
		{"to device", humanSize(after.HostToDevice - before.HostToDevice)},
		{"to host", humanSize(after.DeviceToHost - before.DeviceToHost)},
		{"iotime", strconv.FormatInt(iotime, 10)},
	})
}

func loadRestart[T surface.Float](m *surface.Model[T], path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "cannot open restart file")
	}
	defer f.Close()
	return m.Load(f)
}

func saveRestart[T surface.Float](m *surface.Model[T], path string, iotime int64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create restart file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, errors.Wrap(cerr, "cannot close restart file"))
		}
	}()
	return m.Save(f, iotime)
}
