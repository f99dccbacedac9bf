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
	"bytes"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/gx-org/devmem/backend/platform"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var defaultRoundTripSizes = []uint{0, 1, 4096, 10_000_000}

func newRoundTripCmd(a *app) *cobra.Command {
	var sizes []uint
	cmd := &cobra.Command{
		Use:   "roundtrip",
		Short: "Copy data host to device, device to device and back, then compare",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			var rows [][]string
			var failed error
			for _, n := range sizes {
				size := uint64(n)
				start := time.Now()
				err := roundTrip(size)
				elapsed := time.Since(start)
				status := "ok"
				if err != nil {
					status = failStyle.Render(err.Error())
					failed = multierr.Append(failed, errors.WithMessagef(err, "%d bytes", size))
				}
				a.logger.Info("round trip", zap.Uint64("bytes", size), zap.Duration("elapsed", elapsed), zap.Error(err))
				rows = append(rows, []string{
					strconv.FormatUint(size, 10),
					humanSize(size),
					elapsed.Round(time.Microsecond).String(),
					status,
				})
			}
			if err := renderTable(cmd.OutOrStdout(), "Round trip on "+a.backend.Name(), []string{"bytes", "size", "elapsed", "status"}, rows); err != nil {
				return err
			}
			return failed
		}),
	}
	cmd.Flags().UintSliceVar(&sizes, "sizes", defaultRoundTripSizes, "sizes in bytes to copy")
	return cmd
}

// roundTrip copies size random bytes to a device buffer, to a second device
// buffer and back to the host. Both buffers are freed before returning.
func roundTrip(size uint64) (err error) {
	want := make([]byte, size)
	rng := rand.New(rand.NewPCG(size, 0x9e3779b97f4a7c15))
	for i := range want {
		want[i] = byte(rng.Uint32())
	}
	first, err := platform.NewBuffer(size)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, first.Free()) }()
	second, err := platform.NewBuffer(size)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, second.Free()) }()

	if err := platform.Copy(platform.Host(want), first.Ptr(), size); err != nil {
		return err
	}
	if err := platform.Copy(first.Ptr(), second.Ptr(), size); err != nil {
		return err
	}
	got := make([]byte, size)
	if err := platform.Copy(second.Ptr(), platform.Host(got), size); err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return errors.Errorf("data read back differs from data written")
	}
	return nil
}
