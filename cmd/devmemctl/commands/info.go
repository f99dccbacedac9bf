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
	"fmt"
	"strconv"

	"github.com/gx-org/devmem/backend/platform"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the device runtime, device memory and allocation statistics",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			info := a.backend.Info()
			stats := platform.ReadStats()
			ordinal, memory := "unknown", "unknown"
			if info.OrdinalKnown {
				ordinal = strconv.Itoa(info.Ordinal)
			}
			if info.MemoryKnown {
				memory = fmt.Sprintf("%s free of %s", humanSize(info.Free), humanSize(info.Total))
			}
			return renderPairs(cmd.OutOrStdout(), "Device runtime", [][2]string{
				{"backend", info.Backend},
				{"accelerated", strconv.FormatBool(info.Accelerated)},
				{"device", ordinal},
				{"memory", memory},
				{"allocations", strconv.FormatUint(stats.Allocations, 10)},
				{"live", fmt.Sprintf("%d (%s)", stats.Live, humanSize(stats.LiveBytes))},
				{"peak", humanSize(stats.PeakBytes)},
			})
		}),
	}
}
