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

package platform

import "sync/atomic"

// Stats is the allocation bookkeeping of all buffers of the process.
type Stats struct {
	// Allocations and Releases count successful device calls.
	Allocations, Releases uint64
	// Live is the number of allocations currently owned by buffers.
	Live int64
	// LiveBytes and PeakBytes are the current and highest owned byte counts.
	LiveBytes, PeakBytes uint64
	// Bytes copied per direction.
	HostToDevice, DeviceToHost, DeviceToDevice uint64
}

var counters struct {
	allocations, releases atomic.Uint64
	live                  atomic.Int64
	liveBytes, peakBytes  atomic.Uint64
	h2d, d2h, d2d         atomic.Uint64
}

func countAllocation(size uint64) {
	counters.allocations.Add(1)
	counters.live.Add(1)
	live := counters.liveBytes.Add(size)
	for {
		peak := counters.peakBytes.Load()
		if live <= peak || counters.peakBytes.CompareAndSwap(peak, live) {
			return
		}
	}
}

func countRelease(size uint64) {
	counters.releases.Add(1)
	counters.live.Add(-1)
	counters.liveBytes.Add(^(size - 1))
}

func countCopy(src, dst Memory, n uint64) {
	_, srcDevice := src.(DevicePtr)
	_, dstDevice := dst.(DevicePtr)
	switch {
	case srcDevice && dstDevice:
		counters.d2d.Add(n)
	case srcDevice:
		counters.d2h.Add(n)
	case dstDevice:
		counters.h2d.Add(n)
	}
}

// ReadStats returns a snapshot of the allocation bookkeeping.
func ReadStats() Stats {
	return Stats{
		Allocations:    counters.allocations.Load(),
		Releases:       counters.releases.Load(),
		Live:           counters.live.Load(),
		LiveBytes:      counters.liveBytes.Load(),
		PeakBytes:      counters.peakBytes.Load(),
		HostToDevice:   counters.h2d.Load(),
		DeviceToHost:   counters.d2h.Load(),
		DeviceToDevice: counters.d2d.Load(),
	}
}

// LiveAllocations returns the number of device allocations currently owned.
func LiveAllocations() int64 {
	return counters.live.Load()
}
