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

// Package testing provides helpers to test code owning device memory.
package testing

import (
	"testing"

	"github.com/gx-org/devmem/backend/platform"
)

// CheckAllocationCount compares the current live allocation count to a reference.
// Signal a testing error if the two counts do not match.
func CheckAllocationCount(t testing.TB, startCount int64) {
	t.Helper()
	endCount := platform.LiveAllocations()
	if endCount != startCount {
		stats := platform.ReadStats()
		t.Errorf("device allocations are leaking: started with %d and ended with %d\nstats: %+v", startCount, endCount, stats)
	}
}

// TrackAllocations records the live allocation count and checks it again
// when the test finishes.
func TrackAllocations(t testing.TB) {
	t.Helper()
	start := platform.LiveAllocations()
	t.Cleanup(func() {
		CheckAllocationCount(t, start)
	})
}

// Pattern returns n bytes of a deterministic, non-constant pattern.
func Pattern(n int, seed byte) []byte {
	data := make([]byte, n)
	x := uint32(seed) | 1
	for i := range data {
		// xorshift32
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		data[i] = byte(x)
	}
	return data
}

// Free releases buffers at the end of a test.
func Free(t testing.TB, bufs ...*platform.Buffer) {
	t.Helper()
	t.Cleanup(func() {
		for _, buf := range bufs {
			if err := buf.Free(); err != nil {
				t.Errorf("cannot free %s: %v", buf, err)
			}
		}
	})
}
