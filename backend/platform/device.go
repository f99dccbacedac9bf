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

// DeviceInfo describes the device targeted by the runtime.
// Fields are best effort: they are only valid when the matching Known flag is set.
type DeviceInfo struct {
	// Backend is the name of the runtime compiled into the binary.
	Backend string
	// Accelerated is false in builds without accelerator support.
	Accelerated bool

	Ordinal      int
	OrdinalKnown bool

	Free, Total uint64
	MemoryKnown bool
}

// Query returns what the runtime reports about the current device.
// Failing queries are absorbed and reported as unknown.
func Query() DeviceInfo {
	info := DeviceInfo{
		Backend:     runtimeName,
		Accelerated: Accelerated,
	}
	bestEffort(func() error {
		ord, err := runtimeDevice()
		if err != nil {
			return err
		}
		info.Ordinal, info.OrdinalKnown = ord, true
		return nil
	})
	bestEffort(func() error {
		free, total, err := runtimeMemInfo()
		if err != nil {
			return err
		}
		info.Free, info.Total, info.MemoryKnown = free, total, true
		return nil
	})
	return info
}

// bestEffort runs a diagnostic query. Errors and panics of the query are
// absorbed: diagnostics never replace the failure they describe.
func bestEffort(query func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return query() == nil
}

// allocationFailure builds the error returned for an out-of-memory
// condition when allocating size bytes.
func allocationFailure(size uint64, cause error) *AllocationError {
	info := Query()
	return &AllocationError{
		Requested:   size,
		Free:        info.Free,
		Total:       info.Total,
		MemoryKnown: info.MemoryKnown,
		Device:      info.Ordinal,
		DeviceKnown: info.OrdinalKnown,
		cause:       cause,
	}
}
