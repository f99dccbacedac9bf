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

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrAllocation matches device-reported out-of-memory failures.
	// Errors matching it are *AllocationError values.
	ErrAllocation = errors.New("device allocation failure")
	// ErrRuntime matches any other device-reported failure during
	// allocation, release or copy.
	ErrRuntime = errors.New("device runtime failure")
	// ErrUnsupported matches non-zero allocations and copies attempted
	// in a build without accelerator support.
	ErrUnsupported = errors.New("device memory unavailable")
	// ErrInvalidArgument matches operands rejected before reaching the device.
	ErrInvalidArgument = errors.New("invalid argument")
)

// errOutOfMemory is returned by runtimes when the device reports exhaustion.
// Buffers turn it into an *AllocationError carrying diagnostics.
var errOutOfMemory = errors.New("out of memory")

// AllocationError reports a device out-of-memory condition.
//
// The device state fields are collected on a best-effort basis after the
// failure: they are only meaningful when the matching Known flag is set.
type AllocationError struct {
	// Requested is the number of bytes the allocation attempted.
	Requested uint64
	// Free and Total are the device memory in bytes at the time of the failure.
	Free, Total uint64
	MemoryKnown bool
	// Device is the ordinal of the device the allocation targeted.
	Device      int
	DeviceKnown bool

	cause error
}

// Error returns the diagnostic message of the failure.
func (e *AllocationError) Error() string {
	var b strings.Builder
	b.WriteString("memory allocation failed on device ")
	if e.DeviceKnown {
		fmt.Fprintf(&b, "%d", e.Device)
	} else {
		b.WriteString("unknown")
	}
	fmt.Fprintf(&b, ": attempted to allocate %d bytes", e.Requested)
	if e.MemoryKnown {
		fmt.Fprintf(&b, ", but only %d bytes are available (total %d bytes)", e.Free, e.Total)
	} else {
		b.WriteString(", available device memory unknown")
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Is reports whether target is ErrAllocation.
func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocation
}

// Unwrap returns the error reported by the device runtime.
func (e *AllocationError) Unwrap() error {
	return e.cause
}

// RuntimeError is a device-reported failure other than out-of-memory.
type RuntimeError struct {
	// Op is the device operation that failed (malloc, free, memcpy...).
	Op string
	// Code is the runtime status code, or -1 when the runtime has none.
	Code int
	// Detail is the runtime description of the failure.
	Detail string
}

// Error returns the operation and the runtime description of the failure.
func (e *RuntimeError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("device runtime failure in %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("device runtime failure in %s: %s (code %d)", e.Op, e.Detail, e.Code)
}

// Is reports whether target is ErrRuntime.
func (e *RuntimeError) Is(target error) bool {
	return target == ErrRuntime
}

func runtimeFailure(op string, code int, detail string) error {
	return errors.WithStack(&RuntimeError{Op: op, Code: code, Detail: detail})
}

func unsupported(format string, args ...any) error {
	return errors.Wrapf(ErrUnsupported, format, args...)
}

func invalidArgument(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}
