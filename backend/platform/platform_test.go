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

package platform_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gx-org/devmem/backend/platform"
	"github.com/pkg/errors"
)

func TestAllocationErrorMessage(t *testing.T) {
	err := error(&platform.AllocationError{
		Requested:   10_000_000,
		Free:        4096,
		Total:       8192,
		MemoryKnown: true,
		Device:      2,
		DeviceKnown: true,
	})
	for _, want := range []string{"device 2", "10000000 bytes", "4096 bytes are available", "total 8192 bytes"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message %q does not contain %q", err, want)
		}
	}
	if !errors.Is(err, platform.ErrAllocation) {
		t.Errorf("%v should match ErrAllocation", err)
	}
	if errors.Is(err, platform.ErrRuntime) {
		t.Errorf("%v should not match ErrRuntime", err)
	}
}

func TestAllocationErrorUnknownDiagnostics(t *testing.T) {
	err := errors.WithStack(&platform.AllocationError{Requested: 123})
	msg := err.Error()
	for _, want := range []string{"device unknown", "123 bytes", "available device memory unknown"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}
	var allocErr *platform.AllocationError
	if !errors.As(err, &allocErr) || allocErr.Requested != 123 {
		t.Errorf("errors.As(%v) = %v", err, allocErr)
	}
}

func TestRuntimeError(t *testing.T) {
	err := error(&platform.RuntimeError{Op: "cudaMemcpy", Code: 700, Detail: "an illegal memory access was encountered"})
	if got, want := err.Error(), "device runtime failure in cudaMemcpy: an illegal memory access was encountered (code 700)"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !errors.Is(errors.Wrap(err, "pushing z0m"), platform.ErrRuntime) {
		t.Errorf("wrapped runtime error should match ErrRuntime")
	}
	noCode := &platform.RuntimeError{Op: "free", Code: -1, Detail: "bad address"}
	if got, want := noCode.Error(), "device runtime failure in free: bad address"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestZeroLengthCopy(t *testing.T) {
	host := platform.Host(make([]byte, 4))
	var dev platform.DevicePtr
	tests := []struct {
		name     string
		src, dst platform.Memory
	}{
		{"host to host", host, host},
		{"host to device", host, dev},
		{"device to host", dev, host},
		{"device to device", dev, dev},
		{"nil operands", nil, nil},
		{"empty host", platform.Host(nil), platform.Host(nil)},
	}
	before := platform.ReadStats()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := platform.Copy(test.src, test.dst, 0); err != nil {
				t.Errorf("zero-length copy failed: %v", err)
			}
		})
	}
	after := platform.ReadStats()
	if after.HostToDevice != before.HostToDevice || after.DeviceToHost != before.DeviceToHost {
		t.Errorf("zero-length copies were counted: before %+v, after %+v", before, after)
	}
}

func TestEmptyBuffer(t *testing.T) {
	var buf platform.Buffer
	if !buf.Empty() || buf.Size() != 0 || !buf.Ptr().IsNil() {
		t.Errorf("zero value is not empty: %s", &buf)
	}
	if err := buf.Free(); err != nil {
		t.Errorf("freeing an empty buffer: %v", err)
	}
	var nilBuf *platform.Buffer
	if err := nilBuf.Free(); err != nil {
		t.Errorf("freeing a nil buffer: %v", err)
	}
	if !nilBuf.Empty() {
		t.Errorf("nil buffer should be empty")
	}
}

func TestZeroSizeBuffer(t *testing.T) {
	before := platform.ReadStats()
	buf, err := platform.NewBuffer(0)
	if err != nil {
		t.Fatalf("NewBuffer(0): %v", err)
	}
	if !buf.Empty() || buf.Size() != 0 {
		t.Errorf("NewBuffer(0) = %s, want an empty buffer", buf)
	}
	if err := buf.Reallocate(0); err != nil {
		t.Errorf("Reallocate(0): %v", err)
	}
	if err := buf.Free(); err != nil {
		t.Errorf("Free: %v", err)
	}
	after := platform.ReadStats()
	if after.Allocations != before.Allocations || after.Releases != before.Releases {
		t.Errorf("zero-size buffer reached the runtime: before %+v, after %+v", before, after)
	}
}

func TestMoveEmpty(t *testing.T) {
	var src platform.Buffer
	dst := src.Move()
	if !dst.Empty() || !src.Empty() {
		t.Errorf("moving an empty buffer: src %s, dst %s", &src, dst)
	}
	if err := dst.MoveFrom(&src); err != nil {
		t.Errorf("MoveFrom(empty): %v", err)
	}
	if err := dst.MoveFrom(dst); err != nil {
		t.Errorf("self move: %v", err)
	}
}

func TestDevicePtr(t *testing.T) {
	p := platform.DevicePtr(0x1000)
	if got := p.Add(0x20); got != 0x1020 {
		t.Errorf("Add = %s", got)
	}
	if got := p.String(); got != "device(0x1000)" {
		t.Errorf("String() = %q", got)
	}
	if got := platform.DevicePtr(0).String(); got != "device(nil)" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewHost(t *testing.T) {
	raw, values := platform.NewHost[float64](3)
	if len(raw) != 24 || len(values) != 3 {
		t.Fatalf("NewHost[float64](3): %d bytes, %d values", len(raw), len(values))
	}
	values[1] = 1
	if bytes.Equal(raw[8:16], make([]byte, 8)) {
		t.Errorf("values do not alias the host memory: %v", raw)
	}
	raw, ints := platform.NewHost[int32](0)
	if len(raw) != 0 || len(ints) != 0 {
		t.Errorf("NewHost[int32](0): %d bytes, %d values", len(raw), len(ints))
	}
}

func TestMoveNil(t *testing.T) {
	var nilBuf *platform.Buffer
	if moved := nilBuf.Move(); moved == nil || !moved.Empty() {
		t.Errorf("Move of a nil buffer = %v, want an empty buffer", moved)
	}
	var buf platform.Buffer
	if err := buf.MoveFrom(nil); err != nil {
		t.Errorf("MoveFrom(nil): %v", err)
	}
	if !buf.Empty() {
		t.Errorf("MoveFrom(nil) left %s", &buf)
	}
	if err := nilBuf.MoveFrom(&platform.Buffer{}); !errors.Is(err, platform.ErrInvalidArgument) {
		t.Errorf("MoveFrom into a nil buffer: got %v, want ErrInvalidArgument", err)
	}
	if err := nilBuf.MoveFrom(nil); err != nil {
		t.Errorf("nil self move: %v", err)
	}
}
