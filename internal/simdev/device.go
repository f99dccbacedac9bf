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

// Package simdev simulates an accelerator whose memory lives in the host heap.
//
// Addresses handed out by the simulated device are opaque, aligned and never
// reused, so that use-after-free and out-of-range accesses surface as errors
// instead of silently touching recycled memory.
package simdev

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Alignment of every allocation, matching what CUDA guarantees for cudaMalloc.
const Alignment = 256

// baseAddress is the first address handed out by a device.
const baseAddress uintptr = 0x7f00_0000_0000

var (
	// ErrOutOfMemory is returned when an allocation does not fit in the remaining capacity.
	ErrOutOfMemory = errors.New("out of device memory")
	// ErrInvalidAddress is returned when an address does not belong to a live allocation.
	ErrInvalidAddress = errors.New("invalid device address")
)

// Op identifies a device operation for fault injection.
type Op int

// Device operations.
const (
	OpMalloc Op = iota
	OpFree
	OpResolve
	OpMemGetInfo
	OpGetDevice
)

func (op Op) String() string {
	switch op {
	case OpMalloc:
		return "malloc"
	case OpFree:
		return "free"
	case OpResolve:
		return "resolve"
	case OpMemGetInfo:
		return "memGetInfo"
	case OpGetDevice:
		return "getDevice"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Stats counts the calls made on a device.
type Stats struct {
	Mallocs   int
	Frees     int
	Live      int
	LiveBytes uint64
	PeakBytes uint64
}

type allocation struct {
	base uintptr
	data []byte
}

func (a *allocation) end() uintptr {
	return a.base + uintptr(len(a.data))
}

// Device is a simulated accelerator.
type Device struct {
	mu       sync.Mutex
	ordinal  int
	capacity uint64
	next     uintptr
	allocs   []*allocation // sorted by base
	faults   map[Op]error
	stats    Stats
}

// New returns a device with the given ordinal and memory capacity in bytes.
func New(ordinal int, capacity uint64) *Device {
	return &Device{
		ordinal:  ordinal,
		capacity: capacity,
		next:     baseAddress,
		faults:   make(map[Op]error),
	}
}

// Ordinal of the device.
func (d *Device) Ordinal() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fault(OpGetDevice); err != nil {
		return -1, err
	}
	return d.ordinal, nil
}

// InjectFault makes the next call of op fail with err.
func (d *Device) InjectFault(op Op, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[op] = err
}

func (d *Device) fault(op Op) error {
	err, ok := d.faults[op]
	if !ok {
		return nil
	}
	delete(d.faults, op)
	return err
}

func alignUp(n uint64) uint64 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Malloc allocates size bytes of zeroed device memory.
func (d *Device) Malloc(size uint64) (uintptr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fault(OpMalloc); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, errors.Errorf("cannot allocate 0 bytes")
	}
	if size > d.capacity-d.stats.LiveBytes {
		return 0, errors.Wrapf(ErrOutOfMemory, "requested %d bytes with %d of %d bytes free", size, d.capacity-d.stats.LiveBytes, d.capacity)
	}
	a := &allocation{base: d.next, data: make([]byte, size)}
	d.next += uintptr(alignUp(size))
	d.allocs = append(d.allocs, a)
	d.stats.Mallocs++
	d.stats.Live++
	d.stats.LiveBytes += size
	d.stats.PeakBytes = max(d.stats.PeakBytes, d.stats.LiveBytes)
	return a.base, nil
}

// Free releases the allocation starting at addr.
func (d *Device) Free(addr uintptr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fault(OpFree); err != nil {
		return err
	}
	i, ok := d.find(addr)
	if !ok || d.allocs[i].base != addr {
		return errors.Wrapf(ErrInvalidAddress, "free of %#x", addr)
	}
	a := d.allocs[i]
	d.allocs = append(d.allocs[:i], d.allocs[i+1:]...)
	d.stats.Frees++
	d.stats.Live--
	d.stats.LiveBytes -= uint64(len(a.data))
	return nil
}

// find returns the index of the allocation containing addr.
func (d *Device) find(addr uintptr) (int, bool) {
	i := sort.Search(len(d.allocs), func(i int) bool {
		return d.allocs[i].end() > addr
	})
	if i == len(d.allocs) || addr < d.allocs[i].base {
		return 0, false
	}
	return i, true
}

// Resolve returns the n bytes of device memory starting at addr.
// The range must lie inside a single live allocation.
func (d *Device) Resolve(addr uintptr, n uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fault(OpResolve); err != nil {
		return nil, err
	}
	i, ok := d.find(addr)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidAddress, "access of %d bytes at %#x", n, addr)
	}
	a := d.allocs[i]
	off := uint64(addr - a.base)
	if n > uint64(len(a.data))-off {
		return nil, errors.Wrapf(ErrInvalidAddress, "access of %d bytes at %#x overruns allocation %#x of %d bytes", n, addr, a.base, len(a.data))
	}
	return a.data[off : off+n], nil
}

// MemGetInfo returns the free and total memory of the device in bytes.
func (d *Device) MemGetInfo() (free, total uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fault(OpMemGetInfo); err != nil {
		return 0, 0, err
	}
	return d.capacity - d.stats.LiveBytes, d.capacity, nil
}

// Stats returns the call counters of the device.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Reset drops every allocation, pending fault and counter.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allocs = nil
	d.faults = make(map[Op]error)
	d.stats = Stats{}
}
