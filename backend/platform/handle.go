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

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// noCopy makes go vet report copies of the structure embedding it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Buffer is the sole owner of one contiguous device allocation.
//
// A buffer is either empty (nil address, size 0) or owns exactly one live
// allocation of Size bytes. Ownership moves with Move and MoveFrom and is
// never shared: buffers must not be copied by value.
//
// The zero value is an empty buffer. Free releases the allocation; it must be
// called before the buffer is dropped.
type Buffer struct {
	noCopy noCopy

	ptr  DevicePtr
	size uint64
}

// NewBuffer allocates size bytes of device memory.
// A zero size returns an empty buffer without calling the device runtime.
func NewBuffer(size uint64) (*Buffer, error) {
	buf := &Buffer{}
	if err := buf.allocate(size); err != nil {
		return nil, err
	}
	return buf, nil
}

// Ptr returns the device address of the allocation, or the nil address
// when the buffer is empty.
func (b *Buffer) Ptr() DevicePtr {
	if b == nil {
		return 0
	}
	return b.ptr
}

// Size returns the size of the allocation in bytes.
func (b *Buffer) Size() uint64 {
	if b == nil {
		return 0
	}
	return b.size
}

// Empty returns true if the buffer does not own an allocation.
func (b *Buffer) Empty() bool {
	return b.Ptr().IsNil()
}

// Reallocate releases the current allocation, if any, then allocates size
// bytes. A zero size leaves the buffer empty.
//
// The current allocation is released before the new one is requested, so the
// device never holds both. If the new allocation fails, the buffer is left
// empty and the previous allocation is gone.
func (b *Buffer) Reallocate(size uint64) error {
	if err := b.release(); err != nil {
		return err
	}
	return b.allocate(size)
}

// Move transfers the allocation to a new buffer and leaves b empty.
// Moving a nil buffer returns an empty buffer.
func (b *Buffer) Move() *Buffer {
	if b == nil {
		return &Buffer{}
	}
	dst := &Buffer{ptr: b.ptr, size: b.size}
	b.ptr, b.size = 0, 0
	return dst
}

// MoveFrom releases the allocation owned by b, then transfers the
// allocation of src to b and leaves src empty. A nil src is an empty buffer.
func (b *Buffer) MoveFrom(src *Buffer) error {
	if b == src {
		return nil
	}
	if b == nil {
		return invalidArgument("cannot move %s into a nil buffer", src)
	}
	if err := b.release(); err != nil {
		return err
	}
	if src == nil {
		return nil
	}
	b.ptr, b.size = src.ptr, src.size
	src.ptr, src.size = 0, 0
	return nil
}

// Free releases the allocation owned by the buffer.
// Freeing an empty buffer does nothing.
func (b *Buffer) Free() error {
	if b == nil {
		return nil
	}
	return b.release()
}

// String describes the buffer.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer{%s, %d bytes}", b.Ptr(), b.Size())
}

func (b *Buffer) allocate(size uint64) error {
	if size == 0 {
		return nil
	}
	ptr, err := runtimeMalloc(size)
	if errors.Is(err, errOutOfMemory) {
		allocErr := allocationFailure(size, err)
		logger.Error("device allocation failed", zap.Uint64("bytes", size), zap.Error(allocErr))
		return allocErr
	}
	if err != nil {
		return err
	}
	b.ptr, b.size = ptr, size
	countAllocation(size)
	logger.Debug("device allocation", zap.Stringer("ptr", ptr), zap.Uint64("bytes", size))
	return nil
}

// release frees the allocation. The buffer is unchanged if the runtime
// reports an error.
func (b *Buffer) release() error {
	if b.ptr.IsNil() {
		return nil
	}
	if err := runtimeFree(b.ptr); err != nil {
		return err
	}
	logger.Debug("device release", zap.Stringer("ptr", b.ptr), zap.Uint64("bytes", b.size))
	countRelease(b.size)
	b.ptr, b.size = 0, 0
	return nil
}
