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

//go:build pjrt && !cuda

package platform

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/pjrt"
	"github.com/gx-org/devmem/plugin"
	"github.com/pkg/errors"
)

const (
	accelerated = true
	runtimeName = "pjrt"
)

// pjrtAlignment spaces the opaque addresses handed out for PJRT buffers.
const pjrtAlignment = 256

// pjrtAllocation is a PJRT buffer of uint8 holding one allocation.
//
// PJRT buffers are immutable from the host, so writes replace the buffer
// while the address handed out to callers stays the same.
type pjrtAllocation struct {
	base   DevicePtr
	size   uint64
	buffer *pjrt.Buffer
}

// pjrtDestroy releases a PJRT buffer.
var pjrtDestroy = (*pjrt.Buffer).Destroy

var pjrtState struct {
	client  *pjrt.Client
	device  *pjrt.Device
	ordinal int
	next    DevicePtr
	allocs  map[DevicePtr]*pjrtAllocation
}

func runtimeInit(opts Options) error {
	if len(pjrtState.allocs) > 0 {
		return runtimeFailure("init", -1, "PJRT client still has live allocations")
	}
	if err := runtimeClose(); err != nil {
		return err
	}
	clt, err := plugin.Load(plugin.Name(opts.Plugin))
	if err != nil {
		return runtimeFailure("init", -1, err.Error())
	}
	devices := clt.AddressableDevices()
	if opts.Device < 0 || opts.Device >= len(devices) {
		_ = clt.Destroy()
		return runtimeFailure("init", -1, fmt.Sprintf("device %d out of range: plugin exposes %d devices", opts.Device, len(devices)))
	}
	pjrtState.client = clt
	pjrtState.device = devices[opts.Device]
	pjrtState.ordinal = opts.Device
	pjrtState.next = 1 << 32
	pjrtState.allocs = make(map[DevicePtr]*pjrtAllocation)
	return nil
}

func pjrtClient() (*pjrt.Client, error) {
	if pjrtState.client == nil {
		if err := runtimeInit(Options{}); err != nil {
			return nil, err
		}
	}
	return pjrtState.client, nil
}

func runtimeClose() error {
	if pjrtState.client == nil {
		return nil
	}
	err := pjrtState.client.Destroy()
	pjrtState.client = nil
	pjrtState.device = nil
	pjrtState.allocs = nil
	if err != nil {
		return runtimeFailure("close", -1, err.Error())
	}
	return nil
}

// pjrtFailure classifies an error returned by PJRT.
func pjrtFailure(op string, err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "out of memory") {
		return errors.WithMessage(errOutOfMemory, msg)
	}
	return runtimeFailure(op, -1, msg)
}

func pjrtUpload(data []byte) (*pjrt.Buffer, error) {
	clt, err := pjrtClient()
	if err != nil {
		return nil, err
	}
	return clt.BufferFromHost().
		FromRawData(data, dtypes.Uint8, []int{len(data)}).
		ToDevice(pjrtState.device).
		Done()
}

func runtimeMalloc(size uint64) (DevicePtr, error) {
	buffer, err := pjrtUpload(make([]byte, size))
	if err != nil {
		return 0, pjrtFailure("malloc", err)
	}
	alloc := &pjrtAllocation{base: pjrtState.next, size: size, buffer: buffer}
	pjrtState.allocs[alloc.base] = alloc
	pjrtState.next += DevicePtr((size + pjrtAlignment - 1) &^ (pjrtAlignment - 1))
	return alloc.base, nil
}

func runtimeFree(ptr DevicePtr) error {
	alloc, ok := pjrtState.allocs[ptr]
	if !ok {
		return runtimeFailure("free", -1, fmt.Sprintf("%s is not a live allocation", ptr))
	}
	if err := pjrtDestroy(alloc.buffer); err != nil {
		return runtimeFailure("free", -1, err.Error())
	}
	delete(pjrtState.allocs, ptr)
	return nil
}

// resolve returns the allocation containing [ptr, ptr+n) and the offset of ptr.
func resolve(ptr DevicePtr, n uint64) (*pjrtAllocation, uint64, error) {
	for base, alloc := range pjrtState.allocs {
		if ptr < base || uint64(ptr-base) >= alloc.size {
			continue
		}
		off := uint64(ptr - base)
		if n > alloc.size-off {
			break
		}
		return alloc, off, nil
	}
	return nil, 0, runtimeFailure("memcpy", -1, fmt.Sprintf("%d bytes at %s are not inside a live allocation", n, ptr))
}

func (a *pjrtAllocation) contents() ([]byte, error) {
	data := make([]byte, a.size)
	if err := a.buffer.ToHost(data); err != nil {
		return nil, runtimeFailure("memcpy", -1, err.Error())
	}
	return data, nil
}

func pjrtRead(src Memory, n uint64) ([]byte, error) {
	switch srcT := src.(type) {
	case Host:
		return srcT[:n], nil
	case DevicePtr:
		alloc, off, err := resolve(srcT, n)
		if err != nil {
			return nil, err
		}
		data, err := alloc.contents()
		if err != nil {
			return nil, err
		}
		return data[off : off+n], nil
	}
	return nil, invalidArgument("cannot copy from %T", src)
}

func pjrtWrite(dst Memory, data []byte) error {
	switch dstT := dst.(type) {
	case Host:
		copy(dstT, data)
		return nil
	case DevicePtr:
		n := uint64(len(data))
		alloc, off, err := resolve(dstT, n)
		if err != nil {
			return err
		}
		contents := data
		if off != 0 || n != alloc.size {
			if contents, err = alloc.contents(); err != nil {
				return err
			}
			copy(contents[off:], data)
		}
		buffer, err := pjrtUpload(contents)
		if err != nil {
			return pjrtFailure("memcpy", err)
		}
		old := alloc.buffer
		alloc.buffer = buffer
		if err := pjrtDestroy(old); err != nil {
			return runtimeFailure("memcpy", -1, err.Error())
		}
		return nil
	}
	return invalidArgument("cannot copy to %T", dst)
}

func runtimeCopy(dst, src Memory, n uint64) error {
	data, err := pjrtRead(src, n)
	if err != nil {
		return err
	}
	return pjrtWrite(dst, data)
}

func runtimeMemInfo() (free, total uint64, err error) {
	return 0, 0, errors.New("PJRT plugins do not report device memory")
}

func runtimeDevice() (int, error) {
	if pjrtState.client == nil {
		return -1, errors.New("PJRT client not initialized")
	}
	return pjrtState.ordinal, nil
}
