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

//go:build cuda

package platform

/*
#cgo CFLAGS: -I/opt/cuda/include -I/usr/local/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L/usr/local/cuda/lib64 -lcudart

#include <cuda_runtime.h>
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

const (
	accelerated = true
	runtimeName = "cuda"
)

func cudaFailure(op string, status C.cudaError_t) error {
	return runtimeFailure(op, int(status), C.GoString(C.cudaGetErrorString(status)))
}

func runtimeInit(opts Options) error {
	var count C.int
	if status := C.cudaGetDeviceCount(&count); status != C.cudaSuccess {
		return cudaFailure("cudaGetDeviceCount", status)
	}
	if opts.Device < 0 || opts.Device >= int(count) {
		return errors.WithStack(&RuntimeError{
			Op:     "cudaSetDevice",
			Code:   -1,
			Detail: "device ordinal out of range",
		})
	}
	if status := C.cudaSetDevice(C.int(opts.Device)); status != C.cudaSuccess {
		return cudaFailure("cudaSetDevice", status)
	}
	return nil
}

func runtimeClose() error {
	return nil
}

func runtimeMalloc(size uint64) (DevicePtr, error) {
	var ptr unsafe.Pointer
	status := C.cudaMalloc(&ptr, C.size_t(size))
	if status == C.cudaErrorMemoryAllocation {
		// Clear the error so that the diagnostic queries do not report it.
		C.cudaGetLastError()
		return 0, errors.WithMessage(errOutOfMemory, C.GoString(C.cudaGetErrorString(status)))
	}
	if status != C.cudaSuccess {
		return 0, cudaFailure("cudaMalloc", status)
	}
	return DevicePtr(ptr), nil
}

func runtimeFree(ptr DevicePtr) error {
	if status := C.cudaFree(unsafe.Pointer(ptr)); status != C.cudaSuccess {
		return cudaFailure("cudaFree", status)
	}
	return nil
}

func cudaPointer(m Memory) (unsafe.Pointer, error) {
	switch mT := m.(type) {
	case Host:
		return unsafe.Pointer(unsafe.SliceData(mT)), nil
	case DevicePtr:
		return unsafe.Pointer(mT), nil
	}
	return nil, invalidArgument("cannot copy to or from %T", m)
}

func runtimeCopy(dst, src Memory, n uint64) error {
	dstPtr, err := cudaPointer(dst)
	if err != nil {
		return err
	}
	srcPtr, err := cudaPointer(src)
	if err != nil {
		return err
	}
	// cudaMemcpyDefault infers the direction from unified virtual addressing.
	if status := C.cudaMemcpy(dstPtr, srcPtr, C.size_t(n), C.cudaMemcpyDefault); status != C.cudaSuccess {
		return cudaFailure("cudaMemcpy", status)
	}
	return nil
}

func runtimeMemInfo() (free, total uint64, err error) {
	var cFree, cTotal C.size_t
	if status := C.cudaMemGetInfo(&cFree, &cTotal); status != C.cudaSuccess {
		return 0, 0, cudaFailure("cudaMemGetInfo", status)
	}
	return uint64(cFree), uint64(cTotal), nil
}

func runtimeDevice() (int, error) {
	var dev C.int
	if status := C.cudaGetDevice(&dev); status != C.cudaSuccess {
		return -1, cudaFailure("cudaGetDevice", status)
	}
	return int(dev), nil
}
