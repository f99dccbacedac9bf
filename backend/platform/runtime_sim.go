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

//go:build devsim && !cuda && !pjrt

package platform

import (
	"github.com/gx-org/devmem/internal/simdev"
	"github.com/pkg/errors"
)

const (
	accelerated = true
	runtimeName = "devsim"
)

var simDevice *simdev.Device

func sim() *simdev.Device {
	if simDevice == nil {
		simDevice = simdev.New(0, DefaultSimCapacity)
	}
	return simDevice
}

func runtimeInit(opts Options) error {
	if simDevice != nil && simDevice.Stats().Live > 0 {
		return runtimeFailure("init", -1, "simulated device still has live allocations")
	}
	capacity := opts.SimCapacity
	if capacity == 0 {
		capacity = DefaultSimCapacity
	}
	simDevice = simdev.New(opts.Device, capacity)
	return nil
}

func runtimeClose() error {
	simDevice = nil
	return nil
}

func runtimeMalloc(size uint64) (DevicePtr, error) {
	addr, err := sim().Malloc(size)
	if errors.Is(err, simdev.ErrOutOfMemory) {
		return 0, errors.WithMessage(errOutOfMemory, err.Error())
	}
	if err != nil {
		return 0, runtimeFailure("malloc", -1, err.Error())
	}
	return DevicePtr(addr), nil
}

func runtimeFree(ptr DevicePtr) error {
	if err := sim().Free(uintptr(ptr)); err != nil {
		return runtimeFailure("free", -1, err.Error())
	}
	return nil
}

func simBytes(m Memory, n uint64) ([]byte, error) {
	switch mT := m.(type) {
	case Host:
		return mT[:n], nil
	case DevicePtr:
		data, err := sim().Resolve(uintptr(mT), n)
		if err != nil {
			return nil, runtimeFailure("memcpy", -1, err.Error())
		}
		return data, nil
	}
	return nil, invalidArgument("cannot copy to or from %T", m)
}

func runtimeCopy(dst, src Memory, n uint64) error {
	srcData, err := simBytes(src, n)
	if err != nil {
		return err
	}
	dstData, err := simBytes(dst, n)
	if err != nil {
		return err
	}
	copy(dstData, srcData)
	return nil
}

func runtimeMemInfo() (free, total uint64, err error) {
	return sim().MemGetInfo()
}

func runtimeDevice() (int, error) {
	return sim().Ordinal()
}
