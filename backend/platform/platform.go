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

// Package platform owns device memory and copies bytes between host and device.
//
// The device runtime is chosen when the binary is built:
//
//	go build                  no accelerator: non-zero allocations and copies fail with ErrUnsupported
//	go build -tags devsim     simulated accelerator held in host memory
//	go build -tags pjrt       PJRT plugin loaded through gopjrt
//	go build -tags cuda       CUDA runtime (requires cgo and the CUDA toolkit)
//
// The API is identical in every build, so callers never branch on the runtime.
// All operations are blocking and must be issued from a single goroutine.
package platform

import (
	"go.uber.org/zap"
)

// DefaultSimCapacity is the memory of the simulated device when Options does not set one.
const DefaultSimCapacity = 1 << 30

// Options configure the device runtime.
type Options struct {
	// Device is the ordinal of the device to use.
	Device int
	// Plugin is the PJRT plugin name. Only used by PJRT builds.
	Plugin string
	// SimCapacity is the memory in bytes of the simulated device.
	// Only used by simulated builds.
	SimCapacity uint64
}

// Accelerated is true when the binary is built with a device runtime.
const Accelerated = accelerated

// Name returns the name of the device runtime compiled into the binary.
func Name() string {
	return runtimeName
}

// Init selects and initializes the device. Runtimes initialize themselves
// with default options on first use if Init is never called.
func Init(opts Options) error {
	if err := runtimeInit(opts); err != nil {
		return err
	}
	logger.Info("device runtime initialized",
		zap.String("runtime", runtimeName),
		zap.Int("device", opts.Device),
	)
	return nil
}

// Close releases the resources held by the runtime itself.
// Buffers must be freed before.
func Close() error {
	if live := LiveAllocations(); live > 0 {
		logger.Warn("closing device runtime with live allocations", zap.Int64("live", live))
	}
	return runtimeClose()
}
