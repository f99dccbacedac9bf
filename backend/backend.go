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

// Package backend opens the device runtime compiled into the binary.
package backend

import (
	"github.com/gx-org/devmem/backend/platform"
	"github.com/gx-org/devmem/plugin"
	"go.uber.org/zap"
)

// Backend is an initialized device runtime.
type Backend struct {
	opts   platform.Options
	logger *zap.Logger
}

// Open initializes the device runtime with the given options.
// The logger is shared with the platform package; nil disables logging.
func Open(opts platform.Options, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	platform.SetLogger(logger.Named("platform"))
	if platform.Name() == "pjrt" {
		opts.Plugin = plugin.Name(opts.Plugin)
	}
	if err := platform.Init(opts); err != nil {
		return nil, err
	}
	return &Backend{opts: opts, logger: logger}, nil
}

// Name of the device runtime.
func (b *Backend) Name() string {
	return platform.Name()
}

// Options used to open the backend.
func (b *Backend) Options() platform.Options {
	return b.opts
}

// Info returns what the runtime reports about the device.
func (b *Backend) Info() platform.DeviceInfo {
	return platform.Query()
}

// Close releases the runtime. Every buffer must have been freed.
func (b *Backend) Close() error {
	stats := platform.ReadStats()
	b.logger.Debug("closing device runtime",
		zap.Uint64("allocations", stats.Allocations),
		zap.Uint64("releases", stats.Releases),
		zap.Uint64("peak_bytes", stats.PeakBytes),
	)
	return platform.Close()
}
