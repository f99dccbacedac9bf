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

//go:build !cuda && !pjrt && !devsim

package platform

import "github.com/pkg/errors"

const (
	accelerated = false
	runtimeName = "none"
)

func runtimeInit(Options) error {
	return nil
}

func runtimeClose() error {
	return nil
}

func runtimeMalloc(size uint64) (DevicePtr, error) {
	return 0, unsupported("cannot allocate %d bytes: binary built without accelerator support", size)
}

func runtimeFree(ptr DevicePtr) error {
	return unsupported("cannot free %s: binary built without accelerator support", ptr)
}

func runtimeCopy(dst, src Memory, n uint64) error {
	return unsupported("cannot copy %d bytes from %v to %v: binary built without accelerator support", n, src, dst)
}

func runtimeMemInfo() (free, total uint64, err error) {
	return 0, 0, errors.New("no device")
}

func runtimeDevice() (int, error) {
	return -1, errors.New("no device")
}
