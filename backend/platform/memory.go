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

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/devmem"
)

// Memory is an operand of Copy: either host memory or a device address.
//
// Copy infers the direction of a transfer from the concrete types of its
// operands, so no other type can implement Memory.
type Memory interface {
	fmt.Stringer
	memory()
}

// Host is host-resident memory.
type Host []byte

var _ Memory = Host(nil)

func (Host) memory() {}

// String describes the host range.
func (h Host) String() string {
	return fmt.Sprintf("host[%d]", len(h))
}

// NewHost allocates zeroed host memory for n elements of type T.
// It returns the memory as a copy operand and as a slice of T aliasing it.
func NewHost[T devmem.Supported](n int) (Host, []T) {
	if n <= 0 {
		return nil, nil
	}
	raw := make(Host, n*dtype.Sizeof(dtype.Generic[T]()))
	return raw, dtype.ToSlice[T](raw)
}

// DevicePtr is an opaque device address. The zero value is the absent address.
//
// Device addresses are only meaningful to the runtime compiled into the
// binary: they must never be dereferenced from Go.
type DevicePtr uintptr

var _ Memory = DevicePtr(0)

func (DevicePtr) memory() {}

// IsNil returns true for the absent address.
func (p DevicePtr) IsNil() bool {
	return p == 0
}

// Add returns the address off bytes after p.
func (p DevicePtr) Add(off uint64) DevicePtr {
	return p + DevicePtr(off)
}

// String formats the address in hexadecimal.
func (p DevicePtr) String() string {
	if p == 0 {
		return "device(nil)"
	}
	return fmt.Sprintf("device(%#x)", uintptr(p))
}
